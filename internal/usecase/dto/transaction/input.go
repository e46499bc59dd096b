package transactiondto

import (
	"github.com/LavaJover/shvark-escrow-service/internal/domain"
	"github.com/shopspring/decimal"
)

type CreateTransactionInput struct {
	CreatorID   string
	CreatorRole domain.Role
	Price       decimal.Decimal
	Currency    string
	UseCourier  bool
}

type TransitionInput struct {
	TransactionID string
	ActorID       string
	Action        domain.TransactionAction
}
