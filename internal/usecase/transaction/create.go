package transaction

import (
	"context"
	"fmt"
	"strings"

	"github.com/LavaJover/shvark-escrow-service/internal/domain"
	transactiondto "github.com/LavaJover/shvark-escrow-service/internal/usecase/dto/transaction"
	"github.com/jaevor/go-nanoid"
	"github.com/shopspring/decimal"
)

var hundred = decimal.NewFromInt(100)

// Fee returns the escrow fee for price, rounded to cents.
func (p FeePolicy) Fee(price decimal.Decimal) decimal.Decimal {
	fee := price.Mul(p.Percent).Div(hundred)
	if fee.LessThan(p.MinFee) {
		fee = p.MinFee
	}
	return fee.Round(2)
}

func (uc *DefaultTransactionUsecase) CreateTransaction(ctx context.Context, input *transactiondto.CreateTransactionInput) (*domain.Transaction, error) {
	if input.CreatorID == "" {
		return nil, fmt.Errorf("%w: creator id is required", domain.ErrInvalidInput)
	}
	if !input.CreatorRole.Valid() {
		return nil, fmt.Errorf("%w: unknown role %q", domain.ErrInvalidInput, input.CreatorRole)
	}
	if !input.Price.IsPositive() {
		return nil, fmt.Errorf("%w: price must be positive", domain.ErrInvalidInput)
	}
	currency := strings.ToUpper(strings.TrimSpace(input.Currency))
	if currency == "" {
		return nil, fmt.Errorf("%w: currency is required", domain.ErrInvalidInput)
	}

	idGenerator, err := nanoid.Standard(15)
	if err != nil {
		return nil, err
	}

	now := uc.Clock.Now()
	price := input.Price.Round(2)
	fee := uc.Fees.Fee(price)
	tx := &domain.Transaction{
		ID:          idGenerator(),
		CreatorID:   input.CreatorID,
		CreatorRole: input.CreatorRole,
		Price:       price,
		Fee:         fee,
		Total:       price.Add(fee),
		Currency:    currency,
		UseCourier:  input.UseCourier,
		Status:      domain.StatusPending,
		Version:     1,
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	if err := uc.Repo.SaveTransaction(ctx, tx); err != nil {
		return nil, fmt.Errorf("failed to save transaction: %w", err)
	}

	uc.Logger.Info("transaction created",
		"transaction_id", tx.ID,
		"creator_id", tx.CreatorID,
		"role", tx.CreatorRole,
		"total", tx.Total.String())

	uc.Publisher.TransactionUpdated(ctx, tx, now)
	uc.Publisher.Timeline(ctx, domain.TimelineEntry{
		EntityID:   tx.ID,
		EntityType: "transaction",
		Kind:       "created",
		ActorID:    tx.CreatorID,
		To:         string(tx.Status),
		At:         now,
	})
	return tx.Clone(), nil
}
