package testutil

import (
	"time"

	"github.com/LavaJover/shvark-escrow-service/internal/domain"
	"github.com/shopspring/decimal"
)

// T0 is the reference instant used across scenario tests.
var T0 = time.Date(2025, 3, 10, 9, 0, 0, 0, time.UTC)

// JoinedTransaction returns a stored-shape transaction between seller alice (creator) and
// buyer bob in the given status.
func JoinedTransaction(id string, status domain.TransactionStatus, useCourier bool) *domain.Transaction {
	bob := "bob"
	joined := T0
	return &domain.Transaction{
		ID:             id,
		CreatorID:      "alice",
		CounterpartyID: &bob,
		CreatorRole:    domain.RoleSeller,
		Price:          decimal.NewFromInt(100),
		Fee:            decimal.NewFromInt(5),
		Total:          decimal.NewFromInt(105),
		Currency:       "USD",
		UseCourier:     useCourier,
		Status:         status,
		Version:        1,
		CreatedAt:      T0,
		UpdatedAt:      T0,
		JoinedAt:       &joined,
	}
}

// OpenDispute returns a version-1 OPEN dispute raised by bob against alice.
func OpenDispute(id, transactionID string, priority domain.DisputePriority, createdAt time.Time) *domain.Dispute {
	return &domain.Dispute{
		ID:            id,
		TransactionID: transactionID,
		RaiserID:      "bob",
		AccusedID:     "alice",
		DisputeType:   "item_not_received",
		Reason:        "parcel never arrived",
		Priority:      priority,
		Status:        domain.DisputeOpen,
		Version:       1,
		CreatedAt:     createdAt,
		UpdatedAt:     createdAt,
	}
}
