package mappers

import (
	"github.com/LavaJover/shvark-escrow-service/internal/domain"
	"github.com/LavaJover/shvark-escrow-service/internal/infrastructure/postgres/models"
)

func ToDomainTransaction(model *models.TransactionModel) *domain.Transaction {
	return &domain.Transaction{
		ID:                  model.ID,
		CreatorID:           model.CreatorID,
		CounterpartyID:      model.CounterpartyID,
		CreatorRole:         domain.Role(model.CreatorRole),
		Price:               model.Price,
		Fee:                 model.Fee,
		Total:               model.Total,
		Currency:            model.Currency,
		UseCourier:          model.UseCourier,
		Status:              domain.TransactionStatus(model.Status),
		StatusBeforeDispute: domain.TransactionStatus(model.StatusBeforeDispute),
		Version:             model.Version,
		CreatedAt:           model.CreatedAt,
		UpdatedAt:           model.UpdatedAt,
		JoinedAt:            model.JoinedAt,
		PaidAt:              model.PaidAt,
		ShippedAt:           model.ShippedAt,
		CompletedAt:         model.CompletedAt,
		CancelledAt:         model.CancelledAt,
		DisputedAt:          model.DisputedAt,
	}
}

func ToGORMTransaction(tx *domain.Transaction) *models.TransactionModel {
	return &models.TransactionModel{
		ID:                  tx.ID,
		CreatorID:           tx.CreatorID,
		CounterpartyID:      tx.CounterpartyID,
		CreatorRole:         string(tx.CreatorRole),
		Price:               tx.Price,
		Fee:                 tx.Fee,
		Total:               tx.Total,
		Currency:            tx.Currency,
		UseCourier:          tx.UseCourier,
		Status:              string(tx.Status),
		StatusBeforeDispute: string(tx.StatusBeforeDispute),
		Version:             tx.Version,
		CreatedAt:           tx.CreatedAt,
		UpdatedAt:           tx.UpdatedAt,
		JoinedAt:            tx.JoinedAt,
		PaidAt:              tx.PaidAt,
		ShippedAt:           tx.ShippedAt,
		CompletedAt:         tx.CompletedAt,
		CancelledAt:         tx.CancelledAt,
		DisputedAt:          tx.DisputedAt,
	}
}
