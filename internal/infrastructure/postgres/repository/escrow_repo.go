package repository

import (
	"context"

	"github.com/LavaJover/shvark-escrow-service/internal/domain"
	"github.com/LavaJover/shvark-escrow-service/internal/infrastructure/postgres/mappers"
	"github.com/LavaJover/shvark-escrow-service/internal/infrastructure/postgres/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// EscrowRepository stores transactions and disputes. Saves are optimistic on the version
// column.
type EscrowRepository struct {
	db *gorm.DB
}

func NewEscrowRepository(db *gorm.DB) *EscrowRepository {
	return &EscrowRepository{db: db}
}

// ============= TRANSACTIONS =============

func (r *EscrowRepository) GetTransaction(ctx context.Context, id string) (*domain.Transaction, error) {
	var model models.TransactionModel
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&model).Error; err != nil {
		return nil, translate(err, domain.ErrTransactionNotFound)
	}
	return mappers.ToDomainTransaction(&model), nil
}

func (r *EscrowRepository) GetTransactionsByParticipant(ctx context.Context, userID string) ([]*domain.Transaction, error) {
	var transactionModels []models.TransactionModel
	if err := r.db.WithContext(ctx).
		Where("creator_id = ? OR counterparty_id = ?", userID, userID).
		Order("created_at DESC").
		Find(&transactionModels).Error; err != nil {
		return nil, translate(err, nil)
	}

	transactions := make([]*domain.Transaction, len(transactionModels))
	for i := range transactionModels {
		transactions[i] = mappers.ToDomainTransaction(&transactionModels[i])
	}
	return transactions, nil
}

func (r *EscrowRepository) SaveTransaction(ctx context.Context, tx *domain.Transaction) error {
	return saveTransaction(r.db.WithContext(ctx), tx)
}

func saveTransaction(db *gorm.DB, tx *domain.Transaction) error {
	model := mappers.ToGORMTransaction(tx)
	if tx.Version <= 1 {
		if err := db.Create(model).Error; err != nil {
			if uniqueViolation(err, "") {
				return domain.ErrAlreadyExists
			}
			return translate(err, nil)
		}
		return nil
	}

	res := db.Model(model).Where("version = ?", tx.Version-1).Select("*").Updates(model)
	if res.Error != nil {
		return translate(res.Error, nil)
	}
	if res.RowsAffected == 0 {
		return missingOrConflict(db, &models.TransactionModel{}, tx.ID, domain.ErrTransactionNotFound)
	}
	return nil
}

// missingOrConflict explains an update that matched no row.
func missingOrConflict(db *gorm.DB, model any, id string, notFound error) error {
	var count int64
	if err := db.Model(model).Where("id = ?", id).Count(&count).Error; err != nil {
		return translate(err, nil)
	}
	if count == 0 {
		return notFound
	}
	return domain.ErrVersionConflict
}

// ============= DISPUTES =============

var activeDisputeStatuses = []string{string(domain.DisputeOpen), string(domain.DisputeInReview)}

func (r *EscrowRepository) GetDispute(ctx context.Context, id string) (*domain.Dispute, error) {
	var model models.DisputeModel
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&model).Error; err != nil {
		return nil, translate(err, domain.ErrDisputeNotFound)
	}
	return mappers.ToDomainDispute(&model), nil
}

func (r *EscrowRepository) GetActiveDisputeByTransaction(ctx context.Context, transactionID string) (*domain.Dispute, error) {
	var model models.DisputeModel
	if err := r.db.WithContext(ctx).
		Where("transaction_id = ? AND status IN ?", transactionID, activeDisputeStatuses).
		First(&model).Error; err != nil {
		return nil, translate(err, domain.ErrDisputeNotFound)
	}
	return mappers.ToDomainDispute(&model), nil
}

func (r *EscrowRepository) GetDisputesByParticipant(ctx context.Context, userID string) ([]*domain.Dispute, error) {
	return r.findDisputes(r.db.WithContext(ctx).Where("raiser_id = ? OR accused_id = ?", userID, userID))
}

func (r *EscrowRepository) ListOpenDisputes(ctx context.Context) ([]*domain.Dispute, error) {
	return r.findDisputes(r.db.WithContext(ctx).Where("status <> ?", string(domain.DisputeClosed)))
}

func (r *EscrowRepository) findDisputes(query *gorm.DB) ([]*domain.Dispute, error) {
	var disputeModels []models.DisputeModel
	if err := query.Order("created_at ASC, id ASC").Find(&disputeModels).Error; err != nil {
		return nil, translate(err, nil)
	}

	disputes := make([]*domain.Dispute, len(disputeModels))
	for i := range disputeModels {
		disputes[i] = mappers.ToDomainDispute(&disputeModels[i])
	}
	return disputes, nil
}

func (r *EscrowRepository) SaveDispute(ctx context.Context, dispute *domain.Dispute) error {
	return saveDispute(r.db.WithContext(ctx), dispute)
}

func saveDispute(db *gorm.DB, dispute *domain.Dispute) error {
	model := mappers.ToGORMDispute(dispute)
	if dispute.Version <= 1 {
		if err := db.Omit(clause.Associations).Create(model).Error; err != nil {
			switch {
			case uniqueViolation(err, ActiveDisputeIndex):
				return domain.ErrActiveDisputeExists
			case uniqueViolation(err, ""):
				return domain.ErrAlreadyExists
			}
			return translate(err, nil)
		}
		return nil
	}

	res := db.Model(model).
		Where("version = ?", dispute.Version-1).
		Select("*").
		Omit(clause.Associations).
		Updates(model)
	if res.Error != nil {
		return translate(res.Error, nil)
	}
	if res.RowsAffected == 0 {
		return missingOrConflict(db, &models.DisputeModel{}, dispute.ID, domain.ErrDisputeNotFound)
	}
	return nil
}

// ApplyDisputeOperation writes the dispute and the transaction in one database transaction.
func (r *EscrowRepository) ApplyDisputeOperation(ctx context.Context, dispute *domain.Dispute, tx *domain.Transaction) error {
	err := r.db.WithContext(ctx).Transaction(func(dbTx *gorm.DB) error {
		if err := saveDispute(dbTx, dispute); err != nil {
			return err
		}
		if tx != nil {
			return saveTransaction(dbTx, tx)
		}
		return nil
	})
	return passThrough(err)
}
