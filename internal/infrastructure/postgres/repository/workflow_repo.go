package repository

import (
	"context"
	"time"

	"github.com/LavaJover/shvark-escrow-service/internal/domain"
	"github.com/LavaJover/shvark-escrow-service/internal/infrastructure/postgres/mappers"
	"github.com/LavaJover/shvark-escrow-service/internal/infrastructure/postgres/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// ============= WORKFLOW RULES =============

type WorkflowRuleRepository struct {
	db *gorm.DB
}

func NewWorkflowRuleRepository(db *gorm.DB) *WorkflowRuleRepository {
	return &WorkflowRuleRepository{db: db}
}

func (r *WorkflowRuleRepository) ListRules(ctx context.Context) ([]domain.WorkflowRule, error) {
	var ruleModels []models.WorkflowRuleModel
	if err := r.db.WithContext(ctx).Order("priority ASC, id ASC").Find(&ruleModels).Error; err != nil {
		return nil, translate(err, nil)
	}

	rules := make([]domain.WorkflowRule, 0, len(ruleModels))
	for i := range ruleModels {
		rules = append(rules, mappers.ToDomainWorkflowRule(&ruleModels[i]))
	}
	return rules, nil
}

func (r *WorkflowRuleRepository) SaveRule(ctx context.Context, rule *domain.WorkflowRule) error {
	if err := rule.Validate(); err != nil {
		return err
	}
	model := mappers.ToGORMWorkflowRule(rule)
	err := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "id"}},
			DoUpdates: clause.AssignmentColumns([]string{"name", "conditions", "actions", "enabled", "priority", "updated_at"}),
		}).
		Create(model).Error
	return translate(err, nil)
}

// ============= FIRED KEYS =============

// FiredKeyStore records fired keys durably; the primary key makes MarkFired an atomic
// insert-if-absent.
type FiredKeyStore struct {
	db  *gorm.DB
	now func() time.Time
}

func NewFiredKeyStore(db *gorm.DB, clock domain.Clock) *FiredKeyStore {
	if clock == nil {
		clock = domain.SystemClock{}
	}
	return &FiredKeyStore{db: db, now: clock.Now}
}

func (s *FiredKeyStore) MarkFired(ctx context.Context, key domain.FiredKey) (bool, error) {
	res := s.db.WithContext(ctx).
		Clauses(clause.OnConflict{DoNothing: true}).
		Create(&models.FiredKeyModel{
			RuleID:      key.RuleID,
			EntityID:    key.EntityID,
			Signature:   key.Signature,
			ActionIndex: key.ActionIndex,
			FiredAt:     s.now(),
		})
	if res.Error != nil {
		return false, translate(res.Error, nil)
	}
	return res.RowsAffected == 1, nil
}

func (s *FiredKeyStore) IsFired(ctx context.Context, key domain.FiredKey) (bool, error) {
	var count int64
	err := s.keyQuery(ctx, key).Count(&count).Error
	if err != nil {
		return false, translate(err, nil)
	}
	return count > 0, nil
}

func (s *FiredKeyStore) Release(ctx context.Context, key domain.FiredKey) error {
	return translate(s.keyQuery(ctx, key).Delete(&models.FiredKeyModel{}).Error, nil)
}

func (s *FiredKeyStore) Reset(ctx context.Context, ruleID, entityID string) error {
	err := s.db.WithContext(ctx).
		Where("rule_id = ? AND entity_id = ?", ruleID, entityID).
		Delete(&models.FiredKeyModel{}).Error
	return translate(err, nil)
}

func (s *FiredKeyStore) keyQuery(ctx context.Context, key domain.FiredKey) *gorm.DB {
	return s.db.WithContext(ctx).
		Model(&models.FiredKeyModel{}).
		Where("rule_id = ? AND entity_id = ? AND signature = ? AND action_index = ?",
			key.RuleID, key.EntityID, key.Signature, key.ActionIndex)
}

// ============= ADMIN WORKLOADS =============

type AdminDirectory struct {
	db *gorm.DB
}

func NewAdminDirectory(db *gorm.DB) *AdminDirectory {
	return &AdminDirectory{db: db}
}

func (d *AdminDirectory) ListAdmins(ctx context.Context) ([]domain.AdminWorkload, error) {
	var adminModels []models.AdminWorkloadModel
	if err := d.db.WithContext(ctx).Order("created_at ASC, admin_id ASC").Find(&adminModels).Error; err != nil {
		return nil, translate(err, nil)
	}

	admins := make([]domain.AdminWorkload, 0, len(adminModels))
	for i := range adminModels {
		admins = append(admins, mappers.ToDomainAdminWorkload(&adminModels[i]))
	}
	return admins, nil
}

// UpdateWorkload changes the load in one conditional update, so concurrent assignments
// never push an admin past max_load or below zero.
func (d *AdminDirectory) UpdateWorkload(ctx context.Context, adminID string, delta int) error {
	res := d.db.WithContext(ctx).
		Model(&models.AdminWorkloadModel{}).
		Where("admin_id = ? AND current_load + ? BETWEEN 0 AND max_load", adminID, delta).
		Update("current_load", gorm.Expr("current_load + ?", delta))
	if res.Error != nil {
		return translate(res.Error, nil)
	}
	if res.RowsAffected == 1 {
		return nil
	}

	var count int64
	if err := d.db.WithContext(ctx).Model(&models.AdminWorkloadModel{}).Where("admin_id = ?", adminID).Count(&count).Error; err != nil {
		return translate(err, nil)
	}
	if count == 0 {
		return domain.ErrAdminNotFound
	}
	return domain.ErrAdminAtCapacity
}

// Upsert registers an admin or updates its capacity, specialties and availability. The
// current load is kept.
func (d *AdminDirectory) Upsert(ctx context.Context, admin domain.AdminWorkload) error {
	model := mappers.ToGORMAdminWorkload(&admin)
	err := d.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "admin_id"}},
			DoUpdates: clause.AssignmentColumns([]string{"max_load", "specialties", "availability", "updated_at"}),
		}).
		Create(model).Error
	return translate(err, nil)
}
