package mappers

import (
	"github.com/LavaJover/shvark-escrow-service/internal/domain"
	"github.com/LavaJover/shvark-escrow-service/internal/infrastructure/postgres/models"
)

func ToDomainWorkflowRule(model *models.WorkflowRuleModel) domain.WorkflowRule {
	return domain.WorkflowRule{
		ID:         model.ID,
		Name:       model.Name,
		Conditions: model.Conditions,
		Actions:    model.Actions,
		Enabled:    model.Enabled,
		Priority:   model.Priority,
		UpdatedAt:  model.UpdatedAt,
	}
}

func ToGORMWorkflowRule(rule *domain.WorkflowRule) *models.WorkflowRuleModel {
	conditions := rule.Conditions
	if conditions == nil {
		conditions = []domain.Condition{}
	}
	return &models.WorkflowRuleModel{
		ID:         rule.ID,
		Name:       rule.Name,
		Conditions: conditions,
		Actions:    rule.Actions,
		Enabled:    rule.Enabled,
		Priority:   rule.Priority,
		UpdatedAt:  rule.UpdatedAt,
	}
}

func ToDomainAdminWorkload(model *models.AdminWorkloadModel) domain.AdminWorkload {
	return domain.AdminWorkload{
		AdminID:      model.AdminID,
		CurrentLoad:  model.CurrentLoad,
		MaxLoad:      model.MaxLoad,
		Specialties:  model.Specialties,
		Availability: domain.Availability(model.Availability),
	}
}

func ToGORMAdminWorkload(admin *domain.AdminWorkload) *models.AdminWorkloadModel {
	return &models.AdminWorkloadModel{
		AdminID:      admin.AdminID,
		CurrentLoad:  admin.CurrentLoad,
		MaxLoad:      admin.MaxLoad,
		Specialties:  admin.Specialties,
		Availability: string(admin.Availability),
	}
}
