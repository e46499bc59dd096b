package mappers

import (
	"github.com/LavaJover/shvark-escrow-service/internal/domain"
	"github.com/LavaJover/shvark-escrow-service/internal/infrastructure/postgres/models"
)

func ToDomainDispute(model *models.DisputeModel) *domain.Dispute {
	return &domain.Dispute{
		ID:                model.ID,
		TransactionID:     model.TransactionID,
		RaiserID:          model.RaiserID,
		AccusedID:         model.AccusedID,
		DisputeType:       model.DisputeType,
		Reason:            model.Reason,
		Priority:          domain.DisputePriority(model.Priority),
		Status:            domain.DisputeStatus(model.Status),
		AssignedAdminID:   model.AssignedAdminID,
		AdminReleased:     model.AdminReleased,
		Resolution:        model.Resolution,
		ResolutionOutcome: domain.ResolutionOutcome(model.ResolutionOutcome),
		RaiserAccepted:    model.RaiserAccepted,
		AccusedAccepted:   model.AccusedAccepted,
		Version:           model.Version,
		CreatedAt:         model.CreatedAt,
		UpdatedAt:         model.UpdatedAt,
		ResolvedAt:        model.ResolvedAt,
		ClosedAt:          model.ClosedAt,
	}
}

func ToGORMDispute(dispute *domain.Dispute) *models.DisputeModel {
	return &models.DisputeModel{
		ID:                dispute.ID,
		TransactionID:     dispute.TransactionID,
		RaiserID:          dispute.RaiserID,
		AccusedID:         dispute.AccusedID,
		DisputeType:       dispute.DisputeType,
		Reason:            dispute.Reason,
		Priority:          string(dispute.Priority),
		Status:            string(dispute.Status),
		AssignedAdminID:   dispute.AssignedAdminID,
		AdminReleased:     dispute.AdminReleased,
		Resolution:        dispute.Resolution,
		ResolutionOutcome: string(dispute.ResolutionOutcome),
		RaiserAccepted:    dispute.RaiserAccepted,
		AccusedAccepted:   dispute.AccusedAccepted,
		Version:           dispute.Version,
		CreatedAt:         dispute.CreatedAt,
		UpdatedAt:         dispute.UpdatedAt,
		ResolvedAt:        dispute.ResolvedAt,
		ClosedAt:          dispute.ClosedAt,
	}
}
