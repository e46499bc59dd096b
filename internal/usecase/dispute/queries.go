package dispute

import (
	"context"

	"github.com/LavaJover/shvark-escrow-service/internal/domain"
	disputedto "github.com/LavaJover/shvark-escrow-service/internal/usecase/dto/dispute"
)

func (disputeUc *DefaultDisputeUsecase) GetDispute(ctx context.Context, disputeID string) (*domain.DisputeView, error) {
	d, err := disputeUc.repo.GetDispute(ctx, disputeID)
	if err != nil {
		return nil, err
	}
	return disputeUc.view(d), nil
}

// GetDisputesByParticipant pages through a user's disputes, oldest first. A zero limit
// returns everything on one page.
func (disputeUc *DefaultDisputeUsecase) GetDisputesByParticipant(ctx context.Context, input *disputedto.GetParticipantDisputesInput) (*disputedto.GetParticipantDisputesOutput, error) {
	disputes, err := disputeUc.repo.GetDisputesByParticipant(ctx, input.UserID)
	if err != nil {
		return nil, err
	}

	total := int32(len(disputes))
	limit := input.Limit
	if limit <= 0 {
		limit = total
		if limit == 0 {
			limit = 1
		}
	}
	page := input.Page
	if page < 1 {
		page = 1
	}

	totalPages := total / limit
	if total%limit != 0 {
		totalPages++
	}

	start := (page - 1) * limit
	end := start + limit
	if start > total {
		start = total
	}
	if end > total {
		end = total
	}

	now := disputeUc.clock.Now()
	views := make([]domain.DisputeView, 0, end-start)
	for _, d := range disputes[start:end] {
		views = append(views, disputeUc.sla.View(d, now))
	}

	return &disputedto.GetParticipantDisputesOutput{
		Disputes: views,
		Pagination: disputedto.Pagination{
			CurrentPage:  page,
			TotalPages:   totalPages,
			TotalItems:   total,
			ItemsPerPage: limit,
		},
	}, nil
}
