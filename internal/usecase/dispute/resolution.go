package dispute

import (
	"context"
	"fmt"
	"strings"

	"github.com/LavaJover/shvark-escrow-service/internal/domain"
	disputedto "github.com/LavaJover/shvark-escrow-service/internal/usecase/dto/dispute"
)

// ProposeResolution records an admin's proposal and clears earlier acceptances. An OPEN
// dispute moves to IN_REVIEW.
func (disputeUc *DefaultDisputeUsecase) ProposeResolution(ctx context.Context, input *disputedto.ProposeResolutionInput) (*domain.DisputeView, error) {
	text := strings.TrimSpace(input.Resolution)
	if text == "" {
		return nil, fmt.Errorf("%w: resolution text is required", domain.ErrInvalidInput)
	}
	if !input.Outcome.Valid() {
		return nil, fmt.Errorf("%w: unknown outcome %q", domain.ErrInvalidInput, input.Outcome)
	}

	var committed *DisputeOperation
	// registered before the unlock so events go out after every lock is released
	defer func() { disputeUc.publishOperation(ctx, committed) }()

	unlock := disputeUc.locks.Lock(lockKey(input.DisputeID))
	defer unlock()

	current, err := disputeUc.repo.GetDispute(ctx, input.DisputeID)
	if err != nil {
		return nil, err
	}
	if !current.Status.IsActive() {
		return nil, fmt.Errorf("%w: dispute %s is %s", domain.ErrInvalidDisputeTransition, current.ID, current.Status)
	}

	now := disputeUc.clock.Now()
	d := current.Clone()
	d.Resolution = &text
	d.ResolutionOutcome = input.Outcome
	d.RaiserAccepted = false
	d.AccusedAccepted = false
	if d.Status == domain.DisputeOpen {
		d.Status = domain.DisputeInReview
	}
	d.UpdatedAt = now
	d.Version++

	op := &DisputeOperation{
		Operation:        "resolution_proposed",
		ActorID:          input.AdminID,
		Dispute:          d,
		OldDisputeStatus: current.Status,
		Details:          map[string]string{"outcome": string(input.Outcome)},
		At:               now,
	}
	if err := disputeUc.ProcessDisputeOperation(ctx, op); err != nil {
		return nil, err
	}
	committed = op
	return disputeUc.view(d), nil
}

// AcceptResolution records one party's acceptance. The escalation matrix resolves the
// dispute once both parties have accepted.
func (disputeUc *DefaultDisputeUsecase) AcceptResolution(ctx context.Context, disputeID, userID string) (*domain.DisputeView, error) {
	var committed *DisputeOperation
	// registered before the unlock so events go out after every lock is released
	defer func() { disputeUc.publishOperation(ctx, committed) }()

	unlock := disputeUc.locks.Lock(lockKey(disputeID))
	defer unlock()

	current, err := disputeUc.repo.GetDispute(ctx, disputeID)
	if err != nil {
		return nil, err
	}
	if !current.IsParticipant(userID) {
		return nil, domain.ErrNotDisputeParticipant
	}
	if current.Resolution == nil {
		return nil, domain.ErrNoResolution
	}
	if !current.Status.IsActive() {
		return nil, fmt.Errorf("%w: dispute %s is %s", domain.ErrInvalidDisputeTransition, current.ID, current.Status)
	}

	d := current.Clone()
	if userID == d.RaiserID {
		d.RaiserAccepted = true
	} else {
		d.AccusedAccepted = true
	}
	if d.RaiserAccepted == current.RaiserAccepted && d.AccusedAccepted == current.AccusedAccepted {
		return disputeUc.view(current), nil
	}

	now := disputeUc.clock.Now()
	d.UpdatedAt = now
	d.Version++

	op := &DisputeOperation{
		Operation:        "resolution_accepted",
		ActorID:          userID,
		Dispute:          d,
		OldDisputeStatus: current.Status,
		At:               now,
	}
	if err := disputeUc.ProcessDisputeOperation(ctx, op); err != nil {
		return nil, err
	}
	committed = op
	return disputeUc.view(d), nil
}
