package dispute

import (
	"context"
	"fmt"

	"github.com/LavaJover/shvark-escrow-service/internal/domain"
)

// AssignAdmin reserves an admin through the balancer. It returns ErrNoAdminAvailable when
// nobody has capacity; an already assigned dispute is returned unchanged.
func (disputeUc *DefaultDisputeUsecase) AssignAdmin(ctx context.Context, disputeID string) (*domain.DisputeView, error) {
	var committed *DisputeOperation
	// registered before the unlock so events go out after every lock is released
	defer func() { disputeUc.publishOperation(ctx, committed) }()

	unlock := disputeUc.locks.Lock(lockKey(disputeID))
	defer unlock()

	current, err := disputeUc.repo.GetDispute(ctx, disputeID)
	if err != nil {
		return nil, err
	}
	if current.AssignedAdminID != nil {
		return disputeUc.view(current), nil
	}
	if !current.Status.IsActive() {
		return nil, fmt.Errorf("%w: dispute %s is %s", domain.ErrInvalidDisputeTransition, disputeID, current.Status)
	}

	candidate, err := disputeUc.balancer.Assign(ctx, current)
	if err != nil {
		return nil, err
	}
	if candidate == nil {
		return nil, domain.ErrNoAdminAvailable
	}

	now := disputeUc.clock.Now()
	d := current.Clone()
	adminID := candidate.AdminID
	d.AssignedAdminID = &adminID
	d.AdminReleased = false
	d.UpdatedAt = now
	d.Version++

	op := &DisputeOperation{
		Operation:        "admin_assigned",
		ActorID:          SystemActor,
		Dispute:          d,
		OldDisputeStatus: current.Status,
		Details:          map[string]string{"admin_id": adminID},
		At:               now,
	}
	if err := disputeUc.ProcessDisputeOperation(ctx, op); err != nil {
		// the reservation must not outlive a failed write
		disputeUc.releaseCapacity(ctx, d.ID, adminID)
		return nil, err
	}
	committed = op
	return disputeUc.view(d), nil
}
