package dispute

import (
	"context"
	"fmt"

	"github.com/LavaJover/shvark-escrow-service/internal/domain"
	disputedto "github.com/LavaJover/shvark-escrow-service/internal/usecase/dto/dispute"
	"github.com/LavaJover/shvark-escrow-service/internal/usecase/transaction"
)

// ChangeStatus moves a dispute along its status graph. Leaving the active states settles
// the transaction with the recorded outcome (RESUME when none) and frees the admin.
func (disputeUc *DefaultDisputeUsecase) ChangeStatus(ctx context.Context, input *disputedto.ChangeStatusInput) (*domain.DisputeView, error) {
	var committed *DisputeOperation
	// registered before the unlock so events go out after every lock is released
	defer func() { disputeUc.publishOperation(ctx, committed) }()

	unlock := disputeUc.locks.Lock(lockKey(input.DisputeID))
	defer unlock()

	current, err := disputeUc.repo.GetDispute(ctx, input.DisputeID)
	if err != nil {
		return nil, err
	}
	if input.From != "" && current.Status != input.From {
		return nil, fmt.Errorf("%w: dispute %s is %s, not %s", domain.ErrInvalidDisputeTransition, current.ID, current.Status, input.From)
	}
	if !current.Status.CanMoveTo(input.Status) {
		return nil, fmt.Errorf("%w: %s -> %s", domain.ErrInvalidDisputeTransition, current.Status, input.Status)
	}

	now := disputeUc.clock.Now()
	d := current.Clone()
	d.Status = input.Status
	d.UpdatedAt = now
	d.Version++

	var released string
	switch input.Status {
	case domain.DisputeResolved:
		d.ResolvedAt = &now
		released = releaseAdmin(d)
	case domain.DisputeClosed:
		d.ClosedAt = &now
		if d.ResolvedAt == nil {
			d.ResolvedAt = &now
		}
		released = releaseAdmin(d)
	}

	op := &DisputeOperation{
		Operation:        "status_changed",
		ActorID:          input.ActorID,
		Dispute:          d,
		OldDisputeStatus: current.Status,
		Details:          make(map[string]string, len(input.Details)+1),
		At:               now,
	}
	for k, v := range input.Details {
		op.Details[k] = v
	}

	if current.Status.IsActive() && !d.Status.IsActive() {
		unlockTx := disputeUc.locks.Lock(transaction.LockKey(d.TransactionID))
		defer unlockTx()

		tx, err := disputeUc.repo.GetTransaction(ctx, d.TransactionID)
		if err != nil {
			return nil, err
		}
		op.OldTransactionStatus = tx.Status
		outcome := d.ResolutionOutcome
		if outcome == "" {
			outcome = domain.OutcomeResume
		}
		if tx.SettleDispute(outcome, now) {
			op.Transaction = tx
			op.Details["outcome"] = string(outcome)
		}
	}

	if err := disputeUc.ProcessDisputeOperation(ctx, op); err != nil {
		return nil, err
	}
	committed = op
	disputeUc.releaseCapacity(ctx, d.ID, released)

	disputeUc.logger.Info("dispute status changed",
		"dispute_id", d.ID,
		"actor_id", input.ActorID,
		"from", current.Status,
		"to", d.Status)
	return disputeUc.view(d), nil
}

// SetPriority is a no-op when the priority is unchanged.
func (disputeUc *DefaultDisputeUsecase) SetPriority(ctx context.Context, disputeID, actorID string, priority domain.DisputePriority) (*domain.DisputeView, error) {
	if !priority.Valid() {
		return nil, fmt.Errorf("%w: unknown priority %q", domain.ErrInvalidInput, priority)
	}

	var committed *DisputeOperation
	// registered before the unlock so events go out after every lock is released
	defer func() { disputeUc.publishOperation(ctx, committed) }()

	unlock := disputeUc.locks.Lock(lockKey(disputeID))
	defer unlock()

	current, err := disputeUc.repo.GetDispute(ctx, disputeID)
	if err != nil {
		return nil, err
	}
	if current.Priority == priority {
		return disputeUc.view(current), nil
	}
	if current.Status == domain.DisputeClosed {
		return nil, fmt.Errorf("%w: dispute %s is closed", domain.ErrInvalidDisputeTransition, disputeID)
	}

	now := disputeUc.clock.Now()
	d := current.Clone()
	d.Priority = priority
	d.UpdatedAt = now
	d.Version++

	op := &DisputeOperation{
		Operation:        "priority_changed",
		ActorID:          actorID,
		Dispute:          d,
		OldDisputeStatus: current.Status,
		Details:          map[string]string{"from": string(current.Priority), "to": string(priority)},
		At:               now,
	}
	if err := disputeUc.ProcessDisputeOperation(ctx, op); err != nil {
		return nil, err
	}
	committed = op
	return disputeUc.view(d), nil
}
