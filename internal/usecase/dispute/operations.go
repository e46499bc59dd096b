package dispute

import (
	"context"
	"fmt"
	"time"

	"github.com/LavaJover/shvark-escrow-service/internal/domain"
)

// ============= DISPUTE OPERATIONS =============

// DisputeOperation is one persisted change to a dispute and, optionally, its transaction.
type DisputeOperation struct {
	Operation        string
	ActorID          string
	Dispute          *domain.Dispute
	OldDisputeStatus domain.DisputeStatus
	// Transaction is nil when the transaction is untouched.
	Transaction          *domain.Transaction
	OldTransactionStatus domain.TransactionStatus
	Details              map[string]string
	At                   time.Time
}

// ProcessDisputeOperation writes the operation atomically. Its events are published by
// publishOperation once the caller has released its locks.
func (disputeUc *DefaultDisputeUsecase) ProcessDisputeOperation(ctx context.Context, op *DisputeOperation) error {
	// dispute and transaction together or not at all
	var err error
	if op.Transaction != nil {
		err = disputeUc.repo.ApplyDisputeOperation(ctx, op.Dispute, op.Transaction)
	} else {
		err = disputeUc.repo.SaveDispute(ctx, op.Dispute)
	}
	if err != nil {
		return fmt.Errorf("dispute %s %s failed: %w", op.Dispute.ID, op.Operation, err)
	}
	return nil
}

// publishOperation emits the events of a persisted operation; nil is a no-op. Publishing
// never fails the operation.
func (disputeUc *DefaultDisputeUsecase) publishOperation(ctx context.Context, op *DisputeOperation) {
	if op == nil {
		return
	}
	disputeUc.publisher.DisputeUpdated(ctx, *disputeUc.view(op.Dispute), op.At)
	disputeUc.publisher.Timeline(ctx, domain.TimelineEntry{
		EntityID:   op.Dispute.ID,
		EntityType: "dispute",
		Kind:       op.Operation,
		ActorID:    op.ActorID,
		From:       string(op.OldDisputeStatus),
		To:         string(op.Dispute.Status),
		Details:    op.Details,
		At:         op.At,
	})
	if op.Transaction != nil {
		disputeUc.publisher.TransactionUpdated(ctx, op.Transaction, op.At)
		disputeUc.publisher.Timeline(ctx, domain.TimelineEntry{
			EntityID:   op.Transaction.ID,
			EntityType: "transaction",
			Kind:       op.Operation,
			ActorID:    op.ActorID,
			From:       string(op.OldTransactionStatus),
			To:         string(op.Transaction.Status),
			Details:    map[string]string{"dispute_id": op.Dispute.ID},
			At:         op.At,
		})
	}
}

// releaseAdmin hands back the assigned admin's capacity once per dispute. It marks the
// dispute and returns the admin id to release after the write succeeds.
func releaseAdmin(d *domain.Dispute) string {
	if d.AssignedAdminID == nil || d.AdminReleased {
		return ""
	}
	d.AdminReleased = true
	return *d.AssignedAdminID
}

func (disputeUc *DefaultDisputeUsecase) releaseCapacity(ctx context.Context, disputeID, adminID string) {
	if adminID == "" || disputeUc.balancer == nil {
		return
	}
	if err := disputeUc.balancer.Release(ctx, adminID); err != nil {
		disputeUc.logger.Error("failed to release admin capacity",
			"dispute_id", disputeID,
			"admin_id", adminID,
			"error", err)
	}
}
