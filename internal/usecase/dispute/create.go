package dispute

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/LavaJover/shvark-escrow-service/internal/domain"
	disputedto "github.com/LavaJover/shvark-escrow-service/internal/usecase/dto/dispute"
	"github.com/LavaJover/shvark-escrow-service/internal/usecase/transaction"
	"github.com/google/uuid"
)

// RaiseDispute opens a dispute and freezes the transaction in DISPUTED. Only membership
// is checked, not the transition table.
func (disputeUc *DefaultDisputeUsecase) RaiseDispute(ctx context.Context, input *disputedto.RaiseDisputeInput) (*domain.DisputeView, error) {
	priority := input.Priority
	if priority == "" {
		priority = domain.PriorityMedium
	}
	if !priority.Valid() {
		return nil, fmt.Errorf("%w: unknown priority %q", domain.ErrInvalidInput, priority)
	}
	if strings.TrimSpace(input.Reason) == "" {
		return nil, fmt.Errorf("%w: reason is required", domain.ErrInvalidInput)
	}

	var committed *DisputeOperation
	// registered before the unlock so events go out after every lock is released
	defer func() { disputeUc.publishOperation(ctx, committed) }()

	unlock := disputeUc.locks.Lock(transaction.LockKey(input.TransactionID))
	defer unlock()

	current, err := disputeUc.repo.GetTransaction(ctx, input.TransactionID)
	if err != nil {
		return nil, err
	}
	action := string(domain.ActionRaiseDispute)
	if !current.IsParticipant(input.RaiserID) {
		return nil, domain.NewTransitionError(domain.ReasonWrongRole, current.ID, action, "actor is not a participant")
	}
	if !current.CanBeDisputed() {
		return nil, domain.NewTransitionError(domain.ReasonWrongStatus, current.ID, action, "not allowed from "+string(current.Status))
	}
	if _, err := disputeUc.repo.GetActiveDisputeByTransaction(ctx, current.ID); err == nil {
		return nil, domain.ErrActiveDisputeExists
	} else if !errors.Is(err, domain.ErrDisputeNotFound) {
		return nil, err
	}

	now := disputeUc.clock.Now()
	tx := current.Clone()
	tx.EnterDispute(now)

	disputeType := strings.TrimSpace(input.DisputeType)
	if disputeType == "" {
		disputeType = "general"
	}
	dispute := &domain.Dispute{
		ID:            uuid.NewString(),
		TransactionID: tx.ID,
		RaiserID:      input.RaiserID,
		AccusedID:     *tx.OtherParty(input.RaiserID),
		DisputeType:   disputeType,
		Reason:        input.Reason,
		Priority:      priority,
		Status:        domain.DisputeOpen,
		Version:       1,
		CreatedAt:     now,
		UpdatedAt:     now,
	}

	op := &DisputeOperation{
		Operation:            "dispute_raised",
		ActorID:              input.RaiserID,
		Dispute:              dispute,
		Transaction:          tx,
		OldTransactionStatus: current.Status,
		Details:              map[string]string{"priority": string(priority), "type": disputeType},
		At:                   now,
	}
	if err := disputeUc.ProcessDisputeOperation(ctx, op); err != nil {
		return nil, err
	}
	committed = op

	disputeUc.logger.Info("dispute raised",
		"dispute_id", dispute.ID,
		"transaction_id", tx.ID,
		"raiser_id", dispute.RaiserID,
		"priority", priority)
	return disputeUc.view(dispute), nil
}
