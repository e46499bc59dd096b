package transaction

import (
	"context"
	"errors"
	"fmt"

	"github.com/LavaJover/shvark-escrow-service/internal/domain"
	transactiondto "github.com/LavaJover/shvark-escrow-service/internal/usecase/dto/transaction"
)

// Transition serialises on the transaction id, re-reads the record and applies the action
// against current server state. A rejected request changes nothing. Events go out after
// the lock is released.
func (uc *DefaultTransactionUsecase) Transition(ctx context.Context, input *transactiondto.TransitionInput) (*domain.Transaction, error) {
	tx, entry, err := uc.applyTransition(ctx, input)
	if err != nil {
		return nil, err
	}
	uc.Publisher.TransactionUpdated(ctx, tx, entry.At)
	uc.Publisher.Timeline(ctx, entry)
	return tx.Clone(), nil
}

func (uc *DefaultTransactionUsecase) applyTransition(ctx context.Context, input *transactiondto.TransitionInput) (*domain.Transaction, domain.TimelineEntry, error) {
	unlock := uc.Locks.Lock(LockKey(input.TransactionID))
	defer unlock()

	current, err := uc.Repo.GetTransaction(ctx, input.TransactionID)
	if err != nil {
		return nil, domain.TimelineEntry{}, err
	}

	tx := current.Clone()
	now := uc.Clock.Now()
	var via domain.TransactionStatus

	if input.Action == domain.ActionJoin {
		if err := checkJoin(tx, input.ActorID); err != nil {
			uc.Metrics.RecordTransition(string(input.Action), rejectionLabel(err))
			return nil, domain.TimelineEntry{}, err
		}
		counterparty := input.ActorID
		tx.CounterpartyID = &counterparty
		tx.JoinedAt = &now
		tx.Status = domain.StatusActive
	} else {
		g, err := checkGuard(tx, input.ActorID, input.Action)
		if err != nil {
			uc.Metrics.RecordTransition(string(input.Action), rejectionLabel(err))
			return nil, domain.TimelineEntry{}, err
		}
		via = g.via
		tx.Status = g.to(tx)
		if g.stamp != nil {
			g.stamp(tx, now)
		}
	}
	tx.UpdatedAt = now
	tx.Version++

	if err := uc.Repo.SaveTransaction(ctx, tx); err != nil {
		// Another writer got there first; for a join that means the slot is gone.
		if errors.Is(err, domain.ErrVersionConflict) && input.Action == domain.ActionJoin {
			uc.Metrics.RecordTransition(string(input.Action), string(domain.ReasonAlreadyJoined))
			return nil, domain.TimelineEntry{}, domain.NewTransitionError(domain.ReasonAlreadyJoined, tx.ID, string(input.Action), "counterparty slot is taken")
		}
		uc.Metrics.RecordTransition(string(input.Action), "error")
		return nil, domain.TimelineEntry{}, fmt.Errorf("failed to save transaction %s: %w", tx.ID, err)
	}
	uc.Metrics.RecordTransition(string(input.Action), "ok")

	uc.Logger.Info("transaction transitioned",
		"transaction_id", tx.ID,
		"action", input.Action,
		"actor_id", input.ActorID,
		"from", current.Status,
		"to", tx.Status)

	entry := domain.TimelineEntry{
		EntityID:   tx.ID,
		EntityType: "transaction",
		Kind:       string(input.Action),
		ActorID:    input.ActorID,
		From:       string(current.Status),
		To:         string(tx.Status),
		At:         now,
	}
	if via != "" {
		entry.Details = map[string]string{"via": string(via)}
	}
	return tx, entry, nil
}

func rejectionLabel(err error) string {
	var te *domain.TransitionError
	if errors.As(err, &te) {
		return string(te.Reason)
	}
	return "error"
}
