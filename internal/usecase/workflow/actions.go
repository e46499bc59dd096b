package workflow

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/LavaJover/shvark-escrow-service/internal/domain"
	disputedto "github.com/LavaJover/shvark-escrow-service/internal/usecase/dto/dispute"
	"github.com/google/uuid"
)

// execute performs one action against the current state of the dispute.
func (e *Engine) execute(ctx context.Context, ruleID string, action domain.Action, disputeID string) error {
	actor := actorFor(ruleID)

	switch action.Type {
	case domain.ActionAutoEscalate:
		ectx, err := e.reload(ctx, disputeID)
		if err != nil {
			return err
		}
		moved, err := e.escalate(ctx, ectx, ruleID)
		if err != nil || moved {
			return err
		}
		// nothing in the matrix applies: escalate by urgency instead
		current := ectx.view.Priority
		raised := current.Raised()
		if raised == current {
			return nil
		}
		if _, err := e.deps.Disputes.SetPriority(ctx, disputeID, actor, raised); err != nil {
			return err
		}
		e.deps.Metrics.RecordEscalation("priority", string(raised))
		return nil

	case domain.ActionAssignAdmin:
		view, err := e.deps.Disputes.AssignAdmin(ctx, disputeID)
		if err != nil {
			return err
		}
		if view.AssignedAdminID != nil {
			return e.notify(ctx, []string{*view.AssignedAdminID}, "dispute_assigned", ruleID, view, nil)
		}
		return nil

	case domain.ActionUpdateStatus:
		target := domain.DisputeStatus(strings.ToUpper(action.Parameters["status"]))
		current, err := e.deps.Repo.GetDispute(ctx, disputeID)
		if err != nil {
			return err
		}
		if current.Status == target {
			return nil
		}
		_, err = e.deps.Disputes.ChangeStatus(ctx, &disputedto.ChangeStatusInput{
			DisputeID: disputeID,
			ActorID:   actor,
			Status:    target,
			From:      current.Status,
			Details:   map[string]string{"rule_id": ruleID},
		})
		return err

	case domain.ActionSetPriority:
		priority := domain.DisputePriority(strings.ToUpper(action.Parameters["priority"]))
		_, err := e.deps.Disputes.SetPriority(ctx, disputeID, actor, priority)
		return err

	case domain.ActionSendNotification, domain.ActionSendEmail:
		ectx, err := e.reload(ctx, disputeID)
		if err != nil {
			return err
		}
		recipients, err := e.recipients(ctx, ectx, action.Parameters["recipients"])
		if err != nil {
			return err
		}
		template := action.Parameters["template"]
		if template == "" {
			template = strings.ToLower(string(action.Type))
		}
		extra := map[string]string{}
		if action.Type == domain.ActionSendEmail {
			extra["channel"] = "email"
		}
		return e.notify(ctx, recipients, template, ruleID, &ectx.view, extra)

	case domain.ActionCreateTask:
		d, err := e.deps.Repo.GetDispute(ctx, disputeID)
		if err != nil {
			return err
		}
		title := action.Parameters["title"]
		if title == "" {
			title = "Review dispute " + d.ID
		}
		assignee := action.Parameters["assignee"]
		if assignee == "" && d.AssignedAdminID != nil {
			assignee = *d.AssignedAdminID
		}
		e.deps.Publisher.TaskCreated(ctx, domain.Task{
			ID:         uuid.NewString(),
			DisputeID:  d.ID,
			AssigneeID: assignee,
			Title:      title,
			Details:    map[string]string{"rule_id": ruleID, "priority": string(d.Priority)},
			CreatedAt:  e.deps.Clock.Now(),
		})
		return nil
	}

	return fmt.Errorf("unknown action type %q", action.Type)
}

// escalate applies the first matching escalation matrix entry and runs its actions.
func (e *Engine) escalate(ctx context.Context, ectx *evalContext, trigger string) (bool, error) {
	entry, sig := match(e.matrix, ectx)
	if entry == nil {
		return false, nil
	}

	_, err := e.deps.Disputes.ChangeStatus(ctx, &disputedto.ChangeStatusInput{
		DisputeID: ectx.view.ID,
		ActorID:   actorFor(trigger),
		Status:    entry.entry.ToStatus,
		From:      entry.entry.FromStatus,
		Details:   map[string]string{"escalation": entry.entry.ID},
	})
	if errors.Is(err, domain.ErrInvalidDisputeTransition) {
		// someone moved the dispute first
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("escalation %s failed: %w", entry.entry.ID, err)
	}
	e.deps.Metrics.RecordEscalation("status", string(entry.entry.ToStatus))
	e.logger.Info("dispute escalated",
		"dispute_id", ectx.view.ID,
		"entry", entry.entry.ID,
		"from", entry.entry.FromStatus,
		"to", entry.entry.ToStatus,
		"trigger", trigger)

	ruleID := matrixRuleID(entry.entry.ID)
	for i, action := range entry.entry.Actions {
		key := domain.FiredKey{RuleID: ruleID, EntityID: ectx.view.ID, Signature: sig, ActionIndex: i}
		if _, err := e.fire(ctx, ruleID, action, key); err != nil {
			return true, err
		}
	}
	return true, nil
}

// recipients resolves a comma separated list of roles to user ids: admin, raiser,
// accused, counterparty, creator and participants. Anything else is taken as a user id.
func (e *Engine) recipients(ctx context.Context, ectx *evalContext, roles string) ([]string, error) {
	if strings.TrimSpace(roles) == "" {
		roles = "participants"
	}
	seen := map[string]struct{}{}
	var out []string
	add := func(id string) {
		if id == "" {
			return
		}
		if _, ok := seen[id]; ok {
			return
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}

	for _, role := range strings.Split(roles, ",") {
		switch strings.ToLower(strings.TrimSpace(role)) {
		case "admin":
			if ectx.view.AssignedAdminID != nil {
				add(*ectx.view.AssignedAdminID)
				continue
			}
			if e.deps.Admins == nil {
				continue
			}
			admins, err := e.deps.Admins.OnlineAdmins(ctx)
			if err != nil {
				return nil, fmt.Errorf("failed to list admins: %w", err)
			}
			for _, a := range admins {
				add(a.AdminID)
			}
		case "raiser":
			add(ectx.view.RaiserID)
		case "accused":
			add(ectx.view.AccusedID)
		case "participants":
			add(ectx.view.RaiserID)
			add(ectx.view.AccusedID)
		case "counterparty":
			if ectx.tx != nil && ectx.tx.CounterpartyID != nil {
				add(*ectx.tx.CounterpartyID)
			}
		case "creator":
			if ectx.tx != nil {
				add(ectx.tx.CreatorID)
			}
		case "":
		default:
			add(strings.TrimSpace(role))
		}
	}
	return out, nil
}

// notify sends to every recipient and returns the first failure.
func (e *Engine) notify(ctx context.Context, recipients []string, template, ruleID string, view *domain.DisputeView, extra map[string]string) error {
	if e.deps.Notifier == nil {
		return nil
	}
	var first error
	for _, userID := range recipients {
		metadata := map[string]string{
			"dispute_id":     view.ID,
			"transaction_id": view.TransactionID,
			"rule_id":        ruleID,
			"priority":       string(view.Priority),
			"status":         string(view.Status),
			"sla_status":     string(view.SLAStatus),
		}
		for k, v := range extra {
			metadata[k] = v
		}
		if err := e.deps.Notifier.Notify(ctx, userID, template, metadata); err != nil {
			e.logger.Error("failed to send notification",
				"user_id", userID,
				"template", template,
				"dispute_id", view.ID,
				"error", err)
			if first == nil {
				first = err
			}
		}
	}
	return first
}
