package workflow

import "github.com/LavaJover/shvark-escrow-service/internal/domain"

// DefaultMatrix is the escalation matrix used when none is configured.
func DefaultMatrix() []domain.EscalationEntry {
	return []domain.EscalationEntry{
		{
			ID:         "open-to-review-high-priority",
			FromStatus: domain.DisputeOpen,
			ToStatus:   domain.DisputeInReview,
			Conditions: []domain.Condition{
				{Field: "dispute.priority", Operator: domain.OpIn, Value: []any{"HIGH", "URGENT"}},
				{Field: "dispute.elapsedHours", Operator: domain.OpGreaterThan, Value: 2, Logic: domain.ConnectorAnd},
			},
		},
		{
			ID:         "open-to-review-overdue",
			FromStatus: domain.DisputeOpen,
			ToStatus:   domain.DisputeInReview,
			Conditions: []domain.Condition{
				{Field: "dispute.slaStatus", Operator: domain.OpEquals, Value: "OVERDUE"},
			},
			Actions: []domain.Action{
				{Type: domain.ActionSendNotification, Parameters: map[string]string{
					"recipients": "admin",
					"template":   "dispute_overdue_review",
				}},
			},
		},
		{
			ID:         "review-to-resolved-accepted",
			FromStatus: domain.DisputeInReview,
			ToStatus:   domain.DisputeResolved,
			Conditions: []domain.Condition{
				{Field: "dispute.hasResolution", Operator: domain.OpEquals, Value: true},
				{Field: "dispute.resolutionAccepted", Operator: domain.OpEquals, Value: true, Logic: domain.ConnectorAnd},
			},
			Actions: []domain.Action{
				{Type: domain.ActionSendNotification, Parameters: map[string]string{
					"recipients": "participants",
					"template":   "dispute_resolved",
				}},
			},
		},
	}
}

type matrixEntry struct {
	entry domain.EscalationEntry
	when  chain
}

func compileMatrix(entries []domain.EscalationEntry) []matrixEntry {
	out := make([]matrixEntry, 0, len(entries))
	for _, e := range entries {
		out = append(out, matrixEntry{entry: e, when: compileChain(e.Conditions)})
	}
	return out
}

// match returns the first entry leaving the dispute's current status whose conditions
// hold, with the state signature it matched on.
func match(entries []matrixEntry, ctx *evalContext) (*matrixEntry, string) {
	for i := range entries {
		e := &entries[i]
		if e.entry.FromStatus != ctx.view.Status {
			continue
		}
		if !ctx.view.Status.CanMoveTo(e.entry.ToStatus) {
			continue
		}
		if ok, sig := e.when.evaluate(ctx); ok {
			return e, sig
		}
	}
	return nil, ""
}

func matrixRuleID(entryID string) string {
	return "matrix:" + entryID
}
