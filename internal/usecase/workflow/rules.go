package workflow

import "github.com/LavaJover/shvark-escrow-service/internal/domain"

// DefaultRules is the code-defined rule set. Rules are persisted on first start so they
// can be disabled or re-prioritised without a deploy.
func DefaultRules() []domain.WorkflowRule {
	return []domain.WorkflowRule{
		{
			ID:       "assign-unassigned",
			Name:     "Assign an admin to unassigned disputes",
			Enabled:  true,
			Priority: 10,
			Conditions: []domain.Condition{
				{Field: "dispute.isAssigned", Operator: domain.OpEquals, Value: false},
				{Field: "dispute.status", Operator: domain.OpIn, Value: []any{"OPEN", "IN_REVIEW"}, Logic: domain.ConnectorAnd},
			},
			Actions: []domain.Action{
				{Type: domain.ActionAssignAdmin},
			},
		},
		{
			ID:       "high-value-priority",
			Name:     "Raise priority of high value disputes",
			Enabled:  true,
			Priority: 20,
			Conditions: []domain.Condition{
				{Field: "transaction.total", Operator: domain.OpGreaterThan, Value: 5000},
				{Field: "dispute.priority", Operator: domain.OpIn, Value: []any{"LOW", "MEDIUM"}, Logic: domain.ConnectorAnd},
				{Field: "dispute.status", Operator: domain.OpNotEquals, Value: "RESOLVED", Logic: domain.ConnectorAnd},
			},
			Actions: []domain.Action{
				{Type: domain.ActionSetPriority, Parameters: map[string]string{"priority": "HIGH"}},
			},
		},
		{
			ID:       "sla-at-risk-notify",
			Name:     "Warn the admin when a dispute is at risk",
			Enabled:  true,
			Priority: 30,
			Conditions: []domain.Condition{
				{Field: "dispute.slaStatus", Operator: domain.OpEquals, Value: "AT_RISK"},
				{Field: "dispute.status", Operator: domain.OpIn, Value: []any{"OPEN", "IN_REVIEW"}, Logic: domain.ConnectorAnd},
			},
			Actions: []domain.Action{
				{Type: domain.ActionSendNotification, Parameters: map[string]string{
					"recipients": "admin",
					"template":   "sla_at_risk",
				}},
			},
		},
		{
			ID:       "sla-overdue-escalate",
			Name:     "Escalate overdue disputes",
			Enabled:  true,
			Priority: 40,
			Conditions: []domain.Condition{
				{Field: "dispute.slaStatus", Operator: domain.OpEquals, Value: "OVERDUE"},
				{Field: "dispute.status", Operator: domain.OpIn, Value: []any{"OPEN", "IN_REVIEW"}, Logic: domain.ConnectorAnd},
			},
			Actions: []domain.Action{
				{Type: domain.ActionAutoEscalate},
				{Type: domain.ActionSendNotification, Parameters: map[string]string{
					"recipients": "admin,counterparty",
					"template":   "sla_overdue_escalation",
				}},
				{Type: domain.ActionCreateTask, Parameters: map[string]string{
					"title": "Overdue dispute needs a decision",
				}},
			},
		},
		{
			ID:       "inactivity-reminder",
			Name:     "Remind participants of a stalled dispute",
			Enabled:  true,
			Priority: 50,
			Conditions: []domain.Condition{
				{Field: "dispute.hoursSinceUpdate", Operator: domain.OpGreaterThan, Value: 24},
				{Field: "dispute.status", Operator: domain.OpIn, Value: []any{"OPEN", "IN_REVIEW"}, Logic: domain.ConnectorAnd},
			},
			Actions: []domain.Action{
				{Type: domain.ActionSendEmail, DelayMinutes: 60, Parameters: map[string]string{
					"recipients": "participants",
					"template":   "dispute_inactivity_reminder",
				}},
			},
		},
		{
			ID:       "auto-close-resolved",
			Name:     "Close resolved disputes after the auto-resolve window",
			Enabled:  true,
			Priority: 60,
			Conditions: []domain.Condition{
				{Field: "dispute.status", Operator: domain.OpEquals, Value: "RESOLVED"},
				{Field: "dispute.autoResolveDue", Operator: domain.OpEquals, Value: true, Logic: domain.ConnectorAnd},
			},
			Actions: []domain.Action{
				{Type: domain.ActionUpdateStatus, DelayMinutes: 30, Parameters: map[string]string{"status": "CLOSED"}},
			},
		},
	}
}
