package domain

import (
	"fmt"
	"time"
)

type Operator string

const (
	OpEquals      Operator = "equals"
	OpNotEquals   Operator = "not_equals"
	OpGreaterThan Operator = "greater_than"
	OpLessThan    Operator = "less_than"
	OpContains    Operator = "contains"
	OpIn          Operator = "in"
	OpNotIn       Operator = "not_in"
)

type Connector string

const (
	ConnectorAnd Connector = "AND"
	ConnectorOr  Connector = "OR"
)

// Condition is one link of a rule's condition chain. Logic joins it to the result of
// the conditions before it and is ignored on the first condition.
type Condition struct {
	Field    string    `json:"field" yaml:"field"`
	Operator Operator  `json:"operator" yaml:"operator"`
	Value    any       `json:"value" yaml:"value"`
	Logic    Connector `json:"logic,omitempty" yaml:"logic,omitempty"`
}

type ActionType string

const (
	ActionAutoEscalate     ActionType = "AUTO_ESCALATE"
	ActionSendNotification ActionType = "SEND_NOTIFICATION"
	ActionAssignAdmin      ActionType = "ASSIGN_ADMIN"
	ActionUpdateStatus     ActionType = "UPDATE_STATUS"
	ActionSetPriority      ActionType = "SET_PRIORITY"
	ActionSendEmail        ActionType = "SEND_EMAIL"
	ActionCreateTask       ActionType = "CREATE_TASK"
)

type Action struct {
	Type         ActionType        `json:"type" yaml:"type"`
	Parameters   map[string]string `json:"parameters,omitempty" yaml:"parameters,omitempty"`
	DelayMinutes int               `json:"delayMinutes,omitempty" yaml:"delay_minutes,omitempty"`
}

func (a Action) Delay() time.Duration {
	if a.DelayMinutes <= 0 {
		return 0
	}
	return time.Duration(a.DelayMinutes) * time.Minute
}

type WorkflowRule struct {
	ID         string      `json:"id" yaml:"id"`
	Name       string      `json:"name" yaml:"name"`
	Conditions []Condition `json:"conditions" yaml:"conditions"`
	Actions    []Action    `json:"actions" yaml:"actions"`
	Enabled    bool        `json:"enabled" yaml:"enabled"`
	// Priority orders evaluation, lower runs first.
	Priority  int       `json:"priority" yaml:"priority"`
	UpdatedAt time.Time `json:"updatedAt" yaml:"-"`
}

func (r *WorkflowRule) Validate() error {
	if r.ID == "" {
		return fmt.Errorf("rule id is required")
	}
	if len(r.Actions) == 0 {
		return fmt.Errorf("rule %s has no actions", r.ID)
	}
	for i, a := range r.Actions {
		if a.Type == "" {
			return fmt.Errorf("rule %s action %d has no type", r.ID, i)
		}
		if a.DelayMinutes < 0 {
			return fmt.Errorf("rule %s action %d has negative delay", r.ID, i)
		}
	}
	return nil
}

// EscalationEntry is one row of the escalation matrix: a gated dispute status change.
type EscalationEntry struct {
	ID         string        `json:"id" yaml:"id"`
	FromStatus DisputeStatus `json:"fromStatus" yaml:"from_status"`
	ToStatus   DisputeStatus `json:"toStatus" yaml:"to_status"`
	Conditions []Condition   `json:"conditions" yaml:"conditions"`
	Actions    []Action      `json:"actions,omitempty" yaml:"actions,omitempty"`
}

// FiredKey identifies one action of one rule that already ran for an entity in a given
// triggering state.
type FiredKey struct {
	RuleID      string
	EntityID    string
	Signature   string
	ActionIndex int
}

func (k FiredKey) String() string {
	return fmt.Sprintf("%s|%s|%s|%d", k.RuleID, k.EntityID, k.Signature, k.ActionIndex)
}
