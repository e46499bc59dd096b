package domain

import "time"

type DisputeStatus string

const (
	DisputeOpen     DisputeStatus = "OPEN"
	DisputeInReview DisputeStatus = "IN_REVIEW"
	DisputeResolved DisputeStatus = "RESOLVED"
	DisputeClosed   DisputeStatus = "CLOSED"
)

// disputeGraph is the legal set of dispute status changes.
var disputeGraph = map[DisputeStatus][]DisputeStatus{
	DisputeOpen:     {DisputeInReview, DisputeResolved, DisputeClosed},
	DisputeInReview: {DisputeResolved, DisputeClosed},
	DisputeResolved: {DisputeClosed},
}

func (s DisputeStatus) CanMoveTo(to DisputeStatus) bool {
	for _, next := range disputeGraph[s] {
		if next == to {
			return true
		}
	}
	return false
}

// IsActive reports whether the dispute still blocks its transaction.
func (s DisputeStatus) IsActive() bool {
	return s == DisputeOpen || s == DisputeInReview
}

type DisputePriority string

const (
	PriorityLow    DisputePriority = "LOW"
	PriorityMedium DisputePriority = "MEDIUM"
	PriorityHigh   DisputePriority = "HIGH"
	PriorityUrgent DisputePriority = "URGENT"
)

var priorityLadder = []DisputePriority{PriorityLow, PriorityMedium, PriorityHigh, PriorityUrgent}

func (p DisputePriority) Valid() bool {
	return p.rank() >= 0
}

func (p DisputePriority) rank() int {
	for i, v := range priorityLadder {
		if v == p {
			return i
		}
	}
	return -1
}

// Raised returns the next more urgent priority; URGENT stays URGENT.
func (p DisputePriority) Raised() DisputePriority {
	r := p.rank()
	if r < 0 {
		return PriorityMedium
	}
	if r == len(priorityLadder)-1 {
		return p
	}
	return priorityLadder[r+1]
}

type SLAStatus string

const (
	SLAOnTime  SLAStatus = "ON_TIME"
	SLAAtRisk  SLAStatus = "AT_RISK"
	SLAOverdue SLAStatus = "OVERDUE"
)

// ResolutionOutcome decides what happens to the disputed transaction.
type ResolutionOutcome string

const (
	OutcomeRelease ResolutionOutcome = "RELEASE" // transaction completes, funds go to the seller
	OutcomeRefund  ResolutionOutcome = "REFUND"  // transaction is cancelled
	OutcomeResume  ResolutionOutcome = "RESUME"  // transaction returns to its pre-dispute status
)

func (o ResolutionOutcome) Valid() bool {
	return o == OutcomeRelease || o == OutcomeRefund || o == OutcomeResume
}

type Dispute struct {
	ID              string          `json:"id"`
	TransactionID   string          `json:"transactionId"`
	RaiserID        string          `json:"raiserId"`
	AccusedID       string          `json:"accusedId"`
	DisputeType     string          `json:"disputeType"`
	Reason          string          `json:"reason"`
	Priority        DisputePriority `json:"priority"`
	Status          DisputeStatus   `json:"status"`
	AssignedAdminID *string         `json:"assignedAdminId,omitempty"`
	// AdminReleased is set once the assigned admin's capacity was handed back.
	AdminReleased bool `json:"adminReleased"`

	Resolution        *string           `json:"resolution,omitempty"`
	ResolutionOutcome ResolutionOutcome `json:"resolutionOutcome,omitempty"`
	RaiserAccepted    bool              `json:"raiserAccepted"`
	AccusedAccepted   bool              `json:"accusedAccepted"`

	Version    int64      `json:"version"`
	CreatedAt  time.Time  `json:"createdAt"`
	UpdatedAt  time.Time  `json:"updatedAt"`
	ResolvedAt *time.Time `json:"resolvedAt,omitempty"`
	ClosedAt   *time.Time `json:"closedAt,omitempty"`
}

func (d *Dispute) IsParticipant(userID string) bool {
	return userID != "" && (userID == d.RaiserID || userID == d.AccusedID)
}

func (d *Dispute) ResolutionAccepted() bool {
	return d.Resolution != nil && d.RaiserAccepted && d.AccusedAccepted
}

func (d *Dispute) Clone() *Dispute {
	c := *d
	c.AssignedAdminID = cloneString(d.AssignedAdminID)
	c.Resolution = cloneString(d.Resolution)
	c.ResolvedAt = cloneTime(d.ResolvedAt)
	c.ClosedAt = cloneTime(d.ClosedAt)
	return &c
}

// SLAConfig holds the thresholds, in hours, for one priority.
type SLAConfig struct {
	MaxHours         float64 `yaml:"max_hours" json:"maxHours"`
	EscalationHours  float64 `yaml:"escalation_hours" json:"escalationHours"`
	AutoResolveHours float64 `yaml:"auto_resolve_hours" json:"autoResolveHours"`
}

// DisputeView is a dispute with its derived, never persisted, SLA fields.
type DisputeView struct {
	*Dispute
	SLAStatus             SLAStatus `json:"slaStatus"`
	ElapsedHours          float64   `json:"elapsedHours"`
	TimeToResolutionHours float64   `json:"timeToResolutionHours"`
	HoursSinceUpdate      float64   `json:"hoursSinceUpdate"`
	AutoResolveDue        bool      `json:"autoResolveDue"`
}
