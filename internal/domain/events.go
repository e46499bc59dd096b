package domain

import (
	"context"
	"time"
)

type EventType string

const (
	EventTransactionUpdated EventType = "transaction.updated"
	EventDisputeUpdated     EventType = "dispute.updated"
	EventTimelineUpdate     EventType = "timeline.update"
	EventTaskCreated        EventType = "task.created"
)

type Event struct {
	Type       EventType `json:"type"`
	EntityID   string    `json:"entityId"`
	Payload    any       `json:"payload"`
	OccurredAt time.Time `json:"occurredAt"`
}

// EventGateway hands domain events to delivery; retries are the gateway's concern.
type EventGateway interface {
	Emit(ctx context.Context, event Event) error
}

// Notifier is fire-and-forget from the caller's side.
type Notifier interface {
	Notify(ctx context.Context, userID, template string, metadata map[string]string) error
}

type TimelineEntry struct {
	EntityID   string            `json:"entityId"`
	EntityType string            `json:"entityType"`
	Kind       string            `json:"kind"`
	ActorID    string            `json:"actorId,omitempty"`
	From       string            `json:"from,omitempty"`
	To         string            `json:"to,omitempty"`
	Details    map[string]string `json:"details,omitempty"`
	At         time.Time         `json:"at"`
}

type Task struct {
	ID         string            `json:"id"`
	DisputeID  string            `json:"disputeId"`
	AssigneeID string            `json:"assigneeId,omitempty"`
	Title      string            `json:"title"`
	Details    map[string]string `json:"details,omitempty"`
	CreatedAt  time.Time         `json:"createdAt"`
}

type Clock interface {
	Now() time.Time
}

type SystemClock struct{}

func (SystemClock) Now() time.Time { return time.Now().UTC() }

type Timer interface {
	Stop() bool
}

// DelayScheduler runs f once after d, like time.AfterFunc.
type DelayScheduler interface {
	AfterFunc(d time.Duration, f func()) Timer
}

type SystemScheduler struct{}

func (SystemScheduler) AfterFunc(d time.Duration, f func()) Timer { return time.AfterFunc(d, f) }
