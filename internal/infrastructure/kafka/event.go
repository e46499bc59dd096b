package kafka

import (
	"time"

	"github.com/LavaJover/shvark-escrow-service/internal/domain"
)

// EventEnvelope is the value of every message the gateway writes.
type EventEnvelope struct {
	Type       domain.EventType `json:"type"`
	EntityID   string           `json:"entityId"`
	OccurredAt time.Time        `json:"occurredAt"`
	Payload    any              `json:"payload"`
}

type Topics struct {
	Transaction string
	Dispute     string
	Timeline    string
	Task        string
}

func (t Topics) byType() map[domain.EventType]string {
	return map[domain.EventType]string{
		domain.EventTransactionUpdated: t.Transaction,
		domain.EventDisputeUpdated:     t.Dispute,
		domain.EventTimelineUpdate:     t.Timeline,
		domain.EventTaskCreated:        t.Task,
	}
}
