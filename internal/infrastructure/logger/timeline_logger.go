package logger

import (
	"context"
	"time"

	"github.com/LavaJover/shvark-escrow-service/internal/domain"
	"gorm.io/gorm"
)

// TimelineRecord is one persisted timeline entry.
type TimelineRecord struct {
	ID         uint   `gorm:"primaryKey"`
	EntityID   string `gorm:"index"`
	EntityType string
	Kind       string
	ActorID    string
	FromState  string
	ToState    string
	Details    map[string]string `gorm:"serializer:json;type:jsonb"`
	At         time.Time
}

func (TimelineRecord) TableName() string { return "timeline_entries" }

// PGTimelineLogger keeps an audit trail of timeline events. It is an event gateway that
// ignores every other event type.
type PGTimelineLogger struct {
	db *gorm.DB
}

func NewPGTimelineLogger(db *gorm.DB) *PGTimelineLogger {
	return &PGTimelineLogger{db: db}
}

func (l *PGTimelineLogger) Emit(ctx context.Context, event domain.Event) error {
	if event.Type != domain.EventTimelineUpdate {
		return nil
	}
	entry, ok := event.Payload.(domain.TimelineEntry)
	if !ok {
		return nil
	}
	return l.db.WithContext(ctx).Create(&TimelineRecord{
		EntityID:   entry.EntityID,
		EntityType: entry.EntityType,
		Kind:       entry.Kind,
		ActorID:    entry.ActorID,
		FromState:  entry.From,
		ToState:    entry.To,
		Details:    entry.Details,
		At:         entry.At,
	}).Error
}

// History returns the entries recorded for an entity, oldest first.
func (l *PGTimelineLogger) History(ctx context.Context, entityID string) ([]domain.TimelineEntry, error) {
	var records []TimelineRecord
	if err := l.db.WithContext(ctx).Where("entity_id = ?", entityID).Order("at ASC, id ASC").Find(&records).Error; err != nil {
		return nil, err
	}
	entries := make([]domain.TimelineEntry, 0, len(records))
	for _, r := range records {
		entries = append(entries, domain.TimelineEntry{
			EntityID:   r.EntityID,
			EntityType: r.EntityType,
			Kind:       r.Kind,
			ActorID:    r.ActorID,
			From:       r.FromState,
			To:         r.ToState,
			Details:    r.Details,
			At:         r.At,
		})
	}
	return entries, nil
}
