// Package publish turns state changes into gateway events. A failed emit is logged and
// never fails the operation that produced it.
package publish

import (
	"context"
	"log/slog"
	"time"

	"github.com/LavaJover/shvark-escrow-service/internal/domain"
)

type Publisher struct {
	gateway domain.EventGateway
	logger  *slog.Logger
}

func New(gateway domain.EventGateway, logger *slog.Logger) *Publisher {
	if logger == nil {
		logger = slog.Default()
	}
	return &Publisher{gateway: gateway, logger: logger}
}

func (p *Publisher) emit(ctx context.Context, event domain.Event) {
	if p == nil || p.gateway == nil {
		return
	}
	if err := p.gateway.Emit(ctx, event); err != nil {
		p.logger.Error("failed to publish event",
			"type", event.Type,
			"entity_id", event.EntityID,
			"error", err)
	}
}

// TransactionUpdated emits the full record; subscribers replace their copy with it.
func (p *Publisher) TransactionUpdated(ctx context.Context, tx *domain.Transaction, at time.Time) {
	p.emit(ctx, domain.Event{
		Type:       domain.EventTransactionUpdated,
		EntityID:   tx.ID,
		Payload:    tx.Clone(),
		OccurredAt: at,
	})
}

func (p *Publisher) DisputeUpdated(ctx context.Context, view domain.DisputeView, at time.Time) {
	p.emit(ctx, domain.Event{
		Type:       domain.EventDisputeUpdated,
		EntityID:   view.ID,
		Payload:    view,
		OccurredAt: at,
	})
}

func (p *Publisher) Timeline(ctx context.Context, entry domain.TimelineEntry) {
	p.emit(ctx, domain.Event{
		Type:       domain.EventTimelineUpdate,
		EntityID:   entry.EntityID,
		Payload:    entry,
		OccurredAt: entry.At,
	})
}

func (p *Publisher) TaskCreated(ctx context.Context, task domain.Task) {
	p.emit(ctx, domain.Event{
		Type:       domain.EventTaskCreated,
		EntityID:   task.DisputeID,
		Payload:    task,
		OccurredAt: task.CreatedAt,
	})
}
