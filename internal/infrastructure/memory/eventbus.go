package memory

import (
	"context"
	"log/slog"
	"sync"

	"github.com/LavaJover/shvark-escrow-service/internal/domain"
)

// EventBus is a typed in-process pub/sub. Slow subscribers lose events rather than block
// the publisher.
type EventBus struct {
	mu     sync.RWMutex
	subs   map[int]subscription
	nextID int
	logger *slog.Logger
}

type subscription struct {
	ch    chan domain.Event
	types map[domain.EventType]struct{}
}

func NewEventBus(logger *slog.Logger) *EventBus {
	if logger == nil {
		logger = slog.Default()
	}
	return &EventBus{subs: make(map[int]subscription), logger: logger}
}

// Subscribe returns a channel receiving events of the given types, or of every type when
// none are given. cancel closes the channel.
func (b *EventBus) Subscribe(buffer int, types ...domain.EventType) (<-chan domain.Event, func()) {
	sub := subscription{ch: make(chan domain.Event, buffer)}
	if len(types) > 0 {
		sub.types = make(map[domain.EventType]struct{}, len(types))
		for _, t := range types {
			sub.types[t] = struct{}{}
		}
	}

	b.mu.Lock()
	id := b.nextID
	b.nextID++
	b.subs[id] = sub
	b.mu.Unlock()

	var once sync.Once
	return sub.ch, func() {
		once.Do(func() {
			b.mu.Lock()
			delete(b.subs, id)
			b.mu.Unlock()
			close(sub.ch)
		})
	}
}

func (b *EventBus) Emit(ctx context.Context, event domain.Event) error {
	b.mu.RLock()
	defer b.mu.RUnlock()
	for _, sub := range b.subs {
		if sub.types != nil {
			if _, ok := sub.types[event.Type]; !ok {
				continue
			}
		}
		select {
		case sub.ch <- event:
		default:
			b.logger.Warn("event bus subscriber is full, dropping event",
				"type", event.Type, "entity_id", event.EntityID)
		}
	}
	return nil
}

// Fanout emits to every gateway, returning the first error after trying all of them.
type Fanout []domain.EventGateway

func (f Fanout) Emit(ctx context.Context, event domain.Event) error {
	var first error
	for _, g := range f {
		if err := g.Emit(ctx, event); err != nil && first == nil {
			first = err
		}
	}
	return first
}
