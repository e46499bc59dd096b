package testutil

import (
	"context"
	"sync"

	"github.com/LavaJover/shvark-escrow-service/internal/domain"
)

// Gateway records emitted events.
type Gateway struct {
	mu     sync.Mutex
	events []domain.Event
}

func (g *Gateway) Emit(ctx context.Context, event domain.Event) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.events = append(g.events, event)
	return nil
}

func (g *Gateway) Events(types ...domain.EventType) []domain.Event {
	g.mu.Lock()
	defer g.mu.Unlock()
	var out []domain.Event
	for _, e := range g.events {
		if len(types) == 0 || containsType(types, e.Type) {
			out = append(out, e)
		}
	}
	return out
}

// TimelineKinds returns the Kind of every timeline entry emitted for entityID.
func (g *Gateway) TimelineKinds(entityID string) []string {
	var out []string
	for _, e := range g.Events(domain.EventTimelineUpdate) {
		if entry, ok := e.Payload.(domain.TimelineEntry); ok && entry.EntityID == entityID {
			out = append(out, entry.Kind)
		}
	}
	return out
}

func containsType(types []domain.EventType, t domain.EventType) bool {
	for _, v := range types {
		if v == t {
			return true
		}
	}
	return false
}

type Notification struct {
	UserID   string
	Template string
	Metadata map[string]string
}

// Notifier records notifications. Err, when set, is returned from every call.
type Notifier struct {
	mu   sync.Mutex
	sent []Notification
	Err  error
}

func (n *Notifier) Notify(ctx context.Context, userID, template string, metadata map[string]string) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.Err != nil {
		return n.Err
	}
	n.sent = append(n.sent, Notification{UserID: userID, Template: template, Metadata: metadata})
	return nil
}

func (n *Notifier) Sent() []Notification {
	n.mu.Lock()
	defer n.mu.Unlock()
	return append([]Notification(nil), n.sent...)
}

// SentTo returns the templates delivered to userID.
func (n *Notifier) SentTo(userID string) []string {
	var out []string
	for _, s := range n.Sent() {
		if s.UserID == userID {
			out = append(out, s.Template)
		}
	}
	return out
}
