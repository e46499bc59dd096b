package memory

import (
	"context"
	"fmt"
	"sync"

	"github.com/LavaJover/shvark-escrow-service/internal/domain"
)

// AdminDirectory keeps admins in registration order.
type AdminDirectory struct {
	mu     sync.Mutex
	order  []string
	admins map[string]*domain.AdminWorkload
}

func NewAdminDirectory(admins ...domain.AdminWorkload) *AdminDirectory {
	d := &AdminDirectory{admins: make(map[string]*domain.AdminWorkload)}
	for _, a := range admins {
		_ = d.Upsert(context.Background(), a)
	}
	return d
}

func (d *AdminDirectory) Upsert(ctx context.Context, a domain.AdminWorkload) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if _, ok := d.admins[a.AdminID]; !ok {
		d.order = append(d.order, a.AdminID)
	}
	a.Specialties = append([]string(nil), a.Specialties...)
	d.admins[a.AdminID] = &a
	return nil
}

func (d *AdminDirectory) ListAdmins(ctx context.Context) ([]domain.AdminWorkload, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	out := make([]domain.AdminWorkload, 0, len(d.order))
	for _, id := range d.order {
		a := *d.admins[id]
		a.Specialties = append([]string(nil), a.Specialties...)
		out = append(out, a)
	}
	return out, nil
}

func (d *AdminDirectory) UpdateWorkload(ctx context.Context, adminID string, delta int) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	a, ok := d.admins[adminID]
	if !ok {
		return fmt.Errorf("%w: %s", domain.ErrAdminNotFound, adminID)
	}
	next := a.CurrentLoad + delta
	if next < 0 || next > a.MaxLoad {
		return fmt.Errorf("%w: %s load %d/%d", domain.ErrAdminAtCapacity, adminID, a.CurrentLoad, a.MaxLoad)
	}
	a.CurrentLoad = next
	return nil
}
