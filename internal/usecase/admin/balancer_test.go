package admin

import (
	"context"
	"errors"
	"testing"

	"github.com/LavaJover/shvark-escrow-service/internal/domain"
	"github.com/LavaJover/shvark-escrow-service/internal/infrastructure/memory"
)

func TestCandidatesFilterAndRank(t *testing.T) {
	admins := []domain.AdminWorkload{
		{AdminID: "away", MaxLoad: 5, Availability: domain.AvailabilityAway, Specialties: []string{"fraud"}},
		{AdminID: "full", CurrentLoad: 3, MaxLoad: 3, Availability: domain.AvailabilityOnline, Specialties: []string{"fraud"}},
		{AdminID: "generalist", MaxLoad: 3, Availability: domain.AvailabilityOnline},
		{AdminID: "specialist", CurrentLoad: 2, MaxLoad: 3, Availability: domain.AvailabilityOnline, Specialties: []string{"fraud"}},
		{AdminID: "offline", MaxLoad: 3, Availability: domain.AvailabilityOffline},
	}

	got := Candidates(admins, "fraud")
	if len(got) != 2 || got[0].AdminID != "specialist" || got[1].AdminID != "generalist" {
		t.Fatalf("candidates %+v", got)
	}

	got = Candidates(admins, "")
	if len(got) != 2 || got[0].AdminID != "generalist" {
		t.Fatalf("untyped candidates %+v", got)
	}
}

func TestAssignReservesCapacity(t *testing.T) {
	ctx := context.Background()
	dir := memory.NewAdminDirectory(
		domain.AdminWorkload{AdminID: "a1", MaxLoad: 1, Availability: domain.AvailabilityOnline},
	)
	b := NewBalancer(dir, nil, nil)
	d := &domain.Dispute{ID: "d-1"}

	got, err := b.Assign(ctx, d)
	if err != nil || got == nil || got.AdminID != "a1" || got.CurrentLoad != 1 {
		t.Fatalf("first assign: %+v %v", got, err)
	}

	got, err = b.Assign(ctx, d)
	if err != nil || got != nil {
		t.Fatalf("second assign should find nobody: %+v %v", got, err)
	}

	if err := b.Release(ctx, "a1"); err != nil {
		t.Fatalf("release: %v", err)
	}
	if got, _ := b.Assign(ctx, d); got == nil {
		t.Fatal("released capacity was not reusable")
	}
}

type racingDirectory struct {
	*memory.AdminDirectory
	full string
}

// UpdateWorkload simulates another instance filling an admin between list and update.
func (r *racingDirectory) UpdateWorkload(ctx context.Context, adminID string, delta int) error {
	if adminID == r.full && delta > 0 {
		return domain.ErrAdminAtCapacity
	}
	return r.AdminDirectory.UpdateWorkload(ctx, adminID, delta)
}

func TestAssignSkipsAdminFilledConcurrently(t *testing.T) {
	dir := &racingDirectory{
		AdminDirectory: memory.NewAdminDirectory(
			domain.AdminWorkload{AdminID: "a1", MaxLoad: 2, Availability: domain.AvailabilityOnline},
			domain.AdminWorkload{AdminID: "a2", MaxLoad: 2, Availability: domain.AvailabilityOnline},
		),
		full: "a1",
	}
	got, err := NewBalancer(dir, nil, nil).Assign(context.Background(), &domain.Dispute{ID: "d"})
	if err != nil || got == nil || got.AdminID != "a2" {
		t.Fatalf("got %+v %v, want a2", got, err)
	}
}

type brokenDirectory struct{}

func (brokenDirectory) ListAdmins(context.Context) ([]domain.AdminWorkload, error) {
	return nil, domain.ErrRepositoryUnavailable
}

func (brokenDirectory) UpdateWorkload(context.Context, string, int) error { return nil }

func TestAssignPropagatesDirectoryFailure(t *testing.T) {
	_, err := NewBalancer(brokenDirectory{}, nil, nil).Assign(context.Background(), &domain.Dispute{ID: "d"})
	if !errors.Is(err, domain.ErrRepositoryUnavailable) {
		t.Fatalf("got %v", err)
	}
}
