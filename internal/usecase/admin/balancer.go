package admin

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/LavaJover/shvark-escrow-service/internal/domain"
	"github.com/LavaJover/shvark-escrow-service/internal/infrastructure/metrics"
)

// Balancer hands disputes to admins with spare capacity. A successful Assign takes one
// unit of the admin's capacity; Release gives it back.
type Balancer struct {
	directory domain.AdminDirectory
	metrics   *metrics.EscrowMetrics
	logger    *slog.Logger
}

func NewBalancer(directory domain.AdminDirectory, escrowMetrics *metrics.EscrowMetrics, logger *slog.Logger) *Balancer {
	if logger == nil {
		logger = slog.Default()
	}
	return &Balancer{directory: directory, metrics: escrowMetrics, logger: logger}
}

// Candidates returns the admins eligible for a dispute of the given type, specialists
// first, each group in directory order.
func Candidates(admins []domain.AdminWorkload, disputeType string) []domain.AdminWorkload {
	var specialists, others []domain.AdminWorkload
	for _, a := range admins {
		if !a.HasCapacity() {
			continue
		}
		if disputeType != "" && a.HasSpecialty(disputeType) {
			specialists = append(specialists, a)
		} else {
			others = append(others, a)
		}
	}
	return append(specialists, others...)
}

// Assign reserves capacity on the best candidate and returns it, or nil when nobody is
// free. A nil result is not an error: the dispute stays unassigned until capacity frees.
func (b *Balancer) Assign(ctx context.Context, dispute *domain.Dispute) (*domain.AdminWorkload, error) {
	admins, err := b.directory.ListAdmins(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list admins: %w", err)
	}

	for _, candidate := range Candidates(admins, dispute.DisputeType) {
		err := b.directory.UpdateWorkload(ctx, candidate.AdminID, 1)
		if errors.Is(err, domain.ErrAdminAtCapacity) {
			// filled up since the listing
			continue
		}
		if err != nil {
			b.metrics.RecordAssignment("error")
			return nil, fmt.Errorf("failed to reserve admin %s: %w", candidate.AdminID, err)
		}
		candidate.CurrentLoad++
		b.metrics.RecordAssignment("assigned")
		b.logger.Info("admin assigned",
			"dispute_id", dispute.ID,
			"admin_id", candidate.AdminID,
			"load", candidate.CurrentLoad,
			"max_load", candidate.MaxLoad)
		return &candidate, nil
	}

	b.metrics.RecordAssignment("no_candidate")
	b.logger.Debug("no admin available", "dispute_id", dispute.ID, "dispute_type", dispute.DisputeType)
	return nil, nil
}

func (b *Balancer) Release(ctx context.Context, adminID string) error {
	if err := b.directory.UpdateWorkload(ctx, adminID, -1); err != nil {
		return fmt.Errorf("failed to release admin %s: %w", adminID, err)
	}
	return nil
}

// OnlineAdmins lists the admins currently ONLINE, regardless of load.
func (b *Balancer) OnlineAdmins(ctx context.Context) ([]domain.AdminWorkload, error) {
	admins, err := b.directory.ListAdmins(ctx)
	if err != nil {
		return nil, err
	}
	var out []domain.AdminWorkload
	for _, a := range admins {
		if a.Availability == domain.AvailabilityOnline {
			out = append(out, a)
		}
	}
	return out, nil
}
