package dispute

import (
	"context"
	"log/slog"

	"github.com/LavaJover/shvark-escrow-service/internal/domain"
	"github.com/LavaJover/shvark-escrow-service/internal/usecase/admin"
	disputedto "github.com/LavaJover/shvark-escrow-service/internal/usecase/dto/dispute"
	"github.com/LavaJover/shvark-escrow-service/internal/usecase/keylock"
	"github.com/LavaJover/shvark-escrow-service/internal/usecase/publish"
	"github.com/LavaJover/shvark-escrow-service/internal/usecase/sla"
)

// SystemActor marks changes made by the workflow engine rather than a person.
const SystemActor = "system"

type DisputeUsecase interface {
	RaiseDispute(ctx context.Context, input *disputedto.RaiseDisputeInput) (*domain.DisputeView, error)

	ChangeStatus(ctx context.Context, input *disputedto.ChangeStatusInput) (*domain.DisputeView, error)
	SetPriority(ctx context.Context, disputeID, actorID string, priority domain.DisputePriority) (*domain.DisputeView, error)
	AssignAdmin(ctx context.Context, disputeID string) (*domain.DisputeView, error)
	ProposeResolution(ctx context.Context, input *disputedto.ProposeResolutionInput) (*domain.DisputeView, error)
	AcceptResolution(ctx context.Context, disputeID, userID string) (*domain.DisputeView, error)

	GetDispute(ctx context.Context, disputeID string) (*domain.DisputeView, error)
	GetDisputesByParticipant(ctx context.Context, input *disputedto.GetParticipantDisputesInput) (*disputedto.GetParticipantDisputesOutput, error)
}

type DefaultDisputeUsecase struct {
	repo      domain.Repository
	locks     *keylock.Locker
	balancer  *admin.Balancer
	sla       *sla.Calculator
	publisher *publish.Publisher
	clock     domain.Clock
	logger    *slog.Logger
}

// NewDefaultDisputeUsecase shares locks with the transaction usecase so a dispute and a
// participant transition never interleave on the same transaction.
func NewDefaultDisputeUsecase(
	repo domain.Repository,
	locks *keylock.Locker,
	balancer *admin.Balancer,
	calculator *sla.Calculator,
	publisher *publish.Publisher,
	clock domain.Clock,
	logger *slog.Logger,
) *DefaultDisputeUsecase {
	if clock == nil {
		clock = domain.SystemClock{}
	}
	if logger == nil {
		logger = slog.Default()
	}
	if calculator == nil {
		calculator = sla.NewCalculator(nil)
	}
	return &DefaultDisputeUsecase{
		repo:      repo,
		locks:     locks,
		balancer:  balancer,
		sla:       calculator,
		publisher: publisher,
		clock:     clock,
		logger:    logger,
	}
}

func lockKey(disputeID string) string {
	return "dispute:" + disputeID
}

func (disputeUc *DefaultDisputeUsecase) view(d *domain.Dispute) *domain.DisputeView {
	v := disputeUc.sla.View(d.Clone(), disputeUc.clock.Now())
	return &v
}
