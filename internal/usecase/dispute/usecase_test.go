package dispute

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/LavaJover/shvark-escrow-service/internal/domain"
	"github.com/LavaJover/shvark-escrow-service/internal/infrastructure/memory"
	"github.com/LavaJover/shvark-escrow-service/internal/testutil"
	"github.com/LavaJover/shvark-escrow-service/internal/usecase/admin"
	disputedto "github.com/LavaJover/shvark-escrow-service/internal/usecase/dto/dispute"
	"github.com/LavaJover/shvark-escrow-service/internal/usecase/keylock"
	"github.com/LavaJover/shvark-escrow-service/internal/usecase/publish"
	"github.com/LavaJover/shvark-escrow-service/internal/usecase/sla"
)

type fixture struct {
	uc      *DefaultDisputeUsecase
	repo    *memory.Repository
	admins  *memory.AdminDirectory
	gateway *testutil.Gateway
	clock   *testutil.Clock
}

func newFixture(t *testing.T, admins ...domain.AdminWorkload) *fixture {
	t.Helper()
	repo := memory.NewRepository()
	dir := memory.NewAdminDirectory(admins...)
	gateway := &testutil.Gateway{}
	clock := testutil.NewClock(testutil.T0)
	uc := NewDefaultDisputeUsecase(
		repo,
		keylock.New(),
		admin.NewBalancer(dir, nil, nil),
		sla.NewCalculator(nil),
		publish.New(gateway, nil),
		clock,
		nil,
	)
	return &fixture{uc: uc, repo: repo, admins: dir, gateway: gateway, clock: clock}
}

func (f *fixture) seed(t *testing.T, status domain.TransactionStatus) *domain.Transaction {
	t.Helper()
	tx := testutil.JoinedTransaction("tx-1", status, true)
	if err := f.repo.SaveTransaction(context.Background(), tx); err != nil {
		t.Fatalf("seed: %v", err)
	}
	return tx
}

func (f *fixture) raise(t *testing.T) *domain.DisputeView {
	t.Helper()
	v, err := f.uc.RaiseDispute(context.Background(), &disputedto.RaiseDisputeInput{
		TransactionID: "tx-1",
		RaiserID:      "bob",
		DisputeType:   "item_not_received",
		Reason:        "nothing arrived",
	})
	if err != nil {
		t.Fatalf("raise: %v", err)
	}
	return v
}

func (f *fixture) load(t *testing.T, id string) domain.AdminWorkload {
	t.Helper()
	list, _ := f.admins.ListAdmins(context.Background())
	for _, a := range list {
		if a.AdminID == id {
			return a
		}
	}
	t.Fatalf("admin %s not found", id)
	return domain.AdminWorkload{}
}

func TestRaiseDisputeFreezesTransaction(t *testing.T) {
	f := newFixture(t)
	f.seed(t, domain.StatusWaitingForShipment)
	v := f.raise(t)

	if v.Status != domain.DisputeOpen || v.Priority != domain.PriorityMedium || v.AccusedID != "alice" {
		t.Fatalf("dispute %+v", v.Dispute)
	}
	if v.SLAStatus != domain.SLAOnTime {
		t.Fatalf("sla %s", v.SLAStatus)
	}
	tx, _ := f.repo.GetTransaction(context.Background(), "tx-1")
	if tx.Status != domain.StatusDisputed || tx.StatusBeforeDispute != domain.StatusWaitingForShipment || tx.DisputedAt == nil {
		t.Fatalf("transaction %s before=%s", tx.Status, tx.StatusBeforeDispute)
	}
	if len(f.gateway.Events(domain.EventDisputeUpdated)) != 1 || len(f.gateway.Events(domain.EventTransactionUpdated)) != 1 {
		t.Fatal("expected one dispute.updated and one transaction.updated event")
	}

	_, err := f.uc.RaiseDispute(context.Background(), &disputedto.RaiseDisputeInput{TransactionID: "tx-1", RaiserID: "alice", Reason: "again"})
	if !domain.IsTransitionReason(err, domain.ReasonWrongStatus) {
		t.Fatalf("second raise: got %v", err)
	}
}

func TestRaiseDisputeRequiresMembership(t *testing.T) {
	f := newFixture(t)
	f.seed(t, domain.StatusActive)
	_, err := f.uc.RaiseDispute(context.Background(), &disputedto.RaiseDisputeInput{TransactionID: "tx-1", RaiserID: "mallory", Reason: "x"})
	if !domain.IsTransitionReason(err, domain.ReasonWrongRole) {
		t.Fatalf("got %v, want wrong_role", err)
	}
	_, err = f.uc.RaiseDispute(context.Background(), &disputedto.RaiseDisputeInput{TransactionID: "tx-1", RaiserID: "bob"})
	if !errors.Is(err, domain.ErrInvalidInput) {
		t.Fatalf("empty reason: got %v", err)
	}
}

func TestRaiseDisputeOnCompletedTransaction(t *testing.T) {
	f := newFixture(t)
	f.seed(t, domain.StatusCompleted)
	_, err := f.uc.RaiseDispute(context.Background(), &disputedto.RaiseDisputeInput{TransactionID: "tx-1", RaiserID: "bob", Reason: "late"})
	if !domain.IsTransitionReason(err, domain.ReasonWrongStatus) {
		t.Fatalf("got %v, want wrong_status", err)
	}
}

func TestResolutionFlowRefunds(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, domain.AdminWorkload{AdminID: "admin-1", MaxLoad: 2, Availability: domain.AvailabilityOnline})
	f.seed(t, domain.StatusWaitingForShipment)
	v := f.raise(t)

	if _, err := f.uc.AcceptResolution(ctx, v.ID, "bob"); !errors.Is(err, domain.ErrNoResolution) {
		t.Fatalf("accept before proposal: got %v", err)
	}

	assigned, err := f.uc.AssignAdmin(ctx, v.ID)
	if err != nil || assigned.AssignedAdminID == nil {
		t.Fatalf("assign: %v", err)
	}
	if f.load(t, "admin-1").CurrentLoad != 1 {
		t.Fatal("assignment did not take capacity")
	}

	proposed, err := f.uc.ProposeResolution(ctx, &disputedto.ProposeResolutionInput{
		DisputeID: v.ID, AdminID: "admin-1", Resolution: "refund the buyer", Outcome: domain.OutcomeRefund,
	})
	if err != nil || proposed.Status != domain.DisputeInReview {
		t.Fatalf("propose: %v status=%v", err, proposed)
	}

	if _, err := f.uc.AcceptResolution(ctx, v.ID, "mallory"); !errors.Is(err, domain.ErrNotDisputeParticipant) {
		t.Fatalf("stranger accept: got %v", err)
	}
	f.uc.AcceptResolution(ctx, v.ID, "bob")
	accepted, err := f.uc.AcceptResolution(ctx, v.ID, "alice")
	if err != nil || !accepted.ResolutionAccepted() {
		t.Fatalf("accept: %v", err)
	}

	f.clock.Advance(3 * time.Hour)
	resolved, err := f.uc.ChangeStatus(ctx, &disputedto.ChangeStatusInput{DisputeID: v.ID, ActorID: SystemActor, Status: domain.DisputeResolved})
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if resolved.ResolvedAt == nil || resolved.TimeToResolutionHours != 3 {
		t.Fatalf("resolvedAt=%v ttr=%v", resolved.ResolvedAt, resolved.TimeToResolutionHours)
	}
	tx, _ := f.repo.GetTransaction(ctx, "tx-1")
	if tx.Status != domain.StatusCancelled || tx.CancelledAt == nil {
		t.Fatalf("transaction %s after refund", tx.Status)
	}
	if f.load(t, "admin-1").CurrentLoad != 0 {
		t.Fatal("resolution did not release the admin")
	}

	closed, err := f.uc.ChangeStatus(ctx, &disputedto.ChangeStatusInput{DisputeID: v.ID, ActorID: SystemActor, Status: domain.DisputeClosed})
	if err != nil || closed.ClosedAt == nil {
		t.Fatalf("close: %v", err)
	}
	if f.load(t, "admin-1").CurrentLoad != 0 {
		t.Fatal("closing released the admin twice")
	}
}

func TestClosingWithoutResolutionResumesTransaction(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	f.seed(t, domain.StatusWaitingForPayment)
	v := f.raise(t)

	if _, err := f.uc.ChangeStatus(ctx, &disputedto.ChangeStatusInput{DisputeID: v.ID, Status: domain.DisputeClosed}); err != nil {
		t.Fatalf("close: %v", err)
	}
	tx, _ := f.repo.GetTransaction(ctx, "tx-1")
	if tx.Status != domain.StatusWaitingForPayment || tx.StatusBeforeDispute != "" {
		t.Fatalf("transaction %s before=%s", tx.Status, tx.StatusBeforeDispute)
	}
}

func TestChangeStatusFollowsGraph(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	f.seed(t, domain.StatusActive)
	v := f.raise(t)

	if _, err := f.uc.ChangeStatus(ctx, &disputedto.ChangeStatusInput{DisputeID: v.ID, Status: domain.DisputeOpen}); !errors.Is(err, domain.ErrInvalidDisputeTransition) {
		t.Fatalf("OPEN->OPEN: got %v", err)
	}
	if _, err := f.uc.ChangeStatus(ctx, &disputedto.ChangeStatusInput{DisputeID: v.ID, Status: domain.DisputeResolved, From: domain.DisputeInReview}); !errors.Is(err, domain.ErrInvalidDisputeTransition) {
		t.Fatalf("stale from: got %v", err)
	}
	if _, err := f.uc.ChangeStatus(ctx, &disputedto.ChangeStatusInput{DisputeID: v.ID, Status: domain.DisputeInReview}); err != nil {
		t.Fatalf("OPEN->IN_REVIEW: %v", err)
	}
	if _, err := f.uc.ChangeStatus(ctx, &disputedto.ChangeStatusInput{DisputeID: v.ID, Status: domain.DisputeOpen}); !errors.Is(err, domain.ErrInvalidDisputeTransition) {
		t.Fatalf("IN_REVIEW->OPEN: got %v", err)
	}
}

func TestAssignAdminWithoutCapacity(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, domain.AdminWorkload{AdminID: "admin-1", MaxLoad: 1, CurrentLoad: 1, Availability: domain.AvailabilityOnline})
	f.seed(t, domain.StatusActive)
	v := f.raise(t)

	if _, err := f.uc.AssignAdmin(ctx, v.ID); !errors.Is(err, domain.ErrNoAdminAvailable) {
		t.Fatalf("got %v, want ErrNoAdminAvailable", err)
	}
	d, _ := f.repo.GetDispute(ctx, v.ID)
	if d.AssignedAdminID != nil || d.Version != 1 {
		t.Fatal("failed assignment changed the dispute")
	}
}

func TestSetPriority(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	f.seed(t, domain.StatusActive)
	v := f.raise(t)

	got, err := f.uc.SetPriority(ctx, v.ID, SystemActor, domain.PriorityUrgent)
	if err != nil || got.Priority != domain.PriorityUrgent || got.Version != 2 {
		t.Fatalf("set: %v %+v", err, got)
	}
	got, _ = f.uc.SetPriority(ctx, v.ID, SystemActor, domain.PriorityUrgent)
	if got.Version != 2 {
		t.Fatal("unchanged priority bumped the version")
	}
	if _, err := f.uc.SetPriority(ctx, v.ID, SystemActor, "CRITICAL"); !errors.Is(err, domain.ErrInvalidInput) {
		t.Fatalf("invalid priority: got %v", err)
	}
}

func TestGetDisputesByParticipantPages(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	for i, id := range []string{"d-1", "d-2", "d-3"} {
		d := testutil.OpenDispute(id, "tx-"+id, domain.PriorityLow, testutil.T0.Add(time.Duration(i)*time.Hour))
		if err := f.repo.SaveDispute(ctx, d); err != nil {
			t.Fatalf("seed: %v", err)
		}
	}

	out, err := f.uc.GetDisputesByParticipant(ctx, &disputedto.GetParticipantDisputesInput{UserID: "alice", Page: 2, Limit: 2})
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(out.Disputes) != 1 || out.Disputes[0].ID != "d-3" {
		t.Fatalf("page 2: %+v", out.Disputes)
	}
	if out.Pagination.TotalPages != 2 || out.Pagination.TotalItems != 3 {
		t.Fatalf("pagination %+v", out.Pagination)
	}

	none, _ := f.uc.GetDisputesByParticipant(ctx, &disputedto.GetParticipantDisputesInput{UserID: "carol"})
	if len(none.Disputes) != 0 || none.Pagination.TotalPages != 0 {
		t.Fatalf("empty listing %+v", none)
	}
}

// lockedGateway records how many keys were locked whenever an event went out.
type lockedGateway struct {
	testutil.Gateway
	locks *keylock.Locker
	held  []int
}

func (g *lockedGateway) Emit(ctx context.Context, event domain.Event) error {
	g.held = append(g.held, g.locks.Len())
	return g.Gateway.Emit(ctx, event)
}

func TestOperationsPublishAfterUnlock(t *testing.T) {
	ctx := context.Background()
	locks := keylock.New()
	gateway := &lockedGateway{locks: locks}
	repo := memory.NewRepository()
	dir := memory.NewAdminDirectory(domain.AdminWorkload{AdminID: "admin-1", MaxLoad: 1, Availability: domain.AvailabilityOnline})
	uc := NewDefaultDisputeUsecase(repo, locks, admin.NewBalancer(dir, nil, nil), nil, publish.New(gateway, nil), testutil.NewClock(testutil.T0), nil)

	if err := repo.SaveTransaction(ctx, testutil.JoinedTransaction("tx-1", domain.StatusWaitingForShipment, true)); err != nil {
		t.Fatal(err)
	}
	v, err := uc.RaiseDispute(ctx, &disputedto.RaiseDisputeInput{TransactionID: "tx-1", RaiserID: "bob", Reason: "late"})
	if err != nil {
		t.Fatalf("raise: %v", err)
	}
	if _, err := uc.AssignAdmin(ctx, v.ID); err != nil {
		t.Fatalf("assign: %v", err)
	}
	if _, err := uc.SetPriority(ctx, v.ID, SystemActor, domain.PriorityHigh); err != nil {
		t.Fatalf("priority: %v", err)
	}
	if _, err := uc.ProposeResolution(ctx, &disputedto.ProposeResolutionInput{
		DisputeID: v.ID, AdminID: "admin-1", Resolution: "ship it", Outcome: domain.OutcomeResume,
	}); err != nil {
		t.Fatalf("propose: %v", err)
	}
	if _, err := uc.AcceptResolution(ctx, v.ID, "bob"); err != nil {
		t.Fatalf("accept: %v", err)
	}
	if _, err := uc.ChangeStatus(ctx, &disputedto.ChangeStatusInput{DisputeID: v.ID, ActorID: SystemActor, Status: domain.DisputeResolved}); err != nil {
		t.Fatalf("resolve: %v", err)
	}

	if len(gateway.held) == 0 {
		t.Fatal("no events published")
	}
	for i, n := range gateway.held {
		if n != 0 {
			t.Fatalf("event %d published with %d keys locked", i, n)
		}
	}
}
