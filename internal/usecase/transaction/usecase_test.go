package transaction

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/LavaJover/shvark-escrow-service/internal/domain"
	"github.com/LavaJover/shvark-escrow-service/internal/infrastructure/memory"
	"github.com/LavaJover/shvark-escrow-service/internal/testutil"
	transactiondto "github.com/LavaJover/shvark-escrow-service/internal/usecase/dto/transaction"
	"github.com/LavaJover/shvark-escrow-service/internal/usecase/keylock"
	"github.com/LavaJover/shvark-escrow-service/internal/usecase/publish"
	"github.com/shopspring/decimal"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

type fixture struct {
	uc      *DefaultTransactionUsecase
	repo    *memory.Repository
	gateway *testutil.Gateway
	clock   *testutil.Clock
}

func newFixture() *fixture {
	repo := memory.NewRepository()
	gateway := &testutil.Gateway{}
	clock := testutil.NewClock(testutil.T0)
	uc := NewDefaultTransactionUsecase(
		repo,
		keylock.New(),
		publish.New(gateway, nil),
		clock,
		FeePolicy{Percent: decimal.NewFromFloat(2.5), MinFee: decimal.NewFromInt(1)},
		nil,
		nil,
	)
	return &fixture{uc: uc, repo: repo, gateway: gateway, clock: clock}
}

func (f *fixture) create(t *testing.T, role domain.Role, courier bool) *domain.Transaction {
	t.Helper()
	tx, err := f.uc.CreateTransaction(context.Background(), &transactiondto.CreateTransactionInput{
		CreatorID:   "alice",
		CreatorRole: role,
		Price:       decimal.NewFromInt(200),
		Currency:    "usd",
		UseCourier:  courier,
	})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	return tx
}

func (f *fixture) do(t *testing.T, txID, actor string, action domain.TransactionAction) *domain.Transaction {
	t.Helper()
	tx, err := f.uc.Transition(context.Background(), &transactiondto.TransitionInput{
		TransactionID: txID, ActorID: actor, Action: action,
	})
	if err != nil {
		t.Fatalf("%s by %s: %v", action, actor, err)
	}
	return tx
}

func (f *fixture) try(txID, actor string, action domain.TransactionAction) error {
	_, err := f.uc.Transition(context.Background(), &transactiondto.TransitionInput{
		TransactionID: txID, ActorID: actor, Action: action,
	})
	return err
}

func TestCreateComputesFee(t *testing.T) {
	tests := []struct {
		name  string
		price string
		fee   string
		total string
	}{
		{"percent", "200", "5", "205"},
		{"min fee", "10", "1", "11"},
		{"rounded", "33.33", "0.83", "34.16"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture()
			tx, err := f.uc.CreateTransaction(context.Background(), &transactiondto.CreateTransactionInput{
				CreatorID:   "alice",
				CreatorRole: domain.RoleSeller,
				Price:       decimal.RequireFromString(tt.price),
				Currency:    "eur",
			})
			if err != nil {
				t.Fatalf("create: %v", err)
			}
			if !tx.Fee.Equal(decimal.RequireFromString(tt.fee)) || !tx.Total.Equal(decimal.RequireFromString(tt.total)) {
				t.Fatalf("fee=%s total=%s, want %s/%s", tx.Fee, tx.Total, tt.fee, tt.total)
			}
			if tx.Status != domain.StatusPending || tx.Version != 1 || tx.Currency != "EUR" {
				t.Fatalf("unexpected record %+v", tx)
			}
		})
	}
}

func TestCreateRejectsInvalidInput(t *testing.T) {
	f := newFixture()
	inputs := []*transactiondto.CreateTransactionInput{
		{CreatorRole: domain.RoleBuyer, Price: decimal.NewFromInt(1), Currency: "USD"},
		{CreatorID: "alice", CreatorRole: "BROKER", Price: decimal.NewFromInt(1), Currency: "USD"},
		{CreatorID: "alice", CreatorRole: domain.RoleBuyer, Price: decimal.Zero, Currency: "USD"},
		{CreatorID: "alice", CreatorRole: domain.RoleBuyer, Price: decimal.NewFromInt(1)},
	}
	for i, in := range inputs {
		if _, err := f.uc.CreateTransaction(context.Background(), in); !errors.Is(err, domain.ErrInvalidInput) {
			t.Errorf("input %d: got %v, want ErrInvalidInput", i, err)
		}
	}
}

func TestCourierScenario(t *testing.T) {
	f := newFixture()
	tx := f.create(t, domain.RoleSeller, true)

	f.do(t, tx.ID, "bob", domain.ActionJoin)
	f.do(t, tx.ID, "alice", domain.ActionBegin)

	f.clock.Advance(time.Hour)
	got := f.do(t, tx.ID, "bob", domain.ActionProvideDeliveryDetails)
	if got.Status != domain.StatusWaitingForPayment {
		t.Fatalf("after delivery details: %s", got.Status)
	}

	f.clock.Advance(time.Hour)
	got = f.do(t, tx.ID, "bob", domain.ActionMakePayment)
	if got.Status != domain.StatusWaitingForShipment {
		t.Fatalf("after payment: %s", got.Status)
	}
	if got.PaidAt == nil || !got.PaidAt.Equal(testutil.T0.Add(2*time.Hour)) {
		t.Fatalf("paidAt %v", got.PaidAt)
	}

	f.clock.Advance(24 * time.Hour)
	got = f.do(t, tx.ID, "alice", domain.ActionConfirmShipment)
	if got.Status != domain.StatusWaitingForBuyerConfirmation || got.ShippedAt == nil {
		t.Fatalf("after shipment: %s shippedAt=%v", got.Status, got.ShippedAt)
	}

	got = f.do(t, tx.ID, "bob", domain.ActionConfirmReceipt)
	if got.Status != domain.StatusCompleted || got.CompletedAt == nil {
		t.Fatalf("after receipt: %s", got.Status)
	}
	if got.Version != 7 {
		t.Fatalf("version %d, want 7", got.Version)
	}

	updates := f.gateway.Events(domain.EventTransactionUpdated)
	if len(updates) != 7 {
		t.Fatalf("got %d transaction.updated events, want 7", len(updates))
	}
	last := updates[len(updates)-1].Payload.(*domain.Transaction)
	if last.Status != domain.StatusCompleted {
		t.Fatalf("last event carries %s", last.Status)
	}
}

func TestPickupSkipsDeliverySteps(t *testing.T) {
	f := newFixture()
	tx := f.create(t, domain.RoleBuyer, false)
	f.do(t, tx.ID, "bob", domain.ActionJoin)

	got := f.do(t, tx.ID, "bob", domain.ActionBegin)
	if got.Status != domain.StatusWaitingForPayment {
		t.Fatalf("after begin: %s", got.Status)
	}
	got = f.do(t, tx.ID, "alice", domain.ActionMakePayment)
	if got.Status != domain.StatusWaitingForBuyerConfirmation {
		t.Fatalf("after payment: %s", got.Status)
	}
	if err := f.try(tx.ID, "bob", domain.ActionConfirmShipment); !domain.IsTransitionReason(err, domain.ReasonWrongStatus) {
		t.Fatalf("shipment on pickup: got %v, want wrong_status", err)
	}
}

func TestRoleGating(t *testing.T) {
	f := newFixture()
	tx := f.create(t, domain.RoleSeller, true)
	f.do(t, tx.ID, "bob", domain.ActionJoin)
	f.do(t, tx.ID, "bob", domain.ActionBegin)

	cases := []struct {
		actor  string
		action domain.TransactionAction
	}{
		{"alice", domain.ActionProvideDeliveryDetails},
		{"alice", domain.ActionMakePayment},
		{"bob", domain.ActionConfirmShipment},
		{"alice", domain.ActionConfirmReceipt},
		{"mallory", domain.ActionCancel},
		{"mallory", domain.ActionBegin},
	}
	for _, c := range cases {
		t.Run(fmt.Sprintf("%s_%s", c.actor, c.action), func(t *testing.T) {
			before, _ := f.repo.GetTransaction(context.Background(), tx.ID)
			err := f.try(tx.ID, c.actor, c.action)
			if !domain.IsTransitionReason(err, domain.ReasonWrongRole) {
				t.Fatalf("got %v, want wrong_role", err)
			}
			after, _ := f.repo.GetTransaction(context.Background(), tx.ID)
			if after.Version != before.Version || after.Status != before.Status {
				t.Fatal("rejected transition mutated the record")
			}
		})
	}
}

func TestWrongStatus(t *testing.T) {
	f := newFixture()
	tx := f.create(t, domain.RoleSeller, true)
	f.do(t, tx.ID, "bob", domain.ActionJoin)

	if err := f.try(tx.ID, "bob", domain.ActionMakePayment); !domain.IsTransitionReason(err, domain.ReasonWrongStatus) {
		t.Fatalf("payment before begin: got %v", err)
	}
	f.do(t, tx.ID, "alice", domain.ActionBegin)
	f.do(t, tx.ID, "bob", domain.ActionProvideDeliveryDetails)
	f.do(t, tx.ID, "bob", domain.ActionMakePayment)
	if err := f.try(tx.ID, "alice", domain.ActionCancel); !domain.IsTransitionReason(err, domain.ReasonWrongStatus) {
		t.Fatalf("cancel after payment: got %v", err)
	}
}

func TestCancelBeforePayment(t *testing.T) {
	f := newFixture()
	tx := f.create(t, domain.RoleSeller, false)
	got := f.do(t, tx.ID, "alice", domain.ActionCancel)
	if got.Status != domain.StatusCancelled || got.CancelledAt == nil {
		t.Fatalf("status %s", got.Status)
	}
	if err := f.try(tx.ID, "bob", domain.ActionJoin); !domain.IsTransitionReason(err, domain.ReasonWrongStatus) {
		t.Fatalf("join cancelled: got %v", err)
	}
}

func TestJoinRules(t *testing.T) {
	f := newFixture()
	tx := f.create(t, domain.RoleSeller, false)

	if err := f.try(tx.ID, "alice", domain.ActionJoin); !domain.IsTransitionReason(err, domain.ReasonWrongRole) {
		t.Fatalf("creator join: got %v", err)
	}
	f.do(t, tx.ID, "bob", domain.ActionJoin)
	if err := f.try(tx.ID, "carol", domain.ActionJoin); !domain.IsTransitionReason(err, domain.ReasonAlreadyJoined) {
		t.Fatalf("second join: got %v", err)
	}
}

func TestConcurrentJoinExclusivity(t *testing.T) {
	f := newFixture()
	tx := f.create(t, domain.RoleSeller, false)

	const n = 20
	var wg sync.WaitGroup
	errs := make([]error, n)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			errs[i] = f.try(tx.ID, fmt.Sprintf("user-%d", i), domain.ActionJoin)
		}(i)
	}
	wg.Wait()

	ok, already := 0, 0
	for _, err := range errs {
		switch {
		case err == nil:
			ok++
		case domain.IsTransitionReason(err, domain.ReasonAlreadyJoined):
			already++
		default:
			t.Fatalf("unexpected error: %v", err)
		}
	}
	if ok != 1 || already != n-1 {
		t.Fatalf("ok=%d already_joined=%d", ok, already)
	}
	stored, _ := f.repo.GetTransaction(context.Background(), tx.ID)
	if stored.Status != domain.StatusActive || stored.Version != 2 {
		t.Fatalf("stored %s v%d", stored.Status, stored.Version)
	}
}

func TestStatusNeverMovesBackwards(t *testing.T) {
	f := newFixture()
	tx := f.create(t, domain.RoleSeller, true)
	actions := []struct {
		actor  string
		action domain.TransactionAction
	}{
		{"bob", domain.ActionJoin},
		{"alice", domain.ActionConfirmReceipt},
		{"alice", domain.ActionBegin},
		{"bob", domain.ActionBegin},
		{"bob", domain.ActionProvideDeliveryDetails},
		{"alice", domain.ActionProvideDeliveryDetails},
		{"bob", domain.ActionMakePayment},
		{"bob", domain.ActionCancel},
		{"alice", domain.ActionConfirmShipment},
		{"bob", domain.ActionConfirmReceipt},
		{"bob", domain.ActionJoin},
	}
	last := -1
	for _, a := range actions {
		_ = f.try(tx.ID, a.actor, a.action)
		stored, _ := f.repo.GetTransaction(context.Background(), tx.ID)
		idx := stored.Status.Index()
		if !stored.Status.IsSideState() && idx < last {
			t.Fatalf("%s moved status back to %s", a.action, stored.Status)
		}
		last = idx
	}
}

func TestTransitionErrorCarriesGRPCStatus(t *testing.T) {
	f := newFixture()
	tx := f.create(t, domain.RoleSeller, false)
	err := f.try(tx.ID, "alice", domain.ActionJoin)

	st, ok := status.FromError(err)
	if !ok || st.Code() != codes.PermissionDenied {
		t.Fatalf("got %v, want PermissionDenied", err)
	}
	if len(st.Details()) != 1 {
		t.Fatalf("details %v", st.Details())
	}
	if !errors.Is(err, &domain.TransitionError{Reason: domain.ReasonWrongRole}) {
		t.Fatal("errors.Is did not match on reason")
	}
}

func TestAvailableActions(t *testing.T) {
	f := newFixture()
	tx := f.create(t, domain.RoleSeller, true)

	out, err := f.uc.GetTransaction(context.Background(), tx.ID, "carol")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if len(out.AvailableActions) != 1 || out.AvailableActions[0] != domain.ActionJoin {
		t.Fatalf("outsider actions %v", out.AvailableActions)
	}

	f.do(t, tx.ID, "bob", domain.ActionJoin)
	if _, err := f.uc.GetTransaction(context.Background(), tx.ID, "carol"); !errors.Is(err, domain.ErrTransactionNotFound) {
		t.Fatalf("outsider after join: got %v", err)
	}
	out, _ = f.uc.GetTransaction(context.Background(), tx.ID, "bob")
	want := []domain.TransactionAction{domain.ActionBegin, domain.ActionCancel, domain.ActionRaiseDispute}
	if fmt.Sprint(out.AvailableActions) != fmt.Sprint(want) || out.ViewerRole != domain.RoleBuyer {
		t.Fatalf("buyer actions %v role %s", out.AvailableActions, out.ViewerRole)
	}

	list, _ := f.uc.GetTransactionsByParticipant(context.Background(), "bob")
	if len(list) != 1 {
		t.Fatalf("bob sees %d transactions", len(list))
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

func TestTransitionPublishesAfterUnlock(t *testing.T) {
	locks := keylock.New()
	gateway := &lockedGateway{locks: locks}
	repo := memory.NewRepository()
	uc := NewDefaultTransactionUsecase(repo, locks, publish.New(gateway, nil), testutil.NewClock(testutil.T0), FeePolicy{}, nil, nil)

	tx := testutil.JoinedTransaction("tx-1", domain.StatusWaitingForPayment, false)
	if err := repo.SaveTransaction(context.Background(), tx); err != nil {
		t.Fatal(err)
	}
	if _, err := uc.Transition(context.Background(), &transactiondto.TransitionInput{
		TransactionID: tx.ID, ActorID: "alice", Action: domain.ActionCancel,
	}); err != nil {
		t.Fatal(err)
	}

	if len(gateway.held) != 2 {
		t.Fatalf("got %d events, want 2", len(gateway.held))
	}
	for i, n := range gateway.held {
		if n != 0 {
			t.Fatalf("event %d published with %d keys locked", i, n)
		}
	}
}
