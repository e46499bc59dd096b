package repository

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/LavaJover/shvark-escrow-service/internal/domain"
	escrowlogger "github.com/LavaJover/shvark-escrow-service/internal/infrastructure/logger"
	"github.com/LavaJover/shvark-escrow-service/internal/infrastructure/migrate"
	"github.com/LavaJover/shvark-escrow-service/internal/testutil"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	gormpostgres "gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// startDB boots a throwaway Postgres and applies the SQL migrations.
func startDB(t *testing.T) *gorm.DB {
	t.Helper()
	if testing.Short() {
		t.Skip("postgres integration test skipped in short mode")
	}
	ctx := context.Background()

	container, err := postgres.Run(ctx,
		"postgres:16-alpine",
		postgres.WithDatabase("escrow"),
		postgres.WithUsername("escrow"),
		postgres.WithPassword("escrow"),
		postgres.BasicWaitStrategies(),
	)
	if err != nil {
		t.Skipf("no container runtime: %v", err)
	}
	t.Cleanup(func() { _ = container.Terminate(context.Background()) })

	dsn, err := container.ConnectionString(ctx, "sslmode=disable")
	if err != nil {
		t.Fatalf("connection string: %v", err)
	}
	db, err := gorm.Open(gormpostgres.Open(dsn), &gorm.Config{Logger: logger.Discard})
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	if err := migrate.RunMigrations(db, "../../../../migrations", nil); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	return db
}

func TestPostgresStores(t *testing.T) {
	db := startDB(t)
	ctx := context.Background()
	repo := NewEscrowRepository(db)

	t.Run("transaction versioning", func(t *testing.T) {
		tx := testutil.JoinedTransaction("tx-v", domain.StatusWaitingForPayment, false)
		if err := repo.SaveTransaction(ctx, tx); err != nil {
			t.Fatalf("insert: %v", err)
		}
		if err := repo.SaveTransaction(ctx, tx); !errors.Is(err, domain.ErrAlreadyExists) {
			t.Fatalf("second insert: %v", err)
		}

		next := tx.Clone()
		next.Version = 2
		next.Status = domain.StatusPaymentMade
		if err := repo.SaveTransaction(ctx, next); err != nil {
			t.Fatalf("update: %v", err)
		}
		if err := repo.SaveTransaction(ctx, next); !errors.Is(err, domain.ErrVersionConflict) {
			t.Fatalf("stale update: %v", err)
		}

		got, err := repo.GetTransaction(ctx, "tx-v")
		if err != nil {
			t.Fatal(err)
		}
		if got.Status != domain.StatusPaymentMade || !got.Total.Equal(tx.Total) || *got.CounterpartyID != "bob" {
			t.Fatalf("read back %+v", got)
		}
		if _, err := repo.GetTransaction(ctx, "missing"); !errors.Is(err, domain.ErrTransactionNotFound) {
			t.Fatalf("missing: %v", err)
		}

		mine, err := repo.GetTransactionsByParticipant(ctx, "bob")
		if err != nil || len(mine) == 0 {
			t.Fatalf("by participant: %v %d", err, len(mine))
		}
	})

	t.Run("one active dispute per transaction", func(t *testing.T) {
		tx := testutil.JoinedTransaction("tx-d", domain.StatusDisputed, true)
		if err := repo.SaveTransaction(ctx, tx); err != nil {
			t.Fatal(err)
		}
		first := testutil.OpenDispute("d-1", "tx-d", domain.PriorityHigh, testutil.T0)
		if err := repo.SaveDispute(ctx, first); err != nil {
			t.Fatalf("first dispute: %v", err)
		}
		second := testutil.OpenDispute("d-2", "tx-d", domain.PriorityLow, testutil.T0)
		if err := repo.SaveDispute(ctx, second); !errors.Is(err, domain.ErrActiveDisputeExists) {
			t.Fatalf("second dispute: %v", err)
		}

		active, err := repo.GetActiveDisputeByTransaction(ctx, "tx-d")
		if err != nil || active.ID != "d-1" {
			t.Fatalf("active: %v %v", active, err)
		}
		open, err := repo.ListOpenDisputes(ctx)
		if err != nil || len(open) != 1 {
			t.Fatalf("open: %d %v", len(open), err)
		}
	})

	t.Run("dispute operation is atomic", func(t *testing.T) {
		d, err := repo.GetDispute(ctx, "d-1")
		if err != nil {
			t.Fatal(err)
		}
		tx, _ := repo.GetTransaction(ctx, "tx-d")

		closedAt := testutil.T0.Add(time.Hour)
		d.Status = domain.DisputeClosed
		d.ClosedAt = &closedAt
		d.Version++
		stale := tx.Clone()
		stale.Version = tx.Version + 5
		if err := repo.ApplyDisputeOperation(ctx, d, stale); !errors.Is(err, domain.ErrVersionConflict) {
			t.Fatalf("stale transaction: %v", err)
		}
		again, _ := repo.GetDispute(ctx, "d-1")
		if again.Status != domain.DisputeOpen {
			t.Fatal("dispute written although the transaction was rejected")
		}

		tx.Status = domain.StatusWaitingForShipment
		tx.Version++
		if err := repo.ApplyDisputeOperation(ctx, d, tx); err != nil {
			t.Fatalf("apply: %v", err)
		}
		if _, err := repo.GetActiveDisputeByTransaction(ctx, "tx-d"); !errors.Is(err, domain.ErrDisputeNotFound) {
			t.Fatalf("closed dispute still active: %v", err)
		}
	})

	t.Run("fired keys", func(t *testing.T) {
		store := NewFiredKeyStore(db, testutil.NewClock(testutil.T0))
		key := domain.FiredKey{RuleID: "r", EntityID: "d-1", Signature: "abc", ActionIndex: 0}

		first, err := store.MarkFired(ctx, key)
		if err != nil || !first {
			t.Fatalf("first mark: %v %v", first, err)
		}
		again, err := store.MarkFired(ctx, key)
		if err != nil || again {
			t.Fatalf("second mark: %v %v", again, err)
		}
		if err := store.Reset(ctx, "r", "d-1"); err != nil {
			t.Fatal(err)
		}
		if fired, _ := store.IsFired(ctx, key); fired {
			t.Fatal("key survived reset")
		}
	})

	t.Run("workflow rules round trip", func(t *testing.T) {
		rules := NewWorkflowRuleRepository(db)
		rule := domain.WorkflowRule{
			ID:       "r-1",
			Name:     "escalate",
			Enabled:  true,
			Priority: 5,
			Conditions: []domain.Condition{
				{Field: "dispute.priority", Operator: domain.OpIn, Value: []any{"HIGH", "URGENT"}},
			},
			Actions: []domain.Action{{Type: domain.ActionAutoEscalate, DelayMinutes: 10}},
		}
		if err := rules.SaveRule(ctx, &rule); err != nil {
			t.Fatal(err)
		}
		rule.Enabled = false
		if err := rules.SaveRule(ctx, &rule); err != nil {
			t.Fatal(err)
		}

		got, err := rules.ListRules(ctx)
		if err != nil || len(got) != 1 {
			t.Fatalf("list: %v %d", err, len(got))
		}
		if got[0].Enabled || got[0].Actions[0].DelayMinutes != 10 || len(got[0].Conditions) != 1 {
			t.Fatalf("rule %+v", got[0])
		}
	})

	t.Run("admin workload bounds", func(t *testing.T) {
		admins := NewAdminDirectory(db)
		if err := admins.Upsert(ctx, domain.AdminWorkload{AdminID: "admin-1", MaxLoad: 1, Availability: domain.AvailabilityOnline}); err != nil {
			t.Fatal(err)
		}
		if err := admins.UpdateWorkload(ctx, "admin-1", 1); err != nil {
			t.Fatalf("reserve: %v", err)
		}
		if err := admins.UpdateWorkload(ctx, "admin-1", 1); !errors.Is(err, domain.ErrAdminAtCapacity) {
			t.Fatalf("over capacity: %v", err)
		}
		if err := admins.UpdateWorkload(ctx, "ghost", 1); !errors.Is(err, domain.ErrAdminNotFound) {
			t.Fatalf("unknown admin: %v", err)
		}
		list, _ := admins.ListAdmins(ctx)
		if len(list) != 1 || list[0].CurrentLoad != 1 {
			t.Fatalf("admins %+v", list)
		}
	})

	t.Run("timeline audit", func(t *testing.T) {
		timeline := escrowlogger.NewPGTimelineLogger(db)
		entry := domain.TimelineEntry{
			EntityID:   "d-1",
			EntityType: "dispute",
			Kind:       "status_changed",
			From:       "OPEN",
			To:         "IN_REVIEW",
			Details:    map[string]string{"escalation": "open-to-review-overdue"},
			At:         testutil.T0,
		}
		if err := timeline.Emit(ctx, domain.Event{Type: domain.EventTimelineUpdate, EntityID: "d-1", Payload: entry}); err != nil {
			t.Fatal(err)
		}
		history, err := timeline.History(ctx, "d-1")
		if err != nil || len(history) != 1 || history[0].Details["escalation"] != "open-to-review-overdue" {
			t.Fatalf("history %+v %v", history, err)
		}
	})
}
