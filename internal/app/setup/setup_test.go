package setup

import (
	"context"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/LavaJover/shvark-escrow-service/internal/config"
	"github.com/LavaJover/shvark-escrow-service/internal/domain"
	"github.com/LavaJover/shvark-escrow-service/internal/testutil"
	disputedto "github.com/LavaJover/shvark-escrow-service/internal/usecase/dto/dispute"
	"github.com/LavaJover/shvark-escrow-service/internal/usecase/workflow"
)

func memoryConfig(rulesFile string) *config.EscrowConfig {
	cfg := &config.EscrowConfig{}
	cfg.Storage.Driver = "memory"
	cfg.Workflow.DedupeBackend = "memory"
	cfg.Workflow.Interval = time.Minute
	cfg.Workflow.RulesFile = rulesFile
	cfg.Fees.Percent = 5
	cfg.Fees.MinFee = 1
	cfg.Admins = []config.Admin{{ID: "admin-1", MaxLoad: 2}}
	return cfg
}

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestMemoryWiringRaisesAndEvaluatesDisputes(t *testing.T) {
	ctx := context.Background()
	deps, err := InitializeDependencies(ctx, memoryConfig(""), quietLogger())
	if err != nil {
		t.Fatalf("dependencies: %v", err)
	}
	defer deps.Close()

	if len(deps.ReadinessChecks()) != 0 {
		t.Fatal("memory wiring has no external dependencies to check")
	}
	admins, _ := deps.Repositories.Admins.ListAdmins(ctx)
	if len(admins) != 1 || admins[0].Availability != domain.AvailabilityOnline {
		t.Fatalf("admins %+v", admins)
	}

	events, cancel := deps.Events.Subscribe(16, domain.EventDisputeUpdated)
	defer cancel()

	uc := InitializeUseCases(deps)
	engine, err := InitializeWorkflow(ctx, deps, uc)
	if err != nil {
		t.Fatalf("workflow: %v", err)
	}

	tx := testutil.JoinedTransaction("tx-1", domain.StatusWaitingForShipment, true)
	if err := deps.Repositories.Escrow.SaveTransaction(ctx, tx); err != nil {
		t.Fatal(err)
	}
	view, err := uc.DisputeUsecase.RaiseDispute(ctx, &disputedto.RaiseDisputeInput{
		TransactionID: "tx-1",
		RaiserID:      "bob",
		DisputeType:   "item_not_received",
		Reason:        "nothing arrived",
	})
	if err != nil {
		t.Fatalf("raise: %v", err)
	}

	select {
	case ev := <-events:
		if ev.EntityID != view.ID {
			t.Fatalf("event for %s", ev.EntityID)
		}
	case <-time.After(time.Second):
		t.Fatal("no dispute event on the bus")
	}

	if err := engine.Tick(ctx); err != nil {
		t.Fatalf("tick: %v", err)
	}
	got, err := uc.DisputeUsecase.GetDispute(ctx, view.ID)
	if err != nil {
		t.Fatal(err)
	}
	if got.AssignedAdminID == nil || *got.AssignedAdminID != "admin-1" {
		t.Fatalf("dispute not assigned after tick: %+v", got.Dispute)
	}
}

func TestRulesFileOverridesDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "rules.yaml")
	body := `
rules:
  - id: inactivity-reminder
    name: Inactivity reminder
    enabled: false
    priority: 40
    conditions:
      - field: dispute.status
        operator: equals
        value: OPEN
    actions:
      - type: SEND_EMAIL
        parameters:
          recipients: participants
`
	if err := os.WriteFile(path, []byte(body), 0o600); err != nil {
		t.Fatal(err)
	}

	ctx := context.Background()
	deps, err := InitializeDependencies(ctx, memoryConfig(path), quietLogger())
	if err != nil {
		t.Fatal(err)
	}
	defer deps.Close()
	uc := InitializeUseCases(deps)
	if _, err := InitializeWorkflow(ctx, deps, uc); err != nil {
		t.Fatalf("workflow: %v", err)
	}

	rules, err := uc.RuleManager.Rules(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if len(rules) != len(workflow.DefaultRules()) {
		t.Fatalf("want %d rules, got %d", len(workflow.DefaultRules()), len(rules))
	}
	for _, r := range rules {
		if r.ID == "inactivity-reminder" && r.Enabled {
			t.Fatal("override did not disable the rule")
		}
	}
}

func TestDedupeBackendNeedsDatabase(t *testing.T) {
	cfg := memoryConfig("")
	cfg.Workflow.DedupeBackend = "postgres"
	if _, err := InitializeDependencies(context.Background(), cfg, quietLogger()); err == nil {
		t.Fatal("postgres dedupe without a database must fail")
	}
}
