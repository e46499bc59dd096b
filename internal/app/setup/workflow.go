package setup

import (
	"context"
	"fmt"

	"github.com/LavaJover/shvark-escrow-service/internal/usecase/workflow"
)

// InitializeWorkflow seeds the default rules, applies the rules file on top and builds
// the engine. A rules file with a matrix replaces the default escalation matrix.
func InitializeWorkflow(ctx context.Context, deps *Dependencies, uc *UseCases) (*workflow.Engine, error) {
	file, err := workflow.LoadRulesFile(deps.Config.Workflow.RulesFile)
	if err != nil {
		return nil, err
	}
	if err := uc.RuleManager.SeedDefaults(ctx, workflow.DefaultRules()); err != nil {
		return nil, fmt.Errorf("failed to seed workflow rules: %w", err)
	}
	if err := uc.RuleManager.ApplyOverrides(ctx, file.Rules); err != nil {
		return nil, err
	}

	opts := workflow.Options{Interval: deps.Config.Workflow.Interval}
	if len(file.Matrix) > 0 {
		opts.Matrix = file.Matrix
	}

	return workflow.NewEngine(workflow.Dependencies{
		Repo:      deps.Repositories.Escrow,
		Rules:     deps.Repositories.Rules,
		FiredKeys: deps.Repositories.FiredKeys,
		Disputes:  uc.DisputeUsecase,
		Admins:    uc.Balancer,
		Publisher: uc.Publisher,
		Notifier:  deps.Notifier,
		SLA:       uc.SLA,
		Clock:     deps.Clock,
		Metrics:   deps.Metrics,
		Logger:    deps.Logger,
	}, opts), nil
}
