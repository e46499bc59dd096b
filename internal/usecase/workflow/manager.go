package workflow

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/LavaJover/shvark-escrow-service/internal/domain"
)

// RuleManager keeps the persisted rule set in step with code defaults and the rules file.
type RuleManager struct {
	repo   domain.WorkflowRuleRepository
	clock  domain.Clock
	logger *slog.Logger
}

func NewRuleManager(repo domain.WorkflowRuleRepository, clock domain.Clock, logger *slog.Logger) *RuleManager {
	if clock == nil {
		clock = domain.SystemClock{}
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &RuleManager{repo: repo, clock: clock, logger: logger}
}

// SeedDefaults stores every default rule not yet persisted. Stored rules keep their
// enabled flag and priority.
func (rm *RuleManager) SeedDefaults(ctx context.Context, defaults []domain.WorkflowRule) error {
	existing, err := rm.byID(ctx)
	if err != nil {
		return err
	}
	for _, rule := range defaults {
		if _, ok := existing[rule.ID]; ok {
			continue
		}
		rule.UpdatedAt = rm.clock.Now()
		if err := rm.repo.SaveRule(ctx, &rule); err != nil {
			rm.logger.Error("failed to create workflow rule", "rule_id", rule.ID, "error", err)
			continue
		}
		rm.logger.Info("workflow rule created", "rule_id", rule.ID, "priority", rule.Priority)
	}
	return nil
}

// ApplyOverrides replaces stored rules with the file's rules of the same id.
func (rm *RuleManager) ApplyOverrides(ctx context.Context, overrides []domain.WorkflowRule) error {
	for _, rule := range overrides {
		rule.UpdatedAt = rm.clock.Now()
		if err := rm.repo.SaveRule(ctx, &rule); err != nil {
			return fmt.Errorf("failed to apply rule %s: %w", rule.ID, err)
		}
		rm.logger.Info("workflow rule overridden from file", "rule_id", rule.ID, "enabled", rule.Enabled)
	}
	return nil
}

func (rm *RuleManager) SetEnabled(ctx context.Context, ruleID string, enabled bool) error {
	return rm.update(ctx, ruleID, func(r *domain.WorkflowRule) { r.Enabled = enabled })
}

func (rm *RuleManager) SetPriority(ctx context.Context, ruleID string, priority int) error {
	return rm.update(ctx, ruleID, func(r *domain.WorkflowRule) { r.Priority = priority })
}

func (rm *RuleManager) Rules(ctx context.Context) ([]domain.WorkflowRule, error) {
	return rm.repo.ListRules(ctx)
}

func (rm *RuleManager) update(ctx context.Context, ruleID string, mutate func(*domain.WorkflowRule)) error {
	existing, err := rm.byID(ctx)
	if err != nil {
		return err
	}
	rule, ok := existing[ruleID]
	if !ok {
		return fmt.Errorf("%w: workflow rule %s", domain.ErrInvalidInput, ruleID)
	}
	mutate(&rule)
	rule.UpdatedAt = rm.clock.Now()
	return rm.repo.SaveRule(ctx, &rule)
}

func (rm *RuleManager) byID(ctx context.Context) (map[string]domain.WorkflowRule, error) {
	rules, err := rm.repo.ListRules(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list workflow rules: %w", err)
	}
	out := make(map[string]domain.WorkflowRule, len(rules))
	for _, r := range rules {
		out[r.ID] = r
	}
	return out, nil
}
