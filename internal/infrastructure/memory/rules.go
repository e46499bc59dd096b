package memory

import (
	"context"
	"sort"
	"sync"

	"github.com/LavaJover/shvark-escrow-service/internal/domain"
)

type WorkflowRuleRepository struct {
	mu    sync.RWMutex
	rules map[string]domain.WorkflowRule
}

func NewWorkflowRuleRepository() *WorkflowRuleRepository {
	return &WorkflowRuleRepository{rules: make(map[string]domain.WorkflowRule)}
}

func (r *WorkflowRuleRepository) ListRules(ctx context.Context) ([]domain.WorkflowRule, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]domain.WorkflowRule, 0, len(r.rules))
	for _, rule := range r.rules {
		out = append(out, rule)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Priority == out[j].Priority {
			return out[i].ID < out[j].ID
		}
		return out[i].Priority < out[j].Priority
	})
	return out, nil
}

func (r *WorkflowRuleRepository) SaveRule(ctx context.Context, rule *domain.WorkflowRule) error {
	if err := rule.Validate(); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.rules[rule.ID] = *rule
	return nil
}
