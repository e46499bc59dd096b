package workflow

import (
	"context"
	"time"

	"github.com/LavaJover/shvark-escrow-service/internal/domain"
)

// schedule arms a delayed action unless it is already pending or has fired for the same
// state signature.
func (e *Engine) schedule(ctx context.Context, ruleID string, actionIndex int, key domain.FiredKey, delay time.Duration) {
	e.mu.Lock()
	_, pending := e.pending[key]
	e.mu.Unlock()
	if pending {
		return
	}

	fired, err := e.deps.FiredKeys.IsFired(ctx, key)
	if err != nil {
		e.logger.Error("failed to check fired key", "key", key.String(), "error", err)
		return
	}
	if fired {
		e.deps.Metrics.RecordDedupeSkip(ruleID)
		return
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	if _, ok := e.pending[key]; ok {
		return
	}
	e.pending[key] = e.deps.Delays.AfterFunc(delay, func() {
		e.fireDelayed(ruleID, actionIndex, key)
	})
	e.deps.Metrics.RecordDelayed("scheduled")
	e.logger.Debug("delayed action scheduled", "rule_id", ruleID, "dispute_id", key.EntityID, "delay", delay)
}

// fireDelayed re-checks the rule against current state before running the action; a rule
// that no longer holds, or holds for a different state, cancels it.
func (e *Engine) fireDelayed(ruleID string, actionIndex int, key domain.FiredKey) {
	e.mu.Lock()
	if _, ok := e.pending[key]; !ok {
		e.mu.Unlock()
		return
	}
	delete(e.pending, key)
	ctx := e.baseCtx
	e.mu.Unlock()

	if ctx.Err() != nil {
		return
	}

	cancel := func(reason string) {
		e.deps.Metrics.RecordDelayed("cancelled")
		e.logger.Info("delayed action cancelled", "rule_id", ruleID, "dispute_id", key.EntityID, "reason", reason)
	}

	cr, ok := e.currentRule(ruleID)
	if !ok || actionIndex >= len(cr.rule.Actions) {
		cancel("rule disabled or changed")
		return
	}
	ectx, err := e.reload(ctx, key.EntityID)
	if err != nil {
		e.deps.Metrics.RecordDelayed("failed")
		e.logger.Error("failed to re-check delayed action", "rule_id", ruleID, "dispute_id", key.EntityID, "error", err)
		return
	}
	matched, sig := cr.when.evaluate(ectx)
	if !matched || sig != key.Signature {
		cancel("condition no longer holds")
		return
	}

	if _, err := e.fire(ctx, ruleID, cr.rule.Actions[actionIndex], key); err != nil {
		e.logger.Error("delayed action aborted", "rule_id", ruleID, "dispute_id", key.EntityID, "error", err)
		return
	}
	e.deps.Metrics.RecordDelayed("fired")
}

// PendingDelayed is the number of delayed actions waiting on their timers.
func (e *Engine) PendingDelayed() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return len(e.pending)
}
