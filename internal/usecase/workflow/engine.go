package workflow

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/LavaJover/shvark-escrow-service/internal/domain"
	"github.com/LavaJover/shvark-escrow-service/internal/infrastructure/metrics"
	disputedto "github.com/LavaJover/shvark-escrow-service/internal/usecase/dto/dispute"
	"github.com/LavaJover/shvark-escrow-service/internal/usecase/publish"
	"github.com/LavaJover/shvark-escrow-service/internal/usecase/sla"
	"github.com/robfig/cron/v3"
)

// ============= WORKFLOW ENGINE =============

const DefaultInterval = 5 * time.Minute

// DisputeCommands are the dispute mutations actions may perform. Each re-reads the
// dispute under its lock before changing it.
type DisputeCommands interface {
	ChangeStatus(ctx context.Context, input *disputedto.ChangeStatusInput) (*domain.DisputeView, error)
	SetPriority(ctx context.Context, disputeID, actorID string, priority domain.DisputePriority) (*domain.DisputeView, error)
	AssignAdmin(ctx context.Context, disputeID string) (*domain.DisputeView, error)
}

type AdminLister interface {
	OnlineAdmins(ctx context.Context) ([]domain.AdminWorkload, error)
}

type Dependencies struct {
	Repo      domain.Repository
	Rules     domain.WorkflowRuleRepository
	FiredKeys domain.FiredKeyStore
	Disputes  DisputeCommands
	Admins    AdminLister
	Publisher *publish.Publisher
	Notifier  domain.Notifier
	SLA       *sla.Calculator
	Clock     domain.Clock
	// Delays defaults to real timers.
	Delays  domain.DelayScheduler
	Metrics *metrics.EscrowMetrics
	Logger  *slog.Logger
}

type Options struct {
	Interval time.Duration
	// Matrix defaults to DefaultMatrix.
	Matrix []domain.EscalationEntry
}

// Engine periodically evaluates workflow rules and the escalation matrix against every
// open dispute. Ticks never overlap; delayed actions run on their own timers and share
// the fired-key step with ticks.
type Engine struct {
	deps     Dependencies
	interval time.Duration
	matrix   []matrixEntry
	logger   *slog.Logger

	tickMu sync.Mutex

	mu       sync.Mutex
	compiled map[string]*compiledRule
	pending  map[domain.FiredKey]domain.Timer
	// disarmed holds rule|entity pairs whose fired keys are already reset.
	disarmed map[string]struct{}
	baseCtx  context.Context

	cron *cron.Cron
}

type compiledRule struct {
	rule domain.WorkflowRule
	when chain
}

func NewEngine(deps Dependencies, opts Options) *Engine {
	if deps.Clock == nil {
		deps.Clock = domain.SystemClock{}
	}
	if deps.Delays == nil {
		deps.Delays = domain.SystemScheduler{}
	}
	if deps.SLA == nil {
		deps.SLA = sla.NewCalculator(nil)
	}
	if deps.Logger == nil {
		deps.Logger = slog.Default()
	}
	if opts.Interval <= 0 {
		opts.Interval = DefaultInterval
	}
	if opts.Matrix == nil {
		opts.Matrix = DefaultMatrix()
	}
	return &Engine{
		deps:     deps,
		interval: opts.Interval,
		matrix:   compileMatrix(opts.Matrix),
		logger:   deps.Logger.With("component", "workflow_engine"),
		compiled: make(map[string]*compiledRule),
		pending:  make(map[domain.FiredKey]domain.Timer),
		disarmed: make(map[string]struct{}),
		baseCtx:  context.Background(),
	}
}

// Start schedules ticks every interval until Stop. A tick still running when the next
// one is due makes the next one skip.
func (e *Engine) Start(ctx context.Context) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.cron != nil {
		return errors.New("workflow engine already started")
	}
	e.baseCtx = ctx

	cronLogger := cron.PrintfLogger(slog.NewLogLogger(e.logger.Handler(), slog.LevelInfo))
	c := cron.New(cron.WithChain(cron.Recover(cronLogger), cron.SkipIfStillRunning(cronLogger)))
	if _, err := c.AddFunc("@every "+e.interval.String(), func() {
		if err := e.Tick(ctx); err != nil {
			e.logger.Error("workflow tick aborted", "error", err)
		}
	}); err != nil {
		return fmt.Errorf("failed to schedule workflow tick: %w", err)
	}
	c.Start()
	e.cron = c
	e.logger.Info("workflow engine started", "interval", e.interval)
	return nil
}

// Stop waits for a running tick and cancels every pending delayed action.
func (e *Engine) Stop() {
	e.mu.Lock()
	c := e.cron
	e.cron = nil
	e.mu.Unlock()

	if c != nil {
		<-c.Stop().Done()
	}

	e.mu.Lock()
	for key, timer := range e.pending {
		timer.Stop()
		delete(e.pending, key)
	}
	e.mu.Unlock()
	e.logger.Info("workflow engine stopped")
}

// Tick runs one full pass. It returns an error, having stopped early, when the
// repository is unavailable; the next tick starts over.
func (e *Engine) Tick(ctx context.Context) (err error) {
	e.tickMu.Lock()
	defer e.tickMu.Unlock()

	started := time.Now()
	defer func() {
		result := "ok"
		if err != nil {
			result = "aborted"
		}
		e.deps.Metrics.RecordTick(result, time.Since(started).Seconds())
	}()

	rules, err := e.loadRules(ctx)
	if err != nil {
		return err
	}
	disputes, err := e.deps.Repo.ListOpenDisputes(ctx)
	if err != nil {
		return fmt.Errorf("failed to list open disputes: %w", err)
	}

	slaCounts := make(map[string]int)
	open := make(map[string]struct{}, len(disputes))
	for _, d := range disputes {
		if err := ctx.Err(); err != nil {
			return err
		}
		open[d.ID] = struct{}{}

		view, err := e.evaluateDispute(ctx, d, rules)
		if err != nil {
			return fmt.Errorf("dispute %s: %w", d.ID, err)
		}
		if view != nil {
			slaCounts[string(view.SLAStatus)]++
		}
	}

	e.deps.Metrics.SetOpenDisputes(slaCounts)
	e.forgetClosed(open)
	e.logger.Debug("workflow tick finished", "disputes", len(disputes), "rules", len(rules))
	return nil
}

// loadRules compiles the enabled rules, in evaluation order, against the field schema.
func (e *Engine) loadRules(ctx context.Context) ([]*compiledRule, error) {
	rules, err := e.deps.Rules.ListRules(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list workflow rules: %w", err)
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	next := make(map[string]*compiledRule, len(rules))
	var out []*compiledRule
	for _, r := range rules {
		if !r.Enabled {
			continue
		}
		cr := &compiledRule{rule: r, when: compileChain(r.Conditions)}
		next[r.ID] = cr
		out = append(out, cr)
	}
	e.compiled = next
	sort.SliceStable(out, func(i, j int) bool { return out[i].rule.Priority < out[j].rule.Priority })
	return out, nil
}

func (e *Engine) currentRule(ruleID string) (*compiledRule, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	cr, ok := e.compiled[ruleID]
	return cr, ok
}

// context loads what a dispute's conditions are evaluated against. A missing transaction
// leaves transaction fields undefined.
func (e *Engine) context(ctx context.Context, d *domain.Dispute) (*evalContext, error) {
	tx, err := e.deps.Repo.GetTransaction(ctx, d.TransactionID)
	if errors.Is(err, domain.ErrTransactionNotFound) {
		e.logger.Warn("dispute references a missing transaction", "dispute_id", d.ID, "transaction_id", d.TransactionID)
		tx = nil
	} else if err != nil {
		return nil, fmt.Errorf("failed to load transaction: %w", err)
	}
	return &evalContext{view: e.deps.SLA.View(d, e.deps.Clock.Now()), tx: tx}, nil
}

func (e *Engine) reload(ctx context.Context, disputeID string) (*evalContext, error) {
	d, err := e.deps.Repo.GetDispute(ctx, disputeID)
	if err != nil {
		return nil, fmt.Errorf("failed to reload dispute: %w", err)
	}
	return e.context(ctx, d)
}

func (e *Engine) evaluateDispute(ctx context.Context, d *domain.Dispute, rules []*compiledRule) (*domain.DisputeView, error) {
	ectx, err := e.context(ctx, d)
	if err != nil {
		return nil, err
	}

	for _, cr := range rules {
		matched, sig := cr.when.evaluate(ectx)
		if !matched {
			e.disarm(ctx, cr.rule.ID, d.ID)
			continue
		}
		e.arm(cr.rule.ID, d.ID)

		changed := false
		for i, action := range cr.rule.Actions {
			key := domain.FiredKey{RuleID: cr.rule.ID, EntityID: d.ID, Signature: sig, ActionIndex: i}
			if action.Delay() > 0 {
				e.schedule(ctx, cr.rule.ID, i, key, action.Delay())
				continue
			}
			ran, err := e.fire(ctx, cr.rule.ID, action, key)
			if err != nil {
				return nil, err
			}
			changed = changed || ran
		}
		if changed {
			// later rules see what earlier ones did
			if ectx, err = e.reload(ctx, d.ID); err != nil {
				return nil, err
			}
		}
	}

	if _, err := e.escalate(ctx, ectx, "matrix"); err != nil {
		if errors.Is(err, domain.ErrRepositoryUnavailable) {
			return nil, err
		}
		e.logger.Error("escalation matrix failed", "dispute_id", d.ID, "error", err)
	}
	return &ectx.view, nil
}

// fire runs an action once per fired key. It reports whether the action ran, and
// returns an error only when the tick must stop.
func (e *Engine) fire(ctx context.Context, ruleID string, action domain.Action, key domain.FiredKey) (bool, error) {
	first, err := e.deps.FiredKeys.MarkFired(ctx, key)
	if err != nil {
		e.logger.Error("failed to record fired key", "rule_id", ruleID, "dispute_id", key.EntityID, "error", err)
		if errors.Is(err, domain.ErrRepositoryUnavailable) {
			return false, err
		}
		return false, nil
	}
	if !first {
		e.deps.Metrics.RecordDedupeSkip(ruleID)
		return false, nil
	}

	err = e.execute(ctx, ruleID, action, key.EntityID)
	switch {
	case err == nil:
		e.deps.Metrics.RecordAction(string(action.Type), "ok")
		e.deps.Publisher.Timeline(ctx, domain.TimelineEntry{
			EntityID:   key.EntityID,
			EntityType: "dispute",
			Kind:       "workflow_action",
			ActorID:    actorFor(ruleID),
			Details:    map[string]string{"rule_id": ruleID, "action": string(action.Type)},
			At:         e.deps.Clock.Now(),
		})
		return true, nil

	case errors.Is(err, domain.ErrNoAdminAvailable):
		// expected: retry on a later tick
		e.deps.Metrics.RecordAction(string(action.Type), "deferred")
		e.release(ctx, key)
		return false, nil

	case errors.Is(err, domain.ErrRepositoryUnavailable):
		e.deps.Metrics.RecordAction(string(action.Type), "aborted")
		e.release(ctx, key)
		return false, err

	default:
		e.deps.Metrics.RecordAction(string(action.Type), "error")
		e.logger.Error("workflow action failed",
			"rule_id", ruleID,
			"dispute_id", key.EntityID,
			"action", action.Type,
			"error", err)
		return false, nil
	}
}

func (e *Engine) release(ctx context.Context, key domain.FiredKey) {
	if err := e.deps.FiredKeys.Release(ctx, key); err != nil {
		e.logger.Error("failed to release fired key", "key", key.String(), "error", err)
	}
}

func pairKey(ruleID, entityID string) string {
	return ruleID + "|" + entityID
}

func (e *Engine) arm(ruleID, entityID string) {
	e.mu.Lock()
	delete(e.disarmed, pairKey(ruleID, entityID))
	e.mu.Unlock()
}

// disarm cancels pending delayed actions of the rule for the entity and forgets its fired
// keys, so the next time the rule matches counts as a new transition.
func (e *Engine) disarm(ctx context.Context, ruleID, entityID string) {
	pk := pairKey(ruleID, entityID)

	e.mu.Lock()
	for key, timer := range e.pending {
		if key.RuleID == ruleID && key.EntityID == entityID {
			timer.Stop()
			delete(e.pending, key)
			e.deps.Metrics.RecordDelayed("cancelled")
		}
	}
	_, done := e.disarmed[pk]
	e.mu.Unlock()
	if done {
		return
	}

	if err := e.deps.FiredKeys.Reset(ctx, ruleID, entityID); err != nil {
		e.logger.Error("failed to reset fired keys", "rule_id", ruleID, "dispute_id", entityID, "error", err)
		return
	}
	e.mu.Lock()
	e.disarmed[pk] = struct{}{}
	e.mu.Unlock()
}

func (e *Engine) forgetClosed(open map[string]struct{}) {
	e.mu.Lock()
	defer e.mu.Unlock()
	for pk := range e.disarmed {
		entity := pk[strings.LastIndex(pk, "|")+1:]
		if _, ok := open[entity]; !ok {
			delete(e.disarmed, pk)
		}
	}
}

func actorFor(ruleID string) string {
	return "workflow:" + ruleID
}
