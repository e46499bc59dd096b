package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// EscrowMetrics holds the service's collectors. A nil *EscrowMetrics records nothing.
type EscrowMetrics struct {
	// Transaction state machine
	TransitionsTotal *prometheus.CounterVec

	// Workflow engine ticks
	TicksTotal   *prometheus.CounterVec
	TickDuration prometheus.Histogram

	// Actions
	ActionsTotal        *prometheus.CounterVec
	DedupeSkipsTotal    *prometheus.CounterVec
	DelayedActionsTotal *prometheus.CounterVec

	// Escalation matrix
	EscalationsTotal *prometheus.CounterVec

	// Admin balancer
	AdminAssignmentsTotal *prometheus.CounterVec

	// Open disputes by SLA status, refreshed every tick
	OpenDisputes *prometheus.GaugeVec
}

// NewEscrowMetrics registers the collectors on reg, or on the default registerer when reg is nil.
func NewEscrowMetrics(reg prometheus.Registerer) *EscrowMetrics {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	factory := promauto.With(reg)

	return &EscrowMetrics{
		TransitionsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "escrow_transitions_total",
				Help: "Transaction transitions by action and result",
			},
			[]string{"action", "result"},
		),

		TicksTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "workflow_ticks_total",
				Help: "Workflow engine passes by result",
			},
			[]string{"result"},
		),

		TickDuration: factory.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "workflow_tick_duration_seconds",
				Help:    "Duration of one full pass over open disputes",
				Buckets: prometheus.ExponentialBuckets(0.01, 2, 12),
			},
		),

		ActionsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "workflow_actions_total",
				Help: "Executed workflow actions by type and result",
			},
			[]string{"type", "result"},
		),

		DedupeSkipsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "workflow_dedupe_skips_total",
				Help: "Actions skipped because their fired key was already recorded",
			},
			[]string{"rule_id"},
		),

		DelayedActionsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "workflow_delayed_actions_total",
				Help: "Delayed actions by outcome (scheduled, fired, cancelled)",
			},
			[]string{"outcome"},
		),

		EscalationsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "dispute_escalations_total",
				Help: "Dispute escalations by kind",
			},
			[]string{"kind", "to"},
		),

		AdminAssignmentsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "admin_assignments_total",
				Help: "Admin assignment attempts by result",
			},
			[]string{"result"},
		),

		OpenDisputes: factory.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "disputes_open",
				Help: "Disputes not yet closed, by SLA status",
			},
			[]string{"sla_status"},
		),
	}
}

func (m *EscrowMetrics) RecordTransition(action, result string) {
	if m == nil {
		return
	}
	m.TransitionsTotal.WithLabelValues(action, result).Inc()
}

func (m *EscrowMetrics) RecordTick(result string, seconds float64) {
	if m == nil {
		return
	}
	m.TicksTotal.WithLabelValues(result).Inc()
	m.TickDuration.Observe(seconds)
}

func (m *EscrowMetrics) RecordAction(actionType, result string) {
	if m == nil {
		return
	}
	m.ActionsTotal.WithLabelValues(actionType, result).Inc()
}

func (m *EscrowMetrics) RecordDedupeSkip(ruleID string) {
	if m == nil {
		return
	}
	m.DedupeSkipsTotal.WithLabelValues(ruleID).Inc()
}

func (m *EscrowMetrics) RecordDelayed(outcome string) {
	if m == nil {
		return
	}
	m.DelayedActionsTotal.WithLabelValues(outcome).Inc()
}

func (m *EscrowMetrics) RecordEscalation(kind, to string) {
	if m == nil {
		return
	}
	m.EscalationsTotal.WithLabelValues(kind, to).Inc()
}

func (m *EscrowMetrics) RecordAssignment(result string) {
	if m == nil {
		return
	}
	m.AdminAssignmentsTotal.WithLabelValues(result).Inc()
}

// SetOpenDisputes replaces the open dispute gauge with counts keyed by SLA status.
func (m *EscrowMetrics) SetOpenDisputes(counts map[string]int) {
	if m == nil {
		return
	}
	m.OpenDisputes.Reset()
	for status, n := range counts {
		m.OpenDisputes.WithLabelValues(status).Set(float64(n))
	}
}
