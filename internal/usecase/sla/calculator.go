package sla

import (
	"time"

	"github.com/LavaJover/shvark-escrow-service/internal/domain"
)

// DefaultConfig is used for any priority missing from the configured thresholds.
var DefaultConfig = map[domain.DisputePriority]domain.SLAConfig{
	domain.PriorityLow:    {MaxHours: 168, EscalationHours: 120, AutoResolveHours: 336},
	domain.PriorityMedium: {MaxHours: 72, EscalationHours: 48, AutoResolveHours: 168},
	domain.PriorityHigh:   {MaxHours: 48, EscalationHours: 24, AutoResolveHours: 96},
	domain.PriorityUrgent: {MaxHours: 24, EscalationHours: 12, AutoResolveHours: 48},
}

type Result struct {
	ElapsedHours float64
	Status       domain.SLAStatus
}

// Calculator is pure: the same inputs always give the same result.
type Calculator struct {
	config map[domain.DisputePriority]domain.SLAConfig
}

func NewCalculator(config map[domain.DisputePriority]domain.SLAConfig) *Calculator {
	merged := make(map[domain.DisputePriority]domain.SLAConfig, len(DefaultConfig))
	for p, c := range DefaultConfig {
		merged[p] = c
	}
	for p, c := range config {
		if c.MaxHours > 0 {
			merged[p] = c
		}
	}
	return &Calculator{config: merged}
}

func (c *Calculator) Config(priority domain.DisputePriority) domain.SLAConfig {
	if cfg, ok := c.config[priority]; ok {
		return cfg
	}
	return c.config[domain.PriorityMedium]
}

func (c *Calculator) Calculate(priority domain.DisputePriority, createdAt, now time.Time) Result {
	elapsed := now.Sub(createdAt).Seconds() / 3600
	cfg := c.Config(priority)

	status := domain.SLAOnTime
	switch {
	case elapsed > cfg.MaxHours:
		status = domain.SLAOverdue
	case elapsed > cfg.EscalationHours:
		status = domain.SLAAtRisk
	}
	return Result{ElapsedHours: elapsed, Status: status}
}

// View derives the SLA fields of a dispute at now. Resolved disputes stop their clock at
// ResolvedAt.
func (c *Calculator) View(d *domain.Dispute, now time.Time) domain.DisputeView {
	stop := now
	if d.ResolvedAt != nil {
		stop = *d.ResolvedAt
	}
	res := c.Calculate(d.Priority, d.CreatedAt, stop)
	elapsedNow := now.Sub(d.CreatedAt).Hours()

	return domain.DisputeView{
		Dispute:               d,
		SLAStatus:             res.Status,
		ElapsedHours:          elapsedNow,
		TimeToResolutionHours: res.ElapsedHours,
		HoursSinceUpdate:      now.Sub(d.UpdatedAt).Hours(),
		AutoResolveDue:        elapsedNow > c.Config(d.Priority).AutoResolveHours,
	}
}
