package handlers

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/LavaJover/shvark-escrow-service/internal/domain"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// ReadinessCheck reports whether a dependency can serve requests.
type ReadinessCheck func(ctx context.Context) error

type RuleLister interface {
	Rules(ctx context.Context) ([]domain.WorkflowRule, error)
}

// OpsHandler serves health, readiness, metrics and rule introspection. Domain operations
// have no HTTP surface.
type OpsHandler struct {
	checks   map[string]ReadinessCheck
	gatherer prometheus.Gatherer
	rules    RuleLister
	logger   *slog.Logger
}

func NewOpsHandler(checks map[string]ReadinessCheck, gatherer prometheus.Gatherer, rules RuleLister, logger *slog.Logger) *OpsHandler {
	if gatherer == nil {
		gatherer = prometheus.DefaultGatherer
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &OpsHandler{checks: checks, gatherer: gatherer, rules: rules, logger: logger}
}

func (h *OpsHandler) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(10 * time.Second))

	r.Get("/healthz", h.health)
	r.Get("/readyz", h.ready)
	r.Method(http.MethodGet, "/metrics", promhttp.HandlerFor(h.gatherer, promhttp.HandlerOpts{}))
	r.Get("/workflow/rules", h.listRules)
	return r
}

func (h *OpsHandler) health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (h *OpsHandler) ready(w http.ResponseWriter, r *http.Request) {
	failed := map[string]string{}
	for name, check := range h.checks {
		if err := check(r.Context()); err != nil {
			failed[name] = err.Error()
		}
	}
	if len(failed) > 0 {
		h.logger.Warn("readiness check failed", "failed", failed)
		writeJSON(w, http.StatusServiceUnavailable, map[string]any{"status": "unavailable", "failed": failed})
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ready"})
}

func (h *OpsHandler) listRules(w http.ResponseWriter, r *http.Request) {
	if h.rules == nil {
		writeJSON(w, http.StatusOK, []domain.WorkflowRule{})
		return
	}
	rules, err := h.rules.Rules(r.Context())
	if err != nil {
		h.logger.Error("failed to list workflow rules", "error", err)
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{"error": "rules unavailable"})
		return
	}
	writeJSON(w, http.StatusOK, rules)
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}
