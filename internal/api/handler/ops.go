package handler

import (
	"context"
	"net/http"

	"github.com/jonboulle/clockwork"

	"github.com/skitourlive/skitourlive/internal/api/models"
	"github.com/skitourlive/skitourlive/internal/api/response"
	"github.com/skitourlive/skitourlive/internal/featureflags"
	"github.com/skitourlive/skitourlive/internal/provider/resilience"
)

// OpsHandlerConfig holds dependencies for the OpsHandler.
type OpsHandlerConfig struct {
	Version   string
	BuildTime string
	Sessions  Sessions
	Registry  *resilience.Registry
	Flags     *featureflags.Service
	Clock     clockwork.Clock
}

// OpsHandler handles operational endpoints.
type OpsHandler struct {
	version   string
	buildTime string
	sessions  Sessions
	registry  *resilience.Registry
	flags     *featureflags.Service
	clock     clockwork.Clock
}

// NewOpsHandler creates a new OpsHandler.
func NewOpsHandler(cfg OpsHandlerConfig) *OpsHandler {
	clock := cfg.Clock
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	return &OpsHandler{
		version:   cfg.Version,
		buildTime: cfg.BuildTime,
		sessions:  cfg.Sessions,
		registry:  cfg.Registry,
		flags:     cfg.Flags,
		clock:     clock,
	}
}

// HealthCheck handles GET /v1/ops/health - liveness check.
func (h *OpsHandler) HealthCheck(w http.ResponseWriter, r *http.Request) {
	health := models.Health{
		Status: models.HealthStatusOK,
		Time:   models.Timestamp(h.clock.Now()),
		Details: map[string]interface{}{
			"version":   h.version,
			"buildTime": h.buildTime,
		},
	}
	response.JSON(w, r, http.StatusOK, health)
}

// ReadinessCheck handles GET /v1/ops/ready - 503 until a dataset session is loaded.
func (h *OpsHandler) ReadinessCheck(w http.ResponseWriter, r *http.Request) {
	health := models.Health{
		Status: models.HealthStatusOK,
		Time:   models.Timestamp(h.clock.Now()),
	}
	if h.sessions == nil || !h.sessions.Ready() {
		health.Status = models.HealthStatusFail
		health.Details = map[string]interface{}{"dataset": "not loaded"}
		response.JSON(w, r, http.StatusServiceUnavailable, health)
		return
	}
	response.JSON(w, r, http.StatusOK, health)
}

// SystemStatus handles GET /v1/ops/status - dataset, cache and component status.
func (h *OpsHandler) SystemStatus(w http.ResponseWriter, r *http.Request) {
	status := models.SystemStatus{
		Status:                 models.HealthStatusOK,
		Time:                   models.Timestamp(h.clock.Now()),
		Components:             h.components(),
		ActiveDegradationFlags: h.degradationFlags(r.Context()),
	}

	if h.sessions != nil {
		if s, err := h.sessions.Current(); err == nil {
			ds := datasetStatus(s.Stats)
			status.Dataset = &ds
			cs := s.Weather.CacheStats()
			status.Cache = &models.CacheStatus{
				DailyEntries:  cs.DailyEntries,
				WindowEntries: cs.WindowEntries,
				Hits:          cs.Hits,
				Misses:        cs.Misses,
			}
		}
	}

	switch {
	case status.Dataset == nil:
		status.Status = models.HealthStatusFail
	case len(status.ActiveDegradationFlags) > 0:
		status.Status = models.HealthStatusDegraded
	default:
		for _, c := range status.Components {
			if c.Status != models.HealthStatusOK {
				status.Status = models.HealthStatusDegraded
				break
			}
		}
	}

	response.JSON(w, r, http.StatusOK, status)
}

func (h *OpsHandler) components() []models.ComponentStatus {
	out := []models.ComponentStatus{}
	if h.registry == nil {
		return out
	}
	for _, ch := range h.registry.GetAllHealth() {
		cs := models.ComponentStatus{
			Name:                ch.Name,
			Status:              componentHealth(ch),
			State:               ch.CircuitState.String(),
			ConsecutiveFailures: ch.Counts.ConsecutiveFailures,
		}
		if ch.LastSuccessAt != nil {
			t := models.Timestamp(*ch.LastSuccessAt)
			cs.LastSuccessAt = &t
		}
		if ch.LastFailureAt != nil {
			t := models.Timestamp(*ch.LastFailureAt)
			cs.LastFailureAt = &t
		}
		out = append(out, cs)
	}
	return out
}

func componentHealth(ch *resilience.ComponentHealth) models.HealthStatus {
	switch {
	case ch.IsUnhealthy():
		return models.HealthStatusFail
	case ch.IsDegraded():
		return models.HealthStatusDegraded
	default:
		return models.HealthStatusOK
	}
}

func (h *OpsHandler) degradationFlags(ctx context.Context) []string {
	var active []string
	if h.flags.IsMLModelDisabled(ctx) {
		active = append(active, featureflags.FlagDisableMLModel)
	}
	return active
}
