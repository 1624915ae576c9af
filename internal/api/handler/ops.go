package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/sony/gobreaker/v2"

	"github.com/clearroute/clearroute/internal/api/models"
	"github.com/clearroute/clearroute/internal/api/response"
	"github.com/clearroute/clearroute/internal/provider/resilience"
)

// defaultCheckTimeout bounds each readiness probe.
const defaultCheckTimeout = 2 * time.Second

// Check probes one subsystem. A failing Critical check makes the service not
// ready; other failures only degrade it.
type Check struct {
	Name     string
	Critical bool
	Probe    func(ctx context.Context) error
}

// OpsConfig holds configuration for the OpsHandler.
type OpsConfig struct {
	Version   string
	BuildTime string

	// Registry reports upstream provider circuit state (optional).
	Registry *resilience.Registry

	Checks []Check

	// CheckTimeout bounds each probe (default: 2s).
	CheckTimeout time.Duration
}

// OpsHandler handles operational endpoints.
type OpsHandler struct {
	version   string
	buildTime string
	registry  *resilience.Registry
	checks    []Check
	timeout   time.Duration
}

// NewOpsHandler creates a new OpsHandler.
func NewOpsHandler(cfg OpsConfig) *OpsHandler {
	timeout := cfg.CheckTimeout
	if timeout == 0 {
		timeout = defaultCheckTimeout
	}
	return &OpsHandler{
		version:   cfg.Version,
		buildTime: cfg.BuildTime,
		registry:  cfg.Registry,
		checks:    cfg.Checks,
		timeout:   timeout,
	}
}

// HealthCheck handles GET /v1/ops/health - liveness check.
func (h *OpsHandler) HealthCheck(w http.ResponseWriter, r *http.Request) {
	response.JSON(w, r, http.StatusOK, models.Health{
		Status: models.HealthStatusOK,
		Time:   models.Timestamp(time.Now()),
		Details: map[string]interface{}{
			"version":   h.version,
			"buildTime": h.buildTime,
		},
	})
}

// ReadinessCheck handles GET /v1/ops/ready. It returns 503 when a critical
// subsystem fails.
func (h *OpsHandler) ReadinessCheck(w http.ResponseWriter, r *http.Request) {
	subsystems := h.runChecks(r.Context())

	status := models.HealthStatusOK
	details := make(map[string]interface{}, len(subsystems))
	for _, s := range subsystems {
		details[s.Name] = s.Status
		status = worst(status, s.Status)
	}

	code := http.StatusOK
	if status == models.HealthStatusFail {
		code = http.StatusServiceUnavailable
	}

	response.JSON(w, r, code, models.Health{
		Status:  status,
		Time:    models.Timestamp(time.Now()),
		Details: details,
	})
}

// SystemStatus handles GET /v1/ops/status - provider and subsystem status.
func (h *OpsHandler) SystemStatus(w http.ResponseWriter, r *http.Request) {
	subsystems := h.runChecks(r.Context())
	providers := h.providerStatuses()

	status := models.HealthStatusOK
	for _, s := range subsystems {
		status = worst(status, s.Status)
	}
	for _, p := range providers {
		// A tripped provider breaks predictions but not the process.
		status = worst(status, capAtDegraded(p.Status))
	}

	response.JSON(w, r, http.StatusOK, models.SystemStatus{
		Status:     status,
		Time:       models.Timestamp(time.Now()),
		Subsystems: subsystems,
		Providers:  providers,
	})
}

func (h *OpsHandler) runChecks(ctx context.Context) []models.SubsystemStatus {
	out := make([]models.SubsystemStatus, 0, len(h.checks))
	for _, c := range h.checks {
		checkCtx, cancel := context.WithTimeout(ctx, h.timeout)
		err := c.Probe(checkCtx)
		cancel()

		s := models.SubsystemStatus{Name: c.Name, Status: models.HealthStatusOK}
		if err != nil {
			msg := err.Error()
			s.Detail = &msg
			s.Status = models.HealthStatusDegraded
			if c.Critical {
				s.Status = models.HealthStatusFail
			}
		}
		out = append(out, s)
	}
	return out
}

func (h *OpsHandler) providerStatuses() []models.ProviderStatus {
	if h.registry == nil {
		return []models.ProviderStatus{}
	}

	all := h.registry.GetAllHealth()
	out := make([]models.ProviderStatus, 0, len(all))
	for _, p := range all {
		ps := models.ProviderStatus{
			Provider:     p.Name,
			Status:       providerHealthStatus(p),
			CircuitState: p.CircuitState.String(),
			Requests:     p.Counts.Requests,
			Failures:     p.Counts.TotalFailures,
		}
		if p.LastSuccessAt != nil {
			ts := models.Timestamp(*p.LastSuccessAt)
			ps.LastSuccessAt = &ts
		}
		if p.LastFailureAt != nil {
			ts := models.Timestamp(*p.LastFailureAt)
			ps.LastFailureAt = &ts
		}
		if p.LastError != "" {
			msg := p.LastError
			ps.Message = &msg
		}
		out = append(out, ps)
	}
	return out
}

func providerHealthStatus(p *resilience.ProviderHealth) models.HealthStatus {
	switch p.CircuitState {
	case gobreaker.StateOpen:
		return models.HealthStatusFail
	case gobreaker.StateHalfOpen:
		return models.HealthStatusDegraded
	default:
		return models.HealthStatusOK
	}
}

var healthRank = map[models.HealthStatus]int{
	models.HealthStatusOK:       0,
	models.HealthStatusDegraded: 1,
	models.HealthStatusFail:     2,
}

func worst(a, b models.HealthStatus) models.HealthStatus {
	if healthRank[b] > healthRank[a] {
		return b
	}
	return a
}

func capAtDegraded(s models.HealthStatus) models.HealthStatus {
	if s == models.HealthStatusFail {
		return models.HealthStatusDegraded
	}
	return s
}
