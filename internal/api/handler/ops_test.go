package handler_test

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/clearroute/clearroute/internal/api/handler"
	"github.com/clearroute/clearroute/internal/api/models"
	"github.com/clearroute/clearroute/internal/provider/resilience"
)

func okProbe(context.Context) error { return nil }

func failProbe(msg string) func(context.Context) error {
	return func(context.Context) error { return errors.New(msg) }
}

func TestOpsHandler_HealthCheck(t *testing.T) {
	h := handler.NewOpsHandler(handler.OpsConfig{Version: "1.0.0", BuildTime: "2025-10-09"})
	rec := serve(h.HealthCheck, httptest.NewRequest(http.MethodGet, "/v1/ops/health", http.NoBody))

	require.Equal(t, http.StatusOK, rec.Code)
	var body models.Health
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, models.HealthStatusOK, body.Status)
	assert.Equal(t, "1.0.0", body.Details["version"])
}

func TestOpsHandler_ReadinessCheck(t *testing.T) {
	tests := []struct {
		name       string
		checks     []handler.Check
		wantCode   int
		wantStatus models.HealthStatus
	}{
		{"all ok", []handler.Check{{Name: "model", Critical: true, Probe: okProbe}}, http.StatusOK, models.HealthStatusOK},
		{"optional failure degrades", []handler.Check{
			{Name: "model", Critical: true, Probe: okProbe},
			{Name: "incidents", Probe: failProbe("stale")},
		}, http.StatusOK, models.HealthStatusDegraded},
		{"critical failure", []handler.Check{
			{Name: "model", Critical: true, Probe: failProbe("not loaded")},
		}, http.StatusServiceUnavailable, models.HealthStatusFail},
		{"no checks", nil, http.StatusOK, models.HealthStatusOK},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := handler.NewOpsHandler(handler.OpsConfig{Checks: tt.checks})
			rec := serve(h.ReadinessCheck, httptest.NewRequest(http.MethodGet, "/v1/ops/ready", http.NoBody))

			assert.Equal(t, tt.wantCode, rec.Code)
			var body models.Health
			require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
			assert.Equal(t, tt.wantStatus, body.Status)
		})
	}
}

func TestOpsHandler_ReadinessCheck_TimesOut(t *testing.T) {
	h := handler.NewOpsHandler(handler.OpsConfig{
		CheckTimeout: 1,
		Checks: []handler.Check{{Name: "database", Critical: true, Probe: func(ctx context.Context) error {
			<-ctx.Done()
			return ctx.Err()
		}}},
	})
	rec := serve(h.ReadinessCheck, httptest.NewRequest(http.MethodGet, "/v1/ops/ready", http.NoBody))

	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

func TestOpsHandler_SystemStatus(t *testing.T) {
	registry := resilience.NewRegistry()
	resilience.NewClient(resilience.ClientConfig{Name: "osrm", Registry: registry})
	resilience.NewClient(resilience.ClientConfig{Name: "lta", Registry: registry})
	registry.RecordSuccess("osrm")
	registry.RecordFailure("lta", errors.New("upstream 500"))

	h := handler.NewOpsHandler(handler.OpsConfig{
		Registry: registry,
		Checks: []handler.Check{
			{Name: "model", Critical: true, Probe: okProbe},
			{Name: "incidents", Probe: failProbe("no refresh yet")},
		},
	})
	rec := serve(h.SystemStatus, httptest.NewRequest(http.MethodGet, "/v1/ops/status", http.NoBody))

	require.Equal(t, http.StatusOK, rec.Code)
	var body models.SystemStatus
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))

	assert.Equal(t, models.HealthStatusDegraded, body.Status)

	require.Len(t, body.Subsystems, 2)
	assert.Equal(t, models.HealthStatusOK, body.Subsystems[0].Status)
	require.NotNil(t, body.Subsystems[1].Detail)
	assert.Equal(t, "no refresh yet", *body.Subsystems[1].Detail)

	require.Len(t, body.Providers, 2)
	assert.Equal(t, "lta", body.Providers[0].Provider)
	assert.Equal(t, "closed", body.Providers[0].CircuitState)
	require.NotNil(t, body.Providers[0].Message)
	assert.Equal(t, "upstream 500", *body.Providers[0].Message)
	assert.NotNil(t, body.Providers[0].LastFailureAt)
	assert.Equal(t, "osrm", body.Providers[1].Provider)
	assert.NotNil(t, body.Providers[1].LastSuccessAt)
}

func TestOpsHandler_SystemStatus_NoRegistry(t *testing.T) {
	h := handler.NewOpsHandler(handler.OpsConfig{})
	rec := serve(h.SystemStatus, httptest.NewRequest(http.MethodGet, "/v1/ops/status", http.NoBody))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"providers":[]`)
}
