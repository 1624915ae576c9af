package response_test

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/clearroute/clearroute/internal/api/middleware"
	"github.com/clearroute/clearroute/internal/api/models"
	"github.com/clearroute/clearroute/internal/api/response"
	"github.com/clearroute/clearroute/internal/congestion"
	"github.com/clearroute/clearroute/internal/incident"
	"github.com/clearroute/clearroute/internal/location"
	"github.com/clearroute/clearroute/internal/routing"
	"github.com/clearroute/clearroute/internal/traffic"
)

// requestWithContext runs a request through the RequestID middleware so the
// context carries a request ID.
func requestWithContext(t *testing.T, method, path string) (*http.Request, *httptest.ResponseRecorder) {
	t.Helper()

	var processed *http.Request
	handler := middleware.RequestID(http.HandlerFunc(func(_ http.ResponseWriter, r *http.Request) {
		processed = r
	}))
	handler.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(method, path, http.NoBody))

	return processed, httptest.NewRecorder()
}

func TestJSON_IncludesRequestID(t *testing.T) {
	req, rec := requestWithContext(t, http.MethodGet, "/test")

	response.JSON(rec, req, http.StatusOK, map[string]string{"message": "hello"})

	if rec.Code != http.StatusOK {
		t.Errorf("expected status 200, got %d", rec.Code)
	}
	if got := rec.Header().Get("X-Request-Id"); got == "" {
		t.Error("expected X-Request-Id header to be set")
	}
	if got := rec.Header().Get("Content-Type"); got != "application/json" {
		t.Errorf("expected Content-Type application/json, got %q", got)
	}
}

func TestJSON_WithoutRequestID(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/test", http.NoBody)
	rec := httptest.NewRecorder()

	response.JSON(rec, req, http.StatusOK, nil)

	if got := rec.Header().Get("X-Request-Id"); got != "" {
		t.Errorf("expected no X-Request-Id header, got %q", got)
	}
	if rec.Body.Len() != 0 {
		t.Errorf("expected empty body, got %q", rec.Body.String())
	}
}

func TestBadRequest(t *testing.T) {
	req, rec := requestWithContext(t, http.MethodPost, "/predict")

	response.BadRequest(rec, req, "invalid body", []models.FieldError{{Field: "from", Message: "from is required"}})

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	var problem models.Problem
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &problem))
	assert.Equal(t, "/predict", problem.Instance)
	assert.Equal(t, "invalid body", problem.Error)
	assert.Equal(t, rec.Header().Get("X-Request-Id"), problem.TraceID)
	require.Len(t, problem.Errors, 1)
	assert.Equal(t, "from", problem.Errors[0].Field)
}

func TestProblemFor(t *testing.T) {
	routingErr := &routing.Error{Provider: "osrm", Code: "NoRoute", Message: "no route", Err: routing.ErrNoRouteFound}

	tests := []struct {
		name   string
		err    error
		status int
		typ    string
	}{
		{"invalid location", fmt.Errorf("resolve from: %w", location.ErrInvalidLocation), 400, models.ProblemTypeInvalidLocation},
		{"geocoder down", location.ErrGeocoderUnavailable, 503, models.ProblemTypeUnavailable},
		{"no route", routingErr, 404, models.ProblemTypeNoRoute},
		{"routing down", &routing.Error{Provider: "osrm", Err: routing.ErrProviderUnavailable}, 503, models.ProblemTypeUnavailable},
		{"routing rate limited", routing.ErrRateLimitExceeded, 503, models.ProblemTypeUnavailable},
		{"no segments", traffic.ErrNoSegments, 404, models.ProblemTypeNotFound},
		{"traffic down", traffic.ErrProviderUnavailable, 503, models.ProblemTypeUnavailable},
		{"scoring unavailable", congestion.ErrScoringUnavailable, 503, models.ProblemTypeUnavailable},
		{"no viable route", congestion.ErrNoViableRoute, 400, models.ProblemTypeNoTrafficData},
		{"no segments for route", congestion.ErrNoSegmentsForRoute, 400, models.ProblemTypeNoTrafficData},
		{"bad severity filter", fmt.Errorf("%w: %q", incident.ErrInvalidSeverity, "x"), 400, models.ProblemTypeValidation},
		{"incident feed down", incident.ErrSourceUnavailable, 503, models.ProblemTypeUnavailable},
		{"unknown", errors.New("database exploded"), 500, models.ProblemTypeInternal},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := response.ProblemFor("req_1", tt.err)
			assert.Equal(t, tt.status, p.Status)
			assert.Equal(t, tt.typ, p.Type)
			assert.Equal(t, "req_1", p.TraceID)
			assert.NotContains(t, p.Detail, "database exploded")
		})
	}
}

func TestFromError_LogsServerErrors(t *testing.T) {
	var buf bytes.Buffer
	req, rec := requestWithContext(t, http.MethodPost, "/predict")

	response.FromError(rec, req, traffic.ErrProviderUnavailable, zerolog.New(&buf))

	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	assert.Equal(t, "application/problem+json", rec.Header().Get("Content-Type"))
	assert.Contains(t, buf.String(), `"level":"error"`)
	assert.Contains(t, buf.String(), `"status":503`)
}

func TestFromError_ClientErrorsAtWarn(t *testing.T) {
	var buf bytes.Buffer
	req, rec := requestWithContext(t, http.MethodPost, "/predict")

	response.FromError(rec, req, location.ErrInvalidLocation, zerolog.New(&buf))

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, buf.String(), `"level":"warn"`)
}
