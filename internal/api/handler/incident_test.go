package handler_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/clearroute/clearroute/internal/api/handler"
	"github.com/clearroute/clearroute/internal/api/models"
	"github.com/clearroute/clearroute/internal/incident"
)

type fakeIncidents struct {
	items     []incident.Incident
	opts      incident.ListOptions
	stats     *incident.Stats
	last      *incident.RefreshResult
	err       error
	refreshes int
}

func (f *fakeIncidents) ListActive(_ context.Context, opts incident.ListOptions) ([]incident.Incident, error) {
	f.opts = opts
	return f.items, f.err
}

func (f *fakeIncidents) Stats(context.Context) (*incident.Stats, error) {
	return f.stats, f.err
}

func (f *fakeIncidents) Refresh(context.Context) (*incident.RefreshResult, error) {
	f.refreshes++
	if f.err != nil {
		return nil, f.err
	}
	return f.last, nil
}

func (f *fakeIncidents) LastRefresh() *incident.RefreshResult { return f.last }

func TestListIncidents(t *testing.T) {
	fake := &fakeIncidents{items: []incident.Incident{
		incident.FromReport(incident.Report{Type: "Accident", Message: "Accident on PIE"}, time.Now(), time.Hour),
	}}
	h := handler.NewIncidentHandler(fake, zerolog.Nop())

	rec := serve(h.ListIncidents, httptest.NewRequest(http.MethodGet, "/v1/incidents?severity=high&limit=10", http.NoBody))

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, incident.SeverityHigh, fake.opts.Severity)
	assert.Equal(t, 10, fake.opts.Limit)

	var body models.IncidentList
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, 1, body.Count)
	assert.Equal(t, incident.SeverityHigh, body.Items[0].Severity)
}

func TestListIncidents_EmptyIsArray(t *testing.T) {
	h := handler.NewIncidentHandler(&fakeIncidents{}, zerolog.Nop())
	rec := serve(h.ListIncidents, httptest.NewRequest(http.MethodGet, "/v1/incidents", http.NoBody))

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"items":[]`)
}

func TestListIncidents_BadQuery(t *testing.T) {
	tests := []struct {
		name  string
		query string
		field string
	}{
		{"unknown severity", "severity=catastrophic", "severity"},
		{"limit not a number", "limit=ten", "limit"},
		{"limit too large", "limit=501", "limit"},
		{"limit zero", "limit=0", "limit"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := handler.NewIncidentHandler(&fakeIncidents{}, zerolog.Nop())
			rec := serve(h.ListIncidents, httptest.NewRequest(http.MethodGet, "/v1/incidents?"+tt.query, http.NoBody))

			assert.Equal(t, http.StatusBadRequest, rec.Code)
			p := decodeProblem(t, rec)
			require.Len(t, p.Errors, 1)
			assert.Equal(t, tt.field, p.Errors[0].Field)
		})
	}
}

func TestIncidentStats(t *testing.T) {
	refreshed := time.Date(2025, 10, 9, 1, 0, 0, 0, time.UTC)
	fake := &fakeIncidents{
		stats: &incident.Stats{Active: 3, BySeverity: map[incident.Severity]int{incident.SeverityHigh: 1, incident.SeverityLow: 2}},
		last:  &incident.RefreshResult{Fetched: 3, Upserted: 3, Refreshed: refreshed},
	}
	h := handler.NewIncidentHandler(fake, zerolog.Nop())

	rec := serve(h.Stats, httptest.NewRequest(http.MethodGet, "/v1/admin/incidents/stats", http.NoBody))

	require.Equal(t, http.StatusOK, rec.Code)
	var body map[string]interface{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, float64(3), body["active"])
	assert.Contains(t, body, "bySeverity")
	last, ok := body["lastRefresh"].(map[string]interface{})
	require.True(t, ok)
	assert.Equal(t, float64(3), last["fetched"])
}

func TestIncidentRefresh(t *testing.T) {
	fake := &fakeIncidents{last: &incident.RefreshResult{Fetched: 4, Upserted: 4, Expired: 1}}
	h := handler.NewIncidentHandler(fake, zerolog.Nop())

	rec := serve(h.Refresh, httptest.NewRequest(http.MethodPost, "/v1/admin/incidents/refresh", http.NoBody))

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 1, fake.refreshes)
	var body incident.RefreshResult
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, 4, body.Fetched)
	assert.Equal(t, 1, body.Expired)
}

func TestIncidentRefresh_SourceDown(t *testing.T) {
	h := handler.NewIncidentHandler(&fakeIncidents{err: incident.ErrSourceUnavailable}, zerolog.Nop())
	rec := serve(h.Refresh, httptest.NewRequest(http.MethodPost, "/v1/admin/incidents/refresh", http.NoBody))

	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}
