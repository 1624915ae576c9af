package handler

import (
	"context"
	"net/http"
	"strconv"

	"github.com/rs/zerolog"

	"github.com/clearroute/clearroute/internal/api/middleware"
	"github.com/clearroute/clearroute/internal/api/models"
	"github.com/clearroute/clearroute/internal/api/response"
	"github.com/clearroute/clearroute/internal/incident"
)

// maxIncidentLimit caps the limit query parameter.
const maxIncidentLimit = 500

// IncidentService is the incident read/refresh surface. *incident.Service
// implements it.
type IncidentService interface {
	ListActive(ctx context.Context, opts incident.ListOptions) ([]incident.Incident, error)
	Stats(ctx context.Context) (*incident.Stats, error)
	Refresh(ctx context.Context) (*incident.RefreshResult, error)
	LastRefresh() *incident.RefreshResult
}

// IncidentHandler handles the public and admin incident endpoints.
type IncidentHandler struct {
	service IncidentService
	logger  zerolog.Logger
}

// NewIncidentHandler creates a new IncidentHandler.
func NewIncidentHandler(service IncidentService, logger zerolog.Logger) *IncidentHandler {
	return &IncidentHandler{service: service, logger: logger}
}

// ListIncidents handles GET /v1/incidents?severity=&limit=.
func (h *IncidentHandler) ListIncidents(w http.ResponseWriter, r *http.Request) {
	var opts incident.ListOptions

	q := r.URL.Query()
	if raw := q.Get("severity"); raw != "" {
		sev, err := incident.ParseSeverity(raw)
		if err != nil {
			response.FromError(w, r, err, h.logger)
			return
		}
		opts.Severity = sev
	}
	if raw := q.Get("limit"); raw != "" {
		limit, err := strconv.Atoi(raw)
		if err != nil || limit < 1 || limit > maxIncidentLimit {
			response.BadRequest(w, r, "limit must be between 1 and 500", []models.FieldError{
				{Field: "limit", Message: "must be an integer between 1 and 500", Code: "OUT_OF_RANGE"},
			})
			return
		}
		opts.Limit = limit
	}

	items, err := h.service.ListActive(r.Context(), opts)
	if err != nil {
		response.FromError(w, r, err, h.logger)
		return
	}
	if items == nil {
		items = []incident.Incident{}
	}

	response.JSON(w, r, http.StatusOK, models.IncidentList{Items: items, Count: len(items)})
}

// Stats handles GET /v1/admin/incidents/stats.
func (h *IncidentHandler) Stats(w http.ResponseWriter, r *http.Request) {
	stats, err := h.service.Stats(r.Context())
	if err != nil {
		response.FromError(w, r, err, h.logger)
		return
	}

	response.JSON(w, r, http.StatusOK, models.IncidentStats{
		Stats:       *stats,
		LastRefresh: h.service.LastRefresh(),
	})
}

// Refresh handles POST /v1/admin/incidents/refresh by running one ingestion
// pass synchronously.
func (h *IncidentHandler) Refresh(w http.ResponseWriter, r *http.Request) {
	result, err := h.service.Refresh(r.Context())
	if err != nil {
		response.FromError(w, r, err, h.logger)
		return
	}

	h.logger.Info().
		Str("subject", middleware.GetSubject(r.Context())).
		Int("fetched", result.Fetched).
		Int("expired", result.Expired).
		Msg("manual incident refresh")

	response.JSON(w, r, http.StatusOK, result)
}
