// Package response provides utilities for HTTP response handling.
package response

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/rs/zerolog"

	"github.com/clearroute/clearroute/internal/api/middleware"
	"github.com/clearroute/clearroute/internal/api/models"
	"github.com/clearroute/clearroute/internal/congestion"
	"github.com/clearroute/clearroute/internal/incident"
	"github.com/clearroute/clearroute/internal/location"
	"github.com/clearroute/clearroute/internal/routing"
	"github.com/clearroute/clearroute/internal/traffic"
)

// JSON writes a JSON response with the given status code.
// Includes X-Request-Id header for correlation.
func JSON(w http.ResponseWriter, r *http.Request, status int, data interface{}) {
	requestID := middleware.GetRequestID(r.Context())
	if requestID != "" {
		w.Header().Set("X-Request-Id", requestID)
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if data != nil {
		_ = json.NewEncoder(w).Encode(data)
	}
}

// Error writes a Problem+JSON error response.
func Error(w http.ResponseWriter, r *http.Request, problem *models.Problem) {
	problem.Instance = r.URL.Path
	problem.Write(w)
}

// BadRequest writes a 400 Bad Request error response.
func BadRequest(w http.ResponseWriter, r *http.Request, detail string, errors []models.FieldError) {
	traceID := middleware.GetRequestID(r.Context())
	Error(w, r, models.NewBadRequest(traceID, detail, errors))
}

// NotFound writes a 404 Not Found error response.
func NotFound(w http.ResponseWriter, r *http.Request, detail string) {
	traceID := middleware.GetRequestID(r.Context())
	Error(w, r, models.NewNotFound(traceID, detail))
}

// InternalError writes a 500 Internal Server Error response.
func InternalError(w http.ResponseWriter, r *http.Request, detail string) {
	traceID := middleware.GetRequestID(r.Context())
	Error(w, r, models.NewInternalError(traceID, detail))
}

// ServiceUnavailable writes a 503 Service Unavailable error response.
func ServiceUnavailable(w http.ResponseWriter, r *http.Request, detail string) {
	traceID := middleware.GetRequestID(r.Context())
	Error(w, r, models.NewServiceUnavailable(traceID, detail))
}

// ProblemFor maps a domain error to its problem response. Unknown errors
// become a 500 without leaking the underlying message.
func ProblemFor(traceID string, err error) *models.Problem {
	switch {
	case errors.Is(err, location.ErrInvalidLocation):
		return models.NewInvalidLocation(traceID, err.Error())
	case errors.Is(err, location.ErrGeocoderUnavailable):
		return models.NewServiceUnavailable(traceID, "geocoding service is unavailable")

	case errors.Is(err, routing.ErrNoRouteFound):
		return models.NewNoRoute(traceID, "no route found between the given locations")
	case errors.Is(err, routing.ErrInvalidCoordinates):
		return models.NewInvalidLocation(traceID, err.Error())
	case errors.Is(err, routing.ErrProviderUnavailable), errors.Is(err, routing.ErrRateLimitExceeded):
		return models.NewServiceUnavailable(traceID, "routing service is unavailable")

	case errors.Is(err, traffic.ErrNoSegments):
		return models.NewNotFound(traceID, "no live traffic data is available")
	case errors.Is(err, traffic.ErrProviderUnavailable):
		return models.NewServiceUnavailable(traceID, "traffic data service is unavailable")

	case errors.Is(err, congestion.ErrScoringUnavailable):
		return models.NewServiceUnavailable(traceID, "congestion model is unavailable")
	case errors.Is(err, congestion.ErrNoSegmentsForRoute), errors.Is(err, congestion.ErrNoViableRoute):
		return models.NewNoTrafficData(traceID, "no traffic data could be matched to any route")

	case errors.Is(err, incident.ErrInvalidSeverity):
		return models.NewBadRequest(traceID, err.Error(), []models.FieldError{
			{Field: "severity", Message: "must be one of HIGH, MEDIUM, LOW, UNKNOWN", Code: "INVALID"},
		})
	case errors.Is(err, incident.ErrSourceUnavailable):
		return models.NewServiceUnavailable(traceID, "incident feed is unavailable")
	}

	return models.NewInternalError(traceID, "an unexpected error occurred")
}

// FromError writes the problem for err. Server-side failures are logged.
func FromError(w http.ResponseWriter, r *http.Request, err error, log zerolog.Logger) {
	traceID := middleware.GetRequestID(r.Context())
	problem := ProblemFor(traceID, err)

	event := log.Warn()
	if problem.Status >= http.StatusInternalServerError {
		event = log.Error()
	}
	event.Err(err).
		Str("request_id", traceID).
		Int("status", problem.Status).
		Msg("request failed")

	Error(w, r, problem)
}
