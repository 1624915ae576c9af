package models

import (
	"encoding/json"
	"net/http"
)

// Problem is an RFC 7807 error body, served as application/problem+json.
type Problem struct {
	Type     string       `json:"type"`
	Title    string       `json:"title"`
	Status   int          `json:"status"`
	Detail   string       `json:"detail,omitempty"`
	Instance string       `json:"instance,omitempty"`
	TraceID  string       `json:"traceId"`
	Errors   []FieldError `json:"errors,omitempty"`

	// Error mirrors Detail for clients that only read an "error" field.
	Error string `json:"error,omitempty"`
}

// FieldError represents a validation error on a specific field.
type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
	Code    string `json:"code,omitempty"`
}

const problemBase = "https://api.clearroute.sg/problems/"

// Problem types.
const (
	ProblemTypeValidation      = problemBase + "validation-error"
	ProblemTypeInvalidLocation = problemBase + "invalid-location"
	ProblemTypeNoRoute         = problemBase + "no-route"
	ProblemTypeNoTrafficData   = problemBase + "no-traffic-data"
	ProblemTypeUnauthorized    = problemBase + "unauthorized"
	ProblemTypeForbidden       = problemBase + "forbidden"
	ProblemTypeNotFound        = problemBase + "not-found"
	ProblemTypeUnsupportedType = problemBase + "unsupported-media-type"
	ProblemTypeTooManyRequests = problemBase + "too-many-requests"
	ProblemTypeInternal        = problemBase + "internal-error"
	ProblemTypeUnavailable     = problemBase + "service-unavailable"
)

// NewProblem creates a new Problem with the given parameters.
func NewProblem(problemType, title string, status int, traceID string) *Problem {
	return &Problem{
		Type:    problemType,
		Title:   title,
		Status:  status,
		TraceID: traceID,
	}
}

// WithDetail adds a detail message to the Problem.
func (p *Problem) WithDetail(detail string) *Problem {
	p.Detail = detail
	return p
}

// WithInstance adds the request instance URI to the Problem.
func (p *Problem) WithInstance(instance string) *Problem {
	p.Instance = instance
	return p
}

// WithErrors adds field errors to the Problem.
func (p *Problem) WithErrors(errors []FieldError) *Problem {
	p.Errors = errors
	return p
}

// Write writes the Problem as JSON to the ResponseWriter.
func (p *Problem) Write(w http.ResponseWriter) {
	if p.Error == "" {
		p.Error = p.Detail
	}
	w.Header().Set("Content-Type", "application/problem+json")
	if p.TraceID != "" {
		w.Header().Set("X-Request-Id", p.TraceID)
	}
	w.WriteHeader(p.Status)
	_ = json.NewEncoder(w).Encode(p)
}

func newWithDetail(problemType, title string, status int, traceID, detail string) *Problem {
	p := NewProblem(problemType, title, status, traceID)
	p.Detail = detail
	return p
}

// NewBadRequest creates a 400 validation problem.
func NewBadRequest(traceID, detail string, errors []FieldError) *Problem {
	p := newWithDetail(ProblemTypeValidation, "Validation error", http.StatusBadRequest, traceID, detail)
	p.Errors = errors
	return p
}

// NewInvalidLocation creates a 400 problem for an unresolvable or out-of-region location.
func NewInvalidLocation(traceID, detail string) *Problem {
	return newWithDetail(ProblemTypeInvalidLocation, "Invalid location", http.StatusBadRequest, traceID, detail)
}

// NewNoTrafficData creates a 400 problem when no candidate route could be scored.
func NewNoTrafficData(traceID, detail string) *Problem {
	return newWithDetail(ProblemTypeNoTrafficData, "No traffic data for route", http.StatusBadRequest, traceID, detail)
}

// NewUnauthorized creates a 401 Unauthorized problem.
func NewUnauthorized(traceID, detail string) *Problem {
	return newWithDetail(ProblemTypeUnauthorized, "Unauthorized", http.StatusUnauthorized, traceID, detail)
}

// NewForbidden creates a 403 Forbidden problem.
func NewForbidden(traceID, detail string) *Problem {
	return newWithDetail(ProblemTypeForbidden, "Forbidden", http.StatusForbidden, traceID, detail)
}

// NewNotFound creates a 404 Not Found problem.
func NewNotFound(traceID, detail string) *Problem {
	return newWithDetail(ProblemTypeNotFound, "Not found", http.StatusNotFound, traceID, detail)
}

// NewNoRoute creates a 404 problem when the routing engine finds no path.
func NewNoRoute(traceID, detail string) *Problem {
	return newWithDetail(ProblemTypeNoRoute, "No route found", http.StatusNotFound, traceID, detail)
}

// NewUnsupportedMediaType creates a 415 problem.
func NewUnsupportedMediaType(traceID, detail string) *Problem {
	return newWithDetail(ProblemTypeUnsupportedType, "Unsupported media type", http.StatusUnsupportedMediaType, traceID, detail)
}

// NewTooManyRequests creates a 429 Too Many Requests problem.
func NewTooManyRequests(traceID, detail string) *Problem {
	return newWithDetail(ProblemTypeTooManyRequests, "Too many requests", http.StatusTooManyRequests, traceID, detail)
}

// NewInternalError creates a 500 Internal Server Error problem.
func NewInternalError(traceID, detail string) *Problem {
	return newWithDetail(ProblemTypeInternal, "Internal server error", http.StatusInternalServerError, traceID, detail)
}

// NewServiceUnavailable creates a 503 Service Unavailable problem.
func NewServiceUnavailable(traceID, detail string) *Problem {
	return newWithDetail(ProblemTypeUnavailable, "Service unavailable", http.StatusServiceUnavailable, traceID, detail)
}
