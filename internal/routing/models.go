// Package routing fetches candidate driving routes between two coordinates.
package routing

import (
	"context"
	"errors"
	"time"

	"github.com/clearroute/clearroute/pkg/polyline"
)

// Sentinel errors for routing operations.
var (
	// ErrProviderUnavailable indicates the routing provider is down or the circuit breaker is open.
	ErrProviderUnavailable = errors.New("routing provider unavailable")
	// ErrNoRouteFound indicates no valid route exists between the given points.
	ErrNoRouteFound = errors.New("no route found between the given points")
	// ErrRateLimitExceeded indicates the API quota has been exceeded.
	ErrRateLimitExceeded = errors.New("rate limit exceeded")
	// ErrInvalidCoordinates indicates the provided coordinates are invalid or out of range.
	ErrInvalidCoordinates = errors.New("invalid coordinates")
)

// DefaultMaxAlternatives is used when a request does not set MaxAlternatives.
const DefaultMaxAlternatives = 2

// Provider defines the interface for routing providers.
type Provider interface {
	// GetDirections retrieves route directions between two points.
	// Routes are returned in provider order, primary first.
	GetDirections(ctx context.Context, req DirectionsRequest) (*DirectionsResponse, error)
	// Name returns the provider identifier for logging and metrics.
	Name() string
}

// RouteProfile represents a routing profile (mode of transport).
type RouteProfile string

// ProfileDriving is the only profile the congestion model is trained for.
const ProfileDriving RouteProfile = "driving"

// Coordinate represents a geographic point.
type Coordinate struct {
	Lat float64
	Lon float64
}

// DirectionsRequest is the request for computing routes.
type DirectionsRequest struct {
	Origin          Coordinate
	Destination     Coordinate
	Profile         RouteProfile
	MaxAlternatives int // Alternatives beyond the primary route (default: 2)
}

// DirectionsResponse is the response containing route alternatives.
type DirectionsResponse struct {
	Routes    []Route
	Provider  string
	FetchedAt time.Time
}

// Route represents a single candidate route.
type Route struct {
	Index            int              // Position in provider order, 0 = primary
	Points           []polyline.Point // Decoded geometry
	GeometryPolyline string           // Encoded polyline (precision 5), passed through to clients
	DistanceMeters   float64
	DurationSeconds  float64
	Summary          string // Provider summary, usually the main road names
}

// DistanceKM returns the route length in kilometres.
func (r Route) DistanceKM() float64 {
	return r.DistanceMeters / 1000
}

// DurationMinutes returns the travel time in minutes.
func (r Route) DurationMinutes() float64 {
	return r.DurationSeconds / 60
}

// Error provides detailed error information from the routing provider.
type Error struct {
	Provider string // Provider that generated the error
	Code     string // Error code from the provider
	Message  string // Human-readable error message
	Err      error  // Underlying error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return e.Message + ": " + e.Err.Error()
	}
	return e.Message
}

func (e *Error) Unwrap() error {
	return e.Err
}

// IsRetryable returns true if the error is transient and the request can be retried.
func (e *Error) IsRetryable() bool {
	return errors.Is(e.Err, ErrProviderUnavailable) || errors.Is(e.Err, ErrRateLimitExceeded)
}
