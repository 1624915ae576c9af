package routing

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"
)

// ServiceConfig holds configuration for the routing service.
type ServiceConfig struct {
	// Provider is the routing data provider.
	Provider Provider

	// MaxAlternatives caps alternatives when a request leaves it unset (default: 2).
	MaxAlternatives int

	// Logger for service operations.
	Logger zerolog.Logger
}

// Service validates routing requests and normalises provider output.
// Routes are fetched per request and never cached.
type Service struct {
	provider        Provider
	maxAlternatives int
	logger          zerolog.Logger
}

// NewService creates a new routing service.
func NewService(cfg ServiceConfig) *Service {
	maxAlts := cfg.MaxAlternatives
	if maxAlts <= 0 {
		maxAlts = DefaultMaxAlternatives
	}

	return &Service{
		provider:        cfg.Provider,
		maxAlternatives: maxAlts,
		logger:          cfg.Logger,
	}
}

// GetDirections returns up to MaxAlternatives+1 routes in provider order.
// An empty result is reported as ErrNoRouteFound.
func (s *Service) GetDirections(ctx context.Context, req DirectionsRequest) (*DirectionsResponse, error) {
	if err := validateCoordinates(req.Origin); err != nil {
		return nil, &Error{
			Provider: s.provider.Name(),
			Code:     "INVALID_ORIGIN",
			Message:  "invalid origin coordinates",
			Err:      ErrInvalidCoordinates,
		}
	}
	if err := validateCoordinates(req.Destination); err != nil {
		return nil, &Error{
			Provider: s.provider.Name(),
			Code:     "INVALID_DESTINATION",
			Message:  "invalid destination coordinates",
			Err:      ErrInvalidCoordinates,
		}
	}

	if req.Profile == "" {
		req.Profile = ProfileDriving
	}
	if req.MaxAlternatives <= 0 {
		req.MaxAlternatives = s.maxAlternatives
	}

	s.logger.Debug().
		Float64("origin_lat", req.Origin.Lat).
		Float64("origin_lon", req.Origin.Lon).
		Float64("dest_lat", req.Destination.Lat).
		Float64("dest_lon", req.Destination.Lon).
		Str("provider", s.provider.Name()).
		Msg("fetching directions from provider")

	resp, err := s.provider.GetDirections(ctx, req)
	if err != nil {
		s.logger.Error().Err(err).
			Str("provider", s.provider.Name()).
			Msg("failed to fetch directions")
		return nil, err
	}

	if resp == nil || len(resp.Routes) == 0 {
		return nil, &Error{
			Provider: s.provider.Name(),
			Code:     "NO_ROUTE",
			Message:  "provider returned no routes",
			Err:      ErrNoRouteFound,
		}
	}

	if limit := req.MaxAlternatives + 1; len(resp.Routes) > limit {
		resp.Routes = resp.Routes[:limit]
	}
	for i := range resp.Routes {
		resp.Routes[i].Index = i
	}

	s.logger.Debug().
		Int("route_count", len(resp.Routes)).
		Msg("received directions")

	return resp, nil
}

// ProviderName returns the name of the underlying provider.
func (s *Service) ProviderName() string {
	return s.provider.Name()
}

// validateCoordinates checks if coordinates are within valid ranges.
func validateCoordinates(c Coordinate) error {
	if !(c.Lat >= -90 && c.Lat <= 90) {
		return fmt.Errorf("latitude %f out of range [-90, 90]", c.Lat)
	}
	if !(c.Lon >= -180 && c.Lon <= 180) {
		return fmt.Errorf("longitude %f out of range [-180, 180]", c.Lon)
	}
	return nil
}
