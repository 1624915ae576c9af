package location

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/rs/zerolog"
)

// ResolverConfig holds configuration for the Resolver.
type ResolverConfig struct {
	// Geocoder handles inputs that are not literal coordinates.
	Geocoder Geocoder

	// Bounds is the accepted service area (default: SingaporeBounds).
	Bounds *BoundingBox

	// RegionSuffix is appended to every geocoding query (default: "Singapore").
	RegionSuffix string

	// Logger for resolver operations.
	Logger zerolog.Logger
}

// Resolver turns raw user input into a validated coordinate.
type Resolver struct {
	geocoder Geocoder
	bounds   BoundingBox
	suffix   string
	logger   zerolog.Logger
}

// NewResolver creates a new Resolver.
func NewResolver(cfg ResolverConfig) *Resolver {
	bounds := SingaporeBounds
	if cfg.Bounds != nil {
		bounds = *cfg.Bounds
	}

	suffix := cfg.RegionSuffix
	if suffix == "" {
		suffix = "Singapore"
	}

	return &Resolver{
		geocoder: cfg.Geocoder,
		bounds:   bounds,
		suffix:   suffix,
		logger:   cfg.Logger,
	}
}

// Bounds returns the service area.
func (r *Resolver) Bounds() BoundingBox {
	return r.bounds
}

// Resolve returns the coordinate for input.
//
// A "lat,lon" pair is accepted without a network call when it lies inside the
// service area and rejected when it does not; it is never re-tried as an address.
// Anything else is geocoded as "<input>, <suffix>" and the first match is returned
// if it lies inside the service area.
func (r *Resolver) Resolve(ctx context.Context, input string) (Coordinate, error) {
	trimmed := strings.TrimSpace(input)
	if trimmed == "" {
		return Coordinate{}, fmt.Errorf("%w: location is empty", ErrInvalidLocation)
	}

	if c, ok := ParseCoordinate(trimmed); ok {
		if !r.bounds.Contains(c) {
			return Coordinate{}, fmt.Errorf("%w: %s is outside the service area", ErrInvalidLocation, trimmed)
		}
		return c, nil
	}

	if r.geocoder == nil {
		return Coordinate{}, fmt.Errorf("%w: no geocoder configured", ErrGeocoderUnavailable)
	}

	query := trimmed + ", " + r.suffix
	r.logger.Debug().
		Str("query", query).
		Str("provider", r.geocoder.Name()).
		Msg("geocoding location")

	place, err := r.geocoder.Geocode(ctx, query)
	if err != nil {
		if errors.Is(err, ErrNoResult) {
			return Coordinate{}, fmt.Errorf("%w: could not find %q", ErrInvalidLocation, trimmed)
		}
		r.logger.Error().Err(err).Str("query", query).Msg("geocoding failed")
		if errors.Is(err, ErrGeocoderUnavailable) {
			return Coordinate{}, err
		}
		return Coordinate{}, fmt.Errorf("%w: %v", ErrGeocoderUnavailable, err)
	}

	r.logger.Debug().
		Str("query", query).
		Float64("lat", place.Coordinate.Lat).
		Float64("lon", place.Coordinate.Lon).
		Msg("geocoded location")

	if !r.bounds.Contains(place.Coordinate) {
		return Coordinate{}, fmt.Errorf("%w: %q resolved outside the service area", ErrInvalidLocation, trimmed)
	}
	return place.Coordinate, nil
}

// ParseCoordinate parses "lat,lon" (spaces ignored). It only checks syntax, not bounds.
func ParseCoordinate(s string) (Coordinate, bool) {
	parts := strings.Split(strings.ReplaceAll(s, " ", ""), ",")
	if len(parts) != 2 {
		return Coordinate{}, false
	}

	lat, err := strconv.ParseFloat(parts[0], 64)
	if err != nil {
		return Coordinate{}, false
	}
	lon, err := strconv.ParseFloat(parts[1], 64)
	if err != nil {
		return Coordinate{}, false
	}

	return Coordinate{Lat: lat, Lon: lon}, true
}
