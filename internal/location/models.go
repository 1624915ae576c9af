// Package location resolves user input ("lat,lon" or a place name) to a
// coordinate inside the service area.
package location

import (
	"context"
	"errors"
	"fmt"
)

// Location errors.
var (
	// ErrInvalidLocation covers blank input, out-of-area coordinates and unknown places.
	ErrInvalidLocation = errors.New("invalid location")
	// ErrGeocoderUnavailable indicates the geocoding provider failed or is unreachable.
	ErrGeocoderUnavailable = errors.New("geocoding provider unavailable")
	// ErrNoResult is returned by a Geocoder that found nothing for the query.
	ErrNoResult = errors.New("no geocoding result")
)

// Coordinate is a WGS84 latitude/longitude pair.
type Coordinate struct {
	Lat float64 `json:"lat"`
	Lon float64 `json:"lon"`
}

func (c Coordinate) String() string {
	return fmt.Sprintf("%.6f,%.6f", c.Lat, c.Lon)
}

// BoundingBox is an inclusive lat/lon rectangle.
type BoundingBox struct {
	MinLat float64
	MaxLat float64
	MinLon float64
	MaxLon float64
}

// SingaporeBounds is the default service area.
var SingaporeBounds = BoundingBox{MinLat: 1.0, MaxLat: 1.5, MinLon: 103.0, MaxLon: 104.5}

// Contains reports whether c lies inside the box. NaN never does.
func (b BoundingBox) Contains(c Coordinate) bool {
	return c.Lat >= b.MinLat && c.Lat <= b.MaxLat &&
		c.Lon >= b.MinLon && c.Lon <= b.MaxLon
}

// Place is a geocoder match.
type Place struct {
	Coordinate  Coordinate
	DisplayName string
}

// Geocoder looks up a free-text query. It returns ErrNoResult when nothing matches.
type Geocoder interface {
	Geocode(ctx context.Context, query string) (*Place, error)
	// Name returns the provider identifier for logging and metrics.
	Name() string
}
