// Package congestion turns candidate routes and a traffic snapshot into ranked
// congestion predictions.
package congestion

import (
	"errors"
	"math"
	"time"

	"github.com/clearroute/clearroute/internal/features"
	"github.com/clearroute/clearroute/internal/routing"
)

// Congestion errors.
var (
	// ErrNoSegmentsForRoute indicates none of the selected LinkIDs exist in the snapshot.
	ErrNoSegmentsForRoute = errors.New("no traffic segments for route")
	// ErrNoViableRoute indicates every candidate route failed to produce a prediction.
	ErrNoViableRoute = errors.New("no viable route")
	// ErrScoringUnavailable indicates the scorer is not ready or failed.
	ErrScoringUnavailable = errors.New("congestion scoring unavailable")
)

// CongestedThreshold is the probability at or above which a route is congested.
const CongestedThreshold = 0.5

// ProbabilityDecimals is the precision probabilities are reported at. Status
// and severity are derived from the reported value.
const ProbabilityDecimals = 3

// StrongPreferenceGap is the probability gap above which the best route is
// called out as strongly preferred.
const StrongPreferenceGap = 0.2

// Status is the binary congestion label.
type Status string

const (
	StatusClear     Status = "clear"
	StatusCongested Status = "congested"
)

// StatusFor returns congested iff p >= CongestedThreshold.
func StatusFor(p float64) Status {
	if p >= CongestedThreshold {
		return StatusCongested
	}
	return StatusClear
}

// Severity is a four-level view of the probability for display.
type Severity string

const (
	SeverityLow      Severity = "LOW"
	SeverityModerate Severity = "MODERATE"
	SeverityHigh     Severity = "HIGH"
	SeveritySevere   Severity = "SEVERE"
)

// SeverityFor maps a probability to its tier and display label.
func SeverityFor(p float64) (Severity, string) {
	switch {
	case p < 0.30:
		return SeverityLow, "Clear Traffic"
	case p < 0.50:
		return SeverityModerate, "Moderate Traffic"
	case p < 0.70:
		return SeverityHigh, "Heavy Congestion"
	default:
		return SeveritySevere, "Severe Congestion"
	}
}

// Prediction is the scored outcome for one candidate route.
type Prediction struct {
	Route        routing.Route
	Probability  float64
	Status       Status
	Severity     Severity
	Label        string
	SegmentCount int
	Features     features.Record
}

func newPrediction(route routing.Route, p float64, segments int, rec features.Record) Prediction {
	scale := math.Pow(10, ProbabilityDecimals)
	p = math.Round(p*scale) / scale
	sev, label := SeverityFor(p)
	return Prediction{
		Route:        route,
		Probability:  p,
		Status:       StatusFor(p),
		Severity:     sev,
		Label:        label,
		SegmentCount: segments,
		Features:     rec,
	}
}

// Ranking is the ordered set of surviving predictions.
type Ranking struct {
	Best         Prediction
	Alternatives []Prediction
	Note         string
}

// Coordinate is a resolved endpoint echoed back to callers.
type Coordinate struct {
	Lat float64
	Lon float64
}

// Result is the full answer to a prediction request.
type Result struct {
	Ranking
	From        string
	To          string
	Start       Coordinate
	End         Coordinate
	Confidence  float64
	GeneratedAt time.Time
}
