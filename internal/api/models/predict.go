package models

import (
	"fmt"
	"math"
	"strings"

	"github.com/clearroute/clearroute/internal/congestion"
	"github.com/clearroute/clearroute/internal/features"
)

// PredictRequest is the body of POST /predict.
type PredictRequest struct {
	From string `json:"from"`
	To   string `json:"to"`

	// DepartTime is accepted for client compatibility; predictions always use
	// the live snapshot.
	DepartTime *Timestamp `json:"departTime,omitempty"`
}

// Validate returns field errors for missing endpoints.
func (r *PredictRequest) Validate() []FieldError {
	var errs []FieldError
	if strings.TrimSpace(r.From) == "" {
		errs = append(errs, FieldError{Field: "from", Message: "from is required", Code: "REQUIRED"})
	}
	if strings.TrimSpace(r.To) == "" {
		errs = append(errs, FieldError{Field: "to", Message: "to is required", Code: "REQUIRED"})
	}
	return errs
}

// RouteOption is one scored route as the front end consumes it.
type RouteOption struct {
	RouteID        string          `json:"route_id"`
	RouteName      string          `json:"route_name"`
	CongestionProb float64         `json:"congestion_prob"`
	Status         string          `json:"status"`
	Severity       string          `json:"severity"`
	Label          string          `json:"label"`
	Confidence     float64         `json:"confidence"`
	DurationMin    int             `json:"duration_min"`
	DistanceKM     float64         `json:"distance_km"`
	LinkIDsCount   int             `json:"link_ids_count"`
	FeaturesUsed   features.Record `json:"features_used"`
	Geometry       string          `json:"geometry,omitempty"`
	Summary        string          `json:"summary,omitempty"`
	Rank           int             `json:"rank"`
}

// RouteInfo echoes the resolved endpoints.
type RouteInfo struct {
	Start            LatLon `json:"start"`
	End              LatLon `json:"end"`
	SegmentsAnalyzed int    `json:"segments_analyzed"`
	RoutesScored     int    `json:"routes_scored"`
}

// PredictResponse is the body of a successful POST /predict.
type PredictResponse struct {
	Best         RouteOption   `json:"best"`
	Alternatives []RouteOption `json:"alternatives"`
	Note         string        `json:"note"`
	RouteInfo    RouteInfo     `json:"route_info"`
	GeneratedAt  Timestamp     `json:"generated_at"`

	// MainRoute duplicates Best for clients that read data.main_route.
	MainRoute RouteOption `json:"main_route"`
}

// NewPredictResponse builds the response from a prediction result.
func NewPredictResponse(res *congestion.Result) PredictResponse {
	name := res.From + " → " + res.To

	best := newRouteOption(res.Best, name, res.Confidence, 1)
	alts := make([]RouteOption, 0, len(res.Alternatives))
	segments := res.Best.SegmentCount
	for i, p := range res.Alternatives {
		alts = append(alts, newRouteOption(p, name, res.Confidence, i+2))
		segments += p.SegmentCount
	}

	return PredictResponse{
		Best:         best,
		Alternatives: alts,
		Note:         res.Note,
		RouteInfo: RouteInfo{
			Start:            LatLon{Lat: res.Start.Lat, Lon: res.Start.Lon},
			End:              LatLon{Lat: res.End.Lat, Lon: res.End.Lon},
			SegmentsAnalyzed: segments,
			RoutesScored:     1 + len(res.Alternatives),
		},
		GeneratedAt: Timestamp(res.GeneratedAt),
		MainRoute:   best,
	}
}

func newRouteOption(p congestion.Prediction, name string, confidence float64, rank int) RouteOption {
	if p.Route.Summary != "" {
		name = fmt.Sprintf("%s via %s", name, p.Route.Summary)
	}
	return RouteOption{
		RouteID:        fmt.Sprintf("route_%d", p.Route.Index+1),
		RouteName:      name,
		CongestionProb: round(p.Probability, 3),
		Status:         string(p.Status),
		Severity:       string(p.Severity),
		Label:          p.Label,
		Confidence:     confidence,
		DurationMin:    int(math.Round(p.Route.DurationMinutes())),
		DistanceKM:     round(p.Route.DistanceKM(), 1),
		LinkIDsCount:   p.SegmentCount,
		FeaturesUsed:   p.Features,
		Geometry:       p.Route.GeometryPolyline,
		Summary:        p.Route.Summary,
		Rank:           rank,
	}
}

func round(v float64, places int) float64 {
	scale := math.Pow(10, float64(places))
	return math.Round(v*scale) / scale
}
