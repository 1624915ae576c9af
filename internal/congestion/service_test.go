package congestion_test

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"

	"github.com/clearroute/clearroute/internal/congestion"
	"github.com/clearroute/clearroute/internal/features"
	"github.com/clearroute/clearroute/internal/location"
	"github.com/clearroute/clearroute/internal/routing"
	"github.com/clearroute/clearroute/internal/traffic"
)

type fakeResolver struct {
	calls  []string
	coords map[string]location.Coordinate
}

func (f *fakeResolver) Resolve(_ context.Context, input string) (location.Coordinate, error) {
	f.calls = append(f.calls, input)
	if input == "" {
		return location.Coordinate{}, fmt.Errorf("%w: empty", location.ErrInvalidLocation)
	}
	c, ok := f.coords[input]
	if !ok {
		return location.Coordinate{}, location.ErrGeocoderUnavailable
	}
	return c, nil
}

type fakeRoutes struct {
	calls int
	req   routing.DirectionsRequest
	resp  *routing.DirectionsResponse
	err   error
}

func (f *fakeRoutes) GetDirections(_ context.Context, req routing.DirectionsRequest) (*routing.DirectionsResponse, error) {
	f.calls++
	f.req = req
	return f.resp, f.err
}

type fakeTraffic struct {
	calls int
	snap  *traffic.Snapshot
	err   error
}

func (f *fakeTraffic) Snapshot(context.Context) (*traffic.Snapshot, error) {
	f.calls++
	return f.snap, f.err
}

type notReadyScorer struct{}

func (notReadyScorer) Score(context.Context, features.Record) (float64, error) {
	return 0, errors.New("unreachable")
}

func (notReadyScorer) Ready() error {
	return errors.New("model file missing")
}

type pipeline struct {
	resolver *fakeResolver
	routes   *fakeRoutes
	traffic  *fakeTraffic
	service  *congestion.Service
}

var fixedNow = time.Date(2025, 3, 6, 9, 15, 0, 0, time.FixedZone("SGT", 8*3600))

func newPipeline(scorer congestion.Scorer) *pipeline {
	p := &pipeline{
		resolver: &fakeResolver{coords: map[string]location.Coordinate{
			"Orchard Road": {Lat: 1.3048, Lon: 103.8318},
			"Changi":       {Lat: 1.3644, Lon: 103.9915},
		}},
		routes: &fakeRoutes{resp: &routing.DirectionsResponse{
			Provider: "osrm",
			Routes:   []routing.Route{{Index: 0}, {Index: 1}},
		}},
		traffic: &fakeTraffic{snap: &traffic.Snapshot{Segments: []traffic.Segment{
			segment("slow", 20, 30, 3, 9),
			segment("fast", 60, 70, 3, 9),
		}}},
	}

	p.service = congestion.NewService(congestion.ServiceConfig{
		Resolver: p.resolver,
		Routes:   p.routes,
		Traffic:  p.traffic,
		Scorer:   scorer,
		Ranker: congestion.NewRanker(congestion.RankerConfig{
			Selector: routeSelector{0: {"slow"}, 1: {"fast"}},
			Scorer:   scorer,
			Logger:   zerolog.Nop(),
		}),
		MaxAlternatives: 2,
		Confidence:      0.835,
		Now:             func() time.Time { return fixedNow },
		Logger:          zerolog.Nop(),
	})
	return p
}

func TestPredict_HappyPath(t *testing.T) {
	p := newPipeline(speedScorer)

	result, err := p.service.Predict(context.Background(), "Orchard Road", "Changi")
	require.NoError(t, err)

	assert.Equal(t, "Orchard Road", result.From)
	assert.Equal(t, "Changi", result.To)
	assert.Equal(t, congestion.Coordinate{Lat: 1.3048, Lon: 103.8318}, result.Start)
	assert.Equal(t, congestion.Coordinate{Lat: 1.3644, Lon: 103.9915}, result.End)
	assert.Equal(t, 0.835, result.Confidence)
	assert.Equal(t, time.UTC, result.GeneratedAt.Location())
	assert.True(t, result.GeneratedAt.Equal(fixedNow))

	assert.Equal(t, 1, result.Best.Route.Index)
	require.Len(t, result.Alternatives, 1)
	assert.Equal(t, 0, result.Alternatives[0].Route.Index)

	assert.Equal(t, routing.ProfileDriving, p.routes.req.Profile)
	assert.Equal(t, 2, p.routes.req.MaxAlternatives)
	assert.Equal(t, routing.Coordinate{Lat: 1.3048, Lon: 103.8318}, p.routes.req.Origin)
	assert.Equal(t, 1, p.traffic.calls)
}

func TestPredict_EmptyOriginMakesNoNetworkCalls(t *testing.T) {
	p := newPipeline(speedScorer)

	_, err := p.service.Predict(context.Background(), "", "Changi")

	assert.ErrorIs(t, err, location.ErrInvalidLocation)
	assert.Equal(t, []string{""}, p.resolver.calls)
	assert.Zero(t, p.routes.calls)
	assert.Zero(t, p.traffic.calls)
}

func TestPredict_DestinationFailureStopsPipeline(t *testing.T) {
	p := newPipeline(speedScorer)

	_, err := p.service.Predict(context.Background(), "Orchard Road", "Atlantis")

	assert.ErrorIs(t, err, location.ErrGeocoderUnavailable)
	assert.Zero(t, p.routes.calls)
}

func TestPredict_ScorerNotReadyBeforeRouting(t *testing.T) {
	p := newPipeline(notReadyScorer{})

	_, err := p.service.Predict(context.Background(), "Orchard Road", "Changi")

	assert.ErrorIs(t, err, congestion.ErrScoringUnavailable)
	assert.Zero(t, p.routes.calls)
	assert.Zero(t, p.traffic.calls)
}

func TestPredict_ZeroRoutesSkipsTraffic(t *testing.T) {
	p := newPipeline(speedScorer)
	p.routes.resp = &routing.DirectionsResponse{Provider: "osrm"}

	_, err := p.service.Predict(context.Background(), "Orchard Road", "Changi")

	assert.ErrorIs(t, err, routing.ErrNoRouteFound)
	assert.Zero(t, p.traffic.calls)
}

func TestPredict_RoutingErrorPropagates(t *testing.T) {
	p := newPipeline(speedScorer)
	p.routes.resp = nil
	p.routes.err = &routing.Error{Provider: "osrm", Code: "RATE_LIMIT", Err: routing.ErrRateLimitExceeded}

	_, err := p.service.Predict(context.Background(), "Orchard Road", "Changi")

	var routeErr *routing.Error
	require.ErrorAs(t, err, &routeErr)
	assert.Equal(t, "RATE_LIMIT", routeErr.Code)
	assert.Zero(t, p.traffic.calls)
}

func TestPredict_TrafficErrorPropagates(t *testing.T) {
	p := newPipeline(speedScorer)
	p.traffic.snap = nil
	p.traffic.err = fmt.Errorf("%w: upstream 500", traffic.ErrProviderUnavailable)

	_, err := p.service.Predict(context.Background(), "Orchard Road", "Changi")

	assert.ErrorIs(t, err, traffic.ErrProviderUnavailable)
}

func TestPredict_NoSegmentsForAnyRoute(t *testing.T) {
	p := newPipeline(speedScorer)
	p.traffic.snap = &traffic.Snapshot{Segments: []traffic.Segment{segment("elsewhere", 10, 20, 0, 0)}}

	_, err := p.service.Predict(context.Background(), "Orchard Road", "Changi")

	assert.ErrorIs(t, err, congestion.ErrNoViableRoute)
}

func TestPredict_RecordsSpans(t *testing.T) {
	recorder := tracetest.NewSpanRecorder()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(recorder))
	prev := otel.GetTracerProvider()
	otel.SetTracerProvider(tp)
	t.Cleanup(func() { otel.SetTracerProvider(prev) })

	p := newPipeline(speedScorer)
	_, err := p.service.Predict(context.Background(), "Orchard Road", "Changi")
	require.NoError(t, err)

	var names []string
	for _, s := range recorder.Ended() {
		names = append(names, s.Name())
	}
	assert.Contains(t, names, "congestion.predict")
	assert.Contains(t, names, "congestion.resolve_from")
	assert.Contains(t, names, "congestion.resolve_to")
	assert.Contains(t, names, "congestion.fetch_routes")
	assert.Contains(t, names, "congestion.fetch_snapshot")
	assert.Contains(t, names, "congestion.rank")
	assert.Contains(t, names, "congestion.score_route")
}

func TestOutcome(t *testing.T) {
	tests := []struct {
		err  error
		want string
	}{
		{nil, "ok"},
		{fmt.Errorf("x: %w", location.ErrInvalidLocation), "invalid_location"},
		{location.ErrGeocoderUnavailable, "geocoder_unavailable"},
		{&routing.Error{Code: "NO_ROUTE", Err: routing.ErrNoRouteFound}, "no_route"},
		{&routing.Error{Code: "RATE_LIMIT", Err: routing.ErrRateLimitExceeded}, "routing_unavailable"},
		{routing.ErrProviderUnavailable, "routing_unavailable"},
		{traffic.ErrNoSegments, "no_segments"},
		{traffic.ErrProviderUnavailable, "traffic_unavailable"},
		{congestion.ErrScoringUnavailable, "scoring_unavailable"},
		{congestion.ErrNoViableRoute, "no_viable_route"},
		{congestion.ErrNoSegmentsForRoute, "no_viable_route"},
		{errors.New("boom"), "internal"},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, congestion.Outcome(tt.err), "err=%v", tt.err)
	}
}
