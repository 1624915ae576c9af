package congestion

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/clearroute/clearroute/internal/location"
	"github.com/clearroute/clearroute/internal/routing"
	"github.com/clearroute/clearroute/internal/telemetry"
	"github.com/clearroute/clearroute/internal/traffic"
)

// LocationResolver resolves user input to a coordinate.
type LocationResolver interface {
	Resolve(ctx context.Context, input string) (location.Coordinate, error)
}

// RouteSource fetches candidate routes.
type RouteSource interface {
	GetDirections(ctx context.Context, req routing.DirectionsRequest) (*routing.DirectionsResponse, error)
}

// SnapshotSource fetches a fresh traffic snapshot.
type SnapshotSource interface {
	Snapshot(ctx context.Context) (*traffic.Snapshot, error)
}

// ServiceConfig holds configuration for the prediction service.
type ServiceConfig struct {
	Resolver LocationResolver
	Routes   RouteSource
	Traffic  SnapshotSource
	Scorer   Scorer

	// Ranker orders candidates (default: NewRanker with Scorer and defaults).
	Ranker *Ranker

	// MaxAlternatives is passed to the route source (default: routing default).
	MaxAlternatives int

	// Confidence is the model's validation confidence echoed in results.
	Confidence float64

	// Metrics records prediction outcomes (optional).
	Metrics *telemetry.PredictionMetrics

	// Now returns the current time (default: time.Now).
	Now func() time.Time

	// Logger for service operations.
	Logger zerolog.Logger
}

// Service runs the full prediction pipeline for one request.
type Service struct {
	resolver   LocationResolver
	routes     RouteSource
	traffic    SnapshotSource
	scorer     Scorer
	ranker     *Ranker
	maxAlts    int
	confidence float64
	metrics    *telemetry.PredictionMetrics
	now        func() time.Time
	logger     zerolog.Logger
	tracer     trace.Tracer
}

// NewService creates a new prediction service.
func NewService(cfg ServiceConfig) *Service {
	ranker := cfg.Ranker
	if ranker == nil {
		ranker = NewRanker(RankerConfig{Scorer: cfg.Scorer, Logger: cfg.Logger})
	}

	now := cfg.Now
	if now == nil {
		now = time.Now
	}

	return &Service{
		resolver:   cfg.Resolver,
		routes:     cfg.Routes,
		traffic:    cfg.Traffic,
		scorer:     cfg.Scorer,
		ranker:     ranker,
		maxAlts:    cfg.MaxAlternatives,
		confidence: cfg.Confidence,
		metrics:    cfg.Metrics,
		now:        now,
		logger:     cfg.Logger,
		tracer:     otel.Tracer(tracerName),
	}
}

// Predict resolves both endpoints, checks the scorer, fetches routes and a
// traffic snapshot, and ranks the routes. Each step runs only if the previous
// one succeeded, so a bad origin never reaches the network and a route-less
// request never fetches traffic.
func (s *Service) Predict(ctx context.Context, from, to string) (*Result, error) {
	start := s.now()
	ctx, span := s.tracer.Start(ctx, "congestion.predict")
	defer span.End()

	result, routes, err := s.predict(ctx, from, to)

	outcome := "ok"
	var best float64
	if err != nil {
		outcome = Outcome(err)
		span.RecordError(err)
		span.SetStatus(codes.Error, outcome)
		s.logger.Info().Err(err).
			Str("outcome", outcome).
			Msg("prediction failed")
	} else {
		best = result.Best.Probability
		span.SetAttributes(
			attribute.Float64("congestion.best_probability", best),
			attribute.String("congestion.best_status", string(result.Best.Status)),
		)
	}
	span.SetAttributes(attribute.Int("routes.count", routes))
	s.metrics.Record(ctx, outcome, routes, best, s.now().Sub(start))

	return result, err
}

func (s *Service) predict(ctx context.Context, from, to string) (*Result, int, error) {
	start, err := s.resolve(ctx, "resolve_from", from)
	if err != nil {
		return nil, 0, err
	}
	end, err := s.resolve(ctx, "resolve_to", to)
	if err != nil {
		return nil, 0, err
	}

	if err := s.scorer.Ready(); err != nil {
		return nil, 0, fmt.Errorf("%w: %v", ErrScoringUnavailable, err)
	}

	directions, err := s.fetchRoutes(ctx, start, end)
	if err != nil {
		return nil, 0, err
	}
	routes := directions.Routes

	snap, err := s.fetchSnapshot(ctx)
	if err != nil {
		return nil, len(routes), err
	}

	rankCtx, span := s.tracer.Start(ctx, "congestion.rank")
	ranking, err := s.ranker.Rank(rankCtx, routes, snap)
	endSpan(span, err)
	if err != nil {
		return nil, len(routes), err
	}

	s.logger.Debug().
		Int("routes", len(routes)).
		Int("survivors", 1+len(ranking.Alternatives)).
		Float64("best_probability", ranking.Best.Probability).
		Msg("ranked routes")

	return &Result{
		Ranking:     *ranking,
		From:        from,
		To:          to,
		Start:       Coordinate{Lat: start.Lat, Lon: start.Lon},
		End:         Coordinate{Lat: end.Lat, Lon: end.Lon},
		Confidence:  s.confidence,
		GeneratedAt: s.now().UTC(),
	}, len(routes), nil
}

func (s *Service) resolve(ctx context.Context, stage, input string) (location.Coordinate, error) {
	ctx, span := s.tracer.Start(ctx, "congestion."+stage)
	c, err := s.resolver.Resolve(ctx, input)
	endSpan(span, err)
	return c, err
}

func (s *Service) fetchRoutes(ctx context.Context, start, end location.Coordinate) (*routing.DirectionsResponse, error) {
	ctx, span := s.tracer.Start(ctx, "congestion.fetch_routes")
	resp, err := s.routes.GetDirections(ctx, routing.DirectionsRequest{
		Origin:          routing.Coordinate{Lat: start.Lat, Lon: start.Lon},
		Destination:     routing.Coordinate{Lat: end.Lat, Lon: end.Lon},
		Profile:         routing.ProfileDriving,
		MaxAlternatives: s.maxAlts,
	})
	if err == nil && len(resp.Routes) == 0 {
		err = &routing.Error{Code: "NO_ROUTE", Message: "no routes returned", Err: routing.ErrNoRouteFound}
	}
	endSpan(span, err)
	return resp, err
}

func (s *Service) fetchSnapshot(ctx context.Context) (*traffic.Snapshot, error) {
	ctx, span := s.tracer.Start(ctx, "congestion.fetch_snapshot")
	snap, err := s.traffic.Snapshot(ctx)
	if err == nil {
		span.SetAttributes(attribute.Int("traffic.segments", len(snap.Segments)))
	}
	endSpan(span, err)
	return snap, err
}

func endSpan(span trace.Span, err error) {
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	span.End()
}

// Outcome classifies a pipeline error for metrics and logs.
func Outcome(err error) string {
	switch {
	case err == nil:
		return "ok"
	case errors.Is(err, location.ErrInvalidLocation):
		return "invalid_location"
	case errors.Is(err, location.ErrGeocoderUnavailable):
		return "geocoder_unavailable"
	case errors.Is(err, routing.ErrNoRouteFound):
		return "no_route"
	case errors.Is(err, routing.ErrRateLimitExceeded), errors.Is(err, routing.ErrProviderUnavailable):
		return "routing_unavailable"
	case errors.Is(err, traffic.ErrNoSegments):
		return "no_segments"
	case errors.Is(err, traffic.ErrProviderUnavailable):
		return "traffic_unavailable"
	case errors.Is(err, ErrScoringUnavailable):
		return "scoring_unavailable"
	case errors.Is(err, ErrNoSegmentsForRoute), errors.Is(err, ErrNoViableRoute):
		return "no_viable_route"
	default:
		return "internal"
	}
}
