package congestion

import (
	"context"
	"errors"
	"fmt"
	"math"
	"sort"

	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"golang.org/x/sync/errgroup"

	"github.com/clearroute/clearroute/internal/routing"
	"github.com/clearroute/clearroute/internal/traffic"
)

const tracerName = "github.com/clearroute/clearroute/internal/congestion"

// DefaultConcurrency bounds how many candidates are scored at once.
const DefaultConcurrency = 3

// RankerConfig holds configuration for the Ranker.
type RankerConfig struct {
	// Selector picks LinkIDs per route (default: FirstNSelector{}).
	Selector SegmentSelector

	// Scorer produces congestion probabilities (required).
	Scorer Scorer

	// Concurrency bounds the per-route fan-out (default: 3).
	Concurrency int

	// Logger for ranking operations.
	Logger zerolog.Logger
}

// Ranker scores candidate routes and orders them by congestion.
type Ranker struct {
	selector    SegmentSelector
	scorer      Scorer
	concurrency int
	logger      zerolog.Logger
}

// NewRanker creates a new Ranker.
func NewRanker(cfg RankerConfig) *Ranker {
	selector := cfg.Selector
	if selector == nil {
		selector = FirstNSelector{}
	}

	concurrency := cfg.Concurrency
	if concurrency <= 0 {
		concurrency = DefaultConcurrency
	}

	return &Ranker{
		selector:    selector,
		scorer:      cfg.Scorer,
		concurrency: concurrency,
		logger:      cfg.Logger,
	}
}

type candidateResult struct {
	prediction Prediction
	err        error
	scoring    bool // err came from the scorer
}

// Rank scores every route independently, drops the ones that fail and sorts
// the rest ascending by probability. Ties keep provider order.
func (r *Ranker) Rank(ctx context.Context, routes []routing.Route, snap *traffic.Snapshot) (*Ranking, error) {
	if len(routes) == 0 {
		return nil, ErrNoViableRoute
	}

	results := make([]candidateResult, len(routes))

	var g errgroup.Group
	g.SetLimit(r.concurrency)
	for i := range routes {
		g.Go(func() error {
			results[i] = r.scoreRoute(ctx, routes[i], snap)
			return nil
		})
	}
	_ = g.Wait()

	survivors := make([]Prediction, 0, len(routes))
	var scoringFailures int
	var lastErr error
	for i, res := range results {
		if res.err != nil {
			r.logger.Warn().Err(res.err).
				Int("route_index", routes[i].Index).
				Bool("scoring_failure", res.scoring).
				Msg("dropping route from ranking")
			lastErr = res.err
			if res.scoring {
				scoringFailures++
			}
			continue
		}
		survivors = append(survivors, res.prediction)
	}

	if len(survivors) == 0 {
		if scoringFailures == len(routes) {
			return nil, fmt.Errorf("%w: %v", ErrScoringUnavailable, lastErr)
		}
		return nil, fmt.Errorf("%w: %v", ErrNoViableRoute, lastErr)
	}

	sort.SliceStable(survivors, func(i, j int) bool {
		return survivors[i].Probability < survivors[j].Probability
	})

	return &Ranking{
		Best:         survivors[0],
		Alternatives: survivors[1:],
		Note:         Note(survivors),
	}, nil
}

func (r *Ranker) scoreRoute(ctx context.Context, route routing.Route, snap *traffic.Snapshot) candidateResult {
	ctx, span := otel.Tracer(tracerName).Start(ctx, "congestion.score_route")
	defer span.End()
	span.SetAttributes(
		attribute.Int("route.index", route.Index),
		attribute.Int("route.points", len(route.Points)),
	)

	ids := r.selector.Select(route, snap)
	rec, err := Aggregate(ids, snap)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "aggregation failed")
		return candidateResult{err: err}
	}

	p, err := r.scorer.Score(ctx, rec)
	if err == nil && (math.IsNaN(p) || p < 0 || p > 1) {
		err = fmt.Errorf("probability %v outside [0,1]", p)
	}
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "scoring failed")
		return candidateResult{err: errors.Join(ErrScoringUnavailable, err), scoring: true}
	}

	span.SetAttributes(
		attribute.Int("route.segments", len(ids)),
		attribute.Float64("congestion.probability", p),
	)

	return candidateResult{prediction: newPrediction(route, p, len(ids), rec)}
}

// Note describes how decisively the best prediction beats the next one.
// preds must be sorted ascending and non-empty.
func Note(preds []Prediction) string {
	best := preds[0]
	if len(preds) == 1 {
		return fmt.Sprintf("Congestion: %.0f%% (%s)", best.Probability*100, best.Status)
	}

	gap := preds[1].Probability - best.Probability
	if gap > StrongPreferenceGap {
		return fmt.Sprintf("Route %d is strongly preferred: %.0f%% lower congestion risk than the next option.",
			best.Route.Index+1, gap*100)
	}
	return fmt.Sprintf("Routes are comparable: congestion risk differs by %.0f%%.", gap*100)
}
