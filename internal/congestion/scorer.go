package congestion

import (
	"context"

	"github.com/clearroute/clearroute/internal/features"
)

// Scorer returns P(congested) for a feature record.
type Scorer interface {
	Score(ctx context.Context, r features.Record) (float64, error)
	// Ready returns a non-nil error when no model is available.
	Ready() error
}

// ScorerFunc adapts a pure function to Scorer. It is always ready.
type ScorerFunc func(r features.Record) (float64, error)

// Score calls f(r).
func (f ScorerFunc) Score(_ context.Context, r features.Record) (float64, error) {
	return f(r)
}

// Ready always returns nil.
func (f ScorerFunc) Ready() error {
	return nil
}
