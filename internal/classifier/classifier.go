// Package classifier evaluates the exported congestion model.
//
// The model is trained offline and exported as a JSON bundle. It is loaded once
// at process start; a missing or malformed bundle leaves the classifier in an
// explicit not-loaded state instead of failing start-up.
package classifier

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"os"

	"github.com/clearroute/clearroute/internal/features"
)

// ErrNotLoaded is returned by every prediction on an unloaded classifier.
var ErrNotLoaded = errors.New("congestion model not loaded")

// DefaultConfidence is reported when the bundle carries no validation score.
const DefaultConfidence = 0.835

// Classifier is immutable after construction and safe for concurrent use.
type Classifier struct {
	path       string
	kind       string
	name       string
	features   []string
	confidence float64
	predict    func(x []float64) float64
}

// Load reads the bundle at path. On failure it returns an unloaded classifier
// together with the error so callers can log it and keep serving.
func Load(path string) (*Classifier, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Unloaded(path), fmt.Errorf("reading model bundle: %w", err)
	}

	var b Bundle
	if err := json.Unmarshal(data, &b); err != nil {
		return Unloaded(path), fmt.Errorf("decoding model bundle: %w", err)
	}

	c, err := FromBundle(&b)
	if err != nil {
		return Unloaded(path), err
	}
	c.path = path
	return c, nil
}

// FromBundle builds a loaded classifier from a decoded bundle.
func FromBundle(b *Bundle) (*Classifier, error) {
	if err := b.Validate(); err != nil {
		return nil, err
	}

	c := &Classifier{
		kind:       b.Kind,
		name:       b.Name,
		features:   append([]string(nil), b.Features...),
		confidence: b.ValidationConfidence,
	}
	if c.confidence == 0 {
		c.confidence = DefaultConfidence
	}

	switch b.Kind {
	case KindLogistic:
		p := *b.Logistic
		p.Coefficients = append([]float64(nil), p.Coefficients...)
		c.predict = p.predict
		if c.name == "" {
			c.name = "LogisticRegression"
		}
	case KindGradientBoosting:
		p := *b.GradientBoosting
		c.predict = p.predict
		if c.name == "" {
			c.name = "HistGradientBoostingClassifier"
		}
	}

	return c, nil
}

// Unloaded returns a classifier that reports the canonical features and
// fails every prediction with ErrNotLoaded.
func Unloaded(path string) *Classifier {
	return &Classifier{
		path:       path,
		features:   features.Names(),
		confidence: DefaultConfidence,
	}
}

// Loaded reports whether a model is available.
func (c *Classifier) Loaded() bool {
	return c.predict != nil
}

// Ready returns ErrNotLoaded when no model is available.
func (c *Classifier) Ready() error {
	if !c.Loaded() {
		return ErrNotLoaded
	}
	return nil
}

// PredictProbability returns P(congested) for r.
func (c *Classifier) PredictProbability(r features.Record) (float64, error) {
	if !c.Loaded() {
		return 0, ErrNotLoaded
	}

	x, err := r.Vector(c.features)
	if err != nil {
		return 0, err
	}

	p := c.predict(x)
	if math.IsNaN(p) {
		return 0, fmt.Errorf("model produced NaN for %v", x)
	}
	return p, nil
}

// Score implements the congestion scorer contract.
func (c *Classifier) Score(_ context.Context, r features.Record) (float64, error) {
	return c.PredictProbability(r)
}

// Features returns the model's feature order.
func (c *Classifier) Features() []string {
	return append([]string(nil), c.features...)
}

// Path returns the bundle path the classifier was loaded from.
func (c *Classifier) Path() string { return c.path }

// Kind returns the bundle kind, empty when unloaded.
func (c *Classifier) Kind() string { return c.kind }

// Name returns a human-readable model type, empty when unloaded.
func (c *Classifier) Name() string { return c.name }

// Confidence returns the validation confidence reported with predictions.
func (c *Classifier) Confidence() float64 { return c.confidence }

func (p LogisticParams) predict(x []float64) float64 {
	z := p.Intercept
	for i, coef := range p.Coefficients {
		z += coef * x[i]
	}
	return sigmoid(z)
}

func (p BoostingParams) predict(x []float64) float64 {
	raw := p.Baseline
	for _, t := range p.Trees {
		raw += t.eval(x)
	}
	return sigmoid(raw)
}

func (t Tree) eval(x []float64) float64 {
	i := 0
	for {
		n := t.Nodes[i]
		if n.Leaf {
			return n.Value
		}
		v := x[n.Feature]
		switch {
		case math.IsNaN(v):
			if n.MissingGoesLeft {
				i = n.Left
			} else {
				i = n.Right
			}
		case v <= n.Threshold:
			i = n.Left
		default:
			i = n.Right
		}
	}
}

func sigmoid(z float64) float64 {
	return 1 / (1 + math.Exp(-z))
}
