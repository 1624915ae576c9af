package classifier

import (
	"errors"
	"fmt"

	"github.com/clearroute/clearroute/internal/features"
)

// Supported bundle kinds.
const (
	KindLogistic         = "logistic"
	KindGradientBoosting = "gradient_boosting"
)

// Bundle is the on-disk JSON model export.
type Bundle struct {
	Kind                 string            `json:"model_type"`
	Name                 string            `json:"name,omitempty"`
	Features             []string          `json:"features"`
	ValidationConfidence float64           `json:"validation_confidence,omitempty"`
	Logistic             *LogisticParams   `json:"logistic,omitempty"`
	GradientBoosting     *BoostingParams   `json:"gradient_boosting,omitempty"`
	Metadata             map[string]string `json:"metadata,omitempty"`
}

// LogisticParams is a fitted logistic regression: p = sigmoid(intercept + Σ coef·x).
type LogisticParams struct {
	Intercept    float64   `json:"intercept"`
	Coefficients []float64 `json:"coefficients"`
}

// BoostingParams is a binary gradient-boosted tree ensemble with a logit link.
// Leaf values already include the learning rate.
type BoostingParams struct {
	Baseline float64 `json:"baseline"`
	Trees    []Tree  `json:"trees"`
}

// Tree is a flattened binary tree; node 0 is the root and children always
// have a larger index than their parent.
type Tree struct {
	Nodes []Node `json:"nodes"`
}

// Node is either a split or a leaf.
type Node struct {
	Leaf            bool    `json:"is_leaf"`
	Value           float64 `json:"value"`
	Feature         int     `json:"feature_idx"`
	Threshold       float64 `json:"num_threshold"`
	MissingGoesLeft bool    `json:"missing_go_to_left"`
	Left            int     `json:"left"`
	Right           int     `json:"right"`
}

var errInvalidBundle = errors.New("invalid model bundle")

// Validate checks the bundle is internally consistent before it is used.
func (b *Bundle) Validate() error {
	if len(b.Features) == 0 {
		return fmt.Errorf("%w: no features", errInvalidBundle)
	}
	for _, name := range b.Features {
		if _, err := (features.Record{}).Get(name); err != nil {
			return fmt.Errorf("%w: %v", errInvalidBundle, err)
		}
	}
	if b.ValidationConfidence < 0 || b.ValidationConfidence > 1 {
		return fmt.Errorf("%w: validation_confidence %g outside [0,1]", errInvalidBundle, b.ValidationConfidence)
	}

	switch b.Kind {
	case KindLogistic:
		if b.Logistic == nil {
			return fmt.Errorf("%w: missing logistic parameters", errInvalidBundle)
		}
		if len(b.Logistic.Coefficients) != len(b.Features) {
			return fmt.Errorf("%w: %d coefficients for %d features",
				errInvalidBundle, len(b.Logistic.Coefficients), len(b.Features))
		}
	case KindGradientBoosting:
		if b.GradientBoosting == nil || len(b.GradientBoosting.Trees) == 0 {
			return fmt.Errorf("%w: missing trees", errInvalidBundle)
		}
		for i, tree := range b.GradientBoosting.Trees {
			if err := tree.validate(len(b.Features)); err != nil {
				return fmt.Errorf("%w: tree %d: %v", errInvalidBundle, i, err)
			}
		}
	default:
		return fmt.Errorf("%w: unknown model_type %q", errInvalidBundle, b.Kind)
	}

	return nil
}

func (t Tree) validate(numFeatures int) error {
	if len(t.Nodes) == 0 {
		return errors.New("empty tree")
	}
	for i, n := range t.Nodes {
		if n.Leaf {
			continue
		}
		if n.Feature < 0 || n.Feature >= numFeatures {
			return fmt.Errorf("node %d: feature index %d out of range", i, n.Feature)
		}
		if n.Left <= i || n.Left >= len(t.Nodes) || n.Right <= i || n.Right >= len(t.Nodes) {
			return fmt.Errorf("node %d: bad children %d/%d", i, n.Left, n.Right)
		}
	}
	return nil
}
