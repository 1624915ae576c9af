package main

import (
	"fmt"
	"math"

	"github.com/spf13/cobra"

	"github.com/clearroute/clearroute/internal/api/models"
	"github.com/clearroute/clearroute/internal/classifier"
	"github.com/clearroute/clearroute/internal/congestion"
	"github.com/clearroute/clearroute/internal/features"
)

// Reference probabilities the exported model was validated against.
const (
	expectedSlow = 0.745
	expectedFast = 0.075
)

func newModelCmd(root *rootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "model",
		Short: "Inspect the congestion model bundle",
	}
	cmd.AddCommand(newModelCheckCmd(root))
	return cmd
}

func newModelCheckCmd(root *rootOptions) *cobra.Command {
	var (
		path      string
		tolerance float64
	)

	cmd := &cobra.Command{
		Use:   "check",
		Short: "Load the bundle and score the two reference samples",
		RunE: func(cmd *cobra.Command, _ []string) error {
			if path == "" {
				cfg, err := root.load()
				if err != nil {
					return err
				}
				path = cfg.Model.Path
			}

			model, err := classifier.Load(path)
			if err != nil {
				return err
			}

			samples := []struct {
				description string
				record      features.Record
				want        float64
			}{
				{"Slow speed (28 km/h)", features.ReferenceSlow, expectedSlow},
				{"Fast speed (64.5 km/h)", features.ReferenceFast, expectedFast},
			}

			report := models.ModelTest{Test: "success", Message: fmt.Sprintf("%s from %s", model.Name(), model.Path())}
			var drift error
			for _, s := range samples {
				p, err := model.PredictProbability(s.record)
				if err != nil {
					return fmt.Errorf("scoring %s: %w", s.description, err)
				}
				status := congestion.StatusFor(p)
				report.Samples = append(report.Samples, models.NewModelSample(
					s.description, fmt.Sprintf("~%.3f (%s)", s.want, congestion.StatusFor(s.want)), p, string(status)))

				if math.Abs(p-s.want) > tolerance && drift == nil {
					drift = fmt.Errorf("%s scored %.3f, want %.3f ± %.3f", s.description, p, s.want, tolerance)
				}
			}
			if drift != nil {
				report.Test = "failed"
			}

			if err := writeJSON(cmd.OutOrStdout(), report); err != nil {
				return err
			}
			return drift
		},
	}

	cmd.Flags().StringVar(&path, "path", "", "bundle path (default: MODEL_PATH)")
	cmd.Flags().Float64Var(&tolerance, "tolerance", 0.01, "allowed deviation from the reference probabilities")

	return cmd
}
