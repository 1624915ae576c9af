package main

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/clearroute/clearroute/internal/api/models"
	"github.com/clearroute/clearroute/internal/app"
	"github.com/clearroute/clearroute/internal/provider/resilience"
)

func newPredictCmd(root *rootOptions) *cobra.Command {
	var (
		from, to string
		timeout  time.Duration
	)

	cmd := &cobra.Command{
		Use:     "predict",
		Short:   "Rank routes between two locations by congestion risk",
		Example: `  clearroute predict --from "Orchard Road" --to "Changi Airport"`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := root.load()
			if err != nil {
				return err
			}

			prediction := app.NewPrediction(app.Deps{
				Config:   cfg,
				Logger:   root.logger(stderr),
				Registry: resilience.NewRegistry(),
			}, nil)

			ctx, cancel := context.WithTimeout(cmd.Context(), timeout)
			defer cancel()

			result, err := prediction.Service.Predict(ctx, from, to)
			if err != nil {
				return fmt.Errorf("predict %q → %q: %w", from, to, err)
			}
			return writeJSON(cmd.OutOrStdout(), models.NewPredictResponse(result))
		},
	}

	cmd.Flags().StringVar(&from, "from", "", "origin address or \"lat,lon\"")
	cmd.Flags().StringVar(&to, "to", "", "destination address or \"lat,lon\"")
	cmd.Flags().DurationVar(&timeout, "timeout", 60*time.Second, "overall deadline")
	_ = cmd.MarkFlagRequired("from")
	_ = cmd.MarkFlagRequired("to")

	return cmd
}
