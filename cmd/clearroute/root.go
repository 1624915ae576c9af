package main

import (
	"encoding/json"
	"io"
	"os"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/clearroute/clearroute/internal/config"
)

type rootOptions struct {
	cfgFile string
	verbose bool
}

func newRootCmd() *cobra.Command {
	opts := &rootOptions{}

	cmd := &cobra.Command{
		Use:           "clearroute",
		Short:         "Congestion-aware route prediction for Singapore",
		Long:          `clearroute scores driving routes between two Singapore locations against live LTA speed bands and manages the ClearRoute backend.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		Version:       Version,
	}

	cmd.PersistentFlags().StringVar(&opts.cfgFile, "config", "", "config file (YAML); environment and .env are always read")
	cmd.PersistentFlags().BoolVarP(&opts.verbose, "verbose", "v", false, "log provider calls to stderr")

	cmd.AddCommand(
		newPredictCmd(opts),
		newModelCmd(opts),
		newTokenCmd(opts),
	)
	return cmd
}

func (o *rootOptions) load() (*config.Config, error) {
	return config.Load(o.cfgFile)
}

func (o *rootOptions) logger(w io.Writer) zerolog.Logger {
	level := zerolog.WarnLevel
	if o.verbose {
		level = zerolog.DebugLevel
	}
	return zerolog.New(zerolog.ConsoleWriter{Out: w}).
		Level(level).
		With().
		Timestamp().
		Str("service", "clearroute-cli").
		Str("version", Version).
		Logger()
}

func writeJSON(w io.Writer, v interface{}) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

var stderr io.Writer = os.Stderr
