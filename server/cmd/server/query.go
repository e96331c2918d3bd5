package main

import (
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/regionpulse/regionpulse/server/internal/aggregate"
	"github.com/regionpulse/regionpulse/server/internal/config"
	"github.com/regionpulse/regionpulse/server/internal/store"
)

type queryOptions struct {
	configPath string
	dataPath   string
	regions    []string
	threshold  float64
	pretty     bool
}

func newQueryCmd() *cobra.Command {
	var opts queryOptions
	cmd := &cobra.Command{
		Use:   "query",
		Short: "Aggregate the dataset once and print the result as JSON",
		Example: `  regionpulse query --data telemetry.json --regions us-east,eu-west --threshold 250
  regionpulse query --config config.yaml --regions apac`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			var threshold *float64
			if cmd.Flags().Changed("threshold") {
				threshold = &opts.threshold
			}
			return runQuery(cmd, opts, threshold)
		},
	}
	f := cmd.Flags()
	f.StringVar(&opts.configPath, "config", "", "config file to take telemetry.path from")
	f.StringVar(&opts.dataPath, "data", "", "telemetry JSON file (overrides --config; default "+config.DefaultTelemetryPath+")")
	f.StringSliceVar(&opts.regions, "regions", nil, "comma-separated regions to summarise")
	f.Float64Var(&opts.threshold, "threshold", 0, "latency threshold in ms; omit for no breach counting")
	f.BoolVar(&opts.pretty, "pretty", false, "indent JSON output")
	return cmd
}

func runQuery(cmd *cobra.Command, opts queryOptions, threshold *float64) error {
	slog.SetDefault(slog.New(slog.NewTextHandler(cmd.ErrOrStderr(), &slog.HandlerOptions{Level: slog.LevelWarn})))

	cfg := config.Defaults()
	if opts.configPath != "" {
		loaded, err := config.Load(opts.configPath)
		if err != nil {
			return err
		}
		cfg = loaded
	}
	path := cfg.Telemetry.Path
	if opts.dataPath != "" {
		path = opts.dataPath
	}

	st, err := store.Load(path)
	if err != nil {
		return err
	}

	res := aggregate.Aggregate(st, opts.regions, threshold)

	enc := json.NewEncoder(cmd.OutOrStdout())
	if opts.pretty {
		enc.SetIndent("", "  ")
	}
	if err := enc.Encode(res); err != nil {
		return fmt.Errorf("query: encode result: %w", err)
	}
	return nil
}
