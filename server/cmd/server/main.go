// Command regionpulse serves per-region latency and uptime statistics
// computed from a static telemetry dataset.
//
//	regionpulse serve --config config.yaml
//	regionpulse query --data telemetry.json --regions us-east,eu-west --threshold 250
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

// Version is set via ldflags during build.
var Version = "dev"

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "regionpulse",
		Short:         "Per-region latency and uptime statistics over a static telemetry dataset",
		Version:       Version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.AddCommand(newServeCmd(), newQueryCmd())
	return root
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "regionpulse:", err)
		os.Exit(1)
	}
}
