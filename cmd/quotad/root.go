package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"mercator-hq/quota/pkg/cli"
)

var (
	// Global flags
	cfgFile string
)

var rootCmd = &cobra.Command{
	Use:   "quotad",
	Short: "quotad - usage-based quota gateway",
	Long: `quotad accounts the time spent serving each client against rolling
day, week and month budgets and rejects clients whose budget is exhausted.

It runs as a reverse proxy in front of an HTTP service and exposes:
  - X-RateLimit-Remaining on every charged response
  - a lowest remaining budget summary endpoint
  - Prometheus metrics and health probes
  - an archive of periodic summary snapshots`,
	Version:       Version,
	SilenceUsage:  true,
	SilenceErrors: true,
}

// Execute runs the root command and exits with a status derived from the
// returned error.
func Execute() {
	if err := rootCmd.ExecuteContext(context.Background()); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(cli.ExitCode(err))
	}
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&cfgFile, "config", "c", "quotad.yaml", "config file path")
}
