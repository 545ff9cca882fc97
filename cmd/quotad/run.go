package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"

	"github.com/spf13/cobra"

	"mercator-hq/quota/pkg/cli"
	"mercator-hq/quota/pkg/config"
	"mercator-hq/quota/pkg/telemetry/logging"
)

var runFlags struct {
	listenAddress string
	upstream      string
	logLevel      string
	dryRun        bool
}

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Start the quota gateway",
	Long: `Start the quota gateway with the specified configuration.

The gateway listens on the configured address, checks every request against
the client's remaining quota and proxies admitted requests to the upstream.

The configuration file is watched for changes; SIGHUP forces a reload. Only
the whitelist is applied at runtime, other changes need a restart.

Examples:
  # Start with default config
  quotad run

  # Start with custom config
  quotad run --config /etc/quotad/quotad.yaml

  # Override listen address and upstream
  quotad run --listen 0.0.0.0:8080 --upstream http://10.0.0.5:9000

  # Validate config without starting the gateway
  quotad run --dry-run`,
	RunE: runServer,
}

func init() {
	rootCmd.AddCommand(runCmd)

	runCmd.Flags().StringVarP(&runFlags.listenAddress, "listen", "l", "", "override listen address")
	runCmd.Flags().StringVar(&runFlags.upstream, "upstream", "", "override upstream URL")
	runCmd.Flags().StringVar(&runFlags.logLevel, "log-level", "", "override log level (debug, info, warn, error)")
	runCmd.Flags().BoolVar(&runFlags.dryRun, "dry-run", false, "validate config without starting the gateway")
}

// loadRunConfig loads the configuration file and applies flag overrides.
func loadRunConfig() (*config.Config, error) {
	cfg, err := config.LoadConfigWithEnvOverrides(cfgFile)
	if err != nil {
		return nil, cli.WrapConfigError(cfgFile, err)
	}

	if applyRunFlags(cfg) {
		if err := config.Validate(cfg); err != nil {
			return nil, cli.WrapConfigError("flags", err)
		}
	}

	config.SetConfig(cfg)
	return cfg, nil
}

// applyRunFlags copies command line overrides into cfg and reports whether
// any were set. Reloaded configurations go through it too so that a reload
// does not drop them.
func applyRunFlags(cfg *config.Config) bool {
	overridden := false
	if runFlags.listenAddress != "" {
		cfg.Server.ListenAddress = runFlags.listenAddress
		overridden = true
	}
	if runFlags.upstream != "" {
		cfg.Server.Upstream = runFlags.upstream
		overridden = true
	}
	if runFlags.logLevel != "" {
		cfg.Telemetry.Logging.Level = runFlags.logLevel
		overridden = true
	}
	return overridden
}

func runServer(cmd *cobra.Command, args []string) error {
	cfg, err := loadRunConfig()
	if err != nil {
		return err
	}

	logger, err := logging.New(cfg.Telemetry.Logging, os.Stdout)
	if err != nil {
		return cli.WrapConfigError("telemetry.logging", err)
	}
	slog.SetDefault(logger)

	out := cmd.OutOrStdout()
	if runFlags.dryRun {
		fmt.Fprintln(out, "✓ Configuration valid")
		return nil
	}

	printBanner(cmd, cfg)

	a, err := newApp(cfg, logger)
	if err != nil {
		return cli.NewCommandError("run", err)
	}
	defer func() {
		if err := a.Close(context.Background()); err != nil {
			logger.Error("failed to release components", "error", err)
		}
	}()
	if a.tracer.Enabled() {
		logger.Info("tracing enabled", "endpoint", cfg.Telemetry.Tracing.Endpoint)
	}

	ctx, stop := cli.SetupSignalHandler(cmd.Context())
	defer stop()

	a.watchConfig(ctx)

	if a.scheduler != nil {
		if err := a.scheduler.Start(ctx); err != nil {
			return cli.NewCommandError("run", err)
		}
		if next := a.scheduler.NextRun(); next != nil {
			logger.Debug("report scheduler started", "next_run", next)
		}
	}

	fmt.Fprintf(out, "✓ Listening on %s, proxying to %s\n", cfg.Server.ListenAddress, cfg.Server.Upstream)
	fmt.Fprintln(out, "Press Ctrl+C to stop")

	if err := a.server.Start(ctx); err != nil {
		return cli.NewCommandError("run", err)
	}

	fmt.Fprintln(out, "✓ Gateway stopped")
	return nil
}

// watchConfig reloads the configuration file when it changes on disk or on
// SIGHUP until ctx is done.
func (a *app) watchConfig(ctx context.Context) {
	watcher, err := config.NewWatcher(cfgFile, config.DefaultDebounceInterval, a.logger)
	if err != nil {
		a.logger.Warn("config file watching disabled", "error", err)
	} else {
		go func() {
			if err := watcher.Watch(ctx, a.applyReload); err != nil && ctx.Err() == nil {
				a.logger.Error("config watcher stopped", "error", err)
			}
		}()
	}

	hup := cli.ReloadSignal()
	go func() {
		defer signal.Stop(hup)
		for {
			select {
			case <-ctx.Done():
				return
			case <-hup:
				prev, next, err := config.ReloadConfig(cfgFile)
				if err != nil {
					a.logger.Error("configuration reload failed", "error", err)
					continue
				}
				a.applyReload(prev, next)
			}
		}
	}()
}

func printBanner(cmd *cobra.Command, cfg *config.Config) {
	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "quotad v%s\n", Version)
	fmt.Fprintf(out, "Loading configuration from: %s\n", cfgFile)
	fmt.Fprintln(out, "✓ Configuration loaded")

	for _, line := range describeLimits(cfg) {
		fmt.Fprintf(out, "  %s\n", line)
	}
	if cfg.Reports.Enabled {
		slog.Debug("reports enabled", "backend", cfg.Reports.Backend)
	}
	if cfg.Stats.Enabled {
		slog.Debug("stats enabled", "backend", cfg.Stats.Backend)
	}
}
