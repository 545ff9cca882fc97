package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"reflect"
	"time"

	"github.com/redis/go-redis/v9"

	"mercator-hq/quota/pkg/config"
	"mercator-hq/quota/pkg/quota"
	"mercator-hq/quota/pkg/quota/middleware"
	"mercator-hq/quota/pkg/quota/report"
	"mercator-hq/quota/pkg/quota/stats"
	"mercator-hq/quota/pkg/server"
	"mercator-hq/quota/pkg/telemetry/health"
	"mercator-hq/quota/pkg/telemetry/metrics"
	"mercator-hq/quota/pkg/telemetry/tracing"
)

// app holds the components of a running gateway.
type app struct {
	logger *slog.Logger

	collector *metrics.Collector
	tracer    *tracing.Tracer
	engine    *quota.Engine
	limiter   *middleware.Limiter
	checker   *health.Checker

	recorder stats.Recorder
	rdb      *redis.Client

	store     report.Store
	scheduler *report.Scheduler

	server *server.Server
}

// newApp wires every component described by cfg. The caller must Close the
// returned app.
func newApp(cfg *config.Config, logger *slog.Logger) (*app, error) {
	a := &app{logger: logger}
	if err := a.init(cfg); err != nil {
		if closeErr := a.Close(context.Background()); closeErr != nil {
			logger.Warn("failed to release components", "error", closeErr)
		}
		return nil, err
	}
	return a, nil
}

func (a *app) init(cfg *config.Config) error {
	var err error
	a.collector = metrics.NewCollector()

	a.tracer, err = tracing.New(&cfg.Telemetry.Tracing, Version)
	if err != nil {
		return fmt.Errorf("failed to initialize tracing: %w", err)
	}

	engineCfg, err := cfg.Quota.EngineConfig()
	if err != nil {
		return err
	}
	quotaMetrics := quota.NewMetrics(a.collector.Registry())
	a.engine, err = quota.New(engineCfg, quota.WithMetrics(quotaMetrics))
	if err != nil {
		return err
	}

	if cfg.Stats.Enabled {
		if err := a.openStats(&cfg.Stats); err != nil {
			return err
		}
	}

	if cfg.Reports.Enabled {
		a.store, err = openReportStore(&cfg.Reports)
		if err != nil {
			return err
		}
		a.scheduler = report.NewScheduler(a.engine, a.store, &report.Config{
			SnapshotSchedule: cfg.Reports.SnapshotSchedule,
			PruneSchedule:    cfg.Reports.PruneSchedule,
			Retention:        cfg.Reports.Retention,
			TopN:             cfg.Reports.TopN,
		})
	}

	extractor, err := middleware.NewExtractor(cfg.Quota.IPAddrMethods)
	if err != nil {
		return err
	}
	opts := []middleware.Option{
		middleware.WithFailOpen(cfg.Quota.FailOpen),
		middleware.WithDenialLogInterval(cfg.Quota.DenialLogInterval),
		middleware.WithTracer(a.tracer),
		middleware.WithMetrics(quotaMetrics),
		middleware.WithLogger(a.logger),
	}
	if a.recorder != nil {
		opts = append(opts, middleware.WithRecorder(a.recorder))
	}
	a.limiter = middleware.NewLimiter(a.engine, extractor, opts...)

	a.checker = a.newChecker(cfg.Telemetry.Health.CheckTimeout)

	a.server, err = server.New(&cfg.Server, &cfg.Telemetry, server.Deps{
		Engine:    a.engine,
		Limiter:   a.limiter,
		Collector: a.collector,
		Health:    a.checker,
		Logger:    a.logger,
		Version:   health.VersionHandler(Version, GitCommit, BuildDate),
	})
	return err
}

// openStats creates the decision recorder for the configured backend.
func (a *app) openStats(cfg *config.StatsConfig) error {
	switch cfg.Backend {
	case "redis":
		a.rdb = redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Address,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		a.recorder = stats.NewRedisRecorder(a.rdb,
			stats.WithPrefix(cfg.Redis.Prefix),
			stats.WithTTL(cfg.Redis.TTL),
			stats.WithBucket(cfg.Redis.Bucket),
		)
	case "memory":
		a.recorder = stats.NewMemoryRecorder()
	default:
		return fmt.Errorf("unsupported stats backend: %s", cfg.Backend)
	}
	return nil
}

// openReportStore opens the snapshot archive for the configured backend.
func openReportStore(cfg *config.ReportsConfig) (report.Store, error) {
	switch cfg.Backend {
	case "sqlite":
		if dir := filepath.Dir(cfg.SQLite.Path); dir != "." {
			if err := os.MkdirAll(dir, 0o755); err != nil {
				return nil, fmt.Errorf("failed to create report directory: %w", err)
			}
		}
		return report.NewSQLiteStore(&report.SQLiteConfig{
			Path:        cfg.SQLite.Path,
			Driver:      cfg.SQLite.Driver,
			WALMode:     cfg.SQLite.WALMode,
			BusyTimeout: cfg.SQLite.BusyTimeout,
		})
	case "memory":
		return report.NewMemoryStore(), nil
	default:
		return nil, fmt.Errorf("unsupported reports backend: %s", cfg.Backend)
	}
}

// newChecker registers readiness checks for the engine and the optional
// backing stores.
func (a *app) newChecker(timeout time.Duration) *health.Checker {
	checker := health.New(timeout)

	checker.RegisterCheck("engine", func(ctx context.Context) error {
		a.engine.Tracked()
		return nil
	})
	if a.store != nil {
		checker.RegisterCheck("reports", a.store.Ping)
	}
	if pinger, ok := a.recorder.(interface{ Ping(context.Context) error }); ok {
		checker.RegisterCheck("stats", pinger.Ping)
	}
	return checker
}

// applyReload applies the parts of a reloaded configuration that can change
// at runtime. Only the whitelist is applied; other changes are logged.
func (a *app) applyReload(prev, next *config.Config) {
	applyRunFlags(next)

	if err := a.engine.SetWhitelist(next.Quota.Whitelist); err != nil {
		a.logger.Error("failed to apply reloaded whitelist", "error", err)
	} else {
		a.logger.Info("whitelist reloaded", "entries", len(next.Quota.Whitelist))
	}

	if prev == nil {
		return
	}
	for _, change := range restartRequired(prev, next) {
		a.logger.Warn("configuration change requires a restart", "setting", change)
	}
}

// restartRequired lists settings that differ between prev and next but are
// only read at startup.
func restartRequired(prev, next *config.Config) []string {
	var changes []string
	if !reflect.DeepEqual(prev.Quota.Limits, next.Quota.Limits) {
		changes = append(changes, "quota.limits")
	}
	if !reflect.DeepEqual(prev.Quota.IPAddrMethods, next.Quota.IPAddrMethods) {
		changes = append(changes, "quota.ipaddr_methods")
	}
	if prev.Quota.FailOpen != next.Quota.FailOpen {
		changes = append(changes, "quota.fail_open")
	}
	if prev.Quota.DenialLogInterval != next.Quota.DenialLogInterval {
		changes = append(changes, "quota.denial_log_interval")
	}
	if prev.Server != next.Server {
		changes = append(changes, "server")
	}
	if !reflect.DeepEqual(prev.Reports, next.Reports) {
		changes = append(changes, "reports")
	}
	if prev.Stats != next.Stats {
		changes = append(changes, "stats")
	}
	if !reflect.DeepEqual(prev.Telemetry, next.Telemetry) {
		changes = append(changes, "telemetry")
	}
	return changes
}

// Close releases every component that holds resources.
func (a *app) Close(ctx context.Context) error {
	var errs []error
	if a.scheduler != nil {
		a.scheduler.Stop()
	}
	if a.store != nil {
		errs = append(errs, a.store.Close())
	}
	if a.rdb != nil {
		errs = append(errs, a.rdb.Close())
	}
	if a.tracer != nil {
		errs = append(errs, a.tracer.Shutdown(ctx))
	}
	return errors.Join(errs...)
}
