package config

import (
	"time"

	"mercator-hq/quota/pkg/quota"
)

// Default values for configuration fields.
const (
	// Server defaults
	DefaultListenAddress     = "127.0.0.1:8080"
	DefaultReadTimeout       = 30 * time.Second
	DefaultWriteTimeout      = 5 * time.Minute
	DefaultIdleTimeout       = 120 * time.Second
	DefaultShutdownTimeout   = 30 * time.Second
	DefaultMaxHeaderBytes    = 1048576 // 1MB
	DefaultSummaryPath       = "/quota/summary"
	DefaultSummaryMaxEntries = 100

	// Quota defaults
	DefaultDenialLogInterval = 10 * time.Second

	// Reports defaults
	DefaultReportsBackend          = "sqlite"
	DefaultReportsSQLitePath       = "data/quota-reports.db"
	DefaultReportsSQLiteDriver     = "sqlite"
	DefaultReportsSQLiteWALMode    = true
	DefaultReportsSQLiteBusyTimeout = 5 * time.Second
	DefaultReportsSnapshotSchedule = "*/15 * * * *"
	DefaultReportsPruneSchedule    = "0 3 * * *"
	DefaultReportsRetention        = 7 * 24 * time.Hour
	DefaultReportsTopN             = 20

	// Stats defaults
	DefaultStatsBackend     = "memory"
	DefaultStatsRedisAddr   = "127.0.0.1:6379"
	DefaultStatsRedisPrefix = "quotad:stats"
	DefaultStatsRedisTTL    = 24 * time.Hour
	DefaultStatsRedisBucket = "minute"

	// Telemetry defaults
	DefaultLoggingLevel       = "info"
	DefaultLoggingFormat      = "json"
	DefaultLoggingRedactPII   = true
	DefaultMetricsEnabled     = true
	DefaultPrometheusPath     = "/metrics"
	DefaultTracingSampler     = "ratio"
	DefaultTracingSampleRatio = 0.1
	DefaultTracingServiceName = "quotad"
	DefaultOTLPInsecure       = true
	DefaultOTLPTimeout        = 10 * time.Second
	DefaultHealthEnabled      = true
	DefaultLivenessPath       = "/health"
	DefaultReadinessPath      = "/ready"
	DefaultHealthCheckTimeout = 2 * time.Second
)

// Defaults returns a configuration with every default applied, including
// the boolean options that default to true. Loaders decode YAML on top of
// it so that an explicit false in the file is kept.
func Defaults() *Config {
	cfg := &Config{}
	cfg.Reports.SQLite.WALMode = DefaultReportsSQLiteWALMode
	cfg.Telemetry.Logging.RedactPII = DefaultLoggingRedactPII
	cfg.Telemetry.Metrics.Enabled = DefaultMetricsEnabled
	cfg.Telemetry.Tracing.OTLP.Insecure = DefaultOTLPInsecure
	cfg.Telemetry.Health.Enabled = DefaultHealthEnabled
	ApplyDefaults(cfg)
	return cfg
}

// ApplyDefaults fills zero-valued fields with their defaults. Boolean
// options are left untouched because false cannot be told apart from unset;
// see Defaults.
func ApplyDefaults(cfg *Config) {
	// Server defaults
	if cfg.Server.ListenAddress == "" {
		cfg.Server.ListenAddress = DefaultListenAddress
	}
	if cfg.Server.ReadTimeout == 0 {
		cfg.Server.ReadTimeout = DefaultReadTimeout
	}
	if cfg.Server.WriteTimeout == 0 {
		cfg.Server.WriteTimeout = DefaultWriteTimeout
	}
	if cfg.Server.IdleTimeout == 0 {
		cfg.Server.IdleTimeout = DefaultIdleTimeout
	}
	if cfg.Server.ShutdownTimeout == 0 {
		cfg.Server.ShutdownTimeout = DefaultShutdownTimeout
	}
	if cfg.Server.MaxHeaderBytes == 0 {
		cfg.Server.MaxHeaderBytes = DefaultMaxHeaderBytes
	}
	if cfg.Server.SummaryPath == "" {
		cfg.Server.SummaryPath = DefaultSummaryPath
	}
	if cfg.Server.SummaryMaxEntries == 0 {
		cfg.Server.SummaryMaxEntries = DefaultSummaryMaxEntries
	}

	// Quota defaults
	if len(cfg.Quota.IPAddrMethods) == 0 {
		cfg.Quota.IPAddrMethods = append([]string(nil), quota.DefaultIPAddrMethods...)
	}
	if cfg.Quota.DenialLogInterval == 0 {
		cfg.Quota.DenialLogInterval = DefaultDenialLogInterval
	}

	// Reports defaults
	if cfg.Reports.Backend == "" {
		cfg.Reports.Backend = DefaultReportsBackend
	}
	if cfg.Reports.SQLite.Path == "" {
		cfg.Reports.SQLite.Path = DefaultReportsSQLitePath
	}
	if cfg.Reports.SQLite.Driver == "" {
		cfg.Reports.SQLite.Driver = DefaultReportsSQLiteDriver
	}
	if cfg.Reports.SQLite.BusyTimeout == 0 {
		cfg.Reports.SQLite.BusyTimeout = DefaultReportsSQLiteBusyTimeout
	}
	if cfg.Reports.SnapshotSchedule == "" {
		cfg.Reports.SnapshotSchedule = DefaultReportsSnapshotSchedule
	}
	if cfg.Reports.PruneSchedule == "" {
		cfg.Reports.PruneSchedule = DefaultReportsPruneSchedule
	}
	if cfg.Reports.Retention == 0 {
		cfg.Reports.Retention = DefaultReportsRetention
	}
	if cfg.Reports.TopN == 0 {
		cfg.Reports.TopN = DefaultReportsTopN
	}

	// Stats defaults
	if cfg.Stats.Backend == "" {
		cfg.Stats.Backend = DefaultStatsBackend
	}
	if cfg.Stats.Redis.Address == "" {
		cfg.Stats.Redis.Address = DefaultStatsRedisAddr
	}
	if cfg.Stats.Redis.Prefix == "" {
		cfg.Stats.Redis.Prefix = DefaultStatsRedisPrefix
	}
	if cfg.Stats.Redis.TTL == 0 {
		cfg.Stats.Redis.TTL = DefaultStatsRedisTTL
	}
	if cfg.Stats.Redis.Bucket == "" {
		cfg.Stats.Redis.Bucket = DefaultStatsRedisBucket
	}

	// Telemetry defaults
	if cfg.Telemetry.Logging.Level == "" {
		cfg.Telemetry.Logging.Level = DefaultLoggingLevel
	}
	if cfg.Telemetry.Logging.Format == "" {
		cfg.Telemetry.Logging.Format = DefaultLoggingFormat
	}
	if cfg.Telemetry.Metrics.Path == "" {
		cfg.Telemetry.Metrics.Path = DefaultPrometheusPath
	}
	if cfg.Telemetry.Tracing.Sampler == "" {
		cfg.Telemetry.Tracing.Sampler = DefaultTracingSampler
	}
	if cfg.Telemetry.Tracing.SampleRatio == 0 && cfg.Telemetry.Tracing.Sampler == "ratio" {
		cfg.Telemetry.Tracing.SampleRatio = DefaultTracingSampleRatio
	}
	if cfg.Telemetry.Tracing.ServiceName == "" {
		cfg.Telemetry.Tracing.ServiceName = DefaultTracingServiceName
	}
	if cfg.Telemetry.Tracing.OTLP.Timeout == 0 {
		cfg.Telemetry.Tracing.OTLP.Timeout = DefaultOTLPTimeout
	}
	if cfg.Telemetry.Health.LivenessPath == "" {
		cfg.Telemetry.Health.LivenessPath = DefaultLivenessPath
	}
	if cfg.Telemetry.Health.ReadinessPath == "" {
		cfg.Telemetry.Health.ReadinessPath = DefaultReadinessPath
	}
	if cfg.Telemetry.Health.CheckTimeout == 0 {
		cfg.Telemetry.Health.CheckTimeout = DefaultHealthCheckTimeout
	}
}
