package config

import "time"

// Config is the root configuration structure for quotad.
// It contains all configuration sections for the admission gateway, the quota
// engine, report archiving, decision statistics and telemetry.
type Config struct {
	// Server contains HTTP server configuration including listen address,
	// upstream and timeouts.
	Server ServerConfig `yaml:"server"`

	// Quota contains the per-window limits, client address extraction
	// methods and whitelist.
	Quota QuotaConfig `yaml:"quota"`

	// Reports contains configuration for periodic summary snapshots.
	Reports ReportsConfig `yaml:"reports"`

	// Stats contains configuration for admission decision counters.
	Stats StatsConfig `yaml:"stats"`

	// Telemetry contains configuration for observability including logging,
	// metrics, tracing and health checks.
	Telemetry TelemetryConfig `yaml:"telemetry"`
}

// ServerConfig contains configuration for the HTTP admission gateway.
type ServerConfig struct {
	// ListenAddress is the address and port to listen on.
	// Format: "host:port" (e.g., "127.0.0.1:8080", "0.0.0.0:8080").
	// Default: "127.0.0.1:8080"
	ListenAddress string `yaml:"listen_address"`

	// Upstream is the base URL requests are proxied to once admitted.
	// Required. Example: "http://127.0.0.1:9000"
	Upstream string `yaml:"upstream"`

	// ReadTimeout is the maximum duration for reading the entire request,
	// including the body. A zero value means no timeout.
	// Default: 30s
	ReadTimeout time.Duration `yaml:"read_timeout"`

	// WriteTimeout is the maximum duration before timing out writes of the
	// response. A zero value means no timeout.
	// Default: 5m
	WriteTimeout time.Duration `yaml:"write_timeout"`

	// IdleTimeout is the maximum amount of time to wait for the next request
	// when keep-alives are enabled.
	// Default: 120s
	IdleTimeout time.Duration `yaml:"idle_timeout"`

	// ShutdownTimeout is the maximum duration to wait for in-flight requests
	// during graceful shutdown.
	// Default: 30s
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`

	// MaxHeaderBytes limits the size of request headers.
	// Default: 1048576 (1MB)
	MaxHeaderBytes int `yaml:"max_header_bytes"`

	// SummaryPath is the path of the lowest daily quota summary endpoint.
	// Default: "/quota/summary"
	SummaryPath string `yaml:"summary_path"`

	// SummaryMaxEntries caps the n query parameter of the summary endpoint.
	// Default: 100
	SummaryMaxEntries int `yaml:"summary_max_entries"`
}

// QuotaConfig contains configuration for the quota engine.
type QuotaConfig struct {
	// Limits maps limit names to budgets in seconds. Recognised names are
	// ipaddr_per_month, ipaddr_per_week, ipaddr_per_day, token_per_month,
	// token_per_week and token_per_day. Omitted names disable the window.
	Limits map[string]float64 `yaml:"limits"`

	// IPAddrMethods lists client address extraction methods in order.
	// Options: "X-Real-Ip", "socket", "X-Forwarded-For" (not implemented)
	// Default: ["X-Real-Ip", "socket"]
	IPAddrMethods []string `yaml:"ipaddr_methods"`

	// Whitelist contains IP address literals exempt from accounting.
	Whitelist []string `yaml:"whitelist"`

	// FailOpen serves requests uncharged when the client identity cannot
	// be determined. When false such requests get a 500.
	// Default: false
	FailOpen bool `yaml:"fail_open"`

	// DenialLogInterval is the minimum interval between two logged quota
	// denials. Zero logs every denial.
	// Default: 10s
	DenialLogInterval time.Duration `yaml:"denial_log_interval"`
}

// ReportsConfig contains configuration for summary snapshot archiving.
type ReportsConfig struct {
	// Enabled controls whether snapshots are taken.
	// Default: false
	Enabled bool `yaml:"enabled"`

	// Backend selects the snapshot store.
	// Options: "memory", "sqlite"
	// Default: "sqlite"
	Backend string `yaml:"backend"`

	// SQLite contains SQLite store configuration.
	SQLite SQLiteConfig `yaml:"sqlite"`

	// SnapshotSchedule is a cron expression for taking snapshots.
	// Default: "*/15 * * * *"
	SnapshotSchedule string `yaml:"snapshot_schedule"`

	// PruneSchedule is a cron expression for deleting old snapshots.
	// Default: "0 3 * * *"
	PruneSchedule string `yaml:"prune_schedule"`

	// Retention is how long snapshots are kept.
	// Default: 168h (7 days)
	Retention time.Duration `yaml:"retention"`

	// TopN is the number of summary entries stored per snapshot.
	// Default: 20
	TopN int `yaml:"top_n"`
}

// SQLiteConfig contains SQLite store configuration.
type SQLiteConfig struct {
	// Path is the database file path.
	// Default: "data/quota-reports.db"
	Path string `yaml:"path"`

	// Driver selects the database/sql driver.
	// Options: "sqlite" (pure Go), "sqlite3" (cgo)
	// Default: "sqlite"
	Driver string `yaml:"driver"`

	// WALMode enables Write-Ahead Logging.
	// Default: true
	WALMode bool `yaml:"wal_mode"`

	// BusyTimeout is the duration to wait when the database is locked.
	// Default: 5s
	BusyTimeout time.Duration `yaml:"busy_timeout"`
}

// StatsConfig contains configuration for admission decision counters.
type StatsConfig struct {
	// Enabled controls whether decisions are recorded.
	// Default: false
	Enabled bool `yaml:"enabled"`

	// Backend selects the recorder.
	// Options: "memory", "redis"
	// Default: "memory"
	Backend string `yaml:"backend"`

	// Redis contains Redis recorder configuration.
	Redis RedisConfig `yaml:"redis"`
}

// RedisConfig contains Redis connection and key layout settings.
type RedisConfig struct {
	// Address is the Redis server address.
	// Default: "127.0.0.1:6379"
	Address string `yaml:"address"`

	// Password is the optional Redis password.
	Password string `yaml:"password"`

	// DB is the Redis database number.
	// Default: 0
	DB int `yaml:"db"`

	// Prefix is the key prefix.
	// Default: "quotad:stats"
	Prefix string `yaml:"prefix"`

	// TTL is the expiry of per-minute buckets.
	// Default: 24h
	TTL time.Duration `yaml:"ttl"`

	// Bucket selects time bucketing.
	// Options: "minute", "none"
	// Default: "minute"
	Bucket string `yaml:"bucket"`
}

// TelemetryConfig contains configuration for observability.
type TelemetryConfig struct {
	// Logging contains logging configuration.
	Logging LoggingConfig `yaml:"logging"`

	// Metrics contains metrics configuration.
	Metrics MetricsConfig `yaml:"metrics"`

	// Tracing contains distributed tracing configuration.
	Tracing TracingConfig `yaml:"tracing"`

	// Health contains health check configuration.
	Health HealthConfig `yaml:"health"`
}

// LoggingConfig contains logging configuration.
type LoggingConfig struct {
	// Level is the minimum log level to emit.
	// Options: "debug", "info", "warn", "error"
	// Default: "info"
	Level string `yaml:"level"`

	// Format controls the log output format.
	// Options: "json", "text"
	// Default: "json"
	Format string `yaml:"format"`

	// AddSource includes file and line number in log entries.
	// Default: false
	AddSource bool `yaml:"add_source"`

	// RedactPII masks client addresses and bearer tokens in logs.
	// Default: true
	RedactPII bool `yaml:"redact_pii"`

	// RedactPatterns contains custom redaction patterns.
	RedactPatterns []RedactPattern `yaml:"redact_patterns"`
}

// RedactPattern defines a custom redaction pattern.
type RedactPattern struct {
	// Name is a descriptive name for the pattern.
	Name string `yaml:"name"`

	// Pattern is the regular expression to match.
	Pattern string `yaml:"pattern"`

	// Replacement is the string to replace matches with.
	Replacement string `yaml:"replacement"`
}

// MetricsConfig contains metrics configuration.
type MetricsConfig struct {
	// Enabled controls whether the Prometheus endpoint is served.
	// Default: true
	Enabled bool `yaml:"enabled"`

	// Path is the HTTP path for the Prometheus metrics endpoint.
	// Default: "/metrics"
	Path string `yaml:"path"`
}

// TracingConfig contains distributed tracing configuration.
type TracingConfig struct {
	// Enabled controls whether spans are exported.
	// Default: false
	Enabled bool `yaml:"enabled"`

	// Sampler determines the sampling strategy.
	// Options: "always", "never", "ratio"
	// Default: "ratio"
	Sampler string `yaml:"sampler"`

	// SampleRatio is the fraction of traces to sample (0.0 to 1.0).
	// Default: 0.1
	SampleRatio float64 `yaml:"sample_ratio"`

	// Endpoint is the OTLP gRPC collector endpoint.
	// Example: "localhost:4317"
	Endpoint string `yaml:"endpoint"`

	// ServiceName is the service name in traces.
	// Default: "quotad"
	ServiceName string `yaml:"service_name"`

	// OTLP contains OTLP exporter specific configuration.
	OTLP OTLPConfig `yaml:"otlp"`
}

// OTLPConfig contains OTLP exporter configuration.
type OTLPConfig struct {
	// Insecure disables TLS for the OTLP connection.
	// Default: true
	Insecure bool `yaml:"insecure"`

	// Timeout is the timeout for OTLP exports.
	// Default: 10s
	Timeout time.Duration `yaml:"timeout"`
}

// HealthConfig contains health check endpoint configuration.
type HealthConfig struct {
	// Enabled controls whether health check endpoints are served.
	// Default: true
	Enabled bool `yaml:"enabled"`

	// LivenessPath is the path for the liveness probe endpoint.
	// Default: "/health"
	LivenessPath string `yaml:"liveness_path"`

	// ReadinessPath is the path for the readiness probe endpoint.
	// Default: "/ready"
	ReadinessPath string `yaml:"readiness_path"`

	// CheckTimeout bounds each readiness check.
	// Default: 2s
	CheckTimeout time.Duration `yaml:"check_timeout"`
}
