package config

import (
	"errors"
	"fmt"
	"net/url"
	"regexp"
	"sort"
	"strings"

	"github.com/robfig/cron/v3"

	"mercator-hq/quota/pkg/quota"
)

// FieldError represents a validation error for a specific configuration field.
type FieldError struct {
	// Field is the dotted path to the configuration field (e.g., "server.listen_address").
	Field string

	// Message is a human-readable error message.
	Message string
}

// Error returns the error message for this field error.
func (e FieldError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// ValidationError represents one or more validation errors in a configuration.
// It implements the error interface and provides access to all field errors.
type ValidationError struct {
	// Errors contains all validation errors found in the configuration.
	Errors []FieldError
}

// Error returns a formatted string containing all validation errors.
func (e ValidationError) Error() string {
	if len(e.Errors) == 0 {
		return "configuration validation failed"
	}
	if len(e.Errors) == 1 {
		return fmt.Sprintf("configuration validation failed: %s", e.Errors[0].Error())
	}

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("configuration validation failed with %d errors:\n", len(e.Errors)))
	for _, err := range e.Errors {
		sb.WriteString(fmt.Sprintf("  - %s\n", err.Error()))
	}
	return sb.String()
}

// Validate validates the entire configuration and returns a ValidationError
// if any validation rules fail. It returns nil if the configuration is valid.
// All validation errors are collected and returned together.
func Validate(cfg *Config) error {
	var errs []FieldError

	errs = append(errs, validateServer(&cfg.Server)...)
	errs = append(errs, validateQuota(&cfg.Quota)...)
	errs = append(errs, validateReports(&cfg.Reports)...)
	errs = append(errs, validateStats(&cfg.Stats)...)
	errs = append(errs, validateTelemetry(&cfg.Telemetry)...)

	if len(errs) > 0 {
		return ValidationError{Errors: errs}
	}

	return nil
}

// validateServer validates server configuration.
func validateServer(cfg *ServerConfig) []FieldError {
	var errs []FieldError

	if cfg.ListenAddress == "" {
		errs = append(errs, FieldError{
			Field:   "server.listen_address",
			Message: "listen address is required",
		})
	}

	if cfg.Upstream == "" {
		errs = append(errs, FieldError{
			Field:   "server.upstream",
			Message: "upstream URL is required",
		})
	} else if u, err := url.Parse(cfg.Upstream); err != nil {
		errs = append(errs, FieldError{
			Field:   "server.upstream",
			Message: fmt.Sprintf("invalid URL format: %v", err),
		})
	} else if (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		errs = append(errs, FieldError{
			Field:   "server.upstream",
			Message: fmt.Sprintf("upstream %q must be an absolute http or https URL", cfg.Upstream),
		})
	}

	// Validate timeouts are positive
	if cfg.ReadTimeout < 0 {
		errs = append(errs, FieldError{
			Field:   "server.read_timeout",
			Message: "read timeout must be positive",
		})
	}
	if cfg.WriteTimeout < 0 {
		errs = append(errs, FieldError{
			Field:   "server.write_timeout",
			Message: "write timeout must be positive",
		})
	}
	if cfg.IdleTimeout < 0 {
		errs = append(errs, FieldError{
			Field:   "server.idle_timeout",
			Message: "idle timeout must be positive",
		})
	}
	if cfg.ShutdownTimeout < 0 {
		errs = append(errs, FieldError{
			Field:   "server.shutdown_timeout",
			Message: "shutdown timeout must be positive",
		})
	}

	if cfg.MaxHeaderBytes < 0 {
		errs = append(errs, FieldError{
			Field:   "server.max_header_bytes",
			Message: "max header bytes must be non-negative",
		})
	}
	if cfg.MaxHeaderBytes > 10*1024*1024 { // 10MB is excessive
		errs = append(errs, FieldError{
			Field:   "server.max_header_bytes",
			Message: "max header bytes exceeds reasonable limit (10MB)",
		})
	}

	if !strings.HasPrefix(cfg.SummaryPath, "/") {
		errs = append(errs, FieldError{
			Field:   "server.summary_path",
			Message: "summary path must start with /",
		})
	}
	if cfg.SummaryMaxEntries < 1 {
		errs = append(errs, FieldError{
			Field:   "server.summary_max_entries",
			Message: "summary max entries must be at least 1",
		})
	}

	return errs
}

// validateQuota validates quota configuration.
func validateQuota(cfg *QuotaConfig) []FieldError {
	var errs []FieldError

	names := make([]string, 0, len(cfg.Limits))
	for name := range cfg.Limits {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, name := range names {
		value := cfg.Limits[name]
		if _, err := quota.LimitsFromMap(map[string]float64{name: value}); err != nil {
			message := fmt.Sprintf("limit must be a finite positive number, got %v", value)
			if errors.Is(err, quota.ErrUnknownLimit) {
				message = fmt.Sprintf("unknown limit %q", name)
			}
			errs = append(errs, FieldError{
				Field:   "quota.limits." + name,
				Message: message,
			})
		}
	}

	validMethods := map[string]bool{
		quota.MethodXRealIP:       true,
		quota.MethodSocket:        true,
		quota.MethodXForwardedFor: true,
	}
	for i, method := range cfg.IPAddrMethods {
		if !validMethods[method] {
			errs = append(errs, FieldError{
				Field:   fmt.Sprintf("quota.ipaddr_methods[%d]", i),
				Message: fmt.Sprintf("unknown method %q: must be 'X-Real-Ip', 'socket', or 'X-Forwarded-For'", method),
			})
		}
	}

	for i, addr := range cfg.Whitelist {
		if _, err := quota.ParseIPAddr(addr); err != nil {
			errs = append(errs, FieldError{
				Field:   fmt.Sprintf("quota.whitelist[%d]", i),
				Message: fmt.Sprintf("invalid IP address %q", addr),
			})
		}
	}

	if cfg.DenialLogInterval < 0 {
		errs = append(errs, FieldError{
			Field:   "quota.denial_log_interval",
			Message: "denial log interval must be non-negative",
		})
	}

	return errs
}

// validateReports validates report snapshot configuration.
func validateReports(cfg *ReportsConfig) []FieldError {
	var errs []FieldError

	// If reports are disabled, skip validation
	if !cfg.Enabled {
		return errs
	}

	switch cfg.Backend {
	case "memory":
	case "sqlite":
		if cfg.SQLite.Path == "" {
			errs = append(errs, FieldError{
				Field:   "reports.sqlite.path",
				Message: "SQLite path is required when backend is 'sqlite'",
			})
		}
		if cfg.SQLite.Driver != "sqlite" && cfg.SQLite.Driver != "sqlite3" {
			errs = append(errs, FieldError{
				Field:   "reports.sqlite.driver",
				Message: fmt.Sprintf("invalid driver %q: must be 'sqlite' or 'sqlite3'", cfg.SQLite.Driver),
			})
		}
		if cfg.SQLite.BusyTimeout < 0 {
			errs = append(errs, FieldError{
				Field:   "reports.sqlite.busy_timeout",
				Message: "busy timeout must be non-negative",
			})
		}
	default:
		errs = append(errs, FieldError{
			Field:   "reports.backend",
			Message: fmt.Sprintf("invalid backend %q: must be 'memory' or 'sqlite'", cfg.Backend),
		})
	}

	errs = append(errs, validateSchedule("reports.snapshot_schedule", cfg.SnapshotSchedule)...)
	errs = append(errs, validateSchedule("reports.prune_schedule", cfg.PruneSchedule)...)

	if cfg.Retention < 0 {
		errs = append(errs, FieldError{
			Field:   "reports.retention",
			Message: "retention must be non-negative",
		})
	}
	if cfg.TopN < 1 {
		errs = append(errs, FieldError{
			Field:   "reports.top_n",
			Message: "top_n must be at least 1",
		})
	}

	return errs
}

// validateSchedule checks a standard five-field cron expression. Empty
// disables the job.
func validateSchedule(field, schedule string) []FieldError {
	if schedule == "" {
		return nil
	}
	if _, err := cron.ParseStandard(schedule); err != nil {
		return []FieldError{{
			Field:   field,
			Message: fmt.Sprintf("invalid cron expression %q: %v", schedule, err),
		}}
	}
	return nil
}

// validateStats validates decision statistics configuration.
func validateStats(cfg *StatsConfig) []FieldError {
	var errs []FieldError

	if !cfg.Enabled {
		return errs
	}

	switch cfg.Backend {
	case "memory":
	case "redis":
		if cfg.Redis.Address == "" {
			errs = append(errs, FieldError{
				Field:   "stats.redis.address",
				Message: "Redis address is required when backend is 'redis'",
			})
		}
		if cfg.Redis.DB < 0 {
			errs = append(errs, FieldError{
				Field:   "stats.redis.db",
				Message: "Redis database must be non-negative",
			})
		}
		if cfg.Redis.Bucket != "minute" && cfg.Redis.Bucket != "none" {
			errs = append(errs, FieldError{
				Field:   "stats.redis.bucket",
				Message: fmt.Sprintf("invalid bucket %q: must be 'minute' or 'none'", cfg.Redis.Bucket),
			})
		}
		if cfg.Redis.TTL < 0 {
			errs = append(errs, FieldError{
				Field:   "stats.redis.ttl",
				Message: "TTL must be non-negative",
			})
		}
	default:
		errs = append(errs, FieldError{
			Field:   "stats.backend",
			Message: fmt.Sprintf("invalid backend %q: must be 'memory' or 'redis'", cfg.Backend),
		})
	}

	return errs
}

// validateTelemetry validates telemetry configuration.
func validateTelemetry(cfg *TelemetryConfig) []FieldError {
	var errs []FieldError

	// Validate logging level
	validLevels := map[string]bool{"debug": true, "info": true, "warn": true, "error": true}
	if !validLevels[cfg.Logging.Level] {
		errs = append(errs, FieldError{
			Field:   "telemetry.logging.level",
			Message: fmt.Sprintf("invalid logging level %q: must be 'debug', 'info', 'warn', or 'error'", cfg.Logging.Level),
		})
	}

	// Validate logging format
	validFormats := map[string]bool{"json": true, "text": true}
	if !validFormats[cfg.Logging.Format] {
		errs = append(errs, FieldError{
			Field:   "telemetry.logging.format",
			Message: fmt.Sprintf("invalid logging format %q: must be 'json' or 'text'", cfg.Logging.Format),
		})
	}

	for i, p := range cfg.Logging.RedactPatterns {
		if _, err := regexp.Compile(p.Pattern); err != nil {
			errs = append(errs, FieldError{
				Field:   fmt.Sprintf("telemetry.logging.redact_patterns[%d].pattern", i),
				Message: fmt.Sprintf("invalid regular expression: %v", err),
			})
		}
	}

	if cfg.Metrics.Enabled && !strings.HasPrefix(cfg.Metrics.Path, "/") {
		errs = append(errs, FieldError{
			Field:   "telemetry.metrics.path",
			Message: "metrics path must start with /",
		})
	}

	// Validate tracing configuration
	if cfg.Tracing.Enabled && cfg.Tracing.Endpoint == "" {
		errs = append(errs, FieldError{
			Field:   "telemetry.tracing.endpoint",
			Message: "tracing endpoint is required when tracing is enabled",
		})
	}
	validSamplers := map[string]bool{"always": true, "never": true, "ratio": true}
	if !validSamplers[cfg.Tracing.Sampler] {
		errs = append(errs, FieldError{
			Field:   "telemetry.tracing.sampler",
			Message: fmt.Sprintf("invalid sampler %q: must be 'always', 'never', or 'ratio'", cfg.Tracing.Sampler),
		})
	}
	if cfg.Tracing.SampleRatio < 0 || cfg.Tracing.SampleRatio > 1.0 {
		errs = append(errs, FieldError{
			Field:   "telemetry.tracing.sample_ratio",
			Message: "sample ratio must be between 0.0 and 1.0",
		})
	}

	if cfg.Health.Enabled {
		if !strings.HasPrefix(cfg.Health.LivenessPath, "/") {
			errs = append(errs, FieldError{
				Field:   "telemetry.health.liveness_path",
				Message: "liveness path must start with /",
			})
		}
		if !strings.HasPrefix(cfg.Health.ReadinessPath, "/") {
			errs = append(errs, FieldError{
				Field:   "telemetry.health.readiness_path",
				Message: "readiness path must start with /",
			})
		}
		if cfg.Health.LivenessPath != "" && cfg.Health.LivenessPath == cfg.Health.ReadinessPath {
			errs = append(errs, FieldError{
				Field:   "telemetry.health.readiness_path",
				Message: "readiness path must differ from liveness path",
			})
		}
	}

	return errs
}
