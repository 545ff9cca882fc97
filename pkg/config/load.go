package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"mercator-hq/quota/pkg/quota"
)

// EnvPrefix is the prefix of every environment variable override.
const EnvPrefix = "QUOTAD_"

// LoadConfig loads configuration from a YAML file at the specified path.
// It applies default values, validates the configuration, and returns any errors.
// The configuration is not modified by environment variables; use LoadConfigWithEnvOverrides
// for that functionality.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read configuration file %q: %w", path, err)
	}

	cfg, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("failed to parse configuration file %q: %w", path, err)
	}

	if err := Validate(cfg); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return cfg, nil
}

// Parse decodes YAML on top of Defaults and fills remaining zero values.
// It does not validate.
func Parse(data []byte) (*Config, error) {
	cfg := Defaults()
	// The default method list would be merged into by the decoder.
	cfg.Quota.IPAddrMethods = nil

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, err
	}

	ApplyDefaults(cfg)
	return cfg, nil
}

// LoadConfigWithEnvOverrides loads configuration from a YAML file and applies
// environment variable overrides. Environment variables follow the naming
// convention QUOTAD_SECTION_FIELD (e.g., QUOTAD_SERVER_LISTEN_ADDRESS).
// Environment variables always take precedence over file-based configuration.
//
// The loading sequence is:
// 1. Load YAML from file
// 2. Apply default values
// 3. Apply environment variable overrides
// 4. Validate final configuration
func LoadConfigWithEnvOverrides(path string) (*Config, error) {
	// First load from file (this already applies defaults)
	cfg, err := LoadConfig(path)
	if err != nil {
		return nil, err
	}

	applyEnvOverrides(cfg)

	// Re-validate after overrides
	if err := Validate(cfg); err != nil {
		return nil, fmt.Errorf("configuration validation failed after environment overrides: %w", err)
	}

	return cfg, nil
}

// limitEnvNames are the limit names that can be overridden from the
// environment, e.g. QUOTAD_QUOTA_LIMITS_IPADDR_PER_DAY.
var limitEnvNames = []string{
	quota.LimitIPAddrPerMonth,
	quota.LimitIPAddrPerWeek,
	quota.LimitIPAddrPerDay,
	quota.LimitTokenPerMonth,
	quota.LimitTokenPerWeek,
	quota.LimitTokenPerDay,
}

// applyEnvOverrides applies environment variable overrides to the configuration.
// Environment variables use the format QUOTAD_SECTION_FIELD. Values that fail
// to parse are ignored.
func applyEnvOverrides(cfg *Config) {
	// Server overrides
	envString("SERVER_LISTEN_ADDRESS", &cfg.Server.ListenAddress)
	envString("SERVER_UPSTREAM", &cfg.Server.Upstream)
	envDuration("SERVER_READ_TIMEOUT", &cfg.Server.ReadTimeout)
	envDuration("SERVER_WRITE_TIMEOUT", &cfg.Server.WriteTimeout)
	envDuration("SERVER_IDLE_TIMEOUT", &cfg.Server.IdleTimeout)
	envDuration("SERVER_SHUTDOWN_TIMEOUT", &cfg.Server.ShutdownTimeout)
	envInt("SERVER_MAX_HEADER_BYTES", &cfg.Server.MaxHeaderBytes)
	envString("SERVER_SUMMARY_PATH", &cfg.Server.SummaryPath)

	// Quota overrides
	for _, name := range limitEnvNames {
		val := os.Getenv(EnvPrefix + "QUOTA_LIMITS_" + strings.ToUpper(name))
		if val == "" {
			continue
		}
		f, err := strconv.ParseFloat(val, 64)
		if err != nil {
			continue
		}
		if cfg.Quota.Limits == nil {
			cfg.Quota.Limits = make(map[string]float64)
		}
		cfg.Quota.Limits[name] = f
	}
	envList("QUOTA_IPADDR_METHODS", &cfg.Quota.IPAddrMethods)
	envList("QUOTA_WHITELIST", &cfg.Quota.Whitelist)
	envBool("QUOTA_FAIL_OPEN", &cfg.Quota.FailOpen)
	envDuration("QUOTA_DENIAL_LOG_INTERVAL", &cfg.Quota.DenialLogInterval)

	// Reports overrides
	envBool("REPORTS_ENABLED", &cfg.Reports.Enabled)
	envString("REPORTS_BACKEND", &cfg.Reports.Backend)
	envString("REPORTS_SQLITE_PATH", &cfg.Reports.SQLite.Path)
	envString("REPORTS_SQLITE_DRIVER", &cfg.Reports.SQLite.Driver)
	envString("REPORTS_SNAPSHOT_SCHEDULE", &cfg.Reports.SnapshotSchedule)
	envString("REPORTS_PRUNE_SCHEDULE", &cfg.Reports.PruneSchedule)
	envDuration("REPORTS_RETENTION", &cfg.Reports.Retention)

	// Stats overrides
	envBool("STATS_ENABLED", &cfg.Stats.Enabled)
	envString("STATS_BACKEND", &cfg.Stats.Backend)
	envString("STATS_REDIS_ADDRESS", &cfg.Stats.Redis.Address)
	envString("STATS_REDIS_PASSWORD", &cfg.Stats.Redis.Password)
	envInt("STATS_REDIS_DB", &cfg.Stats.Redis.DB)

	// Telemetry overrides
	envString("TELEMETRY_LOGGING_LEVEL", &cfg.Telemetry.Logging.Level)
	envString("TELEMETRY_LOGGING_FORMAT", &cfg.Telemetry.Logging.Format)
	envBool("TELEMETRY_METRICS_ENABLED", &cfg.Telemetry.Metrics.Enabled)
	envString("TELEMETRY_METRICS_PATH", &cfg.Telemetry.Metrics.Path)
	envBool("TELEMETRY_TRACING_ENABLED", &cfg.Telemetry.Tracing.Enabled)
	envString("TELEMETRY_TRACING_ENDPOINT", &cfg.Telemetry.Tracing.Endpoint)
	if val := os.Getenv(EnvPrefix + "TELEMETRY_TRACING_SAMPLE_RATIO"); val != "" {
		if f, err := strconv.ParseFloat(val, 64); err == nil {
			cfg.Telemetry.Tracing.SampleRatio = f
		}
	}
}

func envString(name string, dst *string) {
	if val := os.Getenv(EnvPrefix + name); val != "" {
		*dst = val
	}
}

func envBool(name string, dst *bool) {
	if val := os.Getenv(EnvPrefix + name); val != "" {
		if b, err := strconv.ParseBool(val); err == nil {
			*dst = b
		}
	}
}

func envInt(name string, dst *int) {
	if val := os.Getenv(EnvPrefix + name); val != "" {
		if i, err := strconv.Atoi(val); err == nil {
			*dst = i
		}
	}
}

func envDuration(name string, dst *time.Duration) {
	if val := os.Getenv(EnvPrefix + name); val != "" {
		if d, err := time.ParseDuration(val); err == nil {
			*dst = d
		}
	}
}

// envList splits a comma-separated value, dropping empty items.
func envList(name string, dst *[]string) {
	val := os.Getenv(EnvPrefix + name)
	if val == "" {
		return
	}
	var items []string
	for _, item := range strings.Split(val, ",") {
		if item = strings.TrimSpace(item); item != "" {
			items = append(items, item)
		}
	}
	*dst = items
}
