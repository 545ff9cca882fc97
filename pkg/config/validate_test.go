package config

import (
	"math"
	"strings"
	"testing"
)

func TestValidate_ValidConfig(t *testing.T) {
	for name, cfg := range map[string]*Config{
		"builder": NewTestConfig().Build(),
		"minimal": MinimalConfig(),
		"full": NewTestConfig().
			WithReports("sqlite").
			WithStats("redis").
			WithTracing("localhost:4317").
			WithIPAddrMethods("X-Real-Ip", "socket", "X-Forwarded-For").
			WithWhitelist("127.0.0.1", "2001:db8::1").
			Build(),
	} {
		t.Run(name, func(t *testing.T) {
			if err := Validate(cfg); err != nil {
				t.Errorf("expected valid config, got %v", err)
			}
		})
	}
}

func TestValidate_FieldErrors(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
		field  string
	}{
		{"missing upstream", func(c *Config) { c.Server.Upstream = "" }, "server.upstream"},
		{"relative upstream", func(c *Config) { c.Server.Upstream = "/backend" }, "server.upstream"},
		{"ftp upstream", func(c *Config) { c.Server.Upstream = "ftp://example.com" }, "server.upstream"},
		{"missing listen address", func(c *Config) { c.Server.ListenAddress = "" }, "server.listen_address"},
		{"negative read timeout", func(c *Config) { c.Server.ReadTimeout = -1 }, "server.read_timeout"},
		{"huge headers", func(c *Config) { c.Server.MaxHeaderBytes = 11 * 1024 * 1024 }, "server.max_header_bytes"},
		{"summary path", func(c *Config) { c.Server.SummaryPath = "summary" }, "server.summary_path"},
		{"summary entries", func(c *Config) { c.Server.SummaryMaxEntries = 0 }, "server.summary_max_entries"},
		{"unknown limit", func(c *Config) { c.Quota.Limits["ipaddr_per_hour"] = 60 }, "quota.limits.ipaddr_per_hour"},
		{"zero limit", func(c *Config) { c.Quota.Limits["ipaddr_per_day"] = 0 }, "quota.limits.ipaddr_per_day"},
		{"NaN limit", func(c *Config) { c.Quota.Limits["ipaddr_per_day"] = math.NaN() }, "quota.limits.ipaddr_per_day"},
		{"infinite limit", func(c *Config) { c.Quota.Limits["ipaddr_per_week"] = math.Inf(1) }, "quota.limits.ipaddr_per_week"},
		{"negative infinite limit", func(c *Config) { c.Quota.Limits["token_per_day"] = math.Inf(-1) }, "quota.limits.token_per_day"},
		{"unknown method", func(c *Config) { c.Quota.IPAddrMethods = []string{"socket", "cookie"} }, "quota.ipaddr_methods[1]"},
		{"bad whitelist", func(c *Config) { c.Quota.Whitelist = []string{"10.0.0.0/8"} }, "quota.whitelist[0]"},
		{"reports backend", func(c *Config) { c.Reports.Enabled = true; c.Reports.Backend = "postgres" }, "reports.backend"},
		{"reports driver", func(c *Config) { c.Reports.Enabled = true; c.Reports.SQLite.Driver = "pgx" }, "reports.sqlite.driver"},
		{"snapshot schedule", func(c *Config) { c.Reports.Enabled = true; c.Reports.SnapshotSchedule = "every minute" }, "reports.snapshot_schedule"},
		{"prune schedule", func(c *Config) { c.Reports.Enabled = true; c.Reports.PruneSchedule = "61 * * * *" }, "reports.prune_schedule"},
		{"stats backend", func(c *Config) { c.Stats.Enabled = true; c.Stats.Backend = "statsd" }, "stats.backend"},
		{"stats bucket", func(c *Config) { c.Stats.Enabled = true; c.Stats.Backend = "redis"; c.Stats.Redis.Bucket = "hour" }, "stats.redis.bucket"},
		{"log level", func(c *Config) { c.Telemetry.Logging.Level = "trace" }, "telemetry.logging.level"},
		{"log format", func(c *Config) { c.Telemetry.Logging.Format = "console" }, "telemetry.logging.format"},
		{"redact pattern", func(c *Config) {
			c.Telemetry.Logging.RedactPatterns = []RedactPattern{{Name: "bad", Pattern: "("}}
		}, "telemetry.logging.redact_patterns[0].pattern"},
		{"tracing endpoint", func(c *Config) { c.Telemetry.Tracing.Enabled = true }, "telemetry.tracing.endpoint"},
		{"sampler", func(c *Config) { c.Telemetry.Tracing.Sampler = "sometimes" }, "telemetry.tracing.sampler"},
		{"sample ratio", func(c *Config) { c.Telemetry.Tracing.SampleRatio = 1.5 }, "telemetry.tracing.sample_ratio"},
		{"same health paths", func(c *Config) { c.Telemetry.Health.ReadinessPath = c.Telemetry.Health.LivenessPath }, "telemetry.health.readiness_path"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := NewTestConfig().Build()
			tt.mutate(cfg)

			err := Validate(cfg)
			if err == nil {
				t.Fatal("expected validation error")
			}
			verr, ok := err.(ValidationError)
			if !ok {
				t.Fatalf("expected ValidationError, got %T", err)
			}

			found := false
			for _, fe := range verr.Errors {
				if fe.Field == tt.field {
					found = true
				}
			}
			if !found {
				t.Errorf("expected error on %q, got %v", tt.field, verr.Errors)
			}
		})
	}
}

func TestValidate_DisabledSectionsSkipped(t *testing.T) {
	cfg := NewTestConfig().Build()
	cfg.Reports.Backend = "postgres"
	cfg.Stats.Backend = "statsd"

	if err := Validate(cfg); err != nil {
		t.Errorf("expected disabled sections not to be validated, got %v", err)
	}
}

func TestValidationError_Error(t *testing.T) {
	single := ValidationError{Errors: []FieldError{{Field: "server.upstream", Message: "upstream URL is required"}}}
	if got := single.Error(); got != "configuration validation failed: server.upstream: upstream URL is required" {
		t.Errorf("unexpected single error message: %q", got)
	}

	multi := ValidationError{Errors: []FieldError{
		{Field: "a", Message: "first"},
		{Field: "b", Message: "second"},
	}}
	msg := multi.Error()
	if !strings.HasPrefix(msg, "configuration validation failed with 2 errors:") {
		t.Errorf("unexpected multi error header: %q", msg)
	}
	if !strings.Contains(msg, "  - a: first\n") || !strings.Contains(msg, "  - b: second\n") {
		t.Errorf("expected every field error listed, got %q", msg)
	}

	if got := (ValidationError{}).Error(); got != "configuration validation failed" {
		t.Errorf("unexpected empty error message: %q", got)
	}
}

func TestValidate_LimitErrorsSorted(t *testing.T) {
	cfg := NewTestConfig().Build()
	cfg.Quota.Limits = map[string]float64{"z_limit": 1, "a_limit": 1}

	verr, ok := Validate(cfg).(ValidationError)
	if !ok {
		t.Fatal("expected ValidationError")
	}
	if len(verr.Errors) != 2 {
		t.Fatalf("expected 2 errors, got %d", len(verr.Errors))
	}
	if verr.Errors[0].Field != "quota.limits.a_limit" || verr.Errors[1].Field != "quota.limits.z_limit" {
		t.Errorf("expected sorted limit errors, got %v", verr.Errors)
	}
}
