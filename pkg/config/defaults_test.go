package config

import (
	"reflect"
	"testing"
	"time"

	"mercator-hq/quota/pkg/quota"
)

func TestDefaults(t *testing.T) {
	cfg := Defaults()

	if cfg.Server.ListenAddress != DefaultListenAddress {
		t.Errorf("expected listen address %q, got %q", DefaultListenAddress, cfg.Server.ListenAddress)
	}
	if cfg.Server.SummaryPath != "/quota/summary" {
		t.Errorf("expected summary path %q, got %q", "/quota/summary", cfg.Server.SummaryPath)
	}
	if !reflect.DeepEqual(cfg.Quota.IPAddrMethods, quota.DefaultIPAddrMethods) {
		t.Errorf("expected methods %v, got %v", quota.DefaultIPAddrMethods, cfg.Quota.IPAddrMethods)
	}
	if cfg.Quota.Limits != nil {
		t.Errorf("expected no limits by default, got %v", cfg.Quota.Limits)
	}
	if cfg.Quota.FailOpen {
		t.Error("expected fail_open to default to false")
	}

	// Booleans that default to true
	if !cfg.Reports.SQLite.WALMode {
		t.Error("expected WAL mode enabled by default")
	}
	if !cfg.Telemetry.Logging.RedactPII {
		t.Error("expected PII redaction enabled by default")
	}
	if !cfg.Telemetry.Metrics.Enabled {
		t.Error("expected metrics enabled by default")
	}
	if !cfg.Telemetry.Health.Enabled {
		t.Error("expected health checks enabled by default")
	}
	if !cfg.Telemetry.Tracing.OTLP.Insecure {
		t.Error("expected insecure OTLP by default")
	}

	if cfg.Reports.Enabled || cfg.Stats.Enabled || cfg.Telemetry.Tracing.Enabled {
		t.Error("expected optional subsystems disabled by default")
	}
}

func TestDefaults_MethodsAreCopied(t *testing.T) {
	cfg := Defaults()
	cfg.Quota.IPAddrMethods[0] = "changed"

	if quota.DefaultIPAddrMethods[0] != quota.MethodXRealIP {
		t.Fatal("expected defaults not to alias the package-level method list")
	}
}

func TestApplyDefaults(t *testing.T) {
	tests := []struct {
		name  string
		input Config
		check func(*testing.T, *Config)
	}{
		{
			name:  "empty config gets all defaults",
			input: Config{},
			check: func(t *testing.T, cfg *Config) {
				if cfg.Server.ReadTimeout != DefaultReadTimeout {
					t.Errorf("expected read timeout %v, got %v", DefaultReadTimeout, cfg.Server.ReadTimeout)
				}
				if cfg.Server.ShutdownTimeout != DefaultShutdownTimeout {
					t.Errorf("expected shutdown timeout %v, got %v", DefaultShutdownTimeout, cfg.Server.ShutdownTimeout)
				}
				if cfg.Reports.Backend != DefaultReportsBackend {
					t.Errorf("expected reports backend %q, got %q", DefaultReportsBackend, cfg.Reports.Backend)
				}
				if cfg.Reports.Retention != 7*24*time.Hour {
					t.Errorf("expected retention %v, got %v", 7*24*time.Hour, cfg.Reports.Retention)
				}
				if cfg.Stats.Redis.Prefix != DefaultStatsRedisPrefix {
					t.Errorf("expected redis prefix %q, got %q", DefaultStatsRedisPrefix, cfg.Stats.Redis.Prefix)
				}
				if cfg.Telemetry.Tracing.SampleRatio != DefaultTracingSampleRatio {
					t.Errorf("expected sample ratio %v, got %v", DefaultTracingSampleRatio, cfg.Telemetry.Tracing.SampleRatio)
				}
				// Booleans are left alone
				if cfg.Telemetry.Metrics.Enabled {
					t.Error("expected ApplyDefaults not to touch booleans")
				}
			},
		},
		{
			name: "existing values are preserved",
			input: Config{
				Server: ServerConfig{ListenAddress: "0.0.0.0:9999", ReadTimeout: time.Minute},
				Quota:  QuotaConfig{IPAddrMethods: []string{"socket"}},
				Reports: ReportsConfig{
					Backend: "memory",
					TopN:    5,
				},
				Telemetry: TelemetryConfig{
					Logging: LoggingConfig{Level: "debug"},
				},
			},
			check: func(t *testing.T, cfg *Config) {
				if cfg.Server.ListenAddress != "0.0.0.0:9999" {
					t.Errorf("expected listen address to be preserved, got %q", cfg.Server.ListenAddress)
				}
				if cfg.Server.ReadTimeout != time.Minute {
					t.Errorf("expected read timeout to be preserved, got %v", cfg.Server.ReadTimeout)
				}
				if !reflect.DeepEqual(cfg.Quota.IPAddrMethods, []string{"socket"}) {
					t.Errorf("expected methods to be preserved, got %v", cfg.Quota.IPAddrMethods)
				}
				if cfg.Reports.Backend != "memory" || cfg.Reports.TopN != 5 {
					t.Errorf("expected reports settings to be preserved, got %+v", cfg.Reports)
				}
				if cfg.Telemetry.Logging.Level != "debug" {
					t.Errorf("expected logging level to be preserved, got %q", cfg.Telemetry.Logging.Level)
				}
			},
		},
		{
			name: "non-ratio sampler keeps zero ratio",
			input: Config{
				Telemetry: TelemetryConfig{Tracing: TracingConfig{Sampler: "always"}},
			},
			check: func(t *testing.T, cfg *Config) {
				if cfg.Telemetry.Tracing.SampleRatio != 0 {
					t.Errorf("expected sample ratio 0, got %v", cfg.Telemetry.Tracing.SampleRatio)
				}
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := tt.input
			ApplyDefaults(&cfg)
			tt.check(t, &cfg)
		})
	}
}

func TestEngineConfig(t *testing.T) {
	cfg := NewTestConfig().WithWhitelist("127.0.0.1").Build()

	engineCfg, err := cfg.Quota.EngineConfig()
	if err != nil {
		t.Fatalf("EngineConfig failed: %v", err)
	}
	if engineCfg.Limits.IPAddr.Day != 3600 || engineCfg.Limits.IPAddr.Month != 36000 {
		t.Errorf("expected day 3600 and month 36000, got %+v", engineCfg.Limits.IPAddr)
	}
	if engineCfg.Limits.IPAddr.Week != 0 || engineCfg.Limits.Token.Enabled() {
		t.Errorf("expected unset windows disabled, got %+v", engineCfg.Limits)
	}
	if !reflect.DeepEqual(engineCfg.Whitelist, []string{"127.0.0.1"}) {
		t.Errorf("expected whitelist to carry over, got %v", engineCfg.Whitelist)
	}

	cfg.Quota.Limits["bogus"] = 1
	if _, err := cfg.Quota.EngineConfig(); err == nil {
		t.Error("expected error for unknown limit")
	}
}
