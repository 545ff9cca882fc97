package main

import (
	"context"
	"io"
	"log/slog"
	"reflect"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"

	"mercator-hq/quota/pkg/config"
	"mercator-hq/quota/pkg/quota"
	"mercator-hq/quota/pkg/telemetry/health"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func testConfig() *config.Config {
	cfg := config.Defaults()
	cfg.Server.Upstream = "http://127.0.0.1:9000"
	cfg.Quota.Limits = map[string]float64{
		quota.LimitIPAddrPerDay:   3600,
		quota.LimitIPAddrPerMonth: 36000,
	}
	return cfg
}

func mustIdentity(t *testing.T, s string) quota.Identity {
	t.Helper()
	id, err := quota.ParseIPAddr(s)
	if err != nil {
		t.Fatalf("ParseIPAddr(%q) failed: %v", s, err)
	}
	return id
}

func TestNewApp_MemoryBackends(t *testing.T) {
	cfg := testConfig()
	cfg.Reports.Enabled = true
	cfg.Reports.Backend = "memory"
	cfg.Stats.Enabled = true
	cfg.Stats.Backend = "memory"

	a, err := newApp(cfg, discardLogger())
	if err != nil {
		t.Fatalf("newApp failed: %v", err)
	}
	defer a.Close(context.Background())

	want := []string{"engine", "reports", "stats"}
	if got := a.checker.ListChecks(); !reflect.DeepEqual(got, want) {
		t.Errorf("ListChecks() = %v, want %v", got, want)
	}
	if a.scheduler == nil {
		t.Error("Expected report scheduler")
	}
	if a.server == nil {
		t.Fatal("Expected server")
	}

	status := a.checker.CheckReadiness(context.Background())
	if status.Status != health.StatusReady {
		t.Errorf("readiness = %q, want %q: %+v", status.Status, health.StatusReady, status.Checks)
	}
}

func TestNewApp_RedisStats(t *testing.T) {
	mr := miniredis.RunT(t)

	cfg := testConfig()
	cfg.Stats.Enabled = true
	cfg.Stats.Backend = "redis"
	cfg.Stats.Redis.Address = mr.Addr()

	a, err := newApp(cfg, discardLogger())
	if err != nil {
		t.Fatalf("newApp failed: %v", err)
	}
	defer a.Close(context.Background())

	status := a.checker.CheckReadiness(context.Background())
	if status.Checks["stats"].Status != health.StatusOK {
		t.Errorf("stats check = %+v, want ok", status.Checks["stats"])
	}

	mr.Close()
	status = a.checker.CheckReadiness(context.Background())
	if status.Status != health.StatusDegraded {
		t.Errorf("readiness = %q after redis stopped, want %q", status.Status, health.StatusDegraded)
	}
}

func TestNewApp_InvalidLimits(t *testing.T) {
	cfg := testConfig()
	cfg.Quota.Limits["ipaddr_per_year"] = 10

	if _, err := newApp(cfg, discardLogger()); err == nil {
		t.Error("Expected error for unknown limit")
	}
}

func TestApplyReload(t *testing.T) {
	cfg := testConfig()
	a, err := newApp(cfg, discardLogger())
	if err != nil {
		t.Fatalf("newApp failed: %v", err)
	}
	defer a.Close(context.Background())

	id := mustIdentity(t, "192.0.2.5")
	if a.engine.IsWhitelisted(id) {
		t.Fatal("Expected address not to be whitelisted initially")
	}

	next := testConfig()
	next.Quota.Whitelist = []string{"192.0.2.5"}
	a.applyReload(cfg, next)
	if !a.engine.IsWhitelisted(id) {
		t.Error("Expected reloaded whitelist to be applied")
	}

	broken := testConfig()
	broken.Quota.Whitelist = []string{"not-an-address"}
	a.applyReload(next, broken)
	if !a.engine.IsWhitelisted(id) {
		t.Error("Expected invalid whitelist to keep the previous one")
	}
}

func TestApplyReload_KeepsFlagOverrides(t *testing.T) {
	runFlags.listenAddress = "127.0.0.1:18080"
	t.Cleanup(func() { runFlags.listenAddress = "" })

	cfg := testConfig()
	applyRunFlags(cfg)
	a, err := newApp(cfg, discardLogger())
	if err != nil {
		t.Fatalf("newApp failed: %v", err)
	}
	defer a.Close(context.Background())

	next := testConfig()
	a.applyReload(cfg, next)

	if next.Server.ListenAddress != "127.0.0.1:18080" {
		t.Errorf("Expected listen override to survive reload, got %q", next.Server.ListenAddress)
	}
	if changes := restartRequired(cfg, next); len(changes) != 0 {
		t.Errorf("Expected no restart-required changes, got %v", changes)
	}
}

func TestRestartRequired(t *testing.T) {
	tests := []struct {
		name   string
		modify func(*config.Config)
		want   []string
	}{
		{
			name:   "whitelist only",
			modify: func(c *config.Config) { c.Quota.Whitelist = []string{"192.0.2.1"} },
			want:   nil,
		},
		{
			name:   "limits",
			modify: func(c *config.Config) { c.Quota.Limits[quota.LimitIPAddrPerDay] = 7200 },
			want:   []string{"quota.limits"},
		},
		{
			name: "listen address and fail open",
			modify: func(c *config.Config) {
				c.Server.ListenAddress = "0.0.0.0:9999"
				c.Quota.FailOpen = true
			},
			want: []string{"quota.fail_open", "server"},
		},
		{
			name:   "denial log interval",
			modify: func(c *config.Config) { c.Quota.DenialLogInterval = time.Minute },
			want:   []string{"quota.denial_log_interval"},
		},
		{
			name:   "log level",
			modify: func(c *config.Config) { c.Telemetry.Logging.Level = "debug" },
			want:   []string{"telemetry"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			prev, next := testConfig(), testConfig()
			tt.modify(next)

			if got := restartRequired(prev, next); !reflect.DeepEqual(got, tt.want) {
				t.Errorf("restartRequired() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestDescribeLimits(t *testing.T) {
	cfg := testConfig()
	cfg.Quota.Limits[quota.LimitTokenPerWeek] = 500

	want := []string{
		"ipaddr month: 36000s",
		"ipaddr day: 3600s",
		"token week: 500s",
	}
	if got := describeLimits(cfg); !reflect.DeepEqual(got, want) {
		t.Errorf("describeLimits() = %v, want %v", got, want)
	}

	cfg.Quota.Limits = nil
	if got := describeLimits(cfg); len(got) != 1 || got[0] != "no quota windows enabled" {
		t.Errorf("describeLimits() = %v for empty limits", got)
	}
}
