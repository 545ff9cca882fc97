package config

import (
	"os"
	"sync"
	"testing"
)

// resetCurrent clears the active configuration around a test.
func resetCurrent(t *testing.T) {
	t.Helper()
	SetConfig(nil)
	t.Cleanup(func() { SetConfig(nil) })
}

// installConfig loads path and makes it the active configuration.
func installConfig(t *testing.T, path string) *Config {
	t.Helper()
	cfg, err := LoadConfigWithEnvOverrides(path)
	if err != nil {
		t.Fatalf("failed to load config: %v", err)
	}
	SetConfig(cfg)
	return cfg
}

const singletonConfig = `
server:
  listen_address: "127.0.0.1:8080"
  upstream: "http://127.0.0.1:9000"
quota:
  limits:
    ipaddr_per_day: 3600
`

func TestCurrent_NilBeforeSet(t *testing.T) {
	resetCurrent(t)

	if Current() != nil {
		t.Error("expected nil config before SetConfig")
	}
}

func TestSetConfig(t *testing.T) {
	resetCurrent(t)
	cfg := MinimalConfig()

	SetConfig(cfg)
	if Current() != cfg {
		t.Error("expected Current to return the config passed to SetConfig")
	}
}

func TestReloadConfig(t *testing.T) {
	resetCurrent(t)
	path := writeConfig(t, singletonConfig)
	original := installConfig(t, path)

	updated := singletonConfig + `
  whitelist: ["127.0.0.1"]
`
	if err := os.WriteFile(path, []byte(updated), 0644); err != nil {
		t.Fatal(err)
	}

	prev, next, err := ReloadConfig(path)
	if err != nil {
		t.Fatalf("failed to reload config: %v", err)
	}
	if prev != original {
		t.Error("expected prev to be the replaced config")
	}
	if Current() != next {
		t.Error("expected reloaded config to become active")
	}
	if len(next.Quota.Whitelist) != 1 {
		t.Errorf("expected reloaded whitelist, got %v", next.Quota.Whitelist)
	}
}

func TestReloadConfig_FirstLoad(t *testing.T) {
	resetCurrent(t)
	path := writeConfig(t, singletonConfig)

	prev, next, err := ReloadConfig(path)
	if err != nil {
		t.Fatalf("failed to reload config: %v", err)
	}
	if prev != nil {
		t.Errorf("expected nil prev on first load, got %+v", prev)
	}
	if next.Server.ListenAddress != "127.0.0.1:8080" {
		t.Errorf("expected listen address %q, got %q", "127.0.0.1:8080", next.Server.ListenAddress)
	}
}

func TestReloadConfig_InvalidKeepsCurrent(t *testing.T) {
	resetCurrent(t)
	path := writeConfig(t, singletonConfig)
	original := installConfig(t, path)

	if err := os.WriteFile(path, []byte("server: [broken"), 0644); err != nil {
		t.Fatal(err)
	}

	if _, _, err := ReloadConfig(path); err == nil {
		t.Fatal("expected reload error")
	}
	if Current() != original {
		t.Error("expected original config to remain after failed reload")
	}
}

func TestReloadConfig_MissingUpstream(t *testing.T) {
	resetCurrent(t)
	original := MinimalConfig()
	SetConfig(original)

	path := writeConfig(t, "server: {}")
	if _, _, err := ReloadConfig(path); err == nil {
		t.Fatal("expected validation error for config without upstream")
	}
	if Current() != original {
		t.Error("expected original config to remain after failed validation")
	}
}

func TestConcurrentAccess(t *testing.T) {
	resetCurrent(t)
	SetConfig(MinimalConfig())

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(2)
		go func() {
			defer wg.Done()
			_ = Current()
		}()
		go func() {
			defer wg.Done()
			SetConfig(MinimalConfig())
		}()
	}
	wg.Wait()

	if Current() == nil {
		t.Error("expected config after concurrent access")
	}
}
