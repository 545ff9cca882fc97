package config

import (
	"fmt"
	"sync"
)

var (
	current   *Config
	currentMu sync.RWMutex
)

// Current returns the active configuration, or nil before SetConfig.
func Current() *Config {
	currentMu.RLock()
	defer currentMu.RUnlock()
	return current
}

// SetConfig installs cfg as the active configuration. The run command calls
// it once flag overrides have been applied.
func SetConfig(cfg *Config) {
	currentMu.Lock()
	defer currentMu.Unlock()
	current = cfg
}

// ReloadConfig loads path and installs the result. It returns the configuration
// that was replaced together with the new one. A file that fails to load or
// validate leaves the active configuration in place.
func ReloadConfig(path string) (prev, next *Config, err error) {
	next, err = LoadConfigWithEnvOverrides(path)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to reload configuration: %w", err)
	}

	currentMu.Lock()
	prev, current = current, next
	currentMu.Unlock()

	return prev, next, nil
}
