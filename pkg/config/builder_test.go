package config

import "time"

// ConfigBuilder provides a fluent API for building Config instances in tests.
// It starts with default values and allows selective overrides.
type ConfigBuilder struct {
	cfg *Config
}

// NewTestConfig creates a new ConfigBuilder with sensible defaults for testing.
// The resulting configuration is valid and can be used immediately.
func NewTestConfig() *ConfigBuilder {
	cfg := Defaults()
	cfg.Server.Upstream = "http://127.0.0.1:9000"
	cfg.Quota.Limits = map[string]float64{
		"ipaddr_per_day":   3600,
		"ipaddr_per_month": 36000,
	}
	return &ConfigBuilder{cfg: cfg}
}

// Build returns the built Config instance.
func (b *ConfigBuilder) Build() *Config {
	return b.cfg
}

// WithListenAddress sets the server listen address.
func (b *ConfigBuilder) WithListenAddress(addr string) *ConfigBuilder {
	b.cfg.Server.ListenAddress = addr
	return b
}

// WithUpstream sets the upstream URL.
func (b *ConfigBuilder) WithUpstream(upstream string) *ConfigBuilder {
	b.cfg.Server.Upstream = upstream
	return b
}

// WithReadTimeout sets the server read timeout.
func (b *ConfigBuilder) WithReadTimeout(d time.Duration) *ConfigBuilder {
	b.cfg.Server.ReadTimeout = d
	return b
}

// WithLimit sets one named limit.
func (b *ConfigBuilder) WithLimit(name string, seconds float64) *ConfigBuilder {
	if b.cfg.Quota.Limits == nil {
		b.cfg.Quota.Limits = make(map[string]float64)
	}
	b.cfg.Quota.Limits[name] = seconds
	return b
}

// WithWhitelist replaces the whitelist.
func (b *ConfigBuilder) WithWhitelist(addrs ...string) *ConfigBuilder {
	b.cfg.Quota.Whitelist = addrs
	return b
}

// WithIPAddrMethods replaces the extraction methods.
func (b *ConfigBuilder) WithIPAddrMethods(methods ...string) *ConfigBuilder {
	b.cfg.Quota.IPAddrMethods = methods
	return b
}

// WithReports enables reports with the given backend.
func (b *ConfigBuilder) WithReports(backend string) *ConfigBuilder {
	b.cfg.Reports.Enabled = true
	b.cfg.Reports.Backend = backend
	return b
}

// WithStats enables stats with the given backend.
func (b *ConfigBuilder) WithStats(backend string) *ConfigBuilder {
	b.cfg.Stats.Enabled = true
	b.cfg.Stats.Backend = backend
	return b
}

// WithLogLevel sets the logging level.
func (b *ConfigBuilder) WithLogLevel(level string) *ConfigBuilder {
	b.cfg.Telemetry.Logging.Level = level
	return b
}

// WithTracing enables tracing with the given endpoint.
func (b *ConfigBuilder) WithTracing(endpoint string) *ConfigBuilder {
	b.cfg.Telemetry.Tracing.Enabled = true
	b.cfg.Telemetry.Tracing.Endpoint = endpoint
	return b
}

// MinimalConfig returns the smallest valid configuration.
func MinimalConfig() *Config {
	cfg := Defaults()
	cfg.Server.Upstream = "http://127.0.0.1:9000"
	return cfg
}
