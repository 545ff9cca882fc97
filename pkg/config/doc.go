// Package config provides configuration management for quotad.
//
// This package handles loading, validating, and managing configuration from
// YAML files with environment variable overrides.
//
// # Configuration Loading
//
// Configuration can be loaded in two ways:
//
//  1. From a YAML file only:
//     cfg, err := config.LoadConfig("quotad.yaml")
//
//  2. From a YAML file with environment variable overrides:
//     cfg, err := config.LoadConfigWithEnvOverrides("quotad.yaml")
//
// # Environment Variable Overrides
//
// Environment variables follow the naming convention QUOTAD_SECTION_FIELD.
// For example:
//
//   - QUOTAD_SERVER_UPSTREAM overrides server.upstream
//   - QUOTAD_QUOTA_LIMITS_IPADDR_PER_DAY overrides quota.limits.ipaddr_per_day
//   - QUOTAD_QUOTA_WHITELIST overrides quota.whitelist (comma-separated)
//   - QUOTAD_TELEMETRY_LOGGING_LEVEL overrides telemetry.logging.level
//
// # Configuration Precedence
//
// Configuration values are applied in the following order (later overrides earlier):
//
//  1. Default values (defined in defaults.go)
//  2. Values from YAML file
//  3. Environment variable overrides
//  4. Validation (fails fast if invalid)
//
// # Hot Reload
//
// Watcher observes the configuration file and calls ReloadConfig after a
// debounce interval. A file that fails validation is logged and ignored.
//
// # Validation
//
// Validation errors include field paths:
//
//	configuration validation failed with 2 errors:
//	  - server.upstream: upstream URL is required
//	  - quota.limits.ipaddr_per_hour: unknown limit "ipaddr_per_hour"
//
// # Example Configuration
//
//	server:
//	  listen_address: "0.0.0.0:8080"
//	  upstream: "http://127.0.0.1:9000"
//
//	quota:
//	  limits:
//	    ipaddr_per_day: 3600
//	    ipaddr_per_month: 36000
//	  ipaddr_methods: ["X-Real-Ip", "socket"]
//	  whitelist: ["127.0.0.1"]
//
//	reports:
//	  enabled: true
//	  backend: "sqlite"
package config
