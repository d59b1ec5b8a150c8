// Package config provides 12-factor configuration management for the bridge.
//
// Configuration is loaded from environment variables with sensible defaults.
//
// Configuration Sections:
//   - Queue: per-environment task queue settings
//   - Values: externalized value transport settings (stack depth, compression)
//   - Logging: log level and output format
//   - Metrics: Prometheus metrics collection
//
// Example Usage:
//
//	cfg := config.LoadOrDefault()
//
// All knobs are optional; a zero-configuration host gets working defaults.
package config
