package config

import (
	"fmt"

	"github.com/kelseyhightower/envconfig"
)

// Config holds all bridge configuration.
type Config struct {
	Queue   QueueConfig
	Values  ValuesConfig
	Logging LogConfig
	Metrics MetricsConfig
}

// QueueConfig holds per-environment task queue configuration.
type QueueConfig struct {
	// Capacity is the initial backing capacity of an environment's inbox.
	// The queue grows beyond it; posting never blocks.
	Capacity int `envconfig:"BRIDGE_QUEUE_CAPACITY" default:"128"`
}

// ValuesConfig holds externalized value transport configuration.
type ValuesConfig struct {
	// StackDepth is the number of frames captured at an invocation site.
	StackDepth int `envconfig:"BRIDGE_STACK_DEPTH" default:"10"`
	// CompressThreshold is the serialized size in bytes above which an
	// externalized payload is gzip-compressed.
	CompressThreshold int `envconfig:"BRIDGE_COMPRESS_THRESHOLD" default:"4096"`
}

// LogConfig holds logging configuration.
type LogConfig struct {
	Level       string `envconfig:"BRIDGE_LOG_LEVEL" default:"info"`
	Development bool   `envconfig:"BRIDGE_LOG_DEV" default:"false"`
}

// MetricsConfig holds metrics configuration.
type MetricsConfig struct {
	Enabled bool `envconfig:"BRIDGE_METRICS_ENABLED" default:"true"`
}

// Load loads configuration from environment variables.
func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	return &cfg, nil
}

// LoadOrDefault loads configuration from environment or returns default.
func LoadOrDefault() *Config {
	cfg, err := Load()
	if err != nil {
		return Default()
	}
	return cfg
}

// Default returns default configuration.
func Default() *Config {
	return &Config{
		Queue: QueueConfig{
			Capacity: 128,
		},
		Values: ValuesConfig{
			StackDepth:        10,
			CompressThreshold: 4096,
		},
		Logging: LogConfig{
			Level:       "info",
			Development: false,
		},
		Metrics: MetricsConfig{
			Enabled: true,
		},
	}
}
