// Package config provides environment-based configuration for the monitor API.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds all configuration for the monitor API.
type Config struct {
	// Server configuration
	APIHost string
	APIPort int

	// Graceful shutdown timeout
	ShutdownTimeout time.Duration

	// Logging
	LogLevel string
	LogJSON  bool

	// Topology source. Inline JSON wins over the file when both are set.
	Topology TopologyConfig

	// Upstream probing
	Probe ProbeConfig

	// Snapshot streaming
	Stream StreamConfig
}

// TopologyConfig describes where the datacenter topology comes from.
type TopologyConfig struct {
	Inline          string
	File            string
	RefreshInterval time.Duration
}

// ProbeConfig holds upstream probing configuration.
type ProbeConfig struct {
	// BasePath is the path prefix of every node's API, usually "/solr".
	BasePath string
	// NodeTimeout bounds each system-info and metrics call.
	NodeTimeout time.Duration
	// SummaryTimeout bounds every call made for roll-up views.
	SummaryTimeout time.Duration
	// ZkDetailTimeout bounds the on-demand coordination detail probe.
	ZkDetailTimeout time.Duration
	// ProxyTimeout bounds each candidate of the passthrough endpoints.
	ProxyTimeout time.Duration
	// MaxConcurrency caps in-flight probes per fan-out; 0 means unbounded.
	MaxConcurrency int
}

// StreamConfig holds snapshot streaming configuration.
type StreamConfig struct {
	// Interval between pushed snapshots; 0 disables streaming.
	Interval time.Duration
}

// Load reads configuration from environment variables.
func Load() (*Config, error) {
	cfg := LoadWithDefaults()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// LoadWithDefaults loads configuration with defaults for development.
// It does not validate, useful for testing.
func LoadWithDefaults() *Config {
	return &Config{
		APIHost:         getEnv("API_HOST", "0.0.0.0"),
		APIPort:         getIntEnv("API_PORT", 3001),
		ShutdownTimeout: getDurationEnv("SHUTDOWN_TIMEOUT", 30*time.Second),
		LogLevel:        getEnv("LOG_LEVEL", "info"),
		LogJSON:         strings.ToLower(getEnv("LOG_FORMAT", "json")) != "text",
		Topology: TopologyConfig{
			Inline:          getEnv("SOLR_TOPOLOGY", ""),
			File:            getEnv("SOLR_TOPOLOGY_FILE", ""),
			RefreshInterval: getDurationEnv("TOPOLOGY_REFRESH_INTERVAL", 0),
		},
		Probe: ProbeConfig{
			BasePath:        getEnv("SOLR_BASE_PATH", "/solr"),
			NodeTimeout:     getDurationEnv("NODE_PROBE_TIMEOUT", 5*time.Second),
			SummaryTimeout:  getDurationEnv("SUMMARY_PROBE_TIMEOUT", 2*time.Second),
			ZkDetailTimeout: getDurationEnv("ZK_DETAIL_TIMEOUT", 10*time.Second),
			ProxyTimeout:    getDurationEnv("PROXY_TIMEOUT", 10*time.Second),
			MaxConcurrency:  getIntEnv("PROBE_MAX_CONCURRENCY", 0),
		},
		Stream: StreamConfig{
			Interval: getDurationEnv("STREAM_INTERVAL", 15*time.Second),
		},
	}
}

// Validate checks that configuration values are usable.
func (c *Config) Validate() error {
	if c.APIPort <= 0 || c.APIPort > 65535 {
		return fmt.Errorf("API_PORT must be between 1 and 65535, got %d", c.APIPort)
	}
	timeouts := map[string]time.Duration{
		"NODE_PROBE_TIMEOUT":    c.Probe.NodeTimeout,
		"SUMMARY_PROBE_TIMEOUT": c.Probe.SummaryTimeout,
		"ZK_DETAIL_TIMEOUT":     c.Probe.ZkDetailTimeout,
		"PROXY_TIMEOUT":         c.Probe.ProxyTimeout,
		"SHUTDOWN_TIMEOUT":      c.ShutdownTimeout,
	}
	for key, d := range timeouts {
		if d <= 0 {
			return fmt.Errorf("%s must be positive", key)
		}
	}
	if c.Probe.MaxConcurrency < 0 {
		return fmt.Errorf("PROBE_MAX_CONCURRENCY must not be negative")
	}
	if c.Topology.RefreshInterval < 0 {
		return fmt.Errorf("TOPOLOGY_REFRESH_INTERVAL must not be negative")
	}
	if c.Stream.Interval < 0 {
		return fmt.Errorf("STREAM_INTERVAL must not be negative")
	}
	if !strings.HasPrefix(c.Probe.BasePath, "/") {
		return fmt.Errorf("SOLR_BASE_PATH must start with '/'")
	}
	return nil
}

// Addr returns the listen address.
func (c *Config) Addr() string {
	return fmt.Sprintf("%s:%d", c.APIHost, c.APIPort)
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getIntEnv(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if i, err := strconv.Atoi(value); err == nil {
			return i
		}
	}
	return defaultValue
}

func getDurationEnv(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}
