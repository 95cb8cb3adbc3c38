// Package config handles configuration for the relay CLI: defaults, an
// optional JSON file overlay, and command-line flags, applied in that order.
package config

import "time"

// Config holds runtime settings for the relay CLI.
//
// Fields:
//   - ServerURL: base URL of the relay HTTP endpoint.
//   - DataDir: directory for the key file and the local message cache.
//   - RequestTimeout: per-request HTTP timeout.
type Config struct {
	ServerURL      string
	DataDir        string
	RequestTimeout time.Duration
}

// LoadDefaults populates c with sensible defaults.
func (c *Config) LoadDefaults() {
	c.ServerURL = "http://localhost:8080"
	c.DataDir = ".chicrypt"
	c.RequestTimeout = 10 * time.Second
}

// LoadConfig constructs a Config, applies defaults, then overlays values from
// JSON (if present) and command-line flags (if present). Later sources take
// precedence over earlier ones.
func LoadConfig() *Config {
	cfg := &Config{}
	cfg.LoadDefaults()
	parseJson(cfg)
	parseFlags(cfg)
	return cfg
}
