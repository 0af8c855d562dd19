// Package config provides configuration loading and the configuration-record
// store for the fuel station monitor.
package config

import (
	"os"
	"strconv"

	"github.com/joho/godotenv"
)

// DefaultScanInterval is the refresh interval applied when a configuration
// record does not carry one.
const DefaultScanInterval = 3600

// Config holds all runtime configuration for the monitor.
type Config struct {
	// Base URL of the Osservaprezzi API.
	APIBaseURL string
	// Log level (debug, info, warn, error)
	LogLevel string
	// Log format (json, console)
	LogFormat string
	// HTTP server address
	HTTPAddr string
	// Directory holding configuration-record JSON files
	ConfigDir string
	// Default scan interval in seconds
	ScanInterval int
	// Hour of day (0-23) for the forced daily refresh
	RefreshHour int
	// Request timeout in seconds for upstream calls
	RequestTimeout int
}

// DefaultConfig returns a Config with default values.
func DefaultConfig() *Config {
	return &Config{
		APIBaseURL:     "https://carburanti.mise.gov.it/ospzApi",
		LogLevel:       "info",
		LogFormat:      "json",
		HTTPAddr:       ":8080",
		ConfigDir:      "./stations.d",
		ScanInterval:   DefaultScanInterval,
		RefreshHour:    7,
		RequestTimeout: 10,
	}
}

// LoadFromEnv loads configuration from environment variables. A local .env
// file is read first when present.
func (c *Config) LoadFromEnv() {
	_ = godotenv.Load()

	if v := os.Getenv("API_BASE_URL"); v != "" {
		c.APIBaseURL = v
	}
	if v := os.Getenv("LOG_LEVEL"); v != "" {
		c.LogLevel = v
	}
	if v := os.Getenv("LOG_FORMAT"); v != "" {
		c.LogFormat = v
	}
	if v := os.Getenv("HTTP_ADDR"); v != "" {
		c.HTTPAddr = v
	}
	if v := os.Getenv("CONFIG_DIR"); v != "" {
		c.ConfigDir = v
	}
	if v := os.Getenv("SCAN_INTERVAL"); v != "" {
		if i, err := strconv.Atoi(v); err == nil && i > 0 {
			c.ScanInterval = i
		}
	}
	if v := os.Getenv("REFRESH_HOUR"); v != "" {
		if i, err := strconv.Atoi(v); err == nil && i >= 0 && i <= 23 {
			c.RefreshHour = i
		}
	}
	if v := os.Getenv("REQUEST_TIMEOUT"); v != "" {
		if i, err := strconv.Atoi(v); err == nil && i > 0 {
			c.RequestTimeout = i
		}
	}
}
