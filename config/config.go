// Copyright 2025 The Radex Authors
// SPDX-License-Identifier: Apache-2.0

// Package config holds radex settings. Values come from, in increasing
// priority: built-in defaults, the TOML file, the environment and finally
// command-line flags (applied by the caller).
package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/pelletier/go-toml/v2"
	"github.com/radex-fr/radex/mapview"
)

// DefaultFile is read when no explicit path is given and it exists.
const DefaultFile = "radex.toml"

// Geocoding providers.
const (
	ProviderNominatim = "nominatim"
	ProviderGoogle    = "google"
)

// Config is the complete configuration.
type Config struct {
	Server    ServerConfig    `toml:"server"`
	Data      DataConfig      `toml:"data"`
	Geocoding GeocodingConfig `toml:"geocoding"`
	Map       MapConfig       `toml:"map"`
}

// ServerConfig configures the web explorer.
type ServerConfig struct {
	Addr    string `toml:"addr"`
	DevMode bool   `toml:"dev_mode"`
}

// DataConfig locates the two datasets.
type DataConfig struct {
	Full    string `toml:"full"`
	Sample  string `toml:"sample"`
	Default string `toml:"default"` // sample or full
}

// GeocodingConfig configures the geocoder and its cache.
type GeocodingConfig struct {
	Provider     string `toml:"provider"`
	NominatimURL string `toml:"nominatim_url"`
	GoogleURL    string `toml:"google_url"`
	UserAgent    string `toml:"user_agent"`
	DelayMs      int    `toml:"delay_ms"`
	TimeoutMs    int    `toml:"timeout_ms"`

	// RetryFailuresMs is how long a failed lookup, other than "not found",
	// is remembered before the commune is tried again. 0 never retries.
	RetryFailuresMs int `toml:"retry_failures_ms"`

	// BackoffMs is how long the provider is left alone after it answers
	// with a rate limit or quota error.
	BackoffMs int `toml:"backoff_ms"`

	// CacheDB is the DuckDB file backing the geocode cache. Empty keeps the
	// cache in memory only.
	CacheDB  string `toml:"cache_db"`
	SeedFile string `toml:"seed_file"`

	GoogleAPIKey  string `toml:"google_api_key"`
	GoogleProject string `toml:"google_project"`
	GoogleKeyName string `toml:"google_key_name"`
}

// MapConfig configures the map colours.
type MapConfig struct {
	LowColor  string `toml:"low_color"`
	HighColor string `toml:"high_color"`
}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Addr: "127.0.0.1:8501",
		},
		Data: DataConfig{
			Full:    "data/communes.csv",
			Sample:  "data/communes_samples.csv",
			Default: "sample",
		},
		Geocoding: GeocodingConfig{
			Provider:        ProviderNominatim,
			UserAgent:       "radex/1.0 (+https://github.com/radex-fr/radex)",
			DelayMs:         1000,
			TimeoutMs:       10000,
			RetryFailuresMs: 600000,
			BackoffMs:       60000,
			CacheDB:         "data/geocodes.duckdb",
			SeedFile:        "data/geocodes.json",
			GoogleKeyName:   "Radex Geocoding Key",
		},
		Map: MapConfig{
			LowColor:  mapview.DefaultGradient.Low.Hex(),
			HighColor: mapview.DefaultGradient.High.Hex(),
		},
	}
}

// Load reads the configuration from path on top of the defaults and applies
// environment overrides. An empty path reads DefaultFile when it exists; an
// explicit path must exist.
func Load(path string) (*Config, error) {
	cfg := Default()

	explicit := path != ""
	if !explicit {
		path = DefaultFile
	}

	data, err := os.ReadFile(path) // #nosec G304 - path comes from the command line
	switch {
	case err == nil:
		if err := toml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parsing %s: %w", path, err)
		}
	case errors.Is(err, os.ErrNotExist) && !explicit:
	default:
		return nil, fmt.Errorf("reading config: %w", err)
	}

	cfg.ApplyEnv(os.Getenv)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}

	return cfg, nil
}

// ApplyEnv overrides settings from environment variables.
func (c *Config) ApplyEnv(getenv func(string) string) {
	if v := getenv("RADEX_ADDR"); v != "" {
		c.Server.Addr = v
	}

	if v := getenv("RADEX_CACHE_DB"); v != "" {
		c.Geocoding.CacheDB = v
	}

	if v := getenv("RADEX_GEOCODER"); v != "" {
		c.Geocoding.Provider = strings.ToLower(v)
	}

	if v := getenv("GOOGLE_MAPS_API_KEY"); v != "" {
		c.Geocoding.GoogleAPIKey = v
	}
}

// Validate checks values that would otherwise fail late.
func (c *Config) Validate() error {
	var errs []error

	switch c.Geocoding.Provider {
	case ProviderNominatim, ProviderGoogle:
	default:
		errs = append(errs, fmt.Errorf("unknown geocoding provider %q", c.Geocoding.Provider))
	}

	switch c.Data.Default {
	case "sample", "full":
	default:
		errs = append(errs, fmt.Errorf("unknown default dataset %q", c.Data.Default))
	}

	if c.Geocoding.DelayMs < 0 {
		errs = append(errs, fmt.Errorf("negative geocoding delay %d", c.Geocoding.DelayMs))
	}

	if c.Geocoding.RetryFailuresMs < 0 {
		errs = append(errs, fmt.Errorf("negative geocoding retry delay %d", c.Geocoding.RetryFailuresMs))
	}

	if c.Geocoding.BackoffMs <= 0 {
		errs = append(errs, fmt.Errorf("geocoding backoff must be positive, got %d", c.Geocoding.BackoffMs))
	}

	if c.Geocoding.TimeoutMs <= 0 {
		errs = append(errs, fmt.Errorf("geocoding timeout must be positive, got %d", c.Geocoding.TimeoutMs))
	}

	if _, err := c.Map.Gradient(); err != nil {
		errs = append(errs, err)
	}

	return errors.Join(errs...)
}

// Delay is the minimum spacing between geocoding requests.
func (g GeocodingConfig) Delay() time.Duration {
	return time.Duration(g.DelayMs) * time.Millisecond
}

// RetryFailures is how long a failed lookup is remembered.
func (g GeocodingConfig) RetryFailures() time.Duration {
	return time.Duration(g.RetryFailuresMs) * time.Millisecond
}

// Backoff is the pause after the provider throttled us.
func (g GeocodingConfig) Backoff() time.Duration {
	return time.Duration(g.BackoffMs) * time.Millisecond
}

// Timeout bounds a single geocoding request.
func (g GeocodingConfig) Timeout() time.Duration {
	return time.Duration(g.TimeoutMs) * time.Millisecond
}

// Gradient returns the configured marker gradient.
func (m MapConfig) Gradient() (mapview.Gradient, error) {
	low, err := mapview.ParseHex(m.LowColor)
	if err != nil {
		return mapview.Gradient{}, fmt.Errorf("map.low_color: %w", err)
	}

	high, err := mapview.ParseHex(m.HighColor)
	if err != nil {
		return mapview.Gradient{}, fmt.Errorf("map.high_color: %w", err)
	}

	return mapview.Gradient{Low: low, High: high}, nil
}

// Encode returns the configuration as TOML.
func (c *Config) Encode() ([]byte, error) {
	return toml.Marshal(c)
}
