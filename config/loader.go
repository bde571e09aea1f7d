package config

import (
	"fmt"
	"os"
	"time"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"
)

const (
	defaultStaticURL   = "https://gtfsrt.api.translink.com.au/GTFS/SEQ_GTFS.zip"
	defaultRealtimeURL = "https://gtfsrt.api.translink.com.au/api/realtime/SEQ/TripUpdates"
	defaultTimezone    = "Australia/Brisbane"

	defaultStaticRefresh   = time.Hour
	defaultRealtimeRefresh = 30 * time.Second

	defaultSearchLimit = 25
)

// Default returns the configuration used when no config file is
// present.
func Default() *Config {
	return &Config{
		Feeds: Feeds{
			StaticURL:   defaultStaticURL,
			RealtimeURL: defaultRealtimeURL,
		},
		Timezone:                defaultTimezone,
		Logging:                 Logging{Level: "info"},
		StaticRefreshInterval:   Duration(defaultStaticRefresh),
		RealtimeRefreshInterval: Duration(defaultRealtimeRefresh),
		SearchLimit:             defaultSearchLimit,
		Policies:                map[string]Policy{},
	}
}

// Load reads the YAML config at path, applies defaults for anything
// unset, and validates the result. An empty path yields the defaults.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("reading config file: %w", err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parsing config file: %w", err)
		}
	}

	applyEnv(cfg)

	if err := validator.New().Struct(cfg); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}
	return cfg, nil
}

// applyEnv lets the feed endpoints and timezone be overridden without a
// config file.
func applyEnv(cfg *Config) {
	if v := os.Getenv("TIMETABLE_STATIC_URL"); v != "" {
		cfg.Feeds.StaticURL = v
	}
	if v := os.Getenv("TIMETABLE_REALTIME_URL"); v != "" {
		cfg.Feeds.RealtimeURL = v
	}
	if v := os.Getenv("TIMETABLE_TIMEZONE"); v != "" {
		cfg.Timezone = v
	}
	if v := os.Getenv("TIMETABLE_METRICS_ADDR"); v != "" {
		cfg.MetricsAddr = v
	}
}
