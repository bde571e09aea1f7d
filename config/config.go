// Package config holds the service configuration: feed endpoints,
// refresh intervals, the agency timezone, and the per-route-type query
// policy table (lookahead window and result caps).
package config

import (
	"fmt"
	"time"

	"github.com/seqtransit/timetable/model"
)

// Duration wraps time.Duration so intervals can be written as "30s" or
// "1h" in YAML.
type Duration time.Duration

func (d *Duration) UnmarshalYAML(unmarshal func(interface{}) error) error {
	var raw string
	if err := unmarshal(&raw); err != nil {
		return err
	}
	parsed, err := time.ParseDuration(raw)
	if err != nil {
		return fmt.Errorf("parsing duration %q: %w", raw, err)
	}
	*d = Duration(parsed)
	return nil
}

func (d Duration) Std() time.Duration {
	return time.Duration(d)
}

// Policy is the query policy for one route type: how far ahead
// departure queries look, and how many results they return at most.
type Policy struct {
	LookaheadHours int `yaml:"lookahead_hours" validate:"gt=0"`
	MaxResults     int `yaml:"max_results" validate:"gt=0"`
}

type Feeds struct {
	StaticURL   string `yaml:"static_url" validate:"required,url"`
	RealtimeURL string `yaml:"realtime_url" validate:"required,url"`
}

type Logging struct {
	Level    string `yaml:"level"`
	FilePath string `yaml:"file_path"`
}

type Config struct {
	Feeds    Feeds   `yaml:"feeds"`
	Timezone string  `yaml:"timezone" validate:"required,timezone"`
	Logging  Logging `yaml:"logging"`

	StaticRefreshInterval   Duration `yaml:"static_refresh_interval"`
	RealtimeRefreshInterval Duration `yaml:"realtime_refresh_interval"`

	MetricsAddr string `yaml:"metrics_addr"`

	SearchLimit int               `yaml:"search_limit" validate:"gt=0"`
	Policies    map[string]Policy `yaml:"policies" validate:"dive"`
}

// Location returns the agency timezone. Config validation guarantees
// the name loads.
func (c *Config) Location() *time.Location {
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return time.UTC
	}
	return loc
}

// PolicyFor returns the query policy for a route type, falling back to
// the built-in defaults when the config has no entry for it.
func (c *Config) PolicyFor(routeType model.RouteType) Policy {
	if p, ok := c.Policies[routeType.String()]; ok {
		return p
	}
	return defaultPolicies[routeType.String()]
}

// Trains look 4 hours ahead and render 6 rows; everything else gets a
// wider window and more rows.
var defaultPolicies = map[string]Policy{
	model.RouteTypeTram.String():  {LookaheadHours: 8, MaxResults: 10},
	model.RouteTypeRail.String():  {LookaheadHours: 4, MaxResults: 6},
	model.RouteTypeBus.String():   {LookaheadHours: 8, MaxResults: 10},
	model.RouteTypeFerry.String(): {LookaheadHours: 8, MaxResults: 10},
}
