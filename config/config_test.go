package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/seqtransit/timetable/model"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, "Australia/Brisbane", cfg.Timezone)
	assert.Equal(t, time.Hour, cfg.StaticRefreshInterval.Std())
	assert.Equal(t, 30*time.Second, cfg.RealtimeRefreshInterval.Std())
	assert.Equal(t, 25, cfg.SearchLimit)

	assert.Equal(t, Policy{LookaheadHours: 4, MaxResults: 6}, cfg.PolicyFor(model.RouteTypeRail))
	for _, rt := range []model.RouteType{model.RouteTypeTram, model.RouteTypeBus, model.RouteTypeFerry} {
		assert.Equal(t, Policy{LookaheadHours: 8, MaxResults: 10}, cfg.PolicyFor(rt))
	}
}

func TestLoadFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yml")
	require.NoError(t, os.WriteFile(path, []byte(`
feeds:
  static_url: https://example.com/gtfs.zip
  realtime_url: https://example.com/trip-updates
timezone: Australia/Sydney
static_refresh_interval: 30m
realtime_refresh_interval: 10s
search_limit: 5
policies:
  rail:
    lookahead_hours: 2
    max_results: 3
`), 0644))

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "https://example.com/gtfs.zip", cfg.Feeds.StaticURL)
	assert.Equal(t, "https://example.com/trip-updates", cfg.Feeds.RealtimeURL)
	assert.Equal(t, "Australia/Sydney", cfg.Timezone)
	assert.Equal(t, 30*time.Minute, cfg.StaticRefreshInterval.Std())
	assert.Equal(t, 10*time.Second, cfg.RealtimeRefreshInterval.Std())
	assert.Equal(t, 5, cfg.SearchLimit)

	// Overridden for rail, defaults for the rest.
	assert.Equal(t, Policy{LookaheadHours: 2, MaxResults: 3}, cfg.PolicyFor(model.RouteTypeRail))
	assert.Equal(t, Policy{LookaheadHours: 8, MaxResults: 10}, cfg.PolicyFor(model.RouteTypeBus))

	assert.Equal(t, "Australia/Sydney", cfg.Location().String())
}

func TestLoadInvalid(t *testing.T) {
	for name, content := range map[string]string{
		"bad timezone": "timezone: Mars/Olympus",
		"bad url":      "feeds:\n  static_url: not a url",
		"bad duration": "static_refresh_interval: fortnightly",
		"bad policy":   "policies:\n  rail:\n    lookahead_hours: -1\n    max_results: 5",
		"not yaml":     "}{",
	} {
		t.Run(name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "config.yml")
			require.NoError(t, os.WriteFile(path, []byte(content), 0644))

			_, err := Load(path)
			assert.Error(t, err)
		})
	}
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yml"))
	assert.Error(t, err)
}

func TestEnvOverrides(t *testing.T) {
	t.Setenv("TIMETABLE_STATIC_URL", "https://env.example.com/gtfs.zip")
	t.Setenv("TIMETABLE_TIMEZONE", "Australia/Sydney")

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, "https://env.example.com/gtfs.zip", cfg.Feeds.StaticURL)
	assert.Equal(t, "Australia/Sydney", cfg.Timezone)
}
