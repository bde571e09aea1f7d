package model

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestServiceRunsOn(t *testing.T) {
	// Mon-Fri service with an Easter Monday removal and a one-off
	// Saturday addition.
	service := &Service{
		ID:        "weekday",
		Weekday:   int8(1<<time.Monday | 1<<time.Tuesday | 1<<time.Wednesday | 1<<time.Thursday | 1<<time.Friday),
		StartDate: "20250101",
		EndDate:   "20251231",
		Exceptions: map[string]bool{
			"20250421": false,
			"20250426": true,
		},
	}

	for _, tc := range []struct {
		name     string
		date     string
		expected bool
	}{
		{"monday", "20250825", true},
		{"friday", "20250829", true},
		{"saturday", "20250830", false},
		{"sunday", "20250831", false},
		{"removed by exception", "20250421", false},
		{"added by exception", "20250426", true},
		{"before range", "20241231", false},
		{"after range", "20260101", false},
		{"first day of range", "20250101", true}, // a Wednesday
		{"last day of range", "20251231", true},  // also a Wednesday
	} {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.expected, service.RunsOn(tc.date))
		})
	}
}

func TestServiceRunsOnExceptionOutsideRange(t *testing.T) {
	service := &Service{
		ID:         "special",
		Weekday:    0,
		StartDate:  "20250601",
		EndDate:    "20250630",
		Exceptions: map[string]bool{"20250719": true},
	}

	// An addition wins even outside the date range, and a zero weekday
	// mask means exceptions are the only running days.
	assert.True(t, service.RunsOn("20250719"))
	assert.False(t, service.RunsOn("20250616"))
}

func TestDateOf(t *testing.T) {
	loc, err := time.LoadLocation("Australia/Brisbane")
	assert.NoError(t, err)

	// 23:30 UTC on the 28th is already the 29th in Brisbane.
	utc := time.Date(2025, 8, 28, 23, 30, 0, 0, time.UTC)
	assert.Equal(t, "20250828", DateOf(utc))
	assert.Equal(t, "20250829", DateOf(utc.In(loc)))
}

func TestStopTimeInstanceTimes(t *testing.T) {
	scheduled := time.Date(2025, 8, 29, 6, 0, 0, 0, time.UTC)
	actual := scheduled.Add(4 * time.Minute)

	sti := &StopTimeInstance{
		ScheduledArrival:   scheduled,
		ScheduledDeparture: scheduled.Add(time.Minute),
	}
	assert.Equal(t, scheduled, sti.Arrival())
	assert.Equal(t, scheduled.Add(time.Minute), sti.Departure())

	sti.ActualArrival = actual
	sti.ActualDeparture = actual.Add(time.Minute)
	assert.Equal(t, actual, sti.Arrival())
	assert.Equal(t, actual.Add(time.Minute), sti.Departure())
}

func TestRouteColour(t *testing.T) {
	for _, tc := range []struct {
		name     string
		route    Route
		expected Colour
	}{
		{"rail line", Route{ID: "BNFG", ShortName: "BNFG", Type: RouteTypeRail}, railColours["FG"]},
		{"tram", Route{ID: "GLKN", ShortName: "GLKN", Type: RouteTypeTram}, ColourGold},
	} {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.expected, tc.route.Colour())
		})
	}
}
