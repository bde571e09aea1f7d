package parse

import (
	"bytes"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/seqtransit/timetable/model"
)

func TestParseTime(t *testing.T) {
	for _, tc := range []struct {
		input    string
		expected time.Duration
		err      bool
	}{
		{"00:00:00", 0, false},
		{"06:30:15", 6*time.Hour + 30*time.Minute + 15*time.Second, false},
		{"24:10:00", 24*time.Hour + 10*time.Minute, false},
		{"99:59:59", 99*time.Hour + 59*time.Minute + 59*time.Second, false},
		{"100:00:00", 0, true},
		{"06:60:00", 0, true},
		{"06:00:60", 0, true},
		{"-1:00:00", 0, true},
		{"06:00", 0, true},
		{"six:00:00", 0, true},
		{"", 0, true},
	} {
		t.Run(tc.input, func(t *testing.T) {
			d, err := ParseTime(tc.input)
			if tc.err {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tc.expected, d)
		})
	}
}

func TestParseStopTimes(t *testing.T) {
	trips := map[string]bool{"t1": true, "t2": true}
	stops := map[string]bool{"s1": true, "s2": true}

	for _, tc := range []struct {
		name     string
		content  string
		expected []*model.StopTime
		err      bool
	}{
		{
			"two trips",
			`
trip_id,arrival_time,departure_time,stop_id,stop_sequence,pickup_type
t1,06:00:00,06:01:00,s1,1,0
t1,06:05:00,06:05:00,s2,2,1
t2,23:55:00,23:56:00,s1,1,0
t2,24:03:00,24:03:00,s2,2,1`,
			[]*model.StopTime{
				{TripID: "t1", StopID: "s1", Sequence: 1, Arrival: 6 * time.Hour, Departure: 6*time.Hour + time.Minute},
				{TripID: "t1", StopID: "s2", Sequence: 2, Arrival: 6*time.Hour + 5*time.Minute, Departure: 6*time.Hour + 5*time.Minute, Terminates: true},
				{TripID: "t2", StopID: "s1", Sequence: 1, Arrival: 23*time.Hour + 55*time.Minute, Departure: 23*time.Hour + 56*time.Minute},
				{TripID: "t2", StopID: "s2", Sequence: 2, Arrival: 24*time.Hour + 3*time.Minute, Departure: 24*time.Hour + 3*time.Minute, Terminates: true},
			},
			false,
		},

		{
			"unknown trip",
			`
trip_id,arrival_time,departure_time,stop_id,stop_sequence
nope,06:00:00,06:00:00,s1,1`,
			nil, true,
		},

		{
			"unknown stop",
			`
trip_id,arrival_time,departure_time,stop_id,stop_sequence
t1,06:00:00,06:00:00,nope,1`,
			nil, true,
		},

		{
			"bad arrival time",
			`
trip_id,arrival_time,departure_time,stop_id,stop_sequence
t1,6am,06:00:00,s1,1`,
			nil, true,
		},

		{
			"duplicate stop_sequence",
			`
trip_id,arrival_time,departure_time,stop_id,stop_sequence
t1,06:00:00,06:00:00,s1,1
t1,06:05:00,06:05:00,s2,1`,
			nil, true,
		},
	} {
		t.Run(tc.name, func(t *testing.T) {
			w := &memWriter{}
			err := ParseStopTimes(w, bytes.NewBufferString(tc.content), trips, stops)
			if tc.err {
				assert.Error(t, err)
				return
			}

			require.NoError(t, err)
			assert.Equal(t, tc.expected, w.stopTimes)
		})
	}
}
