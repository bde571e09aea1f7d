package parse

import (
	"archive/zip"
	"bytes"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/seqtransit/timetable/model"
)

// memWriter collects parsed entities for inspection.
type memWriter struct {
	routes    []*model.Route
	services  []*model.Service
	trips     []*model.Trip
	stops     []*model.Stop
	stopTimes []*model.StopTime
}

func (w *memWriter) AddRoute(r *model.Route)     { w.routes = append(w.routes, r) }
func (w *memWriter) AddService(s *model.Service) { w.services = append(w.services, s) }
func (w *memWriter) AddStop(s *model.Stop)       { w.stops = append(w.stops, s) }

func (w *memWriter) AddTrip(t *model.Trip) error {
	w.trips = append(w.trips, t)
	return nil
}

func (w *memWriter) AddStopTime(st *model.StopTime) error {
	w.stopTimes = append(w.stopTimes, st)
	return nil
}

func buildZip(t *testing.T, files map[string][]string, modified time.Time) []byte {
	buf := &bytes.Buffer{}
	w := zip.NewWriter(buf)
	for filename, content := range files {
		f, err := w.CreateHeader(&zip.FileHeader{
			Name:     filename,
			Method:   zip.Deflate,
			Modified: modified,
		})
		require.NoError(t, err)
		_, err = f.Write([]byte(strings.Join(content, "\n")))
		require.NoError(t, err)
	}
	require.NoError(t, w.Close())
	return buf.Bytes()
}

func validFiles() map[string][]string {
	return map[string][]string{
		"routes.txt": {
			"route_id,route_short_name,route_long_name,route_type",
			"BUWT,BUWT,Bulimba to Teneriffe,4",
		},
		"calendar.txt": {
			"service_id,monday,tuesday,wednesday,thursday,friday,saturday,sunday,start_date,end_date",
			"weekday,1,1,1,1,1,0,0,20250101,20251231",
		},
		"calendar_dates.txt": {
			"service_id,date,exception_type",
			"weekday,20250414,2",
		},
		"trips.txt": {
			"route_id,service_id,trip_id,trip_headsign,direction_id",
			"BUWT,weekday,t1,Teneriffe,0",
		},
		"stops.txt": {
			"stop_id,stop_name,stop_url,location_type,parent_station,platform_code",
			"319665,Bulimba ferry terminal,,0,,",
			"317584,Teneriffe ferry terminal,,0,,",
		},
		"stop_times.txt": {
			"trip_id,arrival_time,departure_time,stop_id,stop_sequence,pickup_type",
			"t1,06:00:00,06:01:00,319665,1,0",
			"t1,06:05:00,06:05:00,317584,2,1",
		},
	}
}

func TestParseStatic(t *testing.T) {
	modified := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	w := &memWriter{}

	lastModified, err := ParseStatic(w, buildZip(t, validFiles(), modified))
	require.NoError(t, err)
	assert.Equal(t, modified, lastModified.UTC())

	require.Len(t, w.routes, 1)
	assert.Equal(t, "BUWT", w.routes[0].ID)
	assert.Equal(t, model.RouteTypeFerry, w.routes[0].Type)

	require.Len(t, w.services, 1)
	assert.Equal(t, "weekday", w.services[0].ID)
	assert.Equal(t, map[string]bool{"20250414": false}, w.services[0].Exceptions)

	require.Len(t, w.trips, 1)
	assert.Equal(t, "t1", w.trips[0].ID)

	require.Len(t, w.stops, 2)
	require.Len(t, w.stopTimes, 2)
	assert.False(t, w.stopTimes[0].Terminates)
	assert.True(t, w.stopTimes[1].Terminates)
}

func TestParseStaticFilesInSubdirectory(t *testing.T) {
	files := map[string][]string{}
	for name, content := range validFiles() {
		files["data/"+name] = content
	}

	w := &memWriter{}
	_, err := ParseStatic(w, buildZip(t, files, time.Now()))
	require.NoError(t, err)
	assert.Len(t, w.stopTimes, 2)
}

func TestParseStaticMissingFile(t *testing.T) {
	files := validFiles()
	delete(files, "stop_times.txt")

	w := &memWriter{}
	_, err := ParseStatic(w, buildZip(t, files, time.Now()))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "stop_times.txt")
}

func TestParseStaticNotAZip(t *testing.T) {
	w := &memWriter{}
	_, err := ParseStatic(w, []byte("not a zip"))
	assert.Error(t, err)
}

func TestLastModified(t *testing.T) {
	older := time.Date(2025, 5, 1, 0, 0, 0, 0, time.UTC)
	newer := time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)

	buf := &bytes.Buffer{}
	w := zip.NewWriter(buf)
	for name, content := range validFiles() {
		modified := older
		if name == "stop_times.txt" {
			modified = newer
		}
		f, err := w.CreateHeader(&zip.FileHeader{Name: name, Modified: modified})
		require.NoError(t, err)
		_, err = f.Write([]byte(strings.Join(content, "\n")))
		require.NoError(t, err)
	}
	// An unrelated file should not drive the result.
	f, err := w.CreateHeader(&zip.FileHeader{
		Name:     "shapes.txt",
		Modified: newer.AddDate(1, 0, 0),
	})
	require.NoError(t, err)
	_, err = f.Write([]byte("shape_id"))
	require.NoError(t, err)
	require.NoError(t, w.Close())

	lastModified, err := LastModified(buf.Bytes())
	require.NoError(t, err)
	assert.Equal(t, newer, lastModified.UTC())
}
