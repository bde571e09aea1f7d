// Package parse turns the raw GTFS feeds into model entities: the
// static schedule zip into routes, services, trips, stops and stop
// times, and the realtime protobuf feed into trip update deltas.
package parse

import (
	"archive/zip"
	"bytes"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/gocarina/gocsv"
	"github.com/spkg/bom"

	"github.com/seqtransit/timetable/model"
)

const (
	RoutesFile        = "routes.txt"
	CalendarFile      = "calendar.txt"
	CalendarDatesFile = "calendar_dates.txt"
	TripsFile         = "trips.txt"
	StopsFile         = "stops.txt"
	StopTimesFile     = "stop_times.txt"
)

var staticFiles = []string{
	RoutesFile,
	CalendarFile,
	CalendarDatesFile,
	TripsFile,
	StopsFile,
	StopTimesFile,
}

// StaticWriter receives parsed static entities. Entities arrive in
// dependency order: routes and services before trips, stops before
// stop times, stop times last.
type StaticWriter interface {
	AddRoute(*model.Route)
	AddService(*model.Service)
	AddTrip(*model.Trip) error
	AddStop(*model.Stop)
	AddStopTime(*model.StopTime) error
}

// ParseStatic parses a GTFS static zip into the writer and returns the
// dataset's last modified time, taken from the newest zip entry among
// the schedule tables.
func ParseStatic(writer StaticWriter, buf []byte) (time.Time, error) {
	file := map[string]io.ReadCloser{}
	for _, name := range staticFiles {
		file[name] = nil
	}

	defer func() {
		for _, rc := range file {
			if rc != nil {
				rc.Close()
			}
		}
	}()

	r, err := zip.NewReader(bytes.NewReader(buf), int64(len(buf)))
	if err != nil {
		return time.Time{}, fmt.Errorf("unzipping: %w", err)
	}

	var lastModified time.Time
	for _, f := range r.File {
		// There should not be any subdirectories. But, some
		// agencies don't care.
		if f.FileInfo().IsDir() {
			continue
		}
		path := strings.Split(f.Name, "/")
		fName := path[len(path)-1]

		if _, found := file[fName]; !found {
			continue
		}

		rc, err := f.Open()
		if err != nil {
			return time.Time{}, fmt.Errorf("opening %s: %w", f.Name, err)
		}

		file[fName] = rc
		if f.Modified.After(lastModified) {
			lastModified = f.Modified
		}
	}

	for _, required := range staticFiles {
		if file[required] == nil {
			return time.Time{}, fmt.Errorf("missing %s", required)
		}
	}

	// LazyCSVReader required (at least) to survive sloppy use of
	// quotes. The BOM reader strips unicode BOMs if present.
	gocsv.SetCSVReader(func(in io.Reader) gocsv.CSVReader {
		return gocsv.LazyCSVReader(bom.NewReader(in))
	})

	// Routes first; trips reference them.
	routes, err := ParseRoutes(writer, file[RoutesFile])
	if err != nil {
		return time.Time{}, fmt.Errorf("parsing %s: %w", RoutesFile, err)
	}

	// Exceptions are folded into their services, so they parse ahead
	// of calendar.txt.
	exceptions, err := ParseCalendarDates(file[CalendarDatesFile])
	if err != nil {
		return time.Time{}, fmt.Errorf("parsing %s: %w", CalendarDatesFile, err)
	}

	services, err := ParseCalendar(writer, file[CalendarFile], exceptions)
	if err != nil {
		return time.Time{}, fmt.Errorf("parsing %s: %w", CalendarFile, err)
	}

	trips, err := ParseTrips(writer, file[TripsFile], routes, services)
	if err != nil {
		return time.Time{}, fmt.Errorf("parsing %s: %w", TripsFile, err)
	}

	stops, err := ParseStops(writer, file[StopsFile])
	if err != nil {
		return time.Time{}, fmt.Errorf("parsing %s: %w", StopsFile, err)
	}

	if err := ParseStopTimes(writer, file[StopTimesFile], trips, stops); err != nil {
		return time.Time{}, fmt.Errorf("parsing %s: %w", StopTimesFile, err)
	}

	return lastModified, nil
}

// LastModified returns the dataset's last modified time without
// parsing the tables, so callers can skip a reload when a download
// carries no new data.
func LastModified(buf []byte) (time.Time, error) {
	r, err := zip.NewReader(bytes.NewReader(buf), int64(len(buf)))
	if err != nil {
		return time.Time{}, fmt.Errorf("unzipping: %w", err)
	}

	names := map[string]bool{}
	for _, name := range staticFiles {
		names[name] = true
	}

	var lastModified time.Time
	for _, f := range r.File {
		if f.FileInfo().IsDir() {
			continue
		}
		path := strings.Split(f.Name, "/")
		if !names[path[len(path)-1]] {
			continue
		}
		if f.Modified.After(lastModified) {
			lastModified = f.Modified
		}
	}
	return lastModified, nil
}

// Feeds disagree on ID casing between files; all ID bookkeeping in this
// package is done lower-cased, matching the store's normalization.
func normID(id string) string {
	return strings.ToLower(strings.TrimSpace(id))
}
