package parse

import (
	"fmt"
	"io"

	"github.com/gocarina/gocsv"

	"github.com/seqtransit/timetable/model"
)

type TripCSV struct {
	ID          string `csv:"trip_id"`
	RouteID     string `csv:"route_id"`
	ServiceID   string `csv:"service_id"`
	Headsign    string `csv:"trip_headsign"`
	DirectionID int8   `csv:"direction_id"`
}

// ParseTrips parses trips.txt and returns the set of trip IDs seen.
func ParseTrips(
	writer StaticWriter,
	data io.Reader,
	routes map[string]bool,
	services map[string]bool,
) (map[string]bool, error) {
	tripCsv := []*TripCSV{}
	if err := gocsv.Unmarshal(data, &tripCsv); err != nil {
		return nil, fmt.Errorf("unmarshaling trips csv: %w", err)
	}

	trips := map[string]bool{}
	for _, t := range tripCsv {
		if t.ID == "" {
			return nil, fmt.Errorf("empty trip_id")
		}
		if trips[normID(t.ID)] {
			return nil, fmt.Errorf("repeated trip_id '%s'", t.ID)
		}
		trips[normID(t.ID)] = true

		if t.RouteID == "" {
			return nil, fmt.Errorf("empty route_id")
		}
		if !routes[normID(t.RouteID)] {
			return nil, fmt.Errorf("unknown route_id '%s'", t.RouteID)
		}
		if !services[normID(t.ServiceID)] {
			return nil, fmt.Errorf("unknown service_id '%s'", t.ServiceID)
		}

		if t.DirectionID != 0 && t.DirectionID != 1 {
			return nil, fmt.Errorf("invalid direction_id '%d'", t.DirectionID)
		}

		direction := model.DirectionUpward
		if t.DirectionID == 1 {
			direction = model.DirectionDownward
		}

		err := writer.AddTrip(&model.Trip{
			ID:        t.ID,
			RouteID:   t.RouteID,
			ServiceID: t.ServiceID,
			Headsign:  t.Headsign,
			Direction: direction,
		})
		if err != nil {
			return nil, fmt.Errorf("writing trip: %w", err)
		}
	}

	return trips, nil
}
