package parse

import (
	"fmt"
	"io"

	"github.com/gocarina/gocsv"

	"github.com/seqtransit/timetable/model"
)

type StopCSV struct {
	ID            string `csv:"stop_id"`
	Name          string `csv:"stop_name"`
	URL           string `csv:"stop_url"`
	LocationType  int8   `csv:"location_type"`
	ParentStation string `csv:"parent_station"`
	PlatformCode  string `csv:"platform_code"`
}

// ParseStops parses stops.txt and returns the set of stop IDs seen. An
// empty parent_station or platform_code column means the stop has none,
// not that it has an empty one.
func ParseStops(writer StaticWriter, data io.Reader) (map[string]bool, error) {
	stopCsv := []*StopCSV{}
	if err := gocsv.Unmarshal(data, &stopCsv); err != nil {
		return nil, fmt.Errorf("unmarshaling stops csv: %w", err)
	}

	stopIDs := map[string]bool{}
	parentRef := map[string]string{}
	for _, st := range stopCsv {
		if st.ID == "" {
			return nil, fmt.Errorf("empty stop_id")
		}
		if stopIDs[normID(st.ID)] {
			return nil, fmt.Errorf("repeated stop_id '%s'", st.ID)
		}
		stopIDs[normID(st.ID)] = true

		if st.Name == "" {
			return nil, fmt.Errorf("empty stop_name for stop_id '%s'", st.ID)
		}
		if st.LocationType != 0 && st.LocationType != 1 {
			return nil, fmt.Errorf("unsupported location_type '%d' for stop_id '%s'", st.LocationType, st.ID)
		}

		if st.ParentStation != "" {
			parentRef[normID(st.ID)] = normID(st.ParentStation)
		}

		writer.AddStop(&model.Stop{
			ID:           st.ID,
			Name:         st.Name,
			URL:          st.URL,
			LocationType: model.LocationType(st.LocationType),
			ParentID:     st.ParentStation,
			PlatformCode: st.PlatformCode,
		})
	}

	// verify stops referenced by parent_station exist
	for stopID, parentID := range parentRef {
		if !stopIDs[parentID] {
			return nil, fmt.Errorf("stop '%s' references unknown parent_station '%s'", stopID, parentID)
		}
	}

	return stopIDs, nil
}
