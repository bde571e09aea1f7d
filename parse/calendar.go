package parse

import (
	"fmt"
	"io"
	"time"

	"github.com/gocarina/gocsv"

	"github.com/seqtransit/timetable/model"
)

type CalendarCSV struct {
	ServiceID string `csv:"service_id"`
	StartDate string `csv:"start_date"`
	EndDate   string `csv:"end_date"`
	Monday    int8   `csv:"monday"`
	Tuesday   int8   `csv:"tuesday"`
	Wednesday int8   `csv:"wednesday"`
	Thursday  int8   `csv:"thursday"`
	Friday    int8   `csv:"friday"`
	Saturday  int8   `csv:"saturday"`
	Sunday    int8   `csv:"sunday"`
}

// ParseCalendar parses calendar.txt, folding in the exception maps from
// calendar_dates.txt, and returns the set of service IDs seen.
func ParseCalendar(
	writer StaticWriter,
	data io.Reader,
	exceptions map[string]map[string]bool,
) (map[string]bool, error) {

	calendarCsv := []*CalendarCSV{}
	if err := gocsv.Unmarshal(data, &calendarCsv); err != nil {
		return nil, fmt.Errorf("unmarshaling calendar csv: %w", err)
	}

	services := map[string]bool{}

	for _, c := range calendarCsv {
		if c.ServiceID == "" {
			return nil, fmt.Errorf("empty service_id")
		}
		if services[normID(c.ServiceID)] {
			return nil, fmt.Errorf("repeated service_id '%s'", c.ServiceID)
		}
		services[normID(c.ServiceID)] = true

		var weekday int8
		days := []struct {
			value int8
			name  string
			bit   time.Weekday
		}{
			{c.Monday, "monday", time.Monday},
			{c.Tuesday, "tuesday", time.Tuesday},
			{c.Wednesday, "wednesday", time.Wednesday},
			{c.Thursday, "thursday", time.Thursday},
			{c.Friday, "friday", time.Friday},
			{c.Saturday, "saturday", time.Saturday},
			{c.Sunday, "sunday", time.Sunday},
		}
		for _, day := range days {
			if day.value == 1 {
				weekday |= 1 << day.bit
			} else if day.value != 0 {
				return nil, fmt.Errorf("invalid %s value '%d'", day.name, day.value)
			}
		}

		if _, err := time.Parse(model.DateFormat, c.StartDate); err != nil {
			return nil, fmt.Errorf("parsing start_date: %w", err)
		}
		if _, err := time.Parse(model.DateFormat, c.EndDate); err != nil {
			return nil, fmt.Errorf("parsing end_date: %w", err)
		}

		serviceExceptions := exceptions[normID(c.ServiceID)]
		if serviceExceptions == nil {
			serviceExceptions = map[string]bool{}
		}

		writer.AddService(&model.Service{
			ID:         c.ServiceID,
			Weekday:    weekday,
			StartDate:  c.StartDate,
			EndDate:    c.EndDate,
			Exceptions: serviceExceptions,
		})
	}

	return services, nil
}
