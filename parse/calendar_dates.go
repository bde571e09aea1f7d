package parse

import (
	"fmt"
	"io"
	"time"

	"github.com/gocarina/gocsv"

	"github.com/seqtransit/timetable/model"
)

type CalendarDateCSV struct {
	ServiceID     string `csv:"service_id"`
	Date          string `csv:"date"`
	ExceptionType int8   `csv:"exception_type"`
}

// ParseCalendarDates parses calendar_dates.txt into per-service
// exception maps: date -> true for an added date (exception_type 1),
// false for a removed one (exception_type 2).
func ParseCalendarDates(data io.Reader) (map[string]map[string]bool, error) {
	calendarDateCsv := []*CalendarDateCSV{}
	if err := gocsv.Unmarshal(data, &calendarDateCsv); err != nil {
		return nil, fmt.Errorf("unmarshaling calendar_dates csv: %w", err)
	}

	exceptions := map[string]map[string]bool{}

	for _, cd := range calendarDateCsv {
		if cd.ServiceID == "" {
			return nil, fmt.Errorf("empty service_id")
		}
		if cd.ExceptionType < 1 || cd.ExceptionType > 2 {
			return nil, fmt.Errorf("illegal exception_type: '%d'", cd.ExceptionType)
		}

		if _, err := time.Parse(model.DateFormat, cd.Date); err != nil {
			return nil, fmt.Errorf("parsing date '%s': %w", cd.Date, err)
		}

		serviceID := normID(cd.ServiceID)
		if exceptions[serviceID] == nil {
			exceptions[serviceID] = map[string]bool{}
		}
		if _, dup := exceptions[serviceID][cd.Date]; dup {
			return nil, fmt.Errorf("duplicate service/date: '%s/%s'", cd.ServiceID, cd.Date)
		}
		exceptions[serviceID][cd.Date] = cd.ExceptionType == 1
	}

	return exceptions, nil
}
