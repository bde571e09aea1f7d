package parse

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseCalendarDates(t *testing.T) {
	for _, tc := range []struct {
		name     string
		content  string
		expected map[string]map[string]bool
		err      bool
	}{
		{
			"empty",
			`service_id,date,exception_type`,
			map[string]map[string]bool{},
			false,
		},

		{
			"additions and removals",
			`
service_id,date,exception_type
weekday,20250414,2
weekday,20250419,1
saturday,20250419,2`,
			map[string]map[string]bool{
				"weekday":  {"20250414": false, "20250419": true},
				"saturday": {"20250419": false},
			},
			false,
		},

		{
			"ids normalized",
			`
service_id,date,exception_type
 WeekDay ,20250414,1`,
			map[string]map[string]bool{
				"weekday": {"20250414": true},
			},
			false,
		},

		{
			"repeated exception",
			`
service_id,date,exception_type
s,20250414,1
s,20250414,2`,
			nil, true,
		},

		{
			"invalid exception type",
			`
service_id,date,exception_type
s,20250414,3`,
			nil, true,
		},

		{
			"invalid date",
			`
service_id,date,exception_type
s,20251301,1`,
			nil, true,
		},

		{
			"missing service_id",
			`
service_id,date,exception_type
,20250414,1`,
			nil, true,
		},
	} {
		t.Run(tc.name, func(t *testing.T) {
			exceptions, err := ParseCalendarDates(bytes.NewBufferString(tc.content))
			if tc.err {
				assert.Error(t, err)
				return
			}

			require.NoError(t, err)
			assert.Equal(t, tc.expected, exceptions)
		})
	}
}
