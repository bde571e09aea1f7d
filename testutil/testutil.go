package testutil

// Helpers and fixtures for tests.

import (
	"archive/zip"
	"bytes"
	"strings"
	"testing"
	"time"

	gtfsproto "github.com/MobilityData/gtfs-realtime-bindings/golang/gtfs"
	"github.com/stretchr/testify/require"
	proto "google.golang.org/protobuf/proto"

	"github.com/seqtransit/timetable/parse"
	"github.com/seqtransit/timetable/store"
)

const Timezone = "Australia/Brisbane"

func Location(t testing.TB) *time.Location {
	loc, err := time.LoadLocation(Timezone)
	require.NoError(t, err)
	return loc
}

// BuildZip packs the given files into a zip, one line per string. All
// entries get the given modified time.
func BuildZip(t testing.TB, files map[string][]string, modified time.Time) []byte {
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

// FillStatic completes a partial schedule dataset with (mostly blank)
// dummy tables, so tests only spell out the tables they care about.
func FillStatic(files map[string][]string) map[string][]string {
	if files[parse.RoutesFile] == nil {
		files[parse.RoutesFile] = []string{"route_id,route_short_name,route_long_name,route_type"}
	}
	if files[parse.CalendarFile] == nil {
		files[parse.CalendarFile] = []string{"service_id,monday,tuesday,wednesday,thursday,friday,saturday,sunday,start_date,end_date"}
	}
	if files[parse.CalendarDatesFile] == nil {
		files[parse.CalendarDatesFile] = []string{"service_id,date,exception_type"}
	}
	if files[parse.TripsFile] == nil {
		files[parse.TripsFile] = []string{"route_id,service_id,trip_id,trip_headsign,direction_id"}
	}
	if files[parse.StopsFile] == nil {
		files[parse.StopsFile] = []string{"stop_id,stop_name,stop_url,location_type,parent_station,platform_code"}
	}
	if files[parse.StopTimesFile] == nil {
		files[parse.StopTimesFile] = []string{"trip_id,arrival_time,departure_time,stop_id,stop_sequence,pickup_type"}
	}
	return files
}

// BuildStore parses a (possibly partial) schedule dataset into a fresh
// store.
func BuildStore(t testing.TB, files map[string][]string) *store.Store {
	s := store.New(Location(t))

	buf := BuildZip(t, FillStatic(files), time.Now())
	_, err := parse.ParseStatic(s, buf)
	require.NoError(t, err)

	return s
}

// Helpers for building realtime feeds.

type StopUpdate struct {
	StopID       string
	StopSequence uint32
	Skipped      bool

	ArrivalSet    bool
	ArrivalTime   time.Time
	DepartureSet  bool
	DepartureTime time.Time
}

type TripUpdate struct {
	TripID      string
	StartDate   string
	Canceled    bool
	Deleted     bool
	StopUpdates []StopUpdate
}

// BuildFeed marshals trip updates into a realtime protobuf feed.
func BuildFeed(t testing.TB, tripUpdates []TripUpdate) []byte {
	entity := make([]*gtfsproto.FeedEntity, 0, len(tripUpdates))

	for _, tripUpdate := range tripUpdates {
		stopTimeUpdate := make([]*gtfsproto.TripUpdate_StopTimeUpdate, 0, len(tripUpdate.StopUpdates))

		for _, stopUpdate := range tripUpdate.StopUpdates {
			scheduleRelationship := gtfsproto.TripUpdate_StopTimeUpdate_SCHEDULED
			if stopUpdate.Skipped {
				scheduleRelationship = gtfsproto.TripUpdate_StopTimeUpdate_SKIPPED
			}

			stup := &gtfsproto.TripUpdate_StopTimeUpdate{
				ScheduleRelationship: &scheduleRelationship,
				StopSequence:         proto.Uint32(stopUpdate.StopSequence),
				StopId:               proto.String(stopUpdate.StopID),
			}
			if stopUpdate.ArrivalSet {
				stup.Arrival = &gtfsproto.TripUpdate_StopTimeEvent{
					Time: proto.Int64(stopUpdate.ArrivalTime.Unix()),
				}
			}
			if stopUpdate.DepartureSet {
				stup.Departure = &gtfsproto.TripUpdate_StopTimeEvent{
					Time: proto.Int64(stopUpdate.DepartureTime.Unix()),
				}
			}

			stopTimeUpdate = append(stopTimeUpdate, stup)
		}

		tripScheduleRelationship := gtfsproto.TripDescriptor_SCHEDULED
		if tripUpdate.Canceled {
			tripScheduleRelationship = gtfsproto.TripDescriptor_CANCELED
		}
		entity = append(entity, &gtfsproto.FeedEntity{
			Id:        proto.String(tripUpdate.TripID),
			IsDeleted: proto.Bool(tripUpdate.Deleted),
			TripUpdate: &gtfsproto.TripUpdate{
				Trip: &gtfsproto.TripDescriptor{
					TripId:               proto.String(tripUpdate.TripID),
					StartDate:            proto.String(tripUpdate.StartDate),
					ScheduleRelationship: &tripScheduleRelationship,
				},
				StopTimeUpdate: stopTimeUpdate,
			},
		})
	}

	incrementality := gtfsproto.FeedHeader_FULL_DATASET
	timestamp := uint64(time.Now().Unix())
	header := &gtfsproto.FeedHeader{
		GtfsRealtimeVersion: proto.String("2.0"),
		Incrementality:      &incrementality,
		Timestamp:           proto.Uint64(timestamp),
	}

	data, err := proto.Marshal(&gtfsproto.FeedMessage{Header: header, Entity: entity})
	require.NoError(t, err)

	return data
}
