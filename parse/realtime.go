package parse

import (
	"fmt"
	"time"

	gtfsproto "github.com/MobilityData/gtfs-realtime-bindings/golang/gtfs"
	proto "google.golang.org/protobuf/proto"
)

// StopTimeUpdate is one stop's realtime delta within a trip update.
// Times are epoch-derived and carried in UTC; the applier localizes
// them to the agency timezone.
type StopTimeUpdate struct {
	StopID        string
	Sequence      int
	Skipped       bool
	ArrivalSet    bool
	ArrivalTime   time.Time
	DepartureSet  bool
	DepartureTime time.Time
}

// TripUpdate is the trimmed-down realtime delta for one (trip, date)
// pair: cancellation, skipped stops, and arrival/departure overrides.
// Deleted marks a feed deletion entity: all previously applied state
// for the trip instance should be discarded.
type TripUpdate struct {
	TripID          string
	StartDate       string
	Deleted         bool
	Cancelled       bool
	StopTimeUpdates []StopTimeUpdate
}

// Realtime holds the usable content of one realtime feed message.
type Realtime struct {
	Timestamp uint64
	Updates   []TripUpdate

	// Entities dropped for missing a trip id or start date. Exists to
	// simplify debugging down the road.
	NumUnprocessable int
}

// ParseRealtime parses a GTFS Realtime protobuf feed. Entities that
// are not trip updates, or that lack the trip id or start date needed
// to address an instance, are dropped rather than treated as errors.
func ParseRealtime(feed []byte) (*Realtime, error) {
	f := &gtfsproto.FeedMessage{}
	if err := proto.Unmarshal(feed, f); err != nil {
		return nil, fmt.Errorf("unmarshaling protobuf: %w", err)
	}

	header := f.GetHeader()

	version := header.GetGtfsRealtimeVersion()
	if version != "2.0" && version != "1.0" {
		return nil, fmt.Errorf("version %s not supported", version)
	}

	if header.GetIncrementality() != gtfsproto.FeedHeader_FULL_DATASET {
		return nil, fmt.Errorf("feed incrementality %s not supported", header.GetIncrementality())
	}

	rt := &Realtime{Timestamp: header.GetTimestamp()}

	for _, entity := range f.GetEntity() {
		tripUpdate := entity.GetTripUpdate()
		if tripUpdate == nil {
			continue
		}

		trip := tripUpdate.GetTrip()
		if trip.GetTripId() == "" || trip.GetStartDate() == "" {
			// Can't address an instance without both.
			rt.NumUnprocessable++
			continue
		}

		update := TripUpdate{
			TripID:    trip.GetTripId(),
			StartDate: trip.GetStartDate(),
			Deleted:   entity.GetIsDeleted(),
			Cancelled: trip.GetScheduleRelationship() == gtfsproto.TripDescriptor_CANCELED,
		}

		for _, stu := range tripUpdate.GetStopTimeUpdate() {
			// Both references are needed to address the instance.
			if stu.StopId == nil || stu.StopSequence == nil {
				continue
			}

			stopUpdate := StopTimeUpdate{
				StopID:   stu.GetStopId(),
				Sequence: int(stu.GetStopSequence()),
				Skipped:  stu.GetScheduleRelationship() == gtfsproto.TripUpdate_StopTimeUpdate_SKIPPED,
			}

			if stu.Arrival != nil && stu.Arrival.Time != nil {
				stopUpdate.ArrivalSet = true
				stopUpdate.ArrivalTime = time.Unix(stu.Arrival.GetTime(), 0).UTC()
			}
			if stu.Departure != nil && stu.Departure.Time != nil {
				stopUpdate.DepartureSet = true
				stopUpdate.DepartureTime = time.Unix(stu.Departure.GetTime(), 0).UTC()
			}

			update.StopTimeUpdates = append(update.StopTimeUpdates, stopUpdate)
		}

		rt.Updates = append(rt.Updates, update)
	}

	return rt, nil
}
