package timetable

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/seqtransit/timetable/downloader"
	"github.com/seqtransit/timetable/logger"
	"github.com/seqtransit/timetable/metrics"
	"github.com/seqtransit/timetable/parse"
	"github.com/seqtransit/timetable/store"
)

// The realtime side of the timetable. Covers the basics of cancelled
// trips, skipped stops, and delays.
//
// Added trips are currently not handled at all. Nor are any of the
// realtime extensions. There's also bound to be various quirks and
// edge cases specific to certain transit agencies that will have to
// be tackled as they come up.

const (
	DefaultRealtimeTimeout = 30 * time.Second
	DefaultRealtimeMaxSize = 1 << 20 // 1 MB
	DefaultRealtimeTTL     = 15 * time.Second
)

// RealtimeApplier fetches the realtime feed and patches the instance
// store with its deltas. It subscribes to the availability signal and
// suspends itself while the timetable is unavailable, so a schedule
// reload never races a delta apply.
type RealtimeApplier struct {
	RealtimeTimeout time.Duration
	RealtimeMaxSize int
	RealtimeTTL     time.Duration

	url        string
	store      *store.Store
	downloader downloader.Downloader
	log        logger.Logger
	collector  *metrics.Collector

	suspended atomic.Bool
}

func NewRealtimeApplier(url string, s *store.Store, dl downloader.Downloader, health *Health, log logger.Logger, collector *metrics.Collector) *RealtimeApplier {
	a := &RealtimeApplier{
		RealtimeTimeout: DefaultRealtimeTimeout,
		RealtimeMaxSize: DefaultRealtimeMaxSize,
		RealtimeTTL:     DefaultRealtimeTTL,

		url:        url,
		store:      s,
		downloader: dl,
		log:        log,
		collector:  collector,
	}
	health.Subscribe(func(available bool) {
		a.suspended.Store(!available)
	})
	return a
}

// Refresh fetches the realtime feed and applies every update in it.
// Updates are applied independently: one malformed or unmatchable
// update never blocks the rest of the feed.
func (a *RealtimeApplier) Refresh(ctx context.Context) error {
	if a.suspended.Load() {
		return nil
	}

	started := time.Now()

	body, err := a.downloader.Get(ctx, a.url, nil, downloader.GetOptions{
		Timeout:  a.RealtimeTimeout,
		MaxSize:  a.RealtimeMaxSize,
		Cache:    true,
		CacheTTL: a.RealtimeTTL,
	})
	if err != nil {
		a.collector.RealtimeUpdateErrs.Inc()
		return fmt.Errorf("downloading realtime feed: %w", err)
	}

	realtime, err := parse.ParseRealtime(body)
	if err != nil {
		a.collector.RealtimeUpdateErrs.Inc()
		return fmt.Errorf("parsing realtime feed: %w", err)
	}

	a.collector.RealtimeUnprocessable.Add(float64(realtime.NumUnprocessable))

	for _, update := range realtime.Updates {
		a.apply(update)
	}

	a.collector.RealtimeUpdates.Inc()
	a.collector.RealtimeFetchDuration.Observe(time.Since(started).Seconds())
	return nil
}

// apply patches one trip instance. Updates for trips outside the
// instance window are normal: the feed covers the whole network and
// the store only materializes a three day window.
func (a *RealtimeApplier) apply(update parse.TripUpdate) {
	if update.Deleted {
		err := a.store.ResetRealtimeData(update.TripID, update.StartDate)
		a.note(err, update.TripID, update.StartDate)
		return
	}

	err := a.store.SetTripInstanceStatus(update.TripID, update.StartDate, update.Cancelled)
	if a.note(err, update.TripID, update.StartDate) {
		return
	}

	location := a.store.Location()
	for _, stu := range update.StopTimeUpdates {
		err := a.store.SetStopTimeInstanceStatus(update.TripID, update.StartDate, stu.Sequence, stu.Skipped)
		if a.note(err, update.TripID, update.StartDate) {
			continue
		}
		if stu.ArrivalSet {
			err = a.store.SetStopTimeActualArrival(update.TripID, update.StartDate, stu.Sequence, stu.ArrivalTime.In(location))
			a.note(err, update.TripID, update.StartDate)
		}
		if stu.DepartureSet {
			err = a.store.SetStopTimeActualDeparture(update.TripID, update.StartDate, stu.Sequence, stu.DepartureTime.In(location))
			a.note(err, update.TripID, update.StartDate)
		}
	}
}

// note logs a miss and reports whether an error occurred.
func (a *RealtimeApplier) note(err error, tripID, date string) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, store.ErrNotFound) {
		a.collector.RealtimeUnknownTrips.Inc()
		a.log.Debug("realtime update for unknown trip instance",
			"trip_id", tripID,
			"date", date)
	} else {
		a.log.Warn("applying realtime update",
			"trip_id", tripID,
			"date", date,
			"error", err)
	}
	return true
}
