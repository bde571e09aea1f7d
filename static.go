package timetable

import (
	"context"
	"fmt"
	"time"

	"github.com/seqtransit/timetable/downloader"
	"github.com/seqtransit/timetable/logger"
	"github.com/seqtransit/timetable/metrics"
	"github.com/seqtransit/timetable/parse"
	"github.com/seqtransit/timetable/store"
)

const (
	DefaultStaticTimeout  = 60 * time.Second
	DefaultStaticMaxSize  = 800 << 20 // 800 MB
	DefaultStaticCacheTTL = 15 * time.Minute
)

// StaticLoader keeps the store in sync with the published schedule
// dataset. A refresh downloads the zip, and reloads the store only
// when the dataset's last modified time has moved; every refresh also
// rolls the instance window forward.
type StaticLoader struct {
	StaticTimeout  time.Duration
	StaticMaxSize  int
	StaticCacheTTL time.Duration

	url        string
	store      *store.Store
	downloader downloader.Downloader
	health     *Health
	log        logger.Logger
	collector  *metrics.Collector

	lastModified time.Time
}

func NewStaticLoader(url string, s *store.Store, dl downloader.Downloader, health *Health, log logger.Logger, collector *metrics.Collector) *StaticLoader {
	return &StaticLoader{
		StaticTimeout:  DefaultStaticTimeout,
		StaticMaxSize:  DefaultStaticMaxSize,
		StaticCacheTTL: DefaultStaticCacheTTL,

		url:        url,
		store:      s,
		downloader: dl,
		health:     health,
		log:        log,
		collector:  collector,
	}
}

// Refresh downloads the schedule dataset and applies it if it carries
// new data, then advances the rolling instance window to cover
// yesterday through tomorrow around now.
func (l *StaticLoader) Refresh(ctx context.Context, now time.Time) error {
	started := time.Now()

	body, err := l.downloader.Get(ctx, l.url, nil, downloader.GetOptions{
		Timeout:  l.StaticTimeout,
		MaxSize:  l.StaticMaxSize,
		Cache:    true,
		CacheTTL: l.StaticCacheTTL,
	})
	if err != nil {
		l.collector.StaticReloadErrs.Inc()
		return fmt.Errorf("downloading schedule dataset: %w", err)
	}

	modified, err := parse.LastModified(body)
	if err != nil {
		l.collector.StaticReloadErrs.Inc()
		return fmt.Errorf("inspecting schedule dataset: %w", err)
	}

	if modified.After(l.lastModified) {
		if err := l.reload(body, now); err != nil {
			l.collector.StaticReloadErrs.Inc()
			return err
		}
		l.lastModified = modified
		l.collector.StaticReloads.Inc()
		l.log.Info("schedule dataset reloaded",
			"modified", modified,
			"took", time.Since(started).String())
	}

	l.rollWindow(now)
	l.collector.StaticFetchDuration.Observe(time.Since(started).Seconds())
	return nil
}

// reload replaces the store contents with the downloaded dataset. The
// timetable is unavailable for the duration: queries fail fast instead
// of reading a half-loaded store.
func (l *StaticLoader) reload(body []byte, now time.Time) error {
	l.health.SetAvailable(false)
	l.store.Clear()

	if _, err := parse.ParseStatic(l.store, body); err != nil {
		return fmt.Errorf("parsing schedule dataset: %w", err)
	}
	l.store.CreateTripInstances(now)

	l.health.SetAvailable(true)
	return nil
}

// rollWindow prunes expired instances and materializes any window date
// not yet covered. Idempotent across overlapping refreshes.
func (l *StaticLoader) rollWindow(now time.Time) {
	l.store.RemoveOldTripInstances(now)
	l.store.CreateTripInstances(now)

	trips, stopTimes := l.store.CountInstances()
	l.collector.TripInstances.Set(float64(trips))
	l.collector.StopTimeInstances.Set(float64(stopTimes))
}
