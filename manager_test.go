package timetable_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/seqtransit/timetable"
	"github.com/seqtransit/timetable/config"
	"github.com/seqtransit/timetable/logger"
	"github.com/seqtransit/timetable/model"
	"github.com/seqtransit/timetable/testutil"
)

func managerConfig() *config.Config {
	cfg := config.Default()
	cfg.Feeds.StaticURL = staticURL
	cfg.Feeds.RealtimeURL = realtimeURL
	cfg.StaticRefreshInterval = config.Duration(10 * time.Millisecond)
	cfg.RealtimeRefreshInterval = config.Duration(10 * time.Millisecond)
	return cfg
}

func TestManagerRefreshCycle(t *testing.T) {
	dl := newFakeDownloader()
	dl.responses[staticURL] = testutil.BuildZip(t, testutil.FillStatic(scheduleFiles()), time.Now())
	dl.responses[realtimeURL] = testutil.BuildFeed(t, []testutil.TripUpdate{
		{TripID: "down1", StartDate: model.DateOf(time.Now().In(testutil.Location(t))), Canceled: true},
	})

	manager := timetable.NewManager(managerConfig(), logger.Nop())
	manager.SetDownloader(dl)

	require.NoError(t, manager.RefreshStatic(context.Background()))
	assert.True(t, manager.Health.Available())

	require.NoError(t, manager.RefreshRealtime(context.Background()))

	// The cancelled trip is filtered out of departures; the other rail
	// trip survives.
	_, departures, err := manager.Provider.NextServices("place_rom", model.RouteTypeRail, time.Now().In(testutil.Location(t)))
	require.NoError(t, err)
	for _, departure := range departures {
		assert.NotEqual(t, "down1", departure.Trip.ID)
	}
}

func TestManagerRunStopsOnCancel(t *testing.T) {
	dl := newFakeDownloader()
	dl.responses[staticURL] = testutil.BuildZip(t, testutil.FillStatic(scheduleFiles()), time.Now())
	dl.responses[realtimeURL] = testutil.BuildFeed(t, nil)

	manager := timetable.NewManager(managerConfig(), logger.Nop())
	manager.SetDownloader(dl)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		done <- manager.Run(ctx)
	}()

	// Give the loops a few ticks, then shut down.
	time.Sleep(50 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("Run did not stop on cancel")
	}

	assert.True(t, manager.Health.Available())
}

func TestManagerRunRetriesInitialDataset(t *testing.T) {
	dl := newFakeDownloader()
	dl.errs[staticURL] = errors.New("connection refused")
	dl.responses[realtimeURL] = testutil.BuildFeed(t, nil)

	manager := timetable.NewManager(managerConfig(), logger.Nop())
	manager.SetDownloader(dl)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	done := make(chan error, 1)
	go func() {
		done <- manager.Run(ctx)
	}()

	// A failed initial load leaves the timetable unavailable while the
	// static ticker keeps retrying.
	time.Sleep(50 * time.Millisecond)
	assert.False(t, manager.Health.Available())
	assert.Greater(t, dl.getCount(staticURL), 1)

	// Once the dataset can be fetched, a later tick recovers.
	dl.set(staticURL, testutil.BuildZip(t, testutil.FillStatic(scheduleFiles()), time.Now()), nil)
	require.Eventually(t, manager.Health.Available, 5*time.Second, 10*time.Millisecond)

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("Run did not stop on cancel")
	}
}
