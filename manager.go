package timetable

import (
	"context"
	"net/http"
	"sync"
	"time"

	"github.com/seqtransit/timetable/config"
	"github.com/seqtransit/timetable/downloader"
	"github.com/seqtransit/timetable/logger"
	"github.com/seqtransit/timetable/metrics"
	"github.com/seqtransit/timetable/store"
)

// Manager owns the timetable's moving parts: the store, the refresh
// loops, availability, and the query provider. Run drives the loops
// until the context is cancelled.
type Manager struct {
	Store    *store.Store
	Health   *Health
	Provider *Provider

	staticLoader    *StaticLoader
	realtimeApplier *RealtimeApplier

	cfg       *config.Config
	log       logger.Logger
	collector *metrics.Collector
}

func NewManager(cfg *config.Config, log logger.Logger) *Manager {
	collector := metrics.NewCollector()
	s := store.New(cfg.Location())
	health := NewHealth()
	dl := downloader.NewMemory()

	health.Subscribe(func(available bool) {
		if available {
			collector.Available.Set(1)
		} else {
			collector.Available.Set(0)
		}
	})

	return &Manager{
		Store:    s,
		Health:   health,
		Provider: NewProvider(s, cfg, health),

		staticLoader:    NewStaticLoader(cfg.Feeds.StaticURL, s, dl, health, log, collector),
		realtimeApplier: NewRealtimeApplier(cfg.Feeds.RealtimeURL, s, dl, health, log, collector),

		cfg:       cfg,
		log:       log,
		collector: collector,
	}
}

// SetDownloader swaps the downloader used by both refresh loops. Used
// in tests.
func (m *Manager) SetDownloader(dl downloader.Downloader) {
	m.staticLoader.downloader = dl
	m.realtimeApplier.downloader = dl
}

// RefreshStatic runs one schedule refresh cycle.
func (m *Manager) RefreshStatic(ctx context.Context) error {
	return m.staticLoader.Refresh(ctx, time.Now())
}

// RefreshRealtime runs one realtime refresh cycle.
func (m *Manager) RefreshRealtime(ctx context.Context) error {
	return m.realtimeApplier.Refresh(ctx)
}

// Run performs an initial schedule load, then drives both refresh
// loops until ctx is cancelled. Refresh errors are logged, never
// fatal: a failed refresh leaves the previous dataset serving, and a
// failed initial load leaves the timetable unavailable until the
// static ticker pulls a dataset in.
func (m *Manager) Run(ctx context.Context) error {
	var metricsServer *http.Server
	if m.cfg.MetricsAddr != "" {
		metricsServer = m.collector.Serve(m.cfg.MetricsAddr)
		m.log.Info("metrics listening", "addr", m.cfg.MetricsAddr)
	}

	if err := m.RefreshStatic(ctx); err != nil {
		m.log.Error("initial schedule load failed", "error", err)
	}

	var wg sync.WaitGroup
	wg.Add(2)

	go func() {
		defer wg.Done()
		m.loop(ctx, "static", m.cfg.StaticRefreshInterval.Std(), m.RefreshStatic)
	}()
	go func() {
		defer wg.Done()
		m.loop(ctx, "realtime", m.cfg.RealtimeRefreshInterval.Std(), m.RefreshRealtime)
	}()

	wg.Wait()

	if metricsServer != nil {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = metricsServer.Shutdown(shutdownCtx)
	}
	return nil
}

func (m *Manager) loop(ctx context.Context, name string, interval time.Duration, refresh func(context.Context) error) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := refresh(ctx); err != nil && ctx.Err() == nil {
				m.log.Error("refresh failed", "loop", name, "error", err)
			}
		}
	}
}
