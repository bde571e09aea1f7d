// Package metrics exposes Prometheus instrumentation for the feed
// refresh loops and the instance store.
package metrics

import (
	"log"
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

type Collector struct {
	reg *prometheus.Registry

	Available prometheus.Gauge

	StaticReloads    prometheus.Counter
	StaticReloadErrs prometheus.Counter

	RealtimeUpdates       prometheus.Counter
	RealtimeUpdateErrs    prometheus.Counter
	RealtimeUnprocessable prometheus.Counter
	RealtimeUnknownTrips  prometheus.Counter

	TripInstances     prometheus.Gauge
	StopTimeInstances prometheus.Gauge

	StaticFetchDuration   prometheus.Histogram
	RealtimeFetchDuration prometheus.Histogram
}

func NewCollector() *Collector {
	reg := prometheus.NewRegistry()

	c := &Collector{
		reg: reg,
		Available: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "timetable_available",
			Help: "1 if the timetable is loaded and serving queries, 0 otherwise.",
		}),
		StaticReloads: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "timetable_static_reloads_total",
			Help: "Total schedule dataset reloads applied.",
		}),
		StaticReloadErrs: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "timetable_static_reload_errors_total",
			Help: "Total schedule dataset refresh failures.",
		}),
		RealtimeUpdates: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "timetable_realtime_updates_total",
			Help: "Total realtime feed fetches applied.",
		}),
		RealtimeUpdateErrs: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "timetable_realtime_update_errors_total",
			Help: "Total realtime feed fetch or parse failures.",
		}),
		RealtimeUnprocessable: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "timetable_realtime_unprocessable_total",
			Help: "Total realtime feed entities skipped as unprocessable.",
		}),
		RealtimeUnknownTrips: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "timetable_realtime_unknown_trips_total",
			Help: "Total realtime updates referencing trips outside the instance window.",
		}),
		TripInstances: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "timetable_trip_instances",
			Help: "Trip instances currently materialized.",
		}),
		StopTimeInstances: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "timetable_stop_time_instances",
			Help: "Stop time instances currently materialized.",
		}),
		StaticFetchDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "timetable_static_fetch_duration_seconds",
			Help:    "Duration of schedule dataset download and parse.",
			Buckets: prometheus.ExponentialBuckets(0.1, 2, 12),
		}),
		RealtimeFetchDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "timetable_realtime_fetch_duration_seconds",
			Help:    "Duration of realtime feed download and apply.",
			Buckets: prometheus.ExponentialBuckets(0.01, 2, 12),
		}),
	}

	reg.MustRegister(
		c.Available,
		c.StaticReloads, c.StaticReloadErrs,
		c.RealtimeUpdates, c.RealtimeUpdateErrs,
		c.RealtimeUnprocessable, c.RealtimeUnknownTrips,
		c.TripInstances, c.StopTimeInstances,
		c.StaticFetchDuration, c.RealtimeFetchDuration,
	)

	return c
}

func (c *Collector) Handler() http.Handler {
	return promhttp.HandlerFor(c.reg, promhttp.HandlerOpts{})
}

// Serve exposes /metrics on addr until the returned server is shut
// down.
func (c *Collector) Serve(addr string) *http.Server {
	mux := http.NewServeMux()
	mux.Handle("/metrics", c.Handler())
	srv := &http.Server{Addr: addr, Handler: mux}
	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Printf("metrics server error: %v", err)
		}
	}()
	return srv
}
