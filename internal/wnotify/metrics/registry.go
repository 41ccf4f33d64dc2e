package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Registry encapsulates all metrics and provides a clean interface
// for recording metrics without global state
type Registry struct {
	registry *prometheus.Registry

	// Watcher metrics
	pollTotal         *prometheus.CounterVec
	pollDuration      prometheus.Histogram
	activeLoops       prometheus.Gauge
	duplicatesDropped prometheus.Counter

	// Dispatch metrics
	dispatchTotal      *prometheus.CounterVec
	handlerErrorsTotal *prometheus.CounterVec

	// Tracker metrics
	trackTotal    *prometheus.CounterVec
	trackDuration *prometheus.HistogramVec

	// System health metrics
	systemInfo *prometheus.GaugeVec
	startTime  prometheus.Gauge
}

// NewRegistry creates a new metrics registry with all metrics initialized
func NewRegistry() *Registry {
	registry := prometheus.NewRegistry()

	r := &Registry{
		registry: registry,

		pollTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "wnotify_watcher_poll_total",
				Help: "Total number of watch requests",
			},
			[]string{"status"}, // status: data, empty, error
		),

		// long polls are held open by the server, so the buckets reach minutes
		pollDuration: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "wnotify_watcher_poll_duration_seconds",
				Help:    "Time a watch request stayed in flight",
				Buckets: []float64{0.01, 0.05, 0.1, 0.5, 1, 5, 15, 30, 60, 120, 300},
			},
		),

		activeLoops: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "wnotify_watcher_active_loops",
				Help: "Number of running poll loops",
			},
		),

		duplicatesDropped: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "wnotify_watcher_duplicates_dropped_total",
				Help: "Payloads dropped because another loop already dispatched them",
			},
		),

		dispatchTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "wnotify_dispatch_total",
				Help: "Total number of payloads routed by event name",
			},
			[]string{"event", "status"}, // status: routed, dropped (event left empty)
		),

		handlerErrorsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "wnotify_handler_errors_total",
				Help: "Total number of failed handler invocations",
			},
			[]string{"event"},
		),

		trackTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "wnotify_tracker_track_total",
				Help: "Total number of tracked events",
			},
			[]string{"event", "status"}, // status: success, error
		),

		trackDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "wnotify_tracker_track_duration_seconds",
				Help:    "Time spent sending tracked events",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"event"},
		),

		systemInfo: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "wnotify_system_info",
				Help: "System information (value is always 1, labels contain info)",
			},
			[]string{"version", "build_time"},
		),

		startTime: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "wnotify_start_time_seconds",
				Help: "Unix timestamp when the application started",
			},
		),
	}

	// add default Go metrics (memory, GC, goroutines, etc.)
	registry.MustRegister(collectors.NewGoCollector())
	registry.MustRegister(collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	registry.MustRegister(
		r.pollTotal,
		r.pollDuration,
		r.activeLoops,
		r.duplicatesDropped,
		r.dispatchTotal,
		r.handlerErrorsTotal,
		r.trackTotal,
		r.trackDuration,
		r.systemInfo,
		r.startTime,
	)

	r.startTime.SetToCurrentTime()

	return r
}

// Handler returns an HTTP handler for the Prometheus metrics endpoint
func (r *Registry) Handler() http.Handler {
	return promhttp.HandlerFor(r.registry, promhttp.HandlerOpts{
		EnableOpenMetrics: true,
		Registry:          r.registry,
	})
}

// Gatherer exposes the underlying registry for scraping in tests and embedders
func (r *Registry) Gatherer() prometheus.Gatherer {
	return r.registry
}

// RecordPoll records a single watch request
func (r *Registry) RecordPoll(gotData bool, duration time.Duration, err error) {
	status := "data"
	switch {
	case err != nil:
		status = "error"
	case !gotData:
		status = "empty"
	}

	r.pollTotal.WithLabelValues(status).Inc()
	r.pollDuration.Observe(duration.Seconds())
}

// AddActiveLoops moves the running poll loop gauge by delta
func (r *Registry) AddActiveLoops(delta int) {
	r.activeLoops.Add(float64(delta))
}

// RecordDuplicate records a payload dropped by deduplication
func (r *Registry) RecordDuplicate() {
	r.duplicatesDropped.Inc()
}

// RecordDispatch records whether a payload found a bus for its event
func (r *Registry) RecordDispatch(event string, routed bool) {
	if !routed {
		// dropped names come straight from the server; keep them off the label
		r.dispatchTotal.WithLabelValues("", "dropped").Inc()
		return
	}

	r.dispatchTotal.WithLabelValues(event, "routed").Inc()
}

// RecordHandlerError records a failed handler invocation
func (r *Registry) RecordHandlerError(event string) {
	r.handlerErrorsTotal.WithLabelValues(event).Inc()
}

// RecordTrack records an outbound tracking call
func (r *Registry) RecordTrack(event string, duration time.Duration, err error) {
	status := "success"
	if err != nil {
		status = "error"
	}

	r.trackTotal.WithLabelValues(event, status).Inc()
	r.trackDuration.WithLabelValues(event).Observe(duration.Seconds())
}

// SetSystemInfo sets system information metrics
func (r *Registry) SetSystemInfo(version, buildTime string) {
	r.systemInfo.WithLabelValues(version, buildTime).Set(1)
}
