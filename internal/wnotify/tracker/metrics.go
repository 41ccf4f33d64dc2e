package tracker

import (
	"context"
	"time"

	"wnotify/internal/wnotify"
	"wnotify/internal/wnotify/metrics"
)

// MetricsTracker wraps a wnotify.Tracker with metrics collection
type MetricsTracker struct {
	tracker  wnotify.Tracker
	registry *metrics.Registry
}

// NewMetricsTracker creates a new instrumented tracker
func NewMetricsTracker(tracker wnotify.Tracker, registry *metrics.Registry) wnotify.Tracker {
	return &MetricsTracker{
		tracker:  tracker,
		registry: registry,
	}
}

// Track implements wnotify.Tracker.Track with metrics collection
func (t *MetricsTracker) Track(ctx context.Context, event string, data map[string]string) error {
	start := time.Now()

	err := t.tracker.Track(ctx, event, data)

	t.registry.RecordTrack(event, time.Since(start), err)

	return err
}
