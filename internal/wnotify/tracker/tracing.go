package tracker

import (
	"context"

	"go.opentelemetry.io/otel/codes"

	"wnotify/internal/wnotify"
	"wnotify/internal/wnotify/tracing"
)

// TracedTracker wraps a wnotify.Tracker with distributed tracing
// Layer order: TracedTracker -> MetricsTracker -> Tracker (real thing)
type TracedTracker struct {
	tracker wnotify.Tracker
	tracer  *tracing.Tracer
}

// NewTracedTracker creates a new traced tracker that wraps a metrics tracker
func NewTracedTracker(tracker wnotify.Tracker, tracer *tracing.Tracer) wnotify.Tracker {
	return &TracedTracker{
		tracker: tracker,
		tracer:  tracer,
	}
}

// Track implements wnotify.Tracker.Track with distributed tracing
func (t *TracedTracker) Track(ctx context.Context, event string, data map[string]string) error {
	ctx, span := t.tracer.StartSpan(ctx, "tracker.track")
	defer span.End()

	span.SetAttributes(t.tracer.TrackAttributes(event, data)...)

	err := t.tracker.Track(ctx, event, data)

	if err != nil {
		t.tracer.RecordError(ctx, err)
	} else {
		span.SetStatus(codes.Ok, "")
	}
	span.SetAttributes(t.tracer.ErrorAttributes(err)...)

	return err
}
