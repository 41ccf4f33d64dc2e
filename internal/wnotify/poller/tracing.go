package poller

import (
	"context"

	"go.opentelemetry.io/otel/codes"

	"wnotify/internal/wnotify"
	"wnotify/internal/wnotify/tracing"
)

// TracedPoller wraps a wnotify.Poller with distributed tracing
// Layer order: TracedPoller -> MetricsPoller -> Poller (real thing)
type TracedPoller struct {
	poller wnotify.Poller
	tracer *tracing.Tracer
}

// NewTracedPoller creates a new traced poller that wraps a metrics poller
func NewTracedPoller(poller wnotify.Poller, tracer *tracing.Tracer) wnotify.Poller {
	return &TracedPoller{
		poller: poller,
		tracer: tracer,
	}
}

// Poll implements wnotify.Poller.Poll with distributed tracing. The endpoint
// embeds the private key and is deliberately not recorded.
func (p *TracedPoller) Poll(ctx context.Context, endpoint string) (wnotify.Payload, error) {
	ctx, span := p.tracer.StartSpan(ctx, "watcher.poll")
	defer span.End()

	payload, err := p.poller.Poll(ctx, endpoint)

	span.SetAttributes(p.tracer.PayloadAttributes(payload)...)
	if err != nil {
		p.tracer.RecordError(ctx, err)
	} else {
		span.SetStatus(codes.Ok, "")
	}
	span.SetAttributes(p.tracer.ErrorAttributes(err)...)

	return payload, err
}
