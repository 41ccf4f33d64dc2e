package poller

import (
	"context"
	"time"

	"wnotify/internal/wnotify"
	"wnotify/internal/wnotify/metrics"
)

// MetricsPoller wraps a wnotify.Poller with metrics collection
type MetricsPoller struct {
	poller   wnotify.Poller
	registry *metrics.Registry
}

// NewMetricsPoller creates a new instrumented poller
func NewMetricsPoller(poller wnotify.Poller, registry *metrics.Registry) wnotify.Poller {
	return &MetricsPoller{
		poller:   poller,
		registry: registry,
	}
}

// Poll implements wnotify.Poller.Poll with metrics collection
func (p *MetricsPoller) Poll(ctx context.Context, endpoint string) (wnotify.Payload, error) {
	start := time.Now()

	payload, err := p.poller.Poll(ctx, endpoint)

	p.registry.RecordPoll(payload != nil, time.Since(start), err)

	return payload, err
}
