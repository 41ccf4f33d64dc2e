package wnotify

import "context"

// Poller defines a single long-poll request against a watch endpoint.
type Poller interface {
	// Poll blocks until the service answers the watch request at endpoint.
	// A nil payload with a nil error means no event arrived this cycle.
	Poll(ctx context.Context, endpoint string) (Payload, error)
}
