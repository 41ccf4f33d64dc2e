package wnotify

import "context"

// Tracker defines the outbound half of the client.
type Tracker interface {
	// Track emits a named event with optional data to the service.
	Track(ctx context.Context, event string, data map[string]string) error
}
