package wnotify

import (
	"context"
	"net/url"
)

// Transport issues GET requests against the wnotify service.
type Transport interface {
	// Get requests path (relative to the service base URL) with the given
	// query parameters and returns the raw response body.
	Get(ctx context.Context, path string, query url.Values) ([]byte, error)
}
