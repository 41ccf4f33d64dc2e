// Package transport implements wnotify.Transport over HTTP.
package transport

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"
)

// Config holds the service location and request settings.
type Config struct {
	BaseURL string `env:"WNOTIFY_BASE_URL" envDefault:"http://wnotify.menez.es/"`
	// Timeout bounds a whole request. Zero means no client-side timeout, which
	// long-polling relies on.
	Timeout time.Duration `env:"WNOTIFY_HTTP_TIMEOUT" envDefault:"0s"`
}

// StatusError is returned when the service answers with a non-2xx status.
type StatusError struct {
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	if e.Body == "" {
		return fmt.Sprintf("unexpected status %d", e.StatusCode)
	}
	return fmt.Sprintf("unexpected status %d: %s", e.StatusCode, e.Body)
}

// HTTPClient issues uncached GET requests against the wnotify service.
type HTTPClient struct {
	baseURL    string
	httpClient *http.Client
	now        func() time.Time
}

// NewHTTPClient creates a client for the service at config.BaseURL.
func NewHTTPClient(config Config) (*HTTPClient, error) {
	u, err := url.Parse(config.BaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse base url: %w", err)
	}
	if u.Scheme == "" || u.Host == "" {
		return nil, fmt.Errorf("invalid base url %q: scheme and host are required", config.BaseURL)
	}

	return &HTTPClient{
		baseURL:    strings.TrimRight(config.BaseURL, "/"),
		httpClient: &http.Client{Timeout: config.Timeout},
		now:        time.Now,
	}, nil
}

// URL returns the absolute URL for path and query, including the
// cache-busting parameter.
func (c *HTTPClient) URL(path string, query url.Values) string {
	q := url.Values{}
	for k, vs := range query {
		q[k] = append([]string(nil), vs...)
	}
	q.Set("_", strconv.FormatInt(c.now().UnixMilli(), 10))

	if !strings.HasPrefix(path, "/") {
		path = "/" + path
	}

	return c.baseURL + path + "?" + q.Encode()
}

// Get implements wnotify.Transport.
func (c *HTTPClient) Get(ctx context.Context, path string, query url.Values) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.URL(path, query), nil)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("Cache-Control", "no-cache")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		// url.Error quotes the full URL, and watch paths carry the private key.
		var uerr *url.Error
		if errors.As(err, &uerr) {
			err = uerr.Err
		}
		return nil, fmt.Errorf("performing request to %s: %w", c.baseURL, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("reading response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, &StatusError{StatusCode: resp.StatusCode, Body: strings.TrimSpace(string(body))}
	}

	return body, nil
}
