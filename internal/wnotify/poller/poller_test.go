package poller

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/codes"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
	"go.uber.org/zap/zaptest"

	"wnotify/internal/transport"
	"wnotify/internal/wnotify"
	"wnotify/internal/wnotify/metrics"
	"wnotify/internal/wnotify/tracing"
)

type fakeTransport struct {
	path  string
	query url.Values
	body  string
	err   error
}

func (f *fakeTransport) Get(_ context.Context, path string, query url.Values) ([]byte, error) {
	f.path = path
	f.query = query
	return []byte(f.body), f.err
}

type stubPoller struct {
	payload wnotify.Payload
	err     error
}

func (s stubPoller) Poll(context.Context, string) (wnotify.Payload, error) {
	return s.payload, s.err
}

func TestPollDecodesPayload(t *testing.T) {
	ft := &fakeTransport{body: `{"event":"ping","x":1}`}
	p, err := NewPoller(ft, zaptest.NewLogger(t), "client-1")
	require.NoError(t, err)

	payload, err := p.Poll(context.Background(), wnotify.WatchPath("secret"))
	require.NoError(t, err)

	assert.Equal(t, wnotify.Payload{"event": "ping", "x": 1.0}, payload)
	assert.Equal(t, "/watch/secret", ft.path)
	assert.Equal(t, "client-1", ft.query.Get("client_id"))
}

func TestPollNoEvent(t *testing.T) {
	p, err := NewPoller(&fakeTransport{body: ""}, zaptest.NewLogger(t), "")
	require.NoError(t, err)

	payload, err := p.Poll(context.Background(), "/watch/secret")
	require.NoError(t, err)
	assert.Nil(t, payload)
}

func TestPollErrors(t *testing.T) {
	down := errors.New("connection refused")

	p, err := NewPoller(&fakeTransport{err: down}, zaptest.NewLogger(t), "")
	require.NoError(t, err)
	_, err = p.Poll(context.Background(), "/watch/secret")
	assert.True(t, errors.Is(err, down))

	p, err = NewPoller(&fakeTransport{body: "<html>"}, zaptest.NewLogger(t), "")
	require.NoError(t, err)
	_, err = p.Poll(context.Background(), "/watch/secret")
	assert.Error(t, err)
}

func TestNewPollerGeneratesClientID(t *testing.T) {
	a, err := NewPoller(&fakeTransport{}, zaptest.NewLogger(t), "")
	require.NoError(t, err)
	b, err := NewPoller(&fakeTransport{}, zaptest.NewLogger(t), "")
	require.NoError(t, err)

	assert.NotEmpty(t, a.ClientID())
	assert.NotEqual(t, a.ClientID(), b.ClientID())
}

func TestNewPollerValidatesDeps(t *testing.T) {
	_, err := NewPoller(nil, zaptest.NewLogger(t), "")
	assert.Error(t, err)
}

func TestPollOverHTTP(t *testing.T) {
	var gotPath, gotClientID string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotClientID = r.URL.Query().Get("client_id")
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"account":"secret","event":"signup","time":1700000000,"data":{"plan":["pro"]}}`))
	}))
	defer srv.Close()

	client, err := transport.NewHTTPClient(transport.Config{BaseURL: srv.URL})
	require.NoError(t, err)
	p, err := NewPoller(client, zaptest.NewLogger(t), "abc")
	require.NoError(t, err)

	payload, err := p.Poll(context.Background(), wnotify.WatchPath("secret"))
	require.NoError(t, err)

	assert.Equal(t, "/watch/secret", gotPath)
	assert.Equal(t, "abc", gotClientID)
	assert.Equal(t, "signup", payload.Event())
	assert.Equal(t, map[string][]string{"plan": {"pro"}}, payload.Data())
}

func TestMetricsPoller(t *testing.T) {
	registry := metrics.NewRegistry()

	_, _ = NewMetricsPoller(stubPoller{payload: wnotify.Payload{"event": "a"}}, registry).Poll(context.Background(), "/watch/x")
	_, _ = NewMetricsPoller(stubPoller{}, registry).Poll(context.Background(), "/watch/x")
	_, _ = NewMetricsPoller(stubPoller{err: errors.New("down")}, registry).Poll(context.Background(), "/watch/x")

	expected := `
# HELP wnotify_watcher_poll_total Total number of watch requests
# TYPE wnotify_watcher_poll_total counter
wnotify_watcher_poll_total{status="data"} 1
wnotify_watcher_poll_total{status="empty"} 1
wnotify_watcher_poll_total{status="error"} 1
`
	require.NoError(t, testutil.GatherAndCompare(registry.Gatherer(), strings.NewReader(expected), "wnotify_watcher_poll_total"))
}

func TestTracedPoller(t *testing.T) {
	recorder := tracetest.NewSpanRecorder()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(recorder))
	tracer := tracing.NewTracerFromProvider(tp, "test")

	_, err := NewTracedPoller(stubPoller{payload: wnotify.Payload{"event": "ping", "account": "secret"}}, tracer).
		Poll(context.Background(), "/watch/secret")
	require.NoError(t, err)
	_, err = NewTracedPoller(stubPoller{err: errors.New("down")}, tracer).Poll(context.Background(), "/watch/secret")
	require.Error(t, err)

	spans := recorder.Ended()
	require.Len(t, spans, 2)

	assert.Equal(t, "watcher.poll", spans[0].Name())
	assert.Equal(t, codes.Ok, spans[0].Status().Code)
	for _, attr := range spans[0].Attributes() {
		assert.NotContains(t, attr.Value.Emit(), "secret")
	}

	assert.Equal(t, codes.Error, spans[1].Status().Code)
}

func TestTracedPollerFailureDoesNotLeakKey(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	base := srv.URL
	srv.Close()

	client, err := transport.NewHTTPClient(transport.Config{BaseURL: base})
	require.NoError(t, err)
	inner, err := NewPoller(client, zaptest.NewLogger(t), "abc")
	require.NoError(t, err)

	recorder := tracetest.NewSpanRecorder()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(recorder))
	p := NewTracedPoller(inner, tracing.NewTracerFromProvider(tp, "test"))

	_, err = p.Poll(context.Background(), wnotify.WatchPath("TOPSECRETKEY"))
	require.Error(t, err)
	assert.NotContains(t, err.Error(), "TOPSECRETKEY")

	spans := recorder.Ended()
	require.Len(t, spans, 1)
	span := spans[0]

	assert.Equal(t, codes.Error, span.Status().Code)
	assert.NotContains(t, span.Status().Description, "TOPSECRETKEY")
	for _, attr := range span.Attributes() {
		assert.NotContains(t, attr.Value.Emit(), "TOPSECRETKEY", string(attr.Key))
	}
	require.NotEmpty(t, span.Events())
	for _, ev := range span.Events() {
		for _, attr := range ev.Attributes {
			assert.NotContains(t, attr.Value.Emit(), "TOPSECRETKEY", string(attr.Key))
		}
	}
}
