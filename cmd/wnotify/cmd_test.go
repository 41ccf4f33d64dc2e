package main

import (
	"context"
	"net/http"
	"net/http/httptest"
	"net/url"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"wnotify/internal/transport"
	"wnotify/internal/wnotify/metrics"
	"wnotify/internal/wnotify/tracing"
	"wnotify/internal/wnotify/watcher"
)

func newTestApp(t *testing.T, serverURL string, cfg Config) (*app, *observer.ObservedLogs) {
	t.Helper()

	cfg.Transport.BaseURL = serverURL
	client, err := transport.NewHTTPClient(cfg.Transport)
	require.NoError(t, err)

	core, logs := observer.New(zap.InfoLevel)
	return &app{
		cfg:             cfg,
		logger:          zap.New(core),
		metrics:         metrics.NewRegistry(),
		tracer:          tracing.NewNoopTracer(),
		client:          client,
		tracingShutdown: func(context.Context) error { return nil },
	}, logs
}

func TestRunWatchLogsEvents(t *testing.T) {
	var once sync.Once
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/watch/secret" {
			http.NotFound(w, r)
			return
		}
		sent := false
		once.Do(func() {
			w.Header().Set("Content-Type", "application/json")
			_, _ = w.Write([]byte(`{"account":"acme","event":"signup","time":1700000000,"data":{"plan":["pro"]}}`))
			sent = true
		})
		if !sent {
			<-r.Context().Done()
		}
	}))
	defer srv.Close()

	a, logs := newTestApp(t, srv.URL, Config{
		Watcher: watcher.Config{PrivateKey: "secret", Delay: time.Millisecond},
	})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	done := make(chan error, 1)
	go func() { done <- runWatch(ctx, a, nil) }()

	require.Eventually(t, func() bool {
		return logs.FilterMessage("event received").Len() == 1
	}, 2*time.Second, 5*time.Millisecond)

	entry := logs.FilterMessage("event received").All()[0]
	assert.Equal(t, "signup", entry.ContextMap()["event"])
	assert.NotContains(t, entry.ContextMap(), "account")

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("watch did not stop")
	}
}

func TestRunWatchWithoutPrivateKey(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Errorf("unexpected request %s", r.URL.Path)
	}))
	defer srv.Close()

	a, _ := newTestApp(t, srv.URL, Config{})

	err := runWatch(context.Background(), a, nil)
	assert.Error(t, err)
}

func TestRunWatchRejectsBadBeep(t *testing.T) {
	a, _ := newTestApp(t, "http://localhost", Config{Watcher: watcher.Config{PrivateKey: "secret"}})

	err := runWatch(context.Background(), a, []string{":cash"})
	assert.Error(t, err)
}

func TestRunTrack(t *testing.T) {
	var (
		mu    sync.Mutex
		path  string
		query url.Values
	)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		mu.Lock()
		defer mu.Unlock()
		path = r.URL.Path
		query = r.URL.Query()
		_, _ = w.Write([]byte("ok"))
	}))
	defer srv.Close()

	a, _ := newTestApp(t, srv.URL, Config{})
	a.cfg.Tracker.PublicKey = "pub"

	require.NoError(t, runTrack(context.Background(), a, "signup", map[string]string{"plan": "pro"}))

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, "/track/pub/signup", path)
	assert.Equal(t, "pro", query.Get("plan"))
}

func TestRunTrackWithoutPublicKey(t *testing.T) {
	a, _ := newTestApp(t, "http://localhost", Config{})

	err := runTrack(context.Background(), a, "signup", nil)
	assert.Error(t, err)
}
