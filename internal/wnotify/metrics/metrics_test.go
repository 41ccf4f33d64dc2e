package metrics

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

func TestRegistryRecordsWatcherMetrics(t *testing.T) {
	r := NewRegistry()

	r.RecordPoll(true, time.Second, nil)
	r.RecordPoll(false, time.Second, nil)
	r.RecordPoll(false, time.Second, errors.New("down"))
	r.RecordPoll(true, time.Second, errors.New("down"))
	r.AddActiveLoops(3)
	r.AddActiveLoops(-1)
	r.RecordDuplicate()

	assert.Equal(t, 1.0, testutil.ToFloat64(r.pollTotal.WithLabelValues("data")))
	assert.Equal(t, 1.0, testutil.ToFloat64(r.pollTotal.WithLabelValues("empty")))
	assert.Equal(t, 2.0, testutil.ToFloat64(r.pollTotal.WithLabelValues("error")))
	assert.Equal(t, 2.0, testutil.ToFloat64(r.activeLoops))
	assert.Equal(t, 1.0, testutil.ToFloat64(r.duplicatesDropped))
}

func TestRegistryRecordsDispatchAndTrack(t *testing.T) {
	r := NewRegistry()

	r.RecordDispatch("ping", true)
	r.RecordDispatch("ping", true)
	r.RecordDispatch("nobody", false)
	r.RecordHandlerError("ping")
	r.RecordTrack("signup", time.Millisecond, nil)
	r.RecordTrack("signup", time.Millisecond, errors.New("down"))

	assert.Equal(t, 2.0, testutil.ToFloat64(r.dispatchTotal.WithLabelValues("ping", "routed")))
	r.RecordDispatch("someone-else", false)
	assert.Equal(t, 2.0, testutil.ToFloat64(r.dispatchTotal.WithLabelValues("", "dropped")))
	assert.Equal(t, 2, testutil.CollectAndCount(r.dispatchTotal))
	assert.Equal(t, 1.0, testutil.ToFloat64(r.handlerErrorsTotal.WithLabelValues("ping")))
	assert.Equal(t, 1.0, testutil.ToFloat64(r.trackTotal.WithLabelValues("signup", "success")))
	assert.Equal(t, 1.0, testutil.ToFloat64(r.trackTotal.WithLabelValues("signup", "error")))
}

func TestServerEndpoints(t *testing.T) {
	r := NewRegistry()
	r.SetSystemInfo("test", "now")
	r.RecordDispatch("ping", true)

	ready := false
	s := NewServer(ServerConfig{Port: 0, Timeout: time.Second}, r, zaptest.NewLogger(t), func() bool { return ready })

	get := func(path string) *httptest.ResponseRecorder {
		rec := httptest.NewRecorder()
		s.server.Handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))
		return rec
	}

	health := get("/health")
	assert.Equal(t, http.StatusOK, health.Code)
	assert.JSONEq(t, `{"status":"healthy","service":"wnotify-metrics"}`, health.Body.String())

	assert.Equal(t, http.StatusServiceUnavailable, get("/ready").Code)
	ready = true
	assert.Equal(t, http.StatusOK, get("/ready").Code)

	m := get("/metrics")
	require.Equal(t, http.StatusOK, m.Code)
	assert.True(t, strings.Contains(m.Body.String(), `wnotify_dispatch_total{event="ping",status="routed"} 1`))
	assert.True(t, strings.Contains(m.Body.String(), `wnotify_system_info{build_time="now",version="test"} 1`))
}
