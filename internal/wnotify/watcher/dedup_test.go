package watcher

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"wnotify/internal/wnotify"
)

func TestDedup(t *testing.T) {
	now := time.Unix(0, 0)
	d := newDedup(time.Second)
	d.now = func() time.Time { return now }

	a := wnotify.Payload{"event": "ping", "time": 1.0, "data": map[string]any{"k": []any{"v"}}}
	sameAsA := wnotify.Payload{"data": map[string]any{"k": []any{"v"}}, "time": 1.0, "event": "ping"}
	b := wnotify.Payload{"event": "pong"}

	assert.False(t, d.duplicate(a))
	assert.True(t, d.duplicate(sameAsA))
	assert.False(t, d.duplicate(b))

	now = now.Add(time.Second)
	assert.False(t, d.duplicate(a), "window elapsed")
	assert.Len(t, d.seen, 1)
}
