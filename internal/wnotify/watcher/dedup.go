package watcher

import (
	"encoding/json"
	"sync"
	"time"

	"github.com/cespare/xxhash/v2"

	"wnotify/internal/wnotify"
)

// dedup remembers payload fingerprints for a window so a payload delivered to
// several loops is dispatched once. Payloads carry a server timestamp in
// seconds, so identical events tracked within the same second collapse too.
type dedup struct {
	window time.Duration
	now    func() time.Time

	mu   sync.Mutex
	seen map[uint64]time.Time
}

func newDedup(window time.Duration) *dedup {
	return &dedup{
		window: window,
		now:    time.Now,
		seen:   make(map[uint64]time.Time),
	}
}

// duplicate reports whether p was already seen within the window and records
// it otherwise.
func (d *dedup) duplicate(p wnotify.Payload) bool {
	// map keys marshal sorted, which makes the encoding canonical
	b, err := json.Marshal(p)
	if err != nil {
		return false
	}
	sum := xxhash.Sum64(b)

	d.mu.Lock()
	defer d.mu.Unlock()

	now := d.now()
	for k, at := range d.seen {
		if now.Sub(at) >= d.window {
			delete(d.seen, k)
		}
	}

	if _, ok := d.seen[sum]; ok {
		return true
	}
	d.seen[sum] = now

	return false
}
