package filter

import (
	"sync"
	"time"
)

// Dedup suppresses exact repeats of a (title, message) pair within a time
// window. Entries live in a fixed-capacity ring buffer, oldest evicted first.
// Safe for concurrent use by multiple intake streams.
type Dedup struct {
	window   time.Duration
	capacity int
	nowFn    func() time.Time

	mu      sync.Mutex
	entries []dedupEntry
	head    int // next write position
	size    int
}

type dedupEntry struct {
	key      string
	postedAt time.Time
}

const defaultDedupCapacity = 200

// NewDedup creates a dedup filter with the given window and ring capacity.
// Zero capacity selects the default of 200 entries.
func NewDedup(window time.Duration, capacity int) *Dedup {
	if capacity <= 0 {
		capacity = defaultDedupCapacity
	}
	return &Dedup{
		window:   window,
		capacity: capacity,
		nowFn:    time.Now,
		entries:  make([]dedupEntry, capacity),
	}
}

// IsRecentlyPosted reports whether the same (title, message) pair was marked
// posted within the dedup window.
func (d *Dedup) IsRecentlyPosted(title, message string) bool {
	key := title + "|" + message
	now := d.nowFn()

	d.mu.Lock()
	defer d.mu.Unlock()

	for i := 0; i < d.size; i++ {
		e := d.entries[(d.head-1-i+d.capacity*2)%d.capacity]
		if e.key == key && now.Sub(e.postedAt) <= d.window {
			return true
		}
	}
	return false
}

// MarkPosted records a successful post of the pair, refreshing an existing
// entry or inserting a new one. Called only after a successful downstream post.
func (d *Dedup) MarkPosted(title, message string) {
	key := title + "|" + message
	now := d.nowFn()

	d.mu.Lock()
	defer d.mu.Unlock()

	// refresh in place when the key is already tracked
	for i := 0; i < d.size; i++ {
		idx := (d.head - 1 - i + d.capacity*2) % d.capacity
		if d.entries[idx].key == key {
			d.entries[idx].postedAt = now
			return
		}
	}

	d.entries[d.head] = dedupEntry{key: key, postedAt: now}
	d.head = (d.head + 1) % d.capacity
	if d.size < d.capacity {
		d.size++
	}
}

// Len returns the number of tracked entries, never exceeding capacity
func (d *Dedup) Len() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.size
}
