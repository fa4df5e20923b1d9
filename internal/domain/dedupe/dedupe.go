// Package dedupe coalesces duplicate refresh jobs. A job is identified by
// its (tag, data version, horizon) key; while a key is pending, enqueueing
// the same key again is a no-op, so a burst of ingests for one tag produces
// a single cache refresh.
package dedupe

import (
	"context"
	"sync"
	"sync/atomic"
)

// Coalescer tracks pending refresh-job keys for at-most-once scheduling.
type Coalescer interface {
	// SeenAndRecord atomically checks whether key is already pending and
	// records it if not. Returns true when the key was already pending.
	SeenAndRecord(ctx context.Context, key string) bool

	// Unrecord releases a key so a later job for the same tag and version
	// can be scheduled again. Called by the worker after the refresh
	// completes, and by the producer when the queue rejects the job.
	Unrecord(ctx context.Context, key string)

	Size() int64
}

// inMemoryCoalescer keeps pending keys in a map with optional FIFO
// eviction. Eviction only bounds memory; evicting a pending key at worst
// allows a redundant recompute, never a missed one.
type inMemoryCoalescer struct {
	mu      sync.Mutex
	pending map[string]struct{}
	order   []string
	maxSize int
	size    atomic.Int64
}

// NewInMemoryCoalescer creates an in-memory coalescer. The default bound of
// 50000 keys is far beyond any realistic number of simultaneously pending
// refreshes; set WithMaxSize(0) for an unbounded tracker.
func NewInMemoryCoalescer(opts ...Option) Coalescer {
	c := &inMemoryCoalescer{
		maxSize: 50000,
		pending: make(map[string]struct{}),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *inMemoryCoalescer) SeenAndRecord(_ context.Context, key string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	if _, ok := c.pending[key]; ok {
		return true
	}

	if c.maxSize > 0 && len(c.pending) >= c.maxSize {
		c.evictOldest()
	}

	c.pending[key] = struct{}{}
	if c.maxSize > 0 {
		c.order = append(c.order, key)
	}
	c.size.Add(1)
	return false
}

func (c *inMemoryCoalescer) Unrecord(_ context.Context, key string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if _, ok := c.pending[key]; !ok {
		return
	}
	delete(c.pending, key)
	c.size.Add(-1)
	// The stale order entry is skipped lazily during eviction.
}

// evictOldest drops the oldest still-pending key. Must hold c.mu.
func (c *inMemoryCoalescer) evictOldest() {
	for len(c.order) > 0 {
		key := c.order[0]
		c.order = c.order[1:]
		if _, ok := c.pending[key]; ok {
			delete(c.pending, key)
			c.size.Add(-1)
			return
		}
	}
}

func (c *inMemoryCoalescer) Size() int64 {
	return c.size.Load()
}
