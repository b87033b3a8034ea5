// Package dedupe tracks ingestion batch nonces so retried batches never
// double-append events that were already committed to a session log.
package dedupe

import (
	"context"
	"sync"
	"sync/atomic"
)

const defaultMaxSize = 50000

// Deduper records seen batch keys to keep ingestion idempotent at the
// batch level.
type Deduper interface {
	// SeenAndRecord atomically checks if key was seen and records it if
	// not. Returns true if key was already seen.
	SeenAndRecord(ctx context.Context, key string) bool

	// Unrecord forgets a key, allowing a retry. Used when a batch was
	// marked as seen but failed before anything was appended.
	Unrecord(ctx context.Context, key string)

	Size() int64
}

// BatchKey builds the dedupe key for a client-supplied batch nonce.
func BatchKey(sessionID, nonce string) string {
	return sessionID + ":" + nonce
}

// ringDeduper implements Deduper with a map plus a FIFO eviction ring.
// With maxSize <= 0 the ring is disabled and the map grows unbounded.
type ringDeduper struct {
	mu      sync.Mutex
	seen    map[string]struct{}
	ring    []string
	next    int
	maxSize int
	size    atomic.Int64
}

// NewRingDeduper creates a deduper with configuration options.
func NewRingDeduper(opts ...Option) Deduper {
	d := &ringDeduper{maxSize: defaultMaxSize}
	for _, opt := range opts {
		opt(d)
	}
	d.seen = make(map[string]struct{})
	if d.maxSize > 0 {
		d.ring = make([]string, d.maxSize)
	}
	return d
}

func (d *ringDeduper) SeenAndRecord(ctx context.Context, key string) bool {
	d.mu.Lock()
	defer d.mu.Unlock()

	if _, ok := d.seen[key]; ok {
		return true
	}

	if d.maxSize > 0 {
		// Evict the oldest key occupying this ring slot.
		if old := d.ring[d.next]; old != "" {
			delete(d.seen, old)
			d.size.Add(-1)
		}
		d.ring[d.next] = key
		d.next = (d.next + 1) % d.maxSize
	}

	d.seen[key] = struct{}{}
	d.size.Add(1)
	return false
}

func (d *ringDeduper) Unrecord(ctx context.Context, key string) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if _, ok := d.seen[key]; !ok {
		return
	}
	delete(d.seen, key)
	d.size.Add(-1)
	for i, k := range d.ring {
		if k == key {
			d.ring[i] = ""
			break
		}
	}
}

func (d *ringDeduper) Size() int64 {
	return d.size.Load()
}
