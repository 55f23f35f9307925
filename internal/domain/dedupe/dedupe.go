// Package dedupe tracks ingestion request ids so client retries of a
// non-idempotent Add are answered from memory instead of counted twice.
package dedupe

import (
	"context"
	"fmt"

	lru "github.com/hashicorp/golang-lru/v2"
)

// DefaultMaxSize is the number of request ids remembered by default.
const DefaultMaxSize = 50000

// Deduper records request ids and the event id each one produced.
type Deduper interface {
	// SeenAndRecord atomically checks whether id was seen and reserves it if
	// not. For a seen id it returns the event id recorded by Complete, or 0
	// while the first request is still in flight.
	SeenAndRecord(ctx context.Context, id string) (eventID int64, seen bool)

	// Complete stores the event id produced for a reserved request id.
	Complete(ctx context.Context, id string, eventID int64)

	// Unrecord drops a reservation whose request failed, so a retry is
	// processed again.
	Unrecord(ctx context.Context, id string)

	Size() int64
}

// lruDeduper keeps the most recently used ids; older ones are evicted and
// a retry arriving after eviction is processed as new.
type lruDeduper struct {
	maxSize int
	cache   *lru.Cache[string, int64]
}

// NewInMemoryDeduper creates a bounded in-memory deduper.
func NewInMemoryDeduper(opts ...Option) (Deduper, error) {
	d := &lruDeduper{maxSize: DefaultMaxSize}
	for _, opt := range opts {
		opt(d)
	}
	cache, err := lru.New[string, int64](d.maxSize)
	if err != nil {
		return nil, fmt.Errorf("dedupe cache of size %d: %w", d.maxSize, err)
	}
	d.cache = cache
	return d, nil
}

func (d *lruDeduper) SeenAndRecord(_ context.Context, id string) (int64, bool) {
	prev, seen, _ := d.cache.PeekOrAdd(id, 0)
	if seen {
		d.cache.Get(id)
	}
	return prev, seen
}

func (d *lruDeduper) Complete(_ context.Context, id string, eventID int64) {
	d.cache.Add(id, eventID)
}

func (d *lruDeduper) Unrecord(_ context.Context, id string) {
	d.cache.Remove(id)
}

func (d *lruDeduper) Size() int64 {
	return int64(d.cache.Len())
}
