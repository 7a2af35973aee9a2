// Package dedupe defines the interface for idempotency tracking.
package dedupe

import (
	"context"
	"time"

	"github.com/coocood/freecache"

	"github.com/okian/liftboard/pkg/metrics"
)

const (
	megabyte          = 1024 * 1024
	defaultCacheBytes = 32 * megabyte
	defaultTTL        = 7 * 24 * time.Hour
)

// marker is the stored value; only key presence matters.
var marker = []byte{1} //nolint:gochecknoglobals // immutable cache value

// Deduper records seen submission IDs to ensure at-most-once processing.
type Deduper interface {
	// SeenAndRecord atomically checks if id was seen and records it if not.
	// Returns true if id was already seen, false if it was newly recorded.
	SeenAndRecord(ctx context.Context, id string) bool

	// Unrecord removes an ID from the seen list, allowing it to be retried.
	// Used when a submission was marked as seen but could not be enqueued.
	Unrecord(ctx context.Context, id string)

	Size() int64
}

// cacheDeduper implements Deduper on a freecache.Cache. Entries expire after
// ttl and the oldest are evicted when the memory budget is exhausted.
type cacheDeduper struct {
	cache      *freecache.Cache
	cacheBytes int
	ttl        time.Duration
}

// NewCacheDeduper creates a deduper with configuration options.
func NewCacheDeduper(opts ...Option) Deduper {
	d := &cacheDeduper{
		cacheBytes: defaultCacheBytes,
		ttl:        defaultTTL,
	}
	for _, opt := range opts {
		opt(d)
	}
	d.cache = freecache.NewCache(d.cacheBytes)
	return d
}

// SeenAndRecord atomically checks if id was seen and records it if not.
func (d *cacheDeduper) SeenAndRecord(ctx context.Context, id string) bool {
	prev, err := d.cache.GetOrSet([]byte(id), marker, int(d.ttl/time.Second))
	if err != nil {
		// id too large to store; let it through rather than drop the lift
		metrics.RecordErrorByComponent("dedupe", "store_failed")
		return false
	}
	return prev != nil
}

// Unrecord removes an ID from the seen list.
func (d *cacheDeduper) Unrecord(ctx context.Context, id string) {
	d.cache.Del([]byte(id))
}

// Size returns the current number of remembered ids.
func (d *cacheDeduper) Size() int64 {
	return d.cache.EntryCount()
}
