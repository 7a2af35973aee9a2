// Package dedupe defines the interface for idempotency tracking.
package dedupe

import "time"

// Option applies a configuration option to the cache-backed deduper.
type Option func(*cacheDeduper)

// WithCacheSizeMB sets the memory budget of the seen-id cache. freecache
// enforces a 512 KiB floor; older ids are evicted once the budget is used.
func WithCacheSizeMB(mb int) Option {
	return func(d *cacheDeduper) {
		if mb > 0 {
			d.cacheBytes = mb * megabyte
		}
	}
}

// WithTTL sets how long a submission id is remembered. Zero keeps ids until
// they are evicted for space.
func WithTTL(ttl time.Duration) Option {
	return func(d *cacheDeduper) {
		if ttl >= 0 {
			d.ttl = ttl
		}
	}
}
