package cache

import "time"

// Cache is a bounded, in-memory key/value cache with LRU eviction and
// per-entry TTL. All methods are safe for concurrent use by multiple goroutines.
//
// Operations are O(1) expected: a map lookup plus constant-time list
// adjustments under the cache lock. Stats and the background sweep are O(n).
type Cache[K comparable, V any] interface {
	// Get returns the value for k and a boolean flag indicating presence.
	// Every call counts as a request; expired entries are evicted and
	// reported as misses. On hit, the entry becomes most recently used.
	// Reads never extend an entry's lifetime.
	Get(k K) (V, bool)

	// Set inserts or replaces k→v using the cache's DefaultTTL.
	// The expiry clock restarts and the entry becomes most recently used.
	// Inserting a new key into a full cache evicts exactly one entry,
	// the least recently used one.
	Set(k K, v V)

	// SetWithTTL is Set with a per-entry TTL (relative duration).
	// A non-positive ttl falls back to DefaultTTL.
	SetWithTTL(k K, v V, ttl time.Duration)

	// Has reports whether a fresh entry exists for k.
	// It does not change recency order and records no stats.
	Has(k K) bool

	// Delete removes k if present and returns true on success.
	Delete(k K) bool

	// Clear drops every entry. Cumulative hit/miss counters are preserved.
	Clear()

	// Len returns the number of resident entries, expired ones included
	// until they are pruned.
	Len() int

	// Stats returns a snapshot of the counters. Expired entries are pruned
	// first, so Size is the live entry count at call time.
	Stats() Stats

	// Close stops the background sweeper. It is idempotent; the cache stays
	// usable afterwards and still expires entries lazily.
	Close() error
}

// Stats is a point-in-time snapshot of cache counters.
type Stats struct {
	Hits          uint64
	Misses        uint64
	Size          int
	TotalRequests uint64

	// Evictions counts capacity evictions, Expirations counts entries
	// removed because their TTL elapsed (lazily or by the sweeper).
	Evictions   uint64
	Expirations uint64
}

// HitRate returns Hits/TotalRequests, or 0 when nothing was requested yet.
func (s Stats) HitRate() float64 {
	if s.TotalRequests == 0 {
		return 0
	}
	return float64(s.Hits) / float64(s.TotalRequests)
}
