package cache

import (
	"time"

	"github.com/bool64/ctxd"
)

// DefaultCleanupInterval is the sweep period used when Options.CleanupInterval is zero.
const DefaultCleanupInterval = 10 * time.Second

// EvictReason explains why an entry was removed.
type EvictReason int

const (
	// EvictCapacity: removed as the least recently used entry to make room.
	EvictCapacity EvictReason = iota
	// EvictTTL: expired (lazily on access or by the sweeper).
	EvictTTL
)

// String returns a stable label for the reason.
func (r EvictReason) String() string {
	switch r {
	case EvictTTL:
		return "ttl"
	default:
		return "capacity"
	}
}

// Metrics exposes cache-level observability hooks.
// A NoopMetrics implementation is provided and used by default.
type Metrics interface {
	Hit()
	Miss()
	Evict(reason EvictReason)
	Size(entries int)
}

// Clock provides time in UnixNano; useful for deterministic tests.
type Clock interface{ NowUnixNano() int64 }

// Options configures the cache behavior. Zero values are safe except
// Capacity; defaults are applied in New():
//   - nil Metrics          => NoopMetrics
//   - CleanupInterval == 0 => DefaultCleanupInterval
type Options[K comparable, V any] struct {
	// Capacity is the entry count limit. Must be > 0.
	Capacity int

	// DefaultTTL applies to Set and to SetWithTTL with a non-positive ttl
	// (0 = entries never expire).
	DefaultTTL time.Duration

	// CleanupInterval is the period of the background sweep that removes
	// expired entries nobody reads anymore. Negative disables the sweeper.
	CleanupInterval time.Duration

	// OnEvict is called under the cache lock for capacity and TTL removals
	// (not for Delete/Clear); keep callbacks lightweight.
	OnEvict func(k K, v V, reason EvictReason)
	Metrics Metrics

	// Logger receives debug records about sweeps and lifecycle, can be nil.
	Logger ctxd.Logger

	// Clock allows overriding time source (tests). Nil => time.Now().
	Clock Clock
}
