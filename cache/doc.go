// Package cache provides a generic, bounded in-memory cache with exact LRU
// eviction, per-entry TTL, cumulative hit/miss stats, lightweight metrics
// hooks, and a background sweeper for expired entries.
//
// Design
//
//   - Concurrency: one mutex guards the whole cache. The recency order is a
//     single total order, so capacity eviction always removes the one entry
//     that has gone longest without being read or written.
//
//   - Storage: a map[K]*node for lookups and an intrusive MRU↔LRU doubly
//     linked list for ordering. Get/Set/Has/Delete are O(1) expected.
//
//   - TTL: every entry records its insertion time and lifetime. An entry is
//     expired once now-inserted > ttl. Reads promote an entry but never extend
//     its lifetime; Set on an existing key restarts the clock.
//     Expiration is lazy on Get/Has/Stats and also done periodically by the
//     sweeper (Options.CleanupInterval, default 10s).
//
//   - Stats: Stats() reports hits, misses, total requests and the live size
//     after pruning. Clear() drops entries but keeps the counters.
//
//   - Metrics: Options.Metrics receives Hit/Miss/Evict/Size signals.
//     By default NoopMetrics is used; plug the metrics/prom adapter to export
//     Prometheus metrics.
//
// Basic usage
//
//	c := cache.New[string, User](cache.Options[string, User]{
//	    Capacity:   1000,
//	    DefaultTTL: time.Minute,
//	})
//	defer c.Close() // stops the sweeper
//
//	c.Set("user:1", u)
//	if v, ok := c.Get("user:1"); ok {
//	    _ = v
//	}
//
// Guarded write after a slow lookup
//
//	v, err := q.Do(ctx, id)
//	if err == nil && !c.Has(key) {
//	    c.Set(key, v) // do not clobber a value cached concurrently
//	}
package cache
