package cache

import (
	"context"
	"sync"
	"time"
)

// cache is an in-memory KV store with LRU eviction and per-entry TTL.
// A single mutex guards the map, the recency list and the counters, so the
// recency order is global and eviction always picks the exact LRU entry.
type cache[K comparable, V any] struct {
	// ---- guarded by mu ----
	mu   sync.Mutex
	m    map[K]*node[K, V]
	head *node[K, V] // MRU
	tail *node[K, V] // LRU
	len  int         // number of resident entries
	cap  int

	hits    uint64
	misses  uint64
	evicts  uint64
	expires uint64

	opt Options[K, V]
	ttl int64 // DefaultTTL in nanoseconds (0 = no TTL)

	// sweeper lifecycle
	stop      chan struct{}
	done      chan struct{}
	closeOnce sync.Once
}

// New constructs a cache with the provided Options and starts the
// background sweeper unless CleanupInterval is negative.
// Defaults:
//   - nil Metrics          -> NoopMetrics
//   - CleanupInterval == 0 -> DefaultCleanupInterval
func New[K comparable, V any](opt Options[K, V]) Cache[K, V] {
	if opt.Capacity <= 0 {
		panic("Capacity must be > 0")
	}
	if opt.Metrics == nil {
		opt.Metrics = NoopMetrics{}
	}
	if opt.CleanupInterval == 0 {
		opt.CleanupInterval = DefaultCleanupInterval
	}

	c := &cache[K, V]{
		m:   make(map[K]*node[K, V], opt.Capacity),
		cap: opt.Capacity,
		opt: opt,
	}
	if opt.DefaultTTL > 0 {
		c.ttl = int64(opt.DefaultTTL)
	}

	if opt.CleanupInterval > 0 {
		c.stop = make(chan struct{})
		c.done = make(chan struct{})
		go c.sweepLoop(opt.CleanupInterval)
	}

	return c
}

// ---- Cache[K,V] implementation ----

// Get returns the value for k and a presence flag.
// Expired entries are evicted and counted as misses.
func (c *cache[K, V]) Get(k K) (V, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	n, ok := c.m[k]
	if !ok {
		c.misses++
		c.opt.Metrics.Miss()
		var zero V
		return zero, false
	}
	if n.expired(c.now()) {
		c.evictNode(n, EvictTTL)
		c.misses++
		c.opt.Metrics.Miss()
		c.opt.Metrics.Size(c.len)
		var zero V
		return zero, false
	}

	c.moveToFront(n)
	c.hits++
	c.opt.Metrics.Hit()
	return n.val, true
}

// Set inserts or replaces k→v using DefaultTTL.
func (c *cache[K, V]) Set(k K, v V) {
	c.set(k, v, c.ttl)
}

// SetWithTTL inserts or replaces k→v with a per-entry TTL.
// A non-positive ttl falls back to DefaultTTL.
func (c *cache[K, V]) SetWithTTL(k K, v V, ttl time.Duration) {
	if ttl <= 0 {
		c.set(k, v, c.ttl)
		return
	}
	c.set(k, v, int64(ttl))
}

// Has reports whether a fresh entry exists for k without promoting it.
func (c *cache[K, V]) Has(k K) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	n, ok := c.m[k]
	if !ok {
		return false
	}
	if n.expired(c.now()) {
		c.evictNode(n, EvictTTL)
		c.opt.Metrics.Size(c.len)
		return false
	}
	return true
}

// Delete removes k if present and returns true on success.
// Explicit deletes are not reported as evictions.
func (c *cache[K, V]) Delete(k K) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	n, ok := c.m[k]
	if !ok {
		return false
	}
	c.removeNode(n)
	delete(c.m, k)
	c.opt.Metrics.Size(c.len)
	return true
}

// Clear drops all entries and keeps the cumulative counters.
func (c *cache[K, V]) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()

	// Unlink nodes so that dropped entries do not keep each other reachable.
	for n := c.head; n != nil; {
		next := n.next
		n.prev, n.next = nil, nil
		n = next
	}
	c.m = make(map[K]*node[K, V], c.cap)
	c.head, c.tail = nil, nil
	c.len = 0
	c.opt.Metrics.Size(0)
}

// Len returns the number of resident entries.
func (c *cache[K, V]) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.len
}

// Stats prunes expired entries and returns a counters snapshot.
func (c *cache[K, V]) Stats() Stats {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.deleteExpiredLocked(c.now()) > 0 {
		c.opt.Metrics.Size(c.len)
	}
	return Stats{
		Hits:          c.hits,
		Misses:        c.misses,
		Size:          c.len,
		TotalRequests: c.hits + c.misses,
		Evictions:     c.evicts,
		Expirations:   c.expires,
	}
}

// Close stops the background sweeper and waits for it to exit.
func (c *cache[K, V]) Close() error {
	c.closeOnce.Do(func() {
		if c.stop == nil {
			return
		}
		close(c.stop)
		<-c.done
		c.logDebug("cache sweeper stopped")
	})
	return nil
}

// -------------------- internals (mu held) --------------------

func (c *cache[K, V]) set(k K, v V, ttl int64) {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := c.now()
	if n, ok := c.m[k]; ok {
		// Replacement restarts both the recency and the expiry clock.
		n.val = v
		n.born = now
		n.ttl = ttl
		c.moveToFront(n)
		return
	}

	if c.len >= c.cap {
		if tail := c.tail; tail != nil {
			c.evictNode(tail, EvictCapacity)
		}
	}

	n := &node[K, V]{key: k, val: v, born: now, ttl: ttl}
	c.m[k] = n
	c.insertFront(n)
	c.opt.Metrics.Size(c.len)
}

func (c *cache[K, V]) now() int64 {
	if c.opt.Clock != nil {
		return c.opt.Clock.NowUnixNano()
	}
	return time.Now().UnixNano()
}

// insertFront inserts n at MRU in O(1).
func (c *cache[K, V]) insertFront(n *node[K, V]) {
	n.prev = nil
	n.next = c.head
	if c.head != nil {
		c.head.prev = n
	}
	c.head = n
	if c.tail == nil {
		c.tail = n
	}
	c.len++
}

// moveToFront promotes n to MRU in O(1).
func (c *cache[K, V]) moveToFront(n *node[K, V]) {
	if n == c.head {
		return
	}
	// detach
	if n.prev != nil {
		n.prev.next = n.next
	}
	if n.next != nil {
		n.next.prev = n.prev
	}
	if c.tail == n {
		c.tail = n.prev
	}
	// insert at head
	n.prev = nil
	n.next = c.head
	if c.head != nil {
		c.head.prev = n
	}
	c.head = n
	if c.tail == nil {
		c.tail = n
	}
}

// removeNode unlinks n from the list and updates the length in O(1).
func (c *cache[K, V]) removeNode(n *node[K, V]) {
	if n.prev != nil {
		n.prev.next = n.next
	}
	if n.next != nil {
		n.next.prev = n.prev
	}
	if c.head == n {
		c.head = n.next
	}
	if c.tail == n {
		c.tail = n.prev
	}
	n.prev, n.next = nil, nil
	c.len--
}

// evictNode removes the node, updates counters/metrics, and calls OnEvict.
func (c *cache[K, V]) evictNode(n *node[K, V], reason EvictReason) {
	c.removeNode(n)
	delete(c.m, n.key)
	if reason == EvictTTL {
		c.expires++
	} else {
		c.evicts++
	}
	c.opt.Metrics.Evict(reason)
	if cb := c.opt.OnEvict; cb != nil {
		cb(n.key, n.val, reason)
	}
}

// deleteExpiredLocked walks the list from LRU to MRU and evicts every
// expired entry. Returns the number of removed entries.
func (c *cache[K, V]) deleteExpiredLocked(now int64) int {
	removed := 0
	for n := c.tail; n != nil; {
		prev := n.prev
		if n.expired(now) {
			c.evictNode(n, EvictTTL)
			removed++
		}
		n = prev
	}
	return removed
}

func (c *cache[K, V]) logDebug(msg string, keysAndValues ...interface{}) {
	if c.opt.Logger != nil {
		c.opt.Logger.Debug(context.Background(), msg, keysAndValues...)
	}
}
