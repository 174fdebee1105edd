package cache

import "time"

// sweepLoop periodically removes expired entries, including keys that are
// never read again and would otherwise stay resident until evicted by
// capacity. It exits when Close closes c.stop.
func (c *cache[K, V]) sweepLoop(every time.Duration) {
	defer close(c.done)

	ticker := time.NewTicker(every)
	defer ticker.Stop()

	for {
		select {
		case <-c.stop:
			return
		case <-ticker.C:
			c.sweep()
		}
	}
}

// sweep runs one expiry pass and returns the number of removed entries.
func (c *cache[K, V]) sweep() int {
	c.mu.Lock()
	removed := c.deleteExpiredLocked(c.now())
	size := c.len
	if removed > 0 {
		c.opt.Metrics.Size(size)
	}
	c.mu.Unlock()

	if removed > 0 {
		c.logDebug("removed expired cache entries", "removed", removed, "size", size)
	}
	return removed
}
