package cache

// node is an intrusive doubly linked list element owned by the cache.
// It stores the key/value alongside list links and expiry metadata.
type node[K comparable, V any] struct {
	key K
	val V

	// Intrusive list links: head is MRU, tail is LRU.
	prev *node[K, V]
	next *node[K, V]

	// Insertion (or last replacement) time in UnixNano.
	born int64

	// Lifetime in nanoseconds measured from born. Zero means "no TTL".
	ttl int64
}

// expired reports whether the entry outlived its TTL at now.
// An entry aged exactly ttl is still fresh.
func (n *node[K, V]) expired(now int64) bool {
	return n.ttl > 0 && now-n.born > n.ttl
}
