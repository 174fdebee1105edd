// Package tracker reports cache and queue signals to a github.com/bool64/stats
// Tracker, for hosts that already collect metrics through that interface.
package tracker

import (
	"context"
	"time"

	"github.com/bool64/stats"

	"github.com/IvanBrykalov/lookupcache/backend"
	"github.com/IvanBrykalov/lookupcache/cache"
	"github.com/IvanBrykalov/lookupcache/queue"
)

// Metric names.
const (
	MetricHit       = "cache_hit"
	MetricMiss      = "cache_miss"
	MetricEvict     = "cache_evict"
	MetricItems     = "cache_items"
	MetricEnqueued  = "queue_enqueued"
	MetricFetch     = "queue_fetch"
	MetricFetchTime = "queue_fetch_seconds"
	MetricQueued    = "queue_keys"
)

// Adapter implements both cache.Metrics and queue.Metrics.
// Every metric carries a "name" label identifying the instance.
type Adapter struct {
	st   stats.Tracker
	name string
}

// New returns an Adapter reporting to st.
func New(st stats.Tracker, name string) *Adapter {
	return &Adapter{st: st, name: name}
}

// Hit implements cache.Metrics.
func (a *Adapter) Hit() { a.st.Add(context.Background(), MetricHit, 1, "name", a.name) }

// Miss implements cache.Metrics.
func (a *Adapter) Miss() { a.st.Add(context.Background(), MetricMiss, 1, "name", a.name) }

// Evict implements cache.Metrics.
func (a *Adapter) Evict(r cache.EvictReason) {
	a.st.Add(context.Background(), MetricEvict, 1, "name", a.name, "reason", r.String())
}

// Size implements cache.Metrics.
func (a *Adapter) Size(n int) {
	a.st.Set(context.Background(), MetricItems, float64(n), "name", a.name)
}

// Enqueued implements queue.Metrics.
func (a *Adapter) Enqueued(coalesced bool) {
	c := "false"
	if coalesced {
		c = "true"
	}
	a.st.Add(context.Background(), MetricEnqueued, 1, "name", a.name, "coalesced", c)
}

// Fetched implements queue.Metrics.
func (a *Adapter) Fetched(d time.Duration, err error) {
	result := "ok"
	switch {
	case err == nil:
	case backend.IsNotFound(err):
		result = "not_found"
	default:
		result = "error"
	}
	a.st.Add(context.Background(), MetricFetch, 1, "name", a.name, "result", result)
	a.st.Add(context.Background(), MetricFetchTime, d.Seconds(), "name", a.name)
}

// Queued implements queue.Metrics.
func (a *Adapter) Queued(n int) {
	a.st.Set(context.Background(), MetricQueued, float64(n), "name", a.name)
}

var (
	_ cache.Metrics = (*Adapter)(nil)
	_ queue.Metrics = (*Adapter)(nil)
)
