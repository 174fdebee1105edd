// Package ratelimit implements a per-identifier sliding-window request
// limiter with a long window limit and a short burst limit.
package ratelimit

import (
	"sync"
	"time"
)

// Options configures a Limiter. Zero fields take the defaults below.
type Options struct {
	// Limit is the number of requests allowed per Window (default 10).
	Limit int
	// Window is the long sliding window (default 1m).
	Window time.Duration
	// Burst is the number of requests allowed per BurstWindow (default 5).
	Burst int
	// BurstWindow is the short sliding window (default 10s).
	BurstWindow time.Duration
	// Now overrides the time source (tests). Nil => time.Now.
	Now func() time.Time
}

// Decision is the outcome of Allow.
type Decision struct {
	Allowed bool
	// Limit is the configured per-window limit.
	Limit int
	// Remaining is how many more requests fit in the long window.
	Remaining int
	// ResetAt is when the window that limits the caller frees a slot.
	ResetAt time.Time
}

// RetryAfter returns the time left until ResetAt, never negative.
func (d Decision) RetryAfter(now time.Time) time.Duration {
	if w := d.ResetAt.Sub(now); w > 0 {
		return w
	}
	return 0
}

// Limiter keeps the arrival times of accepted requests per identifier.
// It is safe for concurrent use.
type Limiter struct {
	opt Options

	mu        sync.Mutex
	hits      map[string][]time.Time // accepted arrivals, oldest first
	lastPrune time.Time
}

// New returns a Limiter with defaults applied.
func New(opt Options) *Limiter {
	if opt.Limit <= 0 {
		opt.Limit = 10
	}
	if opt.Window <= 0 {
		opt.Window = time.Minute
	}
	if opt.Burst <= 0 {
		opt.Burst = 5
	}
	if opt.BurstWindow <= 0 {
		opt.BurstWindow = 10 * time.Second
	}
	if opt.Now == nil {
		opt.Now = time.Now
	}
	return &Limiter{opt: opt, hits: make(map[string][]time.Time)}
}

// Limit returns the configured per-window limit.
func (l *Limiter) Limit() int { return l.opt.Limit }

// Allow records a request from id if both windows have room.
//
// The reset time is always a real window boundary: the arrival time of the
// oldest request still counted in the limiting window plus that window.
func (l *Limiter) Allow(id string) Decision {
	now := l.opt.Now()

	l.mu.Lock()
	defer l.mu.Unlock()

	l.pruneIdleLocked(now)

	recent := trim(l.hits[id], now, l.opt.Window)
	d := Decision{Limit: l.opt.Limit}

	if len(recent) >= l.opt.Limit {
		l.store(id, recent)
		d.ResetAt = recent[0].Add(l.opt.Window)
		return d
	}

	burst := trim(recent, now, l.opt.BurstWindow)
	if len(burst) >= l.opt.Burst {
		l.store(id, recent)
		d.Remaining = l.opt.Limit - len(recent)
		d.ResetAt = burst[0].Add(l.opt.BurstWindow)
		return d
	}

	recent = append(recent, now)
	l.store(id, recent)

	d.Allowed = true
	d.Remaining = l.opt.Limit - len(recent)
	d.ResetAt = recent[0].Add(l.opt.Window)
	return d
}

// Reset forgets every request recorded for id.
func (l *Limiter) Reset(id string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	delete(l.hits, id)
}

// ResetAll forgets every identifier.
func (l *Limiter) ResetAll() {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.hits = make(map[string][]time.Time)
}

// Len returns the number of tracked identifiers.
func (l *Limiter) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.hits)
}

func (l *Limiter) store(id string, ts []time.Time) {
	if len(ts) == 0 {
		delete(l.hits, id)
		return
	}
	l.hits[id] = ts
}

// pruneIdleLocked drops identifiers with no arrival inside the long window.
// It runs at most once per window.
func (l *Limiter) pruneIdleLocked(now time.Time) {
	if now.Sub(l.lastPrune) < l.opt.Window {
		return
	}
	l.lastPrune = now
	for id, ts := range l.hits {
		if now.Sub(ts[len(ts)-1]) >= l.opt.Window {
			delete(l.hits, id)
		}
	}
}

// trim returns the suffix of ts (sorted oldest first) that lies within
// window of now.
func trim(ts []time.Time, now time.Time, window time.Duration) []time.Time {
	i := 0
	for i < len(ts) && now.Sub(ts[i]) >= window {
		i++
	}
	return ts[i:]
}
