// Package monitoring keeps a bounded log of recent HTTP requests and derives
// response time and error rate figures from it.
package monitoring

import (
	"sync"
	"time"
)

// DefaultMaxRequests is the log size used when New gets a non-positive size.
const DefaultMaxRequests = 1000

// Request describes one served request.
type Request struct {
	Start    time.Time
	Duration time.Duration
	Endpoint string
	Status   int
}

// Monitor is a fixed-size ring of the most recent requests.
// It is safe for concurrent use.
type Monitor struct {
	mu   sync.Mutex
	buf  []Request
	next int  // index of the slot written next
	full bool // buf wrapped at least once
}

// New returns a Monitor remembering the last size requests.
func New(size int) *Monitor {
	if size <= 0 {
		size = DefaultMaxRequests
	}
	return &Monitor{buf: make([]Request, size)}
}

// Record appends r, dropping the oldest request when the log is full.
func (m *Monitor) Record(r Request) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.buf[m.next] = r
	m.next++
	if m.next == len(m.buf) {
		m.next = 0
		m.full = true
	}
}

// AverageResponseTime returns the mean duration of the logged requests for
// endpoint, or of all requests when endpoint is empty. Zero when none match.
func (m *Monitor) AverageResponseTime(endpoint string) time.Duration {
	var (
		sum time.Duration
		n   int
	)
	m.each(endpoint, func(r Request) {
		sum += r.Duration
		n++
	})
	if n == 0 {
		return 0
	}
	return sum / time.Duration(n)
}

// ErrorRate returns the share of logged requests with status >= 400.
func (m *Monitor) ErrorRate(endpoint string) float64 {
	var errs, n int
	m.each(endpoint, func(r Request) {
		if r.Status >= 400 {
			errs++
		}
		n++
	})
	if n == 0 {
		return 0
	}
	return float64(errs) / float64(n)
}

// Total returns the number of logged requests for endpoint (all when empty).
func (m *Monitor) Total(endpoint string) int {
	n := 0
	m.each(endpoint, func(Request) { n++ })
	return n
}

// Snapshot returns the logged requests, oldest first.
func (m *Monitor) Snapshot() []Request {
	var out []Request
	m.each("", func(r Request) { out = append(out, r) })
	return out
}

// Clear drops the log.
func (m *Monitor) Clear() {
	m.mu.Lock()
	defer m.mu.Unlock()

	clear(m.buf)
	m.next = 0
	m.full = false
}

// each calls fn for logged requests matching endpoint, oldest first.
func (m *Monitor) each(endpoint string, fn func(Request)) {
	m.mu.Lock()
	defer m.mu.Unlock()

	visit := func(rs []Request) {
		for _, r := range rs {
			if endpoint == "" || r.Endpoint == endpoint {
				fn(r)
			}
		}
	}
	if m.full {
		visit(m.buf[m.next:])
	}
	visit(m.buf[:m.next])
}
