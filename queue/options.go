package queue

import (
	"context"
	"time"

	"github.com/bool64/ctxd"
)

// Metrics exposes queue-level observability hooks.
// A NoopMetrics implementation is provided and used by default.
type Metrics interface {
	// Enqueued is called for every Enqueue; coalesced is true when the caller
	// joined an outstanding fetch instead of starting a new one.
	Enqueued(coalesced bool)
	// Fetched is called after each backend call with its duration and outcome.
	Fetched(d time.Duration, err error)
	// Queued reports the number of keys waiting in the FIFO.
	// It is called under the queue lock; keep it cheap.
	Queued(n int)
}

// NoopMetrics is a drop-in Metrics implementation that does nothing.
type NoopMetrics struct{}

func (NoopMetrics) Enqueued(bool)                {}
func (NoopMetrics) Fetched(time.Duration, error) {}
func (NoopMetrics) Queued(int)                   {}

var _ Metrics = NoopMetrics{}

// Options configures a Queue. Zero values are safe:
//   - nil Context => context.Background()
//   - nil Metrics => NoopMetrics
type Options struct {
	// Context is passed to every backend fetch. The queue never cancels it;
	// it is only a carrier for values (logger fields, tracing).
	Context context.Context

	Metrics Metrics

	// Logger receives debug records for dispatches and failures, can be nil.
	Logger ctxd.Logger
}
