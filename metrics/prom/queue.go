package prom

import (
	"errors"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/IvanBrykalov/lookupcache/backend"
	"github.com/IvanBrykalov/lookupcache/queue"
)

// QueueAdapter implements queue.Metrics.
type QueueAdapter struct {
	enqueued *prometheus.CounterVec
	fetches  *prometheus.HistogramVec
	queued   prometheus.Gauge
}

// NewQueue constructs a Prometheus metrics adapter for a coalescing queue.
// Arguments follow New.
func NewQueue(reg prometheus.Registerer, ns, sub string, constLabels prometheus.Labels) *QueueAdapter {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	a := &QueueAdapter{
		enqueued: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace:   ns,
				Subsystem:   sub,
				Name:        "enqueued_total",
				Help:        "Lookups enqueued, by whether they joined an outstanding fetch",
				ConstLabels: constLabels,
			},
			[]string{"coalesced"},
		),
		fetches: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace:   ns,
				Subsystem:   sub,
				Name:        "fetch_duration_seconds",
				Help:        "Backend fetch latency by outcome",
				Buckets:     prometheus.DefBuckets,
				ConstLabels: constLabels,
			},
			[]string{"outcome"},
		),
		queued: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace:   ns,
			Subsystem:   sub,
			Name:        "queued_keys",
			Help:        "Distinct keys waiting for dispatch",
			ConstLabels: constLabels,
		}),
	}
	reg.MustRegister(a.enqueued, a.fetches, a.queued)
	return a
}

// Enqueued counts a lookup.
func (a *QueueAdapter) Enqueued(coalesced bool) {
	if coalesced {
		a.enqueued.WithLabelValues("true").Inc()
		return
	}
	a.enqueued.WithLabelValues("false").Inc()
}

// Fetched observes a backend call.
func (a *QueueAdapter) Fetched(d time.Duration, err error) {
	a.fetches.WithLabelValues(outcome(err)).Observe(d.Seconds())
}

// Queued sets the FIFO length gauge.
func (a *QueueAdapter) Queued(n int) { a.queued.Set(float64(n)) }

// outcome maps a fetch error to a stable label value.
func outcome(err error) string {
	switch {
	case err == nil:
		return "ok"
	case backend.IsNotFound(err):
		return "not_found"
	case errors.Is(err, queue.ErrPanic):
		return "panic"
	default:
		return "error"
	}
}

var _ queue.Metrics = (*QueueAdapter)(nil)
