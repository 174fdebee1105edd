package queue

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/IvanBrykalov/lookupcache/backend"
)

var (
	// ErrClosed is delivered to callers that enqueue after Close.
	ErrClosed = errors.New("queue: closed")
	// ErrPanic wraps a panic recovered from the backend fetcher.
	ErrPanic = errors.New("queue: fetch panicked")
)

// Result is the settled outcome of a fetch, delivered once to every waiter.
type Result[V any] struct {
	Value V
	Err   error
}

// Queue coalesces concurrent lookups for the same key and dispatches the
// distinct keys to the backend one at a time, in FIFO order.
//
// Concurrency notes:
//   - At most one fetch per key is outstanding. Callers asking for a key that
//     is queued or being fetched join its waiter list.
//   - A single worker goroutine pops one key, runs the fetch, fans the result
//     out to every waiter registered so far, forgets the key and moves on.
//     Different keys are never fetched concurrently, so a slow fetch delays
//     every key queued behind it (head-of-line blocking).
//   - The queue never cancels a fetch. A fetch that never returns stalls
//     the worker for good.
//   - Failures are not cached: the next Enqueue for a failed key starts a
//     new fetch.
type Queue[K comparable, V any] struct {
	fetch backend.Fetcher[K, V]
	opt   Options

	// ---- guarded by mu ----
	mu      sync.Mutex
	fifo    []K                    // distinct keys waiting for dispatch
	pending map[K][]chan Result[V] // waiters per queued or dispatched key
	running bool                   // worker goroutine is active
	closed  bool

	wg sync.WaitGroup // tracks the worker goroutine
}

// New returns a queue that resolves keys with fetch.
func New[K comparable, V any](fetch backend.Fetcher[K, V], opt Options) *Queue[K, V] {
	if fetch == nil {
		panic("queue: nil fetcher")
	}
	if opt.Context == nil {
		opt.Context = context.Background()
	}
	if opt.Metrics == nil {
		opt.Metrics = NoopMetrics{}
	}
	return &Queue[K, V]{
		fetch:   fetch,
		opt:     opt,
		pending: make(map[K][]chan Result[V]),
	}
}

// Enqueue registers interest in k and returns a channel that receives exactly
// one Result. The channel is buffered, so the queue never blocks on a caller
// that stopped listening.
func (q *Queue[K, V]) Enqueue(k K) <-chan Result[V] {
	ch := make(chan Result[V], 1)

	q.mu.Lock()
	if q.closed {
		q.mu.Unlock()
		ch <- Result[V]{Err: ErrClosed}
		return ch
	}

	if waiters, ok := q.pending[k]; ok {
		q.pending[k] = append(waiters, ch)
		q.mu.Unlock()
		q.opt.Metrics.Enqueued(true)
		return ch
	}

	q.pending[k] = []chan Result[V]{ch}
	q.fifo = append(q.fifo, k)
	q.opt.Metrics.Queued(len(q.fifo))
	if !q.running {
		q.running = true
		q.wg.Add(1)
		go q.run()
	}
	q.mu.Unlock()

	q.opt.Metrics.Enqueued(false)
	return ch
}

// Do enqueues k and waits for its result. Cancelling ctx only stops this
// caller from waiting; the fetch itself keeps running for the other waiters.
func (q *Queue[K, V]) Do(ctx context.Context, k K) (V, error) {
	select {
	case r := <-q.Enqueue(k):
		return r.Value, r.Err
	case <-ctx.Done():
		var zero V
		return zero, ctx.Err()
	}
}

// Len returns the number of keys waiting in the FIFO (not yet dispatched).
func (q *Queue[K, V]) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.fifo)
}

// Close rejects further Enqueue calls with ErrClosed and waits until the
// worker has settled every key already queued. It is idempotent.
func (q *Queue[K, V]) Close() error {
	q.mu.Lock()
	q.closed = true
	q.mu.Unlock()

	q.wg.Wait()
	return nil
}

// run drains the FIFO one key at a time until it is empty.
func (q *Queue[K, V]) run() {
	defer q.wg.Done()

	for {
		q.mu.Lock()
		if len(q.fifo) == 0 {
			q.running = false
			q.mu.Unlock()
			return
		}
		k := q.fifo[0]
		var zero K
		q.fifo[0] = zero
		q.fifo = q.fifo[1:]
		q.opt.Metrics.Queued(len(q.fifo))
		q.mu.Unlock()

		q.dispatch(k)
	}
}

// dispatch fetches k and fans the outcome out to every waiter registered
// up to the moment the fetch settled.
func (q *Queue[K, V]) dispatch(k K) {
	start := time.Now()
	v, err := q.call(k)
	q.opt.Metrics.Fetched(time.Since(start), err)

	q.mu.Lock()
	waiters := q.pending[k]
	delete(q.pending, k)
	q.mu.Unlock()

	if q.opt.Logger != nil {
		if err != nil {
			q.opt.Logger.Debug(q.opt.Context, "fetch failed",
				"key", k, "waiters", len(waiters), "error", err.Error())
		} else {
			q.opt.Logger.Debug(q.opt.Context, "fetch settled",
				"key", k, "waiters", len(waiters), "elapsed", time.Since(start).String())
		}
	}

	res := Result[V]{Value: v, Err: err}
	for _, ch := range waiters {
		ch <- res
	}
}

// call invokes the fetcher and converts a panic into an error so that one
// broken fetch cannot take the worker down with it.
func (q *Queue[K, V]) call(k K) (v V, err error) {
	defer func() {
		if r := recover(); r != nil {
			if q.opt.Logger != nil {
				q.opt.Logger.Error(q.opt.Context, "fetch panicked", "key", k, "panic", fmt.Sprint(r))
			}
			var zero V
			v, err = zero, fmt.Errorf("%w: %v", ErrPanic, r)
		}
	}()
	return q.fetch(q.opt.Context, k)
}
