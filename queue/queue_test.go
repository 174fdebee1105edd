package queue

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/sync/errgroup"

	"github.com/IvanBrykalov/lookupcache/backend"
)

// gatedFetcher records every backend call and blocks each one until the
// gate is released, so tests control exactly when fetches settle.
type gatedFetcher struct {
	mu      sync.Mutex
	calls   []int
	gate    chan struct{}
	started chan int

	inFlight    atomic.Int32
	maxInFlight atomic.Int32

	fail map[int]error
}

func newGatedFetcher() *gatedFetcher {
	return &gatedFetcher{
		gate:    make(chan struct{}),
		started: make(chan int, 64),
		fail:    map[int]error{},
	}
}

func (f *gatedFetcher) fetch(_ context.Context, k int) (string, error) {
	n := f.inFlight.Add(1)
	defer f.inFlight.Add(-1)
	for {
		m := f.maxInFlight.Load()
		if n <= m || f.maxInFlight.CompareAndSwap(m, n) {
			break
		}
	}

	f.mu.Lock()
	f.calls = append(f.calls, k)
	err := f.fail[k]
	f.mu.Unlock()

	f.started <- k
	<-f.gate

	if err != nil {
		return "", err
	}
	return "user-" + string(rune('0'+k)), nil
}

func (f *gatedFetcher) release() { close(f.gate) }

func (f *gatedFetcher) callLog() []int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]int(nil), f.calls...)
}

func waitStarted(t *testing.T, f *gatedFetcher, want int) {
	t.Helper()
	select {
	case k := <-f.started:
		require.Equal(t, want, k, "unexpected key dispatched")
	case <-time.After(2 * time.Second):
		t.Fatalf("fetch for %d did not start", want)
	}
}

func recv[V any](t *testing.T, ch <-chan Result[V]) Result[V] {
	t.Helper()
	select {
	case r := <-ch:
		return r
	case <-time.After(2 * time.Second):
		t.Fatal("result not delivered")
		return Result[V]{}
	}
}

func newQueue(t *testing.T, f *gatedFetcher) *Queue[int, string] {
	t.Helper()
	q := New[int, string](f.fetch, Options{})
	t.Cleanup(func() { _ = q.Close() })
	return q
}

// Three callers for the same key before it settles share one backend call.
func TestQueue_CoalescesSameKey(t *testing.T) {
	t.Parallel()

	f := newGatedFetcher()
	q := newQueue(t, f)

	chs := []<-chan Result[string]{q.Enqueue(5), q.Enqueue(5), q.Enqueue(5)}
	waitStarted(t, f, 5)
	f.release()

	for _, ch := range chs {
		r := recv(t, ch)
		require.NoError(t, r.Err)
		assert.Equal(t, "user-5", r.Value)
	}
	assert.Equal(t, []int{5}, f.callLog())
}

// A caller arriving while the fetch is already running joins it.
func TestQueue_JoinsDispatchedFetch(t *testing.T) {
	t.Parallel()

	f := newGatedFetcher()
	q := newQueue(t, f)

	first := q.Enqueue(1)
	waitStarted(t, f, 1)
	late := q.Enqueue(1)
	assert.Equal(t, 0, q.Len(), "joining must not requeue the key")
	f.release()

	assert.Equal(t, "user-1", recv(t, first).Value)
	assert.Equal(t, "user-1", recv(t, late).Value)
	assert.Equal(t, []int{1}, f.callLog())
}

// Every waiter receives the identical failure and the key is not cached
// negatively: the next Enqueue issues a new backend call.
func TestQueue_ErrorFanOutAndRetry(t *testing.T) {
	t.Parallel()

	f := newGatedFetcher()
	notFound := backend.NotFound(7)
	f.fail[7] = notFound
	q := newQueue(t, f)

	chs := []<-chan Result[string]{q.Enqueue(7), q.Enqueue(7), q.Enqueue(7)}
	waitStarted(t, f, 7)
	f.release()
	for _, ch := range chs {
		r := recv(t, ch)
		require.Error(t, r.Err)
		assert.True(t, backend.IsNotFound(r.Err))
		assert.Same(t, notFound, r.Err)
	}

	_, err := q.Do(context.Background(), 7)
	assert.True(t, backend.IsNotFound(err))
	waitStarted(t, f, 7)
	assert.Equal(t, []int{7, 7}, f.callLog())
}

// A failing key does not affect the keys queued behind it.
func TestQueue_FailureDoesNotStopWorker(t *testing.T) {
	t.Parallel()

	f := newGatedFetcher()
	f.fail[1] = backend.Transient("db down", nil)
	q := newQueue(t, f)

	bad := q.Enqueue(1)
	good := q.Enqueue(2)
	f.release()

	assert.ErrorIs(t, recv(t, bad).Err, backend.ErrTransient)
	r := recv(t, good)
	require.NoError(t, r.Err)
	assert.Equal(t, "user-2", r.Value)
}

// Distinct keys are dispatched in enqueue order, one at a time.
func TestQueue_CrossKeyFIFO(t *testing.T) {
	t.Parallel()

	f := newGatedFetcher()
	q := newQueue(t, f)

	c1 := q.Enqueue(1)
	c2 := q.Enqueue(2)
	c3 := q.Enqueue(3)
	c2b := q.Enqueue(2)

	waitStarted(t, f, 1)
	assert.Equal(t, 2, q.Len(), "keys 2 and 3 wait in the FIFO")
	f.release()

	for _, ch := range []<-chan Result[string]{c1, c2, c3, c2b} {
		require.NoError(t, recv(t, ch).Err)
	}
	assert.Equal(t, []int{1, 2, 3}, f.callLog())
	assert.Equal(t, int32(1), f.maxInFlight.Load(), "fetches must not overlap")
	assert.Equal(t, 0, q.Len())
}

// A panicking fetcher is reported to its waiters; the worker keeps going.
func TestQueue_RecoversPanic(t *testing.T) {
	t.Parallel()

	q := New[int, int](func(_ context.Context, k int) (int, error) {
		if k == 1 {
			panic("boom")
		}
		return k * 10, nil
	}, Options{})
	t.Cleanup(func() { _ = q.Close() })

	_, err := q.Do(context.Background(), 1)
	require.ErrorIs(t, err, ErrPanic)
	assert.Contains(t, err.Error(), "boom")

	v, err := q.Do(context.Background(), 2)
	require.NoError(t, err)
	assert.Equal(t, 20, v)
}

// Cancelling one caller does not cancel the fetch for the others.
func TestQueue_DoContextCancel(t *testing.T) {
	t.Parallel()

	f := newGatedFetcher()
	q := newQueue(t, f)

	other := q.Enqueue(4)
	waitStarted(t, f, 4)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := q.Do(ctx, 4)
	assert.ErrorIs(t, err, context.Canceled)

	f.release()
	assert.Equal(t, "user-4", recv(t, other).Value)
	assert.Equal(t, []int{4}, f.callLog())
}

// Close drains queued keys and rejects new ones.
func TestQueue_Close(t *testing.T) {
	t.Parallel()

	f := newGatedFetcher()
	q := New[int, string](f.fetch, Options{})

	c1 := q.Enqueue(1)
	c2 := q.Enqueue(2)
	waitStarted(t, f, 1)

	closed := make(chan struct{})
	go func() {
		_ = q.Close()
		close(closed)
	}()

	select {
	case <-closed:
		t.Fatal("Close returned before queued keys settled")
	case <-time.After(20 * time.Millisecond):
	}

	f.release()
	select {
	case <-closed:
	case <-time.After(2 * time.Second):
		t.Fatal("Close did not return")
	}

	require.NoError(t, recv(t, c1).Err)
	require.NoError(t, recv(t, c2).Err)
	assert.ErrorIs(t, recv(t, q.Enqueue(3)).Err, ErrClosed)
	require.NoError(t, q.Close())
}

type countingMetrics struct {
	enqueued, coalesced, fetched, failed atomic.Int64
	queued                               atomic.Int64
}

func (m *countingMetrics) Enqueued(coalesced bool) {
	m.enqueued.Add(1)
	if coalesced {
		m.coalesced.Add(1)
	}
}

func (m *countingMetrics) Fetched(_ time.Duration, err error) {
	m.fetched.Add(1)
	if err != nil {
		m.failed.Add(1)
	}
}

func (m *countingMetrics) Queued(n int) { m.queued.Store(int64(n)) }

// Many goroutines asking for one key produce exactly one backend call.
func TestQueue_ConcurrentCallers(t *testing.T) {
	t.Parallel()

	const callers = 100
	f := newGatedFetcher()
	m := &countingMetrics{}
	q := New[int, string](f.fetch, Options{Metrics: m})
	t.Cleanup(func() { _ = q.Close() })

	var g errgroup.Group
	for i := 0; i < callers; i++ {
		g.Go(func() error {
			v, err := q.Do(context.Background(), 9)
			if err != nil {
				return err
			}
			if v != "user-9" {
				return errors.New("unexpected value " + v)
			}
			return nil
		})
	}

	require.Eventually(t, func() bool { return m.enqueued.Load() == callers },
		2*time.Second, time.Millisecond)
	f.release()
	require.NoError(t, g.Wait())

	assert.Equal(t, []int{9}, f.callLog())
	assert.Equal(t, int64(callers-1), m.coalesced.Load())
	assert.Equal(t, int64(1), m.fetched.Load())
	assert.Equal(t, int64(0), m.failed.Load())
	assert.Equal(t, int64(0), m.queued.Load())
}
