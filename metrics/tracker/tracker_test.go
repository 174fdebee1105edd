package tracker

import (
	"context"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/IvanBrykalov/lookupcache/backend"
	"github.com/IvanBrykalov/lookupcache/cache"
	"github.com/IvanBrykalov/lookupcache/queue"
)

// recorder is a minimal stats.Tracker keeping values by name and labels.
type recorder struct {
	mu     sync.Mutex
	values map[string]float64
}

func key(name string, labelsAndValues []string) string {
	return name + "{" + strings.Join(labelsAndValues, ",") + "}"
}

func (r *recorder) Add(_ context.Context, name string, increment float64, labelsAndValues ...string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.values[key(name, labelsAndValues)] += increment
}

func (r *recorder) Set(_ context.Context, name string, absolute float64, labelsAndValues ...string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.values[key(name, labelsAndValues)] = absolute
}

func (r *recorder) get(name string, labelsAndValues ...string) float64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.values[key(name, labelsAndValues)]
}

func TestAdapter_Cache(t *testing.T) {
	rec := &recorder{values: map[string]float64{}}
	a := New(rec, "users")

	c := cache.New[string, int](cache.Options[string, int]{Capacity: 1, Metrics: a, CleanupInterval: -1})
	t.Cleanup(func() { _ = c.Close() })

	c.Set("a", 1)
	c.Get("a")
	c.Set("b", 2)
	c.Get("a")

	assert.Equal(t, 1.0, rec.get(MetricHit, "name", "users"))
	assert.Equal(t, 1.0, rec.get(MetricMiss, "name", "users"))
	assert.Equal(t, 1.0, rec.get(MetricEvict, "name", "users", "reason", "capacity"))
	assert.Equal(t, 1.0, rec.get(MetricItems, "name", "users"))
}

func TestAdapter_Queue(t *testing.T) {
	rec := &recorder{values: map[string]float64{}}
	a := New(rec, "users")

	q := queue.New[int, int](func(_ context.Context, k int) (int, error) {
		if k < 0 {
			return 0, backend.NotFound(k)
		}
		return k, nil
	}, queue.Options{Metrics: a})
	t.Cleanup(func() { _ = q.Close() })

	_, err := q.Do(context.Background(), 1)
	require.NoError(t, err)
	_, err = q.Do(context.Background(), -1)
	require.Error(t, err)

	assert.Equal(t, 2.0, rec.get(MetricEnqueued, "name", "users", "coalesced", "false"))
	assert.Equal(t, 1.0, rec.get(MetricFetch, "name", "users", "result", "ok"))
	assert.Equal(t, 1.0, rec.get(MetricFetch, "name", "users", "result", "not_found"))
	assert.Equal(t, 0.0, rec.get(MetricQueued, "name", "users"))
}
