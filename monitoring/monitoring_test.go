package monitoring

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestMonitor_Aggregates(t *testing.T) {
	m := New(10)

	assert.Zero(t, m.AverageResponseTime(""))
	assert.Zero(t, m.ErrorRate(""))

	m.Record(Request{Endpoint: "/users/1", Status: 200, Duration: 10 * time.Millisecond})
	m.Record(Request{Endpoint: "/users/1", Status: 404, Duration: 30 * time.Millisecond})
	m.Record(Request{Endpoint: "/health", Status: 200, Duration: 2 * time.Millisecond})
	m.Record(Request{Endpoint: "/users/2", Status: 500, Duration: 6 * time.Millisecond})

	assert.Equal(t, 12*time.Millisecond, m.AverageResponseTime(""))
	assert.Equal(t, 20*time.Millisecond, m.AverageResponseTime("/users/1"))
	assert.Equal(t, 0.5, m.ErrorRate(""))
	assert.Equal(t, 0.5, m.ErrorRate("/users/1"))
	assert.Equal(t, 0.0, m.ErrorRate("/health"))
	assert.Equal(t, 4, m.Total(""))
	assert.Equal(t, 1, m.Total("/health"))
	assert.Equal(t, 0, m.Total("/nope"))
}

func TestMonitor_DropsOldest(t *testing.T) {
	m := New(3)
	for i := 1; i <= 5; i++ {
		m.Record(Request{Status: 200 + i, Duration: time.Duration(i)})
	}

	snap := m.Snapshot()
	if assert.Len(t, snap, 3) {
		assert.Equal(t, []int{203, 204, 205}, []int{snap[0].Status, snap[1].Status, snap[2].Status})
	}
	assert.Equal(t, time.Duration(4), m.AverageResponseTime(""))

	m.Clear()
	assert.Empty(t, m.Snapshot())
	m.Record(Request{Status: 200})
	assert.Equal(t, 1, m.Total(""))
}

func TestNew_DefaultSize(t *testing.T) {
	assert.Len(t, New(0).buf, DefaultMaxRequests)
}
