package userstore

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/IvanBrykalov/lookupcache/backend"
)

func TestStore_FetchAndCreate(t *testing.T) {
	s := New(-1)
	ctx := context.Background()

	u, err := s.Fetch(ctx, 2)
	require.NoError(t, err)
	assert.Equal(t, User{ID: 2, Name: "Jane Smith", Email: "jane@example.com"}, u)

	_, err = s.Fetch(ctx, 4)
	require.True(t, backend.IsNotFound(err))
	assert.EqualError(t, err, "User with ID 4 not found")

	created := s.Create("Bob", "bob@example.com")
	assert.Equal(t, 4, created.ID)
	assert.Equal(t, 5, s.Create("Eve", "eve@example.com").ID)

	u, err = s.Fetch(ctx, 4)
	require.NoError(t, err)
	assert.Equal(t, created, u)
}

func TestStore_FetchDelay(t *testing.T) {
	s := New(20 * time.Millisecond)

	start := time.Now()
	_, err := s.Fetch(context.Background(), 1)
	require.NoError(t, err)
	assert.GreaterOrEqual(t, time.Since(start), 20*time.Millisecond)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = s.Fetch(ctx, 1)
	assert.ErrorIs(t, err, backend.ErrTransient)
	assert.ErrorIs(t, err, context.Canceled)
}
