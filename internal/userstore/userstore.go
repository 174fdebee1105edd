// Package userstore is an in-memory user database with simulated latency.
// Its Fetch method is the backend the lookup service protects.
package userstore

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/IvanBrykalov/lookupcache/backend"
)

// DefaultDelay is the simulated lookup latency.
const DefaultDelay = 200 * time.Millisecond

// User is a stored record.
type User struct {
	ID    int    `json:"id"`
	Name  string `json:"name"`
	Email string `json:"email"`
}

// Store holds users by id. It is safe for concurrent use.
type Store struct {
	delay time.Duration

	mu     sync.RWMutex
	users  map[int]User
	nextID int
}

// New returns a store seeded with three users. A negative delay disables the
// simulated latency.
func New(delay time.Duration) *Store {
	s := &Store{
		delay: delay,
		users: map[int]User{
			1: {ID: 1, Name: "John Doe", Email: "john@example.com"},
			2: {ID: 2, Name: "Jane Smith", Email: "jane@example.com"},
			3: {ID: 3, Name: "Alice Johnson", Email: "alice@example.com"},
		},
		nextID: 4,
	}
	return s
}

// Fetch loads a user after the simulated delay. It fails with a
// *backend.NotFoundError for unknown ids.
func (s *Store) Fetch(ctx context.Context, id int) (User, error) {
	if s.delay > 0 {
		t := time.NewTimer(s.delay)
		select {
		case <-t.C:
		case <-ctx.Done():
			t.Stop()
			return User{}, backend.Transient("fetch user", ctx.Err())
		}
	}

	s.mu.RLock()
	u, ok := s.users[id]
	s.mu.RUnlock()
	if !ok {
		return User{}, &backend.NotFoundError{Key: id, Msg: fmt.Sprintf("User with ID %d not found", id)}
	}
	return u, nil
}

// Create stores a new user under the next free id and returns it.
func (s *Store) Create(name, email string) User {
	s.mu.Lock()
	defer s.mu.Unlock()

	u := User{ID: s.nextID, Name: name, Email: email}
	s.users[u.ID] = u
	s.nextID++
	return u
}

var _ backend.Fetcher[int, User] = (*Store)(nil).Fetch
