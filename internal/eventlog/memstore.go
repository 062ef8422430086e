package eventlog

import (
	"context"
	"sync"
	"time"
)

// MemStore is an in-memory [Store] for tests and single-process development.
// Thread-safe.
type MemStore struct {
	mu     sync.RWMutex
	events []Event
}

// Compile-time interface check.
var _ Store = (*MemStore)(nil)

// NewMemStore returns an empty in-memory event store.
func NewMemStore() *MemStore {
	return &MemStore{}
}

// Append stores a copy of the event.
func (s *MemStore) Append(_ context.Context, ev *Event) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = append(s.events, *ev)
	return nil
}

// ListIncorrect returns the user's incorrect events since the given time,
// newest first, capped at limit.
func (s *MemStore) ListIncorrect(_ context.Context, userID string, since time.Time, limit int) ([]Event, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []Event
	for i := len(s.events) - 1; i >= 0 && len(out) < limit; i-- {
		ev := s.events[i]
		if ev.UserID == userID && !ev.WasCorrect && !ev.CreatedAt.Before(since) {
			out = append(out, ev)
		}
	}
	return out, nil
}

// RecentFailedUsers returns distinct user IDs with incorrect events since the
// given time.
func (s *MemStore) RecentFailedUsers(_ context.Context, since time.Time, limit int) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	seen := make(map[string]bool)
	var users []string
	for _, ev := range s.events {
		if ev.WasCorrect || ev.CreatedAt.Before(since) || seen[ev.UserID] {
			continue
		}
		seen[ev.UserID] = true
		users = append(users, ev.UserID)
		if len(users) >= limit {
			break
		}
	}
	return users, nil
}

// Len returns the number of stored events.
func (s *MemStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.events)
}
