package mappingstore

import (
	"context"
	"sync"
	"time"
)

type key struct {
	userID string
	heard  string
}

// MemStore is an in-memory [Store] for tests and single-process development.
// Its Upsert mirrors the Postgres store's additive semantics. Thread-safe.
type MemStore struct {
	mu       sync.RWMutex
	mappings map[key]Mapping
}

// Compile-time interface check.
var _ Store = (*MemStore)(nil)

// NewMemStore returns an empty in-memory mapping store.
func NewMemStore() *MemStore {
	return &MemStore{mappings: make(map[key]Mapping)}
}

// ForUser returns all mappings belonging to one user.
func (s *MemStore) ForUser(_ context.Context, userID string) ([]Mapping, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []Mapping
	for k, m := range s.mappings {
		if k.userID == userID {
			out = append(out, m)
		}
	}
	return out, nil
}

// Get retrieves a mapping by its (userID, heard) key. Returns (nil, nil) if
// no such mapping exists.
func (s *MemStore) Get(_ context.Context, userID, heard string) (*Mapping, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	m, ok := s.mappings[key{userID, heard}]
	if !ok {
		return nil, nil
	}
	return &m, nil
}

// Upsert inserts the mapping or reinforces an existing auto-learned row,
// mirroring the Postgres ON CONFLICT semantics.
func (s *MemStore) Upsert(_ context.Context, m *Mapping, step, maxConfidence float64) error {
	if err := m.Validate(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	k := key{m.UserID, m.Heard}
	now := time.Now().UTC()

	existing, ok := s.mappings[k]
	if !ok {
		stored := *m
		stored.CreatedAt = now
		stored.UpdatedAt = now
		s.mappings[k] = stored
		return nil
	}
	if existing.Source != SourceAutoLearned {
		// Pinned rows are never auto-adjusted.
		return nil
	}

	existing.OccurrenceCount += m.OccurrenceCount
	existing.Confidence += step
	if existing.Confidence > maxConfidence {
		existing.Confidence = maxConfidence
	}
	existing.UpdatedAt = now
	s.mappings[k] = existing
	return nil
}

// Put creates or replaces a mapping unconditionally.
func (s *MemStore) Put(_ context.Context, m *Mapping) error {
	if err := m.Validate(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	now := time.Now().UTC()
	stored := *m
	if existing, ok := s.mappings[key{m.UserID, m.Heard}]; ok {
		stored.CreatedAt = existing.CreatedAt
		stored.TimesApplied = existing.TimesApplied
	} else {
		stored.CreatedAt = now
	}
	stored.UpdatedAt = now
	s.mappings[key{m.UserID, m.Heard}] = stored
	return nil
}

// RecordApplied increments TimesApplied for each heard token the user has a
// mapping for.
func (s *MemStore) RecordApplied(_ context.Context, userID string, heard []string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, h := range heard {
		k := key{userID, h}
		if m, ok := s.mappings[k]; ok {
			m.TimesApplied++
			m.UpdatedAt = time.Now().UTC()
			s.mappings[k] = m
		}
	}
	return nil
}
