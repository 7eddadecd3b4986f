package session

import (
	"context"
	"sync"
	"time"

	"pharmaflow-tutor/pkg"
)

// MemoryStore implements Store using an in-memory map with optimistic
// locking.  Sessions are gone on process restart, matching the bounded
// lifetime of an interactive training run.
type MemoryStore struct {
	mu       sync.RWMutex
	sessions map[string]*pkg.Session
}

// NewMemoryStore creates a new in-memory session store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{sessions: make(map[string]*pkg.Session)}
}

// Create implements Store.
func (s *MemoryStore) Create(ctx context.Context, data *pkg.Session) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	data.UpdatedAt = time.Now()
	data.Version = 1

	stored := *data
	s.sessions[data.ID] = &stored
	return nil
}

// Get implements Store.
func (s *MemoryStore) Get(ctx context.Context, id string) (*pkg.Session, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	data, exists := s.sessions[id]
	if !exists {
		return nil, nil
	}
	out := *data
	return &out, nil
}

// Update implements Store.
func (s *MemoryStore) Update(ctx context.Context, data *pkg.Session) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	stored, exists := s.sessions[data.ID]
	if !exists {
		return ErrNotFound
	}
	if stored.Version != data.Version {
		return ErrVersionConflict
	}

	data.Version++
	data.UpdatedAt = time.Now()

	next := *data
	s.sessions[data.ID] = &next
	return nil
}

// Delete implements Store.
func (s *MemoryStore) Delete(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.sessions, id)
	return nil
}

// Close implements Store.
func (s *MemoryStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.sessions = nil
	return nil
}
