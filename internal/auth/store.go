package auth

import (
	"fmt"
	"sync"
)

// MemoryStore is a thread-safe in-process token store. The token is lost when
// the process exits.
type MemoryStore struct {
	mu    sync.RWMutex
	token string
}

// NewMemoryStore creates an empty store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{}
}

// Get returns the current token, or "" when none is held.
func (s *MemoryStore) Get() string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.token
}

// Set replaces the token.
func (s *MemoryStore) Set(token string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.token = token

	return nil
}

// Clear removes the token.
func (s *MemoryStore) Clear() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.token = ""

	return nil
}

// Backend is durable storage for a single token. Load returns "" and no error
// when nothing is stored.
type Backend interface {
	Load() (string, error)
	Save(token string) error
	Delete() error
}

// PersistentStore mirrors an in-memory token to a Backend so the session
// survives restarts. Reads are served from memory.
type PersistentStore struct {
	mu      sync.RWMutex
	token   string
	backend Backend
}

// NewPersistentStore creates a store primed with whatever the backend holds.
func NewPersistentStore(backend Backend) (*PersistentStore, error) {
	token, err := backend.Load()
	if err != nil {
		return nil, fmt.Errorf("loading stored token: %w", err)
	}

	return &PersistentStore{token: token, backend: backend}, nil
}

// Get returns the current token, or "" when none is held.
func (s *PersistentStore) Get() string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.token
}

// Set stores the token in memory and in the backend. The in-memory value is
// only replaced once the backend write succeeded.
func (s *PersistentStore) Set(token string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	err := s.backend.Save(token)
	if err != nil {
		return fmt.Errorf("saving token: %w", err)
	}

	s.token = token

	return nil
}

// Clear removes the token. Memory is always cleared, even if the backend
// delete fails, so no stale token is ever attached again by this process.
func (s *PersistentStore) Clear() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.token = ""

	err := s.backend.Delete()
	if err != nil {
		return fmt.Errorf("deleting stored token: %w", err)
	}

	return nil
}
