package session

import (
	"context"
	"errors"
	"sync"
)

// ErrNotFound is returned by Load when no session is stored.
var ErrNotFound = errors.New("session not found")

// ErrStoreUnavailable is returned when the backing store cannot be reached.
var ErrStoreUnavailable = errors.New("session store unavailable")

// Store persists the device's single current session.
type Store interface {
	Save(ctx context.Context, s *Session) error
	Load(ctx context.Context) (*Session, error)
	Clear(ctx context.Context) error
}

// MemoryStore keeps the session in process memory. Safe for concurrent use.
type MemoryStore struct {
	mu      sync.Mutex
	current *Session
}

// NewMemoryStore returns an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{}
}

// Save stores a copy of the session.
func (m *MemoryStore) Save(_ context.Context, s *Session) error {
	if s == nil {
		return errors.New("nil session")
	}
	copied := *s

	m.mu.Lock()
	defer m.mu.Unlock()
	m.current = &copied
	return nil
}

// Load returns a copy of the stored session, or [ErrNotFound].
func (m *MemoryStore) Load(_ context.Context) (*Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.current == nil {
		return nil, ErrNotFound
	}
	copied := *m.current
	return &copied, nil
}

// Clear drops the stored session. Clearing an empty store is a no-op.
func (m *MemoryStore) Clear(_ context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.current = nil
	return nil
}
