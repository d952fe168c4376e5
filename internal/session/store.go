package session

import (
	"context"
	"errors"
	"sync"
	"time"
)

// ErrNoSession is returned when no live session exists for an identifier.
var ErrNoSession = errors.New("no active session")

// Session is the ephemeral association between a transport session identifier
// and an authenticated user. Sessions live in process memory only and do not
// survive a restart.
type Session struct {
	ID        string
	UserID    int64
	ExpiresAt time.Time
}

// Store defines how sessions are stored and retrieved.
type Store interface {
	Create(ctx context.Context, s Session) error
	Get(ctx context.Context, sessionID string) (*Session, error)
	Delete(ctx context.Context, sessionID string) error
}

// MemoryStore keeps sessions in a process-local map. Expired sessions read as
// absent and are dropped on access.
type MemoryStore struct {
	mu       sync.RWMutex
	sessions map[string]Session
}

// NewMemoryStore creates an empty in-memory session store
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{sessions: make(map[string]Session)}
}

// Create stores a session
func (m *MemoryStore) Create(_ context.Context, s Session) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.sessions[s.ID] = s
	return nil
}

// Get retrieves a live session by id
func (m *MemoryStore) Get(_ context.Context, sessionID string) (*Session, error) {
	m.mu.RLock()
	s, ok := m.sessions[sessionID]
	m.mu.RUnlock()

	if !ok {
		return nil, ErrNoSession
	}

	if time.Now().After(s.ExpiresAt) {
		m.mu.Lock()
		delete(m.sessions, sessionID)
		m.mu.Unlock()
		return nil, ErrNoSession
	}

	return &s, nil
}

// Delete removes a session
func (m *MemoryStore) Delete(_ context.Context, sessionID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	delete(m.sessions, sessionID)
	return nil
}
