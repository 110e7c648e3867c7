package engine

import (
	"context"
	"sync"
	"time"
)

// SessionStore loads and saves conversation sessions. Implementations must
// upsert on save: the engine writes back the whole session every turn.
type SessionStore interface {
	Get(ctx context.Context, clinicID, phone string) (*Session, error)
	Save(ctx context.Context, session *Session) error
}

// MemorySessionStore keeps sessions in a map. Used in development and tests.
type MemorySessionStore struct {
	mu       sync.RWMutex
	sessions map[string]*Session
}

var _ SessionStore = (*MemorySessionStore)(nil)

// NewMemorySessionStore creates an empty in-memory store.
func NewMemorySessionStore() *MemorySessionStore {
	return &MemorySessionStore{sessions: make(map[string]*Session)}
}

func sessionKey(clinicID, phone string) string {
	return clinicID + ":" + phone
}

// Get returns a copy of the stored session or ErrSessionNotFound.
func (s *MemorySessionStore) Get(_ context.Context, clinicID, phone string) (*Session, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	stored, ok := s.sessions[sessionKey(clinicID, phone)]
	if !ok {
		return nil, ErrSessionNotFound
	}
	copied := *stored
	return &copied, nil
}

// Save upserts the session.
func (s *MemorySessionStore) Save(_ context.Context, session *Session) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	now := time.Now().UTC()
	if session.CreatedAt.IsZero() {
		session.CreatedAt = now
	}
	session.UpdatedAt = now
	copied := *session
	s.sessions[sessionKey(session.ClinicID, session.Phone)] = &copied
	return nil
}
