package oauthstore

import (
	"context"
	"sync"
	"time"
)

// InMemoryStore implements Store with mutex-guarded maps. State and session
// records are lost on restart; use PostgresStore for multi-instance
// deployments.
type InMemoryStore struct {
	mu       sync.Mutex
	states   map[string]AuthState
	sessions map[string]Session
}

// NewInMemoryStore creates an empty in-memory store.
func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{
		states:   make(map[string]AuthState),
		sessions: make(map[string]Session),
	}
}

// PutState stores the authorization state for a login attempt.
func (s *InMemoryStore) PutState(_ context.Context, state AuthState) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.states[state.State] = state
	return nil
}

// ConsumeState reads and deletes under one critical section, so concurrent
// callbacks on the same state value cannot both succeed.
func (s *InMemoryStore) ConsumeState(_ context.Context, state string) (*AuthState, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	record, ok := s.states[state]
	if !ok {
		return nil, ErrStateNotFound
	}
	delete(s.states, state)
	return &record, nil
}

// PutSession stores a session keyed by its ID.
func (s *InMemoryStore) PutSession(_ context.Context, session Session) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sessions[session.ID] = session
	return nil
}

// GetSession returns the session or ErrSessionNotFound.
func (s *InMemoryStore) GetSession(_ context.Context, id string) (*Session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	session, ok := s.sessions[id]
	if !ok {
		return nil, ErrSessionNotFound
	}
	return &session, nil
}

// DeleteSession removes a session; absent sessions are a no-op.
func (s *InMemoryStore) DeleteSession(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.sessions, id)
	return nil
}

// CleanupExpired removes expired state and session records.
func (s *InMemoryStore) CleanupExpired(_ context.Context, now time.Time) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var removed int64
	for key, state := range s.states {
		if now.After(state.ExpiresAt) {
			delete(s.states, key)
			removed++
		}
	}
	for id, session := range s.sessions {
		if now.After(session.ExpiresAt) {
			delete(s.sessions, id)
			removed++
		}
	}
	return removed, nil
}
