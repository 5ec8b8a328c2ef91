// internal/tracker/session_store.go
package tracker

import (
	"context"
	"sync"

	"github.com/google/uuid"
)

// SessionStore manages the active per-account sessions in memory.
type SessionStore struct {
	mu       sync.Mutex
	sessions map[uuid.UUID]*Session
}

// NewSessionStore returns an empty SessionStore.
func NewSessionStore() *SessionStore {
	return &SessionStore{sessions: make(map[uuid.UUID]*Session)}
}

// GetOrCreate returns the owner's session, starting one if absent.
func (s *SessionStore) GetOrCreate(ctx context.Context, ownerID uuid.UUID, deps Deps) (*Session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if sess, ok := s.sessions[ownerID]; ok {
		return sess, nil
	}
	sess, err := NewSession(ctx, ownerID, deps)
	if err != nil {
		return nil, err
	}
	s.sessions[ownerID] = sess
	return sess, nil
}

// Get returns the owner's session if one is running.
func (s *SessionStore) Get(ownerID uuid.UUID) (*Session, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	sess, ok := s.sessions[ownerID]
	return sess, ok
}

// Delete closes and removes the owner's session.
func (s *SessionStore) Delete(ownerID uuid.UUID) {
	s.mu.Lock()
	sess, ok := s.sessions[ownerID]
	delete(s.sessions, ownerID)
	s.mu.Unlock()
	if ok {
		sess.Close()
	}
}

// DeleteIfIdle closes and removes the owner's session when no
// subscriber remains attached. Called as each live socket detaches.
func (s *SessionStore) DeleteIfIdle(ownerID uuid.UUID) {
	s.mu.Lock()
	sess, ok := s.sessions[ownerID]
	if !ok || sess.ListenerCount() > 0 {
		s.mu.Unlock()
		return
	}
	delete(s.sessions, ownerID)
	s.mu.Unlock()
	sess.Close()
}

// CloseAll tears down every session; used on shutdown.
func (s *SessionStore) CloseAll() {
	s.mu.Lock()
	sessions := make([]*Session, 0, len(s.sessions))
	for _, sess := range s.sessions {
		sessions = append(sessions, sess)
	}
	s.sessions = make(map[uuid.UUID]*Session)
	s.mu.Unlock()

	for _, sess := range sessions {
		sess.Close()
	}
}
