package memory

import (
	"context"
	"sync"

	"github.com/custodia-labs/runit-cli/internal/core/domain"
	"github.com/custodia-labs/runit-cli/internal/core/ports/driven"
)

// Ensure SessionStore implements the interface.
var _ driven.SessionStore = (*SessionStore)(nil)

// SessionStore is an in-memory implementation of driven.SessionStore.
type SessionStore struct {
	mu      sync.RWMutex
	session *domain.Session
}

// NewSessionStore creates a session store, optionally pre-populated.
func NewSessionStore(session *domain.Session) *SessionStore {
	s := &SessionStore{}
	if session != nil {
		c := *session
		s.session = &c
	}
	return s
}

// Token returns the stored bearer token.
func (s *SessionStore) Token(_ context.Context) (string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.session == nil || s.session.Token == "" {
		return "", domain.ErrAuthRequired
	}
	if s.session.IsExpired() {
		return "", domain.ErrAuthExpired
	}
	return s.session.Token, nil
}

// Load returns the stored session.
func (s *SessionStore) Load(_ context.Context) (*domain.Session, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.session == nil {
		return nil, domain.ErrAuthRequired
	}
	c := *s.session
	return &c, nil
}

// Save replaces the stored session.
func (s *SessionStore) Save(_ context.Context, session domain.Session) error {
	if session.Token == "" {
		return domain.ErrInvalidInput
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.session = &session
	return nil
}

// Clear removes the stored session.
func (s *SessionStore) Clear(_ context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.session = nil
	return nil
}
