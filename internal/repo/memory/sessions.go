package memory

import (
	"context"
	"sync"

	"github.com/tazhibayda/smartfarm-api/internal/domain"
)

// Sessions does not reap; expired entries are rejected on read by the authenticator.
type Sessions struct {
	mu sync.Mutex
	m  map[string]domain.Session
}

func NewSessions() *Sessions { return &Sessions{m: make(map[string]domain.Session)} }

func (s *Sessions) Create(_ context.Context, sess *domain.Session) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.m[sess.TokenHash]; ok {
		return &domain.DuplicateKeyError{Field: "session"}
	}
	s.m[sess.TokenHash] = *sess
	return nil
}

func (s *Sessions) Get(_ context.Context, tokenHash string) (*domain.Session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	sess, ok := s.m[tokenHash]
	if !ok {
		return nil, nil
	}
	return &sess, nil
}

func (s *Sessions) Delete(_ context.Context, tokenHash string) error {
	s.mu.Lock()
	delete(s.m, tokenHash)
	s.mu.Unlock()
	return nil
}

func (s *Sessions) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.m)
}
