// Package memory holds the in-process store implementations. A deployment
// that needs durability across restarts swaps these behind the core ports.
package memory

import (
	"fmt"
	"sync"
	"time"

	"github.com/skillswap/live/internal/domain"
)

type SessionStore struct {
	mu       sync.RWMutex
	sessions map[domain.SessionID]domain.LiveSession
}

func NewSessionStore() *SessionStore {
	return &SessionStore{sessions: make(map[domain.SessionID]domain.LiveSession)}
}

func (s *SessionStore) GetByID(id domain.SessionID) (domain.LiveSession, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	sess, ok := s.sessions[id]
	if !ok {
		return domain.LiveSession{}, fmt.Errorf("session %s: %w", id, domain.ErrNotFound)
	}
	return sess, nil
}

func (s *SessionStore) GetOpenByExchange(id domain.ExchangeID) (domain.LiveSession, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, sess := range s.sessions {
		if sess.ExchangeID == id && !sess.Ended() {
			return sess, true
		}
	}
	return domain.LiveSession{}, false
}

func (s *SessionStore) Create(sess domain.LiveSession) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.sessions[sess.ID]; ok {
		return fmt.Errorf("session %s already exists: %w", sess.ID, domain.ErrInvalidState)
	}
	s.sessions[sess.ID] = sess
	return nil
}

func (s *SessionStore) Update(sess domain.LiveSession) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.sessions[sess.ID]; !ok {
		return fmt.Errorf("session %s: %w", sess.ID, domain.ErrNotFound)
	}
	s.sessions[sess.ID] = sess
	return nil
}

func (s *SessionStore) ListWaitingBefore(cutoff time.Time) []domain.LiveSession {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []domain.LiveSession
	for _, sess := range s.sessions {
		if sess.Status != domain.StatusWaiting {
			continue
		}
		if sess.StartTime != nil && sess.StartTime.Before(cutoff) {
			out = append(out, sess)
		}
	}
	return out
}
