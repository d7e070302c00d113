package auth

import (
	"sync"
	"time"
)

// Session is one issued credential, keyed by the verified email.
type Session struct {
	Email     string
	IssuedAt  time.Time
	ExpiresAt time.Time
}

// SessionStore is an explicit session table with expiry. It replaces the
// process-wide token map the original backend kept by email.
type SessionStore struct {
	mu       sync.Mutex
	sessions map[string]Session
	ttl      time.Duration
	now      func() time.Time
}

func NewSessionStore(ttl time.Duration) *SessionStore {
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	return &SessionStore{
		sessions: make(map[string]Session),
		ttl:      ttl,
		now:      time.Now,
	}
}

// Put records a fresh session for email, replacing any prior one.
func (s *SessionStore) Put(email string) Session {
	s.mu.Lock()
	defer s.mu.Unlock()
	now := s.now()
	sess := Session{Email: email, IssuedAt: now, ExpiresAt: now.Add(s.ttl)}
	s.sessions[email] = sess
	return sess
}

// Get returns the live session for email. Expired sessions are purged on
// access and report as absent.
func (s *SessionStore) Get(email string) (Session, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	sess, ok := s.sessions[email]
	if !ok {
		return Session{}, false
	}
	if s.now().After(sess.ExpiresAt) {
		delete(s.sessions, email)
		return Session{}, false
	}
	return sess, true
}

// Delete drops the session for email, if any.
func (s *SessionStore) Delete(email string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.sessions, email)
}
