package token

import (
	"sync"
	"time"
)

// Session is the identity of the signed-in user, derived from the bearer token
type Session struct {
	mu     sync.RWMutex
	raw    string
	claims *Claims
}

// NewSession parses raw and keeps it for connection use.
// An empty raw yields a session without user, which keeps the socket closed.
func NewSession(raw string) (*Session, error) {
	s := &Session{}
	if err := s.Replace(raw); err != nil {
		return nil, err
	}
	return s, nil
}

// Replace swaps the token, e.g. after a refresh
func (s *Session) Replace(raw string) error {
	raw = StripBearer(raw)
	if raw == "" {
		s.mu.Lock()
		s.raw, s.claims = "", nil
		s.mu.Unlock()
		return nil
	}

	claims, err := ParseUnverified(raw)
	if err != nil {
		return err
	}
	if claims.MemberID == "" {
		return ErrMissingSubject
	}

	s.mu.Lock()
	s.raw, s.claims = raw, claims
	s.mu.Unlock()
	return nil
}

// Token returns the raw token or "" when signed out or expired
func (s *Session) Token() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.claims == nil || s.expiredLocked() {
		return ""
	}
	return s.raw
}

// CurrentUserID returns the user id from the token claims
func (s *Session) CurrentUserID() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.claims == nil {
		return ""
	}
	return s.claims.MemberID
}

func (s *Session) expiredLocked() bool {
	if s.claims.ExpiresAt == nil {
		return false
	}
	return time.Now().After(s.claims.ExpiresAt.Time)
}
