package session

import "time"

// Session is an issued credential representing an authenticated device for
// a bounded time.
type Session struct {
	Token      string    `json:"token"`
	Identifier string    `json:"identifier"`
	Channel    string    `json:"channel"`
	UserID     string    `json:"user_id,omitempty"`
	Elevated   bool      `json:"elevated,omitempty"`
	IssuedAt   time.Time `json:"issued_at"`
	ExpiresAt  time.Time `json:"expires_at"`
}

// ExpiredAt reports whether the session is expired at the given instant. A
// session without a token is always expired.
func (s *Session) ExpiredAt(now time.Time) bool {
	if s == nil || s.Token == "" {
		return true
	}
	return !s.ExpiresAt.After(now)
}

// Expired reports whether the session is expired now.
func (s *Session) Expired() bool {
	return s.ExpiredAt(time.Now())
}
