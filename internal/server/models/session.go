package models

import "time"

// SessionState is derived from the stored flags and the clock.
type SessionState string

const (
	SessionActiveValid   SessionState = "active-valid"
	SessionActiveExpired SessionState = "active-expired"
	SessionInactive      SessionState = "inactive"
)

type Session struct {
	ID        string
	Token     string
	UserID    string
	ExpiresAt time.Time
	IsActive  bool
	CreatedAt time.Time
	UpdatedAt time.Time
}

// State reports where the session sits in its lifecycle at now.
func (s *Session) State(now time.Time) SessionState {
	switch {
	case !s.IsActive:
		return SessionInactive
	case now.Before(s.ExpiresAt):
		return SessionActiveValid
	default:
		return SessionActiveExpired
	}
}

// Valid is true only for an active session that has not expired.
func (s *Session) Valid(now time.Time) bool {
	return s.State(now) == SessionActiveValid
}
