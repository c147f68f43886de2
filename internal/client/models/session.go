// Package models holds the CLI's view of the auth server's data.
package models

import "time"

// User mirrors the user object returned by signup and signin. Signup only
// fills the first four fields.
type User struct {
	ID           string `json:"id"`
	MobileNumber string `json:"mobile_number"`
	FullName     string `json:"full_name"`
	Username     string `json:"username"`
	Bio          string `json:"bio,omitempty"`
	Location     string `json:"location,omitempty"`
	AvatarURL    string `json:"avatar_url,omitempty"`
	IsOnline     bool   `json:"is_online"`
	IsBlocked    bool   `json:"is_blocked"`
	ChatDisabled bool   `json:"chat_disabled"`
}

// Session is what the CLI remembers between runs.
type Session struct {
	Token        string
	UserID       string
	MobileNumber string
	Username     string
	RefreshedAt  time.Time
}

// RefreshDue reports whether at least throttle has passed since the last
// refresh.
func (s *Session) RefreshDue(now time.Time, throttle time.Duration) bool {
	return now.Sub(s.RefreshedAt) >= throttle
}
