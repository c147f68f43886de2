package models

import "time"

// Profile holds the public attributes of a user. ID equals the owning
// Credential's ID.
type Profile struct {
	ID           string
	FullName     string
	Username     string
	Bio          string
	Location     string
	AvatarURL    string
	IsOnline     bool
	IsBlocked    bool
	ChatDisabled bool
	CreatedAt    time.Time
	UpdatedAt    time.Time
}
