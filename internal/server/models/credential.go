// Package models defines server-side data models persisted in the database.
package models

import "time"

// Credential binds a mobile number to a password hash. It is the
// authentication root of a user; its ID is shared by the user's Profile.
type Credential struct {
	ID           string
	MobileNumber string
	PasswordHash string
	CreatedAt    time.Time
	UpdatedAt    time.Time
}
