package models

// User is the caller-facing merge of a Credential and, when available,
// its Profile. It never carries the password hash.
type User struct {
	ID           string `json:"id"`
	MobileNumber string `json:"mobile_number"`
	FullName     string `json:"full_name"`
	Username     string `json:"username,omitempty"`
	Bio          string `json:"bio,omitempty"`
	Location     string `json:"location,omitempty"`
	AvatarURL    string `json:"avatar_url,omitempty"`
	IsOnline     bool   `json:"is_online"`
	IsBlocked    bool   `json:"is_blocked"`
	ChatDisabled bool   `json:"chat_disabled"`
}

// NewUser merges c with p. p may be nil.
func NewUser(c *Credential, p *Profile) *User {
	u := &User{ID: c.ID, MobileNumber: c.MobileNumber}
	if p != nil {
		u.FullName = p.FullName
		u.Username = p.Username
		u.Bio = p.Bio
		u.Location = p.Location
		u.AvatarURL = p.AvatarURL
		u.IsOnline = p.IsOnline
		u.IsBlocked = p.IsBlocked
		u.ChatDisabled = p.ChatDisabled
	}
	return u
}
