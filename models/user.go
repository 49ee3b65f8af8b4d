package models

import "time"

const (
	// DefaultOwner represents the legacy single-user watchlist owner used
	// by JSON API callers without a session.
	DefaultOwner = "default"
)

// User models a Reelist profile capable of holding watchlist data.
// Identity is username-only; there is no password credential.
type User struct {
	ID        string    `json:"id"`
	Username  string    `json:"username"`
	CreatedAt time.Time `json:"createdAt"`
}

// Session is a capability-scoped token tying a browser to a user.
type Session struct {
	Token     string    `json:"token"`
	UserID    string    `json:"-"`
	Username  string    `json:"username"`
	CreatedAt time.Time `json:"createdAt"`
	ExpiresAt time.Time `json:"expiresAt"`
}

// Expired reports whether the session is past its expiry.
func (s Session) Expired() bool {
	return time.Now().After(s.ExpiresAt)
}
