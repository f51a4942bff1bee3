package domain

import "time"

// Session is an opaque bearer token tied to a user. Account provisioning
// happens out of band; this service only validates tokens it is handed.
type Session struct {
	Token     string
	UserID    string
	IsGuest   bool
	CreatedAt time.Time
	ExpiresAt time.Time
}

// Expired reports whether the session is past its expiry.
func (s *Session) Expired(now time.Time) bool {
	return !s.ExpiresAt.IsZero() && now.After(s.ExpiresAt)
}

// Identity returns the caller identity carried by the session.
func (s *Session) Identity() Identity {
	return Identity{UserID: s.UserID, IsGuest: s.IsGuest}
}
