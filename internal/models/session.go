package models

import "time"

// Session is the server-side record of an authenticated admin login.
// The session store is authoritative: a session is live only while present there.
type Session struct {
	ID             string
	Username       string
	ClientIP       string
	CreatedAt      time.Time
	ExpiresAt      time.Time
	LastActivityAt time.Time
}

// IsExpired reports whether the session has passed its expiry at now
func (s *Session) IsExpired(now time.Time) bool {
	return now.After(s.ExpiresAt)
}

// SessionIdentity is what a successful validation hands back to the front end
type SessionIdentity struct {
	Username  string    `json:"username"`
	SessionID string    `json:"session_id"`
	ExpiresAt time.Time `json:"expires_at"`
}
