package domain

import "time"

// SessionUser is the identity carried by a Session.
type SessionUser struct {
	ID    string `json:"id"`
	Email string `json:"email"`
}

// Session is an authenticated user context issued by the gateway.
type Session struct {
	AccessToken  string      `json:"access_token"`
	RefreshToken string      `json:"refresh_token,omitempty"`
	ExpiresAt    int64       `json:"expires_at"` // unix seconds, 0 = no expiry
	User         SessionUser `json:"user"`
}

// Expired reports whether the session is past its expiry at now.
func (s *Session) Expired(now time.Time) bool {
	if s == nil {
		return true
	}
	return s.ExpiresAt > 0 && now.Unix() >= s.ExpiresAt
}
