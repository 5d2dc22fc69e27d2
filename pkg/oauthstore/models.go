package oauthstore

import "time"

// AuthState holds the PKCE and CSRF material for one login attempt. It is
// written when the flow starts and consumed exactly once on the provider
// callback.
type AuthState struct {
	State         string    `json:"state"`
	CodeVerifier  string    `json:"code_verifier"`
	RedirectAfter string    `json:"redirect_after,omitempty"`
	CreatedAt     time.Time `json:"created_at"`
	ExpiresAt     time.Time `json:"expires_at"`
}

// Session is an authenticated browser session. ExpiresAt is absolute,
// computed once at creation; sessions never extend on activity.
type Session struct {
	ID        string    `json:"id"`
	UserID    string    `json:"user_id"`
	Email     string    `json:"email"`
	Name      string    `json:"name"`
	Groups    []string  `json:"groups"`
	Provider  string    `json:"provider"`
	CreatedAt time.Time `json:"created_at"`
	ExpiresAt time.Time `json:"expires_at"`
}

// Expired reports whether the session's absolute expiry has passed.
func (s *Session) Expired(now time.Time) bool {
	return now.After(s.ExpiresAt)
}
