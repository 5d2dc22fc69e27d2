package accesstoken

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Scope names a capability an access token grants. The vocabulary is fixed;
// token creation rejects anything outside it.
type Scope string

const (
	ScopeDocumentsRead  Scope = "documents:read"
	ScopeDocumentsWrite Scope = "documents:write"
	ScopeSyncRead       Scope = "sync:read"
	ScopeSyncWrite      Scope = "sync:write"
	ScopeQuery          Scope = "query"
	ScopeAdmin          Scope = "admin"
)

// ValidScopes is the full scope vocabulary.
var ValidScopes = map[Scope]bool{
	ScopeDocumentsRead:  true,
	ScopeDocumentsWrite: true,
	ScopeSyncRead:       true,
	ScopeSyncWrite:      true,
	ScopeQuery:          true,
	ScopeAdmin:          true,
}

// ValidateScopes rejects any scope outside the fixed vocabulary.
func ValidateScopes(scopes []Scope) error {
	if len(scopes) == 0 {
		return fmt.Errorf("at least one scope is required")
	}
	for _, s := range scopes {
		if !ValidScopes[s] {
			return fmt.Errorf("unknown scope: %s", s)
		}
	}
	return nil
}

// Token is the stored metadata of a machine credential. The plaintext
// secret is never stored: only its SHA-256 digest and a short prefix for
// display.
type Token struct {
	ID          uuid.UUID  `json:"id"`
	Name        string     `json:"name"`
	Prefix      string     `json:"prefix"` // first 12 characters, for UI identification
	Digest      string     `json:"-"`      // hex SHA-256 of the full token
	Scopes      []Scope    `json:"scopes"`
	Collections []string   `json:"collections,omitempty"` // empty means unrestricted
	CreatedBy   string     `json:"created_by,omitempty"`
	ExpiresAt   *time.Time `json:"expires_at,omitempty"`
	LastUsedAt  *time.Time `json:"last_used_at,omitempty"`
	CreatedAt   time.Time  `json:"created_at"`
}

// Expired reports whether the token has an expiry in the past.
func (t *Token) Expired(now time.Time) bool {
	return t.ExpiresAt != nil && now.After(*t.ExpiresAt)
}

// HasScope reports whether the token grants the given scope.
func (t *Token) HasScope(scope Scope) bool {
	for _, s := range t.Scopes {
		if s == scope {
			return true
		}
	}
	return false
}

// CreateTokenRequest is the input to Service.Create.
type CreateTokenRequest struct {
	Name        string     `json:"name"`
	Scopes      []Scope    `json:"scopes"`
	Collections []string   `json:"collections,omitempty"`
	CreatedBy   string     `json:"created_by,omitempty"`
	ExpiresAt   *time.Time `json:"expires_at,omitempty"`
}

// CreatedToken pairs the stored metadata with the plaintext secret. The
// plaintext exists only in this value, exactly once, at creation.
type CreatedToken struct {
	Token     Token  `json:"token"`
	Plaintext string `json:"plaintext"`
}

// Grant is what Validate hands to the request-authorization middleware: the
// scopes and collection restriction the caller must enforce.
type Grant struct {
	TokenID     uuid.UUID `json:"token_id"`
	Name        string    `json:"name"`
	Scopes      []Scope   `json:"scopes"`
	Collections []string  `json:"collections,omitempty"`
}
