// Package claimmap turns validated ID-token claims into the internal
// authorization value and the session record that gets persisted.
package claimmap

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/llm4s/rag-in-a-box/pkg/idtoken"
	"github.com/llm4s/rag-in-a-box/pkg/oauthstore"
	"github.com/llm4s/rag-in-a-box/pkg/principal"
)

// Authorization is the value the permission-aware search path consumes: the
// user principal plus every group principal the token claims membership of.
type Authorization struct {
	User   principal.Principal   `json:"user"`
	Groups []principal.Principal `json:"groups"`
}

// Mapper derives authorization values and session records from validated
// tokens. Principal upserts are idempotent, so repeated logins never
// duplicate records.
type Mapper struct {
	registry      principal.Registry
	maxSessionAge time.Duration
	now           func() time.Time
}

// Option configures a Mapper.
type Option func(*Mapper)

// WithClock overrides the time source, for tests.
func WithClock(now func() time.Time) Option {
	return func(m *Mapper) {
		m.now = now
	}
}

// NewMapper creates a mapper. maxSessionAge fixes the absolute expiry of
// every session the mapper produces.
func NewMapper(registry principal.Registry, maxSessionAge time.Duration, opts ...Option) *Mapper {
	if maxSessionAge <= 0 {
		maxSessionAge = 24 * time.Hour
	}
	m := &Mapper{registry: registry, maxSessionAge: maxSessionAge, now: time.Now}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// ToAuthorization resolves (or creates) the user principal, preferring
// email as the key and falling back to the subject, plus one group
// principal per group claim.
func (m *Mapper) ToAuthorization(ctx context.Context, tok *idtoken.ValidatedIDToken) (*Authorization, error) {
	key := identityKey(tok)
	if key == "" {
		return nil, fmt.Errorf("token carries neither email nor subject")
	}

	user, err := m.registry.UpsertUser(ctx, key, tok.Email, tok.Name)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve user principal: %w", err)
	}

	groups := make([]principal.Principal, 0, len(tok.Groups))
	for _, name := range tok.Groups {
		group, err := m.registry.UpsertGroup(ctx, name)
		if err != nil {
			return nil, fmt.Errorf("failed to resolve group principal %q: %w", name, err)
		}
		groups = append(groups, group)
	}

	return &Authorization{User: user, Groups: groups}, nil
}

// ToSession packages the token's identity fields into a session record with
// an absolute expiry. The expiry never slides on activity.
func (m *Mapper) ToSession(tok *idtoken.ValidatedIDToken, provider string) oauthstore.Session {
	now := m.now()
	return oauthstore.Session{
		ID:        uuid.New().String(),
		UserID:    identityKey(tok),
		Email:     tok.Email,
		Name:      tok.Name,
		Groups:    tok.Groups,
		Provider:  provider,
		CreatedAt: now,
		ExpiresAt: now.Add(m.maxSessionAge),
	}
}

// TokenView rebuilds the ValidatedIDToken-shaped view of a stored session,
// so existing sessions flow through the same mapping as fresh callbacks.
func TokenView(session *oauthstore.Session) *idtoken.ValidatedIDToken {
	return &idtoken.ValidatedIDToken{
		Subject:   session.UserID,
		Email:     session.Email,
		Name:      session.Name,
		Groups:    session.Groups,
		IssuedAt:  session.CreatedAt,
		ExpiresAt: session.ExpiresAt,
	}
}

// identityKey prefers email over subject as the stable user key.
func identityKey(tok *idtoken.ValidatedIDToken) string {
	if tok.Email != "" {
		return tok.Email
	}
	return tok.Subject
}
