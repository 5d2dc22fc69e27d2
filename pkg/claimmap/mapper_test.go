package claimmap

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/llm4s/rag-in-a-box/pkg/idtoken"
	"github.com/llm4s/rag-in-a-box/pkg/principal"
)

func validatedToken() *idtoken.ValidatedIDToken {
	return &idtoken.ValidatedIDToken{
		Subject: "subject-1",
		Email:   "u1@example.com",
		Name:    "User One",
		Groups:  []string{"eng", "ops"},
	}
}

func TestMapper_ToAuthorization(t *testing.T) {
	ctx := context.Background()
	mapper := NewMapper(principal.NewInMemoryRegistry(), time.Hour)

	authz, err := mapper.ToAuthorization(ctx, validatedToken())
	require.NoError(t, err)

	assert.Equal(t, "u1@example.com", authz.User.Key)
	assert.Equal(t, principal.TypeUser, authz.User.Type)
	require.Len(t, authz.Groups, 2)
	assert.Equal(t, "eng", authz.Groups[0].Key)
	assert.Equal(t, "ops", authz.Groups[1].Key)

	// Repeat logins resolve to the same principals.
	again, err := mapper.ToAuthorization(ctx, validatedToken())
	require.NoError(t, err)
	assert.Equal(t, authz.User.ID, again.User.ID)
	assert.Equal(t, authz.Groups[0].ID, again.Groups[0].ID)
}

func TestMapper_ToAuthorization_SubjectFallback(t *testing.T) {
	ctx := context.Background()
	mapper := NewMapper(principal.NewInMemoryRegistry(), time.Hour)

	tok := validatedToken()
	tok.Email = ""

	authz, err := mapper.ToAuthorization(ctx, tok)
	require.NoError(t, err)
	assert.Equal(t, "subject-1", authz.User.Key)
}

func TestMapper_ToAuthorization_NoIdentity(t *testing.T) {
	mapper := NewMapper(principal.NewInMemoryRegistry(), time.Hour)

	_, err := mapper.ToAuthorization(context.Background(), &idtoken.ValidatedIDToken{})
	assert.Error(t, err)
}

func TestMapper_ToSession(t *testing.T) {
	mapper := NewMapper(principal.NewInMemoryRegistry(), time.Hour)

	session := mapper.ToSession(validatedToken(), "google")

	assert.NotEmpty(t, session.ID)
	assert.Equal(t, "u1@example.com", session.UserID)
	assert.Equal(t, []string{"eng", "ops"}, session.Groups)
	assert.Equal(t, "google", session.Provider)

	// Absolute expiry, fixed at creation.
	assert.WithinDuration(t, session.CreatedAt.Add(time.Hour), session.ExpiresAt, time.Second)

	// Successive sessions never share an ID.
	assert.NotEqual(t, session.ID, mapper.ToSession(validatedToken(), "google").ID)
}

func TestMapper_ToSession_InjectedClock(t *testing.T) {
	at := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	mapper := NewMapper(principal.NewInMemoryRegistry(), 8*time.Hour,
		WithClock(func() time.Time { return at }))

	session := mapper.ToSession(validatedToken(), "okta")

	assert.Equal(t, at, session.CreatedAt)
	assert.Equal(t, at.Add(8*time.Hour), session.ExpiresAt)
}

func TestTokenView(t *testing.T) {
	mapper := NewMapper(principal.NewInMemoryRegistry(), time.Hour)
	session := mapper.ToSession(validatedToken(), "google")

	view := TokenView(&session)
	assert.Equal(t, session.UserID, view.Subject)
	assert.Equal(t, session.Email, view.Email)
	assert.Equal(t, session.Groups, view.Groups)
}
