package idtoken

import (
	"context"
	"crypto/rand"
	"crypto/rsa"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/lestrrat-go/jwx/v2/jwk"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/llm4s/rag-in-a-box/pkg/autherrors"
)

const (
	testIssuer   = "https://issuer.example.com"
	testClientID = "ragbox-client"
	testKeyID    = "test-key-1"
)

type jwksFixture struct {
	key    *rsa.PrivateKey
	server *httptest.Server
}

func newJwksFixture(t *testing.T) *jwksFixture {
	t.Helper()

	key, err := rsa.GenerateKey(rand.Reader, 2048)
	require.NoError(t, err)

	pub, err := jwk.FromRaw(&key.PublicKey)
	require.NoError(t, err)
	require.NoError(t, pub.Set(jwk.KeyIDKey, testKeyID))
	require.NoError(t, pub.Set(jwk.AlgorithmKey, "RS256"))

	set := jwk.NewSet()
	require.NoError(t, set.AddKey(pub))

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(set)
	}))
	t.Cleanup(server.Close)

	return &jwksFixture{key: key, server: server}
}

// sign issues a token over the fixture key with the given claims merged
// into a valid baseline.
func (f *jwksFixture) sign(t *testing.T, overrides jwt.MapClaims) string {
	t.Helper()

	claims := jwt.MapClaims{
		"iss":    testIssuer,
		"aud":    testClientID,
		"sub":    "user-123",
		"email":  "u1@example.com",
		"name":   "User One",
		"groups": []string{"eng", "ops"},
		"iat":    time.Now().Unix(),
		"exp":    time.Now().Add(time.Hour).Unix(),
	}
	for k, v := range overrides {
		claims[k] = v
	}

	token := jwt.NewWithClaims(jwt.SigningMethodRS256, claims)
	token.Header["kid"] = testKeyID
	signed, err := token.SignedString(f.key)
	require.NoError(t, err)
	return signed
}

func (f *jwksFixture) validator(t *testing.T) *Validator {
	t.Helper()

	v, err := NewValidator(context.Background(), Config{
		Issuer:   testIssuer,
		ClientID: testClientID,
		JwksURL:  f.server.URL,
	})
	require.NoError(t, err)
	return v
}

func TestValidator_Validate(t *testing.T) {
	fixture := newJwksFixture(t)
	v := fixture.validator(t)

	validated, err := v.Validate(context.Background(), fixture.sign(t, nil))
	require.NoError(t, err)

	assert.Equal(t, "user-123", validated.Subject)
	assert.Equal(t, "u1@example.com", validated.Email)
	assert.Equal(t, "User One", validated.Name)
	assert.Equal(t, []string{"eng", "ops"}, validated.Groups)
	assert.False(t, validated.ExpiresAt.IsZero())
	assert.Equal(t, testIssuer, validated.Claims["iss"])
}

func TestValidator_Validate_WrongIssuer(t *testing.T) {
	fixture := newJwksFixture(t)
	v := fixture.validator(t)

	_, err := v.Validate(context.Background(), fixture.sign(t, jwt.MapClaims{
		"iss": "https://evil.example.com",
	}))
	assert.True(t, autherrors.IsKind(err, autherrors.KindInvalidIssuer))
}

func TestValidator_Validate_WrongAudience(t *testing.T) {
	fixture := newJwksFixture(t)
	v := fixture.validator(t)

	_, err := v.Validate(context.Background(), fixture.sign(t, jwt.MapClaims{
		"aud": "someone-else",
	}))
	assert.True(t, autherrors.IsKind(err, autherrors.KindInvalidAudience))
}

func TestValidator_Validate_Expired(t *testing.T) {
	fixture := newJwksFixture(t)
	v := fixture.validator(t)

	_, err := v.Validate(context.Background(), fixture.sign(t, jwt.MapClaims{
		"exp": time.Now().Add(-time.Hour).Unix(),
	}))
	assert.True(t, autherrors.IsKind(err, autherrors.KindTokenExpired))
}

func TestValidator_Validate_UnknownKey(t *testing.T) {
	fixture := newJwksFixture(t)
	v := fixture.validator(t)

	otherKey, err := rsa.GenerateKey(rand.Reader, 2048)
	require.NoError(t, err)

	token := jwt.NewWithClaims(jwt.SigningMethodRS256, jwt.MapClaims{
		"iss": testIssuer,
		"aud": testClientID,
		"sub": "user-123",
		"exp": time.Now().Add(time.Hour).Unix(),
	})
	token.Header["kid"] = "rotated-away"
	signed, err := token.SignedString(otherKey)
	require.NoError(t, err)

	_, err = v.Validate(context.Background(), signed)
	assert.True(t, autherrors.IsKind(err, autherrors.KindJwksError))
}

func TestValidator_Validate_Garbage(t *testing.T) {
	fixture := newJwksFixture(t)
	v := fixture.validator(t)

	_, err := v.Validate(context.Background(), "not.a.token")
	assert.True(t, autherrors.IsKind(err, autherrors.KindInvalidToken))
}

func TestValidator_RefreshJWKS_RateLimited(t *testing.T) {
	fixture := newJwksFixture(t)

	v, err := NewValidator(context.Background(), Config{
		Issuer:                 testIssuer,
		ClientID:               testClientID,
		JwksURL:                fixture.server.URL,
		ForcedRefreshPerMinute: 2,
	})
	require.NoError(t, err)

	ctx := context.Background()
	// Within the budget the refresh hits the provider; beyond it the call
	// is absorbed without error and keys stay cached.
	for i := 0; i < 5; i++ {
		assert.NoError(t, v.RefreshJWKS(ctx))
	}

	// Keys still serve validations after the limit is reached.
	_, err = v.Validate(ctx, fixture.sign(t, nil))
	assert.NoError(t, err)
}

func TestNewValidator_Configuration(t *testing.T) {
	_, err := NewValidator(context.Background(), Config{Issuer: testIssuer})
	assert.True(t, autherrors.IsKind(err, autherrors.KindConfigurationError))

	_, err = NewValidator(context.Background(), Config{JwksURL: "https://k.example.com/jwks"})
	assert.True(t, autherrors.IsKind(err, autherrors.KindConfigurationError))
}
