package pkce

import (
	"crypto/sha256"
	"encoding/base64"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGenerateVerifier(t *testing.T) {
	verifier, err := GenerateVerifier()
	require.NoError(t, err)

	// 64 bytes encode to 86 base64url characters
	assert.Len(t, verifier, 86)
	assert.NoError(t, ValidateVerifier(verifier))

	other, err := GenerateVerifier()
	require.NoError(t, err)
	assert.NotEqual(t, verifier, other)
}

func TestChallenge(t *testing.T) {
	verifier := "dBjftJeZ4CVP-mB92K27uhbUJU1p1r_wW1gFWFOEjXk"

	sum := sha256.Sum256([]byte(verifier))
	want := base64.RawURLEncoding.EncodeToString(sum[:])

	assert.Equal(t, want, Challenge(verifier))
}

func TestVerifyChallenge(t *testing.T) {
	verifier, err := GenerateVerifier()
	require.NoError(t, err)

	assert.NoError(t, VerifyChallenge(verifier, Challenge(verifier)))
	assert.Error(t, VerifyChallenge(verifier, Challenge("another-verifier-that-is-long-enough-to-pass")))
	assert.Error(t, VerifyChallenge(verifier, ""))
}

func TestValidateVerifier(t *testing.T) {
	assert.Error(t, ValidateVerifier("too-short"))
	assert.Error(t, ValidateVerifier("contains spaces which are not allowed in a code verifier!!"))

	ok := "ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnop-._~0123456789"
	assert.NoError(t, ValidateVerifier(ok))
}
