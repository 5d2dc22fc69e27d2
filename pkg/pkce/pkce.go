package pkce

import (
	"crypto/rand"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/base64"
	"fmt"
	"strings"
)

// MethodS256 is the only challenge method this package produces. RFC 7636
// also defines "plain", which offers no protection against interception and
// is not supported here.
const MethodS256 = "S256"

// verifierBytes is the entropy of a generated code verifier. 64 random bytes
// encode to 86 base64url characters, within the RFC 7636 limit of 128.
const verifierBytes = 64

// GenerateVerifier generates a cryptographically random code verifier,
// base64url-encoded without padding.
func GenerateVerifier() (string, error) {
	buf := make([]byte, verifierBytes)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("failed to generate random bytes: %w", err)
	}
	return base64.RawURLEncoding.EncodeToString(buf), nil
}

// Challenge derives the S256 code challenge for a verifier:
// base64url(SHA-256(verifier)), unpadded.
func Challenge(verifier string) string {
	sum := sha256.Sum256([]byte(verifier))
	return base64.RawURLEncoding.EncodeToString(sum[:])
}

// VerifyChallenge checks that a code verifier matches an S256 challenge.
func VerifyChallenge(verifier, challenge string) error {
	if err := ValidateVerifier(verifier); err != nil {
		return err
	}
	if challenge == "" {
		return fmt.Errorf("code challenge cannot be empty")
	}
	want := Challenge(verifier)
	if subtle.ConstantTimeCompare([]byte(want), []byte(challenge)) != 1 {
		return fmt.Errorf("code verifier does not match challenge")
	}
	return nil
}

// ValidateVerifier checks the RFC 7636 length and character constraints.
func ValidateVerifier(verifier string) error {
	if len(verifier) < 43 || len(verifier) > 128 {
		return fmt.Errorf("code verifier must be between 43 and 128 characters")
	}
	if !isValidVerifier(verifier) {
		return fmt.Errorf("code verifier contains invalid characters")
	}
	return nil
}

// isValidVerifier checks the unreserved character set of RFC 7636 §4.1
func isValidVerifier(verifier string) bool {
	const allowed = "ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz0123456789-._~"
	for _, char := range verifier {
		if !strings.ContainsRune(allowed, char) {
			return false
		}
	}
	return true
}
