// Package accesstoken implements long-lived machine credentials for
// non-interactive clients: scoped, optionally collection-restricted,
// optionally expiring bearer tokens validated by digest lookup.
package accesstoken

import (
	"context"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/llm4s/rag-in-a-box/pkg/autherrors"
)

// TokenMarker prefixes every issued token so malformed credentials are
// rejected before any store lookup.
const TokenMarker = "rgb_"

// PrefixLength is how many leading characters of the token are kept for UI
// identification.
const PrefixLength = 12

// Service issues, validates and revokes access tokens.
type Service struct {
	repo Repository
	now  func() time.Time
}

// Option configures a Service.
type Option func(*Service)

// WithClock overrides the time source, for tests.
func WithClock(now func() time.Time) Option {
	return func(s *Service) {
		s.now = now
	}
}

// NewService creates the access token registry over a repository.
func NewService(repo Repository, opts ...Option) *Service {
	s := &Service{repo: repo, now: time.Now}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Create validates the requested scopes, generates the secret and stores
// its digest. The plaintext is returned exactly this once; only its SHA-256
// digest and a 12-character prefix survive.
func (s *Service) Create(ctx context.Context, req CreateTokenRequest) (*CreatedToken, error) {
	if req.Name == "" {
		return nil, autherrors.New(autherrors.KindInvalidScope, "token name is required")
	}
	if err := ValidateScopes(req.Scopes); err != nil {
		return nil, autherrors.Wrap(autherrors.KindInvalidScope, "invalid scopes", err)
	}

	secret := make([]byte, 32)
	if _, err := rand.Read(secret); err != nil {
		return nil, fmt.Errorf("failed to generate token secret: %w", err)
	}
	plaintext := TokenMarker + base64.RawURLEncoding.EncodeToString(secret)

	token := Token{
		ID:          uuid.New(),
		Name:        req.Name,
		Prefix:      plaintext[:PrefixLength],
		Digest:      digest(plaintext),
		Scopes:      req.Scopes,
		Collections: req.Collections,
		CreatedBy:   req.CreatedBy,
		ExpiresAt:   req.ExpiresAt,
		CreatedAt:   s.now(),
	}
	if err := s.repo.Create(ctx, token); err != nil {
		return nil, fmt.Errorf("failed to store access token: %w", err)
	}

	slog.Info("access token created", "id", token.ID, "name", token.Name, "prefix", token.Prefix, "scopes", token.Scopes)
	return &CreatedToken{Token: token, Plaintext: plaintext}, nil
}

// Validate checks a presented bearer token and returns its grant. Expired,
// revoked and malformed tokens are all reported as not found, so callers
// cannot probe which tokens ever existed. The last-used update is best
// effort.
func (s *Service) Validate(ctx context.Context, raw string) (*Grant, error) {
	if !strings.HasPrefix(raw, TokenMarker) {
		return nil, autherrors.New(autherrors.KindTokenNotFound, "no token")
	}

	token, err := s.repo.GetByDigest(ctx, digest(raw))
	if errors.Is(err, ErrTokenNotFound) {
		return nil, autherrors.New(autherrors.KindTokenNotFound, "no token")
	}
	if err != nil {
		return nil, fmt.Errorf("failed to look up access token: %w", err)
	}

	if token.Expired(s.now()) {
		return nil, autherrors.New(autherrors.KindTokenNotFound, "no token")
	}

	if err := s.repo.TouchLastUsed(ctx, token.ID, s.now()); err != nil {
		slog.Warn("failed to record token use", "id", token.ID, "err", err)
	}

	return &Grant{
		TokenID:     token.ID,
		Name:        token.Name,
		Scopes:      token.Scopes,
		Collections: token.Collections,
	}, nil
}

// Get returns a token's metadata by id.
func (s *Service) Get(ctx context.Context, id uuid.UUID) (*Token, error) {
	token, err := s.repo.GetByID(ctx, id)
	if errors.Is(err, ErrTokenNotFound) {
		return nil, autherrors.New(autherrors.KindTokenNotFound, "no token")
	}
	return token, err
}

// List returns all token metadata records.
func (s *Service) List(ctx context.Context) ([]Token, error) {
	return s.repo.List(ctx)
}

// Delete revokes a token immediately. Subsequent Validate calls fail as
// not found.
func (s *Service) Delete(ctx context.Context, id uuid.UUID) error {
	if err := s.repo.Delete(ctx, id); err != nil {
		return fmt.Errorf("failed to revoke access token: %w", err)
	}
	slog.Info("access token revoked", "id", id)
	return nil
}

// digest is the hex SHA-256 of the full plaintext token.
func digest(plaintext string) string {
	sum := sha256.Sum256([]byte(plaintext))
	return hex.EncodeToString(sum[:])
}
