package accesstoken

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
)

// ErrTokenNotFound is returned for absent tokens. The service reports
// expired and revoked tokens the same way so callers cannot probe which
// tokens ever existed.
var ErrTokenNotFound = errors.New("access token not found")

// Repository persists access-token metadata. Lookup is by digest: the
// plaintext is never stored.
type Repository interface {
	Create(ctx context.Context, token Token) error
	GetByID(ctx context.Context, id uuid.UUID) (*Token, error)
	GetByDigest(ctx context.Context, digest string) (*Token, error)
	List(ctx context.Context) ([]Token, error)
	Delete(ctx context.Context, id uuid.UUID) error

	// TouchLastUsed records a successful validation. Best effort; the
	// service logs failures and moves on.
	TouchLastUsed(ctx context.Context, id uuid.UUID, when time.Time) error

	// DeleteExpired removes tokens past their expiry and returns the
	// count removed.
	DeleteExpired(ctx context.Context, now time.Time) (int64, error)
}
