package oauthstore

import (
	"context"
	"errors"
	"time"
)

// Store errors. The flow layer translates these into its kinded error
// taxonomy; the store itself stays protocol-agnostic.
var (
	ErrStateNotFound   = errors.New("authorization state not found")
	ErrSessionNotFound = errors.New("session not found")
)

// Store persists one-time authorization state and authenticated sessions.
// Implementations must make ConsumeState atomic: of any number of
// concurrent calls for the same state value, exactly one receives the
// record and all others receive ErrStateNotFound.
type Store interface {
	// PutState stores the authorization state for a login attempt.
	PutState(ctx context.Context, state AuthState) error

	// ConsumeState atomically reads and deletes the state record.
	// The TTL check is the caller's job; expired records are still
	// returned (and still deleted) so the caller can distinguish
	// "expired" from "never existed or already used".
	ConsumeState(ctx context.Context, state string) (*AuthState, error)

	// PutSession stores a session keyed by its ID.
	PutSession(ctx context.Context, session Session) error

	// GetSession returns the session or ErrSessionNotFound. Expiry is
	// not checked here; the flow layer deletes lazily.
	GetSession(ctx context.Context, id string) (*Session, error)

	// DeleteSession removes a session. Deleting an absent session is
	// not an error.
	DeleteSession(ctx context.Context, id string) error

	// CleanupExpired removes expired state and session records and
	// returns the number of records removed.
	CleanupExpired(ctx context.Context, now time.Time) (int64, error)
}
