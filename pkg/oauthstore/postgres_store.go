package oauthstore

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// PostgresStore implements Store on PostgreSQL for multi-instance
// deployments. Two tables: auth_state keyed by state value, auth_sessions
// keyed by session id, both with an expiry column for the cleanup sweep.
type PostgresStore struct {
	pool *pgxpool.Pool
}

// NewPostgresStore creates a PostgreSQL-backed store.
func NewPostgresStore(pool *pgxpool.Pool) *PostgresStore {
	return &PostgresStore{pool: pool}
}

// PutState stores the authorization state for a login attempt.
func (s *PostgresStore) PutState(ctx context.Context, state AuthState) error {
	query := `
		INSERT INTO auth_state (state, code_verifier, redirect_after, created_at, expires_at)
		VALUES ($1, $2, $3, $4, $5)
	`
	_, err := s.pool.Exec(ctx, query,
		state.State,
		state.CodeVerifier,
		state.RedirectAfter,
		state.CreatedAt,
		state.ExpiresAt,
	)
	if err != nil {
		return fmt.Errorf("failed to store auth state: %w", err)
	}
	return nil
}

// ConsumeState reads and deletes the state row inside one transaction.
// SELECT FOR UPDATE serializes concurrent callbacks on the same state
// value across instances; the loser of the race sees no row.
func (s *PostgresStore) ConsumeState(ctx context.Context, state string) (*AuthState, error) {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	record := &AuthState{}
	err = tx.QueryRow(ctx, `
		SELECT state, code_verifier, redirect_after, created_at, expires_at
		FROM auth_state
		WHERE state = $1
		FOR UPDATE
	`, state).Scan(
		&record.State,
		&record.CodeVerifier,
		&record.RedirectAfter,
		&record.CreatedAt,
		&record.ExpiresAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrStateNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read auth state: %w", err)
	}

	if _, err := tx.Exec(ctx, `DELETE FROM auth_state WHERE state = $1`, state); err != nil {
		return nil, fmt.Errorf("failed to delete auth state: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("failed to commit state consumption: %w", err)
	}
	return record, nil
}

// PutSession stores a session keyed by its ID.
func (s *PostgresStore) PutSession(ctx context.Context, session Session) error {
	query := `
		INSERT INTO auth_sessions (id, user_id, email, name, groups, provider, created_at, expires_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`
	// a nil slice would encode as NULL and trip the NOT NULL constraint
	groups := session.Groups
	if groups == nil {
		groups = []string{}
	}

	_, err := s.pool.Exec(ctx, query,
		session.ID,
		session.UserID,
		session.Email,
		session.Name,
		groups,
		session.Provider,
		session.CreatedAt,
		session.ExpiresAt,
	)
	if err != nil {
		return fmt.Errorf("failed to store session: %w", err)
	}
	return nil
}

// GetSession returns the session or ErrSessionNotFound.
func (s *PostgresStore) GetSession(ctx context.Context, id string) (*Session, error) {
	session := &Session{}
	err := s.pool.QueryRow(ctx, `
		SELECT id, user_id, email, name, groups, provider, created_at, expires_at
		FROM auth_sessions
		WHERE id = $1
	`, id).Scan(
		&session.ID,
		&session.UserID,
		&session.Email,
		&session.Name,
		&session.Groups,
		&session.Provider,
		&session.CreatedAt,
		&session.ExpiresAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrSessionNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get session: %w", err)
	}
	return session, nil
}

// DeleteSession removes a session; absent sessions are a no-op.
func (s *PostgresStore) DeleteSession(ctx context.Context, id string) error {
	if _, err := s.pool.Exec(ctx, `DELETE FROM auth_sessions WHERE id = $1`, id); err != nil {
		return fmt.Errorf("failed to delete session: %w", err)
	}
	return nil
}

// CleanupExpired removes expired rows from both tables and returns the
// count removed.
func (s *PostgresStore) CleanupExpired(ctx context.Context, now time.Time) (int64, error) {
	var removed int64

	tag, err := s.pool.Exec(ctx, `DELETE FROM auth_state WHERE expires_at < $1`, now)
	if err != nil {
		return 0, fmt.Errorf("failed to clean up auth state: %w", err)
	}
	removed += tag.RowsAffected()

	tag, err = s.pool.Exec(ctx, `DELETE FROM auth_sessions WHERE expires_at < $1`, now)
	if err != nil {
		return removed, fmt.Errorf("failed to clean up sessions: %w", err)
	}
	removed += tag.RowsAffected()

	return removed, nil
}
