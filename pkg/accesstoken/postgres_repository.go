package accesstoken

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// PostgresRepository implements Repository on PostgreSQL. The api_tokens
// table indexes the digest column for the per-request lookup.
type PostgresRepository struct {
	pool *pgxpool.Pool
}

// NewPostgresRepository creates a PostgreSQL-backed token repository.
func NewPostgresRepository(pool *pgxpool.Pool) *PostgresRepository {
	return &PostgresRepository{pool: pool}
}

const tokenColumns = `id, name, prefix, digest, scopes, collections, created_by, expires_at, last_used_at, created_at`

// Create stores a token record.
func (r *PostgresRepository) Create(ctx context.Context, token Token) error {
	query := `
		INSERT INTO api_tokens (id, name, prefix, digest, scopes, collections, created_by, expires_at, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`
	scopes := make([]string, len(token.Scopes))
	for i, s := range token.Scopes {
		scopes[i] = string(s)
	}

	// a nil slice would encode as NULL and trip the NOT NULL constraint
	collections := token.Collections
	if collections == nil {
		collections = []string{}
	}

	_, err := r.pool.Exec(ctx, query,
		token.ID,
		token.Name,
		token.Prefix,
		token.Digest,
		scopes,
		collections,
		token.CreatedBy,
		token.ExpiresAt,
		token.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create access token: %w", err)
	}
	return nil
}

// GetByID returns the token or ErrTokenNotFound.
func (r *PostgresRepository) GetByID(ctx context.Context, id uuid.UUID) (*Token, error) {
	row := r.pool.QueryRow(ctx, `SELECT `+tokenColumns+` FROM api_tokens WHERE id = $1`, id)
	return scanToken(row)
}

// GetByDigest returns the token matching the digest or ErrTokenNotFound.
func (r *PostgresRepository) GetByDigest(ctx context.Context, digest string) (*Token, error) {
	row := r.pool.QueryRow(ctx, `SELECT `+tokenColumns+` FROM api_tokens WHERE digest = $1`, digest)
	return scanToken(row)
}

// List returns all token records, newest first.
func (r *PostgresRepository) List(ctx context.Context) ([]Token, error) {
	rows, err := r.pool.Query(ctx, `SELECT `+tokenColumns+` FROM api_tokens ORDER BY created_at DESC`)
	if err != nil {
		return nil, fmt.Errorf("failed to list access tokens: %w", err)
	}
	defer rows.Close()

	var tokens []Token
	for rows.Next() {
		token, err := scanToken(rows)
		if err != nil {
			return nil, err
		}
		tokens = append(tokens, *token)
	}
	return tokens, rows.Err()
}

// Delete revokes a token; absent tokens are a no-op.
func (r *PostgresRepository) Delete(ctx context.Context, id uuid.UUID) error {
	if _, err := r.pool.Exec(ctx, `DELETE FROM api_tokens WHERE id = $1`, id); err != nil {
		return fmt.Errorf("failed to delete access token: %w", err)
	}
	return nil
}

// TouchLastUsed records a successful validation.
func (r *PostgresRepository) TouchLastUsed(ctx context.Context, id uuid.UUID, when time.Time) error {
	_, err := r.pool.Exec(ctx, `UPDATE api_tokens SET last_used_at = $2 WHERE id = $1`, id, when)
	if err != nil {
		return fmt.Errorf("failed to update last used time: %w", err)
	}
	return nil
}

// DeleteExpired removes tokens past their expiry.
func (r *PostgresRepository) DeleteExpired(ctx context.Context, now time.Time) (int64, error) {
	tag, err := r.pool.Exec(ctx, `DELETE FROM api_tokens WHERE expires_at IS NOT NULL AND expires_at < $1`, now)
	if err != nil {
		return 0, fmt.Errorf("failed to delete expired tokens: %w", err)
	}
	return tag.RowsAffected(), nil
}

// scanToken reads one token row.
func scanToken(row pgx.Row) (*Token, error) {
	token := &Token{}
	var scopes []string
	var createdBy sql.NullString
	var expiresAt, lastUsedAt sql.NullTime

	err := row.Scan(
		&token.ID,
		&token.Name,
		&token.Prefix,
		&token.Digest,
		&scopes,
		&token.Collections,
		&createdBy,
		&expiresAt,
		&lastUsedAt,
		&token.CreatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrTokenNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan access token: %w", err)
	}

	token.Scopes = make([]Scope, len(scopes))
	for i, s := range scopes {
		token.Scopes[i] = Scope(s)
	}
	if createdBy.Valid {
		token.CreatedBy = createdBy.String
	}
	if expiresAt.Valid {
		token.ExpiresAt = &expiresAt.Time
	}
	if lastUsedAt.Valid {
		token.LastUsedAt = &lastUsedAt.Time
	}
	return token, nil
}
