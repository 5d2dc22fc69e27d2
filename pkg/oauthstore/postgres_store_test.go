package oauthstore

import (
	"context"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"
)

func setupTestDatabase(t *testing.T) *pgxpool.Pool {
	t.Helper()
	ctx := context.Background()

	container, err := postgres.Run(ctx,
		"postgres:16-alpine",
		postgres.WithInitScripts(filepath.Join("../../migrations", "authbox_db.sql")),
		postgres.WithDatabase("authbox_db"),
		postgres.WithUsername("authbox"),
		postgres.WithPassword("pwd"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(30*time.Second)),
	)
	require.NoError(t, err)
	t.Cleanup(func() {
		container.Terminate(context.Background())
	})

	connString, err := container.ConnectionString(ctx, "sslmode=disable")
	require.NoError(t, err)

	pool, err := pgxpool.New(ctx, connString)
	require.NoError(t, err)
	t.Cleanup(pool.Close)

	return pool
}

func TestPostgresStore_ConsumeState_SingleUse(t *testing.T) {
	if testing.Short() {
		t.Skip("Skipping PostgreSQL test in short mode")
	}

	ctx := context.Background()
	store := NewPostgresStore(setupTestDatabase(t))

	require.NoError(t, store.PutState(ctx, newState("s1", time.Minute)))

	record, err := store.ConsumeState(ctx, "s1")
	require.NoError(t, err)
	assert.Equal(t, "verifier-s1", record.CodeVerifier)

	_, err = store.ConsumeState(ctx, "s1")
	assert.ErrorIs(t, err, ErrStateNotFound)
}

func TestPostgresStore_ConsumeState_Concurrent(t *testing.T) {
	if testing.Short() {
		t.Skip("Skipping PostgreSQL test in short mode")
	}

	ctx := context.Background()
	store := NewPostgresStore(setupTestDatabase(t))

	require.NoError(t, store.PutState(ctx, newState("s1", time.Minute)))

	const goroutines = 16
	var wg sync.WaitGroup
	wins := make(chan struct{}, goroutines)

	for i := 0; i < goroutines; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := store.ConsumeState(ctx, "s1"); err == nil {
				wins <- struct{}{}
			}
		}()
	}
	wg.Wait()
	close(wins)

	count := 0
	for range wins {
		count++
	}
	assert.Equal(t, 1, count, "exactly one consumer may win")
}

func TestPostgresStore_Sessions(t *testing.T) {
	if testing.Short() {
		t.Skip("Skipping PostgreSQL test in short mode")
	}

	ctx := context.Background()
	store := NewPostgresStore(setupTestDatabase(t))

	session := Session{
		ID:        "sess-1",
		UserID:    "u1@example.com",
		Email:     "u1@example.com",
		Name:      "User One",
		Groups:    []string{"eng", "ops"},
		Provider:  "google",
		CreatedAt: time.Now().UTC(),
		ExpiresAt: time.Now().UTC().Add(time.Hour),
	}
	require.NoError(t, store.PutSession(ctx, session))

	got, err := store.GetSession(ctx, "sess-1")
	require.NoError(t, err)
	assert.Equal(t, "u1@example.com", got.UserID)
	assert.Equal(t, []string{"eng", "ops"}, got.Groups)
	assert.Equal(t, "google", got.Provider)

	require.NoError(t, store.DeleteSession(ctx, "sess-1"))
	_, err = store.GetSession(ctx, "sess-1")
	assert.ErrorIs(t, err, ErrSessionNotFound)
}

func TestPostgresStore_CleanupExpired(t *testing.T) {
	if testing.Short() {
		t.Skip("Skipping PostgreSQL test in short mode")
	}

	ctx := context.Background()
	store := NewPostgresStore(setupTestDatabase(t))
	now := time.Now().UTC()

	require.NoError(t, store.PutState(ctx, newState("live", time.Minute)))
	require.NoError(t, store.PutState(ctx, newState("dead", -time.Minute)))
	require.NoError(t, store.PutSession(ctx, Session{ID: "live", UserID: "u", ExpiresAt: now.Add(time.Hour)}))
	require.NoError(t, store.PutSession(ctx, Session{ID: "dead", UserID: "u", ExpiresAt: now.Add(-time.Hour)}))

	removed, err := store.CleanupExpired(ctx, now)
	require.NoError(t, err)
	assert.Equal(t, int64(2), removed)

	_, err = store.GetSession(ctx, "live")
	assert.NoError(t, err)
	_, err = store.GetSession(ctx, "dead")
	assert.ErrorIs(t, err, ErrSessionNotFound)
}
