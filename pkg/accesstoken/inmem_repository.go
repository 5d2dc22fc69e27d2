package accesstoken

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
)

// InMemoryRepository implements Repository with mutex-guarded maps, for
// single-instance deployments and tests.
type InMemoryRepository struct {
	mu       sync.RWMutex
	byID     map[uuid.UUID]Token
	byDigest map[string]uuid.UUID
}

// NewInMemoryRepository creates an empty in-memory repository.
func NewInMemoryRepository() *InMemoryRepository {
	return &InMemoryRepository{
		byID:     make(map[uuid.UUID]Token),
		byDigest: make(map[string]uuid.UUID),
	}
}

// Create stores a token record.
func (r *InMemoryRepository) Create(_ context.Context, token Token) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.byID[token.ID] = token
	r.byDigest[token.Digest] = token.ID
	return nil
}

// GetByID returns the token or ErrTokenNotFound.
func (r *InMemoryRepository) GetByID(_ context.Context, id uuid.UUID) (*Token, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	token, ok := r.byID[id]
	if !ok {
		return nil, ErrTokenNotFound
	}
	return &token, nil
}

// GetByDigest returns the token matching the digest or ErrTokenNotFound.
func (r *InMemoryRepository) GetByDigest(_ context.Context, digest string) (*Token, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	id, ok := r.byDigest[digest]
	if !ok {
		return nil, ErrTokenNotFound
	}
	token := r.byID[id]
	return &token, nil
}

// List returns all token records.
func (r *InMemoryRepository) List(_ context.Context) ([]Token, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	tokens := make([]Token, 0, len(r.byID))
	for _, token := range r.byID {
		tokens = append(tokens, token)
	}
	return tokens, nil
}

// Delete revokes a token; absent tokens are a no-op.
func (r *InMemoryRepository) Delete(_ context.Context, id uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	token, ok := r.byID[id]
	if !ok {
		return nil
	}
	delete(r.byDigest, token.Digest)
	delete(r.byID, id)
	return nil
}

// TouchLastUsed records a successful validation.
func (r *InMemoryRepository) TouchLastUsed(_ context.Context, id uuid.UUID, when time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	token, ok := r.byID[id]
	if !ok {
		return ErrTokenNotFound
	}
	token.LastUsedAt = &when
	r.byID[id] = token
	return nil
}

// DeleteExpired removes tokens past their expiry.
func (r *InMemoryRepository) DeleteExpired(_ context.Context, now time.Time) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var removed int64
	for id, token := range r.byID {
		if token.Expired(now) {
			delete(r.byDigest, token.Digest)
			delete(r.byID, id)
			removed++
		}
	}
	return removed, nil
}
