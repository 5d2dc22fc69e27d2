package principal

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Type discriminates user and group principals.
type Type string

const (
	TypeUser  Type = "user"
	TypeGroup Type = "group"
)

// Principal is an internal identity record that authorization decisions are
// expressed in terms of.
type Principal struct {
	ID        uuid.UUID `json:"id"`
	Type      Type      `json:"type"`
	Key       string    `json:"key"` // email or subject for users, name for groups
	Email     string    `json:"email,omitempty"`
	Name      string    `json:"name,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

// Registry resolves or creates principals. The production registry lives
// outside this module; the claim mapper only depends on this interface.
// Both operations must be idempotent: repeated logins never duplicate
// principal records.
type Registry interface {
	UpsertUser(ctx context.Context, key, email, name string) (Principal, error)
	UpsertGroup(ctx context.Context, name string) (Principal, error)
}

// InMemoryRegistry implements Registry with mutex-guarded maps, for
// single-instance deployments and tests.
type InMemoryRegistry struct {
	mu     sync.Mutex
	users  map[string]Principal
	groups map[string]Principal
}

// NewInMemoryRegistry creates an empty in-memory registry.
func NewInMemoryRegistry() *InMemoryRegistry {
	return &InMemoryRegistry{
		users:  make(map[string]Principal),
		groups: make(map[string]Principal),
	}
}

// UpsertUser returns the user principal for key, creating it on first use.
// Email and name refresh on every call so the record tracks the provider.
func (r *InMemoryRegistry) UpsertUser(_ context.Context, key, email, name string) (Principal, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	p, ok := r.users[key]
	if !ok {
		p = Principal{
			ID:        uuid.New(),
			Type:      TypeUser,
			Key:       key,
			CreatedAt: time.Now(),
		}
	}
	p.Email = email
	p.Name = name
	r.users[key] = p
	return p, nil
}

// UpsertGroup returns the group principal for name, creating it on first use.
func (r *InMemoryRegistry) UpsertGroup(_ context.Context, name string) (Principal, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	p, ok := r.groups[name]
	if !ok {
		p = Principal{
			ID:        uuid.New(),
			Type:      TypeGroup,
			Key:       name,
			Name:      name,
			CreatedAt: time.Now(),
		}
		r.groups[name] = p
	}
	return p, nil
}
