// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 EmberMUD Contributors

package auth

import (
	"context"
	"strings"
	"sync"

	"github.com/oklog/ulid/v2"
	"github.com/samber/oops"
)

// MemoryUserRepository is an in-memory UserRepository. It backs test
// harnesses and database-less deployments; accounts vanish on restart.
type MemoryUserRepository struct {
	mu     sync.RWMutex
	byID   map[ulid.ULID]User
	byName map[string]ulid.ULID
}

// NewMemoryUserRepository creates an empty in-memory repository.
func NewMemoryUserRepository() *MemoryUserRepository {
	return &MemoryUserRepository{
		byID:   make(map[ulid.ULID]User),
		byName: make(map[string]ulid.ULID),
	}
}

// Create stores a new user, enforcing case-insensitive username uniqueness.
func (r *MemoryUserRepository) Create(_ context.Context, user *User) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	key := strings.ToLower(user.Username)
	if _, exists := r.byName[key]; exists {
		return oops.Code("AUTH_USERNAME_TAKEN").
			With("username", user.Username).
			Errorf("username is already taken")
	}

	r.byID[user.ID] = *user
	r.byName[key] = user.ID
	return nil
}

// GetByID retrieves a user by ID.
func (r *MemoryUserRepository) GetByID(_ context.Context, id ulid.ULID) (*User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	user, ok := r.byID[id]
	if !ok {
		return nil, ErrNotFound
	}
	return &user, nil
}

// GetByUsername retrieves a user by username, case-insensitively.
func (r *MemoryUserRepository) GetByUsername(_ context.Context, username string) (*User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	id, ok := r.byName[strings.ToLower(username)]
	if !ok {
		return nil, ErrNotFound
	}
	user := r.byID[id]
	return &user, nil
}

// Update replaces the stored user.
func (r *MemoryUserRepository) Update(_ context.Context, user *User) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	existing, ok := r.byID[user.ID]
	if !ok {
		return ErrNotFound
	}
	if !strings.EqualFold(existing.Username, user.Username) {
		delete(r.byName, strings.ToLower(existing.Username))
		r.byName[strings.ToLower(user.Username)] = user.ID
	}
	r.byID[user.ID] = *user
	return nil
}

// UpdatePassword updates only the password hash.
func (r *MemoryUserRepository) UpdatePassword(_ context.Context, id ulid.ULID, passwordHash string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	user, ok := r.byID[id]
	if !ok {
		return ErrNotFound
	}
	user.PasswordHash = passwordHash
	r.byID[id] = user
	return nil
}

// Delete removes a user.
func (r *MemoryUserRepository) Delete(_ context.Context, id ulid.ULID) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	user, ok := r.byID[id]
	if !ok {
		return ErrNotFound
	}
	delete(r.byName, strings.ToLower(user.Username))
	delete(r.byID, id)
	return nil
}

var _ UserRepository = (*MemoryUserRepository)(nil)
