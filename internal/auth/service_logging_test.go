// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 EmberMUD Contributors

package auth_test

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/embermud/embermud/internal/auth"
)

func testLogger() *slog.Logger {
	return slog.New(slog.DiscardHandler)
}

// failingUpdateRepo wraps the in-memory repository so Update fails,
// exercising the best-effort logging path.
type failingUpdateRepo struct {
	*auth.MemoryUserRepository
	updateErr error
}

func (r *failingUpdateRepo) Update(_ context.Context, _ *auth.User) error {
	return r.updateErr
}

// logEntry represents a parsed JSON log entry.
type logEntry struct {
	Level     string `json:"level"`
	Msg       string `json:"msg"`
	Operation string `json:"operation"`
	Error     string `json:"error"`
	UserID    string `json:"user_id"`
}

func TestService_Authenticate_LogsUpdateFailure_RecordFailure(t *testing.T) {
	ctx := context.Background()
	repo := &failingUpdateRepo{
		MemoryUserRepository: auth.NewMemoryUserRepository(),
		updateErr:            errors.New("database connection lost"),
	}

	user, err := auth.NewUser("ember", "hashed:opensesame")
	require.NoError(t, err)
	require.NoError(t, repo.Create(ctx, user))

	var buf bytes.Buffer
	logger := slog.New(slog.NewJSONHandler(&buf, nil))

	svc, err := auth.NewServiceWithLogger(repo, &fakeHasher{}, logger)
	require.NoError(t, err)

	// Wrong password triggers RecordFailure, whose persistence fails.
	_, err = svc.Authenticate(ctx, "ember", "wrongpassword")
	assert.Error(t, err)

	var entry logEntry
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry), "should have logged JSON entry")

	assert.Equal(t, "WARN", entry.Level)
	assert.Contains(t, entry.Msg, "best-effort")
	assert.Equal(t, "record_failure", entry.Operation)
	assert.Contains(t, entry.Error, "database connection lost")
	assert.Equal(t, user.ID.String(), entry.UserID)
}

func TestService_Authenticate_LogsUpdateFailure_RecordSuccess(t *testing.T) {
	ctx := context.Background()
	repo := &failingUpdateRepo{
		MemoryUserRepository: auth.NewMemoryUserRepository(),
		updateErr:            errors.New("database timeout"),
	}

	user, err := auth.NewUser("ember", "hashed:opensesame")
	require.NoError(t, err)
	require.NoError(t, repo.Create(ctx, user))

	var buf bytes.Buffer
	logger := slog.New(slog.NewJSONHandler(&buf, nil))

	svc, err := auth.NewServiceWithLogger(repo, &fakeHasher{}, logger)
	require.NoError(t, err)

	// Login succeeds despite the failed bookkeeping update.
	authed, err := svc.Authenticate(ctx, "ember", "opensesame")
	require.NoError(t, err)
	assert.NotNil(t, authed)

	var entry logEntry
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry), "should have logged JSON entry")

	assert.Equal(t, "WARN", entry.Level)
	assert.Contains(t, entry.Msg, "best-effort")
	assert.Equal(t, "record_success", entry.Operation)
	assert.Contains(t, entry.Error, "database timeout")
}

func TestService_Authenticate_NeverLogsPassword(t *testing.T) {
	ctx := context.Background()
	repo := &failingUpdateRepo{
		MemoryUserRepository: auth.NewMemoryUserRepository(),
		updateErr:            errors.New("disk full"),
	}

	user, err := auth.NewUser("ember", "hashed:opensesame")
	require.NoError(t, err)
	require.NoError(t, repo.Create(ctx, user))

	var buf bytes.Buffer
	logger := slog.New(slog.NewJSONHandler(&buf, nil))

	svc, err := auth.NewServiceWithLogger(repo, &fakeHasher{}, logger)
	require.NoError(t, err)

	_, _ = svc.Authenticate(ctx, "ember", "sup3rs3cret")
	_, _ = svc.Authenticate(ctx, "ember", "opensesame")

	assert.NotContains(t, buf.String(), "sup3rs3cret")
	assert.NotContains(t, buf.String(), "opensesame")
}
