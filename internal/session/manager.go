// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 EmberMUD Contributors

package session

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"
	"github.com/samber/oops"

	"github.com/embermud/embermud/internal/conn"
	"github.com/embermud/embermud/internal/observability"
)

// Sweep defaults. An idle timeout of zero disables the sweep entirely.
const (
	DefaultIdleTimeout   = 30 * time.Minute
	DefaultSweepInterval = time.Minute
)

// record tracks one live session. The editor is only touched from the
// connection's delivery goroutine; lastActivity is guarded by the manager
// mutex because the sweep reads it from its own goroutine.
type record struct {
	client       *Client
	editor       *lineEditor
	lastActivity time.Time
}

// Manager owns the live session records. It is the boundary between
// transports and the state machine: Attach wires a connection's events into
// the machine, and the manager provides the cross-session operations
// (lookup, takeover, broadcast, idle sweep) that individual states cannot
// do on their own.
type Manager struct {
	machine       *Machine
	logger        *slog.Logger
	idleTimeout   time.Duration
	sweepInterval time.Duration

	mu      sync.RWMutex
	records map[string]*record
}

// ManagerOption configures a Manager during construction.
type ManagerOption func(*Manager)

// WithIdleTimeout overrides the idle timeout. Zero disables the sweep.
func WithIdleTimeout(d time.Duration) ManagerOption {
	return func(m *Manager) {
		m.idleTimeout = d
	}
}

// WithSweepInterval overrides how often the sweep checks for idle sessions.
func WithSweepInterval(d time.Duration) ManagerOption {
	return func(m *Manager) {
		m.sweepInterval = d
	}
}

// NewManager creates a session manager bound to a state machine. A nil
// logger falls back to slog.Default.
func NewManager(machine *Machine, logger *slog.Logger, opts ...ManagerOption) (*Manager, error) {
	if machine == nil {
		return nil, oops.Code("SESSION_NIL_MACHINE").Errorf("state machine is required")
	}
	if logger == nil {
		logger = slog.Default()
	}
	m := &Manager{
		machine:       machine,
		logger:        logger,
		idleTimeout:   DefaultIdleTimeout,
		sweepInterval: DefaultSweepInterval,
		records:       make(map[string]*record),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m, nil
}

// Attach registers a freshly accepted connection, wires its events into the
// state machine, and walks the client through connecting into login. The
// returned client is already live: input arriving after Attach is handled.
//
// ctx outlives the call; it is the context input handling runs under for
// this session's lifetime.
func (m *Manager) Attach(ctx context.Context, c conn.Conn) *Client {
	client := NewClient(c)
	rec := &record{
		client:       client,
		editor:       newLineEditor(c),
		lastActivity: time.Now(),
	}

	m.mu.Lock()
	m.records[c.ID()] = rec
	active := len(m.records)
	m.mu.Unlock()

	observability.RecordConnection(string(c.Type()))
	observability.AddActiveSession()
	m.logger.InfoContext(ctx, "session attached",
		"session", c.ID(),
		"transport", c.Type(),
		"active", active)

	c.OnData(func(text string) {
		m.touch(c.ID())
		for _, line := range rec.editor.feed(text) {
			m.machine.HandleInput(ctx, client, line)
		}
	})
	c.OnEnd(func() {
		m.detach(c.ID())
	})
	c.OnError(func(err error) {
		m.logger.WarnContext(ctx, "connection error",
			"session", c.ID(),
			"transport", c.Type(),
			"error", err)
	})

	m.machine.TransitionTo(ctx, client, StateConnecting)
	return client
}

func (m *Manager) detach(id string) {
	m.mu.Lock()
	rec, ok := m.records[id]
	if ok {
		delete(m.records, id)
	}
	active := len(m.records)
	m.mu.Unlock()

	if !ok {
		return
	}

	observability.RemoveActiveSession()
	username := ""
	if u := rec.client.User(); u != nil {
		username = u.Username
	}
	m.logger.Info("session detached",
		"session", id,
		"username", username,
		"active", active)
}

func (m *Manager) touch(id string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if rec, ok := m.records[id]; ok {
		rec.lastActivity = time.Now()
	}
}

// Count returns the number of live sessions.
func (m *Manager) Count() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.records)
}

// Idle returns how long the named session has been without input. Unknown
// sessions report zero.
func (m *Manager) Idle(connID string) time.Duration {
	m.mu.RLock()
	defer m.mu.RUnlock()
	rec, ok := m.records[connID]
	if !ok {
		return 0
	}
	return time.Since(rec.lastActivity)
}

// Clients returns a snapshot of all live clients.
func (m *Manager) Clients() []*Client {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make([]*Client, 0, len(m.records))
	for _, rec := range m.records {
		out = append(out, rec.client)
	}
	return out
}

// ClientForUser returns a live client signed in as the given user,
// excluding the named connection, or nil if there is none. It is how login
// detects that an account is already connected elsewhere.
func (m *Manager) ClientForUser(userID ulid.ULID, exceptConnID string) *Client {
	m.mu.RLock()
	defer m.mu.RUnlock()

	for _, rec := range m.records {
		if rec.client.Conn().ID() == exceptConnID {
			continue
		}
		if u := rec.client.User(); u != nil && u.ID == userID {
			return rec.client
		}
	}
	return nil
}

// Takeover ends any other session signed in as the given user so the new
// connection can claim it. The displaced client is notified before its
// connection ends. Reports whether a session was displaced.
func (m *Manager) Takeover(userID ulid.ULID, newConnID string) bool {
	old := m.ClientForUser(userID, newConnID)
	if old == nil {
		return false
	}

	oldConn := old.Conn()
	oldConn.Write("\r\nYour session has been transferred to another connection.\r\n")
	oldConn.End()
	observability.RecordTakeover()
	m.logger.Info("session takeover",
		"user_id", userID.String(),
		"old_session", oldConn.ID(),
		"new_session", newConnID)
	return true
}

// Broadcast writes text to every authenticated session except the named
// connection.
func (m *Manager) Broadcast(text, exceptConnID string) {
	for _, client := range m.Clients() {
		if client.Conn().ID() == exceptConnID || !client.Authenticated() {
			continue
		}
		client.Conn().Write(text)
	}
}

// Sweep ends sessions idle past the timeout. It blocks until ctx is done
// and is meant to run on its own goroutine. The sweep sits outside the
// input path: it ends the connection, and the normal end wiring detaches
// the session.
func (m *Manager) Sweep(ctx context.Context) {
	if m.idleTimeout <= 0 {
		return
	}

	ticker := time.NewTicker(m.sweepInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			m.sweepIdle()
		}
	}
}

func (m *Manager) sweepIdle() {
	cutoff := time.Now().Add(-m.idleTimeout)

	m.mu.RLock()
	var idle []*Client
	for _, rec := range m.records {
		if rec.lastActivity.Before(cutoff) {
			idle = append(idle, rec.client)
		}
	}
	m.mu.RUnlock()

	for _, client := range idle {
		m.logger.Info("ending idle session",
			"session", client.Conn().ID(),
			"idle_timeout", m.idleTimeout)
		client.Conn().Write("\r\nIdle timeout. Goodbye.\r\n")
		client.Conn().End()
	}
}
