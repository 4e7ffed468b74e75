// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 EmberMUD Contributors

// Package session binds connections to lifecycle state: the Client record,
// the state machine that routes input through registered state handlers,
// and the Manager that owns live sessions and the idle sweep.
package session

import (
	"sync"

	"github.com/embermud/embermud/internal/auth"
	"github.com/embermud/embermud/internal/conn"
)

// Lifecycle state identifiers. Gameplay states (game, editor, ...) are
// registered externally and are not enumerated here.
const (
	StateConnecting      = "connecting"
	StateLogin           = "login"
	StateSignup          = "signup"
	StateConfirmation    = "confirmation"
	StateAuthenticated   = "authenticated"
	StateTransferRequest = "transfer_request"
)

// StateData keys shared between the machine and state handlers. States keep
// their own working data under their own keys; only cross-cutting keys are
// named here.
const (
	// DataTransitionTo holds a requested target state. It exists only
	// transiently: between a handler requesting a transition and the
	// machine executing it, and during Exit so the exiting handler can
	// branch on the destination.
	DataTransitionTo = "transitionTo"
	// DataAwaitingPassword marks that the next login input is a password
	// and must take the direct password path.
	DataAwaitingPassword = "awaitingPassword"
	// DataAwaitingTransfer marks that the client is answering a session
	// takeover prompt, which suspends the direct password path.
	DataAwaitingTransfer = "awaitingTransferRequest"
	// DataForcedTransition marks that the client reached its current state
	// through a takeover rather than a plain login.
	DataForcedTransition = "forcedTransition"
)

// Client is the server-side record for one session: a connection plus
// lifecycle state, an open per-state data bag, and the authenticated user
// once sign-in completes.
//
// State handlers run sequentially on the connection's delivery goroutine,
// but other goroutines (broadcast, takeover, sweeps) read clients too, so
// all mutable fields live behind the mutex.
type Client struct {
	conn conn.Conn

	mu            sync.Mutex
	state         string
	data          map[string]any
	authenticated bool
	user          *auth.User
}

// NewClient creates a client for a freshly accepted connection. The initial
// state is connecting; the manager immediately transitions through it.
func NewClient(c conn.Conn) *Client {
	return &Client{
		conn:  c,
		state: StateConnecting,
		data:  make(map[string]any),
	}
}

// Conn returns the client's connection.
func (c *Client) Conn() conn.Conn { return c.conn }

// State returns the current lifecycle state identifier.
func (c *Client) State() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

func (c *Client) setState(state string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.state = state
}

// SetData stores a value in the per-state data bag.
func (c *Client) SetData(key string, value any) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.data[key] = value
}

// Data returns a value from the data bag and whether it was present.
func (c *Client) Data(key string) (any, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	v, ok := c.data[key]
	return v, ok
}

// DeleteData removes a key from the data bag.
func (c *Client) DeleteData(key string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.data, key)
}

// BoolData returns the value under key as a bool. Absent or differently
// typed values read as false.
func (c *Client) BoolData(key string) bool {
	v, ok := c.Data(key)
	if !ok {
		return false
	}
	b, _ := v.(bool)
	return b
}

// StringData returns the value under key as a string. Absent or differently
// typed values read as "".
func (c *Client) StringData(key string) string {
	v, ok := c.Data(key)
	if !ok {
		return ""
	}
	s, _ := v.(string)
	return s
}

// IntData returns the value under key as an int. Absent or differently
// typed values read as 0.
func (c *Client) IntData(key string) int {
	v, ok := c.Data(key)
	if !ok {
		return 0
	}
	n, _ := v.(int)
	return n
}

// Authenticated reports whether the client has completed sign-in.
func (c *Client) Authenticated() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.authenticated
}

// User returns the signed-in user, or nil before authentication.
func (c *Client) User() *auth.User {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.user
}

// SetUser records the signed-in user and marks the client authenticated.
func (c *Client) SetUser(u *auth.User) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.user = u
	c.authenticated = u != nil
}
