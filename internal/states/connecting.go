// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 EmberMUD Contributors

package states

import (
	"context"

	"github.com/embermud/embermud/internal/ansi"
	"github.com/embermud/embermud/internal/session"
)

// Connecting greets a fresh connection with the banner. It is
// transient: the machine forwards every arrival straight to login, so
// Handle never sees input in practice.
type Connecting struct {
	gameName string
	motd     string
}

// NewConnecting builds the banner state.
func NewConnecting(gameName, motd string) *Connecting {
	return &Connecting{gameName: gameName, motd: motd}
}

// Name returns the state identifier.
func (s *Connecting) Name() string { return session.StateConnecting }

// Enter writes the banner and the message of the day. The MOTD may use
// %-format codes (%xr, %r, ...); plain text passes through unchanged.
func (s *Connecting) Enter(_ context.Context, c *session.Client) {
	w := c.Conn()
	w.Write(ansi.Bold + "Welcome to " + s.gameName + ansi.Reset + "\r\n")
	if s.motd != "" {
		w.Write(ansi.Expand(s.motd) + "\r\n")
	}
}

// Handle discards input; the state never rests.
func (s *Connecting) Handle(context.Context, *session.Client, string) {}

var _ session.Handler = (*Connecting)(nil)
