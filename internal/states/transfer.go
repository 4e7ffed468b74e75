// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 EmberMUD Contributors

package states

import (
	"context"
	"log/slog"
	"strings"

	"github.com/embermud/embermud/internal/auth"
	"github.com/embermud/embermud/internal/session"
)

// Transfer asks whether to pull an account's session away from the
// connection it is already attached to. Yes displaces the other
// connection and completes the login here; no returns to the login
// prompt with the other session untouched.
type Transfer struct {
	machine *session.Machine
	manager *session.Manager
	logger  *slog.Logger
}

// NewTransfer builds the transfer prompt state.
func NewTransfer(machine *session.Machine, manager *session.Manager, logger *slog.Logger) *Transfer {
	return &Transfer{machine: machine, manager: manager, logger: logger}
}

// Name returns the state identifier.
func (s *Transfer) Name() string { return session.StateTransferRequest }

// Enter explains the conflict, or bails to login when no transfer is
// actually pending.
func (s *Transfer) Enter(ctx context.Context, c *session.Client) {
	if s.pendingUser(c) == nil {
		s.machine.TransitionTo(ctx, c, session.StateLogin)
		return
	}
	c.Conn().Write("That account is already connected elsewhere.\r\nTransfer the session here? (y/n) ")
}

// Handle processes the yes/no answer.
func (s *Transfer) Handle(ctx context.Context, c *session.Client, input string) {
	switch strings.ToLower(input) {
	case "y", "yes":
		user := s.pendingUser(c)
		if user == nil {
			c.SetData(session.DataTransitionTo, session.StateLogin)
			return
		}
		if !s.manager.Takeover(user.ID, c.Conn().ID()) {
			s.logger.DebugContext(ctx, "displaced session already gone",
				"session_id", c.Conn().ID())
		}
		c.SetUser(user)
		c.SetData(session.DataForcedTransition, true)
		c.SetData(session.DataTransitionTo, session.StateAuthenticated)
	case "n", "no":
		c.Conn().Write("Leaving the other session in place.\r\n")
		c.SetData(session.DataTransitionTo, session.StateLogin)
	default:
		c.Conn().Write("Please answer y or n: ")
	}
}

// Exit clears the transfer context so password routing resumes
// normally.
func (s *Transfer) Exit(_ context.Context, c *session.Client) {
	c.DeleteData(session.DataAwaitingTransfer)
	c.DeleteData(dataPendingUser)
}

func (s *Transfer) pendingUser(c *session.Client) *auth.User {
	v, ok := c.Data(dataPendingUser)
	if !ok {
		return nil
	}
	user, _ := v.(*auth.User)
	return user
}

var (
	_ session.Handler     = (*Transfer)(nil)
	_ session.ExitHandler = (*Transfer)(nil)
)
