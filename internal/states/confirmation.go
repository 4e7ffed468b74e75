// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 EmberMUD Contributors

package states

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/embermud/embermud/internal/auth"
	"github.com/embermud/embermud/internal/session"
)

// Confirmation shows the staged account summary and creates the
// account on explicit consent. Its exit hook scrubs the staged
// credentials no matter where the flow goes next.
type Confirmation struct {
	machine *session.Machine
	auth    *auth.Service
	logger  *slog.Logger
}

// NewConfirmation builds the confirmation state.
func NewConfirmation(machine *session.Machine, svc *auth.Service, logger *slog.Logger) *Confirmation {
	return &Confirmation{machine: machine, auth: svc, logger: logger}
}

// Name returns the state identifier.
func (s *Confirmation) Name() string { return session.StateConfirmation }

// Enter asks for consent, or bails to login when nothing is staged.
func (s *Confirmation) Enter(ctx context.Context, c *session.Client) {
	username := c.StringData(dataSignupUser)
	if username == "" || c.StringData(dataSignupPass) == "" {
		s.machine.TransitionTo(ctx, c, session.StateLogin)
		return
	}
	c.Conn().Write(fmt.Sprintf("Create account %q? (y/n) ", username))
}

// Handle processes the yes/no answer.
func (s *Confirmation) Handle(ctx context.Context, c *session.Client, input string) {
	switch strings.ToLower(input) {
	case "y", "yes":
		s.create(ctx, c)
	case "n", "no":
		c.Conn().Write("Discarded. Returning to login.\r\n")
		c.SetData(session.DataTransitionTo, session.StateLogin)
	default:
		c.Conn().Write("Please answer y or n: ")
	}
}

func (s *Confirmation) create(ctx context.Context, c *session.Client) {
	username := c.StringData(dataSignupUser)

	user, err := s.auth.Register(ctx, username, c.StringData(dataSignupPass))
	if err != nil {
		// The name was free during signup; losing it here means a
		// concurrent registration won.
		if oopsCode(err) == "AUTH_USERNAME_TAKEN" {
			c.Conn().Write("That name was taken while you were signing up.\r\n")
			c.SetData(session.DataTransitionTo, session.StateSignup)
			return
		}
		s.logger.ErrorContext(ctx, "account creation failed",
			"session_id", c.Conn().ID(),
			"username", username,
			"error", err)
		c.Conn().Write("Account creation is temporarily unavailable. Please try again later.\r\n")
		c.SetData(session.DataTransitionTo, session.StateLogin)
		return
	}

	c.Conn().Write(fmt.Sprintf("Account %q created.\r\n", username))
	c.SetUser(user)
	c.SetData(session.DataTransitionTo, session.StateAuthenticated)
}

// Exit scrubs the staged credentials regardless of destination.
func (s *Confirmation) Exit(_ context.Context, c *session.Client) {
	c.DeleteData(dataSignupUser)
	c.DeleteData(dataSignupPass)
}

var (
	_ session.Handler     = (*Confirmation)(nil)
	_ session.ExitHandler = (*Confirmation)(nil)
)
