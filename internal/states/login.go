// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 EmberMUD Contributors

package states

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/embermud/embermud/internal/auth"
	"github.com/embermud/embermud/internal/observability"
	"github.com/embermud/embermud/internal/session"
)

const loginPrompt = "Account name (or \"new\" to create one): "

// Login asks for an account name, then collects the password in masked
// mode. Three wrong passwords end the connection; a lockout or a
// backend failure resets the flow with a message. When the account is
// already attached on another connection, the flow detours to the
// transfer prompt instead of completing here.
type Login struct {
	machine *session.Machine
	manager *session.Manager
	auth    *auth.Service
	logger  *slog.Logger
}

// NewLogin builds the login state.
func NewLogin(machine *session.Machine, manager *session.Manager, svc *auth.Service, logger *slog.Logger) *Login {
	return &Login{machine: machine, manager: manager, auth: svc, logger: logger}
}

// Name returns the state identifier.
func (s *Login) Name() string { return session.StateLogin }

// Enter clears any leftover flow context and prompts for an account name.
func (s *Login) Enter(_ context.Context, c *session.Client) {
	s.reset(c)
	c.Conn().Write(loginPrompt)
}

// Handle processes the account-name line. "new" is deliberately a
// no-op here; the machine turns it into a signup transition.
func (s *Login) Handle(ctx context.Context, c *session.Client, input string) {
	if input == "" {
		c.Conn().Write(loginPrompt)
		return
	}
	if strings.EqualFold(input, "new") {
		return
	}

	exists, err := s.auth.UserExists(ctx, input)
	if err != nil {
		s.logger.ErrorContext(ctx, "account lookup failed",
			"session_id", c.Conn().ID(),
			"error", err)
		c.Conn().Write("Login is temporarily unavailable. Please try again.\r\n" + loginPrompt)
		return
	}
	if !exists {
		c.Conn().Write("No account by that name. Type \"new\" to create one.\r\n" + loginPrompt)
		return
	}

	c.SetData(dataLoginUser, input)
	c.SetData(session.DataAwaitingPassword, true)
	c.Conn().SetMaskInput(true)
	c.Conn().Write("Password: ")
}

// HandlePassword verifies the password for the stashed account name.
// Returning true tells the machine to complete the login.
func (s *Login) HandlePassword(ctx context.Context, c *session.Client, password string) bool {
	username := c.StringData(dataLoginUser)

	user, err := s.auth.Authenticate(ctx, username, password)
	if err != nil {
		switch oopsCode(err) {
		case "AUTH_ACCOUNT_LOCKED":
			observability.RecordAuthFailure()
			s.reset(c)
			c.Conn().Write("That account is temporarily locked. Try again later.\r\n" + loginPrompt)
		case "AUTH_INVALID_CREDENTIALS":
			observability.RecordAuthFailure()
			attempts := c.IntData(dataLoginAttempts) + 1
			c.SetData(dataLoginAttempts, attempts)
			if attempts >= maxPasswordAttempts {
				c.Conn().Write("Too many failed attempts. Goodbye.\r\n")
				c.Conn().End()
				return false
			}
			c.Conn().Write(fmt.Sprintf("Wrong password (%d of %d). Password: ", attempts, maxPasswordAttempts))
		default:
			s.logger.ErrorContext(ctx, "authentication backend failed",
				"session_id", c.Conn().ID(),
				"error", err)
			s.reset(c)
			c.Conn().Write("Login is temporarily unavailable. Please try again.\r\n" + loginPrompt)
		}
		return false
	}

	c.Conn().SetMaskInput(false)
	c.DeleteData(session.DataAwaitingPassword)
	c.DeleteData(dataLoginUser)
	c.DeleteData(dataLoginAttempts)

	if other := s.manager.ClientForUser(user.ID, c.Conn().ID()); other != nil {
		c.SetData(dataPendingUser, user)
		c.SetData(session.DataAwaitingTransfer, true)
		s.machine.TransitionTo(ctx, c, session.StateTransferRequest)
		return false
	}

	c.SetUser(user)
	return true
}

// Exit leaves masked mode and scrubs the login flow context.
func (s *Login) Exit(_ context.Context, c *session.Client) {
	s.reset(c)
}

func (s *Login) reset(c *session.Client) {
	c.Conn().SetMaskInput(false)
	c.DeleteData(session.DataAwaitingPassword)
	c.DeleteData(dataLoginUser)
	c.DeleteData(dataLoginAttempts)
}

var (
	_ session.Handler         = (*Login)(nil)
	_ session.ExitHandler     = (*Login)(nil)
	_ session.PasswordHandler = (*Login)(nil)
)
