// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 EmberMUD Contributors

package states

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/embermud/embermud/internal/auth"
	"github.com/embermud/embermud/internal/session"
)

// Signup stage markers stored under dataSignupStage.
const (
	stageUsername = "username"
	stagePassword = "password"
	stageConfirm  = "confirm"
)

const namePrompt = "Choose an account name: "

var passwordPrompt = fmt.Sprintf("Choose a password (at least %d characters): ", auth.MinPasswordLength)

// Signup collects a username and a password in stages, then hands off
// to confirmation. The password stages run in masked mode. The staged
// credentials survive exit only when the destination is confirmation;
// every other exit scrubs them.
type Signup struct {
	auth   *auth.Service
	logger *slog.Logger
}

// NewSignup builds the signup state.
func NewSignup(svc *auth.Service, logger *slog.Logger) *Signup {
	return &Signup{auth: svc, logger: logger}
}

// Name returns the state identifier.
func (s *Signup) Name() string { return session.StateSignup }

// Enter restarts the staged flow from the username prompt.
func (s *Signup) Enter(_ context.Context, c *session.Client) {
	c.SetData(dataSignupStage, stageUsername)
	c.DeleteData(dataSignupUser)
	c.DeleteData(dataSignupPass)
	c.Conn().SetMaskInput(false)
	c.Conn().Write(namePrompt)
}

// Handle advances whichever stage the client is on.
func (s *Signup) Handle(ctx context.Context, c *session.Client, input string) {
	switch c.StringData(dataSignupStage) {
	case stageUsername:
		s.handleUsername(ctx, c, input)
	case stagePassword:
		s.handlePassword(c, input)
	case stageConfirm:
		s.handleConfirm(c, input)
	default:
		// Stage marker lost; start over.
		s.Enter(ctx, c)
	}
}

func (s *Signup) handleUsername(ctx context.Context, c *session.Client, input string) {
	if input == "" {
		c.Conn().Write(namePrompt)
		return
	}
	if err := auth.ValidateUsername(input); err != nil {
		c.Conn().Write(fmt.Sprintf(
			"Names are %d-%d characters, start with a letter, and use only letters, numbers, and underscores.\r\n%s",
			auth.MinUsernameLength, auth.MaxUsernameLength, namePrompt))
		return
	}

	exists, err := s.auth.UserExists(ctx, input)
	if err != nil {
		s.logger.ErrorContext(ctx, "signup name lookup failed",
			"session_id", c.Conn().ID(),
			"error", err)
		c.Conn().Write("Signup is temporarily unavailable. Please try again.\r\n" + namePrompt)
		return
	}
	if exists {
		c.Conn().Write("That name is taken. " + namePrompt)
		return
	}

	c.SetData(dataSignupUser, input)
	c.SetData(dataSignupStage, stagePassword)
	c.Conn().SetMaskInput(true)
	c.Conn().Write(passwordPrompt)
}

func (s *Signup) handlePassword(c *session.Client, input string) {
	if err := auth.ValidatePassword(input); err != nil {
		c.Conn().Write("Too short. " + passwordPrompt)
		return
	}
	c.SetData(dataSignupPass, input)
	c.SetData(dataSignupStage, stageConfirm)
	c.Conn().Write("Confirm password: ")
}

func (s *Signup) handleConfirm(c *session.Client, input string) {
	if input != c.StringData(dataSignupPass) {
		c.DeleteData(dataSignupPass)
		c.SetData(dataSignupStage, stagePassword)
		c.Conn().Write("Passwords do not match. " + passwordPrompt)
		return
	}
	c.Conn().SetMaskInput(false)
	c.SetData(session.DataTransitionTo, session.StateConfirmation)
}

// Exit scrubs the staged credentials unless the flow is moving to
// confirmation, which still needs them to create the account.
func (s *Signup) Exit(_ context.Context, c *session.Client) {
	c.Conn().SetMaskInput(false)
	c.DeleteData(dataSignupStage)
	if c.StringData(session.DataTransitionTo) != session.StateConfirmation {
		c.DeleteData(dataSignupUser)
		c.DeleteData(dataSignupPass)
	}
}

var (
	_ session.Handler     = (*Signup)(nil)
	_ session.ExitHandler = (*Signup)(nil)
)
