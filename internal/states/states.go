// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 EmberMUD Contributors

// Package states implements the connection lifecycle: the walk from a
// fresh socket through login or account creation to the command loop.
// Each state is a session.Handler registered on the machine. Flow
// context (staged signup fields, the pending transfer user) travels in
// the client's data bag and is scrubbed by exit hooks.
package states

import (
	"log/slog"

	"github.com/samber/oops"

	"github.com/embermud/embermud/internal/auth"
	"github.com/embermud/embermud/internal/command"
	"github.com/embermud/embermud/internal/session"
)

// Data bag keys private to the lifecycle flow. The staged signup
// password and the pending transfer user are sensitive; the owning
// state's exit hook scrubs them.
const (
	dataLoginUser     = "login.username"
	dataLoginAttempts = "login.attempts"
	dataPendingUser   = "login.pendingUser"
	dataSignupStage   = "signup.stage"
	dataSignupUser    = "signup.username"
	dataSignupPass    = "signup.password"
)

// maxPasswordAttempts ends the connection after this many wrong
// passwords in a row.
const maxPasswordAttempts = 3

// Deps carries what the lifecycle states need. GameName defaults to
// "EmberMUD" when empty; MOTD is skipped when empty.
type Deps struct {
	Machine  *session.Machine
	Manager  *session.Manager
	Auth     *auth.Service
	Commands *command.Registry
	Logger   *slog.Logger

	GameName string
	MOTD     string
}

// RegisterAll wires every lifecycle state onto the machine.
func RegisterAll(d Deps) error {
	if d.Machine == nil {
		return oops.Code("STATES_NIL_DEPENDENCY").Errorf("state machine is required")
	}
	if d.Manager == nil {
		return oops.Code("STATES_NIL_DEPENDENCY").Errorf("session manager is required")
	}
	if d.Auth == nil {
		return oops.Code("STATES_NIL_DEPENDENCY").Errorf("auth service is required")
	}
	if d.Commands == nil {
		return oops.Code("STATES_NIL_DEPENDENCY").Errorf("command registry is required")
	}
	if d.Logger == nil {
		d.Logger = slog.Default()
	}
	if d.GameName == "" {
		d.GameName = "EmberMUD"
	}

	d.Machine.RegisterState(NewConnecting(d.GameName, d.MOTD))
	d.Machine.RegisterState(NewLogin(d.Machine, d.Manager, d.Auth, d.Logger))
	d.Machine.RegisterState(NewSignup(d.Auth, d.Logger))
	d.Machine.RegisterState(NewConfirmation(d.Machine, d.Auth, d.Logger))
	d.Machine.RegisterState(NewAuthenticated(d.Commands, d.Logger))
	d.Machine.RegisterState(NewTransfer(d.Machine, d.Manager, d.Logger))
	return nil
}

// oopsCode extracts the error code, or "" for non-oops errors.
func oopsCode(err error) string {
	if oopsErr, ok := oops.AsOops(err); ok {
		return oopsErr.Code()
	}
	return ""
}
