// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 EmberMUD Contributors

package states

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/embermud/embermud/internal/command"
	"github.com/embermud/embermud/internal/session"
)

const commandPrompt = "> "

// Authenticated is the command loop. Input lines are parsed and
// dispatched through the command registry, with a fresh prompt after
// every exchange.
type Authenticated struct {
	commands *command.Registry
	logger   *slog.Logger
}

// NewAuthenticated builds the command loop state.
func NewAuthenticated(reg *command.Registry, logger *slog.Logger) *Authenticated {
	return &Authenticated{commands: reg, logger: logger}
}

// Name returns the state identifier.
func (s *Authenticated) Name() string { return session.StateAuthenticated }

// Enter greets the player. A forced transition (session transfer) gets
// its own greeting so the player knows why their other connection
// closed.
func (s *Authenticated) Enter(_ context.Context, c *session.Client) {
	name := "adventurer"
	if u := c.User(); u != nil {
		name = u.Username
	}
	if c.BoolData(session.DataForcedTransition) {
		c.DeleteData(session.DataForcedTransition)
		c.Conn().Write(fmt.Sprintf("Session moved here. Welcome back, %s.\r\n%s", name, commandPrompt))
		return
	}
	c.Conn().Write(fmt.Sprintf("Welcome, %s! Type \"help\" for a list of commands.\r\n%s", name, commandPrompt))
}

// Handle dispatches one command line.
func (s *Authenticated) Handle(ctx context.Context, c *session.Client, input string) {
	if input == "" {
		c.Conn().Write(commandPrompt)
		return
	}

	parsed, err := command.Parse(input)
	if err != nil {
		c.Conn().Write(commandPrompt)
		return
	}

	entry, ok := s.commands.Get(parsed.Name)
	if !ok {
		c.Conn().Write(fmt.Sprintf("Unknown command %q. Type \"help\" for a list.\r\n%s", parsed.Name, commandPrompt))
		return
	}

	if err := entry.Handler(ctx, c, parsed.Args); err != nil {
		s.logger.WarnContext(ctx, "command failed",
			"command", parsed.Name,
			"session_id", c.Conn().ID(),
			"error", err)
		c.Conn().Write("Something went wrong running that command.\r\n")
	}
	// After quit the connection is inactive and this is a no-op.
	c.Conn().Write(commandPrompt)
}

var _ session.Handler = (*Authenticated)(nil)
