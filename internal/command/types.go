// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 EmberMUD Contributors

// Package command provides the in-game command registry, parser, and the
// built-in commands every authenticated session gets.
package command

import (
	"context"

	"github.com/embermud/embermud/internal/session"
)

// Handler is the function signature for command handlers. args is the
// unparsed remainder of the input line with internal whitespace preserved.
type Handler func(ctx context.Context, client *session.Client, args string) error

// Entry represents a registered command.
type Entry struct {
	Name    string  // canonical name (e.g., "say")
	Handler Handler // command implementation
	Help    string  // short description (one line)
	Usage   string  // usage pattern (e.g., "say <message>")
}
