// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 EmberMUD Contributors

package command

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/embermud/embermud/internal/ansi"
	"github.com/embermud/embermud/internal/session"
)

// RegisterBuiltins registers the core commands with the registry.
// Panics if any registration fails (indicates a programming error).
func RegisterBuiltins(reg *Registry, manager *session.Manager) {
	mustRegister := func(entry Entry) {
		if err := reg.Register(entry); err != nil {
			panic("failed to register core command " + entry.Name + ": " + err.Error())
		}
	}

	mustRegister(Entry{
		Name:    "say",
		Handler: sayHandler(manager),
		Help:    "Say something to everyone online",
		Usage:   "say <message>",
	})

	mustRegister(Entry{
		Name:    "who",
		Handler: whoHandler(manager),
		Help:    "List who is online",
		Usage:   "who",
	})

	mustRegister(Entry{
		Name:    "help",
		Handler: helpHandler(reg),
		Help:    "List commands or show usage for one",
		Usage:   "help [command]",
	})

	mustRegister(Entry{
		Name:    "quit",
		Handler: quitHandler(),
		Help:    "Disconnect from the game",
		Usage:   "quit",
	})
}

// speakerName returns the display name for a client's speech.
func speakerName(client *session.Client) string {
	if u := client.User(); u != nil {
		return u.Username
	}
	return "Someone"
}

func sayHandler(manager *session.Manager) Handler {
	return func(_ context.Context, client *session.Client, args string) error {
		message := strings.TrimSpace(args)
		if message == "" {
			client.Conn().Write("Say what?\r\n")
			return nil
		}

		name := speakerName(client)
		client.Conn().Write(fmt.Sprintf("You say, %s\"%s\"%s\r\n", ansi.FgCyan, message, ansi.Reset))
		manager.Broadcast(
			fmt.Sprintf("%s says, %s\"%s\"%s\r\n", name, ansi.FgCyan, message, ansi.Reset),
			client.Conn().ID(),
		)
		return nil
	}
}

func whoHandler(manager *session.Manager) Handler {
	return func(_ context.Context, client *session.Client, _ string) error {
		type row struct {
			name      string
			transport string
			idle      time.Duration
		}

		var rows []row
		for _, c := range manager.Clients() {
			u := c.User()
			if u == nil {
				continue
			}
			rows = append(rows, row{
				name:      u.Username,
				transport: string(c.Conn().Type()),
				idle:      manager.Idle(c.Conn().ID()),
			})
		}
		sort.Slice(rows, func(i, j int) bool { return rows[i].name < rows[j].name })

		var b strings.Builder
		b.WriteString(ansi.Bold + "Online now:" + ansi.Reset + "\r\n")
		for _, r := range rows {
			fmt.Fprintf(&b, "  %-20s %-10s idle %s\r\n", r.name, r.transport, formatIdle(r.idle))
		}
		fmt.Fprintf(&b, "%d connected.\r\n", len(rows))

		client.Conn().Write(b.String())
		return nil
	}
}

// formatIdle renders an idle duration in the coarsest useful unit.
func formatIdle(d time.Duration) string {
	switch {
	case d < time.Minute:
		return fmt.Sprintf("%ds", int(d.Seconds()))
	case d < time.Hour:
		return fmt.Sprintf("%dm", int(d.Minutes()))
	default:
		return fmt.Sprintf("%dh", int(d.Hours()))
	}
}

func helpHandler(reg *Registry) Handler {
	return func(_ context.Context, client *session.Client, args string) error {
		topic := strings.ToLower(strings.TrimSpace(args))
		if topic != "" {
			entry, ok := reg.Get(topic)
			if !ok {
				client.Conn().Write(fmt.Sprintf("No help for %q.\r\n", topic))
				return nil
			}
			client.Conn().Write(fmt.Sprintf("%s: %s\r\nUsage: %s\r\n", entry.Name, entry.Help, entry.Usage))
			return nil
		}

		var b strings.Builder
		b.WriteString("Available commands:\r\n")
		for _, entry := range reg.All() {
			fmt.Fprintf(&b, "  %-14s %s\r\n", entry.Name, entry.Help)
		}
		client.Conn().Write(b.String())
		return nil
	}
}

func quitHandler() Handler {
	return func(_ context.Context, client *session.Client, _ string) error {
		client.Conn().Write("Goodbye!\r\n")
		client.Conn().End()
		return nil
	}
}
