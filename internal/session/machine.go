// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 EmberMUD Contributors

package session

import (
	"context"
	"log/slog"
	"strings"
	"sync"

	"github.com/gobwas/glob"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/embermud/embermud/internal/observability"
)

var tracer = otel.Tracer("embermud/session")

// RedactedPlaceholder replaces input in debug logs whenever the literal
// text may contain credentials.
const RedactedPlaceholder = "[REDACTED]"

// sensitiveCommandWords are command prefixes whose arguments may contain
// credentials. Input matching any of them, optionally "/"-prefixed, is
// redacted from logs outside the login state; inside login every input is
// redacted unconditionally.
var sensitiveCommandWords = []string{
	"password",
	"passwd",
	"changepassword",
	"setpassword",
	"login",
	"register",
}

// Handler is the contract every lifecycle state implements. Enter runs when
// the client transitions into the state; Handle receives each trimmed line
// of input while the state is current.
//
// Handlers must not block: persistence and other slow work must complete
// quickly or be handed off, because one client's input is processed to
// completion before its next line is delivered.
type Handler interface {
	Name() string
	Enter(ctx context.Context, client *Client)
	Handle(ctx context.Context, client *Client, input string)
}

// ExitHandler is the optional exit capability. The machine checks for it at
// transition time; states without it are simply not notified on the way out.
type ExitHandler interface {
	Exit(ctx context.Context, client *Client)
}

// PasswordHandler is the optional direct-password capability. While a login
// client has awaitingPassword set, input bypasses Handle and goes here; the
// return value reports whether the password was accepted and the client
// should move to authenticated.
type PasswordHandler interface {
	HandlePassword(ctx context.Context, client *Client, password string) bool
}

// Machine owns the state-handler registry and performs transitions and
// input routing. Each server instance constructs its own Machine so
// independent instances never share registrations.
//
// The registry is read-mostly: populated at construction, overwritten only
// for test reconfiguration. Panics inside Enter, Handle, or Exit propagate
// to the caller; the machine favors a visible crash over continuing with a
// client in an inconsistent state.
type Machine struct {
	mu       sync.RWMutex
	handlers map[string]Handler

	logger    *slog.Logger
	sensitive []glob.Glob
}

// NewMachine creates an empty state machine. A nil logger falls back to
// slog.Default.
func NewMachine(logger *slog.Logger) *Machine {
	if logger == nil {
		logger = slog.Default()
	}
	return &Machine{
		handlers:  make(map[string]Handler),
		logger:    logger,
		sensitive: compileSensitiveGlobs(),
	}
}

// compileSensitiveGlobs builds the redaction matchers once per machine.
// The word list is hardcoded, so a compile failure is a code bug and
// MustCompile's panic is the right response.
func compileSensitiveGlobs() []glob.Glob {
	globs := make([]glob.Glob, 0, len(sensitiveCommandWords)*2)
	for _, word := range sensitiveCommandWords {
		globs = append(globs, glob.MustCompile(word+"*"), glob.MustCompile("/"+word+"*"))
	}
	return globs
}

// RegisterState inserts a handler keyed by its Name. Registering a name
// twice overwrites the previous handler and logs a warning.
func (m *Machine) RegisterState(h Handler) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.handlers[h.Name()]; ok {
		m.logger.Warn("state conflict: overwriting existing state handler",
			"state", h.Name())
	}
	m.handlers[h.Name()] = h
}

// Handler returns the registered handler for a state.
func (m *Machine) Handler(state string) (Handler, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	h, ok := m.handlers[state]
	return h, ok
}

// TransitionTo moves the client to the target state: the exiting handler's
// Exit runs with stateData.transitionTo still set (so it can branch on the
// destination), then the request is cleared, the state switches, and the
// target's Enter runs.
//
// connecting is transient: transitioning to it immediately forwards to
// login, so it is never the client's resting state after this call returns.
func (m *Machine) TransitionTo(ctx context.Context, client *Client, target string) {
	from := client.State()
	client.SetData(DataTransitionTo, target)

	if h, ok := m.Handler(from); ok {
		if exit, ok := h.(ExitHandler); ok {
			exit.Exit(ctx, client)
		}
	}

	client.DeleteData(DataTransitionTo)
	client.setState(target)
	observability.RecordStateTransition(target)
	m.logger.DebugContext(ctx, "state transition",
		"session", client.Conn().ID(),
		"from", from,
		"to", target)

	if h, ok := m.Handler(target); ok {
		h.Enter(ctx, client)
	}

	if target == StateConnecting {
		m.TransitionTo(ctx, client, StateLogin)
	}
}

// HandleInput routes one line of input: trims it, takes the direct password
// path when a login client is awaiting a password, otherwise dispatches to
// the current state's Handle, then executes any transition the handler
// requested. A login client whose input is "new" (and whose handler
// requested nothing else) is forwarded to signup regardless of whether the
// handler implements that shortcut itself.
//
// Input for a state with no registered handler is logged and dropped.
func (m *Machine) HandleInput(ctx context.Context, client *Client, rawInput string) {
	input := strings.TrimSpace(rawInput)
	state := client.State()

	ctx, span := tracer.Start(ctx, "session.handle_input",
		trace.WithAttributes(
			attribute.String("session.id", client.Conn().ID()),
			attribute.String("session.state", state),
		),
	)
	defer span.End()

	m.logInput(ctx, client, state, input)

	if state == StateLogin && client.BoolData(DataAwaitingPassword) && !client.BoolData(DataAwaitingTransfer) {
		h, ok := m.Handler(StateLogin)
		if !ok {
			m.logger.ErrorContext(ctx, "no handler registered for state",
				"session", client.Conn().ID(),
				"state", state)
			return
		}
		ph, ok := h.(PasswordHandler)
		if !ok {
			m.logger.ErrorContext(ctx, "login handler has no password capability",
				"session", client.Conn().ID())
			return
		}
		if ph.HandlePassword(ctx, client, input) {
			m.TransitionTo(ctx, client, StateAuthenticated)
		}
		return
	}

	h, ok := m.Handler(state)
	if !ok {
		m.logger.ErrorContext(ctx, "no handler registered for state",
			"session", client.Conn().ID(),
			"state", state)
		return
	}

	h.Handle(ctx, client, input)

	if target, ok := client.Data(DataTransitionTo); ok {
		client.DeleteData(DataTransitionTo)
		if name, ok := target.(string); ok {
			m.TransitionTo(ctx, client, name)
		}
		return
	}

	if client.State() == StateLogin && strings.EqualFold(input, "new") {
		m.TransitionTo(ctx, client, StateSignup)
	}
}

// logInput records one input line at debug level. In the login state the
// literal input is never logged: any keystroke there may be a password,
// including outside explicit masked mode. Elsewhere, input is redacted
// while the connection is in masked mode or when it matches a sensitive
// command prefix.
func (m *Machine) logInput(ctx context.Context, client *Client, state, input string) {
	logged := input
	if state == StateLogin || client.Conn().MaskInput() || m.isSensitive(input) {
		logged = RedactedPlaceholder
	}
	m.logger.DebugContext(ctx, "input received",
		"session", client.Conn().ID(),
		"state", state,
		"input", logged)
}

func (m *Machine) isSensitive(input string) bool {
	lower := strings.ToLower(input)
	for _, g := range m.sensitive {
		if g.Match(lower) {
			return true
		}
	}
	return false
}
