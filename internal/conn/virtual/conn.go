// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 EmberMUD Contributors

// Package virtual implements the in-process transport used by automated
// sessions and test harnesses. There is no wire: input is injected with
// SimulateInput and output accumulates in an inspectable buffer.
package virtual

import (
	"log/slog"
	"strings"
	"sync"

	"github.com/embermud/embermud/internal/conn"
	"github.com/embermud/embermud/internal/transcript"
)

// Conn is a connection with no network underneath. It still runs the
// full masking/transcript policy so harness sessions exercise the same
// code paths as real clients.
type Conn struct {
	*conn.Base

	mu     sync.Mutex
	buffer []string
}

// New creates a virtual connection. store may be nil when the harness
// does not assert on transcripts.
func New(store transcript.Store, logger *slog.Logger) *Conn {
	return &Conn{Base: conn.NewBase(conn.TypeVirtual, nil, store, logger)}
}

// SimulateInput delivers s one rune at a time, in order, never as one
// bulk chunk. Per-rune delivery matches what a real terminal produces,
// which is what keeps line editing and password masking behavior
// identical between harness sessions and live ones.
func (c *Conn) SimulateInput(s string) {
	for _, r := range s {
		c.EmitData(string(r))
	}
}

// Write appends text to the output buffer instead of transmitting.
func (c *Conn) Write(text string) {
	if !c.IsActive() {
		return
	}
	c.RecordOutput(text)
	c.mu.Lock()
	c.buffer = append(c.buffer, text)
	c.mu.Unlock()
}

// End terminates the session. The buffered output stays readable so a
// harness can inspect what the session saw before it closed.
func (c *Conn) End() {
	c.Finish()
}

// Output returns everything written so far as one string, optionally
// clearing the buffer.
func (c *Conn) Output(clear bool) string {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := strings.Join(c.buffer, "")
	if clear {
		c.buffer = nil
	}
	return out
}

// OutputLines returns the written output split into non-empty lines,
// optionally clearing the buffer.
func (c *Conn) OutputLines(clear bool) []string {
	joined := c.Output(clear)
	normalized := strings.ReplaceAll(joined, "\r\n", "\n")
	var lines []string
	for _, line := range strings.Split(normalized, "\n") {
		if line != "" {
			lines = append(lines, line)
		}
	}
	return lines
}

// ClearOutput discards the buffered output.
func (c *Conn) ClearOutput() {
	c.mu.Lock()
	c.buffer = nil
	c.mu.Unlock()
}

// BufferSize returns the number of buffered write chunks.
func (c *Conn) BufferSize() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.buffer)
}

// Compile-time interface check.
var _ conn.Conn = (*Conn)(nil)
