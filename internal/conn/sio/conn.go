// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 EmberMUD Contributors

// Package sio provides the Socket.IO transport. Clients render raw ANSI
// with an in-browser terminal emulator, so outbound text passes through
// untouched; inbound traffic arrives as named events that are flattened
// into the plain data stream upstream code expects.
package sio

import (
	"log/slog"

	"github.com/embermud/embermud/internal/ansi"
	"github.com/embermud/embermud/internal/conn"
	"github.com/embermud/embermud/internal/transcript"
)

// socket is the slice of socketio.Conn the transport needs. Narrowed so
// tests can substitute a fake without a wire-protocol client.
type socket interface {
	ID() string
	Emit(event string, args ...interface{})
	Close() error
}

type outputEvent struct {
	Data string `json:"data"`
}

type maskEvent struct {
	Mask bool `json:"mask"`
}

// specialEvent is the payload of the special event.
type specialEvent struct {
	Key string `json:"key"`
}

// Conn is a Socket.IO session.
type Conn struct {
	*conn.Base

	sock socket
}

// NewConn wraps a connected Socket.IO socket.
func NewConn(sock socket, store transcript.Store, logger *slog.Logger) *Conn {
	return &Conn{
		Base: conn.NewBase(conn.TypeSocketIO, sock, store, logger),
		sock: sock,
	}
}

// Keypress feeds one keypress event into the data stream.
func (c *Conn) Keypress(text string) {
	c.EmitData(text)
}

// SpecialKey translates a named key into its ANSI escape sequence before
// emitting, so upstream logic never sees protocol-specific key names.
// Unknown keys are dropped.
func (c *Conn) SpecialKey(key string) {
	if seq, ok := ansi.SpecialKeySequence(key); ok {
		c.EmitData(seq)
	}
}

// Write sends text as an output event, ANSI intact.
func (c *Conn) Write(text string) {
	if !c.IsActive() {
		return
	}
	c.RecordOutput(text)
	c.sock.Emit("output", outputEvent{Data: text})
}

// SetMaskInput toggles masked mode and tells the client so it can stop
// echoing locally.
func (c *Conn) SetMaskInput(mask bool) {
	c.Base.SetMaskInput(mask)
	if c.IsActive() {
		c.sock.Emit("mask", maskEvent{Mask: mask})
	}
}

// End terminates the session and closes the socket.
func (c *Conn) End() {
	if c.Finish() {
		if err := c.sock.Close(); err != nil {
			c.Logger().Debug("socket.io close failed", "error", err)
		}
	}
}

var _ conn.Conn = (*Conn)(nil)
