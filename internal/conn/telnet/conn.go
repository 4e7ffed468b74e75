// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 EmberMUD Contributors

// Package telnet provides the telnet transport: a raw TCP byte stream
// passed through in both directions, ANSI included, the way classic MUD
// clients expect it.
package telnet

import (
	"errors"
	"io"
	"log/slog"
	"net"
	"sync"

	"github.com/embermud/embermud/internal/conn"
	"github.com/embermud/embermud/internal/transcript"
)

// Conn is a telnet session over a TCP socket. Inbound bytes are emitted
// as data chunks exactly as received, telnet negotiation sequences and
// escape codes included, and outbound text is written verbatim.
type Conn struct {
	*conn.Base

	sock    net.Conn
	writeMu sync.Mutex
}

// NewConn wraps an accepted socket.
func NewConn(sock net.Conn, store transcript.Store, logger *slog.Logger) *Conn {
	return &Conn{
		Base: conn.NewBase(conn.TypeTelnet, sock, store, logger),
		sock: sock,
	}
}

// ReadLoop pumps socket reads into data events until the peer
// disconnects or End is called. It blocks; run it on its own goroutine.
// Delivering from a single loop is what guarantees per-session input
// ordering.
func (c *Conn) ReadLoop() {
	buf := make([]byte, 1024)
	for {
		n, err := c.sock.Read(buf)
		if n > 0 {
			c.EmitData(string(buf[:n]))
		}
		if err != nil {
			if c.IsActive() && !errors.Is(err, io.EOF) && !errors.Is(err, net.ErrClosed) {
				c.EmitError(err)
			}
			c.End()
			return
		}
	}
}

// Write sends text to the client verbatim. Write failures surface as an
// error event followed by disconnect.
func (c *Conn) Write(text string) {
	if !c.IsActive() {
		return
	}
	c.RecordOutput(text)

	c.writeMu.Lock()
	_, err := c.sock.Write([]byte(text))
	c.writeMu.Unlock()

	if err != nil {
		c.Logger().Debug("telnet write failed", "error", err)
		c.EmitError(err)
		c.End()
	}
}

// End terminates the session and closes the socket.
func (c *Conn) End() {
	if c.Finish() {
		if err := c.sock.Close(); err != nil && !errors.Is(err, net.ErrClosed) {
			c.Logger().Debug("telnet close failed", "error", err)
		}
	}
}

// Compile-time interface check.
var _ conn.Conn = (*Conn)(nil)
