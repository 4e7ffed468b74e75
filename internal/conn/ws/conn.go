// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 EmberMUD Contributors

// Package ws provides the WebSocket transport. Browser clients without a
// terminal emulator speak JSON envelopes both ways: inbound frames carry
// typed input, outbound frames carry either a local-echo character or
// ANSI rendered to HTML.
package ws

import (
	"encoding/json"
	"log/slog"
	"sync"
	"time"
	"unicode/utf8"

	"github.com/gorilla/websocket"

	"github.com/embermud/embermud/internal/ansi"
	"github.com/embermud/embermud/internal/conn"
	"github.com/embermud/embermud/internal/transcript"
)

const writeTimeout = 10 * time.Second

// envelope is the inbound frame shape. Unknown fields are ignored.
type envelope struct {
	Type string `json:"type"`
	Text string `json:"text"`
	Key  string `json:"key"`
}

type echoFrame struct {
	Type string `json:"type"`
	Char string `json:"char"`
}

type outputFrame struct {
	Type string `json:"type"`
	Data string `json:"data"`
}

// maskFrame is a distinct struct so mask:false serializes rather than
// being dropped by omitempty.
type maskFrame struct {
	Type string `json:"type"`
	Mask bool   `json:"mask"`
}

// Conn is a WebSocket session.
type Conn struct {
	*conn.Base

	sock    *websocket.Conn
	writeMu sync.Mutex
}

// NewConn wraps an upgraded WebSocket.
func NewConn(sock *websocket.Conn, store transcript.Store, logger *slog.Logger) *Conn {
	return &Conn{
		Base: conn.NewBase(conn.TypeWebSocket, sock, store, logger),
		sock: sock,
	}
}

// ReadLoop pumps frames into data events until the peer disconnects or
// End is called. It blocks; run it on its own goroutine (or, server
// side, inline in the upgrade handler).
func (c *Conn) ReadLoop() {
	for {
		_, payload, err := c.sock.ReadMessage()
		if err != nil {
			if c.IsActive() && websocket.IsUnexpectedCloseError(err,
				websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				c.EmitError(err)
			}
			c.End()
			return
		}
		if text, ok := decode(payload); ok {
			c.EmitData(text)
		}
	}
}

// decode maps a wire frame to the plain text to emit. Payloads that are
// not JSON envelopes fall back to plain-text input rather than being
// rejected, so dumb clients can still talk to us.
func decode(payload []byte) (string, bool) {
	var env envelope
	if err := json.Unmarshal(payload, &env); err != nil {
		return string(payload), true
	}
	switch env.Type {
	case "input":
		// An input envelope is a complete line; terminate it so the
		// session layer dispatches without waiting for a newline.
		return env.Text + "\n", true
	case "keypress":
		return env.Text, true
	case "special":
		if seq, ok := ansi.SpecialKeySequence(env.Key); ok {
			return seq, true
		}
		return "", false
	default:
		return string(payload), true
	}
}

// Write classifies text for the browser: a single character, the
// three-character backspace-erase sequence, or a bare CRLF becomes an
// echo frame the client renders instantly; everything else is converted
// from ANSI to HTML and sent as an output frame.
func (c *Conn) Write(text string) {
	if !c.IsActive() {
		return
	}
	c.RecordOutput(text)

	if isEcho(text) {
		c.send(echoFrame{Type: "echo", Char: text})
		return
	}
	c.send(outputFrame{Type: "output", Data: ansi.ToHTML(text)})
}

func isEcho(s string) bool {
	return utf8.RuneCountInString(s) == 1 || s == "\b \b" || s == "\r\n"
}

// SetMaskInput toggles masked mode and tells the client so it can stop
// echoing locally.
func (c *Conn) SetMaskInput(mask bool) {
	c.Base.SetMaskInput(mask)
	if c.IsActive() {
		c.send(maskFrame{Type: "mask", Mask: mask})
	}
}

func (c *Conn) send(frame any) {
	c.writeMu.Lock()
	_ = c.sock.SetWriteDeadline(time.Now().Add(writeTimeout))
	err := c.sock.WriteJSON(frame)
	c.writeMu.Unlock()

	if err != nil {
		c.Logger().Debug("websocket write failed", "error", err)
		c.EmitError(err)
		c.End()
	}
}

// End terminates the session, sending a best-effort close frame first.
func (c *Conn) End() {
	if c.Finish() {
		deadline := time.Now().Add(time.Second)
		c.writeMu.Lock()
		_ = c.sock.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""), deadline)
		c.writeMu.Unlock()
		_ = c.sock.Close()
	}
}

var _ conn.Conn = (*Conn)(nil)
