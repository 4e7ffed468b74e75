// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 EmberMUD Contributors

package session

import (
	"unicode"

	"github.com/embermud/embermud/internal/conn"
)

// maxLineLength bounds the pending-line buffer; runes beyond it are dropped
// until the line completes.
const maxLineLength = 1024

// escape-sequence scanner states for dropping ANSI input sequences (arrow
// keys and other CSI input) from the line buffer.
const (
	escNone = iota
	escSeen
	escCSI
)

// lineEditor assembles raw connection data into complete input lines.
// Transports deliver anything from whole lines (telnet line mode, websocket
// input envelopes) down to single keystrokes (socket.io, websocket keypress
// events, virtual per-rune emission); the editor normalizes both into lines
// and handles backspace editing and CRLF folding.
//
// Keystroke-granularity input (a chunk of exactly one rune) is echoed back
// through the connection: the typed rune while unmasked, "\b \b" for an
// erasing backspace, "\r\n" for enter. Multi-rune chunks come from clients
// that already display their own typing and are not echoed.
//
// An editor belongs to one connection's delivery goroutine and needs no
// locking.
type lineEditor struct {
	conn   conn.Conn
	buf    []rune
	esc    int
	skipLF bool
}

func newLineEditor(c conn.Conn) *lineEditor {
	return &lineEditor{conn: c}
}

// feed consumes one data chunk and returns the lines it completed, in
// order. Partial input stays buffered for the next chunk.
func (e *lineEditor) feed(chunk string) []string {
	runes := []rune(chunk)
	keystroke := len(runes) == 1

	var lines []string
	for _, r := range runes {
		if e.esc != escNone {
			e.scanEscape(r)
			continue
		}

		if e.skipLF {
			e.skipLF = false
			if r == '\n' {
				continue
			}
		}

		switch {
		case r == '\r':
			e.skipLF = true
			lines = append(lines, e.take())
			if keystroke {
				e.conn.Write("\r\n")
			}
		case r == '\n':
			lines = append(lines, e.take())
			if keystroke {
				e.conn.Write("\r\n")
			}
		case r == '\b' || r == 0x7f:
			if len(e.buf) == 0 {
				continue
			}
			e.buf = e.buf[:len(e.buf)-1]
			if keystroke && !e.conn.MaskInput() {
				e.conn.Write("\b \b")
			}
		case r == 0x1b:
			e.esc = escSeen
		case unicode.IsPrint(r):
			if len(e.buf) >= maxLineLength {
				continue
			}
			e.buf = append(e.buf, r)
			if keystroke && !e.conn.MaskInput() {
				e.conn.Write(string(r))
			}
		}
	}
	return lines
}

// take returns the pending line and resets the buffer.
func (e *lineEditor) take() string {
	line := string(e.buf)
	e.buf = e.buf[:0]
	return line
}

// scanEscape consumes one rune of an ANSI input sequence. ESC followed by
// '[' opens a CSI sequence that runs until its final byte; any other rune
// after ESC is consumed as a two-rune sequence.
func (e *lineEditor) scanEscape(r rune) {
	switch e.esc {
	case escSeen:
		if r == '[' {
			e.esc = escCSI
			return
		}
		e.esc = escNone
	case escCSI:
		if r >= 0x40 && r <= 0x7e {
			e.esc = escNone
		}
	}
}
