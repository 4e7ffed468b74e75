// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 EmberMUD Contributors

// Package conn defines the uniform connection contract every transport
// variant implements, plus the bookkeeping they share: identity,
// lifecycle, callback registration, input masking, and transcript
// mirroring. The variants live in the telnet, ws, sio, and virtual
// subpackages; downstream code only ever sees this package's Conn.
package conn

// Type tags which transport a connection arrived on.
type Type string

// Transport types.
const (
	TypeTelnet    Type = "telnet"
	TypeWebSocket Type = "websocket"
	TypeSocketIO  Type = "socketio"
	TypeVirtual   Type = "virtual"
)

// Conn is the uniform transport contract. One Conn represents one live
// session regardless of wire format.
//
// Lifecycle: once End is called (or the transport closes), IsActive is
// false permanently, Write becomes a no-op, and no further data or error
// callbacks fire. Write is safe for concurrent use; callbacks for one
// connection fire sequentially from that connection's delivery goroutine.
type Conn interface {
	// ID returns the stable session identifier.
	ID() string
	// Type returns the transport tag.
	Type() Type

	// Write sends text to the client. No-op after End.
	Write(text string)
	// End terminates the session: the transport is closed, the
	// transcript (if any) is closed, and the end callbacks fire once.
	End()
	// IsActive reports whether the session is still live.
	IsActive() bool

	// SetMaskInput toggles password-entry mode. While masked, input is
	// never transcribed verbatim; see Journal for the sentinel rules.
	// Browser transports additionally notify the client so it can switch
	// its input widget.
	SetMaskInput(mask bool)
	// MaskInput reports whether password-entry mode is on.
	MaskInput() bool

	// RawConn exposes the transport-specific handle (net.Conn,
	// *websocket.Conn, ...). Callers must not assume a concrete type.
	RawConn() any

	// EnableRawLogging toggles mirroring of this session's input and
	// output to its transcript.
	EnableRawLogging(enabled bool)
	// RawLoggingEnabled reports whether transcript mirroring is on.
	RawLoggingEnabled() bool

	// OnData registers a callback for inbound input. Data arrives as the
	// transport produced it: whole chunks for telnet, decoded envelope
	// payloads for websocket and socket.io, single runes for virtual.
	OnData(fn func(text string))
	// OnEnd registers a callback fired exactly once when the session ends.
	OnEnd(fn func())
	// OnError registers a callback for transport errors. Errors precede
	// disconnect and never crash the process.
	OnError(fn func(err error))
}
