// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 EmberMUD Contributors

package conn

import (
	"log/slog"
	"sync"
	"sync/atomic"

	"github.com/embermud/embermud/internal/ids"
	"github.com/embermud/embermud/internal/transcript"
)

// Base carries the bookkeeping shared by every transport variant:
// identity, the active flag, callback registration, and the journal.
// Variants embed *Base and add their wire handling on top; the emit
// methods are the single path through which data, end, and error events
// reach registered callbacks, which is what enforces the "nothing fires
// after End" invariant in one place.
type Base struct {
	id      string
	typ     Type
	raw     any
	logger  *slog.Logger
	journal *Journal
	active  atomic.Bool

	cbMu    sync.Mutex
	dataCbs []func(string)
	endCbs  []func()
	errCbs  []func(error)
}

// NewBase creates the shared bookkeeping for one session. raw is the
// transport-specific handle returned by RawConn; store may be nil for
// transports that never transcribe.
func NewBase(typ Type, raw any, store transcript.Store, logger *slog.Logger) *Base {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	b := &Base{
		id:      ids.NewULID().String(),
		typ:     typ,
		raw:     raw,
		logger:  logger,
		journal: nil,
	}
	b.journal = NewJournal(b.id, store)
	b.active.Store(true)
	return b
}

// ID returns the stable session identifier.
func (b *Base) ID() string { return b.id }

// Type returns the transport tag.
func (b *Base) Type() Type { return b.typ }

// RawConn returns the transport-specific handle.
func (b *Base) RawConn() any { return b.raw }

// IsActive reports whether the session is still live.
func (b *Base) IsActive() bool { return b.active.Load() }

// Logger returns the connection logger, pre-tagged with session and
// transport attributes.
func (b *Base) Logger() *slog.Logger {
	return b.logger.With("session", b.id, "transport", string(b.typ))
}

// SetMaskInput toggles password-entry mode in the journal. Variants with
// a wire-level mask signal shadow this to also notify the client.
func (b *Base) SetMaskInput(mask bool) { b.journal.SetMasked(mask) }

// MaskInput reports whether password-entry mode is on.
func (b *Base) MaskInput() bool { return b.journal.Masked() }

// EnableRawLogging toggles transcript mirroring.
func (b *Base) EnableRawLogging(enabled bool) { b.journal.SetEnabled(enabled) }

// RawLoggingEnabled reports whether transcript mirroring is on.
func (b *Base) RawLoggingEnabled() bool { return b.journal.Enabled() }

// OnData registers a callback for inbound input.
func (b *Base) OnData(fn func(string)) {
	b.cbMu.Lock()
	defer b.cbMu.Unlock()
	b.dataCbs = append(b.dataCbs, fn)
}

// OnEnd registers a callback fired once when the session ends.
func (b *Base) OnEnd(fn func()) {
	b.cbMu.Lock()
	defer b.cbMu.Unlock()
	b.endCbs = append(b.endCbs, fn)
}

// OnError registers a callback for transport errors.
func (b *Base) OnError(fn func(error)) {
	b.cbMu.Lock()
	defer b.cbMu.Unlock()
	b.errCbs = append(b.errCbs, fn)
}

// EmitData mirrors one inbound chunk to the journal and delivers it to
// the data callbacks. Dropped silently once the session has ended.
func (b *Base) EmitData(text string) {
	if !b.active.Load() {
		return
	}
	b.journal.Input(text)
	for _, fn := range b.snapshotData() {
		fn(text)
	}
}

// EmitError records the error in the transcript, then delivers it to the
// error callbacks. Dropped once the session has ended.
func (b *Base) EmitError(err error) {
	if err == nil || !b.active.Load() {
		return
	}
	b.journal.Error(err.Error())
	for _, fn := range b.snapshotErr() {
		fn(err)
	}
}

// RecordOutput mirrors one outbound chunk to the journal. Variants call
// this from their Write implementations.
func (b *Base) RecordOutput(text string) { b.journal.Output(text) }

// Finish flips the session inactive, closes the transcript, and fires the
// end callbacks. Only the first call does anything; it reports whether
// this call performed the shutdown, so variants know to close their
// transport exactly once.
func (b *Base) Finish() bool {
	if !b.active.CompareAndSwap(true, false) {
		return false
	}
	b.journal.Close()
	for _, fn := range b.snapshotEnd() {
		fn()
	}
	return true
}

func (b *Base) snapshotData() []func(string) {
	b.cbMu.Lock()
	defer b.cbMu.Unlock()
	out := make([]func(string), len(b.dataCbs))
	copy(out, b.dataCbs)
	return out
}

func (b *Base) snapshotEnd() []func() {
	b.cbMu.Lock()
	defer b.cbMu.Unlock()
	out := make([]func(), len(b.endCbs))
	copy(out, b.endCbs)
	return out
}

func (b *Base) snapshotErr() []func(error) {
	b.cbMu.Lock()
	defer b.cbMu.Unlock()
	out := make([]func(error), len(b.errCbs))
	copy(out, b.errCbs)
	return out
}
