// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 EmberMUD Contributors

package conn

import (
	"sync"

	"github.com/embermud/embermud/internal/transcript"
)

// Transcript sentinel entries. Masked input is represented by exactly one
// MaskedSentinel per masked run and one UnmaskedSentinel when masking
// turns off; the characters themselves never reach the transcript.
const (
	MaskedSentinel   = "[PASSWORD INPUT MASKED]"
	UnmaskedSentinel = "[PASSWORD INPUT COMPLETE]"
	ErrorEntryPrefix = "[ERROR] "
)

// Journal applies the masking and raw-logging policy for one session's
// transcript. Every transport variant routes its traffic through one
// Journal, so the policy cannot drift between variants.
type Journal struct {
	mu         sync.Mutex
	session    string
	store      transcript.Store
	rec        transcript.Recorder
	enabled    bool
	masked     bool
	maskLogged bool
}

// NewJournal creates a Journal for the given session id. A nil store
// falls back to transcript.Discard.
func NewJournal(session string, store transcript.Store) *Journal {
	if store == nil {
		store = transcript.Discard
	}
	return &Journal{session: session, store: store}
}

// SetEnabled toggles transcript mirroring. The underlying transcript is
// opened on first enable and stays open until Close, so disable/enable
// cycles append to the same transcript.
func (j *Journal) SetEnabled(on bool) {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.enabled = on
	if on && j.rec == nil {
		j.rec = j.store.Session(j.session)
	}
}

// Enabled reports whether transcript mirroring is on.
func (j *Journal) Enabled() bool {
	j.mu.Lock()
	defer j.mu.Unlock()
	return j.enabled
}

// SetMasked toggles password-entry mode. Turning masking on resets the
// once-per-run sentinel flag; turning it off writes the completion
// sentinel. Calls that do not change the mode do nothing, so repeated
// SetMasked(false) cannot produce duplicate sentinels.
func (j *Journal) SetMasked(on bool) {
	j.mu.Lock()
	defer j.mu.Unlock()
	if on == j.masked {
		return
	}
	j.masked = on
	if on {
		j.maskLogged = false
		return
	}
	if j.enabled && j.rec != nil {
		j.rec.Record(UnmaskedSentinel)
	}
}

// Masked reports whether password-entry mode is on.
func (j *Journal) Masked() bool {
	j.mu.Lock()
	defer j.mu.Unlock()
	return j.masked
}

// Input mirrors one inbound chunk. While masked the chunk is dropped and
// the masked sentinel is written once for the whole run, on the first
// masked input.
func (j *Journal) Input(text string) {
	j.mu.Lock()
	defer j.mu.Unlock()
	if j.masked {
		if !j.maskLogged && j.enabled && j.rec != nil {
			j.rec.Record(MaskedSentinel)
			j.maskLogged = true
		}
		return
	}
	if j.enabled && j.rec != nil {
		j.rec.Record(text)
	}
}

// Output mirrors one outbound chunk. Output is never masked; prompts and
// responses stay in the transcript even during password entry.
func (j *Journal) Output(text string) {
	j.mu.Lock()
	defer j.mu.Unlock()
	if j.enabled && j.rec != nil {
		j.rec.Record(text)
	}
}

// Error writes one "[ERROR] ..." entry.
func (j *Journal) Error(msg string) {
	j.mu.Lock()
	defer j.mu.Unlock()
	if j.enabled && j.rec != nil {
		j.rec.Record(ErrorEntryPrefix + msg)
	}
}

// Close closes the transcript. Idempotent.
func (j *Journal) Close() {
	j.mu.Lock()
	defer j.mu.Unlock()
	if j.rec != nil {
		_ = j.rec.Close()
		j.rec = nil
	}
}
