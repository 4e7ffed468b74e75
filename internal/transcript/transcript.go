// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 EmberMUD Contributors

// Package transcript stores raw per-session transcripts. Connections
// mirror their input and output here when raw logging is enabled; the
// session id keys one transcript per connection.
package transcript

import (
	"log/slog"
	"os"
	"path/filepath"
	"sync"

	"github.com/samber/oops"
)

// Recorder receives the transcript lines of a single session.
// Implementations must tolerate Record after Close.
type Recorder interface {
	Record(line string)
	Close() error
}

// Store hands out one Recorder per session id.
type Store interface {
	Session(id string) Recorder
}

// Discard is a Store whose recorders drop everything. Used when no
// transcript directory is configured.
var Discard Store = discardStore{}

type discardStore struct{}

func (discardStore) Session(string) Recorder { return discardRecorder{} }

type discardRecorder struct{}

func (discardRecorder) Record(string) {}
func (discardRecorder) Close() error  { return nil }

// FileStore writes one append-only file per session under a directory.
type FileStore struct {
	dir    string
	logger *slog.Logger
}

// NewFileStore creates a FileStore rooted at dir, creating it if needed.
func NewFileStore(dir string) (*FileStore, error) {
	return NewFileStoreWithLogger(dir, slog.New(slog.DiscardHandler))
}

// NewFileStoreWithLogger creates a FileStore with a custom logger.
func NewFileStoreWithLogger(dir string, logger *slog.Logger) (*FileStore, error) {
	if dir == "" {
		return nil, oops.Code("TRANSCRIPT_DIR_EMPTY").Errorf("transcript directory is required")
	}
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return nil, oops.Code("TRANSCRIPT_DIR_FAILED").With("dir", dir).Wrap(err)
	}
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &FileStore{dir: dir, logger: logger}, nil
}

// Session opens the transcript file for the given session id. Open
// failures are logged and degrade to a discarding recorder so transport
// code never has to handle transcript errors inline.
func (s *FileStore) Session(id string) Recorder {
	path := filepath.Join(s.dir, id+".log")
	f, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o640)
	if err != nil {
		s.logger.Warn("transcript open failed", "session", id, "path", path, "error", err)
		return discardRecorder{}
	}
	return &fileRecorder{f: f, logger: s.logger, session: id}
}

type fileRecorder struct {
	mu      sync.Mutex
	f       *os.File
	logger  *slog.Logger
	session string
	closed  bool
}

func (r *fileRecorder) Record(line string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed {
		return
	}
	if _, err := r.f.WriteString(line + "\n"); err != nil {
		r.logger.Warn("transcript write failed", "session", r.session, "error", err)
	}
}

func (r *fileRecorder) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed {
		return nil
	}
	r.closed = true
	if err := r.f.Close(); err != nil {
		return oops.Code("TRANSCRIPT_CLOSE_FAILED").With("session", r.session).Wrap(err)
	}
	return nil
}

// MemoryStore keeps transcripts in memory. Used by tests and harnesses
// that want to assert on exact transcript entries.
type MemoryStore struct {
	mu      sync.RWMutex
	entries map[string][]string
}

// NewMemoryStore creates an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{entries: make(map[string][]string)}
}

// Session returns a recorder appending to the in-memory transcript for id.
func (s *MemoryStore) Session(id string) Recorder {
	return &memoryRecorder{store: s, id: id}
}

// Entries returns a copy of the transcript recorded for id.
func (s *MemoryStore) Entries(id string) []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	src := s.entries[id]
	out := make([]string, len(src))
	copy(out, src)
	return out
}

func (s *MemoryStore) append(id, line string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries[id] = append(s.entries[id], line)
}

type memoryRecorder struct {
	store *MemoryStore
	id    string
}

func (r *memoryRecorder) Record(line string) { r.store.append(r.id, line) }
func (r *memoryRecorder) Close() error       { return nil }
