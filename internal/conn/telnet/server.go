// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 EmberMUD Contributors

package telnet

import (
	"context"
	"fmt"
	"log/slog"
	"net"
	"sync"

	"github.com/embermud/embermud/internal/transcript"
)

// Server accepts TCP connections and hands each one to the accept
// callback before its read loop starts, so callers can register event
// handlers without racing the first inbound bytes.
type Server struct {
	addr   string
	accept func(*Conn)
	store  transcript.Store
	logger *slog.Logger

	mu       sync.RWMutex
	listener net.Listener
	conns    map[string]*Conn
}

// NewServer creates a telnet server listening on addr once Run is called.
func NewServer(addr string, accept func(*Conn), store transcript.Store, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Server{
		addr:   addr,
		accept: accept,
		store:  store,
		logger: logger,
		conns:  make(map[string]*Conn),
	}
}

// Addr returns the address the server is listening on. Useful when the
// configured address uses port 0.
func (s *Server) Addr() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.listener == nil {
		return s.addr
	}
	return s.listener.Addr().String()
}

// Run listens on the configured address and accepts connections until
// ctx is cancelled. Open sessions are ended on shutdown.
func (s *Server) Run(ctx context.Context) error {
	listener, err := net.Listen("tcp", s.addr)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", s.addr, err)
	}

	s.mu.Lock()
	s.listener = listener
	s.mu.Unlock()

	s.logger.Info("telnet server started", "addr", listener.Addr().String())

	go func() {
		<-ctx.Done()
		listener.Close()
	}()

	for {
		sock, err := listener.Accept()
		if err != nil {
			select {
			case <-ctx.Done():
				s.endAll()
				return nil
			default:
				s.logger.Error("failed to accept connection", "error", err)
				continue
			}
		}
		s.track(sock)
	}
}

func (s *Server) track(sock net.Conn) {
	c := NewConn(sock, s.store, s.logger)

	s.mu.Lock()
	s.conns[c.ID()] = c
	s.mu.Unlock()

	c.OnEnd(func() {
		s.mu.Lock()
		delete(s.conns, c.ID())
		s.mu.Unlock()
	})

	if s.accept != nil {
		s.accept(c)
	}
	go c.ReadLoop()
}

func (s *Server) endAll() {
	s.mu.RLock()
	open := make([]*Conn, 0, len(s.conns))
	for _, c := range s.conns {
		open = append(open, c)
	}
	s.mu.RUnlock()

	for _, c := range open {
		c.End()
	}
}
