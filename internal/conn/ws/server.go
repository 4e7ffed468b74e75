// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 EmberMUD Contributors

package ws

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/embermud/embermud/internal/transcript"
)

// Server upgrades HTTP requests on /ws to WebSocket sessions and hands
// each one to the accept callback before its read loop starts.
type Server struct {
	addr     string
	accept   func(*Conn)
	store    transcript.Store
	logger   *slog.Logger
	upgrader websocket.Upgrader

	mu       sync.RWMutex
	listener net.Listener
	conns    map[string]*Conn
}

// NewServer creates a WebSocket server listening on addr once Run is
// called.
func NewServer(addr string, accept func(*Conn), store transcript.Store, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Server{
		addr:   addr,
		accept: accept,
		store:  store,
		logger: logger,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			// Game clients are served from arbitrary origins.
			CheckOrigin: func(*http.Request) bool { return true },
		},
		conns: make(map[string]*Conn),
	}
}

// Addr returns the address the server is listening on.
func (s *Server) Addr() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.listener == nil {
		return s.addr
	}
	return s.listener.Addr().String()
}

// Run serves WebSocket upgrades until ctx is cancelled. Open sessions
// are ended on shutdown.
func (s *Server) Run(ctx context.Context) error {
	listener, err := net.Listen("tcp", s.addr)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", s.addr, err)
	}

	s.mu.Lock()
	s.listener = listener
	s.mu.Unlock()

	mux := http.NewServeMux()
	mux.HandleFunc("/ws", s.handleUpgrade)
	srv := &http.Server{Handler: mux}

	s.logger.Info("websocket server started", "addr", listener.Addr().String())

	go func() {
		<-ctx.Done()
		s.endAll()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()

	if err := srv.Serve(listener); !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// handleUpgrade runs for the lifetime of the connection: the read loop
// stays inline so the handler goroutine owns the socket.
func (s *Server) handleUpgrade(w http.ResponseWriter, r *http.Request) {
	sock, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Error("websocket upgrade failed", "error", err)
		return
	}

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
	c.ReadLoop()
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
