// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 EmberMUD Contributors

package sio

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"sync"
	"time"

	socketio "github.com/googollee/go-socket.io"

	"github.com/embermud/embermud/internal/transcript"
)

// Server serves the Socket.IO endpoint on /socket.io/ and hands each
// session to the accept callback on connect. The session travels in the
// socket's context, the usual go-socket.io way of carrying per-socket
// state into event handlers.
type Server struct {
	addr   string
	accept func(*Conn)
	store  transcript.Store
	logger *slog.Logger

	mu       sync.RWMutex
	listener net.Listener
	conns    map[string]*Conn
}

// NewServer creates a Socket.IO server listening on addr once Run is
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
		conns:  make(map[string]*Conn),
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

// Run serves Socket.IO traffic until ctx is cancelled. Open sessions are
// ended on shutdown.
func (s *Server) Run(ctx context.Context) error {
	sio := socketio.NewServer(nil)
	sio.OnConnect("/", s.onConnect)
	sio.OnEvent("/", "keypress", s.onKeypress)
	sio.OnEvent("/", "special", s.onSpecial)
	sio.OnError("/", s.onError)
	sio.OnDisconnect("/", s.onDisconnect)

	go func() {
		if err := sio.Serve(); err != nil {
			s.logger.Error("socket.io serve failed", "error", err)
		}
	}()
	defer sio.Close()

	listener, err := net.Listen("tcp", s.addr)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", s.addr, err)
	}

	s.mu.Lock()
	s.listener = listener
	s.mu.Unlock()

	mux := http.NewServeMux()
	mux.Handle("/socket.io/", sio)
	srv := &http.Server{Handler: mux}

	s.logger.Info("socket.io server started", "addr", listener.Addr().String())

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

func (s *Server) onConnect(sock socketio.Conn) error {
	c := NewConn(sock, s.store, s.logger)
	sock.SetContext(c)

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
	return nil
}

func (s *Server) onKeypress(sock socketio.Conn, text string) {
	if c, ok := sock.Context().(*Conn); ok {
		c.Keypress(text)
	}
}

func (s *Server) onSpecial(sock socketio.Conn, ev specialEvent) {
	if c, ok := sock.Context().(*Conn); ok {
		c.SpecialKey(ev.Key)
	}
}

// onError may be invoked with a nil socket for namespace-level failures.
func (s *Server) onError(sock socketio.Conn, err error) {
	if sock == nil {
		s.logger.Error("socket.io error", "error", err)
		return
	}
	if c, ok := sock.Context().(*Conn); ok {
		c.EmitError(err)
		return
	}
	s.logger.Error("socket.io error", "socket", sock.ID(), "error", err)
}

func (s *Server) onDisconnect(sock socketio.Conn, reason string) {
	if c, ok := sock.Context().(*Conn); ok {
		s.logger.Debug("socket.io disconnect", "session", c.ID(), "reason", reason)
		c.End()
	}
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
