// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 EmberMUD Contributors

package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/samber/oops"
	"github.com/spf13/cobra"

	"github.com/embermud/embermud/internal/auth"
	"github.com/embermud/embermud/internal/command"
	"github.com/embermud/embermud/internal/config"
	"github.com/embermud/embermud/internal/conn"
	"github.com/embermud/embermud/internal/conn/sio"
	"github.com/embermud/embermud/internal/conn/telnet"
	"github.com/embermud/embermud/internal/conn/ws"
	"github.com/embermud/embermud/internal/logging"
	"github.com/embermud/embermud/internal/session"
	"github.com/embermud/embermud/internal/states"
)

const shutdownTimeout = 5 * time.Second

// NewServeCmd creates the serve subcommand.
func NewServeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the game server",
		Long: `Start the game server: listeners for telnet, WebSocket, and Socket.IO
clients, the login and signup flow, and the command loop for
authenticated players. Settings come from the config file with
explicitly set command-line flags layered on top.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runServeWithDeps(cmd.Context(), cmd, nil)
		},
	}

	defaults := config.Default()
	fl := cmd.Flags()
	fl.String("game-name", defaults.Server.Name, "game name shown in the connection banner")
	fl.String("motd", "", "message of the day shown on connect")
	fl.String("telnet-addr", defaults.Listeners.Telnet, "telnet listen address (empty = disabled)")
	fl.String("ws-addr", "", "WebSocket listen address (empty = disabled)")
	fl.String("socketio-addr", "", "Socket.IO listen address (empty = disabled)")
	fl.String("metrics-addr", defaults.Listeners.Metrics, "metrics/health HTTP address (empty = disabled)")
	fl.String("log-level", defaults.Log.Level, "log level (debug, info, warn, error)")
	fl.String("log-format", defaults.Log.Format, "log format (json or text)")
	fl.String("database-url", "", "PostgreSQL URL (empty = in-memory accounts)")
	fl.Bool("auto-migrate", defaults.Database.AutoMigrate, "apply pending schema migrations on startup")
	fl.String("transcript-dir", "", "directory for session transcripts (empty = disabled)")
	fl.Bool("transcript-raw", false, "also mirror session input and output into transcripts")
	fl.Duration("idle-timeout", defaults.Session.IdleTimeout.Std(), "end sessions idle past this duration (0 = never)")
	fl.Duration("sweep-interval", defaults.Session.SweepInterval.Std(), "how often to check for idle sessions")

	return cmd
}

// runServeWithDeps starts the server with injectable dependencies.
// If deps is nil, default implementations are used.
func runServeWithDeps(ctx context.Context, cmd *cobra.Command, deps *ServeDeps) error {
	if deps == nil {
		deps = &ServeDeps{}
	}
	deps.fillDefaults()

	cfg, err := config.Load(resolveConfigFile(), cmd.Flags())
	if err != nil {
		return err
	}

	logging.SetDefault("embermud", version, cfg.Log.Format, cfg.Log.Level)
	logger := slog.Default()

	slog.Info("starting server",
		"game", cfg.Server.Name,
		"telnet_addr", cfg.Listeners.Telnet,
		"ws_addr", cfg.Listeners.WebSocket,
		"socketio_addr", cfg.Listeners.SocketIO,
	)

	// Set up graceful shutdown
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	if cfg.Database.URL == "" {
		cfg.Database.URL = os.Getenv("DATABASE_URL")
	}

	if cfg.Database.URL != "" && cfg.Database.AutoMigrate {
		if err := autoMigrate(deps, cfg.Database.URL); err != nil {
			return err
		}
	}

	users, closeUsers, err := deps.UserStoreFactory(ctx, cfg, logger)
	if err != nil {
		return oops.Code("SERVE_STORE_FAILED").
			With("operation", "open account store").
			Wrap(err)
	}
	defer closeUsers()

	authSvc, err := auth.NewServiceWithLogger(users, auth.NewArgon2idHasher(), logger)
	if err != nil {
		return err
	}

	transcripts, err := deps.TranscriptStoreFactory(cfg, logger)
	if err != nil {
		return oops.Code("SERVE_TRANSCRIPT_FAILED").
			With("dir", cfg.Transcript.Dir).
			Wrap(err)
	}

	machine := session.NewMachine(logger)
	manager, err := session.NewManager(machine, logger,
		session.WithIdleTimeout(cfg.Session.IdleTimeout.Std()),
		session.WithSweepInterval(cfg.Session.SweepInterval.Std()))
	if err != nil {
		return err
	}

	registry := command.NewRegistry()
	command.RegisterBuiltins(registry, manager)

	if err := states.RegisterAll(states.Deps{
		Machine:  machine,
		Manager:  manager,
		Auth:     authSvc,
		Commands: registry,
		Logger:   logger,
		GameName: cfg.Server.Name,
		MOTD:     cfg.Server.MOTD,
	}); err != nil {
		return err
	}

	attach := func(c conn.Conn) {
		if cfg.Transcript.Raw {
			c.EnableRawLogging(true)
		}
		manager.Attach(ctx, c)
	}

	// Each listener owns its accept loop; Run blocks until ctx is done.
	type listener struct {
		name string
		run  func(context.Context) error
	}
	var listeners []listener

	if cfg.Listeners.Telnet != "" {
		srv := telnet.NewServer(cfg.Listeners.Telnet, func(c *telnet.Conn) { attach(c) }, transcripts, logger)
		listeners = append(listeners, listener{"telnet", srv.Run})
	}
	if cfg.Listeners.WebSocket != "" {
		srv := ws.NewServer(cfg.Listeners.WebSocket, func(c *ws.Conn) { attach(c) }, transcripts, logger)
		listeners = append(listeners, listener{"websocket", srv.Run})
	}
	if cfg.Listeners.SocketIO != "" {
		srv := sio.NewServer(cfg.Listeners.SocketIO, func(c *sio.Conn) { attach(c) }, transcripts, logger)
		listeners = append(listeners, listener{"socketio", srv.Run})
	}

	var wg sync.WaitGroup
	serverErrs := make(chan error, len(listeners))
	for _, l := range listeners {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if runErr := l.run(ctx); runErr != nil {
				serverErrs <- oops.Code("LISTENER_FAILED").
					With("listener", l.name).
					Wrap(runErr)
			}
		}()
	}

	go manager.Sweep(ctx)

	// Start observability server if configured
	var obsServer ObservabilityServer
	if cfg.Listeners.Metrics != "" {
		// Ready once the account store is open and listeners are starting.
		obsServer = deps.ObservabilityServerFactory(cfg.Listeners.Metrics, func() bool { return true })
		obsErrChan, obsErr := obsServer.Start()
		if obsErr != nil {
			return oops.Code("SERVE_METRICS_FAILED").
				With("addr", cfg.Listeners.Metrics).
				Wrap(obsErr)
		}
		// Monitor observability server errors - cancel context on error
		go monitorServerErrors(ctx, cancel, obsErrChan, "observability")
		slog.Info("observability server started", "addr", obsServer.Addr())
	}

	// Handle signals
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigChan)

	cmd.Println("EmberMUD started")
	slog.Info("server ready", "game", cfg.Server.Name)

	// Wait for shutdown signal or listener failure
	var runErr error
	select {
	case sig := <-sigChan:
		slog.Info("received shutdown signal", "signal", sig)
	case runErr = <-serverErrs:
		slog.Error("listener failed, shutting down", "error", runErr)
	case <-ctx.Done():
		slog.Info("context cancelled, shutting down")
	}

	// Graceful shutdown
	slog.Info("shutting down...")
	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer shutdownCancel()

	// Listeners end their open sessions as they wind down.
	stopped := make(chan struct{})
	go func() {
		wg.Wait()
		close(stopped)
	}()
	select {
	case <-stopped:
	case <-shutdownCtx.Done():
		slog.Warn("timed out waiting for listeners to stop")
	}

	if obsServer != nil {
		if err := obsServer.Stop(shutdownCtx); err != nil {
			slog.Warn("error stopping observability server", "error", err)
		}
	}

	slog.Info("shutdown complete")
	return runErr
}

// autoMigrate applies pending schema migrations before the server starts
// accepting connections.
func autoMigrate(deps *ServeDeps, databaseURL string) error {
	migrator, err := deps.MigratorFactory(databaseURL)
	if err != nil {
		return oops.Code("SERVE_MIGRATE_FAILED").
			With("operation", "create migrator").
			Wrap(err)
	}
	defer func() {
		if closeErr := migrator.Close(); closeErr != nil {
			slog.Warn("error closing migrator", "error", closeErr)
		}
	}()

	slog.Info("applying schema migrations")
	if err := migrator.Up(); err != nil {
		return oops.Code("SERVE_MIGRATE_FAILED").
			With("operation", "apply migrations").
			Wrap(err)
	}
	return nil
}

// monitorServerErrors watches a server's error channel and cancels the
// context on error, so a failed server brings the process down cleanly.
// It exits when an error arrives, the channel closes, or ctx is done.
func monitorServerErrors(ctx context.Context, cancel context.CancelFunc, errCh <-chan error, serverName string) {
	select {
	case err, ok := <-errCh:
		if !ok {
			// Channel closed, server stopped gracefully
			return
		}
		if err != nil {
			slog.Error("server error, triggering shutdown",
				"server", serverName,
				"error", err,
			)
			cancel()
		}
	case <-ctx.Done():
	}
}
