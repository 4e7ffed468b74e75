package main

import (
	"context"
	"log/slog"

	"github.com/embermud/embermud/internal/auth"
	authpg "github.com/embermud/embermud/internal/auth/postgres"
	"github.com/embermud/embermud/internal/config"
	"github.com/embermud/embermud/internal/observability"
	"github.com/embermud/embermud/internal/store"
	"github.com/embermud/embermud/internal/transcript"
	"github.com/embermud/embermud/internal/xdg"
)

// ServeDeps contains injectable dependencies for the serve command.
// All fields with nil values will use their default implementations.
type ServeDeps struct {
	// UserStoreFactory builds the account repository. The returned
	// cleanup function releases any underlying resources.
	// Default: in-memory repository without a database URL, otherwise
	// a pgx pool against PostgreSQL.
	UserStoreFactory func(ctx context.Context, cfg *config.Config, logger *slog.Logger) (auth.UserRepository, func(), error)

	// MigratorFactory creates a schema migrator for startup migrations.
	// Default: store.NewMigrator
	MigratorFactory func(databaseURL string) (AutoMigrator, error)

	// TranscriptStoreFactory builds the transcript store.
	// Default: a file store when a directory is configured, otherwise
	// transcript.Discard.
	TranscriptStoreFactory func(cfg *config.Config, logger *slog.Logger) (transcript.Store, error)

	// ObservabilityServerFactory creates the metrics/health server.
	// Default: observability.NewServer
	ObservabilityServerFactory func(addr string, readinessChecker observability.ReadinessChecker) ObservabilityServer
}

// AutoMigrator interface wraps the methods used from store.Migrator.
type AutoMigrator interface {
	Up() error
	Close() error
}

// ObservabilityServer interface wraps the methods used from observability.Server.
type ObservabilityServer interface {
	Start() (<-chan error, error)
	Stop(ctx context.Context) error
	Addr() string
}

// fillDefaults replaces nil factories with production implementations.
func (d *ServeDeps) fillDefaults() {
	if d.UserStoreFactory == nil {
		d.UserStoreFactory = defaultUserStore
	}
	if d.MigratorFactory == nil {
		d.MigratorFactory = func(databaseURL string) (AutoMigrator, error) {
			return store.NewMigrator(databaseURL)
		}
	}
	if d.TranscriptStoreFactory == nil {
		d.TranscriptStoreFactory = defaultTranscriptStore
	}
	if d.ObservabilityServerFactory == nil {
		d.ObservabilityServerFactory = func(addr string, readinessChecker observability.ReadinessChecker) ObservabilityServer {
			return observability.NewServer(addr, readinessChecker)
		}
	}
}

func defaultUserStore(ctx context.Context, cfg *config.Config, logger *slog.Logger) (auth.UserRepository, func(), error) {
	if cfg.Database.URL == "" {
		logger.Warn("no database configured, accounts are kept in memory")
		return auth.NewMemoryUserRepository(), func() {}, nil
	}

	pool, err := store.NewPool(ctx, cfg.Database.URL, logger)
	if err != nil {
		return nil, nil, err
	}
	return authpg.NewUserRepository(pool), pool.Close, nil
}

func defaultTranscriptStore(cfg *config.Config, logger *slog.Logger) (transcript.Store, error) {
	dir := cfg.Transcript.Dir
	if dir == "" && cfg.Transcript.Raw {
		// Raw logging without a directory still needs a sink.
		dir = xdg.DefaultTranscriptDir()
	}
	if dir == "" {
		return transcript.Discard, nil
	}
	return transcript.NewFileStoreWithLogger(dir, logger)
}
