// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 EmberMUD Contributors

package main

import (
	"fmt"
	"log/slog"
	"os"
	"text/tabwriter"

	"github.com/samber/oops"
	"github.com/spf13/cobra"

	"github.com/embermud/embermud/internal/config"
	"github.com/embermud/embermud/internal/store"
)

// migrateConfig holds configuration for the migrate command.
type migrateConfig struct {
	status bool
	down   bool
	force  string
}

// NewMigrateCmd creates the migrate subcommand.
func NewMigrateCmd() *cobra.Command {
	cfg := &migrateConfig{}

	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Run database migrations",
		Long: `Apply all pending schema migrations against the PostgreSQL database.

The database URL comes from the --database-url flag, the config file, or
the DATABASE_URL environment variable.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runMigrate(cmd, cfg)
		},
	}

	cmd.Flags().BoolVar(&cfg.status, "status", false, "show applied and pending migrations without changing anything")
	cmd.Flags().BoolVar(&cfg.down, "down", false, "roll back all migrations, dropping every table the schema owns")
	cmd.Flags().StringVar(&cfg.force, "force", "", "set the schema version without running migrations (dirty-state recovery)")
	cmd.Flags().String("database-url", "", "PostgreSQL URL")

	return cmd
}

func runMigrate(cmd *cobra.Command, cfg *migrateConfig) error {
	fileCfg, err := config.Load(resolveConfigFile(), cmd.Flags())
	if err != nil {
		return err
	}

	databaseURL, err := resolveDatabaseURL(fileCfg)
	if err != nil {
		return err
	}

	migrator, err := store.NewMigrator(databaseURL)
	if err != nil {
		return err
	}
	defer func() {
		if closeErr := migrator.Close(); closeErr != nil {
			slog.Warn("error closing migrator", "error", closeErr)
		}
	}()

	switch {
	case cfg.status:
		return printMigrationStatus(cmd, migrator)

	case cfg.force != "":
		version, err := parseForceVersion(cfg.force)
		if err != nil {
			return err
		}
		if err := migrator.Force(version); err != nil {
			return err
		}
		cmd.Printf("Schema version forced to %d\n", version)
		return nil

	case cfg.down:
		cmd.Println("Rolling back all migrations...")
		if err := migrator.Down(); err != nil {
			return err
		}
		cmd.Println("Rollback completed")
		return nil

	default:
		cmd.Println("Running migrations...")
		if err := migrator.Up(); err != nil {
			return err
		}
		cmd.Println("Migrations completed successfully")
		return nil
	}
}

// printMigrationStatus renders a table of applied and pending migrations.
func printMigrationStatus(cmd *cobra.Command, m *store.Migrator) error {
	_, dirty, err := m.Version()
	if err != nil {
		return err
	}
	applied, err := m.AppliedMigrations()
	if err != nil {
		return err
	}
	pending, err := m.PendingMigrations()
	if err != nil {
		return err
	}

	w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
	_, _ = fmt.Fprintln(w, "VERSION\tNAME\tSTATE")
	_, _ = fmt.Fprintln(w, "-------\t----\t-----")
	for _, v := range applied {
		_, _ = fmt.Fprintf(w, "%06d\t%s\tapplied\n", v, migrationName(v))
	}
	for _, v := range pending {
		_, _ = fmt.Fprintf(w, "%06d\t%s\tpending\n", v, migrationName(v))
	}
	if err := w.Flush(); err != nil {
		return err
	}

	if dirty {
		cmd.Println("\nWARNING: schema is dirty; fix the database manually, then recover with --force")
	}
	return nil
}

// migrationName looks up the migration name, degrading to "-" so a
// forced version outside the embedded set still renders.
func migrationName(version uint) string {
	name, err := store.MigrationName(version)
	if err != nil || name == "" {
		return "-"
	}
	return name
}

// parseForceVersion parses the --force argument. Sscanf semantics:
// leading whitespace is skipped and parsing stops at the first
// non-digit, so "3abc" parses as 3.
func parseForceVersion(s string) (int, error) {
	var version int
	if _, err := fmt.Sscanf(s, "%d", &version); err != nil {
		return 0, oops.Code("INVALID_VERSION").
			Errorf("invalid version %q: must be an integer", s)
	}
	return version, nil
}

// resolveDatabaseURL returns the configured database URL, falling back
// to the DATABASE_URL environment variable.
func resolveDatabaseURL(cfg *config.Config) (string, error) {
	if cfg.Database.URL != "" {
		return cfg.Database.URL, nil
	}
	if url := os.Getenv("DATABASE_URL"); url != "" {
		return url, nil
	}
	return "", oops.Code("CONFIG_INVALID").
		Errorf("database URL is required: set database.url, --database-url, or DATABASE_URL")
}
