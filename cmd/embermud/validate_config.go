// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 EmberMUD Contributors

package main

import (
	"os"

	"github.com/samber/oops"
	"github.com/spf13/cobra"

	"github.com/embermud/embermud/internal/config"
)

// NewValidateConfigCmd creates the validate-config subcommand.
func NewValidateConfigCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "validate-config <file>",
		Short: "Validate a config file without starting the server",
		Long: `Checks a YAML config file against the configuration schema and the
semantic rules the server applies at startup. Does NOT start the server
or require a database connection. Exits with code 0 on success,
non-zero on failure.

Useful in CI pipelines to catch config errors before deploying:
  embermud validate-config embermud.yaml`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runValidateConfig(cmd, args[0])
		},
	}
}

func runValidateConfig(cmd *cobra.Command, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return oops.Code("CONFIG_LOAD_FAILED").With("path", path).Wrap(err)
	}

	if err := config.ValidateSchema(data); err != nil {
		cmd.PrintErrln(config.FormatSchemaError(err))
		return oops.Code("CONFIG_SCHEMA_INVALID").
			With("path", path).
			Errorf("config does not match the schema")
	}

	// Schema said the shape is right; Load applies the semantic rules.
	if _, err := config.Load(path, nil); err != nil {
		return err
	}

	cmd.Printf("%s is valid\n", path)
	return nil
}
