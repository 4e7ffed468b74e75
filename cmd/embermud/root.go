package main

import (
	"github.com/spf13/cobra"

	"github.com/embermud/embermud/internal/xdg"
)

// Global flags available to all subcommands.
var configFile string

// resolveConfigFile returns the --config value, falling back to the
// config file at the XDG default location when the flag is unset. An
// empty result means no config file; commands then run on defaults
// plus flags.
func resolveConfigFile() string {
	if configFile != "" {
		return configFile
	}
	return xdg.DefaultConfigPath()
}

// NewRootCmd creates the root command for the EmberMUD CLI.
func NewRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "embermud",
		Short: "EmberMUD - a multiplayer text game server",
		Long: `EmberMUD is a multiplayer text game server with account management,
session takeover, and multi-protocol support (telnet, WebSocket, Socket.IO).`,
	}

	// Global flag for config file path
	cmd.PersistentFlags().StringVar(&configFile, "config", "", "config file path")

	// Add subcommands
	cmd.AddCommand(NewServeCmd())
	cmd.AddCommand(NewMigrateCmd())
	cmd.AddCommand(NewValidateConfigCmd())

	return cmd
}
