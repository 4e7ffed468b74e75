// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 EmberMUD Contributors

// Package xdg provides XDG Base Directory paths for EmberMUD.
package xdg

import (
	"os"
	"path/filepath"
)

const appName = "embermud"

// ConfigDir returns the XDG config directory for embermud.
// Checks XDG_CONFIG_HOME first, falls back to ~/.config.
func ConfigDir() string {
	base := os.Getenv("XDG_CONFIG_HOME")
	if base == "" {
		base = filepath.Join(os.Getenv("HOME"), ".config")
	}
	return filepath.Join(base, appName)
}

// DataDir returns the XDG data directory for embermud.
// Checks XDG_DATA_HOME first, falls back to ~/.local/share.
func DataDir() string {
	base := os.Getenv("XDG_DATA_HOME")
	if base == "" {
		base = filepath.Join(os.Getenv("HOME"), ".local", "share")
	}
	return filepath.Join(base, appName)
}

// DefaultConfigPath returns the path of the config file at the default
// location, or "" when no such file exists. Commands use it when the
// --config flag is unset.
func DefaultConfigPath() string {
	path := filepath.Join(ConfigDir(), "embermud.yaml")
	if _, err := os.Stat(path); err != nil {
		return ""
	}
	return path
}

// DefaultTranscriptDir returns the default directory for session
// transcripts, used when raw logging is enabled without an explicit
// transcript directory.
func DefaultTranscriptDir() string {
	return filepath.Join(DataDir(), "transcripts")
}
