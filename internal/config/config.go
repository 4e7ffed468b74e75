// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 EmberMUD Contributors

// Package config loads server configuration from an optional YAML file
// with command-line flag overrides layered on top. Files are checked
// against a generated JSON Schema before parsing so typos fail loudly
// instead of being silently ignored.
package config

import (
	"os"
	"strings"
	"time"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/posflag"
	"github.com/knadh/koanf/v2"
	"github.com/samber/oops"
	"github.com/spf13/pflag"
)

// Duration is a time.Duration that unmarshals from strings like "30m",
// which is how durations are written in the YAML file and on flags.
type Duration time.Duration

// UnmarshalText implements encoding.TextUnmarshaler.
func (d *Duration) UnmarshalText(text []byte) error {
	v, err := time.ParseDuration(string(text))
	if err != nil {
		return oops.Code("CONFIG_INVALID").Errorf("invalid duration %q", string(text))
	}
	*d = Duration(v)
	return nil
}

// Std returns the value as a time.Duration.
func (d Duration) Std() time.Duration { return time.Duration(d) }

func (d Duration) String() string { return time.Duration(d).String() }

// Config is the whole server configuration.
type Config struct {
	Server     ServerConfig     `koanf:"server" json:"server,omitempty"`
	Listeners  ListenersConfig  `koanf:"listeners" json:"listeners,omitempty"`
	Log        LogConfig        `koanf:"log" json:"log,omitempty"`
	Database   DatabaseConfig   `koanf:"database" json:"database,omitempty"`
	Transcript TranscriptConfig `koanf:"transcript" json:"transcript,omitempty"`
	Session    SessionConfig    `koanf:"session" json:"session,omitempty"`
}

// ServerConfig names the game and sets the connection banner.
type ServerConfig struct {
	Name string `koanf:"name" json:"name,omitempty"`
	MOTD string `koanf:"motd" json:"motd,omitempty"`
}

// ListenersConfig holds the listen addresses. An empty address disables
// that listener.
type ListenersConfig struct {
	Telnet    string `koanf:"telnet" json:"telnet,omitempty"`
	WebSocket string `koanf:"websocket" json:"websocket,omitempty"`
	SocketIO  string `koanf:"socketio" json:"socketio,omitempty"`
	Metrics   string `koanf:"metrics" json:"metrics,omitempty"`
}

// LogConfig controls log output.
type LogConfig struct {
	Level  string `koanf:"level" json:"level,omitempty"`
	Format string `koanf:"format" json:"format,omitempty"`
}

// DatabaseConfig points at PostgreSQL. An empty URL keeps accounts in
// memory, which is only suitable for development.
type DatabaseConfig struct {
	URL string `koanf:"url" json:"url,omitempty"`

	// AutoMigrate applies pending schema migrations on startup.
	AutoMigrate bool `koanf:"auto_migrate" json:"auto_migrate,omitempty"`
}

// TranscriptConfig controls session transcripts. An empty dir disables
// them. Raw additionally captures pre-decode wire bytes per connection.
type TranscriptConfig struct {
	Dir string `koanf:"dir" json:"dir,omitempty"`
	Raw bool   `koanf:"raw" json:"raw,omitempty"`
}

// SessionConfig tunes the idle sweep. A zero idle timeout disables it.
type SessionConfig struct {
	IdleTimeout   Duration `koanf:"idle_timeout" json:"idle_timeout,omitempty"`
	SweepInterval Duration `koanf:"sweep_interval" json:"sweep_interval,omitempty"`
}

// Default returns the configuration used when neither the file nor the
// flags say otherwise.
func Default() Config {
	return Config{
		Server: ServerConfig{Name: "EmberMUD"},
		Listeners: ListenersConfig{
			Telnet:  ":4201",
			Metrics: "127.0.0.1:9100",
		},
		Log:      LogConfig{Level: "info", Format: "json"},
		Database: DatabaseConfig{AutoMigrate: true},
		Session: SessionConfig{
			IdleTimeout:   Duration(30 * time.Minute),
			SweepInterval: Duration(time.Minute),
		},
	}
}

// flagToKey maps CLI flag names to config keys. Flags not listed here
// (help, config, version) never reach the configuration.
var flagToKey = map[string]string{
	"game-name":      "server.name",
	"motd":           "server.motd",
	"telnet-addr":    "listeners.telnet",
	"ws-addr":        "listeners.websocket",
	"socketio-addr":  "listeners.socketio",
	"metrics-addr":   "listeners.metrics",
	"log-level":      "log.level",
	"log-format":     "log.format",
	"database-url":   "database.url",
	"auto-migrate":   "database.auto_migrate",
	"transcript-dir": "transcript.dir",
	"transcript-raw": "transcript.raw",
	"idle-timeout":   "session.idle_timeout",
	"sweep-interval": "session.sweep_interval",
}

// Load builds the configuration: file values override defaults, and
// flags the user explicitly set override the file. path may be empty;
// flags may be nil.
func Load(path string, flags *pflag.FlagSet) (*Config, error) {
	k := koanf.New(".")

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, oops.Code("CONFIG_LOAD_FAILED").
				With("path", path).
				Wrap(err)
		}
		if err := ValidateSchema(data); err != nil {
			return nil, oops.Code("CONFIG_SCHEMA_INVALID").
				With("path", path).
				Wrap(err)
		}
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, oops.Code("CONFIG_LOAD_FAILED").
				With("path", path).
				Wrap(err)
		}
	}

	if flags != nil {
		provider := posflag.ProviderWithValue(flags, ".", k,
			func(name, value string) (string, any) {
				key, ok := flagToKey[name]
				if !ok {
					return "", nil
				}
				return key, value
			})
		if err := k.Load(provider, nil); err != nil {
			return nil, oops.Code("CONFIG_LOAD_FAILED").Wrap(err)
		}
	}

	cfg := Default()
	if err := k.Unmarshal("", &cfg); err != nil {
		return nil, oops.Code("CONFIG_PARSE_FAILED").Wrap(err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks constraints the schema cannot express.
func (c *Config) Validate() error {
	if c.Server.Name == "" {
		return oops.Code("CONFIG_INVALID").Errorf("server name is required")
	}
	switch c.Log.Format {
	case "json", "text":
	default:
		return oops.Code("CONFIG_INVALID").
			Errorf("log format must be \"json\" or \"text\", got %q", c.Log.Format)
	}
	switch strings.ToLower(c.Log.Level) {
	case "debug", "info", "warn", "warning", "error":
	default:
		return oops.Code("CONFIG_INVALID").Errorf("unknown log level %q", c.Log.Level)
	}
	if c.Listeners.Telnet == "" && c.Listeners.WebSocket == "" && c.Listeners.SocketIO == "" {
		return oops.Code("CONFIG_INVALID").
			Errorf("at least one player listener (telnet, websocket, socketio) is required")
	}
	if c.Session.IdleTimeout < 0 {
		return oops.Code("CONFIG_INVALID").Errorf("idle timeout cannot be negative")
	}
	if c.Session.IdleTimeout > 0 && c.Session.SweepInterval <= 0 {
		return oops.Code("CONFIG_INVALID").
			Errorf("sweep interval must be positive when the idle timeout is enabled")
	}
	return nil
}
