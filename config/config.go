// Package config loads server configuration from a TOML file with
// sane defaults. Flags in cmd/server override individual fields.
package config

import (
	"errors"
	"fmt"
	"io/fs"

	"github.com/BurntSushi/toml"
)

// Config is the full server configuration.
type Config struct {
	Server   ServerConfig   `toml:"server"`
	Database DatabaseConfig `toml:"database"`
	Credits  CreditsConfig  `toml:"credits"`
}

// ServerConfig configures the HTTP listener.
type ServerConfig struct {
	Host           string   `toml:"host"`
	Port           int      `toml:"port"`
	AllowedOrigins []string `toml:"allowed_origins"`
}

// DatabaseConfig configures persistence.
type DatabaseConfig struct {
	Path string `toml:"path"`
}

// CreditsConfig configures the ledger policies.
type CreditsConfig struct {
	// WelcomeBonus is the one-time grant for new accounts. 100 is the
	// default; deployments pick their own value.
	WelcomeBonus int64 `toml:"welcome_bonus"`
}

// Default returns the built-in configuration.
func Default() Config {
	return Config{
		Server: ServerConfig{
			Host:           "127.0.0.1",
			Port:           8080,
			AllowedOrigins: []string{"http://localhost:5173", "http://localhost:8080"},
		},
		Database: DatabaseConfig{
			Path: "valutai.db",
		},
		Credits: CreditsConfig{
			WelcomeBonus: 100,
		},
	}
}

// Load reads the TOML file at path over the defaults. A missing file
// is not an error: the defaults apply.
func Load(path string) (Config, error) {
	cfg := Default()
	if path == "" {
		return cfg, nil
	}

	_, err := toml.DecodeFile(path, &cfg)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return cfg, nil
		}
		return cfg, fmt.Errorf("failed to load config %s: %w", path, err)
	}

	if cfg.Server.Port <= 0 || cfg.Server.Port > 65535 {
		return cfg, fmt.Errorf("invalid server port %d", cfg.Server.Port)
	}
	if cfg.Credits.WelcomeBonus < 0 {
		return cfg, fmt.Errorf("welcome_bonus must not be negative")
	}
	return cfg, nil
}
