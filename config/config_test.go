package config_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/valutai/credits-engine/config"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.toml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoad_EmptyPathUsesDefaults(t *testing.T) {
	cfg, err := config.Load("")
	require.NoError(t, err)
	assert.Equal(t, config.Default(), cfg)
	assert.Equal(t, int64(100), cfg.Credits.WelcomeBonus)
}

func TestLoad_MissingFileUsesDefaults(t *testing.T) {
	cfg, err := config.Load(filepath.Join(t.TempDir(), "nope.toml"))
	require.NoError(t, err)
	assert.Equal(t, config.Default(), cfg)
}

func TestLoad_OverridesDefaults(t *testing.T) {
	path := writeConfig(t, `
[server]
port = 9090

[database]
path = "/tmp/test.db"

[credits]
welcome_bonus = 50
`)

	cfg, err := config.Load(path)
	require.NoError(t, err)
	assert.Equal(t, 9090, cfg.Server.Port)
	assert.Equal(t, "/tmp/test.db", cfg.Database.Path)
	assert.Equal(t, int64(50), cfg.Credits.WelcomeBonus)
	// Untouched fields keep their defaults.
	assert.Equal(t, "127.0.0.1", cfg.Server.Host)
}

func TestLoad_RejectsInvalidPort(t *testing.T) {
	path := writeConfig(t, `
[server]
port = 99999
`)

	_, err := config.Load(path)
	assert.Error(t, err)
}

func TestLoad_RejectsNegativeBonus(t *testing.T) {
	path := writeConfig(t, `
[credits]
welcome_bonus = -1
`)

	_, err := config.Load(path)
	assert.Error(t, err)
}
