package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEnvOverrides(t *testing.T) {
	t.Run("REQDESK_API_URL replaces base URL", func(t *testing.T) {
		t.Setenv("REQDESK_API_URL", "https://api.internal")

		cfg := DefaultConfig()
		cfg.applyEnvOverrides()

		assert.Equal(t, "https://api.internal", cfg.API.BaseURL)
	})

	t.Run("REQDESK_TOKEN and REQDESK_DB", func(t *testing.T) {
		t.Setenv("REQDESK_TOKEN", "tok-123")
		t.Setenv("REQDESK_DB", "/tmp/state.db")
		t.Setenv("REQDESK_DB_DRIVER", "sqlite")

		cfg := DefaultConfig()
		cfg.applyEnvOverrides()

		assert.Equal(t, "tok-123", cfg.API.Token)
		assert.Equal(t, "/tmp/state.db", cfg.Storage.Path)
		assert.Equal(t, "sqlite", cfg.Storage.Driver)
	})

	t.Run("REQDESK_DEBUG toggles debug mode", func(t *testing.T) {
		t.Setenv("REQDESK_DEBUG", "true")
		t.Setenv("REQDESK_LOG_LEVEL", "debug")

		cfg := &Config{}
		cfg.applyEnvOverrides()

		assert.True(t, cfg.Logging.DebugMode)
		assert.Equal(t, "debug", cfg.Logging.Level)
	})

	t.Run("empty values leave config untouched", func(t *testing.T) {
		t.Setenv("REQDESK_API_URL", "")

		cfg := DefaultConfig()
		cfg.applyEnvOverrides()

		assert.Equal(t, DefaultConfig().API.BaseURL, cfg.API.BaseURL)
	})
}

func TestLoad_DotEnvFeedsOverrides(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("REQDESK_TOKEN", "")
	require.NoError(t, os.Unsetenv("REQDESK_TOKEN"))
	t.Cleanup(func() { os.Unsetenv("REQDESK_TOKEN") })

	require.NoError(t, os.WriteFile(filepath.Join(dir, ".env"), []byte("REQDESK_TOKEN=from-dotenv\n"), 0600))

	cfg, err := Load(filepath.Join(dir, "config.yaml"))
	require.NoError(t, err)
	assert.Equal(t, "from-dotenv", cfg.API.Token)
}
