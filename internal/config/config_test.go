package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	assert.Equal(t, "dejavu", cfg.Name)
	assert.Equal(t, "gemini-2.0-flash", cfg.Gateway.Model)
	assert.Equal(t, 30*time.Second, cfg.Sync.PollInterval)
	assert.False(t, cfg.Logging.DebugMode)
	assert.NoError(t, cfg.Validate())
}

func TestLoadMissingFileFallsBackToDefaults(t *testing.T) {
	ws := t.TempDir()

	cfg, err := Load(ws)
	require.NoError(t, err)
	assert.Equal(t, DefaultConfig().Gateway.BaseURL, cfg.Gateway.BaseURL)
}

func TestSaveLoadRoundTrip(t *testing.T) {
	ws := t.TempDir()

	cfg := DefaultConfig()
	cfg.Gateway.Model = "gemini-2.5-pro"
	cfg.Sync.PollInterval = 45 * time.Second
	cfg.Logging.DebugMode = true
	require.NoError(t, cfg.Save(ws))

	loaded, err := Load(ws)
	require.NoError(t, err)
	assert.Equal(t, "gemini-2.5-pro", loaded.Gateway.Model)
	assert.Equal(t, 45*time.Second, loaded.Sync.PollInterval)
	assert.True(t, loaded.Logging.DebugMode)
}

func TestSaveNeverPersistsAPIKey(t *testing.T) {
	ws := t.TempDir()

	cfg := DefaultConfig()
	cfg.Gateway.APIKey = "secret-key"
	require.NoError(t, cfg.Save(ws))

	data, err := os.ReadFile(filepath.Join(ws, ".dejavu", "config.yaml"))
	require.NoError(t, err)
	assert.NotContains(t, string(data), "secret-key")
}

func TestEnvOverrideWinsOverFile(t *testing.T) {
	ws := t.TempDir()

	cfg := DefaultConfig()
	require.NoError(t, cfg.Save(ws))

	t.Setenv("GEMINI_API_KEY", "env-key")
	t.Setenv("DEJAVU_MODEL", "gemini-exp")

	loaded, err := Load(ws)
	require.NoError(t, err)
	assert.Equal(t, "env-key", loaded.Gateway.APIKey)
	assert.Equal(t, "gemini-exp", loaded.Gateway.Model)
}

func TestValidateRejectsBrokenValues(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Gateway.BaseURL = ""
	assert.Error(t, cfg.Validate())

	cfg = DefaultConfig()
	cfg.Sync.PollInterval = 0
	assert.Error(t, cfg.Validate())
}
