package common

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewDefaultConfig(t *testing.T) {
	cfg := NewDefaultConfig()

	assert.Equal(t, 8085, cfg.Server.Port)
	assert.Equal(t, LLMProviderOpenAI, cfg.LLM.DefaultProvider)
	assert.Equal(t, "gpt-4o", cfg.OpenAI.Model)
	assert.Equal(t, 2000, cfg.LLM.MaxTokens)
	assert.True(t, cfg.Reports.SerializePerInspection)
	assert.Equal(t, "local", cfg.Storage.Blob.Provider)
}

func TestLoadFromFiles_LaterFileWins(t *testing.T) {
	dir := t.TempDir()
	base := filepath.Join(dir, "base.toml")
	override := filepath.Join(dir, "override.toml")

	require.NoError(t, os.WriteFile(base, []byte(`
[server]
port = 9000

[reports]
output_dir = "/tmp/base"
`), 0644))
	require.NoError(t, os.WriteFile(override, []byte(`
[reports]
output_dir = "/tmp/override"
timeout = "1m"
`), 0644))

	cfg, err := LoadFromFiles(base, override)
	require.NoError(t, err)

	assert.Equal(t, 9000, cfg.Server.Port)
	assert.Equal(t, "/tmp/override", cfg.Reports.OutputDir)
	assert.Equal(t, time.Minute, ParseDuration(cfg.Reports.Timeout, time.Hour))
}

func TestLoadFromFiles_EnvOverridesFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "roomathon.toml")
	require.NoError(t, os.WriteFile(path, []byte("[server]\nport = 9000\n"), 0644))

	t.Setenv("ROOMATHON_SERVER_PORT", "9100")
	t.Setenv("ROOMATHON_BLOB_PROVIDER", "gcs")
	t.Setenv("ROOMATHON_LOG_OUTPUT", "stdout, file")

	cfg, err := LoadFromFiles(path)
	require.NoError(t, err)

	assert.Equal(t, 9100, cfg.Server.Port)
	assert.Equal(t, "gcs", cfg.Storage.Blob.Provider)
	assert.Equal(t, []string{"stdout", "file"}, cfg.Logging.Output)
}

func TestLoadFromFiles_InvalidToml(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.toml")
	require.NoError(t, os.WriteFile(path, []byte("[server\nport ="), 0644))

	_, err := LoadFromFiles(path)
	assert.Error(t, err)
}

func TestApplyFlagOverrides(t *testing.T) {
	cfg := NewDefaultConfig()
	ApplyFlagOverrides(cfg, 7000, "")

	assert.Equal(t, 7000, cfg.Server.Port)
	assert.Equal(t, "localhost", cfg.Server.Host)
}

func TestResolveAPIKey(t *testing.T) {
	ctx := context.Background()

	t.Run("config fallback", func(t *testing.T) {
		t.Setenv("OPENAI_API_KEY", "")
		t.Setenv("ROOMATHON_OPENAI_API_KEY", "")
		key, err := ResolveAPIKey(ctx, nil, "openai_api_key", "from-config")
		require.NoError(t, err)
		assert.Equal(t, "from-config", key)
	})

	t.Run("env wins", func(t *testing.T) {
		t.Setenv("OPENAI_API_KEY", "from-env")
		key, err := ResolveAPIKey(ctx, nil, "openai_api_key", "from-config")
		require.NoError(t, err)
		assert.Equal(t, "from-env", key)
	})

	t.Run("missing", func(t *testing.T) {
		t.Setenv("OPENAI_API_KEY", "")
		t.Setenv("ROOMATHON_OPENAI_API_KEY", "")
		_, err := ResolveAPIKey(ctx, nil, "openai_api_key", "")
		assert.Error(t, err)
	})
}

func TestParseDuration(t *testing.T) {
	assert.Equal(t, 30*time.Second, ParseDuration("30s", time.Minute))
	assert.Equal(t, time.Minute, ParseDuration("", time.Minute))
	assert.Equal(t, time.Minute, ParseDuration("soon", time.Minute))
	assert.Equal(t, time.Minute, ParseDuration("-5s", time.Minute))
}
