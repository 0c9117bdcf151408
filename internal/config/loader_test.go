package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestLoad_MissingFileGivesDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	require.NoError(t, err)
	assert.Equal(t, "google", cfg.Search.Provider)
	assert.Equal(t, 5, cfg.Search.MaxResults)
	assert.Equal(t, 4096, cfg.Engine.MaxTokens)
	assert.Equal(t, "info", cfg.Logging.Level)
	assert.Equal(t, 0, cfg.Stream.Port)
}

func TestLoad_ParsesProviders(t *testing.T) {
	path := writeConfig(t, `
providers:
  claude:
    apiKey: sk-test-123
    model: claude-sonnet-4-20250514
  ollama:
    endpoint: http://localhost:11434
engine:
  maxTokens: 2048
  abortOnError: true
`)

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "sk-test-123", cfg.Providers["claude"].APIKey)
	assert.Equal(t, "http://localhost:11434", cfg.Providers["ollama"].Endpoint)
	assert.Equal(t, 2048, cfg.Engine.MaxTokens)
	assert.True(t, cfg.Engine.AbortOnError)
	// defaults still fill the rest
	assert.Equal(t, "google", cfg.Search.Provider)
}

func TestLoad_ExpandsEnvVarsInKeys(t *testing.T) {
	t.Setenv("RELAY_TEST_KEY", "expanded-secret")
	path := writeConfig(t, `
providers:
  gemini:
    apiKey: ${RELAY_TEST_KEY}
search:
  apiKey: ${RELAY_TEST_KEY}
`)

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "expanded-secret", cfg.Providers["gemini"].APIKey)
	assert.Equal(t, "expanded-secret", cfg.Search.APIKey)
}

func TestLoad_UnsetEnvVarLeftVerbatim(t *testing.T) {
	path := writeConfig(t, `
providers:
  claude:
    apiKey: ${RELAY_DEFINITELY_UNSET_VAR}
`)

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "${RELAY_DEFINITELY_UNSET_VAR}", cfg.Providers["claude"].APIKey)
}

func TestLoad_EnvOverrides(t *testing.T) {
	t.Setenv("RELAY_LOG_LEVEL", "DEBUG")
	t.Setenv("RELAY_DB_PATH", "/tmp/other.db")
	t.Setenv("RELAY_STREAM_PORT", "9200")
	t.Setenv("RELAY_WORKDIR", "/tmp/work")

	cfg, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	require.NoError(t, err)
	assert.Equal(t, "debug", cfg.Logging.Level)
	assert.Equal(t, "/tmp/other.db", cfg.Store.Path)
	assert.Equal(t, 9200, cfg.Stream.Port)
	assert.Equal(t, "/tmp/work", cfg.Engine.WorkDir)
}

func TestLoad_MalformedYAML(t *testing.T) {
	path := writeConfig(t, "providers: [not: a: map")
	_, err := Load(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to parse config")
}

func TestValidate_OK(t *testing.T) {
	cfg := Defaults()
	cfg.Providers = map[string]ProviderConfig{
		"claude": {APIKey: "sk-x"},
		"ollama": {Endpoint: "http://localhost:11434"},
	}
	assert.Empty(t, Validate(&cfg))
}

func TestValidate_Issues(t *testing.T) {
	cfg := Defaults()
	cfg.Providers = map[string]ProviderConfig{
		"claude":  {}, // missing key
		"unknown": {APIKey: "x"},
	}
	cfg.Search.Provider = "bing"
	cfg.Search.MaxResults = 50
	cfg.Stream.Port = 99999
	cfg.Logging.Level = "loud"

	issues := Validate(&cfg)
	paths := make([]string, 0, len(issues))
	for _, i := range issues {
		paths = append(paths, i.Path)
	}
	assert.Contains(t, paths, "providers.claude.apiKey")
	assert.Contains(t, paths, "providers.unknown")
	assert.Contains(t, paths, "search.provider")
	assert.Contains(t, paths, "search.maxResults")
	assert.Contains(t, paths, "stream.port")
	assert.Contains(t, paths, "logging.level")
}

func TestResolvePaths_RelayHomeOverride(t *testing.T) {
	base := t.TempDir()
	t.Setenv("RELAY_HOME", base)

	p, err := ResolvePaths()
	require.NoError(t, err)
	assert.Equal(t, base, p.Base)
	assert.Equal(t, filepath.Join(base, "config.yaml"), p.Config)
	assert.Equal(t, filepath.Join(base, "data", "relay.db"), p.Database)

	require.NoError(t, p.EnsureDirs())
	for _, dir := range []string{p.Data, p.Sequences, p.Logs} {
		info, err := os.Stat(dir)
		require.NoError(t, err)
		assert.True(t, info.IsDir())
	}
}
