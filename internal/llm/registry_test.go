package llm

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/soyeahso/relay/internal/config"
	"github.com/soyeahso/relay/internal/logging"
)

func TestRegistry_RegisterAndResolve(t *testing.T) {
	reg := NewRegistry(logging.New(nil, "silent"))
	mock := &MockClient{ProviderName: "mock"}
	reg.Register("mock", mock)

	c, err := reg.Resolve("mock")
	require.NoError(t, err)
	assert.Equal(t, "mock", c.Name())

	_, err = reg.Resolve("other")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no model provider registered")
}

func TestRegistry_List(t *testing.T) {
	reg := NewRegistry(logging.New(nil, "silent"))
	assert.Empty(t, reg.List())

	reg.Register("a", &MockClient{ProviderName: "a"})
	reg.Register("b", &MockClient{ProviderName: "b"})
	assert.ElementsMatch(t, []string{"a", "b"}, reg.List())
}

func TestNewRegistryFromConfig(t *testing.T) {
	providers := map[string]config.ProviderConfig{
		"claude":   {APIKey: "sk-x", Model: "claude-sonnet-4-20250514"},
		"gemini":   {}, // no key, skipped
		"deepseek": {APIKey: "sk-d"},
		"ollama":   {Endpoint: "http://localhost:11434", Model: "llama3"},
		"mystery":  {APIKey: "x"}, // unknown, skipped
	}

	reg := NewRegistryFromConfig(providers, logging.New(nil, "silent"))
	assert.ElementsMatch(t, []string{"claude", "deepseek", "ollama"}, reg.List())
}

func TestProviderError_Message(t *testing.T) {
	err := &ProviderError{Provider: "claude", Message: "rate limited", Code: 429}
	assert.Equal(t, "claude: 429 rate limited", err.Error())

	err = &ProviderError{Provider: "ollama", Message: "connection refused"}
	assert.Equal(t, "ollama: connection refused", err.Error())
}
