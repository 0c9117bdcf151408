package llm

import (
	"fmt"
	"sync"

	"github.com/soyeahso/relay/internal/config"
	"github.com/soyeahso/relay/internal/logging"
)

// ProviderError is returned when a model provider fails.
type ProviderError struct {
	Provider string
	Message  string
	Code     int // HTTP status code when known (401, 429, 500, ...)
}

func (e *ProviderError) Error() string {
	if e.Code > 0 {
		return fmt.Sprintf("%s: %d %s", e.Provider, e.Code, e.Message)
	}
	return fmt.Sprintf("%s: %s", e.Provider, e.Message)
}

// Registry maps provider names to clients. Agent definitions carry a provider
// key; the engine resolves it here at invocation time.
type Registry struct {
	mu      sync.RWMutex
	clients map[string]Client
	log     *logging.Logger
}

// NewRegistry creates an empty provider registry.
func NewRegistry(log *logging.Logger) *Registry {
	return &Registry{
		clients: make(map[string]Client),
		log:     log.Sub("llm.registry"),
	}
}

// Register adds a client under the given provider name.
func (r *Registry) Register(name string, client Client) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.clients[name] = client
	r.log.Info().Str("provider", name).Msg("registered model provider")
}

// Resolve returns the Client for the given provider name.
func (r *Registry) Resolve(provider string) (Client, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if c, ok := r.clients[provider]; ok {
		return c, nil
	}
	return nil, fmt.Errorf("no model provider registered for %q", provider)
}

// List returns all registered provider names.
func (r *Registry) List() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.clients))
	for n := range r.clients {
		names = append(names, n)
	}
	return names
}

// NewRegistryFromConfig builds a Registry from configured providers. Providers
// without credentials are skipped; ollama needs only an endpoint.
func NewRegistryFromConfig(providers map[string]config.ProviderConfig, log *logging.Logger) *Registry {
	reg := NewRegistry(log)

	for name, p := range providers {
		switch name {
		case "claude":
			if p.APIKey != "" {
				reg.Register(name, NewClaudeAPIClient(p.APIKey, p.Model))
			}
		case "gemini":
			if p.APIKey != "" {
				reg.Register(name, NewGeminiAPIClient(p.APIKey, p.Model))
			}
		case "deepseek":
			if p.APIKey != "" {
				reg.Register(name, NewDeepSeekAPIClient(p.APIKey, p.Model))
			}
		case "ollama":
			reg.Register(name, NewOllamaAPIClient(p.Endpoint, p.Model))
		default:
			reg.log.Warn().Str("provider", name).Msg("unknown provider in config, skipping")
		}
	}

	return reg
}
