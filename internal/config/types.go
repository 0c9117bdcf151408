package config

// Config is the root configuration for relay.
type Config struct {
	Providers map[string]ProviderConfig `yaml:"providers,omitempty"`
	Search    SearchConfig              `yaml:"search,omitempty"`
	Engine    EngineConfig              `yaml:"engine,omitempty"`
	Stream    StreamConfig              `yaml:"stream,omitempty"`
	Store     StoreConfig               `yaml:"store,omitempty"`
	Logging   LoggingConfig             `yaml:"logging,omitempty"`
}

// ProviderConfig defines credentials and the default model for one
// model-completion provider ("claude", "gemini", "deepseek", "ollama").
type ProviderConfig struct {
	APIKey   string `yaml:"apiKey,omitempty"`   // supports ${ENV_VAR} references
	Model    string `yaml:"model,omitempty"`    // default model when an agent leaves it blank
	Endpoint string `yaml:"endpoint,omitempty"` // custom endpoint (Ollama)
}

// SearchConfig configures the web-search service used by the search tool.
type SearchConfig struct {
	Provider   string `yaml:"provider,omitempty"` // "google"
	APIKey     string `yaml:"apiKey,omitempty"`   // supports ${ENV_VAR} references
	EngineID   string `yaml:"engineId,omitempty"` // Custom Search engine ID
	MaxResults int    `yaml:"maxResults,omitempty"`
}

// EngineConfig holds execution defaults; run flags override these per run.
type EngineConfig struct {
	AbortOnError        bool   `yaml:"abortOnError,omitempty"`        // stop the sequence on a model failure
	FreshContextPerPass bool   `yaml:"freshContextPerPass,omitempty"` // reset agent outputs between loop passes
	MaxTokens           int    `yaml:"maxTokens,omitempty"`
	WorkDir             string `yaml:"workDir,omitempty"` // base for relative file markers
}

// StreamConfig configures the WebSocket status-event broadcaster.
type StreamConfig struct {
	Port int `yaml:"port,omitempty"` // 0 = disabled unless --stream-port is given
}

// StoreConfig configures sequence and run-history persistence.
type StoreConfig struct {
	Path string `yaml:"path,omitempty"` // sqlite database path
}

// LoggingConfig controls logging behavior.
type LoggingConfig struct {
	Level string `yaml:"level,omitempty"` // "silent" | "fatal" | "error" | "warn" | "info" | "debug" | "trace"
}
