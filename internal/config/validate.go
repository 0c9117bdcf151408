package config

import (
	"fmt"
	"slices"
)

// ValidationIssue describes a problem with a config value.
type ValidationIssue struct {
	Path    string
	Message string
}

func (v ValidationIssue) String() string {
	return fmt.Sprintf("%s: %s", v.Path, v.Message)
}

// knownProviders are the provider names the registry can construct.
var knownProviders = []string{"claude", "gemini", "deepseek", "ollama"}

// Validate checks a Config for issues. Returns nil if valid.
func Validate(cfg *Config) []ValidationIssue {
	var issues []ValidationIssue

	for name, p := range cfg.Providers {
		if !slices.Contains(knownProviders, name) {
			issues = append(issues, ValidationIssue{
				Path:    "providers." + name,
				Message: fmt.Sprintf("unknown provider, must be one of %v", knownProviders),
			})
			continue
		}
		if name != "ollama" && p.APIKey == "" {
			issues = append(issues, ValidationIssue{
				Path:    "providers." + name + ".apiKey",
				Message: "apiKey is required",
			})
		}
	}

	if cfg.Search.Provider != "" && cfg.Search.Provider != "google" {
		issues = append(issues, ValidationIssue{
			Path:    "search.provider",
			Message: fmt.Sprintf("must be \"google\", got %q", cfg.Search.Provider),
		})
	}
	if cfg.Search.MaxResults < 0 || cfg.Search.MaxResults > 10 {
		issues = append(issues, ValidationIssue{
			Path:    "search.maxResults",
			Message: fmt.Sprintf("must be 0-10, got %d", cfg.Search.MaxResults),
		})
	}

	if cfg.Stream.Port < 0 || cfg.Stream.Port > 65535 {
		issues = append(issues, ValidationIssue{
			Path:    "stream.port",
			Message: fmt.Sprintf("port must be 0-65535, got %d", cfg.Stream.Port),
		})
	}

	validLogLevels := []string{"silent", "fatal", "error", "warn", "info", "debug", "trace"}
	if cfg.Logging.Level != "" && !slices.Contains(validLogLevels, cfg.Logging.Level) {
		issues = append(issues, ValidationIssue{
			Path:    "logging.level",
			Message: fmt.Sprintf("must be one of %v, got %q", validLogLevels, cfg.Logging.Level),
		})
	}

	if cfg.Engine.MaxTokens < 0 {
		issues = append(issues, ValidationIssue{
			Path:    "engine.maxTokens",
			Message: fmt.Sprintf("must be >= 0, got %d", cfg.Engine.MaxTokens),
		})
	}

	return issues
}
