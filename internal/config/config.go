// Package config loads and validates the relay configuration file.
package config

// ConfigError describes a problem loading or parsing configuration.
type ConfigError struct {
	Message string
}

func (e *ConfigError) Error() string {
	return e.Message
}

// Defaults returns a Config with built-in defaults applied.
func Defaults() Config {
	cfg := Config{}
	applyDefaults(&cfg)
	return cfg
}
