package config

import (
	"os"
	"path/filepath"
)

const defaultBaseDir = ".relay"

// Paths holds resolved filesystem paths for relay data.
type Paths struct {
	Base      string // ~/.relay
	Config    string // ~/.relay/config.yaml
	Data      string // ~/.relay/data
	Database  string // ~/.relay/data/relay.db
	Sequences string // ~/.relay/sequences (exported .agent.json files)
	Logs      string // ~/.relay/logs
}

// ResolvePaths computes all standard paths from the home directory.
// If RELAY_HOME is set, it overrides the default base directory.
func ResolvePaths() (Paths, error) {
	base := os.Getenv("RELAY_HOME")
	if base == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return Paths{}, err
		}
		base = filepath.Join(home, defaultBaseDir)
	}

	return Paths{
		Base:      base,
		Config:    filepath.Join(base, "config.yaml"),
		Data:      filepath.Join(base, "data"),
		Database:  filepath.Join(base, "data", "relay.db"),
		Sequences: filepath.Join(base, "sequences"),
		Logs:      filepath.Join(base, "logs"),
	}, nil
}

// EnsureDirs creates all standard directories if they don't exist.
func (p Paths) EnsureDirs() error {
	dirs := []string{p.Base, p.Data, p.Sequences, p.Logs}
	for _, d := range dirs {
		if err := os.MkdirAll(d, 0o700); err != nil {
			return err
		}
	}
	return nil
}
