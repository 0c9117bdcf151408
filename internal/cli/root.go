// Package cli implements the relay command-line interface.
package cli

import (
	"github.com/spf13/cobra"

	"github.com/soyeahso/relay/internal/config"
	"github.com/soyeahso/relay/internal/logging"
	"github.com/soyeahso/relay/internal/store"
)

var (
	cfgFile  string
	logLevel string

	// loaded at init time
	paths config.Paths
	log   *logging.Logger
)

func newRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "relay",
		Short: "Relay — agent sequence execution engine",
		Long:  "Relay runs staged sequences of LLM agents, chaining outputs through prompt placeholders and file markers.",
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			var err error
			paths, err = config.ResolvePaths()
			if err != nil {
				return err
			}
			if cfgFile != "" {
				paths.Config = cfgFile
			}
			level := logLevel
			if level == "" {
				level = "info"
			}
			log = logging.New(nil, level)
			return nil
		},
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	cmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default ~/.relay/config.yaml)")
	cmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "log level (trace, debug, info, warn, error, fatal, silent)")

	cmd.AddCommand(newVersionCmd())
	cmd.AddCommand(newRunCmd())
	cmd.AddCommand(newSequenceCmd())
	cmd.AddCommand(newHistoryCmd())
	cmd.AddCommand(newConfigCmd())

	return cmd
}

// Execute runs the root command.
func Execute() error {
	return newRootCmd().Execute()
}

// loadConfig reads the config file, falling back to defaults when it does
// not exist yet. The log level from --log-level wins over the config.
func loadConfig() (config.Config, error) {
	cfg, err := config.Load(paths.Config)
	if err != nil {
		return config.Config{}, err
	}
	if logLevel != "" {
		cfg.Logging.Level = logLevel
	}
	log = logging.New(nil, cfg.Logging.Level)
	return cfg, nil
}

// openStore opens the sqlite database, creating standard directories first.
func openStore(cfg config.Config) (*store.DB, error) {
	if err := paths.EnsureDirs(); err != nil {
		return nil, err
	}
	dbPath := cfg.Store.Path
	if dbPath == "" {
		dbPath = paths.Database
	}
	return store.Open(dbPath, log)
}
