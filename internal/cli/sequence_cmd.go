package cli

import (
	"fmt"
	"path/filepath"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/soyeahso/relay/internal/store"
)

func newSequenceCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "sequence",
		Aliases: []string{"seq"},
		Short:   "Manage saved agent sequences",
	}

	cmd.AddCommand(newSequenceListCmd())
	cmd.AddCommand(newSequenceShowCmd())
	cmd.AddCommand(newSequenceSaveCmd())
	cmd.AddCommand(newSequenceDeleteCmd())
	cmd.AddCommand(newSequenceExportCmd())

	return cmd
}

func newSequenceListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List saved sequences",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withStore(func(db *store.DB) error {
				metas, err := store.NewSequenceStore(db).List()
				if err != nil {
					return err
				}
				if len(metas) == 0 {
					fmt.Println("no saved sequences")
					return nil
				}
				for _, m := range metas {
					fmt.Printf("%-30s %d agent(s), loop limit %d, updated %s\n",
						m.Name, m.Agents, m.LoopLimit, m.UpdatedAt.Format("2006-01-02 15:04"))
				}
				return nil
			})
		},
	}
}

func newSequenceShowCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "show <name>",
		Short: "Print a saved sequence",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withStore(func(db *store.DB) error {
				seq, err := store.NewSequenceStore(db).Get(args[0])
				if err != nil {
					return err
				}
				out, err := yaml.Marshal(seq)
				if err != nil {
					return err
				}
				fmt.Print(string(out))
				return nil
			})
		},
	}
}

func newSequenceSaveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "save <file>",
		Short: "Save a sequence JSON file to the store",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withStore(func(db *store.DB) error {
				seq, err := store.LoadFile(args[0])
				if err != nil {
					return err
				}
				name, err := store.NewSequenceStore(db).Save(*seq)
				if err != nil {
					return err
				}
				fmt.Printf("saved as %q\n", name)
				return nil
			})
		},
	}
}

func newSequenceDeleteCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "delete <name>",
		Short: "Delete a saved sequence",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withStore(func(db *store.DB) error {
				if err := store.NewSequenceStore(db).Delete(args[0]); err != nil {
					return err
				}
				fmt.Printf("deleted %q\n", args[0])
				return nil
			})
		},
	}
}

func newSequenceExportCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "export <name> [path]",
		Short: "Export a saved sequence to a JSON file",
		Args:  cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withStore(func(db *store.DB) error {
				path := filepath.Join(paths.Sequences, args[0]+".agent.json")
				if len(args) == 2 {
					path = args[1]
				}
				if err := store.NewSequenceStore(db).Export(args[0], path); err != nil {
					return err
				}
				fmt.Printf("exported to %s\n", path)
				return nil
			})
		},
	}
}

// withStore loads config, opens the database, and guarantees it closes.
func withStore(fn func(db *store.DB) error) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	db, err := openStore(cfg)
	if err != nil {
		return err
	}
	defer db.Close()
	return fn(db)
}
