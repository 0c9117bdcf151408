package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/soyeahso/relay/internal/store"
)

func newHistoryCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "history",
		Short: "Inspect past runs",
	}

	cmd.AddCommand(newHistoryListCmd())
	cmd.AddCommand(newHistoryShowCmd())

	return cmd
}

func newHistoryListCmd() *cobra.Command {
	var limit int

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List recent runs",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withStore(func(db *store.DB) error {
				metas, err := store.NewRunStore(db).List(limit)
				if err != nil {
					return err
				}
				if len(metas) == 0 {
					fmt.Println("no recorded runs")
					return nil
				}
				for _, m := range metas {
					fmt.Printf("%s  %-16s %-10s %d agent(s), %d pass(es)  %s\n",
						m.RunID, truncate(m.SequenceTitle, 16), m.FinalOutcome,
						m.Agents, m.Passes, m.StartedAt.Format("2006-01-02 15:04:05"))
				}
				return nil
			})
		},
	}

	cmd.Flags().IntVar(&limit, "limit", 20, "maximum number of runs to list")
	return cmd
}

func newHistoryShowCmd() *cobra.Command {
	var showResponses bool

	cmd := &cobra.Command{
		Use:   "show <run-id>",
		Short: "Show one run in detail",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withStore(func(db *store.DB) error {
				summary, err := store.NewRunStore(db).Get(args[0])
				if err != nil {
					return err
				}

				fmt.Printf("run:      %s\n", summary.RunID)
				fmt.Printf("sequence: %s\n", summary.SequenceTitle)
				fmt.Printf("outcome:  %s\n", summary.FinalOutcome)
				fmt.Printf("passes:   %d\n", summary.Passes)
				fmt.Printf("started:  %s\n", summary.StartedAt.Format("2006-01-02 15:04:05"))

				for _, r := range summary.Results {
					fmt.Printf("\nagent %d (pass %d): %s\n", r.Index, r.Pass, r.Outcome)
					for _, w := range r.FilesWritten {
						if w.Error != "" {
							fmt.Printf("  write failed %s: %s\n", w.Path, w.Error)
							continue
						}
						fmt.Printf("  wrote %s (%d bytes)\n", w.Path, w.BytesWritten)
					}
					if showResponses && r.RawResponse != "" {
						fmt.Println("  response:")
						for _, line := range strings.Split(r.RawResponse, "\n") {
							fmt.Printf("    %s\n", line)
						}
					}
				}
				return nil
			})
		},
	}

	cmd.Flags().BoolVar(&showResponses, "responses", false, "include full model responses")
	return cmd
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n-3] + "..."
}
