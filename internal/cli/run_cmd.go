package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/soyeahso/relay/internal/convert"
	"github.com/soyeahso/relay/internal/domain"
	"github.com/soyeahso/relay/internal/engine"
	"github.com/soyeahso/relay/internal/llm"
	"github.com/soyeahso/relay/internal/search"
	"github.com/soyeahso/relay/internal/store"
	"github.com/soyeahso/relay/internal/stream"
)

func newRunCmd() *cobra.Command {
	var (
		loops           int
		freshContext    bool
		abortOnError    bool
		continueOnError bool
		streamTokens    bool
		workDir         string
		streamPort      int
	)

	cmd := &cobra.Command{
		Use:   "run <sequence>",
		Short: "Execute a saved sequence or a sequence file",
		Long: `Execute an agent sequence. The argument is either the name of a saved
sequence or the path of a sequence JSON file.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}

			db, err := openStore(cfg)
			if err != nil {
				return err
			}
			defer db.Close()

			seq, err := resolveSequence(db, args[0])
			if err != nil {
				return err
			}
			if cmd.Flags().Changed("loops") {
				seq.LoopLimit = loops
			}

			opts := engine.Options{
				AbortOnError:        cfg.Engine.AbortOnError,
				FreshContextPerPass: cfg.Engine.FreshContextPerPass,
				Stream:              streamTokens,
				WorkDir:             cfg.Engine.WorkDir,
				MaxTokens:           cfg.Engine.MaxTokens,
			}
			if cmd.Flags().Changed("abort-on-error") {
				opts.AbortOnError = abortOnError
			}
			if continueOnError {
				opts.AbortOnError = false
			}
			if cmd.Flags().Changed("fresh-context") {
				opts.FreshContextPerPass = freshContext
			}
			if workDir != "" {
				opts.WorkDir = workDir
			}
			if opts.WorkDir == "" {
				opts.WorkDir, _ = os.Getwd()
			}

			ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			registry := llm.NewRegistryFromConfig(cfg.Providers, log)

			var svc search.Service
			if cfg.Search.APIKey != "" && cfg.Search.EngineID != "" {
				gc, err := search.NewGoogleClient(ctx, cfg.Search.APIKey, cfg.Search.EngineID, cfg.Search.MaxResults)
				if err != nil {
					log.Warn().Err(err).Msg("search client unavailable")
				} else {
					svc = gc
				}
			}

			sinks := engine.MultiSink{statusPrinter()}
			port := cfg.Stream.Port
			if cmd.Flags().Changed("stream-port") {
				port = streamPort
			}
			if port > 0 {
				bc := stream.NewBroadcaster(log)
				if err := bc.Serve(port); err != nil {
					return err
				}
				defer bc.Close()
				sinks = append(sinks, bc)
			}

			eng := engine.New(
				registry,
				engine.NewInjector(convert.NewLocalConverter(), log),
				engine.NewAugmenter(svc, log),
				engine.NewExtractor(log),
				sinks,
				opts,
				log,
			)
			if streamTokens {
				eng.OnDelta(func(agentIndex int, delta string) {
					fmt.Print(delta)
				})
			}

			summary, err := eng.Run(ctx, *seq)
			if err != nil {
				return err
			}
			if streamTokens {
				fmt.Println()
			}

			if err := store.NewRunStore(db).Save(summary); err != nil {
				log.Warn().Err(err).Msg("failed to record run history")
			}

			printSummary(summary)
			if summary.FinalOutcome != domain.RunCompleted {
				return fmt.Errorf("run %s", summary.FinalOutcome)
			}
			return nil
		},
	}

	cmd.Flags().IntVar(&loops, "loops", 0, "override the sequence loop limit (0 = run once)")
	cmd.Flags().BoolVar(&freshContext, "fresh-context", false, "reset agent outputs between loop passes")
	cmd.Flags().BoolVar(&abortOnError, "abort-on-error", false, "stop the sequence when an agent's model call fails")
	cmd.Flags().BoolVar(&continueOnError, "continue-on-error", false, "keep running after a model failure")
	cmd.Flags().BoolVar(&streamTokens, "stream", false, "stream model tokens to stdout as they arrive")
	cmd.Flags().StringVar(&workDir, "workdir", "", "working directory for relative file markers (default: current directory)")
	cmd.Flags().IntVar(&streamPort, "stream-port", 0, "serve status events over WebSocket on this port")

	return cmd
}

// resolveSequence loads the argument as a file path when it points at an
// existing file, otherwise as a saved sequence name.
func resolveSequence(db *store.DB, arg string) (*domain.AgentSequence, error) {
	if info, err := os.Stat(arg); err == nil && !info.IsDir() {
		return store.LoadFile(arg)
	}
	return store.NewSequenceStore(db).Get(arg)
}

// statusPrinter renders status events as human-readable lines on stderr so
// streamed tokens on stdout stay clean.
func statusPrinter() engine.Sink {
	return engine.SinkFunc(func(evt domain.StatusEvent) {
		fmt.Fprintf(os.Stderr, "[agent %d] %-13s %s\n", evt.AgentIndex, evt.Phase, evt.Message)
	})
}

func printSummary(s *domain.RunSummary) {
	fmt.Fprintf(os.Stderr, "\nrun %s: %s (%d agent results, %d pass(es), %s)\n",
		s.RunID, s.FinalOutcome, len(s.Results), s.Passes,
		s.FinishedAt.Sub(s.StartedAt).Round(time.Millisecond))
	for _, r := range s.Results {
		line := fmt.Sprintf("  agent %d (pass %d): %s", r.Index, r.Pass, r.Outcome)
		var written []string
		for _, w := range r.FilesWritten {
			if w.Error == "" {
				written = append(written, w.Path)
			}
		}
		if len(written) > 0 {
			line += " wrote " + strings.Join(written, ", ")
		}
		fmt.Fprintln(os.Stderr, line)
	}
}
