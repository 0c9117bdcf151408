// Package engine executes locked agent sequences: for each agent it resolves
// placeholders, injects file content, optionally augments the prompt with web
// search results, invokes the model provider, and extracts file writes from
// the response, in that fixed order.
package engine

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/soyeahso/relay/internal/domain"
	"github.com/soyeahso/relay/internal/llm"
	"github.com/soyeahso/relay/internal/logging"
)

// Options controls run-wide behavior. Captured once when the engine is built
// and never mutated during a run.
type Options struct {
	// AbortOnError stops the remaining sequence when a provider call fails.
	// When false the failed agent's output resolves to the not-available
	// sentinel and execution continues.
	AbortOnError bool

	// FreshContextPerPass clears the shared output table between loop
	// passes. The default reuses the context so later passes can reference
	// earlier passes' outputs, most recent completion winning.
	FreshContextPerPass bool

	// Stream requests token streaming from providers that support it.
	Stream bool

	// WorkDir anchors relative paths in read and write markers.
	WorkDir string

	// MaxTokens is passed through to every completion request.
	MaxTokens int
}

// executionContext is the per-run mutable state. The outputs map is written
// only by the engine after each agent completes and read by the placeholder
// resolver during prompt assembly.
type executionContext struct {
	outputs map[int]string
	events  []domain.StatusEvent
}

// Engine drives agent sequences. Agents execute strictly sequentially within
// a run; one Engine may serve many runs but each Run call is self-contained.
type Engine struct {
	registry  *llm.Registry
	injector  *Injector
	augmenter *Augmenter
	extractor *Extractor
	sink      Sink
	opts      Options
	log       *logging.Logger
	onDelta   func(agentIndex int, delta string)
}

// New creates an engine. sink may be nil when no status consumer exists.
func New(registry *llm.Registry, injector *Injector, augmenter *Augmenter, extractor *Extractor, sink Sink, opts Options, log *logging.Logger) *Engine {
	return &Engine{
		registry:  registry,
		injector:  injector,
		augmenter: augmenter,
		extractor: extractor,
		sink:      sink,
		opts:      opts,
		log:       log.Sub("engine"),
	}
}

// OnDelta registers a callback for streamed token deltas. Only invoked when
// Options.Stream is set. Must be called before Run.
func (e *Engine) OnDelta(fn func(agentIndex int, delta string)) {
	e.onDelta = fn
}

// Run executes the sequence and returns a summary covering everything that
// completed, however the run ends. The only error return is a fatal-per-run
// condition: an invalid or empty sequence snapshot. Cancellation is
// cooperative: the context is checked between phases, agents, and passes, and
// in-flight work finishes its atomic unit before the run stops.
func (e *Engine) Run(ctx context.Context, seq domain.AgentSequence) (*domain.RunSummary, error) {
	if err := seq.Validate(); err != nil {
		return nil, fmt.Errorf("invalid sequence: %w", err)
	}

	summary := &domain.RunSummary{
		RunID:         uuid.NewString(),
		SequenceTitle: seq.Title,
		FinalOutcome:  domain.RunCompleted,
		StartedAt:     time.Now(),
	}
	ec := &executionContext{outputs: make(map[int]string)}
	passes := seq.LoopLimit + 1

	e.log.Info().
		Str("run_id", summary.RunID).
		Str("sequence", seq.Title).
		Int("agents", len(seq.Agents)).
		Int("passes", passes).
		Msg("run starting")

	for pass := 1; pass <= passes; pass++ {
		if ctx.Err() != nil {
			return e.finish(summary, domain.RunCancelled), nil
		}
		if pass > 1 && e.opts.FreshContextPerPass {
			ec.outputs = make(map[int]string)
		}
		summary.Passes = pass

		for _, agent := range seq.Agents {
			if ctx.Err() != nil {
				return e.finish(summary, domain.RunCancelled), nil
			}

			res, err := e.runAgent(ctx, ec, agent, pass)
			if isCancellation(err) {
				// The in-flight agent never completed; its partial
				// result is discarded.
				return e.finish(summary, domain.RunCancelled), nil
			}
			summary.Results = append(summary.Results, res)

			if err != nil {
				delete(ec.outputs, agent.Index)
				if e.opts.AbortOnError {
					e.log.Warn().Int("agent", agent.Index).Err(err).Msg("aborting run")
					return e.finish(summary, domain.RunAborted), nil
				}
				e.log.Warn().Int("agent", agent.Index).Err(err).Msg("agent failed, continuing")
				continue
			}
			ec.outputs[agent.Index] = res.RawResponse
		}
	}

	return e.finish(summary, domain.RunCompleted), nil
}

func (e *Engine) finish(summary *domain.RunSummary, outcome domain.RunOutcome) *domain.RunSummary {
	summary.FinalOutcome = outcome
	summary.FinishedAt = time.Now()
	e.log.Info().
		Str("run_id", summary.RunID).
		Str("outcome", string(outcome)).
		Int("results", len(summary.Results)).
		Msg("run finished")
	return summary
}

func isCancellation(err error) bool {
	return errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded)
}

// runAgent drives one agent through its phases. A returned error is either a
// cancellation or a fatal provider failure; recoverable marker, search, and
// write problems are downgraded to warning events.
func (e *Engine) runAgent(ctx context.Context, ec *executionContext, agent domain.AgentDefinition, pass int) (domain.AgentRunResult, error) {
	res := domain.AgentRunResult{
		Index:     agent.Index,
		Pass:      pass,
		Outcome:   domain.OutcomeSuccess,
		StartedAt: time.Now(),
	}
	e.emit(ec, agent.Index, domain.PhaseStarting, fmt.Sprintf("agent %d starting (pass %d)", agent.Index, pass))

	prompt := ResolvePlaceholders(agent.PromptTemplate, ec.outputs)
	recoverable := false
	var attachments []llm.Attachment

	if agent.Tools.ReadFile {
		e.emit(ec, agent.Index, domain.PhaseReadingFiles, "expanding file markers")
		inj := e.injector.Inject(ctx, prompt, e.opts.WorkDir)
		prompt = inj.Prompt
		attachments = inj.Attachments
		for _, f := range inj.Failures {
			recoverable = true
			e.emit(ec, agent.Index, domain.PhaseFailed, fmt.Sprintf("file read failed: %s: %s", f.Path, f.Reason))
		}
	}
	if err := ctx.Err(); err != nil {
		return res, err
	}

	if agent.Tools.WebSearch {
		e.emit(ec, agent.Index, domain.PhaseSearching, "running web search")
		augmented, warn := e.augmenter.Augment(ctx, prompt)
		prompt = augmented
		if warn != "" {
			recoverable = true
			e.emit(ec, agent.Index, domain.PhaseSearching, "warning: "+warn)
		}
	}
	if err := ctx.Err(); err != nil {
		return res, err
	}

	res.ResolvedPrompt = prompt
	e.emit(ec, agent.Index, domain.PhaseInvoking, fmt.Sprintf("calling %s model %s", agent.Provider, agent.ModelID))

	content, err := e.invoke(ctx, agent, prompt, attachments)
	if err != nil {
		if isCancellation(err) {
			return res, err
		}
		res.Outcome = domain.OutcomeFailed
		res.FinishedAt = time.Now()
		e.emit(ec, agent.Index, domain.PhaseFailed, fmt.Sprintf("provider error: %s", err.Error()))
		return res, err
	}
	res.RawResponse = content
	if err := ctx.Err(); err != nil {
		return res, err
	}

	if agent.Tools.WriteFile {
		e.emit(ec, agent.Index, domain.PhaseWritingFiles, "extracting file writes")
		writes, skips := e.extractor.Extract(content, e.opts.WorkDir)
		res.FilesWritten = writes
		for _, s := range skips {
			recoverable = true
			e.emit(ec, agent.Index, domain.PhaseWritingFiles, fmt.Sprintf("skipped %s: %s", s.Path, s.Reason))
		}
		for _, w := range writes {
			if w.Error != "" {
				recoverable = true
				e.emit(ec, agent.Index, domain.PhaseWritingFiles, fmt.Sprintf("failed %s: %s", w.Path, w.Error))
				continue
			}
			e.emit(ec, agent.Index, domain.PhaseWritingFiles, fmt.Sprintf("wrote %s (%d bytes)", w.Path, w.BytesWritten))
		}
	}

	if recoverable {
		res.Outcome = domain.OutcomePartialFailure
	}
	res.FinishedAt = time.Now()
	e.emit(ec, agent.Index, domain.PhaseCompleted, fmt.Sprintf("agent %d completed", agent.Index))
	return res, nil
}

// invoke resolves the provider and collects the full completion, streaming or
// not. Any provider failure here is fatal for the agent.
func (e *Engine) invoke(ctx context.Context, agent domain.AgentDefinition, prompt string, attachments []llm.Attachment) (string, error) {
	client, err := e.registry.Resolve(agent.Provider)
	if err != nil {
		return "", err
	}

	temp := agent.Temperature
	req := llm.CompletionRequest{
		Model:       agent.ModelID,
		System:      agent.SystemPrompt,
		Messages:    []llm.Message{{Role: llm.RoleUser, Content: prompt}},
		Attachments: attachments,
		MaxTokens:   e.opts.MaxTokens,
		Temperature: &temp,
		Stream:      e.opts.Stream,
	}

	if !e.opts.Stream {
		resp, err := client.Complete(ctx, req)
		if err != nil {
			return "", err
		}
		return resp.Content, nil
	}

	events, err := client.Stream(ctx, req)
	if err != nil {
		return "", err
	}
	var b strings.Builder
	for evt := range events {
		switch evt.Type {
		case "delta":
			b.WriteString(evt.Content)
			if e.onDelta != nil {
				e.onDelta(agent.Index, evt.Content)
			}
		case "error":
			return "", &llm.ProviderError{Provider: agent.Provider, Message: evt.Error}
		case "done":
			if b.Len() == 0 && evt.Response != nil {
				return evt.Response.Content, nil
			}
		}
	}
	return b.String(), nil
}
