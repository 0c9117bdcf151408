// Package domain defines the core types shared across relay: staged agent
// definitions, locked sequences, and the records produced by executing them.
package domain

import (
	"fmt"
	"regexp"
	"strings"
)

// ToolSet holds the per-agent tool permissions captured at staging time.
type ToolSet struct {
	ReadFile  bool `json:"readFile" yaml:"readFile"`
	WriteFile bool `json:"writeFile" yaml:"writeFile"`
	WebSearch bool `json:"webSearch" yaml:"webSearch"`
}

// AgentDefinition is one staged unit of work: a model, temperature, prompt,
// and tool permissions. Immutable once its sequence is built.
type AgentDefinition struct {
	Index          int     `json:"index" yaml:"index"` // 1-based position in the sequence
	Provider       string  `json:"provider" yaml:"provider"`
	ModelID        string  `json:"modelId" yaml:"modelId"`
	Temperature    float64 `json:"temperature" yaml:"temperature"`
	SystemPrompt   string  `json:"systemPrompt,omitempty" yaml:"systemPrompt,omitempty"`
	PromptTemplate string  `json:"promptTemplate" yaml:"promptTemplate"`
	Tools          ToolSet `json:"tools" yaml:"tools"`
}

// AgentSequence is the locked, ordered list of agents to run. The engine
// receives it as a read-only snapshot and never mutates it.
type AgentSequence struct {
	Title     string            `json:"title" yaml:"title"`
	Agents    []AgentDefinition `json:"agents" yaml:"agents"`
	LoopLimit int               `json:"loopLimit" yaml:"loopLimit"` // 0 = run once
}

// Validate checks that the sequence is runnable: at least one agent,
// contiguous 1..N indices, providers set, temperatures in range.
func (s AgentSequence) Validate() error {
	if len(s.Agents) == 0 {
		return fmt.Errorf("sequence %q has no agents", s.Title)
	}
	if s.LoopLimit < 0 {
		return fmt.Errorf("loop limit must be >= 0, got %d", s.LoopLimit)
	}
	for i, a := range s.Agents {
		want := i + 1
		if a.Index != want {
			return fmt.Errorf("agent at position %d has index %d, want %d", i, a.Index, want)
		}
		if a.Provider == "" {
			return fmt.Errorf("agent %d: provider is required", a.Index)
		}
		if a.ModelID == "" {
			return fmt.Errorf("agent %d: model is required", a.Index)
		}
		if a.Temperature < 0 || a.Temperature > 2 {
			return fmt.Errorf("agent %d: temperature must be 0.0-2.0, got %g", a.Index, a.Temperature)
		}
	}
	return nil
}

// SequenceBuilder accumulates agent definitions during staging. The builder
// is owned by the caller; the engine only ever sees the finalized snapshot
// returned by Build.
type SequenceBuilder struct {
	title     string
	agents    []AgentDefinition
	loopLimit int
}

// NewSequenceBuilder creates an empty builder for a sequence with the given title.
func NewSequenceBuilder(title string) *SequenceBuilder {
	return &SequenceBuilder{title: title}
}

// Add appends an agent definition. The agent's Index is assigned from its
// position; any value set by the caller is overwritten.
func (b *SequenceBuilder) Add(a AgentDefinition) *SequenceBuilder {
	a.Index = len(b.agents) + 1
	b.agents = append(b.agents, a)
	return b
}

// SetLoopLimit sets how many additional passes the sequence runs.
func (b *SequenceBuilder) SetLoopLimit(n int) *SequenceBuilder {
	b.loopLimit = n
	return b
}

// Build validates the staged agents and returns an immutable sequence snapshot.
func (b *SequenceBuilder) Build() (AgentSequence, error) {
	seq := AgentSequence{
		Title:     b.title,
		Agents:    append([]AgentDefinition(nil), b.agents...),
		LoopLimit: b.loopLimit,
	}
	if err := seq.Validate(); err != nil {
		return AgentSequence{}, err
	}
	return seq, nil
}

// invalidTitleChars are characters that cannot appear in a stored sequence name.
var invalidTitleChars = regexp.MustCompile(`[<>:"/\\|?*]`)

// SanitizeTitle converts a sequence title into a storage-safe name.
func SanitizeTitle(title string) string {
	s := invalidTitleChars.ReplaceAllString(title, "_")
	s = strings.Trim(s, " .")
	if s == "" {
		s = "untitled"
	}
	return s
}
