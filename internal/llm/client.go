// Package llm defines the model-completion client interface and the direct
// HTTP API clients for each supported provider.
//
// The execution engine depends only on the Client interface and resolves a
// concrete provider through the Registry; it never branches on provider
// identity beyond the dispatch key.
package llm

import (
	"context"
	"time"
)

// Role constants for messages.
const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
	RoleSystem    = "system"
)

// Message is a single turn in a conversation.
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// Attachment is a base64-encoded image handed to vision-capable models
// alongside the text prompt.
type Attachment struct {
	Name      string `json:"name"`
	MediaType string `json:"mediaType"` // e.g. "image/png"
	Data      string `json:"data"`      // base64
}

// CompletionRequest is the input to a Complete or Stream call.
type CompletionRequest struct {
	Model       string       `json:"model,omitempty"` // overrides the client's default model
	System      string       `json:"system,omitempty"`
	Messages    []Message    `json:"messages"`
	Attachments []Attachment `json:"attachments,omitempty"`
	MaxTokens   int          `json:"maxTokens,omitempty"`
	Temperature *float64     `json:"temperature,omitempty"`
	Stream      bool         `json:"stream,omitempty"`
}

// CompletionResponse is the result of a non-streaming completion.
type CompletionResponse struct {
	Content    string        `json:"content"`
	StopReason string        `json:"stopReason,omitempty"`
	Usage      Usage         `json:"usage"`
	Model      string        `json:"model,omitempty"`
	Duration   time.Duration `json:"duration,omitempty"`
}

// Usage tracks token consumption.
type Usage struct {
	InputTokens  int `json:"inputTokens"`
	OutputTokens int `json:"outputTokens"`
}

// StreamEvent is a chunk from a streaming completion.
type StreamEvent struct {
	Type    string `json:"type"`              // "delta", "done", "error"
	Content string `json:"content,omitempty"` // text delta
	Error   string `json:"error,omitempty"`   // error message (type="error")

	// Final fields (type="done")
	Response *CompletionResponse `json:"response,omitempty"`
}

// Client is the interface all model providers implement.
type Client interface {
	// Complete sends a request and returns the full response.
	Complete(ctx context.Context, req CompletionRequest) (*CompletionResponse, error)

	// Stream sends a request and returns a channel of streaming events.
	// The channel is closed after the "done" or "error" event.
	Stream(ctx context.Context, req CompletionRequest) (<-chan StreamEvent, error)

	// Name returns the provider name (e.g. "claude", "gemini").
	Name() string
}
