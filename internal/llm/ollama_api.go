package llm

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

// OllamaAPIClient is a direct HTTP client for a local Ollama server.
type OllamaAPIClient struct {
	baseURL string
	model   string
	client  *http.Client
}

// NewOllamaAPIClient creates a new Ollama API client.
// baseURL defaults to "http://localhost:11434".
func NewOllamaAPIClient(baseURL, model string) *OllamaAPIClient {
	if baseURL == "" {
		baseURL = "http://localhost:11434"
	}
	baseURL = strings.TrimSuffix(baseURL, "/")

	return &OllamaAPIClient{
		baseURL: baseURL,
		model:   model,
		client:  &http.Client{Timeout: 120 * time.Second},
	}
}

// Name returns the provider name.
func (o *OllamaAPIClient) Name() string {
	return "ollama"
}

// Complete sends a non-streaming completion request.
func (o *OllamaAPIClient) Complete(ctx context.Context, req CompletionRequest) (*CompletionResponse, error) {
	start := time.Now()
	model := resolveModel(req.Model, o.model)

	payload, err := json.Marshal(o.buildRequestBody(req, model, false))
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, "POST",
		fmt.Sprintf("%s/api/generate", o.baseURL), strings.NewReader(string(payload)))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := o.client.Do(httpReq)
	if err != nil {
		return nil, &ProviderError{Provider: "ollama", Message: err.Error()}
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return nil, &ProviderError{Provider: "ollama", Code: resp.StatusCode, Message: string(respBody)}
	}

	var result ollamaAPIResponse
	if err := json.Unmarshal(respBody, &result); err != nil {
		return nil, fmt.Errorf("failed to parse response: %w", err)
	}

	return &CompletionResponse{
		Content: result.Response,
		Model:   model,
		Usage: Usage{
			InputTokens:  result.PromptEvalCount,
			OutputTokens: result.EvalCount,
		},
		Duration: time.Since(start),
	}, nil
}

// Stream sends a streaming completion request. Ollama streams newline-delimited JSON.
func (o *OllamaAPIClient) Stream(ctx context.Context, req CompletionRequest) (<-chan StreamEvent, error) {
	eventChan := make(chan StreamEvent)
	model := resolveModel(req.Model, o.model)

	payload, err := json.Marshal(o.buildRequestBody(req, model, true))
	if err != nil {
		close(eventChan)
		return eventChan, fmt.Errorf("failed to marshal request: %w", err)
	}

	go o.streamRequest(ctx, eventChan, payload, model)
	return eventChan, nil
}

func (o *OllamaAPIClient) buildRequestBody(req CompletionRequest, model string, stream bool) map[string]interface{} {
	body := map[string]interface{}{
		"model":  model,
		"prompt": o.buildPrompt(req),
		"stream": stream,
	}

	if req.System != "" {
		body["system"] = req.System
	}
	if req.Temperature != nil {
		body["options"] = map[string]interface{}{"temperature": *req.Temperature}
	}
	if len(req.Attachments) > 0 {
		images := make([]string, len(req.Attachments))
		for i, att := range req.Attachments {
			images[i] = att.Data
		}
		body["images"] = images
	}

	return body
}

func (o *OllamaAPIClient) buildPrompt(req CompletionRequest) string {
	var prompt strings.Builder
	for _, msg := range req.Messages {
		if msg.Role != RoleUser {
			fmt.Fprintf(&prompt, "%s: ", msg.Role)
		}
		prompt.WriteString(msg.Content)
		prompt.WriteString("\n\n")
	}
	return strings.TrimSuffix(prompt.String(), "\n\n")
}

func (o *OllamaAPIClient) streamRequest(ctx context.Context, eventChan chan StreamEvent, payload []byte, model string) {
	defer close(eventChan)

	httpReq, err := http.NewRequestWithContext(ctx, "POST",
		fmt.Sprintf("%s/api/generate", o.baseURL), strings.NewReader(string(payload)))
	if err != nil {
		eventChan <- StreamEvent{Type: "error", Error: fmt.Sprintf("request creation failed: %v", err)}
		return
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := o.client.Do(httpReq)
	if err != nil {
		eventChan <- StreamEvent{Type: "error", Error: fmt.Sprintf("request failed: %v", err)}
		return
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		eventChan <- StreamEvent{Type: "error", Error: fmt.Sprintf("API error (%d): %s", resp.StatusCode, string(body))}
		return
	}

	scanner := bufio.NewScanner(resp.Body)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	var fullContent strings.Builder
	var usage Usage

	for scanner.Scan() {
		line := scanner.Text()
		if strings.TrimSpace(line) == "" {
			continue
		}

		var event ollamaAPIResponse
		if err := json.Unmarshal([]byte(line), &event); err != nil {
			continue
		}

		if event.Response != "" {
			fullContent.WriteString(event.Response)
			eventChan <- StreamEvent{Type: "delta", Content: event.Response}
		}
		if event.Done {
			usage.InputTokens = event.PromptEvalCount
			usage.OutputTokens = event.EvalCount
		}
	}

	eventChan <- StreamEvent{
		Type: "done",
		Response: &CompletionResponse{
			Content: fullContent.String(),
			Usage:   usage,
			Model:   model,
		},
	}
}

// API response structure (both full responses and stream chunks)

type ollamaAPIResponse struct {
	Model           string `json:"model"`
	CreatedAt       string `json:"created_at"`
	Response        string `json:"response"`
	Done            bool   `json:"done"`
	PromptEvalCount int    `json:"prompt_eval_count"`
	EvalCount       int    `json:"eval_count"`
}
