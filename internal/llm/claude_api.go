package llm

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

const claudeMessagesURL = "https://api.anthropic.com/v1/messages"

// defaultMaxTokens is used when a request does not set MaxTokens; the Claude
// messages API requires the field.
const defaultMaxTokens = 4096

// ClaudeAPIClient is a direct HTTP client for the Claude messages API.
type ClaudeAPIClient struct {
	apiKey string
	model  string
	client *http.Client
}

// NewClaudeAPIClient creates a new Claude API client with a default model.
func NewClaudeAPIClient(apiKey, model string) *ClaudeAPIClient {
	return &ClaudeAPIClient{
		apiKey: apiKey,
		model:  model,
		client: &http.Client{Timeout: 120 * time.Second},
	}
}

// Name returns the provider name.
func (c *ClaudeAPIClient) Name() string {
	return "claude"
}

// Complete sends a non-streaming completion request.
func (c *ClaudeAPIClient) Complete(ctx context.Context, req CompletionRequest) (*CompletionResponse, error) {
	start := time.Now()

	payload, err := json.Marshal(c.buildRequestBody(req, false))
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, "POST", claudeMessagesURL, strings.NewReader(string(payload)))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	c.setHeaders(httpReq)

	resp, err := c.client.Do(httpReq)
	if err != nil {
		return nil, &ProviderError{Provider: "claude", Message: err.Error()}
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return nil, &ProviderError{Provider: "claude", Code: resp.StatusCode, Message: string(respBody)}
	}

	var result claudeAPIResponse
	if err := json.Unmarshal(respBody, &result); err != nil {
		return nil, fmt.Errorf("failed to parse response: %w", err)
	}

	return c.responseToCompletion(&result, time.Since(start)), nil
}

// Stream sends a streaming completion request.
func (c *ClaudeAPIClient) Stream(ctx context.Context, req CompletionRequest) (<-chan StreamEvent, error) {
	eventChan := make(chan StreamEvent)

	payload, err := json.Marshal(c.buildRequestBody(req, true))
	if err != nil {
		close(eventChan)
		return eventChan, fmt.Errorf("failed to marshal request: %w", err)
	}

	go c.streamRequest(ctx, eventChan, payload, resolveModel(req.Model, c.model))
	return eventChan, nil
}

func (c *ClaudeAPIClient) setHeaders(req *http.Request) {
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("x-api-key", c.apiKey)
	req.Header.Set("anthropic-version", "2023-06-01")
}

func (c *ClaudeAPIClient) buildRequestBody(req CompletionRequest, stream bool) map[string]interface{} {
	maxTokens := req.MaxTokens
	if maxTokens == 0 {
		maxTokens = defaultMaxTokens
	}

	body := map[string]interface{}{
		"model":      resolveModel(req.Model, c.model),
		"messages":   c.messagesToClaude(req),
		"max_tokens": maxTokens,
		"stream":     stream,
	}

	if req.System != "" {
		body["system"] = req.System
	}
	if req.Temperature != nil {
		body["temperature"] = *req.Temperature
	}

	return body
}

// messagesToClaude converts messages to the Claude content-block shape.
// Image attachments ride on the last user message as image blocks.
func (c *ClaudeAPIClient) messagesToClaude(req CompletionRequest) []map[string]interface{} {
	result := make([]map[string]interface{}, len(req.Messages))
	for i, m := range req.Messages {
		blocks := []map[string]interface{}{
			{"type": "text", "text": m.Content},
		}
		if i == len(req.Messages)-1 && m.Role == RoleUser {
			for _, att := range req.Attachments {
				blocks = append(blocks, map[string]interface{}{
					"type": "image",
					"source": map[string]interface{}{
						"type":       "base64",
						"media_type": att.MediaType,
						"data":       att.Data,
					},
				})
			}
		}
		result[i] = map[string]interface{}{
			"role":    m.Role,
			"content": blocks,
		}
	}
	return result
}

func (c *ClaudeAPIClient) streamRequest(ctx context.Context, eventChan chan StreamEvent, payload []byte, model string) {
	defer close(eventChan)

	httpReq, err := http.NewRequestWithContext(ctx, "POST", claudeMessagesURL, strings.NewReader(string(payload)))
	if err != nil {
		eventChan <- StreamEvent{Type: "error", Error: fmt.Sprintf("request creation failed: %v", err)}
		return
	}
	c.setHeaders(httpReq)

	resp, err := c.client.Do(httpReq)
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

	scanner := newServerSentEventScanner(resp.Body)
	var fullContent strings.Builder
	var usage Usage

	for scanner.Scan() {
		line := scanner.Text()
		if !strings.HasPrefix(line, "data: ") {
			continue
		}

		dataStr := strings.TrimPrefix(line, "data: ")
		if dataStr == "[DONE]" {
			break
		}

		var event claudeStreamEvent
		if err := json.Unmarshal([]byte(dataStr), &event); err != nil {
			continue
		}

		switch event.Type {
		case "content_block_delta":
			if event.Delta.Type == "text_delta" {
				fullContent.WriteString(event.Delta.Text)
				eventChan <- StreamEvent{Type: "delta", Content: event.Delta.Text}
			}
		case "message_start":
			if event.Message != nil && event.Message.Usage.InputTokens > 0 {
				usage.InputTokens = event.Message.Usage.InputTokens
			}
		case "message_delta":
			if event.Usage.OutputTokens > 0 {
				usage.OutputTokens = event.Usage.OutputTokens
			}
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

func (c *ClaudeAPIClient) responseToCompletion(resp *claudeAPIResponse, duration time.Duration) *CompletionResponse {
	var content strings.Builder
	for _, block := range resp.Content {
		if block.Type == "text" {
			content.WriteString(block.Text)
		}
	}

	return &CompletionResponse{
		Content:    content.String(),
		StopReason: resp.StopReason,
		Usage: Usage{
			InputTokens:  resp.Usage.InputTokens,
			OutputTokens: resp.Usage.OutputTokens,
		},
		Model:    resp.Model,
		Duration: duration,
	}
}

// API response structures

type claudeAPIResponse struct {
	ID         string               `json:"id"`
	Type       string               `json:"type"`
	Role       string               `json:"role"`
	Content    []claudeContentBlock `json:"content"`
	Model      string               `json:"model"`
	StopReason string               `json:"stop_reason"`
	Usage      claudeUsage          `json:"usage"`
}

type claudeContentBlock struct {
	Type string `json:"type"`
	Text string `json:"text,omitempty"`
}

type claudeUsage struct {
	InputTokens  int `json:"input_tokens"`
	OutputTokens int `json:"output_tokens"`
}

type claudeStreamEvent struct {
	Type    string             `json:"type"`
	Delta   claudeStreamDelta  `json:"delta,omitempty"`
	Usage   claudeUsage        `json:"usage,omitempty"`
	Message *claudeAPIResponse `json:"message,omitempty"`
}

type claudeStreamDelta struct {
	Type       string `json:"type"`
	Text       string `json:"text,omitempty"`
	StopReason string `json:"stop_reason,omitempty"`
}
