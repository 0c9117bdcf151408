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

const deepseekChatURL = "https://api.deepseek.com/chat/completions"

// DeepSeekAPIClient is a direct HTTP client for the DeepSeek chat API
// (OpenAI-compatible chat completions).
type DeepSeekAPIClient struct {
	apiKey string
	model  string
	client *http.Client
}

// NewDeepSeekAPIClient creates a new DeepSeek API client with a default model.
func NewDeepSeekAPIClient(apiKey, model string) *DeepSeekAPIClient {
	return &DeepSeekAPIClient{
		apiKey: apiKey,
		model:  model,
		client: &http.Client{Timeout: 120 * time.Second},
	}
}

// Name returns the provider name.
func (d *DeepSeekAPIClient) Name() string {
	return "deepseek"
}

// Complete sends a non-streaming completion request.
func (d *DeepSeekAPIClient) Complete(ctx context.Context, req CompletionRequest) (*CompletionResponse, error) {
	start := time.Now()
	model := resolveModel(req.Model, d.model)

	payload, err := json.Marshal(d.buildRequestBody(req, model, false))
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, "POST", deepseekChatURL, strings.NewReader(string(payload)))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	d.setHeaders(httpReq)

	resp, err := d.client.Do(httpReq)
	if err != nil {
		return nil, &ProviderError{Provider: "deepseek", Message: err.Error()}
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return nil, &ProviderError{Provider: "deepseek", Code: resp.StatusCode, Message: string(respBody)}
	}

	var result deepseekAPIResponse
	if err := json.Unmarshal(respBody, &result); err != nil {
		return nil, fmt.Errorf("failed to parse response: %w", err)
	}

	out := &CompletionResponse{
		Model: model,
		Usage: Usage{
			InputTokens:  result.Usage.PromptTokens,
			OutputTokens: result.Usage.CompletionTokens,
		},
		Duration: time.Since(start),
	}
	if len(result.Choices) > 0 {
		out.Content = result.Choices[0].Message.Content
		out.StopReason = result.Choices[0].FinishReason
	}
	return out, nil
}

// Stream sends a streaming completion request.
func (d *DeepSeekAPIClient) Stream(ctx context.Context, req CompletionRequest) (<-chan StreamEvent, error) {
	eventChan := make(chan StreamEvent)
	model := resolveModel(req.Model, d.model)

	payload, err := json.Marshal(d.buildRequestBody(req, model, true))
	if err != nil {
		close(eventChan)
		return eventChan, fmt.Errorf("failed to marshal request: %w", err)
	}

	go d.streamRequest(ctx, eventChan, payload, model)
	return eventChan, nil
}

func (d *DeepSeekAPIClient) setHeaders(req *http.Request) {
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+d.apiKey)
}

func (d *DeepSeekAPIClient) buildRequestBody(req CompletionRequest, model string, stream bool) map[string]interface{} {
	var messages []map[string]string
	if req.System != "" {
		messages = append(messages, map[string]string{"role": "system", "content": req.System})
	}
	for _, m := range req.Messages {
		messages = append(messages, map[string]string{"role": m.Role, "content": m.Content})
	}

	body := map[string]interface{}{
		"model":    model,
		"messages": messages,
		"stream":   stream,
	}

	if req.MaxTokens > 0 {
		body["max_tokens"] = req.MaxTokens
	}
	if req.Temperature != nil {
		body["temperature"] = *req.Temperature
	}

	return body
}

func (d *DeepSeekAPIClient) streamRequest(ctx context.Context, eventChan chan StreamEvent, payload []byte, model string) {
	defer close(eventChan)

	httpReq, err := http.NewRequestWithContext(ctx, "POST", deepseekChatURL, strings.NewReader(string(payload)))
	if err != nil {
		eventChan <- StreamEvent{Type: "error", Error: fmt.Sprintf("request creation failed: %v", err)}
		return
	}
	d.setHeaders(httpReq)

	resp, err := d.client.Do(httpReq)
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

		var chunk deepseekStreamChunk
		if err := json.Unmarshal([]byte(dataStr), &chunk); err != nil {
			continue
		}

		if chunk.Usage != nil {
			usage.InputTokens = chunk.Usage.PromptTokens
			usage.OutputTokens = chunk.Usage.CompletionTokens
		}

		for _, choice := range chunk.Choices {
			if choice.Delta.Content != "" {
				fullContent.WriteString(choice.Delta.Content)
				eventChan <- StreamEvent{Type: "delta", Content: choice.Delta.Content}
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

// API response structures

type deepseekAPIResponse struct {
	ID      string           `json:"id"`
	Model   string           `json:"model"`
	Choices []deepseekChoice `json:"choices"`
	Usage   deepseekUsage    `json:"usage"`
}

type deepseekChoice struct {
	Message      Message `json:"message"`
	FinishReason string  `json:"finish_reason"`
}

type deepseekUsage struct {
	PromptTokens     int `json:"prompt_tokens"`
	CompletionTokens int `json:"completion_tokens"`
}

type deepseekStreamChunk struct {
	Choices []deepseekStreamChoice `json:"choices"`
	Usage   *deepseekUsage         `json:"usage,omitempty"`
}

type deepseekStreamChoice struct {
	Delta        Message `json:"delta"`
	FinishReason string  `json:"finish_reason,omitempty"`
}
