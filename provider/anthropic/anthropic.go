package anthropic_provider

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"time"

	"github.com/mohammad-safakhou/courserag/config"
	"github.com/mohammad-safakhou/courserag/provider"
)

const (
	defaultBaseURL = "https://api.anthropic.com/v1"
	apiVersion     = "2023-06-01"
)

// Client implements provider.Completer against the Anthropic messages API.
type Client struct {
	apiKey      string
	baseURL     string
	model       string
	maxTokens   int
	temperature float64
	httpClient  *http.Client
}

// NewClient creates a new Anthropic messages client.
func NewClient(cfg config.LLMConfig) *Client {
	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = defaultBaseURL
	}
	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = 60 * time.Second
	}
	return &Client{
		apiKey:      cfg.APIKey,
		baseURL:     baseURL,
		model:       cfg.Model,
		maxTokens:   cfg.MaxTokens,
		temperature: cfg.Temperature,
		httpClient:  &http.Client{Timeout: timeout},
	}
}

type messagesRequest struct {
	Model       string                    `json:"model"`
	MaxTokens   int                       `json:"max_tokens"`
	Temperature float64                   `json:"temperature"`
	System      string                    `json:"system,omitempty"`
	Messages    []provider.Message        `json:"messages"`
	Tools       []provider.ToolDefinition `json:"tools,omitempty"`
	ToolChoice  *toolChoice               `json:"tool_choice,omitempty"`
}

type toolChoice struct {
	Type string `json:"type"` // auto or none
}

type messagesResponse struct {
	Content    []provider.ContentBlock `json:"content"`
	StopReason string                  `json:"stop_reason"`
	Usage      struct {
		InputTokens  int64 `json:"input_tokens"`
		OutputTokens int64 `json:"output_tokens"`
	} `json:"usage"`
}

type errorResponse struct {
	Error struct {
		Type    string `json:"type"`
		Message string `json:"message"`
	} `json:"error"`
}

// CreateCompletion sends one messages request. Tool use is enabled unless
// req.DisableTools is set, in which case tool_choice "none" forces a final
// natural-language answer.
func (c *Client) CreateCompletion(ctx context.Context, req provider.CompletionRequest) (provider.CompletionResponse, error) {
	body := messagesRequest{
		Model:       c.model,
		MaxTokens:   c.maxTokens,
		Temperature: c.temperature,
		System:      req.System,
		Messages:    req.Messages,
	}
	if len(req.Tools) > 0 {
		body.Tools = req.Tools
		if req.DisableTools {
			body.ToolChoice = &toolChoice{Type: "none"}
		} else {
			body.ToolChoice = &toolChoice{Type: "auto"}
		}
	}

	data, err := json.Marshal(body)
	if err != nil {
		return provider.CompletionResponse{}, &provider.CompletionError{Message: "marshal request", Err: err}
	}

	httpReq, err := http.NewRequestWithContext(ctx, "POST", c.baseURL+"/messages", bytes.NewBuffer(data))
	if err != nil {
		return provider.CompletionResponse{}, &provider.CompletionError{Message: "build request", Err: err}
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("x-api-key", c.apiKey)
	httpReq.Header.Set("anthropic-version", apiVersion)

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return provider.CompletionResponse{}, &provider.CompletionError{Message: "send request", Err: err}
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return provider.CompletionResponse{}, &provider.CompletionError{Message: "read response", Err: err}
	}
	if resp.StatusCode != http.StatusOK {
		var apiErr errorResponse
		msg := string(raw)
		if json.Unmarshal(raw, &apiErr) == nil && apiErr.Error.Message != "" {
			msg = apiErr.Error.Message
		}
		return provider.CompletionResponse{}, &provider.CompletionError{StatusCode: resp.StatusCode, Message: msg}
	}

	var out messagesResponse
	if err := json.Unmarshal(raw, &out); err != nil {
		return provider.CompletionResponse{}, &provider.CompletionError{Message: "parse response", Err: err}
	}
	if len(out.Content) == 0 {
		return provider.CompletionResponse{}, &provider.CompletionError{Message: "empty response content"}
	}

	return provider.CompletionResponse{
		Content:      out.Content,
		StopReason:   out.StopReason,
		InputTokens:  out.Usage.InputTokens,
		OutputTokens: out.Usage.OutputTokens,
	}, nil
}
