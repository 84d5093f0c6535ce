package provider

import (
	"context"
	"encoding/json"
	"fmt"
)

const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

const (
	StopReasonEndTurn = "end_turn"
	StopReasonToolUse = "tool_use"
)

// ContentBlock is one block of a message: plain text, a tool-use request
// from the model, or a tool result fed back to it.
type ContentBlock struct {
	Type      string          `json:"type"`
	Text      string          `json:"text,omitempty"`
	ID        string          `json:"id,omitempty"`
	Name      string          `json:"name,omitempty"`
	Input     json.RawMessage `json:"input,omitempty"`
	ToolUseID string          `json:"tool_use_id,omitempty"`
	Content   string          `json:"content,omitempty"`
	IsError   bool            `json:"is_error,omitempty"`
}

// TextBlock builds a plain text content block.
func TextBlock(text string) ContentBlock {
	return ContentBlock{Type: "text", Text: text}
}

// ToolResultBlock builds a tool result block answering a tool-use request.
func ToolResultBlock(toolUseID, content string, isError bool) ContentBlock {
	return ContentBlock{Type: "tool_result", ToolUseID: toolUseID, Content: content, IsError: isError}
}

// Message is one turn in a conversation.
type Message struct {
	Role    string         `json:"role"`
	Content []ContentBlock `json:"content"`
}

// UserMessage builds a single-text user message.
func UserMessage(text string) Message {
	return Message{Role: RoleUser, Content: []ContentBlock{TextBlock(text)}}
}

// ToolDefinition declares one callable capability to the model.
type ToolDefinition struct {
	Name        string                 `json:"name"`
	Description string                 `json:"description"`
	InputSchema map[string]interface{} `json:"input_schema"`
}

// ToolCall is a tool invocation requested by the model.
type ToolCall struct {
	ID    string
	Name  string
	Input json.RawMessage
}

// CompletionRequest is the single request type the completion service
// consumes. When DisableTools is set, the provider forbids further tool
// calls, forcing a final natural-language answer.
type CompletionRequest struct {
	System       string
	Messages     []Message
	Tools        []ToolDefinition
	DisableTools bool
}

// CompletionResponse is either final text or a tool-call request.
type CompletionResponse struct {
	Content      []ContentBlock
	StopReason   string
	InputTokens  int64
	OutputTokens int64
}

// Text returns the first text block of the response, or "".
func (r CompletionResponse) Text() string {
	for _, b := range r.Content {
		if b.Type == "text" {
			return b.Text
		}
	}
	return ""
}

// ToolCalls returns the tool-use requests contained in the response.
func (r CompletionResponse) ToolCalls() []ToolCall {
	var calls []ToolCall
	for _, b := range r.Content {
		if b.Type == "tool_use" {
			calls = append(calls, ToolCall{ID: b.ID, Name: b.Name, Input: b.Input})
		}
	}
	return calls
}

// CompletionError reports a failed completion call. It is fatal to the
// current query and propagates to the caller.
type CompletionError struct {
	StatusCode int
	Message    string
	Err        error
}

func (e *CompletionError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("completion failed: status %d: %s", e.StatusCode, e.Message)
	}
	return fmt.Sprintf("completion failed: %s", e.Message)
}

func (e *CompletionError) Unwrap() error { return e.Err }

// Completer is the LLM completion service boundary.
type Completer interface {
	CreateCompletion(ctx context.Context, req CompletionRequest) (CompletionResponse, error)
}

// Embedder is the embedding service boundary.
type Embedder interface {
	CreateEmbedding(ctx context.Context, texts []string) ([][]float32, error)
}
