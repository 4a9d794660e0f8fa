// Package llm provides interfaces and types for language model client implementations.
package llm

import (
	"context"

	"fellowship/pkg/tools"
)

// CompletionRole represents the role of a message in a conversation.
type CompletionRole string

const (
	// RoleSystem indicates a system message that provides instructions or context.
	RoleSystem CompletionRole = "system"
	// RoleUser indicates a message from the human user.
	RoleUser CompletionRole = "user"
	// RoleAssistant indicates a message from the AI assistant.
	RoleAssistant CompletionRole = "assistant"
)

// TemperatureDefault is the sampling temperature used when none is configured.
const TemperatureDefault = 0.3

// ToolCall represents a tool call made by the LLM.
type ToolCall struct {
	Parameters map[string]any `json:"parameters"`
	ID         string         `json:"id"`
	Name       string         `json:"name"`
}

// ToolResult carries the outcome of one executed tool call back to the LLM.
type ToolResult struct {
	ToolCallID string `json:"tool_call_id"`
	Content    string `json:"content"`
	IsError    bool   `json:"is_error"`
}

// CompletionMessage represents a message in a completion request.
type CompletionMessage struct {
	ToolCalls   []ToolCall
	ToolResults []ToolResult
	Content     string
	Role        CompletionRole
}

// CompletionRequest represents a request to generate a completion.
type CompletionRequest struct {
	Messages    []CompletionMessage
	Tools       []tools.ToolDefinition
	MaxTokens   int
	Temperature float32
	TopP        float32
}

// CompletionResponse represents a response from a completion request.
type CompletionResponse struct {
	ToolCalls  []ToolCall
	Content    string // Main response text
	StopReason string // Why the response stopped: "end_turn", "max_tokens", "tool_use", etc.
}

// ChunkKind tags what one streamed fragment carries.
type ChunkKind int8

const (
	// ChunkText carries a visible text delta.
	ChunkText ChunkKind = iota
	// ChunkToolCall marks a nested tool invocation, naming the tool.
	ChunkToolCall
	// ChunkDone marks the end of the stream.
	ChunkDone
	// ChunkOther carries nothing recognizable; consumers ignore it.
	ChunkOther
)

// StreamChunk represents one fragment of a streamed completion response.
// Exactly one of Content, ToolCall, or Err is meaningful, selected by Kind
// (Err may accompany any kind and always aborts consumption).
type StreamChunk struct {
	Err      error
	ToolCall *ToolCall
	Content  string
	Kind     ChunkKind
}

// TextChunk builds a text-delta chunk.
func TextChunk(content string) StreamChunk {
	return StreamChunk{Kind: ChunkText, Content: content}
}

// ToolCallChunk builds a tool-invocation marker chunk.
func ToolCallChunk(call ToolCall) StreamChunk {
	return StreamChunk{Kind: ChunkToolCall, ToolCall: &call}
}

// DoneChunk builds the terminal chunk.
func DoneChunk() StreamChunk {
	return StreamChunk{Kind: ChunkDone}
}

// ErrChunk builds an error chunk that aborts the stream.
func ErrChunk(err error) StreamChunk {
	return StreamChunk{Kind: ChunkOther, Err: err}
}

// Client defines the interface for language model interactions.
type Client interface {
	// Complete generates a completion synchronously.
	Complete(ctx context.Context, in CompletionRequest) (CompletionResponse, error)

	// Stream generates a completion as a stream of chunks.
	Stream(ctx context.Context, in CompletionRequest) (<-chan StreamChunk, error)

	// GetModelName returns the model name for this client.
	GetModelName() string
}

// NewCompletionRequest creates a new completion request with default values.
func NewCompletionRequest(messages []CompletionMessage) CompletionRequest {
	return CompletionRequest{
		Messages:    messages,
		MaxTokens:   4096,
		Temperature: TemperatureDefault,
	}
}

// NewSystemMessage creates a new system message.
func NewSystemMessage(content string) CompletionMessage {
	return CompletionMessage{
		Role:    RoleSystem,
		Content: content,
	}
}

// NewUserMessage creates a new user message.
func NewUserMessage(content string) CompletionMessage {
	return CompletionMessage{
		Role:    RoleUser,
		Content: content,
	}
}

// StreamFromResponse converts a synchronous completion into a chunk stream.
// Used by providers whose SDK path is non-streaming.
func StreamFromResponse(resp CompletionResponse, err error) <-chan StreamChunk {
	ch := make(chan StreamChunk, len(resp.ToolCalls)+3)
	go func() {
		defer close(ch)
		if err != nil {
			ch <- ErrChunk(err)
			return
		}
		for i := range resp.ToolCalls {
			ch <- ToolCallChunk(resp.ToolCalls[i])
		}
		if resp.Content != "" {
			ch <- TextChunk(resp.Content)
		}
		ch <- DoneChunk()
	}()
	return ch
}
