// Package agent implements chat agents that hold a conversation thread,
// stream model output, and execute nested tool calls.
package agent

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"fellowship/pkg/llm"
	"fellowship/pkg/logx"
	"fellowship/pkg/tools"
)

// maxToolIterations bounds the nested tool loop within a single turn.
// A model that keeps requesting tools past this gets cut off with an error.
const maxToolIterations = 10

// Config describes one chat agent.
type Config struct {
	Name         string
	Instructions string
	Temperature  float32
	TopP         float32
	MaxTokens    int
}

// ChatAgent is a named conversational agent backed by an LLM client.
// Each agent owns its thread; turns append to it and never rewrite it.
type ChatAgent struct {
	client  llm.Client
	tools   *tools.Provider
	thread  *Thread
	counter *TokenCounter
	logger  *logx.Logger
	name    string
	temp    float32
	topP    float32
	maxTok  int
}

// NewChatAgent creates an agent with the given config, model client, and
// tool provider. The provider may be nil for agents without tools.
func NewChatAgent(cfg Config, client llm.Client, provider *tools.Provider) *ChatAgent {
	counter, err := NewTokenCounter()
	if err != nil {
		// The nil counter falls back to character estimation.
		counter = nil
	}

	maxTok := cfg.MaxTokens
	if maxTok <= 0 {
		maxTok = 4096
	}
	temp := cfg.Temperature
	if temp <= 0 {
		temp = llm.TemperatureDefault
	}

	return &ChatAgent{
		client:  client,
		tools:   provider,
		thread:  NewThread(cfg.Instructions),
		counter: counter,
		logger:  logx.NewLogger(cfg.Name),
		name:    cfg.Name,
		temp:    temp,
		topP:    cfg.TopP,
		maxTok:  maxTok,
	}
}

// Name returns the agent's display name.
func (a *ChatAgent) Name() string {
	return a.name
}

// Thread exposes the agent's conversation thread.
func (a *ChatAgent) Thread() *Thread {
	return a.thread
}

// RunStream sends a message to the agent and returns the resulting chunk
// stream. Tool calls requested by the model are executed transparently and
// their results fed back; the caller sees text deltas and tool-call markers
// for every pass, terminated by a done chunk or an error chunk.
func (a *ChatAgent) RunStream(ctx context.Context, message string) (<-chan llm.StreamChunk, error) {
	if strings.TrimSpace(message) == "" {
		return nil, fmt.Errorf("agent %s: message cannot be empty", a.name)
	}
	a.thread.Append(llm.NewUserMessage(message))

	out := make(chan llm.StreamChunk)
	go func() {
		defer close(out)
		a.run(ctx, out)
	}()
	return out, nil
}

// run drives the model and the nested tool loop, forwarding chunks to out.
func (a *ChatAgent) run(ctx context.Context, out chan<- llm.StreamChunk) {
	for iteration := 0; iteration < maxToolIterations; iteration++ {
		req := llm.CompletionRequest{
			Messages:    a.thread.Messages(),
			MaxTokens:   a.maxTok,
			Temperature: a.temp,
			TopP:        a.topP,
		}
		if a.tools != nil {
			req.Tools = a.tools.Definitions()
		}

		a.logger.Debug("model pass %d, history %d messages, ~%d tokens",
			iteration+1, a.thread.Len(), a.threadTokens())

		stream, err := a.client.Stream(ctx, req)
		if err != nil {
			out <- llm.ErrChunk(err)
			return
		}

		var text strings.Builder
		var calls []llm.ToolCall
		for chunk := range stream {
			if chunk.Err != nil {
				out <- chunk
				return
			}
			switch chunk.Kind {
			case llm.ChunkText:
				text.WriteString(chunk.Content)
				out <- chunk
			case llm.ChunkToolCall:
				calls = append(calls, *chunk.ToolCall)
				out <- chunk
			case llm.ChunkDone, llm.ChunkOther:
				// Done ends the pass; anything unrecognized is skipped.
			}
		}

		a.thread.Append(llm.CompletionMessage{
			Role:      llm.RoleAssistant,
			Content:   text.String(),
			ToolCalls: calls,
		})

		if len(calls) == 0 {
			out <- llm.DoneChunk()
			return
		}

		results := a.executeToolCalls(ctx, calls)
		a.thread.Append(llm.CompletionMessage{
			Role:        llm.RoleUser,
			ToolResults: results,
		})
	}

	out <- llm.ErrChunk(fmt.Errorf("agent %s: exceeded %d tool iterations in one turn", a.name, maxToolIterations))
}

// executeToolCalls runs every requested tool call, in order. A failing call
// produces an error result for the model rather than aborting the turn.
func (a *ChatAgent) executeToolCalls(ctx context.Context, calls []llm.ToolCall) []llm.ToolResult {
	results := make([]llm.ToolResult, 0, len(calls))
	for i := range calls {
		call := &calls[i]
		result := llm.ToolResult{ToolCallID: call.ID}

		content, err := a.executeOne(ctx, call)
		if err != nil {
			a.logger.Warn("tool %s failed: %v", call.Name, err)
			result.Content = fmt.Sprintf("Error: %v", err)
			result.IsError = true
		} else {
			result.Content = content
		}
		results = append(results, result)
	}
	return results
}

// executeOne resolves and runs a single tool call.
func (a *ChatAgent) executeOne(ctx context.Context, call *llm.ToolCall) (string, error) {
	if a.tools == nil {
		return "", fmt.Errorf("agent has no tools configured")
	}
	tool, err := a.tools.Get(call.Name)
	if err != nil {
		return "", err
	}

	args, err := json.Marshal(call.Parameters)
	if err == nil {
		a.logger.Debug("executing tool %s with args %s", call.Name, string(args))
	}

	result, err := tool.Exec(ctx, call.Parameters)
	if err != nil {
		return "", err
	}
	return result.Content, nil
}

// threadTokens estimates the token footprint of the current history.
func (a *ChatAgent) threadTokens() int {
	total := 0
	for _, msg := range a.thread.Messages() {
		total += a.counter.CountTokens(msg.Content)
	}
	return total
}
