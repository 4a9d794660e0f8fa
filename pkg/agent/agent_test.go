package agent

import (
	"context"
	"strings"
	"testing"

	"fellowship/pkg/llm"
	"fellowship/pkg/tools"
)

// echoTool returns its "text" argument, recording each invocation.
type echoTool struct {
	calls int
}

func (e *echoTool) Name() string { return "echo" }

func (e *echoTool) Definition() tools.ToolDefinition {
	return tools.ToolDefinition{
		Name:        "echo",
		Description: "Echo the provided text back.",
		InputSchema: tools.InputSchema{
			Type: "object",
			Properties: map[string]tools.Property{
				"text": {Type: "string", Description: "Text to echo."},
			},
			Required: []string{"text"},
		},
	}
}

func (e *echoTool) Exec(_ context.Context, args map[string]any) (*tools.ExecResult, error) {
	e.calls++
	text, _ := args["text"].(string)
	return &tools.ExecResult{Content: text}, nil
}

var testEcho = &echoTool{}

func init() {
	tools.Register("echo", func() (tools.Tool, error) {
		return testEcho, nil
	}, &tools.ToolMeta{
		Name:        "echo",
		Description: "Echo the provided text back.",
		InputSchema: testEcho.Definition().InputSchema,
	})
}

func collectChunks(t *testing.T, ch <-chan llm.StreamChunk) (text string, toolNames []string, err error) {
	t.Helper()
	var sb strings.Builder
	for chunk := range ch {
		if chunk.Err != nil {
			return sb.String(), toolNames, chunk.Err
		}
		switch chunk.Kind {
		case llm.ChunkText:
			sb.WriteString(chunk.Content)
		case llm.ChunkToolCall:
			toolNames = append(toolNames, chunk.ToolCall.Name)
		}
	}
	return sb.String(), toolNames, nil
}

func TestRunStreamPlainResponse(t *testing.T) {
	client := llm.NewMockClient([]llm.CompletionResponse{
		{Content: "A poem about the Shire.", StopReason: "end_turn"},
	}, nil)
	a := NewChatAgent(Config{Name: "poet", Instructions: "You write poems."}, client, nil)

	ch, err := a.RunStream(context.Background(), "Write a poem.")
	if err != nil {
		t.Fatalf("RunStream failed: %v", err)
	}
	text, toolNames, err := collectChunks(t, ch)
	if err != nil {
		t.Fatalf("stream returned error: %v", err)
	}
	if text != "A poem about the Shire." {
		t.Errorf("unexpected text: %q", text)
	}
	if len(toolNames) != 0 {
		t.Errorf("expected no tool calls, got %v", toolNames)
	}

	// system + user + assistant
	if a.Thread().Len() != 3 {
		t.Errorf("expected 3 messages in thread, got %d", a.Thread().Len())
	}
}

func TestRunStreamExecutesToolCalls(t *testing.T) {
	before := testEcho.calls
	client := llm.NewMockClient([]llm.CompletionResponse{
		{
			ToolCalls: []llm.ToolCall{
				{ID: "call_1", Name: "echo", Parameters: map[string]any{"text": "one"}},
				{ID: "call_2", Name: "echo", Parameters: map[string]any{"text": "two"}},
			},
			StopReason: "tool_use",
		},
		{Content: "Echoed both.", StopReason: "end_turn"},
	}, nil)
	a := NewChatAgent(Config{Name: "worker", Instructions: "Use tools."}, client, tools.NewProvider([]string{"echo"}))

	ch, err := a.RunStream(context.Background(), "Echo twice.")
	if err != nil {
		t.Fatalf("RunStream failed: %v", err)
	}
	text, toolNames, err := collectChunks(t, ch)
	if err != nil {
		t.Fatalf("stream returned error: %v", err)
	}
	if text != "Echoed both." {
		t.Errorf("unexpected text: %q", text)
	}
	if len(toolNames) != 2 || toolNames[0] != "echo" || toolNames[1] != "echo" {
		t.Errorf("expected two echo tool calls, got %v", toolNames)
	}
	if testEcho.calls-before != 2 {
		t.Errorf("expected both tool calls executed, got %d", testEcho.calls-before)
	}

	// system + user + assistant(toolcalls) + user(results) + assistant
	if a.Thread().Len() != 5 {
		t.Errorf("expected 5 messages in thread, got %d", a.Thread().Len())
	}
}

func TestRunStreamDisallowedToolBecomesErrorResult(t *testing.T) {
	client := llm.NewMockClient([]llm.CompletionResponse{
		{
			ToolCalls:  []llm.ToolCall{{ID: "call_1", Name: "forbidden", Parameters: map[string]any{}}},
			StopReason: "tool_use",
		},
		{Content: "Could not use that tool.", StopReason: "end_turn"},
	}, nil)
	a := NewChatAgent(Config{Name: "worker"}, client, tools.NewProvider([]string{"echo"}))

	ch, err := a.RunStream(context.Background(), "Try a forbidden tool.")
	if err != nil {
		t.Fatalf("RunStream failed: %v", err)
	}
	_, _, err = collectChunks(t, ch)
	if err != nil {
		t.Fatalf("disallowed tool should not abort the turn: %v", err)
	}

	messages := a.Thread().Messages()
	var found bool
	for _, msg := range messages {
		for _, tr := range msg.ToolResults {
			if tr.IsError {
				found = true
			}
		}
	}
	if !found {
		t.Error("expected an error tool result in the thread")
	}
}

func TestRunStreamToolLoopBounded(t *testing.T) {
	// The model requests a tool on every pass and never stops.
	responses := make([]llm.CompletionResponse, maxToolIterations+1)
	for i := range responses {
		responses[i] = llm.CompletionResponse{
			ToolCalls:  []llm.ToolCall{{ID: "c", Name: "echo", Parameters: map[string]any{"text": "again"}}},
			StopReason: "tool_use",
		}
	}
	client := llm.NewMockClient(responses, nil)
	a := NewChatAgent(Config{Name: "looper"}, client, tools.NewProvider([]string{"echo"}))

	ch, err := a.RunStream(context.Background(), "Loop forever.")
	if err != nil {
		t.Fatalf("RunStream failed: %v", err)
	}
	_, _, err = collectChunks(t, ch)
	if err == nil {
		t.Fatal("expected an iteration limit error")
	}
	if !strings.Contains(err.Error(), "tool iterations") {
		t.Errorf("unexpected error: %v", err)
	}
}

func TestRunStreamRejectsEmptyMessage(t *testing.T) {
	client := llm.NewMockClient(nil, nil)
	a := NewChatAgent(Config{Name: "poet"}, client, nil)
	if _, err := a.RunStream(context.Background(), "   "); err == nil {
		t.Fatal("expected error for empty message")
	}
}

func TestNewLLMClientUnknownProvider(t *testing.T) {
	if _, err := NewLLMClient("mystery-cloud", "some-model", "key", ""); err == nil {
		t.Fatal("expected error for unknown provider")
	}
}
