package scenario

import (
	"context"
	"fmt"
	"io"

	"fellowship/pkg/llm"
)

// Agent is the conversational capability one participant exposes. Each
// agent owns its own thread; successive RunStream calls continue it.
type Agent interface {
	Name() string
	RunStream(ctx context.Context, message string) (<-chan llm.StreamChunk, error)
}

// TurnRecord captures one completed agent turn. It lives only long enough
// to classify the reply and build the next message.
type TurnRecord struct {
	Speaker   string
	Input     string
	Output    string
	ToolCalls []string
}

// AgentInvocationError wraps a fatal failure from an agent call. It is
// propagated unmodified to the scenario loop; no retry happens here.
type AgentInvocationError struct {
	Err   error
	Agent string
}

func (e *AgentInvocationError) Error() string {
	return fmt.Sprintf("agent %s invocation failed: %v", e.Agent, e.Err)
}

func (e *AgentInvocationError) Unwrap() error {
	return e.Err
}

// TakeTurn sends message to the agent, streams the reply to w, and returns
// the collected turn record. The speaker and inbound message are echoed
// before the reply so the console reads as a conversation.
func TakeTurn(ctx context.Context, agent Agent, message string, w io.Writer, logToolCalls bool) (TurnRecord, error) {
	if w != nil {
		fmt.Fprintf(w, "\n[%s] <- %s\n", agent.Name(), message)
	}

	stream, err := agent.RunStream(ctx, message)
	if err != nil {
		return TurnRecord{}, &AgentInvocationError{Agent: agent.Name(), Err: err}
	}

	text, toolCalls, err := Collect(stream, w, logToolCalls)
	if err != nil {
		return TurnRecord{}, &AgentInvocationError{Agent: agent.Name(), Err: err}
	}
	if w != nil {
		fmt.Fprint(w, "\n\n")
	}

	return TurnRecord{
		Speaker:   agent.Name(),
		Input:     message,
		Output:    text,
		ToolCalls: toolCalls,
	}, nil
}
