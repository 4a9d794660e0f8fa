package scenario

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"

	"fellowship/pkg/llm"
)

// fakeAgent replies with scripted text, one entry per call. The last entry
// repeats once the script runs out.
type fakeAgent struct {
	err     error
	name    string
	replies []string
	inputs  []string
	calls   int
	failOn  int // 1-based call index at which err is returned; 0 = first call
}

func (f *fakeAgent) Name() string { return f.name }

func (f *fakeAgent) RunStream(_ context.Context, message string) (<-chan llm.StreamChunk, error) {
	f.calls++
	f.inputs = append(f.inputs, message)
	if f.err != nil && (f.failOn == 0 || f.calls >= f.failOn) {
		return nil, f.err
	}
	idx := f.calls - 1
	if idx >= len(f.replies) {
		idx = len(f.replies) - 1
	}
	return chunkStream(llm.TextChunk(f.replies[idx]), llm.DoneChunk()), nil
}

func TestTakeTurnBuildsRecord(t *testing.T) {
	var buf bytes.Buffer
	agent := &fakeAgent{name: "LOTR Poet", replies: []string{"  a four line poem  "}}

	record, err := TakeTurn(context.Background(), agent, "write a poem", &buf, false)
	if err != nil {
		t.Fatalf("TakeTurn failed: %v", err)
	}
	if record.Speaker != "LOTR Poet" {
		t.Errorf("speaker = %q", record.Speaker)
	}
	if record.Input != "write a poem" {
		t.Errorf("input = %q", record.Input)
	}
	if record.Output != "a four line poem" {
		t.Errorf("output = %q", record.Output)
	}
	if !strings.Contains(buf.String(), "[LOTR Poet] <- write a poem") {
		t.Errorf("missing speaker echo: %q", buf.String())
	}
}

func TestTakeTurnWrapsInvocationError(t *testing.T) {
	boom := errors.New("model unavailable")
	agent := &fakeAgent{name: "LOTR Poet", err: boom}

	_, err := TakeTurn(context.Background(), agent, "write a poem", nil, false)
	if err == nil {
		t.Fatal("expected error")
	}
	var invErr *AgentInvocationError
	if !errors.As(err, &invErr) {
		t.Fatalf("expected AgentInvocationError, got %T", err)
	}
	if invErr.Agent != "LOTR Poet" {
		t.Errorf("agent = %q", invErr.Agent)
	}
	if !errors.Is(err, boom) {
		t.Error("cause not preserved")
	}
}

func TestTakeTurnWrapsMidStreamError(t *testing.T) {
	boom := errors.New("stream cut")
	agent := &streamErrAgent{err: boom}

	_, err := TakeTurn(context.Background(), agent, "go", nil, false)
	var invErr *AgentInvocationError
	if !errors.As(err, &invErr) {
		t.Fatalf("expected AgentInvocationError, got %v", err)
	}
	if !errors.Is(err, boom) {
		t.Error("cause not preserved")
	}
}

// streamErrAgent emits some text then an error chunk.
type streamErrAgent struct {
	err error
}

func (s *streamErrAgent) Name() string { return "flaky" }

func (s *streamErrAgent) RunStream(_ context.Context, _ string) (<-chan llm.StreamChunk, error) {
	return chunkStream(llm.TextChunk("part"), llm.ErrChunk(s.err)), nil
}
