package scenario

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"
)

// fakeHandle counts how many times it was released.
type fakeHandle struct {
	agent    Agent
	releases int
}

func (h *fakeHandle) Agent() Agent { return h.agent }

func (h *fakeHandle) Release() error {
	h.releases++
	return nil
}

// fakeFactory hands out fake agents by name and records every handle.
type fakeFactory struct {
	agents  map[string]Agent
	handles []*fakeHandle
	failAt  int // 1-based acquisition index that fails; 0 = never
}

func (f *fakeFactory) Acquire(spec AgentSpec) (Handle, error) {
	if f.failAt > 0 && len(f.handles)+1 == f.failAt {
		return nil, errors.New("acquisition refused")
	}
	agent, ok := f.agents[spec.Name]
	if !ok {
		agent = &fakeAgent{name: spec.Name, replies: []string{"ok"}}
	}
	handle := &fakeHandle{agent: agent}
	f.handles = append(f.handles, handle)
	return handle, nil
}

func (f *fakeFactory) assertAllReleasedOnce(t *testing.T) {
	t.Helper()
	for i, handle := range f.handles {
		if handle.releases != 1 {
			t.Errorf("handle %d released %d times, want exactly 1", i, handle.releases)
		}
	}
}

func TestOrchestratorUnknownScenario(t *testing.T) {
	factory := &fakeFactory{}
	var buf bytes.Buffer
	o := NewOrchestrator(factory, OrchestratorConfig{Out: &buf})

	_, err := o.Run(context.Background(), "opera")
	if err == nil {
		t.Fatal("expected configuration error")
	}
	if len(factory.handles) != 0 {
		t.Errorf("no agent should be created for an unknown scenario, got %d", len(factory.handles))
	}
	if !strings.Contains(buf.String(), "❌ Unknown scenario: opera") ||
		!strings.Contains(buf.String(), "Available scenarios: 'poetry' or 'mystery'") {
		t.Errorf("missing configuration error report: %q", buf.String())
	}
}

func TestOrchestratorPoetryRunReleasesHandles(t *testing.T) {
	factory := &fakeFactory{agents: map[string]Agent{
		PoetAgentName:   &fakeAgent{name: PoetAgentName, replies: []string{"a poem"}},
		CriticAgentName: &fakeAgent{name: CriticAgentName, replies: []string{"Approved: nice"}},
	}}
	o := NewOrchestrator(factory, OrchestratorConfig{PingPongLimit: 5})

	result, err := o.Run(context.Background(), "poetry")
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	if result.Terminal != TerminalApproved {
		t.Errorf("terminal = %v, want approved", result.Terminal)
	}
	if len(factory.handles) != 2 {
		t.Fatalf("expected 2 handles, got %d", len(factory.handles))
	}
	factory.assertAllReleasedOnce(t)
}

func TestOrchestratorReleasesHandlesOnMidRunFailure(t *testing.T) {
	factory := &fakeFactory{agents: map[string]Agent{
		PoetAgentName:   &fakeAgent{name: PoetAgentName, err: errors.New("model down")},
		CriticAgentName: &fakeAgent{name: CriticAgentName, replies: []string{"Approved"}},
	}}
	o := NewOrchestrator(factory, OrchestratorConfig{})

	_, err := o.Run(context.Background(), "poetry")
	var invErr *AgentInvocationError
	if !errors.As(err, &invErr) {
		t.Fatalf("expected AgentInvocationError, got %v", err)
	}
	if len(factory.handles) != 2 {
		t.Fatalf("expected both handles acquired before failure, got %d", len(factory.handles))
	}
	factory.assertAllReleasedOnce(t)
}

func TestOrchestratorReleasesHandlesOnAcquireFailure(t *testing.T) {
	factory := &fakeFactory{failAt: 2}
	o := NewOrchestrator(factory, OrchestratorConfig{})

	_, err := o.Run(context.Background(), "poetry")
	if err == nil {
		t.Fatal("expected acquisition error")
	}
	if len(factory.handles) != 1 {
		t.Fatalf("expected 1 handle acquired before failure, got %d", len(factory.handles))
	}
	factory.assertAllReleasedOnce(t)
}

func TestOrchestratorMysteryRun(t *testing.T) {
	factory := &fakeFactory{agents: map[string]Agent{
		SauronAgentName:  &fakeAgent{name: SauronAgentName, replies: []string{"a riddle"}},
		GandalfAgentName: &fakeAgent{name: GandalfAgentName, replies: []string{"SOLUTION: the ring"}},
		BilboAgentName:   &fakeAgent{name: BilboAgentName, replies: []string{"I concur"}},
	}}
	o := NewOrchestrator(factory, OrchestratorConfig{
		MysteryMaxTurns: 8,
		Personas:        Personas{Sauron: "weave", Gandalf: "solve", Bilbo: "observe"},
	})

	result, err := o.Run(context.Background(), "mystery")
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	if result.Terminal != TerminalSolved {
		t.Errorf("terminal = %v, want solved", result.Terminal)
	}
	if len(factory.handles) != 3 {
		t.Fatalf("expected 3 handles, got %d", len(factory.handles))
	}
	factory.assertAllReleasedOnce(t)
}

func TestOrchestratorScenarioNameCaseInsensitive(t *testing.T) {
	factory := &fakeFactory{agents: map[string]Agent{
		PoetAgentName:   &fakeAgent{name: PoetAgentName, replies: []string{"a poem"}},
		CriticAgentName: &fakeAgent{name: CriticAgentName, replies: []string{"Approved"}},
	}}
	o := NewOrchestrator(factory, OrchestratorConfig{})

	if _, err := o.Run(context.Background(), "POETRY"); err != nil {
		t.Fatalf("Run failed: %v", err)
	}
}
