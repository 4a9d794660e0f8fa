package scenario

import (
	"context"
	"fmt"
	"io"
	"strings"

	"fellowship/pkg/logx"
)

// Scenario names accepted by the orchestrator.
const (
	ScenarioPoetry  = scenarioPoetry
	ScenarioMystery = scenarioMystery
)

// AgentSpec describes one agent handle to acquire.
type AgentSpec struct {
	Name         string
	Instructions string
	Tools        []string
	Temperature  float32
	TopP         float32
}

// Handle is one scoped agent acquisition. Release frees whatever the
// factory allocated for the agent and is called exactly once per handle.
type Handle interface {
	Agent() Agent
	Release() error
}

// AgentFactory acquires agent handles for a scenario run.
type AgentFactory interface {
	Acquire(spec AgentSpec) (Handle, error)
}

// Personas supplies the instruction text for the mystery participants.
// The poetry instructions are fixed; the mystery ones come from persona
// files resolved by the caller.
type Personas struct {
	Sauron  string
	Gandalf string
	Bilbo   string
}

// Orchestrator selects a scenario, acquires the agent handles it needs,
// runs it to a terminal state, and releases every handle on all exit paths.
type Orchestrator struct {
	factory         AgentFactory
	out             io.Writer
	logger          *logx.Logger
	personas        Personas
	quoteTools      []string
	pingPongLimit   int
	mysteryMaxTurns int
}

// OrchestratorConfig carries the explicit configuration for one run.
type OrchestratorConfig struct {
	Personas        Personas
	Out             io.Writer
	QuoteTools      []string
	PingPongLimit   int
	MysteryMaxTurns int
}

// NewOrchestrator creates an orchestrator bound to an agent factory.
func NewOrchestrator(factory AgentFactory, cfg OrchestratorConfig) *Orchestrator {
	out := cfg.Out
	if out == nil {
		out = io.Discard
	}
	return &Orchestrator{
		factory:         factory,
		out:             out,
		logger:          logx.NewLogger("orchestrator"),
		personas:        cfg.Personas,
		quoteTools:      cfg.QuoteTools,
		pingPongLimit:   cfg.PingPongLimit,
		mysteryMaxTurns: cfg.MysteryMaxTurns,
	}
}

// Run executes the named scenario to completion. An unknown name is a
// configuration error reported before any agent handle is created.
func (o *Orchestrator) Run(ctx context.Context, name string) (Result, error) {
	switch strings.ToLower(name) {
	case ScenarioPoetry:
		return o.runPoetry(ctx)
	case ScenarioMystery:
		return o.runMystery(ctx)
	default:
		fmt.Fprintf(o.out, "❌ Unknown scenario: %s\n", name)
		fmt.Fprintln(o.out, "Available scenarios: 'poetry' or 'mystery'")
		return Result{}, fmt.Errorf("unknown scenario: %s", name)
	}
}

// acquisition tracks handles acquired so far and releases each exactly once.
type acquisition struct {
	handles []Handle
	logger  *logx.Logger
}

// acquire obtains one handle and records it for release.
func (a *acquisition) acquire(factory AgentFactory, spec AgentSpec) (Agent, error) {
	handle, err := factory.Acquire(spec)
	if err != nil {
		return nil, fmt.Errorf("failed to acquire agent %s: %w", spec.Name, err)
	}
	a.handles = append(a.handles, handle)
	return handle.Agent(), nil
}

// releaseAll releases every acquired handle, in reverse acquisition order.
func (a *acquisition) releaseAll() {
	for i := len(a.handles) - 1; i >= 0; i-- {
		if err := a.handles[i].Release(); err != nil {
			a.logger.Warn("failed to release agent handle: %v", err)
		}
	}
	a.handles = nil
}

func (o *Orchestrator) runPoetry(ctx context.Context) (Result, error) {
	fmt.Fprintln(o.out, "\n🎭 Starting Poetry Collaboration Scenario 🎭")

	acq := &acquisition{logger: o.logger}
	defer acq.releaseAll()

	poet, err := acq.acquire(o.factory, AgentSpec{
		Name:         PoetAgentName,
		Instructions: PoetInstructions,
		Tools:        o.quoteTools,
		Temperature:  0.8,
		TopP:         0.95,
	})
	if err != nil {
		return Result{}, err
	}
	critic, err := acq.acquire(o.factory, AgentSpec{
		Name:         CriticAgentName,
		Instructions: CriticInstructions,
		Temperature:  0.2,
		TopP:         0.8,
	})
	if err != nil {
		return Result{}, err
	}

	return NewPingPong(poet, critic, o.pingPongLimit, o.out).Run(ctx)
}

func (o *Orchestrator) runMystery(ctx context.Context) (Result, error) {
	fmt.Fprintln(o.out, "\n🕵️ Starting Mystery Solving Scenario 🕵️")

	acq := &acquisition{logger: o.logger}
	defer acq.releaseAll()

	sauron, err := acq.acquire(o.factory, AgentSpec{
		Name:         SauronAgentName,
		Instructions: o.personas.Sauron,
		Tools:        o.quoteTools,
		Temperature:  0.9,
		TopP:         0.95,
	})
	if err != nil {
		return Result{}, err
	}
	gandalf, err := acq.acquire(o.factory, AgentSpec{
		Name:         GandalfAgentName,
		Instructions: o.personas.Gandalf,
		Temperature:  0.7,
		TopP:         0.9,
	})
	if err != nil {
		return Result{}, err
	}
	bilbo, err := acq.acquire(o.factory, AgentSpec{
		Name:         BilboAgentName,
		Instructions: o.personas.Bilbo,
		Temperature:  0.6,
		TopP:         0.85,
	})
	if err != nil {
		return Result{}, err
	}

	return NewMystery(sauron, gandalf, bilbo, o.mysteryMaxTurns, o.out).Run(ctx)
}
