package scenario

import (
	"fmt"

	"fellowship/pkg/agent"
	"fellowship/pkg/llm"
	"fellowship/pkg/tools"
)

// ChatAgentFactory builds live chat agents over one shared model client.
type ChatAgentFactory struct {
	client llm.Client
}

// NewChatAgentFactory creates a factory backed by the given model client.
func NewChatAgentFactory(client llm.Client) *ChatAgentFactory {
	return &ChatAgentFactory{client: client}
}

// Acquire implements AgentFactory.
func (f *ChatAgentFactory) Acquire(spec AgentSpec) (Handle, error) {
	var provider *tools.Provider
	if len(spec.Tools) > 0 {
		provider = tools.NewProvider(spec.Tools)
	}

	chat := agent.NewChatAgent(agent.Config{
		Name:         spec.Name,
		Instructions: spec.Instructions,
		Temperature:  spec.Temperature,
		TopP:         spec.TopP,
	}, f.client, provider)

	return &chatAgentHandle{agent: chat}, nil
}

// chatAgentHandle scopes one chat agent to a scenario run. The agent holds
// no external resources beyond its thread, which release discards.
type chatAgentHandle struct {
	agent    *agent.ChatAgent
	released bool
}

func (h *chatAgentHandle) Agent() Agent {
	return h.agent
}

func (h *chatAgentHandle) Release() error {
	if h.released {
		return fmt.Errorf("agent handle for %s already released", h.agent.Name())
	}
	h.released = true
	return nil
}
