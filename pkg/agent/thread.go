package agent

import (
	"sync"

	"fellowship/pkg/llm"
)

// Thread holds the ordered conversation history for one agent.
// The history starts with the agent's system instructions and grows as
// turns are taken; it is never reordered or truncated.
type Thread struct {
	mu       sync.Mutex
	messages []llm.CompletionMessage
}

// NewThread creates a thread seeded with the agent's instructions.
func NewThread(instructions string) *Thread {
	t := &Thread{}
	if instructions != "" {
		t.messages = append(t.messages, llm.NewSystemMessage(instructions))
	}
	return t
}

// Append adds a message to the end of the history.
func (t *Thread) Append(msg llm.CompletionMessage) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.messages = append(t.messages, msg)
}

// Messages returns a copy of the history in order.
func (t *Thread) Messages() []llm.CompletionMessage {
	t.mu.Lock()
	defer t.mu.Unlock()
	out := make([]llm.CompletionMessage, len(t.messages))
	copy(out, t.messages)
	return out
}

// Len returns the number of messages in the history.
func (t *Thread) Len() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.messages)
}
