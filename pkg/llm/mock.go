package llm

import (
	"context"
	"fmt"
	"sync"
)

// MockClient provides a controllable implementation of Client for testing.
type MockClient struct {
	responses     []CompletionResponse
	errors        []error
	mu            sync.Mutex
	responseIndex int
	errorIndex    int
}

// NewMockClient creates a new mock client with predefined responses.
func NewMockClient(responses []CompletionResponse, errors []error) *MockClient {
	return &MockClient{
		responses: responses,
		errors:    errors,
	}
}

// next pops the next scripted response or error.
func (m *MockClient) next() (CompletionResponse, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.errorIndex < len(m.errors) && m.errors[m.errorIndex] != nil {
		err := m.errors[m.errorIndex]
		m.errorIndex++
		return CompletionResponse{}, err
	}

	if m.responseIndex >= len(m.responses) {
		return CompletionResponse{}, fmt.Errorf("mock client: no more responses")
	}

	resp := m.responses[m.responseIndex]
	m.responseIndex++
	return resp, nil
}

// Complete returns the next predefined response or error.
func (m *MockClient) Complete(_ context.Context, _ CompletionRequest) (CompletionResponse, error) {
	return m.next()
}

// Stream returns a channel carrying the next predefined response as chunks.
func (m *MockClient) Stream(_ context.Context, _ CompletionRequest) (<-chan StreamChunk, error) {
	resp, err := m.next()
	if err != nil {
		return nil, err
	}
	return StreamFromResponse(resp, nil), nil
}

// GetModelName returns a fixed test model name.
func (m *MockClient) GetModelName() string {
	return "mock-model"
}
