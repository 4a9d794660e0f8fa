// Package tools provides tool definitions and an allowlisted registry for agent tool calling.
package tools

import "context"

// Property describes a single field of a tool's input schema.
type Property struct {
	Properties  map[string]*Property `json:"properties,omitempty"`
	Items       *Property            `json:"items,omitempty"`
	Type        string               `json:"type"`
	Description string               `json:"description,omitempty"`
	Enum        []string             `json:"enum,omitempty"`
}

// InputSchema is a JSON-schema style description of a tool's parameters.
type InputSchema struct {
	Properties map[string]Property `json:"properties,omitempty"`
	Type       string              `json:"type"`
	Required   []string            `json:"required,omitempty"`
}

// ToolDefinition is the provider-independent description of a callable tool.
type ToolDefinition struct {
	InputSchema InputSchema `json:"input_schema"`
	Name        string      `json:"name"`
	Description string      `json:"description"`
}

// ExecResult carries the serialized output of one tool execution.
type ExecResult struct {
	Content string `json:"content"`
}

// Tool is a callable capability an agent may invoke during a turn.
type Tool interface {
	Name() string
	Definition() ToolDefinition
	Exec(ctx context.Context, args map[string]any) (*ExecResult, error)
}
