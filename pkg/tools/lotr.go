package tools

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"sync"

	"fellowship/pkg/lotr"
)

// Tool name constants.
const (
	ToolGetLotrQuote      = "get_lotr_quote"
	ToolDescribeLotrQuote = "describe_lotr_quote"
)

// describeGuidance is the fixed writing guidance returned by describe_lotr_quote.
const describeGuidance = "Consider the tone, speaker, and context of the quote. Highlight emotional beats " +
	"or conflicts and build poetic imagery that mirrors Middle-earth's lore."

var lotrToolsOnce sync.Once

// RegisterLotrTools registers the quote tools backed by the given client.
// Safe to call more than once; only the first call registers.
func RegisterLotrTools(client *lotr.Client) {
	lotrToolsOnce.Do(func() {
		Register(ToolGetLotrQuote, func() (Tool, error) {
			return NewGetQuoteTool(client), nil
		}, &ToolMeta{
			Name:        ToolGetLotrQuote,
			Description: getQuoteDescription,
			InputSchema: getQuoteSchema(),
		})

		Register(ToolDescribeLotrQuote, func() (Tool, error) {
			return NewDescribeQuoteTool(), nil
		}, &ToolMeta{
			Name:        ToolDescribeLotrQuote,
			Description: describeQuoteDescription,
			InputSchema: describeQuoteSchema(),
		})
	})
}

const getQuoteDescription = "Return a Lord of the Rings quote by id, or a random one when no id is provided."

const describeQuoteDescription = "Provide guidance on how a retrieved quote can inspire creative writing."

func getQuoteSchema() InputSchema {
	return InputSchema{
		Type: "object",
		Properties: map[string]Property{
			"quote_id": {
				Type:        "string",
				Description: "Unique identifier of the quote. Omit to fetch a random quote.",
			},
		},
	}
}

func describeQuoteSchema() InputSchema {
	return InputSchema{
		Type: "object",
		Properties: map[string]Property{
			"quote": {
				Type:        "string",
				Description: "The quote text to analyze.",
			},
		},
		Required: []string{"quote"},
	}
}

// GetQuoteTool fetches quotes from The One API.
type GetQuoteTool struct {
	client *lotr.Client
}

// NewGetQuoteTool creates the quote retrieval tool.
func NewGetQuoteTool(client *lotr.Client) *GetQuoteTool {
	return &GetQuoteTool{client: client}
}

// Name returns the tool name.
func (t *GetQuoteTool) Name() string {
	return ToolGetLotrQuote
}

// Definition returns the tool definition for the LLM.
func (t *GetQuoteTool) Definition() ToolDefinition {
	return ToolDefinition{
		Name:        ToolGetLotrQuote,
		Description: getQuoteDescription,
		InputSchema: getQuoteSchema(),
	}
}

// Exec executes the quote lookup.
func (t *GetQuoteTool) Exec(ctx context.Context, args map[string]any) (*ExecResult, error) {
	quoteID := ""
	if raw, ok := args["quote_id"]; ok && raw != nil {
		s, ok := raw.(string)
		if !ok {
			return nil, fmt.Errorf("quote_id must be a string")
		}
		quoteID = s
	}

	var (
		quote *lotr.Quote
		err   error
	)
	if quoteID != "" {
		quote, err = t.client.QuoteByID(ctx, quoteID)
	} else {
		quote, err = t.client.RandomQuote(ctx)
	}
	if err != nil {
		return errorResult(err.Error())
	}

	content, err := json.Marshal(quote)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal quote: %w", err)
	}
	return &ExecResult{Content: string(content)}, nil
}

// DescribeQuoteTool returns fixed creative-writing guidance for a quote.
type DescribeQuoteTool struct{}

// NewDescribeQuoteTool creates the quote description tool.
func NewDescribeQuoteTool() *DescribeQuoteTool {
	return &DescribeQuoteTool{}
}

// Name returns the tool name.
func (t *DescribeQuoteTool) Name() string {
	return ToolDescribeLotrQuote
}

// Definition returns the tool definition for the LLM.
func (t *DescribeQuoteTool) Definition() ToolDefinition {
	return ToolDefinition{
		Name:        ToolDescribeLotrQuote,
		Description: describeQuoteDescription,
		InputSchema: describeQuoteSchema(),
	}
}

// Exec validates the input and returns the guidance text.
func (t *DescribeQuoteTool) Exec(_ context.Context, args map[string]any) (*ExecResult, error) {
	quote, _ := args["quote"].(string)
	guidance, err := DescribeQuote(quote)
	if err != nil {
		return nil, err
	}
	return &ExecResult{Content: guidance}, nil
}

// DescribeQuote returns creative-writing guidance for a quote. Empty or
// whitespace-only input is rejected.
func DescribeQuote(quote string) (string, error) {
	if strings.TrimSpace(quote) == "" {
		return "", fmt.Errorf("quote text must not be empty")
	}
	return describeGuidance, nil
}

// errorResult creates a structured error response surfaced to the agent.
func errorResult(errMsg string) (*ExecResult, error) {
	response := map[string]any{
		"success": false,
		"error":   errMsg,
	}
	content, err := json.Marshal(response)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal error response: %w", err)
	}
	return &ExecResult{Content: string(content)}, nil
}
