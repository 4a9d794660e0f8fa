// lotr-mcp-server exposes the quote-retrieval tools over the Model Context
// Protocol on stdio, so external agent frameworks can use them too.
//
// Usage: lotr-mcp-server [-cache quotes.db]
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"fellowship/pkg/config"
	"fellowship/pkg/logx"
	"fellowship/pkg/lotr"
	"fellowship/pkg/tools"
)

type getQuoteInput struct {
	QuoteID string `json:"quote_id,omitempty" jsonschema:"Optional id of the quote to fetch. A random quote is returned when omitted."`
}

type describeQuoteInput struct {
	Quote string `json:"quote" jsonschema:"The quote text to build poetic guidance for."`
}

type describeQuoteOutput struct {
	Guidance string `json:"guidance"`
}

func main() {
	cachePath := flag.String("cache", "", "Optional path to the SQLite quote cache")
	flag.Parse()

	logger := logx.NewLogger("lotr-mcp-server")

	if err := run(*cachePath, logger); err != nil {
		logger.Error("server failed: %v", err)
		os.Exit(1)
	}
}

func run(cachePath string, logger *logx.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	apiKey, err := config.GetSecret(config.SecretOneAPIKey)
	if err != nil {
		return err
	}

	var opts []lotr.Option
	if cachePath != "" {
		cache, err := lotr.OpenCache(cachePath)
		if err != nil {
			logger.Warn("quote cache unavailable: %v", err)
		} else {
			defer cache.Close()
			opts = append(opts, lotr.WithCache(cache))
		}
	}
	client := lotr.NewClient(apiKey, opts...)

	server := mcp.NewServer(&mcp.Implementation{
		Name:    "lotr-content",
		Version: "1.0.0",
	}, nil)

	mcp.AddTool(server, &mcp.Tool{
		Name:        tools.ToolGetLotrQuote,
		Description: "Fetches canonical Lord of the Rings quotes via The One API. Returns a random quote unless an id is given.",
	}, func(ctx context.Context, _ *mcp.CallToolRequest, in getQuoteInput) (*mcp.CallToolResult, *lotr.Quote, error) {
		var quote *lotr.Quote
		var err error
		if in.QuoteID != "" {
			quote, err = client.QuoteByID(ctx, in.QuoteID)
		} else {
			quote, err = client.RandomQuote(ctx)
		}
		if err != nil {
			return errorResult(err), nil, nil
		}

		payload, err := json.Marshal(quote)
		if err != nil {
			return errorResult(err), nil, nil
		}
		return &mcp.CallToolResult{
			Content: []mcp.Content{&mcp.TextContent{Text: string(payload)}},
		}, quote, nil
	})

	mcp.AddTool(server, &mcp.Tool{
		Name:        tools.ToolDescribeLotrQuote,
		Description: "Returns guidance for turning a Lord of the Rings quote into poetry.",
	}, func(_ context.Context, _ *mcp.CallToolRequest, in describeQuoteInput) (*mcp.CallToolResult, *describeQuoteOutput, error) {
		guidance, err := tools.DescribeQuote(in.Quote)
		if err != nil {
			return errorResult(err), nil, nil
		}
		return &mcp.CallToolResult{
			Content: []mcp.Content{&mcp.TextContent{Text: guidance}},
		}, &describeQuoteOutput{Guidance: guidance}, nil
	})

	logger.Info("serving MCP tools on stdio")
	return server.Run(ctx, &mcp.StdioTransport{})
}

// errorResult converts a tool failure into an MCP error result.
func errorResult(err error) *mcp.CallToolResult {
	return &mcp.CallToolResult{
		IsError: true,
		Content: []mcp.Content{&mcp.TextContent{Text: fmt.Sprintf("Error: %v", err)}},
	}
}
