package tools

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"fellowship/pkg/lotr"
)

func TestDescribeQuoteTool(t *testing.T) {
	tool := NewDescribeQuoteTool()

	result, err := tool.Exec(context.Background(), map[string]any{
		"quote": "All we have to decide is what to do with the time that is given us.",
	})
	if err != nil {
		t.Fatalf("Exec failed: %v", err)
	}
	if !strings.Contains(result.Content, "tone") {
		t.Errorf("guidance missing expected content: %q", result.Content)
	}
}

func TestDescribeQuoteToolRejectsEmptyInput(t *testing.T) {
	tool := NewDescribeQuoteTool()

	for _, input := range []string{"", "   ", "\n\t"} {
		if _, err := tool.Exec(context.Background(), map[string]any{"quote": input}); err == nil {
			t.Errorf("expected error for input %q", input)
		}
	}
}

func TestGetQuoteToolByID(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/quote/q7", func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`{"docs":[{"_id":"q7","dialog":"A wizard is never late."}],"total":1}`))
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()

	client := lotr.NewClient("key", lotr.WithBaseURL(srv.URL))
	tool := NewGetQuoteTool(client)

	result, err := tool.Exec(context.Background(), map[string]any{"quote_id": "q7"})
	if err != nil {
		t.Fatalf("Exec failed: %v", err)
	}

	var quote lotr.Quote
	if err := json.Unmarshal([]byte(result.Content), &quote); err != nil {
		t.Fatalf("result is not valid quote JSON: %v", err)
	}
	if quote.Dialog != "A wizard is never late." {
		t.Errorf("dialog = %q", quote.Dialog)
	}
}

func TestGetQuoteToolMissingIDSurfacesError(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/quote/", func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`{"docs":[],"total":1}`))
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()

	client := lotr.NewClient("key", lotr.WithBaseURL(srv.URL))
	tool := NewGetQuoteTool(client)

	result, err := tool.Exec(context.Background(), map[string]any{"quote_id": "nope"})
	if err != nil {
		t.Fatalf("soft failures should be returned as error results: %v", err)
	}

	var response map[string]any
	if err := json.Unmarshal([]byte(result.Content), &response); err != nil {
		t.Fatalf("error result is not JSON: %v", err)
	}
	if success, _ := response["success"].(bool); success {
		t.Error("expected success=false in error result")
	}
	if msg, _ := response["error"].(string); !strings.Contains(msg, "not found") {
		t.Errorf("error message = %q", msg)
	}
}

func TestProviderAllowlist(t *testing.T) {
	client := lotr.NewClient("key")
	RegisterLotrTools(client)

	provider := NewProvider([]string{ToolDescribeLotrQuote})

	if _, err := provider.Get(ToolDescribeLotrQuote); err != nil {
		t.Errorf("allowed tool should resolve: %v", err)
	}
	if _, err := provider.Get(ToolGetLotrQuote); err == nil {
		t.Error("disallowed tool should be rejected")
	}

	defs := provider.Definitions()
	if len(defs) != 1 || defs[0].Name != ToolDescribeLotrQuote {
		t.Errorf("definitions = %+v", defs)
	}
}

func TestProviderCachesInstances(t *testing.T) {
	client := lotr.NewClient("key")
	RegisterLotrTools(client)

	provider := NewProvider([]string{ToolDescribeLotrQuote})
	first, err := provider.Get(ToolDescribeLotrQuote)
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	second, err := provider.Get(ToolDescribeLotrQuote)
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if first != second {
		t.Error("expected the same cached instance on repeat Get")
	}
}
