package lotr

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
)

func newQuoteServer(t *testing.T, total int, quotes map[string]Quote) (*httptest.Server, *atomic.Int64) {
	t.Helper()
	var hits atomic.Int64

	mux := http.NewServeMux()
	mux.HandleFunc("/quote", func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		if r.Header.Get("Authorization") != "Bearer test-key" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		// Return the first quote for any offset; tests don't depend on which.
		var docs []Quote
		for _, q := range quotes {
			docs = append(docs, q)
			break
		}
		page := quotePage{Docs: docs, Total: total}
		_ = json.NewEncoder(w).Encode(page)
	})
	mux.HandleFunc("/quote/", func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		id := r.URL.Path[len("/quote/"):]
		page := quotePage{Total: total}
		if q, ok := quotes[id]; ok {
			page.Docs = []Quote{q}
		}
		_ = json.NewEncoder(w).Encode(page)
	})

	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv, &hits
}

func TestQuoteByID(t *testing.T) {
	quotes := map[string]Quote{
		"q1": {ID: "q1", Dialog: "You shall not pass!", MovieID: "m1", CharacterID: "c1"},
	}
	srv, _ := newQuoteServer(t, 42, quotes)
	client := NewClient("test-key", WithBaseURL(srv.URL))

	got, err := client.QuoteByID(context.Background(), "q1")
	if err != nil {
		t.Fatalf("QuoteByID failed: %v", err)
	}
	if got.Dialog != "You shall not pass!" {
		t.Errorf("dialog = %q", got.Dialog)
	}
	if got.MovieID != "m1" || got.CharacterID != "c1" {
		t.Errorf("unexpected ids: %+v", got)
	}
}

func TestQuoteByIDNotFound(t *testing.T) {
	srv, _ := newQuoteServer(t, 42, nil)
	client := NewClient("test-key", WithBaseURL(srv.URL))

	_, err := client.QuoteByID(context.Background(), "missing")
	if !errors.Is(err, ErrQuoteNotFound) {
		t.Errorf("expected ErrQuoteNotFound, got %v", err)
	}
}

func TestTotalQuotesCachedAcrossCalls(t *testing.T) {
	quotes := map[string]Quote{"q1": {ID: "q1", Dialog: "My precious."}}
	srv, hits := newQuoteServer(t, 7, quotes)
	client := NewClient("test-key", WithBaseURL(srv.URL))

	for i := 0; i < 3; i++ {
		total, err := client.TotalQuotes(context.Background())
		if err != nil {
			t.Fatalf("TotalQuotes failed: %v", err)
		}
		if total != 7 {
			t.Errorf("total = %d, want 7", total)
		}
	}
	if hits.Load() != 1 {
		t.Errorf("expected a single upstream hit, got %d", hits.Load())
	}
}

func TestTotalQuotesUnusableCount(t *testing.T) {
	srv, _ := newQuoteServer(t, 0, nil)
	client := NewClient("test-key", WithBaseURL(srv.URL))

	_, err := client.TotalQuotes(context.Background())
	if !errors.Is(err, ErrNoTotalCount) {
		t.Errorf("expected ErrNoTotalCount, got %v", err)
	}
}

func TestRandomQuote(t *testing.T) {
	quotes := map[string]Quote{"q1": {ID: "q1", Dialog: "Even the smallest person can change the course of the future."}}
	srv, _ := newQuoteServer(t, 3, quotes)
	client := NewClient("test-key", WithBaseURL(srv.URL))

	got, err := client.RandomQuote(context.Background())
	if err != nil {
		t.Fatalf("RandomQuote failed: %v", err)
	}
	if got.ID != "q1" {
		t.Errorf("id = %q, want q1", got.ID)
	}
}

func TestRandomQuoteFailsWithoutTotal(t *testing.T) {
	srv, _ := newQuoteServer(t, 0, nil)
	client := NewClient("test-key", WithBaseURL(srv.URL))

	_, err := client.RandomQuote(context.Background())
	if !errors.Is(err, ErrNoTotalCount) {
		t.Errorf("expected ErrNoTotalCount, got %v", err)
	}
}
