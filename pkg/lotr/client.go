// Package lotr provides a client for The One API quote endpoints with optional local caching.
package lotr

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math/rand/v2"
	"net/http"
	"net/url"
	"strconv"
	"sync"
	"time"

	"fellowship/pkg/logx"
)

// DefaultBaseURL is the public endpoint of The One API.
const DefaultBaseURL = "https://the-one-api.dev/v2"

// ErrQuoteNotFound indicates the requested quote id does not exist upstream.
var ErrQuoteNotFound = errors.New("quote not found")

// ErrNoTotalCount indicates the upstream service reported an unusable total item count.
var ErrNoTotalCount = errors.New("unable to determine total quote count")

// Quote is a single dialogue line from the movies.
type Quote struct {
	ID          string `json:"_id"`
	Dialog      string `json:"dialog"`
	MovieID     string `json:"movie,omitempty"`
	CharacterID string `json:"character,omitempty"`
}

// quotePage is the wire shape of the /quote list endpoint.
type quotePage struct {
	Docs  []Quote `json:"docs"`
	Total int     `json:"total"`
}

// Client talks to The One API. The total quote count is fetched once and
// reused for random offset selection.
type Client struct {
	httpClient *http.Client
	cache      *Cache
	logger     *logx.Logger
	baseURL    string
	apiKey     string
	mu         sync.Mutex
	total      int // 0 means not yet known
}

// Option configures a Client.
type Option func(*Client)

// WithBaseURL overrides the API endpoint (used in tests).
func WithBaseURL(baseURL string) Option {
	return func(c *Client) { c.baseURL = baseURL }
}

// WithHTTPClient overrides the HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.httpClient = hc }
}

// WithCache attaches a local quote cache. Cache failures are logged and
// treated as misses, never surfaced to callers.
func WithCache(cache *Cache) Option {
	return func(c *Client) { c.cache = cache }
}

// NewClient creates a client authorized with the given bearer token.
func NewClient(apiKey string, opts ...Option) *Client {
	c := &Client{
		httpClient: &http.Client{Timeout: 20 * time.Second},
		baseURL:    DefaultBaseURL,
		apiKey:     apiKey,
		logger:     logx.NewLogger("lotr"),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// get performs an authorized GET and decodes the page response.
func (c *Client) get(ctx context.Context, path string, query url.Values) (*quotePage, error) {
	u := c.baseURL + path
	if len(query) > 0 {
		u += "?" + query.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, http.NoBody)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("quote request failed: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("quote request returned HTTP %d", resp.StatusCode)
	}

	var page quotePage
	if err := json.NewDecoder(resp.Body).Decode(&page); err != nil {
		return nil, fmt.Errorf("failed to decode quote response: %w", err)
	}
	return &page, nil
}

// TotalQuotes returns the total number of quotes exposed by the API,
// fetching and caching it on first use.
func (c *Client) TotalQuotes(ctx context.Context) (int, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.total > 0 {
		return c.total, nil
	}

	// Consult the local cache before hitting the network.
	if c.cache != nil {
		if total, ok, err := c.cache.Total(); err != nil {
			c.logger.Warn("quote cache read failed: %v", err)
		} else if ok && total > 0 {
			c.total = total
			return total, nil
		}
	}

	page, err := c.get(ctx, "/quote", url.Values{"limit": []string{"1"}})
	if err != nil {
		return 0, err
	}
	if page.Total <= 0 {
		return 0, ErrNoTotalCount
	}

	c.total = page.Total
	c.logger.Debug("cached quote total: %d", c.total)

	if c.cache != nil {
		if err := c.cache.SetTotal(c.total); err != nil {
			c.logger.Warn("quote cache write failed: %v", err)
		}
	}
	return c.total, nil
}

// QuoteByID fetches a single quote by its upstream id.
func (c *Client) QuoteByID(ctx context.Context, id string) (*Quote, error) {
	if c.cache != nil {
		if quote, ok, err := c.cache.Quote(id); err != nil {
			c.logger.Warn("quote cache read failed: %v", err)
		} else if ok {
			return quote, nil
		}
	}

	page, err := c.get(ctx, "/quote/"+url.PathEscape(id), nil)
	if err != nil {
		return nil, err
	}
	if len(page.Docs) == 0 {
		return nil, fmt.Errorf("quote id %q: %w", id, ErrQuoteNotFound)
	}

	quote := page.Docs[0]
	c.storeInCache(&quote)
	return &quote, nil
}

// RandomQuote fetches one quote at a random offset within the known total.
func (c *Client) RandomQuote(ctx context.Context) (*Quote, error) {
	total, err := c.TotalQuotes(ctx)
	if err != nil {
		return nil, err
	}

	offset := rand.IntN(total)
	query := url.Values{
		"limit":  []string{"1"},
		"offset": []string{strconv.Itoa(offset)},
	}
	page, err := c.get(ctx, "/quote", query)
	if err != nil {
		return nil, err
	}
	if len(page.Docs) == 0 {
		return nil, fmt.Errorf("offset %d: %w", offset, ErrQuoteNotFound)
	}

	quote := page.Docs[0]
	c.storeInCache(&quote)
	return &quote, nil
}

func (c *Client) storeInCache(quote *Quote) {
	if c.cache == nil {
		return
	}
	if err := c.cache.PutQuote(quote); err != nil {
		c.logger.Warn("quote cache write failed: %v", err)
	}
}
