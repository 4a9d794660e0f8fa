package lotr

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestCache(t *testing.T) *Cache {
	t.Helper()
	cache, err := OpenCache(filepath.Join(t.TempDir(), "quotes.db"))
	require.NoError(t, err, "OpenCache failed")
	t.Cleanup(func() { _ = cache.Close() })
	return cache
}

func TestCacheTotalRoundTrip(t *testing.T) {
	cache := newTestCache(t)

	_, ok, err := cache.Total()
	require.NoError(t, err)
	require.False(t, ok, "empty cache should miss")

	require.NoError(t, cache.SetTotal(2384))

	total, ok, err := cache.Total()
	require.NoError(t, err)
	assert.True(t, ok, "expected cache hit")
	assert.Equal(t, 2384, total)

	// Overwrite is allowed.
	require.NoError(t, cache.SetTotal(2385))
	total, _, _ = cache.Total()
	assert.Equal(t, 2385, total)
}

func TestCacheQuoteRoundTrip(t *testing.T) {
	cache := newTestCache(t)

	_, ok, err := cache.Quote("q1")
	require.NoError(t, err)
	require.False(t, ok, "empty cache should miss")

	want := &Quote{ID: "q1", Dialog: "Not all those who wander are lost.", MovieID: "m2", CharacterID: "c3"}
	require.NoError(t, cache.PutQuote(want))

	got, ok, err := cache.Quote("q1")
	require.NoError(t, err)
	require.True(t, ok, "expected cache hit")
	assert.Equal(t, want, got)
}

func TestCacheBacksClient(t *testing.T) {
	cache := newTestCache(t)
	require.NoError(t, cache.SetTotal(10))

	// Client should read the cached total without any HTTP server behind it.
	client := NewClient("test-key", WithBaseURL("http://127.0.0.1:0"), WithCache(cache))
	total, err := client.TotalQuotes(t.Context())
	require.NoError(t, err)
	assert.Equal(t, 10, total)
}
