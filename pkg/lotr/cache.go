package lotr

import (
	"database/sql"
	"errors"
	"fmt"
	"strconv"

	_ "modernc.org/sqlite" // SQLite driver

	"fellowship/pkg/logx"
)

// Current schema version for the quote cache.
const cacheSchemaVersion = 1

const cacheSchema = `
CREATE TABLE IF NOT EXISTS schema_version (
	version INTEGER NOT NULL
);

CREATE TABLE IF NOT EXISTS quotes (
	id           TEXT PRIMARY KEY,
	dialog       TEXT NOT NULL,
	movie_id     TEXT,
	character_id TEXT,
	fetched_at   TIMESTAMP DEFAULT CURRENT_TIMESTAMP
);

CREATE TABLE IF NOT EXISTS meta (
	key   TEXT PRIMARY KEY,
	value TEXT NOT NULL
);
`

// Cache is an on-disk quote cache so repeat runs avoid refetching
// quotes and the upstream total count.
type Cache struct {
	db     *sql.DB
	logger *logx.Logger
}

// OpenCache opens (or creates) the cache database at the given path.
func OpenCache(path string) (*Cache, error) {
	db, err := sql.Open("sqlite", fmt.Sprintf(
		"file:%s?_foreign_keys=ON&_journal_mode=WAL&_busy_timeout=5000",
		path,
	))
	if err != nil {
		return nil, fmt.Errorf("failed to open quote cache: %w", err)
	}

	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to ping quote cache: %w", err)
	}

	if err := initCacheSchema(db); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to initialize quote cache schema: %w", err)
	}

	// SQLite only supports one writer.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	logger := logx.NewLogger("quote-cache")
	logger.Debug("quote cache opened: %s", path)

	return &Cache{db: db, logger: logger}, nil
}

func initCacheSchema(db *sql.DB) error {
	if _, err := db.Exec(cacheSchema); err != nil {
		return err
	}

	var version int
	err := db.QueryRow("SELECT version FROM schema_version LIMIT 1").Scan(&version)
	switch {
	case errors.Is(err, sql.ErrNoRows):
		_, err = db.Exec("INSERT INTO schema_version (version) VALUES (?)", cacheSchemaVersion)
		return err
	case err != nil:
		return err
	case version != cacheSchemaVersion:
		return fmt.Errorf("unsupported quote cache schema version %d", version)
	}
	return nil
}

// Total returns the cached upstream total count, if present.
func (c *Cache) Total() (int, bool, error) {
	var value string
	err := c.db.QueryRow("SELECT value FROM meta WHERE key = 'total_quotes'").Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, err
	}

	total, err := strconv.Atoi(value)
	if err != nil {
		return 0, false, fmt.Errorf("corrupt total count in cache: %w", err)
	}
	return total, true, nil
}

// SetTotal stores the upstream total count.
func (c *Cache) SetTotal(total int) error {
	_, err := c.db.Exec(
		"INSERT INTO meta (key, value) VALUES ('total_quotes', ?) ON CONFLICT(key) DO UPDATE SET value = excluded.value",
		strconv.Itoa(total),
	)
	return err
}

// Quote returns a cached quote by id, if present.
func (c *Cache) Quote(id string) (*Quote, bool, error) {
	var quote Quote
	var movieID, characterID sql.NullString
	err := c.db.QueryRow(
		"SELECT id, dialog, movie_id, character_id FROM quotes WHERE id = ?", id,
	).Scan(&quote.ID, &quote.Dialog, &movieID, &characterID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}

	quote.MovieID = movieID.String
	quote.CharacterID = characterID.String
	return &quote, true, nil
}

// PutQuote stores a quote, replacing any previous entry for the same id.
func (c *Cache) PutQuote(quote *Quote) error {
	_, err := c.db.Exec(
		"INSERT OR REPLACE INTO quotes (id, dialog, movie_id, character_id) VALUES (?, ?, ?, ?)",
		quote.ID, quote.Dialog, quote.MovieID, quote.CharacterID,
	)
	return err
}

// Close closes the underlying database.
func (c *Cache) Close() error {
	if err := c.db.Close(); err != nil {
		return fmt.Errorf("failed to close quote cache: %w", err)
	}
	return nil
}
