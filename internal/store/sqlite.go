package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"
)

// ErrMiss is returned when a cache key is absent or its entry has aged past
// the caller's TTL.
var ErrMiss = errors.New("cache miss")

// EnsureSchema creates the cache table if it doesn't exist.
func EnsureSchema(db *sql.DB) error {
	schema := `
PRAGMA journal_mode=WAL;
CREATE TABLE IF NOT EXISTS cache (
  key TEXT PRIMARY KEY,
  payload BLOB NOT NULL,
  fetched_at INTEGER NOT NULL
);
`
	_, err := db.Exec(schema)
	return err
}

// Cache is a small TTL'd key/blob store backed by sqlite. It replaces the
// flat-file JSON cache the dashboard used to keep under /tmp: same
// semantics (payload + fetch timestamp, staleness decided on read), but
// durable across restarts and safe for concurrent readers.
type Cache interface {
	// Get returns the payload stored under key if it was fetched within
	// ttl of now; otherwise ErrMiss.
	Get(ctx context.Context, key string, ttl time.Duration, now time.Time) ([]byte, error)
	// Put stores payload under key, stamping it with now.
	Put(ctx context.Context, key string, payload []byte, now time.Time) error
}

type sqliteCache struct{ db *sql.DB }

func NewSQLiteCache(db *sql.DB) Cache { return &sqliteCache{db: db} }

func (c *sqliteCache) Get(ctx context.Context, key string, ttl time.Duration, now time.Time) ([]byte, error) {
	row := c.db.QueryRowContext(ctx, `SELECT payload, fetched_at FROM cache WHERE key=?`, key)
	var payload []byte
	var fetchedAt int64
	if err := row.Scan(&payload, &fetchedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrMiss
		}
		return nil, fmt.Errorf("cache get %q: %w", key, err)
	}
	if now.Unix()-fetchedAt > int64(ttl.Seconds()) {
		return nil, ErrMiss
	}
	return payload, nil
}

func (c *sqliteCache) Put(ctx context.Context, key string, payload []byte, now time.Time) error {
	_, err := c.db.ExecContext(ctx, `
INSERT INTO cache (key, payload, fetched_at) VALUES (?,?,?)
ON CONFLICT(key) DO UPDATE SET payload=excluded.payload, fetched_at=excluded.fetched_at
`, key, payload, now.Unix())
	if err != nil {
		return fmt.Errorf("cache put %q: %w", key, err)
	}
	return nil
}
