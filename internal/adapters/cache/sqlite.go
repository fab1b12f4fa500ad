// Package cache provides the SQLite-backed key/value store used for cached
// HTTP reads.
package cache

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"strings"
	"time"

	_ "modernc.org/sqlite"

	"eventcore/internal/domain"
)

const schema = `
CREATE TABLE IF NOT EXISTS cache_entries (
    cache_key  TEXT PRIMARY KEY,
    payload    BLOB NOT NULL,
    expires_at INTEGER NOT NULL
);
CREATE INDEX IF NOT EXISTS cache_entries_expires_at_idx ON cache_entries (expires_at);
`

// Store is a SQLite table of payloads with per-entry expiry.
type Store struct {
	sqlDB *sql.DB
	now   func() time.Time
}

var _ domain.CacheStore = (*Store)(nil)

// Open opens (creating if needed) the cache database at path.
func Open(path string) (*Store, error) {
	if strings.TrimSpace(path) == "" {
		return nil, fmt.Errorf("cache path is required")
	}

	// modernc.org/sqlite only honours connection pragmas in _pragma form.
	dsn := "file:" + filepath.Clean(path) +
		"?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)&_pragma=synchronous(NORMAL)"
	sqlDB, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}
	// One connection serializes writers so an invalidation never loses to SQLITE_BUSY.
	sqlDB.SetMaxOpenConns(1)
	if err := sqlDB.Ping(); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("ping sqlite db: %w", err)
	}
	if _, err := sqlDB.Exec(schema); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("create cache schema: %w", err)
	}
	return &Store{sqlDB: sqlDB, now: time.Now}, nil
}

// Close releases the underlying SQLite connection.
func (s *Store) Close() error {
	if s == nil || s.sqlDB == nil {
		return nil
	}
	return s.sqlDB.Close()
}

// Get returns the payload for key. Expired entries are reported as misses.
func (s *Store) Get(ctx context.Context, key string) ([]byte, bool, error) {
	var (
		payload   []byte
		expiresAt int64
	)
	err := s.sqlDB.QueryRowContext(ctx,
		`SELECT payload, expires_at FROM cache_entries WHERE cache_key = ?`, key,
	).Scan(&payload, &expiresAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, false, nil
		}
		return nil, false, fmt.Errorf("get cache entry: %w", err)
	}
	if s.now().UnixMilli() >= expiresAt {
		return nil, false, nil
	}
	return payload, true, nil
}

// Set upserts key with a payload that expires after ttl.
func (s *Store) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	if key == "" {
		return fmt.Errorf("cache key is required")
	}
	if ttl <= 0 {
		return fmt.Errorf("cache ttl must be positive")
	}
	_, err := s.sqlDB.ExecContext(ctx,
		`INSERT INTO cache_entries (cache_key, payload, expires_at) VALUES (?, ?, ?)
		 ON CONFLICT(cache_key) DO UPDATE SET
		    payload = excluded.payload,
		    expires_at = excluded.expires_at`,
		key, value, s.now().Add(ttl).UnixMilli(),
	)
	if err != nil {
		return fmt.Errorf("put cache entry: %w", err)
	}
	return nil
}

// Delete removes the given keys. Missing keys are ignored.
func (s *Store) Delete(ctx context.Context, keys ...string) error {
	if len(keys) == 0 {
		return nil
	}
	placeholders := strings.TrimSuffix(strings.Repeat("?,", len(keys)), ",")
	args := make([]any, len(keys))
	for i, k := range keys {
		args[i] = k
	}
	if _, err := s.sqlDB.ExecContext(ctx,
		`DELETE FROM cache_entries WHERE cache_key IN (`+placeholders+`)`, args...,
	); err != nil {
		return fmt.Errorf("delete cache entries: %w", err)
	}
	return nil
}

// PurgeExpired deletes every expired entry and returns how many were removed.
func (s *Store) PurgeExpired(ctx context.Context) (int64, error) {
	result, err := s.sqlDB.ExecContext(ctx,
		`DELETE FROM cache_entries WHERE expires_at <= ?`, s.now().UnixMilli())
	if err != nil {
		return 0, fmt.Errorf("purge cache entries: %w", err)
	}
	return result.RowsAffected()
}

// RunJanitor purges expired entries every interval until ctx is done.
func (s *Store) RunJanitor(ctx context.Context, interval time.Duration, logger *slog.Logger) {
	if interval <= 0 {
		return
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			n, err := s.PurgeExpired(ctx)
			if err != nil {
				if ctx.Err() == nil {
					logger.WarnContext(ctx, "cache purge failed", "err", err)
				}
				continue
			}
			if n > 0 {
				logger.DebugContext(ctx, "cache purge", "removed", n)
			}
		}
	}
}
