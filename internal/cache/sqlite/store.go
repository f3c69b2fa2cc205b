// Package sqlite provides a cache.Store persisted in a sqlite database, so
// cached responses survive process restarts the way a browser cache does.
//
// Row order within a partition is rowid order. An upsert keeps the original
// rowid, so enumeration reflects first insertion, which is what FIFO eviction
// relies on.
package sqlite

import (
	"context"
	"database/sql"
	"embed"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	_ "modernc.org/sqlite"

	"github.com/lumapos/edge/internal/cache"
	"github.com/lumapos/edge/internal/platform/storage/sqlitemigrate"
)

//go:embed migrations/*.sql
var migrationFS embed.FS

// Store is a sqlite-backed cache partition store.
type Store struct {
	db *sql.DB
}

// Open opens (or creates) the cache database at path and applies migrations.
func Open(path string) (*Store, error) {
	if strings.TrimSpace(path) == "" {
		return nil, fmt.Errorf("cache db path is required")
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open cache db: %w", err)
	}
	if err := sqlitemigrate.ApplyMigrations(db, migrationFS, "migrations"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("migrate cache db: %w", err)
	}

	return &Store{db: db}, nil
}

// Close closes the underlying database.
func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

// Match fetches the entry for key within a partition.
func (s *Store) Match(ctx context.Context, partition, key string) (cache.Entry, bool, error) {
	if s == nil || s.db == nil {
		return cache.Entry{}, false, fmt.Errorf("cache store is not configured")
	}

	row := s.db.QueryRowContext(ctx,
		"SELECT status, headers, body, stored_at FROM cache_entries WHERE partition = ? AND key = ?",
		partition, key,
	)

	var (
		status     int
		rawHeaders string
		body       []byte
		storedAt   int64
	)
	if err := row.Scan(&status, &rawHeaders, &body, &storedAt); err != nil {
		if err == sql.ErrNoRows {
			return cache.Entry{}, false, nil
		}
		return cache.Entry{}, false, fmt.Errorf("scan cache entry: %w", err)
	}

	header := http.Header{}
	if rawHeaders != "" {
		if err := json.Unmarshal([]byte(rawHeaders), &header); err != nil {
			return cache.Entry{}, false, fmt.Errorf("unmarshal cache headers: %w", err)
		}
	}

	return cache.Entry{
		Status:   status,
		Header:   header,
		Body:     body,
		StoredAt: time.UnixMilli(storedAt).UTC(),
	}, true, nil
}

// Put stores an entry under a partition and key. An existing row is
// overwritten in place, keeping its insertion position.
func (s *Store) Put(ctx context.Context, partition, key string, entry cache.Entry) error {
	if s == nil || s.db == nil {
		return fmt.Errorf("cache store is not configured")
	}

	header := entry.Header
	if header == nil {
		header = http.Header{}
	}
	rawHeaders, err := json.Marshal(header)
	if err != nil {
		return fmt.Errorf("marshal cache headers: %w", err)
	}
	storedAt := entry.StoredAt
	if storedAt.IsZero() {
		storedAt = time.Now().UTC()
	}

	_, err = s.db.ExecContext(ctx, `
INSERT INTO cache_entries (partition, key, status, headers, body, stored_at)
VALUES (?, ?, ?, ?, ?, ?)
ON CONFLICT (partition, key) DO UPDATE SET
    status = excluded.status,
    headers = excluded.headers,
    body = excluded.body,
    stored_at = excluded.stored_at
`, partition, key, entry.Status, string(rawHeaders), entry.Body, storedAt.UnixMilli())
	if err != nil {
		return fmt.Errorf("put cache entry: %w", err)
	}
	return nil
}

// Delete removes the entry for key. Deleting a missing key is a no-op.
func (s *Store) Delete(ctx context.Context, partition, key string) error {
	if s == nil || s.db == nil {
		return fmt.Errorf("cache store is not configured")
	}
	if _, err := s.db.ExecContext(ctx,
		"DELETE FROM cache_entries WHERE partition = ? AND key = ?", partition, key,
	); err != nil {
		return fmt.Errorf("delete cache entry: %w", err)
	}
	return nil
}

// Keys enumerates a partition's keys in insertion order.
func (s *Store) Keys(ctx context.Context, partition string) ([]string, error) {
	if s == nil || s.db == nil {
		return nil, fmt.Errorf("cache store is not configured")
	}

	rows, err := s.db.QueryContext(ctx,
		"SELECT key FROM cache_entries WHERE partition = ? ORDER BY rowid", partition,
	)
	if err != nil {
		return nil, fmt.Errorf("list cache keys: %w", err)
	}
	defer rows.Close()

	var keys []string
	for rows.Next() {
		var key string
		if err := rows.Scan(&key); err != nil {
			return nil, fmt.Errorf("scan cache key: %w", err)
		}
		keys = append(keys, key)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate cache keys: %w", err)
	}
	return keys, nil
}

// Names lists the partitions that currently hold at least one entry.
func (s *Store) Names(ctx context.Context) ([]string, error) {
	if s == nil || s.db == nil {
		return nil, fmt.Errorf("cache store is not configured")
	}

	rows, err := s.db.QueryContext(ctx, "SELECT DISTINCT partition FROM cache_entries")
	if err != nil {
		return nil, fmt.Errorf("list cache partitions: %w", err)
	}
	defer rows.Close()

	var names []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, fmt.Errorf("scan partition name: %w", err)
		}
		names = append(names, name)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate partition names: %w", err)
	}
	return names, nil
}

// DeletePartition removes every entry under a partition.
func (s *Store) DeletePartition(ctx context.Context, name string) error {
	if s == nil || s.db == nil {
		return fmt.Errorf("cache store is not configured")
	}

	result, err := s.db.ExecContext(ctx, "DELETE FROM cache_entries WHERE partition = ?", name)
	if err != nil {
		return fmt.Errorf("delete cache partition: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("check deleted rows: %w", err)
	}
	if affected == 0 {
		return cache.ErrNoPartition
	}
	return nil
}
