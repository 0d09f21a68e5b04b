package infocache

import (
	"context"
	"database/sql"
	_ "embed"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/goccy/go-json"
	_ "modernc.org/sqlite"

	"tracklist/internal/media"
)

//go:embed schema.sql
var schemaSQL string

// schemaVersion is bumped whenever schema.sql changes; older caches are
// rebuilt since everything in them can be fetched again.
const schemaVersion = 1

const (
	sqliteBusyCode          = 5
	busyRetryAttempts       = 5
	busyRetryInitialBackoff = 10 * time.Millisecond
	busyRetryMaxBackoff     = 200 * time.Millisecond
)

// Cache is the SQLite-backed info cache.
type Cache struct {
	db   *sql.DB
	path string
	now  func() time.Time
}

// Open initializes or connects to the cache database at path.
func Open(ctx context.Context, path string) (*Cache, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("create cache directory: %w", err)
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}
	db.SetMaxOpenConns(1)

	for _, pragma := range []string{"PRAGMA journal_mode=WAL", "PRAGMA busy_timeout = 5000"} {
		if _, err := db.ExecContext(ctx, pragma); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("apply pragma %q: %w", pragma, err)
		}
	}

	c := &Cache{db: db, path: path, now: time.Now}
	if err := c.initSchema(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}
	return c, nil
}

// Close closes the underlying database connection.
func (c *Cache) Close() error {
	if c == nil || c.db == nil {
		return nil
	}
	return c.db.Close()
}

func (c *Cache) initSchema(ctx context.Context) error {
	var tableExists int
	err := c.db.QueryRowContext(ctx,
		"SELECT COUNT(1) FROM sqlite_master WHERE type='table' AND name='schema_version'",
	).Scan(&tableExists)
	if err != nil {
		return fmt.Errorf("check schema_version table: %w", err)
	}
	if tableExists == 1 {
		var version int
		if err := c.db.QueryRowContext(ctx, "SELECT version FROM schema_version LIMIT 1").Scan(&version); err != nil && !errors.Is(err, sql.ErrNoRows) {
			return fmt.Errorf("read schema version: %w", err)
		}
		if version == schemaVersion {
			return nil
		}
		if _, err := c.db.ExecContext(ctx, "DROP TABLE IF EXISTS item_info; DROP TABLE schema_version"); err != nil {
			return fmt.Errorf("drop outdated cache: %w", err)
		}
	}

	tx, err := c.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin schema tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()
	if _, err := tx.ExecContext(ctx, schemaSQL); err != nil {
		return fmt.Errorf("create schema: %w", err)
	}
	if _, err := tx.ExecContext(ctx, "INSERT INTO schema_version (version) VALUES (?)", schemaVersion); err != nil {
		return fmt.Errorf("record schema version: %w", err)
	}
	return tx.Commit()
}

// Get returns the cached info for id.
func (c *Cache) Get(ctx context.Context, id media.ID) (media.Item, bool, error) {
	var data string
	err := retryOnBusy(ctx, func() error {
		return c.db.QueryRowContext(ctx, "SELECT data FROM item_info WHERE id = ?", string(id)).Scan(&data)
	})
	if errors.Is(err, sql.ErrNoRows) {
		return media.Item{}, false, nil
	}
	if err != nil {
		return media.Item{}, false, fmt.Errorf("query info %s: %w", id, err)
	}
	var item media.Item
	if err := json.Unmarshal([]byte(data), &item); err != nil {
		return media.Item{}, false, fmt.Errorf("decode info %s: %w", id, err)
	}
	item.ID = id
	return item, true, nil
}

// GetMany returns the cached info for every id present in the cache.
func (c *Cache) GetMany(ctx context.Context, ids []media.ID) (map[media.ID]media.Item, error) {
	out := make(map[media.ID]media.Item, len(ids))
	for _, id := range ids {
		item, ok, err := c.Get(ctx, id)
		if err != nil {
			return out, err
		}
		if ok {
			out[id] = item
		}
	}
	return out, nil
}

// Put stores the remote-sourced fields of each item, replacing earlier
// entries.
func (c *Cache) Put(ctx context.Context, items ...media.Item) error {
	if len(items) == 0 {
		return nil
	}
	return retryOnBusy(ctx, func() error {
		tx, err := c.db.BeginTx(ctx, nil)
		if err != nil {
			return err
		}
		defer func() { _ = tx.Rollback() }()
		stamp := c.now().UTC().Format(time.RFC3339Nano)
		for _, item := range items {
			if item.ID == "" {
				continue
			}
			data, err := json.Marshal(item.Info())
			if err != nil {
				return fmt.Errorf("encode info %s: %w", item.ID, err)
			}
			if _, err := tx.ExecContext(ctx,
				"INSERT INTO item_info (id, data, updated_at) VALUES (?, ?, ?) "+
					"ON CONFLICT(id) DO UPDATE SET data = excluded.data, updated_at = excluded.updated_at",
				string(item.ID), string(data), stamp,
			); err != nil {
				return err
			}
		}
		return tx.Commit()
	})
}

// Count returns the number of cached entries.
func (c *Cache) Count(ctx context.Context) (int, error) {
	var n int
	err := retryOnBusy(ctx, func() error {
		return c.db.QueryRowContext(ctx, "SELECT COUNT(1) FROM item_info").Scan(&n)
	})
	return n, err
}

func isSQLiteBusy(err error) bool {
	if err == nil {
		return false
	}
	var coder interface{ Code() int }
	if errors.As(err, &coder) && coder.Code() == sqliteBusyCode {
		return true
	}
	msg := err.Error()
	return strings.Contains(msg, "SQLITE_BUSY") || strings.Contains(msg, "database is locked")
}

func retryOnBusy(ctx context.Context, op func() error) error {
	delay := busyRetryInitialBackoff
	var lastErr error
	for attempt := 0; attempt < busyRetryAttempts; attempt++ {
		lastErr = op()
		if lastErr == nil {
			return nil
		}
		if !isSQLiteBusy(lastErr) || attempt == busyRetryAttempts-1 {
			break
		}
		select {
		case <-time.After(delay):
		case <-ctx.Done():
			return ctx.Err()
		}
		if next := delay * 2; next <= busyRetryMaxBackoff {
			delay = next
		}
	}
	return lastErr
}
