// Package sqlite implements apicore.CacheStore on SQLite.
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/sagarc03/apicore"

	_ "modernc.org/sqlite" // SQLite driver
)

// quoteIdentifier safely quotes a SQLite identifier
func quoteIdentifier(name string) string {
	return `"` + name + `"`
}

// Store keeps cache entries in a single table keyed by (bucket, cache_key).
type Store struct {
	db    *sql.DB
	table string
	now   func() time.Time
}

// Connect opens the database. The table name must pass apicore.IsValidTableName.
func Connect(ctx context.Context, dsn, table string) (*Store, error) {
	if !apicore.IsValidTableName(table) {
		return nil, fmt.Errorf("connect sqlite: invalid table name: %s", table)
	}

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("connect sqlite: %w", err)
	}
	// A single connection keeps ":memory:" databases shared and serializes writers.
	db.SetMaxOpenConns(1)

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping sqlite: %w", err)
	}

	return &Store{db: db, table: table, now: time.Now}, nil
}

// Migrate creates the cache table if it does not exist.
func (s *Store) Migrate(ctx context.Context) error {
	quotedTable := quoteIdentifier(s.table)
	indexExpires := quoteIdentifier(fmt.Sprintf("idx_%s_expires_at", s.table))

	createTableSQL := fmt.Sprintf(`
		CREATE TABLE IF NOT EXISTS %s (
			bucket TEXT NOT NULL,
			cache_key TEXT NOT NULL,
			value BLOB NOT NULL,
			expires_at INTEGER NOT NULL DEFAULT 0,
			PRIMARY KEY (bucket, cache_key)
		)
	`, quotedTable)

	if _, err := s.db.ExecContext(ctx, createTableSQL); err != nil {
		return fmt.Errorf("migrate: create table: %w", err)
	}

	indexSQL := fmt.Sprintf(`CREATE INDEX IF NOT EXISTS %s ON %s (expires_at)`, indexExpires, quotedTable)
	if _, err := s.db.ExecContext(ctx, indexSQL); err != nil {
		return fmt.Errorf("migrate: create index expires_at: %w", err)
	}

	return nil
}

func (s *Store) Get(ctx context.Context, bucket, key string) ([]byte, error) {
	query := fmt.Sprintf( //nolint:gosec // G201: table name is validated
		`SELECT value, expires_at FROM %s WHERE bucket = ? AND cache_key = ?`, quoteIdentifier(s.table))

	var value []byte
	var expiresAt int64
	err := s.db.QueryRowContext(ctx, query, bucket, key).Scan(&value, &expiresAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apicore.ErrCacheMiss
		}
		return nil, fmt.Errorf("get: %w", err)
	}

	now := s.now().UnixNano()
	if expiresAt != 0 && now >= expiresAt {
		_ = s.evict(ctx, bucket, key, now)
		return nil, apicore.ErrCacheMiss
	}

	return value, nil
}

// evict deletes key only while its row is still expired at now.
func (s *Store) evict(ctx context.Context, bucket, key string, now int64) error {
	query := fmt.Sprintf( //nolint:gosec // G201: table name is validated
		`DELETE FROM %s WHERE bucket = ? AND cache_key = ? AND expires_at != 0 AND expires_at <= ?`,
		quoteIdentifier(s.table))

	if _, err := s.db.ExecContext(ctx, query, bucket, key, now); err != nil {
		return fmt.Errorf("evict: %w", err)
	}
	return nil
}

func (s *Store) Set(ctx context.Context, bucket, key string, value []byte, ttl time.Duration) error {
	var expiresAt int64
	if ttl > 0 {
		expiresAt = s.now().Add(ttl).UnixNano()
	}
	if value == nil {
		value = []byte{}
	}

	query := fmt.Sprintf( //nolint:gosec // G201: table name is validated
		`INSERT INTO %s (bucket, cache_key, value, expires_at) VALUES (?, ?, ?, ?)
		ON CONFLICT (bucket, cache_key) DO UPDATE SET value = excluded.value, expires_at = excluded.expires_at`,
		quoteIdentifier(s.table))

	if _, err := s.db.ExecContext(ctx, query, bucket, key, value, expiresAt); err != nil {
		return fmt.Errorf("set: %w", err)
	}
	return nil
}

func (s *Store) Delete(ctx context.Context, bucket, key string) error {
	query := fmt.Sprintf( //nolint:gosec // G201: table name is validated
		`DELETE FROM %s WHERE bucket = ? AND cache_key = ?`, quoteIdentifier(s.table))

	if _, err := s.db.ExecContext(ctx, query, bucket, key); err != nil {
		return fmt.Errorf("delete: %w", err)
	}
	return nil
}

func (s *Store) Clear(ctx context.Context, bucket string) error {
	query := fmt.Sprintf( //nolint:gosec // G201: table name is validated
		`DELETE FROM %s WHERE bucket = ?`, quoteIdentifier(s.table))

	if _, err := s.db.ExecContext(ctx, query, bucket); err != nil {
		return fmt.Errorf("clear: %w", err)
	}
	return nil
}

func (s *Store) Close() error {
	return s.db.Close()
}
