// Package postgres implements apicore.CacheStore on PostgreSQL using pgx.
package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/sagarc03/apicore"
)

// Store keeps cache entries in a single table keyed by (bucket, cache_key).
type Store struct {
	pool  *pgxpool.Pool
	table string
	owned bool
}

// Connect establishes a pool to PostgreSQL.
// The table name must pass apicore.IsValidTableName.
func Connect(ctx context.Context, dsn, table string) (*Store, error) {
	if !apicore.IsValidTableName(table) {
		return nil, fmt.Errorf("connect postgres: invalid table name: %s", table)
	}

	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("connect postgres: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}

	return &Store{pool: pool, table: table, owned: true}, nil
}

// NewStore wraps an existing pool. Close does not close a pool it did not open.
func NewStore(pool *pgxpool.Pool, table string) (*Store, error) {
	if !apicore.IsValidTableName(table) {
		return nil, fmt.Errorf("new postgres store: invalid table name: %s", table)
	}
	return &Store{pool: pool, table: table}, nil
}

func (s *Store) quotedTable() string {
	return pgx.Identifier{s.table}.Sanitize()
}

// Migrate creates the cache table if it does not exist.
func (s *Store) Migrate(ctx context.Context) error {
	indexExpires := pgx.Identifier{fmt.Sprintf("idx_%s_expires_at", s.table)}.Sanitize()

	sql := fmt.Sprintf(`
		CREATE TABLE IF NOT EXISTS %s (
			bucket TEXT NOT NULL,
			cache_key TEXT NOT NULL,
			value BYTEA NOT NULL,
			expires_at TIMESTAMPTZ,
			PRIMARY KEY (bucket, cache_key)
		);

		CREATE INDEX IF NOT EXISTS %s
		ON %s (expires_at)
		WHERE (expires_at IS NOT NULL);
	`,
		s.quotedTable(),
		indexExpires, s.quotedTable(),
	)

	if _, err := s.pool.Exec(ctx, sql); err != nil {
		return fmt.Errorf("migrate: create cache table: %w", err)
	}
	return nil
}

// Get returns ErrCacheMiss for expired rows and removes them.
func (s *Store) Get(ctx context.Context, bucket, key string) ([]byte, error) {
	query := fmt.Sprintf( //nolint:gosec // G201: table name is validated
		`SELECT value, (expires_at IS NOT NULL AND expires_at <= NOW()) FROM %s
		WHERE bucket = $1 AND cache_key = $2`,
		s.quotedTable())

	var value []byte
	var expired bool
	err := s.pool.QueryRow(ctx, query, bucket, key).Scan(&value, &expired)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apicore.ErrCacheMiss
		}
		return nil, fmt.Errorf("get: %w", err)
	}

	if expired {
		_ = s.evict(ctx, bucket, key)
		return nil, apicore.ErrCacheMiss
	}
	return value, nil
}

// evict deletes key only while its row is still expired.
func (s *Store) evict(ctx context.Context, bucket, key string) error {
	query := fmt.Sprintf( //nolint:gosec // G201: table name is validated
		`DELETE FROM %s WHERE bucket = $1 AND cache_key = $2 AND expires_at <= NOW()`, s.quotedTable())

	if _, err := s.pool.Exec(ctx, query, bucket, key); err != nil {
		return fmt.Errorf("evict: %w", err)
	}
	return nil
}

func (s *Store) Set(ctx context.Context, bucket, key string, value []byte, ttl time.Duration) error {
	var expiresAt *time.Time
	if ttl > 0 {
		t := time.Now().Add(ttl)
		expiresAt = &t
	}
	if value == nil {
		value = []byte{}
	}

	query := fmt.Sprintf( //nolint:gosec // G201: table name is validated
		`INSERT INTO %s (bucket, cache_key, value, expires_at) VALUES ($1, $2, $3, $4)
		ON CONFLICT (bucket, cache_key) DO UPDATE SET value = EXCLUDED.value, expires_at = EXCLUDED.expires_at`,
		s.quotedTable())

	if _, err := s.pool.Exec(ctx, query, bucket, key, value, expiresAt); err != nil {
		return fmt.Errorf("set: %w", err)
	}
	return nil
}

func (s *Store) Delete(ctx context.Context, bucket, key string) error {
	query := fmt.Sprintf(`DELETE FROM %s WHERE bucket = $1 AND cache_key = $2`, s.quotedTable()) //nolint:gosec // table name is validated

	if _, err := s.pool.Exec(ctx, query, bucket, key); err != nil {
		return fmt.Errorf("delete: %w", err)
	}
	return nil
}

func (s *Store) Clear(ctx context.Context, bucket string) error {
	query := fmt.Sprintf(`DELETE FROM %s WHERE bucket = $1`, s.quotedTable()) //nolint:gosec // table name is validated

	if _, err := s.pool.Exec(ctx, query, bucket); err != nil {
		return fmt.Errorf("clear: %w", err)
	}
	return nil
}

// Close closes the pool if the store opened it.
func (s *Store) Close() error {
	if s.owned {
		s.pool.Close()
	}
	return nil
}
