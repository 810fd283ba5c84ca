package cache

import (
	"context"
	"fmt"

	"github.com/sagarc03/apicore"
	"github.com/sagarc03/apicore/cache/memory"
	"github.com/sagarc03/apicore/cache/postgres"
	rediscache "github.com/sagarc03/apicore/cache/redis"
	"github.com/sagarc03/apicore/cache/sqlite"
)

// Backend types accepted by New.
const (
	TypeMemory   = "memory"
	TypeRedis    = "redis"
	TypeSQLite   = "sqlite"
	TypePostgres = "postgres"
)

// Config holds the configuration for a cache backend.
type Config struct {
	// Type specifies the backend: "memory", "redis", "sqlite" or "postgres"
	Type string `mapstructure:"type" validate:"required,oneof=memory redis sqlite postgres"`
	// DSN is the connection string. Unused for memory; a redis:// URL for redis.
	DSN string `mapstructure:"dsn" validate:"required_unless=Type memory"`
	// Table is the cache table for the SQL backends.
	Table string `mapstructure:"table"`
	// Prefix namespaces redis keys.
	Prefix string `mapstructure:"prefix"`
}

// DefaultTable is used by the SQL backends when Config.Table is empty.
const DefaultTable = "apicore_cache"

// New opens the configured backend. SQL backends are migrated before return.
// The caller must Close the returned store.
func New(ctx context.Context, cfg Config) (apicore.CacheStore, error) {
	table := cfg.Table
	if table == "" {
		table = DefaultTable
	}

	switch cfg.Type {
	case TypeMemory:
		return memory.NewStore(), nil
	case TypeRedis:
		store, err := rediscache.Connect(ctx, cfg.DSN, cfg.Prefix)
		if err != nil {
			return nil, err
		}
		return store, nil
	case TypeSQLite:
		store, err := sqlite.Connect(ctx, cfg.DSN, table)
		if err != nil {
			return nil, err
		}
		if err := store.Migrate(ctx); err != nil {
			_ = store.Close()
			return nil, fmt.Errorf("migrate sqlite: %w", err)
		}
		return store, nil
	case TypePostgres:
		store, err := postgres.Connect(ctx, cfg.DSN, table)
		if err != nil {
			return nil, err
		}
		if err := store.Migrate(ctx); err != nil {
			_ = store.Close()
			return nil, fmt.Errorf("migrate postgres: %w", err)
		}
		return store, nil
	default:
		return nil, fmt.Errorf("unsupported cache type: %s", cfg.Type)
	}
}
