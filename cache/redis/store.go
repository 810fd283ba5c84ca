// Package redis implements apicore.CacheStore on Redis.
//
// Keys are laid out as <prefix>:<bucket>:<key>. Clearing a bucket scans the
// bucket's key space and deletes in batches.
package redis

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	goredis "github.com/redis/go-redis/v9"

	"github.com/sagarc03/apicore"
)

const scanBatch = 500

// Store is a Redis backed cache.
type Store struct {
	client goredis.UniversalClient
	prefix string
}

// NewStore wraps an existing client. The caller keeps ownership of client
// unless the store is closed.
func NewStore(client goredis.UniversalClient, prefix string) *Store {
	if prefix == "" {
		prefix = "apicore"
	}
	return &Store{client: client, prefix: prefix}
}

// Connect parses a redis:// URL, pings the server and returns a store owning the client.
func Connect(ctx context.Context, url, prefix string) (*Store, error) {
	opts, err := goredis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("connect redis: parse url: %w", err)
	}

	client := goredis.NewClient(opts)
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("connect redis: ping: %w", err)
	}

	return NewStore(client, prefix), nil
}

func (s *Store) key(bucket, key string) string {
	return s.prefix + ":" + bucket + ":" + key
}

func (s *Store) Get(ctx context.Context, bucket, key string) ([]byte, error) {
	data, err := s.client.Get(ctx, s.key(bucket, key)).Bytes()
	if err != nil {
		if errors.Is(err, goredis.Nil) {
			return nil, apicore.ErrCacheMiss
		}
		return nil, fmt.Errorf("get: %w", err)
	}
	return data, nil
}

func (s *Store) Set(ctx context.Context, bucket, key string, value []byte, ttl time.Duration) error {
	if ttl < 0 {
		ttl = 0
	}
	if err := s.client.Set(ctx, s.key(bucket, key), value, ttl).Err(); err != nil {
		return fmt.Errorf("set: %w", err)
	}
	return nil
}

func (s *Store) Delete(ctx context.Context, bucket, key string) error {
	if err := s.client.Del(ctx, s.key(bucket, key)).Err(); err != nil {
		return fmt.Errorf("delete: %w", err)
	}
	return nil
}

func (s *Store) Clear(ctx context.Context, bucket string) error {
	pattern := escapeGlob(s.prefix+":"+bucket+":") + "*"

	var cursor uint64
	for {
		keys, next, err := s.client.Scan(ctx, cursor, pattern, scanBatch).Result()
		if err != nil {
			return fmt.Errorf("clear: scan: %w", err)
		}
		if len(keys) > 0 {
			if err := s.client.Del(ctx, keys...).Err(); err != nil {
				return fmt.Errorf("clear: delete: %w", err)
			}
		}
		if next == 0 {
			return nil
		}
		cursor = next
	}
}

func (s *Store) Close() error {
	return s.client.Close()
}

// escapeGlob escapes the characters Redis MATCH treats as pattern syntax.
func escapeGlob(s string) string {
	var b strings.Builder
	for _, r := range s {
		switch r {
		case '*', '?', '[', ']', '\\':
			b.WriteByte('\\')
		}
		b.WriteRune(r)
	}
	return b.String()
}
