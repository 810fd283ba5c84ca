// Package memory implements an in-process apicore.CacheStore.
package memory

import (
	"context"
	"sync"
	"time"

	"github.com/sagarc03/apicore"
)

type entry struct {
	value     []byte
	expiresAt time.Time
}

func (e entry) expired(now time.Time) bool {
	return !e.expiresAt.IsZero() && !now.Before(e.expiresAt)
}

// Store keeps entries in per-bucket maps. Expired entries are dropped lazily on read.
type Store struct {
	mu      sync.RWMutex
	buckets map[string]map[string]entry
	now     func() time.Time
}

func NewStore() *Store {
	return &Store{
		buckets: make(map[string]map[string]entry),
		now:     time.Now,
	}
}

func (s *Store) Get(ctx context.Context, bucket, key string) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.RLock()
	e, ok := s.buckets[bucket][key]
	s.mu.RUnlock()

	if !ok {
		return nil, apicore.ErrCacheMiss
	}
	if e.expired(s.now()) {
		s.evict(bucket, key)
		return nil, apicore.ErrCacheMiss
	}

	return append([]byte(nil), e.value...), nil
}

// evict removes key only if the entry stored under it is still expired, so a
// value written after the read is kept.
func (s *Store) evict(bucket, key string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if e, ok := s.buckets[bucket][key]; ok && e.expired(s.now()) {
		delete(s.buckets[bucket], key)
	}
}

func (s *Store) Set(ctx context.Context, bucket, key string, value []byte, ttl time.Duration) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	e := entry{value: append([]byte(nil), value...)}
	if ttl > 0 {
		e.expiresAt = s.now().Add(ttl)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	b, ok := s.buckets[bucket]
	if !ok {
		b = make(map[string]entry)
		s.buckets[bucket] = b
	}
	b[key] = e
	return nil
}

func (s *Store) Delete(ctx context.Context, bucket, key string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.buckets[bucket], key)
	return nil
}

func (s *Store) Clear(ctx context.Context, bucket string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.buckets, bucket)
	return nil
}

// Len returns the number of live entries in bucket.
func (s *Store) Len(bucket string) int {
	now := s.now()

	s.mu.RLock()
	defer s.mu.RUnlock()

	n := 0
	for _, e := range s.buckets[bucket] {
		if !e.expired(now) {
			n++
		}
	}
	return n
}

func (s *Store) Close() error {
	return nil
}
