package apicore

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// Cache buckets.
const (
	// BucketConfiguration holds parsed route definitions.
	BucketConfiguration = "app.configuration"
	// BucketRequest holds cached responses of the request_cache middleware.
	BucketRequest = "request"
)

// Buckets lists every bucket cleared by ClearCaches, in clearing order.
var Buckets = []string{BucketConfiguration, BucketRequest}

// CacheStore is a bucketed key/value cache.
// Implementations must be safe for concurrent use.
type CacheStore interface {
	// Get returns ErrCacheMiss if key is absent or expired.
	Get(ctx context.Context, bucket, key string) ([]byte, error)
	// Set stores value; a ttl of zero means no expiry.
	Set(ctx context.Context, bucket, key string, value []byte, ttl time.Duration) error
	// Delete removes key. Deleting a missing key is not an error.
	Delete(ctx context.Context, bucket, key string) error
	// Clear removes every key in bucket. Clearing an empty or unknown bucket is not an error.
	Clear(ctx context.Context, bucket string) error
	Close() error
}

// ClearCaches clears every bucket in Buckets. All buckets are attempted even
// when one fails; failures are joined in the returned error.
func ClearCaches(ctx context.Context, store CacheStore) error {
	var errs []error
	for _, bucket := range Buckets {
		if err := store.Clear(ctx, bucket); err != nil {
			errs = append(errs, fmt.Errorf("clear %s: %w", bucket, err))
		}
	}
	return errors.Join(errs...)
}
