// Package cache opens the bucketed key/value store behind apicore.CacheStore.
//
// # Supported Backends
//
//   - memory: process-local maps, lost on restart
//   - redis: go-redis client, keys laid out as <prefix>:<bucket>:<key>
//   - sqlite: single table via modernc.org/sqlite
//   - postgres: single table via a pgx connection pool
//
// # Usage
//
//	store, err := cache.New(ctx, cache.Config{
//	    Type: "sqlite",
//	    DSN:  "apicore-cache.db",
//	})
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer store.Close()
//
//	if err := apicore.ClearCaches(ctx, store); err != nil {
//	    slog.Error("clear caches", "error", err)
//	}
//
// The route definitions are cached in the "app.configuration" bucket and
// responses of the request_cache middleware in the "request" bucket.
package cache
