// Package config provides configuration loading and validation for apicore.
//
// The package handles YAML configuration files, environment variables, and CLI flags
// with automatic merging and validation using go-playground/validator.
//
// # Configuration Precedence
//
// Values are loaded in this order (later sources override earlier ones):
//
//  1. Default values
//  2. Configuration file(s) - multiple files merged left-to-right
//  3. Environment variables (APICORE_ prefix)
//  4. CLI flags
//
// # Usage
//
//	cfg, err := config.Load([]string{"config.yaml"}, cmd.Flags())
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	ctx = config.WithContext(ctx, cfg)
//	cfg, err = config.FromContext(ctx)
//
// # Environment Variables
//
// All config keys map to environment variables with the APICORE_ prefix:
//   - server.port → APICORE_SERVER_PORT
//   - cache.dsn → APICORE_CACHE_DSN
//   - auth.jwt.secret → APICORE_AUTH_JWT_SECRET
//
// # Configuration Structure
//
//   - Server: port and HTTP timeouts
//   - Routes: directory and name of the routes file
//   - Auth: JWT signing settings and API consumers
//   - Cache: backend type (memory, redis, sqlite, postgres), DSN and table
//   - RequestCache: TTL of the request_cache middleware
//   - RateLimit: per client token bucket
//   - CORS: cross-origin resource sharing settings
//   - Metrics: Prometheus endpoint
//   - Log: logging level
//
// JWT keys are not validated by Load so that commands which never sign
// tokens (cache:clear, routes:list) work without them. Call
// JWTConfig.SigningConfig before building a token service.
package config
