package http

import (
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/sagarc03/apicore"
)

// Names of the built-in actions.
const (
	ActionNewToken   = "auth.new_token"
	ActionIntrospect = "auth.introspect"
	ActionHealth     = "system.health"
)

// Names of the built-in route middlewares.
const (
	MiddlewareAuth         = "auth"
	MiddlewareCORS         = "cors"
	MiddlewareRateLimit    = "ratelimit"
	MiddlewareRequestCache = "request_cache"
)

// IntrospectAction returns the claims of the bearer token verified by the
// auth middleware.
func IntrospectAction(ex apicore.Exchange) (apicore.Response, error) {
	claims, ok := ClaimsFromContext(ex.Request.Context())
	if !ok {
		return ex.Response, fmt.Errorf("introspect: no verified token: %w", apicore.ErrUnauthorized)
	}

	return ex.Response.WithJSON(map[string]any{
		"active": true,
		"claims": claims,
	})
}

// HealthAction reports that the server is up.
func HealthAction(ex apicore.Exchange) (apicore.Response, error) {
	return ex.Response.WithStatus(http.StatusOK).WithJSON(map[string]string{"status": "ok"})
}

// Builtins holds the collaborators of the built-in actions and middlewares.
// Entries whose collaborator is nil are not registered.
type Builtins struct {
	Issuer          TokenIssuer
	Verifier        TokenVerifier
	Consumers       ConsumerChecker
	Cache           apicore.CacheStore
	RequestCacheTTL time.Duration
	CORS            CORSConfig
	RateLimiter     *RateLimiter
}

// RegisterBuiltins adds the built-in actions and middlewares to the registries.
func RegisterBuiltins(actions *apicore.ActionRegistry, middlewares *apicore.MiddlewareRegistry, b Builtins) error {
	var errs []error

	if b.Issuer != nil && b.Consumers != nil {
		errs = append(errs, actions.Register(ActionNewToken, NewTokenAction(b.Issuer, b.Consumers)))
	}
	errs = append(errs,
		actions.Register(ActionIntrospect, IntrospectAction),
		actions.Register(ActionHealth, HealthAction),
		middlewares.Register(MiddlewareCORS, CORSMiddleware(b.CORS)),
	)

	if b.Verifier != nil {
		errs = append(errs, middlewares.Register(MiddlewareAuth, AuthMiddleware(b.Verifier)))
	}
	if b.RateLimiter != nil {
		errs = append(errs, middlewares.Register(MiddlewareRateLimit, b.RateLimiter.Handler))
	}
	if b.Cache != nil {
		errs = append(errs, middlewares.Register(MiddlewareRequestCache, RequestCacheMiddleware(b.Cache, b.RequestCacheTTL)))
	}

	return errors.Join(errs...)
}
