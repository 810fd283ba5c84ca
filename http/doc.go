// Package http serves the configured route table.
//
// Routes come from a routes file (see package routeconfig). Every route names
// an action and an ordered list of middlewares; both are looked up in the
// registries passed to NewRouter. Registration happens once, before the
// server starts:
//
//	actions := apicore.NewActionRegistry()
//	middlewares := apicore.NewMiddlewareRegistry()
//	err := http.RegisterBuiltins(actions, middlewares, http.Builtins{
//	    Issuer:    jwtAuth,
//	    Verifier:  jwtAuth,
//	    Consumers: apicore.NewConsumerValidator(consumerStore),
//	    Cache:     cacheStore,
//	})
//
//	router := http.NewRouter(http.RouterConfig{
//	    Loader:      routeconfig.NewLoader(".", cacheStore),
//	    RoutesFile:  "routes.yaml",
//	    Actions:     actions,
//	    Middlewares: middlewares,
//	})
//	if err := router.RegisterRoutes(ctx); err != nil {
//	    log.Fatal(err)
//	}
//	http.ListenAndServe(":8080", router)
//
// # Request lifecycle
//
// For each request the router dispatches a PreRequestEvent, calls the action
// with the exchange returned by the pre hooks, dispatches a PostRequestEvent
// carrying the action's response and writes the response returned by the
// post hooks. Action errors are mapped to JSON error responses:
//
//   - apicore.ErrUnauthorized: 401
//   - apicore.ErrInvalidInput: 400
//   - apicore.ErrNotFound: 404
//   - ErrRateLimited: 429
//   - anything else: 500
//
// # Built-in actions
//
//   - auth.new_token: issues a bearer token to a valid consumer
//   - auth.introspect: returns the claims of the caller's token
//   - system.health: returns {"status":"ok"}
//
// # Built-in middlewares
//
//   - auth: requires a valid bearer token
//   - cors: applies the CORS configuration
//   - ratelimit: per client IP token bucket, 429 when exhausted
//   - request_cache: caches 200 GET responses in the "request" bucket
package http
