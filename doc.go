// Package apicore provides a configuration-driven routing and token
// authentication core for JSON APIs.
//
// Routes are declared in a YAML file, validated into a RouteCollection,
// bound to explicitly registered actions and middlewares, and registered with
// the http package's chi based Router. Every request runs through pre-request
// hooks, the bound action and post-request hooks, in that order.
//
// # Key Components
//
//   - Processor: validates raw route records into a RouteCollection
//   - Registry: name to Action / Middleware lookup populated at startup
//   - BuildCollection: resolves a RouteCollection into bound Routes
//   - Dispatcher: typed event topics (collection filled, pre and post request)
//   - JWTAuth: issues and verifies signed access tokens
//   - ConsumerValidator: checks client credentials against a ConsumerStore
//   - CacheStore: bucketed key/value cache, cleared with ClearCaches
//
// # Example Usage
//
//	routes, err := apicore.NewProcessor().Process(raw)
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	bound, err := apicore.BuildCollection(actions, middlewares, routes)
//
// See the http package for route registration and the cache package for
// cache backends.
package apicore
