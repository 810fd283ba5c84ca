package http

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"sync"

	"github.com/go-chi/chi/v5"

	"github.com/sagarc03/apicore"
)

// RouteLoader reads the raw route records of a routes file.
type RouteLoader interface {
	Load(ctx context.Context, name string) ([]apicore.RawRoute, error)
}

type RouterConfig struct {
	Loader      RouteLoader
	RoutesFile  string
	Actions     *apicore.ActionRegistry
	Middlewares *apicore.MiddlewareRegistry
	// Events defaults to a fresh dispatcher.
	Events *apicore.Dispatcher
	// Global middlewares wrap every request, matched or not.
	Global []apicore.Middleware
}

// RegisteredRoute is one (method, pattern) pair handed to the routing engine.
type RegisteredRoute struct {
	Key         string
	Method      string
	Pattern     string
	Action      string
	Middlewares []string
}

// Router registers configured routes on a chi mux and wraps every action
// with the request lifecycle events.
type Router struct {
	config    RouterConfig
	events    *apicore.Dispatcher
	processor *apicore.Processor
	mux       *chi.Mux

	mu         sync.Mutex
	registered bool
	routes     []RegisteredRoute
}

func NewRouter(cfg RouterConfig) *Router {
	events := cfg.Events
	if events == nil {
		events = apicore.NewDispatcher()
	}

	mux := chi.NewRouter()
	for _, mw := range cfg.Global {
		mux.Use(mw)
	}
	mux.NotFound(func(w http.ResponseWriter, _ *http.Request) {
		WriteError(w, http.StatusNotFound, "not_found", "Route not found")
	})
	mux.MethodNotAllowed(func(w http.ResponseWriter, _ *http.Request) {
		WriteError(w, http.StatusMethodNotAllowed, "method_not_allowed", "Method not allowed")
	})

	return &Router{
		config:    cfg,
		events:    events,
		processor: apicore.NewProcessor(),
		mux:       mux,
	}
}

// Events returns the dispatcher the router publishes to.
func (rt *Router) Events() *apicore.Dispatcher {
	return rt.events
}

// Handle mounts a plain handler outside the configured route table, such as /metrics.
func (rt *Router) Handle(pattern string, h http.Handler) {
	rt.mux.Handle(pattern, h)
}

// RegisterRoutes loads, validates and resolves the routes file and registers
// every route and method. Any configuration error aborts registration before
// a single route is added. It may only be called once.
func (rt *Router) RegisterRoutes(ctx context.Context) error {
	rt.mu.Lock()
	defer rt.mu.Unlock()

	if rt.registered {
		return ErrAlreadyRegistered
	}
	rt.registered = true

	raw, err := rt.config.Loader.Load(ctx, rt.config.RoutesFile)
	if err != nil {
		return fmt.Errorf("load routes: %w", err)
	}

	collection, err := rt.processor.Process(raw)
	if err != nil {
		return fmt.Errorf("process routes: %w", err)
	}

	routes, err := apicore.BuildCollection(rt.config.Actions, rt.config.Middlewares, collection)
	if err != nil {
		return fmt.Errorf("build routes: %w", err)
	}

	filled, err := rt.events.CollectionFilled.Dispatch(ctx, apicore.RouteCollectionFilledEvent{Routes: routes})
	if err != nil {
		return fmt.Errorf("register routes: %w", err)
	}

	table, err := plan(filled.Routes)
	if err != nil {
		return fmt.Errorf("register routes: %w", err)
	}

	for _, route := range filled.Routes {
		if err := rt.mount(route); err != nil {
			return fmt.Errorf("register routes: %w", err)
		}
	}

	rt.routes = table
	slog.Info("routes registered", "routes", len(filled.Routes), "endpoints", len(table))

	return nil
}

type plannedPattern struct {
	key      string
	pattern  string
	segments []segment
}

// plan checks the final collection and returns its registration table.
// Routes match in declaration order: a later pattern that chi would prefer
// over an earlier overlapping one is a conflict.
func plan(routes []apicore.Route) ([]RegisteredRoute, error) {
	seen := make(map[string]string)
	byMethod := make(map[string][]plannedPattern)
	var table []RegisteredRoute

	for _, route := range routes {
		if route.Handler == nil {
			return nil, &apicore.ConfigurationError{Key: route.Key, Reason: "no action bound"}
		}
		if len(route.Methods) == 0 {
			return nil, &apicore.ConfigurationError{Key: route.Key, Reason: "methods is required"}
		}

		for _, m := range route.Methods {
			if !m.IsValid() {
				return nil, &apicore.ConfigurationError{Key: route.Key, Method: string(m)}
			}

			id := m.HTTP() + " " + route.Route
			if owner, dup := seen[id]; dup {
				return nil, fmt.Errorf("%w: %s declared by %q and %q", apicore.ErrRouteConflict, id, owner, route.Key)
			}
			seen[id] = route.Key

			segments := parsePattern(route.Route)
			for _, prev := range byMethod[m.HTTP()] {
				if shadows(prev.segments, segments) {
					return nil, fmt.Errorf("%w: %s %s (%q) would take requests from %s (%q) declared earlier",
						apicore.ErrRouteConflict, m.HTTP(), route.Route, route.Key, prev.pattern, prev.key)
				}
			}
			byMethod[m.HTTP()] = append(byMethod[m.HTTP()], plannedPattern{key: route.Key, pattern: route.Route, segments: segments})

			table = append(table, RegisteredRoute{
				Key:         route.Key,
				Method:      m.HTTP(),
				Pattern:     route.Route,
				Action:      route.Action,
				Middlewares: append([]string(nil), route.Middlewares...),
			})
		}
	}

	return table, nil
}

// mount adds route to the mux. chi panics on malformed patterns; the panic
// is reported as a configuration error.
func (rt *Router) mount(route apicore.Route) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = &apicore.ConfigurationError{Key: route.Key, Reason: strings.TrimPrefix(fmt.Sprint(r), "chi: ")}
		}
	}()

	// Middlewares stack in list order, so the last listed one runs first.
	chain := make([]func(http.Handler) http.Handler, 0, len(route.Chain))
	for i := len(route.Chain) - 1; i >= 0; i-- {
		chain = append(chain, route.Chain[i])
	}

	handler := rt.wrap(route)
	r := rt.mux.With(chain...)
	for _, m := range route.Methods {
		r.Method(m.HTTP(), route.Route, handler)
	}

	return nil
}

// wrap runs the action between the pre and post request events. Both events
// fire once per request; an error from the pre hooks or the action is turned
// into an error response that still passes through the post hooks.
func (rt *Router) wrap(route apicore.Route) http.Handler {
	cfg := route.Configuration
	action := route.Handler

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		exchange := apicore.Exchange{Request: r, Response: apicore.NewResponse()}

		pre, err := rt.events.PreRequest.Dispatch(ctx, apicore.PreRequestEvent{Route: cfg, Exchange: exchange})
		if err == nil {
			exchange = pre.Exchange
			if exchange.Request == nil {
				exchange.Request = r
			}
			exchange.Response, err = action(exchange)
		}
		if err != nil {
			exchange.Response = ErrorResponseFor(err)
		}

		post, err := rt.events.PostRequest.Dispatch(ctx, apicore.PostRequestEvent{Route: cfg, Exchange: exchange})
		if err != nil {
			HandleError(w, err)
			return
		}

		writeResponse(w, post.Exchange.Response)
	})
}

// Routes returns the registered table in registration order.
func (rt *Router) Routes() []RegisteredRoute {
	rt.mu.Lock()
	defer rt.mu.Unlock()

	out := make([]RegisteredRoute, len(rt.routes))
	copy(out, rt.routes)
	return out
}

func (rt *Router) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	rt.mux.ServeHTTP(w, r)
}
