package main

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/go-chi/chi/v5/middleware"

	"github.com/sagarc03/apicore"
	"github.com/sagarc03/apicore/cache"
	"github.com/sagarc03/apicore/config"
	apihttp "github.com/sagarc03/apicore/http"
	"github.com/sagarc03/apicore/keybackend"
	"github.com/sagarc03/apicore/metrics"
	"github.com/sagarc03/apicore/routeconfig"
)

// app holds the collaborators shared by serve and routes:list.
type app struct {
	cache   apicore.CacheStore
	router  *apihttp.Router
	limiter *apihttp.RateLimiter
	metrics *metrics.Metrics
}

// newApp wires the cache, token service, consumers, registries and router.
// Routes are not registered yet.
func newApp(ctx context.Context, cfg *config.Config) (*app, error) {
	signing, err := cfg.Auth.JWT.SigningConfig()
	if err != nil {
		return nil, fmt.Errorf("jwt config: %w", err)
	}
	jwtAuth, err := apicore.NewJWTAuth(signing)
	if err != nil {
		return nil, err
	}

	consumers, err := keybackend.NewConsumerStore(cfg.Auth.Consumers)
	if err != nil {
		return nil, fmt.Errorf("load consumers: %w", err)
	}

	store, err := cache.New(ctx, cfg.Cache)
	if err != nil {
		return nil, fmt.Errorf("open cache: %w", err)
	}
	slog.Info("cache ready", "type", cfg.Cache.Type)

	a := &app{
		cache:   store,
		limiter: apihttp.NewRateLimiter(cfg.RateLimit),
	}

	actions := apicore.NewActionRegistry()
	middlewares := apicore.NewMiddlewareRegistry()
	err = apihttp.RegisterBuiltins(actions, middlewares, apihttp.Builtins{
		Issuer:          jwtAuth,
		Verifier:        jwtAuth,
		Consumers:       apicore.NewConsumerValidator(consumers),
		Cache:           store,
		RequestCacheTTL: cfg.RequestCache.TTL,
		CORS:            cfg.CORS,
		RateLimiter:     a.limiter,
	})
	if err != nil {
		_ = store.Close()
		return nil, fmt.Errorf("register builtins: %w", err)
	}

	global := []apicore.Middleware{
		middleware.RequestID,
		middleware.RealIP,
		apihttp.RequestLogger(slog.Default()),
		middleware.Recoverer,
	}

	events := apicore.NewDispatcher()
	if cfg.Metrics.Enabled {
		a.metrics = metrics.New(cfg.Metrics.Namespace, true)
		a.metrics.SetExcludedPath(cfg.Metrics.Path)
		a.metrics.Subscribe(events, apihttp.ActionNewToken)
		global = append(global, a.metrics.InstrumentHandler)
	}

	a.router = apihttp.NewRouter(apihttp.RouterConfig{
		Loader:      routeconfig.NewLoader(cfg.Routes.Dir, store),
		RoutesFile:  cfg.Routes.File,
		Actions:     actions,
		Middlewares: middlewares,
		Events:      events,
		Global:      global,
	})

	if a.metrics != nil {
		a.router.Handle(cfg.Metrics.Path, a.metrics.Handler())
	}

	return a, nil
}

func (a *app) Close() error {
	return a.cache.Close()
}
