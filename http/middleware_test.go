package http_test

import (
	"bytes"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5/middleware"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sagarc03/apicore"
	"github.com/sagarc03/apicore/cache/memory"
	apihttp "github.com/sagarc03/apicore/http"
)

func newJWTAuth(t *testing.T) *apicore.JWTAuth {
	t.Helper()
	a, err := apicore.NewJWTAuth(apicore.JWTConfig{
		Method:   apicore.MethodHS256,
		Lifetime: time.Hour,
		Secret:   []byte(strings.Repeat("k", 32)),
	})
	require.NoError(t, err)
	return a
}

func TestAuthMiddleware(t *testing.T) {
	jwtAuth := newJWTAuth(t)
	valid, err := jwtAuth.CreateJWT(map[string]any{"sub": "billing"})
	require.NoError(t, err)

	handler := apihttp.AuthMiddleware(jwtAuth)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		claims, ok := apihttp.ClaimsFromContext(r.Context())
		require.True(t, ok)
		_, _ = fmt.Fprint(w, claims["sub"])
	}))

	tests := []struct {
		name       string
		header     string
		wantStatus int
		wantBody   string
	}{
		{name: "valid token", header: "Bearer " + valid, wantStatus: http.StatusOK, wantBody: "billing"},
		{name: "lowercase scheme", header: "bearer " + valid, wantStatus: http.StatusOK, wantBody: "billing"},
		{name: "missing header", wantStatus: http.StatusUnauthorized, wantBody: "Missing bearer token"},
		{name: "basic scheme", header: "Basic Zm9vOmJhcg==", wantStatus: http.StatusUnauthorized, wantBody: "Missing bearer token"},
		{name: "empty token", header: "Bearer ", wantStatus: http.StatusUnauthorized, wantBody: "Missing bearer token"},
		{name: "garbage token", header: "Bearer not.a.jwt", wantStatus: http.StatusUnauthorized, wantBody: "Invalid bearer token"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			rec := httptest.NewRecorder()
			handler.ServeHTTP(rec, req)

			assert.Equal(t, tt.wantStatus, rec.Code)
			assert.Contains(t, rec.Body.String(), tt.wantBody)
		})
	}
}

func TestAuthMiddleware_WithIntrospect(t *testing.T) {
	jwtAuth := newJWTAuth(t)
	deps := newDeps()
	require.NoError(t, apihttp.RegisterBuiltins(deps.actions, deps.middlewares, apihttp.Builtins{Verifier: jwtAuth}))

	router := deps.mustRouter(t,
		apicore.RawRoute{
			Key: "introspect", Route: "/api/introspect", Methods: []string{"get"},
			Action: apihttp.ActionIntrospect, Middlewares: []string{apihttp.MiddlewareAuth},
		},
		apicore.RawRoute{Key: "open", Route: "/open", Methods: []string{"get"}, Action: apihttp.ActionIntrospect},
	)

	token, err := jwtAuth.CreateJWT(map[string]any{"sub": "reports"})
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodGet, "/api/introspect", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	var body struct {
		Active bool           `json:"active"`
		Claims map[string]any `json:"claims"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.True(t, body.Active)
	assert.Equal(t, "reports", body.Claims["sub"])

	assert.Equal(t, http.StatusUnauthorized, serve(router, http.MethodGet, "/api/introspect").Code)
	assert.Equal(t, http.StatusUnauthorized, serve(router, http.MethodGet, "/open").Code, "introspect without auth middleware has no claims")
}

func TestCORSMiddleware(t *testing.T) {
	next := http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	})

	t.Run("enabled", func(t *testing.T) {
		handler := apihttp.CORSMiddleware(apihttp.CORSConfig{
			Enabled:        true,
			AllowedOrigins: []string{"https://app.example.com"},
			AllowedMethods: []string{"GET", "POST"},
		})(next)

		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.Header.Set("Origin", "https://app.example.com")
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)
		assert.Equal(t, "https://app.example.com", rec.Header().Get("Access-Control-Allow-Origin"))

		req = httptest.NewRequest(http.MethodGet, "/", nil)
		req.Header.Set("Origin", "https://evil.example.com")
		rec = httptest.NewRecorder()
		handler.ServeHTTP(rec, req)
		assert.Empty(t, rec.Header().Get("Access-Control-Allow-Origin"))
	})

	t.Run("disabled", func(t *testing.T) {
		handler := apihttp.CORSMiddleware(apihttp.CORSConfig{
			AllowedOrigins: []string{"*"},
		})(next)

		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.Header.Set("Origin", "https://app.example.com")
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)
		assert.Empty(t, rec.Header().Get("Access-Control-Allow-Origin"))
	})
}

func TestRateLimiter(t *testing.T) {
	limiter := apihttp.NewRateLimiter(apihttp.RateLimitConfig{RequestsPerSecond: 0.001, Burst: 2})
	handler := limiter.Handler(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	}))

	call := func(remote string) *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.RemoteAddr = remote
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)
		return rec
	}

	assert.Equal(t, http.StatusNoContent, call("10.0.0.1:1111").Code)
	assert.Equal(t, http.StatusNoContent, call("10.0.0.1:2222").Code, "port is ignored")

	rec := call("10.0.0.1:3333")
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.Equal(t, "1", rec.Header().Get("Retry-After"))
	assert.Contains(t, rec.Body.String(), "rate_limited")

	assert.Equal(t, http.StatusNoContent, call("10.0.0.2:1111").Code, "clients are limited independently")
}

func TestRateLimiter_Prune(t *testing.T) {
	limiter := apihttp.NewRateLimiter(apihttp.RateLimitConfig{
		RequestsPerSecond: 1, Burst: 1, IdleTimeout: 10 * time.Millisecond,
	})
	handler := limiter.Handler(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {}))

	for _, ip := range []string{"10.0.0.1:1", "10.0.0.2:1"} {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.RemoteAddr = ip
		handler.ServeHTTP(httptest.NewRecorder(), req)
	}

	assert.Equal(t, 0, limiter.Prune())
	time.Sleep(20 * time.Millisecond)
	assert.Equal(t, 2, limiter.Prune())
}

func TestRequestCacheMiddleware(t *testing.T) {
	store := memory.NewStore()
	calls := 0
	handler := apihttp.RequestCacheMiddleware(store, time.Minute)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		w.Header().Set("Content-Type", "application/json")
		if r.URL.Query().Get("fail") != "" {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		_, _ = fmt.Fprintf(w, `{"call":%d}`, calls)
	}))

	do := func(method, target, auth string) *httptest.ResponseRecorder {
		req := httptest.NewRequest(method, target, nil)
		if auth != "" {
			req.Header.Set("Authorization", auth)
		}
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)
		return rec
	}

	first := do(http.MethodGet, "/reports?page=1", "Bearer a")
	assert.Equal(t, "MISS", first.Header().Get(apihttp.HeaderCache))
	assert.Equal(t, `{"call":1}`, first.Body.String())

	second := do(http.MethodGet, "/reports?page=1", "Bearer a")
	assert.Equal(t, "HIT", second.Header().Get(apihttp.HeaderCache))
	assert.Equal(t, `{"call":1}`, second.Body.String())
	assert.Equal(t, "application/json", second.Header().Get("Content-Type"))
	assert.Equal(t, 1, calls)

	other := do(http.MethodGet, "/reports?page=1", "Bearer b")
	assert.Equal(t, "MISS", other.Header().Get(apihttp.HeaderCache), "different caller, different entry")

	do(http.MethodGet, "/reports?page=2", "Bearer a")
	assert.Equal(t, 3, calls, "query string is part of the key")

	do(http.MethodPost, "/reports?page=1", "Bearer a")
	assert.Equal(t, 4, calls, "non-GET requests bypass the cache")

	do(http.MethodGet, "/reports?fail=1", "")
	do(http.MethodGet, "/reports?fail=1", "")
	assert.Equal(t, 6, calls, "non-200 responses are not cached")

	assert.Equal(t, 3, store.Len(apicore.BucketRequest))

	require.NoError(t, apicore.ClearCaches(t.Context(), store))
	assert.Equal(t, "MISS", do(http.MethodGet, "/reports?page=1", "Bearer a").Header().Get(apihttp.HeaderCache))
}

func TestRequestCacheMiddleware_Route(t *testing.T) {
	store := memory.NewStore()
	deps := newDeps()
	require.NoError(t, apihttp.RegisterBuiltins(deps.actions, deps.middlewares, apihttp.Builtins{
		Cache:           store,
		RequestCacheTTL: time.Minute,
	}))

	router := deps.mustRouter(t, apicore.RawRoute{
		Key: "health", Route: "/health", Methods: []string{"get"},
		Action: apihttp.ActionHealth, Middlewares: []string{apihttp.MiddlewareRequestCache},
	})

	first := serve(router, http.MethodGet, "/health")
	second := serve(router, http.MethodGet, "/health")

	assert.Equal(t, "MISS", first.Header().Get(apihttp.HeaderCache))
	assert.Equal(t, "HIT", second.Header().Get(apihttp.HeaderCache))
	assert.JSONEq(t, `{"status":"ok"}`, second.Body.String())
}

func TestRequestLogger(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewJSONHandler(&buf, nil))

	handler := middleware.RequestID(apihttp.RequestLogger(logger)(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusCreated)
		_, _ = w.Write([]byte("hello"))
	})))

	handler.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodPost, "/api/tokens", nil))

	var entry map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "request", entry["msg"])
	assert.Equal(t, "POST", entry["method"])
	assert.Equal(t, "/api/tokens", entry["path"])
	assert.EqualValues(t, 201, entry["status"])
	assert.EqualValues(t, 5, entry["bytes"])
	assert.NotEmpty(t, entry["request_id"])
}

func TestRegisterBuiltins(t *testing.T) {
	t.Run("all collaborators", func(t *testing.T) {
		deps := newDeps()
		jwtAuth := newJWTAuth(t)

		err := apihttp.RegisterBuiltins(deps.actions, deps.middlewares, apihttp.Builtins{
			Issuer:      jwtAuth,
			Verifier:    jwtAuth,
			Consumers:   new(MockConsumers),
			Cache:       memory.NewStore(),
			RateLimiter: apihttp.NewRateLimiter(apihttp.RateLimitConfig{RequestsPerSecond: 1, Burst: 1}),
		})
		require.NoError(t, err)

		assert.Equal(t, []string{"auth.introspect", "auth.new_token", "system.health"}, deps.actions.Names())
		assert.Equal(t, []string{"auth", "cors", "ratelimit", "request_cache"}, deps.middlewares.Names())
	})

	t.Run("minimal", func(t *testing.T) {
		deps := newDeps()
		require.NoError(t, apihttp.RegisterBuiltins(deps.actions, deps.middlewares, apihttp.Builtins{}))

		assert.Equal(t, []string{"auth.introspect", "system.health"}, deps.actions.Names())
		assert.Equal(t, []string{"cors"}, deps.middlewares.Names())
	})

	t.Run("twice", func(t *testing.T) {
		deps := newDeps()
		require.NoError(t, apihttp.RegisterBuiltins(deps.actions, deps.middlewares, apihttp.Builtins{}))
		assert.Error(t, apihttp.RegisterBuiltins(deps.actions, deps.middlewares, apihttp.Builtins{}))
	})
}
