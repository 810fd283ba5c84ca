package http_test

import (
	"context"
	"net/http"
	"testing"

	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/sagarc03/apicore"
	apihttp "github.com/sagarc03/apicore/http"
)

// staticLoader returns fixed route records.
type staticLoader struct {
	routes []apicore.RawRoute
	err    error
}

func (l staticLoader) Load(_ context.Context, _ string) ([]apicore.RawRoute, error) {
	return l.routes, l.err
}

// MockIssuer is a mock implementation of http.TokenIssuer
type MockIssuer struct {
	mock.Mock
}

func (m *MockIssuer) CreateJWT(claims map[string]any) (string, error) {
	args := m.Called(claims)
	return args.String(0), args.Error(1)
}

func (m *MockIssuer) Lifetime() int {
	return m.Called().Int(0)
}

// MockConsumers is a mock implementation of http.ConsumerChecker
type MockConsumers struct {
	mock.Mock
}

func (m *MockConsumers) IsValid(r *http.Request) bool {
	return m.Called(r).Bool(0)
}

func textAction(body string) apicore.Action {
	return func(ex apicore.Exchange) (apicore.Response, error) {
		return ex.Response.WithHeader("Content-Type", "text/plain").WithBody([]byte(body)), nil
	}
}

type routerDeps struct {
	actions     *apicore.ActionRegistry
	middlewares *apicore.MiddlewareRegistry
	events      *apicore.Dispatcher
}

func newDeps() routerDeps {
	return routerDeps{
		actions:     apicore.NewActionRegistry(),
		middlewares: apicore.NewMiddlewareRegistry(),
		events:      apicore.NewDispatcher(),
	}
}

func (d routerDeps) router(routes ...apicore.RawRoute) *apihttp.Router {
	return apihttp.NewRouter(apihttp.RouterConfig{
		Loader:      staticLoader{routes: routes},
		Actions:     d.actions,
		Middlewares: d.middlewares,
		Events:      d.events,
	})
}

// mustRouter builds and registers a router, failing the test on error.
func (d routerDeps) mustRouter(t *testing.T, routes ...apicore.RawRoute) *apihttp.Router {
	t.Helper()
	r := d.router(routes...)
	require.NoError(t, r.RegisterRoutes(context.Background()))
	return r
}
