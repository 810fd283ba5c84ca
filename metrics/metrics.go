// Package metrics exposes Prometheus collectors for the HTTP server, the
// lifecycle events and token issuance.
package metrics

import (
	"context"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/sagarc03/apicore"
)

// Token results recorded by RecordToken.
const (
	TokenIssued   = "issued"
	TokenRejected = "rejected"
	TokenFailed   = "failed"
)

// Metrics owns a registry and the collectors registered on it.
type Metrics struct {
	registry *prometheus.Registry

	httpInFlight   prometheus.Gauge
	httpRequests   *prometheus.CounterVec
	httpDuration   *prometheus.HistogramVec
	eventsTotal    *prometheus.CounterVec
	tokensIssued   *prometheus.CounterVec
	excludedPrefix string
}

// New creates collectors under namespace. When withRuntime is set the Go and
// process collectors are registered too.
func New(namespace string, withRuntime bool) *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		httpInFlight: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "inflight_requests",
			Help:      "Current number of in-flight HTTP requests.",
		}),
		httpRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "Total number of HTTP requests handled.",
		}, []string{"method", "route", "status"}),
		httpDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "Duration of HTTP requests.",
			Buckets:   prometheus.ExponentialBuckets(0.005, 2, 10), // 5ms to ~5s
		}, []string{"method", "route"}),
		eventsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "events",
			Name:      "dispatched_total",
			Help:      "Total number of lifecycle events dispatched.",
		}, []string{"event"}),
		tokensIssued: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "tokens",
			Name:      "total",
			Help:      "Token requests by result.",
		}, []string{"result"}),
		excludedPrefix: "/metrics",
	}

	m.registry.MustRegister(
		m.httpInFlight,
		m.httpRequests,
		m.httpDuration,
		m.eventsTotal,
		m.tokensIssued,
	)
	if withRuntime {
		m.registry.MustRegister(
			collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
			collectors.NewGoCollector(),
		)
	}

	return m
}

// Registry returns the underlying registry.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// Handler returns an HTTP handler exposing the registered metrics.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// SetExcludedPath changes the path that is not instrumented, "/metrics" by default.
func (m *Metrics) SetExcludedPath(path string) {
	m.excludedPrefix = path
}

// InstrumentHandler wraps next with HTTP metrics collection. Requests are
// labelled with the matched chi route pattern rather than the raw path.
func (m *Metrics) InstrumentHandler(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if m.excludedPrefix != "" && r.URL.Path == m.excludedPrefix {
			next.ServeHTTP(w, r)
			return
		}

		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		start := time.Now()

		m.httpInFlight.Inc()
		defer m.httpInFlight.Dec()

		next.ServeHTTP(rec, r)

		route := routePattern(r)
		method := strings.ToUpper(r.Method)

		m.httpRequests.WithLabelValues(method, route, strconv.Itoa(rec.status)).Inc()
		m.httpDuration.WithLabelValues(method, route).Observe(time.Since(start).Seconds())
	})
}

// RecordEvent counts one dispatch of event.
func (m *Metrics) RecordEvent(event string) {
	m.eventsTotal.WithLabelValues(event).Inc()
}

// RecordToken counts one token request with the given result.
func (m *Metrics) RecordToken(result string) {
	m.tokensIssued.WithLabelValues(result).Inc()
}

// Subscribe attaches observers to the lifecycle topics that feed the event
// and token counters. tokenAction names the action whose responses are
// counted as token requests.
func (m *Metrics) Subscribe(d *apicore.Dispatcher, tokenAction string) {
	d.CollectionFilled.Observe(func(_ context.Context, _ apicore.RouteCollectionFilledEvent) {
		m.RecordEvent(apicore.EventRouteCollectionFilled)
	})
	d.PreRequest.Observe(func(_ context.Context, _ apicore.PreRequestEvent) {
		m.RecordEvent(apicore.EventPreRequest)
	})
	d.PostRequest.Observe(func(_ context.Context, e apicore.PostRequestEvent) {
		m.RecordEvent(apicore.EventPostRequest)

		if e.Route.Action != tokenAction {
			return
		}
		switch status := e.Exchange.Response.Status; {
		case status == http.StatusCreated:
			m.RecordToken(TokenIssued)
		case status == http.StatusUnauthorized:
			m.RecordToken(TokenRejected)
		default:
			m.RecordToken(TokenFailed)
		}
	})
}

func routePattern(r *http.Request) string {
	if rctx := chi.RouteContext(r.Context()); rctx != nil {
		if pattern := rctx.RoutePattern(); pattern != "" {
			return pattern
		}
	}
	return "unmatched"
}

type statusRecorder struct {
	http.ResponseWriter
	status      int
	wroteHeader bool
}

func (r *statusRecorder) WriteHeader(code int) {
	if !r.wroteHeader {
		r.status = code
		r.wroteHeader = true
	}
	r.ResponseWriter.WriteHeader(code)
}

func (r *statusRecorder) Write(b []byte) (int, error) {
	r.wroteHeader = true
	return r.ResponseWriter.Write(b)
}

func (r *statusRecorder) Unwrap() http.ResponseWriter {
	return r.ResponseWriter
}
