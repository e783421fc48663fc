// Package metrics defines the Prometheus collectors of the service.
//
// Naming follows Prometheus conventions: a micropost_ prefix, _total suffix
// for counters and _seconds suffix for duration histograms.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Auth decision outcomes.
const (
	AuthNoToken       = "no_token"
	AuthInvalidToken  = "invalid_token"
	AuthAuthenticated = "authenticated"
	AuthForbidden     = "forbidden"
	AuthAllowed       = "allowed"
	AuthError         = "error"
)

// Config holds configuration for the metrics endpoint.
type Config struct {
	// Enabled exposes the metrics endpoint
	Enabled bool `env:"ENABLED" default:"true"`
	// Path is the URL path the metrics endpoint is served on
	Path string `env:"PATH" default:"/metrics"`
}

// Metrics bundles the collectors and the registry they are registered with.
type Metrics struct {
	Registry *prometheus.Registry

	// RequestsTotal counts HTTP responses by method and status code.
	RequestsTotal *prometheus.CounterVec
	// RequestDurationSeconds observes HTTP handling latency by method.
	RequestDurationSeconds *prometheus.HistogramVec
	// AuthDecisionsTotal counts authentication and authorization outcomes.
	AuthDecisionsTotal *prometheus.CounterVec
}

// New creates the collectors on a fresh registry. Tests create their own
// instance; the process creates one in main.
func New() *Metrics {
	m := &Metrics{
		Registry: prometheus.NewRegistry(),
		RequestsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "micropost_http_requests_total",
				Help: "Total HTTP responses by method and status code.",
			},
			[]string{"method", "status"},
		),
		RequestDurationSeconds: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "micropost_http_request_duration_seconds",
				Help:    "Duration of HTTP request handling in seconds.",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"method"},
		),
		AuthDecisionsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "micropost_auth_decisions_total",
				Help: "Total authentication and authorization decisions by outcome.",
			},
			[]string{"outcome"},
		),
	}

	m.Registry.MustRegister(
		m.RequestsTotal,
		m.RequestDurationSeconds,
		m.AuthDecisionsTotal,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	return m
}

// RecordAuth counts one auth decision. A nil receiver is a no-op.
func (m *Metrics) RecordAuth(outcome string) {
	if m == nil {
		return
	}

	m.AuthDecisionsTotal.WithLabelValues(outcome).Inc()
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.Registry, promhttp.HandlerOpts{Registry: m.Registry})
}
