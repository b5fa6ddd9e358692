package observability

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds the Prometheus metrics for the authentication service.
type Metrics struct {
	// HTTP metrics
	HTTPRequestsTotal *prometheus.CounterVec

	// Authentication metrics
	LoginsTotal           *prometheus.CounterVec
	LogoutsTotal          prometheus.Counter
	TokenValidationsTotal *prometheus.CounterVec

	// Password reset metrics
	ResetRequestsTotal *prometheus.CounterVec
	ResetConsumesTotal *prometheus.CounterVec

	// Websocket metrics
	WebsocketConnectsTotal *prometheus.CounterVec

	registry *prometheus.Registry
}

// NewMetrics creates and registers all Prometheus metrics on a private
// registry.
func NewMetrics() *Metrics {
	m := &Metrics{
		HTTPRequestsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "gatekeeper_http_requests_total",
				Help: "Total number of HTTP requests",
			},
			[]string{"method", "path", "status"},
		),
		LoginsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "gatekeeper_logins_total",
				Help: "Login attempts by result",
			},
			[]string{"result"},
		),
		LogoutsTotal: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "gatekeeper_logouts_total",
				Help: "Tokens revoked by logout",
			},
		),
		TokenValidationsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "gatekeeper_token_validations_total",
				Help: "Token validations by transport and result",
			},
			[]string{"transport", "result"},
		),
		ResetRequestsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "gatekeeper_reset_requests_total",
				Help: "Password reset requests by result",
			},
			[]string{"result"},
		),
		ResetConsumesTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "gatekeeper_reset_consumes_total",
				Help: "Password reset consumptions by result",
			},
			[]string{"result"},
		),
		WebsocketConnectsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "gatekeeper_websocket_connects_total",
				Help: "Websocket connections by authentication result",
			},
			[]string{"result"},
		),
		registry: prometheus.NewRegistry(),
	}

	m.registry.MustRegister(
		m.HTTPRequestsTotal,
		m.LoginsTotal,
		m.LogoutsTotal,
		m.TokenValidationsTotal,
		m.ResetRequestsTotal,
		m.ResetConsumesTotal,
		m.WebsocketConnectsTotal,
	)
	return m
}

// Handler returns an HTTP handler exposing the registry in Prometheus
// text format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}
