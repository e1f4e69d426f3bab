package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds the gateway's instrumentation on its own registry so tests
// can create isolated instances.
type Metrics struct {
	registry *prometheus.Registry

	DenmPublished prometheus.Counter
	DenmReceived  prometheus.Counter
	DenmDropped   *prometheus.CounterVec

	HTTPRequests *prometheus.CounterVec

	WSConnections  prometheus.Gauge
	AMQPReconnects prometheus.Counter
}

// New creates and registers all gateway metrics.
func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),

		DenmPublished: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "denm_gateway",
			Subsystem: "messages",
			Name:      "published_total",
			Help:      "DENMs published to the interchange",
		}),
		DenmReceived: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "denm_gateway",
			Subsystem: "messages",
			Name:      "received_total",
			Help:      "DENMs received from the interchange",
		}),
		DenmDropped: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "denm_gateway",
			Subsystem: "messages",
			Name:      "dropped_total",
			Help:      "Messages dropped, by reason",
		}, []string{"reason"}),

		HTTPRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "denm_gateway",
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "HTTP requests, by route and status",
		}, []string{"route", "status"}),

		WSConnections: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "denm_gateway",
			Subsystem: "websocket",
			Name:      "connections",
			Help:      "Open WebSocket connections",
		}),
		AMQPReconnects: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "denm_gateway",
			Subsystem: "amqp",
			Name:      "reconnects_total",
			Help:      "AMQP connection re-establishments",
		}),
	}

	m.registry.MustRegister(
		m.DenmPublished,
		m.DenmReceived,
		m.DenmDropped,
		m.HTTPRequests,
		m.WSConnections,
		m.AMQPReconnects,
	)
	return m
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// Registry exposes the underlying registry for test gathering.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}
