package infra

import (
	"net/http"

	"quote_relay/internal/domain"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const metricsNamespace = "quote_relay"

// Metrics holds the relay's Prometheus collectors on a private registry.
// All methods are safe on a nil receiver so components can run without metrics.
type Metrics struct {
	registry *prometheus.Registry

	framesReceived    prometheus.Counter
	decodeErrors      prometheus.Counter
	quotesPublished   *prometheus.CounterVec
	publishErrors     *prometheus.CounterVec
	controlFrames     *prometheus.CounterVec
	upstreamState     prometheus.Gauge
	activeSymbols     prometheus.Gauge
	downstreamClients prometheus.Gauge
}

// NewMetrics registers all collectors on a fresh registry.
func NewMetrics() *Metrics {
	reg := prometheus.NewRegistry()
	factory := promauto.With(reg)

	return &Metrics{
		registry: reg,
		framesReceived: factory.NewCounter(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Subsystem: "upstream",
			Name:      "frames_received_total",
			Help:      "Raw frames received from the upstream feed",
		}),
		decodeErrors: factory.NewCounter(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Subsystem: "upstream",
			Name:      "decode_errors_total",
			Help:      "Upstream frames dropped as undecodable",
		}),
		quotesPublished: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Subsystem: "downstream",
			Name:      "quotes_published_total",
			Help:      "Quotes handed to a downstream publisher",
		}, []string{"sink"}),
		publishErrors: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Subsystem: "downstream",
			Name:      "publish_errors_total",
			Help:      "Downstream publish failures",
		}, []string{"sink"}),
		controlFrames: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Subsystem: "upstream",
			Name:      "control_frames_total",
			Help:      "Control frames by action and send result",
		}, []string{"action", "result"}),
		upstreamState: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: metricsNamespace,
			Subsystem: "upstream",
			Name:      "state",
			Help:      "Upstream connection state (0=disconnected,1=connecting,2=connected,3=closed,4=failed)",
		}),
		activeSymbols: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: metricsNamespace,
			Subsystem: "registry",
			Name:      "active_symbols",
			Help:      "Symbols with at least one downstream subscriber",
		}),
		downstreamClients: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: metricsNamespace,
			Subsystem: "downstream",
			Name:      "clients",
			Help:      "Connected downstream WebSocket clients",
		}),
	}
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// Registry exposes the underlying registry (for tests and extra collectors).
func (m *Metrics) Registry() *prometheus.Registry {
	if m == nil {
		return nil
	}
	return m.registry
}

// RecordFrame counts one received upstream frame.
func (m *Metrics) RecordFrame() {
	if m == nil {
		return
	}
	m.framesReceived.Inc()
}

// RecordDecodeError counts one dropped upstream frame.
func (m *Metrics) RecordDecodeError() {
	if m == nil {
		return
	}
	m.decodeErrors.Inc()
}

// RecordPublish counts one publish attempt result for a sink.
func (m *Metrics) RecordPublish(sink string, err error) {
	if m == nil {
		return
	}
	if err != nil {
		m.publishErrors.WithLabelValues(sink).Inc()
		return
	}
	m.quotesPublished.WithLabelValues(sink).Inc()
}

// RecordControlFrame counts a control frame send with its outcome ("sent", "skipped", "error").
func (m *Metrics) RecordControlFrame(action domain.Action, result string) {
	if m == nil {
		return
	}
	m.controlFrames.WithLabelValues(action.String(), result).Inc()
}

// SetUpstreamState publishes the connector state.
func (m *Metrics) SetUpstreamState(s domain.ConnState) {
	if m == nil {
		return
	}
	m.upstreamState.Set(float64(s))
}

// AddActiveSymbols moves the active symbol gauge by delta.
func (m *Metrics) AddActiveSymbols(delta int) {
	if m == nil {
		return
	}
	m.activeSymbols.Add(float64(delta))
}

// AddDownstreamClients moves the downstream client gauge by delta.
func (m *Metrics) AddDownstreamClients(delta int) {
	if m == nil {
		return
	}
	m.downstreamClients.Add(float64(delta))
}
