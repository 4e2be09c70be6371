// Package instrumentation wires Prometheus counters and gauges into the
// server loop, following core/prometheus_counters.go's CounterVec/GaugeVec
// shape but scaled down to this server's two listeners (auth, accounting)
// instead of the teacher's Diameter+Radius+HTTP multi-protocol metric set.
package instrumentation

import "github.com/prometheus/client_golang/prometheus"

// Metrics holds every counter and gauge this server exposes. One instance
// is created at startup and shared by both UDP listeners and the secret
// refresh loop.
type Metrics struct {
	RequestsReceived  *prometheus.CounterVec
	ResponsesSent     *prometheus.CounterVec
	RequestsDropped   *prometheus.CounterVec
	InFlightRequests  prometheus.Gauge
	SecretStoreSize   prometheus.Gauge
	SecretRefreshFail prometheus.Counter
}

// NewMetrics builds and registers every metric against reg. Callers
// typically pass prometheus.NewRegistry() so tests don't collide with the
// global default registry.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		RequestsReceived: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "radiusd_requests_received_total",
				Help: "RADIUS requests received, by listener and code",
			},
			[]string{"listener", "code"}),

		ResponsesSent: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "radiusd_responses_sent_total",
				Help: "RADIUS responses sent, by listener and code",
			},
			[]string{"listener", "code"}),

		RequestsDropped: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "radiusd_requests_dropped_total",
				Help: "RADIUS requests dropped before a reply was generated, by listener and reason",
			},
			[]string{"listener", "reason"}),

		InFlightRequests: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "radiusd_requests_in_flight",
				Help: "RADIUS requests currently being processed",
			}),

		SecretStoreSize: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "radiusd_secret_store_entries",
				Help: "Number of shared-secret records loaded by the last successful refresh",
			}),

		SecretRefreshFail: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "radiusd_secret_refresh_failures_total",
				Help: "Failures refreshing the shared-secret table from the identity repository",
			}),
	}

	reg.MustRegister(
		m.RequestsReceived,
		m.ResponsesSent,
		m.RequestsDropped,
		m.InFlightRequests,
		m.SecretStoreSize,
		m.SecretRefreshFail,
	)

	return m
}

// Dropped reasons, kept as constants so the label cardinality stays fixed.
const (
	ReasonMalformed         = "malformed"
	ReasonNoSecret          = "no_secret"
	ReasonBadMessageAuth    = "bad_message_authenticator"
	ReasonQueueFull         = "queue_full"
	ReasonEncodeFailed      = "encode_failed"
	ReasonUnsupportedMethod = "unsupported_method"
)
