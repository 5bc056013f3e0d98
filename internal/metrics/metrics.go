// Package metrics exposes Prometheus counters for schema inference.
package metrics

import (
	"net/http"
	"strconv"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics groups the counters updated by the inspector and the proxy.
// A nil *Metrics is valid and records nothing.
type Metrics struct {
	registry *prometheus.Registry

	// schemasInferred counts schemas inferred by direction (req, resp)
	schemasInferred *prometheus.CounterVec

	// decodeFailures counts bodies that were expected to be JSON but weren't
	decodeFailures *prometheus.CounterVec

	// schemasWritten counts schema files written to the output directory
	schemasWritten prometheus.Counter

	// proxiedRequests counts forwarded requests by upstream status code
	proxiedRequests *prometheus.CounterVec
}

// New registers the castor metrics on a fresh registry.
func New() *Metrics {
	reg := prometheus.NewRegistry()
	factory := promauto.With(reg)

	return &Metrics{
		registry: reg,
		schemasInferred: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "castor_schemas_inferred_total",
			Help: "Total schemas inferred by message direction",
		}, []string{"direction"}),
		decodeFailures: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "castor_decode_failures_total",
			Help: "Total message bodies that failed to decode as JSON by direction",
		}, []string{"direction"}),
		schemasWritten: factory.NewCounter(prometheus.CounterOpts{
			Name: "castor_schemas_written_total",
			Help: "Total schema files written to the output directory",
		}),
		proxiedRequests: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "castor_proxied_requests_total",
			Help: "Total requests forwarded upstream by response status",
		}, []string{"status"}),
	}
}

// SchemaInferred records one inferred schema.
func (m *Metrics) SchemaInferred(direction string) {
	if m == nil {
		return
	}
	m.schemasInferred.WithLabelValues(direction).Inc()
}

// DecodeFailed records one body that was not valid JSON.
func (m *Metrics) DecodeFailed(direction string) {
	if m == nil {
		return
	}
	m.decodeFailures.WithLabelValues(direction).Inc()
}

// SchemaWritten records one persisted schema.
func (m *Metrics) SchemaWritten() {
	if m == nil {
		return
	}
	m.schemasWritten.Inc()
}

// RequestProxied records one forwarded request.
func (m *Metrics) RequestProxied(status int) {
	if m == nil {
		return
	}
	m.proxiedRequests.WithLabelValues(strconv.Itoa(status)).Inc()
}

// Registry returns the registry the metrics live in.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// Handler serves the metrics in the Prometheus text format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}
