// Package metrics exposes the engine's Prometheus collectors. All methods
// are safe to call on a nil *Metrics, which records nothing.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "portunus"

// DefaultPath is the default HTTP path for the Prometheus scrape endpoint.
const DefaultPath = "/metrics"

type Metrics struct {
	scans              *prometheus.CounterVec
	scanDuration       prometheus.Histogram
	roleLookupFailures prometheus.Counter
	webhookDeliveries  *prometheus.CounterVec
	recordFailures     *prometheus.CounterVec
}

// New creates the collectors and registers them with reg.
func New(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		scans: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "scans_total",
			Help:      "Scan decisions by grant type and response code.",
		}, []string{"grant_type", "response_code"}),
		scanDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "scan_duration_seconds",
			Help:      "Time to reach a scan decision, including recording.",
			Buckets:   prometheus.DefBuckets,
		}),
		roleLookupFailures: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "role_lookup_failures_total",
			Help:      "External provider group role lookups that failed.",
		}),
		webhookDeliveries: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "webhook_deliveries_total",
			Help:      "Webhook delivery attempts by result.",
		}, []string{"result"}),
		recordFailures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "record_failures_total",
			Help:      "Failed audit or statistics writes.",
		}, []string{"kind"}),
	}

	reg.MustRegister(
		m.scans,
		m.scanDuration,
		m.roleLookupFailures,
		m.webhookDeliveries,
		m.recordFailures,
	)
	return m
}

// NewRegistry returns a registry with the Go runtime and process collectors
// already registered.
func NewRegistry() *prometheus.Registry {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return reg
}

// Handler serves the scrape endpoint for g.
func Handler(g prometheus.Gatherer) http.Handler {
	return promhttp.HandlerFor(g, promhttp.HandlerOpts{})
}

func (m *Metrics) ObserveScan(grantType, responseCode string, d time.Duration) {
	if m == nil {
		return
	}
	m.scans.WithLabelValues(grantType, responseCode).Inc()
	m.scanDuration.Observe(d.Seconds())
}

func (m *Metrics) RoleLookupFailed() {
	if m == nil {
		return
	}
	m.roleLookupFailures.Inc()
}

func (m *Metrics) WebhookDelivered(ok bool) {
	if m == nil {
		return
	}
	result := "ok"
	if !ok {
		result = "failed"
	}
	m.webhookDeliveries.WithLabelValues(result).Inc()
}

// RecordFailed counts a failed write; kind is "audit" or "stats".
func (m *Metrics) RecordFailed(kind string) {
	if m == nil {
		return
	}
	m.recordFailures.WithLabelValues(kind).Inc()
}
