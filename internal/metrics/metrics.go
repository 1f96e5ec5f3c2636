package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Cache lookup results
const (
	CacheHit  = "hit"
	CacheMiss = "miss"
)

// Metrics holds the collectors exported on /metrics. Each instance owns its
// registry so tests can create as many as they like.
type Metrics struct {
	Registry *prometheus.Registry

	HTTPRequests      *prometheus.CounterVec
	HTTPDuration      *prometheus.HistogramVec
	LeadsScored       *prometheus.CounterVec
	CacheLookups      *prometheus.CounterVec
	ChangeEvents      *prometheus.CounterVec
	ChangeSubscribers prometheus.Gauge
}

// New creates and registers all collectors, including the Go runtime and
// process collectors.
func New() *Metrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	factory := promauto.With(reg)

	return &Metrics{
		Registry: reg,

		HTTPRequests: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "estatedesk_http_requests_total",
				Help: "Total number of HTTP requests by route and status",
			},
			[]string{"method", "route", "status"},
		),

		HTTPDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "estatedesk_http_request_duration_seconds",
				Help:    "Duration of HTTP requests in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"method", "route"},
		),

		LeadsScored: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "estatedesk_leads_scored_total",
				Help: "Total number of lead scores computed by tier",
			},
			[]string{"tier"},
		),

		CacheLookups: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "estatedesk_dashboard_cache_lookups_total",
				Help: "Dashboard cache lookups by view and result",
			},
			[]string{"view", "result"},
		),

		ChangeEvents: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "estatedesk_change_events_total",
				Help: "Row change notifications received by table",
			},
			[]string{"table"},
		),

		ChangeSubscribers: factory.NewGauge(
			prometheus.GaugeOpts{
				Name: "estatedesk_change_subscribers",
				Help: "Number of active change feed subscribers",
			},
		),
	}
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.Registry, promhttp.HandlerOpts{Registry: m.Registry})
}

// ObserveScore counts one computed score. Safe on a nil receiver.
func (m *Metrics) ObserveScore(tier string) {
	if m == nil {
		return
	}
	m.LeadsScored.WithLabelValues(tier).Inc()
}

// ObserveCache counts one dashboard cache lookup. Safe on a nil receiver.
func (m *Metrics) ObserveCache(view, result string) {
	if m == nil {
		return
	}
	m.CacheLookups.WithLabelValues(view, result).Inc()
}

// ObserveChange counts one change notification. Safe on a nil receiver.
func (m *Metrics) ObserveChange(table string) {
	if m == nil {
		return
	}
	m.ChangeEvents.WithLabelValues(table).Inc()
}

// SubscriberDelta adjusts the subscriber gauge. Safe on a nil receiver.
func (m *Metrics) SubscriberDelta(delta float64) {
	if m == nil {
		return
	}
	m.ChangeSubscribers.Add(delta)
}
