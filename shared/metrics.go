package shared

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Refresh outcomes used as label values
const (
	OutcomeSuccess       = "success"
	OutcomeUpstreamError = "upstream_error"
	OutcomeInternalError = "internal_error"
)

// AppMetrics holds the Prometheus collectors exported on /metrics
type AppMetrics struct {
	RefreshRunsTotal        *prometheus.CounterVec
	RefreshDuration         prometheus.Histogram
	CountriesStored         prometheus.Gauge
	CountriesSkippedTotal   prometheus.Counter
	ProviderRequestsTotal   *prometheus.CounterVec
	ProviderRequestDuration *prometheus.HistogramVec
	CacheLookupsTotal       *prometheus.CounterVec
	HTTPRequestsTotal       *prometheus.CounterVec
	HTTPRequestDuration     *prometheus.HistogramVec
}

// NewAppMetrics registers all collectors with reg. Tests pass a fresh
// prometheus.NewRegistry() so repeated construction does not panic.
func NewAppMetrics(reg prometheus.Registerer) *AppMetrics {
	factory := promauto.With(reg)

	return &AppMetrics{
		RefreshRunsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "country_refresh_runs_total",
				Help: "Refresh cycles by outcome",
			},
			[]string{"outcome"},
		),

		RefreshDuration: factory.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "country_refresh_duration_seconds",
				Help:    "Wall time of a refresh cycle in seconds",
				Buckets: prometheus.ExponentialBuckets(0.05, 2, 10),
			},
		),

		CountriesStored: factory.NewGauge(
			prometheus.GaugeOpts{
				Name: "countries_stored",
				Help: "Number of country records after the last refresh",
			},
		),

		CountriesSkippedTotal: factory.NewCounter(
			prometheus.CounterOpts{
				Name: "country_refresh_skipped_total",
				Help: "Provider entries skipped during merge because they had no name",
			},
		),

		ProviderRequestsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "provider_requests_total",
				Help: "Outbound provider calls by provider and outcome",
			},
			[]string{"provider", "outcome"},
		),

		ProviderRequestDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "provider_request_duration_seconds",
				Help:    "Outbound provider call latency in seconds",
				Buckets: prometheus.ExponentialBuckets(0.05, 2, 10),
			},
			[]string{"provider"},
		),

		CacheLookupsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "query_cache_lookups_total",
				Help: "Query cache lookups by result",
			},
			[]string{"result"},
		),

		HTTPRequestsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "http_requests_total",
				Help: "HTTP requests served by method, route and status",
			},
			[]string{"method", "route", "status"},
		),

		HTTPRequestDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "http_request_duration_seconds",
				Help:    "HTTP request latency in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"method", "route"},
		),
	}
}

// RecordRefresh records one refresh attempt
func (m *AppMetrics) RecordRefresh(outcome string, duration time.Duration) {
	if m == nil {
		return
	}
	m.RefreshRunsTotal.WithLabelValues(outcome).Inc()
	m.RefreshDuration.Observe(duration.Seconds())
}

// RecordProviderCall records one outbound provider request
func (m *AppMetrics) RecordProviderCall(provider string, success bool, duration time.Duration) {
	if m == nil {
		return
	}
	outcome := OutcomeSuccess
	if !success {
		outcome = OutcomeUpstreamError
	}
	m.ProviderRequestsTotal.WithLabelValues(provider, outcome).Inc()
	m.ProviderRequestDuration.WithLabelValues(provider).Observe(duration.Seconds())
}

// RecordCacheLookup records a query cache hit or miss
func (m *AppMetrics) RecordCacheLookup(hit bool) {
	if m == nil {
		return
	}
	result := "miss"
	if hit {
		result = "hit"
	}
	m.CacheLookupsTotal.WithLabelValues(result).Inc()
}

// RecordHTTPRequest records a served HTTP request
func (m *AppMetrics) RecordHTTPRequest(method, route string, status int, duration time.Duration) {
	if m == nil {
		return
	}
	m.HTTPRequestsTotal.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
	m.HTTPRequestDuration.WithLabelValues(method, route).Observe(duration.Seconds())
}
