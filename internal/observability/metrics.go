package observability

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds the Prometheus counters and histograms for the statistics
// engine.
type Metrics struct {
	ReportsParsed prometheus.Counter
	ParseFailures prometheus.Counter

	FetchRequests *prometheus.CounterVec // labels: outcome={success,error,not_found}
	CacheLookups  *prometheus.CounterVec // labels: result={hit,miss}

	RequestDuration prometheus.Histogram
}

// NewMetrics creates and registers all engine metrics with the default
// Prometheus registry.
func NewMetrics() *Metrics {
	m := &Metrics{
		ReportsParsed: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "metar_calendar",
			Name:      "reports_parsed_total",
			Help:      "Raw report lines successfully parsed into observations.",
		}),
		ParseFailures: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "metar_calendar",
			Name:      "parse_failures_total",
			Help:      "Raw report lines skipped as unparsable.",
		}),
		FetchRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "metar_calendar",
			Name:      "fetch_requests_total",
			Help:      "Archive fetches by outcome.",
		}, []string{"outcome"}),
		CacheLookups: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "metar_calendar",
			Name:      "report_cache_total",
			Help:      "Report cache lookups by result.",
		}, []string{"result"}),
		RequestDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "metar_calendar",
			Name:      "statistics_request_duration_seconds",
			Help:      "End-to-end duration of a statistics computation.",
			Buckets:   []float64{0.01, 0.05, 0.1, 0.5, 1, 2.5, 5, 10, 30},
		}),
	}

	prometheus.MustRegister(
		m.ReportsParsed,
		m.ParseFailures,
		m.FetchRequests,
		m.CacheLookups,
		m.RequestDuration,
	)

	return m
}

// NewMetricsForTesting creates Metrics with a fresh registry to avoid
// "already registered" panics when called from multiple tests.
func NewMetricsForTesting() *Metrics {
	return &Metrics{
		ReportsParsed:   prometheus.NewCounter(prometheus.CounterOpts{Namespace: "metar_calendar", Name: "reports_parsed_total"}),
		ParseFailures:   prometheus.NewCounter(prometheus.CounterOpts{Namespace: "metar_calendar", Name: "parse_failures_total"}),
		FetchRequests:   prometheus.NewCounterVec(prometheus.CounterOpts{Namespace: "metar_calendar", Name: "fetch_requests_total"}, []string{"outcome"}),
		CacheLookups:    prometheus.NewCounterVec(prometheus.CounterOpts{Namespace: "metar_calendar", Name: "report_cache_total"}, []string{"result"}),
		RequestDuration: prometheus.NewHistogram(prometheus.HistogramOpts{Namespace: "metar_calendar", Name: "statistics_request_duration_seconds"}),
	}
}
