// Package metrics defines the Prometheus collectors used across the search
// engine and exposes an HTTP handler for scraping. A nil *Metrics is valid
// and records nothing, so components can run without instrumentation.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds all Prometheus collectors for the engine.
type Metrics struct {
	HTTPRequestsTotal    *prometheus.CounterVec
	HTTPRequestDuration  *prometheus.HistogramVec
	HTTPRequestsInFlight prometheus.Gauge
	SearchQueriesTotal   *prometheus.CounterVec
	SearchLatency        *prometheus.HistogramVec
	SearchResultsCount   prometheus.Histogram
	CacheHitsTotal       prometheus.Counter
	CacheMissesTotal     prometheus.Counter
	DocsIndexedTotal     *prometheus.CounterVec
	IndexMergesTotal     prometheus.Counter
	QueueTasksTotal      *prometheus.CounterVec
	QueuePending         prometheus.Gauge
	CrawlFetchesTotal    *prometheus.CounterVec

	gatherer prometheus.Gatherer
}

// New creates all collectors and registers them with reg. Passing a fresh
// prometheus.NewRegistry keeps tests independent of the global registry.
func New(reg *prometheus.Registry) *Metrics {
	m := &Metrics{
		HTTPRequestsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "http_requests_total",
				Help: "Total number of HTTP requests by method, path, and status.",
			},
			[]string{"method", "path", "status"},
		),
		HTTPRequestDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "http_request_duration_seconds",
				Help:    "HTTP request latency in seconds.",
				Buckets: []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5},
			},
			[]string{"method", "path"},
		),
		HTTPRequestsInFlight: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "http_requests_in_flight",
				Help: "Number of HTTP requests currently being processed.",
			},
		),
		SearchQueriesTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "search_queries_total",
				Help: "Total searches run against the index by mode (exact, partial).",
			},
			[]string{"mode"},
		),
		SearchLatency: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "search_latency_seconds",
				Help:    "Search latency in seconds.",
				Buckets: []float64{0.0001, 0.0005, 0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1},
			},
			[]string{"mode"},
		),
		SearchResultsCount: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "search_results_count",
				Help:    "Number of locations returned per search.",
				Buckets: []float64{0, 1, 5, 10, 25, 50, 100, 500},
			},
		),
		CacheHitsTotal: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "cache_hits_total",
				Help: "Total number of search cache hits.",
			},
		),
		CacheMissesTotal: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "cache_misses_total",
				Help: "Total number of search cache misses.",
			},
		),
		DocsIndexedTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "docs_indexed_total",
				Help: "Total documents indexed by source (file, url).",
			},
			[]string{"source"},
		),
		IndexMergesTotal: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "index_merges_total",
				Help: "Total local indices merged into the shared index.",
			},
		),
		QueueTasksTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "workqueue_tasks_total",
				Help: "Total work queue task runs by status (ok, panic, dropped).",
			},
			[]string{"status"},
		),
		QueuePending: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "workqueue_pending",
				Help: "Tasks submitted to the work queue but not yet completed.",
			},
		),
		CrawlFetchesTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "crawl_fetches_total",
				Help: "Total crawler fetch attempts by status (ok, error, retry).",
			},
			[]string{"status"},
		),
		gatherer: reg,
	}

	reg.MustRegister(
		m.HTTPRequestsTotal,
		m.HTTPRequestDuration,
		m.HTTPRequestsInFlight,
		m.SearchQueriesTotal,
		m.SearchLatency,
		m.SearchResultsCount,
		m.CacheHitsTotal,
		m.CacheMissesTotal,
		m.DocsIndexedTotal,
		m.IndexMergesTotal,
		m.QueueTasksTotal,
		m.QueuePending,
		m.CrawlFetchesTotal,
	)

	return m
}

// Handler returns the Prometheus scrape handler for the registry m was
// built with.
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(m.gatherer, promhttp.HandlerOpts{})
}

func (m *Metrics) ObserveSearch(exact bool, start time.Time, results int) {
	if m == nil {
		return
	}
	mode := "partial"
	if exact {
		mode = "exact"
	}
	m.SearchQueriesTotal.WithLabelValues(mode).Inc()
	m.SearchLatency.WithLabelValues(mode).Observe(time.Since(start).Seconds())
	m.SearchResultsCount.Observe(float64(results))
}

func (m *Metrics) DocIndexed(source string) {
	if m == nil {
		return
	}
	m.DocsIndexedTotal.WithLabelValues(source).Inc()
}

func (m *Metrics) Merged() {
	if m == nil {
		return
	}
	m.IndexMergesTotal.Inc()
}

func (m *Metrics) TaskDone(status string) {
	if m == nil {
		return
	}
	m.QueueTasksTotal.WithLabelValues(status).Inc()
}

func (m *Metrics) SetPending(n int) {
	if m == nil {
		return
	}
	m.QueuePending.Set(float64(n))
}

func (m *Metrics) Fetched(ok bool) {
	if m == nil {
		return
	}
	status := "ok"
	if !ok {
		status = "error"
	}
	m.CrawlFetchesTotal.WithLabelValues(status).Inc()
}

// FetchRetried counts a failed fetch attempt that will be retried.
func (m *Metrics) FetchRetried() {
	if m == nil {
		return
	}
	m.CrawlFetchesTotal.WithLabelValues("retry").Inc()
}

func (m *Metrics) CacheHit(hit bool) {
	if m == nil {
		return
	}
	if hit {
		m.CacheHitsTotal.Inc()
		return
	}
	m.CacheMissesTotal.Inc()
}

// HTTPStarted marks a request in flight. The returned func records its
// completion under route with the final status.
func (m *Metrics) HTTPStarted(method, route string) func(status int) {
	if m == nil {
		return func(int) {}
	}
	start := time.Now()
	m.HTTPRequestsInFlight.Inc()
	return func(status int) {
		m.HTTPRequestsInFlight.Dec()
		m.HTTPRequestsTotal.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
		m.HTTPRequestDuration.WithLabelValues(method, route).Observe(time.Since(start).Seconds())
	}
}
