// Package metrics defines the Prometheus collectors for indexing runs and
// retrieval, and exposes an HTTP handler for scraping.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds all Prometheus collectors.
type Metrics struct {
	IndexRunsTotal     *prometheus.CounterVec
	IndexRunDuration   prometheus.Histogram
	BlocksIndexedTotal prometheus.Counter
	BlockDuration      prometheus.Histogram
	DocsIndexedTotal   prometheus.Counter
	PairsInvertedTotal prometheus.Counter
	IndexTermsCount    prometheus.Gauge
	IndexBytesWritten  *prometheus.CounterVec
	MergeDuration      prometheus.Histogram
	SearchQueriesTotal *prometheus.CounterVec
	SearchLatency      *prometheus.HistogramVec
	SearchResultsCount *prometheus.HistogramVec
	CacheHitsTotal     prometheus.Counter
	CacheMissesTotal   prometheus.Counter
	CacheErrorsTotal   prometheus.Counter
}

// New creates all metrics and registers them with the default registry.
func New() *Metrics {
	return NewWithRegistry(prometheus.DefaultRegisterer)
}

// NewWithRegistry creates all metrics and registers them with reg.
func NewWithRegistry(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		IndexRunsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "index_runs_total",
				Help: "Total indexing runs by status (success, error).",
			},
			[]string{"status"},
		),
		IndexRunDuration: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "index_run_duration_seconds",
				Help:    "Wall time of a complete indexing run in seconds.",
				Buckets: prometheus.ExponentialBuckets(0.01, 4, 10),
			},
		),
		BlocksIndexedTotal: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "blocks_indexed_total",
				Help: "Total blocks parsed, inverted and written.",
			},
		),
		BlockDuration: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "block_duration_seconds",
				Help:    "Time to parse, invert and write one block in seconds.",
				Buckets: []float64{0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1, 5, 10, 30},
			},
		),
		DocsIndexedTotal: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "docs_indexed_total",
				Help: "Total documents indexed.",
			},
		),
		PairsInvertedTotal: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "pairs_inverted_total",
				Help: "Total (term, document) occurrences fed to block inversion.",
			},
		),
		IndexTermsCount: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "index_terms",
				Help: "Number of distinct terms in the last global index built.",
			},
		),
		IndexBytesWritten: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "index_bytes_written_total",
				Help: "Postings bytes written by codec.",
			},
			[]string{"codec"},
		),
		MergeDuration: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "merge_duration_seconds",
				Help:    "Time to merge intermediate indexes in seconds.",
				Buckets: prometheus.ExponentialBuckets(0.001, 4, 10),
			},
		),
		SearchQueriesTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "search_queries_total",
				Help: "Total search queries by method and result type (hit, zero_result, error).",
			},
			[]string{"method", "result_type"},
		),
		SearchLatency: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "search_latency_seconds",
				Help:    "Search query latency in seconds.",
				Buckets: []float64{0.0001, 0.0005, 0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1},
			},
			[]string{"method"},
		),
		SearchResultsCount: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "search_results_count",
				Help:    "Number of results returned per search query.",
				Buckets: []float64{0, 1, 5, 10, 25, 50, 100},
			},
			[]string{"method"},
		),
		CacheHitsTotal: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "cache_hits_total",
				Help: "Total number of result cache hits.",
			},
		),
		CacheMissesTotal: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "cache_misses_total",
				Help: "Total number of result cache misses.",
			},
		),
		CacheErrorsTotal: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "cache_errors_total",
				Help: "Total result cache reads or writes that failed and fell back to computing.",
			},
		),
	}

	reg.MustRegister(
		m.IndexRunsTotal,
		m.IndexRunDuration,
		m.BlocksIndexedTotal,
		m.BlockDuration,
		m.DocsIndexedTotal,
		m.PairsInvertedTotal,
		m.IndexTermsCount,
		m.IndexBytesWritten,
		m.MergeDuration,
		m.SearchQueriesTotal,
		m.SearchLatency,
		m.SearchResultsCount,
		m.CacheHitsTotal,
		m.CacheMissesTotal,
		m.CacheErrorsTotal,
	)

	return m
}

// Handler returns the Prometheus scrape HTTP handler.
func Handler() http.Handler {
	return promhttp.Handler()
}
