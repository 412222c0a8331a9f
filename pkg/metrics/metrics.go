// Package metrics defines the Prometheus collectors for a pipeline run,
// exposes them for scraping and pushes them to a Pushgateway when the run
// finishes.
package metrics

import (
	"context"
	"fmt"
	"net/http"
	"strconv"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/prometheus/client_golang/prometheus/push"
)

// Metrics holds all collectors. They are registered on a private registry so
// several runs in one process do not collide.
type Metrics struct {
	registry *prometheus.Registry

	DocsIndexedTotal    prometheus.Counter
	IndexBuildDuration  prometheus.Histogram
	IndexTerms          prometheus.Gauge
	SearchQueriesTotal  *prometheus.CounterVec
	SearchLatency       *prometheus.HistogramVec
	SearchResultsCount  prometheus.Histogram
	CacheHitsTotal      prometheus.Counter
	CacheMissesTotal    prometheus.Counter
	EvaluationMAP       *prometheus.GaugeVec
	EvaluationMAR       *prometheus.GaugeVec
	RunDurationSeconds  prometheus.Gauge
	StorePublishedTotal *prometheus.CounterVec
}

func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		DocsIndexedTotal: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "irbench_docs_indexed_total",
				Help: "Total documents added to the index.",
			},
		),
		IndexBuildDuration: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "irbench_index_build_duration_seconds",
				Help:    "Wall time of index builds.",
				Buckets: prometheus.ExponentialBuckets(0.01, 4, 10),
			},
		),
		IndexTerms: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "irbench_index_terms",
				Help: "Number of distinct terms in the searched index.",
			},
		),
		SearchQueriesTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "irbench_search_queries_total",
				Help: "Queries executed by query type and result type (hit, zero_result, error).",
			},
			[]string{"query_type", "result_type"},
		),
		SearchLatency: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "irbench_search_latency_seconds",
				Help:    "Query latency in seconds.",
				Buckets: []float64{0.0005, 0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1},
			},
			[]string{"cache_status"},
		),
		SearchResultsCount: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "irbench_search_results_count",
				Help:    "Number of results returned per query.",
				Buckets: []float64{0, 1, 5, 10, 25, 50, 100},
			},
		),
		CacheHitsTotal: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "irbench_cache_hits_total",
				Help: "Ranking cache hits.",
			},
		),
		CacheMissesTotal: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "irbench_cache_misses_total",
				Help: "Ranking cache misses.",
			},
		),
		EvaluationMAP: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "irbench_evaluation_map",
				Help: "Mean average precision at cutoff k.",
			},
			[]string{"run", "k"},
		),
		EvaluationMAR: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "irbench_evaluation_mar",
				Help: "Mean average recall at cutoff k.",
			},
			[]string{"run", "k"},
		),
		RunDurationSeconds: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "irbench_run_duration_seconds",
				Help: "Wall time of the last pipeline run.",
			},
		),
		StorePublishedTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "irbench_evaluation_records_total",
				Help: "Evaluation records written by sink (csv, sqlite, postgres, kafka).",
			},
			[]string{"sink"},
		),
	}

	m.registry.MustRegister(
		m.DocsIndexedTotal,
		m.IndexBuildDuration,
		m.IndexTerms,
		m.SearchQueriesTotal,
		m.SearchLatency,
		m.SearchResultsCount,
		m.CacheHitsTotal,
		m.CacheMissesTotal,
		m.EvaluationMAP,
		m.EvaluationMAR,
		m.RunDurationSeconds,
		m.StorePublishedTotal,
	)
	return m
}

// ObserveEvaluation records the metrics of one (run, k) evaluation.
func (m *Metrics) ObserveEvaluation(run string, k int, mapAtK, marAtK float64) {
	labels := prometheus.Labels{"run": run, "k": strconv.Itoa(k)}
	m.EvaluationMAP.With(labels).Set(mapAtK)
	m.EvaluationMAR.With(labels).Set(marAtK)
}

// Gatherer exposes the private registry.
func (m *Metrics) Gatherer() prometheus.Gatherer {
	return m.registry
}

// Handler returns the Prometheus scrape HTTP handler.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// Push sends every collector to the Pushgateway at url under job.
func (m *Metrics) Push(ctx context.Context, url, job string) error {
	if err := push.New(url, job).Gatherer(m.registry).PushContext(ctx); err != nil {
		return fmt.Errorf("pushing metrics to %s: %w", url, err)
	}
	return nil
}
