// Package metrics exposes Prometheus collectors for the ingestion pipeline.
package metrics

import (
	"net/http"
	"net/url"
	"strings"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	crawlRunsTotal       *prometheus.CounterVec
	crawlItemsTotal      *prometheus.CounterVec
	fetchRetriesTotal    *prometheus.CounterVec
	ingestRowsTotal      *prometheus.CounterVec
	partitionErrorsTotal *prometheus.CounterVec
	activeCrawls         prometheus.Gauge
	ingestDuration       prometheus.Histogram

	once sync.Once
)

// Init initializes the Prometheus metrics collectors.
// It is safe to call this function multiple times.
func Init() {
	once.Do(func() {
		crawlRunsTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "hotboard_crawl_runs_total",
				Help: "Adapter crawl outcomes, labeled by adapter and status.",
			},
			[]string{"adapter", "status"},
		)

		crawlItemsTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "hotboard_crawl_items_total",
				Help: "Raw items produced per adapter.",
			},
			[]string{"adapter"},
		)

		fetchRetriesTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "hotboard_fetch_retries_total",
				Help: "HTTP fetch retries, labeled by host.",
			},
			[]string{"host"},
		)

		ingestRowsTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "hotboard_ingest_rows_total",
				Help: "Rows touched by ingestion, labeled by partition and operation.",
			},
			[]string{"partition", "op"},
		)

		partitionErrorsTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "hotboard_partition_errors_total",
				Help: "Partition merge failures.",
			},
			[]string{"partition"},
		)

		activeCrawls = promauto.NewGauge(
			prometheus.GaugeOpts{
				Name: "hotboard_active_crawls",
				Help: "Number of adapter crawls currently in flight.",
			},
		)

		ingestDuration = promauto.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "hotboard_ingest_duration_seconds",
				Help:    "Duration of full ingestion passes.",
				Buckets: []float64{0.1, 0.5, 1, 5, 15, 60, 180},
			},
		)
	})
}

// Handler returns an http.Handler for exposing Prometheus metrics.
func Handler() http.Handler {
	return promhttp.Handler()
}

// sanitizeHost reduces a URL to a lowercase hostname label.
func sanitizeHost(rawURL string) string {
	if !strings.HasPrefix(rawURL, "http") {
		rawURL = "http://" + rawURL
	}
	u, err := url.Parse(rawURL)
	if err != nil || u.Hostname() == "" {
		return "unknown"
	}
	return strings.ToLower(u.Hostname())
}

// ObserveCrawl records one adapter run and its item count.
func ObserveCrawl(adapter string, status string, items int) {
	Init()
	crawlRunsTotal.WithLabelValues(adapter, status).Inc()
	if items > 0 {
		crawlItemsTotal.WithLabelValues(adapter).Add(float64(items))
	}
}

// ObserveFetchRetry counts one retry against the URL's host.
func ObserveFetchRetry(rawURL string) {
	Init()
	fetchRetriesTotal.WithLabelValues(sanitizeHost(rawURL)).Inc()
}

// ObserveIngest records row counts for one partition merge.
func ObserveIngest(partition string, inserted, updated, evicted int) {
	Init()
	ingestRowsTotal.WithLabelValues(partition, "insert").Add(float64(inserted))
	ingestRowsTotal.WithLabelValues(partition, "update").Add(float64(updated))
	ingestRowsTotal.WithLabelValues(partition, "evict").Add(float64(evicted))
}

// ObservePartitionError counts one failed partition merge.
func ObservePartitionError(partition string) {
	Init()
	partitionErrorsTotal.WithLabelValues(partition).Inc()
}

// IncActiveCrawls increments the in-flight crawl gauge.
func IncActiveCrawls() {
	Init()
	activeCrawls.Inc()
}

// DecActiveCrawls decrements the in-flight crawl gauge.
func DecActiveCrawls() {
	Init()
	activeCrawls.Dec()
}

// ObserveIngestDuration records the wall time of one ingestion pass.
func ObserveIngestDuration(seconds float64) {
	Init()
	ingestDuration.Observe(seconds)
}
