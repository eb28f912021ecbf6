// Package metrics provides Prometheus metrics for the OPTCG tracker.
// Scrape these at /metrics for Grafana dashboards and alerting.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// HTTP Metrics
	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "optcg_http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "path", "status"},
	)

	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "optcg_http_request_duration_seconds",
			Help:    "HTTP request latency in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "path"},
	)

	// Catalog Metrics
	CatalogSize = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "optcg_catalog_size",
			Help: "Number of unique card codes in the loaded catalog",
		},
	)

	CatalogLoadsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "optcg_catalog_loads_total",
			Help: "Catalog artifact loads by result",
		},
		[]string{"result"}, // "success" or "failed"
	)

	CatalogSearchCacheHits = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "optcg_catalog_search_cache_hits_total",
			Help: "Catalog search page cache hit count",
		},
	)

	CatalogSearchCacheMisses = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "optcg_catalog_search_cache_misses_total",
			Help: "Catalog search page cache miss count",
		},
	)

	// Import Metrics
	ImportRowsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "optcg_import_rows_total",
			Help: "Rows processed by collection and price imports",
		},
		[]string{"kind", "result"}, // kind: "collection" or "prices"; result: "imported" or "rejected"
	)

	// Price Scrape Metrics
	PriceScrapesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "optcg_price_scrapes_total",
			Help: "Price scrape attempts by result",
		},
		[]string{"result"}, // "success" or "failed"
	)

	PriceQueueSize = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "optcg_price_queue_size",
			Help: "Number of card codes waiting in the current scrape run",
		},
	)

	PriceRunDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "optcg_price_run_duration_seconds",
			Help:    "Time taken by a complete scrape run",
			Buckets: []float64{10, 60, 300, 900, 1800, 3600, 7200},
		},
	)

	// Collection Metrics
	CollectionCardsTotal = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "optcg_collection_cards_total",
			Help: "Total quantity of cards in the active collection",
		},
	)

	CollectionValueEur = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "optcg_collection_value_eur",
			Help: "Estimated value of the active collection in EUR",
		},
	)

	CollectionCompletionPercent = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "optcg_collection_completion_percent",
			Help: "Share of catalog codes owned by the active collection",
		},
	)
)
