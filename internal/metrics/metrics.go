// Package metrics exposes Prometheus collectors for the fetcher service.
package metrics

import (
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	pageFetchesTotal         *prometheus.CounterVec
	pageFetchRetriesTotal    *prometheus.CounterVec
	pageFetchSeconds         *prometheus.HistogramVec
	storeChunkFetchesTotal   *prometheus.CounterVec
	storeChunkCacheHitsTotal *prometheus.CounterVec
	publicationsTotal        *prometheus.CounterVec

	once sync.Once
)

// Init initializes the Prometheus collectors. It is safe to call this
// function multiple times; the record helpers are no-ops until it runs.
func Init() {
	once.Do(func() {
		pageFetchesTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "regwatch_page_fetches_total",
				Help: "Total page fetches, labeled by host and outcome.",
			},
			[]string{"host", "outcome"},
		)

		pageFetchRetriesTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "regwatch_page_fetch_retries_total",
				Help: "Total fetch retry attempts, labeled by host.",
			},
			[]string{"host"},
		)

		pageFetchSeconds = promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "regwatch_page_fetch_duration_seconds",
				Help:    "Histogram of page fetch latencies, labeled by host.",
				Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2, 5, 15},
			},
			[]string{"host"},
		)

		storeChunkFetchesTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "regwatch_store_chunk_fetches_total",
				Help: "Total store chunk documents fetched, labeled by store.",
			},
			[]string{"store"},
		)

		storeChunkCacheHitsTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "regwatch_store_chunk_cache_hits_total",
				Help: "Total chunk-cache hits, labeled by store.",
			},
			[]string{"store"},
		)

		publicationsTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "regwatch_publications_total",
				Help: "Publications processed, labeled by regulator, content type and outcome.",
			},
			[]string{"regulator", "content_type", "outcome"},
		)
	})
}

// PageFetch records one completed fetch, including its total latency.
func PageFetch(host, outcome string, duration time.Duration) {
	if pageFetchesTotal == nil {
		return
	}
	pageFetchesTotal.WithLabelValues(host, outcome).Inc()
	pageFetchSeconds.WithLabelValues(host).Observe(duration.Seconds())
}

// PageFetchRetry records one retry attempt.
func PageFetchRetry(host string) {
	if pageFetchRetriesTotal == nil {
		return
	}
	pageFetchRetriesTotal.WithLabelValues(host).Inc()
}

// StoreChunkFetch records a chunk document fetched from the remote store.
func StoreChunkFetch(store string) {
	if storeChunkFetchesTotal == nil {
		return
	}
	storeChunkFetchesTotal.WithLabelValues(store).Inc()
}

// StoreChunkCacheHit records a chunk served from the in-memory cache.
func StoreChunkCacheHit(store string) {
	if storeChunkCacheHitsTotal == nil {
		return
	}
	storeChunkCacheHitsTotal.WithLabelValues(store).Inc()
}

// Publication records one publication outcome: "published", "skipped" or
// "failed".
func Publication(regulator, contentType, outcome string) {
	if publicationsTotal == nil {
		return
	}
	publicationsTotal.WithLabelValues(regulator, contentType, outcome).Inc()
}
