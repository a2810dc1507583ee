// Package metrics exposes Prometheus instrumentation for gameshelf.
package metrics

import (
	"database/sql"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// Cache state gauges
	GamesCached = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "gameshelf_games_cached_total",
		Help: "Total number of game records in the local cache.",
	})
	WishlistSize = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "gameshelf_wishlist_size",
		Help: "Number of wishlisted games.",
	})

	// Upstream fetches
	Fetches = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "gameshelf_fetches_total",
		Help: "Total number of upstream catalog fetches.",
	}, []string{"view", "status"}) // status: ok, connectivity_error, error

	CacheFallbacks = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "gameshelf_cache_fallbacks_total",
		Help: "Total number of times a view was served from cache after a connectivity failure.",
	}, []string{"view"})

	FetchDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "gameshelf_fetch_duration_seconds",
		Help:    "Duration of upstream catalog fetches in seconds.",
		Buckets: prometheus.DefBuckets,
	}, []string{"view"})

	// Retention sweeps
	PrunedRecords = promauto.NewCounter(prometheus.CounterOpts{
		Name: "gameshelf_pruned_records_total",
		Help: "Total number of cache records removed by retention sweeps.",
	})
)

// UpdateDBMetrics refreshes gauges that reflect the current state of the cache.
func UpdateDBMetrics(db *sql.DB) error {
	var games, wishlisted int

	if err := db.QueryRow("SELECT COUNT(*) FROM games").Scan(&games); err != nil {
		return err
	}
	if err := db.QueryRow("SELECT COUNT(*) FROM games WHERE is_in_wishlist = 1").Scan(&wishlisted); err != nil {
		return err
	}

	GamesCached.Set(float64(games))
	WishlistSize.Set(float64(wishlisted))

	return nil
}

// RecordFetchDuration records the time taken for an upstream fetch.
func RecordFetchDuration(view string, start time.Time) {
	FetchDuration.WithLabelValues(view).Observe(time.Since(start).Seconds())
}
