// Package metrics holds the Prometheus collectors shared by the HTTP layer,
// the payout services and the background workers.
package metrics

import (
	"sync"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus"
)

// Recompute outcomes.
const (
	OutcomeSuccess = "success"
	OutcomeFailure = "failure"
)

var (
	// RecomputeTotal counts payout recomputations by rate mode and outcome.
	RecomputeTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "payouts_recompute_total",
			Help: "Total payout recomputations, by rate mode and outcome.",
		},
		[]string{"mode", "outcome"},
	)

	RecomputeDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "payouts_recompute_duration_seconds",
			Help:    "Duration of a single creator payout recomputation.",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"mode"},
	)

	BulkDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "payouts_bulk_recompute_duration_seconds",
			Help:    "Duration of a whole-cycle recompute.",
			Buckets: []float64{1, 5, 15, 30, 60, 120, 300, 600},
		},
	)

	BulkFailures = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "payouts_bulk_recompute_failures_total",
			Help: "Creators that failed during whole-cycle recomputes.",
		},
	)

	CyclesFrozen = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "payouts_cycles_frozen_total",
			Help: "Cycles that received a rate and tier snapshot.",
		},
	)

	VideoChangeBatches = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "payouts_video_change_batch_size",
			Help:    "Distinct creators per video change batch.",
			Buckets: prometheus.ExponentialBuckets(1, 2, 10),
		},
	)

	CacheHits = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "payouts_cache_hits_total",
			Help: "Total Redis cache hits.",
		},
	)

	CacheMisses = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "payouts_cache_misses_total",
			Help: "Total Redis cache misses.",
		},
	)

	RequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "payouts_api_request_duration_seconds",
			Help:    "HTTP request duration in seconds, by endpoint and method.",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"endpoint", "method", "status"},
	)

	RequestsInFlight = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "payouts_requests_in_flight",
			Help: "Number of HTTP requests currently being served.",
		},
	)
)

var registerOnce sync.Once

// Init registers all collectors with the default registry. Pool gauges are
// added when pool is non-nil. Safe to call more than once.
func Init(pool *pgxpool.Pool) {
	registerOnce.Do(func() {
		prometheus.MustRegister(
			RecomputeTotal,
			RecomputeDuration,
			BulkDuration,
			BulkFailures,
			CyclesFrozen,
			VideoChangeBatches,
			CacheHits,
			CacheMisses,
			RequestDuration,
			RequestsInFlight,
		)

		if pool == nil {
			return
		}
		prometheus.MustRegister(
			prometheus.NewGaugeFunc(
				prometheus.GaugeOpts{
					Name: "payouts_db_connection_pool_active",
					Help: "Number of active database connections.",
				},
				func() float64 { return float64(pool.Stat().AcquiredConns()) },
			),
			prometheus.NewGaugeFunc(
				prometheus.GaugeOpts{
					Name: "payouts_db_connection_pool_idle",
					Help: "Number of idle database connections.",
				},
				func() float64 { return float64(pool.Stat().IdleConns()) },
			),
		)
	})
}
