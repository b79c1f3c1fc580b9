package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Recorder implements domain.repository.Metrics using Prometheus.
type Recorder struct {
	pointsIngested *prometheus.CounterVec
	errorsTotal    *prometheus.CounterVec
	lastPrice      *prometheus.GaugeVec
	latency        *prometheus.HistogramVec
	cacheRequests  *prometheus.CounterVec
}

// New creates a new Prometheus metrics recorder.
func New() *Recorder {
	return &Recorder{
		pointsIngested: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "ratewatch_points_ingested_total",
				Help: "Total number of price points persisted",
			},
			[]string{"pair"},
		),
		errorsTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "ratewatch_errors_total",
				Help: "Total number of errors encountered",
			},
			[]string{"type"},
		),
		lastPrice: promauto.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "ratewatch_last_price",
				Help: "Last ingested price for a pair",
			},
			[]string{"pair"},
		),
		latency: promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "ratewatch_operation_duration_seconds",
				Help:    "Duration of operations in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"operation"},
		),
		cacheRequests: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "ratewatch_cache_requests_total",
				Help: "Cache lookups partitioned by category and result",
			},
			[]string{"category", "result"},
		),
	}
}

// RecordPointIngested records a persisted price point.
func (r *Recorder) RecordPointIngested(pair string) {
	r.pointsIngested.WithLabelValues(pair).Inc()
}

// RecordError records an error occurrence.
func (r *Recorder) RecordError(kind string) {
	r.errorsTotal.WithLabelValues(kind).Inc()
}

// RecordLastPrice records the last price for a pair.
func (r *Recorder) RecordLastPrice(pair string, price float64) {
	r.lastPrice.WithLabelValues(pair).Set(price)
}

// RecordLatency records operation latency in seconds.
func (r *Recorder) RecordLatency(op string, seconds float64) {
	r.latency.WithLabelValues(op).Observe(seconds)
}

// RecordCacheHit records a cache hit for a key category.
func (r *Recorder) RecordCacheHit(category string) {
	r.cacheRequests.WithLabelValues(category, "hit").Inc()
}

// RecordCacheMiss records a cache miss for a key category.
func (r *Recorder) RecordCacheMiss(category string) {
	r.cacheRequests.WithLabelValues(category, "miss").Inc()
}
