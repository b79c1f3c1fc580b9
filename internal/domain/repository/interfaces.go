package repository

import (
	"context"
	"time"

	"github.com/shopspring/decimal"

	"ratewatch/internal/domain/models"
)

// PriceSource fetches current quotes from the external provider.
type PriceSource interface {
	GetCurrentPrice(ctx context.Context, pair models.Pair) (decimal.Decimal, error)
	GetAllCurrentPrices(ctx context.Context) (map[models.Pair]decimal.Decimal, error)
	// IsAvailable probes provider liveness. Any failure means unavailable.
	IsAvailable(ctx context.Context) bool
}

// RateStore is the append-only persistence of price points.
type RateStore interface {
	// Save inserts a point. A point already present for (pair, recorded_at)
	// is skipped atomically by the store's unique constraint.
	Save(ctx context.Context, p *models.PricePoint) error
	ExistsForPairAndTime(ctx context.Context, pair models.Pair, at time.Time) (bool, error)
	// FindRange returns points in [from, to] ascending by recorded_at.
	FindRange(ctx context.Context, pair models.Pair, from, to time.Time) ([]models.PricePoint, error)
	FindLatest(ctx context.Context, pair models.Pair) (*models.PricePoint, error)
	// ComputeStatistics aggregates min/max/avg/count push-down in SQL.
	ComputeStatistics(ctx context.Context, pair models.Pair, from, to time.Time) (*models.StoreStatistics, error)
	// DeleteOlderThan removes points with recorded_at before cutoff.
	DeleteOlderThan(ctx context.Context, cutoff time.Time) (int64, error)
	Health(ctx context.Context) error
	Close() error
}

// CacheTier selects the TTL applied to a cached entry.
type CacheTier int

const (
	// TierRecent covers the rolling window and today's open calendar day.
	TierRecent CacheTier = iota
	// TierHistorical covers calendar days fully in the past.
	TierHistorical
	// TierSnapshot covers the latest-per-pair health view.
	TierSnapshot
)

// RateCache is an advisory cache-aside layer. Get reports a hit; any
// backend failure is absorbed and reported as a miss. Concurrent misses
// on one key may each recompute and write independently (no single
// flight); callers implement the cache-aside branch themselves.
type RateCache interface {
	Get(ctx context.Context, key string, dest interface{}) bool
	Set(ctx context.Context, key string, value interface{}, tier CacheTier)
	// Invalidate drops the recent-window, today's-day and snapshot keys
	// for pair. Closed historical days stay cached until TTL expiry.
	Invalidate(ctx context.Context, pair models.Pair)
}

// Metrics records operational counters and gauges.
type Metrics interface {
	RecordPointIngested(pair string)
	RecordError(kind string)
	RecordLastPrice(pair string, price float64)
	RecordLatency(op string, seconds float64)
	RecordCacheHit(category string)
	RecordCacheMiss(category string)
}
