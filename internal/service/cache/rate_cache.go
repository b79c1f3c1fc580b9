package cache

import (
	"context"
	"errors"
	"strings"
	"time"

	"ratewatch/internal/domain/models"
	domrepo "ratewatch/internal/domain/repository"
	pkgcache "ratewatch/pkg/cache"
	applogger "ratewatch/pkg/logger"
	"ratewatch/pkg/util"
)

// TTLConfig holds the per-tier expirations.
type TTLConfig struct {
	Recent     time.Duration
	Historical time.Duration
	Snapshot   time.Duration
}

// DefaultTTLConfig returns the tier defaults: minutes for open periods,
// an hour for closed days, about a minute for the snapshot view.
func DefaultTTLConfig() TTLConfig {
	return TTLConfig{
		Recent:     5 * time.Minute,
		Historical: time.Hour,
		Snapshot:   time.Minute,
	}
}

// RecentKey is the cache key for a pair's rolling recent window.
func RecentKey(pair models.Pair) string {
	return pkgcache.BuildKey("rates", "recent", string(pair))
}

// DayKey is the cache key for a pair's calendar-day query.
func DayKey(pair models.Pair, day time.Time) string {
	return pkgcache.BuildKey("rates", "day", string(pair), day.UTC().Format(util.DayLayout))
}

// SnapshotKey is the cache key for the latest-per-pair snapshot.
func SnapshotKey() string {
	return pkgcache.BuildKey("rates", "snapshot")
}

// RateCache implements the advisory cache-aside layer on top of a cache
// backend. Backend failures are logged and reported as misses so the
// cache is never a hard dependency for reads.
type RateCache struct {
	backend pkgcache.Service
	ttls    TTLConfig
	metrics domrepo.Metrics
	l       *applogger.Logger
}

func NewRateCache(backend pkgcache.Service, ttls TTLConfig, metrics domrepo.Metrics, l *applogger.Logger) *RateCache {
	return &RateCache{backend: backend, ttls: ttls, metrics: metrics, l: l}
}

func (c *RateCache) Get(ctx context.Context, key string, dest interface{}) bool {
	err := c.backend.Get(ctx, key, dest)
	if err == nil {
		if c.metrics != nil {
			c.metrics.RecordCacheHit(keyCategory(key))
		}
		return true
	}
	if !errors.Is(err, pkgcache.ErrCacheMiss) && c.l != nil {
		c.l.Warn("cache get failed, treating as miss",
			applogger.String("key", key),
			applogger.Error(err),
		)
	}
	if c.metrics != nil {
		c.metrics.RecordCacheMiss(keyCategory(key))
	}
	return false
}

func (c *RateCache) Set(ctx context.Context, key string, value interface{}, tier domrepo.CacheTier) {
	if err := c.backend.Set(ctx, key, value, c.ttlFor(tier)); err != nil && c.l != nil {
		c.l.Warn("cache set failed",
			applogger.String("key", key),
			applogger.Error(err),
		)
	}
}

// Invalidate drops the keys new data for pair can make stale: the recent
// window, today's open day and the snapshot. Closed historical days are
// immutable and stay cached.
func (c *RateCache) Invalidate(ctx context.Context, pair models.Pair) {
	keys := []string{
		RecentKey(pair),
		DayKey(pair, time.Now().UTC()),
		SnapshotKey(),
	}
	if err := c.backend.Delete(ctx, keys...); err != nil && c.l != nil {
		c.l.Warn("cache invalidate failed",
			applogger.String("pair", string(pair)),
			applogger.Error(err),
		)
	}
}

func (c *RateCache) ttlFor(tier domrepo.CacheTier) time.Duration {
	switch tier {
	case domrepo.TierHistorical:
		return c.ttls.Historical
	case domrepo.TierSnapshot:
		return c.ttls.Snapshot
	default:
		return c.ttls.Recent
	}
}

func keyCategory(key string) string {
	parts := strings.SplitN(key, ":", 3)
	if len(parts) >= 2 {
		return parts[1]
	}
	return key
}

var _ domrepo.RateCache = (*RateCache)(nil)
