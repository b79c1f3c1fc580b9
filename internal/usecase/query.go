package usecase

import (
	"context"
	"errors"
	"fmt"
	"time"

	"ratewatch/internal/domain/models"
	domrepo "ratewatch/internal/domain/repository"
	icache "ratewatch/internal/service/cache"
	applogger "ratewatch/pkg/logger"
	"ratewatch/pkg/util"
)

// ErrFutureDate rejects calendar-day queries for days that have not
// started yet.
var ErrFutureDate = errors.New("date is in the future")

const defaultWindow = 24 * time.Hour

// QueryUseCase answers read requests over the rate store through the
// cache-aside layer.
type QueryUseCase struct {
	store     domrepo.RateStore
	cache     domrepo.RateCache
	freshness time.Duration
	l         *applogger.Logger
}

func NewQueryUseCase(store domrepo.RateStore, cache domrepo.RateCache, freshness time.Duration, l *applogger.Logger) *QueryUseCase {
	if freshness <= 0 {
		freshness = 10 * time.Minute
	}
	return &QueryUseCase{store: store, cache: cache, freshness: freshness, l: l}
}

// GetRecentWindow returns the rolling window ending now. An empty range
// yields the no-data result, never an error. Only the default window is
// cached; the recent key carries no duration, so a narrower window must
// not be served from or written to it.
func (uc *QueryUseCase) GetRecentWindow(ctx context.Context, pair models.Pair, window time.Duration) (*models.WindowResult, error) {
	if window <= 0 {
		window = defaultWindow
	}
	cacheable := window == defaultWindow

	key := icache.RecentKey(pair)
	if cacheable {
		var cached models.WindowResult
		if uc.cache.Get(ctx, key, &cached) {
			return &cached, nil
		}
	}

	now := time.Now().UTC()
	result, err := uc.queryRange(ctx, pair, now.Add(-window), now)
	if err != nil {
		return nil, err
	}

	if cacheable {
		uc.cache.Set(ctx, key, result, domrepo.TierRecent)
	}
	return result, nil
}

// GetForPeriod returns the window for one UTC calendar day. Days fully
// in the past are cached on the long historical tier; today stays on
// the short recent tier because it is still open.
func (uc *QueryUseCase) GetForPeriod(ctx context.Context, pair models.Pair, date time.Time) (*models.WindowResult, error) {
	from, to := util.DayBounds(date)
	now := time.Now().UTC()
	if from.After(now) {
		return nil, fmt.Errorf("%w: %s", ErrFutureDate, from.Format(util.DayLayout))
	}

	key := icache.DayKey(pair, from)
	var cached models.WindowResult
	if uc.cache.Get(ctx, key, &cached) {
		return &cached, nil
	}

	result, err := uc.queryRange(ctx, pair, from, to)
	if err != nil {
		return nil, err
	}

	tier := domrepo.TierRecent
	if !util.SameDay(from, now) {
		tier = domrepo.TierHistorical
	}
	uc.cache.Set(ctx, key, result, tier)
	return result, nil
}

// GetLatestSnapshot reports the latest recorded time per pair for
// health views, always over the full pair set so the single snapshot
// key never holds a subset. Pairs with no data are omitted, not failed.
func (uc *QueryUseCase) GetLatestSnapshot(ctx context.Context) (models.Snapshot, error) {
	pairs := models.AllPairs()

	key := icache.SnapshotKey()
	var cached models.Snapshot
	if uc.cache.Get(ctx, key, &cached) {
		return cached, nil
	}

	snapshot := make(models.Snapshot, len(pairs))
	for _, pair := range pairs {
		latest, err := uc.store.FindLatest(ctx, pair)
		if err != nil {
			uc.l.Warn("snapshot lookup failed",
				applogger.String("pair", string(pair)),
				applogger.Error(err),
			)
			continue
		}
		if latest == nil {
			continue
		}
		snapshot[pair] = latest.RecordedAt
	}

	uc.cache.Set(ctx, key, snapshot, domrepo.TierSnapshot)
	return snapshot, nil
}

// HasRecentData reports whether pair's latest point lies within the
// freshness threshold of now.
func (uc *QueryUseCase) HasRecentData(ctx context.Context, pair models.Pair) (bool, error) {
	latest, err := uc.store.FindLatest(ctx, pair)
	if err != nil {
		return false, fmt.Errorf("find latest: %w", err)
	}
	if latest == nil {
		return false, nil
	}
	return time.Since(latest.RecordedAt) <= uc.freshness, nil
}

func (uc *QueryUseCase) queryRange(ctx context.Context, pair models.Pair, from, to time.Time) (*models.WindowResult, error) {
	points, err := uc.store.FindRange(ctx, pair, from, to)
	if err != nil {
		return nil, fmt.Errorf("find range: %w", err)
	}
	if len(points) == 0 {
		return &models.WindowResult{NoData: true}, nil
	}

	st, err := uc.store.ComputeStatistics(ctx, pair, from, to)
	if err != nil {
		return nil, fmt.Errorf("compute statistics: %w", err)
	}

	return &models.WindowResult{
		Window: &models.RateWindow{
			Pair:       pair,
			From:       from,
			To:         to,
			Points:     points,
			Statistics: BuildStatistics(st, points),
		},
	}, nil
}
