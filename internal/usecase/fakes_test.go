package usecase

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"ratewatch/internal/domain/models"
	domrepo "ratewatch/internal/domain/repository"
	applogger "ratewatch/pkg/logger"
)

func testLogger(t *testing.T) *applogger.Logger {
	t.Helper()
	l, err := applogger.New(&applogger.Config{Level: "error", Format: "json", Output: "stderr"})
	if err != nil {
		t.Fatalf("logger: %v", err)
	}
	return l
}

type fakeSource struct {
	prices   map[models.Pair]decimal.Decimal
	batchErr error
	up       bool
}

func (f *fakeSource) GetCurrentPrice(_ context.Context, pair models.Pair) (decimal.Decimal, error) {
	return f.prices[pair], nil
}

func (f *fakeSource) GetAllCurrentPrices(context.Context) (map[models.Pair]decimal.Decimal, error) {
	if f.batchErr != nil {
		return nil, f.batchErr
	}
	return f.prices, nil
}

func (f *fakeSource) IsAvailable(context.Context) bool { return f.up }

type fakeStore struct {
	mu sync.Mutex

	saved     []models.PricePoint
	saveErr   map[models.Pair]error
	existing  map[models.Pair]bool
	existsErr error

	rangePoints []models.PricePoint
	rangeCalls  int
	stats       *models.StoreStatistics

	latest    map[models.Pair]*models.PricePoint
	latestErr map[models.Pair]error

	deleted int64
}

func (f *fakeStore) Save(_ context.Context, p *models.PricePoint) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.saveErr[p.Pair]; err != nil {
		return err
	}
	f.saved = append(f.saved, *p)
	return nil
}

func (f *fakeStore) ExistsForPairAndTime(_ context.Context, pair models.Pair, _ time.Time) (bool, error) {
	if f.existsErr != nil {
		return false, f.existsErr
	}
	return f.existing[pair], nil
}

func (f *fakeStore) FindRange(_ context.Context, _ models.Pair, _, _ time.Time) ([]models.PricePoint, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.rangeCalls++
	return f.rangePoints, nil
}

func (f *fakeStore) FindLatest(_ context.Context, pair models.Pair) (*models.PricePoint, error) {
	if err := f.latestErr[pair]; err != nil {
		return nil, err
	}
	return f.latest[pair], nil
}

func (f *fakeStore) ComputeStatistics(_ context.Context, _ models.Pair, _, _ time.Time) (*models.StoreStatistics, error) {
	return f.stats, nil
}

func (f *fakeStore) DeleteOlderThan(context.Context, time.Time) (int64, error) {
	return f.deleted, nil
}

func (f *fakeStore) Health(context.Context) error { return nil }
func (f *fakeStore) Close() error                 { return nil }

// fakeRateCache records invalidations and never hits.
type fakeRateCache struct {
	mu          sync.Mutex
	invalidated []models.Pair
	sets        map[string]interface{}
}

func (f *fakeRateCache) Get(context.Context, string, interface{}) bool { return false }

func (f *fakeRateCache) Set(_ context.Context, key string, value interface{}, _ domrepo.CacheTier) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.sets == nil {
		f.sets = make(map[string]interface{})
	}
	f.sets[key] = value
}

func (f *fakeRateCache) Invalidate(_ context.Context, pair models.Pair) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.invalidated = append(f.invalidated, pair)
}

type fakeMetrics struct {
	mu       sync.Mutex
	ingested []string
	errs     []string
}

func (f *fakeMetrics) RecordPointIngested(pair string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.ingested = append(f.ingested, pair)
}

func (f *fakeMetrics) RecordError(kind string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.errs = append(f.errs, kind)
}

func (f *fakeMetrics) RecordLastPrice(string, float64) {}
func (f *fakeMetrics) RecordLatency(string, float64)   {}
func (f *fakeMetrics) RecordCacheHit(string)           {}
func (f *fakeMetrics) RecordCacheMiss(string)          {}
