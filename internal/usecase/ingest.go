package usecase

import (
	"context"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"ratewatch/internal/domain/models"
	domrepo "ratewatch/internal/domain/repository"
	applogger "ratewatch/pkg/logger"
)

// IngestUseCase turns a trigger into a batch of persisted points and
// cache invalidations. Triggers (timer, HTTP command, message) all call
// Run; overlapping runs for the same timestamp are absorbed by the
// store's unique constraint, not by any cross-trigger lock.
type IngestUseCase struct {
	source  domrepo.PriceSource
	store   domrepo.RateStore
	cache   domrepo.RateCache
	metrics domrepo.Metrics
	l       *applogger.Logger
}

func NewIngestUseCase(
	source domrepo.PriceSource,
	store domrepo.RateStore,
	cache domrepo.RateCache,
	metrics domrepo.Metrics,
	l *applogger.Logger,
) *IngestUseCase {
	return &IngestUseCase{source: source, store: store, cache: cache, metrics: metrics, l: l}
}

// Run executes one ingestion pass. A failing pair is recorded and never
// aborts the batch; already-saved pairs are not rolled back.
func (uc *IngestUseCase) Run(ctx context.Context, params models.IngestParams) *models.RunSummary {
	start := time.Now()

	recordedAt := params.RequestedAt
	if recordedAt.IsZero() {
		recordedAt = time.Now()
	}
	recordedAt = recordedAt.UTC().Truncate(time.Second)

	pairs := params.Pairs
	if len(pairs) == 0 {
		pairs = models.AllPairs()
	}

	summary := &models.RunSummary{
		Failed: make(map[models.Pair]string),
	}

	// One shared batched fetch for the whole run.
	prices, err := uc.source.GetAllCurrentPrices(ctx)
	if err != nil {
		uc.metrics.RecordError("batch_fetch")
		for _, p := range pairs {
			summary.Failed[p] = err.Error()
		}
		summary.Duration = time.Since(start)
		uc.l.Error("ingestion batch fetch failed",
			applogger.Int("pairs", len(pairs)),
			applogger.Error(err),
		)
		return summary
	}

	for _, pair := range pairs {
		if err := uc.ingestPair(ctx, pair, prices, recordedAt, params.InvalidateCache); err != nil {
			summary.Failed[pair] = err.Error()
			uc.metrics.RecordError("ingest_pair")
			uc.l.Warn("pair ingestion failed",
				applogger.String("pair", string(pair)),
				applogger.Error(err),
			)
			continue
		}
		summary.Succeeded = append(summary.Succeeded, pair)
	}

	summary.Duration = time.Since(start)
	uc.metrics.RecordLatency("ingest_run", summary.Duration.Seconds())
	uc.l.Info("ingestion run complete",
		applogger.Int("succeeded", len(summary.Succeeded)),
		applogger.Int("failed", len(summary.Failed)),
		applogger.Duration("duration_ms", summary.Duration),
	)
	return summary
}

func (uc *IngestUseCase) ingestPair(
	ctx context.Context,
	pair models.Pair,
	prices map[models.Pair]decimal.Decimal,
	recordedAt time.Time,
	invalidate bool,
) error {
	// Cheap skip only; the unique constraint is the real dedup guard.
	exists, err := uc.store.ExistsForPairAndTime(ctx, pair, recordedAt)
	if err != nil {
		return fmt.Errorf("exists check: %w", err)
	}
	if exists {
		return nil
	}

	price, ok := prices[pair]
	if !ok {
		return fmt.Errorf("no price for %s in batch response", pair)
	}

	point := &models.PricePoint{
		Pair:       pair,
		Price:      price,
		RecordedAt: recordedAt,
		CreatedAt:  time.Now().UTC(),
	}
	if err := uc.store.Save(ctx, point); err != nil {
		return fmt.Errorf("persist point: %w", err)
	}

	uc.metrics.RecordPointIngested(string(pair))
	uc.metrics.RecordLastPrice(string(pair), price.InexactFloat64())

	if invalidate {
		uc.cache.Invalidate(ctx, pair)
	}
	return nil
}
