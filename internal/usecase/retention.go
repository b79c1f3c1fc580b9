package usecase

import (
	"context"
	"fmt"
	"time"

	domrepo "ratewatch/internal/domain/repository"
	applogger "ratewatch/pkg/logger"
)

// RetentionUseCase deletes points older than the configured age. Not on
// the hot path; scheduled off the main ingestion cadence.
type RetentionUseCase struct {
	store   domrepo.RateStore
	maxAge  time.Duration
	metrics domrepo.Metrics
	l       *applogger.Logger
}

func NewRetentionUseCase(store domrepo.RateStore, maxAge time.Duration, metrics domrepo.Metrics, l *applogger.Logger) *RetentionUseCase {
	return &RetentionUseCase{store: store, maxAge: maxAge, metrics: metrics, l: l}
}

// Run removes points recorded before now minus the retention age and
// returns the number deleted.
func (uc *RetentionUseCase) Run(ctx context.Context) (int64, error) {
	cutoff := time.Now().UTC().Add(-uc.maxAge)
	start := time.Now()

	deleted, err := uc.store.DeleteOlderThan(ctx, cutoff)
	if err != nil {
		uc.metrics.RecordError("retention")
		return 0, fmt.Errorf("retention sweep: %w", err)
	}

	uc.metrics.RecordLatency("retention_sweep", time.Since(start).Seconds())
	uc.l.Info("retention sweep complete",
		applogger.Int64("deleted", deleted),
		applogger.String("cutoff", cutoff.Format(time.RFC3339)),
	)
	return deleted, nil
}
