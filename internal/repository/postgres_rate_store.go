package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"ratewatch/internal/domain/models"
	domrepo "ratewatch/internal/domain/repository"
	applogger "ratewatch/pkg/logger"
	pkgpg "ratewatch/pkg/postgres"
)

// Schema returns the idempotent DDL for the price point store. The unique
// constraint on (pair, recorded_at) is the dedup guard; Save relies on it
// rather than on a check-then-insert sequence.
func Schema() []string {
	return []string{
		`CREATE TABLE IF NOT EXISTS price_points (
			id BIGSERIAL PRIMARY KEY,
			pair TEXT NOT NULL,
			price NUMERIC(24,8) NOT NULL,
			recorded_at TIMESTAMPTZ NOT NULL,
			created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
			CONSTRAINT price_points_pair_recorded_at_key UNIQUE (pair, recorded_at)
		)`,
		`CREATE INDEX IF NOT EXISTS idx_price_points_recorded_at ON price_points (recorded_at)`,
	}
}

// PostgresRateStore implements RateStore backed by Postgres.
type PostgresRateStore struct {
	db *sqlx.DB
	l  *applogger.Logger
}

func NewPostgresRateStore(pg *pkgpg.Client) *PostgresRateStore {
	return &PostgresRateStore{db: pg.DB()}
}

// NewPostgresRateStoreFromDB builds a store around an existing handle; used by tests.
func NewPostgresRateStoreFromDB(db *sqlx.DB) *PostgresRateStore {
	return &PostgresRateStore{db: db}
}

// SetLogger injects a structured logger.
func (s *PostgresRateStore) SetLogger(l *applogger.Logger) { s.l = l }

func (s *PostgresRateStore) Save(ctx context.Context, p *models.PricePoint) error {
	if p == nil {
		return fmt.Errorf("price point is nil")
	}
	const q = `
        INSERT INTO price_points (pair, price, recorded_at, created_at)
        VALUES ($1, $2, $3, $4)
        ON CONFLICT (pair, recorded_at) DO NOTHING
    `
	createdAt := p.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now().UTC()
	}
	res, err := s.db.ExecContext(ctx, q, string(p.Pair), p.Price, p.RecordedAt.UTC(), createdAt)
	if err != nil {
		if s.l != nil {
			s.l.Error("postgres save error",
				applogger.String("pair", string(p.Pair)),
				applogger.Error(err),
			)
		}
		return fmt.Errorf("save point: %w", err)
	}
	if s.l != nil {
		inserted, _ := res.RowsAffected()
		if inserted == 0 {
			s.l.Debug("duplicate point skipped",
				applogger.String("pair", string(p.Pair)),
				applogger.Int64("recorded_at", p.RecordedAt.Unix()),
			)
		}
	}
	return nil
}

func (s *PostgresRateStore) ExistsForPairAndTime(ctx context.Context, pair models.Pair, at time.Time) (bool, error) {
	const q = `SELECT EXISTS (SELECT 1 FROM price_points WHERE pair = $1 AND recorded_at = $2)`
	var exists bool
	if err := s.db.QueryRowContext(ctx, q, string(pair), at.UTC()).Scan(&exists); err != nil {
		return false, fmt.Errorf("exists check: %w", err)
	}
	return exists, nil
}

func (s *PostgresRateStore) FindRange(ctx context.Context, pair models.Pair, from, to time.Time) ([]models.PricePoint, error) {
	start := time.Now()
	const q = `
        SELECT pair, price, recorded_at, created_at
        FROM price_points
        WHERE pair = $1 AND recorded_at >= $2 AND recorded_at <= $3
        ORDER BY recorded_at ASC
    `
	rows, err := s.db.QueryContext(ctx, q, string(pair), from.UTC(), to.UTC())
	if err != nil {
		if s.l != nil {
			s.l.Error("postgres find_range query error",
				applogger.String("pair", string(pair)),
				applogger.Error(err),
			)
		}
		return nil, fmt.Errorf("find range: %w", err)
	}
	defer rows.Close()

	out := make([]models.PricePoint, 0, 256)
	for rows.Next() {
		var p models.PricePoint
		var pairName string
		if err := rows.Scan(&pairName, &p.Price, &p.RecordedAt, &p.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan point: %w", err)
		}
		p.Pair = models.Pair(pairName)
		out = append(out, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows: %w", err)
	}
	if s.l != nil {
		s.l.Debug("postgres find_range ok",
			applogger.String("pair", string(pair)),
			applogger.Int("rows", len(out)),
			applogger.Duration("duration_ms", time.Since(start)),
		)
	}
	return out, nil
}

func (s *PostgresRateStore) FindLatest(ctx context.Context, pair models.Pair) (*models.PricePoint, error) {
	const q = `
        SELECT pair, price, recorded_at, created_at
        FROM price_points
        WHERE pair = $1
        ORDER BY recorded_at DESC
        LIMIT 1
    `
	var p models.PricePoint
	var pairName string
	err := s.db.QueryRowContext(ctx, q, string(pair)).Scan(&pairName, &p.Price, &p.RecordedAt, &p.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("find latest: %w", err)
	}
	p.Pair = models.Pair(pairName)
	return &p, nil
}

func (s *PostgresRateStore) ComputeStatistics(ctx context.Context, pair models.Pair, from, to time.Time) (*models.StoreStatistics, error) {
	// Aggregated server-side so wide ranges never load every point.
	const q = `
        SELECT COUNT(*),
               COALESCE(MIN(price), 0),
               COALESCE(MAX(price), 0),
               COALESCE(AVG(price), 0)
        FROM price_points
        WHERE pair = $1 AND recorded_at >= $2 AND recorded_at <= $3
    `
	var st models.StoreStatistics
	err := s.db.QueryRowContext(ctx, q, string(pair), from.UTC(), to.UTC()).
		Scan(&st.Count, &st.MinPrice, &st.MaxPrice, &st.AvgPrice)
	if err != nil {
		if s.l != nil {
			s.l.Error("postgres compute_statistics error",
				applogger.String("pair", string(pair)),
				applogger.Error(err),
			)
		}
		return nil, fmt.Errorf("compute statistics: %w", err)
	}
	return &st, nil
}

func (s *PostgresRateStore) DeleteOlderThan(ctx context.Context, cutoff time.Time) (int64, error) {
	const q = `DELETE FROM price_points WHERE recorded_at < $1`
	res, err := s.db.ExecContext(ctx, q, cutoff.UTC())
	if err != nil {
		return 0, fmt.Errorf("delete older than: %w", err)
	}
	deleted, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("rows affected: %w", err)
	}
	if s.l != nil && deleted > 0 {
		s.l.Info("retention sweep",
			applogger.Int64("deleted", deleted),
			applogger.String("cutoff", cutoff.UTC().Format(time.RFC3339)),
		)
	}
	return deleted, nil
}

func (s *PostgresRateStore) Health(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

func (s *PostgresRateStore) Close() error {
	return nil // pool managed by pkg/postgres client
}

var _ domrepo.RateStore = (*PostgresRateStore)(nil)
