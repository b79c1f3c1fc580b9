package repository

import (
	"context"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/shopspring/decimal"

	"ratewatch/internal/domain/models"
)

func newMockStore(t *testing.T) (*PostgresRateStore, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock new: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return NewPostgresRateStoreFromDB(sqlx.NewDb(db, "sqlmock")), mock
}

func TestSaveInsertsPoint(t *testing.T) {
	store, mock := newMockStore(t)

	recordedAt := time.Date(2026, 8, 26, 12, 0, 0, 0, time.UTC)
	mock.ExpectExec("INSERT INTO price_points").
		WithArgs("EUR/BTC", sqlmock.AnyArg(), recordedAt, sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(1, 1))

	err := store.Save(context.Background(), &models.PricePoint{
		Pair:       models.PairEURBTC,
		Price:      decimal.RequireFromString("45000"),
		RecordedAt: recordedAt,
	})
	if err != nil {
		t.Fatalf("save: %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations: %v", err)
	}
}

func TestSaveDuplicateIsSilentlySkipped(t *testing.T) {
	store, mock := newMockStore(t)

	// Conflict on (pair, recorded_at) affects zero rows and is not an error.
	mock.ExpectExec("INSERT INTO price_points").
		WillReturnResult(sqlmock.NewResult(0, 0))

	err := store.Save(context.Background(), &models.PricePoint{
		Pair:       models.PairUSDBTC,
		Price:      decimal.RequireFromString("45000"),
		RecordedAt: time.Now().UTC(),
	})
	if err != nil {
		t.Fatalf("duplicate save should not error: %v", err)
	}
}

func TestSaveNilPoint(t *testing.T) {
	store, _ := newMockStore(t)
	if err := store.Save(context.Background(), nil); err == nil {
		t.Fatal("expected error for nil point")
	}
}

func TestExistsForPairAndTime(t *testing.T) {
	store, mock := newMockStore(t)

	at := time.Date(2026, 8, 26, 12, 0, 0, 0, time.UTC)
	mock.ExpectQuery("SELECT EXISTS").
		WithArgs("EUR/BTC", at).
		WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(true))

	exists, err := store.ExistsForPairAndTime(context.Background(), models.PairEURBTC, at)
	if err != nil {
		t.Fatalf("exists: %v", err)
	}
	if !exists {
		t.Fatal("expected exists=true")
	}
}

func TestFindRangeOrdersAscending(t *testing.T) {
	store, mock := newMockStore(t)

	from := time.Date(2026, 8, 25, 0, 0, 0, 0, time.UTC)
	to := from.Add(24 * time.Hour)

	rows := sqlmock.NewRows([]string{"pair", "price", "recorded_at", "created_at"}).
		AddRow("EUR/BTC", "45000", from.Add(time.Hour), from.Add(time.Hour)).
		AddRow("EUR/BTC", "46000", from.Add(2*time.Hour), from.Add(2*time.Hour))
	mock.ExpectQuery("SELECT pair, price, recorded_at, created_at").
		WithArgs("EUR/BTC", from, to).
		WillReturnRows(rows)

	points, err := store.FindRange(context.Background(), models.PairEURBTC, from, to)
	if err != nil {
		t.Fatalf("find range: %v", err)
	}
	if len(points) != 2 {
		t.Fatalf("expected 2 points, got %d", len(points))
	}
	if !points[0].RecordedAt.Before(points[1].RecordedAt) {
		t.Fatal("points out of order")
	}
	if points[0].Pair != models.PairEURBTC {
		t.Fatalf("unexpected pair %s", points[0].Pair)
	}
}

func TestFindLatestNoRows(t *testing.T) {
	store, mock := newMockStore(t)

	mock.ExpectQuery("SELECT pair, price, recorded_at, created_at").
		WithArgs("CZK/BTC").
		WillReturnRows(sqlmock.NewRows([]string{"pair", "price", "recorded_at", "created_at"}))

	latest, err := store.FindLatest(context.Background(), models.PairCZKBTC)
	if err != nil {
		t.Fatalf("find latest: %v", err)
	}
	if latest != nil {
		t.Fatal("expected nil for empty table")
	}
}

func TestComputeStatistics(t *testing.T) {
	store, mock := newMockStore(t)

	from := time.Date(2026, 8, 25, 0, 0, 0, 0, time.UTC)
	to := from.Add(24 * time.Hour)

	mock.ExpectQuery("SELECT COUNT").
		WithArgs("EUR/BTC", from, to).
		WillReturnRows(sqlmock.NewRows([]string{"count", "min", "max", "avg"}).
			AddRow(3, "44000", "46000", "45000"))

	st, err := store.ComputeStatistics(context.Background(), models.PairEURBTC, from, to)
	if err != nil {
		t.Fatalf("compute statistics: %v", err)
	}
	if st.Count != 3 {
		t.Fatalf("expected count 3, got %d", st.Count)
	}
	if st.MinPrice.String() != "44000" || st.MaxPrice.String() != "46000" {
		t.Fatalf("unexpected min/max: %s/%s", st.MinPrice, st.MaxPrice)
	}
}

func TestDeleteOlderThan(t *testing.T) {
	store, mock := newMockStore(t)

	cutoff := time.Date(2025, 8, 26, 0, 0, 0, 0, time.UTC)
	mock.ExpectExec("DELETE FROM price_points").
		WithArgs(cutoff).
		WillReturnResult(sqlmock.NewResult(0, 42))

	deleted, err := store.DeleteOlderThan(context.Background(), cutoff)
	if err != nil {
		t.Fatalf("delete older than: %v", err)
	}
	if deleted != 42 {
		t.Fatalf("expected 42 deleted, got %d", deleted)
	}
}
