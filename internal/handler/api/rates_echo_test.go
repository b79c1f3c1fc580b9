package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"ratewatch/internal/domain/models"
	icache "ratewatch/internal/service/cache"
	"ratewatch/internal/usecase"
	pkgcache "ratewatch/pkg/cache"
	applogger "ratewatch/pkg/logger"
)

type stubSource struct {
	prices map[models.Pair]decimal.Decimal
	up     bool
}

func (s *stubSource) GetCurrentPrice(_ context.Context, pair models.Pair) (decimal.Decimal, error) {
	return s.prices[pair], nil
}

func (s *stubSource) GetAllCurrentPrices(context.Context) (map[models.Pair]decimal.Decimal, error) {
	if len(s.prices) == 0 {
		return nil, errors.New("provider down")
	}
	return s.prices, nil
}

func (s *stubSource) IsAvailable(context.Context) bool { return s.up }

type stubStore struct {
	points    []models.PricePoint
	healthErr error
}

func (s *stubStore) Save(_ context.Context, p *models.PricePoint) error {
	s.points = append(s.points, *p)
	return nil
}

func (s *stubStore) ExistsForPairAndTime(context.Context, models.Pair, time.Time) (bool, error) {
	return false, nil
}

func (s *stubStore) FindRange(_ context.Context, pair models.Pair, from, to time.Time) ([]models.PricePoint, error) {
	out := make([]models.PricePoint, 0, len(s.points))
	for _, p := range s.points {
		if p.Pair == pair && !p.RecordedAt.Before(from) && !p.RecordedAt.After(to) {
			out = append(out, p)
		}
	}
	return out, nil
}

func (s *stubStore) FindLatest(_ context.Context, pair models.Pair) (*models.PricePoint, error) {
	var latest *models.PricePoint
	for i := range s.points {
		p := &s.points[i]
		if p.Pair != pair {
			continue
		}
		if latest == nil || p.RecordedAt.After(latest.RecordedAt) {
			latest = p
		}
	}
	return latest, nil
}

func (s *stubStore) ComputeStatistics(ctx context.Context, pair models.Pair, from, to time.Time) (*models.StoreStatistics, error) {
	points, _ := s.FindRange(ctx, pair, from, to)
	st := &models.StoreStatistics{Count: int64(len(points))}
	for i, p := range points {
		if i == 0 || p.Price.LessThan(st.MinPrice) {
			st.MinPrice = p.Price
		}
		if i == 0 || p.Price.GreaterThan(st.MaxPrice) {
			st.MaxPrice = p.Price
		}
		st.AvgPrice = st.AvgPrice.Add(p.Price)
	}
	if st.Count > 0 {
		st.AvgPrice = st.AvgPrice.Div(decimal.NewFromInt(st.Count))
	}
	return st, nil
}

func (s *stubStore) DeleteOlderThan(context.Context, time.Time) (int64, error) { return 0, nil }
func (s *stubStore) Health(context.Context) error                              { return s.healthErr }
func (s *stubStore) Close() error                                              { return nil }

func newTestServer(t *testing.T, store *stubStore, source *stubSource) *echo.Echo {
	return newTestServerWithLimit(t, store, source, TriggerLimit{})
}

func newTestServerWithLimit(t *testing.T, store *stubStore, source *stubSource, limit TriggerLimit) *echo.Echo {
	t.Helper()

	l, err := applogger.New(&applogger.Config{Level: "error", Format: "json", Output: "stderr"})
	require.NoError(t, err)

	backend := pkgcache.NewMemoryCache()
	t.Cleanup(func() { backend.Close() })

	rc := icache.NewRateCache(backend, icache.DefaultTTLConfig(), nil, nil)
	query := usecase.NewQueryUseCase(store, rc, 10*time.Minute, l)
	ingest := usecase.NewIngestUseCase(source, store, rc, noopMetrics{}, l)

	e := echo.New()
	NewRatesEchoHandler(l, query, ingest, store, source, backend, limit).RegisterRoutes(e)
	return e
}

type noopMetrics struct{}

func (noopMetrics) RecordPointIngested(string)      {}
func (noopMetrics) RecordError(string)              {}
func (noopMetrics) RecordLastPrice(string, float64) {}
func (noopMetrics) RecordLatency(string, float64)   {}
func (noopMetrics) RecordCacheHit(string)           {}
func (noopMetrics) RecordCacheMiss(string)          {}

func doRequest(e *echo.Echo, method, target, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, target, strings.NewReader(body))
	if body != "" {
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	}
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	return rec
}

func seedStore(store *stubStore) {
	now := time.Now().UTC()
	store.points = []models.PricePoint{
		{Pair: models.PairEURBTC, Price: decimal.RequireFromString("45000"), RecordedAt: now.Add(-2 * time.Hour)},
		{Pair: models.PairEURBTC, Price: decimal.RequireFromString("46000"), RecordedAt: now.Add(-time.Hour)},
	}
}

func TestRecentEndpoint(t *testing.T) {
	store := &stubStore{}
	seedStore(store)
	e := newTestServer(t, store, &stubSource{up: true})

	rec := doRequest(e, http.MethodGet, "/api/rates/EUR-BTC/recent", "")
	require.Equal(t, http.StatusOK, rec.Code)

	var resp struct {
		Data models.WindowPayload `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.Equal(t, "EUR/BTC", resp.Data.Pair)
	require.Equal(t, 2, resp.Data.Count)
	require.Equal(t, "1000.00000000", resp.Data.Statistics.PriceChange)
	require.Equal(t, "2.22", resp.Data.Statistics.PriceChangePercent)
}

func TestRecentEndpointUnsupportedPair(t *testing.T) {
	e := newTestServer(t, &stubStore{}, &stubSource{up: true})

	rec := doRequest(e, http.MethodGet, "/api/rates/XRP-BTC/recent", "")
	require.Contains(t, rec.Body.String(), "ERR_UNSUPPORTED_PAIR")
}

func TestRecentEndpointNoData(t *testing.T) {
	e := newTestServer(t, &stubStore{}, &stubSource{up: true})

	rec := doRequest(e, http.MethodGet, "/api/rates/EUR-BTC/recent", "")
	require.Contains(t, rec.Body.String(), "ERR_NO_DATA")
}

func TestDayEndpointRejectsMalformedAndFutureDates(t *testing.T) {
	e := newTestServer(t, &stubStore{}, &stubSource{up: true})

	rec := doRequest(e, http.MethodGet, "/api/rates/EUR-BTC/day/not-a-date", "")
	require.Equal(t, http.StatusOK, rec.Code) // envelope carries the status
	require.Contains(t, rec.Body.String(), "ERR_")

	future := time.Now().UTC().Add(72 * time.Hour).Format("2006-01-02")
	rec = doRequest(e, http.MethodGet, "/api/rates/EUR-BTC/day/"+future, "")
	require.Contains(t, rec.Body.String(), "future")
}

func TestSnapshotEndpoint(t *testing.T) {
	store := &stubStore{}
	seedStore(store)
	e := newTestServer(t, store, &stubSource{up: true})

	rec := doRequest(e, http.MethodGet, "/api/rates/snapshot", "")
	require.Equal(t, http.StatusOK, rec.Code)

	var resp struct {
		Data map[string]string `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.Len(t, resp.Data, 1)
	require.Contains(t, resp.Data, "EUR/BTC")
}

func TestIngestEndpoint(t *testing.T) {
	store := &stubStore{}
	source := &stubSource{
		up: true,
		prices: map[models.Pair]decimal.Decimal{
			models.PairEURBTC: decimal.RequireFromString("45000"),
			models.PairUSDBTC: decimal.RequireFromString("48000"),
			models.PairCZKBTC: decimal.RequireFromString("1100000"),
		},
	}
	e := newTestServer(t, store, source)

	rec := doRequest(e, http.MethodPost, "/api/ingest", `{"pairs":["EUR/BTC"]}`)
	require.Equal(t, http.StatusOK, rec.Code)

	var resp struct {
		Data models.IngestSummaryPayload `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.Equal(t, []string{"EUR/BTC"}, resp.Data.Succeeded)
	require.Empty(t, resp.Data.Failed)
	require.Len(t, store.points, 1)
}

func TestIngestEndpointHonorsConfiguredTriggerLimit(t *testing.T) {
	source := &stubSource{
		up: true,
		prices: map[models.Pair]decimal.Decimal{
			models.PairEURBTC: decimal.RequireFromString("45000"),
		},
	}
	e := newTestServerWithLimit(t, &stubStore{}, source, TriggerLimit{Burst: 2, RefillPerSec: 0.001})

	for i := 0; i < 2; i++ {
		rec := doRequest(e, http.MethodPost, "/api/ingest", `{"pairs":["EUR/BTC"]}`)
		require.Equal(t, http.StatusOK, rec.Code)
	}
	rec := doRequest(e, http.MethodPost, "/api/ingest", `{"pairs":["EUR/BTC"]}`)
	require.Equal(t, http.StatusTooManyRequests, rec.Code)
}

func TestIngestEndpointRejectsUnknownPair(t *testing.T) {
	e := newTestServer(t, &stubStore{}, &stubSource{up: true})

	rec := doRequest(e, http.MethodPost, "/api/ingest", `{"pairs":["XRP/BTC"]}`)
	require.Contains(t, rec.Body.String(), "ERR_UNSUPPORTED_PAIR")
}

func TestHealthEndpoint(t *testing.T) {
	store := &stubStore{}
	e := newTestServer(t, store, &stubSource{up: true})

	rec := doRequest(e, http.MethodGet, "/health", "")
	require.Equal(t, http.StatusOK, rec.Code)
	require.Contains(t, rec.Body.String(), `"healthy":true`)
}

func TestHealthEndpointDegraded(t *testing.T) {
	store := &stubStore{healthErr: errors.New("connection refused")}
	e := newTestServer(t, store, &stubSource{up: false})

	rec := doRequest(e, http.MethodGet, "/health", "")
	require.Equal(t, http.StatusServiceUnavailable, rec.Code)
	require.Contains(t, rec.Body.String(), `"healthy":false`)
}
