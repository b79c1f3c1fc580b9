package binance

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"ratewatch/internal/domain/models"
)

func newTestClient(url string) *Client {
	return New(url, 2*time.Second, WithRetry(3, time.Millisecond))
}

func TestGetCurrentPrice(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, tickerEndpoint, r.URL.Path)
		require.Equal(t, "BTCEUR", r.URL.Query().Get("symbol"))
		fmt.Fprint(w, `{"symbol":"BTCEUR","price":"45000.50"}`)
	}))
	defer srv.Close()

	price, err := newTestClient(srv.URL).GetCurrentPrice(context.Background(), models.PairEURBTC)
	require.NoError(t, err)
	require.Equal(t, "45000.5", price.String())
}

func TestGetCurrentPriceUnsupportedPair(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
	}))
	defer srv.Close()

	_, err := newTestClient(srv.URL).GetCurrentPrice(context.Background(), models.Pair("JPY/BTC"))
	require.ErrorIs(t, err, ErrUnsupportedPair)
	require.Zero(t, atomic.LoadInt32(&calls), "unsupported pair must not hit the network")
}

func TestRetrySucceedsAfterTransportFailures(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if atomic.AddInt32(&calls, 1) < 3 {
			// Drop the connection mid-request to force a transport error.
			conn, _, err := w.(http.Hijacker).Hijack()
			require.NoError(t, err)
			conn.Close()
			return
		}
		fmt.Fprint(w, `{"symbol":"BTCEUR","price":"45000"}`)
	}))
	defer srv.Close()

	price, err := newTestClient(srv.URL).GetCurrentPrice(context.Background(), models.PairEURBTC)
	require.NoError(t, err)
	require.Equal(t, "45000", price.String())
	require.Equal(t, int32(3), atomic.LoadInt32(&calls))
}

func TestRetryExhausted(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		conn, _, err := w.(http.Hijacker).Hijack()
		require.NoError(t, err)
		conn.Close()
	}))
	defer srv.Close()

	_, err := newTestClient(srv.URL).GetCurrentPrice(context.Background(), models.PairEURBTC)

	var re *RetryExhaustedError
	require.ErrorAs(t, err, &re)
	require.Equal(t, 3, re.Attempts)
	require.Equal(t, int32(3), atomic.LoadInt32(&calls))
}

func TestProtocolErrorIsNotRetried(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		w.WriteHeader(http.StatusTeapot)
	}))
	defer srv.Close()

	_, err := newTestClient(srv.URL).GetCurrentPrice(context.Background(), models.PairEURBTC)

	var pe *ProtocolError
	require.ErrorAs(t, err, &pe)
	require.Equal(t, http.StatusTeapot, pe.StatusCode)
	require.Equal(t, int32(1), atomic.LoadInt32(&calls), "non-2xx must not be retried")
}

func TestDecodingErrorIsNotRetried(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		fmt.Fprint(w, `{not json`)
	}))
	defer srv.Close()

	_, err := newTestClient(srv.URL).GetCurrentPrice(context.Background(), models.PairEURBTC)

	var de *DecodingError
	require.ErrorAs(t, err, &de)
	require.Equal(t, int32(1), atomic.LoadInt32(&calls))
}

func TestInvalidPriceRejected(t *testing.T) {
	for _, body := range []string{
		`{"symbol":"BTCEUR"}`,
		`{"symbol":"BTCEUR","price":"abc"}`,
		`{"symbol":"BTCEUR","price":"-1"}`,
		`{"symbol":"BTCEUR","price":"0"}`,
	} {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			fmt.Fprint(w, body)
		}))

		_, err := newTestClient(srv.URL).GetCurrentPrice(context.Background(), models.PairEURBTC)
		srv.Close()

		var ie *InvalidResponseError
		if !errors.As(err, &ie) {
			t.Fatalf("body %s: expected InvalidResponseError, got %v", body, err)
		}
	}
}

func TestGetAllCurrentPrices(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, `["BTCEUR","BTCUSD","BTCCZK"]`, r.URL.Query().Get("symbols"))
		fmt.Fprint(w, `[
			{"symbol":"BTCEUR","price":"45000"},
			{"symbol":"BTCUSD","price":"48000"},
			{"symbol":"BTCCZK","price":"1100000"}
		]`)
	}))
	defer srv.Close()

	prices, err := newTestClient(srv.URL).GetAllCurrentPrices(context.Background())
	require.NoError(t, err)
	require.Len(t, prices, 3)
	require.Equal(t, "48000", prices[models.PairUSDBTC].String())
}

func TestGetAllCurrentPricesDropsInvalidEntries(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `[
			{"symbol":"BTCEUR","price":"45000"},
			{"symbol":"BTCUSD","price":"bogus"},
			{"symbol":"BTCXYZ","price":"1"}
		]`)
	}))
	defer srv.Close()

	prices, err := newTestClient(srv.URL).GetAllCurrentPrices(context.Background())
	require.NoError(t, err)
	require.Len(t, prices, 1)
	require.Contains(t, prices, models.PairEURBTC)
}

func TestGetAllCurrentPricesEmptyBatch(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `[]`)
	}))
	defer srv.Close()

	_, err := newTestClient(srv.URL).GetAllCurrentPrices(context.Background())

	var ie *InvalidResponseError
	require.ErrorAs(t, err, &ie)
}

func TestIsAvailable(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, pingEndpoint, r.URL.Path)
		fmt.Fprint(w, `{}`)
	}))
	defer srv.Close()

	c := newTestClient(srv.URL)
	require.True(t, c.IsAvailable(context.Background()))

	srv.Close()
	require.False(t, c.IsAvailable(context.Background()))
}
