package binance

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/shopspring/decimal"

	"ratewatch/internal/domain/models"
	domrepo "ratewatch/internal/domain/repository"
	xhttp "ratewatch/pkg/http"
	applogger "ratewatch/pkg/logger"
)

const (
	tickerEndpoint = "/api/v3/ticker/price"
	pingEndpoint   = "/api/v3/ping"
)

// Client implements PriceSource against a Binance-style REST ticker API.
type Client struct {
	baseURL     string
	http        *xhttp.Client
	maxAttempts int
	backoff     time.Duration
	l           *applogger.Logger
}

// Option configures the client.
type Option func(*Client)

// WithRetry sets the attempt cap and the linear backoff base delay.
func WithRetry(maxAttempts int, backoff time.Duration) Option {
	return func(c *Client) {
		c.maxAttempts = maxAttempts
		c.backoff = backoff
	}
}

// WithLogger injects a structured logger.
func WithLogger(l *applogger.Logger) Option {
	return func(c *Client) {
		c.l = l
	}
}

// New creates a new Binance PriceSource client.
func New(baseURL string, timeout time.Duration, opts ...Option) *Client {
	c := &Client{
		baseURL:     baseURL,
		http:        xhttp.NewClient(xhttp.WithTimeout(timeout)),
		maxAttempts: 3,
		backoff:     time.Second,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

type tickerPayload struct {
	Symbol string `json:"symbol"`
	Price  string `json:"price"`
}

// GetCurrentPrice fetches the current price for one pair.
func (c *Client) GetCurrentPrice(ctx context.Context, pair models.Pair) (decimal.Decimal, error) {
	sym, ok := models.ProviderSymbol(pair)
	if !ok {
		return decimal.Zero, fmt.Errorf("%w: %s", ErrUnsupportedPair, pair)
	}

	body, err := c.fetchWithRetry(ctx, tickerEndpoint, map[string][]string{"symbol": {sym}})
	if err != nil {
		return decimal.Zero, err
	}

	var payload tickerPayload
	if err := json.Unmarshal(body, &payload); err != nil {
		return decimal.Zero, &DecodingError{Endpoint: tickerEndpoint, Err: err}
	}

	price, err := parsePrice(payload)
	if err != nil {
		return decimal.Zero, err
	}
	return price, nil
}

// GetAllCurrentPrices fetches prices for every supported pair in one
// batched request. Entries with a missing or invalid price are dropped;
// the call fails only when nothing usable remains.
func (c *Client) GetAllCurrentPrices(ctx context.Context) (map[models.Pair]decimal.Decimal, error) {
	pairs := models.AllPairs()
	symbols := make([]byte, 0, 64)
	symbols = append(symbols, '[')
	for i, p := range pairs {
		sym, _ := models.ProviderSymbol(p)
		if i > 0 {
			symbols = append(symbols, ',')
		}
		symbols = append(symbols, '"')
		symbols = append(symbols, sym...)
		symbols = append(symbols, '"')
	}
	symbols = append(symbols, ']')

	body, err := c.fetchWithRetry(ctx, tickerEndpoint, map[string][]string{"symbols": {string(symbols)}})
	if err != nil {
		return nil, err
	}

	var payloads []tickerPayload
	if err := json.Unmarshal(body, &payloads); err != nil {
		return nil, &DecodingError{Endpoint: tickerEndpoint, Err: err}
	}

	out := make(map[models.Pair]decimal.Decimal, len(payloads))
	for _, payload := range payloads {
		pair, ok := models.PairForProviderSymbol(payload.Symbol)
		if !ok {
			continue
		}
		price, err := parsePrice(payload)
		if err != nil {
			if c.l != nil {
				c.l.Warn("dropping invalid batch entry",
					applogger.String("symbol", payload.Symbol),
					applogger.Error(err),
				)
			}
			continue
		}
		out[pair] = price
	}

	if len(out) == 0 {
		return nil, &InvalidResponseError{Reason: "no valid prices in batch response"}
	}
	return out, nil
}

// IsAvailable probes the liveness endpoint with a single attempt.
func (c *Client) IsAvailable(ctx context.Context) bool {
	resp, err := c.http.SendRequest(ctx, &xhttp.RequestOptions{
		Method: xhttp.MethodGet,
		URL:    c.baseURL + pingEndpoint,
	})
	if err != nil {
		return false
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, resp.Body)
	return resp.StatusCode >= 200 && resp.StatusCode < 300
}

// fetchWithRetry issues the request, retrying only transport failures
// with a delay growing linearly in the attempt number. Protocol and
// decoding failures surface immediately.
func (c *Client) fetchWithRetry(ctx context.Context, endpoint string, query map[string][]string) ([]byte, error) {
	var lastErr error
	for attempt := 1; attempt <= c.maxAttempts; attempt++ {
		body, err := c.fetch(ctx, endpoint, query)
		if err == nil {
			return body, nil
		}

		var te *TransportError
		if !errors.As(err, &te) {
			return nil, err
		}
		lastErr = err

		if c.l != nil {
			c.l.Warn("transport failure, retrying",
				applogger.String("endpoint", endpoint),
				applogger.Int("attempt", attempt),
				applogger.Error(err),
			)
		}
		if attempt < c.maxAttempts {
			select {
			case <-time.After(time.Duration(attempt) * c.backoff):
			case <-ctx.Done():
				return nil, &TransportError{Endpoint: endpoint, Err: ctx.Err()}
			}
		}
	}
	return nil, &RetryExhaustedError{Endpoint: endpoint, Attempts: c.maxAttempts, Err: lastErr}
}

func (c *Client) fetch(ctx context.Context, endpoint string, query map[string][]string) ([]byte, error) {
	resp, err := c.http.SendRequest(ctx, &xhttp.RequestOptions{
		Method:      xhttp.MethodGet,
		URL:         c.baseURL + endpoint,
		QueryParams: query,
	})
	if err != nil {
		return nil, &TransportError{Endpoint: endpoint, Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil, &ProtocolError{Endpoint: endpoint, StatusCode: resp.StatusCode}
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &TransportError{Endpoint: endpoint, Err: err}
	}
	return body, nil
}

func parsePrice(payload tickerPayload) (decimal.Decimal, error) {
	if payload.Price == "" {
		return decimal.Zero, &InvalidResponseError{Symbol: payload.Symbol, Reason: "missing price"}
	}
	price, err := decimal.NewFromString(payload.Price)
	if err != nil {
		return decimal.Zero, &InvalidResponseError{Symbol: payload.Symbol, Reason: "malformed price"}
	}
	if !price.IsPositive() {
		return decimal.Zero, &InvalidResponseError{Symbol: payload.Symbol, Reason: "non-positive price"}
	}
	return price, nil
}

var _ domrepo.PriceSource = (*Client)(nil)
