package binance

import (
	"errors"
	"fmt"
)

// ErrUnsupportedPair is returned before any network call when a pair has
// no provider symbol mapping.
var ErrUnsupportedPair = errors.New("binance: unsupported pair")

// TransportError is a connectivity-level failure. Retryable.
type TransportError struct {
	Endpoint string
	Err      error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("binance: transport failure on %s: %v", e.Endpoint, e.Err)
}

func (e *TransportError) Unwrap() error { return e.Err }

// ProtocolError is a non-2xx HTTP response. Never retried.
type ProtocolError struct {
	Endpoint   string
	StatusCode int
}

func (e *ProtocolError) Error() string {
	return fmt.Sprintf("binance: unexpected status %d from %s", e.StatusCode, e.Endpoint)
}

// DecodingError is a malformed payload. Never retried.
type DecodingError struct {
	Endpoint string
	Err      error
}

func (e *DecodingError) Error() string {
	return fmt.Sprintf("binance: decode response from %s: %v", e.Endpoint, e.Err)
}

func (e *DecodingError) Unwrap() error { return e.Err }

// InvalidResponseError is a well-formed payload with a missing or
// non-positive price.
type InvalidResponseError struct {
	Symbol string
	Reason string
}

func (e *InvalidResponseError) Error() string {
	if e.Symbol == "" {
		return fmt.Sprintf("binance: invalid response: %s", e.Reason)
	}
	return fmt.Sprintf("binance: invalid response for %s: %s", e.Symbol, e.Reason)
}

// RetryExhaustedError is the terminal failure after all transport retries.
type RetryExhaustedError struct {
	Endpoint string
	Attempts int
	Err      error
}

func (e *RetryExhaustedError) Error() string {
	return fmt.Sprintf("binance: %s failed after %d attempts: %v", e.Endpoint, e.Attempts, e.Err)
}

func (e *RetryExhaustedError) Unwrap() error { return e.Err }
