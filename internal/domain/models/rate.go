package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// PricePoint is one immutable price observation for a pair.
// At most one point may exist per (pair, recorded_at); the store
// enforces this with a unique constraint.
type PricePoint struct {
	Pair       Pair
	Price      decimal.Decimal
	RecordedAt time.Time
	CreatedAt  time.Time
}

// AggregateStatistics summarizes an ascending-ordered set of points.
// Derived on read, never persisted.
type AggregateStatistics struct {
	MinPrice           decimal.Decimal
	MaxPrice           decimal.Decimal
	AvgPrice           decimal.Decimal
	TotalRecords       int64
	PriceChange        decimal.Decimal
	PriceChangePercent decimal.Decimal
}

// StoreStatistics carries the aggregate values the store computes
// push-down (min/max/avg/count) without loading every point.
type StoreStatistics struct {
	MinPrice decimal.Decimal
	MaxPrice decimal.Decimal
	AvgPrice decimal.Decimal
	Count    int64
}

// RateWindow is the success payload of a range query.
type RateWindow struct {
	Pair       Pair
	From       time.Time
	To         time.Time
	Points     []PricePoint
	Statistics AggregateStatistics
}

// WindowResult is the tagged outcome of a range query. An empty range
// is a normal outcome (NoData=true), not an error.
type WindowResult struct {
	NoData bool
	Window *RateWindow
}

// Snapshot maps each pair with data to its latest recorded time.
// Pairs with no points are simply absent.
type Snapshot map[Pair]time.Time

// RunSummary describes a single ingestion run.
type RunSummary struct {
	Succeeded []Pair
	Failed    map[Pair]string
	Duration  time.Duration
}

// IngestParams parameterizes one ingestion run.
type IngestParams struct {
	Pairs           []Pair // empty means all supported pairs
	InvalidateCache bool
	RequestedAt     time.Time // zero means now
}
