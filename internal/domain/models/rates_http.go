package models

import (
	"fmt"
	"time"
)

// Requests and responses for the rates HTTP endpoints. Defined in domain for consistency and reuse.

type RecentWindowRequest struct {
	Pair  string `param:"pair" json:"pair" validate:"required"`
	Hours int    `query:"hours" json:"hours" default:"24" validate:"gte=1,lte=168"`
}

type PeriodRequest struct {
	Pair string `param:"pair" json:"pair" validate:"required"`
	Date string `param:"date" json:"date" validate:"required,datetime=2006-01-02"`
}

type IngestRequest struct {
	Pairs           []string `json:"pairs"`
	InvalidateCache *bool    `json:"invalidate_cache"`
	RequestedAt     string   `json:"requested_at"`
}

// RateEntry is one serialized point in a window response.
type RateEntry struct {
	Price      string `json:"price"`
	RecordedAt string `json:"recorded_at"`
	Timestamp  int64  `json:"timestamp"`
}

// StatisticsPayload serializes aggregate statistics with fixed-scale strings:
// prices at 8 decimals, the percent change at 2.
type StatisticsPayload struct {
	MinPrice           string `json:"min_price"`
	MaxPrice           string `json:"max_price"`
	AvgPrice           string `json:"avg_price"`
	PriceChange        string `json:"price_change"`
	PriceChangePercent string `json:"price_change_percent"`
	TotalRecords       int64  `json:"total_records"`
}

// WindowPayload is the serialized shape of a non-empty range query.
type WindowPayload struct {
	Pair            string            `json:"pair"`
	RequestedPeriod string            `json:"requested_period"`
	Statistics      StatisticsPayload `json:"statistics"`
	Rates           []RateEntry       `json:"rates"`
	GeneratedAt     string            `json:"generated_at"`
	Count           int               `json:"count"`
}

// SnapshotPayload maps pair names to their latest recorded time (ISO-8601).
type SnapshotPayload map[string]string

// IngestSummaryPayload serializes a RunSummary.
type IngestSummaryPayload struct {
	Succeeded  []string          `json:"succeeded"`
	Failed     map[string]string `json:"failed,omitempty"`
	DurationMs int64             `json:"duration_ms"`
}

// Payload serializes a window with fixed-scale price strings.
func (w *RateWindow) Payload(generatedAt time.Time) WindowPayload {
	rates := make([]RateEntry, len(w.Points))
	for i, p := range w.Points {
		rates[i] = RateEntry{
			Price:      p.Price.StringFixed(8),
			RecordedAt: p.RecordedAt.UTC().Format(time.RFC3339),
			Timestamp:  p.RecordedAt.Unix(),
		}
	}
	return WindowPayload{
		Pair: string(w.Pair),
		RequestedPeriod: fmt.Sprintf("%s - %s",
			w.From.UTC().Format(time.RFC3339), w.To.UTC().Format(time.RFC3339)),
		Statistics: StatisticsPayload{
			MinPrice:           w.Statistics.MinPrice.StringFixed(8),
			MaxPrice:           w.Statistics.MaxPrice.StringFixed(8),
			AvgPrice:           w.Statistics.AvgPrice.StringFixed(8),
			PriceChange:        w.Statistics.PriceChange.StringFixed(8),
			PriceChangePercent: w.Statistics.PriceChangePercent.StringFixed(2),
			TotalRecords:       w.Statistics.TotalRecords,
		},
		Rates:       rates,
		GeneratedAt: generatedAt.UTC().Format(time.RFC3339),
		Count:       len(rates),
	}
}

// Payload serializes a snapshot with ISO-8601 timestamps.
func (s Snapshot) Payload() SnapshotPayload {
	out := make(SnapshotPayload, len(s))
	for pair, at := range s {
		out[string(pair)] = at.UTC().Format(time.RFC3339)
	}
	return out
}

// Payload serializes a run summary.
func (s *RunSummary) Payload() IngestSummaryPayload {
	succeeded := make([]string, len(s.Succeeded))
	for i, p := range s.Succeeded {
		succeeded[i] = string(p)
	}
	var failed map[string]string
	if len(s.Failed) > 0 {
		failed = make(map[string]string, len(s.Failed))
		for p, reason := range s.Failed {
			failed[string(p)] = reason
		}
	}
	return IngestSummaryPayload{
		Succeeded:  succeeded,
		Failed:     failed,
		DurationMs: s.Duration.Milliseconds(),
	}
}
