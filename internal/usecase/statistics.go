package usecase

import (
	"github.com/shopspring/decimal"

	"ratewatch/internal/domain/models"
)

var oneHundred = decimal.NewFromInt(100)

// BuildStatistics merges the store's push-down aggregates with the
// change figures derived from the first and last points by recorded
// time. Points must already be ordered ascending by recorded_at.
func BuildStatistics(st *models.StoreStatistics, points []models.PricePoint) models.AggregateStatistics {
	out := models.AggregateStatistics{
		MinPrice:     st.MinPrice,
		MaxPrice:     st.MaxPrice,
		AvgPrice:     st.AvgPrice,
		TotalRecords: st.Count,
	}
	if len(points) == 0 {
		return out
	}

	first := points[0].Price
	last := points[len(points)-1].Price
	out.PriceChange = last.Sub(first)
	if first.IsZero() {
		out.PriceChangePercent = decimal.Zero
	} else {
		out.PriceChangePercent = out.PriceChange.Div(first).Mul(oneHundred)
	}
	return out
}
