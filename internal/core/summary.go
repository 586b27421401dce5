package core

import (
	"cloud.google.com/go/civil"
	"github.com/montanaflynn/stats"
	"github.com/shopspring/decimal"

	"github.com/JonMunkholm/pima/internal/ingest"
)

// Summarize totals quantity and value across records and averages their age
// in days as of today. An empty inventory summarizes to zeros.
func Summarize(records []ingest.Record, today civil.Date) Summary {
	sum := Summary{TotalInventoryValue: decimal.Zero}
	if len(records) == 0 {
		return sum
	}

	ages := make(stats.Float64Data, 0, len(records))
	for _, r := range records {
		sum.TotalProducts += r.Quantity
		sum.TotalInventoryValue = sum.TotalInventoryValue.Add(r.UnitPrice.Mul(decimal.NewFromInt(r.Quantity)))
		ages = append(ages, float64(today.DaysSince(r.PurchaseDate)))
	}

	if mean, err := ages.Mean(); err == nil {
		sum.AverageStockAge = mean
	}
	return sum
}
