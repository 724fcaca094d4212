package dataset

import (
	"sort"

	"github.com/shopspring/decimal"

	"github.com/d00mkeeps/ibhackathon/models"
)

var two = decimal.NewFromInt(2)

// Summarize computes per-metric statistics over records for every catalog
// metric. Statistics are rounded to two decimals.
func Summarize(records []models.DatasetRecord) models.DatasetSummary {
	summary := models.DatasetSummary{
		TotalCompanies: len(records),
		Metrics:        make(map[string]models.MetricStats, len(Catalog)),
	}
	for _, m := range Catalog {
		var values []decimal.Decimal
		for i := range records {
			if v, ok := records[i].Metric(m.Key); ok {
				values = append(values, v)
			}
		}
		summary.Metrics[m.Key] = stats(values)
	}
	return summary
}

func stats(values []decimal.Decimal) models.MetricStats {
	if len(values) == 0 {
		return models.MetricStats{}
	}
	sorted := make([]decimal.Decimal, len(values))
	copy(sorted, values)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].LessThan(sorted[j]) })

	n := len(sorted)
	mean := decimal.Sum(sorted[0], sorted[1:]...).Div(decimal.NewFromInt(int64(n)))
	median := sorted[n/2]
	if n%2 == 0 {
		median = sorted[n/2-1].Add(sorted[n/2]).Div(two)
	}

	return models.MetricStats{
		Mean:   valid(mean),
		Median: valid(median),
		Min:    valid(sorted[0]),
		Max:    valid(sorted[n-1]),
		Count:  n,
	}
}

func valid(d decimal.Decimal) decimal.NullDecimal {
	return decimal.NullDecimal{Decimal: d.Round(2), Valid: true}
}
