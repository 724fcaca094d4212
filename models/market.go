package models

import "github.com/shopspring/decimal"

// DatasetRow is a raw comparison-dataset row as stored. Values are kept as
// text keyed by metric key and parsed on load.
type DatasetRow struct {
	Ticker string
	Name   string
	Values map[string]string
}

// DatasetRecord is a parsed row. A metric missing from Metrics, or present
// but not Valid, is absent.
type DatasetRecord struct {
	Ticker  string
	Name    string
	Metrics map[string]decimal.NullDecimal
}

// Metric returns the value for key and whether it is present.
func (r *DatasetRecord) Metric(key string) (decimal.Decimal, bool) {
	if r == nil {
		return decimal.Decimal{}, false
	}
	v, ok := r.Metrics[key]
	if !ok || !v.Valid {
		return decimal.Decimal{}, false
	}
	return v.Decimal, true
}

// MetricStats summarises one metric. Every statistic is null when Count is 0.
type MetricStats struct {
	Mean   decimal.NullDecimal `json:"mean"`
	Median decimal.NullDecimal `json:"median"`
	Min    decimal.NullDecimal `json:"min"`
	Max    decimal.NullDecimal `json:"max"`
	Count  int                 `json:"count"`
}

type DatasetSummary struct {
	TotalCompanies int                    `json:"total_companies"`
	Metrics        map[string]MetricStats `json:"metrics"`
}
