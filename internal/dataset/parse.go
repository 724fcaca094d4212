package dataset

import (
	"strings"

	"github.com/shopspring/decimal"

	"github.com/d00mkeeps/ibhackathon/models"
)

var absentMarkers = map[string]struct{}{
	"":        {},
	"n/a":     {},
	"na":      {},
	"#n/a":    {},
	"-":       {},
	"--":      {},
	"nan":     {},
	"null":    {},
	"none":    {},
	"#div/0!": {},
}

// ParseValue parses a stored metric value. Blank, placeholder and
// unparseable values are absent, never zero.
func ParseValue(raw string) decimal.NullDecimal {
	s := strings.TrimSpace(raw)
	if _, ok := absentMarkers[strings.ToLower(s)]; ok {
		return decimal.NullDecimal{}
	}
	s = strings.NewReplacer(",", "", "$", "", "%", "").Replace(s)
	d, err := decimal.NewFromString(strings.TrimSpace(s))
	if err != nil {
		return decimal.NullDecimal{}
	}
	return decimal.NullDecimal{Decimal: d, Valid: true}
}

// ParseRow converts a stored row into a record, keeping only catalog metrics.
func ParseRow(row models.DatasetRow) models.DatasetRecord {
	rec := models.DatasetRecord{
		Ticker:  strings.TrimSpace(row.Ticker),
		Name:    strings.TrimSpace(row.Name),
		Metrics: make(map[string]decimal.NullDecimal, len(Catalog)),
	}
	for _, m := range Catalog {
		raw, ok := row.Values[m.Key]
		if !ok {
			continue
		}
		if v := ParseValue(raw); v.Valid {
			rec.Metrics[m.Key] = v
		}
	}
	return rec
}
