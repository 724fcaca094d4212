package dataset

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/d00mkeeps/ibhackathon/models"
)

var headerAliases = map[string]string{
	"ticker":  KeyTicker,
	"symbol":  KeyTicker,
	"name":    KeyCompanyName,
	"company": KeyCompanyName,
}

// ReadCSV reads a header-driven dataset export. A company_name column is
// required; stock_ticker and any metric columns are optional.
func ReadCSV(r io.Reader) ([]models.DatasetRow, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1
	reader.TrimLeadingSpace = true

	header, err := reader.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return nil, fmt.Errorf("csv is empty")
		}
		return nil, fmt.Errorf("read csv header: %w", err)
	}

	columns := make([]string, len(header))
	nameCol, tickerCol := -1, -1
	for i, h := range header {
		key := normalizeHeader(h)
		columns[i] = key
		switch key {
		case KeyCompanyName:
			nameCol = i
		case KeyTicker:
			tickerCol = i
		}
	}
	if nameCol < 0 {
		return nil, fmt.Errorf("csv has no %s column", KeyCompanyName)
	}

	var rows []models.DatasetRow
	for line := 2; ; line++ {
		record, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read csv line %d: %w", line, err)
		}
		name := field(record, nameCol)
		if name == "" {
			continue
		}
		row := models.DatasetRow{
			Ticker: field(record, tickerCol),
			Name:   name,
			Values: make(map[string]string),
		}
		for i, key := range columns {
			if i == nameCol || i == tickerCol || key == "" {
				continue
			}
			if _, ok := Lookup(key); ok {
				row.Values[key] = field(record, i)
			}
		}
		rows = append(rows, row)
	}
	return rows, nil
}

func normalizeHeader(h string) string {
	key := strings.ToLower(strings.TrimSpace(strings.TrimPrefix(h, "\uFEFF")))
	key = strings.Join(strings.Fields(key), "_")
	if alias, ok := headerAliases[key]; ok {
		return alias
	}
	return key
}

func field(record []string, i int) string {
	if i < 0 || i >= len(record) {
		return ""
	}
	return strings.TrimSpace(record[i])
}
