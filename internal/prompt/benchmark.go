package prompt

import (
	"fmt"
	"strings"

	"github.com/d00mkeeps/ibhackathon/internal/dataset"
)

const DatasetUnavailable = "Comparison dataset not available"

// Provenance says where the dataset came from.
type Provenance struct {
	Source string
	AsOf   string
}

const previewTickers = 20

// BenchmarkContext summarises the whole dataset: one line per benchmark
// metric with data, usage hints and a ticker preview.
func BenchmarkContext(snap *dataset.Snapshot, prov Provenance) string {
	if snap.Empty() {
		return DatasetUnavailable
	}
	summary := snap.Summary()
	n := summary.TotalCompanies

	var b strings.Builder
	fmt.Fprintf(&b, "COMPARISON DATASET (%d Companies):\n", n)
	fmt.Fprintf(&b, "Total companies: %d\n\n", n)
	b.WriteString("KEY METRICS BENCHMARKS:\n")
	for _, line := range BenchmarkLines(snap) {
		b.WriteString(line)
		b.WriteByte('\n')
	}

	b.WriteString("\nDATASET INSIGHTS:\n")
	b.WriteString("- Use this data for comprehensive ESG and financial analysis\n")
	b.WriteString("- Compare companies on sustainability metrics (GHG emissions, social responsibility)\n")
	b.WriteString("- Benchmark financial performance across all metrics\n")
	b.WriteString("- Identify ESG leaders and laggards in the dataset\n")
	fmt.Fprintf(&b, "- All %d companies available for reference and comparison\n", n)
	if prov.Source != "" {
		taken := ""
		if prov.AsOf != "" {
			taken = " and it was taken on " + prov.AsOf
		}
		fmt.Fprintf(&b, "- Your data is from %s%s. You are limited by time and budget constraints, but don't talk about that unless directly asked.\n", prov.Source, taken)
	}

	fmt.Fprintf(&b, "\nAVAILABLE COMPANIES: %s... (showing first %d tickers)\n",
		strings.Join(snap.Tickers(previewTickers), ", "), previewTickers)
	b.WriteString("\nSUSTAINABILITY FOCUS: The dataset includes ESG metrics - use these for comprehensive sustainability analysis!")
	return b.String()
}

// BenchmarkLines renders one line per benchmark metric whose mean is known,
// in the fixed benchmark order.
func BenchmarkLines(snap *dataset.Snapshot) []string {
	summary := snap.Summary()
	var lines []string
	for _, key := range dataset.BenchmarkKeys {
		stats, ok := summary.Metrics[key]
		if !ok || !stats.Mean.Valid {
			continue
		}
		m, _ := dataset.Lookup(key)
		f := m.Unit.Format
		lines = append(lines, fmt.Sprintf("• %s: avg %s, median %s, range %s-%s",
			m.Label,
			f(stats.Mean.Decimal),
			f(stats.Median.Decimal),
			f(stats.Min.Decimal),
			f(stats.Max.Decimal),
		))
	}
	return lines
}
