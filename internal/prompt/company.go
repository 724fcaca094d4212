package prompt

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/d00mkeeps/ibhackathon/internal/dataset"
	"github.com/d00mkeeps/ibhackathon/models"
)

const GeneralMode = "No specific company being analyzed - general investment discussion mode"

const dateLayout = "January 02, 2006 at 03:04 PM"

var timestampLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.999999999",
	"2006-01-02 15:04:05.999999999Z07:00",
	"2006-01-02 15:04:05.999999999",
	"2006-01-02",
}

// FormatAnalysisDate renders an ISO-8601 timestamp for humans. Unparseable
// input is returned unchanged.
func FormatAnalysisDate(raw string) string {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return "Unknown"
	}
	for _, layout := range timestampLayouts {
		if t, err := time.Parse(layout, raw); err == nil {
			return t.Format(dateLayout)
		}
	}
	return raw
}

// CompanyContext describes the company under analysis and, when matched, its
// dataset metrics grouped by category.
func CompanyContext(company *models.Company, match *models.DatasetRecord, datasetSize int) string {
	if company == nil {
		return GeneralMode
	}
	name := company.Name
	if strings.TrimSpace(name) == "" {
		name = "Unknown Company"
	}

	var b strings.Builder
	b.WriteString("CURRENT ANALYSIS TARGET:\n")
	fmt.Fprintf(&b, "- Company: %s\n", name)
	fmt.Fprintf(&b, "- Analysis initiated: %s\n", FormatAnalysisDate(company.CreatedAt))
	fmt.Fprintf(&b, "- Analysis ID: %s\n", company.ID)
	b.WriteString("- Focus: Investment potential and market analysis")
	if attrs := formatAttributes(company.Attributes); attrs != "" {
		fmt.Fprintf(&b, "\n- Notes: %s", attrs)
	}

	if match != nil {
		b.WriteString(datasetMetrics(match))
	} else {
		fmt.Fprintf(&b, "\n- Comparison Dataset: %s not found in the %d-company comparison dataset", name, datasetSize)
	}

	fmt.Fprintf(&b, "\n\nYou are specifically analyzing %s for investment purposes.\n", name)
	b.WriteString("All your responses should be relevant to this company unless the user explicitly asks about other topics.\n")
	b.WriteString("Use the full comparison dataset for comparative analysis and benchmarking.")
	return b.String()
}

func datasetMetrics(rec *models.DatasetRecord) string {
	grouped := make(map[dataset.Category][]string)
	if rec.Ticker != "" {
		grouped[dataset.CategoryBasics] = append(grouped[dataset.CategoryBasics], "Ticker: "+rec.Ticker)
	}
	for _, m := range dataset.Catalog {
		v, ok := rec.Metric(m.Key)
		if !ok {
			continue
		}
		grouped[m.Category] = append(grouped[m.Category], fmt.Sprintf("%s: %s", m.Label, m.Unit.Format(v)))
	}

	var b strings.Builder
	fmt.Fprintf(&b, "\n- Dataset Match: %s", rec.Name)
	for _, cat := range dataset.Categories {
		items := grouped[cat]
		if len(items) == 0 {
			continue
		}
		fmt.Fprintf(&b, "\n  • %s: %s", cat, strings.Join(items, ", "))
	}
	return b.String()
}

func formatAttributes(attrs map[string]any) string {
	if len(attrs) == 0 {
		return ""
	}
	keys := make([]string, 0, len(attrs))
	for k := range attrs {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, fmt.Sprintf("%s=%v", k, attrs[k]))
	}
	return strings.Join(parts, ", ")
}
