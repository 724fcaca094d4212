package prompt

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/cloudwego/eino/schema"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/d00mkeeps/ibhackathon/internal/dataset"
	"github.com/d00mkeeps/ibhackathon/models"
)

func testSnapshot() *dataset.Snapshot {
	rows := []models.DatasetRow{
		{Ticker: "ACME", Name: "Acme Corp", Values: map[string]string{
			dataset.KeyYTDReturn: "10", dataset.KeyMarketCap: "1000", dataset.KeyStockPrice: "12.5",
			dataset.KeyRuleOf40: "45",
		}},
		{Ticker: "GLBX", Name: "Globex", Values: map[string]string{
			dataset.KeyYTDReturn: "20", dataset.KeyMarketCap: "3000",
		}},
	}
	var recs []models.DatasetRecord
	for _, r := range rows {
		recs = append(recs, dataset.ParseRow(r))
	}
	return dataset.NewSnapshot(recs)
}

func TestFormatAnalysisDate(t *testing.T) {
	assert.Equal(t, "August 19, 2025 at 02:30 PM", FormatAnalysisDate("2025-08-19T14:30:00Z"))
	assert.Equal(t, "August 19, 2025 at 02:30 PM", FormatAnalysisDate("2025-08-19T14:30:00.123456+00:00"))
	assert.Equal(t, "yesterday", FormatAnalysisDate("yesterday"))
	assert.Equal(t, "Unknown", FormatAnalysisDate(""))
}

func TestCompanyContextMatched(t *testing.T) {
	snap := testSnapshot()
	company := &models.Company{ID: "c-1", Name: "Acme Corp", CreatedAt: "2025-08-19T14:30:00Z"}
	out := CompanyContext(company, snap.LookupByTicker("ACME"), snap.Len())

	assert.Contains(t, out, "- Company: Acme Corp")
	assert.Contains(t, out, "- Analysis initiated: August 19, 2025 at 02:30 PM")
	assert.Contains(t, out, "- Dataset Match: Acme Corp")
	assert.Contains(t, out, "• Basics: Ticker: ACME, Stock Price: $12.5, Market Cap: $1000M")
	assert.Contains(t, out, "• Performance: YTD Return: 10%")
	assert.Contains(t, out, "• Efficiency: Rule of 40: 45")
	assert.NotContains(t, out, "Investment:")
	assert.NotContains(t, out, "not found")
}

func TestCompanyContextUnmatched(t *testing.T) {
	company := &models.Company{ID: "c-2", Name: "Umbrella"}
	out := CompanyContext(company, nil, 170)
	assert.Contains(t, out, "Umbrella not found in the 170-company comparison dataset")
	assert.Contains(t, out, "- Analysis initiated: Unknown")
}

func TestCompanyContextGeneralMode(t *testing.T) {
	assert.Equal(t, GeneralMode, CompanyContext(nil, nil, 10))
}

func TestBenchmarkOmitsMetricsWithoutMean(t *testing.T) {
	lines := BenchmarkLines(testSnapshot())
	require.Len(t, lines, 3)
	assert.Equal(t, "• YTD Return: avg 15%, median 15%, range 10%-20%", lines[0])
	assert.Equal(t, "• Market Cap: avg $2000M, median $2000M, range $1000M-$3000M", lines[1])
	assert.Equal(t, "• Rule of 40: avg 45, median 45, range 45-45", lines[2])

	for _, l := range lines {
		assert.False(t, strings.Contains(l, "GHG"))
	}
}

func TestBenchmarkContext(t *testing.T) {
	out := BenchmarkContext(testSnapshot(), Provenance{Source: "Bloomberg terminal", AsOf: "Tuesday, 19 Aug 2025"})
	assert.Contains(t, out, "Total companies: 2")
	assert.Contains(t, out, "AVAILABLE COMPANIES: ACME, GLBX... (showing first 20 tickers)")
	assert.Contains(t, out, "Your data is from Bloomberg terminal and it was taken on Tuesday, 19 Aug 2025.")

	assert.Equal(t, DatasetUnavailable, BenchmarkContext(dataset.NewSnapshot(nil), Provenance{}))
	assert.Equal(t, DatasetUnavailable, BenchmarkContext(nil, Provenance{}))
}

func TestSearchContext(t *testing.T) {
	company := &models.Company{Name: "Acme Corp"}
	assert.Equal(t, NoSearchContext, SearchContext(nil, SearchResult{Snippet: "x"}))
	assert.Equal(t, NoSearchName, SearchContext(&models.Company{}, SearchResult{}))
	assert.Equal(t, "Search temporarily unavailable for Acme Corp",
		SearchContext(company, SearchResult{Err: errors.New("boom")}))
	assert.Equal(t, "Recent market information for Acme Corp:\nshares up",
		SearchContext(company, SearchResult{Snippet: "shares up"}))
	assert.Equal(t, "Recent market information for Acme Corp:\nshares up\nACME last 12.50 USD",
		SearchContext(company, SearchResult{Snippet: "shares up", Quote: "ACME last 12.50 USD"}))
	assert.Equal(t, "Acme Corp stock news earnings recent", SearchQuery(" Acme Corp "))
}

func TestAnalysisInstructions(t *testing.T) {
	general := AnalysisInstructions(nil, 170)
	assert.Contains(t, general, "general investment discussion mode")
	assert.Contains(t, general, "170 companies")

	specific := AnalysisInstructions(&models.Company{Name: "Acme Corp"}, 170)
	assert.Contains(t, specific, "INVESTMENT ANALYSIS GUIDELINES for Acme Corp")
	assert.Contains(t, specific, "9. ACTIONABLE INSIGHTS")
	assert.Contains(t, specific, "170-company")
}

func TestBuildOrdersMessages(t *testing.T) {
	b := NewBuilder("", Provenance{})
	history := []*schema.Message{
		schema.UserMessage("earlier question"),
		schema.AssistantMessage("earlier answer", nil),
	}
	msgs, err := b.Build(context.Background(), Input{
		Snapshot: testSnapshot(),
		History:  history,
		Message:  "what about {braces}?",
	})
	require.NoError(t, err)
	require.Len(t, msgs, 4)

	assert.Equal(t, schema.System, msgs[0].Role)
	assert.True(t, strings.HasPrefix(msgs[0].Content, "You are CARA"))
	assert.Contains(t, msgs[0].Content, "Company analysis context:\n"+GeneralMode)
	assert.Contains(t, msgs[0].Content, "Current market information:\n"+NoSearchContext)
	assert.Equal(t, "earlier question", msgs[1].Content)
	assert.Equal(t, schema.Assistant, msgs[2].Role)
	assert.Equal(t, schema.User, msgs[3].Role)
	assert.Equal(t, "what about {braces}?", msgs[3].Content)
}

func TestBuildWithoutHistory(t *testing.T) {
	msgs, err := NewBuilder("persona", Provenance{}).Build(context.Background(), Input{Message: "hi"})
	require.NoError(t, err)
	require.Len(t, msgs, 2)
	assert.True(t, strings.HasPrefix(msgs[0].Content, "persona\n\n"))
	assert.Contains(t, msgs[0].Content, DatasetUnavailable)
}
