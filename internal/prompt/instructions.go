package prompt

import (
	"fmt"
	"strings"

	"github.com/d00mkeeps/ibhackathon/models"
)

// AnalysisInstructions returns the task guidelines for the current mode.
func AnalysisInstructions(company *models.Company, datasetSize int) string {
	if company == nil {
		return fmt.Sprintf(`You are in general investment discussion mode with access to the full comparison dataset of %d companies.
Use this data for comparative analysis, benchmarking, ESG analysis, and providing comprehensive investment insights.`, datasetSize)
	}
	name := strings.TrimSpace(company.Name)
	if name == "" {
		name = "the company"
	}
	return fmt.Sprintf(`INVESTMENT ANALYSIS GUIDELINES for %[1]s:

1. COMPREHENSIVE ANALYSIS: Cover financial health, market position, competitive advantages, risks, and growth potential
2. ESG & SUSTAINABILITY: Analyze GHG emissions per revenue and social responsibility scores vs benchmarks
3. DATASET BENCHMARKING: Compare ALL metrics against the %[2]d-company dataset averages
4. PEER COMPARISON: Identify similar companies for comparative analysis including ESG performance
5. QUANTITATIVE INSIGHTS: Use specific metrics from the comparison dataset for data-driven recommendations
6. SUSTAINABILITY INTEGRATION: Consider ESG factors as key investment criteria alongside financial metrics
7. MARKET CONTEXT: Consider broader market conditions and sector trends using dataset insights
8. RISK ASSESSMENT: Include ESG risks alongside financial risks in your analysis
9. ACTIONABLE INSIGHTS: Provide clear investment recommendations with quantitative and ESG backing

You have access to the complete comparison dataset with ALL metrics including:
FINANCIAL: Stock performance, growth rates, margins, ROIC, Rule of 40
INVESTMENT: R&D intensity, CapEx intensity
SUSTAINABILITY: GHG emissions per revenue, social responsibility scores

Use ALL these metrics extensively for comprehensive investment analysis that includes ESG considerations.`, name, datasetSize)
}
