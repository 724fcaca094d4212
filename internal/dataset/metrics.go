package dataset

import "github.com/shopspring/decimal"

// Unit decides how a metric value is rendered.
type Unit string

const (
	UnitDollars  Unit = "$"
	UnitMillions Unit = "$M"
	UnitPercent  Unit = "%"
	UnitScore    Unit = "score"
	UnitRatio    Unit = "ratio"
)

// Format renders d with the unit applied.
func (u Unit) Format(d decimal.Decimal) string {
	s := d.String()
	switch u {
	case UnitDollars:
		return "$" + s
	case UnitMillions:
		return "$" + s + "M"
	case UnitPercent:
		return s + "%"
	default:
		return s
	}
}

type Category string

const (
	CategoryBasics         Category = "Basics"
	CategoryPerformance    Category = "Performance"
	CategoryEfficiency     Category = "Efficiency"
	CategoryInvestment     Category = "Investment"
	CategorySustainability Category = "Sustainability/ESG"
)

// Categories in display order.
var Categories = []Category{
	CategoryBasics,
	CategoryPerformance,
	CategoryEfficiency,
	CategoryInvestment,
	CategorySustainability,
}

type Metric struct {
	Key      string
	Label    string
	Unit     Unit
	Category Category
}

const (
	KeyTicker               = "stock_ticker"
	KeyCompanyName          = "company_name"
	KeyStockPrice           = "current_stock_price"
	KeyMarketCap            = "market_cap_millions"
	KeyAnnualRevenue        = "annual_revenue_millions"
	KeyYTDReturn            = "ytd_return_percent"
	KeySalesYoYGrowth       = "sales_yoy_growth_percent"
	KeyRevenue5YGrowth      = "revenue_5yr_growth_rate"
	KeyProjected3YGrowth    = "projected_3yr_sales_growth"
	KeyEBITDAMargin         = "ebitda_margin_percent"
	KeyROIC                 = "return_on_invested_capital"
	KeyRuleOf40             = "rule_of_40_score"
	KeyRDIntensity          = "rd_intensity_percent"
	KeyCapexIntensity       = "capex_intensity_ratio"
	KeyGHGPerRevenue        = "ghg_emissions_per_revenue"
	KeySocialResponsibility = "social_responsibility_score"
)

// Catalog lists every numeric metric in company-context display order.
var Catalog = []Metric{
	{KeyStockPrice, "Stock Price", UnitDollars, CategoryBasics},
	{KeyMarketCap, "Market Cap", UnitMillions, CategoryBasics},
	{KeyAnnualRevenue, "Annual Revenue", UnitMillions, CategoryBasics},
	{KeyYTDReturn, "YTD Return", UnitPercent, CategoryPerformance},
	{KeySalesYoYGrowth, "Sales YoY Growth", UnitPercent, CategoryPerformance},
	{KeyRevenue5YGrowth, "5Y Revenue Growth", UnitPercent, CategoryPerformance},
	{KeyProjected3YGrowth, "Projected 3Y Growth", UnitPercent, CategoryPerformance},
	{KeyEBITDAMargin, "EBITDA Margin", UnitPercent, CategoryEfficiency},
	{KeyROIC, "ROIC", UnitPercent, CategoryEfficiency},
	{KeyRuleOf40, "Rule of 40", UnitScore, CategoryEfficiency},
	{KeyRDIntensity, "R&D Intensity", UnitPercent, CategoryInvestment},
	{KeyCapexIntensity, "CapEx Intensity", UnitRatio, CategoryInvestment},
	{KeyGHGPerRevenue, "GHG Emissions/Revenue", UnitRatio, CategorySustainability},
	{KeySocialResponsibility, "Social Responsibility Score", UnitScore, CategorySustainability},
}

// BenchmarkKeys is the fixed order of the benchmark block.
var BenchmarkKeys = []string{
	KeyYTDReturn,
	KeyMarketCap,
	KeyAnnualRevenue,
	KeyEBITDAMargin,
	KeyROIC,
	KeyRevenue5YGrowth,
	KeySalesYoYGrowth,
	KeyProjected3YGrowth,
	KeyRuleOf40,
	KeyRDIntensity,
	KeyCapexIntensity,
	KeyGHGPerRevenue,
	KeySocialResponsibility,
}

var metricByKey = func() map[string]Metric {
	m := make(map[string]Metric, len(Catalog))
	for _, metric := range Catalog {
		m[metric.Key] = metric
	}
	return m
}()

// Lookup returns the catalog entry for key.
func Lookup(key string) (Metric, bool) {
	m, ok := metricByKey[key]
	return m, ok
}
