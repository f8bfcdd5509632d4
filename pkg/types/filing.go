// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package types

// RawFilingRef points at the raw registry payloads for one account and run
// date. The payloads themselves stay in the object store.
type RawFilingRef struct {
	CIK  string `json:"cik" yaml:"cik"`
	Name string `json:"name" yaml:"name"`

	// Date is the run's logical date (YYYY-MM-DD) used in the keys.
	Date string `json:"date" yaml:"date"`

	SubmissionsKey string `json:"submissions_key" yaml:"submissions_key"`
	FactsKey       string `json:"facts_key" yaml:"facts_key"`
}

// FeatureRecord holds the KPIs derived from one account's raw filings.
// Field order is the serialization order and must stay stable: prompts,
// briefs and byte-level determinism checks depend on it. Pointer fields are
// null when the source data does not support a value.
type FeatureRecord struct {
	CIK  string `json:"cik" yaml:"cik"`
	Name string `json:"name" yaml:"name"`

	// Period labels the latest annual period, e.g. "FY2023". Empty when no
	// annual revenue was found.
	Period string `json:"period" yaml:"period"`

	// PeriodEnd is the end date (YYYY-MM-DD) of the latest annual period.
	PeriodEnd *string `json:"period_end" yaml:"period_end"`

	// FiscalYearEnd is the registry's MMDD fiscal year end.
	FiscalYearEnd *string `json:"fiscal_year_end" yaml:"fiscal_year_end"`

	// RevenueTag is the us-gaap tag the latest revenue came from.
	RevenueTag *string `json:"revenue_tag" yaml:"revenue_tag"`

	LatestAnnualRevenue *float64 `json:"latest_annual_revenue" yaml:"latest_annual_revenue"`
	PriorAnnualRevenue  *float64 `json:"prior_annual_revenue" yaml:"prior_annual_revenue"`
	YoYRevenueGrowthPct *float64 `json:"yoy_revenue_growth_pct" yaml:"yoy_revenue_growth_pct"`

	SalesMarketingExpense      *float64 `json:"sales_marketing_expense" yaml:"sales_marketing_expense"`
	SalesMarketingPctOfRevenue *float64 `json:"sales_marketing_pct_of_revenue" yaml:"sales_marketing_pct_of_revenue"`

	Industry *string `json:"industry" yaml:"industry"`

	// DataSource is the EDGAR browse URL for the filer.
	DataSource string `json:"data_source" yaml:"data_source"`
}
