// Package model defines the persisted record shapes served by the analytics
// and drafting APIs. Company name is the primary key everywhere; no numeric
// IDs exist in the source data.
package model

import (
	"math"
	"time"
)

// Classification maps a company to its industry cohort. At most one record
// exists per company; the industry code defines cohort membership.
type Classification struct {
	Company      string `json:"company"`
	IndustryCode string `json:"industry_code"`
	IndustryName string `json:"industry_name"`
}

// Statement holds one fiscal year of financial metrics for a company.
// Every metric is optional: a nil pointer means "no value", which is never
// the same as zero. Non-finite values are normalized to nil at the store
// read boundary.
type Statement struct {
	Company string `json:"company"`
	Year    int    `json:"year"`

	DebtRatio             *float64 `json:"debt_ratio"`
	EquityRatio           *float64 `json:"equity_ratio"`
	RetainedEarningsRatio *float64 `json:"retained_earnings_ratio"`
	OperatingMargin       *float64 `json:"operating_margin"`
	NetMargin             *float64 `json:"net_margin"`
	ROE                   *float64 `json:"roe"`
	ROA                   *float64 `json:"roa"`
	RevenueGrowth         *float64 `json:"revenue_growth"`
	ProfitGrowth          *float64 `json:"profit_growth"`
	AssetGrowth           *float64 `json:"asset_growth"`
	EPS                   *float64 `json:"eps"`
	FCF                   *float64 `json:"fcf"`
	TotalAssets           *float64 `json:"total_assets"`
	OperatingProfit       *float64 `json:"operating_profit"`
}

// Metric returns the named metric value, or nil when absent or the key is
// unknown. Keys are the wire-level metric names (see cohort.Metrics).
func (s *Statement) Metric(key string) *float64 {
	switch key {
	case "debt_ratio":
		return s.DebtRatio
	case "equity_ratio":
		return s.EquityRatio
	case "retained_earnings_ratio":
		return s.RetainedEarningsRatio
	case "operating_margin":
		return s.OperatingMargin
	case "net_margin":
		return s.NetMargin
	case "roe":
		return s.ROE
	case "roa":
		return s.ROA
	case "revenue_growth":
		return s.RevenueGrowth
	case "profit_growth":
		return s.ProfitGrowth
	case "asset_growth":
		return s.AssetGrowth
	case "eps":
		return s.EPS
	case "fcf":
		return s.FCF
	case "total_assets":
		return s.TotalAssets
	case "operating_profit":
		return s.OperatingProfit
	}
	return nil
}

// ESGRating holds one year of letter grades for a company. Grades come from
// the ordered alphabet D < C < B < B+ < A < A+ < S; empty string means
// unrated.
type ESGRating struct {
	Company       string `json:"company"`
	Year          int    `json:"year"`
	Overall       string `json:"overall"`
	Environmental string `json:"environmental"`
	Social        string `json:"social"`
	Governance    string `json:"governance"`
}

// Grade returns the named grade field. Unknown field names return "".
func (r *ESGRating) Grade(field string) string {
	switch field {
	case "overall":
		return r.Overall
	case "environmental":
		return r.Environmental
	case "social":
		return r.Social
	case "governance":
		return r.Governance
	}
	return ""
}

// BoardStat holds one year of board-composition and ownership figures.
type BoardStat struct {
	Company                 string   `json:"company"`
	Year                    int      `json:"year"`
	OutsideDirectorRatio    *float64 `json:"outside_director_ratio"`
	FemaleDirectorRatio     *float64 `json:"female_director_ratio"`
	LargestShareholderStake *float64 `json:"largest_shareholder_stake"`
}

// EnvironmentStat holds one year of environmental intensity figures.
type EnvironmentStat struct {
	Company          string   `json:"company"`
	Year             int      `json:"year"`
	InvestmentRatio  *float64 `json:"investment_ratio"`
	GHGPerRevenue    *float64 `json:"ghg_per_revenue"`
	EnergyPerRevenue *float64 `json:"energy_per_revenue"`
}

// RiskStat holds one year of risk-adjusted return figures.
type RiskStat struct {
	Company          string   `json:"company"`
	Year             int      `json:"year"`
	SharpeRatio      *float64 `json:"sharpe_ratio"`
	MDD              *float64 `json:"mdd"`
	ExcessVsIndex    *float64 `json:"excess_vs_index"`
	ExcessVsIndustry *float64 `json:"excess_vs_industry"`
}

// StockSnapshot holds the latest stored valuation figures for a company.
// Refreshed externally; one row per company.
type StockSnapshot struct {
	Company       string   `json:"company"`
	PER           *float64 `json:"per"`
	PBR           *float64 `json:"pbr"`
	DividendYield *float64 `json:"dividend_yield"`
	EPS           *float64 `json:"eps"`
	BPS           *float64 `json:"bps"`
}

// Draft is a saved report section draft, keyed by (topic, company).
type Draft struct {
	Topic     string    `json:"topic"`
	Company   string    `json:"company"`
	Body      string    `json:"draft"`
	UpdatedAt time.Time `json:"updated_at"`
}

// GuideChunk is one retrieved passage of the reporting manual for a topic.
type GuideChunk struct {
	Topic   string `json:"topic"`
	ChunkID string `json:"chunk_id"`
	Content string `json:"content"`
	Pages   []int  `json:"pages"`
}

// GuideTable is an extracted manual table tied to a page.
type GuideTable struct {
	Page  int    `json:"page"`
	Index int    `json:"index"`
	HTML  string `json:"html"`
	Text  string `json:"text"`
}

// User is an authenticated account with a favorites list.
type User struct {
	ID           string   `json:"id"`
	Email        string   `json:"email"`
	PasswordHash string   `json:"-"`
	Favorites    []string `json:"favorites"`
}

// CleanFloat returns nil when v is nil or non-finite, otherwise v. Applied
// at the store read boundary so NaN/Inf never reach scoring or JSON.
func CleanFloat(v *float64) *float64 {
	if v == nil || math.IsNaN(*v) || math.IsInf(*v, 0) {
		return nil
	}
	return v
}

// Float is a convenience constructor for optional metric values.
func Float(v float64) *float64 { return &v }
