// Package cohort implements the peer-cohort analytics engine: resolving a
// company's industry cohort, normalizing heterogeneous metrics into
// comparable scores, and ranking companies within the cohort.
package cohort

// Grade alphabet, ascending. Scores are fixed by the rating provider's
// published scale and must stay stable across releases.
const (
	GradeD     = "D"
	GradeC     = "C"
	GradeB     = "B"
	GradeBPlus = "B+"
	GradeA     = "A"
	GradeAPlus = "A+"
	GradeS     = "S"
)

// tierKind selects how a TierRule reads its cut points.
type tierKind int

const (
	// tierAscending scores 3 at or above Good, 2 at or above Fair, else 1.
	tierAscending tierKind = iota
	// tierDescending scores 3 at or below Good, 2 at or below Fair, else 1.
	// Only the debt ratio uses this: lower leverage is better.
	tierDescending
	// tierPositive scores 3 when the value is strictly positive, else 1.
	// No middle tier.
	tierPositive
)

// TierRule maps a raw financial ratio onto the 1-3 tier scale.
type TierRule struct {
	kind tierKind
	good float64
	fair float64
}

// Tables holds the immutable scoring configuration injected into the Engine.
type Tables struct {
	Grades     map[string]int
	Tiers      map[string]TierRule
	Categories map[string][]string
}

// DefaultTables returns the production scoring tables. Threshold values
// mirror the rating methodology the stored data was built against.
func DefaultTables() Tables {
	return Tables{
		Grades: map[string]int{
			GradeD:     1,
			GradeC:     2,
			GradeB:     3,
			GradeBPlus: 4,
			GradeA:     5,
			GradeAPlus: 6,
			GradeS:     7,
		},
		Tiers: map[string]TierRule{
			"debt_ratio":              {kind: tierDescending, good: 100, fair: 200},
			"equity_ratio":            {kind: tierAscending, good: 50, fair: 30},
			"retained_earnings_ratio": {kind: tierAscending, good: 1000, fair: 500},
			"operating_margin":        {kind: tierAscending, good: 10, fair: 5},
			"roe":                     {kind: tierAscending, good: 15, fair: 7},
			"roa":                     {kind: tierAscending, good: 7, fair: 3},
			"revenue_growth":          {kind: tierAscending, good: 10, fair: 3},
			"profit_growth":           {kind: tierAscending, good: 10, fair: 3},
			"asset_growth":            {kind: tierAscending, good: 10, fair: 5},
			"eps":                     {kind: tierPositive},
			"fcf":                     {kind: tierPositive},
		},
		Categories: map[string][]string{
			"stability":     {"debt_ratio", "equity_ratio", "retained_earnings_ratio"},
			"profitability": {"operating_margin", "roe", "roa", "eps", "fcf"},
			"growth":        {"revenue_growth", "profit_growth", "asset_growth"},
		},
	}
}

// rankableMetrics lists every metric key percentile requests accept. It is a
// superset of the tier-scored keys: rankings on raw values also cover
// metrics that have no tier rule.
var rankableMetrics = map[string]bool{
	"debt_ratio":              true,
	"equity_ratio":            true,
	"retained_earnings_ratio": true,
	"operating_margin":        true,
	"net_margin":              true,
	"roe":                     true,
	"roa":                     true,
	"revenue_growth":          true,
	"profit_growth":           true,
	"asset_growth":            true,
	"eps":                     true,
	"fcf":                     true,
	"total_assets":            true,
	"operating_profit":        true,
}

// KnownMetric reports whether key is a recognized statement metric.
func KnownMetric(key string) bool { return rankableMetrics[key] }
