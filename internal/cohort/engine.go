package cohort

import (
	"context"

	"github.com/sells-group/esg-insight/internal/apperr"
	"github.com/sells-group/esg-insight/internal/model"
)

// Reader is the read-only record access the engine needs. The production
// implementation is internal/store; tests supply an in-memory fake.
type Reader interface {
	GetClassification(ctx context.Context, company string) (*model.Classification, error)
	ListClassifications(ctx context.Context, industryCode string) ([]model.Classification, error)
	GetLatestStatement(ctx context.Context, company string) (*model.Statement, error)
	ListLatestStatements(ctx context.Context, companies []string) ([]model.Statement, error)
	// ListStatements returns every yearly statement for the named companies;
	// a nil slice selects all companies.
	ListStatements(ctx context.Context, companies []string) ([]model.Statement, error)
}

// Cohort is the resolved peer set for a company. Members always include the
// target itself; callers decide whether to exclude it.
type Cohort struct {
	IndustryCode string
	IndustryName string
	Members      []string
}

// Engine composes the cohort resolver, metric normalizer, and ranking logic
// over an injected store handle and immutable scoring tables. Every call is
// a pure function of the store snapshot it reads.
type Engine struct {
	store  Reader
	tables Tables
}

// NewEngine builds an Engine. Tables are copied by value and never mutated.
func NewEngine(store Reader, tables Tables) *Engine {
	return &Engine{store: store, tables: tables}
}

// Tables exposes the engine's scoring tables for handlers that score
// individual records (ESG trends, screening).
func (e *Engine) Tables() Tables { return e.tables }

// Resolve finds the company's industry classification and its peer set.
func (e *Engine) Resolve(ctx context.Context, company string) (*Cohort, error) {
	cls, err := e.store.GetClassification(ctx, company)
	if err != nil {
		return nil, apperr.Upstream(err, "cohort: load classification")
	}
	if cls == nil || cls.IndustryCode == "" || cls.IndustryName == "" {
		return nil, apperr.NotFoundf("classification missing for %q", company)
	}

	peers, err := e.store.ListClassifications(ctx, cls.IndustryCode)
	if err != nil {
		return nil, apperr.Upstream(err, "cohort: list peers")
	}

	members := make([]string, 0, len(peers))
	for _, p := range peers {
		members = append(members, p.Company)
	}
	return &Cohort{
		IndustryCode: cls.IndustryCode,
		IndustryName: cls.IndustryName,
		Members:      members,
	}, nil
}

// MetricRanking is the percentile-by-metric response payload.
type MetricRanking struct {
	Company    string  `json:"company_name"`
	Metric     string  `json:"metric"`
	Value      float64 `json:"value"`
	Rank       int     `json:"rank"`
	Total      int     `json:"total"`
	Percentile float64 `json:"percentile"`
}

// MetricPercentile ranks the company within its cohort by the raw value of
// one metric from each peer's latest statement.
func (e *Engine) MetricPercentile(ctx context.Context, company, metric string) (*MetricRanking, error) {
	if !KnownMetric(metric) {
		return nil, apperr.InvalidArgumentf("unknown metric %q", metric)
	}

	cohort, err := e.Resolve(ctx, company)
	if err != nil {
		return nil, err
	}

	stmts, err := e.store.ListLatestStatements(ctx, cohort.Members)
	if err != nil {
		return nil, apperr.Upstream(err, "cohort: list peer statements")
	}

	scores := make([]Score, 0, len(stmts))
	for i := range stmts {
		scores = append(scores, Score{
			Company: stmts[i].Company,
			Value:   model.CleanFloat(stmts[i].Metric(metric)),
		})
	}

	target, err := e.store.GetLatestStatement(ctx, company)
	if err != nil {
		return nil, apperr.Upstream(err, "cohort: load target statement")
	}
	if target == nil || model.CleanFloat(target.Metric(metric)) == nil {
		return nil, apperr.NotFoundf("no %s value for %q", metric, company)
	}

	ranking, err := Rank(scores, company)
	if err != nil {
		return nil, err
	}
	return &MetricRanking{
		Company:    company,
		Metric:     metric,
		Value:      ranking.Value,
		Rank:       ranking.Rank,
		Total:      ranking.Total,
		Percentile: ranking.Percentile,
	}, nil
}

// CategoryRanking is the percentile-by-category response payload.
type CategoryRanking struct {
	Company       string  `json:"company_name"`
	Category      string  `json:"category"`
	Score         float64 `json:"score"`
	Rank          int     `json:"rank"`
	Total         int     `json:"total"`
	AvgPercentile float64 `json:"avg_percentile"`
}

// CategoryPercentile ranks the company within its cohort by composite tier
// score over the named category's metrics.
func (e *Engine) CategoryPercentile(ctx context.Context, company, category string) (*CategoryRanking, error) {
	if !e.tables.KnownCategory(category) {
		return nil, apperr.InvalidArgumentf("unknown category %q", category)
	}

	cohort, err := e.Resolve(ctx, company)
	if err != nil {
		return nil, err
	}

	stmts, err := e.store.ListLatestStatements(ctx, cohort.Members)
	if err != nil {
		return nil, apperr.Upstream(err, "cohort: list peer statements")
	}

	scores := make([]Score, 0, len(stmts))
	var targetScore *float64
	for i := range stmts {
		score := e.tables.CategoryScore(&stmts[i], category)
		scores = append(scores, Score{Company: stmts[i].Company, Value: score})
		if stmts[i].Company == company {
			targetScore = score
		}
	}
	if targetScore == nil {
		return nil, apperr.NotFoundf("no scorable %s metrics for %q", category, company)
	}

	ranking, err := Rank(scores, company)
	if err != nil {
		return nil, err
	}
	return &CategoryRanking{
		Company:       company,
		Category:      category,
		Score:         ranking.Value,
		Rank:          ranking.Rank,
		Total:         ranking.Total,
		AvgPercentile: ranking.Percentile,
	}, nil
}

// IndustrySeries is the industry-average-by-metric response payload.
type IndustrySeries struct {
	IndustryName string        `json:"industry_name"`
	Data         []YearAverage `json:"data"`
}

// IndustryAverage computes the per-year cohort mean of one metric's raw
// values, ascending by year.
func (e *Engine) IndustryAverage(ctx context.Context, company, metric string) (*IndustrySeries, error) {
	if !KnownMetric(metric) {
		return nil, apperr.InvalidArgumentf("unknown metric %q", metric)
	}

	cohort, err := e.Resolve(ctx, company)
	if err != nil {
		return nil, err
	}

	stmts, err := e.store.ListStatements(ctx, cohort.Members)
	if err != nil {
		return nil, apperr.Upstream(err, "cohort: list peer statements")
	}

	byYear := make(map[int][]*float64)
	for i := range stmts {
		byYear[stmts[i].Year] = append(byYear[stmts[i].Year], stmts[i].Metric(metric))
	}
	return &IndustrySeries{
		IndustryName: cohort.IndustryName,
		Data:         AverageByYear(byYear),
	}, nil
}

// MarketAverage computes the per-year mean of one metric across every stored
// company, ascending by year. An empty series is ErrNotFound.
func (e *Engine) MarketAverage(ctx context.Context, metric string) ([]YearAverage, error) {
	if !KnownMetric(metric) {
		return nil, apperr.InvalidArgumentf("unknown metric %q", metric)
	}

	stmts, err := e.store.ListStatements(ctx, nil)
	if err != nil {
		return nil, apperr.Upstream(err, "cohort: list statements")
	}

	byYear := make(map[int][]*float64)
	for i := range stmts {
		byYear[stmts[i].Year] = append(byYear[stmts[i].Year], stmts[i].Metric(metric))
	}
	avgs := AverageByYear(byYear)
	if len(avgs) == 0 {
		return nil, apperr.NotFoundf("no data for metric %q", metric)
	}
	return avgs, nil
}
