// Package screen implements the stock screening endpoint: financial
// threshold filters pushed into the store, valuation and ESG filters
// applied over the merged result.
package screen

import (
	"context"

	"github.com/sells-group/esg-insight/internal/apperr"
	"github.com/sells-group/esg-insight/internal/cohort"
	"github.com/sells-group/esg-insight/internal/model"
	"github.com/sells-group/esg-insight/internal/store"
)

// focusScore is the minimum grade score (A) a pillar must reach when its
// focus flag is set.
const focusScore = 5

// Reader is the store access screening needs.
type Reader interface {
	ScreenStatements(ctx context.Context, filter store.ScreenFilter) ([]model.Statement, error)
	ListStockSnapshots(ctx context.Context, companies []string) ([]model.StockSnapshot, error)
	ListESGRatings(ctx context.Context, companies []string) ([]model.ESGRating, error)
}

// Criteria holds one screening request. The statement thresholds are always
// set (handler fills config defaults); valuation filters apply only when
// non-nil. Companies missing a filtered valuation value are excluded.
type Criteria struct {
	ROEMin         float64
	DebtMax        float64
	EquityRatioMin float64
	EPS            store.EPSRule

	PERMax      *float64
	PBRMax      *float64
	DividendMin *float64

	MinGrade string
	EnvFocus bool
	SocFocus bool
	GovFocus bool
}

// Result is one screened company with the figures the filters inspected.
type Result struct {
	Company       string   `json:"company"`
	ROE           *float64 `json:"roe"`
	EPS           *float64 `json:"eps"`
	DebtRatio     *float64 `json:"debt_ratio"`
	EquityRatio   *float64 `json:"equity_ratio"`
	PER           *float64 `json:"per"`
	PBR           *float64 `json:"pbr"`
	DividendYield *float64 `json:"dividend_yield"`
	Overall       string   `json:"esg"`
	Environmental string   `json:"esg_environmental"`
	Social        string   `json:"esg_social"`
	Governance    string   `json:"esg_governance"`
}

// Service runs screens against an injected store handle.
type Service struct {
	store  Reader
	tables cohort.Tables
}

// NewService builds a screening service.
func NewService(st Reader, tables cohort.Tables) *Service {
	return &Service{store: st, tables: tables}
}

// Screen returns every company passing the criteria, sorted by the store's
// company ordering.
func (s *Service) Screen(ctx context.Context, c Criteria) ([]Result, error) {
	minScore := 0
	if c.MinGrade != "" {
		score, ok := s.tables.GradeScore(c.MinGrade)
		if !ok {
			return nil, apperr.InvalidArgumentf("unknown ESG grade %q", c.MinGrade)
		}
		minScore = score
	}

	stmts, err := s.store.ScreenStatements(ctx, store.ScreenFilter{
		ROEMin:         c.ROEMin,
		DebtMax:        c.DebtMax,
		EquityRatioMin: c.EquityRatioMin,
		EPS:            c.EPS,
	})
	if err != nil {
		return nil, apperr.Upstream(err, "screen: filter statements")
	}
	if len(stmts) == 0 {
		return []Result{}, nil
	}

	names := make([]string, 0, len(stmts))
	for i := range stmts {
		names = append(names, stmts[i].Company)
	}

	snaps, err := s.store.ListStockSnapshots(ctx, names)
	if err != nil {
		return nil, apperr.Upstream(err, "screen: list snapshots")
	}
	snapByCompany := make(map[string]*model.StockSnapshot, len(snaps))
	for i := range snaps {
		snapByCompany[snaps[i].Company] = &snaps[i]
	}

	ratings, err := s.store.ListESGRatings(ctx, names)
	if err != nil {
		return nil, apperr.Upstream(err, "screen: list ratings")
	}
	latestRating := make(map[string]*model.ESGRating, len(ratings))
	for i := range ratings {
		r := &ratings[i]
		if cur := latestRating[r.Company]; cur == nil || r.Year > cur.Year {
			latestRating[r.Company] = r
		}
	}

	results := make([]Result, 0, len(stmts))
	for i := range stmts {
		stmt := &stmts[i]
		res := Result{
			Company:       stmt.Company,
			ROE:           stmt.ROE,
			EPS:           stmt.EPS,
			DebtRatio:     stmt.DebtRatio,
			EquityRatio:   stmt.EquityRatio,
			Overall:       "N/A",
			Environmental: "-",
			Social:        "-",
			Governance:    "-",
		}

		snap := snapByCompany[stmt.Company]
		if snap != nil {
			res.PER = model.CleanFloat(snap.PER)
			res.PBR = model.CleanFloat(snap.PBR)
			res.DividendYield = model.CleanFloat(snap.DividendYield)
		}
		if !passesCeiling(c.PERMax, res.PER) || !passesCeiling(c.PBRMax, res.PBR) {
			continue
		}
		if c.DividendMin != nil && (res.DividendYield == nil || *res.DividendYield < *c.DividendMin) {
			continue
		}

		rating := latestRating[stmt.Company]
		if rating != nil {
			if rating.Overall != "" {
				res.Overall = rating.Overall
			}
			if rating.Environmental != "" {
				res.Environmental = rating.Environmental
			}
			if rating.Social != "" {
				res.Social = rating.Social
			}
			if rating.Governance != "" {
				res.Governance = rating.Governance
			}
		}
		if minScore > 0 && s.gradeScore(rating, "overall") < minScore {
			continue
		}
		if c.EnvFocus && s.gradeScore(rating, "environmental") < focusScore {
			continue
		}
		if c.SocFocus && s.gradeScore(rating, "social") < focusScore {
			continue
		}
		if c.GovFocus && s.gradeScore(rating, "governance") < focusScore {
			continue
		}

		results = append(results, res)
	}
	return results, nil
}

// gradeScore scores one pillar of a rating; missing ratings score 0 so any
// grade floor excludes them.
func (s *Service) gradeScore(rating *model.ESGRating, field string) int {
	if rating == nil {
		return 0
	}
	score, ok := s.tables.GradeScore(rating.Grade(field))
	if !ok {
		return 0
	}
	return score
}

// passesCeiling applies an optional upper-bound filter; a set ceiling with
// no value to compare fails.
func passesCeiling(max, v *float64) bool {
	if max == nil {
		return true
	}
	return v != nil && *v <= *max
}
