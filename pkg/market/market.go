// Package market fetches live valuation figures and price history from
// Yahoo Finance via piquette/finance-go. Companies are addressed by
// exchange ticker; the roster maps names to tickers.
package market

import (
	"context"
	"time"

	finance "github.com/piquette/finance-go"
	"github.com/piquette/finance-go/chart"
	"github.com/piquette/finance-go/datetime"
	"github.com/piquette/finance-go/equity"
	"github.com/rotisserie/eris"
	"golang.org/x/sync/errgroup"

	"github.com/sells-group/esg-insight/internal/apperr"
	"github.com/sells-group/esg-insight/internal/model"
)

// barIter is the subset of chart.Iter the service consumes.
type barIter interface {
	Next() bool
	Bar() *finance.ChartBar
	Err() error
}

// Service wraps the upstream quote API. The fetch functions are injectable
// so tests never hit Yahoo.
type Service struct {
	suffix   string
	equityFn func(symbol string) (*finance.Equity, error)
	chartFn  func(p *chart.Params) barIter
}

// NewService builds a market service. Suffix is appended to bare tickers
// (".KS" for KOSPI listings).
func NewService(suffix string) *Service {
	return &Service{
		suffix:   suffix,
		equityFn: equity.Get,
		chartFn:  func(p *chart.Params) barIter { return chart.Get(p) },
	}
}

// Symbol renders the full exchange symbol for a roster ticker.
func (s *Service) Symbol(ticker string) string {
	return ticker + s.suffix
}

// Quote is the live price plus the valuation figures the exchange reports
// alongside it. Valuation fields the exchange omits stay nil; callers may
// backfill them from a stored snapshot.
type Quote struct {
	Price     float64             `json:"price"`
	Change    *float64            `json:"change"`
	ChangePct *float64            `json:"change_pct"`
	Volume    *float64            `json:"volume"`
	Valuation model.StockSnapshot `json:"valuation"`
}

// FetchQuote fetches the current quote for a ticker. A missing or unpriced
// symbol maps to ErrNotFound; transport failures to ErrUpstream.
func (s *Service) FetchQuote(ctx context.Context, company, ticker string) (*Quote, error) {
	if err := ctx.Err(); err != nil {
		return nil, eris.Wrap(err, "market: quote")
	}

	eq, err := s.equityFn(s.Symbol(ticker))
	if err != nil {
		return nil, apperr.Upstream(err, "market: fetch quote")
	}
	if eq == nil || eq.RegularMarketPrice == 0 {
		return nil, apperr.NotFoundf("no quote for ticker %s", ticker)
	}

	q := &Quote{
		Price:     eq.RegularMarketPrice,
		Change:    model.CleanFloat(nonZero(eq.RegularMarketChange)),
		ChangePct: model.CleanFloat(nonZero(eq.RegularMarketChangePercent)),
		Volume:    model.CleanFloat(nonZero(float64(eq.RegularMarketVolume))),
		Valuation: model.StockSnapshot{Company: company},
	}
	q.Valuation.PER = model.CleanFloat(nonZero(eq.TrailingPE))
	q.Valuation.PBR = model.CleanFloat(nonZero(eq.PriceToBook))
	q.Valuation.DividendYield = model.CleanFloat(nonZero(eq.TrailingAnnualDividendYield))
	q.Valuation.EPS = model.CleanFloat(nonZero(eq.EpsTrailingTwelveMonths))
	q.Valuation.BPS = model.CleanFloat(nonZero(eq.BookValue))
	return q, nil
}

// Return is the price change over one lookback window.
type Return struct {
	Period    string   `json:"period"`
	ChangePct *float64 `json:"change_pct"`
}

// performanceWindows are the lookback periods reported by Performance,
// in display order.
var performanceWindows = []struct {
	name string
	days int
}{
	{"1m", 30},
	{"6m", 182},
	{"1y", 365},
}

// Performance computes price returns over the standard windows, fetching
// each window's history concurrently. Windows with insufficient history
// report a null change instead of failing the whole call.
func (s *Service) Performance(ctx context.Context, ticker string) ([]Return, error) {
	out := make([]Return, len(performanceWindows))
	g, ctx := errgroup.WithContext(ctx)

	for i, w := range performanceWindows {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return eris.Wrapf(err, "market: history %s", w.name)
			}
			pct, err := s.windowReturn(ticker, w.days)
			if err != nil {
				return err
			}
			out[i] = Return{Period: w.name, ChangePct: pct}
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, apperr.Upstream(err, "market: fetch history")
	}
	return out, nil
}

func (s *Service) windowReturn(ticker string, days int) (*float64, error) {
	end := time.Now()
	start := end.AddDate(0, 0, -days)

	iter := s.chartFn(&chart.Params{
		Symbol:   s.Symbol(ticker),
		Start:    datetime.New(&start),
		End:      datetime.New(&end),
		Interval: datetime.OneDay,
	})

	var first, last float64
	seen := false
	for iter.Next() {
		c, _ := iter.Bar().Close.Float64()
		if c == 0 {
			continue
		}
		if !seen {
			first = c
			seen = true
		}
		last = c
	}
	if err := iter.Err(); err != nil {
		return nil, eris.Wrapf(err, "market: chart %s", s.Symbol(ticker))
	}
	if !seen || first == 0 {
		return nil, nil
	}
	pct := (last - first) / first * 100
	return model.CleanFloat(&pct), nil
}

// nonZero treats the upstream's zero value as absent.
func nonZero(v float64) *float64 {
	if v == 0 {
		return nil
	}
	return &v
}
