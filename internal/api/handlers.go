package api

import (
	"context"
	"net/http"
	"net/url"
	"strconv"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/sells-group/esg-insight/internal/apperr"
	"github.com/sells-group/esg-insight/internal/model"
	"github.com/sells-group/esg-insight/internal/screen"
	"github.com/sells-group/esg-insight/internal/store"
	"github.com/sells-group/esg-insight/pkg/market"
)

// companyNotFound renders the 404 for an unknown company. The known-company
// list is attached only when debug errors are enabled; it is too useful an
// enumeration surface for production responses.
func (s *Server) companyNotFound(w http.ResponseWriter, ctx context.Context, name string) {
	body := errorBody{Error: "company not found: " + name}
	if s.cfg.Server.DebugErrors {
		companies, err := s.store.ListCompanies(ctx)
		if err != nil {
			zap.L().Warn("api: list companies", zap.Error(err))
		}
		body.Companies = companies
	}
	writeJSON(w, http.StatusNotFound, body)
}

func (s *Server) handleFinancials(w http.ResponseWriter, r *http.Request) {
	name := pathParam(r, "name")

	stmt, err := s.store.GetLatestStatement(r.Context(), name)
	if err != nil {
		writeError(w, apperr.Upstream(err, "api: load statement"))
		return
	}
	if stmt == nil {
		s.companyNotFound(w, r.Context(), name)
		return
	}
	writeJSON(w, http.StatusOK, stmt)
}

func (s *Server) handleNonfinancials(w http.ResponseWriter, r *http.Request) {
	report, err := s.trend.Governance(r.Context(), pathParam(r, "name"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, report)
}

func (s *Server) handleAnalysis(w http.ResponseWriter, r *http.Request) {
	report, err := s.trend.ESGTrend(r.Context(), pathParam(r, "name"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, report)
}

type stockResponse struct {
	Company     string              `json:"company"`
	Price       *float64            `json:"price"`
	Change      *float64            `json:"change"`
	ChangePct   *float64            `json:"change_pct"`
	Volume      *float64            `json:"volume"`
	Valuation   model.StockSnapshot `json:"valuation"`
	Performance []market.Return     `json:"performance,omitempty"`
}

// handleStock merges the live quote with the stored valuation snapshot.
// When the upstream quote fails and a stored snapshot exists, the stored
// figures are served with null live fields instead of failing the request.
func (s *Server) handleStock(w http.ResponseWriter, r *http.Request) {
	name := pathParam(r, "name")

	ticker, ok := s.tickers.Ticker(name)
	if !ok {
		s.companyNotFound(w, r.Context(), name)
		return
	}

	stored, err := s.store.GetStockSnapshot(r.Context(), name)
	if err != nil {
		writeError(w, apperr.Upstream(err, "api: load snapshot"))
		return
	}

	resp := stockResponse{Company: name, Valuation: model.StockSnapshot{Company: name}}
	if stored != nil {
		resp.Valuation = *stored
	}

	quote, err := s.market.FetchQuote(r.Context(), name, ticker)
	if err != nil {
		if stored == nil {
			writeError(w, err)
			return
		}
		zap.L().Warn("api: live quote unavailable", zap.String("company", name), zap.Error(err))
	} else {
		resp.Price = &quote.Price
		resp.Change = quote.Change
		resp.ChangePct = quote.ChangePct
		resp.Volume = quote.Volume
		resp.Valuation = mergeValuation(quote.Valuation, stored)
	}

	perf, err := s.market.Performance(r.Context(), ticker)
	if err != nil {
		zap.L().Warn("api: price history unavailable", zap.String("company", name), zap.Error(err))
	} else {
		resp.Performance = perf
	}

	writeJSON(w, http.StatusOK, resp)
}

// mergeValuation backfills valuation fields the exchange omitted from the
// stored snapshot.
func mergeValuation(live model.StockSnapshot, stored *model.StockSnapshot) model.StockSnapshot {
	if stored == nil {
		return live
	}
	if live.PER == nil {
		live.PER = stored.PER
	}
	if live.PBR == nil {
		live.PBR = stored.PBR
	}
	if live.DividendYield == nil {
		live.DividendYield = stored.DividendYield
	}
	if live.EPS == nil {
		live.EPS = stored.EPS
	}
	if live.BPS == nil {
		live.BPS = stored.BPS
	}
	return live
}

func (s *Server) handleSharpe(w http.ResponseWriter, r *http.Request) {
	name := pathParam(r, "name")

	stats, err := s.store.ListRiskStats(r.Context(), name)
	if err != nil {
		writeError(w, apperr.Upstream(err, "api: load risk stats"))
		return
	}
	if len(stats) == 0 {
		s.companyNotFound(w, r.Context(), name)
		return
	}
	writeJSON(w, http.StatusOK, stats)
}

func (s *Server) handleMarketAverage(w http.ResponseWriter, r *http.Request) {
	series, err := s.engine.MarketAverage(r.Context(), pathParam(r, "metric"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, series)
}

func (s *Server) handleIndustryAverage(w http.ResponseWriter, r *http.Request) {
	company := r.URL.Query().Get("company")
	if company == "" {
		writeError(w, apperr.InvalidArgument("company query parameter is required"))
		return
	}

	series, err := s.engine.IndustryAverage(r.Context(), company, pathParam(r, "metric"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, series)
}

func (s *Server) handlePercentile(w http.ResponseWriter, r *http.Request) {
	ranking, err := s.engine.MetricPercentile(r.Context(), pathParam(r, "name"), pathParam(r, "metric"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, ranking)
}

func (s *Server) handlePercentileSummary(w http.ResponseWriter, r *http.Request) {
	ranking, err := s.engine.CategoryPercentile(r.Context(), pathParam(r, "name"), pathParam(r, "category"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, ranking)
}

func (s *Server) handleScreen(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	crit := screen.Criteria{
		ROEMin:         s.cfg.Screen.ROEMin,
		DebtMax:        s.cfg.Screen.DebtMax,
		EquityRatioMin: s.cfg.Screen.EquityRatioMin,
		EPS:            epsRule(q),
		MinGrade:       q.Get("esg"),
		EnvFocus:       q.Get("env_focus") == "true",
		SocFocus:       q.Get("soc_focus") == "true",
		GovFocus:       q.Get("gov_focus") == "true",
	}

	var err error
	if crit.ROEMin, err = floatParam(q, "roe_min", crit.ROEMin); err != nil {
		writeError(w, err)
		return
	}
	if crit.DebtMax, err = floatParam(q, "debt_max", crit.DebtMax); err != nil {
		writeError(w, err)
		return
	}
	if crit.EquityRatioMin, err = floatParam(q, "equity_ratio_min", crit.EquityRatioMin); err != nil {
		writeError(w, err)
		return
	}
	if crit.PERMax, err = optionalFloatParam(q, "per_max"); err != nil {
		writeError(w, err)
		return
	}
	if crit.PBRMax, err = optionalFloatParam(q, "pbr_max"); err != nil {
		writeError(w, err)
		return
	}
	if crit.DividendMin, err = optionalFloatParam(q, "dividend_min"); err != nil {
		writeError(w, err)
		return
	}

	results, err := s.screener.Screen(r.Context(), crit)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, results)
}

// epsRule maps the EPS query flags onto the store rule. eps_positive wins
// over allow_negative_eps; with neither set, an EPS value must be reported
// but may be negative.
func epsRule(q url.Values) store.EPSRule {
	switch {
	case q.Get("eps_positive") == "true":
		return store.EPSPositive
	case q.Get("allow_negative_eps") == "true":
		return store.EPSAny
	default:
		return store.EPSNonNull
	}
}

// pathParam reads a chi URL parameter, undoing any residual escaping so
// non-ASCII company names match their stored form.
func pathParam(r *http.Request, key string) string {
	raw := chi.URLParam(r, key)
	if unescaped, err := url.PathUnescape(raw); err == nil {
		return unescaped
	}
	return raw
}

func floatParam(q url.Values, key string, fallback float64) (float64, error) {
	raw := q.Get(key)
	if raw == "" {
		return fallback, nil
	}
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return 0, apperr.InvalidArgumentf("invalid %s: %q", key, raw)
	}
	return v, nil
}

func optionalFloatParam(q url.Values, key string) (*float64, error) {
	raw := q.Get(key)
	if raw == "" {
		return nil, nil
	}
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return nil, apperr.InvalidArgumentf("invalid %s: %q", key, raw)
	}
	return &v, nil
}
