package api

import (
	"bytes"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/esg-insight/internal/apperr"
	"github.com/sells-group/esg-insight/internal/config"
	"github.com/sells-group/esg-insight/internal/model"
	"github.com/sells-group/esg-insight/pkg/market"
)

func fp(v float64) *float64 { return &v }

func testConfig() *config.Config {
	return &config.Config{
		Server: config.ServerConfig{
			Port:            8080,
			ReportsPort:     8081,
			TimeoutSecs:     5,
			ShutdownSecs:    1,
			MaxRequestBytes: 1 << 20,
			DebugErrors:     true,
		},
		Auth: config.AuthConfig{
			Secret:       "test-secret-at-least-32-bytes-long!!",
			TokenTTLMins: 60,
		},
		Screen: config.ScreenConfig{
			ROEMin:         5,
			DebtMax:        150,
			EquityRatioMin: 30,
		},
	}
}

func seededStore() *mockStore {
	st := newMockStore()
	st.classifications = []model.Classification{
		{Company: "AlphaChem", IndustryCode: "1510", IndustryName: "Chemicals"},
		{Company: "BetaChem", IndustryCode: "1510", IndustryName: "Chemicals"},
	}
	st.statements = []model.Statement{
		{Company: "AlphaChem", Year: 2022, ROE: fp(8), DebtRatio: fp(80), EquityRatio: fp(55), EPS: fp(1200)},
		{Company: "AlphaChem", Year: 2023, ROE: fp(12), DebtRatio: fp(90), EquityRatio: fp(52), EPS: fp(1500)},
		{Company: "BetaChem", Year: 2023, ROE: fp(6), DebtRatio: fp(120), EquityRatio: fp(41), EPS: fp(300)},
	}
	st.ratings = []model.ESGRating{
		{Company: "AlphaChem", Year: 2023, Overall: "A", Environmental: "A+", Social: "B+", Governance: "A"},
		{Company: "BetaChem", Year: 2023, Overall: "B", Environmental: "B", Social: "B", Governance: "C"},
	}
	st.boardStats = []model.BoardStat{
		{Company: "AlphaChem", Year: 2023, OutsideDirectorRatio: fp(50), FemaleDirectorRatio: fp(20), LargestShareholderStake: fp(31.5)},
		{Company: "BetaChem", Year: 2023, OutsideDirectorRatio: fp(40), FemaleDirectorRatio: fp(10), LargestShareholderStake: fp(45)},
	}
	st.envStats = []model.EnvironmentStat{
		{Company: "AlphaChem", Year: 2023, InvestmentRatio: fp(2.5), GHGPerRevenue: fp(1.1), EnergyPerRevenue: fp(0.8)},
		{Company: "BetaChem", Year: 2023, InvestmentRatio: fp(1.5), GHGPerRevenue: fp(2.2), EnergyPerRevenue: fp(1.6)},
	}
	st.riskStats = []model.RiskStat{
		{Company: "AlphaChem", Year: 2023, SharpeRatio: fp(1.2), MDD: fp(-18.4)},
	}
	st.snapshots = []model.StockSnapshot{
		{Company: "AlphaChem", PER: fp(11.2), PBR: fp(1.4), DividendYield: fp(2.8), EPS: fp(1500), BPS: fp(12000)},
	}
	return st
}

func newTestServer(t *testing.T, st *mockStore, mkt MarketClient) *Server {
	t.Helper()
	tickers := mockTickers{"AlphaChem": "012345.KS", "BetaChem": "067890.KS"}
	s, err := NewServer(testConfig(), st, tickers, mkt)
	require.NoError(t, err)
	return s
}

func doJSON(t *testing.T, s *Server, method, target string, body any, token string) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, target, &buf)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	s.Router().ServeHTTP(rec, req)
	return rec
}

func decodeBody[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var out T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out), "body: %s", rec.Body.String())
	return out
}

func TestHealth(t *testing.T) {
	s := newTestServer(t, seededStore(), &mockMarket{})

	rec := doJSON(t, s, http.MethodGet, "/health", nil, "")

	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestFinancials(t *testing.T) {
	s := newTestServer(t, seededStore(), &mockMarket{})

	rec := doJSON(t, s, http.MethodGet, "/company/AlphaChem/financials", nil, "")

	require.Equal(t, http.StatusOK, rec.Code)
	stmt := decodeBody[model.Statement](t, rec)
	assert.Equal(t, "AlphaChem", stmt.Company)
	assert.Equal(t, 2023, stmt.Year, "serves the latest fiscal year")
	require.NotNil(t, stmt.ROE)
	assert.Equal(t, 12.0, *stmt.ROE)
}

func TestFinancialsUnknownCompany(t *testing.T) {
	s := newTestServer(t, seededStore(), &mockMarket{})

	rec := doJSON(t, s, http.MethodGet, "/company/GammaSteel/financials", nil, "")

	require.Equal(t, http.StatusNotFound, rec.Code)
	body := decodeBody[errorBody](t, rec)
	assert.Contains(t, body.Error, "GammaSteel")
	assert.Equal(t, []string{"AlphaChem", "BetaChem"}, body.Companies,
		"debug errors attach the known-company roster")
}

func TestFinancialsUnknownCompanyWithoutDebug(t *testing.T) {
	cfg := testConfig()
	cfg.Server.DebugErrors = false
	s, err := NewServer(cfg, seededStore(), mockTickers{}, &mockMarket{})
	require.NoError(t, err)

	rec := doJSON(t, s, http.MethodGet, "/company/GammaSteel/financials", nil, "")

	require.Equal(t, http.StatusNotFound, rec.Code)
	body := decodeBody[errorBody](t, rec)
	assert.Empty(t, body.Companies)
}

func TestAnalysis(t *testing.T) {
	s := newTestServer(t, seededStore(), &mockMarket{})

	rec := doJSON(t, s, http.MethodGet, "/company/AlphaChem/analysis", nil, "")

	require.Equal(t, http.StatusOK, rec.Code)
	var report struct {
		IndustryName string `json:"industry_name"`
		Years        []struct {
			Year        int                `json:"year"`
			Company     map[string]int     `json:"company"`
			IndustryAvg map[string]float64 `json:"industry_avg"`
		} `json:"years"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &report))
	assert.Equal(t, "Chemicals", report.IndustryName)
	require.Len(t, report.Years, 1)
	assert.Equal(t, 2023, report.Years[0].Year)
	assert.Equal(t, 5, report.Years[0].Company["overall"], "A maps to score 5")
	assert.InDelta(t, 4.0, report.Years[0].IndustryAvg["overall"], 1e-9)
}

func TestNonfinancials(t *testing.T) {
	s := newTestServer(t, seededStore(), &mockMarket{})

	rec := doJSON(t, s, http.MethodGet, "/company/AlphaChem/nonfinancials", nil, "")

	require.Equal(t, http.StatusOK, rec.Code)
	var report struct {
		IndustryName string `json:"industry_name"`
		Basic        []struct {
			Year int    `json:"year"`
			ESG  string `json:"esg"`
		} `json:"basic"`
		OutsideDirectorChart []struct {
			Year        int      `json:"year"`
			Company     *float64 `json:"company"`
			IndustryAvg *float64 `json:"industry_avg"`
		} `json:"outside_director_chart"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &report))
	assert.Equal(t, "Chemicals", report.IndustryName)
	require.Len(t, report.Basic, 1)
	assert.Equal(t, "A", report.Basic[0].ESG)
	require.Len(t, report.OutsideDirectorChart, 1)
	require.NotNil(t, report.OutsideDirectorChart[0].IndustryAvg)
	assert.InDelta(t, 45.0, *report.OutsideDirectorChart[0].IndustryAvg, 1e-9)
}

func TestStockMergesLiveAndStored(t *testing.T) {
	mkt := &mockMarket{
		quote: &market.Quote{
			Price:     71000,
			Change:    fp(500),
			ChangePct: fp(0.71),
			Volume:    fp(1200000),
			Valuation: model.StockSnapshot{Company: "AlphaChem", PER: fp(12.4)},
		},
		returns: []market.Return{{Period: "1M", ChangePct: fp(3.2)}},
	}
	s := newTestServer(t, seededStore(), mkt)

	rec := doJSON(t, s, http.MethodGet, "/company/AlphaChem/stock", nil, "")

	require.Equal(t, http.StatusOK, rec.Code)
	resp := decodeBody[stockResponse](t, rec)
	require.NotNil(t, resp.Price)
	assert.Equal(t, 71000.0, *resp.Price)
	require.NotNil(t, resp.Valuation.PER)
	assert.Equal(t, 12.4, *resp.Valuation.PER, "live PER wins")
	require.NotNil(t, resp.Valuation.PBR)
	assert.Equal(t, 1.4, *resp.Valuation.PBR, "stored PBR backfills the live gap")
	require.Len(t, resp.Performance, 1)
}

func TestStockServesStoredOnUpstreamFailure(t *testing.T) {
	mkt := &mockMarket{
		quoteErr: apperr.Upstream(errors.New("exchange timeout"), "market: quote fetch"),
		perfErr:  apperr.Upstream(errors.New("exchange timeout"), "market: price history"),
	}
	s := newTestServer(t, seededStore(), mkt)

	rec := doJSON(t, s, http.MethodGet, "/company/AlphaChem/stock", nil, "")

	require.Equal(t, http.StatusOK, rec.Code)
	resp := decodeBody[stockResponse](t, rec)
	assert.Nil(t, resp.Price)
	require.NotNil(t, resp.Valuation.PER)
	assert.Equal(t, 11.2, *resp.Valuation.PER)
	assert.Empty(t, resp.Performance)
}

func TestStockUpstreamFailureWithoutSnapshot(t *testing.T) {
	mkt := &mockMarket{quoteErr: apperr.Upstream(errors.New("exchange timeout"), "market: quote fetch")}
	s := newTestServer(t, seededStore(), mkt)

	rec := doJSON(t, s, http.MethodGet, "/company/BetaChem/stock", nil, "")

	assert.Equal(t, http.StatusBadGateway, rec.Code)
}

func TestStockUnknownTicker(t *testing.T) {
	s := newTestServer(t, seededStore(), &mockMarket{})

	rec := doJSON(t, s, http.MethodGet, "/company/GammaSteel/stock", nil, "")

	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestSharpe(t *testing.T) {
	s := newTestServer(t, seededStore(), &mockMarket{})

	rec := doJSON(t, s, http.MethodGet, "/company/AlphaChem/sharpe", nil, "")

	require.Equal(t, http.StatusOK, rec.Code)
	stats := decodeBody[[]model.RiskStat](t, rec)
	require.Len(t, stats, 1)
	require.NotNil(t, stats[0].SharpeRatio)
	assert.Equal(t, 1.2, *stats[0].SharpeRatio)
}

func TestSharpeUnknownCompany(t *testing.T) {
	s := newTestServer(t, seededStore(), &mockMarket{})

	rec := doJSON(t, s, http.MethodGet, "/company/BetaChem/sharpe", nil, "")

	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestMarketAverage(t *testing.T) {
	s := newTestServer(t, seededStore(), &mockMarket{})

	rec := doJSON(t, s, http.MethodGet, "/average/roe", nil, "")

	require.Equal(t, http.StatusOK, rec.Code)
	var series []struct {
		Year    int     `json:"year"`
		Average float64 `json:"average"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &series))
	require.Len(t, series, 2)
	assert.Equal(t, 2022, series[0].Year)
	assert.InDelta(t, 8.0, series[0].Average, 1e-9)
	assert.InDelta(t, 9.0, series[1].Average, 1e-9)
}

func TestMarketAverageUnknownMetric(t *testing.T) {
	s := newTestServer(t, seededStore(), &mockMarket{})

	rec := doJSON(t, s, http.MethodGet, "/average/ebitda", nil, "")

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestIndustryAverage(t *testing.T) {
	s := newTestServer(t, seededStore(), &mockMarket{})

	rec := doJSON(t, s, http.MethodGet, "/average/roe/industry?company=AlphaChem", nil, "")

	require.Equal(t, http.StatusOK, rec.Code)
	var series struct {
		IndustryName string `json:"industry_name"`
		Data         []struct {
			Year    int     `json:"year"`
			Average float64 `json:"average"`
		} `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &series))
	assert.Equal(t, "Chemicals", series.IndustryName)
	require.Len(t, series.Data, 2)
	assert.InDelta(t, 9.0, series.Data[1].Average, 1e-9)
}

func TestIndustryAverageRequiresCompany(t *testing.T) {
	s := newTestServer(t, seededStore(), &mockMarket{})

	rec := doJSON(t, s, http.MethodGet, "/average/roe/industry", nil, "")

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestPercentile(t *testing.T) {
	s := newTestServer(t, seededStore(), &mockMarket{})

	rec := doJSON(t, s, http.MethodGet, "/percentile/roe/AlphaChem", nil, "")

	require.Equal(t, http.StatusOK, rec.Code)
	var ranking struct {
		Company    string  `json:"company_name"`
		Rank       int     `json:"rank"`
		Total      int     `json:"total"`
		Percentile float64 `json:"percentile"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &ranking))
	assert.Equal(t, "AlphaChem", ranking.Company)
	assert.Equal(t, 1, ranking.Rank)
	assert.Equal(t, 2, ranking.Total)
	assert.InDelta(t, 100.0, ranking.Percentile, 1e-9)
}

func TestPercentileSummary(t *testing.T) {
	s := newTestServer(t, seededStore(), &mockMarket{})

	rec := doJSON(t, s, http.MethodGet, "/percentile-summary/profitability/AlphaChem", nil, "")

	require.Equal(t, http.StatusOK, rec.Code)
	var ranking struct {
		Category string `json:"category"`
		Rank     int    `json:"rank"`
		Total    int    `json:"total"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &ranking))
	assert.Equal(t, "profitability", ranking.Category)
	assert.Equal(t, 1, ranking.Rank)
	assert.Equal(t, 2, ranking.Total)
}

func TestPercentileSummaryUnknownCategory(t *testing.T) {
	s := newTestServer(t, seededStore(), &mockMarket{})

	rec := doJSON(t, s, http.MethodGet, "/percentile-summary/vibes/AlphaChem", nil, "")

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestScreenDefaults(t *testing.T) {
	s := newTestServer(t, seededStore(), &mockMarket{})

	rec := doJSON(t, s, http.MethodGet, "/screen", nil, "")

	require.Equal(t, http.StatusOK, rec.Code)
	var results []struct {
		Company string `json:"company"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &results))
	require.Len(t, results, 2, "config defaults admit both companies")
}

func TestScreenOverrides(t *testing.T) {
	s := newTestServer(t, seededStore(), &mockMarket{})

	q := url.Values{}
	q.Set("roe_min", "10")
	q.Set("esg", "A")
	rec := doJSON(t, s, http.MethodGet, "/screen?"+q.Encode(), nil, "")

	require.Equal(t, http.StatusOK, rec.Code)
	var results []struct {
		Company string `json:"company"`
		Overall string `json:"esg"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &results))
	require.Len(t, results, 1)
	assert.Equal(t, "AlphaChem", results[0].Company)
	assert.Equal(t, "A", results[0].Overall)
}

func TestScreenEPSFlags(t *testing.T) {
	st := seededStore()
	st.statements = append(st.statements,
		model.Statement{Company: "DeltaLoss", Year: 2023, ROE: fp(7), DebtRatio: fp(70), EquityRatio: fp(60), EPS: fp(-40)},
		model.Statement{Company: "GammaBlank", Year: 2023, ROE: fp(7), DebtRatio: fp(70), EquityRatio: fp(60)})
	s := newTestServer(t, st, &mockMarket{})

	companies := func(rec *httptest.ResponseRecorder) []string {
		t.Helper()
		require.Equal(t, http.StatusOK, rec.Code)
		var results []struct {
			Company string `json:"company"`
		}
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &results))
		out := make([]string, 0, len(results))
		for _, r := range results {
			out = append(out, r.Company)
		}
		return out
	}

	rec := doJSON(t, s, http.MethodGet, "/screen", nil, "")
	got := companies(rec)
	assert.Contains(t, got, "DeltaLoss", "a reported loss passes the default rule")
	assert.NotContains(t, got, "GammaBlank", "missing EPS fails the default rule")

	rec = doJSON(t, s, http.MethodGet, "/screen?eps_positive=true", nil, "")
	assert.NotContains(t, companies(rec), "DeltaLoss")

	rec = doJSON(t, s, http.MethodGet, "/screen?allow_negative_eps=true", nil, "")
	assert.Contains(t, companies(rec), "GammaBlank", "allow_negative_eps drops the EPS condition entirely")

	rec = doJSON(t, s, http.MethodGet, "/screen?allow_negative_eps=true&eps_positive=true", nil, "")
	assert.NotContains(t, companies(rec), "DeltaLoss", "eps_positive overrides allow_negative_eps")
}

func TestScreenBadParam(t *testing.T) {
	s := newTestServer(t, seededStore(), &mockMarket{})

	rec := doJSON(t, s, http.MethodGet, "/screen?roe_min=lots", nil, "")

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}
