package api

import (
	"context"
	"sort"

	"github.com/google/uuid"

	"github.com/sells-group/esg-insight/internal/model"
	"github.com/sells-group/esg-insight/internal/store"
	"github.com/sells-group/esg-insight/pkg/market"
)

// mockStore implements store.Store in memory for handler tests.
type mockStore struct {
	classifications []model.Classification
	statements      []model.Statement
	ratings         []model.ESGRating
	boardStats      []model.BoardStat
	envStats        []model.EnvironmentStat
	riskStats       []model.RiskStat
	snapshots       []model.StockSnapshot
	users           map[string]model.User
	favorites       map[string][]string
	drafts          map[string]model.Draft
}

func newMockStore() *mockStore {
	return &mockStore{
		users:     make(map[string]model.User),
		favorites: make(map[string][]string),
		drafts:    make(map[string]model.Draft),
	}
}

func wantCompany(companies []string, name string) bool {
	if companies == nil {
		return true
	}
	for _, c := range companies {
		if store.NormalizeName(c) == name {
			return true
		}
	}
	return false
}

func (m *mockStore) GetClassification(_ context.Context, company string) (*model.Classification, error) {
	company = store.NormalizeName(company)
	for _, c := range m.classifications {
		if c.Company == company {
			out := c
			return &out, nil
		}
	}
	return nil, nil
}

func (m *mockStore) ListClassifications(_ context.Context, industryCode string) ([]model.Classification, error) {
	var out []model.Classification
	for _, c := range m.classifications {
		if c.IndustryCode == industryCode {
			out = append(out, c)
		}
	}
	return out, nil
}

func (m *mockStore) ListCompanies(_ context.Context) ([]string, error) {
	var out []string
	for _, c := range m.classifications {
		out = append(out, c.Company)
	}
	sort.Strings(out)
	return out, nil
}

func (m *mockStore) GetLatestStatement(_ context.Context, company string) (*model.Statement, error) {
	company = store.NormalizeName(company)
	var latest *model.Statement
	for i, s := range m.statements {
		if s.Company != company {
			continue
		}
		if latest == nil || s.Year > latest.Year {
			latest = &m.statements[i]
		}
	}
	if latest == nil {
		return nil, nil
	}
	out := *latest
	return &out, nil
}

func (m *mockStore) latestStatements() []model.Statement {
	latest := make(map[string]model.Statement)
	for _, s := range m.statements {
		if cur, ok := latest[s.Company]; !ok || s.Year > cur.Year {
			latest[s.Company] = s
		}
	}
	var out []model.Statement
	for _, s := range latest {
		out = append(out, s)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Company < out[j].Company })
	return out
}

func (m *mockStore) ListLatestStatements(_ context.Context, companies []string) ([]model.Statement, error) {
	var out []model.Statement
	for _, s := range m.latestStatements() {
		if wantCompany(companies, s.Company) {
			out = append(out, s)
		}
	}
	return out, nil
}

func (m *mockStore) ListStatements(_ context.Context, companies []string) ([]model.Statement, error) {
	var out []model.Statement
	for _, s := range m.statements {
		if wantCompany(companies, s.Company) {
			out = append(out, s)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Company != out[j].Company {
			return out[i].Company < out[j].Company
		}
		return out[i].Year < out[j].Year
	})
	return out, nil
}

func (m *mockStore) ScreenStatements(_ context.Context, filter store.ScreenFilter) ([]model.Statement, error) {
	var out []model.Statement
	for _, s := range m.latestStatements() {
		if s.ROE == nil || *s.ROE < filter.ROEMin {
			continue
		}
		if s.DebtRatio == nil || *s.DebtRatio > filter.DebtMax {
			continue
		}
		if s.EquityRatio == nil || *s.EquityRatio < filter.EquityRatioMin {
			continue
		}
		switch filter.EPS {
		case store.EPSPositive:
			if s.EPS == nil || *s.EPS <= 0 {
				continue
			}
		case store.EPSNonNull:
			if s.EPS == nil {
				continue
			}
		}
		out = append(out, s)
	}
	return out, nil
}

func (m *mockStore) ListESGRatings(_ context.Context, companies []string) ([]model.ESGRating, error) {
	var out []model.ESGRating
	for _, r := range m.ratings {
		if wantCompany(companies, r.Company) {
			out = append(out, r)
		}
	}
	return out, nil
}

func (m *mockStore) ListBoardStats(_ context.Context, companies []string) ([]model.BoardStat, error) {
	var out []model.BoardStat
	for _, b := range m.boardStats {
		if wantCompany(companies, b.Company) {
			out = append(out, b)
		}
	}
	return out, nil
}

func (m *mockStore) ListEnvironmentStats(_ context.Context, companies []string) ([]model.EnvironmentStat, error) {
	var out []model.EnvironmentStat
	for _, e := range m.envStats {
		if wantCompany(companies, e.Company) {
			out = append(out, e)
		}
	}
	return out, nil
}

func (m *mockStore) ListRiskStats(_ context.Context, company string) ([]model.RiskStat, error) {
	company = store.NormalizeName(company)
	var out []model.RiskStat
	for _, r := range m.riskStats {
		if r.Company == company {
			out = append(out, r)
		}
	}
	return out, nil
}

func (m *mockStore) GetStockSnapshot(_ context.Context, company string) (*model.StockSnapshot, error) {
	company = store.NormalizeName(company)
	for _, s := range m.snapshots {
		if s.Company == company {
			out := s
			return &out, nil
		}
	}
	return nil, nil
}

func (m *mockStore) ListStockSnapshots(_ context.Context, companies []string) ([]model.StockSnapshot, error) {
	var out []model.StockSnapshot
	for _, s := range m.snapshots {
		if wantCompany(companies, s.Company) {
			out = append(out, s)
		}
	}
	return out, nil
}

func (m *mockStore) CreateUser(_ context.Context, user model.User) error {
	if user.ID == "" {
		user.ID = uuid.New().String()
	}
	m.users[user.Email] = user
	return nil
}

func (m *mockStore) GetUserByEmail(_ context.Context, email string) (*model.User, error) {
	u, ok := m.users[email]
	if !ok {
		return nil, nil
	}
	return &u, nil
}

func (m *mockStore) AddFavorite(_ context.Context, userID, company string) (bool, error) {
	company = store.NormalizeName(company)
	for _, c := range m.favorites[userID] {
		if c == company {
			return false, nil
		}
	}
	m.favorites[userID] = append(m.favorites[userID], company)
	return true, nil
}

func (m *mockStore) RemoveFavorite(_ context.Context, userID, company string) error {
	company = store.NormalizeName(company)
	kept := m.favorites[userID][:0]
	for _, c := range m.favorites[userID] {
		if c != company {
			kept = append(kept, c)
		}
	}
	m.favorites[userID] = kept
	return nil
}

func (m *mockStore) ListFavorites(_ context.Context, userID string) ([]string, error) {
	out := append([]string(nil), m.favorites[userID]...)
	sort.Strings(out)
	return out, nil
}

func (m *mockStore) UpsertDraft(_ context.Context, draft model.Draft) error {
	m.drafts[draft.Topic+"/"+draft.Company] = draft
	return nil
}

func (m *mockStore) GetDraft(_ context.Context, topic, company string) (*model.Draft, error) {
	d, ok := m.drafts[topic+"/"+company]
	if !ok {
		return nil, nil
	}
	return &d, nil
}

func (m *mockStore) DeleteDraft(_ context.Context, topic, company string) (bool, error) {
	key := topic + "/" + company
	if _, ok := m.drafts[key]; !ok {
		return false, nil
	}
	delete(m.drafts, key)
	return true, nil
}

func (m *mockStore) ListGuideChunks(_ context.Context, _ string) ([]model.GuideChunk, error) {
	return nil, nil
}

func (m *mockStore) ListGuideTables(_ context.Context, _ []int) ([]model.GuideTable, error) {
	return nil, nil
}

func (m *mockStore) UpsertGuideChunk(_ context.Context, _ model.GuideChunk) error { return nil }

func (m *mockStore) UpsertGuideTable(_ context.Context, _ model.GuideTable) error { return nil }

func (m *mockStore) Migrate(_ context.Context) error { return nil }

func (m *mockStore) Close() error { return nil }

// mockMarket implements MarketClient with canned responses.
type mockMarket struct {
	quote    *market.Quote
	quoteErr error
	returns  []market.Return
	perfErr  error
}

func (m *mockMarket) FetchQuote(_ context.Context, _, _ string) (*market.Quote, error) {
	if m.quoteErr != nil {
		return nil, m.quoteErr
	}
	return m.quote, nil
}

func (m *mockMarket) Performance(_ context.Context, _ string) ([]market.Return, error) {
	if m.perfErr != nil {
		return nil, m.perfErr
	}
	return m.returns, nil
}

// mockTickers implements TickerSource over a fixed map.
type mockTickers map[string]string

func (m mockTickers) Ticker(company string) (string, bool) {
	t, ok := m[company]
	return t, ok
}
