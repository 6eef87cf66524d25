package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	_ "modernc.org/sqlite"

	"github.com/sells-group/esg-insight/internal/apperr"
	"github.com/sells-group/esg-insight/internal/model"
)

// SQLiteStore implements Store using modernc.org/sqlite. It exists for local
// development and CI; production deployments use Postgres.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLite opens a SQLite database at the given path and configures WAL mode.
func NewSQLite(dsn string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: open")
	}
	for _, pragma := range []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=5000",
		"PRAGMA synchronous=NORMAL",
	} {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, eris.Wrapf(err, "sqlite: exec %s", pragma)
		}
	}
	return &SQLiteStore{db: db}, nil
}

const sqliteMigration = `
CREATE TABLE IF NOT EXISTS classifications (
	company       TEXT PRIMARY KEY,
	industry_code TEXT NOT NULL,
	industry_name TEXT NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_classifications_industry_code ON classifications(industry_code);

CREATE TABLE IF NOT EXISTS statements (
	company                 TEXT NOT NULL,
	year                    INTEGER NOT NULL,
	debt_ratio              REAL,
	equity_ratio            REAL,
	retained_earnings_ratio REAL,
	operating_margin        REAL,
	net_margin              REAL,
	roe                     REAL,
	roa                     REAL,
	revenue_growth          REAL,
	profit_growth           REAL,
	asset_growth            REAL,
	eps                     REAL,
	fcf                     REAL,
	total_assets            REAL,
	operating_profit        REAL,
	PRIMARY KEY (company, year)
);

CREATE TABLE IF NOT EXISTS esg_ratings (
	company       TEXT NOT NULL,
	year          INTEGER NOT NULL,
	overall       TEXT NOT NULL DEFAULT '',
	environmental TEXT NOT NULL DEFAULT '',
	social        TEXT NOT NULL DEFAULT '',
	governance    TEXT NOT NULL DEFAULT '',
	PRIMARY KEY (company, year)
);

CREATE TABLE IF NOT EXISTS board_stats (
	company                   TEXT NOT NULL,
	year                      INTEGER NOT NULL,
	outside_director_ratio    REAL,
	female_director_ratio     REAL,
	largest_shareholder_stake REAL,
	PRIMARY KEY (company, year)
);

CREATE TABLE IF NOT EXISTS environment_stats (
	company            TEXT NOT NULL,
	year               INTEGER NOT NULL,
	investment_ratio   REAL,
	ghg_per_revenue    REAL,
	energy_per_revenue REAL,
	PRIMARY KEY (company, year)
);

CREATE TABLE IF NOT EXISTS risk_stats (
	company            TEXT NOT NULL,
	year               INTEGER NOT NULL,
	sharpe_ratio       REAL,
	mdd                REAL,
	excess_vs_index    REAL,
	excess_vs_industry REAL,
	PRIMARY KEY (company, year)
);

CREATE TABLE IF NOT EXISTS stock_snapshots (
	company        TEXT PRIMARY KEY,
	per            REAL,
	pbr            REAL,
	dividend_yield REAL,
	eps            REAL,
	bps            REAL
);

CREATE TABLE IF NOT EXISTS users (
	id            TEXT PRIMARY KEY,
	email         TEXT NOT NULL UNIQUE,
	password_hash TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS user_favorites (
	user_id TEXT NOT NULL REFERENCES users(id),
	company TEXT NOT NULL,
	PRIMARY KEY (user_id, company)
);

CREATE TABLE IF NOT EXISTS drafts (
	topic      TEXT NOT NULL,
	company    TEXT NOT NULL,
	body       TEXT NOT NULL,
	updated_at DATETIME NOT NULL DEFAULT (datetime('now')),
	PRIMARY KEY (topic, company)
);

CREATE TABLE IF NOT EXISTS guide_chunks (
	topic    TEXT NOT NULL,
	chunk_id TEXT NOT NULL,
	content  TEXT NOT NULL,
	pages    TEXT NOT NULL DEFAULT '[]',
	PRIMARY KEY (topic, chunk_id)
);

CREATE TABLE IF NOT EXISTS guide_tables (
	page INTEGER NOT NULL,
	idx  INTEGER NOT NULL,
	html TEXT NOT NULL,
	text TEXT NOT NULL,
	PRIMARY KEY (page, idx)
);
`

func (s *SQLiteStore) Migrate(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, sqliteMigration)
	return eris.Wrap(err, "sqlite: migrate")
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// placeholders returns "?, ?, ..." with n slots.
func placeholders(n int) string {
	return strings.TrimSuffix(strings.Repeat("?, ", n), ", ")
}

func nameArgs(names []string) []any {
	out := make([]any, len(names))
	for i, n := range names {
		out[i] = NormalizeName(n)
	}
	return out
}

func (s *SQLiteStore) GetClassification(ctx context.Context, company string) (*model.Classification, error) {
	var c model.Classification
	err := s.db.QueryRowContext(ctx,
		`SELECT company, industry_code, industry_name FROM classifications WHERE company = ?`,
		NormalizeName(company),
	).Scan(&c.Company, &c.IndustryCode, &c.IndustryName)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, eris.Wrap(err, "sqlite: get classification")
	}
	return &c, nil
}

func (s *SQLiteStore) ListClassifications(ctx context.Context, industryCode string) ([]model.Classification, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT company, industry_code, industry_name FROM classifications
		 WHERE industry_code = ? ORDER BY company`,
		industryCode,
	)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: list classifications")
	}
	defer rows.Close()

	var out []model.Classification
	for rows.Next() {
		var c model.Classification
		if err := rows.Scan(&c.Company, &c.IndustryCode, &c.IndustryName); err != nil {
			return nil, eris.Wrap(err, "sqlite: scan classification")
		}
		out = append(out, c)
	}
	return out, eris.Wrap(rows.Err(), "sqlite: list classifications rows")
}

func (s *SQLiteStore) ListCompanies(ctx context.Context) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT company FROM classifications ORDER BY company`)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: list companies")
	}
	defer rows.Close()

	var out []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, eris.Wrap(err, "sqlite: scan company")
		}
		out = append(out, name)
	}
	return out, eris.Wrap(rows.Err(), "sqlite: list companies rows")
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanStatementRow(row rowScanner) (*model.Statement, error) {
	var st model.Statement
	err := row.Scan(
		&st.Company, &st.Year,
		&st.DebtRatio, &st.EquityRatio, &st.RetainedEarningsRatio,
		&st.OperatingMargin, &st.NetMargin, &st.ROE, &st.ROA,
		&st.RevenueGrowth, &st.ProfitGrowth, &st.AssetGrowth,
		&st.EPS, &st.FCF, &st.TotalAssets, &st.OperatingProfit,
	)
	if err != nil {
		return nil, err
	}
	cleanStatement(&st)
	return &st, nil
}

func (s *SQLiteStore) GetLatestStatement(ctx context.Context, company string) (*model.Statement, error) {
	st, err := scanStatementRow(s.db.QueryRowContext(ctx,
		`SELECT `+statementColumns+` FROM statements WHERE company = ? ORDER BY year DESC LIMIT 1`,
		NormalizeName(company),
	))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, eris.Wrap(err, "sqlite: get latest statement")
	}
	return st, nil
}

func (s *SQLiteStore) collectStatements(rows *sql.Rows) ([]model.Statement, error) {
	defer rows.Close()
	var out []model.Statement
	for rows.Next() {
		st, err := scanStatementRow(rows)
		if err != nil {
			return nil, eris.Wrap(err, "sqlite: scan statement")
		}
		out = append(out, *st)
	}
	return out, eris.Wrap(rows.Err(), "sqlite: statement rows")
}

// latestStatementsQuery joins each company to its newest year.
const latestStatementsJoin = `
	 FROM statements s
	 JOIN (SELECT company, MAX(year) AS year FROM statements GROUP BY company) m
	   ON s.company = m.company AND s.year = m.year`

func qualifiedStatementColumns() string {
	cols := strings.Split(statementColumns, ",")
	for i, c := range cols {
		cols[i] = "s." + strings.TrimSpace(c)
	}
	return strings.Join(cols, ", ")
}

func (s *SQLiteStore) ListLatestStatements(ctx context.Context, companies []string) ([]model.Statement, error) {
	query := `SELECT ` + qualifiedStatementColumns() + latestStatementsJoin +
		` WHERE s.company IN (` + placeholders(len(companies)) + `) ORDER BY s.company`
	rows, err := s.db.QueryContext(ctx, query, nameArgs(companies)...)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: list latest statements")
	}
	return s.collectStatements(rows)
}

func (s *SQLiteStore) ListStatements(ctx context.Context, companies []string) ([]model.Statement, error) {
	var (
		rows *sql.Rows
		err  error
	)
	if companies == nil {
		rows, err = s.db.QueryContext(ctx,
			`SELECT `+statementColumns+` FROM statements ORDER BY company, year`)
	} else {
		rows, err = s.db.QueryContext(ctx,
			`SELECT `+statementColumns+` FROM statements
			 WHERE company IN (`+placeholders(len(companies))+`) ORDER BY company, year`,
			nameArgs(companies)...,
		)
	}
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: list statements")
	}
	return s.collectStatements(rows)
}

func (s *SQLiteStore) ScreenStatements(ctx context.Context, filter ScreenFilter) ([]model.Statement, error) {
	query := `SELECT ` + qualifiedStatementColumns() + latestStatementsJoin +
		` WHERE s.roe >= ? AND s.debt_ratio <= ? AND s.equity_ratio >= ?` +
		epsCondition(filter.EPS) + ` ORDER BY s.company`

	rows, err := s.db.QueryContext(ctx, query, filter.ROEMin, filter.DebtMax, filter.EquityRatioMin)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: screen statements")
	}
	return s.collectStatements(rows)
}

func (s *SQLiteStore) ListESGRatings(ctx context.Context, companies []string) ([]model.ESGRating, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT company, year, overall, environmental, social, governance
		 FROM esg_ratings WHERE company IN (`+placeholders(len(companies))+`) ORDER BY company, year`,
		nameArgs(companies)...,
	)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: list esg ratings")
	}
	defer rows.Close()

	var out []model.ESGRating
	for rows.Next() {
		var r model.ESGRating
		if err := rows.Scan(&r.Company, &r.Year, &r.Overall, &r.Environmental, &r.Social, &r.Governance); err != nil {
			return nil, eris.Wrap(err, "sqlite: scan esg rating")
		}
		out = append(out, r)
	}
	return out, eris.Wrap(rows.Err(), "sqlite: esg rating rows")
}

func (s *SQLiteStore) ListBoardStats(ctx context.Context, companies []string) ([]model.BoardStat, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT company, year, outside_director_ratio, female_director_ratio, largest_shareholder_stake
		 FROM board_stats WHERE company IN (`+placeholders(len(companies))+`) ORDER BY company, year`,
		nameArgs(companies)...,
	)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: list board stats")
	}
	defer rows.Close()

	var out []model.BoardStat
	for rows.Next() {
		var b model.BoardStat
		if err := rows.Scan(&b.Company, &b.Year, &b.OutsideDirectorRatio, &b.FemaleDirectorRatio, &b.LargestShareholderStake); err != nil {
			return nil, eris.Wrap(err, "sqlite: scan board stat")
		}
		b.OutsideDirectorRatio = model.CleanFloat(b.OutsideDirectorRatio)
		b.FemaleDirectorRatio = model.CleanFloat(b.FemaleDirectorRatio)
		b.LargestShareholderStake = model.CleanFloat(b.LargestShareholderStake)
		out = append(out, b)
	}
	return out, eris.Wrap(rows.Err(), "sqlite: board stat rows")
}

func (s *SQLiteStore) ListEnvironmentStats(ctx context.Context, companies []string) ([]model.EnvironmentStat, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT company, year, investment_ratio, ghg_per_revenue, energy_per_revenue
		 FROM environment_stats WHERE company IN (`+placeholders(len(companies))+`) ORDER BY company, year`,
		nameArgs(companies)...,
	)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: list environment stats")
	}
	defer rows.Close()

	var out []model.EnvironmentStat
	for rows.Next() {
		var e model.EnvironmentStat
		if err := rows.Scan(&e.Company, &e.Year, &e.InvestmentRatio, &e.GHGPerRevenue, &e.EnergyPerRevenue); err != nil {
			return nil, eris.Wrap(err, "sqlite: scan environment stat")
		}
		e.InvestmentRatio = model.CleanFloat(e.InvestmentRatio)
		e.GHGPerRevenue = model.CleanFloat(e.GHGPerRevenue)
		e.EnergyPerRevenue = model.CleanFloat(e.EnergyPerRevenue)
		out = append(out, e)
	}
	return out, eris.Wrap(rows.Err(), "sqlite: environment stat rows")
}

func (s *SQLiteStore) ListRiskStats(ctx context.Context, company string) ([]model.RiskStat, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT company, year, sharpe_ratio, mdd, excess_vs_index, excess_vs_industry
		 FROM risk_stats WHERE company = ? ORDER BY year`,
		NormalizeName(company),
	)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: list risk stats")
	}
	defer rows.Close()

	var out []model.RiskStat
	for rows.Next() {
		var r model.RiskStat
		if err := rows.Scan(&r.Company, &r.Year, &r.SharpeRatio, &r.MDD, &r.ExcessVsIndex, &r.ExcessVsIndustry); err != nil {
			return nil, eris.Wrap(err, "sqlite: scan risk stat")
		}
		r.SharpeRatio = model.CleanFloat(r.SharpeRatio)
		r.MDD = model.CleanFloat(r.MDD)
		r.ExcessVsIndex = model.CleanFloat(r.ExcessVsIndex)
		r.ExcessVsIndustry = model.CleanFloat(r.ExcessVsIndustry)
		out = append(out, r)
	}
	return out, eris.Wrap(rows.Err(), "sqlite: risk stat rows")
}

func (s *SQLiteStore) GetStockSnapshot(ctx context.Context, company string) (*model.StockSnapshot, error) {
	var snap model.StockSnapshot
	err := s.db.QueryRowContext(ctx,
		`SELECT company, per, pbr, dividend_yield, eps, bps FROM stock_snapshots WHERE company = ?`,
		NormalizeName(company),
	).Scan(&snap.Company, &snap.PER, &snap.PBR, &snap.DividendYield, &snap.EPS, &snap.BPS)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, eris.Wrap(err, "sqlite: get stock snapshot")
	}
	cleanSnapshot(&snap)
	return &snap, nil
}

func (s *SQLiteStore) ListStockSnapshots(ctx context.Context, companies []string) ([]model.StockSnapshot, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT company, per, pbr, dividend_yield, eps, bps
		 FROM stock_snapshots WHERE company IN (`+placeholders(len(companies))+`) ORDER BY company`,
		nameArgs(companies)...,
	)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: list stock snapshots")
	}
	defer rows.Close()

	var out []model.StockSnapshot
	for rows.Next() {
		var snap model.StockSnapshot
		if err := rows.Scan(&snap.Company, &snap.PER, &snap.PBR, &snap.DividendYield, &snap.EPS, &snap.BPS); err != nil {
			return nil, eris.Wrap(err, "sqlite: scan stock snapshot")
		}
		cleanSnapshot(&snap)
		out = append(out, snap)
	}
	return out, eris.Wrap(rows.Err(), "sqlite: stock snapshot rows")
}

func (s *SQLiteStore) CreateUser(ctx context.Context, user model.User) error {
	if user.ID == "" {
		user.ID = uuid.New().String()
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO users (id, email, password_hash) VALUES (?, ?, ?)`,
		user.ID, user.Email, user.PasswordHash,
	)
	if err != nil {
		if strings.Contains(err.Error(), "UNIQUE constraint failed") {
			return apperr.InvalidArgumentf("email already registered: %s", user.Email)
		}
		return eris.Wrap(err, "sqlite: create user")
	}
	return nil
}

func (s *SQLiteStore) GetUserByEmail(ctx context.Context, email string) (*model.User, error) {
	var u model.User
	err := s.db.QueryRowContext(ctx,
		`SELECT id, email, password_hash FROM users WHERE email = ?`,
		email,
	).Scan(&u.ID, &u.Email, &u.PasswordHash)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, eris.Wrap(err, "sqlite: get user by email")
	}
	return &u, nil
}

func (s *SQLiteStore) AddFavorite(ctx context.Context, userID, company string) (bool, error) {
	res, err := s.db.ExecContext(ctx,
		`INSERT OR IGNORE INTO user_favorites (user_id, company) VALUES (?, ?)`,
		userID, NormalizeName(company),
	)
	if err != nil {
		return false, eris.Wrap(err, "sqlite: add favorite")
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, eris.Wrap(err, "sqlite: add favorite rows affected")
	}
	return n > 0, nil
}

func (s *SQLiteStore) RemoveFavorite(ctx context.Context, userID, company string) error {
	_, err := s.db.ExecContext(ctx,
		`DELETE FROM user_favorites WHERE user_id = ? AND company = ?`,
		userID, NormalizeName(company),
	)
	return eris.Wrap(err, "sqlite: remove favorite")
}

func (s *SQLiteStore) ListFavorites(ctx context.Context, userID string) ([]string, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT company FROM user_favorites WHERE user_id = ? ORDER BY company`,
		userID,
	)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: list favorites")
	}
	defer rows.Close()

	var out []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, eris.Wrap(err, "sqlite: scan favorite")
		}
		out = append(out, name)
	}
	return out, eris.Wrap(rows.Err(), "sqlite: favorite rows")
}

func (s *SQLiteStore) UpsertDraft(ctx context.Context, draft model.Draft) error {
	if draft.UpdatedAt.IsZero() {
		draft.UpdatedAt = time.Now().UTC()
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO drafts (topic, company, body, updated_at) VALUES (?, ?, ?, ?)
		 ON CONFLICT (topic, company) DO UPDATE SET body = excluded.body, updated_at = excluded.updated_at`,
		draft.Topic, NormalizeName(draft.Company), draft.Body, draft.UpdatedAt,
	)
	return eris.Wrap(err, "sqlite: upsert draft")
}

func (s *SQLiteStore) GetDraft(ctx context.Context, topic, company string) (*model.Draft, error) {
	var d model.Draft
	err := s.db.QueryRowContext(ctx,
		`SELECT topic, company, body, updated_at FROM drafts WHERE topic = ? AND company = ?`,
		topic, NormalizeName(company),
	).Scan(&d.Topic, &d.Company, &d.Body, &d.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, eris.Wrap(err, "sqlite: get draft")
	}
	return &d, nil
}

func (s *SQLiteStore) DeleteDraft(ctx context.Context, topic, company string) (bool, error) {
	res, err := s.db.ExecContext(ctx,
		`DELETE FROM drafts WHERE topic = ? AND company = ?`,
		topic, NormalizeName(company),
	)
	if err != nil {
		return false, eris.Wrap(err, "sqlite: delete draft")
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, eris.Wrap(err, "sqlite: delete draft rows affected")
	}
	return n > 0, nil
}

func (s *SQLiteStore) ListGuideChunks(ctx context.Context, topic string) ([]model.GuideChunk, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT topic, chunk_id, content, pages FROM guide_chunks WHERE topic = ? ORDER BY chunk_id`,
		topic,
	)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: list guide chunks")
	}
	defer rows.Close()

	var out []model.GuideChunk
	for rows.Next() {
		var (
			c         model.GuideChunk
			pagesJSON string
		)
		if err := rows.Scan(&c.Topic, &c.ChunkID, &c.Content, &pagesJSON); err != nil {
			return nil, eris.Wrap(err, "sqlite: scan guide chunk")
		}
		if err := json.Unmarshal([]byte(pagesJSON), &c.Pages); err != nil {
			return nil, eris.Wrap(err, "sqlite: unmarshal chunk pages")
		}
		out = append(out, c)
	}
	return out, eris.Wrap(rows.Err(), "sqlite: guide chunk rows")
}

func (s *SQLiteStore) ListGuideTables(ctx context.Context, pages []int) ([]model.GuideTable, error) {
	if len(pages) == 0 {
		return nil, nil
	}
	args := make([]any, len(pages))
	for i, p := range pages {
		args[i] = p
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT page, idx, html, text FROM guide_tables
		 WHERE page IN (`+placeholders(len(pages))+`) ORDER BY page, idx`,
		args...,
	)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: list guide tables")
	}
	defer rows.Close()

	var out []model.GuideTable
	for rows.Next() {
		var t model.GuideTable
		if err := rows.Scan(&t.Page, &t.Index, &t.HTML, &t.Text); err != nil {
			return nil, eris.Wrap(err, "sqlite: scan guide table")
		}
		out = append(out, t)
	}
	return out, eris.Wrap(rows.Err(), "sqlite: guide table rows")
}

func (s *SQLiteStore) UpsertGuideChunk(ctx context.Context, chunk model.GuideChunk) error {
	pagesJSON, err := json.Marshal(chunk.Pages)
	if err != nil {
		return eris.Wrap(err, "sqlite: marshal chunk pages")
	}
	_, err = s.db.ExecContext(ctx,
		`INSERT INTO guide_chunks (topic, chunk_id, content, pages) VALUES (?, ?, ?, ?)
		 ON CONFLICT (topic, chunk_id) DO UPDATE SET content = excluded.content, pages = excluded.pages`,
		chunk.Topic, chunk.ChunkID, chunk.Content, string(pagesJSON),
	)
	return eris.Wrap(err, "sqlite: upsert guide chunk")
}

func (s *SQLiteStore) UpsertGuideTable(ctx context.Context, table model.GuideTable) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO guide_tables (page, idx, html, text) VALUES (?, ?, ?, ?)
		 ON CONFLICT (page, idx) DO UPDATE SET html = excluded.html, text = excluded.text`,
		table.Page, table.Index, table.HTML, table.Text,
	)
	return eris.Wrap(err, "sqlite: upsert guide table")
}
