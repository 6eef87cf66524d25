package store

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rotisserie/eris"

	"github.com/sells-group/esg-insight/internal/apperr"
	"github.com/sells-group/esg-insight/internal/db"
	"github.com/sells-group/esg-insight/internal/model"
)

// PostgresStore implements Store using pgxpool.
type PostgresStore struct {
	pool    db.Pool
	closeFn func()
}

// PoolConfig holds optional connection pool tuning parameters.
type PoolConfig struct {
	MaxConns int32 `yaml:"max_conns" mapstructure:"max_conns"`
	MinConns int32 `yaml:"min_conns" mapstructure:"min_conns"`
}

const statementColumns = `company, year, debt_ratio, equity_ratio, retained_earnings_ratio,
	operating_margin, net_margin, roe, roa, revenue_growth, profit_growth,
	asset_growth, eps, fcf, total_assets, operating_profit`

// preparedStatements lists queries to prepare on each new connection for
// faster execution of the hottest lookups.
var preparedStatements = map[string]string{
	"get_classification":   `SELECT company, industry_code, industry_name FROM classifications WHERE company = $1`,
	"get_latest_statement": `SELECT ` + statementColumns + ` FROM statements WHERE company = $1 ORDER BY year DESC LIMIT 1`,
	"get_stock_snapshot":   `SELECT company, per, pbr, dividend_yield, eps, bps FROM stock_snapshots WHERE company = $1`,
	"get_user_by_email":    `SELECT id, email, password_hash FROM users WHERE email = $1`,
	"get_draft":            `SELECT topic, company, body, updated_at FROM drafts WHERE topic = $1 AND company = $2`,
}

// NewPostgres creates a PostgresStore with a connection pool.
func NewPostgres(ctx context.Context, connString string, poolCfg *PoolConfig) (*PostgresStore, error) {
	pgxCfg, err := pgxpool.ParseConfig(connString)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: parse config")
	}

	// Apply pool sizing from config with sensible defaults.
	maxConns := int32(10)
	minConns := int32(2)
	if poolCfg != nil {
		if poolCfg.MaxConns > 0 {
			maxConns = poolCfg.MaxConns
		}
		if poolCfg.MinConns > 0 {
			minConns = poolCfg.MinConns
		}
	}
	pgxCfg.MaxConns = maxConns
	pgxCfg.MinConns = minConns
	pgxCfg.MaxConnLifetime = 30 * time.Minute
	pgxCfg.MaxConnIdleTime = 5 * time.Minute

	// Prepare frequently-used statements on each new connection.
	pgxCfg.AfterConnect = func(ctx context.Context, conn *pgx.Conn) error {
		for name, sql := range preparedStatements {
			if _, err := conn.Prepare(ctx, name, sql); err != nil {
				return eris.Wrapf(err, "postgres: prepare %s", name)
			}
		}
		return nil
	}

	pool, err := pgxpool.NewWithConfig(ctx, pgxCfg)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: create pool")
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, eris.Wrap(err, "postgres: ping")
	}
	return &PostgresStore{pool: pool, closeFn: pool.Close}, nil
}

// NewPostgresWithPool wraps an existing pool. Tests use this with pgxmock.
func NewPostgresWithPool(pool db.Pool) *PostgresStore {
	return &PostgresStore{pool: pool, closeFn: pool.Close}
}

// Pool returns the underlying database pool for use by subsystems that need
// direct query access (e.g., the roster loader's bulk upserts).
func (s *PostgresStore) Pool() db.Pool {
	return s.pool
}

const postgresMigration = `
CREATE TABLE IF NOT EXISTS classifications (
	company       TEXT PRIMARY KEY,
	industry_code TEXT NOT NULL,
	industry_name TEXT NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_classifications_industry_code ON classifications(industry_code);

CREATE TABLE IF NOT EXISTS statements (
	company                 TEXT NOT NULL,
	year                    INTEGER NOT NULL,
	debt_ratio              DOUBLE PRECISION,
	equity_ratio            DOUBLE PRECISION,
	retained_earnings_ratio DOUBLE PRECISION,
	operating_margin        DOUBLE PRECISION,
	net_margin              DOUBLE PRECISION,
	roe                     DOUBLE PRECISION,
	roa                     DOUBLE PRECISION,
	revenue_growth          DOUBLE PRECISION,
	profit_growth           DOUBLE PRECISION,
	asset_growth            DOUBLE PRECISION,
	eps                     DOUBLE PRECISION,
	fcf                     DOUBLE PRECISION,
	total_assets            DOUBLE PRECISION,
	operating_profit        DOUBLE PRECISION,
	PRIMARY KEY (company, year)
);

CREATE INDEX IF NOT EXISTS idx_statements_year ON statements(year);

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
	outside_director_ratio    DOUBLE PRECISION,
	female_director_ratio     DOUBLE PRECISION,
	largest_shareholder_stake DOUBLE PRECISION,
	PRIMARY KEY (company, year)
);

CREATE TABLE IF NOT EXISTS environment_stats (
	company            TEXT NOT NULL,
	year               INTEGER NOT NULL,
	investment_ratio   DOUBLE PRECISION,
	ghg_per_revenue    DOUBLE PRECISION,
	energy_per_revenue DOUBLE PRECISION,
	PRIMARY KEY (company, year)
);

CREATE TABLE IF NOT EXISTS risk_stats (
	company            TEXT NOT NULL,
	year               INTEGER NOT NULL,
	sharpe_ratio       DOUBLE PRECISION,
	mdd                DOUBLE PRECISION,
	excess_vs_index    DOUBLE PRECISION,
	excess_vs_industry DOUBLE PRECISION,
	PRIMARY KEY (company, year)
);

CREATE TABLE IF NOT EXISTS stock_snapshots (
	company        TEXT PRIMARY KEY,
	per            DOUBLE PRECISION,
	pbr            DOUBLE PRECISION,
	dividend_yield DOUBLE PRECISION,
	eps            DOUBLE PRECISION,
	bps            DOUBLE PRECISION
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
	updated_at TIMESTAMPTZ NOT NULL DEFAULT now(),
	PRIMARY KEY (topic, company)
);

CREATE TABLE IF NOT EXISTS guide_chunks (
	topic    TEXT NOT NULL,
	chunk_id TEXT NOT NULL,
	content  TEXT NOT NULL,
	pages    JSONB NOT NULL DEFAULT '[]',
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

func (s *PostgresStore) Ping(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, "SELECT 1")
	return eris.Wrap(err, "postgres: ping")
}

func (s *PostgresStore) Migrate(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, postgresMigration)
	return eris.Wrap(err, "postgres: migrate")
}

func (s *PostgresStore) Close() error {
	if s.closeFn != nil {
		s.closeFn()
	}
	return nil
}

func (s *PostgresStore) GetClassification(ctx context.Context, company string) (*model.Classification, error) {
	var c model.Classification
	err := s.pool.QueryRow(ctx,
		`SELECT company, industry_code, industry_name FROM classifications WHERE company = $1`,
		NormalizeName(company),
	).Scan(&c.Company, &c.IndustryCode, &c.IndustryName)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, eris.Wrap(err, "postgres: get classification")
	}
	return &c, nil
}

func (s *PostgresStore) ListClassifications(ctx context.Context, industryCode string) ([]model.Classification, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT company, industry_code, industry_name FROM classifications
		 WHERE industry_code = $1 ORDER BY company`,
		industryCode,
	)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: list classifications")
	}
	defer rows.Close()

	var out []model.Classification
	for rows.Next() {
		var c model.Classification
		if err := rows.Scan(&c.Company, &c.IndustryCode, &c.IndustryName); err != nil {
			return nil, eris.Wrap(err, "postgres: scan classification")
		}
		out = append(out, c)
	}
	return out, eris.Wrap(rows.Err(), "postgres: list classifications rows")
}

func (s *PostgresStore) ListCompanies(ctx context.Context) ([]string, error) {
	rows, err := s.pool.Query(ctx, `SELECT company FROM classifications ORDER BY company`)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: list companies")
	}
	defer rows.Close()

	var out []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, eris.Wrap(err, "postgres: scan company")
		}
		out = append(out, name)
	}
	return out, eris.Wrap(rows.Err(), "postgres: list companies rows")
}

func scanStatement(row pgx.Row) (*model.Statement, error) {
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

// cleanStatement drops non-finite values so they surface as JSON null.
func cleanStatement(st *model.Statement) {
	st.DebtRatio = model.CleanFloat(st.DebtRatio)
	st.EquityRatio = model.CleanFloat(st.EquityRatio)
	st.RetainedEarningsRatio = model.CleanFloat(st.RetainedEarningsRatio)
	st.OperatingMargin = model.CleanFloat(st.OperatingMargin)
	st.NetMargin = model.CleanFloat(st.NetMargin)
	st.ROE = model.CleanFloat(st.ROE)
	st.ROA = model.CleanFloat(st.ROA)
	st.RevenueGrowth = model.CleanFloat(st.RevenueGrowth)
	st.ProfitGrowth = model.CleanFloat(st.ProfitGrowth)
	st.AssetGrowth = model.CleanFloat(st.AssetGrowth)
	st.EPS = model.CleanFloat(st.EPS)
	st.FCF = model.CleanFloat(st.FCF)
	st.TotalAssets = model.CleanFloat(st.TotalAssets)
	st.OperatingProfit = model.CleanFloat(st.OperatingProfit)
}

func (s *PostgresStore) GetLatestStatement(ctx context.Context, company string) (*model.Statement, error) {
	st, err := scanStatement(s.pool.QueryRow(ctx,
		`SELECT `+statementColumns+` FROM statements WHERE company = $1 ORDER BY year DESC LIMIT 1`,
		NormalizeName(company),
	))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, eris.Wrap(err, "postgres: get latest statement")
	}
	return st, nil
}

func (s *PostgresStore) collectStatements(rows pgx.Rows) ([]model.Statement, error) {
	defer rows.Close()
	var out []model.Statement
	for rows.Next() {
		st, err := scanStatement(rows)
		if err != nil {
			return nil, eris.Wrap(err, "postgres: scan statement")
		}
		out = append(out, *st)
	}
	return out, eris.Wrap(rows.Err(), "postgres: statement rows")
}

func (s *PostgresStore) ListLatestStatements(ctx context.Context, companies []string) ([]model.Statement, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT DISTINCT ON (company) `+statementColumns+`
		 FROM statements WHERE company = ANY($1)
		 ORDER BY company, year DESC`,
		normalizeNames(companies),
	)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: list latest statements")
	}
	return s.collectStatements(rows)
}

func (s *PostgresStore) ListStatements(ctx context.Context, companies []string) ([]model.Statement, error) {
	var (
		rows pgx.Rows
		err  error
	)
	if companies == nil {
		rows, err = s.pool.Query(ctx,
			`SELECT `+statementColumns+` FROM statements ORDER BY company, year`)
	} else {
		rows, err = s.pool.Query(ctx,
			`SELECT `+statementColumns+` FROM statements
			 WHERE company = ANY($1) ORDER BY company, year`,
			normalizeNames(companies),
		)
	}
	if err != nil {
		return nil, eris.Wrap(err, "postgres: list statements")
	}
	return s.collectStatements(rows)
}

func (s *PostgresStore) ScreenStatements(ctx context.Context, filter ScreenFilter) ([]model.Statement, error) {
	// Pick the latest statement per company first, then filter. Filtering
	// before DISTINCT ON would admit a stale year whenever the latest one
	// fails a threshold.
	query := `SELECT ` + statementColumns + ` FROM (
		 SELECT DISTINCT ON (company) ` + statementColumns + `
		 FROM statements ORDER BY company, year DESC) latest
		 WHERE roe >= $1 AND debt_ratio <= $2 AND equity_ratio >= $3` +
		epsCondition(filter.EPS) + ` ORDER BY company`

	rows, err := s.pool.Query(ctx, query, filter.ROEMin, filter.DebtMax, filter.EquityRatioMin)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: screen statements")
	}
	return s.collectStatements(rows)
}

// epsCondition renders the EPS rule as a SQL conjunct. Shared by both
// backends.
func epsCondition(rule EPSRule) string {
	switch rule {
	case EPSPositive:
		return ` AND eps > 0`
	case EPSAny:
		return ``
	default:
		return ` AND eps IS NOT NULL`
	}
}

func (s *PostgresStore) ListESGRatings(ctx context.Context, companies []string) ([]model.ESGRating, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT company, year, overall, environmental, social, governance
		 FROM esg_ratings WHERE company = ANY($1) ORDER BY company, year`,
		normalizeNames(companies),
	)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: list esg ratings")
	}
	defer rows.Close()

	var out []model.ESGRating
	for rows.Next() {
		var r model.ESGRating
		if err := rows.Scan(&r.Company, &r.Year, &r.Overall, &r.Environmental, &r.Social, &r.Governance); err != nil {
			return nil, eris.Wrap(err, "postgres: scan esg rating")
		}
		out = append(out, r)
	}
	return out, eris.Wrap(rows.Err(), "postgres: esg rating rows")
}

func (s *PostgresStore) ListBoardStats(ctx context.Context, companies []string) ([]model.BoardStat, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT company, year, outside_director_ratio, female_director_ratio, largest_shareholder_stake
		 FROM board_stats WHERE company = ANY($1) ORDER BY company, year`,
		normalizeNames(companies),
	)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: list board stats")
	}
	defer rows.Close()

	var out []model.BoardStat
	for rows.Next() {
		var b model.BoardStat
		if err := rows.Scan(&b.Company, &b.Year, &b.OutsideDirectorRatio, &b.FemaleDirectorRatio, &b.LargestShareholderStake); err != nil {
			return nil, eris.Wrap(err, "postgres: scan board stat")
		}
		b.OutsideDirectorRatio = model.CleanFloat(b.OutsideDirectorRatio)
		b.FemaleDirectorRatio = model.CleanFloat(b.FemaleDirectorRatio)
		b.LargestShareholderStake = model.CleanFloat(b.LargestShareholderStake)
		out = append(out, b)
	}
	return out, eris.Wrap(rows.Err(), "postgres: board stat rows")
}

func (s *PostgresStore) ListEnvironmentStats(ctx context.Context, companies []string) ([]model.EnvironmentStat, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT company, year, investment_ratio, ghg_per_revenue, energy_per_revenue
		 FROM environment_stats WHERE company = ANY($1) ORDER BY company, year`,
		normalizeNames(companies),
	)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: list environment stats")
	}
	defer rows.Close()

	var out []model.EnvironmentStat
	for rows.Next() {
		var e model.EnvironmentStat
		if err := rows.Scan(&e.Company, &e.Year, &e.InvestmentRatio, &e.GHGPerRevenue, &e.EnergyPerRevenue); err != nil {
			return nil, eris.Wrap(err, "postgres: scan environment stat")
		}
		e.InvestmentRatio = model.CleanFloat(e.InvestmentRatio)
		e.GHGPerRevenue = model.CleanFloat(e.GHGPerRevenue)
		e.EnergyPerRevenue = model.CleanFloat(e.EnergyPerRevenue)
		out = append(out, e)
	}
	return out, eris.Wrap(rows.Err(), "postgres: environment stat rows")
}

func (s *PostgresStore) ListRiskStats(ctx context.Context, company string) ([]model.RiskStat, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT company, year, sharpe_ratio, mdd, excess_vs_index, excess_vs_industry
		 FROM risk_stats WHERE company = $1 ORDER BY year`,
		NormalizeName(company),
	)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: list risk stats")
	}
	defer rows.Close()

	var out []model.RiskStat
	for rows.Next() {
		var r model.RiskStat
		if err := rows.Scan(&r.Company, &r.Year, &r.SharpeRatio, &r.MDD, &r.ExcessVsIndex, &r.ExcessVsIndustry); err != nil {
			return nil, eris.Wrap(err, "postgres: scan risk stat")
		}
		r.SharpeRatio = model.CleanFloat(r.SharpeRatio)
		r.MDD = model.CleanFloat(r.MDD)
		r.ExcessVsIndex = model.CleanFloat(r.ExcessVsIndex)
		r.ExcessVsIndustry = model.CleanFloat(r.ExcessVsIndustry)
		out = append(out, r)
	}
	return out, eris.Wrap(rows.Err(), "postgres: risk stat rows")
}

func (s *PostgresStore) GetStockSnapshot(ctx context.Context, company string) (*model.StockSnapshot, error) {
	var snap model.StockSnapshot
	err := s.pool.QueryRow(ctx,
		`SELECT company, per, pbr, dividend_yield, eps, bps FROM stock_snapshots WHERE company = $1`,
		NormalizeName(company),
	).Scan(&snap.Company, &snap.PER, &snap.PBR, &snap.DividendYield, &snap.EPS, &snap.BPS)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, eris.Wrap(err, "postgres: get stock snapshot")
	}
	cleanSnapshot(&snap)
	return &snap, nil
}

func cleanSnapshot(snap *model.StockSnapshot) {
	snap.PER = model.CleanFloat(snap.PER)
	snap.PBR = model.CleanFloat(snap.PBR)
	snap.DividendYield = model.CleanFloat(snap.DividendYield)
	snap.EPS = model.CleanFloat(snap.EPS)
	snap.BPS = model.CleanFloat(snap.BPS)
}

func (s *PostgresStore) ListStockSnapshots(ctx context.Context, companies []string) ([]model.StockSnapshot, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT company, per, pbr, dividend_yield, eps, bps
		 FROM stock_snapshots WHERE company = ANY($1) ORDER BY company`,
		normalizeNames(companies),
	)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: list stock snapshots")
	}
	defer rows.Close()

	var out []model.StockSnapshot
	for rows.Next() {
		var snap model.StockSnapshot
		if err := rows.Scan(&snap.Company, &snap.PER, &snap.PBR, &snap.DividendYield, &snap.EPS, &snap.BPS); err != nil {
			return nil, eris.Wrap(err, "postgres: scan stock snapshot")
		}
		cleanSnapshot(&snap)
		out = append(out, snap)
	}
	return out, eris.Wrap(rows.Err(), "postgres: stock snapshot rows")
}

func (s *PostgresStore) CreateUser(ctx context.Context, user model.User) error {
	if user.ID == "" {
		user.ID = uuid.New().String()
	}
	_, err := s.pool.Exec(ctx,
		`INSERT INTO users (id, email, password_hash) VALUES ($1, $2, $3)`,
		user.ID, user.Email, user.PasswordHash,
	)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return apperr.InvalidArgumentf("email already registered: %s", user.Email)
		}
		return eris.Wrap(err, "postgres: create user")
	}
	return nil
}

func (s *PostgresStore) GetUserByEmail(ctx context.Context, email string) (*model.User, error) {
	var u model.User
	err := s.pool.QueryRow(ctx,
		`SELECT id, email, password_hash FROM users WHERE email = $1`,
		email,
	).Scan(&u.ID, &u.Email, &u.PasswordHash)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, eris.Wrap(err, "postgres: get user by email")
	}
	return &u, nil
}

func (s *PostgresStore) AddFavorite(ctx context.Context, userID, company string) (bool, error) {
	tag, err := s.pool.Exec(ctx,
		`INSERT INTO user_favorites (user_id, company) VALUES ($1, $2) ON CONFLICT DO NOTHING`,
		userID, NormalizeName(company),
	)
	if err != nil {
		return false, eris.Wrap(err, "postgres: add favorite")
	}
	return tag.RowsAffected() > 0, nil
}

func (s *PostgresStore) RemoveFavorite(ctx context.Context, userID, company string) error {
	_, err := s.pool.Exec(ctx,
		`DELETE FROM user_favorites WHERE user_id = $1 AND company = $2`,
		userID, NormalizeName(company),
	)
	return eris.Wrap(err, "postgres: remove favorite")
}

func (s *PostgresStore) ListFavorites(ctx context.Context, userID string) ([]string, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT company FROM user_favorites WHERE user_id = $1 ORDER BY company`,
		userID,
	)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: list favorites")
	}
	defer rows.Close()

	var out []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, eris.Wrap(err, "postgres: scan favorite")
		}
		out = append(out, name)
	}
	return out, eris.Wrap(rows.Err(), "postgres: favorite rows")
}

func (s *PostgresStore) UpsertDraft(ctx context.Context, draft model.Draft) error {
	if draft.UpdatedAt.IsZero() {
		draft.UpdatedAt = time.Now().UTC()
	}
	_, err := s.pool.Exec(ctx,
		`INSERT INTO drafts (topic, company, body, updated_at) VALUES ($1, $2, $3, $4)
		 ON CONFLICT (topic, company) DO UPDATE SET body = EXCLUDED.body, updated_at = EXCLUDED.updated_at`,
		draft.Topic, NormalizeName(draft.Company), draft.Body, draft.UpdatedAt,
	)
	return eris.Wrap(err, "postgres: upsert draft")
}

func (s *PostgresStore) GetDraft(ctx context.Context, topic, company string) (*model.Draft, error) {
	var d model.Draft
	err := s.pool.QueryRow(ctx,
		`SELECT topic, company, body, updated_at FROM drafts WHERE topic = $1 AND company = $2`,
		topic, NormalizeName(company),
	).Scan(&d.Topic, &d.Company, &d.Body, &d.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, eris.Wrap(err, "postgres: get draft")
	}
	return &d, nil
}

func (s *PostgresStore) DeleteDraft(ctx context.Context, topic, company string) (bool, error) {
	tag, err := s.pool.Exec(ctx,
		`DELETE FROM drafts WHERE topic = $1 AND company = $2`,
		topic, NormalizeName(company),
	)
	if err != nil {
		return false, eris.Wrap(err, "postgres: delete draft")
	}
	return tag.RowsAffected() > 0, nil
}

func (s *PostgresStore) ListGuideChunks(ctx context.Context, topic string) ([]model.GuideChunk, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT topic, chunk_id, content, pages FROM guide_chunks WHERE topic = $1 ORDER BY chunk_id`,
		topic,
	)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: list guide chunks")
	}
	defer rows.Close()

	var out []model.GuideChunk
	for rows.Next() {
		var (
			c         model.GuideChunk
			pagesJSON []byte
		)
		if err := rows.Scan(&c.Topic, &c.ChunkID, &c.Content, &pagesJSON); err != nil {
			return nil, eris.Wrap(err, "postgres: scan guide chunk")
		}
		if err := json.Unmarshal(pagesJSON, &c.Pages); err != nil {
			return nil, eris.Wrap(err, "postgres: unmarshal chunk pages")
		}
		out = append(out, c)
	}
	return out, eris.Wrap(rows.Err(), "postgres: guide chunk rows")
}

func (s *PostgresStore) ListGuideTables(ctx context.Context, pages []int) ([]model.GuideTable, error) {
	if len(pages) == 0 {
		return nil, nil
	}
	rows, err := s.pool.Query(ctx,
		`SELECT page, idx, html, text FROM guide_tables WHERE page = ANY($1) ORDER BY page, idx`,
		pages,
	)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: list guide tables")
	}
	defer rows.Close()

	var out []model.GuideTable
	for rows.Next() {
		var t model.GuideTable
		if err := rows.Scan(&t.Page, &t.Index, &t.HTML, &t.Text); err != nil {
			return nil, eris.Wrap(err, "postgres: scan guide table")
		}
		out = append(out, t)
	}
	return out, eris.Wrap(rows.Err(), "postgres: guide table rows")
}

func (s *PostgresStore) UpsertGuideChunk(ctx context.Context, chunk model.GuideChunk) error {
	pagesJSON, err := json.Marshal(chunk.Pages)
	if err != nil {
		return eris.Wrap(err, "postgres: marshal chunk pages")
	}
	_, err = s.pool.Exec(ctx,
		`INSERT INTO guide_chunks (topic, chunk_id, content, pages) VALUES ($1, $2, $3, $4)
		 ON CONFLICT (topic, chunk_id) DO UPDATE SET content = EXCLUDED.content, pages = EXCLUDED.pages`,
		chunk.Topic, chunk.ChunkID, chunk.Content, pagesJSON,
	)
	return eris.Wrap(err, "postgres: upsert guide chunk")
}

func (s *PostgresStore) UpsertGuideTable(ctx context.Context, table model.GuideTable) error {
	_, err := s.pool.Exec(ctx,
		`INSERT INTO guide_tables (page, idx, html, text) VALUES ($1, $2, $3, $4)
		 ON CONFLICT (page, idx) DO UPDATE SET html = EXCLUDED.html, text = EXCLUDED.text`,
		table.Page, table.Index, table.HTML, table.Text,
	)
	return eris.Wrap(err, "postgres: upsert guide table")
}

// normalizeNames folds every name for exact-match cohort queries.
func normalizeNames(names []string) []string {
	out := make([]string, len(names))
	for i, n := range names {
		out[i] = NormalizeName(n)
	}
	return out
}
