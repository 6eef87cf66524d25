// Package store provides persistence for the analytics and drafting
// services, with Postgres (pgxpool) and SQLite (modernc) backends.
package store

import (
	"context"
	"strings"

	"golang.org/x/text/unicode/norm"
	"golang.org/x/text/width"

	"github.com/sells-group/esg-insight/internal/model"
)

// EPSRule selects how screening treats the EPS column.
type EPSRule int

const (
	// EPSNonNull requires an EPS value to be reported; the sign is free.
	EPSNonNull EPSRule = iota
	// EPSPositive requires a strictly positive EPS.
	EPSPositive
	// EPSAny places no condition on EPS, reported or not.
	EPSAny
)

// ScreenFilter holds the statement-level screening criteria that are pushed
// down into SQL. The handler fills every threshold (defaults included), so
// the store applies them unconditionally. Only a company's latest statement
// is screened; rows missing any filtered metric never match.
type ScreenFilter struct {
	ROEMin         float64
	DebtMax        float64
	EquityRatioMin float64
	EPS            EPSRule
}

// Store is the persistence interface shared by both services. Analytics
// reads are exact-match lookups over read-only projections; the only write
// paths are users, favorites, and drafts.
type Store interface {
	// Classifications
	GetClassification(ctx context.Context, company string) (*model.Classification, error)
	ListClassifications(ctx context.Context, industryCode string) ([]model.Classification, error)
	ListCompanies(ctx context.Context) ([]string, error)

	// Financial statements
	GetLatestStatement(ctx context.Context, company string) (*model.Statement, error)
	ListLatestStatements(ctx context.Context, companies []string) ([]model.Statement, error)
	// ListStatements returns every yearly statement for the named companies;
	// nil selects all companies.
	ListStatements(ctx context.Context, companies []string) ([]model.Statement, error)
	ScreenStatements(ctx context.Context, filter ScreenFilter) ([]model.Statement, error)

	// ESG ratings and supplementary series
	ListESGRatings(ctx context.Context, companies []string) ([]model.ESGRating, error)
	ListBoardStats(ctx context.Context, companies []string) ([]model.BoardStat, error)
	ListEnvironmentStats(ctx context.Context, companies []string) ([]model.EnvironmentStat, error)
	ListRiskStats(ctx context.Context, company string) ([]model.RiskStat, error)

	// Stock snapshots
	GetStockSnapshot(ctx context.Context, company string) (*model.StockSnapshot, error)
	ListStockSnapshots(ctx context.Context, companies []string) ([]model.StockSnapshot, error)

	// Users and favorites
	CreateUser(ctx context.Context, user model.User) error
	GetUserByEmail(ctx context.Context, email string) (*model.User, error)
	AddFavorite(ctx context.Context, userID, company string) (bool, error)
	RemoveFavorite(ctx context.Context, userID, company string) error
	ListFavorites(ctx context.Context, userID string) ([]string, error)

	// Report drafts and guide corpus
	UpsertDraft(ctx context.Context, draft model.Draft) error
	GetDraft(ctx context.Context, topic, company string) (*model.Draft, error)
	DeleteDraft(ctx context.Context, topic, company string) (bool, error)
	ListGuideChunks(ctx context.Context, topic string) ([]model.GuideChunk, error)
	ListGuideTables(ctx context.Context, pages []int) ([]model.GuideTable, error)
	UpsertGuideChunk(ctx context.Context, chunk model.GuideChunk) error
	UpsertGuideTable(ctx context.Context, table model.GuideTable) error

	// Lifecycle
	Migrate(ctx context.Context) error
	Close() error
}

// NormalizeName folds a company name to its canonical stored form: NFC
// composition, full-width to half-width folding, trimmed whitespace.
// Lookups are otherwise case-and-spelling exact.
func NormalizeName(name string) string {
	return strings.TrimSpace(width.Fold.String(norm.NFC.String(name)))
}
