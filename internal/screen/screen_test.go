package screen

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/esg-insight/internal/apperr"
	"github.com/sells-group/esg-insight/internal/cohort"
	"github.com/sells-group/esg-insight/internal/model"
	"github.com/sells-group/esg-insight/internal/store"
)

type fakeReader struct {
	statements []model.Statement
	snapshots  []model.StockSnapshot
	ratings    []model.ESGRating
	gotFilter  store.ScreenFilter
}

func (f *fakeReader) ScreenStatements(_ context.Context, filter store.ScreenFilter) ([]model.Statement, error) {
	f.gotFilter = filter
	return f.statements, nil
}

func (f *fakeReader) ListStockSnapshots(_ context.Context, _ []string) ([]model.StockSnapshot, error) {
	return f.snapshots, nil
}

func (f *fakeReader) ListESGRatings(_ context.Context, _ []string) ([]model.ESGRating, error) {
	return f.ratings, nil
}

func candidates() []model.Statement {
	return []model.Statement{
		{Company: "AlphaChem", Year: 2023, ROE: model.Float(12), EPS: model.Float(900)},
		{Company: "BetaChem", Year: 2023, ROE: model.Float(8), EPS: model.Float(300)},
	}
}

func TestScreen_ForwardsThresholds(t *testing.T) {
	reader := &fakeReader{statements: candidates()}
	svc := NewService(reader, cohort.DefaultTables())

	results, err := svc.Screen(context.Background(), Criteria{ROEMin: 5, DebtMax: 200, EquityRatioMin: 30})
	require.NoError(t, err)
	assert.Len(t, results, 2)
	assert.InDelta(t, 5.0, reader.gotFilter.ROEMin, 1e-9)
	assert.InDelta(t, 200.0, reader.gotFilter.DebtMax, 1e-9)
	assert.Equal(t, store.EPSNonNull, reader.gotFilter.EPS)
}

func TestScreen_ValuationCeilings(t *testing.T) {
	reader := &fakeReader{
		statements: candidates(),
		snapshots: []model.StockSnapshot{
			{Company: "AlphaChem", PER: model.Float(9), PBR: model.Float(0.8)},
			{Company: "BetaChem", PER: model.Float(25)},
		},
	}
	svc := NewService(reader, cohort.DefaultTables())

	results, err := svc.Screen(context.Background(), Criteria{PERMax: model.Float(10)})
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, "AlphaChem", results[0].Company)
}

func TestScreen_CeilingExcludesMissingValue(t *testing.T) {
	// Neither company has a snapshot, so a PER ceiling excludes both.
	reader := &fakeReader{statements: candidates()}
	svc := NewService(reader, cohort.DefaultTables())

	results, err := svc.Screen(context.Background(), Criteria{PERMax: model.Float(10)})
	require.NoError(t, err)
	assert.Empty(t, results)
}

func TestScreen_DividendFloor(t *testing.T) {
	reader := &fakeReader{
		statements: candidates(),
		snapshots: []model.StockSnapshot{
			{Company: "AlphaChem", DividendYield: model.Float(3.2)},
			{Company: "BetaChem", DividendYield: model.Float(0.5)},
		},
	}
	svc := NewService(reader, cohort.DefaultTables())

	results, err := svc.Screen(context.Background(), Criteria{DividendMin: model.Float(2)})
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, "AlphaChem", results[0].Company)
}

func TestScreen_MinGradeUsesLatestRating(t *testing.T) {
	reader := &fakeReader{
		statements: candidates(),
		ratings: []model.ESGRating{
			{Company: "AlphaChem", Year: 2022, Overall: "B"},
			{Company: "AlphaChem", Year: 2023, Overall: "A"},
			{Company: "BetaChem", Year: 2023, Overall: "B+"},
		},
	}
	svc := NewService(reader, cohort.DefaultTables())

	results, err := svc.Screen(context.Background(), Criteria{MinGrade: "A"})
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, "AlphaChem", results[0].Company)
	assert.Equal(t, "A", results[0].Overall)
}

func TestScreen_UnratedExcludedByGradeFloor(t *testing.T) {
	reader := &fakeReader{statements: candidates()}
	svc := NewService(reader, cohort.DefaultTables())

	results, err := svc.Screen(context.Background(), Criteria{MinGrade: "B"})
	require.NoError(t, err)
	assert.Empty(t, results)
}

func TestScreen_FocusFlags(t *testing.T) {
	reader := &fakeReader{
		statements: candidates(),
		ratings: []model.ESGRating{
			{Company: "AlphaChem", Year: 2023, Overall: "A", Environmental: "A+"},
			{Company: "BetaChem", Year: 2023, Overall: "A", Environmental: "B"},
		},
	}
	svc := NewService(reader, cohort.DefaultTables())

	results, err := svc.Screen(context.Background(), Criteria{EnvFocus: true})
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, "AlphaChem", results[0].Company)
}

func TestScreen_UnknownGrade(t *testing.T) {
	svc := NewService(&fakeReader{}, cohort.DefaultTables())

	_, err := svc.Screen(context.Background(), Criteria{MinGrade: "Z"})
	assert.ErrorIs(t, err, apperr.ErrInvalidArgument)
}

func TestScreen_NoCandidates(t *testing.T) {
	svc := NewService(&fakeReader{}, cohort.DefaultTables())

	results, err := svc.Screen(context.Background(), Criteria{})
	require.NoError(t, err)
	assert.NotNil(t, results)
	assert.Empty(t, results)
}
