package cohort

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/esg-insight/internal/apperr"
	"github.com/sells-group/esg-insight/internal/model"
)

func TestRank_DebtRatioScenario(t *testing.T) {
	// Cohort from tier scores of debt ratios {A:80, B:150, C:250}, scoring {3, 2, 1}.
	cohort := []Score{
		{Company: "A", Value: model.Float(3)},
		{Company: "B", Value: model.Float(2)},
		{Company: "C", Value: model.Float(1)},
	}

	r, err := Rank(cohort, "B")
	require.NoError(t, err)
	assert.Equal(t, 2, r.Rank)
	assert.Equal(t, 3, r.Total)
	assert.Equal(t, 66.67, r.Percentile)
	assert.Equal(t, 2.0, r.Value)
}

func TestRank_TopGetsHundred(t *testing.T) {
	cohort := []Score{
		{Company: "A", Value: model.Float(9)},
		{Company: "B", Value: model.Float(5)},
	}
	r, err := Rank(cohort, "A")
	require.NoError(t, err)
	assert.Equal(t, 1, r.Rank)
	assert.Equal(t, 100.0, r.Percentile)
}

func TestRank_BottomNeverZero(t *testing.T) {
	cohort := []Score{
		{Company: "A", Value: model.Float(9)},
		{Company: "B", Value: model.Float(5)},
		{Company: "C", Value: model.Float(1)},
		{Company: "D", Value: model.Float(0)},
	}
	r, err := Rank(cohort, "D")
	require.NoError(t, err)
	assert.Equal(t, 4, r.Rank)
	assert.Equal(t, 25.0, r.Percentile)
	assert.Greater(t, r.Percentile, 0.0)
}

func TestRank_NilScoresExcluded(t *testing.T) {
	nan := math.NaN()
	cohort := []Score{
		{Company: "A", Value: model.Float(9)},
		{Company: "B", Value: nil},
		{Company: "C", Value: &nan},
		{Company: "D", Value: model.Float(5)},
	}
	r, err := Rank(cohort, "D")
	require.NoError(t, err)
	assert.Equal(t, 2, r.Total, "nil and NaN entries must not count")
	assert.Equal(t, 2, r.Rank)
}

func TestRank_EmptyCohort(t *testing.T) {
	_, err := Rank(nil, "A")
	assert.ErrorIs(t, err, apperr.ErrNotFound)

	// All entries unscorable: the guard must fire, not a division fault.
	_, err = Rank([]Score{{Company: "A", Value: nil}}, "A")
	assert.ErrorIs(t, err, apperr.ErrNotFound)
}

func TestRank_TargetAbsent(t *testing.T) {
	cohort := []Score{{Company: "A", Value: model.Float(1)}}
	_, err := Rank(cohort, "Z")
	assert.ErrorIs(t, err, apperr.ErrNotFound)
}

func TestRank_TiesKeepInsertionOrder(t *testing.T) {
	cohort := []Score{
		{Company: "A", Value: model.Float(2)},
		{Company: "B", Value: model.Float(2)},
		{Company: "C", Value: model.Float(2)},
	}
	rA, err := Rank(cohort, "A")
	require.NoError(t, err)
	rB, err := Rank(cohort, "B")
	require.NoError(t, err)
	assert.Equal(t, 1, rA.Rank)
	assert.Equal(t, 2, rB.Rank)
}

func TestRank_Idempotent(t *testing.T) {
	cohort := []Score{
		{Company: "A", Value: model.Float(7)},
		{Company: "B", Value: model.Float(3)},
		{Company: "C", Value: model.Float(5)},
	}
	first, err := Rank(cohort, "C")
	require.NoError(t, err)
	second, err := Rank(cohort, "C")
	require.NoError(t, err)
	assert.Equal(t, first, second)
}

func TestAverageByYear_SkipsNonFinite(t *testing.T) {
	nan := math.NaN()
	avgs := AverageByYear(map[int][]*float64{
		2023: {model.Float(1), model.Float(2), &nan},
		2024: {model.Float(4), nil},
		2022: {nil, &nan},
	})

	// 2022 has no usable value and is dropped; output ascends by year.
	require.Len(t, avgs, 2)
	assert.Equal(t, YearAverage{Year: 2023, Average: 1.5}, avgs[0])
	assert.Equal(t, YearAverage{Year: 2024, Average: 4.0}, avgs[1])
}

func TestMean(t *testing.T) {
	nan := math.NaN()
	assert.Nil(t, Mean(nil))
	assert.Nil(t, Mean([]*float64{nil, &nan}))

	m := Mean([]*float64{model.Float(1), model.Float(2), &nan})
	require.NotNil(t, m)
	assert.Equal(t, 1.5, *m)
}
