package cohort

import (
	"sort"

	"github.com/sells-group/esg-insight/internal/apperr"
	"github.com/sells-group/esg-insight/internal/model"
)

// Score pairs a cohort member with its comparable score. A nil score means
// the member could not be scored and is excluded before ranking.
type Score struct {
	Company string
	Value   *float64
}

// Ranking is the outcome of placing one company within its cohort.
type Ranking struct {
	Value      float64
	Rank       int
	Total      int
	Percentile float64
}

// Rank sorts the cohort descending by score and locates the target.
//
// The percentile convention is (total - rank + 1) / total * 100, rounded to
// two decimals: rank 1 maps to 100 and the bottom entry to 100/total, never
// zero. Ties keep insertion order (stable sort), matching the stored data's
// established ordering.
func Rank(cohort []Score, target string) (Ranking, error) {
	scored := make([]Score, 0, len(cohort))
	for _, s := range cohort {
		if model.CleanFloat(s.Value) != nil {
			scored = append(scored, s)
		}
	}

	total := len(scored)
	if total == 0 {
		return Ranking{}, apperr.NotFound("no usable scores in cohort")
	}

	sort.SliceStable(scored, func(i, j int) bool {
		return *scored[i].Value > *scored[j].Value
	})

	for i, s := range scored {
		if s.Company == target {
			rank := i + 1
			return Ranking{
				Value:      *s.Value,
				Rank:       rank,
				Total:      total,
				Percentile: round(float64(total-rank+1)/float64(total)*100, 2),
			}, nil
		}
	}
	return Ranking{}, apperr.NotFoundf("company %q not ranked in cohort", target)
}

// YearAverage is one year of an industry-average series.
type YearAverage struct {
	Year    int     `json:"year"`
	Average float64 `json:"average"`
}

// AverageByYear computes per-year arithmetic means over raw values, skipping
// nil and non-finite entries entirely (they are absent, not zero). Years
// with no usable value are omitted. Output is ascending by year.
func AverageByYear(values map[int][]*float64) []YearAverage {
	out := make([]YearAverage, 0, len(values))
	for year, vs := range values {
		var sum float64
		var n int
		for _, v := range vs {
			if cv := model.CleanFloat(v); cv != nil {
				sum += *cv
				n++
			}
		}
		if n == 0 {
			continue
		}
		out = append(out, YearAverage{Year: year, Average: round(sum/float64(n), 2)})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Year < out[j].Year })
	return out
}

// Mean averages the non-nil, finite entries of vs, rounded to two decimals.
// Returns nil when nothing is usable.
func Mean(vs []*float64) *float64 {
	var sum float64
	var n int
	for _, v := range vs {
		if cv := model.CleanFloat(v); cv != nil {
			sum += *cv
			n++
		}
	}
	if n == 0 {
		return nil
	}
	return model.Float(round(sum/float64(n), 2))
}
