package cohort

import (
	"math"

	"github.com/sells-group/esg-insight/internal/model"
)

// GradeScore converts an ESG letter grade to its 1-7 integer score.
// Unknown or empty grades return false: the company simply cannot be scored
// on that field, it does not score zero.
func (t Tables) GradeScore(grade string) (int, bool) {
	s, ok := t.Grades[grade]
	return s, ok
}

// TierScore converts a raw ratio into a 1-3 tier score using the metric's
// threshold rule. Non-finite values and metrics without a rule return false.
func (t Tables) TierScore(metric string, value float64) (int, bool) {
	if math.IsNaN(value) || math.IsInf(value, 0) {
		return 0, false
	}
	rule, ok := t.Tiers[metric]
	if !ok {
		return 0, false
	}
	switch rule.kind {
	case tierDescending:
		switch {
		case value <= rule.good:
			return 3, true
		case value <= rule.fair:
			return 2, true
		default:
			return 1, true
		}
	case tierPositive:
		if value > 0 {
			return 3, true
		}
		return 1, true
	default:
		switch {
		case value >= rule.good:
			return 3, true
		case value >= rule.fair:
			return 2, true
		default:
			return 1, true
		}
	}
}

// KnownCategory reports whether name is a configured scoring category.
func (t Tables) KnownCategory(name string) bool {
	_, ok := t.Categories[name]
	return ok
}

// CategoryScore averages the tier scores of a statement's metrics belonging
// to the named category. Metrics with no value are skipped; when none are
// present the composite is nil and the company is excluded from ranking.
func (t Tables) CategoryScore(stmt *model.Statement, category string) *float64 {
	keys, ok := t.Categories[category]
	if !ok || stmt == nil {
		return nil
	}

	var sum, n float64
	for _, key := range keys {
		v := model.CleanFloat(stmt.Metric(key))
		if v == nil {
			continue
		}
		if score, ok := t.TierScore(key, *v); ok {
			sum += float64(score)
			n++
		}
	}
	if n == 0 {
		return nil
	}
	return model.Float(round(sum/n, 4))
}

func round(v float64, places int) float64 {
	shift := math.Pow(10, float64(places))
	return math.Round(v*shift) / shift
}
