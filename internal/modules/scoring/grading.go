package scoring

import "github.com/aristath/factorlab/internal/modules/ic"

// Grade is an ordinal factor grade, A (best) through F (worst).
type Grade string

const (
	GradeA Grade = "A"
	GradeB Grade = "B"
	GradeC Grade = "C"
	GradeD Grade = "D"
	GradeF Grade = "F"
)

// rank orders grades for downgrade-only comparisons; higher is worse.
func (g Grade) rank() int {
	switch g {
	case GradeA:
		return 0
	case GradeB:
		return 1
	case GradeC:
		return 2
	case GradeD:
		return 3
	default:
		return 4
	}
}

// WorseOrEqual reports whether g is the same tier as other or below it.
func (g Grade) WorseOrEqual(other Grade) bool { return g.rank() >= other.rank() }

// downgradeRule is one guarded override: when the predicate holds for the
// current grade, the grade drops to the target. Overrides never upgrade.
type downgradeRule struct {
	applies func(g Grade, st ic.Stats) bool
	target  Grade
}

// downgradeRules is the ordered override chain applied after the base
// mapping. A statistically thin edge must not rank top-tier no matter how
// well the composite score came out.
var downgradeRules = []downgradeRule{
	// No measurable predictive strength at all: bottom tier, always.
	{func(g Grade, st ic.Stats) bool { return st.AbsMean < 0.005 }, GradeF},
	// Weak strength cannot hold either of the top two tiers.
	{func(g Grade, st ic.Stats) bool { return st.AbsMean < 0.02 && g.rank() <= GradeB.rank() }, GradeC},
	// Moderate strength cannot hold the top tier.
	{func(g Grade, st ic.Stats) bool { return st.AbsMean < 0.03 && g == GradeA }, GradeB},
	// Thin samples cannot hold the top tier.
	{func(g Grade, st ic.Stats) bool { return st.SampleCount < 250 && g == GradeA }, GradeB},
	// Moderately thin samples need exceptional strength to keep the top tier.
	{func(g Grade, st ic.Stats) bool {
		return st.SampleCount < 375 && g == GradeA && st.AbsMean < 0.06
	}, GradeB},
}

// AssignGrade maps a total score to its base tier, then applies the
// forced-downgrade chain in order. Each rule can only move the grade
// down; the result is deterministic in (score, IC stats).
func AssignGrade(totalScore float64, st ic.Stats, t GradeThresholds) Grade {
	grade := baseGrade(totalScore, t)
	for _, rule := range downgradeRules {
		if rule.applies(grade, st) && rule.target.rank() > grade.rank() {
			grade = rule.target
		}
	}
	return grade
}

func baseGrade(totalScore float64, t GradeThresholds) Grade {
	switch {
	case totalScore >= t.A:
		return GradeA
	case totalScore >= t.B:
		return GradeB
	case totalScore >= t.C:
		return GradeC
	case totalScore >= t.D:
		return GradeD
	default:
		return GradeF
	}
}
