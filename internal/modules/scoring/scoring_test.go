package scoring

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aristath/factorlab/internal/modules/ic"
	"github.com/aristath/factorlab/internal/modules/statistics"
)

func TestWeights_Validate(t *testing.T) {
	assert.NoError(t, DefaultWeights().Validate())

	bad := DefaultWeights()
	bad.IC = 0.5 // total now 1.10
	assert.Error(t, bad.Validate())
}

func TestConfig_Validate(t *testing.T) {
	assert.NoError(t, DefaultConfig().Validate())

	subWeights := DefaultConfig()
	subWeights.ICStrengthWeight = 0.9
	assert.Error(t, subWeights.Validate())

	thresholds := DefaultConfig()
	thresholds.GradeThresholds.B = 0.80 // above A
	assert.Error(t, thresholds.Validate())
}

func TestStrengthScore_Breakpoints(t *testing.T) {
	thr := DefaultICThresholds()
	cases := []struct {
		absMean float64
		want    float64
	}{
		{0.10, 1.0},
		{0.08, 1.0},
		{0.065, 0.85},
		{0.05, 0.7},
		{0.04, 0.55},
		{0.03, 0.4},
		{0.025, 0.3},
		{0.02, 0.2},
		{0.01, 0.1},
		{0.0, 0.0},
	}
	for _, tc := range cases {
		assert.InDelta(t, tc.want, strengthScore(tc.absMean, thr), 1e-9, "absMean=%v", tc.absMean)
	}
}

func TestStrengthScore_Monotone(t *testing.T) {
	thr := DefaultICThresholds()
	prev := -1.0
	for absMean := 0.0; absMean <= 0.12; absMean += 0.001 {
		score := strengthScore(absMean, thr)
		assert.GreaterOrEqual(t, score, prev)
		prev = score
	}
}

func TestIRScore(t *testing.T) {
	thr := DefaultICThresholds()
	assert.InDelta(t, 1.0, irScore(1.5, thr), 1e-9)
	assert.InDelta(t, 1.0, irScore(-1.5, thr), 1e-9, "sign must not matter")
	assert.InDelta(t, 0.75, irScore(0.75, thr), 1e-9)
	assert.InDelta(t, 0.25, irScore(0.25, thr), 1e-9)
	assert.Zero(t, irScore(0, thr))
}

func TestWinRateScore_RewardsBothDirections(t *testing.T) {
	thr := DefaultICThresholds()
	assert.InDelta(t, 1.0, winRateScore(1.0, thr), 1e-9)
	assert.InDelta(t, 0.75, winRateScore(0.8, thr), 1e-9)
	assert.InDelta(t, 0.5, winRateScore(0.6, thr), 1e-9)
	assert.InDelta(t, 0.5, winRateScore(0.4, thr), 1e-9)
	assert.InDelta(t, 0.75, winRateScore(0.2, thr), 1e-9)
	assert.InDelta(t, 1.0, winRateScore(0.0, thr), 1e-9)
	// No directional information at exactly one half.
	assert.InDelta(t, 0.0, winRateScore(0.5, thr), 1e-9)
}

func TestDistributionScore_Tiers(t *testing.T) {
	assert.Equal(t, 1.0, distributionScore(0.5, 2.0))
	assert.Equal(t, 0.65, distributionScore(2.5, 7.5))
	assert.Equal(t, 0.45, distributionScore(4.0, 10.0))
	assert.Equal(t, 0.25, distributionScore(6.0, 15.0))
	assert.Equal(t, 0.10, distributionScore(12.0, 40.0))
	assert.Equal(t, 1.0, distributionScore(-1.5, -3.0), "magnitudes, not signs")
}

func TestBaseGrade_Cutoffs(t *testing.T) {
	thr := DefaultGradeThresholds()
	assert.Equal(t, GradeA, baseGrade(0.75, thr))
	assert.Equal(t, GradeB, baseGrade(0.70, thr))
	assert.Equal(t, GradeC, baseGrade(0.50, thr))
	assert.Equal(t, GradeD, baseGrade(0.40, thr))
	assert.Equal(t, GradeF, baseGrade(0.20, thr))
}

func TestAssignGrade_ForcedDowngrades(t *testing.T) {
	thr := DefaultGradeThresholds()
	strong := func(st ic.Stats) ic.Stats {
		if st.SampleCount == 0 {
			st.SampleCount = 500
		}
		return st
	}

	cases := []struct {
		name  string
		score float64
		stats ic.Stats
		want  Grade
	}{
		{
			name:  "no strength forces bottom tier regardless of score",
			score: 0.99,
			stats: strong(ic.Stats{AbsMean: 0.001}),
			want:  GradeF,
		},
		{
			name:  "weak strength cannot hold the top two tiers",
			score: 0.90,
			stats: strong(ic.Stats{AbsMean: 0.015}),
			want:  GradeC,
		},
		{
			name:  "moderate strength drops A to B",
			score: 0.80,
			stats: strong(ic.Stats{AbsMean: 0.025}),
			want:  GradeB,
		},
		{
			name:  "thin samples drop A to B",
			score: 0.80,
			stats: ic.Stats{AbsMean: 0.08, SampleCount: 200},
			want:  GradeB,
		},
		{
			name:  "moderately thin samples need exceptional strength",
			score: 0.80,
			stats: ic.Stats{AbsMean: 0.05, SampleCount: 300},
			want:  GradeB,
		},
		{
			name:  "moderately thin samples with exceptional strength keep A",
			score: 0.80,
			stats: ic.Stats{AbsMean: 0.07, SampleCount: 300},
			want:  GradeA,
		},
		{
			name:  "strong and well sampled keeps A",
			score: 0.80,
			stats: ic.Stats{AbsMean: 0.08, SampleCount: 500},
			want:  GradeA,
		},
		{
			name:  "rules never upgrade",
			score: 0.10,
			stats: strong(ic.Stats{AbsMean: 0.10}),
			want:  GradeF,
		},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, AssignGrade(tc.score, tc.stats, thr))
		})
	}
}

func TestNewScorer_RejectsBadConfig(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Weights.Stability = 0.50
	_, err := NewScorer(cfg)
	assert.Error(t, err)
}

func TestScorer_InsufficientScoresZeroStrength(t *testing.T) {
	scorer, err := NewScorer(DefaultConfig())
	require.NoError(t, err)

	sample := statistics.SampleStats{MissingRatio: 0.0, StabilityScore: 0.9}
	res := scorer.Score(ic.Stats{Insufficient: true, AbsMean: 0.5, IR: 3}, sample)

	assert.Zero(t, res.ICScore, "insufficient stats must not contribute IC strength")
	assert.Equal(t, GradeF, res.Grade)
}

func TestScorer_DataQualityTracksMissingRatio(t *testing.T) {
	scorer, err := NewScorer(DefaultConfig())
	require.NoError(t, err)

	st := ic.Stats{Mean: 0.05, Std: 0.1, IR: 0.5, AbsMean: 0.06, PositiveRatio: 0.65, SampleCount: 400}
	clean := scorer.Score(st, statistics.SampleStats{MissingRatio: 0.0, StabilityScore: 0.8})
	dirty := scorer.Score(st, statistics.SampleStats{MissingRatio: 0.4, StabilityScore: 0.8})

	assert.InDelta(t, 1.0, clean.DataQualityScore, 1e-9)
	assert.InDelta(t, 0.6, dirty.DataQualityScore, 1e-9)
	assert.Greater(t, clean.TotalScore, dirty.TotalScore)
}

func TestScorer_TotalScoreIsWeightedBlend(t *testing.T) {
	scorer, err := NewScorer(DefaultConfig())
	require.NoError(t, err)

	st := ic.Stats{Mean: 0.06, Std: 0.06, IR: 1.0, AbsMean: 0.08, PositiveRatio: 0.7, SampleCount: 500}
	sample := statistics.SampleStats{MissingRatio: 0.05, StabilityScore: 0.85}
	res := scorer.Score(st, sample)

	w := DefaultWeights()
	want := res.ICScore*w.IC + res.StabilityScore*w.Stability +
		res.DataQualityScore*w.DataQuality + res.DistributionScore*w.Distribution +
		res.ConsistencyScore*w.Consistency
	assert.InDelta(t, want, res.TotalScore, 1e-9)
	assert.GreaterOrEqual(t, res.TotalScore, 0.0)
	assert.LessOrEqual(t, res.TotalScore, 1.0)
}

func TestGrade_WorseOrEqual(t *testing.T) {
	assert.True(t, GradeF.WorseOrEqual(GradeA))
	assert.True(t, GradeB.WorseOrEqual(GradeB))
	assert.False(t, GradeA.WorseOrEqual(GradeC))
}
