package scoring

import (
	"math"

	"github.com/aristath/factorlab/internal/modules/ic"
	"github.com/aristath/factorlab/internal/modules/statistics"
)

// Result holds the component scores, the weighted total and the grade for
// one factor. Component scores are reported before weighting so callers
// can rank by any named sub-metric.
type Result struct {
	ICScore           float64 `json:"ic_score"`
	StabilityScore    float64 `json:"stability_score"`
	DataQualityScore  float64 `json:"data_quality_score"`
	DistributionScore float64 `json:"distribution_score"`
	ConsistencyScore  float64 `json:"consistency_score"`
	TotalScore        float64 `json:"total_score"`
	Grade             Grade   `json:"grade"`
}

// Scorer combines IC statistics and factor sample statistics into one
// evaluation score per factor.
type Scorer struct {
	cfg Config
}

// NewScorer validates the configuration and returns a scorer. An invalid
// weight vector is a configuration error, surfaced before any scoring.
func NewScorer(cfg Config) (*Scorer, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &Scorer{cfg: cfg}, nil
}

// Score evaluates one factor from its primary-horizon IC statistics and
// its sample statistics. Insufficient IC bundles score as zero strength
// rather than aborting; the grade overrides then force the bottom tier.
func (s *Scorer) Score(icStats ic.Stats, sample statistics.SampleStats) Result {
	if icStats.Insufficient {
		icStats = ic.Stats{Insufficient: true}
	}

	res := Result{
		ICScore:           s.icComponent(icStats),
		StabilityScore:    s.stabilityComponent(icStats, sample),
		DataQualityScore:  clamp01(1 - sample.MissingRatio),
		DistributionScore: distributionScore(sample.Skewness, sample.Kurtosis),
		ConsistencyScore:  consistencyComponent(sample),
	}

	w := s.cfg.Weights
	res.TotalScore = clamp01(res.ICScore*w.IC +
		res.StabilityScore*w.Stability +
		res.DataQualityScore*w.DataQuality +
		res.DistributionScore*w.Distribution +
		res.ConsistencyScore*w.Consistency)

	res.Grade = AssignGrade(res.TotalScore, icStats, s.cfg.GradeThresholds)
	return res
}

// icComponent blends the strength, IR and win-rate sub-scores.
func (s *Scorer) icComponent(st ic.Stats) float64 {
	if st.SampleCount == 0 {
		return 0
	}
	t := s.cfg.ICThresholds
	return clamp01(strengthScore(st.AbsMean, t)*s.cfg.ICStrengthWeight +
		irScore(st.IR, t)*s.cfg.ICIRWeight +
		winRateScore(st.PositiveRatio, t)*s.cfg.ICWinWeight)
}

// stabilityComponent starts from the raw-factor stability score and
// subtracts a capped penalty proportional to how erratic the IC series
// itself is (its coefficient of variation).
func (s *Scorer) stabilityComponent(st ic.Stats, sample statistics.SampleStats) float64 {
	base := clamp01(sample.StabilityScore)
	if math.Abs(st.Mean) < 1e-12 {
		return base
	}
	cv := st.Std / math.Abs(st.Mean)
	penalty := math.Min(s.cfg.StabilityPenaltyCap, cv*s.cfg.StabilityPenaltyRate)
	return clamp01(base - penalty)
}

// consistencyComponent rewards agreement between data quality and
// stability: clean data should also be steady data.
func consistencyComponent(sample statistics.SampleStats) float64 {
	switch {
	case sample.MissingRatio < 0.1 && sample.StabilityScore > 0.7:
		return 1.0
	case sample.MissingRatio < 0.2 && sample.StabilityScore > 0.5:
		return 0.8
	default:
		return 0.6
	}
}
