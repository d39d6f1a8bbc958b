// Package scoring turns IC statistics and factor sample statistics into a
// weighted multi-component evaluation score and an ordinal grade with
// forced downgrade rules.
package scoring

import (
	"fmt"
	"math"
)

// weightSumTolerance is how far the component weights may drift from 1.0
// before configuration is rejected.
const weightSumTolerance = 1e-3

// Weights are the top-level component weights. They must sum to 1.0.
type Weights struct {
	IC           float64 `yaml:"ic" json:"ic"`
	Stability    float64 `yaml:"stability" json:"stability"`
	DataQuality  float64 `yaml:"data_quality" json:"data_quality"`
	Distribution float64 `yaml:"distribution" json:"distribution"`
	Consistency  float64 `yaml:"consistency" json:"consistency"`
}

// DefaultWeights weight IC performance highest while refusing to let a
// high-IC, low-stability factor dominate.
func DefaultWeights() Weights {
	return Weights{
		IC:           0.40,
		Stability:    0.25,
		DataQuality:  0.10,
		Distribution: 0.20,
		Consistency:  0.05,
	}
}

// Validate rejects weight vectors that do not sum to 1.0.
func (w Weights) Validate() error {
	total := w.IC + w.Stability + w.DataQuality + w.Distribution + w.Consistency
	if math.Abs(total-1.0) > weightSumTolerance {
		return fmt.Errorf("scoring weights must sum to 1.0, got %.4f", total)
	}
	return nil
}

// ICThresholds are the breakpoints of the piecewise IC sub-score curves.
type ICThresholds struct {
	Excellent  float64 `yaml:"excellent" json:"excellent"`     // strength ceiling
	Good       float64 `yaml:"good" json:"good"`               // 0.7 ramp start
	Fair       float64 `yaml:"fair" json:"fair"`               // 0.4 ramp start
	Acceptable float64 `yaml:"acceptable" json:"acceptable"`   // 0.2 ramp start
	IRStrong   float64 `yaml:"ir_strong" json:"ir_strong"`     // |IR| ceiling
	IRModerate float64 `yaml:"ir_moderate" json:"ir_moderate"` // |IR| 0.5 ramp start
	WinHigh    float64 `yaml:"win_high" json:"win_high"`       // positive-ratio conviction (long)
	WinLow     float64 `yaml:"win_low" json:"win_low"`         // positive-ratio conviction (inverse)
}

// DefaultICThresholds returns the standard curve breakpoints.
func DefaultICThresholds() ICThresholds {
	return ICThresholds{
		Excellent:  0.08,
		Good:       0.05,
		Fair:       0.03,
		Acceptable: 0.02,
		IRStrong:   1.0,
		IRModerate: 0.5,
		WinHigh:    0.6,
		WinLow:     0.4,
	}
}

// GradeThresholds are the base score cutoffs per grade tier.
type GradeThresholds struct {
	A float64 `yaml:"a" json:"a"`
	B float64 `yaml:"b" json:"b"`
	C float64 `yaml:"c" json:"c"`
	D float64 `yaml:"d" json:"d"`
}

// DefaultGradeThresholds returns the fixed cutoffs. These are cutoffs,
// not a recalibrated target distribution.
func DefaultGradeThresholds() GradeThresholds {
	return GradeThresholds{A: 0.75, B: 0.65, C: 0.45, D: 0.35}
}

// Config bundles everything the scorer and grader need.
type Config struct {
	Weights         Weights         `yaml:"weights" json:"weights"`
	ICThresholds    ICThresholds    `yaml:"ic_thresholds" json:"ic_thresholds"`
	GradeThresholds GradeThresholds `yaml:"grade_thresholds" json:"grade_thresholds"`

	// Sub-weights inside the IC component: strength / IR / win rate.
	ICStrengthWeight float64 `yaml:"ic_strength_weight" json:"ic_strength_weight"`
	ICIRWeight       float64 `yaml:"ic_ir_weight" json:"ic_ir_weight"`
	ICWinWeight      float64 `yaml:"ic_win_weight" json:"ic_win_weight"`

	// Stability penalty: proportional to the coefficient of variation of
	// the IC series, capped so one wild stretch cannot zero the component.
	StabilityPenaltyRate float64 `yaml:"stability_penalty_rate" json:"stability_penalty_rate"`
	StabilityPenaltyCap  float64 `yaml:"stability_penalty_cap" json:"stability_penalty_cap"`
}

// DefaultConfig returns the full default scoring configuration.
func DefaultConfig() Config {
	return Config{
		Weights:              DefaultWeights(),
		ICThresholds:         DefaultICThresholds(),
		GradeThresholds:      DefaultGradeThresholds(),
		ICStrengthWeight:     0.5,
		ICIRWeight:           0.3,
		ICWinWeight:          0.2,
		StabilityPenaltyRate: 0.05,
		StabilityPenaltyCap:  0.5,
	}
}

// Validate checks the whole configuration, not just the top-level weights.
func (c Config) Validate() error {
	if err := c.Weights.Validate(); err != nil {
		return err
	}
	subTotal := c.ICStrengthWeight + c.ICIRWeight + c.ICWinWeight
	if math.Abs(subTotal-1.0) > weightSumTolerance {
		return fmt.Errorf("IC sub-weights must sum to 1.0, got %.4f", subTotal)
	}
	t := c.GradeThresholds
	if !(t.A > t.B && t.B > t.C && t.C > t.D && t.D > 0) {
		return fmt.Errorf("grade thresholds must be strictly decreasing and positive: %+v", t)
	}
	return nil
}
