package ic

import (
	"math"

	"gonum.org/v1/gonum/stat"
)

// DefaultMinSamples is the minimum number of defined IC observations
// required before statistics are considered reliable.
const DefaultMinSamples = 20

// stdEpsilon is the threshold below which an IC standard deviation is
// treated as zero, making the information ratio 0 rather than infinite.
const stdEpsilon = 1e-12

// Stats summarises one rolling-IC record for a (factor, horizon) pair.
type Stats struct {
	Mean          float64 `json:"ic_mean"`
	Std           float64 `json:"ic_std"`
	IR            float64 `json:"ic_ir"`
	PositiveRatio float64 `json:"ic_positive_ratio"`
	AbsMean       float64 `json:"ic_abs_mean"`
	SampleCount   int     `json:"sample_size"`

	// Insufficient marks bundles whose sample count fell below the
	// configured minimum; downstream scoring treats them as zero strength.
	Insufficient bool `json:"insufficient"`
}

// Aggregate reduces a rolling-IC record to summary statistics. Undefined
// (NaN) entries are excluded from every figure, including the sample
// count. minSamples <= 0 falls back to DefaultMinSamples.
func Aggregate(rec Record, minSamples int) Stats {
	if minSamples <= 0 {
		minSamples = DefaultMinSamples
	}

	defined := make([]float64, 0, len(rec.Values))
	positives := 0
	absSum := 0.0
	for _, v := range rec.Values {
		if math.IsNaN(v) {
			continue
		}
		defined = append(defined, v)
		if v > 0 {
			positives++
		}
		absSum += math.Abs(v)
	}

	s := Stats{SampleCount: len(defined)}
	if len(defined) == 0 {
		s.Insufficient = true
		return s
	}

	s.Mean = stat.Mean(defined, nil)
	if len(defined) > 1 {
		s.Std = stat.StdDev(defined, nil)
	}
	if s.Std > stdEpsilon {
		s.IR = s.Mean / s.Std
	}
	s.PositiveRatio = float64(positives) / float64(len(defined))
	s.AbsMean = absSum / float64(len(defined))
	s.Insufficient = len(defined) < minSamples
	return s
}
