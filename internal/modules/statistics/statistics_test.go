package statistics

import (
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/aristath/factorlab/internal/timeseries"
)

func series(values []float64) timeseries.Series {
	return timeseries.FromValues(time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC), values)
}

func TestCompute_BasicMoments(t *testing.T) {
	s := series([]float64{1, 2, 3, 4, 5})
	stats := Compute(s, 3)

	assert.Equal(t, 5, stats.Count)
	assert.Zero(t, stats.MissingRatio)
	assert.InDelta(t, 3.0, stats.Mean, 1e-12)
	assert.InDelta(t, math.Sqrt(2.5), stats.Std, 1e-12)
	assert.Equal(t, 1.0, stats.Min)
	assert.Equal(t, 5.0, stats.Max)
	assert.InDelta(t, 3.0, stats.Median, 1e-12)
	assert.InDelta(t, stats.Q75-stats.Q25, stats.IQR, 1e-12)
}

func TestCompute_MissingRatioExcludesNaNs(t *testing.T) {
	s := series([]float64{1, math.NaN(), 3, math.NaN(), 5, 6, 7, 8})
	stats := Compute(s, 3)

	assert.Equal(t, 6, stats.Count)
	assert.InDelta(t, 0.25, stats.MissingRatio, 1e-12)
}

func TestCompute_EmptySeries(t *testing.T) {
	stats := Compute(series(nil), 3)
	assert.Zero(t, stats.Count)
	assert.Equal(t, 1.0, stats.MissingRatio)
	assert.Zero(t, stats.StabilityScore)
}

func TestCompute_OutlierRatio(t *testing.T) {
	values := make([]float64, 100)
	for i := range values {
		values[i] = float64(i % 10)
	}
	values[0] = 1e6 // one wild observation
	stats := Compute(series(values), 10)

	assert.InDelta(t, 0.01, stats.OutlierRatio, 1e-12)
}

func TestCompute_StabilityScore(t *testing.T) {
	// A steady oscillation has near-constant rolling mean and std.
	steady := make([]float64, 120)
	for i := range steady {
		steady[i] = 10 + math.Sin(float64(i))
	}
	// A trending, widening series drifts in both.
	drifting := make([]float64, 120)
	for i := range drifting {
		drifting[i] = float64(i) * math.Sin(float64(i)*3)
	}

	steadyScore := Compute(series(steady), 20).StabilityScore
	driftScore := Compute(series(drifting), 20).StabilityScore

	assert.Greater(t, steadyScore, driftScore)
	assert.GreaterOrEqual(t, driftScore, 0.0)
	assert.LessOrEqual(t, steadyScore, 1.0)
}

func TestCompute_StabilityZeroWhenTooShort(t *testing.T) {
	stats := Compute(series([]float64{1, 2, 3}), 10)
	assert.Zero(t, stats.StabilityScore)
}
