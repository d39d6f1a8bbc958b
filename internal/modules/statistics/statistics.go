// Package statistics derives per-factor sample statistics used by the
// scorer's stability, data-quality and distribution components: moments,
// quantiles, outlier share and a rolling stability score.
package statistics

import (
	"math"
	"sort"

	"gonum.org/v1/gonum/stat"

	"github.com/aristath/factorlab/internal/timeseries"
)

// SampleStats bundles the raw-sample metrics for one factor series.
type SampleStats struct {
	Count        int     `json:"count"`
	MissingRatio float64 `json:"missing_ratio"`
	Mean         float64 `json:"mean"`
	Std          float64 `json:"std"`
	Min          float64 `json:"min"`
	Max          float64 `json:"max"`
	Median       float64 `json:"median"`
	Q25          float64 `json:"q25"`
	Q75          float64 `json:"q75"`
	IQR          float64 `json:"iqr"`
	Skewness     float64 `json:"skewness"`
	Kurtosis     float64 `json:"kurtosis"` // excess kurtosis
	OutlierRatio float64 `json:"outlier_ratio"`
	CV           float64 `json:"coefficient_of_variation"`

	// StabilityScore in [0,1]: how steady the rolling mean and rolling
	// std of the raw factor are over the stability window. Zero when the
	// sample is shorter than the window.
	StabilityScore float64 `json:"stability_score"`
}

// Compute derives SampleStats for a factor series. stabilityWindow is the
// rolling window used for the stability score.
func Compute(s timeseries.Series, stabilityWindow int) SampleStats {
	out := SampleStats{MissingRatio: s.MissingRatio()}
	values := s.DefinedValues()
	out.Count = len(values)
	if len(values) == 0 {
		return out
	}

	sorted := make([]float64, len(values))
	copy(sorted, values)
	sort.Float64s(sorted)

	out.Mean = stat.Mean(values, nil)
	if len(values) > 1 {
		out.Std = stat.StdDev(values, nil)
	}
	out.Min = sorted[0]
	out.Max = sorted[len(sorted)-1]
	out.Median = stat.Quantile(0.5, stat.LinInterp, sorted, nil)
	out.Q25 = stat.Quantile(0.25, stat.LinInterp, sorted, nil)
	out.Q75 = stat.Quantile(0.75, stat.LinInterp, sorted, nil)
	out.IQR = out.Q75 - out.Q25
	if len(values) > 2 {
		out.Skewness = stat.Skew(values, nil)
	}
	if len(values) > 3 {
		out.Kurtosis = stat.ExKurtosis(values, nil)
	}
	out.OutlierRatio = outlierRatio(values, out.Q25, out.Q75)
	if math.Abs(out.Mean) > 1e-12 {
		out.CV = out.Std / math.Abs(out.Mean)
	} else if out.Std > 0 {
		out.CV = math.Inf(1)
	}
	out.StabilityScore = stabilityScore(values, stabilityWindow)
	return out
}

// outlierRatio is the share of observations outside the 1.5*IQR fences.
func outlierRatio(values []float64, q25, q75 float64) float64 {
	iqr := q75 - q25
	lower := q25 - 1.5*iqr
	upper := q75 + 1.5*iqr
	n := 0
	for _, v := range values {
		if v < lower || v > upper {
			n++
		}
	}
	return float64(n) / float64(len(values))
}

// stabilityScore measures how little the factor's rolling mean and rolling
// std drift over time. 1.0 means perfectly steady; anything degenerate
// scores 0.
func stabilityScore(values []float64, window int) float64 {
	if window < 2 || len(values) < window {
		return 0
	}

	nWindows := len(values) - window + 1
	rollingMeans := make([]float64, 0, nWindows)
	rollingStds := make([]float64, 0, nWindows)
	for end := window; end <= len(values); end++ {
		w := values[end-window : end]
		rollingMeans = append(rollingMeans, stat.Mean(w, nil))
		rollingStds = append(rollingStds, stat.StdDev(w, nil))
	}

	meanStability := relativeSteadiness(rollingMeans)
	stdStability := relativeSteadiness(rollingStds)
	return clamp01((meanStability + stdStability) / 2)
}

// relativeSteadiness is 1 minus the coefficient of variation of the
// rolling statistic, floored at 0.
func relativeSteadiness(series []float64) float64 {
	if len(series) < 2 {
		return 0
	}
	mean := stat.Mean(series, nil)
	if math.Abs(mean) < 1e-12 {
		return 0
	}
	return 1 - stat.StdDev(series, nil)/math.Abs(mean)
}

func clamp01(v float64) float64 {
	return math.Max(0, math.Min(1, v))
}
