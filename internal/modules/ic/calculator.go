// Package ic computes rolling information coefficients between factor
// series and forward returns, reduces them to summary statistics, and
// selects the most informative forecast horizon.
package ic

import (
	"math"
	"time"

	"gonum.org/v1/gonum/stat"

	"github.com/aristath/factorlab/internal/timeseries"
)

// Method selects the correlation estimator used for IC values.
type Method string

const (
	// Pearson is the linear correlation coefficient.
	Pearson Method = "pearson"
	// Spearman is rank correlation: Pearson over average-tied ranks.
	Spearman Method = "spearman"
)

// varianceEpsilon guards rolling windows against divide-by-near-zero:
// a window where either operand's variance falls below this is marked
// undefined instead of producing a spurious correlation.
const varianceEpsilon = 1e-12

// Record is one rolling-IC time series for a (factor, window, horizon)
// combination. Values may be NaN where a window was degenerate; positions
// before the window fills are absent entirely.
type Record struct {
	FactorID string
	Window   int
	Horizon  int
	Method   Method
	Times    []time.Time
	Values   []float64
}

// Len returns the number of emitted positions, defined or not.
func (r Record) Len() int { return len(r.Values) }

// Calculator computes rolling IC records.
type Calculator struct {
	method Method
}

// NewCalculator returns a calculator using the given correlation method.
func NewCalculator(method Method) *Calculator {
	if method == "" {
		method = Pearson
	}
	return &Calculator{method: method}
}

// Rolling computes the rolling IC between a factor series and forward
// returns for one window length and forecast horizon. When the aligned
// sample is shorter than window+horizon+1 the result is an empty record,
// not an error. Output is indexed at each window's last timestamp.
func (c *Calculator) Rolling(factorID string, factor, returns timeseries.Series, window, horizon int) Record {
	rec := Record{FactorID: factorID, Window: window, Horizon: horizon, Method: c.method}
	if window < 2 || horizon < 0 {
		return rec
	}

	pairs := timeseries.ForwardPairs(factor, returns, horizon)
	if len(pairs) < window+1 {
		return rec
	}

	factorBuf := make([]float64, window)
	returnBuf := make([]float64, window)
	rec.Times = make([]time.Time, 0, len(pairs)-window+1)
	rec.Values = make([]float64, 0, len(pairs)-window+1)

	for end := window - 1; end < len(pairs); end++ {
		for i := 0; i < window; i++ {
			factorBuf[i] = pairs[end-window+1+i].Factor
			returnBuf[i] = pairs[end-window+1+i].Return
		}
		rec.Times = append(rec.Times, pairs[end].Time)
		rec.Values = append(rec.Values, windowCorrelation(factorBuf, returnBuf, c.method))
	}
	return rec
}

// windowCorrelation returns the correlation for one filled window, or NaN
// when either operand is (near-)constant.
func windowCorrelation(x, y []float64, method Method) float64 {
	if method == Spearman {
		x = timeseries.Ranks(x)
		y = timeseries.Ranks(y)
	}
	if stat.Variance(x, nil) < varianceEpsilon || stat.Variance(y, nil) < varianceEpsilon {
		return math.NaN()
	}
	r := stat.Correlation(x, y, nil)
	// Clamp tiny floating drift so every defined value stays in [-1, 1].
	if r > 1 {
		r = 1
	} else if r < -1 {
		r = -1
	}
	return r
}
