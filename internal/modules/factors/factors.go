// Package factors builds the candidate technical factor panel from OHLCV
// bars. It is the collaborator layer in front of the evaluation engine:
// the engine itself only ever sees already-computed series.
package factors

import (
	"fmt"
	"math"
	"time"

	talib "github.com/markcheno/go-talib"

	"github.com/aristath/factorlab/internal/timeseries"
)

// Bars holds aligned OHLCV arrays for one instrument.
type Bars struct {
	Times  []time.Time
	Open   []float64
	High   []float64
	Low    []float64
	Close  []float64
	Volume []float64
}

// Len returns the number of bars.
func (b Bars) Len() int { return len(b.Close) }

func (b Bars) validate() error {
	n := len(b.Times)
	if n == 0 {
		return fmt.Errorf("no bars supplied")
	}
	if len(b.Open) != n || len(b.High) != n || len(b.Low) != n || len(b.Close) != n || len(b.Volume) != n {
		return fmt.Errorf("OHLCV arrays must share one length, got %d/%d/%d/%d/%d/%d",
			n, len(b.Open), len(b.High), len(b.Low), len(b.Close), len(b.Volume))
	}
	return nil
}

// BuildPanel computes the standard candidate factor set. Warm-up
// positions, where an indicator has not yet filled its lookback, are
// undefined (NaN), never zero.
func BuildPanel(bars Bars) (*timeseries.Panel, error) {
	if err := bars.validate(); err != nil {
		return nil, err
	}

	panel := timeseries.NewPanel()
	add := func(id string, values []float64, warmup int) error {
		s, err := timeseries.New(bars.Times, withWarmup(values, warmup))
		if err != nil {
			return fmt.Errorf("factor %s: %w", id, err)
		}
		return panel.Add(id, s)
	}

	rsi := talib.Rsi(bars.Close, 14)
	sma20 := talib.Sma(bars.Close, 20)
	ema12 := talib.Ema(bars.Close, 12)
	_, _, macdHist := talib.Macd(bars.Close, 12, 26, 9)
	upper, middle, lower := talib.BBands(bars.Close, 20, 2.0, 2.0, talib.SMA)
	atr := talib.Atr(bars.High, bars.Low, bars.Close, 14)
	roc := talib.Roc(bars.Close, 10)
	vol20 := talib.StdDev(bars.Close, 20, 1.0)
	obv := talib.Obv(bars.Close, bars.Volume)
	willr := talib.WillR(bars.High, bars.Low, bars.Close, 14)

	steps := []struct {
		id     string
		values []float64
		warmup int
	}{
		{"RSI_14", rsi, 14},
		{"SMA20_DIST", ratioTo(bars.Close, sma20), 19},
		{"EMA12_DIST", ratioTo(bars.Close, ema12), 11},
		{"MACD_HIST", macdHist, 33},
		{"BB_WIDTH_20", bandWidth(upper, middle, lower), 19},
		{"ATR_PCT_14", ratioOf(atr, bars.Close), 14},
		{"ROC_10", roc, 10},
		{"VOL_20", ratioOf(vol20, bars.Close), 19},
		{"OBV_SLOPE_10", slope(obv, 10), 10},
		{"WILLR_14", willr, 13},
		{"CUM_RET_20", cumulativeReturn(bars.Close, 20), 20},
	}
	for _, st := range steps {
		if err := add(st.id, st.values, st.warmup); err != nil {
			return nil, err
		}
	}
	return panel, nil
}

// ForwardReturns builds one trailing h-period return series per horizon:
// the value at bar u is close[u]/close[u-h] - 1, so the engine's forward
// shift pairs the factor at t with the return realized over (t, t+h].
func ForwardReturns(bars Bars, horizons []int) (map[int]timeseries.Series, error) {
	if err := bars.validate(); err != nil {
		return nil, err
	}
	out := make(map[int]timeseries.Series, len(horizons))
	for _, h := range horizons {
		values := make([]float64, len(bars.Close))
		for u := range values {
			if u < h || bars.Close[u-h] == 0 {
				values[u] = math.NaN()
				continue
			}
			values[u] = bars.Close[u]/bars.Close[u-h] - 1
		}
		s, err := timeseries.New(bars.Times, values)
		if err != nil {
			return nil, err
		}
		out[h] = s
	}
	return out, nil
}

// withWarmup marks the first n positions undefined. talib fills its
// lookback region with zeros, which would otherwise read as real values.
func withWarmup(values []float64, n int) []float64 {
	out := make([]float64, len(values))
	copy(out, values)
	for i := 0; i < n && i < len(out); i++ {
		out[i] = math.NaN()
	}
	return out
}

// ratioTo is price distance from a moving average: close/ma - 1.
func ratioTo(close, ma []float64) []float64 {
	out := make([]float64, len(close))
	for i := range close {
		if ma[i] == 0 {
			out[i] = math.NaN()
			continue
		}
		out[i] = close[i]/ma[i] - 1
	}
	return out
}

// ratioOf divides one indicator by price, e.g. ATR as a fraction of close.
func ratioOf(values, close []float64) []float64 {
	out := make([]float64, len(values))
	for i := range values {
		if close[i] == 0 {
			out[i] = math.NaN()
			continue
		}
		out[i] = values[i] / close[i]
	}
	return out
}

// bandWidth is the Bollinger band width normalised by the middle band.
func bandWidth(upper, middle, lower []float64) []float64 {
	out := make([]float64, len(middle))
	for i := range middle {
		if middle[i] == 0 {
			out[i] = math.NaN()
			continue
		}
		out[i] = (upper[i] - lower[i]) / middle[i]
	}
	return out
}

// slope is the n-period difference of a running total, a cheap trend
// proxy for cumulative indicators like OBV.
func slope(values []float64, n int) []float64 {
	out := make([]float64, len(values))
	for i := range values {
		if i < n {
			out[i] = math.NaN()
			continue
		}
		out[i] = values[i] - values[i-n]
	}
	return out
}

// cumulativeReturn is the trailing n-period simple return of close.
func cumulativeReturn(close []float64, n int) []float64 {
	out := make([]float64, len(close))
	for i := range close {
		if i < n || close[i-n] == 0 {
			out[i] = math.NaN()
			continue
		}
		out[i] = close[i]/close[i-n] - 1
	}
	return out
}
