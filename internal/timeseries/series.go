// Package timeseries provides the time-indexed value types shared by the
// factor evaluation engine: single series, factor panels, alignment and
// rank transforms. A series value of NaN means "undefined at this period".
package timeseries

import (
	"fmt"
	"math"
	"sort"
	"time"
)

// Series is an immutable time-indexed sequence of float64 values.
// The index is strictly ascending with no duplicate timestamps.
type Series struct {
	index  []time.Time
	values []float64
}

// New creates a Series from parallel index/value slices. The input is
// copied and sorted by timestamp; duplicate timestamps are rejected.
func New(index []time.Time, values []float64) (Series, error) {
	if len(index) != len(values) {
		return Series{}, fmt.Errorf("index length %d does not match values length %d", len(index), len(values))
	}

	type point struct {
		ts  time.Time
		val float64
	}
	points := make([]point, len(index))
	for i := range index {
		points[i] = point{ts: index[i], val: values[i]}
	}
	sort.SliceStable(points, func(i, j int) bool { return points[i].ts.Before(points[j].ts) })

	s := Series{
		index:  make([]time.Time, len(points)),
		values: make([]float64, len(points)),
	}
	for i, p := range points {
		if i > 0 && !points[i-1].ts.Before(p.ts) {
			return Series{}, fmt.Errorf("duplicate timestamp in series index: %s", p.ts.Format(time.RFC3339))
		}
		s.index[i] = p.ts
		s.values[i] = p.val
	}
	return s, nil
}

// MustNew is New but panics on invalid input. Intended for tests and
// literal fixtures.
func MustNew(index []time.Time, values []float64) Series {
	s, err := New(index, values)
	if err != nil {
		panic(err)
	}
	return s
}

// FromValues builds a Series over a synthetic daily index starting at the
// given day. Convenient for callers that only have ordered observations.
func FromValues(start time.Time, values []float64) Series {
	index := make([]time.Time, len(values))
	for i := range values {
		index[i] = start.AddDate(0, 0, i)
	}
	s, _ := New(index, values) // synthetic index is always valid
	return s
}

// Len returns the number of periods in the series, defined or not.
func (s Series) Len() int { return len(s.values) }

// At returns the value at position i (may be NaN).
func (s Series) At(i int) float64 { return s.values[i] }

// TimeAt returns the timestamp at position i.
func (s Series) TimeAt(i int) time.Time { return s.index[i] }

// Defined reports whether the value at position i is defined.
func (s Series) Defined(i int) bool { return !math.IsNaN(s.values[i]) }

// DefinedCount returns the number of non-NaN values.
func (s Series) DefinedCount() int {
	n := 0
	for _, v := range s.values {
		if !math.IsNaN(v) {
			n++
		}
	}
	return n
}

// MissingRatio returns the fraction of undefined values.
func (s Series) MissingRatio() float64 {
	if len(s.values) == 0 {
		return 1.0
	}
	return float64(len(s.values)-s.DefinedCount()) / float64(len(s.values))
}

// Values returns a copy of the raw values, NaNs included.
func (s Series) Values() []float64 {
	out := make([]float64, len(s.values))
	copy(out, s.values)
	return out
}

// DefinedValues returns a copy of the defined values only, in time order.
func (s Series) DefinedValues() []float64 {
	out := make([]float64, 0, len(s.values))
	for _, v := range s.values {
		if !math.IsNaN(v) {
			out = append(out, v)
		}
	}
	return out
}

// Index returns a copy of the time index.
func (s Series) Index() []time.Time {
	out := make([]time.Time, len(s.index))
	copy(out, s.index)
	return out
}

// Pair is one aligned (timestamp, factor value, return value) observation.
type Pair struct {
	Time   time.Time
	Factor float64
	Return float64
}

// AlignPairs inner-joins two series on their time index and drops rows
// where either side is undefined. The result preserves time order.
func AlignPairs(factor, returns Series) []Pair {
	pairs := make([]Pair, 0, min(factor.Len(), returns.Len()))
	i, j := 0, 0
	for i < factor.Len() && j < returns.Len() {
		ft, rt := factor.index[i], returns.index[j]
		switch {
		case ft.Before(rt):
			i++
		case rt.Before(ft):
			j++
		default:
			fv, rv := factor.values[i], returns.values[j]
			if !math.IsNaN(fv) && !math.IsNaN(rv) {
				pairs = append(pairs, Pair{Time: ft, Factor: fv, Return: rv})
			}
			i++
			j++
		}
	}
	return pairs
}

// ForwardPairs aligns a factor series against returns realized `horizon`
// periods later: the factor value at aligned position t is paired with the
// return at aligned position t+horizon. The pair keeps the later (return)
// timestamp so a rolling window's output lands on the period it predicts.
func ForwardPairs(factor, returns Series, horizon int) []Pair {
	aligned := AlignPairs(factor, returns)
	if horizon <= 0 || len(aligned) <= horizon {
		if horizon == 0 {
			return aligned
		}
		return nil
	}
	shifted := make([]Pair, 0, len(aligned)-horizon)
	for t := 0; t+horizon < len(aligned); t++ {
		shifted = append(shifted, Pair{
			Time:   aligned[t+horizon].Time,
			Factor: aligned[t].Factor,
			Return: aligned[t+horizon].Return,
		})
	}
	return shifted
}

func min(a, b int) int {
	if a < b {
		return a
	}
	return b
}
