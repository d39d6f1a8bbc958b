package scoring

import "math"

// The sub-score curves are monotone piecewise-linear maps into [0,1].
// Breakpoints come from ICThresholds so callers can retune them without
// touching the curve shapes.

// strengthScore maps absolute mean IC onto [0,1].
func strengthScore(absMean float64, t ICThresholds) float64 {
	switch {
	case absMean >= t.Excellent:
		return 1.0
	case absMean >= t.Good:
		return 0.7 + (absMean-t.Good)/(t.Excellent-t.Good)*0.3
	case absMean >= t.Fair:
		return 0.4 + (absMean-t.Fair)/(t.Good-t.Fair)*0.3
	case absMean >= t.Acceptable:
		return 0.2 + (absMean-t.Acceptable)/(t.Fair-t.Acceptable)*0.2
	case absMean > 0:
		return absMean / t.Acceptable * 0.2
	default:
		return 0
	}
}

// irScore maps |information ratio| onto [0,1].
func irScore(ir float64, t ICThresholds) float64 {
	abs := math.Abs(ir)
	switch {
	case abs >= t.IRStrong:
		return 1.0
	case abs >= t.IRModerate:
		return 0.5 + (abs-t.IRModerate)/(t.IRStrong-t.IRModerate)*0.5
	default:
		return abs / t.IRModerate * 0.5
	}
}

// winRateScore rewards directional conviction in either direction: a
// positive ratio far above 0.5 (long signal) or far below (inverse
// signal) scores high, values near 0.5 carry no directional information.
func winRateScore(positiveRatio float64, t ICThresholds) float64 {
	switch {
	case positiveRatio >= t.WinHigh:
		return 0.5 + (positiveRatio-t.WinHigh)/(1.0-t.WinHigh)*0.5
	case positiveRatio <= t.WinLow:
		return 0.5 + (t.WinLow-positiveRatio)/t.WinLow*0.5
	default:
		// Between the conviction bands: fade linearly to 0 at exactly 0.5.
		band := (t.WinHigh - t.WinLow) / 2
		return math.Abs(positiveRatio-0.5) / band * 0.5
	}
}

// distributionScore gives full credit to factors whose raw values are
// reasonably shaped, partial credit in graded steps as skewness and
// excess kurtosis deteriorate.
func distributionScore(skewness, kurtosis float64) float64 {
	skew := math.Abs(skewness)
	kurt := math.Abs(kurtosis)
	switch {
	case skew < 2 && kurt < 7:
		return 1.0
	case skew < 3 && kurt < 8:
		return 0.65
	case skew < 5 && kurt < 12:
		return 0.45
	case skew < 8 && kurt < 20:
		return 0.25
	default:
		return 0.10
	}
}

func clamp01(v float64) float64 {
	return math.Max(0, math.Min(1, v))
}
