package ic

import (
	"errors"
	"math"
	"sort"
)

// ErrInsufficientData is returned when every candidate horizon lacks the
// minimum IC sample count, so no primary horizon can be selected honestly.
var ErrInsufficientData = errors.New("insufficient IC samples for every forecast horizon")

// SelectHorizon picks the primary forecast horizon from per-horizon IC
// statistics: the horizon with the largest |information ratio| wins,
// absolute mean IC breaks ties, and the shorter horizon breaks any
// remaining tie so selection is deterministic. Horizons flagged
// insufficient are excluded.
func SelectHorizon(byHorizon map[int]Stats) (int, error) {
	horizons := make([]int, 0, len(byHorizon))
	for h, s := range byHorizon {
		if !s.Insufficient {
			horizons = append(horizons, h)
		}
	}
	if len(horizons) == 0 {
		return 0, ErrInsufficientData
	}
	sort.Ints(horizons)

	best := horizons[0]
	for _, h := range horizons[1:] {
		if better(byHorizon[h], byHorizon[best]) {
			best = h
		}
	}
	return best, nil
}

func better(candidate, incumbent Stats) bool {
	ci, ii := math.Abs(candidate.IR), math.Abs(incumbent.IR)
	if ci != ii {
		return ci > ii
	}
	return candidate.AbsMean > incumbent.AbsMean
}
