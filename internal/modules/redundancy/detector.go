// Package redundancy clusters factors whose pairwise correlation exceeds
// a threshold and picks one representative per cluster, so a caller can
// retain a de-duplicated factor subset.
package redundancy

import (
	"errors"
	"math"
	"runtime"
	"sync"

	"github.com/rs/zerolog"
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat"

	"github.com/aristath/factorlab/internal/timeseries"
)

// DefaultThreshold is the absolute pairwise correlation above which two
// factors are considered redundant.
const DefaultThreshold = 0.85

// varianceEpsilon guards degenerate columns: a factor with near-zero
// variance over the common rows correlates with nothing.
const varianceEpsilon = 1e-12

// ErrEmptyPanel is returned when there are no factors to cluster.
var ErrEmptyPanel = errors.New("factor panel is empty")

// Method selects the correlation estimator for the pairwise matrix.
type Method string

const (
	Pearson  Method = "pearson"
	Spearman Method = "spearman"
)

// Config controls detection.
type Config struct {
	Threshold float64
	Method    Method
	// PairChunk bounds how many factor pairs one worker takes at a time;
	// the matrix is quadratic in factor count and is computed in
	// independent blocks merged without ordering dependency.
	PairChunk int
	Workers   int
}

// DefaultConfig returns the standard detection settings.
func DefaultConfig() Config {
	return Config{
		Threshold: DefaultThreshold,
		Method:    Pearson,
		PairChunk: 256,
		Workers:   runtime.NumCPU(),
	}
}

// Group is one redundancy cluster. Members keep panel insertion order and
// the representative is the member with the highest total score.
type Group struct {
	ID             int      `json:"id"`
	Members        []string `json:"members"`
	Representative string   `json:"representative"`
}

// Detector computes the pairwise correlation matrix and the resulting
// partition into redundancy groups.
type Detector struct {
	cfg Config
	log zerolog.Logger
}

// NewDetector creates a detector; zero-value config fields fall back to
// defaults.
func NewDetector(cfg Config, log zerolog.Logger) *Detector {
	def := DefaultConfig()
	if cfg.Threshold <= 0 {
		cfg.Threshold = def.Threshold
	}
	if cfg.Method == "" {
		cfg.Method = def.Method
	}
	if cfg.PairChunk <= 0 {
		cfg.PairChunk = def.PairChunk
	}
	if cfg.Workers <= 0 {
		cfg.Workers = def.Workers
	}
	return &Detector{cfg: cfg, log: log.With().Str("component", "redundancy").Logger()}
}

// Detect partitions the panel into redundancy groups. scores maps factor
// id to total evaluation score and drives representative selection; a
// missing score counts as zero. Every factor lands in exactly one group,
// singletons included.
func (d *Detector) Detect(panel *timeseries.Panel, scores map[string]float64) ([]Group, error) {
	if panel == nil || panel.Len() == 0 {
		return nil, ErrEmptyPanel
	}

	ids := panel.IDs()
	_, rows := panel.CommonRows()
	corr := d.correlationMatrix(ids, rows)

	uf := newUnionFind(len(ids))
	for i := 0; i < len(ids); i++ {
		for j := i + 1; j < len(ids); j++ {
			c := corr.At(i, j)
			if !math.IsNaN(c) && math.Abs(c) > d.cfg.Threshold {
				uf.union(i, j)
			}
		}
	}

	variances := make([]float64, len(ids))
	for col := range ids {
		variances[col] = timeseries.Variance(timeseries.Column(rows, col))
	}

	groups := d.buildGroups(ids, uf, scores, variances)
	d.log.Debug().
		Int("factors", len(ids)).
		Int("groups", len(groups)).
		Int("common_rows", len(rows)).
		Msg("redundancy partition computed")
	return groups, nil
}

// CorrelationMatrix exposes the full pairwise matrix for reporting.
func (d *Detector) CorrelationMatrix(panel *timeseries.Panel) ([]string, *mat.SymDense, error) {
	if panel == nil || panel.Len() == 0 {
		return nil, nil, ErrEmptyPanel
	}
	ids := panel.IDs()
	_, rows := panel.CommonRows()
	return ids, d.correlationMatrix(ids, rows), nil
}

// correlationMatrix computes the symmetric pairwise matrix over the common
// valid rows, chunking factor pairs across workers. Each pair writes only
// its own matrix cell, so no locking is needed.
func (d *Detector) correlationMatrix(ids []string, rows [][]float64) *mat.SymDense {
	n := len(ids)
	corr := mat.NewSymDense(n, nil)

	columns := make([][]float64, n)
	for col := 0; col < n; col++ {
		values := timeseries.Column(rows, col)
		if d.cfg.Method == Spearman {
			values = timeseries.Ranks(values)
		}
		columns[col] = values
		corr.SetSym(col, col, 1)
	}

	type pair struct{ i, j int }
	pairs := make([]pair, 0, n*(n-1)/2)
	for i := 0; i < n; i++ {
		for j := i + 1; j < n; j++ {
			pairs = append(pairs, pair{i, j})
		}
	}

	results := make([]float64, len(pairs))
	var wg sync.WaitGroup
	for start := 0; start < len(pairs); start += d.cfg.PairChunk {
		end := start + d.cfg.PairChunk
		if end > len(pairs) {
			end = len(pairs)
		}
		wg.Add(1)
		go func(start, end int) {
			defer wg.Done()
			for k := start; k < end; k++ {
				results[k] = pairCorrelation(columns[pairs[k].i], columns[pairs[k].j])
			}
		}(start, end)
	}
	wg.Wait()

	for k, p := range pairs {
		corr.SetSym(p.i, p.j, results[k])
	}
	return corr
}

func pairCorrelation(x, y []float64) float64 {
	if len(x) < 2 || len(y) < 2 {
		return math.NaN()
	}
	if stat.Variance(x, nil) < varianceEpsilon || stat.Variance(y, nil) < varianceEpsilon {
		return math.NaN()
	}
	return stat.Correlation(x, y, nil)
}

// buildGroups converts union-find components into ordered groups with
// representatives. Ordering follows panel insertion order throughout so
// repeated runs produce identical output.
func (d *Detector) buildGroups(ids []string, uf *unionFind, scores map[string]float64, variances []float64) []Group {
	memberIdx := make(map[int][]int)
	var rootOrder []int
	for i := range ids {
		root := uf.find(i)
		if _, seen := memberIdx[root]; !seen {
			rootOrder = append(rootOrder, root)
		}
		memberIdx[root] = append(memberIdx[root], i)
	}

	groups := make([]Group, 0, len(rootOrder))
	for gid, root := range rootOrder {
		members := memberIdx[root]
		best := members[0]
		for _, idx := range members[1:] {
			if betterRepresentative(idx, best, ids, scores, variances) {
				best = idx
			}
		}
		g := Group{ID: gid, Representative: ids[best]}
		for _, idx := range members {
			g.Members = append(g.Members, ids[idx])
		}
		groups = append(groups, g)
	}
	return groups
}

// betterRepresentative prefers the higher total score, then the lower
// variance, then the earlier panel position.
func betterRepresentative(candidate, incumbent int, ids []string, scores map[string]float64, variances []float64) bool {
	cs, is := scores[ids[candidate]], scores[ids[incumbent]]
	if cs != is {
		return cs > is
	}
	if variances[candidate] != variances[incumbent] {
		return variances[candidate] < variances[incumbent]
	}
	return candidate < incumbent
}
