// Package evaluation orchestrates the factor evaluation pipeline: rolling
// IC per (window, horizon), statistics, horizon selection, scoring and
// grading, plus parallel batch runs with isolated per-factor failures.
package evaluation

import (
	"errors"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/aristath/factorlab/internal/config"
	"github.com/aristath/factorlab/internal/events"
	"github.com/aristath/factorlab/internal/modules/ic"
	"github.com/aristath/factorlab/internal/modules/redundancy"
	"github.com/aristath/factorlab/internal/modules/scoring"
	"github.com/aristath/factorlab/internal/modules/statistics"
	"github.com/aristath/factorlab/internal/timeseries"
)

// ErrNoOverlap marks a factor whose series shares no usable time index
// with the return series. It fails that factor only, never the batch.
var ErrNoOverlap = errors.New("factor and return series share no overlapping index")

// ErrEmptyPanel rejects a batch evaluation with nothing to evaluate.
var ErrEmptyPanel = errors.New("factor panel is empty")

// Options configure an Evaluator.
type Options struct {
	Strategy            string
	Scoring             scoring.Config
	Method              ic.Method
	MinICSamples        int
	Workers             int
	RedundancyThreshold float64
	RedundancyMethod    redundancy.Method
	SelectionFloor      int // minimum size of the recommended factor set
}

// Evaluator runs the evaluation pipeline. It is stateless across runs:
// every run is a pure function of its inputs.
type Evaluator struct {
	opts    Options
	windows config.WindowConfig
	scorer  *scoring.Scorer
	calc    *ic.Calculator
	bus     *events.Bus
	log     zerolog.Logger
}

// NewEvaluator validates configuration (unknown strategy labels and bad
// weight vectors abort here, before any computation) and returns an
// evaluator. bus may be nil when no progress reporting is wanted.
func NewEvaluator(opts Options, bus *events.Bus, log zerolog.Logger) (*Evaluator, error) {
	windows, err := config.GetWindowConfig(opts.Strategy)
	if err != nil {
		return nil, err
	}
	scorer, err := scoring.NewScorer(opts.Scoring)
	if err != nil {
		return nil, err
	}
	if opts.MinICSamples <= 0 {
		opts.MinICSamples = ic.DefaultMinSamples
	}
	if opts.Workers <= 0 {
		opts.Workers = 4
	}
	if opts.SelectionFloor <= 0 {
		opts.SelectionFloor = 10
	}
	return &Evaluator{
		opts:    opts,
		windows: windows,
		scorer:  scorer,
		calc:    ic.NewCalculator(opts.Method),
		bus:     bus,
		log:     log.With().Str("component", "evaluation").Logger(),
	}, nil
}

// FactorEvaluation is the full evaluation record for one factor.
type FactorEvaluation struct {
	FactorID       string                  `json:"factor_id"`
	Strategy       string                  `json:"strategy"`
	PrimaryHorizon int                     `json:"primary_horizon"`
	Insufficient   bool                    `json:"insufficient"`
	HorizonStats   map[int]ic.Stats        `json:"horizon_stats"` // primary window, per horizon
	WindowStats    map[int]map[int]ic.Stats `json:"window_stats"` // window -> horizon -> stats
	Sample         statistics.SampleStats  `json:"sample_stats"`
	Score          scoring.Result          `json:"score"`

	// PrimaryRecord is the rolling IC series behind the selected horizon,
	// kept for snapshot persistence.
	PrimaryRecord ic.Record `json:"-"`
}

// EvaluateFactor runs the single-factor pipeline. returns maps forecast
// horizon to its realized forward-return series; horizons configured for
// the strategy but absent from the map are an error.
func (e *Evaluator) EvaluateFactor(factorID string, factor timeseries.Series, returns map[int]timeseries.Series) (FactorEvaluation, error) {
	result := FactorEvaluation{
		FactorID:     factorID,
		Strategy:     e.opts.Strategy,
		HorizonStats: make(map[int]ic.Stats, len(e.windows.Horizons)),
		WindowStats:  make(map[int]map[int]ic.Stats, len(e.windows.ICWindows)),
	}

	overlap := false
	for _, h := range e.windows.Horizons {
		ret, ok := returns[h]
		if !ok {
			return result, fmt.Errorf("no return series supplied for horizon %d", h)
		}
		if len(timeseries.AlignPairs(factor, ret)) > 0 {
			overlap = true
		}
	}
	if !overlap {
		return result, fmt.Errorf("factor %s: %w", factorID, ErrNoOverlap)
	}

	var primaryRecords = make(map[int]ic.Record, len(e.windows.Horizons))
	for _, w := range e.windows.ICWindows {
		perHorizon := make(map[int]ic.Stats, len(e.windows.Horizons))
		for _, h := range e.windows.Horizons {
			rec := e.calc.Rolling(factorID, factor, returns[h], w, h)
			stats := ic.Aggregate(rec, e.opts.MinICSamples)
			perHorizon[h] = stats
			if w == e.windows.PrimaryWindow {
				result.HorizonStats[h] = stats
				primaryRecords[h] = rec
			}
		}
		result.WindowStats[w] = perHorizon
	}

	result.Sample = statistics.Compute(factor, e.windows.StabilityWindow)

	primary, err := ic.SelectHorizon(result.HorizonStats)
	if err != nil {
		// Insufficient data is an outcome, not an abort: the factor is
		// scored as zero strength and graded accordingly.
		result.Insufficient = true
		result.Score = e.scorer.Score(ic.Stats{Insufficient: true}, result.Sample)
		e.log.Debug().Str("factor", factorID).Msg("all horizons insufficient, scored as zero strength")
		return result, nil
	}

	result.PrimaryHorizon = primary
	result.PrimaryRecord = primaryRecords[primary]
	result.Score = e.scorer.Score(result.HorizonStats[primary], result.Sample)
	return result, nil
}
