// Package services wires the evaluation engine to data loading and
// persistence so the server and scheduler share one run path.
package services

import (
	"context"
	"fmt"
	"sync"

	"github.com/rs/zerolog"

	"github.com/aristath/factorlab/internal/config"
	"github.com/aristath/factorlab/internal/events"
	"github.com/aristath/factorlab/internal/modules/evaluation"
	"github.com/aristath/factorlab/internal/modules/factors"
	"github.com/aristath/factorlab/internal/modules/ic"
	"github.com/aristath/factorlab/internal/modules/reports"
)

// BarsProvider supplies the OHLCV history an evaluation run is based on.
type BarsProvider interface {
	Bars(ctx context.Context) (factors.Bars, error)
}

// RunOptions override per-run settings. Zero values fall back to the
// service configuration.
type RunOptions struct {
	Strategy string    `json:"strategy,omitempty"`
	Method   ic.Method `json:"method,omitempty"`
}

// RunService executes full evaluation runs: load bars, build the factor
// panel, evaluate, persist.
type RunService struct {
	cfg      *config.Config
	provider BarsProvider
	repo     *reports.Repository
	bus      *events.Bus
	log      zerolog.Logger

	mu      sync.Mutex // one run at a time
	running bool
}

// NewRunService creates the run service.
func NewRunService(cfg *config.Config, provider BarsProvider, repo *reports.Repository, bus *events.Bus, log zerolog.Logger) *RunService {
	return &RunService{
		cfg:      cfg,
		provider: provider,
		repo:     repo,
		bus:      bus,
		log:      log.With().Str("component", "run_service").Logger(),
	}
}

// ErrRunInProgress is returned when a run is requested while another is
// still executing.
var ErrRunInProgress = fmt.Errorf("an evaluation run is already in progress")

// Run executes one evaluation run end to end and persists the result.
func (s *RunService) Run(ctx context.Context, opts RunOptions) (*evaluation.RunResult, error) {
	s.mu.Lock()
	if s.running {
		s.mu.Unlock()
		return nil, ErrRunInProgress
	}
	s.running = true
	s.mu.Unlock()
	defer func() {
		s.mu.Lock()
		s.running = false
		s.mu.Unlock()
	}()

	strategy := opts.Strategy
	if strategy == "" {
		strategy = s.cfg.Strategy
	}
	method := opts.Method
	if method == "" {
		method = ic.Pearson
	}
	windows, err := config.GetWindowConfig(strategy)
	if err != nil {
		return nil, err
	}
	scoringCfg, err := config.LoadScoringConfig(s.cfg.ScoringConfig)
	if err != nil {
		return nil, err
	}

	bars, err := s.provider.Bars(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load bars: %w", err)
	}

	panel, err := factors.BuildPanel(bars)
	if err != nil {
		return nil, fmt.Errorf("failed to build factor panel: %w", err)
	}
	returns, err := factors.ForwardReturns(bars, windows.Horizons)
	if err != nil {
		return nil, fmt.Errorf("failed to build forward returns: %w", err)
	}

	evaluator, err := evaluation.NewEvaluator(evaluation.Options{
		Strategy:     strategy,
		Scoring:      scoringCfg,
		Method:       method,
		MinICSamples: s.cfg.MinICSamples,
	}, s.bus, s.log)
	if err != nil {
		return nil, err
	}

	run, err := evaluator.EvaluateBatch(panel, returns)
	if err != nil {
		return nil, err
	}

	if s.repo != nil {
		if err := s.repo.SaveRun(run); err != nil {
			// The run itself succeeded; persistence failure is logged and
			// reported but the in-memory result is still returned.
			s.log.Error().Err(err).Str("run_id", run.RunID).Msg("failed to persist run")
			return run, err
		}
	}
	return run, nil
}
