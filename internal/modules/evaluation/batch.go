package evaluation

import (
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/aristath/factorlab/internal/events"
	"github.com/aristath/factorlab/internal/modules/redundancy"
	"github.com/aristath/factorlab/internal/timeseries"
)

// FactorFailure records a per-factor failure that did not abort the run.
type FactorFailure struct {
	FactorID string `json:"factor_id"`
	Reason   string `json:"reason"`
}

// RunResult is the outcome of one batch evaluation run.
type RunResult struct {
	RunID      string    `json:"run_id"`
	Strategy   string    `json:"strategy"`
	StartedAt  time.Time `json:"started_at"`
	FinishedAt time.Time `json:"finished_at"`

	Evaluations []FactorEvaluation `json:"evaluations"` // panel order, successes only
	Failures    []FactorFailure    `json:"failures"`    // panel order

	Ranking     []RankingRow       `json:"ranking"`
	Groups      []redundancy.Group `json:"groups"`
	Suggestions Suggestions        `json:"suggestions"`
}

// EvaluateBatch evaluates every factor in the panel in parallel, detects
// redundancy across the full panel, and assembles ranking and selection
// output. Per-factor failures are isolated; only configuration problems
// (empty panel, unknown strategy, bad weights) abort the run.
func (e *Evaluator) EvaluateBatch(panel *timeseries.Panel, returns map[int]timeseries.Series) (*RunResult, error) {
	if panel == nil || panel.Len() == 0 {
		return nil, ErrEmptyPanel
	}

	run := &RunResult{
		RunID:     uuid.New().String(),
		Strategy:  e.opts.Strategy,
		StartedAt: time.Now().UTC(),
	}
	ids := panel.IDs()
	e.publish(events.Event{Type: events.RunStarted, RunID: run.RunID, Strategy: run.Strategy, Total: len(ids)})
	e.log.Info().Str("run_id", run.RunID).Str("strategy", run.Strategy).Int("factors", len(ids)).Msg("batch evaluation started")

	// One result slot per factor; each goroutine writes only its own slot.
	results := make([]FactorEvaluation, len(ids))
	errs := make([]error, len(ids))
	var completed sync.WaitGroup
	sem := make(chan struct{}, e.opts.Workers)
	var done int
	var doneMu sync.Mutex

	for i, id := range ids {
		series, _ := panel.Get(id)
		completed.Add(1)
		sem <- struct{}{}
		go func(i int, id string, series timeseries.Series) {
			defer completed.Done()
			defer func() { <-sem }()
			results[i], errs[i] = e.EvaluateFactor(id, series, returns)

			doneMu.Lock()
			done++
			n := done
			doneMu.Unlock()

			ev := events.Event{RunID: run.RunID, FactorID: id, Completed: n, Total: len(ids)}
			if errs[i] != nil {
				ev.Type = events.FactorFailed
				ev.Reason = errs[i].Error()
			} else {
				ev.Type = events.FactorEvaluated
				ev.Grade = string(results[i].Score.Grade)
			}
			e.publish(ev)
		}(i, id, series)
	}
	completed.Wait()

	scores := make(map[string]float64, len(ids))
	for i, id := range ids {
		if errs[i] != nil {
			run.Failures = append(run.Failures, FactorFailure{FactorID: id, Reason: errs[i].Error()})
			continue
		}
		run.Evaluations = append(run.Evaluations, results[i])
		scores[id] = results[i].Score.TotalScore
	}

	detector := redundancy.NewDetector(redundancy.Config{
		Threshold: e.opts.RedundancyThreshold,
		Method:    e.opts.RedundancyMethod,
	}, e.log)
	groups, err := detector.Detect(panel, scores)
	if err != nil {
		return nil, err
	}
	run.Groups = groups

	run.Ranking = BuildRanking(run.Evaluations)
	run.Suggestions = BuildSuggestions(run.Ranking, run.Groups, e.opts.SelectionFloor)
	run.FinishedAt = time.Now().UTC()

	e.publish(events.Event{Type: events.RunCompleted, RunID: run.RunID, Strategy: run.Strategy, Completed: len(ids), Total: len(ids)})
	e.log.Info().
		Str("run_id", run.RunID).
		Int("evaluated", len(run.Evaluations)).
		Int("failed", len(run.Failures)).
		Int("groups", len(run.Groups)).
		Dur("elapsed", run.FinishedAt.Sub(run.StartedAt)).
		Msg("batch evaluation finished")
	return run, nil
}

func (e *Evaluator) publish(ev events.Event) {
	if e.bus != nil {
		e.bus.Publish(ev)
	}
}
