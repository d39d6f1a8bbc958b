package scheduler

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"github.com/aristath/factorlab/internal/services"
)

// EvaluateJob runs a full factor evaluation and persists the result.
type EvaluateJob struct {
	service *services.RunService
	timeout time.Duration
	log     zerolog.Logger
}

// NewEvaluateJob creates the periodic evaluation job.
func NewEvaluateJob(service *services.RunService, log zerolog.Logger) *EvaluateJob {
	return &EvaluateJob{
		service: service,
		timeout: 30 * time.Minute,
		log:     log.With().Str("job", "evaluate").Logger(),
	}
}

// Name returns the job name.
func (j *EvaluateJob) Name() string { return "evaluate" }

// Run executes one evaluation run with the configured defaults. A run
// already in progress is skipped, not queued.
func (j *EvaluateJob) Run() error {
	ctx, cancel := context.WithTimeout(context.Background(), j.timeout)
	defer cancel()

	run, err := j.service.Run(ctx, services.RunOptions{})
	if err == services.ErrRunInProgress {
		j.log.Warn().Msg("evaluation already running, skipping scheduled run")
		return nil
	}
	if err != nil {
		return err
	}
	j.log.Info().Str("run_id", run.RunID).Int("evaluated", len(run.Evaluations)).Msg("scheduled evaluation finished")
	return nil
}
