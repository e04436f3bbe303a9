package orchestrator

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"stealthcompany.com/labmerge/internal/metrics"
)

// Stage is one named step of a batch run
type Stage struct {
	Name string
	Run  func(ctx context.Context) error
}

// StageRunner runs stages one after another and stops at the first failure
type StageRunner struct {
	logger    zerolog.Logger
	completed []string
}

// NewStageRunner creates a runner that logs through logger
func NewStageRunner(logger zerolog.Logger) *StageRunner {
	return &StageRunner{logger: logger}
}

// Run executes the stages in order. Cancellation is checked before each
// stage; a stage that is already running is not interrupted.
func (sr *StageRunner) Run(ctx context.Context, stages ...Stage) error {
	for _, stage := range stages {
		if err := ctx.Err(); err != nil {
			sr.logger.Warn().Str("stage", stage.Name).Msg("Run cancelled before stage")
			return fmt.Errorf("run cancelled before %s: %w", stage.Name, err)
		}

		start := time.Now()
		sr.logger.Debug().Str("stage", stage.Name).Msg("Stage starting")

		err := stage.Run(ctx)
		metrics.RecordStage(stage.Name, start, err)
		if err != nil {
			sr.logger.Error().
				Err(err).
				Str("stage", stage.Name).
				Dur("elapsed", time.Since(start)).
				Msg("Stage failed")
			return fmt.Errorf("stage %s: %w", stage.Name, err)
		}

		sr.completed = append(sr.completed, stage.Name)
		sr.logger.Debug().
			Str("stage", stage.Name).
			Dur("elapsed", time.Since(start)).
			Msg("Stage completed")
	}
	return nil
}

// Completed returns the names of stages that finished successfully
func (sr *StageRunner) Completed() []string {
	out := make([]string, len(sr.completed))
	copy(out, sr.completed)
	return out
}
