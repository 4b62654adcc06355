package application

import (
	"context"
	"time"

	"github.com/draftea/saga-system/orchestrator-service/domain"
	"github.com/draftea/saga-system/shared/logger"
	"github.com/draftea/saga-system/shared/telemetry"
	"github.com/pkg/errors"
	"go.uber.org/zap"
)

// SweepResult summarizes one sweep pass
type SweepResult struct {
	StepsTimedOut       int `json:"steps_timed_out"`
	CompensationsForced int `json:"compensations_forced"`
	Failures            int `json:"failures"`
}

// SweeperOption configures a TimeoutSweeper
type SweeperOption func(*TimeoutSweeper)

// WithSweeperClock replaces the time source
func WithSweeperClock(now func() time.Time) SweeperOption {
	return func(s *TimeoutSweeper) {
		s.now = now
	}
}

// TimeoutSweeper converts expired deadlines into callbacks. An expired step is
// failed exactly like a participant failure and an expired compensation phase
// is closed, so no saga stays non terminal forever.
type TimeoutSweeper struct {
	repository domain.SagaRepository
	callbacks  domain.StepCallbacks
	interval   time.Duration
	batchSize  int
	logger     *zap.Logger
	now        func() time.Time
}

// NewTimeoutSweeper creates a new timeout sweeper
func NewTimeoutSweeper(
	repository domain.SagaRepository,
	callbacks domain.StepCallbacks,
	interval time.Duration,
	batchSize int,
	log *zap.Logger,
	opts ...SweeperOption,
) *TimeoutSweeper {
	s := &TimeoutSweeper{
		repository: repository,
		callbacks:  callbacks,
		interval:   interval,
		batchSize:  batchSize,
		logger:     logger.OrNop(log),
		now:        time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Run sweeps on every tick until ctx is done
func (s *TimeoutSweeper) Run(ctx context.Context) error {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	s.logger.Info("timeout sweeper started", zap.Duration("interval", s.interval))
	for {
		select {
		case <-ctx.Done():
			s.logger.Info("timeout sweeper stopped")
			return nil
		case <-ticker.C:
			result, err := s.SweepOnce(ctx)
			if err != nil {
				s.logger.Error("timeout sweep failed", zap.Error(err))
				continue
			}
			if result.StepsTimedOut > 0 || result.CompensationsForced > 0 || result.Failures > 0 {
				s.logger.Info("timeout sweep finished",
					zap.Int("steps_timed_out", result.StepsTimedOut),
					zap.Int("compensations_forced", result.CompensationsForced),
					zap.Int("failures", result.Failures),
				)
			}
		}
	}
}

// SweepOnce handles one batch of sagas whose deadline has passed
func (s *TimeoutSweeper) SweepOnce(ctx context.Context) (SweepResult, error) {
	var result SweepResult

	now := s.now()
	sagas, err := s.repository.FindTimedOut(ctx, now, s.batchSize)
	if err != nil {
		return result, errors.Wrap(err, "failed to find timed out sagas")
	}

	for _, saga := range sagas {
		if ctx.Err() != nil {
			return result, ctx.Err()
		}

		switch saga.Status {
		case domain.SagaStatusStarted:
			step := saga.PendingStep()
			if step == nil || !step.IsExpired(now) {
				continue
			}

			outcome, err := s.callbacks.FailStep(ctx, saga.ID, step.ID, domain.ErrStepTimedOut.Error())
			if err != nil {
				result.Failures++
				s.logger.Error("failed to time out step",
					zap.String("saga_id", saga.ID.String()),
					zap.String("step_id", step.ID.String()),
					zap.Error(err),
				)
				continue
			}
			if outcome.Applied() {
				result.StepsTimedOut++
				s.logger.Warn("step timed out",
					zap.String("saga_id", saga.ID.String()),
					zap.String("step_id", step.ID.String()),
					zap.String("step_name", step.StepName),
				)
			}

		case domain.SagaStatusCompensating:
			if !now.After(saga.TimeoutAt) {
				continue
			}

			outcome, err := s.callbacks.FinishCompensation(ctx, saga.ID)
			if err != nil {
				result.Failures++
				s.logger.Error("failed to force compensation finish",
					zap.String("saga_id", saga.ID.String()),
					zap.Error(err),
				)
				continue
			}
			if outcome.Applied() {
				result.CompensationsForced++
				s.logger.Warn("compensation deadline passed, saga marked compensated",
					zap.String("saga_id", saga.ID.String()),
				)
			}
		}
	}

	telemetry.RecordTimeoutSweep(ctx, "step", result.StepsTimedOut)
	telemetry.RecordTimeoutSweep(ctx, "compensation", result.CompensationsForced)
	return result, nil
}
