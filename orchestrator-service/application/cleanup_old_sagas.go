package application

import (
	"context"
	"time"

	"github.com/draftea/saga-system/orchestrator-service/domain"
	"github.com/draftea/saga-system/shared/logger"
	"github.com/pkg/errors"
	"go.uber.org/zap"
)

// CleanupOldSagasCommand removes terminal sagas finished more than OlderThanDays ago
type CleanupOldSagasCommand struct {
	OlderThanDays int `json:"older_than_days"`
}

// CleanupOldSagasResponse reports how many sagas were removed
type CleanupOldSagasResponse struct {
	Deleted int64  `json:"deleted"`
	Cutoff  string `json:"cutoff"`
}

// CleanupOldSagas use case. Running sagas are never removed.
type CleanupOldSagas struct {
	sagaRepository domain.SagaRepository
	logger         *zap.Logger
	now            func() time.Time
}

// NewCleanupOldSagas creates a new CleanupOldSagas use case
func NewCleanupOldSagas(sagaRepository domain.SagaRepository, log *zap.Logger) *CleanupOldSagas {
	return &CleanupOldSagas{
		sagaRepository: sagaRepository,
		logger:         logger.OrNop(log),
		now:            time.Now,
	}
}

// Execute executes the cleanup old sagas use case
func (uc *CleanupOldSagas) Execute(ctx context.Context, cmd *CleanupOldSagasCommand) (*CleanupOldSagasResponse, error) {
	if cmd.OlderThanDays < 1 {
		return nil, errors.Wrap(domain.ErrInvalidPayload, "older_than_days must be at least 1")
	}

	cutoff := uc.now().AddDate(0, 0, -cmd.OlderThanDays)
	deleted, err := uc.sagaRepository.DeleteTerminalBefore(ctx, cutoff)
	if err != nil {
		return nil, errors.Wrap(err, "failed to delete old sagas")
	}

	uc.logger.Info("old sagas removed",
		zap.Int64("deleted", deleted),
		zap.Time("cutoff", cutoff),
	)

	return &CleanupOldSagasResponse{
		Deleted: deleted,
		Cutoff:  cutoff.Format(time.RFC3339),
	}, nil
}
