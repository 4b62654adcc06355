package application

import (
	"context"
	"time"

	"github.com/draftea/saga-system/orchestrator-service/domain"
	"github.com/pkg/errors"
)

const (
	DefaultHistoryLimit = 20
	MaxHistoryLimit     = 100
)

// GetSagaHistoryQuery represents the query to list recent sagas
type GetSagaHistoryQuery struct {
	Limit int `json:"limit"`
}

// SagaSummary is one entry of the saga history
type SagaSummary struct {
	SagaID          string `json:"saga_id"`
	Type            string `json:"type"`
	Status          string `json:"status"`
	CurrentStep     int    `json:"current_step"`
	TotalSteps      int    `json:"total_steps"`
	ProgressPercent int    `json:"progress_percent"`
	StartedAt       string `json:"started_at"`
	CompletedAt     string `json:"completed_at,omitempty"`
}

// GetSagaHistoryResponse lists sagas most recent first
type GetSagaHistoryResponse struct {
	Sagas []SagaSummary `json:"sagas"`
}

// GetSagaHistory use case
type GetSagaHistory struct {
	sagaRepository domain.SagaRepository
}

// NewGetSagaHistory creates a new GetSagaHistory use case
func NewGetSagaHistory(sagaRepository domain.SagaRepository) *GetSagaHistory {
	return &GetSagaHistory{
		sagaRepository: sagaRepository,
	}
}

// Execute executes the get saga history use case
func (uc *GetSagaHistory) Execute(ctx context.Context, query *GetSagaHistoryQuery) (*GetSagaHistoryResponse, error) {
	limit := query.Limit
	switch {
	case limit < 0:
		return nil, errors.Wrap(domain.ErrInvalidPayload, "limit must not be negative")
	case limit == 0:
		limit = DefaultHistoryLimit
	case limit > MaxHistoryLimit:
		limit = MaxHistoryLimit
	}

	sagas, err := uc.sagaRepository.FindRecent(ctx, limit)
	if err != nil {
		return nil, errors.Wrap(err, "failed to list sagas")
	}

	response := &GetSagaHistoryResponse{Sagas: make([]SagaSummary, 0, len(sagas))}
	for _, saga := range sagas {
		response.Sagas = append(response.Sagas, SagaSummary{
			SagaID:          saga.ID.String(),
			Type:            saga.Type,
			Status:          string(saga.Status),
			CurrentStep:     saga.CurrentStep,
			TotalSteps:      saga.TotalSteps,
			ProgressPercent: saga.ProgressPercent(),
			StartedAt:       saga.StartedAt.Format(time.RFC3339),
			CompletedAt:     formatOptional(saga.CompletedAt),
		})
	}

	return response, nil
}
