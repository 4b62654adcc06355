package application

import (
	"context"
	"time"

	"github.com/draftea/saga-system/orchestrator-service/domain"
	"github.com/draftea/saga-system/shared/models"
	"github.com/pkg/errors"
)

// GetSagaStatusQuery represents the query to get the status of a saga
type GetSagaStatusQuery struct {
	SagaID string `json:"saga_id"`
}

// SagaStepResponse describes one executed step
type SagaStepResponse struct {
	StepID      string         `json:"step_id"`
	Sequence    int            `json:"sequence"`
	StepName    string         `json:"step_name"`
	Status      string         `json:"status"`
	Result      models.Payload `json:"result,omitempty"`
	Error       string         `json:"error,omitempty"`
	StartedAt   string         `json:"started_at"`
	CompletedAt string         `json:"completed_at,omitempty"`
	FailedAt    string         `json:"failed_at,omitempty"`
	TimeoutAt   string         `json:"timeout_at"`
}

// SagaStatusResponse represents the response for getting a saga status
type SagaStatusResponse struct {
	SagaID          string             `json:"saga_id"`
	Type            string             `json:"type"`
	Status          string             `json:"status"`
	CurrentStep     int                `json:"current_step"`
	TotalSteps      int                `json:"total_steps"`
	ProgressPercent int                `json:"progress_percent"`
	FailureReason   string             `json:"failure_reason,omitempty"`
	StartedAt       string             `json:"started_at"`
	CompletedAt     string             `json:"completed_at,omitempty"`
	TimeoutAt       string             `json:"timeout_at"`
	Steps           []SagaStepResponse `json:"steps"`
}

// GetSagaStatus use case
type GetSagaStatus struct {
	sagaRepository domain.SagaRepository
}

// NewGetSagaStatus creates a new GetSagaStatus use case
func NewGetSagaStatus(sagaRepository domain.SagaRepository) *GetSagaStatus {
	return &GetSagaStatus{
		sagaRepository: sagaRepository,
	}
}

// Execute executes the get saga status use case
func (uc *GetSagaStatus) Execute(ctx context.Context, query *GetSagaStatusQuery) (*SagaStatusResponse, error) {
	if query.SagaID == "" {
		return nil, errors.Wrap(domain.ErrInvalidPayload, "saga ID is required")
	}

	sagaID, err := models.NewID(query.SagaID)
	if err != nil {
		return nil, errors.Wrapf(domain.ErrInvalidPayload, "invalid saga ID: %v", err)
	}

	saga, err := uc.sagaRepository.FindByID(ctx, sagaID)
	if err != nil {
		return nil, errors.Wrap(err, "failed to find saga")
	}

	if saga == nil {
		return nil, errors.Wrapf(domain.ErrSagaNotFound, "saga %s", sagaID)
	}

	response := &SagaStatusResponse{
		SagaID:          saga.ID.String(),
		Type:            saga.Type,
		Status:          string(saga.Status),
		CurrentStep:     saga.CurrentStep,
		TotalSteps:      saga.TotalSteps,
		ProgressPercent: saga.ProgressPercent(),
		FailureReason:   saga.FailureReason,
		StartedAt:       saga.StartedAt.Format(time.RFC3339),
		CompletedAt:     formatOptional(saga.CompletedAt),
		TimeoutAt:       saga.TimeoutAt.Format(time.RFC3339),
		Steps:           make([]SagaStepResponse, 0, len(saga.Steps)),
	}

	for _, step := range saga.Steps {
		response.Steps = append(response.Steps, SagaStepResponse{
			StepID:      step.ID.String(),
			Sequence:    step.Sequence,
			StepName:    step.StepName,
			Status:      string(step.Status),
			Result:      step.Result,
			Error:       step.Error,
			StartedAt:   step.StartedAt.Format(time.RFC3339),
			CompletedAt: formatOptional(step.CompletedAt),
			FailedAt:    formatOptional(step.FailedAt),
			TimeoutAt:   step.TimeoutAt.Format(time.RFC3339),
		})
	}

	return response, nil
}

func formatOptional(t *time.Time) string {
	if t == nil {
		return ""
	}
	return t.Format(time.RFC3339)
}
