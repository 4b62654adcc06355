package application

import (
	"context"
	"testing"
	"time"

	"github.com/draftea/saga-system/orchestrator-service/domain"
	"github.com/draftea/saga-system/orchestrator-service/mocks"
	"github.com/draftea/saga-system/shared/models"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func TestGetSagaStatus_Execute(t *testing.T) {
	// Test data
	testTime := time.Date(2023, 1, 15, 10, 30, 0, 0, time.UTC)
	registry, err := domain.NewRegistry(domain.BaselineDefinitions()...)
	require.NoError(t, err)
	def, err := registry.GetDefinition(domain.SagaTypeCreateOrder)
	require.NoError(t, err)

	testSaga, err := domain.NewSaga(def, models.Payload{"order_id": "ord-1"}, testTime, 30*time.Second)
	require.NoError(t, err)
	for i := 0; i < 2; i++ {
		step, err := testSaga.BeginNextStep(def, testTime, 30*time.Second)
		require.NoError(t, err)
		_, err = testSaga.CompleteStep(step.ID, models.Payload{step.StepName: true}, testTime.Add(time.Second))
		require.NoError(t, err)
	}
	_, err = testSaga.BeginNextStep(def, testTime.Add(time.Second), 30*time.Second)
	require.NoError(t, err)
	validSagaID := testSaga.ID.String()

	tests := []struct {
		name           string
		query          *GetSagaStatusQuery
		setupMocks     func(*mocks.MockSagaRepository)
		expectedError  string
		expectedResult *SagaStatusResponse
	}{
		{
			name:  "successful saga retrieval",
			query: &GetSagaStatusQuery{SagaID: validSagaID},
			setupMocks: func(repo *mocks.MockSagaRepository) {
				repo.EXPECT().FindByID(mock.Anything, testSaga.ID).
					Return(testSaga, nil).Once()
			},
			expectedResult: &SagaStatusResponse{
				SagaID:          validSagaID,
				Type:            domain.SagaTypeCreateOrder,
				Status:          "started",
				CurrentStep:     3,
				TotalSteps:      5,
				ProgressPercent: 40,
				StartedAt:       testTime.Format(time.RFC3339),
				TimeoutAt:       testTime.Add(31 * time.Second).Format(time.RFC3339),
			},
		},
		{
			name:          "empty saga ID",
			query:         &GetSagaStatusQuery{SagaID: ""},
			setupMocks:    func(repo *mocks.MockSagaRepository) {},
			expectedError: "saga ID is required",
		},
		{
			name:          "invalid saga ID format",
			query:         &GetSagaStatusQuery{SagaID: "invalid-uuid"},
			setupMocks:    func(repo *mocks.MockSagaRepository) {},
			expectedError: "invalid saga ID",
		},
		{
			name:  "saga not found",
			query: &GetSagaStatusQuery{SagaID: validSagaID},
			setupMocks: func(repo *mocks.MockSagaRepository) {
				repo.EXPECT().FindByID(mock.Anything, testSaga.ID).
					Return(nil, nil).Once()
			},
			expectedError: "saga not found",
		},
		{
			name:  "repository error",
			query: &GetSagaStatusQuery{SagaID: validSagaID},
			setupMocks: func(repo *mocks.MockSagaRepository) {
				repo.EXPECT().FindByID(mock.Anything, testSaga.ID).
					Return(nil, errors.New("database error")).Once()
			},
			expectedError: "failed to find saga",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			// Setup mocks
			mockRepo := mocks.NewMockSagaRepository(t)
			tt.setupMocks(mockRepo)

			// Execute
			result, err := NewGetSagaStatus(mockRepo).Execute(context.Background(), tt.query)

			// Assertions
			if tt.expectedError != "" {
				assert.Error(t, err)
				assert.Contains(t, err.Error(), tt.expectedError)
				assert.Nil(t, result)
				return
			}

			require.NoError(t, err)
			assert.Equal(t, tt.expectedResult.SagaID, result.SagaID)
			assert.Equal(t, tt.expectedResult.Type, result.Type)
			assert.Equal(t, tt.expectedResult.Status, result.Status)
			assert.Equal(t, tt.expectedResult.CurrentStep, result.CurrentStep)
			assert.Equal(t, tt.expectedResult.TotalSteps, result.TotalSteps)
			assert.Equal(t, tt.expectedResult.ProgressPercent, result.ProgressPercent)
			assert.Equal(t, tt.expectedResult.StartedAt, result.StartedAt)
			assert.Equal(t, tt.expectedResult.TimeoutAt, result.TimeoutAt)
			assert.Empty(t, result.CompletedAt)

			require.Len(t, result.Steps, 3)
			assert.Equal(t, "validate_order", result.Steps[0].StepName)
			assert.Equal(t, "completed", result.Steps[0].Status)
			assert.Equal(t, true, result.Steps[0].Result["validate_order"])
			assert.NotEmpty(t, result.Steps[0].CompletedAt)
			assert.Equal(t, "create_order", result.Steps[2].StepName)
			assert.Equal(t, "pending", result.Steps[2].Status)
			assert.Empty(t, result.Steps[2].CompletedAt)
		})
	}
}

func TestGetSagaStatus_InputErrorsAreClassified(t *testing.T) {
	_, err := NewGetSagaStatus(mocks.NewMockSagaRepository(t)).Execute(context.Background(), &GetSagaStatusQuery{})
	assert.True(t, domain.IsInputError(err))
}
