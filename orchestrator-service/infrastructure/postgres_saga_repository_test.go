package infrastructure

import (
	"context"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/draftea/saga-system/orchestrator-service/domain"
	"github.com/draftea/saga-system/shared/models"
	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	sagaRowColumns = []string{
		"id", "type", "status", "data", "current_step", "total_steps", "failure_reason",
		"started_at", "completed_at", "timeout_at", "created_at", "updated_at", "version",
	}
	stepRowColumns = []string{
		"id", "saga_id", "sequence", "step_name", "status", "result", "error",
		"started_at", "completed_at", "failed_at", "timeout_at",
	}
)

func newMockSagaRepository(t *testing.T) (*PostgresSagaRepository, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return NewPostgresSagaRepository(sqlx.NewDb(db, "postgres")), mock
}

func newRunningSaga(t *testing.T, now time.Time) *domain.Saga {
	t.Helper()
	registry, err := domain.NewRegistry(domain.BaselineDefinitions()...)
	require.NoError(t, err)
	def, err := registry.GetDefinition(domain.SagaTypeCreateOrder)
	require.NoError(t, err)

	saga, err := domain.NewSaga(def, models.Payload{"order_id": "ord-1"}, now, 30*time.Second)
	require.NoError(t, err)
	step, err := saga.BeginNextStep(def, now, 30*time.Second)
	require.NoError(t, err)
	_, err = saga.CompleteStep(step.ID, models.Payload{"valid": true}, now)
	require.NoError(t, err)
	_, err = saga.BeginNextStep(def, now, 30*time.Second)
	require.NoError(t, err)
	saga.ClearEvents()
	return saga
}

func TestPostgresSagaRepository_Create(t *testing.T) {
	now := time.Date(2024, 3, 10, 12, 0, 0, 0, time.UTC)

	tests := []struct {
		name          string
		setupMock     func(mock sqlmock.Sqlmock)
		expectedError string
	}{
		{
			name: "inserts saga and steps in one transaction",
			setupMock: func(mock sqlmock.Sqlmock) {
				mock.ExpectBegin()
				mock.ExpectExec(`INSERT INTO sagas`).WillReturnResult(sqlmock.NewResult(0, 1))
				mock.ExpectExec(`INSERT INTO saga_steps .* ON CONFLICT \(id\) DO UPDATE`).WillReturnResult(sqlmock.NewResult(0, 1))
				mock.ExpectExec(`INSERT INTO saga_steps`).WillReturnResult(sqlmock.NewResult(0, 1))
				mock.ExpectCommit()
			},
		},
		{
			name: "saga insert failure rolls back",
			setupMock: func(mock sqlmock.Sqlmock) {
				mock.ExpectBegin()
				mock.ExpectExec(`INSERT INTO sagas`).WillReturnError(errors.New("duplicate key"))
				mock.ExpectRollback()
			},
			expectedError: "failed to insert saga",
		},
		{
			name: "step insert failure rolls back",
			setupMock: func(mock sqlmock.Sqlmock) {
				mock.ExpectBegin()
				mock.ExpectExec(`INSERT INTO sagas`).WillReturnResult(sqlmock.NewResult(0, 1))
				mock.ExpectExec(`INSERT INTO saga_steps`).WillReturnError(errors.New("unique violation"))
				mock.ExpectRollback()
			},
			expectedError: "failed to save saga step validate_order",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			repo, mock := newMockSagaRepository(t)
			tt.setupMock(mock)

			err := repo.Create(context.Background(), newRunningSaga(t, now))

			if tt.expectedError != "" {
				assert.Error(t, err)
				assert.Contains(t, err.Error(), tt.expectedError)
			} else {
				assert.NoError(t, err)
			}
			assert.NoError(t, mock.ExpectationsWereMet())
		})
	}
}

func TestPostgresSagaRepository_Update(t *testing.T) {
	now := time.Date(2024, 3, 10, 12, 0, 0, 0, time.UTC)

	tests := []struct {
		name            string
		setupMock       func(mock sqlmock.Sqlmock)
		expectedError   error
		expectedVersion int
	}{
		{
			name: "matching version bumps version",
			setupMock: func(mock sqlmock.Sqlmock) {
				mock.ExpectBegin()
				mock.ExpectExec(`UPDATE sagas\s+SET .* version = version \+ 1\s+WHERE id = \$\d+ AND version = \$\d+`).
					WillReturnResult(sqlmock.NewResult(0, 1))
				mock.ExpectExec(`INSERT INTO saga_steps`).WillReturnResult(sqlmock.NewResult(0, 0))
				mock.ExpectExec(`INSERT INTO saga_steps`).WillReturnResult(sqlmock.NewResult(0, 1))
				mock.ExpectCommit()
			},
			expectedVersion: 2,
		},
		{
			name: "stale version is a concurrent modification",
			setupMock: func(mock sqlmock.Sqlmock) {
				mock.ExpectBegin()
				mock.ExpectExec(`UPDATE sagas`).WillReturnResult(sqlmock.NewResult(0, 0))
				mock.ExpectRollback()
			},
			expectedError:   domain.ErrConcurrentModification,
			expectedVersion: 1,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			repo, mock := newMockSagaRepository(t)
			tt.setupMock(mock)

			saga := newRunningSaga(t, now)
			err := repo.Update(context.Background(), saga)

			if tt.expectedError != nil {
				assert.True(t, errors.Is(err, tt.expectedError))
			} else {
				assert.NoError(t, err)
			}
			assert.Equal(t, tt.expectedVersion, saga.Version.Value)
			assert.NoError(t, mock.ExpectationsWereMet())
		})
	}
}

func TestPostgresSagaRepository_FindByID(t *testing.T) {
	now := time.Date(2024, 3, 10, 12, 0, 0, 0, time.UTC)
	sagaID := models.GenerateUUID()
	stepID := models.GenerateUUID()
	completedAt := now.Add(time.Second)

	t.Run("saga with steps", func(t *testing.T) {
		repo, mock := newMockSagaRepository(t)

		mock.ExpectQuery(`SELECT .* FROM sagas WHERE id = \$1`).
			WithArgs(sagaID.String()).
			WillReturnRows(sqlmock.NewRows(sagaRowColumns).AddRow(
				sagaID.String(), domain.SagaTypeCreateOrder, "started", []byte(`{"order_id":"ord-1"}`), 1, 5, "",
				now, nil, now.Add(30*time.Second), now, now, 3,
			))
		mock.ExpectQuery(`SELECT .* FROM saga_steps\s+WHERE saga_id = ANY\(\$1::uuid\[\]\)`).
			WillReturnRows(sqlmock.NewRows(stepRowColumns).AddRow(
				stepID.String(), sagaID.String(), 0, "validate_order", "completed", []byte(`{"valid":true}`), "",
				now, completedAt, nil, now.Add(30*time.Second),
			))

		saga, err := repo.FindByID(context.Background(), sagaID)
		require.NoError(t, err)
		require.NotNil(t, saga)

		assert.Equal(t, sagaID, saga.ID)
		assert.Equal(t, domain.SagaStatusStarted, saga.Status)
		assert.Equal(t, "ord-1", saga.Data["order_id"])
		assert.Equal(t, 3, saga.Version.Value)
		require.Len(t, saga.Steps, 1)
		assert.Equal(t, stepID, saga.Steps[0].ID)
		assert.Equal(t, domain.StepStatusCompleted, saga.Steps[0].Status)
		assert.Equal(t, true, saga.Steps[0].Result["valid"])
		require.NotNil(t, saga.Steps[0].CompletedAt)
		assert.True(t, completedAt.Equal(*saga.Steps[0].CompletedAt))
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("missing saga returns nil", func(t *testing.T) {
		repo, mock := newMockSagaRepository(t)

		mock.ExpectQuery(`SELECT .* FROM sagas WHERE id = \$1`).
			WithArgs(sagaID.String()).
			WillReturnRows(sqlmock.NewRows(sagaRowColumns))

		saga, err := repo.FindByID(context.Background(), sagaID)
		assert.NoError(t, err)
		assert.Nil(t, saga)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("query failure", func(t *testing.T) {
		repo, mock := newMockSagaRepository(t)

		mock.ExpectQuery(`SELECT .* FROM sagas`).WillReturnError(errors.New("connection reset"))

		saga, err := repo.FindByID(context.Background(), sagaID)
		assert.Error(t, err)
		assert.Contains(t, err.Error(), "failed to find saga")
		assert.Nil(t, saga)
	})
}

func TestPostgresSagaRepository_FindTimedOut(t *testing.T) {
	now := time.Date(2024, 3, 10, 12, 0, 0, 0, time.UTC)
	repo, mock := newMockSagaRepository(t)

	first, second := models.GenerateUUID(), models.GenerateUUID()
	mock.ExpectQuery(`FROM sagas\s+WHERE status IN \('started', 'compensating'\) AND timeout_at < \$1\s+ORDER BY timeout_at\s+LIMIT \$2`).
		WithArgs(now, 50).
		WillReturnRows(sqlmock.NewRows(sagaRowColumns).
			AddRow(first.String(), domain.SagaTypeCreateOrder, "started", []byte(`{}`), 1, 5, "",
				now.Add(-time.Hour), nil, now.Add(-time.Minute), now.Add(-time.Hour), now.Add(-time.Hour), 2).
			AddRow(second.String(), domain.SagaTypeCancelOrder, "compensating", []byte(`{}`), 3, 5, "refund_payment: declined",
				now.Add(-time.Hour), nil, now.Add(-time.Second), now.Add(-time.Hour), now.Add(-time.Hour), 5))
	mock.ExpectQuery(`FROM saga_steps`).WillReturnRows(sqlmock.NewRows(stepRowColumns))

	sagas, err := repo.FindTimedOut(context.Background(), now, 50)
	require.NoError(t, err)
	require.Len(t, sagas, 2)
	assert.Equal(t, first, sagas[0].ID)
	assert.Equal(t, domain.SagaStatusCompensating, sagas[1].Status)
	assert.Empty(t, sagas[1].Steps)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresSagaRepository_FindRecent_Empty(t *testing.T) {
	repo, mock := newMockSagaRepository(t)

	mock.ExpectQuery(`FROM sagas ORDER BY started_at DESC, id DESC LIMIT \$1`).
		WithArgs(20).
		WillReturnRows(sqlmock.NewRows(sagaRowColumns))

	sagas, err := repo.FindRecent(context.Background(), 20)
	require.NoError(t, err)
	assert.Empty(t, sagas)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresSagaRepository_DeleteTerminalBefore(t *testing.T) {
	cutoff := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)

	tests := []struct {
		name          string
		setupMock     func(mock sqlmock.Sqlmock)
		expected      int64
		expectedError string
	}{
		{
			name: "removes sagas and their journal",
			setupMock: func(mock sqlmock.Sqlmock) {
				mock.ExpectBegin()
				mock.ExpectQuery(`DELETE FROM sagas\s+WHERE status IN \('completed', 'compensated'\) AND completed_at < \$1\s+RETURNING id`).
					WithArgs(cutoff).
					WillReturnRows(sqlmock.NewRows([]string{"id"}).
						AddRow(models.GenerateUUID().String()).
						AddRow(models.GenerateUUID().String()))
				mock.ExpectExec(`DELETE FROM event_stream WHERE aggregate_id = ANY\(\$1::uuid\[\]\)`).
					WillReturnResult(sqlmock.NewResult(0, 9))
				mock.ExpectCommit()
			},
			expected: 2,
		},
		{
			name: "nothing to delete",
			setupMock: func(mock sqlmock.Sqlmock) {
				mock.ExpectBegin()
				mock.ExpectQuery(`DELETE FROM sagas`).WillReturnRows(sqlmock.NewRows([]string{"id"}))
				mock.ExpectCommit()
			},
			expected: 0,
		},
		{
			name: "journal delete failure rolls back",
			setupMock: func(mock sqlmock.Sqlmock) {
				mock.ExpectBegin()
				mock.ExpectQuery(`DELETE FROM sagas`).
					WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(models.GenerateUUID().String()))
				mock.ExpectExec(`DELETE FROM event_stream`).WillReturnError(errors.New("timeout"))
				mock.ExpectRollback()
			},
			expectedError: "failed to delete saga journal",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			repo, mock := newMockSagaRepository(t)
			tt.setupMock(mock)

			deleted, err := repo.DeleteTerminalBefore(context.Background(), cutoff)

			if tt.expectedError != "" {
				assert.Error(t, err)
				assert.Contains(t, err.Error(), tt.expectedError)
			} else {
				assert.NoError(t, err)
				assert.Equal(t, tt.expected, deleted)
			}
			assert.NoError(t, mock.ExpectationsWereMet())
		})
	}
}
