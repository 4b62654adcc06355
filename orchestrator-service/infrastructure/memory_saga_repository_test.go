package infrastructure

import (
	"context"
	"testing"
	"time"

	"github.com/draftea/saga-system/orchestrator-service/domain"
	"github.com/draftea/saga-system/shared/models"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemorySagaRepository_CreateAndFind(t *testing.T) {
	ctx := context.Background()
	repo := NewMemorySagaRepository()
	now := time.Date(2024, 3, 10, 12, 0, 0, 0, time.UTC)

	saga := newRunningSaga(t, now)
	require.NoError(t, repo.Create(ctx, saga))
	assert.Error(t, repo.Create(ctx, saga))

	found, err := repo.FindByID(ctx, saga.ID)
	require.NoError(t, err)
	require.NotNil(t, found)
	assert.Equal(t, saga.ID, found.ID)
	assert.Len(t, found.Steps, 2)

	found.Steps[0].Result["valid"] = false
	again, err := repo.FindByID(ctx, saga.ID)
	require.NoError(t, err)
	assert.Equal(t, true, again.Steps[0].Result["valid"])

	missing, err := repo.FindByID(ctx, models.GenerateUUID())
	assert.NoError(t, err)
	assert.Nil(t, missing)
}

func TestMemorySagaRepository_Update(t *testing.T) {
	ctx := context.Background()
	repo := NewMemorySagaRepository()
	now := time.Date(2024, 3, 10, 12, 0, 0, 0, time.UTC)

	saga := newRunningSaga(t, now)
	require.NoError(t, repo.Create(ctx, saga))

	first, err := repo.FindByID(ctx, saga.ID)
	require.NoError(t, err)
	second, err := repo.FindByID(ctx, saga.ID)
	require.NoError(t, err)

	_, err = first.FailStep(first.PendingStep().ID, "declined", now)
	require.NoError(t, err)
	require.NoError(t, repo.Update(ctx, first))
	assert.Equal(t, 2, first.Version.Value)

	_, err = second.CompleteStep(second.PendingStep().ID, nil, now)
	require.NoError(t, err)
	err = repo.Update(ctx, second)
	assert.True(t, errors.Is(err, domain.ErrConcurrentModification))

	stored, err := repo.FindByID(ctx, saga.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.StepStatusFailed, stored.Steps[1].Status)

	err = repo.Update(ctx, newRunningSaga(t, now))
	assert.True(t, errors.Is(err, domain.ErrSagaNotFound))
}

func TestMemorySagaRepository_Queries(t *testing.T) {
	ctx := context.Background()
	repo := NewMemorySagaRepository()
	now := time.Date(2024, 3, 10, 12, 0, 0, 0, time.UTC)

	oldest := newRunningSaga(t, now.Add(-2*time.Hour))
	middle := newRunningSaga(t, now.Add(-time.Hour))
	newest := newRunningSaga(t, now)

	finishedAt := now.Add(-time.Hour)
	middle.Status = domain.SagaStatusCompleted
	middle.CompletedAt = &finishedAt

	for _, s := range []*domain.Saga{oldest, middle, newest} {
		require.NoError(t, repo.Create(ctx, s))
	}

	recent, err := repo.FindRecent(ctx, 2)
	require.NoError(t, err)
	require.Len(t, recent, 2)
	assert.Equal(t, newest.ID, recent[0].ID)
	assert.Equal(t, middle.ID, recent[1].ID)

	timedOut, err := repo.FindTimedOut(ctx, now.Add(time.Minute), 10)
	require.NoError(t, err)
	require.Len(t, timedOut, 2)
	assert.Equal(t, oldest.ID, timedOut[0].ID)
	assert.Equal(t, newest.ID, timedOut[1].ID)

	deleted, err := repo.DeleteTerminalBefore(ctx, now.Add(-30*time.Minute))
	require.NoError(t, err)
	assert.Equal(t, int64(1), deleted)

	gone, err := repo.FindByID(ctx, middle.ID)
	require.NoError(t, err)
	assert.Nil(t, gone)

	deleted, err = repo.DeleteTerminalBefore(ctx, now.Add(time.Hour))
	require.NoError(t, err)
	assert.Equal(t, int64(0), deleted)
}
