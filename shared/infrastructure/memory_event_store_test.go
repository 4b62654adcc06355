package infrastructure

import (
	"context"
	"testing"
	"time"

	"github.com/draftea/saga-system/shared/events"
	"github.com/draftea/saga-system/shared/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryEventStore(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryEventStore()
	sagaA := models.GenerateUUID()
	sagaB := models.GenerateUUID()

	started := events.NewEvent(sagaA, events.SagaStartedEvent, map[string]string{"type": "create_order"})
	dispatched := events.NewEvent(sagaA, events.SagaStepDispatchedEvent, map[string]string{"step": "validate_order"})
	dispatched.Timestamp = started.Timestamp.Add(time.Millisecond)
	otherStarted := events.NewEvent(sagaB, events.SagaStartedEvent, map[string]string{"type": "cancel_order"})
	otherStarted.Timestamp = started.Timestamp.Add(2 * time.Millisecond)

	require.NoError(t, store.SaveEvents(ctx, sagaA, []*events.Event{started}, 0))
	require.NoError(t, store.SaveEvents(ctx, sagaA, []*events.Event{dispatched}, 1))
	require.NoError(t, store.SaveEvents(ctx, sagaB, []*events.Event{otherStarted}, events.AnyVersion))

	t.Run("version conflict", func(t *testing.T) {
		err := store.SaveEvents(ctx, sagaA, []*events.Event{dispatched}, 1)
		require.Error(t, err)
		assert.ErrorIs(t, err, events.ErrVersionConflict)
	})

	t.Run("stream in append order", func(t *testing.T) {
		stream, err := store.GetEvents(ctx, sagaA)
		require.NoError(t, err)
		require.Len(t, stream, 2)
		assert.Equal(t, events.SagaStartedEvent, stream[0].EventType)
		assert.Equal(t, events.SagaStepDispatchedEvent, stream[1].EventType)
	})

	t.Run("by type with pagination", func(t *testing.T) {
		page, err := store.GetEventsByType(ctx, events.SagaStartedEvent, 0, 1)
		require.NoError(t, err)
		require.Len(t, page, 1)
		assert.Equal(t, sagaA, page[0].AggregateID)

		page, err = store.GetEventsByType(ctx, events.SagaStartedEvent, 1, 10)
		require.NoError(t, err)
		require.Len(t, page, 1)
		assert.Equal(t, sagaB, page[0].AggregateID)

		page, err = store.GetEventsByType(ctx, events.SagaStartedEvent, 5, 10)
		require.NoError(t, err)
		assert.Empty(t, page)
	})

	t.Run("unknown stream is empty", func(t *testing.T) {
		stream, err := store.GetEvents(ctx, models.GenerateUUID())
		require.NoError(t, err)
		assert.Empty(t, stream)
	})
}
