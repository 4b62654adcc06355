package domain

import (
	"testing"
	"time"

	"github.com/draftea/saga-system/shared/events"
	"github.com/draftea/saga-system/shared/models"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	testStepTimeout         = 30 * time.Second
	testCompensationTimeout = 2 * time.Minute
)

var testNow = time.Date(2024, 3, 10, 12, 0, 0, 0, time.UTC)

func createOrderDefinition(t *testing.T) Definition {
	t.Helper()
	registry, err := NewRegistry(BaselineDefinitions()...)
	require.NoError(t, err)
	def, err := registry.GetDefinition(SagaTypeCreateOrder)
	require.NoError(t, err)
	return def
}

func newTestSaga(t *testing.T) (*Saga, Definition) {
	t.Helper()
	def := createOrderDefinition(t)
	saga, err := NewSaga(def, models.Payload{"order_id": "ord-1"}, testNow, testStepTimeout)
	require.NoError(t, err)
	return saga, def
}

func eventTypes(evts []*events.Event) []string {
	types := make([]string, 0, len(evts))
	for _, e := range evts {
		types = append(types, e.EventType)
	}
	return types
}

func TestNewSaga(t *testing.T) {
	saga, _ := newTestSaga(t)

	assert.NotEmpty(t, saga.ID)
	assert.Equal(t, SagaTypeCreateOrder, saga.Type)
	assert.Equal(t, SagaStatusStarted, saga.Status)
	assert.Equal(t, 0, saga.CurrentStep)
	assert.Equal(t, 5, saga.TotalSteps)
	assert.Equal(t, testNow, saga.StartedAt)
	assert.Equal(t, testNow.Add(testStepTimeout), saga.TimeoutAt)
	assert.Nil(t, saga.CompletedAt)
	assert.Equal(t, 1, saga.Version.Value)
	assert.Equal(t, []string{events.SagaStartedEvent}, eventTypes(saga.Events()))
}

func TestNewSaga_NilDataBecomesEmptyObject(t *testing.T) {
	saga, err := NewSaga(createOrderDefinition(t), nil, testNow, testStepTimeout)
	require.NoError(t, err)
	assert.NotNil(t, saga.Data)
	assert.Empty(t, saga.Data)
}

func TestSaga_BeginNextStep(t *testing.T) {
	saga, def := newTestSaga(t)

	step, err := saga.BeginNextStep(def, testNow, testStepTimeout)
	require.NoError(t, err)

	assert.Equal(t, "validate_order", step.StepName)
	assert.Equal(t, 0, step.Sequence)
	assert.Equal(t, StepStatusPending, step.Status)
	assert.Equal(t, saga.ID, step.SagaID)
	assert.Equal(t, 1, saga.CurrentStep)
	assert.Equal(t, step.TimeoutAt, saga.TimeoutAt)
	assert.Same(t, step, saga.PendingStep())

	_, err = saga.BeginNextStep(def, testNow, testStepTimeout)
	assert.True(t, errors.Is(err, ErrStepPending))
	assert.Equal(t, 1, saga.CurrentStep)
}

func TestSaga_RunsEveryStepToCompletion(t *testing.T) {
	saga, def := newTestSaga(t)
	now := testNow

	for i, name := range def.Steps {
		step, err := saga.BeginNextStep(def, now, testStepTimeout)
		require.NoError(t, err)
		assert.Equal(t, name, step.StepName)
		assert.Equal(t, i, step.Sequence)

		now = now.Add(time.Second)
		_, err = saga.CompleteStep(step.ID, models.Payload{name: true}, now)
		require.NoError(t, err)
	}

	_, err := saga.BeginNextStep(def, now, testStepTimeout)
	assert.True(t, errors.Is(err, ErrNoStepsRemaining))

	require.NoError(t, saga.Complete(now))
	assert.Equal(t, SagaStatusCompleted, saga.Status)
	assert.Equal(t, saga.TotalSteps, saga.CurrentStep)
	require.NotNil(t, saga.CompletedAt)
	assert.Equal(t, now, *saga.CompletedAt)
	assert.Equal(t, 100, saga.ProgressPercent())
	assert.True(t, saga.Status.IsTerminal())
}

func TestSaga_Complete_RequiresAllSteps(t *testing.T) {
	saga, def := newTestSaga(t)
	step, err := saga.BeginNextStep(def, testNow, testStepTimeout)
	require.NoError(t, err)

	err = saga.Complete(testNow)
	assert.True(t, errors.Is(err, ErrInvalidTransition))

	_, err = saga.CompleteStep(step.ID, nil, testNow)
	require.NoError(t, err)
	err = saga.Complete(testNow)
	assert.True(t, errors.Is(err, ErrInvalidTransition))
	assert.Equal(t, SagaStatusStarted, saga.Status)
}

func TestSaga_ResolvedStepIsImmutable(t *testing.T) {
	tests := []struct {
		name    string
		resolve func(*Saga, models.ID) error
	}{
		{
			name: "complete twice",
			resolve: func(s *Saga, id models.ID) error {
				_, err := s.CompleteStep(id, models.Payload{"second": true}, testNow)
				return err
			},
		},
		{
			name: "fail after complete",
			resolve: func(s *Saga, id models.ID) error {
				_, err := s.FailStep(id, "late failure", testNow)
				return err
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			saga, def := newTestSaga(t)
			step, err := saga.BeginNextStep(def, testNow, testStepTimeout)
			require.NoError(t, err)
			_, err = saga.CompleteStep(step.ID, models.Payload{"first": true}, testNow)
			require.NoError(t, err)

			err = tt.resolve(saga, step.ID)
			assert.True(t, errors.Is(err, ErrStepAlreadyResolved))
			assert.Equal(t, StepStatusCompleted, step.Status)
			assert.Equal(t, models.Payload{"first": true}, step.Result)
			assert.Empty(t, step.Error)
		})
	}
}

func TestSaga_UnknownStep(t *testing.T) {
	saga, _ := newTestSaga(t)

	_, err := saga.CompleteStep(models.GenerateUUID(), nil, testNow)
	assert.True(t, errors.Is(err, ErrStepNotFound))

	_, err = saga.FailStep(models.GenerateUUID(), "boom", testNow)
	assert.True(t, errors.Is(err, ErrStepNotFound))
}

func TestSaga_Compensation(t *testing.T) {
	saga, def := newTestSaga(t)

	var completed []*SagaStep
	for i := 0; i < 3; i++ {
		step, err := saga.BeginNextStep(def, testNow.Add(time.Duration(i)*time.Second), testStepTimeout)
		require.NoError(t, err)
		_, err = saga.CompleteStep(step.ID, models.Payload{"seq": i}, testNow.Add(time.Duration(i)*time.Second))
		require.NoError(t, err)
		completed = append(completed, step)
	}

	failing, err := saga.BeginNextStep(def, testNow, testStepTimeout)
	require.NoError(t, err)
	_, err = saga.FailStep(failing.ID, "card declined", testNow)
	require.NoError(t, err)
	assert.Equal(t, "charge_payment: card declined", saga.FailureReason)
	assert.Equal(t, 60, saga.ProgressPercent())

	failAt := testNow.Add(time.Minute)
	require.NoError(t, saga.StartCompensation(failAt, testCompensationTimeout))
	assert.Equal(t, SagaStatusCompensating, saga.Status)
	assert.Equal(t, failAt.Add(testCompensationTimeout), saga.TimeoutAt)

	order := CompensationOrder(saga.CompletedSteps())
	require.Len(t, order, 3)
	assert.Equal(t, []string{"create_order", "reserve_inventory", "validate_order"},
		[]string{order[0].StepName, order[1].StepName, order[2].StepName})
	assert.Equal(t, completed[0].StepName, saga.CompletedSteps()[0].StepName)

	_, err = saga.BeginNextStep(def, failAt, testStepTimeout)
	assert.True(t, errors.Is(err, ErrInvalidTransition))
	assert.True(t, errors.Is(saga.Complete(failAt), ErrInvalidTransition))
	assert.True(t, errors.Is(saga.StartCompensation(failAt, testCompensationTimeout), ErrInvalidTransition))

	saga.RecordCompensationOutcome(order[0].ID, "cancel_order", errors.New("order service down"))

	require.NoError(t, saga.FinishCompensation(failAt))
	assert.Equal(t, SagaStatusCompensated, saga.Status)
	require.NotNil(t, saga.CompletedAt)
	assert.True(t, errors.Is(saga.FinishCompensation(failAt), ErrInvalidTransition))

	assert.Equal(t, []string{
		events.SagaStartedEvent,
		events.SagaStepDispatchedEvent, events.SagaStepResolvedEvent,
		events.SagaStepDispatchedEvent, events.SagaStepResolvedEvent,
		events.SagaStepDispatchedEvent, events.SagaStepResolvedEvent,
		events.SagaStepDispatchedEvent, events.SagaStepResolvedEvent,
		events.SagaCompensationStartedEvent,
		events.SagaCompensationRecordedEvent,
		events.SagaCompensatedEvent,
	}, eventTypes(saga.Events()))
}

func TestSaga_StartCompensation_RequiresResolvedStep(t *testing.T) {
	saga, def := newTestSaga(t)
	_, err := saga.BeginNextStep(def, testNow, testStepTimeout)
	require.NoError(t, err)

	err = saga.StartCompensation(testNow, testCompensationTimeout)
	assert.True(t, errors.Is(err, ErrStepPending))
	assert.Equal(t, SagaStatusStarted, saga.Status)
}

func TestSaga_StepInput(t *testing.T) {
	saga, def := newTestSaga(t)

	first, err := saga.BeginNextStep(def, testNow, testStepTimeout)
	require.NoError(t, err)
	assert.Equal(t, models.Payload{"order_id": "ord-1"}, saga.StepInput())

	_, err = saga.CompleteStep(first.ID, models.Payload{"validated": true, "order_id": "ord-1-normalized"}, testNow)
	require.NoError(t, err)

	second, err := saga.BeginNextStep(def, testNow, testStepTimeout)
	require.NoError(t, err)
	_, err = saga.CompleteStep(second.ID, models.Payload{"reservation_id": "res-9"}, testNow)
	require.NoError(t, err)

	assert.Equal(t, models.Payload{
		"order_id":       "ord-1-normalized",
		"validated":      true,
		"reservation_id": "res-9",
	}, saga.StepInput())
	assert.Equal(t, models.Payload{"order_id": "ord-1"}, saga.Data)
}

func TestSaga_ProgressPercent(t *testing.T) {
	saga, def := newTestSaga(t)
	assert.Equal(t, 0, saga.ProgressPercent())

	for i := 0; i < 2; i++ {
		step, err := saga.BeginNextStep(def, testNow, testStepTimeout)
		require.NoError(t, err)
		_, err = saga.CompleteStep(step.ID, nil, testNow)
		require.NoError(t, err)
	}
	_, err := saga.BeginNextStep(def, testNow, testStepTimeout)
	require.NoError(t, err)

	assert.Equal(t, 40, saga.ProgressPercent())
}

func TestSagaStep_IsExpired(t *testing.T) {
	saga, def := newTestSaga(t)
	step, err := saga.BeginNextStep(def, testNow, testStepTimeout)
	require.NoError(t, err)

	assert.False(t, step.IsExpired(testNow.Add(testStepTimeout)))
	assert.True(t, step.IsExpired(testNow.Add(testStepTimeout+time.Millisecond)))

	_, err = saga.FailStep(step.ID, ErrStepTimedOut.Error(), testNow.Add(time.Hour))
	require.NoError(t, err)
	assert.False(t, step.IsExpired(testNow.Add(time.Hour)))
	require.NotNil(t, step.FailedAt)
	assert.Nil(t, step.CompletedAt)
}

func TestSaga_Clone(t *testing.T) {
	saga, def := newTestSaga(t)
	step, err := saga.BeginNextStep(def, testNow, testStepTimeout)
	require.NoError(t, err)
	_, err = saga.CompleteStep(step.ID, models.Payload{"k": "v"}, testNow)
	require.NoError(t, err)

	clone := saga.Clone()
	clone.Steps[0].Result["k"] = "changed"
	clone.Data["order_id"] = "changed"
	clone.CurrentStep = 4

	assert.Equal(t, "v", saga.Steps[0].Result["k"])
	assert.Equal(t, "ord-1", saga.Data["order_id"])
	assert.Equal(t, 1, saga.CurrentStep)
	assert.Empty(t, clone.Events())
	assert.NotEmpty(t, saga.Events())
}
