package infrastructure

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/draftea/saga-system/orchestrator-service/domain"
	"github.com/draftea/saga-system/shared/models"
	"github.com/draftea/saga-system/shared/saga"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type echoParticipant struct{}

func (echoParticipant) Name() string { return "echo" }

func (echoParticipant) Execute(ctx context.Context, stepName string, data models.Payload) (models.Payload, error) {
	if stepName == "reject" {
		return nil, saga.Permanent(errors.New("rejected"))
	}
	sagaID, _ := saga.SagaIDFromContext(ctx)
	return models.Payload{"step": stepName, "saga_id": sagaID}, nil
}

func (echoParticipant) Compensate(ctx context.Context, action string, prior models.Payload) (models.Payload, error) {
	if action == "undo_broken" {
		return nil, saga.Permanent(errors.New("cannot undo"))
	}
	return models.Payload{}, nil
}

// recordingCallbacks captures callbacks in arrival order
type recordingCallbacks struct {
	mu      sync.Mutex
	calls   []string
	results map[models.ID]models.Payload
	done    chan struct{}
	want    int
}

func newRecordingCallbacks(want int) *recordingCallbacks {
	return &recordingCallbacks{
		results: make(map[models.ID]models.Payload),
		done:    make(chan struct{}),
		want:    want,
	}
}

func (c *recordingCallbacks) record(call string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.calls = append(c.calls, call)
	if len(c.calls) == c.want {
		close(c.done)
	}
}

func (c *recordingCallbacks) CompleteStep(_ context.Context, _, stepID models.ID, result models.Payload) (domain.Outcome, error) {
	c.mu.Lock()
	c.results[stepID] = result
	c.mu.Unlock()
	c.record("complete:" + stepID.String())
	return domain.AppliedOutcome(), nil
}

func (c *recordingCallbacks) FailStep(_ context.Context, _, stepID models.ID, reason string) (domain.Outcome, error) {
	c.record(fmt.Sprintf("fail:%s:%s", stepID, reason))
	return domain.AppliedOutcome(), nil
}

func (c *recordingCallbacks) ReportCompensation(_ context.Context, _, _ models.ID, action string, compensationErr error) error {
	c.record(fmt.Sprintf("compensate:%s:%t", action, compensationErr == nil))
	return nil
}

func (c *recordingCallbacks) FinishCompensation(_ context.Context, sagaID models.ID) (domain.Outcome, error) {
	c.record("finish:" + sagaID.String())
	return domain.AppliedOutcome(), nil
}

func (c *recordingCallbacks) wait(t *testing.T) []string {
	t.Helper()
	select {
	case <-c.done:
	case <-time.After(5 * time.Second):
		t.Fatal("timed out waiting for callbacks")
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]string(nil), c.calls...)
}

func newTestDispatcher(t *testing.T, workers int, callbacks domain.StepCallbacks) *LocalStepDispatcher {
	t.Helper()
	participants := saga.NewParticipants().
		Register(echoParticipant{}, "validate_order", "").
		Register(echoParticipant{}, "reject", "").
		Register(echoParticipant{}, "reserve_inventory", "release_inventory").
		Register(echoParticipant{}, "charge_payment", "undo_broken")
	runner := saga.NewRunner(participants, saga.RetryPolicy{MaxAttempts: 1, InitialBackoff: time.Millisecond})

	dispatcher := NewLocalStepDispatcher(runner, workers, nil)
	require.NoError(t, dispatcher.Start(context.Background(), callbacks))
	t.Cleanup(func() { _ = dispatcher.Stop() })
	return dispatcher
}

func TestLocalStepDispatcher_DispatchStep(t *testing.T) {
	tests := []struct {
		name     string
		stepName string
		expected func(stepID models.ID) string
	}{
		{
			name:     "successful step reports completion",
			stepName: "validate_order",
			expected: func(stepID models.ID) string { return "complete:" + stepID.String() },
		},
		{
			name:     "rejected step reports failure with reason",
			stepName: "reject",
			expected: func(stepID models.ID) string {
				return "fail:" + stepID.String() + ":participant call failed: rejected"
			},
		},
		{
			name:     "step without participant reports failure",
			stepName: "unknown_step",
			expected: func(stepID models.ID) string {
				return "fail:" + stepID.String() + ":step \"unknown_step\": no participant registered"
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			callbacks := newRecordingCallbacks(1)
			dispatcher := newTestDispatcher(t, 2, callbacks)

			job := domain.StepJob{
				SagaID:   models.GenerateUUID(),
				SagaType: domain.SagaTypeCreateOrder,
				StepID:   models.GenerateUUID(),
				StepName: tt.stepName,
				Data:     models.Payload{"order_id": "ord-1"},
				Deadline: time.Now().Add(time.Minute),
			}
			require.NoError(t, dispatcher.DispatchStep(context.Background(), job))

			calls := callbacks.wait(t)
			assert.Equal(t, []string{tt.expected(job.StepID)}, calls)
		})
	}
}

func TestLocalStepDispatcher_PassesSagaIDToParticipant(t *testing.T) {
	callbacks := newRecordingCallbacks(1)
	dispatcher := newTestDispatcher(t, 1, callbacks)

	job := domain.StepJob{
		SagaID:   models.GenerateUUID(),
		StepID:   models.GenerateUUID(),
		StepName: "validate_order",
	}
	require.NoError(t, dispatcher.DispatchStep(context.Background(), job))
	callbacks.wait(t)

	callbacks.mu.Lock()
	defer callbacks.mu.Unlock()
	assert.Equal(t, job.SagaID.String(), callbacks.results[job.StepID]["saga_id"])
}

func TestLocalStepDispatcher_CompensationsRunInSubmissionOrder(t *testing.T) {
	callbacks := newRecordingCallbacks(3)
	dispatcher := newTestDispatcher(t, 4, callbacks)
	ctx := context.Background()
	sagaID := models.GenerateUUID()

	require.NoError(t, dispatcher.DispatchCompensation(ctx, domain.CompensationJob{
		SagaID: sagaID, StepID: models.GenerateUUID(), StepName: "charge_payment", Action: "undo_broken",
	}))
	require.NoError(t, dispatcher.DispatchCompensation(ctx, domain.CompensationJob{
		SagaID: sagaID, StepID: models.GenerateUUID(), StepName: "reserve_inventory", Action: "release_inventory",
	}))
	require.NoError(t, dispatcher.DispatchFinishCompensation(ctx, domain.FinishCompensationJob{SagaID: sagaID}))

	calls := callbacks.wait(t)
	assert.Equal(t, []string{
		"compensate:undo_broken:false",
		"compensate:release_inventory:true",
		"finish:" + sagaID.String(),
	}, calls)
}

func TestLocalStepDispatcher_Stop(t *testing.T) {
	participants := saga.NewParticipants()
	dispatcher := NewLocalStepDispatcher(saga.NewRunner(participants, saga.DefaultRetryPolicy()), 0, nil)

	require.NoError(t, dispatcher.Start(context.Background(), newRecordingCallbacks(1)))
	assert.Error(t, dispatcher.Start(context.Background(), newRecordingCallbacks(1)))
	require.NoError(t, dispatcher.Stop())

	err := dispatcher.DispatchStep(context.Background(), domain.StepJob{SagaID: models.GenerateUUID()})
	assert.True(t, errors.Is(err, ErrDispatcherStopped))
	assert.True(t, errors.Is(dispatcher.Start(context.Background(), newRecordingCallbacks(1)), ErrDispatcherStopped))
	assert.Equal(t, 0, dispatcher.Pending())
}
