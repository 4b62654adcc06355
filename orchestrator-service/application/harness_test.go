package application

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/draftea/saga-system/orchestrator-service/domain"
	"github.com/draftea/saga-system/orchestrator-service/infrastructure"
	sharedinfra "github.com/draftea/saga-system/shared/infrastructure"
	"github.com/draftea/saga-system/shared/models"
	"github.com/stretchr/testify/require"
)

var testConfig = OrchestratorConfig{
	StepTimeout:         30 * time.Second,
	CompensationTimeout: 2 * time.Minute,
}

// recordingDispatcher keeps submitted jobs without running them. Tests play
// the participant role by calling the orchestrator callbacks.
type recordingDispatcher struct {
	mu            sync.Mutex
	steps         []domain.StepJob
	compensations []domain.CompensationJob
	finishes      []domain.FinishCompensationJob
	stepErr       error
}

func (d *recordingDispatcher) DispatchStep(_ context.Context, job domain.StepJob) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.stepErr != nil {
		return d.stepErr
	}
	d.steps = append(d.steps, job)
	return nil
}

func (d *recordingDispatcher) DispatchCompensation(_ context.Context, job domain.CompensationJob) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.compensations = append(d.compensations, job)
	return nil
}

func (d *recordingDispatcher) DispatchFinishCompensation(_ context.Context, job domain.FinishCompensationJob) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.finishes = append(d.finishes, job)
	return nil
}

func (d *recordingDispatcher) lastStep(t *testing.T) domain.StepJob {
	t.Helper()
	d.mu.Lock()
	defer d.mu.Unlock()
	require.NotEmpty(t, d.steps, "no step dispatched")
	return d.steps[len(d.steps)-1]
}

func (d *recordingDispatcher) stepNames() []string {
	d.mu.Lock()
	defer d.mu.Unlock()
	names := make([]string, 0, len(d.steps))
	for _, job := range d.steps {
		names = append(names, job.StepName)
	}
	return names
}

func (d *recordingDispatcher) compensationActions() []string {
	d.mu.Lock()
	defer d.mu.Unlock()
	actions := make([]string, 0, len(d.compensations))
	for _, job := range d.compensations {
		actions = append(actions, job.Action)
	}
	return actions
}

type testClock struct {
	mu  sync.Mutex
	now time.Time
}

func newTestClock() *testClock {
	return &testClock{now: time.Date(2024, 3, 10, 12, 0, 0, 0, time.UTC)}
}

func (c *testClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *testClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

type harness struct {
	orchestrator *Orchestrator
	repository   *infrastructure.MemorySagaRepository
	dispatcher   *recordingDispatcher
	journal      *sharedinfra.MemoryEventStore
	clock        *testClock
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	registry, err := domain.NewRegistry(domain.BaselineDefinitions()...)
	require.NoError(t, err)

	h := &harness{
		repository: infrastructure.NewMemorySagaRepository(),
		dispatcher: &recordingDispatcher{},
		journal:    sharedinfra.NewMemoryEventStore(),
		clock:      newTestClock(),
	}
	h.orchestrator = NewOrchestrator(registry, h.repository, h.dispatcher, h.journal, nil, testConfig, WithClock(h.clock.Now))
	return h
}

func (h *harness) start(t *testing.T, sagaType string) models.ID {
	t.Helper()
	handle, err := h.orchestrator.StartSaga(context.Background(), sagaType, models.Payload{"order_id": "ord-1"})
	require.NoError(t, err)
	return handle.SagaID
}

// completeSteps completes the next n dispatched steps of sagaID
func (h *harness) completeSteps(t *testing.T, sagaID models.ID, n int) {
	t.Helper()
	for i := 0; i < n; i++ {
		job := h.dispatcher.lastStep(t)
		require.Equal(t, sagaID, job.SagaID)
		outcome, err := h.orchestrator.CompleteStep(context.Background(), sagaID, job.StepID, models.Payload{job.StepName: "done"})
		require.NoError(t, err)
		require.True(t, outcome.Applied(), "step %s", job.StepName)
	}
}

func (h *harness) saga(t *testing.T, sagaID models.ID) *domain.Saga {
	t.Helper()
	saga, err := h.repository.FindByID(context.Background(), sagaID)
	require.NoError(t, err)
	require.NotNil(t, saga)
	return saga
}

func (h *harness) journalTypes(t *testing.T, sagaID models.ID) []string {
	t.Helper()
	entries, err := h.journal.GetEvents(context.Background(), sagaID)
	require.NoError(t, err)
	types := make([]string, 0, len(entries))
	for _, e := range entries {
		types = append(types, e.EventType)
	}
	return types
}
