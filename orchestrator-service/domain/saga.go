package domain

import (
	"sort"
	"time"

	"github.com/draftea/saga-system/shared/events"
	"github.com/draftea/saga-system/shared/models"
	"github.com/pkg/errors"
)

// SagaStatus represents the status of a saga
type SagaStatus string

const (
	SagaStatusStarted      SagaStatus = "started"
	SagaStatusCompensating SagaStatus = "compensating"
	SagaStatusCompleted    SagaStatus = "completed"
	SagaStatusCompensated  SagaStatus = "compensated"
)

// IsTerminal reports whether no further transition is accepted
func (s SagaStatus) IsTerminal() bool {
	return s == SagaStatusCompleted || s == SagaStatusCompensated
}

// TerminalStatuses lists the statuses eligible for retention cleanup
func TerminalStatuses() []SagaStatus {
	return []SagaStatus{SagaStatusCompleted, SagaStatusCompensated}
}

// Saga aggregate root. Steps are kept in execution order.
type Saga struct {
	ID            models.ID
	Type          string
	Status        SagaStatus
	Data          models.Payload
	CurrentStep   int
	TotalSteps    int
	FailureReason string
	StartedAt     time.Time
	CompletedAt   *time.Time
	TimeoutAt     time.Time
	Steps         []*SagaStep
	Timestamps    models.Timestamps
	Version       models.Version

	events []*events.Event
}

// NewSaga creates a saga in started status for the given definition
func NewSaga(def Definition, data models.Payload, now time.Time, stepTimeout time.Duration) (*Saga, error) {
	if len(def.Steps) == 0 {
		return nil, errors.Wrapf(ErrInvalidDefinition, "%s has no steps", def.Type)
	}
	if data == nil {
		data = models.Payload{}
	}

	saga := &Saga{
		ID:          models.GenerateUUID(),
		Type:        def.Type,
		Status:      SagaStatusStarted,
		Data:        data.Clone(),
		CurrentStep: 0,
		TotalSteps:  len(def.Steps),
		StartedAt:   now,
		TimeoutAt:   now.Add(stepTimeout),
		Timestamps:  models.Timestamps{CreatedAt: now, UpdatedAt: now},
		Version:     models.NewVersion(),
	}

	saga.recordEvent(events.SagaStartedEvent, SagaStartedData{
		SagaID:     saga.ID,
		SagaType:   saga.Type,
		TotalSteps: saga.TotalSteps,
	})
	return saga, nil
}

// BeginNextStep creates the pending record for steps[current_step] and
// advances current_step. It is the only way current_step grows.
func (s *Saga) BeginNextStep(def Definition, now time.Time, stepTimeout time.Duration) (*SagaStep, error) {
	if s.Status != SagaStatusStarted {
		return nil, errors.Wrapf(ErrInvalidTransition, "cannot dispatch a step while %s", s.Status)
	}
	if pending := s.PendingStep(); pending != nil {
		return nil, errors.Wrapf(ErrStepPending, "step %s (%s)", pending.ID, pending.StepName)
	}

	stepName, ok := def.StepAt(s.CurrentStep)
	if !ok || s.CurrentStep >= s.TotalSteps {
		return nil, errors.Wrapf(ErrNoStepsRemaining, "current step %d of %d", s.CurrentStep, s.TotalSteps)
	}

	step := newSagaStep(s.ID, s.CurrentStep, stepName, now, stepTimeout)
	s.Steps = append(s.Steps, step)
	s.CurrentStep++
	s.TimeoutAt = step.TimeoutAt
	s.touch(now)

	s.recordEvent(events.SagaStepDispatchedEvent, SagaStepDispatchedData{
		StepID:    step.ID,
		StepName:  step.StepName,
		Sequence:  step.Sequence,
		TimeoutAt: step.TimeoutAt,
	})
	return step, nil
}

// HasRemainingSteps reports whether steps are left to dispatch
func (s *Saga) HasRemainingSteps() bool {
	return s.CurrentStep < s.TotalSteps
}

// CompleteStep records the participant result on a pending step
func (s *Saga) CompleteStep(stepID models.ID, result models.Payload, now time.Time) (*SagaStep, error) {
	step, err := s.resolvableStep(stepID)
	if err != nil {
		return nil, err
	}
	if err := step.complete(result, now); err != nil {
		return nil, err
	}
	s.touch(now)

	s.recordEvent(events.SagaStepResolvedEvent, SagaStepResolvedData{
		StepID:   step.ID,
		StepName: step.StepName,
		Status:   step.Status,
	})
	return step, nil
}

// FailStep records the failure of a pending step
func (s *Saga) FailStep(stepID models.ID, reason string, now time.Time) (*SagaStep, error) {
	step, err := s.resolvableStep(stepID)
	if err != nil {
		return nil, err
	}
	if err := step.fail(reason, now); err != nil {
		return nil, err
	}
	s.FailureReason = step.StepName + ": " + reason
	s.touch(now)

	s.recordEvent(events.SagaStepResolvedEvent, SagaStepResolvedData{
		StepID:   step.ID,
		StepName: step.StepName,
		Status:   step.Status,
		Error:    reason,
	})
	return step, nil
}

func (s *Saga) resolvableStep(stepID models.ID) (*SagaStep, error) {
	step := s.StepByID(stepID)
	if step == nil {
		return nil, errors.Wrapf(ErrStepNotFound, "step %s in saga %s", stepID, s.ID)
	}
	if s.Status != SagaStatusStarted && step.IsPending() {
		return nil, errors.Wrapf(ErrInvalidTransition, "cannot resolve a step while %s", s.Status)
	}
	return step, nil
}

// StartCompensation moves the saga into the compensating phase, whose
// deadline replaces the step deadline
func (s *Saga) StartCompensation(now time.Time, compensationTimeout time.Duration) error {
	if s.Status != SagaStatusStarted {
		return errors.Wrapf(ErrInvalidTransition, "saga can only be compensated from started status, got %s", s.Status)
	}
	if pending := s.PendingStep(); pending != nil {
		return errors.Wrapf(ErrStepPending, "step %s must be resolved before compensating", pending.ID)
	}

	s.Status = SagaStatusCompensating
	s.TimeoutAt = now.Add(compensationTimeout)
	s.touch(now)

	completed := s.CompletedSteps()
	names := make([]string, 0, len(completed))
	for _, step := range CompensationOrder(completed) {
		names = append(names, step.StepName)
	}
	s.recordEvent(events.SagaCompensationStartedEvent, SagaCompensationStartedData{
		Reason:        s.FailureReason,
		Compensations: names,
		TimeoutAt:     s.TimeoutAt,
	})
	return nil
}

// FinishCompensation closes the compensating phase
func (s *Saga) FinishCompensation(now time.Time) error {
	if s.Status != SagaStatusCompensating {
		return errors.Wrapf(ErrInvalidTransition, "saga can only finish compensation from compensating status, got %s", s.Status)
	}

	s.Status = SagaStatusCompensated
	s.CompletedAt = &now
	s.touch(now)

	s.recordEvent(events.SagaCompensatedEvent, SagaFinishedData{
		Status:   s.Status,
		Duration: now.Sub(s.StartedAt).String(),
	})
	return nil
}

// Complete marks the saga completed once every step succeeded
func (s *Saga) Complete(now time.Time) error {
	if s.Status != SagaStatusStarted {
		return errors.Wrapf(ErrInvalidTransition, "saga can only be completed from started status, got %s", s.Status)
	}
	if s.HasRemainingSteps() || s.PendingStep() != nil {
		return errors.Wrapf(ErrInvalidTransition, "saga has %d of %d steps dispatched", s.CurrentStep, s.TotalSteps)
	}

	s.Status = SagaStatusCompleted
	s.CompletedAt = &now
	s.touch(now)

	s.recordEvent(events.SagaCompletedEvent, SagaFinishedData{
		Status:   s.Status,
		Duration: now.Sub(s.StartedAt).String(),
	})
	return nil
}

// RecordCompensationOutcome journals the outcome of one compensating action.
// Step records are immutable once resolved, so the outcome lives in the journal only.
func (s *Saga) RecordCompensationOutcome(stepID models.ID, action string, compensationErr error) {
	data := SagaCompensationRecordedData{
		StepID:    stepID,
		Action:    action,
		Succeeded: compensationErr == nil,
	}
	if compensationErr != nil {
		data.Error = compensationErr.Error()
	}
	if step := s.StepByID(stepID); step != nil {
		data.StepName = step.StepName
	}
	s.recordEvent(events.SagaCompensationRecordedEvent, data)
}

// PendingStep returns the step awaiting a callback, if any
func (s *Saga) PendingStep() *SagaStep {
	for _, step := range s.Steps {
		if step.IsPending() {
			return step
		}
	}
	return nil
}

// StepByID returns the step with the given id, if any
func (s *Saga) StepByID(stepID models.ID) *SagaStep {
	for _, step := range s.Steps {
		if step.ID == stepID {
			return step
		}
	}
	return nil
}

// CompletedSteps returns the completed steps in execution order
func (s *Saga) CompletedSteps() []*SagaStep {
	var completed []*SagaStep
	for _, step := range s.Steps {
		if step.Status == StepStatusCompleted {
			completed = append(completed, step)
		}
	}
	return completed
}

// CompensationOrder orders steps most recently completed first. Steps run
// strictly one after the other, so descending sequence is descending
// completion time.
func CompensationOrder(steps []*SagaStep) []*SagaStep {
	ordered := make([]*SagaStep, len(steps))
	copy(ordered, steps)
	sort.SliceStable(ordered, func(i, j int) bool {
		return ordered[i].Sequence > ordered[j].Sequence
	})
	return ordered
}

// StepInput is the payload handed to the next step: the saga data with the
// results of completed steps layered on top in execution order
func (s *Saga) StepInput() models.Payload {
	input := s.Data.Clone()
	for _, step := range s.CompletedSteps() {
		input = input.Merge(step.Result)
	}
	return input
}

// ProgressPercent is the share of steps that completed successfully
func (s *Saga) ProgressPercent() int {
	if s.TotalSteps == 0 {
		return 0
	}
	return len(s.CompletedSteps()) * 100 / s.TotalSteps
}

// Events returns the journal entries recorded since the last ClearEvents
func (s *Saga) Events() []*events.Event {
	return s.events
}

// ClearEvents clears recorded journal entries
func (s *Saga) ClearEvents() {
	s.events = nil
}

// Clone returns a deep copy without pending journal entries
func (s *Saga) Clone() *Saga {
	c := *s
	c.Data = s.Data.Clone()
	if s.CompletedAt != nil {
		t := *s.CompletedAt
		c.CompletedAt = &t
	}
	c.Steps = make([]*SagaStep, len(s.Steps))
	for i, step := range s.Steps {
		c.Steps[i] = step.clone()
	}
	c.events = nil
	return &c
}

func (s *Saga) touch(now time.Time) {
	s.Timestamps.UpdatedAt = now
}

func (s *Saga) recordEvent(eventType string, data interface{}) {
	event := events.NewEvent(s.ID, eventType, data).
		WithCorrelationID(s.ID).
		WithMetadata(events.MetadataSagaID, s.ID.String()).
		WithMetadata(events.MetadataSagaType, s.Type)
	s.events = append(s.events, event)
}

// Journal entry payloads
type SagaStartedData struct {
	SagaID     models.ID `json:"saga_id"`
	SagaType   string    `json:"saga_type"`
	TotalSteps int       `json:"total_steps"`
}

type SagaStepDispatchedData struct {
	StepID    models.ID `json:"step_id"`
	StepName  string    `json:"step_name"`
	Sequence  int       `json:"sequence"`
	TimeoutAt time.Time `json:"timeout_at"`
}

type SagaStepResolvedData struct {
	StepID   models.ID  `json:"step_id"`
	StepName string     `json:"step_name"`
	Status   StepStatus `json:"status"`
	Error    string     `json:"error,omitempty"`
}

type SagaCompensationStartedData struct {
	Reason        string    `json:"reason"`
	Compensations []string  `json:"compensations"`
	TimeoutAt     time.Time `json:"timeout_at"`
}

type SagaCompensationRecordedData struct {
	StepID    models.ID `json:"step_id"`
	StepName  string    `json:"step_name"`
	Action    string    `json:"action"`
	Succeeded bool      `json:"succeeded"`
	Error     string    `json:"error,omitempty"`
}

type SagaFinishedData struct {
	Status   SagaStatus `json:"status"`
	Duration string     `json:"duration"`
}
