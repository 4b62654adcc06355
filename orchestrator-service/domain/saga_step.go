package domain

import (
	"time"

	"github.com/draftea/saga-system/shared/models"
	"github.com/pkg/errors"
)

// StepStatus represents the status of one step execution
type StepStatus string

const (
	StepStatusPending   StepStatus = "pending"
	StepStatusCompleted StepStatus = "completed"
	StepStatusFailed    StepStatus = "failed"
)

// SagaStep records one dispatched step. It is written once when dispatched
// and once more when resolved, after which it is read-only.
type SagaStep struct {
	ID          models.ID
	SagaID      models.ID
	Sequence    int
	StepName    string
	Status      StepStatus
	Result      models.Payload
	Error       string
	StartedAt   time.Time
	CompletedAt *time.Time
	FailedAt    *time.Time
	TimeoutAt   time.Time
}

func newSagaStep(sagaID models.ID, sequence int, stepName string, now time.Time, timeout time.Duration) *SagaStep {
	return &SagaStep{
		ID:        models.GenerateUUID(),
		SagaID:    sagaID,
		Sequence:  sequence,
		StepName:  stepName,
		Status:    StepStatusPending,
		StartedAt: now,
		TimeoutAt: now.Add(timeout),
	}
}

// IsPending reports whether the step still awaits a callback
func (s *SagaStep) IsPending() bool {
	return s.Status == StepStatusPending
}

// IsExpired reports whether a pending step passed its deadline
func (s *SagaStep) IsExpired(now time.Time) bool {
	return s.IsPending() && now.After(s.TimeoutAt)
}

func (s *SagaStep) complete(result models.Payload, now time.Time) error {
	if !s.IsPending() {
		return errors.Wrapf(ErrStepAlreadyResolved, "step %s is %s", s.ID, s.Status)
	}
	if result == nil {
		result = models.Payload{}
	}
	s.Status = StepStatusCompleted
	s.Result = result
	s.CompletedAt = &now
	return nil
}

func (s *SagaStep) fail(reason string, now time.Time) error {
	if !s.IsPending() {
		return errors.Wrapf(ErrStepAlreadyResolved, "step %s is %s", s.ID, s.Status)
	}
	s.Status = StepStatusFailed
	s.Error = reason
	s.FailedAt = &now
	return nil
}

func (s *SagaStep) clone() *SagaStep {
	c := *s
	if s.Result != nil {
		c.Result = s.Result.Clone()
	}
	if s.CompletedAt != nil {
		t := *s.CompletedAt
		c.CompletedAt = &t
	}
	if s.FailedAt != nil {
		t := *s.FailedAt
		c.FailedAt = &t
	}
	return &c
}
