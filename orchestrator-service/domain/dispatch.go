package domain

import (
	"context"
	"time"

	"github.com/draftea/saga-system/shared/models"
)

// StepJob asks a participant to execute a forward step
type StepJob struct {
	SagaID   models.ID
	SagaType string
	StepID   models.ID
	StepName string
	Data     models.Payload
	Deadline time.Time
}

// CompensationJob asks a participant to undo a completed step
type CompensationJob struct {
	SagaID         models.ID
	StepID         models.ID
	StepName       string
	Action         string
	OriginalResult models.Payload
	Deadline       time.Time
}

// FinishCompensationJob is queued behind the compensation jobs of a saga and
// closes its compensation phase once they have run
type FinishCompensationJob struct {
	SagaID models.ID
}

// StepDispatcher submits work to participants. Submission is fire and forget:
// results come back through StepCallbacks on another goroutine, never from
// inside a Dispatch call, which runs under the saga lock.
// Jobs of one saga are handled in submission order.
type StepDispatcher interface {
	DispatchStep(ctx context.Context, job StepJob) error
	DispatchCompensation(ctx context.Context, job CompensationJob) error
	DispatchFinishCompensation(ctx context.Context, job FinishCompensationJob) error
}

// StepCallbacks is the surface dispatchers report results to
type StepCallbacks interface {
	CompleteStep(ctx context.Context, sagaID, stepID models.ID, result models.Payload) (Outcome, error)
	FailStep(ctx context.Context, sagaID, stepID models.ID, reason string) (Outcome, error)
	ReportCompensation(ctx context.Context, sagaID, stepID models.ID, action string, compensationErr error) error
	FinishCompensation(ctx context.Context, sagaID models.ID) (Outcome, error)
}

// OutcomeStatus tells whether a callback changed saga state
type OutcomeStatus string

const (
	OutcomeApplied OutcomeStatus = "applied"
	OutcomeIgnored OutcomeStatus = "ignored"
)

// IgnoreReason explains an ignored callback
type IgnoreReason string

const (
	ReasonDuplicate    IgnoreReason = "duplicate"
	ReasonSagaTerminal IgnoreReason = "saga_terminal"
)

// Outcome is the typed result of a callback. Duplicate or late callbacks are
// expected under at-least-once delivery and are reported here, not as errors.
type Outcome struct {
	Status OutcomeStatus `json:"status"`
	Reason IgnoreReason  `json:"reason,omitempty"`
}

// Applied reports whether the callback changed saga state
func (o Outcome) Applied() bool {
	return o.Status == OutcomeApplied
}

// AppliedOutcome is returned by a callback that changed saga state
func AppliedOutcome() Outcome {
	return Outcome{Status: OutcomeApplied}
}

// IgnoredOutcome is returned by a callback that left saga state untouched
func IgnoredOutcome(reason IgnoreReason) Outcome {
	return Outcome{Status: OutcomeIgnored, Reason: reason}
}
