package application

import (
	"context"
	"time"

	"github.com/draftea/saga-system/orchestrator-service/domain"
	"github.com/draftea/saga-system/shared/events"
	"github.com/draftea/saga-system/shared/logger"
	"github.com/draftea/saga-system/shared/models"
	"github.com/draftea/saga-system/shared/telemetry"
	"github.com/pkg/errors"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

// DefaultCancelReason is recorded when a saga is cancelled without a reason
const DefaultCancelReason = "saga cancelled"

// OrchestratorConfig holds the deadlines applied to sagas
type OrchestratorConfig struct {
	StepTimeout         time.Duration
	CompensationTimeout time.Duration
}

// Validate checks the deadlines are usable
func (c OrchestratorConfig) Validate() error {
	if c.StepTimeout <= 0 {
		return errors.New("step timeout must be positive")
	}
	if c.CompensationTimeout <= c.StepTimeout {
		return errors.Errorf("compensation timeout (%s) must be longer than step timeout (%s)", c.CompensationTimeout, c.StepTimeout)
	}
	return nil
}

// Option configures an Orchestrator
type Option func(*Orchestrator)

// WithClock replaces the time source
func WithClock(now func() time.Time) Option {
	return func(o *Orchestrator) {
		o.now = now
	}
}

// SagaHandle is the snapshot returned when a saga starts
type SagaHandle struct {
	SagaID      models.ID `json:"saga_id"`
	Type        string    `json:"type"`
	Status      string    `json:"status"`
	CurrentStep int       `json:"current_step"`
	TotalSteps  int       `json:"total_steps"`
	StartedAt   time.Time `json:"started_at"`
	TimeoutAt   time.Time `json:"timeout_at"`
}

// dispatchPlan is the work computed under the saga lock and submitted after it is released
type dispatchPlan struct {
	sagaType      string
	step          *domain.StepJob
	compensations []domain.CompensationJob
	finish        *domain.FinishCompensationJob
}

func (p dispatchPlan) empty() bool {
	return p.step == nil && len(p.compensations) == 0 && p.finish == nil
}

// Orchestrator drives sagas through their state machine. It owns every
// write to saga state; dispatchers only report back through domain.StepCallbacks.
type Orchestrator struct {
	registry   *domain.Registry
	repository domain.SagaRepository
	dispatcher domain.StepDispatcher
	journal    events.EventStore
	logger     *zap.Logger
	config     OrchestratorConfig
	locks      *sagaLocks
	now        func() time.Time
}

var _ domain.StepCallbacks = (*Orchestrator)(nil)

// NewOrchestrator creates a new orchestrator. journal may be nil.
func NewOrchestrator(
	registry *domain.Registry,
	repository domain.SagaRepository,
	dispatcher domain.StepDispatcher,
	journal events.EventStore,
	log *zap.Logger,
	config OrchestratorConfig,
	opts ...Option,
) *Orchestrator {
	o := &Orchestrator{
		registry:   registry,
		repository: repository,
		dispatcher: dispatcher,
		journal:    journal,
		logger:     logger.OrNop(log),
		config:     config,
		locks:      newSagaLocks(),
		now:        time.Now,
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// StartSaga creates a saga of the given type and dispatches its first step
func (o *Orchestrator) StartSaga(ctx context.Context, sagaType string, data models.Payload) (*SagaHandle, error) {
	ctx, span := telemetry.StartSpan(ctx, "saga.start", trace.WithAttributes(attribute.String("saga.type", sagaType)))
	defer span.End()

	def, err := o.registry.GetDefinition(sagaType)
	if err != nil {
		return nil, err
	}

	now := o.now()
	saga, err := domain.NewSaga(def, data, now, o.config.StepTimeout)
	if err != nil {
		return nil, errors.Wrap(err, "failed to create saga")
	}
	span.SetAttributes(attribute.String("saga.id", saga.ID.String()))

	plan, err := o.advance(saga, def, now)
	if err != nil {
		return nil, err
	}

	// held until the first step is submitted, a cancel arriving meanwhile
	// must see the step already queued
	release := o.locks.lock(saga.ID)
	defer release()

	if err := o.repository.Create(ctx, saga); err != nil {
		recordSpanError(span, err)
		return nil, errors.Wrap(err, "failed to save saga")
	}
	o.appendJournal(ctx, saga)
	telemetry.RecordSagaStarted(ctx, saga.Type)

	o.logger.Info("saga started",
		zap.String("saga_id", saga.ID.String()),
		zap.String("saga_type", saga.Type),
		zap.Int("total_steps", saga.TotalSteps),
	)

	if err := o.dispatch(ctx, saga.ID, plan); err != nil {
		recordSpanError(span, err)
		return nil, err
	}

	return &SagaHandle{
		SagaID:      saga.ID,
		Type:        saga.Type,
		Status:      string(saga.Status),
		CurrentStep: saga.CurrentStep,
		TotalSteps:  saga.TotalSteps,
		StartedAt:   saga.StartedAt,
		TimeoutAt:   saga.TimeoutAt,
	}, nil
}

// CompleteStep records a step result and dispatches the next step, or
// completes the saga after the last one
func (o *Orchestrator) CompleteStep(ctx context.Context, sagaID, stepID models.ID, result models.Payload) (domain.Outcome, error) {
	ctx, span := o.callbackSpan(ctx, "saga.step.complete", sagaID, stepID)
	defer span.End()

	outcome, err := o.withSaga(ctx, sagaID, func(saga *domain.Saga, def domain.Definition, now time.Time) (domain.Outcome, dispatchPlan, error) {
		if outcome, err := resolvable(saga, stepID); err != nil || !outcome.Applied() {
			return outcome, dispatchPlan{}, err
		}

		step, err := saga.CompleteStep(stepID, result, now)
		if err != nil {
			return domain.Outcome{}, dispatchPlan{}, err
		}
		telemetry.RecordStepResolved(ctx, saga.Type, step.StepName, string(step.Status))
		o.logger.Info("step completed",
			zap.String("saga_id", saga.ID.String()),
			zap.String("step_id", step.ID.String()),
			zap.String("step_name", step.StepName),
		)

		plan, err := o.advance(saga, def, now)
		return domain.AppliedOutcome(), plan, err
	})

	o.observeCallback(ctx, span, "complete_step", outcome, err)
	return outcome, err
}

// FailStep records a step failure and starts compensating the completed steps
func (o *Orchestrator) FailStep(ctx context.Context, sagaID, stepID models.ID, reason string) (domain.Outcome, error) {
	ctx, span := o.callbackSpan(ctx, "saga.step.fail", sagaID, stepID)
	defer span.End()

	outcome, err := o.withSaga(ctx, sagaID, func(saga *domain.Saga, def domain.Definition, now time.Time) (domain.Outcome, dispatchPlan, error) {
		if outcome, err := resolvable(saga, stepID); err != nil || !outcome.Applied() {
			return outcome, dispatchPlan{}, err
		}

		plan, err := o.failStep(ctx, saga, def, stepID, reason, now)
		return domain.AppliedOutcome(), plan, err
	})

	o.observeCallback(ctx, span, "fail_step", outcome, err)
	return outcome, err
}

// CancelSaga fails the pending step of a running saga, which rolls it back
func (o *Orchestrator) CancelSaga(ctx context.Context, sagaID models.ID, reason string) (domain.Outcome, error) {
	ctx, span := telemetry.StartSpan(ctx, "saga.cancel", trace.WithAttributes(attribute.String("saga.id", sagaID.String())))
	defer span.End()

	if reason == "" {
		reason = DefaultCancelReason
	}

	outcome, err := o.withSaga(ctx, sagaID, func(saga *domain.Saga, def domain.Definition, now time.Time) (domain.Outcome, dispatchPlan, error) {
		switch {
		case saga.Status.IsTerminal():
			return domain.IgnoredOutcome(domain.ReasonSagaTerminal), dispatchPlan{}, nil
		case saga.Status == domain.SagaStatusCompensating:
			return domain.IgnoredOutcome(domain.ReasonDuplicate), dispatchPlan{}, nil
		}

		pending := saga.PendingStep()
		if pending == nil {
			return domain.Outcome{}, dispatchPlan{}, errors.Wrapf(domain.ErrInvalidTransition, "saga %s has no pending step to cancel", saga.ID)
		}

		plan, err := o.failStep(ctx, saga, def, pending.ID, reason, now)
		return domain.AppliedOutcome(), plan, err
	})

	o.observeCallback(ctx, span, "cancel_saga", outcome, err)
	return outcome, err
}

// ReportCompensation records the outcome of one compensating action.
// A failed compensation never halts the rollback, it is logged and journaled.
func (o *Orchestrator) ReportCompensation(ctx context.Context, sagaID, stepID models.ID, action string, compensationErr error) error {
	ctx, span := o.callbackSpan(ctx, "saga.compensation.report", sagaID, stepID)
	defer span.End()

	release := o.locks.lock(sagaID)
	defer release()

	saga, err := o.load(ctx, sagaID)
	if err != nil {
		recordSpanError(span, err)
		return err
	}
	if saga.StepByID(stepID) == nil {
		return errors.Wrapf(domain.ErrStepNotFound, "step %s in saga %s", stepID, sagaID)
	}

	saga.RecordCompensationOutcome(stepID, action, compensationErr)
	o.appendJournal(ctx, saga)
	telemetry.RecordCompensation(ctx, action, compensationErr == nil)

	fields := []zap.Field{
		zap.String("saga_id", sagaID.String()),
		zap.String("step_id", stepID.String()),
		zap.String("action", action),
	}
	if compensationErr != nil {
		o.logger.Error("compensation failed", append(fields, zap.Error(compensationErr))...)
		return nil
	}
	o.logger.Info("compensation completed", fields...)
	return nil
}

// FinishCompensation moves a compensating saga to compensated
func (o *Orchestrator) FinishCompensation(ctx context.Context, sagaID models.ID) (domain.Outcome, error) {
	ctx, span := telemetry.StartSpan(ctx, "saga.compensation.finish", trace.WithAttributes(attribute.String("saga.id", sagaID.String())))
	defer span.End()

	outcome, err := o.withSaga(ctx, sagaID, func(saga *domain.Saga, _ domain.Definition, now time.Time) (domain.Outcome, dispatchPlan, error) {
		switch saga.Status {
		case domain.SagaStatusCompensated:
			return domain.IgnoredOutcome(domain.ReasonDuplicate), dispatchPlan{}, nil
		case domain.SagaStatusCompleted:
			return domain.IgnoredOutcome(domain.ReasonSagaTerminal), dispatchPlan{}, nil
		}

		if err := saga.FinishCompensation(now); err != nil {
			return domain.Outcome{}, dispatchPlan{}, err
		}
		return domain.AppliedOutcome(), dispatchPlan{}, nil
	})

	o.observeCallback(ctx, span, "finish_compensation", outcome, err)
	return outcome, err
}

// resolvable classifies a step callback. Callbacks for resolved steps or
// terminal sagas are ignored.
func resolvable(saga *domain.Saga, stepID models.ID) (domain.Outcome, error) {
	step := saga.StepByID(stepID)
	if step == nil {
		return domain.Outcome{}, errors.Wrapf(domain.ErrStepNotFound, "step %s in saga %s", stepID, saga.ID)
	}
	if saga.Status.IsTerminal() {
		return domain.IgnoredOutcome(domain.ReasonSagaTerminal), nil
	}
	if !step.IsPending() {
		return domain.IgnoredOutcome(domain.ReasonDuplicate), nil
	}
	return domain.AppliedOutcome(), nil
}

// advance dispatches the next step, or completes the saga when none is left
func (o *Orchestrator) advance(saga *domain.Saga, def domain.Definition, now time.Time) (dispatchPlan, error) {
	plan := dispatchPlan{sagaType: saga.Type}

	if !saga.HasRemainingSteps() {
		if err := saga.Complete(now); err != nil {
			return plan, err
		}
		return plan, nil
	}

	step, err := saga.BeginNextStep(def, now, o.config.StepTimeout)
	if err != nil {
		return plan, err
	}

	plan.step = &domain.StepJob{
		SagaID:   saga.ID,
		SagaType: saga.Type,
		StepID:   step.ID,
		StepName: step.StepName,
		Data:     saga.StepInput(),
		Deadline: step.TimeoutAt,
	}
	return plan, nil
}

func (o *Orchestrator) failStep(ctx context.Context, saga *domain.Saga, def domain.Definition, stepID models.ID, reason string, now time.Time) (dispatchPlan, error) {
	step, err := saga.FailStep(stepID, reason, now)
	if err != nil {
		return dispatchPlan{}, err
	}
	telemetry.RecordStepResolved(ctx, saga.Type, step.StepName, string(step.Status))
	o.logger.Warn("step failed",
		zap.String("saga_id", saga.ID.String()),
		zap.String("step_id", step.ID.String()),
		zap.String("step_name", step.StepName),
		zap.String("reason", reason),
	)

	return o.compensate(saga, def, now)
}

// compensate starts the rollback. Completed steps are undone most recent
// first and the finish job is queued behind them.
func (o *Orchestrator) compensate(saga *domain.Saga, def domain.Definition, now time.Time) (dispatchPlan, error) {
	plan := dispatchPlan{sagaType: saga.Type}

	if err := saga.StartCompensation(now, o.config.CompensationTimeout); err != nil {
		return plan, err
	}

	completed := domain.CompensationOrder(saga.CompletedSteps())
	if len(completed) == 0 {
		return plan, saga.FinishCompensation(now)
	}

	for _, step := range completed {
		action, ok := def.CompensationFor(step.StepName)
		if !ok {
			o.logger.Error("no compensating action for step",
				zap.String("saga_id", saga.ID.String()),
				zap.String("step_name", step.StepName),
			)
			continue
		}
		plan.compensations = append(plan.compensations, domain.CompensationJob{
			SagaID:         saga.ID,
			StepID:         step.ID,
			StepName:       step.StepName,
			Action:         action,
			OriginalResult: step.Result.Clone(),
			Deadline:       saga.TimeoutAt,
		})
	}
	plan.finish = &domain.FinishCompensationJob{SagaID: saga.ID}
	return plan, nil
}

// withSaga runs mutate on the current saga state, persists the result and
// submits the resulting plan, all under the saga lock. Submission never blocks,
// so jobs of one saga reach the dispatcher in the order their transitions happened.
func (o *Orchestrator) withSaga(
	ctx context.Context,
	sagaID models.ID,
	mutate func(saga *domain.Saga, def domain.Definition, now time.Time) (domain.Outcome, dispatchPlan, error),
) (domain.Outcome, error) {
	release := o.locks.lock(sagaID)

	saga, err := o.load(ctx, sagaID)
	if err != nil {
		release()
		return domain.Outcome{}, err
	}

	def, err := o.registry.GetDefinition(saga.Type)
	if err != nil {
		release()
		return domain.Outcome{}, errors.Wrapf(err, "saga %s", saga.ID)
	}

	previous := saga.Status
	outcome, plan, err := mutate(saga, def, o.now())
	if err != nil {
		release()
		return domain.Outcome{}, err
	}
	if !outcome.Applied() {
		release()
		return outcome, nil
	}

	if err := o.repository.Update(ctx, saga); err != nil {
		release()
		return domain.Outcome{}, errors.Wrap(err, "failed to update saga")
	}
	o.appendJournal(ctx, saga)

	var dispatchErr error
	if !plan.empty() {
		dispatchErr = o.dispatch(ctx, saga.ID, plan)
	}
	release()

	if saga.Status != previous {
		o.logStatusChange(ctx, saga, previous)
	}
	return outcome, dispatchErr
}

func (o *Orchestrator) load(ctx context.Context, sagaID models.ID) (*domain.Saga, error) {
	saga, err := o.repository.FindByID(ctx, sagaID)
	if err != nil {
		return nil, errors.Wrap(err, "failed to find saga")
	}
	if saga == nil {
		return nil, errors.Wrapf(domain.ErrSagaNotFound, "saga %s", sagaID)
	}
	return saga, nil
}

// dispatch submits the plan in order. A failed compensation submission is
// recorded like a failed compensation and the remaining jobs still go out.
func (o *Orchestrator) dispatch(ctx context.Context, sagaID models.ID, plan dispatchPlan) error {
	if plan.step != nil {
		if err := o.dispatcher.DispatchStep(ctx, *plan.step); err != nil {
			o.logger.Error("failed to dispatch step",
				zap.String("saga_id", sagaID.String()),
				zap.String("step_id", plan.step.StepID.String()),
				zap.String("step_name", plan.step.StepName),
				zap.Error(err),
			)
			return errors.Wrapf(err, "failed to dispatch step %s", plan.step.StepName)
		}
		telemetry.RecordStepDispatched(ctx, plan.sagaType, plan.step.StepName)
	}

	for _, job := range plan.compensations {
		if err := o.dispatcher.DispatchCompensation(ctx, job); err != nil {
			telemetry.RecordCompensation(ctx, job.Action, false)
			o.logger.Error("failed to dispatch compensation",
				zap.String("saga_id", sagaID.String()),
				zap.String("step_id", job.StepID.String()),
				zap.String("action", job.Action),
				zap.Error(err),
			)
		}
	}

	if plan.finish != nil {
		if err := o.dispatcher.DispatchFinishCompensation(ctx, *plan.finish); err != nil {
			return errors.Wrap(err, "failed to dispatch compensation finish")
		}
	}
	return nil
}

// appendJournal moves the recorded lifecycle entries to the journal. The
// journal is informational, a failed append does not undo the transition.
func (o *Orchestrator) appendJournal(ctx context.Context, saga *domain.Saga) {
	pending := saga.Events()
	saga.ClearEvents()
	if o.journal == nil || len(pending) == 0 {
		return
	}

	if err := o.journal.SaveEvents(ctx, saga.ID, pending, events.AnyVersion); err != nil {
		o.logger.Warn("failed to append saga journal",
			zap.String("saga_id", saga.ID.String()),
			zap.Int("entries", len(pending)),
			zap.Error(err),
		)
	}
}

func (o *Orchestrator) logStatusChange(ctx context.Context, saga *domain.Saga, previous domain.SagaStatus) {
	fields := []zap.Field{
		zap.String("saga_id", saga.ID.String()),
		zap.String("saga_type", saga.Type),
		zap.String("from", string(previous)),
		zap.String("to", string(saga.Status)),
	}

	switch saga.Status {
	case domain.SagaStatusCompensating:
		o.logger.Warn("saga compensating", append(fields, zap.String("reason", saga.FailureReason))...)
	case domain.SagaStatusCompleted, domain.SagaStatusCompensated:
		duration := time.Duration(0)
		if saga.CompletedAt != nil {
			duration = saga.CompletedAt.Sub(saga.StartedAt)
		}
		telemetry.RecordSagaFinished(ctx, saga.Type, string(saga.Status), duration)
		o.logger.Info("saga finished", append(fields, zap.Duration("duration", duration))...)
	}
}

func (o *Orchestrator) callbackSpan(ctx context.Context, name string, sagaID, stepID models.ID) (context.Context, trace.Span) {
	return telemetry.StartSpan(ctx, name, trace.WithAttributes(
		attribute.String("saga.id", sagaID.String()),
		attribute.String("saga.step_id", stepID.String()),
	))
}

func (o *Orchestrator) observeCallback(ctx context.Context, span trace.Span, callback string, outcome domain.Outcome, err error) {
	if err != nil {
		recordSpanError(span, err)
		return
	}
	span.SetAttributes(attribute.String("saga.outcome", string(outcome.Status)))
	if outcome.Applied() {
		return
	}

	span.SetAttributes(attribute.String("saga.ignore_reason", string(outcome.Reason)))
	telemetry.RecordCallbackIgnored(ctx, callback, string(outcome.Reason))
	o.logger.Info("callback ignored",
		zap.String("callback", callback),
		zap.String("reason", string(outcome.Reason)),
	)
}

func recordSpanError(span trace.Span, err error) {
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
}
