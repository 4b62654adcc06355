package saga

import (
	"context"
	"time"

	"github.com/draftea/saga-system/shared/events"
	"github.com/draftea/saga-system/shared/logger"
	"github.com/draftea/saga-system/shared/models"
	"github.com/pkg/errors"
	"go.uber.org/zap"
)

// Worker consumes step and compensation requests from the event bus, runs
// the matching participant and publishes the outcome back to the orchestrator
type Worker struct {
	runner    *Runner
	publisher events.Publisher
	logger    *zap.Logger
}

// NewWorker creates a participant worker
func NewWorker(runner *Runner, publisher events.Publisher, log *zap.Logger) *Worker {
	return &Worker{
		runner:    runner,
		publisher: publisher,
		logger:    logger.OrNop(log),
	}
}

// HandlerID implements the infrastructure.EventHandler interface
func (w *Worker) HandlerID() string {
	return "saga-participant-worker"
}

// Handle implements the events.EventHandler interface
func (w *Worker) Handle(ctx context.Context, event *events.Event) error {
	switch event.EventType {
	case events.SagaStepExecutionRequestedEvent:
		return w.handleExecution(ctx, event)
	case events.SagaStepCompensationRequestedEvent:
		return w.handleCompensation(ctx, event)
	default:
		return nil
	}
}

func (w *Worker) handleExecution(ctx context.Context, event *events.Event) error {
	var req StepExecutionRequested
	if err := event.UnmarshalPayload(&req); err != nil {
		w.logger.Error("dropping malformed step request", zap.String("event_id", event.ID.String()), zap.Error(err))
		return nil
	}

	log := w.logger.With(
		zap.String("saga_id", req.SagaID),
		zap.String("step_id", req.StepID),
		zap.String("step_name", req.StepName),
	)

	runCtx, cancel := withDeadline(WithSagaID(ctx, req.SagaID), req.Deadline)
	defer cancel()

	var outcome *events.Event
	result, err := w.runner.Execute(runCtx, req.StepName, req.Data)
	if err != nil {
		log.Warn("step failed", zap.Error(err))
		outcome = events.NewEvent(models.ID(req.SagaID), events.SagaStepFailedEvent, StepFailed{
			SagaID:   req.SagaID,
			StepID:   req.StepID,
			StepName: req.StepName,
			Error:    err.Error(),
		})
	} else {
		log.Info("step completed")
		outcome = events.NewEvent(models.ID(req.SagaID), events.SagaStepCompletedEvent, StepCompleted{
			SagaID:   req.SagaID,
			StepID:   req.StepID,
			StepName: req.StepName,
			Result:   result,
		})
	}

	return w.publish(ctx, outcome, req.SagaID, req.StepID)
}

func (w *Worker) handleCompensation(ctx context.Context, event *events.Event) error {
	var req StepCompensationRequested
	if err := event.UnmarshalPayload(&req); err != nil {
		w.logger.Error("dropping malformed compensation request", zap.String("event_id", event.ID.String()), zap.Error(err))
		return nil
	}

	log := w.logger.With(
		zap.String("saga_id", req.SagaID),
		zap.String("step_id", req.StepID),
		zap.String("action", req.Action),
	)

	runCtx, cancel := withDeadline(WithSagaID(ctx, req.SagaID), req.Deadline)
	defer cancel()

	var outcome *events.Event
	result, err := w.runner.Compensate(runCtx, req.Action, req.OriginalResult)
	if err != nil {
		log.Error("compensation failed", zap.Error(err))
		outcome = events.NewEvent(models.ID(req.SagaID), events.SagaStepCompensationFailedEvent, StepCompensationFailed{
			SagaID: req.SagaID,
			StepID: req.StepID,
			Action: req.Action,
			Error:  err.Error(),
		})
	} else {
		log.Info("compensation completed")
		outcome = events.NewEvent(models.ID(req.SagaID), events.SagaStepCompensatedEvent, StepCompensated{
			SagaID: req.SagaID,
			StepID: req.StepID,
			Action: req.Action,
			Result: result,
		})
	}

	return w.publish(ctx, outcome, req.SagaID, req.StepID)
}

func (w *Worker) publish(ctx context.Context, event *events.Event, sagaID, stepID string) error {
	event.WithCorrelationID(models.ID(sagaID)).
		WithMetadata(events.MetadataSagaID, sagaID).
		WithMetadata(events.MetadataStepID, stepID)

	// Returning the error leaves the request on the queue, the participant
	// call is repeated on redelivery
	if err := w.publisher.Publish(ctx, event); err != nil {
		return errors.Wrapf(err, "failed to publish %s", event.EventType)
	}
	return nil
}

func withDeadline(ctx context.Context, deadline time.Time) (context.Context, context.CancelFunc) {
	if deadline.IsZero() {
		return context.WithCancel(ctx)
	}
	return context.WithDeadline(ctx, deadline)
}
