package handlers

import (
	"context"

	"github.com/draftea/saga-system/orchestrator-service/domain"
	"github.com/draftea/saga-system/shared/events"
	"github.com/draftea/saga-system/shared/logger"
	"github.com/draftea/saga-system/shared/models"
	"github.com/draftea/saga-system/shared/saga"
	"github.com/pkg/errors"
	"go.uber.org/zap"
)

// SagaEventHandlers feeds participant outcomes arriving on the bus into the orchestrator
type SagaEventHandlers struct {
	callbacks domain.StepCallbacks
	logger    *zap.Logger
}

// NewSagaEventHandlers creates new saga event handlers
func NewSagaEventHandlers(callbacks domain.StepCallbacks, log *zap.Logger) *SagaEventHandlers {
	return &SagaEventHandlers{
		callbacks: callbacks,
		logger:    logger.OrNop(log),
	}
}

// Handle implements the events.EventHandler interface
func (h *SagaEventHandlers) Handle(ctx context.Context, event *events.Event) error {
	switch event.EventType {
	case events.SagaStepCompletedEvent:
		return h.HandleStepCompleted(ctx, event)
	case events.SagaStepFailedEvent:
		return h.HandleStepFailed(ctx, event)
	case events.SagaStepCompensatedEvent:
		return h.HandleStepCompensated(ctx, event)
	case events.SagaStepCompensationFailedEvent:
		return h.HandleStepCompensationFailed(ctx, event)
	case events.SagaCompensationFinishRequestedEvent:
		return h.HandleCompensationFinishRequested(ctx, event)
	default:
		// Unknown event type, ignore
		return nil
	}
}

// HandlerID returns the unique identifier for this event handler
func (h *SagaEventHandlers) HandlerID() string {
	return "saga-orchestrator-event-handler"
}

// HandleStepCompleted handles step completed events from participant workers
func (h *SagaEventHandlers) HandleStepCompleted(ctx context.Context, event *events.Event) error {
	var data saga.StepCompleted
	if err := event.UnmarshalPayload(&data); err != nil {
		return h.drop(event, err)
	}

	sagaID, stepID, err := parseIDs(data.SagaID, data.StepID)
	if err != nil {
		return h.drop(event, err)
	}

	outcome, err := h.callbacks.CompleteStep(ctx, sagaID, stepID, data.Result)
	return h.settle(event, outcome, err)
}

// HandleStepFailed handles step failed events from participant workers
func (h *SagaEventHandlers) HandleStepFailed(ctx context.Context, event *events.Event) error {
	var data saga.StepFailed
	if err := event.UnmarshalPayload(&data); err != nil {
		return h.drop(event, err)
	}

	sagaID, stepID, err := parseIDs(data.SagaID, data.StepID)
	if err != nil {
		return h.drop(event, err)
	}

	outcome, err := h.callbacks.FailStep(ctx, sagaID, stepID, data.Error)
	return h.settle(event, outcome, err)
}

// HandleStepCompensated handles successful compensation reports
func (h *SagaEventHandlers) HandleStepCompensated(ctx context.Context, event *events.Event) error {
	var data saga.StepCompensated
	if err := event.UnmarshalPayload(&data); err != nil {
		return h.drop(event, err)
	}

	sagaID, stepID, err := parseIDs(data.SagaID, data.StepID)
	if err != nil {
		return h.drop(event, err)
	}

	err = h.callbacks.ReportCompensation(ctx, sagaID, stepID, data.Action, nil)
	return h.settle(event, domain.AppliedOutcome(), err)
}

// HandleStepCompensationFailed handles failed compensation reports
func (h *SagaEventHandlers) HandleStepCompensationFailed(ctx context.Context, event *events.Event) error {
	var data saga.StepCompensationFailed
	if err := event.UnmarshalPayload(&data); err != nil {
		return h.drop(event, err)
	}

	sagaID, stepID, err := parseIDs(data.SagaID, data.StepID)
	if err != nil {
		return h.drop(event, err)
	}

	err = h.callbacks.ReportCompensation(ctx, sagaID, stepID, data.Action, errors.New(data.Error))
	return h.settle(event, domain.AppliedOutcome(), err)
}

// HandleCompensationFinishRequested closes the compensation phase of a saga
func (h *SagaEventHandlers) HandleCompensationFinishRequested(ctx context.Context, event *events.Event) error {
	var data saga.CompensationFinishRequested
	if err := event.UnmarshalPayload(&data); err != nil {
		return h.drop(event, err)
	}

	sagaID, err := models.NewID(data.SagaID)
	if err != nil {
		return h.drop(event, errors.Wrap(err, "invalid saga ID"))
	}

	outcome, err := h.callbacks.FinishCompensation(ctx, sagaID)
	return h.settle(event, outcome, err)
}

// settle decides whether the message is acknowledged. Input errors will not
// heal on redelivery, everything else is returned so the message comes back.
func (h *SagaEventHandlers) settle(event *events.Event, outcome domain.Outcome, err error) error {
	if err == nil {
		if !outcome.Applied() {
			h.logger.Debug("saga event ignored",
				zap.String("event_id", event.ID.String()),
				zap.String("event_type", event.EventType),
				zap.String("reason", string(outcome.Reason)),
			)
		}
		return nil
	}

	if domain.IsInputError(err) {
		h.logger.Warn("discarding saga event",
			zap.String("event_id", event.ID.String()),
			zap.String("event_type", event.EventType),
			zap.Error(err),
		)
		return nil
	}

	return errors.Wrapf(err, "failed to handle %s", event.EventType)
}

func (h *SagaEventHandlers) drop(event *events.Event, err error) error {
	h.logger.Error("dropping malformed saga event",
		zap.String("event_id", event.ID.String()),
		zap.String("event_type", event.EventType),
		zap.Error(err),
	)
	return nil
}

func parseIDs(rawSagaID, rawStepID string) (models.ID, models.ID, error) {
	sagaID, err := models.NewID(rawSagaID)
	if err != nil {
		return "", "", errors.Wrap(err, "invalid saga ID")
	}
	stepID, err := models.NewID(rawStepID)
	if err != nil {
		return "", "", errors.Wrap(err, "invalid step ID")
	}
	return sagaID, stepID, nil
}
