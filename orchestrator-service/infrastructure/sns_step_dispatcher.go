package infrastructure

import (
	"context"

	"github.com/draftea/saga-system/orchestrator-service/domain"
	"github.com/draftea/saga-system/shared/events"
	"github.com/draftea/saga-system/shared/saga"
	"github.com/pkg/errors"
)

// SNSStepDispatcher publishes step work as events for participant workers.
// Outcomes come back on the orchestrator queue.
type SNSStepDispatcher struct {
	publisher events.Publisher
}

var _ domain.StepDispatcher = (*SNSStepDispatcher)(nil)

// NewSNSStepDispatcher creates a new SNSStepDispatcher
func NewSNSStepDispatcher(publisher events.Publisher) *SNSStepDispatcher {
	return &SNSStepDispatcher{publisher: publisher}
}

// DispatchStep publishes a step execution request
func (d *SNSStepDispatcher) DispatchStep(ctx context.Context, job domain.StepJob) error {
	event := events.NewEvent(job.SagaID, events.SagaStepExecutionRequestedEvent, saga.StepExecutionRequested{
		SagaID:   job.SagaID.String(),
		SagaType: job.SagaType,
		StepID:   job.StepID.String(),
		StepName: job.StepName,
		Data:     job.Data,
		Deadline: job.Deadline,
	}).
		WithMetadata(events.MetadataSagaType, job.SagaType).
		WithMetadata(events.MetadataStepID, job.StepID.String()).
		WithMetadata(events.MetadataStepName, job.StepName)

	return d.publish(ctx, event, job.SagaID.String())
}

// DispatchCompensation publishes a compensation request
func (d *SNSStepDispatcher) DispatchCompensation(ctx context.Context, job domain.CompensationJob) error {
	event := events.NewEvent(job.SagaID, events.SagaStepCompensationRequestedEvent, saga.StepCompensationRequested{
		SagaID:         job.SagaID.String(),
		StepID:         job.StepID.String(),
		StepName:       job.StepName,
		Action:         job.Action,
		OriginalResult: job.OriginalResult,
		Deadline:       job.Deadline,
	}).
		WithMetadata(events.MetadataStepID, job.StepID.String()).
		WithMetadata(events.MetadataStepName, job.StepName)

	return d.publish(ctx, event, job.SagaID.String())
}

// DispatchFinishCompensation publishes the request closing the compensation phase
func (d *SNSStepDispatcher) DispatchFinishCompensation(ctx context.Context, job domain.FinishCompensationJob) error {
	event := events.NewEvent(job.SagaID, events.SagaCompensationFinishRequestedEvent, saga.CompensationFinishRequested{
		SagaID: job.SagaID.String(),
	})

	return d.publish(ctx, event, job.SagaID.String())
}

func (d *SNSStepDispatcher) publish(ctx context.Context, event *events.Event, sagaID string) error {
	event.WithCorrelationID(event.AggregateID).
		WithMetadata(events.MetadataSagaID, sagaID)

	if err := d.publisher.Publish(ctx, event); err != nil {
		return errors.Wrapf(err, "failed to publish %s", event.EventType)
	}
	return nil
}
