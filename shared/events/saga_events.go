package events

// Messages exchanged between the orchestrator and participant workers
const (
	SagaStepExecutionRequestedEvent      = "saga.step.execute.requested"
	SagaStepCompensationRequestedEvent   = "saga.step.compensate.requested"
	SagaCompensationFinishRequestedEvent = "saga.compensation.finish.requested"
	SagaStepCompletedEvent               = "saga.step.completed"
	SagaStepFailedEvent                  = "saga.step.failed"
	SagaStepCompensatedEvent             = "saga.step.compensated"
	SagaStepCompensationFailedEvent      = "saga.step.compensation.failed"
)

// Lifecycle entries recorded in the saga journal
const (
	SagaStartedEvent              = "saga.started"
	SagaStepDispatchedEvent       = "saga.step.dispatched"
	SagaStepResolvedEvent         = "saga.step.resolved"
	SagaCompensationStartedEvent  = "saga.compensation.started"
	SagaCompensationRecordedEvent = "saga.compensation.recorded"
	SagaCompletedEvent            = "saga.completed"
	SagaCompensatedEvent          = "saga.compensated"
)

// Metadata keys attached to saga events
const (
	MetadataSagaID   = "saga_id"
	MetadataSagaType = "saga_type"
	MetadataStepID   = "step_id"
	MetadataStepName = "step_name"
)

// ParticipantTopics are the topics a participant worker consumes
var ParticipantTopics = []Topic{
	SagaStepExecutionRequestedEvent,
	SagaStepCompensationRequestedEvent,
}

// OrchestratorTopics are the topics the orchestrator consumes
var OrchestratorTopics = []Topic{
	SagaStepCompletedEvent,
	SagaStepFailedEvent,
	SagaStepCompensatedEvent,
	SagaStepCompensationFailedEvent,
	SagaCompensationFinishRequestedEvent,
}

// IsAnyOf reports whether the event topic matches one of the given patterns
func (e *Event) IsAnyOf(topics ...Topic) bool {
	for _, t := range topics {
		if e.Topic.Matches(t) {
			return true
		}
	}
	return false
}
