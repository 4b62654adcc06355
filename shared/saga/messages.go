package saga

import (
	"time"

	"github.com/draftea/saga-system/shared/models"
)

// StepExecutionRequested asks a participant to run a forward step
type StepExecutionRequested struct {
	SagaID   string         `json:"saga_id"`
	SagaType string         `json:"saga_type"`
	StepID   string         `json:"step_id"`
	StepName string         `json:"step_name"`
	Data     models.Payload `json:"data"`
	Deadline time.Time      `json:"deadline"`
}

// StepCompensationRequested asks a participant to undo a completed step
type StepCompensationRequested struct {
	SagaID         string         `json:"saga_id"`
	StepID         string         `json:"step_id"`
	StepName       string         `json:"step_name"`
	Action         string         `json:"action"`
	OriginalResult models.Payload `json:"original_result"`
	Deadline       time.Time      `json:"deadline"`
}

// CompensationFinishRequested closes the compensation phase of a saga
type CompensationFinishRequested struct {
	SagaID string `json:"saga_id"`
}

type StepCompleted struct {
	SagaID   string         `json:"saga_id"`
	StepID   string         `json:"step_id"`
	StepName string         `json:"step_name"`
	Result   models.Payload `json:"result"`
}

type StepFailed struct {
	SagaID   string `json:"saga_id"`
	StepID   string `json:"step_id"`
	StepName string `json:"step_name"`
	Error    string `json:"error"`
}

type StepCompensated struct {
	SagaID string         `json:"saga_id"`
	StepID string         `json:"step_id"`
	Action string         `json:"action"`
	Result models.Payload `json:"result"`
}

type StepCompensationFailed struct {
	SagaID string `json:"saga_id"`
	StepID string `json:"step_id"`
	Action string `json:"action"`
	Error  string `json:"error"`
}
