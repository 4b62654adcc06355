package telemetry

import (
	"context"
	"time"

	"go.opentelemetry.io/otel/attribute"
)

const (
	metricSagasStarted          = "saga_started_total"
	metricSagasFinished         = "saga_finished_total"
	metricSagaDuration          = "saga_duration_seconds"
	metricStepsDispatched       = "saga_steps_dispatched_total"
	metricStepsResolved         = "saga_steps_resolved_total"
	metricCompensations         = "saga_compensations_total"
	metricCallbacksIgnored      = "saga_callbacks_ignored_total"
	metricTimeoutSweepConverted = "saga_timeout_sweep_converted_total"
)

// RecordSagaStarted counts a new saga instance of the given type
func RecordSagaStarted(ctx context.Context, sagaType string) {
	RecordCounter(ctx, metricSagasStarted, "Sagas started", 1,
		attribute.String("saga_type", sagaType),
	)
}

// RecordSagaFinished counts a saga reaching a terminal status and records its duration
func RecordSagaFinished(ctx context.Context, sagaType, status string, duration time.Duration) {
	attrs := []attribute.KeyValue{
		attribute.String("saga_type", sagaType),
		attribute.String("status", status),
	}
	RecordCounter(ctx, metricSagasFinished, "Sagas that reached a terminal status", 1, attrs...)
	RecordHistogram(ctx, metricSagaDuration, "Saga duration from start to terminal status", duration.Seconds(), attrs...)
}

// RecordStepDispatched counts a forward step submitted to the dispatcher
func RecordStepDispatched(ctx context.Context, sagaType, stepName string) {
	RecordCounter(ctx, metricStepsDispatched, "Saga steps submitted for execution", 1,
		attribute.String("saga_type", sagaType),
		attribute.String("step", stepName),
	)
}

// RecordStepResolved counts a step callback that changed the step status
func RecordStepResolved(ctx context.Context, sagaType, stepName, status string) {
	RecordCounter(ctx, metricStepsResolved, "Saga steps resolved by callbacks", 1,
		attribute.String("saga_type", sagaType),
		attribute.String("step", stepName),
		attribute.String("status", status),
	)
}

// RecordCompensation counts a compensation outcome reported by a participant
func RecordCompensation(ctx context.Context, action string, succeeded bool) {
	outcome := "succeeded"
	if !succeeded {
		outcome = "failed"
	}
	RecordCounter(ctx, metricCompensations, "Compensation outcomes reported by participants", 1,
		attribute.String("action", action),
		attribute.String("outcome", outcome),
	)
}

// RecordCallbackIgnored counts a callback that did not change any state
func RecordCallbackIgnored(ctx context.Context, callback, reason string) {
	RecordCounter(ctx, metricCallbacksIgnored, "Callbacks ignored by the orchestrator", 1,
		attribute.String("callback", callback),
		attribute.String("reason", reason),
	)
}

// RecordTimeoutSweep counts the sagas converted by one sweep pass
func RecordTimeoutSweep(ctx context.Context, kind string, converted int) {
	if converted == 0 {
		return
	}
	RecordCounter(ctx, metricTimeoutSweepConverted, "Sagas converted by the timeout sweep", int64(converted),
		attribute.String("kind", kind),
	)
}
