package domain

import "github.com/pkg/errors"

// Input errors. They never mutate state and are surfaced to the caller.
var (
	ErrUnknownSagaType = errors.New("unknown saga type")
	ErrSagaNotFound    = errors.New("saga not found")
	ErrStepNotFound    = errors.New("saga step not found")
	ErrInvalidPayload  = errors.New("invalid saga payload")
)

// State machine violations
var (
	ErrInvalidTransition      = errors.New("invalid saga transition")
	ErrStepAlreadyResolved    = errors.New("saga step already resolved")
	ErrStepPending            = errors.New("saga already has a pending step")
	ErrNoStepsRemaining       = errors.New("saga has no steps remaining")
	ErrInvalidDefinition      = errors.New("invalid saga definition")
	ErrConcurrentModification = errors.New("saga was modified concurrently")
)

// ErrStepTimedOut is the failure reason recorded for steps expired by the timeout sweep
var ErrStepTimedOut = errors.New("step timed out")

// IsInputError reports whether err was caused by caller input rather than the system
func IsInputError(err error) bool {
	return errors.Is(err, ErrUnknownSagaType) ||
		errors.Is(err, ErrSagaNotFound) ||
		errors.Is(err, ErrStepNotFound) ||
		errors.Is(err, ErrInvalidPayload)
}
