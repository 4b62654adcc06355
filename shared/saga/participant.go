// Package saga holds the contract shared by the orchestrator and the services
// that take part in a saga: the participant interface, the messages exchanged
// over the event bus and the runner that invokes participants with retries.
package saga

import (
	"context"
	"sort"

	"github.com/draftea/saga-system/shared/models"
	"github.com/pkg/errors"
)

var (
	ErrNoParticipant = errors.New("no participant registered")
)

// Participant is a service able to execute saga steps and undo them.
// Both operations must be idempotent: the same step may be delivered more
// than once and a compensation may run for a step that was already undone.
type Participant interface {
	Name() string
	Execute(ctx context.Context, stepName string, data models.Payload) (models.Payload, error)
	Compensate(ctx context.Context, action string, prior models.Payload) (models.Payload, error)
}

// Participants maps step names and compensating actions to the participant owning them
type Participants struct {
	steps         map[string]Participant
	compensations map[string]Participant
}

// NewParticipants creates an empty participant table
func NewParticipants() *Participants {
	return &Participants{
		steps:         make(map[string]Participant),
		compensations: make(map[string]Participant),
	}
}

// Register binds a forward step and its compensating action to a participant
func (p *Participants) Register(participant Participant, stepName, compensationAction string) *Participants {
	p.steps[stepName] = participant
	if compensationAction != "" {
		p.compensations[compensationAction] = participant
	}
	return p
}

// ForStep returns the participant executing stepName
func (p *Participants) ForStep(stepName string) (Participant, error) {
	participant, ok := p.steps[stepName]
	if !ok {
		return nil, errors.Wrapf(ErrNoParticipant, "step %q", stepName)
	}
	return participant, nil
}

// ForCompensation returns the participant executing the compensating action
func (p *Participants) ForCompensation(action string) (Participant, error) {
	participant, ok := p.compensations[action]
	if !ok {
		return nil, errors.Wrapf(ErrNoParticipant, "compensation %q", action)
	}
	return participant, nil
}

// Steps lists the registered forward step names in lexical order
func (p *Participants) Steps() []string {
	names := make([]string, 0, len(p.steps))
	for name := range p.steps {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

type sagaIDKey struct{}

// WithSagaID stores the id of the saga a participant call belongs to.
// Participants use it as their idempotency key.
func WithSagaID(ctx context.Context, sagaID string) context.Context {
	return context.WithValue(ctx, sagaIDKey{}, sagaID)
}

// SagaIDFromContext returns the saga id stored by WithSagaID
func SagaIDFromContext(ctx context.Context) (string, bool) {
	sagaID, ok := ctx.Value(sagaIDKey{}).(string)
	return sagaID, ok && sagaID != ""
}

type permanentError struct {
	err error
}

func (e *permanentError) Error() string { return e.err.Error() }
func (e *permanentError) Unwrap() error { return e.err }

// Permanent marks err as a business rejection that retrying cannot fix
func Permanent(err error) error {
	if err == nil {
		return nil
	}
	return &permanentError{err: err}
}

// IsPermanent reports whether err was marked with Permanent
func IsPermanent(err error) bool {
	var p *permanentError
	return errors.As(err, &p)
}
