package saga

import (
	"context"
	"time"

	"github.com/draftea/saga-system/shared/models"
	"github.com/pkg/errors"
	"github.com/sethvargo/go-retry"
)

// RetryPolicy bounds how many times a participant call is attempted before
// its failure is reported to the orchestrator
type RetryPolicy struct {
	MaxAttempts    int
	InitialBackoff time.Duration
	MaxBackoff     time.Duration
}

// DefaultRetryPolicy returns the policy used when none is configured
func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{
		MaxAttempts:    3,
		InitialBackoff: 100 * time.Millisecond,
		MaxBackoff:     2 * time.Second,
	}
}

func (p RetryPolicy) backoff() retry.Backoff {
	attempts := p.MaxAttempts
	if attempts < 1 {
		attempts = 1
	}
	initial := p.InitialBackoff
	if initial <= 0 {
		initial = 10 * time.Millisecond
	}

	b := retry.NewExponential(initial)
	if p.MaxBackoff > 0 {
		b = retry.WithCappedDuration(p.MaxBackoff, b)
	}
	return retry.WithMaxRetries(uint64(attempts-1), b)
}

// Runner invokes participants for steps and compensations
type Runner struct {
	participants *Participants
	policy       RetryPolicy
}

// NewRunner creates a runner over the given participant table
func NewRunner(participants *Participants, policy RetryPolicy) *Runner {
	return &Runner{
		participants: participants,
		policy:       policy,
	}
}

// Execute runs a forward step, retrying transient failures
func (r *Runner) Execute(ctx context.Context, stepName string, data models.Payload) (models.Payload, error) {
	participant, err := r.participants.ForStep(stepName)
	if err != nil {
		return nil, err
	}

	return r.run(ctx, func(ctx context.Context) (models.Payload, error) {
		return participant.Execute(ctx, stepName, data)
	})
}

// Compensate runs a compensating action, retrying transient failures
func (r *Runner) Compensate(ctx context.Context, action string, prior models.Payload) (models.Payload, error) {
	participant, err := r.participants.ForCompensation(action)
	if err != nil {
		return nil, err
	}

	return r.run(ctx, func(ctx context.Context) (models.Payload, error) {
		return participant.Compensate(ctx, action, prior)
	})
}

func (r *Runner) run(ctx context.Context, call func(ctx context.Context) (models.Payload, error)) (models.Payload, error) {
	var result models.Payload

	err := retry.Do(ctx, r.policy.backoff(), func(ctx context.Context) error {
		res, err := call(ctx)
		if err != nil {
			if IsPermanent(err) || ctx.Err() != nil {
				return err
			}
			return retry.RetryableError(err)
		}
		result = res
		return nil
	})
	if err != nil {
		return nil, errors.Wrap(err, "participant call failed")
	}

	if result == nil {
		result = models.Payload{}
	}
	return result, nil
}
