package domain

import (
	"context"
	"time"

	"github.com/draftea/saga-system/shared/models"
)

// SagaRepository defines the interface for saga persistence.
// A saga and its steps are always written together.
type SagaRepository interface {
	Create(ctx context.Context, saga *Saga) error
	// Update persists the saga if its version still matches the stored one and
	// bumps saga.Version on success. It returns ErrConcurrentModification otherwise.
	Update(ctx context.Context, saga *Saga) error
	// FindByID returns nil, nil when the saga does not exist
	FindByID(ctx context.Context, id models.ID) (*Saga, error)
	FindRecent(ctx context.Context, limit int) ([]*Saga, error)
	// FindTimedOut returns non terminal sagas whose timeout_at is before now
	FindTimedOut(ctx context.Context, now time.Time, limit int) ([]*Saga, error)
	// DeleteTerminalBefore removes completed or compensated sagas finished before cutoff
	DeleteTerminalBefore(ctx context.Context, cutoff time.Time) (int64, error)
}
