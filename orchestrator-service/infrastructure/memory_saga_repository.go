package infrastructure

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/draftea/saga-system/orchestrator-service/domain"
	"github.com/draftea/saga-system/shared/models"
	"github.com/pkg/errors"
)

// MemorySagaRepository implements SagaRepository in process memory.
// Sagas are copied on the way in and out so callers never share state.
type MemorySagaRepository struct {
	mu    sync.RWMutex
	sagas map[models.ID]*domain.Saga
}

var _ domain.SagaRepository = (*MemorySagaRepository)(nil)

// NewMemorySagaRepository creates a new MemorySagaRepository
func NewMemorySagaRepository() *MemorySagaRepository {
	return &MemorySagaRepository{sagas: make(map[models.ID]*domain.Saga)}
}

// Create stores a new saga
func (r *MemorySagaRepository) Create(ctx context.Context, saga *domain.Saga) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.sagas[saga.ID]; exists {
		return errors.Errorf("saga %s already exists", saga.ID)
	}
	r.sagas[saga.ID] = saga.Clone()
	return nil
}

// Update replaces a saga if the stored version matches
func (r *MemorySagaRepository) Update(ctx context.Context, saga *domain.Saga) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	stored, exists := r.sagas[saga.ID]
	if !exists {
		return errors.Wrapf(domain.ErrSagaNotFound, "saga %s", saga.ID)
	}
	if stored.Version.Value != saga.Version.Value {
		return errors.Wrapf(domain.ErrConcurrentModification, "saga %s at version %d, stored %d",
			saga.ID, saga.Version.Value, stored.Version.Value)
	}

	saga.Version = saga.Version.Update()
	r.sagas[saga.ID] = saga.Clone()
	return nil
}

// FindByID finds a saga by ID
func (r *MemorySagaRepository) FindByID(ctx context.Context, id models.ID) (*domain.Saga, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	saga, exists := r.sagas[id]
	if !exists {
		return nil, nil
	}
	return saga.Clone(), nil
}

// FindRecent returns up to limit sagas, most recently started first
func (r *MemorySagaRepository) FindRecent(ctx context.Context, limit int) ([]*domain.Saga, error) {
	r.mu.RLock()
	all := make([]*domain.Saga, 0, len(r.sagas))
	for _, saga := range r.sagas {
		all = append(all, saga.Clone())
	}
	r.mu.RUnlock()

	sort.Slice(all, func(i, j int) bool {
		if all[i].StartedAt.Equal(all[j].StartedAt) {
			return all[i].ID > all[j].ID
		}
		return all[i].StartedAt.After(all[j].StartedAt)
	})
	return truncate(all, limit), nil
}

// FindTimedOut returns running sagas whose deadline is before now, oldest deadline first
func (r *MemorySagaRepository) FindTimedOut(ctx context.Context, now time.Time, limit int) ([]*domain.Saga, error) {
	r.mu.RLock()
	var expired []*domain.Saga
	for _, saga := range r.sagas {
		if !saga.Status.IsTerminal() && saga.TimeoutAt.Before(now) {
			expired = append(expired, saga.Clone())
		}
	}
	r.mu.RUnlock()

	sort.Slice(expired, func(i, j int) bool {
		return expired[i].TimeoutAt.Before(expired[j].TimeoutAt)
	})
	return truncate(expired, limit), nil
}

// DeleteTerminalBefore removes terminal sagas that finished before cutoff
func (r *MemorySagaRepository) DeleteTerminalBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var deleted int64
	for id, saga := range r.sagas {
		if saga.Status.IsTerminal() && saga.CompletedAt != nil && saga.CompletedAt.Before(cutoff) {
			delete(r.sagas, id)
			deleted++
		}
	}
	return deleted, nil
}

func truncate(sagas []*domain.Saga, limit int) []*domain.Saga {
	if limit > 0 && len(sagas) > limit {
		return sagas[:limit]
	}
	return sagas
}
