package infrastructure

import (
	"context"
	"database/sql"
	"time"

	"github.com/draftea/saga-system/orchestrator-service/domain"
	"github.com/draftea/saga-system/shared/models"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/pkg/errors"
)

// PostgresSagaRepository implements SagaRepository using PostgreSQL
type PostgresSagaRepository struct {
	db *sqlx.DB
}

var _ domain.SagaRepository = (*PostgresSagaRepository)(nil)

// NewPostgresSagaRepository creates a new PostgresSagaRepository
func NewPostgresSagaRepository(db *sqlx.DB) *PostgresSagaRepository {
	return &PostgresSagaRepository{db: db}
}

// postgresSaga represents a saga in database
type postgresSaga struct {
	ID            string     `db:"id"`
	Type          string     `db:"type"`
	Status        string     `db:"status"`
	Data          []byte     `db:"data"`
	CurrentStep   int        `db:"current_step"`
	TotalSteps    int        `db:"total_steps"`
	FailureReason string     `db:"failure_reason"`
	StartedAt     time.Time  `db:"started_at"`
	CompletedAt   *time.Time `db:"completed_at"`
	TimeoutAt     time.Time  `db:"timeout_at"`
	CreatedAt     time.Time  `db:"created_at"`
	UpdatedAt     time.Time  `db:"updated_at"`
	Version       int        `db:"version"`
}

// postgresSagaStep represents a saga step in database
type postgresSagaStep struct {
	ID          string     `db:"id"`
	SagaID      string     `db:"saga_id"`
	Sequence    int        `db:"sequence"`
	StepName    string     `db:"step_name"`
	Status      string     `db:"status"`
	Result      []byte     `db:"result"`
	Error       string     `db:"error"`
	StartedAt   time.Time  `db:"started_at"`
	CompletedAt *time.Time `db:"completed_at"`
	FailedAt    *time.Time `db:"failed_at"`
	TimeoutAt   time.Time  `db:"timeout_at"`
}

const sagaColumns = `id, type, status, data, current_step, total_steps, failure_reason,
		started_at, completed_at, timeout_at, created_at, updated_at, version`

const stepColumns = `id, saga_id, sequence, step_name, status, result, error,
		started_at, completed_at, failed_at, timeout_at`

const upsertStepQuery = `
	INSERT INTO saga_steps (
		id, saga_id, sequence, step_name, status, result, error,
		started_at, completed_at, failed_at, timeout_at
	) VALUES (
		:id, :saga_id, :sequence, :step_name, :status, :result, :error,
		:started_at, :completed_at, :failed_at, :timeout_at
	)
	ON CONFLICT (id) DO UPDATE SET
		status = EXCLUDED.status,
		result = EXCLUDED.result,
		error = EXCLUDED.error,
		completed_at = EXCLUDED.completed_at,
		failed_at = EXCLUDED.failed_at
	WHERE saga_steps.status = 'pending'`

// Create inserts a new saga together with its steps
func (r *PostgresSagaRepository) Create(ctx context.Context, saga *domain.Saga) error {
	pgSaga, pgSteps, err := r.toPostgres(saga)
	if err != nil {
		return err
	}

	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return errors.Wrap(err, "failed to begin transaction")
	}
	defer tx.Rollback()

	query := `
		INSERT INTO sagas (
			id, type, status, data, current_step, total_steps, failure_reason,
			started_at, completed_at, timeout_at, created_at, updated_at, version
		) VALUES (
			:id, :type, :status, :data, :current_step, :total_steps, :failure_reason,
			:started_at, :completed_at, :timeout_at, :created_at, :updated_at, :version
		)`

	if _, err := tx.NamedExecContext(ctx, query, pgSaga); err != nil {
		return errors.Wrap(err, "failed to insert saga")
	}

	if err := r.saveSteps(ctx, tx, pgSteps); err != nil {
		return err
	}

	return errors.Wrap(tx.Commit(), "failed to commit saga")
}

// Update writes the saga and its steps if nobody else changed it since it was read
func (r *PostgresSagaRepository) Update(ctx context.Context, saga *domain.Saga) error {
	pgSaga, pgSteps, err := r.toPostgres(saga)
	if err != nil {
		return err
	}

	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return errors.Wrap(err, "failed to begin transaction")
	}
	defer tx.Rollback()

	query := `
		UPDATE sagas
		SET status = :status, current_step = :current_step, failure_reason = :failure_reason,
			completed_at = :completed_at, timeout_at = :timeout_at, updated_at = :updated_at,
			version = version + 1
		WHERE id = :id AND version = :version`

	result, err := tx.NamedExecContext(ctx, query, pgSaga)
	if err != nil {
		return errors.Wrap(err, "failed to update saga")
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return errors.Wrap(err, "failed to read affected rows")
	}
	if affected == 0 {
		return errors.Wrapf(domain.ErrConcurrentModification, "saga %s at version %d", saga.ID, saga.Version.Value)
	}

	if err := r.saveSteps(ctx, tx, pgSteps); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return errors.Wrap(err, "failed to commit saga")
	}

	saga.Version = saga.Version.Update()
	return nil
}

func (r *PostgresSagaRepository) saveSteps(ctx context.Context, tx *sqlx.Tx, steps []*postgresSagaStep) error {
	for _, step := range steps {
		if _, err := tx.NamedExecContext(ctx, upsertStepQuery, step); err != nil {
			return errors.Wrapf(err, "failed to save saga step %s", step.StepName)
		}
	}
	return nil
}

// FindByID finds a saga by ID
func (r *PostgresSagaRepository) FindByID(ctx context.Context, id models.ID) (*domain.Saga, error) {
	query := `SELECT ` + sagaColumns + ` FROM sagas WHERE id = $1`

	var pgSaga postgresSaga
	err := r.db.GetContext(ctx, &pgSaga, query, id.String())
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, errors.Wrap(err, "failed to find saga")
	}

	sagas, err := r.withSteps(ctx, []postgresSaga{pgSaga})
	if err != nil {
		return nil, err
	}
	return sagas[0], nil
}

// FindRecent returns up to limit sagas, most recently started first
func (r *PostgresSagaRepository) FindRecent(ctx context.Context, limit int) ([]*domain.Saga, error) {
	query := `SELECT ` + sagaColumns + ` FROM sagas ORDER BY started_at DESC, id DESC LIMIT $1`

	var pgSagas []postgresSaga
	if err := r.db.SelectContext(ctx, &pgSagas, query, limit); err != nil {
		return nil, errors.Wrap(err, "failed to find recent sagas")
	}

	return r.withSteps(ctx, pgSagas)
}

// FindTimedOut returns running sagas whose deadline is before now, oldest deadline first
func (r *PostgresSagaRepository) FindTimedOut(ctx context.Context, now time.Time, limit int) ([]*domain.Saga, error) {
	query := `SELECT ` + sagaColumns + ` FROM sagas
		WHERE status IN ('started', 'compensating') AND timeout_at < $1
		ORDER BY timeout_at
		LIMIT $2`

	var pgSagas []postgresSaga
	if err := r.db.SelectContext(ctx, &pgSagas, query, now, limit); err != nil {
		return nil, errors.Wrap(err, "failed to find timed out sagas")
	}

	return r.withSteps(ctx, pgSagas)
}

// DeleteTerminalBefore removes terminal sagas finished before cutoff along
// with their steps and journal
func (r *PostgresSagaRepository) DeleteTerminalBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return 0, errors.Wrap(err, "failed to begin transaction")
	}
	defer tx.Rollback()

	var ids []string
	query := `
		DELETE FROM sagas
		WHERE status IN ('completed', 'compensated') AND completed_at < $1
		RETURNING id`
	if err := tx.SelectContext(ctx, &ids, query, cutoff); err != nil {
		return 0, errors.Wrap(err, "failed to delete sagas")
	}

	if len(ids) > 0 {
		if _, err := tx.ExecContext(ctx, `DELETE FROM event_stream WHERE aggregate_id = ANY($1::uuid[])`, pq.Array(ids)); err != nil {
			return 0, errors.Wrap(err, "failed to delete saga journal")
		}
	}

	if err := tx.Commit(); err != nil {
		return 0, errors.Wrap(err, "failed to commit saga cleanup")
	}
	return int64(len(ids)), nil
}

// withSteps loads the steps of the given sagas in one query
func (r *PostgresSagaRepository) withSteps(ctx context.Context, pgSagas []postgresSaga) ([]*domain.Saga, error) {
	if len(pgSagas) == 0 {
		return []*domain.Saga{}, nil
	}

	ids := make([]string, len(pgSagas))
	for i, s := range pgSagas {
		ids[i] = s.ID
	}

	query := `SELECT ` + stepColumns + ` FROM saga_steps
		WHERE saga_id = ANY($1::uuid[])
		ORDER BY saga_id, sequence`

	var pgSteps []postgresSagaStep
	if err := r.db.SelectContext(ctx, &pgSteps, query, pq.Array(ids)); err != nil {
		return nil, errors.Wrap(err, "failed to find saga steps")
	}

	stepsBySaga := make(map[string][]postgresSagaStep, len(pgSagas))
	for _, step := range pgSteps {
		stepsBySaga[step.SagaID] = append(stepsBySaga[step.SagaID], step)
	}

	sagas := make([]*domain.Saga, len(pgSagas))
	for i := range pgSagas {
		saga, err := r.toDomain(&pgSagas[i], stepsBySaga[pgSagas[i].ID])
		if err != nil {
			return nil, err
		}
		sagas[i] = saga
	}
	return sagas, nil
}

// toPostgres converts a domain saga to postgres models
func (r *PostgresSagaRepository) toPostgres(saga *domain.Saga) (*postgresSaga, []*postgresSagaStep, error) {
	data, err := saga.Data.JSON()
	if err != nil {
		return nil, nil, errors.Wrap(err, "failed to marshal saga data")
	}

	pgSaga := &postgresSaga{
		ID:            saga.ID.String(),
		Type:          saga.Type,
		Status:        string(saga.Status),
		Data:          data,
		CurrentStep:   saga.CurrentStep,
		TotalSteps:    saga.TotalSteps,
		FailureReason: saga.FailureReason,
		StartedAt:     saga.StartedAt,
		CompletedAt:   saga.CompletedAt,
		TimeoutAt:     saga.TimeoutAt,
		CreatedAt:     saga.Timestamps.CreatedAt,
		UpdatedAt:     saga.Timestamps.UpdatedAt,
		Version:       saga.Version.Value,
	}

	pgSteps := make([]*postgresSagaStep, 0, len(saga.Steps))
	for _, step := range saga.Steps {
		var result []byte
		if step.Result != nil {
			result, err = step.Result.JSON()
			if err != nil {
				return nil, nil, errors.Wrapf(err, "failed to marshal result of step %s", step.StepName)
			}
		}

		pgSteps = append(pgSteps, &postgresSagaStep{
			ID:          step.ID.String(),
			SagaID:      saga.ID.String(),
			Sequence:    step.Sequence,
			StepName:    step.StepName,
			Status:      string(step.Status),
			Result:      result,
			Error:       step.Error,
			StartedAt:   step.StartedAt,
			CompletedAt: step.CompletedAt,
			FailedAt:    step.FailedAt,
			TimeoutAt:   step.TimeoutAt,
		})
	}

	return pgSaga, pgSteps, nil
}

// toDomain converts postgres models to a domain saga
func (r *PostgresSagaRepository) toDomain(pgSaga *postgresSaga, pgSteps []postgresSagaStep) (*domain.Saga, error) {
	id, err := models.NewID(pgSaga.ID)
	if err != nil {
		return nil, errors.Wrap(err, "invalid saga ID")
	}

	data, err := models.NewPayload(pgSaga.Data)
	if err != nil {
		return nil, errors.Wrap(err, "invalid saga data")
	}

	saga := &domain.Saga{
		ID:            id,
		Type:          pgSaga.Type,
		Status:        domain.SagaStatus(pgSaga.Status),
		Data:          data,
		CurrentStep:   pgSaga.CurrentStep,
		TotalSteps:    pgSaga.TotalSteps,
		FailureReason: pgSaga.FailureReason,
		StartedAt:     pgSaga.StartedAt,
		CompletedAt:   pgSaga.CompletedAt,
		TimeoutAt:     pgSaga.TimeoutAt,
		Steps:         make([]*domain.SagaStep, 0, len(pgSteps)),
		Timestamps: models.Timestamps{
			CreatedAt: pgSaga.CreatedAt,
			UpdatedAt: pgSaga.UpdatedAt,
		},
		Version: models.Version{Value: pgSaga.Version},
	}

	for _, pgStep := range pgSteps {
		stepID, err := models.NewID(pgStep.ID)
		if err != nil {
			return nil, errors.Wrap(err, "invalid saga step ID")
		}

		var result models.Payload
		if pgStep.Result != nil {
			result, err = models.NewPayload(pgStep.Result)
			if err != nil {
				return nil, errors.Wrapf(err, "invalid result of step %s", pgStep.StepName)
			}
		}

		saga.Steps = append(saga.Steps, &domain.SagaStep{
			ID:          stepID,
			SagaID:      id,
			Sequence:    pgStep.Sequence,
			StepName:    pgStep.StepName,
			Status:      domain.StepStatus(pgStep.Status),
			Result:      result,
			Error:       pgStep.Error,
			StartedAt:   pgStep.StartedAt,
			CompletedAt: pgStep.CompletedAt,
			FailedAt:    pgStep.FailedAt,
			TimeoutAt:   pgStep.TimeoutAt,
		})
	}

	return saga, nil
}
