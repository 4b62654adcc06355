package infrastructure

import (
	"context"
	"hash/fnv"
	"sync"
	"time"

	"github.com/draftea/saga-system/orchestrator-service/domain"
	"github.com/draftea/saga-system/shared/logger"
	"github.com/draftea/saga-system/shared/models"
	"github.com/draftea/saga-system/shared/saga"
	"github.com/pkg/errors"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

var ErrDispatcherStopped = errors.New("step dispatcher stopped")

type jobKind int

const (
	jobStep jobKind = iota
	jobCompensation
	jobFinishCompensation
)

type dispatchJob struct {
	kind         jobKind
	sagaID       models.ID
	step         domain.StepJob
	compensation domain.CompensationJob
}

// shard is an unbounded FIFO queue drained by a single worker, so jobs of
// one saga run in submission order
type shard struct {
	mu     sync.Mutex
	queue  []dispatchJob
	notify chan struct{}
}

func newShard() *shard {
	return &shard{notify: make(chan struct{}, 1)}
}

func (s *shard) push(job dispatchJob) {
	s.mu.Lock()
	s.queue = append(s.queue, job)
	s.mu.Unlock()

	select {
	case s.notify <- struct{}{}:
	default:
	}
}

func (s *shard) pop() (dispatchJob, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if len(s.queue) == 0 {
		return dispatchJob{}, false
	}
	job := s.queue[0]
	s.queue[0] = dispatchJob{}
	s.queue = s.queue[1:]
	return job, true
}

func (s *shard) len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.queue)
}

// LocalStepDispatcher runs participants in process on a pool of workers.
// Each saga is pinned to one worker by hashing its id.
type LocalStepDispatcher struct {
	runner *saga.Runner
	shards []*shard
	logger *zap.Logger

	mu        sync.Mutex
	callbacks domain.StepCallbacks
	cancel    context.CancelFunc
	group     *errgroup.Group
	stopped   bool
}

var _ domain.StepDispatcher = (*LocalStepDispatcher)(nil)

// NewLocalStepDispatcher creates a dispatcher with the given number of workers
func NewLocalStepDispatcher(runner *saga.Runner, workers int, log *zap.Logger) *LocalStepDispatcher {
	if workers < 1 {
		workers = 1
	}

	shards := make([]*shard, workers)
	for i := range shards {
		shards[i] = newShard()
	}

	return &LocalStepDispatcher{
		runner: runner,
		shards: shards,
		logger: logger.OrNop(log),
	}
}

// Start launches the workers. Results are reported to callbacks.
func (d *LocalStepDispatcher) Start(ctx context.Context, callbacks domain.StepCallbacks) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.stopped {
		return ErrDispatcherStopped
	}
	if d.group != nil {
		return errors.New("step dispatcher already started")
	}

	ctx, cancel := context.WithCancel(ctx)
	group, ctx := errgroup.WithContext(ctx)

	d.callbacks = callbacks
	d.cancel = cancel
	d.group = group

	for _, s := range d.shards {
		s := s
		group.Go(func() error {
			d.work(ctx, s)
			return nil
		})
	}

	d.logger.Info("local step dispatcher started", zap.Int("workers", len(d.shards)))
	return nil
}

// Stop stops the workers and waits for the running jobs to return.
// Queued jobs are dropped, the timeout sweep fails their steps.
func (d *LocalStepDispatcher) Stop() error {
	d.mu.Lock()
	d.stopped = true
	cancel, group := d.cancel, d.group
	d.mu.Unlock()

	if cancel == nil {
		return nil
	}
	cancel()
	return group.Wait()
}

// Pending returns the number of queued jobs
func (d *LocalStepDispatcher) Pending() int {
	n := 0
	for _, s := range d.shards {
		n += s.len()
	}
	return n
}

// DispatchStep queues a forward step
func (d *LocalStepDispatcher) DispatchStep(ctx context.Context, job domain.StepJob) error {
	return d.submit(dispatchJob{kind: jobStep, sagaID: job.SagaID, step: job})
}

// DispatchCompensation queues a compensating action
func (d *LocalStepDispatcher) DispatchCompensation(ctx context.Context, job domain.CompensationJob) error {
	return d.submit(dispatchJob{kind: jobCompensation, sagaID: job.SagaID, compensation: job})
}

// DispatchFinishCompensation queues the end of the compensation phase behind
// the compensations already queued for the saga
func (d *LocalStepDispatcher) DispatchFinishCompensation(ctx context.Context, job domain.FinishCompensationJob) error {
	return d.submit(dispatchJob{kind: jobFinishCompensation, sagaID: job.SagaID})
}

func (d *LocalStepDispatcher) submit(job dispatchJob) error {
	d.mu.Lock()
	stopped := d.stopped
	d.mu.Unlock()
	if stopped {
		return ErrDispatcherStopped
	}

	d.shardFor(job.sagaID).push(job)
	return nil
}

func (d *LocalStepDispatcher) shardFor(sagaID models.ID) *shard {
	h := fnv.New32a()
	h.Write([]byte(sagaID))
	return d.shards[h.Sum32()%uint32(len(d.shards))]
}

func (d *LocalStepDispatcher) work(ctx context.Context, s *shard) {
	for {
		job, ok := s.pop()
		if !ok {
			select {
			case <-ctx.Done():
				return
			case <-s.notify:
				continue
			}
		}

		if ctx.Err() != nil {
			return
		}
		d.run(ctx, job)
	}
}

func (d *LocalStepDispatcher) run(ctx context.Context, job dispatchJob) {
	switch job.kind {
	case jobStep:
		d.runStep(ctx, job.step)
	case jobCompensation:
		d.runCompensation(ctx, job.compensation)
	case jobFinishCompensation:
		if _, err := d.callbacks.FinishCompensation(ctx, job.sagaID); err != nil {
			d.logger.Error("failed to finish compensation",
				zap.String("saga_id", job.sagaID.String()),
				zap.Error(err),
			)
		}
	}
}

func (d *LocalStepDispatcher) runStep(ctx context.Context, job domain.StepJob) {
	log := d.logger.With(
		zap.String("saga_id", job.SagaID.String()),
		zap.String("step_id", job.StepID.String()),
		zap.String("step_name", job.StepName),
	)

	runCtx, cancel := withDeadline(saga.WithSagaID(ctx, job.SagaID.String()), job.Deadline)
	result, err := d.runner.Execute(runCtx, job.StepName, job.Data)
	cancel()

	if ctx.Err() != nil {
		// shutting down, the step stays pending until the timeout sweep
		return
	}

	if err != nil {
		log.Warn("participant failed step", zap.Error(err))
		if _, cbErr := d.callbacks.FailStep(ctx, job.SagaID, job.StepID, err.Error()); cbErr != nil {
			log.Error("failed to report step failure", zap.Error(cbErr))
		}
		return
	}

	if _, cbErr := d.callbacks.CompleteStep(ctx, job.SagaID, job.StepID, result); cbErr != nil {
		log.Error("failed to report step completion", zap.Error(cbErr))
	}
}

func (d *LocalStepDispatcher) runCompensation(ctx context.Context, job domain.CompensationJob) {
	runCtx, cancel := withDeadline(saga.WithSagaID(ctx, job.SagaID.String()), job.Deadline)
	_, err := d.runner.Compensate(runCtx, job.Action, job.OriginalResult)
	cancel()

	if ctx.Err() != nil {
		return
	}

	if cbErr := d.callbacks.ReportCompensation(ctx, job.SagaID, job.StepID, job.Action, err); cbErr != nil {
		d.logger.Error("failed to report compensation",
			zap.String("saga_id", job.SagaID.String()),
			zap.String("step_id", job.StepID.String()),
			zap.String("action", job.Action),
			zap.Error(cbErr),
		)
	}
}

func withDeadline(ctx context.Context, deadline time.Time) (context.Context, context.CancelFunc) {
	if deadline.IsZero() {
		return context.WithCancel(ctx)
	}
	return context.WithDeadline(ctx, deadline)
}
