// Package worker runs evaluation jobs pulled off the queue and
// persists their results.
package worker

import (
	"context"
	"fmt"
	"runtime"
	"strconv"
	"time"

	"github.com/okian/tryout/internal/adapters/mq/queue"
	"github.com/okian/tryout/internal/domain/evaluation"
	"github.com/okian/tryout/pkg/logger"
	"github.com/okian/tryout/pkg/metrics"
)

// poolShutdownTimeout bounds how long Shutdown waits for workers to
// drain.
const poolShutdownTimeout = 30 * time.Second

// Evaluator runs one evaluation end to end.
type Evaluator interface {
	Run(ctx context.Context, req evaluation.Request) (*evaluation.Result, error)
}

// Saver persists completed evaluation results.
type Saver interface {
	SaveEvaluation(ctx context.Context, result *evaluation.Result) error
}

// Queue defines how workers receive jobs.
type Queue interface {
	Dequeue(ctx context.Context) <-chan queue.Job
}

// Worker processes jobs until stopped.
type Worker interface {
	// Run starts the worker loop until ctx is canceled.
	Run(ctx context.Context)

	// Shutdown gracefully stops the worker.
	Shutdown(ctx context.Context) error
}

// EvalWorker implements Worker.
type EvalWorker struct {
	queue     Queue
	evaluator Evaluator
	saver     Saver
	name      string

	shutdown chan struct{}
	done     chan struct{}

	logger logger.Logger
}

// NewEvalWorker creates a worker with configuration options.
func NewEvalWorker(q Queue, evaluator Evaluator, saver Saver, opts ...Option) *EvalWorker {
	w := &EvalWorker{
		queue:     q,
		evaluator: evaluator,
		saver:     saver,
		name:      "worker",
		shutdown:  make(chan struct{}),
		done:      make(chan struct{}),
		logger:    logger.Get().Named("worker"),
	}
	for _, opt := range opts {
		opt(w)
	}
	if w.name != "worker" {
		w.logger = logger.Get().Named(w.name)
	}
	return w
}

// Run starts the worker loop.
func (w *EvalWorker) Run(ctx context.Context) {
	defer close(w.done)

	jobs := w.queue.Dequeue(ctx)
	for {
		select {
		case <-ctx.Done():
			return
		case <-w.shutdown:
			return
		case job, ok := <-jobs:
			if !ok {
				return
			}
			if err := w.processJob(ctx, job); err != nil {
				w.logger.Error(ctx, "evaluation job failed",
					logger.String("session_id", job.Request.SessionID),
					logger.Error(err),
				)
			}
		}
	}
}

// Shutdown gracefully stops the worker.
func (w *EvalWorker) Shutdown(ctx context.Context) error {
	close(w.shutdown)

	select {
	case <-w.done:
		return nil
	case <-ctx.Done():
		w.logger.Warn(ctx, "shutdown timed out")
		return fmt.Errorf("shutdown timed out: %w", ctx.Err())
	}
}

// processJob evaluates one session and persists the result under the
// id handed out at enqueue time.
func (w *EvalWorker) processJob(ctx context.Context, job queue.Job) error {
	result, err := w.evaluator.Run(ctx, job.Request)
	if err != nil {
		return fmt.Errorf("evaluate session %s: %w", job.Request.SessionID, err)
	}
	if job.ID != "" {
		result.ID = job.ID
	}
	if err := w.saver.SaveEvaluation(ctx, result); err != nil {
		return fmt.Errorf("persist evaluation %s: %w", result.ID, err)
	}

	w.logger.Info(ctx, "evaluation completed",
		logger.String("session_id", result.SessionID),
		logger.String("evaluation_id", result.ID),
		logger.Float64("overall_score", result.OverallScore),
	)
	return nil
}

// Pool manages multiple workers.
type Pool struct {
	workers []*EvalWorker
	queue   Queue

	logger logger.Logger
}

// NewPool creates a worker pool. A non-positive count defaults to the
// CPU count.
func NewPool(workerCount int, q Queue, evaluator Evaluator, saver Saver) *Pool {
	if workerCount < 1 {
		workerCount = runtime.NumCPU()
	}

	pool := &Pool{
		workers: make([]*EvalWorker, workerCount),
		queue:   q,
		logger:  logger.Get().Named("worker-pool"),
	}

	for i := 0; i < workerCount; i++ {
		pool.workers[i] = NewEvalWorker(
			q,
			evaluator,
			saver,
			WithName("worker-"+strconv.Itoa(i)),
		)
	}

	metrics.UpdateWorkerCount(workerCount)

	return pool
}

// Start starts all workers in the pool.
func (p *Pool) Start(ctx context.Context) {
	for _, w := range p.workers {
		go w.Run(ctx)
	}
}

// Shutdown closes the queue and waits for workers to drain.
func (p *Pool) Shutdown(ctx context.Context) error {
	if closer, ok := p.queue.(interface{ Close() error }); ok {
		if err := closer.Close(); err != nil {
			p.logger.Error(ctx, "error closing queue", logger.Error(err))
		}
	}

	shutdownCtx, cancel := context.WithTimeout(ctx, poolShutdownTimeout)
	defer cancel()

	for i, w := range p.workers {
		select {
		case <-w.done:
		case <-shutdownCtx.Done():
			p.logger.Warn(ctx, "worker shutdown timed out", logger.Int("worker_id", i))
		}
	}
	metrics.UpdateWorkerCount(0)
	return nil
}
