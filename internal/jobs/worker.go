package jobs

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"
)

// Handler is a function that processes a job's payload
type Handler func(ctx context.Context, payload map[string]any) error

// Worker is a single goroutine that claims and runs jobs.
type Worker struct {
	ID        string
	queue     *Queue
	handlers  *HandlerRegistry
	queueName string
	interval  time.Duration
	stopChan  chan struct{}
	wg        *sync.WaitGroup
	logger    *zap.Logger
}

// WorkerPool manages multiple worker goroutines for concurrent job processing
type WorkerPool struct {
	queue      *Queue
	handlers   *HandlerRegistry
	queueName  string
	numWorkers int
	interval   time.Duration
	stopChan   chan struct{}
	wg         sync.WaitGroup
	mu         sync.Mutex
	started    bool
	logger     *zap.Logger
}

// NewWorkerPool creates a new worker pool. interval is how long an idle
// worker sleeps between dequeue attempts.
func NewWorkerPool(queue *Queue, numWorkers int, interval time.Duration, logger *zap.Logger) *WorkerPool {
	if interval <= 0 {
		interval = time.Second
	}
	return &WorkerPool{
		queue:      queue,
		handlers:   NewHandlerRegistry(),
		queueName:  DefaultQueue,
		numWorkers: numWorkers,
		interval:   interval,
		stopChan:   make(chan struct{}),
		logger:     logger,
	}
}

// RegisterHandler registers a job handler for a specific job type
func (p *WorkerPool) RegisterHandler(jobType string, handler Handler) {
	p.handlers.Register(jobType, handler)
}

// Start starts all workers in the pool
func (p *WorkerPool) Start(ctx context.Context) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.started {
		return
	}
	p.started = true

	p.logger.Info("starting worker pool",
		zap.Int("workers", p.numWorkers),
		zap.String("queue", p.queueName),
	)

	for i := 0; i < p.numWorkers; i++ {
		worker := &Worker{
			ID:        fmt.Sprintf("worker-%s-%d", p.queueName, i),
			queue:     p.queue,
			handlers:  p.handlers,
			queueName: p.queueName,
			interval:  p.interval,
			stopChan:  p.stopChan,
			wg:        &p.wg,
			logger:    p.logger,
		}
		p.wg.Add(1)
		go worker.run(ctx)
	}
}

// Stop gracefully stops all workers
func (p *WorkerPool) Stop() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if !p.started {
		return
	}

	close(p.stopChan)
	p.wg.Wait()
	p.logger.Info("worker pool stopped", zap.String("queue", p.queueName))
}

// run is the main worker loop
func (w *Worker) run(ctx context.Context) {
	defer w.wg.Done()

	for {
		select {
		case <-w.stopChan:
			return
		case <-ctx.Done():
			return
		default:
			job, err := w.queue.Dequeue(ctx, w.ID, w.queueName)
			if err != nil {
				if !errors.Is(err, ErrNoJobs) {
					w.logger.Warn("dequeue failed", zap.String("worker", w.ID), zap.Error(err))
				}
				select {
				case <-w.stopChan:
					return
				case <-time.After(w.interval):
				}
				continue
			}

			w.processJob(ctx, job)
		}
	}
}

// processJob handles a single job execution
func (w *Worker) processJob(ctx context.Context, job *Job) {
	start := time.Now()

	handler, err := w.handlers.Get(job.Type)
	if err != nil {
		w.logger.Error("no handler for job type",
			zap.String("worker", w.ID),
			zap.String("type", job.Type),
		)
		if failErr := w.queue.Fail(ctx, job.ID, err.Error()); failErr != nil {
			w.logger.Warn("failed to fail job", zap.Stringer("job", job.ID), zap.Error(failErr))
		}
		return
	}

	if err := handler(ctx, job.Payload); err != nil {
		w.handleJobError(ctx, job, err)
		return
	}

	if err := w.queue.Complete(ctx, job.ID); err != nil {
		w.logger.Warn("failed to complete job", zap.Stringer("job", job.ID), zap.Error(err))
		return
	}

	w.logger.Info("job completed",
		zap.String("worker", w.ID),
		zap.Stringer("job", job.ID),
		zap.String("type", job.Type),
		zap.Duration("duration", time.Since(start)),
	)
}

// handleJobError retries the job if attempts remain, otherwise fails it.
func (w *Worker) handleJobError(ctx context.Context, job *Job, err error) {
	w.logger.Warn("job failed",
		zap.String("worker", w.ID),
		zap.Stringer("job", job.ID),
		zap.String("type", job.Type),
		zap.Int("attempt", job.Attempts),
		zap.Int("max_attempts", job.MaxAttempts),
		zap.Error(err),
	)

	if job.IsRetryable() {
		if retryErr := w.queue.Retry(ctx, job.ID); retryErr != nil {
			w.logger.Warn("failed to schedule retry", zap.Stringer("job", job.ID), zap.Error(retryErr))
			if failErr := w.queue.Fail(ctx, job.ID, err.Error()); failErr != nil {
				w.logger.Warn("failed to fail job", zap.Stringer("job", job.ID), zap.Error(failErr))
			}
		}
		return
	}

	if failErr := w.queue.Fail(ctx, job.ID, err.Error()); failErr != nil {
		w.logger.Warn("failed to fail job", zap.Stringer("job", job.ID), zap.Error(failErr))
	}
}

// HandlerRegistry manages job type handlers
type HandlerRegistry struct {
	handlers map[string]Handler
	mu       sync.RWMutex
}

// NewHandlerRegistry creates a new handler registry
func NewHandlerRegistry() *HandlerRegistry {
	return &HandlerRegistry{
		handlers: make(map[string]Handler),
	}
}

// Register adds a handler for a job type
func (r *HandlerRegistry) Register(jobType string, handler Handler) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.handlers[jobType] = handler
}

// Get retrieves a handler for a job type
func (r *HandlerRegistry) Get(jobType string) (Handler, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	handler, ok := r.handlers[jobType]
	if !ok {
		return nil, fmt.Errorf("no handler registered for job type: %s", jobType)
	}
	return handler, nil
}
