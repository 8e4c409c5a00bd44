package async

import (
	"context"
	"database/sql"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/chuangyeshuo/vanadev/errors"
)

const (
	// MaxRetries is the maximum number of retry attempts for failed jobs
	MaxRetries = 2

	// maxOrphanRecovery limits how many orphaned jobs are re-queued on
	// startup after a crash
	maxOrphanRecovery = 100

	// stopTimeout bounds how long Stop waits for running jobs to exit
	stopTimeout = 30 * time.Second
)

// WorkerPoolConfig contains configuration for the worker pool
type WorkerPoolConfig struct {
	Workers      int           `json:"workers"`
	PollInterval time.Duration `json:"poll_interval"`
}

// DefaultWorkerPoolConfig returns sensible defaults
func DefaultWorkerPoolConfig() WorkerPoolConfig {
	return WorkerPoolConfig{
		Workers:      1,
		PollInterval: 2 * time.Second,
	}
}

// WorkerPool processes queued jobs through registered handlers.
// Workers poll the queue, dispatch by handler name, and retry failed jobs
// up to MaxRetries before marking them failed for good.
type WorkerPool struct {
	queue    *Queue
	registry *HandlerRegistry
	config   WorkerPoolConfig
	ctx      context.Context
	cancel   context.CancelFunc
	wg       sync.WaitGroup
	logger   *zap.SugaredLogger
}

// NewWorkerPool creates a worker pool. Callers must register handlers on
// the registry before calling Start.
func NewWorkerPool(ctx context.Context, db *sql.DB, registry *HandlerRegistry, cfg WorkerPoolConfig, logger *zap.SugaredLogger) *WorkerPool {
	if cfg.Workers < 1 {
		cfg.Workers = 1
	}
	if cfg.PollInterval <= 0 {
		cfg.PollInterval = DefaultWorkerPoolConfig().PollInterval
	}
	workerCtx, cancel := context.WithCancel(ctx)

	return &WorkerPool{
		queue:    NewQueue(db),
		registry: registry,
		config:   cfg,
		ctx:      workerCtx,
		cancel:   cancel,
		logger:   logger.Named("pulse.worker"),
	}
}

// Queue returns the pool's job queue for enqueueing
func (wp *WorkerPool) Queue() *Queue {
	return wp.queue
}

// Start recovers orphaned jobs and begins processing
func (wp *WorkerPool) Start() {
	if err := wp.recoverOrphanedJobs(); err != nil {
		wp.logger.Warnw("Failed to recover orphaned jobs",
			"error", err,
		)
	}

	for i := 0; i < wp.config.Workers; i++ {
		wp.wg.Add(1)
		go wp.worker(i)
	}
	wp.logger.Infow("Worker pool started",
		"workers", wp.config.Workers,
		"poll_interval", wp.config.PollInterval,
	)
}

// recoverOrphanedJobs re-queues jobs stuck in "running" from an ungraceful
// shutdown
func (wp *WorkerPool) recoverOrphanedJobs() error {
	running := JobStatusRunning
	orphaned, err := wp.queue.store.ListJobs(&running, maxOrphanRecovery)
	if err != nil {
		return errors.Wrap(err, "list running jobs")
	}
	if len(orphaned) == 0 {
		return nil
	}

	wp.logger.Warnw("Recovering orphaned jobs from previous shutdown",
		"count", len(orphaned),
	)
	for _, job := range orphaned {
		job.Status = JobStatusQueued
		job.Error = ""
		job.UpdatedAt = time.Now()
		if err := wp.queue.UpdateJob(job); err != nil {
			wp.logger.Warnw("Failed to re-queue orphaned job",
				"job_id", job.ID,
				"error", err,
			)
		}
	}
	return nil
}

// Stop gracefully stops the pool, waiting for running jobs up to a timeout
func (wp *WorkerPool) Stop() {
	wp.cancel()

	done := make(chan struct{})
	go func() {
		wp.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		wp.logger.Infow("Worker pool stopped")
	case <-time.After(stopTimeout):
		wp.logger.Warnw("Worker pool stop timed out",
			"timeout", stopTimeout,
		)
	}
}

// worker polls the queue and processes jobs until the context is cancelled
func (wp *WorkerPool) worker(id int) {
	defer wp.wg.Done()

	ticker := time.NewTicker(wp.config.PollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-wp.ctx.Done():
			return
		case <-ticker.C:
			if err := wp.processNextJob(); err != nil {
				select {
				case <-wp.ctx.Done():
					return
				default:
				}
				if errors.Is(err, sql.ErrConnDone) {
					// Database closed during shutdown
					return
				}
				wp.logger.Errorw("Worker error processing job",
					"worker_id", id,
					"error", err,
				)
			}
		}
	}
}

// processNextJob dequeues and executes one job, if available
func (wp *WorkerPool) processNextJob() error {
	job, err := wp.queue.Dequeue()
	if err != nil {
		return errors.Wrap(err, "dequeue job")
	}
	if job == nil {
		return nil
	}

	handler := wp.registry.Get(job.HandlerName)
	if handler == nil {
		job.Fail(errors.Newf("no handler registered for %q", job.HandlerName))
		return wp.queue.UpdateJob(job)
	}

	wp.logger.Infow("Job started",
		"job_id", job.ID,
		"handler", job.HandlerName,
		"source", job.Source,
	)

	execErr := handler.Execute(wp.ctx, job)

	// The job may have been cancelled out from under the handler
	if current, err := wp.queue.GetJob(job.ID); err == nil && current.Status == JobStatusCancelled {
		wp.logger.Infow("Job cancelled during execution",
			"job_id", job.ID,
		)
		return nil
	}

	if execErr != nil {
		if job.RetryCount < MaxRetries && wp.ctx.Err() == nil {
			job.Requeue()
			wp.logger.Warnw("Job failed, re-queued for retry",
				"job_id", job.ID,
				"retry", job.RetryCount,
				"error", execErr,
			)
		} else {
			job.Fail(execErr)
			wp.logger.Errorw("Job failed",
				"job_id", job.ID,
				"retries", job.RetryCount,
				"error", execErr,
			)
		}
		return wp.queue.UpdateJob(job)
	}

	job.Complete()
	wp.logger.Infow("Job completed",
		"job_id", job.ID,
		"handler", job.HandlerName,
		"duration_ms", job.Duration().Milliseconds(),
	)
	return wp.queue.UpdateJob(job)
}
