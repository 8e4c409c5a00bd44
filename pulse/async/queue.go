package async

import (
	"database/sql"
	"sync"

	"github.com/chuangyeshuo/vanadev/errors"
)

// MaxQueuedJobs caps the backlog so a runaway producer cannot fill the
// database.
const MaxQueuedJobs = 1000

// Queue is the job queue: enqueue, dequeue-and-mark-running, and state
// updates, all persisted through the store.
type Queue struct {
	store *Store
	mu    sync.Mutex
}

// NewQueue creates a new job queue
func NewQueue(db *sql.DB) *Queue {
	return &Queue{store: NewStore(db)}
}

// Store exposes the underlying store for read-only listings
func (q *Queue) Store() *Store {
	return q.store
}

// Enqueue adds a new job to the queue
func (q *Queue) Enqueue(job *Job) error {
	q.mu.Lock()
	defer q.mu.Unlock()

	counts, err := q.store.CountByStatus()
	if err != nil {
		return err
	}
	if counts[JobStatusQueued] >= MaxQueuedJobs {
		return errors.Newf("job queue full (%d queued)", counts[JobStatusQueued])
	}

	if err := q.store.CreateJob(job); err != nil {
		return errors.WithDetailf(err, "handler: %s, source: %s", job.HandlerName, job.Source)
	}
	return nil
}

// Dequeue gets the oldest queued job and marks it running.
// Returns nil when no job is available.
func (q *Queue) Dequeue() (*Job, error) {
	q.mu.Lock()
	defer q.mu.Unlock()

	job, err := q.store.OldestQueued()
	if err != nil || job == nil {
		return nil, err
	}

	job.Start()
	if err := q.store.UpdateJob(job); err != nil {
		return nil, errors.Wrapf(err, "mark job %s running", job.ID)
	}
	return job, nil
}

// GetJob retrieves a job by ID
func (q *Queue) GetJob(id string) (*Job, error) {
	return q.store.GetJob(id)
}

// UpdateJob persists a job's state
func (q *Queue) UpdateJob(job *Job) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.store.UpdateJob(job)
}

// CancelJob cancels a queued or running job. Cancelling a terminal job is
// an error.
func (q *Queue) CancelJob(id, reason string) error {
	q.mu.Lock()
	defer q.mu.Unlock()

	job, err := q.store.GetJob(id)
	if err != nil {
		return err
	}
	if job.Status.Terminal() {
		return errors.Wrapf(errors.ErrConflict, "job %s already %s", id, job.Status)
	}

	job.Cancel(reason)
	return q.store.UpdateJob(job)
}

// List returns jobs newest first, optionally filtered by status
func (q *Queue) List(status *JobStatus, limit int) ([]*Job, error) {
	return q.store.ListJobs(status, limit)
}
