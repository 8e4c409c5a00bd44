package async

import (
	"database/sql"
	"encoding/json"

	"github.com/chuangyeshuo/vanadev/errors"
)

// Store handles persistence of background jobs
type Store struct {
	db *sql.DB
}

// NewStore creates a new job store
func NewStore(db *sql.DB) *Store {
	return &Store{db: db}
}

const jobColumns = `
	id, handler_name, source, status,
	progress_current, progress_total,
	payload, error, retry_count,
	created_at, started_at, completed_at, updated_at
`

// CreateJob inserts a new job into the database
func (s *Store) CreateJob(job *Job) error {
	query := `
		INSERT INTO jobs (` + jobColumns + `)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	handlerName := sql.NullString{String: job.HandlerName, Valid: job.HandlerName != ""}
	payload := sql.NullString{String: string(job.Payload), Valid: len(job.Payload) > 0}
	errMsg := sql.NullString{String: job.Error, Valid: job.Error != ""}

	_, err := s.db.Exec(query,
		job.ID,
		handlerName,
		job.Source,
		job.Status,
		job.Progress.Current,
		job.Progress.Total,
		payload,
		errMsg,
		job.RetryCount,
		job.CreatedAt,
		job.StartedAt,
		job.CompletedAt,
		job.UpdatedAt,
	)
	return errors.Wrap(err, "create job")
}

// GetJob retrieves a job by ID
func (s *Store) GetJob(id string) (*Job, error) {
	query := `SELECT ` + jobColumns + ` FROM jobs WHERE id = ?`

	job, err := scanJob(s.db.QueryRow(query, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, errors.Wrapf(errors.ErrNotFound, "job %s", id)
	}
	if err != nil {
		return nil, errors.Wrap(err, "get job")
	}
	return job, nil
}

// UpdateJob updates an existing job in the database
func (s *Store) UpdateJob(job *Job) error {
	query := `
		UPDATE jobs
		SET handler_name = ?,
		    payload = ?,
		    status = ?,
		    progress_current = ?,
		    progress_total = ?,
		    error = ?,
		    retry_count = ?,
		    started_at = ?,
		    completed_at = ?,
		    updated_at = ?
		WHERE id = ?
	`

	handlerName := sql.NullString{String: job.HandlerName, Valid: job.HandlerName != ""}
	payload := sql.NullString{String: string(job.Payload), Valid: len(job.Payload) > 0}
	errMsg := sql.NullString{String: job.Error, Valid: job.Error != ""}

	res, err := s.db.Exec(query,
		handlerName,
		payload,
		job.Status,
		job.Progress.Current,
		job.Progress.Total,
		errMsg,
		job.RetryCount,
		job.StartedAt,
		job.CompletedAt,
		job.UpdatedAt,
		job.ID,
	)
	if err != nil {
		return errors.Wrap(err, "update job")
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return errors.Wrapf(errors.ErrNotFound, "job %s", job.ID)
	}
	return nil
}

// ListJobs returns jobs newest first, optionally filtered by status
func (s *Store) ListJobs(status *JobStatus, limit int) ([]*Job, error) {
	if limit <= 0 {
		limit = 50
	}

	var rows *sql.Rows
	var err error
	base := `SELECT ` + jobColumns + ` FROM jobs`
	if status != nil {
		rows, err = s.db.Query(base+` WHERE status = ? ORDER BY created_at DESC LIMIT ?`, *status, limit)
	} else {
		rows, err = s.db.Query(base+` ORDER BY created_at DESC LIMIT ?`, limit)
	}
	if err != nil {
		return nil, errors.Wrap(err, "list jobs")
	}
	defer rows.Close()

	var jobs []*Job
	for rows.Next() {
		job, err := scanJob(rows)
		if err != nil {
			return nil, errors.Wrap(err, "scan job")
		}
		jobs = append(jobs, job)
	}
	return jobs, rows.Err()
}

// OldestQueued returns the oldest queued job, or nil when the queue is empty
func (s *Store) OldestQueued() (*Job, error) {
	query := `SELECT ` + jobColumns + ` FROM jobs WHERE status = ? ORDER BY created_at ASC LIMIT 1`

	job, err := scanJob(s.db.QueryRow(query, JobStatusQueued))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, errors.Wrap(err, "oldest queued job")
	}
	return job, nil
}

// DeleteJob removes a job by ID
func (s *Store) DeleteJob(id string) error {
	res, err := s.db.Exec(`DELETE FROM jobs WHERE id = ?`, id)
	if err != nil {
		return errors.Wrap(err, "delete job")
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return errors.Wrapf(errors.ErrNotFound, "job %s", id)
	}
	return nil
}

// CountByStatus returns job counts grouped by status
func (s *Store) CountByStatus() (map[JobStatus]int, error) {
	rows, err := s.db.Query(`SELECT status, COUNT(*) FROM jobs GROUP BY status`)
	if err != nil {
		return nil, errors.Wrap(err, "count jobs")
	}
	defer rows.Close()

	counts := make(map[JobStatus]int)
	for rows.Next() {
		var status string
		var count int
		if err := rows.Scan(&status, &count); err != nil {
			return nil, errors.Wrap(err, "scan job count")
		}
		counts[JobStatus(status)] = count
	}
	return counts, rows.Err()
}

// rowScanner covers *sql.Row and *sql.Rows
type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanJob(row rowScanner) (*Job, error) {
	var job Job
	var handlerName, payload, errMsg sql.NullString
	var startedAt, completedAt sql.NullTime

	err := row.Scan(
		&job.ID,
		&handlerName,
		&job.Source,
		&job.Status,
		&job.Progress.Current,
		&job.Progress.Total,
		&payload,
		&errMsg,
		&job.RetryCount,
		&job.CreatedAt,
		&startedAt,
		&completedAt,
		&job.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	job.HandlerName = handlerName.String
	if payload.Valid {
		job.Payload = json.RawMessage(payload.String)
	}
	job.Error = errMsg.String
	if startedAt.Valid {
		t := startedAt.Time
		job.StartedAt = &t
	}
	if completedAt.Valid {
		t := completedAt.Time
		job.CompletedAt = &t
	}
	return &job, nil
}
