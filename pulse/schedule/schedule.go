// Package schedule persists recurring matrix runs and enqueues them when
// due. A nightly full-matrix run is one row: envs, interval, next_run_at.
package schedule

import (
	"database/sql"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/chuangyeshuo/vanadev/errors"
)

// ScheduledRun is one recurring run definition
type ScheduledRun struct {
	ID        string
	Envs      []string // empty = full envlist
	Interval  time.Duration
	Enabled   bool
	LastRunAt *time.Time
	NextRunAt time.Time
	CreatedAt time.Time
	UpdatedAt time.Time
}

// NewScheduledRun creates an enabled schedule first due one interval from
// now
func NewScheduledRun(envs []string, interval time.Duration) (*ScheduledRun, error) {
	if interval < time.Minute {
		return nil, errors.Newf("schedule interval %s is below the 1m minimum", interval)
	}
	now := time.Now()
	return &ScheduledRun{
		ID:        uuid.NewString(),
		Envs:      envs,
		Interval:  interval,
		Enabled:   true,
		NextRunAt: now.Add(interval),
		CreatedAt: now,
		UpdatedAt: now,
	}, nil
}

// MarkRun advances the schedule after an enqueue
func (s *ScheduledRun) MarkRun(at time.Time) {
	s.LastRunAt = &at
	s.NextRunAt = at.Add(s.Interval)
	s.UpdatedAt = at
}

// Store handles persistence of scheduled runs
type Store struct {
	db *sql.DB
}

// NewStore creates a new schedule store
func NewStore(db *sql.DB) *Store {
	return &Store{db: db}
}

// Create inserts a scheduled run
func (s *Store) Create(run *ScheduledRun) error {
	_, err := s.db.Exec(`
		INSERT INTO scheduled_runs (
			id, envs, interval_seconds, enabled,
			last_run_at, next_run_at, created_at, updated_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`,
		run.ID,
		strings.Join(run.Envs, ","),
		int64(run.Interval.Seconds()),
		run.Enabled,
		run.LastRunAt,
		run.NextRunAt,
		run.CreatedAt,
		run.UpdatedAt,
	)
	return errors.Wrap(err, "create scheduled run")
}

// Get retrieves a scheduled run by ID
func (s *Store) Get(id string) (*ScheduledRun, error) {
	row := s.db.QueryRow(`
		SELECT id, envs, interval_seconds, enabled,
		       last_run_at, next_run_at, created_at, updated_at
		FROM scheduled_runs WHERE id = ?
	`, id)

	run, err := scanScheduledRun(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, errors.Wrapf(errors.ErrNotFound, "scheduled run %s", id)
	}
	if err != nil {
		return nil, errors.Wrap(err, "get scheduled run")
	}
	return run, nil
}

// Update persists schedule state
func (s *Store) Update(run *ScheduledRun) error {
	res, err := s.db.Exec(`
		UPDATE scheduled_runs
		SET envs = ?, interval_seconds = ?, enabled = ?,
		    last_run_at = ?, next_run_at = ?, updated_at = ?
		WHERE id = ?
	`,
		strings.Join(run.Envs, ","),
		int64(run.Interval.Seconds()),
		run.Enabled,
		run.LastRunAt,
		run.NextRunAt,
		run.UpdatedAt,
		run.ID,
	)
	if err != nil {
		return errors.Wrap(err, "update scheduled run")
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return errors.Wrapf(errors.ErrNotFound, "scheduled run %s", run.ID)
	}
	return nil
}

// Delete removes a scheduled run
func (s *Store) Delete(id string) error {
	res, err := s.db.Exec(`DELETE FROM scheduled_runs WHERE id = ?`, id)
	if err != nil {
		return errors.Wrap(err, "delete scheduled run")
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return errors.Wrapf(errors.ErrNotFound, "scheduled run %s", id)
	}
	return nil
}

// List returns all scheduled runs, soonest next run first
func (s *Store) List() ([]*ScheduledRun, error) {
	rows, err := s.db.Query(`
		SELECT id, envs, interval_seconds, enabled,
		       last_run_at, next_run_at, created_at, updated_at
		FROM scheduled_runs ORDER BY next_run_at ASC
	`)
	if err != nil {
		return nil, errors.Wrap(err, "list scheduled runs")
	}
	defer rows.Close()

	var runs []*ScheduledRun
	for rows.Next() {
		run, err := scanScheduledRun(rows)
		if err != nil {
			return nil, errors.Wrap(err, "scan scheduled run")
		}
		runs = append(runs, run)
	}
	return runs, rows.Err()
}

// Due returns the enabled schedules whose next run is at or before now
func (s *Store) Due(now time.Time) ([]*ScheduledRun, error) {
	rows, err := s.db.Query(`
		SELECT id, envs, interval_seconds, enabled,
		       last_run_at, next_run_at, created_at, updated_at
		FROM scheduled_runs
		WHERE enabled = 1 AND next_run_at <= ?
		ORDER BY next_run_at ASC
	`, now)
	if err != nil {
		return nil, errors.Wrap(err, "query due schedules")
	}
	defer rows.Close()

	var runs []*ScheduledRun
	for rows.Next() {
		run, err := scanScheduledRun(rows)
		if err != nil {
			return nil, errors.Wrap(err, "scan due schedule")
		}
		runs = append(runs, run)
	}
	return runs, rows.Err()
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanScheduledRun(row rowScanner) (*ScheduledRun, error) {
	var run ScheduledRun
	var envs string
	var intervalSeconds int64
	var lastRunAt sql.NullTime

	err := row.Scan(
		&run.ID,
		&envs,
		&intervalSeconds,
		&run.Enabled,
		&lastRunAt,
		&run.NextRunAt,
		&run.CreatedAt,
		&run.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	if envs != "" {
		run.Envs = strings.Split(envs, ",")
	}
	run.Interval = time.Duration(intervalSeconds) * time.Second
	if lastRunAt.Valid {
		t := lastRunAt.Time
		run.LastRunAt = &t
	}
	return &run, nil
}
