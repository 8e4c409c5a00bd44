package runner

import (
	"database/sql"
	"time"

	"github.com/chuangyeshuo/vanadev/errors"
)

// HistoryStore persists run results for `vanadev db stats` and scheduling
type HistoryStore struct {
	db *sql.DB
}

// NewHistoryStore creates a run history store
func NewHistoryStore(db *sql.DB) *HistoryStore {
	return &HistoryStore{db: db}
}

// Record writes one environment result and its command outcomes
func (s *HistoryStore) Record(result *EnvResult, platform string) error {
	tx, err := s.db.Begin()
	if err != nil {
		return errors.Wrap(err, "begin run history tx")
	}

	now := time.Now()
	res, err := tx.Exec(`
		INSERT INTO runs (env_name, status, platform, started_at, finished_at, duration_ms)
		VALUES (?, ?, ?, ?, ?, ?)
	`,
		result.Name,
		string(result.Status),
		platform,
		now.Add(-result.Duration),
		now,
		result.Duration.Milliseconds(),
	)
	if err != nil {
		tx.Rollback()
		return errors.Wrap(err, "insert run")
	}

	runID, err := res.LastInsertId()
	if err != nil {
		tx.Rollback()
		return errors.Wrap(err, "run id")
	}

	for _, cmd := range result.Commands {
		if _, err := tx.Exec(`
			INSERT INTO run_commands (run_id, command, exit_code, output, duration_ms)
			VALUES (?, ?, ?, ?, ?)
		`,
			runID,
			cmd.Line,
			cmd.ExitCode,
			sql.NullString{String: cmd.Output, Valid: cmd.Output != ""},
			cmd.Duration.Milliseconds(),
		); err != nil {
			tx.Rollback()
			return errors.Wrap(err, "insert run command")
		}
	}

	return errors.Wrap(tx.Commit(), "commit run history")
}

// RunRow is one recorded run for listings
type RunRow struct {
	ID         int64
	EnvName    string
	Status     Status
	Platform   string
	StartedAt  time.Time
	DurationMS int64
}

// Recent returns the most recent runs, newest first
func (s *HistoryStore) Recent(limit int) ([]RunRow, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := s.db.Query(`
		SELECT id, env_name, status, platform, started_at, duration_ms
		FROM runs ORDER BY started_at DESC, id DESC LIMIT ?
	`, limit)
	if err != nil {
		return nil, errors.Wrap(err, "query recent runs")
	}
	defer rows.Close()

	var out []RunRow
	for rows.Next() {
		var row RunRow
		var status string
		if err := rows.Scan(&row.ID, &row.EnvName, &status, &row.Platform, &row.StartedAt, &row.DurationMS); err != nil {
			return nil, errors.Wrap(err, "scan run row")
		}
		row.Status = Status(status)
		out = append(out, row)
	}
	return out, rows.Err()
}
