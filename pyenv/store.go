package pyenv

import (
	"database/sql"
	"strings"
	"time"

	"github.com/chuangyeshuo/vanadev/errors"
)

// Record is the persisted state of a provisioned environment
type Record struct {
	Name               string
	Path               string
	Interpreter        string
	InterpreterVersion string
	Extras             []string
	ManifestHash       string
	ProvisionedAt      time.Time
	UpdatedAt          time.Time
}

// Store persists environment provisioning state
type Store struct {
	db *sql.DB
}

// NewStore creates an environment state store
func NewStore(db *sql.DB) *Store {
	return &Store{db: db}
}

// Get retrieves the record for an environment, or ErrNotFound
func (s *Store) Get(name string) (*Record, error) {
	query := `
		SELECT name, path, interpreter, interpreter_version, extras,
		       manifest_hash, provisioned_at, updated_at
		FROM environments WHERE name = ?
	`

	var rec Record
	var extras sql.NullString
	err := s.db.QueryRow(query, name).Scan(
		&rec.Name,
		&rec.Path,
		&rec.Interpreter,
		&rec.InterpreterVersion,
		&extras,
		&rec.ManifestHash,
		&rec.ProvisionedAt,
		&rec.UpdatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, errors.Wrapf(errors.ErrNotFound, "environment %q not provisioned", name)
	}
	if err != nil {
		return nil, errors.Wrap(err, "get environment record")
	}

	if extras.Valid && extras.String != "" {
		rec.Extras = strings.Split(extras.String, ",")
	}
	return &rec, nil
}

// Upsert writes or replaces the record for an environment
func (s *Store) Upsert(rec *Record) error {
	query := `
		INSERT INTO environments (
			name, path, interpreter, interpreter_version, extras,
			manifest_hash, provisioned_at, updated_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(name) DO UPDATE SET
			path = excluded.path,
			interpreter = excluded.interpreter,
			interpreter_version = excluded.interpreter_version,
			extras = excluded.extras,
			manifest_hash = excluded.manifest_hash,
			provisioned_at = excluded.provisioned_at,
			updated_at = excluded.updated_at
	`

	extras := sql.NullString{String: strings.Join(rec.Extras, ","), Valid: len(rec.Extras) > 0}

	_, err := s.db.Exec(query,
		rec.Name,
		rec.Path,
		rec.Interpreter,
		rec.InterpreterVersion,
		extras,
		rec.ManifestHash,
		rec.ProvisionedAt,
		rec.UpdatedAt,
	)
	if err != nil {
		return errors.Wrap(err, "upsert environment record")
	}
	return nil
}

// List returns all provisioned environment records
func (s *Store) List() ([]*Record, error) {
	rows, err := s.db.Query(`
		SELECT name, path, interpreter, interpreter_version, extras,
		       manifest_hash, provisioned_at, updated_at
		FROM environments ORDER BY name
	`)
	if err != nil {
		return nil, errors.Wrap(err, "list environment records")
	}
	defer rows.Close()

	var records []*Record
	for rows.Next() {
		var rec Record
		var extras sql.NullString
		if err := rows.Scan(
			&rec.Name,
			&rec.Path,
			&rec.Interpreter,
			&rec.InterpreterVersion,
			&extras,
			&rec.ManifestHash,
			&rec.ProvisionedAt,
			&rec.UpdatedAt,
		); err != nil {
			return nil, errors.Wrap(err, "scan environment record")
		}
		if extras.Valid && extras.String != "" {
			rec.Extras = strings.Split(extras.String, ",")
		}
		records = append(records, &rec)
	}
	return records, rows.Err()
}

// Delete removes the record for an environment
func (s *Store) Delete(name string) error {
	_, err := s.db.Exec("DELETE FROM environments WHERE name = ?", name)
	if err != nil {
		return errors.Wrap(err, "delete environment record")
	}
	return nil
}
