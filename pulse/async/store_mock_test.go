package async

import (
	"testing"

	"github.com/DATA-DOG/go-sqlmock"

	"github.com/chuangyeshuo/vanadev/errors"
)

// Driver-level error paths, mocked so they are reachable without
// breaking a real database mid-test.

func TestCreateJobWrapsExecError(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("Failed to create sqlmock: %v", err)
	}
	defer db.Close()

	mock.ExpectExec(`INSERT INTO jobs`).
		WillReturnError(errors.New("disk I/O error"))

	job, err := NewJob("env.provision", "test", nil, 0)
	if err != nil {
		t.Fatalf("NewJob failed: %v", err)
	}

	err = NewStore(db).CreateJob(job)
	if err == nil {
		t.Fatal("Expected error from CreateJob")
	}
	if got := err.Error(); got != "create job: disk I/O error" {
		t.Errorf("Unexpected error message: %q", got)
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("Unfulfilled expectations: %v", err)
	}
}

func TestUpdateJobZeroRowsIsNotFound(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("Failed to create sqlmock: %v", err)
	}
	defer db.Close()

	mock.ExpectExec(`UPDATE jobs`).
		WillReturnResult(sqlmock.NewResult(0, 0))

	job, err := NewJob("env.provision", "test", nil, 0)
	if err != nil {
		t.Fatalf("NewJob failed: %v", err)
	}

	err = NewStore(db).UpdateJob(job)
	if !errors.Is(err, errors.ErrNotFound) {
		t.Errorf("Expected ErrNotFound for vanished job, got %v", err)
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("Unfulfilled expectations: %v", err)
	}
}
