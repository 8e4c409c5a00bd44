package async

import (
	"testing"
	"time"

	"github.com/chuangyeshuo/vanadev/errors"
	vanatesting "github.com/chuangyeshuo/vanadev/internal/testing"
)

func TestQueueEnqueueDequeue(t *testing.T) {
	db := vanatesting.CreateMigratedTestDB(t)
	queue := NewQueue(db)

	first, _ := NewJob("env.provision", "cli", nil, 0)
	second, _ := NewJob("runner.test-env", "cli", nil, 0)
	second.CreatedAt = first.CreatedAt.Add(time.Second)
	for _, job := range []*Job{first, second} {
		if err := queue.Enqueue(job); err != nil {
			t.Fatalf("Enqueue() failed: %v", err)
		}
	}

	// FIFO: the oldest job is handed out first, marked running
	got, err := queue.Dequeue()
	if err != nil {
		t.Fatalf("Dequeue() failed: %v", err)
	}
	if got.ID != first.ID {
		t.Errorf("dequeued %s, want %s", got.ID, first.ID)
	}
	if got.Status != JobStatusRunning {
		t.Errorf("dequeued status = %s, want running", got.Status)
	}

	got, err = queue.Dequeue()
	if err != nil {
		t.Fatalf("second Dequeue() failed: %v", err)
	}
	if got.ID != second.ID {
		t.Errorf("dequeued %s, want %s", got.ID, second.ID)
	}

	// Queue drained
	got, err = queue.Dequeue()
	if err != nil || got != nil {
		t.Errorf("drained queue: job=%v err=%v", got, err)
	}
}

func TestQueueCancel(t *testing.T) {
	db := vanatesting.CreateMigratedTestDB(t)
	queue := NewQueue(db)

	job, _ := NewJob("runner.test-env", "cli", nil, 0)
	if err := queue.Enqueue(job); err != nil {
		t.Fatalf("Enqueue() failed: %v", err)
	}

	if err := queue.CancelJob(job.ID, "user requested"); err != nil {
		t.Fatalf("CancelJob() failed: %v", err)
	}
	got, err := queue.GetJob(job.ID)
	if err != nil {
		t.Fatalf("GetJob() failed: %v", err)
	}
	if got.Status != JobStatusCancelled || got.Error != "user requested" {
		t.Errorf("got %+v", got)
	}

	// Cancelling a terminal job is a conflict
	if err := queue.CancelJob(job.ID, "again"); !errors.Is(err, errors.ErrConflict) {
		t.Errorf("expected ErrConflict, got %v", err)
	}

	// Cancelled jobs are never dequeued
	if job, err := queue.Dequeue(); err != nil || job != nil {
		t.Errorf("cancelled job dequeued: job=%v err=%v", job, err)
	}
}
