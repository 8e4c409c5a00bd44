package schedule

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/chuangyeshuo/vanadev/errors"
	vanatesting "github.com/chuangyeshuo/vanadev/internal/testing"
	"github.com/chuangyeshuo/vanadev/pulse/async"
)

func TestNewScheduledRun(t *testing.T) {
	run, err := NewScheduledRun([]string{"py310"}, time.Hour)
	if err != nil {
		t.Fatalf("NewScheduledRun() failed: %v", err)
	}
	if run.ID == "" || !run.Enabled {
		t.Errorf("run = %+v", run)
	}
	if !run.NextRunAt.After(time.Now()) {
		t.Error("next run should be in the future")
	}

	if _, err := NewScheduledRun(nil, time.Second); err == nil {
		t.Error("sub-minute interval should be rejected")
	}
}

func TestStoreCRUD(t *testing.T) {
	db := vanatesting.CreateMigratedTestDB(t)
	store := NewStore(db)

	run, _ := NewScheduledRun([]string{"py310", "mac"}, 24*time.Hour)
	if err := store.Create(run); err != nil {
		t.Fatalf("Create() failed: %v", err)
	}

	got, err := store.Get(run.ID)
	if err != nil {
		t.Fatalf("Get() failed: %v", err)
	}
	if len(got.Envs) != 2 || got.Envs[0] != "py310" {
		t.Errorf("envs = %v", got.Envs)
	}
	if got.Interval != 24*time.Hour {
		t.Errorf("interval = %s", got.Interval)
	}
	if got.LastRunAt != nil {
		t.Error("new schedule has no last run")
	}

	now := time.Now()
	run.MarkRun(now)
	run.Enabled = false
	if err := store.Update(run); err != nil {
		t.Fatalf("Update() failed: %v", err)
	}
	got, _ = store.Get(run.ID)
	if got.Enabled || got.LastRunAt == nil {
		t.Errorf("got %+v", got)
	}

	if err := store.Delete(run.ID); err != nil {
		t.Fatalf("Delete() failed: %v", err)
	}
	if _, err := store.Get(run.ID); !errors.Is(err, errors.ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestStoreEmptyEnvsMeansFullEnvlist(t *testing.T) {
	db := vanatesting.CreateMigratedTestDB(t)
	store := NewStore(db)

	run, _ := NewScheduledRun(nil, time.Hour)
	if err := store.Create(run); err != nil {
		t.Fatalf("Create() failed: %v", err)
	}
	got, err := store.Get(run.ID)
	if err != nil {
		t.Fatalf("Get() failed: %v", err)
	}
	if got.Envs != nil {
		t.Errorf("envs = %v, want nil", got.Envs)
	}
}

func TestStoreDue(t *testing.T) {
	db := vanatesting.CreateMigratedTestDB(t)
	store := NewStore(db)

	due, _ := NewScheduledRun([]string{"py310"}, time.Hour)
	due.NextRunAt = time.Now().Add(-time.Minute)

	notYet, _ := NewScheduledRun([]string{"mac"}, time.Hour)

	disabled, _ := NewScheduledRun(nil, time.Hour)
	disabled.NextRunAt = time.Now().Add(-time.Minute)
	disabled.Enabled = false

	for _, run := range []*ScheduledRun{due, notYet, disabled} {
		if err := store.Create(run); err != nil {
			t.Fatalf("Create() failed: %v", err)
		}
	}

	got, err := store.Due(time.Now())
	if err != nil {
		t.Fatalf("Due() failed: %v", err)
	}
	if len(got) != 1 || got[0].ID != due.ID {
		t.Errorf("Due() = %v", got)
	}
}

func TestTickerEnqueuesDueRuns(t *testing.T) {
	db := vanatesting.CreateMigratedTestDB(t)
	store := NewStore(db)
	queue := async.NewQueue(db)

	run, _ := NewScheduledRun([]string{"py310"}, time.Hour)
	run.NextRunAt = time.Now().Add(-time.Minute)
	if err := store.Create(run); err != nil {
		t.Fatalf("Create() failed: %v", err)
	}

	ticker := NewTicker(context.Background(), store, queue,
		DefaultTickerConfig("/repo/vanadev.toml"), zap.NewNop().Sugar())

	if err := ticker.Tick(); err != nil {
		t.Fatalf("Tick() failed: %v", err)
	}

	jobs, err := queue.List(nil, 10)
	if err != nil {
		t.Fatalf("List() failed: %v", err)
	}
	if len(jobs) != 1 {
		t.Fatalf("expected 1 enqueued job, got %d", len(jobs))
	}
	job := jobs[0]
	if job.HandlerName != "runner.test-env" {
		t.Errorf("handler = %q", job.HandlerName)
	}
	if job.Source != "schedule:"+run.ID {
		t.Errorf("source = %q", job.Source)
	}
	var payload struct {
		ManifestPath string   `json:"manifest_path"`
		Envs         []string `json:"envs"`
	}
	if err := json.Unmarshal(job.Payload, &payload); err != nil {
		t.Fatalf("decode payload: %v", err)
	}
	if payload.ManifestPath != "/repo/vanadev.toml" || len(payload.Envs) != 1 {
		t.Errorf("payload = %+v", payload)
	}

	// The schedule advanced and is no longer due
	updated, _ := store.Get(run.ID)
	if updated.LastRunAt == nil || !updated.NextRunAt.After(time.Now()) {
		t.Errorf("schedule not advanced: %+v", updated)
	}

	// A second tick enqueues nothing
	if err := ticker.Tick(); err != nil {
		t.Fatalf("second Tick() failed: %v", err)
	}
	jobs, _ = queue.List(nil, 10)
	if len(jobs) != 1 {
		t.Errorf("second tick enqueued extra jobs: %d", len(jobs))
	}
}
