package schedule

import (
	"context"
	"encoding/json"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/chuangyeshuo/vanadev/pulse/async"
)

// TickerConfig contains configuration for the schedule ticker
type TickerConfig struct {
	// Interval is how often due schedules are checked
	Interval time.Duration
	// ManifestPath is the manifest scheduled runs execute against
	ManifestPath string
	// HandlerName names the job handler enqueued for due schedules
	HandlerName string
}

// DefaultTickerConfig returns sensible defaults
func DefaultTickerConfig(manifestPath string) TickerConfig {
	return TickerConfig{
		Interval:     10 * time.Second,
		ManifestPath: manifestPath,
		HandlerName:  "runner.test-env",
	}
}

// Ticker periodically checks for due scheduled runs and enqueues them as
// background jobs.
type Ticker struct {
	store  *Store
	queue  *async.Queue
	config TickerConfig
	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
	logger *zap.SugaredLogger

	// now is injectable for tests
	now func() time.Time
}

// NewTicker creates a schedule ticker
func NewTicker(ctx context.Context, store *Store, queue *async.Queue, cfg TickerConfig, logger *zap.SugaredLogger) *Ticker {
	if cfg.Interval <= 0 {
		cfg.Interval = 10 * time.Second
	}
	tickerCtx, cancel := context.WithCancel(ctx)

	return &Ticker{
		store:  store,
		queue:  queue,
		config: cfg,
		ctx:    tickerCtx,
		cancel: cancel,
		logger: logger.Named("pulse.ticker"),
		now:    time.Now,
	}
}

// Start begins the ticker loop
func (t *Ticker) Start() {
	t.wg.Add(1)
	go t.run()
	t.logger.Infow("Schedule ticker started",
		"interval", t.config.Interval,
	)
}

// Stop gracefully stops the ticker
func (t *Ticker) Stop() {
	t.cancel()
	t.wg.Wait()
	t.logger.Infow("Schedule ticker stopped")
}

func (t *Ticker) run() {
	defer t.wg.Done()

	ticker := time.NewTicker(t.config.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-t.ctx.Done():
			return
		case <-ticker.C:
			if err := t.Tick(); err != nil {
				t.logger.Warnw("Schedule tick failed",
					"error", err,
				)
			}
		}
	}
}

// Tick enqueues every due schedule once and advances its next run time.
// Exported so tests and the CLI can drive the ticker synchronously.
func (t *Ticker) Tick() error {
	now := t.now()
	due, err := t.store.Due(now)
	if err != nil {
		return err
	}

	for _, run := range due {
		if err := t.enqueue(run, now); err != nil {
			t.logger.Warnw("Failed to enqueue scheduled run",
				"schedule_id", run.ID,
				"error", err,
			)
			continue
		}
		run.MarkRun(now)
		if err := t.store.Update(run); err != nil {
			return err
		}
		t.logger.Infow("Scheduled run enqueued",
			"schedule_id", run.ID,
			"envs", strings.Join(run.Envs, ","),
			"next_run", run.NextRunAt.Format(time.RFC3339),
		)
	}
	return nil
}

func (t *Ticker) enqueue(run *ScheduledRun, now time.Time) error {
	payload, err := json.Marshal(struct {
		ManifestPath string   `json:"manifest_path"`
		Envs         []string `json:"envs,omitempty"`
	}{
		ManifestPath: t.config.ManifestPath,
		Envs:         run.Envs,
	})
	if err != nil {
		return err
	}

	job, err := async.NewJob(t.config.HandlerName, "schedule:"+run.ID, payload, len(run.Envs))
	if err != nil {
		return err
	}
	return t.queue.Enqueue(job)
}
