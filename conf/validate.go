package conf

import "github.com/chuangyeshuo/vanadev/errors"

// Validate checks that the configuration is valid
func (c *Config) Validate() error {
	// Runner parallel: 0 = use default (1), negative = invalid
	if c.Runner.Parallel < 0 {
		return errors.Newf("runner.parallel must be >= 0, got %d", c.Runner.Parallel)
	}

	// Command timeout: 0 = no timeout, negative = invalid
	if c.Runner.CommandTimeoutSeconds < 0 {
		return errors.Newf("runner.command_timeout_seconds must be >= 0, got %d", c.Runner.CommandTimeoutSeconds)
	}

	if c.Runner.WatchDebounceMS < 0 {
		return errors.Newf("runner.watch_debounce_ms must be >= 0, got %d", c.Runner.WatchDebounceMS)
	}
	if c.Runner.WatchRunsPerMinute < 0 {
		return errors.Newf("runner.watch_runs_per_minute must be >= 0, got %f", c.Runner.WatchRunsPerMinute)
	}

	// Pulse workers: 0 = no background workers, negative = invalid
	if c.Pulse.Workers < 0 {
		return errors.Newf("pulse.workers must be >= 0, got %d", c.Pulse.Workers)
	}
	if c.Pulse.PollIntervalSeconds < 0 {
		return errors.Newf("pulse.poll_interval_seconds must be >= 0, got %d", c.Pulse.PollIntervalSeconds)
	}
	if c.Pulse.TickerIntervalSeconds < 0 {
		return errors.Newf("pulse.ticker_interval_seconds must be >= 0, got %d", c.Pulse.TickerIntervalSeconds)
	}

	if c.Hooks.ManifestPath == "" {
		return errors.New("hooks.manifest_path cannot be empty")
	}

	return nil
}
