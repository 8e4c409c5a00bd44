package conf

// Config represents the global vanadev configuration.
// Project-level environment declarations live in vanadev.toml and are
// handled by the envfile package; this config covers tool behavior.
type Config struct {
	Database Database `mapstructure:"database"`
	Runner   Runner   `mapstructure:"runner"`
	Hooks    Hooks    `mapstructure:"hooks"`
	Notebook Notebook `mapstructure:"notebook"`
	Pulse    Pulse    `mapstructure:"pulse"`
}

// Database configures the SQLite state database
type Database struct {
	Path string `mapstructure:"path"` // Relative paths resolve against the project root
}

// Runner configures test environment execution
type Runner struct {
	Parallel              int  `mapstructure:"parallel"`                // Max environments run concurrently (1 = sequential)
	CommandTimeoutSeconds int  `mapstructure:"command_timeout_seconds"` // Per-command timeout (0 = no timeout)
	KeepGoing             bool `mapstructure:"keep_going"`              // Continue remaining envs after a failure

	// Watch mode
	WatchDebounceMS    int     `mapstructure:"watch_debounce_ms"`     // Quiet period after a file event
	WatchRunsPerMinute float64 `mapstructure:"watch_runs_per_minute"` // Rate limit for watch-triggered re-runs
}

// Hooks configures pre-commit hook management
type Hooks struct {
	ManifestPath string `mapstructure:"manifest_path"` // Path to .vanadev-hooks.yaml (relative to repo root)
	FailFast     bool   `mapstructure:"fail_fast"`     // Stop at the first failing hook
}

// Notebook configures PR-checklist notebook handling
type Notebook struct {
	Globs []string `mapstructure:"globs"` // Patterns for sample notebooks (default: notebooks/**/*.ipynb)
}

// Pulse configures the background job system
type Pulse struct {
	Workers               int `mapstructure:"workers"`                 // Number of concurrent job workers (default: 1)
	PollIntervalSeconds   int `mapstructure:"poll_interval_seconds"`   // How often workers check for queued jobs
	TickerIntervalSeconds int `mapstructure:"ticker_interval_seconds"` // How often to check for scheduled runs (default: 1)
}
