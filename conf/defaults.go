package conf

import (
	"github.com/spf13/viper"
)

// SetDefaults configures default values for all configuration options
func SetDefaults(v *viper.Viper) {
	// Database defaults
	v.SetDefault("database.path", ".vanadev/vanadev.db")

	// Runner defaults
	v.SetDefault("runner.parallel", 1)                 // Sequential by default, like one-shot tox
	v.SetDefault("runner.command_timeout_seconds", 0)  // No per-command timeout unless configured
	v.SetDefault("runner.keep_going", false)
	v.SetDefault("runner.watch_debounce_ms", 500)
	v.SetDefault("runner.watch_runs_per_minute", 6.0) // At most one re-run every 10s

	// Hooks defaults
	v.SetDefault("hooks.manifest_path", ".vanadev-hooks.yaml")
	v.SetDefault("hooks.fail_fast", false)

	// Notebook defaults
	v.SetDefault("notebook.globs", []string{"notebooks/**/*.ipynb"})

	// Pulse (background job infrastructure) defaults
	v.SetDefault("pulse.workers", 1)
	v.SetDefault("pulse.poll_interval_seconds", 5)
	v.SetDefault("pulse.ticker_interval_seconds", 1)
}
