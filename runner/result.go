// Package runner executes a project's declared test environments, the way
// tox runs its envlist: provision the venv, run the env's commands in order,
// report one result per environment.
package runner

import "time"

// Status is the outcome of running one environment
type Status string

const (
	StatusPassed  Status = "passed"
	StatusFailed  Status = "failed"
	StatusSkipped Status = "skipped" // platform-gated env on wrong platform
	StatusError   Status = "error"   // provisioning or infrastructure failure
)

// CommandResult is the outcome of a single command within an environment
type CommandResult struct {
	Line     string        `json:"line"`
	ExitCode int           `json:"exit_code"`
	Output   string        `json:"output,omitempty"`
	Duration time.Duration `json:"duration"`
}

// EnvResult is the outcome of running one environment
type EnvResult struct {
	Name     string          `json:"name"`
	Status   Status          `json:"status"`
	Reason   string          `json:"reason,omitempty"` // populated for skipped/error
	Commands []CommandResult `json:"commands,omitempty"`
	Duration time.Duration   `json:"duration"`
}

// Failed reports whether the result should fail the overall run
func (r *EnvResult) Failed() bool {
	return r.Status == StatusFailed || r.Status == StatusError
}

// Summary aggregates results across environments
type Summary struct {
	Results []*EnvResult
}

// Passed reports whether every non-skipped environment passed
func (s *Summary) Passed() bool {
	for _, r := range s.Results {
		if r.Failed() {
			return false
		}
	}
	return true
}

// Counts returns passed/failed/skipped totals
func (s *Summary) Counts() (passed, failed, skipped int) {
	for _, r := range s.Results {
		switch r.Status {
		case StatusPassed:
			passed++
		case StatusSkipped:
			skipped++
		default:
			failed++
		}
	}
	return
}
