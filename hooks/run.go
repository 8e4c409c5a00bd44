package hooks

import (
	"context"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"time"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/kballard/go-shellquote"
	"go.uber.org/zap"

	"github.com/chuangyeshuo/vanadev/errors"
)

// execHook runs a hook command and returns combined output and exit code.
// Injectable for tests.
type execHook func(ctx context.Context, dir string, argv []string) (output string, exitCode int, err error)

func realExecHook(ctx context.Context, dir string, argv []string) (string, int, error) {
	cmd := exec.CommandContext(ctx, argv[0], argv[1:]...)
	cmd.Dir = dir
	cmd.Env = os.Environ()

	out, err := cmd.CombinedOutput()
	if err != nil {
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			return string(out), exitErr.ExitCode(), nil
		}
		return string(out), -1, err
	}
	return string(out), 0, nil
}

// HookResult is the outcome of one hook execution
type HookResult struct {
	ID       string
	Passed   bool
	Skipped  bool // no files matched
	ExitCode int
	Output   string
	Files    int
	Duration time.Duration
}

// Runner executes manifest hooks against a file set
type Runner struct {
	manifest *Manifest
	repoRoot string
	failFast bool
	exec     execHook
	logger   *zap.SugaredLogger

	// stagedFiles is injectable for tests; defaults to StagedFiles
	stagedFiles func(repoRoot string) ([]string, error)
}

// NewRunner creates a hook runner for the repository
func NewRunner(m *Manifest, repoRoot string, failFast bool, logger *zap.SugaredLogger) *Runner {
	return &Runner{
		manifest:    m,
		repoRoot:    repoRoot,
		failFast:    failFast,
		exec:        realExecHook,
		logger:      logger.Named("hooks"),
		stagedFiles: StagedFiles,
	}
}

// MatchFiles applies a hook's include and exclude globs to a file list.
// Globs match against slash-separated repo-relative paths.
func MatchFiles(h Hook, files []string) []string {
	var matched []string
	for _, file := range files {
		path := filepath.ToSlash(file)
		if len(h.Files) > 0 && !anyGlobMatches(h.Files, path) {
			continue
		}
		if anyGlobMatches(h.Exclude, path) {
			continue
		}
		matched = append(matched, file)
	}
	return matched
}

func anyGlobMatches(globs []string, path string) bool {
	for _, glob := range globs {
		if ok, err := doublestar.Match(glob, path); err == nil && ok {
			return true
		}
	}
	return false
}

// Run executes the selected hooks (nil = all) against the staged files.
// With allFiles, every tracked file is used instead, pre-commit's
// --all-files behavior.
func (r *Runner) Run(ctx context.Context, ids []string, allFiles bool) ([]HookResult, error) {
	selected, err := r.selectHooks(ids)
	if err != nil {
		return nil, err
	}

	var files []string
	if allFiles {
		files, err = ListFiles(r.repoRoot)
	} else {
		files, err = r.stagedFiles(r.repoRoot)
	}
	if err != nil {
		return nil, err
	}

	var results []HookResult
	for _, hook := range selected {
		result := r.runHook(ctx, hook, files)
		results = append(results, result)
		if !result.Passed && !result.Skipped && r.failFast {
			break
		}
	}
	return results, nil
}

func (r *Runner) selectHooks(ids []string) ([]Hook, error) {
	if len(ids) == 0 {
		return r.manifest.Hooks, nil
	}
	selected := make([]Hook, 0, len(ids))
	for _, id := range ids {
		hook, err := r.manifest.Hook(id)
		if err != nil {
			return nil, err
		}
		selected = append(selected, hook)
	}
	return selected, nil
}

// runHook filters files and executes a single hook
func (r *Runner) runHook(ctx context.Context, hook Hook, files []string) HookResult {
	matched := MatchFiles(hook, files)
	if len(matched) == 0 {
		r.logger.Debugw("Hook skipped, no matching files",
			"hook", hook.ID,
		)
		return HookResult{ID: hook.ID, Passed: true, Skipped: true}
	}

	argv, err := shellquote.Split(hook.Entry)
	if err != nil {
		return HookResult{
			ID:       hook.ID,
			ExitCode: -1,
			Output:   "invalid entry command: " + err.Error(),
			Files:    len(matched),
		}
	}
	if hook.PassFiles {
		argv = append(argv, matched...)
	}

	start := time.Now()
	output, exitCode, err := r.exec(ctx, r.repoRoot, argv)
	elapsed := time.Since(start)

	result := HookResult{
		ID:       hook.ID,
		Passed:   err == nil && exitCode == 0,
		ExitCode: exitCode,
		Output:   strings.TrimSpace(output),
		Files:    len(matched),
		Duration: elapsed,
	}
	if err != nil && result.Output == "" {
		result.Output = err.Error()
	}

	if result.Passed {
		r.logger.Infow("Hook passed",
			"hook", hook.ID,
			"files", result.Files,
			"duration_ms", elapsed.Milliseconds(),
		)
	} else {
		r.logger.Warnw("Hook failed",
			"hook", hook.ID,
			"exit_code", exitCode,
			"duration_ms", elapsed.Milliseconds(),
		)
	}
	return result
}

// AllPassed reports whether every hook in the results passed
func AllPassed(results []HookResult) bool {
	for _, res := range results {
		if !res.Passed {
			return false
		}
	}
	return true
}
