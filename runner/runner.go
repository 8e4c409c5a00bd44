package runner

import (
	"context"
	"runtime"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/chuangyeshuo/vanadev/conf"
	"github.com/chuangyeshuo/vanadev/envfile"
	"github.com/chuangyeshuo/vanadev/pyenv"
)

// Provisioner is the slice of pyenv the runner needs.
// Satisfied by *pyenv.Provisioner.
type Provisioner interface {
	Provision(ctx context.Context, m *envfile.Manifest, name string) (*pyenv.Result, error)
}

// Runner orchestrates test environment execution
type Runner struct {
	manifest       *envfile.Manifest
	provisioner    Provisioner
	history        *HistoryStore // optional, nil disables run recording
	parallel       int
	keepGoing      bool
	commandTimeout time.Duration
	goos           string // platform override for tests
	exec           execCommand
	logger         *zap.SugaredLogger
}

// New creates a runner from configuration
func New(m *envfile.Manifest, provisioner Provisioner, history *HistoryStore, cfg conf.Runner, logger *zap.SugaredLogger) *Runner {
	parallel := cfg.Parallel
	if parallel < 1 {
		parallel = 1
	}
	return &Runner{
		manifest:       m,
		provisioner:    provisioner,
		history:        history,
		parallel:       parallel,
		keepGoing:      cfg.KeepGoing,
		commandTimeout: time.Duration(cfg.CommandTimeoutSeconds) * time.Second,
		goos:           runtime.GOOS,
		exec:           realExecCommand,
		logger:         logger.Named("runner"),
	}
}

// EnvInfo describes one declared environment for listings
type EnvInfo struct {
	Name     string
	Python   string
	Platform string
	Extras   []string
	Commands []string
}

// List enumerates the declared environments in envlist order
func (r *Runner) List() []EnvInfo {
	infos := make([]EnvInfo, 0, len(r.manifest.EnvList))
	for _, name := range r.manifest.EnvList {
		env := r.manifest.Envs[name]
		infos = append(infos, EnvInfo{
			Name:     name,
			Python:   env.Python,
			Platform: env.Platform,
			Extras:   env.Extras,
			Commands: env.Commands,
		})
	}
	return infos
}

// Run executes the named environments (nil = full envlist) and returns a
// summary. Gated environments on the wrong platform are reported skipped,
// never run.
func (r *Runner) Run(ctx context.Context, names []string) (*Summary, error) {
	selected, err := r.manifest.Resolve(names)
	if err != nil {
		return nil, err
	}

	results := make([]*EnvResult, len(selected))

	if r.parallel <= 1 {
		for i, name := range selected {
			results[i] = r.runEnv(ctx, name)
			if results[i].Failed() && !r.keepGoing {
				// Remaining envs are reported as errors, not silently dropped
				for j := i + 1; j < len(selected); j++ {
					results[j] = &EnvResult{
						Name:   selected[j],
						Status: StatusError,
						Reason: "not run: earlier environment failed",
					}
				}
				break
			}
		}
	} else {
		sem := make(chan struct{}, r.parallel)
		var wg sync.WaitGroup
		for i, name := range selected {
			wg.Add(1)
			go func(i int, name string) {
				defer wg.Done()
				sem <- struct{}{}
				defer func() { <-sem }()
				results[i] = r.runEnv(ctx, name)
			}(i, name)
		}
		wg.Wait()
	}

	// Compact any nil slots from an early break
	summary := &Summary{}
	for _, res := range results {
		if res != nil {
			summary.Results = append(summary.Results, res)
		}
	}
	return summary, nil
}

// runEnv provisions and executes a single environment
func (r *Runner) runEnv(ctx context.Context, name string) *EnvResult {
	env, err := r.manifest.Env(name)
	if err != nil {
		return &EnvResult{Name: name, Status: StatusError, Reason: err.Error()}
	}

	// Platform gate: skip, don't fail
	if env.Platform != "" && env.Platform != r.goos {
		r.logger.Infow("Environment skipped",
			"env", name,
			"platform", env.Platform,
			"host", r.goos,
		)
		result := &EnvResult{
			Name:   name,
			Status: StatusSkipped,
			Reason: "requires " + env.Platform + ", host is " + r.goos,
		}
		r.record(result)
		return result
	}

	start := time.Now()

	provisioned, err := r.provisioner.Provision(ctx, r.manifest, name)
	if err != nil {
		result := &EnvResult{
			Name:     name,
			Status:   StatusError,
			Reason:   err.Error(),
			Duration: time.Since(start),
		}
		r.record(result)
		return result
	}

	commands, err := r.runCommands(ctx, provisioned.EnvDir, env)
	elapsed := time.Since(start)

	result := &EnvResult{
		Name:     name,
		Commands: commands,
		Duration: elapsed,
	}
	switch {
	case err != nil:
		result.Status = StatusError
		result.Reason = err.Error()
	case anyFailed(commands):
		result.Status = StatusFailed
	default:
		result.Status = StatusPassed
	}

	if result.Status == StatusPassed {
		r.logger.Infow("Environment passed",
			"env", name,
			"commands", len(commands),
			"duration_ms", elapsed.Milliseconds(),
		)
	} else {
		r.logger.Warnw("Environment "+string(result.Status),
			"env", name,
			"duration_ms", elapsed.Milliseconds(),
		)
	}

	r.record(result)
	return result
}

func anyFailed(commands []CommandResult) bool {
	for _, c := range commands {
		if c.ExitCode != 0 {
			return true
		}
	}
	return false
}

// record persists the result to run history, if enabled
func (r *Runner) record(result *EnvResult) {
	if r.history == nil {
		return
	}
	if err := r.history.Record(result, r.goos); err != nil {
		r.logger.Warnw("Failed to record run history",
			"env", result.Name,
			"error", err,
		)
	}
}
