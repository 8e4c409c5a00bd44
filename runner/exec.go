package runner

import (
	"context"
	"os"
	"os/exec"
	"strings"
	"time"

	"github.com/kballard/go-shellquote"

	"github.com/chuangyeshuo/vanadev/envfile"
	"github.com/chuangyeshuo/vanadev/errors"
	"github.com/chuangyeshuo/vanadev/pyenv"
)

// execCommand runs a parsed command line and returns its combined output
// and exit code. Injectable for tests.
type execCommand func(ctx context.Context, dir string, environ []string, argv []string) (output string, exitCode int, err error)

func realExecCommand(ctx context.Context, dir string, environ []string, argv []string) (string, int, error) {
	cmd := exec.CommandContext(ctx, argv[0], argv[1:]...)
	cmd.Dir = dir
	cmd.Env = environ

	out, err := cmd.CombinedOutput()
	if err != nil {
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			return string(out), exitErr.ExitCode(), nil
		}
		// Start failure (missing binary etc.), not a command exit
		return string(out), -1, err
	}
	return string(out), 0, nil
}

// hostPassthrough are host variables always forwarded into env commands,
// matching tox's implicit passenv set.
var hostPassthrough = []string{"HOME", "LANG", "LC_ALL", "TMPDIR", "TEMP", "TMP"}

// buildEnviron constructs the isolated environment an env's commands run in:
// the venv's bin directory leads PATH, VIRTUAL_ENV is set, and only
// passthrough + pass_env host variables survive.
func buildEnviron(envDir string, env envfile.Env) []string {
	environ := []string{
		"PATH=" + pyenv.VenvBinDir(envDir) + string(os.PathListSeparator) + os.Getenv("PATH"),
		"VIRTUAL_ENV=" + envDir,
	}

	for _, name := range hostPassthrough {
		if val, ok := os.LookupEnv(name); ok {
			environ = append(environ, name+"="+val)
		}
	}
	for _, name := range env.PassEnv {
		if val, ok := os.LookupEnv(name); ok {
			environ = append(environ, name+"="+val)
		}
	}
	for name, val := range env.SetEnv {
		environ = append(environ, name+"="+val)
	}

	return environ
}

// runCommands executes an environment's command list in order.
// The first non-zero exit stops the list.
func (r *Runner) runCommands(ctx context.Context, envDir string, env envfile.Env) ([]CommandResult, error) {
	environ := buildEnviron(envDir, env)
	var results []CommandResult

	for _, line := range env.Commands {
		argv, err := shellquote.Split(line)
		if err != nil {
			return results, errors.Wrapf(err, "parse command %q", line)
		}
		if len(argv) == 0 {
			continue
		}

		cmdCtx := ctx
		var cancel context.CancelFunc
		if r.commandTimeout > 0 {
			cmdCtx, cancel = context.WithTimeout(ctx, r.commandTimeout)
		}

		r.logger.Debugw("Running command",
			"command", line,
		)
		start := time.Now()
		output, exitCode, err := r.exec(cmdCtx, r.manifest.Root(), environ, argv)
		elapsed := time.Since(start)
		if cancel != nil {
			cancel()
		}

		result := CommandResult{
			Line:     line,
			ExitCode: exitCode,
			Output:   strings.TrimSpace(output),
			Duration: elapsed,
		}
		results = append(results, result)

		if err != nil {
			if cmdCtx.Err() != nil {
				return results, errors.Wrapf(errors.ErrTimeout, "command %q after %v", line, elapsed.Round(time.Millisecond))
			}
			return results, errors.Wrapf(err, "start command %q", line)
		}
		if exitCode != 0 {
			r.logger.Warnw("Command failed",
				"command", line,
				"exit_code", exitCode,
				"duration_ms", elapsed.Milliseconds(),
			)
			break
		}
	}

	return results, nil
}
