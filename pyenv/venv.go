package pyenv

import (
	"context"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
	"strings"

	"go.uber.org/zap"

	"github.com/chuangyeshuo/vanadev/errors"
)

// EnvsDir is the directory under the project root holding virtualenvs
const EnvsDir = ".vanadev/envs"

// EnvDir returns the virtualenv directory for an environment name
func EnvDir(projectRoot, name string) string {
	return filepath.Join(projectRoot, EnvsDir, name)
}

// VenvPython returns the interpreter path inside a virtualenv
func VenvPython(envDir string) string {
	if runtime.GOOS == "windows" {
		return filepath.Join(envDir, "Scripts", "python.exe")
	}
	return filepath.Join(envDir, "bin", "python")
}

// VenvBinDir returns the script directory inside a virtualenv.
// Prepended to PATH when running env commands, the moral equivalent of
// `source .venv/bin/activate`.
func VenvBinDir(envDir string) string {
	if runtime.GOOS == "windows" {
		return filepath.Join(envDir, "Scripts")
	}
	return filepath.Join(envDir, "bin")
}

// runCommand executes argv in dir and returns combined output.
// Injectable for tests.
type runCommand func(ctx context.Context, dir string, argv []string) (string, error)

func realRunCommand(ctx context.Context, dir string, argv []string) (string, error) {
	cmd := exec.CommandContext(ctx, argv[0], argv[1:]...)
	cmd.Dir = dir
	out, err := cmd.CombinedOutput()
	return string(out), err
}

// CreateVenv creates a fresh virtualenv at envDir using the interpreter.
// Any existing venv at that path is removed first.
func (p *Provisioner) createVenv(ctx context.Context, interpreter *Interpreter, envDir string) error {
	if err := os.RemoveAll(envDir); err != nil {
		return errors.Wrapf(err, "remove stale venv %s", envDir)
	}
	if err := os.MkdirAll(filepath.Dir(envDir), 0755); err != nil {
		return errors.Wrap(err, "create envs directory")
	}

	out, err := p.run(ctx, "", []string{interpreter.Path, "-m", "venv", envDir})
	if err != nil {
		return errors.WithDetail(
			errors.Wrapf(err, "create venv at %s", envDir),
			strings.TrimSpace(out))
	}
	return nil
}

// installDeps installs the env's extra requirements into the venv
func (p *Provisioner) installDeps(ctx context.Context, projectRoot, envDir string, deps []string, logger *zap.SugaredLogger) error {
	if len(deps) == 0 {
		return nil
	}

	argv := append([]string{VenvPython(envDir), "-m", "pip", "install"}, deps...)
	logger.Debugw("Installing environment deps",
		"count", len(deps),
	)

	out, err := p.run(ctx, projectRoot, argv)
	if err != nil {
		return errors.WithDetail(
			errors.Wrapf(err, "install deps into %s", envDir),
			strings.TrimSpace(out))
	}
	return nil
}

// installEditable performs the editable package install:
//
//	pip install -e '.[extra1,extra2]'
func (p *Provisioner) installEditable(ctx context.Context, projectRoot, envDir string, extras []string, logger *zap.SugaredLogger) error {
	target := "."
	if len(extras) > 0 {
		target = ".[" + strings.Join(extras, ",") + "]"
	}

	logger.Infow("Installing package in editable mode",
		"target", target,
	)

	out, err := p.run(ctx, projectRoot, []string{VenvPython(envDir), "-m", "pip", "install", "-e", target})
	if err != nil {
		return errors.WithDetail(
			errors.Wrapf(err, "editable install %s", target),
			strings.TrimSpace(out))
	}
	return nil
}
