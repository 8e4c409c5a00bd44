package hooks

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/go-git/go-git/v5"

	"github.com/chuangyeshuo/vanadev/errors"
)

// hookScript is the pre-commit shim written into .git/hooks. It defers to
// the vanadev binary so the manifest stays the single source of truth.
const hookScript = `#!/bin/sh
# Installed by vanadev. Edit .vanadev-hooks.yaml, not this file.
exec vanadev hooks run
`

// shimMarker identifies a pre-commit file written by Install
const shimMarker = "Installed by vanadev"

// hookPath returns the pre-commit hook path for the repository.
// Linked worktrees keep a .git file instead of a directory; those are not
// supported here.
func hookPath(repoRoot string) (string, error) {
	if _, err := git.PlainOpen(repoRoot); err != nil {
		if errors.Is(err, git.ErrRepositoryNotExists) {
			return "", errors.Wrapf(errors.ErrNotARepository, "%s", repoRoot)
		}
		return "", errors.Wrap(err, "open repository")
	}

	gitDir := filepath.Join(repoRoot, git.GitDirName)
	info, err := os.Stat(gitDir)
	if err != nil {
		return "", errors.Wrap(err, "stat .git")
	}
	if !info.IsDir() {
		return "", errors.New("linked worktrees are not supported for hook install")
	}
	return filepath.Join(gitDir, "hooks", "pre-commit"), nil
}

// Install writes the pre-commit shim into the repository's hooks directory.
// An existing hook not written by vanadev is left alone and reported as a
// conflict.
func Install(repoRoot string) (string, error) {
	path, err := hookPath(repoRoot)
	if err != nil {
		return "", err
	}

	if existing, err := os.ReadFile(path); err == nil {
		if strings.Contains(string(existing), shimMarker) {
			return path, nil // already installed
		}
		return "", errors.WithHint(
			errors.Wrapf(errors.ErrConflict, "pre-commit hook already exists at %s", path),
			"move the existing hook aside, then re-run 'vanadev hooks install'")
	}

	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return "", errors.Wrap(err, "create hooks directory")
	}
	if err := os.WriteFile(path, []byte(hookScript), 0755); err != nil {
		return "", errors.Wrap(err, "write pre-commit hook")
	}
	return path, nil
}

// Uninstall removes the pre-commit shim if vanadev installed it
func Uninstall(repoRoot string) error {
	path, err := hookPath(repoRoot)
	if err != nil {
		return err
	}

	existing, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil // nothing installed
		}
		return errors.Wrap(err, "read pre-commit hook")
	}
	if !strings.Contains(string(existing), shimMarker) {
		return errors.Wrapf(errors.ErrConflict, "pre-commit hook at %s was not installed by vanadev", path)
	}
	return errors.Wrap(os.Remove(path), "remove pre-commit hook")
}

// Installed reports whether the vanadev shim is the active pre-commit hook
func Installed(repoRoot string) bool {
	path, err := hookPath(repoRoot)
	if err != nil {
		return false
	}
	existing, err := os.ReadFile(path)
	if err != nil {
		return false
	}
	return strings.Contains(string(existing), shimMarker)
}
