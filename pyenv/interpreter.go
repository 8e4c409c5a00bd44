// Package pyenv manages per-environment Python virtualenvs: interpreter
// discovery, venv creation, and editable installs of the package under
// management.
package pyenv

import (
	"context"
	"os/exec"
	"regexp"
	"strings"

	"github.com/Masterminds/semver/v3"

	"github.com/chuangyeshuo/vanadev/errors"
)

// Interpreter is a discovered Python interpreter
type Interpreter struct {
	Path    string
	Version *semver.Version
}

// Finder locates Python interpreters on the host.
// The lookup functions are injectable for tests.
type Finder struct {
	// LookPath resolves a candidate name to an absolute path (exec.LookPath)
	LookPath func(name string) (string, error)
	// VersionOutput runs `<path> --version` and returns its combined output
	VersionOutput func(ctx context.Context, path string) (string, error)
}

// NewFinder returns a Finder backed by the real toolchain
func NewFinder() *Finder {
	return &Finder{
		LookPath: exec.LookPath,
		VersionOutput: func(ctx context.Context, path string) (string, error) {
			out, err := exec.CommandContext(ctx, path, "--version").CombinedOutput()
			return string(out), err
		},
	}
}

// versionPattern matches "Python 3.10.12" style output
var versionPattern = regexp.MustCompile(`Python\s+(\d+\.\d+(?:\.\d+)?)`)

// ParseVersionOutput extracts the interpreter version from `python --version` output
func ParseVersionOutput(out string) (*semver.Version, error) {
	m := versionPattern.FindStringSubmatch(out)
	if m == nil {
		return nil, errors.Newf("unrecognized interpreter version output %q", strings.TrimSpace(out))
	}
	v, err := semver.NewVersion(m[1])
	if err != nil {
		return nil, errors.Wrapf(err, "parse interpreter version %q", m[1])
	}
	return v, nil
}

// CandidateNames returns interpreter names to probe for a constraint, most
// specific first. A constraint like ">=3.10, <3.11" yields python3.10 before
// the generic fallbacks.
func CandidateNames(constraint string) []string {
	var names []string

	// Pull an X.Y version out of the constraint for a versioned binary name
	if m := regexp.MustCompile(`(\d+\.\d+)`).FindStringSubmatch(constraint); m != nil {
		names = append(names, "python"+m[1])
	}

	return append(names, "python3", "python")
}

// Find locates an interpreter satisfying the given semver constraint.
// An empty constraint accepts any python3.
func (f *Finder) Find(ctx context.Context, constraint string) (*Interpreter, error) {
	var c *semver.Constraints
	if constraint != "" {
		parsed, err := semver.NewConstraint(constraint)
		if err != nil {
			return nil, errors.Wrapf(err, "invalid python constraint %q", constraint)
		}
		c = parsed
	}

	var probed []string
	for _, name := range CandidateNames(constraint) {
		path, err := f.LookPath(name)
		if err != nil {
			continue
		}
		probed = append(probed, path)

		out, err := f.VersionOutput(ctx, path)
		if err != nil {
			continue
		}
		version, err := ParseVersionOutput(out)
		if err != nil {
			continue
		}

		if c != nil && !c.Check(version) {
			continue
		}

		return &Interpreter{Path: path, Version: version}, nil
	}

	err := errors.Wrapf(errors.ErrInterpreterNotFound, "constraint %q", constraint)
	if len(probed) > 0 {
		err = errors.WithDetailf(err, "probed: %s", strings.Join(probed, ", "))
	}
	return nil, errors.WithHint(err, "install a matching Python or adjust the env's python constraint in vanadev.toml")
}
