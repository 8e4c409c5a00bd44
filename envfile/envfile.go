// Package envfile loads the project environment manifest (vanadev.toml).
//
// The manifest declares the test environments for a project the way a
// tox.ini would: an envlist, and one table per environment with its
// interpreter requirement, extras, deps and commands.
package envfile

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/BurntSushi/toml"

	"github.com/chuangyeshuo/vanadev/errors"
)

// ManifestName is the file name searched for at the project root
const ManifestName = "vanadev.toml"

// Manifest is the parsed project environment manifest
type Manifest struct {
	Project Project        `toml:"project"`
	EnvList []string       `toml:"envlist"`
	Envs    map[string]Env `toml:"env"`

	// Path the manifest was loaded from (not part of the TOML document)
	Path string `toml:"-"`
}

// Project describes the package under management
type Project struct {
	Name        string   `toml:"name"`
	Package     string   `toml:"package"` // pip distribution name, defaults to Name
	SourceGlobs []string `toml:"source_globs"`
}

// Env declares a single test environment
type Env struct {
	// Python is a semver-style constraint on the interpreter version,
	// e.g. ">=3.10, <3.11". Empty means any python3.
	Python string `toml:"python"`

	// Platform gates the environment to one GOOS value
	// (linux, darwin, windows). Empty means all platforms.
	Platform string `toml:"platform"`

	// Extras are installed with the editable package install:
	// pip install -e '.[extra1,extra2]'
	Extras []string `toml:"extras"`

	// Deps are additional requirements installed into the environment
	Deps []string `toml:"deps"`

	// Commands run in order inside the environment; any failure fails the env
	Commands []string `toml:"commands"`

	// SetEnv adds environment variables for command execution
	SetEnv map[string]string `toml:"set_env"`

	// PassEnv names host environment variables forwarded to commands
	PassEnv []string `toml:"pass_env"`

	// SkipInstall skips the editable package install (lint-only envs)
	SkipInstall bool `toml:"skip_install"`
}

// Load reads and validates the manifest at the given path
func Load(path string) (*Manifest, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrapf(err, "read manifest %s", path)
	}

	var m Manifest
	if err := toml.Unmarshal(data, &m); err != nil {
		return nil, errors.Wrapf(err, "parse manifest %s", path)
	}
	m.Path = path

	if err := m.Validate(); err != nil {
		return nil, errors.Wrapf(err, "invalid manifest %s", path)
	}

	return &m, nil
}

// Find walks up from dir looking for vanadev.toml and loads it.
func Find(dir string) (*Manifest, error) {
	abs, err := filepath.Abs(dir)
	if err != nil {
		return nil, errors.Wrap(err, "resolve search directory")
	}

	for {
		candidate := filepath.Join(abs, ManifestName)
		if _, err := os.Stat(candidate); err == nil {
			return Load(candidate)
		}

		parent := filepath.Dir(abs)
		if parent == abs {
			break
		}
		abs = parent
	}

	return nil, errors.WithHint(
		errors.Wrapf(errors.ErrNotFound, "no %s found from %s upward", ManifestName, dir),
		"run 'vanadev setup' or create a vanadev.toml at the project root")
}

// Root returns the directory containing the manifest
func (m *Manifest) Root() string {
	return filepath.Dir(m.Path)
}

// PackageName returns the pip distribution name, falling back to project name
func (m *Manifest) PackageName() string {
	if m.Project.Package != "" {
		return m.Project.Package
	}
	return m.Project.Name
}

// Env returns the named environment declaration
func (m *Manifest) Env(name string) (Env, error) {
	env, ok := m.Envs[name]
	if !ok {
		return Env{}, errors.NewEnvNotFoundError(name)
	}
	return env, nil
}

// Resolve expands the given env names; an empty list means the full envlist.
func (m *Manifest) Resolve(names []string) ([]string, error) {
	if len(names) == 0 {
		return append([]string(nil), m.EnvList...), nil
	}
	for _, name := range names {
		if _, ok := m.Envs[name]; !ok {
			return nil, errors.NewEnvNotFoundError(name)
		}
	}
	return names, nil
}

// Hash returns a stable fingerprint of an environment declaration.
// Used to detect when a provisioned virtualenv is stale.
func (m *Manifest) Hash(name string) (string, error) {
	env, err := m.Env(name)
	if err != nil {
		return "", err
	}

	// Canonical encoding: sorted key=value lines
	var b strings.Builder
	fmt.Fprintf(&b, "python=%s\n", env.Python)
	fmt.Fprintf(&b, "platform=%s\n", env.Platform)
	fmt.Fprintf(&b, "extras=%s\n", strings.Join(env.Extras, ","))
	fmt.Fprintf(&b, "deps=%s\n", strings.Join(env.Deps, ","))
	fmt.Fprintf(&b, "skip_install=%t\n", env.SkipInstall)

	keys := make([]string, 0, len(env.SetEnv))
	for k := range env.SetEnv {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		fmt.Fprintf(&b, "set_env.%s=%s\n", k, env.SetEnv[k])
	}

	sum := sha256.Sum256([]byte(b.String()))
	return hex.EncodeToString(sum[:]), nil
}

// validPlatforms are the GOOS values an env may be gated to
var validPlatforms = map[string]bool{
	"":        true,
	"linux":   true,
	"darwin":  true,
	"windows": true,
}

// Validate checks manifest consistency
func (m *Manifest) Validate() error {
	if m.Project.Name == "" {
		return errors.New("project.name is required")
	}
	if len(m.EnvList) == 0 {
		return errors.New("envlist must declare at least one environment")
	}

	for _, name := range m.EnvList {
		if _, ok := m.Envs[name]; !ok {
			return errors.Newf("envlist entry %q has no [env.%s] table", name, name)
		}
	}

	for name, env := range m.Envs {
		if len(env.Commands) == 0 {
			return errors.Newf("env %q declares no commands", name)
		}
		if !validPlatforms[env.Platform] {
			return errors.Newf("env %q has invalid platform %q (want linux, darwin or windows)", name, env.Platform)
		}
	}

	return nil
}
