// Package hooks manages the project's pre-commit hooks: a YAML manifest
// declares named hooks with file filters, and the package installs a git
// pre-commit shim, collects staged files, and runs the matching hooks.
package hooks

import (
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"github.com/chuangyeshuo/vanadev/errors"
)

// ManifestName is the hooks manifest filename at the repository root
const ManifestName = ".vanadev-hooks.yaml"

// Hook is one declared pre-commit hook
type Hook struct {
	// ID is the stable identifier, used for selection and reporting
	ID string `yaml:"id"`
	// Name is the human-readable label; defaults to ID
	Name string `yaml:"name,omitempty"`
	// Entry is the command line to execute
	Entry string `yaml:"entry"`
	// Files are include globs; empty means all files
	Files []string `yaml:"files,omitempty"`
	// Exclude globs remove files after the include filter
	Exclude []string `yaml:"exclude,omitempty"`
	// PassFiles appends the matched file list to the entry command
	PassFiles bool `yaml:"pass_files,omitempty"`
}

// Label returns the display name for the hook
func (h Hook) Label() string {
	if h.Name != "" {
		return h.Name
	}
	return h.ID
}

// Manifest is the parsed hooks manifest
type Manifest struct {
	Hooks []Hook `yaml:"hooks"`

	// Path the manifest was loaded from
	Path string `yaml:"-"`
}

// Load reads and validates a hooks manifest
func Load(path string) (*Manifest, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, errors.WithHint(
				errors.Wrapf(errors.ErrNotFound, "hooks manifest %s", path),
				"run 'vanadev hooks install' to create a starter manifest")
		}
		return nil, errors.Wrap(err, "read hooks manifest")
	}

	var m Manifest
	if err := yaml.Unmarshal(data, &m); err != nil {
		return nil, errors.Wrapf(err, "parse %s", filepath.Base(path))
	}
	m.Path = path

	if err := m.Validate(); err != nil {
		return nil, err
	}
	return &m, nil
}

// Validate checks manifest consistency
func (m *Manifest) Validate() error {
	if len(m.Hooks) == 0 {
		return errors.New("hooks manifest declares no hooks")
	}
	seen := make(map[string]bool, len(m.Hooks))
	for i, h := range m.Hooks {
		if h.ID == "" {
			return errors.Newf("hook %d has no id", i)
		}
		if seen[h.ID] {
			return errors.Newf("duplicate hook id %q", h.ID)
		}
		seen[h.ID] = true
		if h.Entry == "" {
			return errors.Newf("hook %q has no entry command", h.ID)
		}
	}
	return nil
}

// Hook returns the hook with the given ID
func (m *Manifest) Hook(id string) (Hook, error) {
	for _, h := range m.Hooks {
		if h.ID == id {
			return h, nil
		}
	}
	return Hook{}, errors.Wrapf(errors.ErrNotFound, "hook %q", id)
}

// starterManifest is written by Init for projects without a hooks manifest
const starterManifest = `# Pre-commit hooks run by vanadev against staged files.
hooks:
  - id: black
    name: black formatting
    entry: black --check
    files:
      - "**/*.py"
    pass_files: true
  - id: flake8
    entry: flake8
    files:
      - "**/*.py"
    exclude:
      - "notebooks/**"
    pass_files: true
`

// Init writes a starter hooks manifest. Refuses to overwrite.
func Init(path string) error {
	if _, err := os.Stat(path); err == nil {
		return errors.Wrapf(errors.ErrConflict, "%s already exists", path)
	}
	return errors.Wrap(os.WriteFile(path, []byte(starterManifest), 0644), "write hooks manifest")
}
