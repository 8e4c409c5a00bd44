package hooks

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/chuangyeshuo/vanadev/errors"
)

func writeManifest(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), ManifestName)
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("write manifest: %v", err)
	}
	return path
}

func TestLoadManifest(t *testing.T) {
	path := writeManifest(t, `
hooks:
  - id: black
    name: black formatting
    entry: black --check
    files:
      - "**/*.py"
    pass_files: true
  - id: trailing-whitespace
    entry: check-whitespace
`)

	m, err := Load(path)
	if err != nil {
		t.Fatalf("Load() failed: %v", err)
	}
	if len(m.Hooks) != 2 {
		t.Fatalf("expected 2 hooks, got %d", len(m.Hooks))
	}
	if m.Hooks[0].Label() != "black formatting" {
		t.Errorf("Label() = %q", m.Hooks[0].Label())
	}
	if m.Hooks[1].Label() != "trailing-whitespace" {
		t.Errorf("Label() should fall back to id, got %q", m.Hooks[1].Label())
	}
	if !m.Hooks[0].PassFiles || m.Hooks[1].PassFiles {
		t.Error("pass_files parsed incorrectly")
	}
}

func TestLoadManifestMissing(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), ManifestName))
	if !errors.Is(err, errors.ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestManifestValidation(t *testing.T) {
	tests := []struct {
		name    string
		content string
	}{
		{"no hooks", `hooks: []`},
		{"missing id", "hooks:\n  - entry: black\n"},
		{"missing entry", "hooks:\n  - id: black\n"},
		{"duplicate id", "hooks:\n  - id: black\n    entry: black\n  - id: black\n    entry: black\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := Load(writeManifest(t, tt.content)); err == nil {
				t.Error("expected validation error")
			}
		})
	}
}

func TestInitRefusesOverwrite(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, ManifestName)

	if err := Init(path); err != nil {
		t.Fatalf("Init() failed: %v", err)
	}
	// Starter manifest must load cleanly
	if _, err := Load(path); err != nil {
		t.Errorf("starter manifest invalid: %v", err)
	}

	if err := Init(path); !errors.Is(err, errors.ErrConflict) {
		t.Errorf("expected ErrConflict on second Init, got %v", err)
	}
}

func TestMatchFiles(t *testing.T) {
	files := []string{
		"src/sqlvana/base.py",
		"tests/test_base.py",
		"notebooks/demo.ipynb",
		"notebooks/helper.py",
		"README.md",
	}

	tests := []struct {
		name string
		hook Hook
		want []string
	}{
		{
			"include only",
			Hook{Files: []string{"**/*.py"}},
			[]string{"src/sqlvana/base.py", "tests/test_base.py", "notebooks/helper.py"},
		},
		{
			"include with exclude",
			Hook{Files: []string{"**/*.py"}, Exclude: []string{"notebooks/**"}},
			[]string{"src/sqlvana/base.py", "tests/test_base.py"},
		},
		{
			"no include matches everything",
			Hook{Exclude: []string{"**/*.md"}},
			[]string{"src/sqlvana/base.py", "tests/test_base.py", "notebooks/demo.ipynb", "notebooks/helper.py"},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := MatchFiles(tt.hook, files)
			if len(got) != len(tt.want) {
				t.Fatalf("MatchFiles() = %v, want %v", got, tt.want)
			}
			for i := range got {
				if got[i] != tt.want[i] {
					t.Errorf("MatchFiles()[%d] = %q, want %q", i, got[i], tt.want[i])
				}
			}
		})
	}
}
