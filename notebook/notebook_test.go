package notebook

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"go.uber.org/zap"

	"github.com/chuangyeshuo/vanadev/vcsspec"
)

const sampleNotebook = `{
 "cells": [
  {
   "cell_type": "markdown",
   "metadata": {},
   "source": [
    "# Getting started\n",
    "Run pip install below first."
   ]
  },
  {
   "cell_type": "code",
   "execution_count": null,
   "metadata": {"tags": ["install"]},
   "outputs": [],
   "source": [
    "%pip install 'sqlvana[chromadb,openai]'\n",
    "import sqlvana"
   ]
  },
  {
   "cell_type": "code",
   "execution_count": 2,
   "metadata": {},
   "outputs": [],
   "source": [
    "vn = sqlvana.connect()"
   ]
  }
 ],
 "metadata": {
  "kernelspec": {"display_name": "Python 3", "name": "python3"}
 },
 "nbformat": 4,
 "nbformat_minor": 5
}
`

func writeNotebook(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("write notebook: %v", err)
	}
	return path
}

func branchSpec(t *testing.T) *vcsspec.Spec {
	t.Helper()
	spec, err := vcsspec.Parse("git+https://github.com/contributor/sqlvana@fix-retry#egg=sqlvana[chromadb,openai]")
	if err != nil {
		t.Fatalf("parse spec: %v", err)
	}
	return spec
}

func TestRewriteInstall(t *testing.T) {
	path := writeNotebook(t, t.TempDir(), "demo.ipynb", sampleNotebook)

	doc, err := Load(path)
	if err != nil {
		t.Fatalf("Load() failed: %v", err)
	}

	spec := branchSpec(t)
	lines, err := doc.RewriteInstall(spec)
	if err != nil {
		t.Fatalf("RewriteInstall() failed: %v", err)
	}
	if lines != 1 {
		t.Fatalf("expected 1 rewritten line, got %d", lines)
	}
	if err := doc.Save(); err != nil {
		t.Fatalf("Save() failed: %v", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read back: %v", err)
	}
	content := string(data)

	want := "%pip install " + spec.PipArgument() + "\n"
	var parsed struct {
		Cells []struct {
			CellType string   `json:"cell_type"`
			Source   []string `json:"source"`
		} `json:"cells"`
		Nbformat int `json:"nbformat"`
	}
	if err := json.Unmarshal(data, &parsed); err != nil {
		t.Fatalf("reparse: %v", err)
	}
	if parsed.Nbformat != 4 {
		t.Errorf("nbformat = %d", parsed.Nbformat)
	}
	if got := parsed.Cells[1].Source[0]; got != want {
		t.Errorf("install line = %q, want %q", got, want)
	}
	// The import line and the other cells are untouched
	if parsed.Cells[1].Source[1] != "import sqlvana" {
		t.Errorf("second source line changed: %q", parsed.Cells[1].Source[1])
	}
	if parsed.Cells[0].CellType != "markdown" {
		t.Error("markdown cell lost")
	}
	if !strings.Contains(content, `"tags": ["install"]`) && !strings.Contains(content, `"tags":["install"]`) {
		t.Error("cell metadata lost")
	}
}

func TestRewriteInstallMarkdownUntouched(t *testing.T) {
	path := writeNotebook(t, t.TempDir(), "demo.ipynb", sampleNotebook)
	doc, err := Load(path)
	if err != nil {
		t.Fatalf("Load() failed: %v", err)
	}
	if _, err := doc.RewriteInstall(branchSpec(t)); err != nil {
		t.Fatalf("RewriteInstall() failed: %v", err)
	}

	// The markdown cell mentions pip install but must never be rewritten
	src, err := cellSource(doc.cells[0])
	if err != nil {
		t.Fatalf("cellSource: %v", err)
	}
	if src[1] != "Run pip install below first." {
		t.Errorf("markdown source changed: %q", src[1])
	}
}

func TestInstallLineVariants(t *testing.T) {
	tests := []struct {
		line    string
		rewrite bool
	}{
		{"!pip install sqlvana", true},
		{"%pip install 'sqlvana[all]'", true},
		{"pip3 install sqlvana", true},
		{"  !pip install --quiet sqlvana", true},
		{"import sqlvana", false},
		{"# pip install sqlvana", false},
		{"pip uninstall sqlvana", false},
	}
	spec := branchSpec(t)
	for _, tt := range tests {
		t.Run(tt.line, func(t *testing.T) {
			cell := map[string]json.RawMessage{
				"cell_type": json.RawMessage(`"code"`),
			}
			if err := setCellSource(cell, []string{tt.line}); err != nil {
				t.Fatalf("setCellSource: %v", err)
			}
			doc := &Document{cells: []map[string]json.RawMessage{cell}}
			n, err := doc.RewriteInstall(spec)
			if err != nil {
				t.Fatalf("RewriteInstall: %v", err)
			}
			if (n == 1) != tt.rewrite {
				t.Errorf("rewrote %d lines, want rewrite=%v", n, tt.rewrite)
			}
		})
	}
}

func TestRewriteStringSource(t *testing.T) {
	// Some tooling writes cell source as a single string instead of a list
	const nb = `{
 "cells": [
  {"cell_type": "code", "metadata": {}, "outputs": [], "source": "!pip install sqlvana\nimport sqlvana\n"}
 ],
 "metadata": {},
 "nbformat": 4,
 "nbformat_minor": 5
}`
	path := writeNotebook(t, t.TempDir(), "s.ipynb", nb)
	doc, err := Load(path)
	if err != nil {
		t.Fatalf("Load() failed: %v", err)
	}
	n, err := doc.RewriteInstall(branchSpec(t))
	if err != nil {
		t.Fatalf("RewriteInstall() failed: %v", err)
	}
	if n != 1 {
		t.Errorf("rewrote %d lines, want 1", n)
	}
}

func TestChecklistApply(t *testing.T) {
	dir := t.TempDir()
	writeNotebook(t, dir, "notebooks/demo.ipynb", sampleNotebook)
	writeNotebook(t, dir, "notebooks/advanced/snowflake.ipynb", sampleNotebook)
	// Checkpoint copies are ignored
	writeNotebook(t, dir, "notebooks/.ipynb_checkpoints/demo-checkpoint.ipynb", sampleNotebook)
	// Outside the glob
	writeNotebook(t, dir, "docs/other.ipynb", sampleNotebook)

	c := NewChecklist(dir, []string{"notebooks/**/*.ipynb"}, zap.NewNop().Sugar())

	paths, err := c.Notebooks()
	if err != nil {
		t.Fatalf("Notebooks() failed: %v", err)
	}
	if len(paths) != 2 {
		t.Fatalf("Notebooks() = %v, want 2 entries", paths)
	}

	rewrites, err := c.Apply(branchSpec(t))
	if err != nil {
		t.Fatalf("Apply() failed: %v", err)
	}
	if len(rewrites) != 2 {
		t.Fatalf("expected 2 rewrites, got %d", len(rewrites))
	}
	for _, rw := range rewrites {
		if rw.Lines != 1 {
			t.Errorf("%s: %d lines rewritten", rw.Path, rw.Lines)
		}
	}
}

func TestChecklistNoNotebooks(t *testing.T) {
	c := NewChecklist(t.TempDir(), nil, zap.NewNop().Sugar())
	if _, err := c.Apply(branchSpec(t)); err == nil {
		t.Error("expected error when no notebooks match")
	}
}
