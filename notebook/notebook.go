// Package notebook rewrites the install cells of sample Jupyter notebooks.
// Pull requests that change the package are validated by pointing the
// notebooks' `pip install` lines at the contributor's branch, running them,
// and restoring them before merge.
package notebook

import (
	"bytes"
	"encoding/json"
	"os"
	"regexp"
	"strings"

	"github.com/chuangyeshuo/vanadev/errors"
	"github.com/chuangyeshuo/vanadev/vcsspec"
)

// Document is a parsed .ipynb file. Cells are held as raw JSON objects so
// everything except the rewritten source lines survives a round trip
// untouched.
type Document struct {
	cells []map[string]json.RawMessage
	rest  map[string]json.RawMessage
	path  string
}

// Load parses a notebook file
func Load(path string) (*Document, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrap(err, "read notebook")
	}

	var rest map[string]json.RawMessage
	if err := json.Unmarshal(data, &rest); err != nil {
		return nil, errors.Wrapf(err, "parse notebook %s", path)
	}

	rawCells, ok := rest["cells"]
	if !ok {
		return nil, errors.Newf("notebook %s has no cells", path)
	}
	var cells []map[string]json.RawMessage
	if err := json.Unmarshal(rawCells, &cells); err != nil {
		return nil, errors.Wrap(err, "parse notebook cells")
	}
	delete(rest, "cells")

	return &Document{cells: cells, rest: rest, path: path}, nil
}

// Path returns the file the document was loaded from
func (d *Document) Path() string {
	return d.path
}

// cellSource decodes a cell's source lines. The ipynb format allows either
// a string or a list of strings.
func cellSource(cell map[string]json.RawMessage) ([]string, error) {
	raw, ok := cell["source"]
	if !ok {
		return nil, nil
	}
	var lines []string
	if err := json.Unmarshal(raw, &lines); err == nil {
		return lines, nil
	}
	var joined string
	if err := json.Unmarshal(raw, &joined); err != nil {
		return nil, errors.Wrap(err, "decode cell source")
	}
	return strings.SplitAfter(joined, "\n"), nil
}

func setCellSource(cell map[string]json.RawMessage, lines []string) error {
	encoded, err := json.Marshal(lines)
	if err != nil {
		return errors.Wrap(err, "encode cell source")
	}
	cell["source"] = encoded
	return nil
}

// installLine matches a pip install invocation in a code cell: the bare
// command, the `!` shell escape, or the `%pip` magic, with optional flags
// before the requirement.
var installLine = regexp.MustCompile(`^(\s*[!%]?\s*pip3?\s+install\s+(?:-[^\s]+\s+)*)(.+?)(\s*)$`)

// RewriteInstall replaces the requirement on every pip install line with
// the given VCS spec. Only install lines change; all other cell content,
// markdown cells, outputs, and metadata are preserved. Returns the number
// of rewritten lines.
func (d *Document) RewriteInstall(spec *vcsspec.Spec) (int, error) {
	argument := spec.PipArgument()
	rewritten := 0

	for _, cell := range d.cells {
		var cellType string
		if raw, ok := cell["cell_type"]; ok {
			if err := json.Unmarshal(raw, &cellType); err != nil {
				return 0, errors.Wrap(err, "decode cell type")
			}
		}
		if cellType != "code" {
			continue
		}

		lines, err := cellSource(cell)
		if err != nil {
			return 0, err
		}

		changed := false
		for i, line := range lines {
			trailing := ""
			if strings.HasSuffix(line, "\n") {
				trailing = "\n"
				line = strings.TrimSuffix(line, "\n")
			}
			m := installLine.FindStringSubmatch(line)
			if m == nil {
				continue
			}
			lines[i] = m[1] + argument + m[3] + trailing
			changed = true
			rewritten++
		}
		if changed {
			if err := setCellSource(cell, lines); err != nil {
				return 0, err
			}
		}
	}
	return rewritten, nil
}

// Save writes the document back to its file in Jupyter's on-disk format
// (one-space indent, trailing newline).
func (d *Document) Save() error {
	return d.SaveAs(d.path)
}

// SaveAs writes the document to the given path
func (d *Document) SaveAs(path string) error {
	full := make(map[string]json.RawMessage, len(d.rest)+1)
	for k, v := range d.rest {
		full[k] = v
	}
	encodedCells, err := json.Marshal(d.cells)
	if err != nil {
		return errors.Wrap(err, "encode cells")
	}
	full["cells"] = encodedCells

	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetIndent("", " ")
	enc.SetEscapeHTML(false)
	if err := enc.Encode(full); err != nil {
		return errors.Wrap(err, "encode notebook")
	}

	return errors.Wrap(os.WriteFile(path, buf.Bytes(), 0644), "write notebook")
}
