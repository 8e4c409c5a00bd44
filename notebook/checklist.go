package notebook

import (
	"path/filepath"
	"sort"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/pterm/pterm"
	"go.uber.org/zap"

	"github.com/chuangyeshuo/vanadev/errors"
	"github.com/chuangyeshuo/vanadev/vcsspec"
)

// Rewrite records one notebook touched by Apply
type Rewrite struct {
	Path  string
	Lines int // install lines rewritten
}

// Checklist rewrites a project's sample notebooks against a branch install
// spec and reports the manual validation steps.
type Checklist struct {
	root   string
	globs  []string
	logger *zap.SugaredLogger
}

// NewChecklist creates a checklist over the project's notebook globs
func NewChecklist(root string, globs []string, logger *zap.SugaredLogger) *Checklist {
	if len(globs) == 0 {
		globs = []string{"**/*.ipynb"}
	}
	return &Checklist{
		root:   root,
		globs:  globs,
		logger: logger.Named("notebook"),
	}
}

// Notebooks returns the project-relative notebook paths matching the
// configured globs, sorted and deduplicated. Checkpoint copies are never
// included.
func (c *Checklist) Notebooks() ([]string, error) {
	seen := make(map[string]bool)
	for _, glob := range c.globs {
		matches, err := doublestar.FilepathGlob(filepath.Join(c.root, filepath.FromSlash(glob)))
		if err != nil {
			return nil, errors.Wrapf(err, "glob %q", glob)
		}
		for _, match := range matches {
			rel, err := filepath.Rel(c.root, match)
			if err != nil {
				continue
			}
			rel = filepath.ToSlash(rel)
			if ok, _ := doublestar.Match("**/.ipynb_checkpoints/**", rel); ok {
				continue
			}
			seen[rel] = true
		}
	}

	paths := make([]string, 0, len(seen))
	for path := range seen {
		paths = append(paths, path)
	}
	sort.Strings(paths)
	return paths, nil
}

// Apply rewrites every matching notebook's install cells to the given spec
func (c *Checklist) Apply(spec *vcsspec.Spec) ([]Rewrite, error) {
	paths, err := c.Notebooks()
	if err != nil {
		return nil, err
	}
	if len(paths) == 0 {
		return nil, errors.WithHint(
			errors.Wrap(errors.ErrNotFound, "no notebooks matched"),
			"check the notebook globs in vanadev-config.toml")
	}

	var rewrites []Rewrite
	for _, rel := range paths {
		doc, err := Load(filepath.Join(c.root, filepath.FromSlash(rel)))
		if err != nil {
			return rewrites, err
		}
		lines, err := doc.RewriteInstall(spec)
		if err != nil {
			return rewrites, errors.Wrapf(err, "rewrite %s", rel)
		}
		if lines == 0 {
			c.logger.Debugw("Notebook has no install cells",
				"notebook", rel,
			)
			continue
		}
		if err := doc.Save(); err != nil {
			return rewrites, errors.Wrapf(err, "save %s", rel)
		}
		c.logger.Infow("Notebook rewritten",
			"notebook", rel,
			"lines", lines,
		)
		rewrites = append(rewrites, Rewrite{Path: rel, Lines: lines})
	}
	return rewrites, nil
}

// Print renders the manual validation checklist for a branch spec
func Print(spec *vcsspec.Spec, rewrites []Rewrite) {
	pterm.DefaultSection.Println("Pull request checklist")

	items := []pterm.BulletListItem{
		{Level: 0, Text: "Install spec: " + spec.String()},
	}
	for _, rw := range rewrites {
		items = append(items, pterm.BulletListItem{
			Level: 1,
			Text:  pterm.Sprintf("%s (%d install line(s) updated)", rw.Path, rw.Lines),
		})
	}
	items = append(items,
		pterm.BulletListItem{Level: 0, Text: "Run each rewritten notebook top to bottom"},
		pterm.BulletListItem{Level: 0, Text: "Confirm the branch install succeeds and examples behave"},
		pterm.BulletListItem{Level: 0, Text: "Revert the notebook install cells before merging"},
	)
	pterm.DefaultBulletList.WithItems(items).Render()
}
