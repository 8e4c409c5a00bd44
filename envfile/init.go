package envfile

import (
	"os"
	"path/filepath"

	"github.com/chuangyeshuo/vanadev/errors"
)

// starterManifest is written by Init for new projects. It mirrors the
// sqlvana contributor setup: a generic py310 environment plus a
// darwin-gated mac environment.
const starterManifest = `[project]
name = "sqlvana"
package = "sqlvana"
source_globs = ["src/**/*.py", "tests/**/*.py"]

envlist = ["py310", "mac"]

[env.py310]
python = ">=3.10, <3.11"
extras = ["all"]
deps = ["pytest"]
commands = ["pytest -x tests/"]

[env.mac]
python = ">=3.10"
platform = "darwin"
extras = ["all"]
deps = ["pytest"]
commands = ["pytest -x tests/"]
`

// Init writes a starter vanadev.toml into dir.
// Fails if one already exists.
func Init(dir string) (string, error) {
	path := filepath.Join(dir, ManifestName)
	if _, err := os.Stat(path); err == nil {
		return "", errors.Wrapf(errors.ErrConflict, "%s already exists", path)
	}

	if err := os.WriteFile(path, []byte(starterManifest), 0644); err != nil {
		return "", errors.Wrap(err, "write starter manifest")
	}
	return path, nil
}
