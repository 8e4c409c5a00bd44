package pyenv

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"go.uber.org/zap"

	"github.com/chuangyeshuo/vanadev/envfile"
	vanatest "github.com/chuangyeshuo/vanadev/internal/testing"
)

const provisionManifest = `
[project]
name = "sqlvana"

envlist = ["py310"]

[env.py310]
python = ">=3.10, <3.11"
extras = ["all"]
deps = ["pytest"]
commands = ["pytest -x tests/"]
`

func testManifest(t *testing.T) *envfile.Manifest {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, envfile.ManifestName)
	if err := os.WriteFile(path, []byte(provisionManifest), 0644); err != nil {
		t.Fatalf("write manifest: %v", err)
	}
	m, err := envfile.Load(path)
	if err != nil {
		t.Fatalf("load manifest: %v", err)
	}
	return m
}

// recordingRunner captures executed command lines and fakes venv creation
// by dropping the interpreter file a real `python -m venv` would create.
type recordingRunner struct {
	commands []string
}

func (r *recordingRunner) run(ctx context.Context, dir string, argv []string) (string, error) {
	line := strings.Join(argv, " ")
	r.commands = append(r.commands, line)

	if len(argv) >= 3 && argv[1] == "-m" && argv[2] == "venv" {
		envDir := argv[3]
		if err := os.MkdirAll(filepath.Dir(VenvPython(envDir)), 0755); err != nil {
			return "", err
		}
		if err := os.WriteFile(VenvPython(envDir), []byte("#!stub"), 0755); err != nil {
			return "", err
		}
	}
	return "", nil
}

func testProvisioner(t *testing.T, runner *recordingRunner) *Provisioner {
	t.Helper()
	store := NewStore(vanatest.CreateMigratedTestDB(t))
	return &Provisioner{
		finder: stubFinder(map[string]string{"python3.10": "3.10.12"}),
		store:  store,
		run:    runner.run,
		logger: zap.NewNop().Sugar(),
	}
}

func TestProvisionCreatesVenvAndInstalls(t *testing.T) {
	m := testManifest(t)
	runner := &recordingRunner{}
	p := testProvisioner(t, runner)

	result, err := p.Provision(context.Background(), m, "py310")
	if err != nil {
		t.Fatalf("Provision() failed: %v", err)
	}
	if result.Fresh {
		t.Error("first provision should not report fresh")
	}

	joined := strings.Join(runner.commands, "\n")
	if !strings.Contains(joined, "-m venv") {
		t.Error("expected venv creation command")
	}
	if !strings.Contains(joined, "pip install pytest") {
		t.Errorf("expected deps install, got:\n%s", joined)
	}
	if !strings.Contains(joined, "pip install -e .[all]") {
		t.Errorf("expected editable install with extras, got:\n%s", joined)
	}

	// State recorded
	rec, err := p.store.Get("py310")
	if err != nil {
		t.Fatalf("record not stored: %v", err)
	}
	if rec.InterpreterVersion != "3.10.12" {
		t.Errorf("stored version = %q", rec.InterpreterVersion)
	}
}

func TestProvisionIsIdempotent(t *testing.T) {
	m := testManifest(t)
	runner := &recordingRunner{}
	p := testProvisioner(t, runner)

	if _, err := p.Provision(context.Background(), m, "py310"); err != nil {
		t.Fatalf("first Provision() failed: %v", err)
	}
	firstCount := len(runner.commands)

	result, err := p.Provision(context.Background(), m, "py310")
	if err != nil {
		t.Fatalf("second Provision() failed: %v", err)
	}
	if !result.Fresh {
		t.Error("second provision should report fresh")
	}
	if len(runner.commands) != firstCount {
		t.Errorf("fresh provision ran %d extra commands", len(runner.commands)-firstCount)
	}
}

func TestProvisionRebuildsAfterManifestChange(t *testing.T) {
	m := testManifest(t)
	runner := &recordingRunner{}
	p := testProvisioner(t, runner)

	if _, err := p.Provision(context.Background(), m, "py310"); err != nil {
		t.Fatalf("first Provision() failed: %v", err)
	}

	// Change the extras: hash changes, venv is stale
	env := m.Envs["py310"]
	env.Extras = []string{"chromadb", "snowflake", "openai"}
	m.Envs["py310"] = env

	result, err := p.Provision(context.Background(), m, "py310")
	if err != nil {
		t.Fatalf("second Provision() failed: %v", err)
	}
	if result.Fresh {
		t.Error("changed manifest should force a rebuild")
	}

	joined := strings.Join(runner.commands, "\n")
	if !strings.Contains(joined, "pip install -e .[chromadb,snowflake,openai]") {
		t.Errorf("expected new extras in editable install, got:\n%s", joined)
	}
}

func TestProvisionUnknownEnv(t *testing.T) {
	m := testManifest(t)
	p := testProvisioner(t, &recordingRunner{})

	if _, err := p.Provision(context.Background(), m, "ghost"); err == nil {
		t.Error("expected error for undeclared environment")
	}
}

func TestRemove(t *testing.T) {
	m := testManifest(t)
	runner := &recordingRunner{}
	p := testProvisioner(t, runner)

	if _, err := p.Provision(context.Background(), m, "py310"); err != nil {
		t.Fatalf("Provision() failed: %v", err)
	}

	if err := p.Remove(m, "py310"); err != nil {
		t.Fatalf("Remove() failed: %v", err)
	}

	if _, err := os.Stat(EnvDir(m.Root(), "py310")); !os.IsNotExist(err) {
		t.Error("venv directory should be removed")
	}
	if _, err := p.store.Get("py310"); err == nil {
		t.Error("record should be removed")
	}
}
