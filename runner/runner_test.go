package runner

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"go.uber.org/zap"

	"github.com/chuangyeshuo/vanadev/conf"
	"github.com/chuangyeshuo/vanadev/envfile"
	"github.com/chuangyeshuo/vanadev/pyenv"
)

const runnerManifest = `
[project]
name = "sqlvana"
source_globs = ["src/**/*.py"]

envlist = ["py310", "mac"]

[env.py310]
python = ">=3.10, <3.11"
extras = ["all"]
commands = ["pytest -x tests/", "pytest tests/integration"]

[env.mac]
python = ">=3.10"
platform = "darwin"
commands = ["pytest -x tests/"]
`

func loadTestManifest(t *testing.T, content string) *envfile.Manifest {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, envfile.ManifestName)
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("write manifest: %v", err)
	}
	m, err := envfile.Load(path)
	if err != nil {
		t.Fatalf("load manifest: %v", err)
	}
	return m
}

// stubProvisioner returns a fixed env dir without touching the toolchain
type stubProvisioner struct {
	calls []string
	err   error
}

func (s *stubProvisioner) Provision(ctx context.Context, m *envfile.Manifest, name string) (*pyenv.Result, error) {
	s.calls = append(s.calls, name)
	if s.err != nil {
		return nil, s.err
	}
	return &pyenv.Result{Name: name, EnvDir: pyenv.EnvDir(m.Root(), name)}, nil
}

// scriptedExec maps command prefixes to exit codes; unmatched commands pass
type scriptedExec struct {
	exitCodes map[string]int
	ran       []string
}

func (s *scriptedExec) exec(ctx context.Context, dir string, environ []string, argv []string) (string, int, error) {
	line := strings.Join(argv, " ")
	s.ran = append(s.ran, line)
	for prefix, code := range s.exitCodes {
		if strings.HasPrefix(line, prefix) {
			return "boom", code, nil
		}
	}
	return "ok", 0, nil
}

func testRunner(t *testing.T, m *envfile.Manifest, prov Provisioner, script *scriptedExec, cfg conf.Runner) *Runner {
	t.Helper()
	r := New(m, prov, nil, cfg, zap.NewNop().Sugar())
	r.goos = "linux"
	if script != nil {
		r.exec = script.exec
	}
	return r
}

func TestListEnumeratesEnvlist(t *testing.T) {
	m := loadTestManifest(t, runnerManifest)
	r := testRunner(t, m, &stubProvisioner{}, nil, conf.Runner{})

	infos := r.List()
	if len(infos) != 2 {
		t.Fatalf("expected 2 envs, got %d", len(infos))
	}
	if infos[0].Name != "py310" || infos[1].Name != "mac" {
		t.Errorf("unexpected order: %s, %s", infos[0].Name, infos[1].Name)
	}
	if infos[1].Platform != "darwin" {
		t.Errorf("mac platform = %q", infos[1].Platform)
	}
}

func TestRunAllPassing(t *testing.T) {
	m := loadTestManifest(t, runnerManifest)
	prov := &stubProvisioner{}
	script := &scriptedExec{}
	r := testRunner(t, m, prov, script, conf.Runner{})

	summary, err := r.Run(context.Background(), []string{"py310"})
	if err != nil {
		t.Fatalf("Run() failed: %v", err)
	}

	if !summary.Passed() {
		t.Error("expected passing summary")
	}
	if len(summary.Results) != 1 || summary.Results[0].Status != StatusPassed {
		t.Errorf("unexpected results: %+v", summary.Results)
	}
	if len(summary.Results[0].Commands) != 2 {
		t.Errorf("expected both commands run, got %d", len(summary.Results[0].Commands))
	}
	if len(prov.calls) != 1 || prov.calls[0] != "py310" {
		t.Errorf("provisioner calls: %v", prov.calls)
	}
}

func TestRunSkipsPlatformGatedEnv(t *testing.T) {
	m := loadTestManifest(t, runnerManifest)
	prov := &stubProvisioner{}
	script := &scriptedExec{}
	r := testRunner(t, m, prov, script, conf.Runner{}) // goos=linux

	summary, err := r.Run(context.Background(), nil)
	if err != nil {
		t.Fatalf("Run() failed: %v", err)
	}

	if !summary.Passed() {
		t.Error("skipped env must not fail the run")
	}

	var mac *EnvResult
	for _, res := range summary.Results {
		if res.Name == "mac" {
			mac = res
		}
	}
	if mac == nil || mac.Status != StatusSkipped {
		t.Fatalf("expected mac skipped, got %+v", mac)
	}
	if len(mac.Commands) != 0 {
		t.Error("skipped env must not execute commands")
	}
	// Provisioner never touched for the gated env
	for _, call := range prov.calls {
		if call == "mac" {
			t.Error("skipped env must not be provisioned")
		}
	}

	passed, failed, skipped := summary.Counts()
	if passed != 1 || failed != 0 || skipped != 1 {
		t.Errorf("counts = %d/%d/%d", passed, failed, skipped)
	}
}

func TestRunGatedEnvOnMatchingPlatform(t *testing.T) {
	m := loadTestManifest(t, runnerManifest)
	r := testRunner(t, m, &stubProvisioner{}, &scriptedExec{}, conf.Runner{})
	r.goos = "darwin"

	summary, err := r.Run(context.Background(), []string{"mac"})
	if err != nil {
		t.Fatalf("Run() failed: %v", err)
	}
	if summary.Results[0].Status != StatusPassed {
		t.Errorf("mac on darwin should run and pass, got %s", summary.Results[0].Status)
	}
}

func TestCommandFailureStopsEnv(t *testing.T) {
	m := loadTestManifest(t, runnerManifest)
	script := &scriptedExec{exitCodes: map[string]int{"pytest -x tests/": 1}}
	r := testRunner(t, m, &stubProvisioner{}, script, conf.Runner{})

	summary, err := r.Run(context.Background(), []string{"py310"})
	if err != nil {
		t.Fatalf("Run() failed: %v", err)
	}

	result := summary.Results[0]
	if result.Status != StatusFailed {
		t.Errorf("status = %s, want failed", result.Status)
	}
	// Second command never ran
	if len(result.Commands) != 1 {
		t.Errorf("expected 1 command result, got %d", len(result.Commands))
	}
	if result.Commands[0].ExitCode != 1 {
		t.Errorf("exit code = %d", result.Commands[0].ExitCode)
	}
}

func TestFailureHaltsRemainingEnvs(t *testing.T) {
	manifest := `
[project]
name = "x"
envlist = ["a", "b"]
[env.a]
commands = ["false-cmd"]
[env.b]
commands = ["true-cmd"]
`
	m := loadTestManifest(t, manifest)
	script := &scriptedExec{exitCodes: map[string]int{"false-cmd": 2}}
	r := testRunner(t, m, &stubProvisioner{}, script, conf.Runner{})

	summary, err := r.Run(context.Background(), nil)
	if err != nil {
		t.Fatalf("Run() failed: %v", err)
	}

	if len(summary.Results) != 2 {
		t.Fatalf("expected 2 results, got %d", len(summary.Results))
	}
	if summary.Results[0].Status != StatusFailed {
		t.Errorf("env a status = %s", summary.Results[0].Status)
	}
	if summary.Results[1].Status != StatusError {
		t.Errorf("env b should be reported not-run, got %s", summary.Results[1].Status)
	}
}

func TestKeepGoingRunsRemainingEnvs(t *testing.T) {
	manifest := `
[project]
name = "x"
envlist = ["a", "b"]
[env.a]
commands = ["false-cmd"]
[env.b]
commands = ["true-cmd"]
`
	m := loadTestManifest(t, manifest)
	script := &scriptedExec{exitCodes: map[string]int{"false-cmd": 2}}
	r := testRunner(t, m, &stubProvisioner{}, script, conf.Runner{KeepGoing: true})

	summary, err := r.Run(context.Background(), nil)
	if err != nil {
		t.Fatalf("Run() failed: %v", err)
	}

	if summary.Results[1].Status != StatusPassed {
		t.Errorf("env b should still run with keep_going, got %s", summary.Results[1].Status)
	}
}

func TestProvisionErrorReportsEnvError(t *testing.T) {
	m := loadTestManifest(t, runnerManifest)
	prov := &stubProvisioner{err: os.ErrPermission}
	r := testRunner(t, m, prov, &scriptedExec{}, conf.Runner{})

	summary, err := r.Run(context.Background(), []string{"py310"})
	if err != nil {
		t.Fatalf("Run() failed: %v", err)
	}
	if summary.Results[0].Status != StatusError {
		t.Errorf("status = %s, want error", summary.Results[0].Status)
	}
}

func TestParallelRunCompletesAll(t *testing.T) {
	manifest := `
[project]
name = "x"
envlist = ["a", "b", "c"]
[env.a]
commands = ["cmd-a"]
[env.b]
commands = ["cmd-b"]
[env.c]
commands = ["cmd-c"]
`
	m := loadTestManifest(t, manifest)
	r := testRunner(t, m, &stubProvisioner{}, &scriptedExec{}, conf.Runner{Parallel: 3})

	summary, err := r.Run(context.Background(), nil)
	if err != nil {
		t.Fatalf("Run() failed: %v", err)
	}
	if len(summary.Results) != 3 || !summary.Passed() {
		t.Errorf("expected 3 passing results, got %+v", summary.Results)
	}
}

func TestUnknownEnvSelection(t *testing.T) {
	m := loadTestManifest(t, runnerManifest)
	r := testRunner(t, m, &stubProvisioner{}, nil, conf.Runner{})

	if _, err := r.Run(context.Background(), []string{"py39"}); err == nil {
		t.Error("expected error for unknown env selection")
	}
}
