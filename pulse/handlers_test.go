package pulse

import (
	"context"
	"encoding/json"
	"runtime"
	"testing"

	"go.uber.org/zap"

	"github.com/chuangyeshuo/vanadev/conf"
	"github.com/chuangyeshuo/vanadev/envfile"
	"github.com/chuangyeshuo/vanadev/errors"
	"github.com/chuangyeshuo/vanadev/pulse/async"
	"github.com/chuangyeshuo/vanadev/pyenv"
)

type stubProvisioner struct {
	calls []string
	err   error
}

func (s *stubProvisioner) Provision(ctx context.Context, m *envfile.Manifest, name string) (*pyenv.Result, error) {
	s.calls = append(s.calls, name)
	if s.err != nil {
		return nil, s.err
	}
	return &pyenv.Result{Name: name, EnvDir: pyenv.EnvDir(m.Root(), name), Fresh: true}, nil
}

func writeManifest(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	path, err := envfile.Init(dir)
	if err != nil {
		t.Fatalf("init manifest: %v", err)
	}
	return path
}

func TestProvisionHandler(t *testing.T) {
	prov := &stubProvisioner{}
	handler := NewProvisionHandler(prov, zap.NewNop().Sugar())

	if handler.Name() != HandlerProvision {
		t.Errorf("Name() = %q", handler.Name())
	}

	payload, _ := json.Marshal(ProvisionPayload{
		ManifestPath: writeManifest(t),
		Env:          "py310",
	})
	job, _ := async.NewJob(HandlerProvision, "test", payload, 1)

	if err := handler.Execute(context.Background(), job); err != nil {
		t.Fatalf("Execute() failed: %v", err)
	}
	if len(prov.calls) != 1 || prov.calls[0] != "py310" {
		t.Errorf("provisioner calls = %v", prov.calls)
	}
	if job.Progress.Current != 1 {
		t.Errorf("progress = %d", job.Progress.Current)
	}
}

func TestProvisionHandlerBadPayload(t *testing.T) {
	handler := NewProvisionHandler(&stubProvisioner{}, zap.NewNop().Sugar())
	job, _ := async.NewJob(HandlerProvision, "test", json.RawMessage(`{`), 0)

	if err := handler.Execute(context.Background(), job); err == nil {
		t.Error("expected decode error")
	}
}

func TestProvisionHandlerPropagatesError(t *testing.T) {
	prov := &stubProvisioner{err: errors.ErrInterpreterNotFound}
	handler := NewProvisionHandler(prov, zap.NewNop().Sugar())

	payload, _ := json.Marshal(ProvisionPayload{
		ManifestPath: writeManifest(t),
		Env:          "py310",
	})
	job, _ := async.NewJob(HandlerProvision, "test", payload, 1)

	if err := handler.Execute(context.Background(), job); !errors.Is(err, errors.ErrInterpreterNotFound) {
		t.Errorf("expected ErrInterpreterNotFound, got %v", err)
	}
}

func TestTestEnvHandlerRunsMatrix(t *testing.T) {
	// The starter manifest's py310 env runs pytest; stub the matrix by
	// selecting the platform-gated mac env on the wrong platform, which
	// skips without executing commands.
	prov := &stubProvisioner{}
	handler := NewTestEnvHandler(prov, nil, conf.Runner{}, zap.NewNop().Sugar())

	if handler.Name() != HandlerTestEnv {
		t.Errorf("Name() = %q", handler.Name())
	}

	if runtime.GOOS == "darwin" {
		t.Skip("mac env would execute for real on darwin")
	}
	payload, _ := json.Marshal(TestEnvPayload{
		ManifestPath: writeManifest(t),
		Envs:         []string{"mac"},
	})
	job, _ := async.NewJob(HandlerTestEnv, "test", payload, 1)

	if err := handler.Execute(context.Background(), job); err != nil {
		t.Fatalf("Execute() failed: %v", err)
	}
	if len(prov.calls) != 0 {
		t.Errorf("skipped env should not provision, calls = %v", prov.calls)
	}
}

func TestRegisterHandlers(t *testing.T) {
	registry := async.NewHandlerRegistry()
	RegisterHandlers(registry, &stubProvisioner{}, nil, conf.Runner{}, zap.NewNop().Sugar())

	if !registry.Has(HandlerProvision) || !registry.Has(HandlerTestEnv) {
		t.Errorf("registered handlers = %v", registry.Names())
	}
}
