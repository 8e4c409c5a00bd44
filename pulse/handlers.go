// Package pulse wires the background job infrastructure to the project's
// domain: handlers for environment provisioning and matrix runs, plus the
// recurring-run scheduler.
package pulse

import (
	"context"
	"encoding/json"
	"strings"

	"go.uber.org/zap"

	"github.com/chuangyeshuo/vanadev/conf"
	"github.com/chuangyeshuo/vanadev/envfile"
	"github.com/chuangyeshuo/vanadev/errors"
	"github.com/chuangyeshuo/vanadev/pulse/async"
	"github.com/chuangyeshuo/vanadev/runner"
)

// Handler names routed through the registry
const (
	HandlerProvision = "env.provision"
	HandlerTestEnv   = "runner.test-env"
)

// ProvisionPayload is the payload for env.provision jobs
type ProvisionPayload struct {
	ManifestPath string `json:"manifest_path"`
	Env          string `json:"env"`
}

// ProvisionHandler provisions one environment in the background
type ProvisionHandler struct {
	provisioner runner.Provisioner
	logger      *zap.SugaredLogger
}

// NewProvisionHandler creates the env.provision handler
func NewProvisionHandler(provisioner runner.Provisioner, logger *zap.SugaredLogger) *ProvisionHandler {
	return &ProvisionHandler{
		provisioner: provisioner,
		logger:      logger.Named("pulse.provision"),
	}
}

// Name implements async.JobHandler
func (h *ProvisionHandler) Name() string {
	return HandlerProvision
}

// Execute implements async.JobHandler
func (h *ProvisionHandler) Execute(ctx context.Context, job *async.Job) error {
	var payload ProvisionPayload
	if err := json.Unmarshal(job.Payload, &payload); err != nil {
		return errors.Wrap(err, "decode provision payload")
	}

	manifest, err := envfile.Load(payload.ManifestPath)
	if err != nil {
		return err
	}

	result, err := h.provisioner.Provision(ctx, manifest, payload.Env)
	if err != nil {
		return err
	}

	job.UpdateProgress(job.Progress.Total)
	h.logger.Infow("Environment provisioned",
		"env", payload.Env,
		"fresh", result.Fresh,
	)
	return nil
}

// TestEnvPayload is the payload for runner.test-env jobs.
// Empty Envs means the full envlist.
type TestEnvPayload struct {
	ManifestPath string   `json:"manifest_path"`
	Envs         []string `json:"envs,omitempty"`
}

// TestEnvHandler runs test environments in the background
type TestEnvHandler struct {
	provisioner runner.Provisioner
	history     *runner.HistoryStore
	cfg         conf.Runner
	logger      *zap.SugaredLogger
}

// NewTestEnvHandler creates the runner.test-env handler
func NewTestEnvHandler(provisioner runner.Provisioner, history *runner.HistoryStore, cfg conf.Runner, logger *zap.SugaredLogger) *TestEnvHandler {
	return &TestEnvHandler{
		provisioner: provisioner,
		history:     history,
		cfg:         cfg,
		logger:      logger,
	}
}

// Name implements async.JobHandler
func (h *TestEnvHandler) Name() string {
	return HandlerTestEnv
}

// Execute implements async.JobHandler
func (h *TestEnvHandler) Execute(ctx context.Context, job *async.Job) error {
	var payload TestEnvPayload
	if err := json.Unmarshal(job.Payload, &payload); err != nil {
		return errors.Wrap(err, "decode test-env payload")
	}

	manifest, err := envfile.Load(payload.ManifestPath)
	if err != nil {
		return err
	}

	r := runner.New(manifest, h.provisioner, h.history, h.cfg, h.logger)
	summary, err := r.Run(ctx, payload.Envs)
	if err != nil {
		return err
	}

	passed, failed, skipped := summary.Counts()
	job.UpdateProgress(len(summary.Results))

	if !summary.Passed() {
		var failures []string
		for _, res := range summary.Results {
			if res.Failed() {
				failures = append(failures, res.Name)
			}
		}
		return errors.Newf("%d environment(s) failed: %s", failed, strings.Join(failures, ", "))
	}

	h.logger.Infow("Matrix run completed",
		"passed", passed,
		"skipped", skipped,
	)
	return nil
}

// RegisterHandlers registers the domain handlers on a registry
func RegisterHandlers(registry *async.HandlerRegistry, provisioner runner.Provisioner, history *runner.HistoryStore, cfg conf.Runner, logger *zap.SugaredLogger) {
	registry.Register(NewProvisionHandler(provisioner, logger))
	registry.Register(NewTestEnvHandler(provisioner, history, cfg, logger))
}
