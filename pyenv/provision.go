package pyenv

import (
	"context"
	"os"
	"time"

	"go.uber.org/zap"

	"github.com/chuangyeshuo/vanadev/envfile"
	"github.com/chuangyeshuo/vanadev/errors"
)

// Provisioner creates and refreshes virtualenvs for declared environments
type Provisioner struct {
	finder *Finder
	store  *Store
	run    runCommand
	logger *zap.SugaredLogger
}

// NewProvisioner creates a provisioner backed by the real toolchain
func NewProvisioner(store *Store, logger *zap.SugaredLogger) *Provisioner {
	return &Provisioner{
		finder: NewFinder(),
		store:  store,
		run:    realRunCommand,
		logger: logger.Named("pyenv"),
	}
}

// Result describes the outcome of a provision call
type Result struct {
	Name        string
	EnvDir      string
	Interpreter *Interpreter
	// Fresh is true when the existing venv was already up to date and no
	// work was performed.
	Fresh bool
}

// Provision ensures the named environment's virtualenv exists and matches
// its manifest declaration. Re-running against an up-to-date venv only
// performs a freshness check.
func (p *Provisioner) Provision(ctx context.Context, m *envfile.Manifest, name string) (*Result, error) {
	env, err := m.Env(name)
	if err != nil {
		return nil, err
	}

	hash, err := m.Hash(name)
	if err != nil {
		return nil, err
	}

	envDir := EnvDir(m.Root(), name)

	// Freshness check: existing record with matching hash and intact venv
	if rec, err := p.store.Get(name); err == nil {
		if rec.ManifestHash == hash {
			if _, statErr := os.Stat(VenvPython(envDir)); statErr == nil {
				p.logger.Debugw("Environment up to date",
					"env", name,
					"path", envDir,
				)
				version, _ := ParseVersionOutput("Python " + rec.InterpreterVersion)
				return &Result{
					Name:        name,
					EnvDir:      envDir,
					Interpreter: &Interpreter{Path: rec.Interpreter, Version: version},
					Fresh:       true,
				}, nil
			}
		}
	} else if !errors.IsNotFoundError(err) {
		return nil, err
	}

	p.logger.Infow("Provisioning environment",
		"env", name,
		"python", env.Python,
	)
	start := time.Now()

	interpreter, err := p.finder.Find(ctx, env.Python)
	if err != nil {
		return nil, err
	}
	p.logger.Debugw("Interpreter selected",
		"env", name,
		"path", interpreter.Path,
		"version", interpreter.Version.String(),
	)

	if err := p.createVenv(ctx, interpreter, envDir); err != nil {
		return nil, err
	}

	if err := p.installDeps(ctx, m.Root(), envDir, env.Deps, p.logger); err != nil {
		return nil, err
	}

	if !env.SkipInstall {
		if err := p.installEditable(ctx, m.Root(), envDir, env.Extras, p.logger); err != nil {
			return nil, err
		}
	}

	now := time.Now()
	rec := &Record{
		Name:               name,
		Path:               envDir,
		Interpreter:        interpreter.Path,
		InterpreterVersion: interpreter.Version.String(),
		Extras:             env.Extras,
		ManifestHash:       hash,
		ProvisionedAt:      now,
		UpdatedAt:          now,
	}
	if err := p.store.Upsert(rec); err != nil {
		return nil, err
	}

	p.logger.Infow("Environment provisioned",
		"env", name,
		"duration_ms", time.Since(start).Milliseconds(),
	)

	return &Result{
		Name:        name,
		EnvDir:      envDir,
		Interpreter: interpreter,
	}, nil
}

// Remove deletes an environment's virtualenv and its record
func (p *Provisioner) Remove(m *envfile.Manifest, name string) error {
	if _, err := m.Env(name); err != nil {
		return err
	}

	envDir := EnvDir(m.Root(), name)
	if err := os.RemoveAll(envDir); err != nil {
		return errors.Wrapf(err, "remove venv %s", envDir)
	}
	if err := p.store.Delete(name); err != nil {
		return err
	}

	p.logger.Infow("Environment removed",
		"env", name,
	)
	return nil
}
