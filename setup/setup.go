// Package setup implements one-shot contributor onboarding: resolve the
// repository (clone if remote), write starter manifests, provision the
// default environment, and install the pre-commit hook.
package setup

import (
	"context"
	"os"
	"path/filepath"
	"strings"

	"github.com/go-git/go-git/v5"
	"go.uber.org/zap"

	"github.com/chuangyeshuo/vanadev/envfile"
	"github.com/chuangyeshuo/vanadev/errors"
	"github.com/chuangyeshuo/vanadev/hooks"
	"github.com/chuangyeshuo/vanadev/pyenv"
)

// IsRepoURL checks if the input looks like a git repository URL rather than
// a local path.
func IsRepoURL(input string) bool {
	if strings.HasPrefix(input, "https://") || strings.HasPrefix(input, "http://") {
		return true
	}
	if strings.HasPrefix(input, "git@") {
		return true
	}
	return strings.HasPrefix(input, "git://")
}

// RepoName extracts a directory name from a repository URL or path
func RepoName(input string) string {
	input = strings.TrimSuffix(strings.TrimSuffix(input, "/"), ".git")
	if idx := strings.LastIndexAny(input, "/:"); idx != -1 {
		input = input[idx+1:]
	}
	return input
}

// Options controls a setup run
type Options struct {
	// Source is a repository URL or local working copy path
	Source string
	// Dir is the clone destination for remote sources; defaults to the
	// repo name under the current directory
	Dir string
	// Env is the environment to provision; empty means the manifest's
	// first envlist entry
	Env string
	// SkipHooks leaves the pre-commit hook uninstalled
	SkipHooks bool
}

// Result reports what setup did
type Result struct {
	Root       string
	Cloned     bool
	EnvName    string
	EnvDir     string
	EnvFresh   bool
	HookPath   string
	HookActive bool
}

// Provisioner is the slice of pyenv setup needs.
// Satisfied by *pyenv.Provisioner.
type Provisioner interface {
	Provision(ctx context.Context, m *envfile.Manifest, name string) (*pyenv.Result, error)
}

// Setup orchestrates onboarding
type Setup struct {
	provisioner Provisioner
	logger      *zap.SugaredLogger

	// clone is injectable for tests
	clone func(ctx context.Context, url, dir string) error
}

// New creates a setup orchestrator
func New(provisioner Provisioner, logger *zap.SugaredLogger) *Setup {
	return &Setup{
		provisioner: provisioner,
		logger:      logger.Named("setup"),
		clone:       realClone,
	}
}

func realClone(ctx context.Context, url, dir string) error {
	_, err := git.PlainCloneContext(ctx, dir, false, &git.CloneOptions{
		URL: url,
	})
	return errors.Wrapf(err, "clone %s", url)
}

// Run performs the onboarding flow. Each step is idempotent so a failed
// setup can be re-run.
func (s *Setup) Run(ctx context.Context, opts Options) (*Result, error) {
	result := &Result{}

	root, cloned, err := s.resolveSource(ctx, opts)
	if err != nil {
		return nil, err
	}
	result.Root = root
	result.Cloned = cloned

	// Ensure the environment manifest exists
	manifestPath := filepath.Join(root, envfile.ManifestName)
	if _, err := os.Stat(manifestPath); os.IsNotExist(err) {
		s.logger.Infow("Writing starter manifest",
			"path", manifestPath,
		)
		if _, err := envfile.Init(root); err != nil {
			return nil, err
		}
	}
	manifest, err := envfile.Load(manifestPath)
	if err != nil {
		return nil, err
	}

	envName := opts.Env
	if envName == "" {
		if len(manifest.EnvList) == 0 {
			return nil, errors.New("manifest declares no environments")
		}
		envName = manifest.EnvList[0]
	}

	provisioned, err := s.provisioner.Provision(ctx, manifest, envName)
	if err != nil {
		return nil, err
	}
	result.EnvName = envName
	result.EnvDir = provisioned.EnvDir
	result.EnvFresh = provisioned.Fresh

	if !opts.SkipHooks {
		hooksManifest := filepath.Join(root, hooks.ManifestName)
		if _, err := os.Stat(hooksManifest); os.IsNotExist(err) {
			if err := hooks.Init(hooksManifest); err != nil {
				return nil, err
			}
		}
		hookPath, err := hooks.Install(root)
		if err != nil {
			return nil, err
		}
		result.HookPath = hookPath
		result.HookActive = true
	}

	s.logger.Infow("Setup complete",
		"root", root,
		"env", envName,
		"hooks", result.HookActive,
	)
	return result, nil
}

// resolveSource turns the source into a local working copy root
func (s *Setup) resolveSource(ctx context.Context, opts Options) (root string, cloned bool, err error) {
	if !IsRepoURL(opts.Source) {
		abs, err := filepath.Abs(opts.Source)
		if err != nil {
			return "", false, errors.Wrap(err, "resolve source path")
		}
		if _, err := git.PlainOpen(abs); err != nil {
			if errors.Is(err, git.ErrRepositoryNotExists) {
				return "", false, errors.Wrapf(errors.ErrNotARepository, "%s", abs)
			}
			return "", false, errors.Wrap(err, "open repository")
		}
		return abs, false, nil
	}

	dir := opts.Dir
	if dir == "" {
		dir = RepoName(opts.Source)
	}
	abs, err := filepath.Abs(dir)
	if err != nil {
		return "", false, errors.Wrap(err, "resolve clone destination")
	}

	// An existing clone is reused, not overwritten
	if _, err := git.PlainOpen(abs); err == nil {
		s.logger.Infow("Reusing existing clone",
			"path", abs,
		)
		return abs, false, nil
	}

	s.logger.Infow("Cloning repository",
		"url", opts.Source,
		"destination", abs,
	)
	if err := s.clone(ctx, opts.Source, abs); err != nil {
		os.RemoveAll(abs)
		return "", false, err
	}
	return abs, true, nil
}
