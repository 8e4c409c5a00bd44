package vcsspec

// Spec resolution via hashicorp/go-getter. Used by the checklist --verify
// flag to confirm the branch in a rewritten install command actually exists
// before a reviewer wastes time on a dead notebook.

import (
	"context"
	"fmt"
	"os"

	"github.com/hashicorp/go-getter"
	"go.uber.org/zap"

	"github.com/chuangyeshuo/vanadev/errors"
)

// Resolved is a spec fetched to a local directory
type Resolved struct {
	// Spec is the source spec
	Spec *Spec
	// LocalPath is the directory the repository was fetched into
	LocalPath string
	// cleanup removes the temporary fetch directory
	cleanup func()
}

// Cleanup removes the temporary resources for this resolution.
// Safe to call multiple times.
func (r *Resolved) Cleanup() {
	if r.cleanup != nil {
		r.cleanup()
		r.cleanup = nil
	}
}

// Resolve fetches the spec's repository at its ref into a temporary
// directory. A failed fetch means the URL or ref is wrong.
func Resolve(ctx context.Context, spec *Spec, logger *zap.SugaredLogger) (*Resolved, error) {
	tempDir, err := os.MkdirTemp("", "vanadev-spec-*")
	if err != nil {
		return nil, errors.Wrap(err, "create temp directory for spec fetch")
	}
	cleanup := func() { os.RemoveAll(tempDir) }

	// go-getter git source with an explicit ref query
	src := "git::" + spec.URL
	if spec.Ref != "" {
		src = fmt.Sprintf("%s?ref=%s", src, spec.Ref)
	}

	logger.Debugw("Fetching install spec source",
		"spec", spec.String(),
		"source", src,
		"dest", tempDir,
	)

	client := &getter.Client{
		Ctx:  ctx,
		Src:  src,
		Dst:  tempDir,
		Mode: getter.ClientModeDir,
	}

	if err := client.Get(); err != nil {
		cleanup()
		return nil, errors.WithHintf(
			errors.Wrapf(err, "fetch %s", spec.String()),
			"check that branch %q exists on %s", spec.Ref, spec.URL)
	}

	logger.Infow("Install spec resolved",
		"spec", spec.String(),
		"path", tempDir,
	)

	return &Resolved{
		Spec:      spec,
		LocalPath: tempDir,
		cleanup:   cleanup,
	}, nil
}
