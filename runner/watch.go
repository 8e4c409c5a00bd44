package runner

import (
	"context"
	"io/fs"
	"path/filepath"
	"strings"
	"time"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/fsnotify/fsnotify"
	"golang.org/x/time/rate"

	"github.com/chuangyeshuo/vanadev/conf"
	"github.com/chuangyeshuo/vanadev/errors"
)

// Watcher re-runs environments when project source files change
type Watcher struct {
	runner   *Runner
	names    []string
	globs    []string
	debounce time.Duration
	limiter  *rate.Limiter

	// OnRun is called after each completed run with its summary
	OnRun func(*Summary)
}

// NewWatcher creates a watch-mode runner for the given env selection.
// Source globs come from the manifest's project.source_globs.
func NewWatcher(r *Runner, names []string, cfg conf.Runner) *Watcher {
	globs := r.manifest.Project.SourceGlobs
	if len(globs) == 0 {
		globs = []string{"**/*.py"}
	}

	perMinute := cfg.WatchRunsPerMinute
	if perMinute <= 0 {
		perMinute = 6
	}

	return &Watcher{
		runner:   r,
		names:    names,
		globs:    globs,
		debounce: time.Duration(cfg.WatchDebounceMS) * time.Millisecond,
		limiter:  rate.NewLimiter(rate.Limit(perMinute/60.0), 1),
	}
}

// matches reports whether a changed path matches any source glob
func (w *Watcher) matches(path string) bool {
	rel, err := filepath.Rel(w.runner.manifest.Root(), path)
	if err != nil {
		return false
	}
	rel = filepath.ToSlash(rel)

	// Never react to our own state directory
	if strings.HasPrefix(rel, ".vanadev/") {
		return false
	}

	for _, glob := range w.globs {
		if ok, _ := doublestar.Match(glob, rel); ok {
			return true
		}
	}
	return false
}

// watchDirs returns the project directories to register with fsnotify.
// fsnotify watches directories, not globs, so every non-hidden directory
// under the root is registered.
func (w *Watcher) watchDirs() ([]string, error) {
	root := w.runner.manifest.Root()
	var dirs []string

	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() {
			return nil
		}
		name := d.Name()
		if path != root && (strings.HasPrefix(name, ".") || name == "__pycache__") {
			return filepath.SkipDir
		}
		dirs = append(dirs, path)
		return nil
	})
	if err != nil {
		return nil, errors.Wrap(err, "walk project tree")
	}
	return dirs, nil
}

// Watch runs an initial pass, then blocks re-running on source changes
// until the context is cancelled.
func (w *Watcher) Watch(ctx context.Context) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return errors.Wrap(err, "create fsnotify watcher")
	}
	defer watcher.Close()

	dirs, err := w.watchDirs()
	if err != nil {
		return err
	}
	for _, dir := range dirs {
		if err := watcher.Add(dir); err != nil {
			return errors.Wrapf(err, "watch %s", dir)
		}
	}

	w.runner.logger.Infow("Watch mode started",
		"dirs", len(dirs),
		"globs", strings.Join(w.globs, ","),
	)

	// Initial run before waiting for changes
	if err := w.runOnce(ctx); err != nil {
		return err
	}

	var debounceTimer *time.Timer
	pending := make(chan struct{}, 1)

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()

		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Remove|fsnotify.Rename) == 0 {
				continue
			}
			if !w.matches(event.Name) {
				continue
			}

			w.runner.logger.Debugw("Source change detected",
				"path", event.Name,
				"op", event.Op.String(),
			)

			// Debounce rapid editor writes into one trigger
			if debounceTimer != nil {
				debounceTimer.Stop()
			}
			debounceTimer = time.AfterFunc(w.debounce, func() {
				select {
				case pending <- struct{}{}:
				default:
				}
			})

		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			w.runner.logger.Warnw("Watcher error",
				"error", err,
			)

		case <-pending:
			if err := w.runOnce(ctx); err != nil {
				return err
			}
		}
	}
}

// runOnce waits for rate-limit headroom, then runs the selection
func (w *Watcher) runOnce(ctx context.Context) error {
	if err := w.limiter.Wait(ctx); err != nil {
		return err
	}

	summary, err := w.runner.Run(ctx, w.names)
	if err != nil {
		return err
	}
	if w.OnRun != nil {
		w.OnRun(summary)
	}
	return nil
}
