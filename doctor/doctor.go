// Package doctor diagnoses the contributor environment: interpreters,
// repository state, hook installation, and host resource headroom.
package doctor

import (
	"context"
	"os"
	"path/filepath"

	"github.com/dustin/go-humanize"
	"github.com/go-git/go-git/v5"
	"github.com/shirou/gopsutil/v3/disk"
	"github.com/shirou/gopsutil/v3/mem"
	"go.uber.org/zap"

	"github.com/chuangyeshuo/vanadev/envfile"
	"github.com/chuangyeshuo/vanadev/hooks"
	"github.com/chuangyeshuo/vanadev/pyenv"
)

// Status grades one check's outcome
type Status string

const (
	StatusOK   Status = "ok"
	StatusWarn Status = "warn"
	StatusFail Status = "fail"
)

// Check is one diagnostic result
type Check struct {
	Name   string
	Status Status
	Detail string
}

// Report is the full diagnostic run
type Report struct {
	Checks []Check
}

// Healthy reports whether no check failed
func (r *Report) Healthy() bool {
	for _, c := range r.Checks {
		if c.Status == StatusFail {
			return false
		}
	}
	return true
}

// Headroom thresholds below which resource checks warn
const (
	minFreeMemory = 1 << 30 // 1 GiB
	minFreeDisk   = 2 << 30 // 2 GiB
)

// Doctor runs the diagnostic checks
type Doctor struct {
	root   string
	finder *pyenv.Finder
	logger *zap.SugaredLogger

	// probes injectable for tests
	virtualMemory func() (*mem.VirtualMemoryStat, error)
	diskUsage     func(path string) (*disk.UsageStat, error)
}

// New creates a doctor for the project root
func New(root string, logger *zap.SugaredLogger) *Doctor {
	return &Doctor{
		root:          root,
		finder:        pyenv.NewFinder(),
		logger:        logger.Named("doctor"),
		virtualMemory: mem.VirtualMemory,
		diskUsage:     disk.Usage,
	}
}

// Run executes every check and returns the report
func (d *Doctor) Run(ctx context.Context) *Report {
	report := &Report{}
	report.Checks = append(report.Checks, d.checkRepository())
	report.Checks = append(report.Checks, d.checkManifest(ctx)...)
	report.Checks = append(report.Checks, d.checkHooks())
	report.Checks = append(report.Checks, d.checkMemory())
	report.Checks = append(report.Checks, d.checkDisk())

	for _, c := range report.Checks {
		if c.Status != StatusOK {
			d.logger.Warnw("Diagnostic check not ok",
				"check", c.Name,
				"status", string(c.Status),
				"detail", c.Detail,
			)
		}
	}
	return report
}

func (d *Doctor) checkRepository() Check {
	if _, err := git.PlainOpen(d.root); err != nil {
		return Check{
			Name:   "git repository",
			Status: StatusFail,
			Detail: d.root + " is not a git repository",
		}
	}
	return Check{Name: "git repository", Status: StatusOK, Detail: d.root}
}

// checkManifest verifies the env manifest loads and each environment's
// interpreter constraint is satisfiable on this host
func (d *Doctor) checkManifest(ctx context.Context) []Check {
	manifestPath := filepath.Join(d.root, envfile.ManifestName)
	manifest, err := envfile.Load(manifestPath)
	if err != nil {
		return []Check{{
			Name:   "manifest " + envfile.ManifestName,
			Status: StatusFail,
			Detail: err.Error(),
		}}
	}

	checks := []Check{{
		Name:   "manifest " + envfile.ManifestName,
		Status: StatusOK,
		Detail: manifest.PackageName(),
	}}

	for _, name := range manifest.EnvList {
		env := manifest.Envs[name]
		check := Check{Name: "interpreter for " + name}
		interp, err := d.finder.Find(ctx, env.Python)
		switch {
		case err == nil:
			check.Status = StatusOK
			check.Detail = interp.Path + " (" + interp.Version.String() + ")"
		case env.Platform != "":
			// Gated envs may legitimately lack an interpreter here
			check.Status = StatusWarn
			check.Detail = "not found (env gated to " + env.Platform + ")"
		default:
			check.Status = StatusFail
			check.Detail = "no interpreter satisfies " + env.Python
		}
		checks = append(checks, check)
	}
	return checks
}

func (d *Doctor) checkHooks() Check {
	manifestPath := filepath.Join(d.root, hooks.ManifestName)
	if _, err := os.Stat(manifestPath); os.IsNotExist(err) {
		return Check{
			Name:   "pre-commit hooks",
			Status: StatusWarn,
			Detail: hooks.ManifestName + " not found",
		}
	}
	if _, err := hooks.Load(manifestPath); err != nil {
		return Check{Name: "pre-commit hooks", Status: StatusFail, Detail: err.Error()}
	}
	if !hooks.Installed(d.root) {
		return Check{
			Name:   "pre-commit hooks",
			Status: StatusWarn,
			Detail: "manifest present but hook not installed",
		}
	}
	return Check{Name: "pre-commit hooks", Status: StatusOK, Detail: "installed"}
}

func (d *Doctor) checkMemory() Check {
	stat, err := d.virtualMemory()
	if err != nil {
		return Check{Name: "memory", Status: StatusWarn, Detail: err.Error()}
	}

	detail := humanize.IBytes(stat.Available) + " available of " + humanize.IBytes(stat.Total)
	if stat.Available < minFreeMemory {
		return Check{Name: "memory", Status: StatusWarn, Detail: detail}
	}
	return Check{Name: "memory", Status: StatusOK, Detail: detail}
}

func (d *Doctor) checkDisk() Check {
	stat, err := d.diskUsage(d.root)
	if err != nil {
		return Check{Name: "disk", Status: StatusWarn, Detail: err.Error()}
	}

	detail := humanize.IBytes(stat.Free) + " free of " + humanize.IBytes(stat.Total)
	if stat.Free < minFreeDisk {
		return Check{Name: "disk", Status: StatusWarn, Detail: detail}
	}
	return Check{Name: "disk", Status: StatusOK, Detail: detail}
}
