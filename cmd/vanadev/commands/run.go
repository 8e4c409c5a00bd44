package commands

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/pterm/pterm"
	"github.com/spf13/cobra"

	"github.com/chuangyeshuo/vanadev/conf"
	"github.com/chuangyeshuo/vanadev/errors"
	"github.com/chuangyeshuo/vanadev/logger"
	"github.com/chuangyeshuo/vanadev/pulse"
	"github.com/chuangyeshuo/vanadev/pulse/async"
	"github.com/chuangyeshuo/vanadev/pyenv"
	"github.com/chuangyeshuo/vanadev/runner"
)

// RunCmd executes the test environment matrix
var RunCmd = &cobra.Command{
	Use:   "run",
	Short: "Run the project's test environments",
	Long: `Run the test environments declared in vanadev.toml.

Without -e the full envlist runs in declaration order. Platform-gated
environments are skipped on non-matching hosts and do not fail the run.

Examples:
  vanadev run                    # full matrix
  vanadev run -e py310           # one environment
  vanadev run -e py310 --watch   # re-run on source changes
  vanadev run --background       # enqueue as a daemon job`,
	RunE: runRun,
}

var (
	runEnvsFlag       []string
	runWatchFlag      bool
	runKeepGoingFlag  bool
	runParallelFlag   int
	runBackgroundFlag bool
)

func init() {
	RunCmd.Flags().StringSliceVarP(&runEnvsFlag, "env", "e", nil, "Environments to run (default: full envlist)")
	RunCmd.Flags().BoolVar(&runWatchFlag, "watch", false, "Re-run on source file changes")
	RunCmd.Flags().BoolVar(&runKeepGoingFlag, "keep-going", false, "Run remaining environments after a failure")
	RunCmd.Flags().IntVar(&runParallelFlag, "parallel", 0, "Environments to run concurrently (default: config)")
	RunCmd.Flags().BoolVar(&runBackgroundFlag, "background", false, "Enqueue the run for the daemon instead of running inline")
}

func runRun(cmd *cobra.Command, args []string) error {
	cfg, err := conf.Load()
	if err != nil {
		return err
	}
	if runKeepGoingFlag {
		cfg.Runner.KeepGoing = true
	}
	if runParallelFlag > 0 {
		cfg.Runner.Parallel = runParallelFlag
	}

	manifest, err := findManifest()
	if err != nil {
		return err
	}
	database, err := openDatabase(cfg, manifest.Root())
	if err != nil {
		return err
	}
	defer database.Close()

	if runBackgroundFlag {
		if runWatchFlag {
			return errors.New("--watch and --background are mutually exclusive")
		}
		return enqueueRun(database, manifest.Path)
	}

	provisioner := pyenv.NewProvisioner(pyenv.NewStore(database), logger.Logger)
	history := runner.NewHistoryStore(database)
	r := runner.New(manifest, provisioner, history, cfg.Runner, logger.Logger)

	if runWatchFlag {
		fmt.Println("Watching source files; Ctrl+C to stop")
		w := runner.NewWatcher(r, runEnvsFlag, cfg.Runner)
		return w.Watch(cmd.Context())
	}

	summary, err := r.Run(cmd.Context(), runEnvsFlag)
	if err != nil {
		return err
	}
	renderSummary(summary)

	if !summary.Passed() {
		_, failed, _ := summary.Counts()
		return errors.Newf("%d environment(s) failed", failed)
	}
	return nil
}

// enqueueRun hands the matrix run to the daemon as a runner.test-env job
func enqueueRun(database *sql.DB, manifestPath string) error {
	payload, err := json.Marshal(pulse.TestEnvPayload{
		ManifestPath: manifestPath,
		Envs:         runEnvsFlag,
	})
	if err != nil {
		return errors.Wrap(err, "encode job payload")
	}
	job, err := async.NewJob(pulse.HandlerTestEnv, "cli", payload, len(runEnvsFlag))
	if err != nil {
		return err
	}
	if err := async.NewQueue(database).Enqueue(job); err != nil {
		return err
	}
	fmt.Printf("Run enqueued as job %s (start the daemon with: vanadev daemon)\n", job.ID)
	return nil
}

// renderSummary prints one row per environment plus totals
func renderSummary(summary *runner.Summary) {
	rows := pterm.TableData{{"ENV", "STATUS", "DURATION", "DETAIL"}}
	for _, result := range summary.Results {
		detail := result.Reason
		if detail == "" && len(result.Commands) > 0 {
			detail = fmt.Sprintf("%d command(s)", len(result.Commands))
		}
		rows = append(rows, []string{
			result.Name,
			summaryStatusLabel(result.Status),
			result.Duration.Round(time.Millisecond).String(),
			detail,
		})
	}
	pterm.DefaultTable.WithHasHeader().WithData(rows).Render()

	passed, failed, skipped := summary.Counts()
	fmt.Printf("\n%d passed, %d failed, %d skipped\n", passed, failed, skipped)
}

func summaryStatusLabel(status runner.Status) string {
	switch status {
	case runner.StatusPassed:
		return pterm.Green(string(status))
	case runner.StatusSkipped:
		return pterm.Yellow(string(status))
	default:
		return pterm.Red(string(status))
	}
}
