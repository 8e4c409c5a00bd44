package commands

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/chuangyeshuo/vanadev/conf"
	"github.com/chuangyeshuo/vanadev/logger"
	"github.com/chuangyeshuo/vanadev/pulse"
	"github.com/chuangyeshuo/vanadev/pulse/async"
	"github.com/chuangyeshuo/vanadev/pulse/schedule"
	"github.com/chuangyeshuo/vanadev/pyenv"
	"github.com/chuangyeshuo/vanadev/runner"
)

// DaemonCmd runs the background job processor in the foreground
var DaemonCmd = &cobra.Command{
	Use:   "daemon",
	Short: "Process background jobs and recurring runs",
	Long: `Run the background job processor in the foreground.

The daemon drains the job queue with a worker pool (environment provisioning
and matrix runs enqueued with --background) and enqueues recurring runs when
they come due. Jobs left running by a previous daemon are requeued on start.

Shutdown is graceful: Ctrl+C stops intake and waits for in-flight jobs.

Examples:
  vanadev daemon
  vanadev daemon --workers 2`,
	RunE: runDaemon,
}

var daemonWorkersFlag int

func init() {
	DaemonCmd.Flags().IntVar(&daemonWorkersFlag, "workers", 0, "Concurrent job workers (default: config)")
}

func runDaemon(cmd *cobra.Command, args []string) error {
	cfg, err := conf.Load()
	if err != nil {
		return err
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

	poolCfg := async.DefaultWorkerPoolConfig()
	if cfg.Pulse.Workers > 0 {
		poolCfg.Workers = cfg.Pulse.Workers
	}
	if cfg.Pulse.PollIntervalSeconds > 0 {
		poolCfg.PollInterval = time.Duration(cfg.Pulse.PollIntervalSeconds) * time.Second
	}
	if daemonWorkersFlag > 0 {
		poolCfg.Workers = daemonWorkersFlag
	}

	ctx, cancel := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	provisioner := pyenv.NewProvisioner(pyenv.NewStore(database), logger.Logger)
	history := runner.NewHistoryStore(database)
	registry := async.NewHandlerRegistry()
	pulse.RegisterHandlers(registry, provisioner, history, cfg.Runner, logger.Logger)

	pool := async.NewWorkerPool(ctx, database, registry, poolCfg, logger.Logger)
	pool.Start()

	tickerCfg := schedule.DefaultTickerConfig(manifest.Path)
	if cfg.Pulse.TickerIntervalSeconds > 0 {
		tickerCfg.Interval = time.Duration(cfg.Pulse.TickerIntervalSeconds) * time.Second
	}
	ticker := schedule.NewTicker(ctx, schedule.NewStore(database), pool.Queue(), tickerCfg, logger.Logger)
	ticker.Start()

	fmt.Printf("Daemon started: %d worker(s), polling every %s\n",
		poolCfg.Workers, poolCfg.PollInterval)
	fmt.Println("Handlers:", registry.Names())
	fmt.Println("Ctrl+C to stop")

	<-ctx.Done()

	fmt.Println("\nShutting down, waiting for in-flight jobs")
	ticker.Stop()
	pool.Stop()
	fmt.Println("Daemon stopped")
	return nil
}
