package commands

import (
	"fmt"
	"os"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/chuangyeshuo/vanadev/conf"
	"github.com/chuangyeshuo/vanadev/pulse/async"
)

// DbCmd groups state database subcommands
var DbCmd = &cobra.Command{
	Use:   "db",
	Short: "Manage the vanadev state database",
	Long: `Manage the project state database (.vanadev/vanadev.db).

The database records provisioned environments, run history, background jobs
and recurring runs.

Examples:
  vanadev db stats     # table counts and file size
  vanadev db migrate   # apply pending schema migrations`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return cmd.Help()
	},
}

var dbStatsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show state database statistics",
	RunE:  runDbStats,
}

var dbMigrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Apply pending schema migrations",
	RunE:  runDbMigrate,
}

func init() {
	DbCmd.AddCommand(dbStatsCmd)
	DbCmd.AddCommand(dbMigrateCmd)
}

func runDbStats(cmd *cobra.Command, args []string) error {
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

	path := databasePath(cfg, manifest.Root())
	size := "unknown"
	if info, err := os.Stat(path); err == nil {
		size = humanize.IBytes(uint64(info.Size()))
	}

	fmt.Println("State database")
	fmt.Printf("  Path: %s\n", path)
	fmt.Printf("  Size: %s\n", size)
	fmt.Println()

	for _, table := range []string{"environments", "runs", "jobs", "scheduled_runs"} {
		var count int
		if err := database.QueryRow("SELECT COUNT(*) FROM " + table).Scan(&count); err != nil {
			return fmt.Errorf("count %s: %w", table, err)
		}
		fmt.Printf("  %-15s %d\n", table, count)
	}

	counts, err := async.NewStore(database).CountByStatus()
	if err != nil {
		return err
	}
	if len(counts) > 0 {
		fmt.Println("\nJobs by status:")
		for _, status := range []async.JobStatus{
			async.JobStatusQueued, async.JobStatusRunning, async.JobStatusCompleted,
			async.JobStatusFailed, async.JobStatusCancelled,
		} {
			if n, ok := counts[status]; ok {
				fmt.Printf("  %-10s %d\n", status, n)
			}
		}
	}
	return nil
}

func runDbMigrate(cmd *cobra.Command, args []string) error {
	cfg, err := conf.Load()
	if err != nil {
		return err
	}
	manifest, err := findManifest()
	if err != nil {
		return err
	}

	// openDatabase migrates as part of opening
	database, err := openDatabase(cfg, manifest.Root())
	if err != nil {
		return err
	}
	defer database.Close()

	var version string
	if err := database.QueryRow("SELECT COALESCE(MAX(version), '000') FROM schema_migrations").Scan(&version); err != nil {
		return fmt.Errorf("read schema version: %w", err)
	}
	fmt.Printf("Database migrated to schema version %s\n", version)
	return nil
}
