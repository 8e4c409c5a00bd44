package commands

import (
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/pterm/pterm"
	"github.com/spf13/cobra"

	"github.com/chuangyeshuo/vanadev/conf"
	"github.com/chuangyeshuo/vanadev/errors"
	"github.com/chuangyeshuo/vanadev/pulse/async"
	"github.com/chuangyeshuo/vanadev/pulse/schedule"
)

// JobsCmd groups background job subcommands
var JobsCmd = &cobra.Command{
	Use:   "jobs",
	Short: "Inspect and manage background jobs",
	Long: `Inspect the background job queue processed by the daemon.

Examples:
  vanadev jobs ls                         # recent jobs
  vanadev jobs ls --status queued         # filter by status
  vanadev jobs show 4f1f…                 # one job in detail
  vanadev jobs cancel 4f1f…               # cancel a queued or running job
  vanadev jobs schedule add py310 --every 24h
  vanadev jobs schedule ls`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return cmd.Help()
	},
}

var jobsLsCmd = &cobra.Command{
	Use:   "ls",
	Short: "List recent jobs",
	RunE:  runJobsLs,
}

var jobsShowCmd = &cobra.Command{
	Use:   "show <id>",
	Short: "Show one job in detail",
	Args:  cobra.ExactArgs(1),
	RunE:  runJobsShow,
}

var jobsCancelCmd = &cobra.Command{
	Use:   "cancel <id>",
	Short: "Cancel a queued or running job",
	Args:  cobra.ExactArgs(1),
	RunE:  runJobsCancel,
}

var jobsScheduleCmd = &cobra.Command{
	Use:   "schedule",
	Short: "Manage recurring matrix runs",
	RunE: func(cmd *cobra.Command, args []string) error {
		return cmd.Help()
	},
}

var jobsScheduleLsCmd = &cobra.Command{
	Use:   "ls",
	Short: "List recurring runs",
	RunE:  runJobsScheduleLs,
}

var jobsScheduleAddCmd = &cobra.Command{
	Use:   "add [env...]",
	Short: "Add a recurring matrix run (no envs means the full envlist)",
	RunE:  runJobsScheduleAdd,
}

var jobsScheduleRmCmd = &cobra.Command{
	Use:   "rm <id>",
	Short: "Remove a recurring run",
	Args:  cobra.ExactArgs(1),
	RunE:  runJobsScheduleRm,
}

var (
	jobsStatusFlag       string
	jobsLimitFlag        int
	jobsCancelReasonFlag string
	scheduleIntervalFlag time.Duration
)

func init() {
	JobsCmd.AddCommand(jobsLsCmd)
	JobsCmd.AddCommand(jobsShowCmd)
	JobsCmd.AddCommand(jobsCancelCmd)
	JobsCmd.AddCommand(jobsScheduleCmd)
	jobsScheduleCmd.AddCommand(jobsScheduleLsCmd)
	jobsScheduleCmd.AddCommand(jobsScheduleAddCmd)
	jobsScheduleCmd.AddCommand(jobsScheduleRmCmd)

	jobsLsCmd.Flags().StringVar(&jobsStatusFlag, "status", "", "Filter by status (queued, running, completed, failed, cancelled)")
	jobsLsCmd.Flags().IntVar(&jobsLimitFlag, "limit", 20, "Number of jobs to show")
	jobsCancelCmd.Flags().StringVar(&jobsCancelReasonFlag, "reason", "cancelled from CLI", "Cancellation reason recorded on the job")
	jobsScheduleAddCmd.Flags().DurationVar(&scheduleIntervalFlag, "every", 24*time.Hour, "Run interval (minimum 1m)")
}

// jobsDatabase opens the project state database for the jobs commands
func jobsDatabase() (*sql.DB, error) {
	cfg, err := conf.Load()
	if err != nil {
		return nil, err
	}
	manifest, err := findManifest()
	if err != nil {
		return nil, err
	}
	return openDatabase(cfg, manifest.Root())
}

func runJobsLs(cmd *cobra.Command, args []string) error {
	database, err := jobsDatabase()
	if err != nil {
		return err
	}
	defer database.Close()

	var status *async.JobStatus
	if jobsStatusFlag != "" {
		if !async.IsValidStatus(jobsStatusFlag) {
			return errors.Newf("invalid status %q", jobsStatusFlag)
		}
		s := async.JobStatus(jobsStatusFlag)
		status = &s
	}

	jobs, err := async.NewQueue(database).List(status, jobsLimitFlag)
	if err != nil {
		return err
	}
	if len(jobs) == 0 {
		fmt.Println("No jobs")
		return nil
	}

	rows := pterm.TableData{{"ID", "HANDLER", "STATUS", "PROGRESS", "CREATED"}}
	for _, job := range jobs {
		progress := "-"
		if job.Progress.Total > 0 {
			progress = fmt.Sprintf("%d/%d", job.Progress.Current, job.Progress.Total)
		}
		rows = append(rows, []string{
			shortID(job.ID),
			job.HandlerName,
			jobStatusLabel(job.Status),
			progress,
			humanize.Time(job.CreatedAt),
		})
	}
	return pterm.DefaultTable.WithHasHeader().WithData(rows).Render()
}

func runJobsShow(cmd *cobra.Command, args []string) error {
	database, err := jobsDatabase()
	if err != nil {
		return err
	}
	defer database.Close()

	job, err := async.NewQueue(database).GetJob(args[0])
	if err != nil {
		return err
	}

	fmt.Printf("Job %s\n", job.ID)
	fmt.Printf("  Handler:  %s\n", job.HandlerName)
	fmt.Printf("  Status:   %s\n", job.Status)
	fmt.Printf("  Source:   %s\n", job.Source)
	fmt.Printf("  Created:  %s\n", job.CreatedAt.Format(time.RFC3339))
	if job.Progress.Total > 0 {
		fmt.Printf("  Progress: %d/%d (%.0f%%)\n",
			job.Progress.Current, job.Progress.Total, job.Progress.Percentage())
	}
	if job.RetryCount > 0 {
		fmt.Printf("  Retries:  %d\n", job.RetryCount)
	}
	if d := job.Duration(); d > 0 {
		fmt.Printf("  Duration: %s\n", d.Round(time.Millisecond))
	}
	if job.Error != "" {
		fmt.Printf("  Error:    %s\n", job.Error)
	}
	if len(job.Payload) > 0 {
		fmt.Printf("  Payload:  %s\n", string(job.Payload))
	}
	return nil
}

func runJobsCancel(cmd *cobra.Command, args []string) error {
	database, err := jobsDatabase()
	if err != nil {
		return err
	}
	defer database.Close()

	if err := async.NewQueue(database).CancelJob(args[0], jobsCancelReasonFlag); err != nil {
		return err
	}
	fmt.Printf("Job %s cancelled\n", args[0])
	return nil
}

func runJobsScheduleLs(cmd *cobra.Command, args []string) error {
	database, err := jobsDatabase()
	if err != nil {
		return err
	}
	defer database.Close()

	runs, err := schedule.NewStore(database).List()
	if err != nil {
		return err
	}
	if len(runs) == 0 {
		fmt.Println("No recurring runs")
		return nil
	}

	rows := pterm.TableData{{"ID", "ENVS", "EVERY", "NEXT RUN", "ENABLED"}}
	for _, run := range runs {
		envs := strings.Join(run.Envs, ",")
		if envs == "" {
			envs = "(full envlist)"
		}
		rows = append(rows, []string{
			shortID(run.ID),
			envs,
			run.Interval.String(),
			humanize.Time(run.NextRunAt),
			fmt.Sprintf("%t", run.Enabled),
		})
	}
	return pterm.DefaultTable.WithHasHeader().WithData(rows).Render()
}

func runJobsScheduleAdd(cmd *cobra.Command, args []string) error {
	database, err := jobsDatabase()
	if err != nil {
		return err
	}
	defer database.Close()

	run, err := schedule.NewScheduledRun(args, scheduleIntervalFlag)
	if err != nil {
		return err
	}
	if err := schedule.NewStore(database).Create(run); err != nil {
		return err
	}
	fmt.Printf("Recurring run %s added (every %s, next at %s)\n",
		shortID(run.ID), run.Interval, run.NextRunAt.Format(time.RFC3339))
	return nil
}

func runJobsScheduleRm(cmd *cobra.Command, args []string) error {
	database, err := jobsDatabase()
	if err != nil {
		return err
	}
	defer database.Close()

	if err := schedule.NewStore(database).Delete(args[0]); err != nil {
		return err
	}
	fmt.Printf("Recurring run %s removed\n", args[0])
	return nil
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}

func jobStatusLabel(status async.JobStatus) string {
	switch status {
	case async.JobStatusCompleted:
		return pterm.Green(string(status))
	case async.JobStatusFailed:
		return pterm.Red(string(status))
	case async.JobStatusRunning:
		return pterm.Cyan(string(status))
	default:
		return string(status)
	}
}
