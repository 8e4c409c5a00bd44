package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/chuangyeshuo/vanadev/cmd/vanadev/commands"
	"github.com/chuangyeshuo/vanadev/logger"
)

var rootCmd = &cobra.Command{
	Use:   "vanadev",
	Short: "Contributor workflow tooling for sqlvana",
	Long: `vanadev — one binary for the sqlvana contributor workflow.

Environment provisioning, the test environment matrix, pre-commit hooks,
and the pull request notebook checklist, driven from vanadev.toml at the
project root.

Examples:
  vanadev setup https://github.com/you/sqlvana.git   # clone + provision + hooks
  vanadev list                                       # declared environments
  vanadev run                                        # run the full matrix
  vanadev run -e py310 --watch                       # re-run py310 on changes
  vanadev hooks run                                  # run hooks on staged files
  vanadev checklist my-feature-branch                # point notebooks at a branch
  vanadev daemon                                     # process background jobs`,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		verbosity, _ := cmd.Flags().GetCount("verbose")
		jsonOutput, _ := cmd.Flags().GetBool("json-logs")
		if err := logger.Initialize(jsonOutput, verbosity); err != nil {
			return fmt.Errorf("failed to initialize logger: %w", err)
		}
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		logger.Cleanup()
	},
}

func init() {
	rootCmd.PersistentFlags().CountP("verbose", "v", "Increase output verbosity (repeat for more detail: -v, -vv, -vvv)")
	rootCmd.PersistentFlags().Bool("json-logs", false, "Emit logs as JSON instead of console output")

	rootCmd.AddCommand(commands.SetupCmd)
	rootCmd.AddCommand(commands.EnvCmd)
	rootCmd.AddCommand(commands.RunCmd)
	rootCmd.AddCommand(commands.ListCmd)
	rootCmd.AddCommand(commands.HooksCmd)
	rootCmd.AddCommand(commands.ChecklistCmd)
	rootCmd.AddCommand(commands.JobsCmd)
	rootCmd.AddCommand(commands.DaemonCmd)
	rootCmd.AddCommand(commands.DoctorCmd)
	rootCmd.AddCommand(commands.DbCmd)
	rootCmd.AddCommand(commands.ConfigCmd)
	rootCmd.AddCommand(commands.VersionCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
