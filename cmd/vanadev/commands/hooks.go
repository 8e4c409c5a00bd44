package commands

import (
	"fmt"
	"os"
	"time"

	"github.com/pterm/pterm"
	"github.com/spf13/cobra"

	"github.com/chuangyeshuo/vanadev/conf"
	"github.com/chuangyeshuo/vanadev/errors"
	"github.com/chuangyeshuo/vanadev/hooks"
	"github.com/chuangyeshuo/vanadev/logger"
)

// HooksCmd groups pre-commit hook subcommands
var HooksCmd = &cobra.Command{
	Use:   "hooks",
	Short: "Manage and run the project's pre-commit hooks",
	Long: `Manage the pre-commit hooks declared in .vanadev-hooks.yaml.

Install writes a shim to .git/hooks/pre-commit that invokes "vanadev hooks
run" against the staged files. Hook file lists never include unstaged
modifications.

Examples:
  vanadev hooks install        # install the pre-commit shim
  vanadev hooks run            # run all hooks on staged files
  vanadev hooks run --all-files
  vanadev hooks run --hook black`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return cmd.Help()
	},
}

var hooksInstallCmd = &cobra.Command{
	Use:   "install",
	Short: "Install the pre-commit hook shim",
	RunE:  runHooksInstall,
}

var hooksUninstallCmd = &cobra.Command{
	Use:   "uninstall",
	Short: "Remove the pre-commit hook shim",
	RunE:  runHooksUninstall,
}

var hooksRunCmd = &cobra.Command{
	Use:   "run",
	Short: "Run hooks against staged files",
	RunE:  runHooksRun,
}

var (
	hooksAllFilesFlag bool
	hooksSelectFlag   []string
)

func init() {
	HooksCmd.AddCommand(hooksInstallCmd)
	HooksCmd.AddCommand(hooksUninstallCmd)
	HooksCmd.AddCommand(hooksRunCmd)

	hooksRunCmd.Flags().BoolVar(&hooksAllFilesFlag, "all-files", false, "Run against every tracked file instead of staged files")
	hooksRunCmd.Flags().StringSliceVar(&hooksSelectFlag, "hook", nil, "Hook IDs to run (default: all)")
}

// hooksRoot resolves the repository root the hook commands operate on.
// The manifest root is authoritative; without one, the working directory.
func hooksRoot() (string, error) {
	manifest, err := findManifest()
	if err == nil {
		return manifest.Root(), nil
	}
	if !errors.IsNotFoundError(err) {
		return "", err
	}
	return os.Getwd()
}

func runHooksInstall(cmd *cobra.Command, args []string) error {
	cfg, err := conf.Load()
	if err != nil {
		return err
	}
	root, err := hooksRoot()
	if err != nil {
		return err
	}

	manifestPath := hooksManifestPath(cfg, root)
	if _, err := os.Stat(manifestPath); os.IsNotExist(err) {
		if err := hooks.Init(manifestPath); err != nil {
			return err
		}
		fmt.Printf("Wrote starter hook manifest to %s\n", manifestPath)
	}

	path, err := hooks.Install(root)
	if err != nil {
		return err
	}
	fmt.Printf("Pre-commit hook installed at %s\n", path)
	return nil
}

func runHooksUninstall(cmd *cobra.Command, args []string) error {
	root, err := hooksRoot()
	if err != nil {
		return err
	}
	if err := hooks.Uninstall(root); err != nil {
		return err
	}
	fmt.Println("Pre-commit hook removed")
	return nil
}

func runHooksRun(cmd *cobra.Command, args []string) error {
	cfg, err := conf.Load()
	if err != nil {
		return err
	}
	root, err := hooksRoot()
	if err != nil {
		return err
	}

	manifest, err := hooks.Load(hooksManifestPath(cfg, root))
	if err != nil {
		return err
	}

	runner := hooks.NewRunner(manifest, root, cfg.Hooks.FailFast, logger.Logger)
	results, err := runner.Run(cmd.Context(), hooksSelectFlag, hooksAllFilesFlag)
	if err != nil {
		return err
	}

	for _, result := range results {
		switch {
		case result.Skipped:
			fmt.Printf("%s %s (no matching files)\n", pterm.Yellow("skip"), result.ID)
		case result.Passed:
			fmt.Printf("%s %s (%d file(s), %s)\n",
				pterm.Green("pass"), result.ID, result.Files,
				result.Duration.Round(time.Millisecond))
		default:
			fmt.Printf("%s %s (exit %d)\n", pterm.Red("fail"), result.ID, result.ExitCode)
			if result.Output != "" {
				fmt.Println(result.Output)
			}
		}
	}

	if !hooks.AllPassed(results) {
		return errors.ErrHookFailed
	}
	return nil
}
