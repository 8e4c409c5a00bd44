package commands

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/chuangyeshuo/vanadev/conf"
	"github.com/chuangyeshuo/vanadev/errors"
	"github.com/chuangyeshuo/vanadev/logger"
	"github.com/chuangyeshuo/vanadev/pyenv"
	"github.com/chuangyeshuo/vanadev/setup"
)

// SetupCmd onboards a contributor: clone, provision, install hooks
var SetupCmd = &cobra.Command{
	Use:   "setup [repository]",
	Short: "Clone a working copy, provision its default environment and install hooks",
	Long: `Set up a working copy for contribution in one step.

The repository argument is a clone URL or an existing local working copy
(default: the current directory). Setup writes a starter vanadev.toml and
.vanadev-hooks.yaml when missing, provisions the default environment, and
installs the pre-commit hook.

Each step is idempotent: re-running setup on an existing working copy only
fills in whatever is missing.

Examples:
  vanadev setup https://github.com/you/sqlvana.git
  vanadev setup ~/src/sqlvana --env mac
  vanadev setup --skip-hooks`,
	Args: cobra.MaximumNArgs(1),
	RunE: runSetup,
}

var (
	setupDirFlag       string
	setupEnvFlag       string
	setupSkipHooksFlag bool
)

func init() {
	SetupCmd.Flags().StringVar(&setupDirFlag, "dir", "", "Clone destination for remote sources (default: repo name)")
	SetupCmd.Flags().StringVarP(&setupEnvFlag, "env", "e", "", "Environment to provision (default: first envlist entry)")
	SetupCmd.Flags().BoolVar(&setupSkipHooksFlag, "skip-hooks", false, "Leave the pre-commit hook uninstalled")
}

func runSetup(cmd *cobra.Command, args []string) error {
	source := "."
	if len(args) == 1 {
		source = args[0]
	}

	cfg, err := conf.Load()
	if err != nil {
		return err
	}

	// The state database lives under the project root, which setup itself
	// produces. The destination is deterministic either way: local sources
	// resolve in place, remote sources clone into --dir or the repo name.
	root, err := setupRoot(source)
	if err != nil {
		return err
	}
	database, err := openDatabase(cfg, root)
	if err != nil {
		return err
	}
	defer database.Close()

	provisioner := pyenv.NewProvisioner(pyenv.NewStore(database), logger.Logger)
	s := setup.New(provisioner, logger.Logger)

	result, err := s.Run(cmd.Context(), setup.Options{
		Source:    source,
		Dir:       setupDirFlag,
		Env:       setupEnvFlag,
		SkipHooks: setupSkipHooksFlag,
	})
	if err != nil {
		return err
	}

	fmt.Printf("Working copy ready at %s\n", result.Root)
	if result.Cloned {
		fmt.Printf("  Cloned from:   %s\n", source)
	}
	fmt.Printf("  Environment:   %s (%s)\n", result.EnvName, result.EnvDir)
	if result.HookActive {
		fmt.Printf("  Pre-commit:    %s\n", result.HookPath)
	} else {
		fmt.Printf("  Pre-commit:    skipped\n")
	}
	fmt.Println("\nNext steps:")
	fmt.Println("  vanadev list       # see the declared environments")
	fmt.Println("  vanadev run        # run the full matrix")
	return nil
}

// setupRoot mirrors setup's source resolution so the database can be
// opened at the eventual project root before the flow runs.
func setupRoot(source string) (string, error) {
	if !setup.IsRepoURL(source) {
		abs, err := filepath.Abs(source)
		if err != nil {
			return "", errors.Wrap(err, "resolve source path")
		}
		return abs, nil
	}
	dir := setupDirFlag
	if dir == "" {
		dir = setup.RepoName(source)
	}
	abs, err := filepath.Abs(dir)
	if err != nil {
		return "", errors.Wrap(err, "resolve clone destination")
	}
	if err := os.MkdirAll(abs, 0755); err != nil {
		return "", errors.Wrap(err, "create clone destination")
	}
	return abs, nil
}
