package commands

import (
	"fmt"
	"os"

	"github.com/dustin/go-humanize"
	"github.com/pterm/pterm"
	"github.com/spf13/cobra"

	"github.com/chuangyeshuo/vanadev/conf"
	"github.com/chuangyeshuo/vanadev/logger"
	"github.com/chuangyeshuo/vanadev/pyenv"
)

// EnvCmd groups virtualenv management subcommands
var EnvCmd = &cobra.Command{
	Use:   "env",
	Short: "Manage the project's virtual environments",
	Long: `Manage the virtual environments declared in vanadev.toml.

Environments live under .vanadev/envs/<name> at the project root. Provisioning
is idempotent: an environment whose manifest declaration has not changed is
left untouched.

Examples:
  vanadev env ls            # declared environments and their state
  vanadev env create py310  # provision one environment
  vanadev env rm py310      # delete its virtualenv and record`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return cmd.Help()
	},
}

var envLsCmd = &cobra.Command{
	Use:   "ls",
	Short: "List declared environments and their provisioning state",
	RunE:  runEnvLs,
}

var envCreateCmd = &cobra.Command{
	Use:   "create <name>",
	Short: "Provision an environment's virtualenv",
	Args:  cobra.ExactArgs(1),
	RunE:  runEnvCreate,
}

var envRmCmd = &cobra.Command{
	Use:   "rm <name>",
	Short: "Remove an environment's virtualenv and record",
	Args:  cobra.ExactArgs(1),
	RunE:  runEnvRm,
}

func init() {
	EnvCmd.AddCommand(envLsCmd)
	EnvCmd.AddCommand(envCreateCmd)
	EnvCmd.AddCommand(envRmCmd)
}

func runEnvLs(cmd *cobra.Command, args []string) error {
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

	store := pyenv.NewStore(database)
	records, err := store.List()
	if err != nil {
		return err
	}
	byName := make(map[string]*pyenv.Record, len(records))
	for _, rec := range records {
		byName[rec.Name] = rec
	}

	rows := pterm.TableData{{"ENV", "PYTHON", "STATE", "INTERPRETER", "PROVISIONED"}}
	for _, name := range manifest.EnvList {
		env, err := manifest.Env(name)
		if err != nil {
			return err
		}
		state := "not provisioned"
		interpreter := "-"
		provisioned := "-"
		if rec, ok := byName[name]; ok {
			state = "provisioned"
			if _, statErr := os.Stat(pyenv.VenvPython(rec.Path)); statErr != nil {
				state = "missing venv"
			}
			interpreter = rec.InterpreterVersion
			provisioned = humanize.Time(rec.ProvisionedAt)
		}
		rows = append(rows, []string{name, env.Python, state, interpreter, provisioned})
	}
	return pterm.DefaultTable.WithHasHeader().WithData(rows).Render()
}

func runEnvCreate(cmd *cobra.Command, args []string) error {
	name := args[0]

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

	provisioner := pyenv.NewProvisioner(pyenv.NewStore(database), logger.Logger)
	result, err := provisioner.Provision(cmd.Context(), manifest, name)
	if err != nil {
		return err
	}

	if result.Fresh {
		fmt.Printf("Environment %s is up to date (%s)\n", name, result.EnvDir)
	} else {
		fmt.Printf("Environment %s provisioned at %s\n", name, result.EnvDir)
		fmt.Printf("  Interpreter: %s (%s)\n", result.Interpreter.Path, result.Interpreter.Version)
	}
	return nil
}

func runEnvRm(cmd *cobra.Command, args []string) error {
	name := args[0]

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

	provisioner := pyenv.NewProvisioner(pyenv.NewStore(database), logger.Logger)
	if err := provisioner.Remove(manifest, name); err != nil {
		return err
	}
	fmt.Printf("Environment %s removed\n", name)
	return nil
}
