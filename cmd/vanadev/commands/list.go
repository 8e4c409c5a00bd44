package commands

import (
	"fmt"
	"strings"

	"github.com/pterm/pterm"
	"github.com/spf13/cobra"
)

// ListCmd prints the declared test environments
var ListCmd = &cobra.Command{
	Use:   "list",
	Short: "List the test environments declared in vanadev.toml",
	Long: `List the project's declared test environments.

Shows each envlist entry with its interpreter constraint, platform gate,
extras and command count.`,
	RunE: runList,
}

func runList(cmd *cobra.Command, args []string) error {
	manifest, err := findManifest()
	if err != nil {
		return err
	}

	rows := pterm.TableData{{"ENV", "PYTHON", "PLATFORM", "EXTRAS", "COMMANDS"}}
	for _, name := range manifest.EnvList {
		env, err := manifest.Env(name)
		if err != nil {
			return err
		}
		python := env.Python
		if python == "" {
			python = "any"
		}
		platform := env.Platform
		if platform == "" {
			platform = "all"
		}
		extras := strings.Join(env.Extras, ",")
		if extras == "" {
			extras = "-"
		}
		rows = append(rows, []string{
			name, python, platform, extras, fmt.Sprintf("%d", len(env.Commands)),
		})
	}
	return pterm.DefaultTable.WithHasHeader().WithData(rows).Render()
}
