package commands

import (
	"encoding/json"
	"fmt"

	"github.com/pelletier/go-toml/v2"
	"github.com/spf13/cobra"

	"github.com/chuangyeshuo/vanadev/conf"
)

// ConfigCmd groups configuration subcommands
var ConfigCmd = &cobra.Command{
	Use:   "config",
	Short: "Manage vanadev configuration",
	Long: `Display and manage vanadev configuration.

Configuration sources (in order of precedence):
1. Environment variables (VANADEV_* prefix)
2. Project config (./.vanadev.toml)
3. User config (~/.vanadev/config.toml)
4. Default values

"set" and "unset" edit the user config file.

Examples:
  vanadev config show                 # current configuration
  vanadev config get runner.parallel  # one value
  vanadev config set runner.parallel 4
  vanadev config unset runner.parallel`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return cmd.Help()
	},
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show current configuration",
	RunE:  runConfigShow,
}

var configGetCmd = &cobra.Command{
	Use:   "get <key>",
	Short: "Get one configuration value (dot notation)",
	Args:  cobra.ExactArgs(1),
	RunE:  runConfigGet,
}

var configSetCmd = &cobra.Command{
	Use:   "set <key> <value>",
	Short: "Set a value in the user config file",
	Args:  cobra.ExactArgs(2),
	RunE:  runConfigSet,
}

var configUnsetCmd = &cobra.Command{
	Use:   "unset <key>",
	Short: "Remove a value from the user config file",
	Args:  cobra.ExactArgs(1),
	RunE:  runConfigUnset,
}

var configFormatFlag string

func init() {
	configShowCmd.Flags().StringVar(&configFormatFlag, "format", "toml", "Output format: toml, json")

	ConfigCmd.AddCommand(configShowCmd)
	ConfigCmd.AddCommand(configGetCmd)
	ConfigCmd.AddCommand(configSetCmd)
	ConfigCmd.AddCommand(configUnsetCmd)
}

func runConfigShow(cmd *cobra.Command, args []string) error {
	cfg, err := conf.Load()
	if err != nil {
		return err
	}

	switch configFormatFlag {
	case "json":
		data, err := json.MarshalIndent(cfg, "", "  ")
		if err != nil {
			return fmt.Errorf("failed to marshal config to JSON: %w", err)
		}
		fmt.Println(string(data))
	case "toml":
		data, err := toml.Marshal(cfg)
		if err != nil {
			return fmt.Errorf("failed to marshal config to TOML: %w", err)
		}
		fmt.Printf("# vanadev configuration\n%s", string(data))
	default:
		return fmt.Errorf("unsupported format: %s (supported: toml, json)", configFormatFlag)
	}
	return nil
}

func runConfigGet(cmd *cobra.Command, args []string) error {
	key := args[0]

	if _, err := conf.Load(); err != nil {
		return err
	}
	v := conf.GetViper()
	if !v.IsSet(key) {
		return fmt.Errorf("configuration key %q not found", key)
	}
	fmt.Println(v.Get(key))
	return nil
}

func runConfigSet(cmd *cobra.Command, args []string) error {
	key, value := args[0], args[1]

	if err := conf.Set(key, value); err != nil {
		return err
	}
	fmt.Printf("Set %s = %s in %s\n", key, value, conf.UserConfigPath())
	return nil
}

func runConfigUnset(cmd *cobra.Command, args []string) error {
	key := args[0]

	if err := conf.Unset(key); err != nil {
		return err
	}
	fmt.Printf("Removed %s from %s\n", key, conf.UserConfigPath())
	return nil
}
