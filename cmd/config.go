package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/manav03panchal/revise/internal/config"
	"github.com/manav03panchal/revise/internal/output"
)

// configCmd represents the config command.
var configCmd = &cobra.Command{
	Use:         "config",
	Aliases:     []string{"cfg", "settings"},
	Short:       "Show the active configuration",
	Annotations: map[string]string{skipRuntime: "true"},
	Long: `Show the configuration revise is running with, after the config file,
.env and REVISE_* environment variables are applied.

Any key can be overridden from the environment, for example
REVISE_NOTIFY_HOUR=7 or REVISE_API_ADDR=127.0.0.1:8080.

Examples:
  revise config
  revise config path`,
	Args: cobra.NoArgs,
	RunE: runConfigShow,
}

var configPathCmd = &cobra.Command{
	Use:         "path",
	Short:       "Print the config file path",
	Annotations: map[string]string{skipRuntime: "true"},
	Args:        cobra.NoArgs,
	RunE:        runConfigPath,
}

func init() {
	configCmd.AddCommand(configPathCmd)
	rootCmd.AddCommand(configCmd)
}

func configFile() string {
	if flagConfig != "" {
		return flagConfig
	}
	return config.DefaultFile()
}

func runConfigShow(cmd *cobra.Command, args []string) error {
	settings := config.Settings(config.Global)

	f := newFormatter()
	if f.Format == output.FormatJSON {
		return f.JSON(map[string]any{
			"file":     configFile(),
			"settings": settings,
		})
	}

	cli := output.NewCLIFormatter(f)
	cli.Title("Configuration")
	if _, err := os.Stat(configFile()); err == nil {
		cli.Muted("  " + configFile())
	} else {
		cli.Muted("  " + configFile() + " (not found, using defaults)")
	}
	cli.Println()

	rows := make([]output.TableRow, 0, len(settings))
	for _, s := range settings {
		rows = append(rows, output.TableRow{Columns: []string{s.Key, fmt.Sprint(s.Value)}})
	}
	cli.PrintTable([]string{"KEY", "VALUE"}, rows)
	return nil
}

func runConfigPath(cmd *cobra.Command, args []string) error {
	f := newFormatter()
	if f.Format == output.FormatJSON {
		return f.JSON(map[string]string{"file": configFile()})
	}
	f.Println(configFile())
	return nil
}
