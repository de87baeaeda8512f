// Package cmd provides the CLI commands for revise.
//
// This software is a derivative work based on Zeit (https://github.com/mrusme/zeit)
// Original work copyright (c) マリウス (mrusme)
// Modifications copyright (c) Manav Panchal
//
// Licensed under the SEGV License, Version 1.0
// See LICENSE file for full license text.
package cmd

import (
	"context"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/manav03panchal/revise/internal/config"
	apperrors "github.com/manav03panchal/revise/internal/errors"
	"github.com/manav03panchal/revise/internal/logging"
	"github.com/manav03panchal/revise/internal/output"
	"github.com/manav03panchal/revise/internal/runtime"
)

// Version information (set at build time via ldflags).
var (
	Version   = "dev"
	Commit    = "unknown"
	BuildTime = "unknown"
)

// Global flags.
var (
	flagFormat string
	flagColor  string
	flagDebug  bool
	flagConfig string
	flagDB     string
)

// skipRuntime marks commands that must not open the database.
const skipRuntime = "skip-runtime"

// ctx is the shared runtime context.
var ctx *runtime.Context

// rootCmd represents the base command when called without any subcommands.
var rootCmd = &cobra.Command{
	Use:   "revise",
	Short: "A spaced-repetition revision scheduler",
	Long: `Revise schedules revisions of the topics you study on an expanding
interval, so each topic comes back just before you would forget it.

Running revise without a command shows what is due today.

Examples:
  revise add "Graph theory"
  revise add "Organic chemistry" --strategy "Exam Prep" --created "3 days ago"
  revise due
  revise done "Graph theory"
  revise calendar next week`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		// Skip initialization for completion and help commands (but allow __complete for dynamic completions)
		if cmd.Name() == "completion" || cmd.Name() == "help" {
			return nil
		}

		cfg, err := config.Load(config.LoadOptions{File: flagConfig})
		if err != nil {
			return apperrors.NewUserErrorWithField("config", flagConfig, err.Error(),
				"Fix the config file, or point --config at another one.")
		}
		initLogging(cfg)
		cmd.SetContext(logging.WithOperation(cmd.Context(), logging.SourceCLI, ""))

		if cmd.Annotations[skipRuntime] != "" {
			return nil
		}

		ctx, err = runtime.New(cmd.Context(), runtimeOptions(cfg))
		return err
	},
	PersistentPostRunE: func(cmd *cobra.Command, args []string) error {
		if ctx != nil {
			err := ctx.Close()
			ctx = nil
			return err
		}
		return nil
	},
	RunE: func(cmd *cobra.Command, args []string) error {
		// Default behavior: show today's revisions
		return runDue(cmd, nil)
	},
}

// initLogging configures the global logger from cfg and --debug.
func initLogging(cfg *config.Config) {
	if flagDebug {
		logging.InitDebug()
		return
	}
	level := logging.ParseLevel(cfg.Log.Level)
	logging.Init(logging.Config{
		Level:  level,
		JSON:   cfg.Log.JSON,
		Output: os.Stderr,
	})
	logging.Debug = level <= slog.LevelDebug
}

// runtimeOptions builds runtime options from the global flags.
func runtimeOptions(cfg *config.Config) runtime.Options {
	opts := runtime.DefaultOptions()
	opts.Config = cfg
	if flagDB != "" {
		opts.DBPath = flagDB
		opts.Config.Database.Path = flagDB
	}
	opts.Format = outputFormat()
	opts.ColorMode = colorMode()
	opts.Debug = flagDebug
	return opts
}

func outputFormat() output.Format {
	switch flagFormat {
	case "json":
		return output.FormatJSON
	case "plain":
		return output.FormatPlain
	default:
		return output.FormatCLI
	}
}

func colorMode() output.ColorMode {
	switch flagColor {
	case "always":
		return output.ColorAlways
	case "never":
		return output.ColorNever
	default:
		return output.ColorAuto
	}
}

// newFormatter builds a formatter for commands that run without a runtime
// context.
func newFormatter() *output.Formatter {
	f := output.NewFormatter()
	f.Format = outputFormat()
	f.ColorMode = colorMode()
	return f
}

// Execute runs the root command and returns the process exit code.
func Execute() int {
	err := rootCmd.ExecuteContext(context.Background())
	if err == nil {
		return runtime.ExitOK
	}
	printError(err)
	return runtime.ExitCode(err)
}

// printError writes err to stderr, or as a JSON error response to stdout
// when --format json is set.
func printError(err error) {
	f := newFormatter()
	if f.Format == output.FormatJSON {
		_ = output.NewJSONFormatter(f).PrintError(err, runtime.Suggestion(err))
		return
	}
	f.Writer = os.Stderr
	output.NewCLIFormatter(f).Error("Error: " + runtime.FormatError(err, flagDebug))
}

func init() {
	// Global flags
	rootCmd.PersistentFlags().StringVarP(&flagFormat, "format", "f", "cli",
		"Output format: cli, json, plain")
	rootCmd.PersistentFlags().StringVar(&flagColor, "color", "auto",
		"Color output: auto, always, never")
	rootCmd.PersistentFlags().BoolVar(&flagDebug, "debug", false,
		"Enable debug output")
	rootCmd.PersistentFlags().StringVar(&flagConfig, "config", "",
		"Config file (default "+config.DefaultFile()+")")
	rootCmd.PersistentFlags().StringVar(&flagDB, "db", "",
		"Database directory (overrides database.path)")

	rootCmd.SetFlagErrorFunc(func(cmd *cobra.Command, err error) error {
		return apperrors.NewValidationError("flag", "", err.Error(),
			"Run '"+cmd.CommandPath()+" --help' for usage.")
	})

	rootCmd.AddCommand(versionCmd)
}

// versionCmd shows version information.
var versionCmd = &cobra.Command{
	Use:         "version",
	Short:       "Print version information",
	Annotations: map[string]string{skipRuntime: "true"},
	Run: func(cmd *cobra.Command, args []string) {
		cmd.Printf("revise %s\n", Version)
		cmd.Printf("  commit: %s\n", Commit)
		cmd.Printf("  built: %s\n", BuildTime)
		cmd.Println("")
		cmd.Println("Based on Zeit (https://github.com/mrusme/zeit)")
		cmd.Println("Licensed under SEGV License v1.0")
	},
}
