package cmd

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/manav03panchal/revise/internal/output"
)

// Strategy command flags.
var (
	strategyDeleteFlagForce bool
)

// strategyCmd represents the strategy command.
var strategyCmd = &cobra.Command{
	Use:     "strategy [command]",
	Aliases: []string{"strategies", "s"},
	Short:   "Manage revision strategies",
	Long: `A strategy is the list of day offsets, counted from the day a topic was
created, on which it is revised. Three strategies are created on first use:
Standard, Short Term and Exam Prep.

Examples:
  revise strategy list
  revise strategy add Weekly 7,14,21,28
  revise strategy delete Weekly`,
	RunE: runStrategyList,
}

var strategyListCmd = &cobra.Command{
	Use:     "list",
	Aliases: []string{"ls"},
	Short:   "List strategies",
	Args:    cobra.NoArgs,
	RunE:    runStrategyList,
}

var strategyAddCmd = &cobra.Command{
	Use:   "add NAME INTERVALS",
	Short: "Add a strategy",
	Long: `Add a strategy from a comma-separated list of day offsets. Entries
that are not positive whole numbers are ignored.

Examples:
  revise strategy add Weekly 7,14,21,28
  revise strategy add "Cram week" "1, 1, 1, 2"`,
	Args: cobra.ExactArgs(2),
	RunE: runStrategyAdd,
}

var strategyDeleteCmd = &cobra.Command{
	Use:     "delete STRATEGY",
	Aliases: []string{"rm", "remove"},
	Short:   "Delete a strategy",
	Long: `Delete a strategy. A strategy still followed by topics is only deleted
with --force; those topics keep their schedule but cannot be revised
until moved with 'revise topic strategy'.`,
	Args:              cobra.MinimumNArgs(1),
	ValidArgsFunction: completeStrategyArgs,
	RunE:              runStrategyDelete,
}

func init() {
	strategyDeleteCmd.Flags().BoolVar(&strategyDeleteFlagForce, "force", false,
		"Delete even if topics still follow the strategy")

	strategyCmd.AddCommand(strategyListCmd)
	strategyCmd.AddCommand(strategyAddCmd)
	strategyCmd.AddCommand(strategyDeleteCmd)

	rootCmd.AddCommand(strategyCmd)
}

func runStrategyList(cmd *cobra.Command, args []string) error {
	strategies, err := ctx.Engine.ListStrategies(cmd.Context())
	if err != nil {
		return err
	}

	if ctx.IsJSON() {
		return ctx.JSONFormatter().PrintStrategies(strategies)
	}
	ctx.CLIFormatter().PrintStrategies(strategies)
	return nil
}

func runStrategyAdd(cmd *cobra.Command, args []string) error {
	s, err := ctx.Engine.CreateStrategy(cmd.Context(), args[0], args[1])
	if err != nil {
		return err
	}

	if ctx.IsJSON() {
		return ctx.Formatter.JSON(map[string]any{
			"status":   "created",
			"strategy": output.NewStrategyOutput(s),
		})
	}
	cli := ctx.CLIFormatter()
	cli.Success(fmt.Sprintf("Added strategy %s", s.Name))
	cli.Printf("  Intervals: %s\n", s.IntervalsText())
	return nil
}

func runStrategyDelete(cmd *cobra.Command, args []string) error {
	c := cmd.Context()
	s, err := ctx.Engine.GetStrategy(c, strings.Join(args, " "))
	if err != nil {
		return err
	}
	if err := ctx.Engine.DeleteStrategy(c, s.ID, strategyDeleteFlagForce); err != nil {
		return err
	}

	if ctx.IsJSON() {
		return ctx.Formatter.JSON(map[string]any{
			"status":   "deleted",
			"strategy": s.ID,
		})
	}
	ctx.CLIFormatter().Success(fmt.Sprintf("Deleted strategy %s", s.Name))
	return nil
}
