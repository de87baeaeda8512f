package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	apperrors "github.com/manav03panchal/revise/internal/errors"
)

// Reset command flags.
var (
	resetFlagForce bool
)

// resetCmd deletes all data.
var resetCmd = &cobra.Command{
	Use:   "reset",
	Short: "Delete every topic, strategy and revision",
	Long: `Delete every topic, strategy and revision, and cancel pending reminders.
The default strategies are recreated on the next run. Webhooks are kept.

Consider 'revise export -o backup.json' first.

Examples:
  revise reset
  revise reset --force`,
	Args: cobra.NoArgs,
	RunE: runReset,
}

func init() {
	resetCmd.Flags().BoolVar(&resetFlagForce, "force", false, "Skip confirmation")

	rootCmd.AddCommand(resetCmd)
}

func runReset(cmd *cobra.Command, args []string) error {
	if !resetFlagForce {
		if ctx.IsJSON() {
			return apperrors.NewValidationError("force", "", "confirmation required",
				"Pass --force to reset with JSON output.")
		}
		ok, err := confirm("Delete all topics, strategies and revisions?")
		if err != nil {
			return err
		}
		if !ok {
			ctx.Formatter.Println("Cancelled.")
			return nil
		}
	}

	result, err := ctx.Engine.Reset(cmd.Context())
	if err != nil {
		return err
	}

	if ctx.IsJSON() {
		return ctx.Formatter.JSON(map[string]any{
			"status": "reset",
			"result": result,
		})
	}
	ctx.CLIFormatter().Success(fmt.Sprintf("Deleted %d topics, %d strategies, %d revisions",
		result.Topics, result.Strategies, result.Revisions))
	return nil
}
