package cmd

import (
	"github.com/spf13/cobra"

	"github.com/manav03panchal/revise/internal/tui"
)

// dashboardCmd represents the dashboard command.
var dashboardCmd = &cobra.Command{
	Use:     "dashboard",
	Aliases: []string{"dash", "tui"},
	Short:   "Open the interactive revision dashboard",
	Long: `Open an interactive terminal dashboard of today's revisions.

The dashboard shows:
  - How many topics are learned, due and overdue
  - Topics to revise now, overdue first
  - Revisions coming up this week

Keyboard Controls:
  ↑/k ↓/j      - Move the cursor
  enter/space  - Mark the selected topic revised
  r            - Refresh data
  q            - Quit dashboard

Examples:
  revise dashboard
  revise dash`,
	Args: cobra.NoArgs,
	RunE: runDashboard,
}

func init() {
	rootCmd.AddCommand(dashboardCmd)
}

func runDashboard(cmd *cobra.Command, args []string) error {
	config := tui.DashboardConfig{
		Engine: ctx.Engine,
	}

	return tui.Run(cmd.Context(), config)
}
