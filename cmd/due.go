package cmd

import (
	"strings"

	"github.com/spf13/cobra"

	apperrors "github.com/manav03panchal/revise/internal/errors"
	"github.com/manav03panchal/revise/internal/model"
	"github.com/manav03panchal/revise/internal/output"
	"github.com/manav03panchal/revise/internal/parser"
	"github.com/manav03panchal/revise/internal/timetable"
)

// List command flags.
var (
	listFlagStatus string
)

// dueCmd lists what is due on a day.
var dueCmd = &cobra.Command{
	Use:     "due [DAY]",
	Aliases: []string{"today"},
	Short:   "Show revisions due on a day",
	Long: `Show the revisions scheduled on a day, today by default. Looking at
today also lists topics whose revision day has already passed.

Examples:
  revise due
  revise due tomorrow
  revise due friday
  revise due +3`,
	ValidArgsFunction: completeDayArgs,
	RunE:              runDue,
}

// listCmd lists every topic.
var listCmd = &cobra.Command{
	Use:     "list",
	Aliases: []string{"ls", "topics"},
	Short:   "List topics ordered by next revision",
	Long: `List every topic, soonest revision first. Learned topics come last.

Examples:
  revise list
  revise list --status overdue
  revise list -f json`,
	Args: cobra.NoArgs,
	RunE: runList,
}

// calendarCmd shows revisions over a range of days.
var calendarCmd = &cobra.Command{
	Use:     "calendar [RANGE]",
	Aliases: []string{"cal", "upcoming"},
	Short:   "Show revisions over a range of days",
	Long: `Show scheduled and completed revisions grouped by day. The range
defaults to the next 7 days.

Examples:
  revise calendar
  revise calendar this week
  revise calendar next month
  revise calendar 14d
  revise calendar 2024-06-01..2024-06-30`,
	RunE: runCalendar,
}

func init() {
	listCmd.Flags().StringVarP(&listFlagStatus, "status", "s", "",
		"Only show topics with this status: overdue, due, upcoming, learned")
	_ = listCmd.RegisterFlagCompletionFunc("status", func(cmd *cobra.Command, args []string, toComplete string) ([]string, cobra.ShellCompDirective) {
		return []string{"overdue", "due", "upcoming", "learned"}, cobra.ShellCompDirectiveNoFileComp
	})

	rootCmd.AddCommand(dueCmd)
	rootCmd.AddCommand(listCmd)
	rootCmd.AddCommand(calendarCmd)
}

func runDue(cmd *cobra.Command, args []string) error {
	c := cmd.Context()
	today := ctx.Today()

	day := today
	if len(args) > 0 {
		var err error
		day, err = parser.ParseDay(strings.Join(args, " "), ctx.Engine.Now(), parser.PreferFuture)
		if err != nil {
			return err
		}
	}

	due, err := ctx.Engine.QueryDueOn(c, day)
	if err != nil {
		return err
	}

	var overdue []*model.Topic
	if timetable.SameDay(day, today) {
		overdue, err = ctx.Engine.QueryOverdue(c)
		if err != nil {
			return err
		}
	}

	if ctx.IsJSON() {
		return ctx.JSONFormatter().PrintDue(day, due, overdue, ctx.Engine.Progress, today)
	}
	ctx.CLIFormatter().PrintDue(day, due, overdue, today)
	return nil
}

// parseStatus maps a --status value to a status.
func parseStatus(s string) (timetable.Status, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "overdue":
		return timetable.StatusOverdue, nil
	case "due", "today", "due-today":
		return timetable.StatusDueToday, nil
	case "upcoming":
		return timetable.StatusUpcoming, nil
	case "learned", "done":
		return timetable.StatusLearned, nil
	}
	return "", apperrors.NewValidationError("status", s, "unknown status",
		"Use one of: overdue, due, upcoming, learned.")
}

func runList(cmd *cobra.Command, args []string) error {
	topics, err := ctx.Engine.QueryAll(cmd.Context())
	if err != nil {
		return err
	}

	if listFlagStatus != "" {
		want, err := parseStatus(listFlagStatus)
		if err != nil {
			return err
		}
		filtered := topics[:0]
		for _, t := range topics {
			if ctx.Engine.Progress(t).Status == want {
				filtered = append(filtered, t)
			}
		}
		topics = filtered
	}

	if ctx.IsJSON() {
		return ctx.JSONFormatter().PrintTopics(topics, ctx.Engine.Progress, ctx.Today())
	}
	ctx.CLIFormatter().PrintTopics(topics, ctx.Engine.Progress, ctx.Today())
	return nil
}

func runCalendar(cmd *cobra.Command, args []string) error {
	r, err := parser.ParseRange(strings.Join(args, " "), ctx.Engine.Now())
	if err != nil {
		return err
	}

	instances, err := ctx.Engine.QueryRange(cmd.Context(), r.From, r.To)
	if err != nil {
		return err
	}

	if ctx.IsJSON() {
		return ctx.JSONFormatter().PrintCalendar(r.From, r.To, instances)
	}
	cli := ctx.CLIFormatter()
	cli.Title(output.FormatDay(r.From) + " – " + output.FormatDay(r.To))
	cli.PrintCalendar(instances)
	return nil
}
