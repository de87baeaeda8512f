package cmd

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/manav03panchal/revise/internal/engine"
	"github.com/manav03panchal/revise/internal/model"
	"github.com/manav03panchal/revise/internal/output"
	"github.com/manav03panchal/revise/internal/parser"
)

// Topic command flags.
var (
	addFlagStrategy    string
	addFlagCreated     string
	addFlagLastRevised string

	topicDeleteFlagForce bool
)

// addCmd adds a topic.
var addCmd = &cobra.Command{
	Use:     "add NAME",
	Aliases: []string{"new", "learn"},
	Short:   "Add a topic to revise",
	Long: `Add a topic and schedule its revisions.

The topic follows the first strategy unless --strategy is given. Use
--created to backdate a topic you started learning earlier; revisions
that already fell due are skipped, and the topic is overdue only when
its whole schedule lies in the past.

Examples:
  revise add "Graph theory"
  revise add Thermodynamics --strategy "Short Term"
  revise add "Organic chemistry" --created "last monday"
  revise add Calculus --created 2024-05-01 --last-revised -3d`,
	Args: cobra.MinimumNArgs(1),
	RunE: runAdd,
}

// doneCmd marks a topic revised.
var doneCmd = &cobra.Command{
	Use:     "done TOPIC",
	Aliases: []string{"revised", "mark"},
	Short:   "Mark a topic revised today",
	Long: `Record today's revision of a topic and move it to its next revision day.

TOPIC is a name, an ID or a unique ID prefix.

Examples:
  revise done "Graph theory"
  revise done 3f2a`,
	Args:              cobra.MinimumNArgs(1),
	ValidArgsFunction: completeTopicArgs,
	RunE:              runDone,
}

// topicCmd groups commands acting on a single topic.
var topicCmd = &cobra.Command{
	Use:     "topic [command]",
	Aliases: []string{"t"},
	Short:   "Inspect and manage a topic",
	Long: `Inspect and manage a single topic.

Examples:
  revise topic show "Graph theory"
  revise topic rename "Graph theory" "Graph algorithms"
  revise topic strategy "Graph theory" "Exam Prep"
  revise topic history "Graph theory"
  revise topic delete "Graph theory"`,
}

var topicShowCmd = &cobra.Command{
	Use:               "show TOPIC",
	Short:             "Show a topic and its timetable",
	Args:              cobra.MinimumNArgs(1),
	ValidArgsFunction: completeTopicArgs,
	RunE:              runTopicShow,
}

var topicRenameCmd = &cobra.Command{
	Use:               "rename TOPIC NEW_NAME",
	Short:             "Rename a topic",
	Args:              cobra.ExactArgs(2),
	ValidArgsFunction: completeTopicArgs,
	RunE:              runTopicRename,
}

var topicStrategyCmd = &cobra.Command{
	Use:   "strategy TOPIC STRATEGY",
	Short: "Move a topic to another strategy",
	Long: `Move a topic to another strategy.

The timetable is recomputed from the day the topic was created, and
revisions already made still count.`,
	Args:              cobra.ExactArgs(2),
	ValidArgsFunction: completeTopicArgs,
	RunE:              runTopicStrategy,
}

var topicHistoryCmd = &cobra.Command{
	Use:               "history TOPIC",
	Aliases:           []string{"log"},
	Short:             "List a topic's revision instances",
	Args:              cobra.MinimumNArgs(1),
	ValidArgsFunction: completeTopicArgs,
	RunE:              runTopicHistory,
}

var topicDeleteCmd = &cobra.Command{
	Use:               "delete TOPIC",
	Aliases:           []string{"rm", "remove"},
	Short:             "Delete a topic and its revisions",
	Args:              cobra.MinimumNArgs(1),
	ValidArgsFunction: completeTopicArgs,
	RunE:              runTopicDelete,
}

func init() {
	addCmd.Flags().StringVarP(&addFlagStrategy, "strategy", "s", "",
		"Strategy name or ID (default: first strategy)")
	addCmd.Flags().StringVarP(&addFlagCreated, "created", "c", "",
		"Day the topic was first learned (e.g. 2024-05-01, -3d, 'last monday')")
	addCmd.Flags().StringVar(&addFlagLastRevised, "last-revised", "",
		"Day of the most recent revision already made")
	_ = addCmd.RegisterFlagCompletionFunc("strategy", completeStrategies)

	topicDeleteCmd.Flags().BoolVar(&topicDeleteFlagForce, "force", false,
		"Skip confirmation")
	topicStrategyCmd.ValidArgsFunction = func(cmd *cobra.Command, args []string, toComplete string) ([]string, cobra.ShellCompDirective) {
		if len(args) == 1 {
			return completeStrategies(cmd, args, toComplete)
		}
		return completeTopicArgs(cmd, args, toComplete)
	}

	topicCmd.AddCommand(topicShowCmd)
	topicCmd.AddCommand(topicRenameCmd)
	topicCmd.AddCommand(topicStrategyCmd)
	topicCmd.AddCommand(topicHistoryCmd)
	topicCmd.AddCommand(topicDeleteCmd)

	rootCmd.AddCommand(addCmd)
	rootCmd.AddCommand(doneCmd)
	rootCmd.AddCommand(topicCmd)
}

// findTopic resolves the topic named by args.
func findTopic(cmd *cobra.Command, args []string) (*model.Topic, error) {
	return ctx.Engine.FindTopic(cmd.Context(), strings.Join(args, " "))
}

func runAdd(cmd *cobra.Command, args []string) error {
	c := cmd.Context()
	name := strings.Join(args, " ")
	now := ctx.Engine.Now()

	var opts engine.CreateOptions
	if addFlagCreated != "" {
		day, err := parser.ParseDay(addFlagCreated, now, parser.PreferPast)
		if err != nil {
			return err
		}
		opts.CreatedAt = day
	}
	if addFlagLastRevised != "" {
		day, err := parser.ParseDay(addFlagLastRevised, now, parser.PreferPast)
		if err != nil {
			return err
		}
		opts.LastRevised = day
	}

	var (
		topic *model.Topic
		err   error
	)
	if addFlagStrategy != "" {
		s, err := ctx.Engine.GetStrategy(c, addFlagStrategy)
		if err != nil {
			return err
		}
		topic, err = ctx.Engine.CreateTopic(c, name, s.ID, opts)
		if err != nil {
			return err
		}
	} else {
		topic, err = ctx.Engine.CreateTopicWithDefault(c, name, opts)
		if err != nil {
			return err
		}
	}

	strategy, err := ctx.Engine.GetStrategy(c, topic.StrategyID)
	if err != nil {
		return err
	}

	p := ctx.Engine.Progress(topic)
	if ctx.IsJSON() {
		return ctx.JSONFormatter().PrintTopic("created", topic, p, ctx.Today())
	}
	ctx.CLIFormatter().PrintTopicCreated(topic, strategy, p, ctx.Today())
	return nil
}

func runDone(cmd *cobra.Command, args []string) error {
	topic, err := findTopic(cmd, args)
	if err != nil {
		return err
	}
	topic, err = ctx.Engine.MarkRevised(cmd.Context(), topic.ID)
	if err != nil {
		return err
	}

	p := ctx.Engine.Progress(topic)
	if ctx.IsJSON() {
		return ctx.JSONFormatter().PrintTopic("revised", topic, p, ctx.Today())
	}
	ctx.CLIFormatter().PrintRevised(topic, p, ctx.Today())
	return nil
}

func runTopicShow(cmd *cobra.Command, args []string) error {
	topic, err := findTopic(cmd, args)
	if err != nil {
		return err
	}

	p := ctx.Engine.Progress(topic)
	if ctx.IsJSON() {
		return ctx.JSONFormatter().PrintTopic("ok", topic, p, ctx.Today())
	}

	// A topic whose strategy was force-deleted still shows.
	strategy, err := ctx.Engine.GetStrategy(cmd.Context(), topic.StrategyID)
	if err != nil {
		strategy = nil
	}
	ctx.CLIFormatter().PrintTopic(topic, strategy, p, ctx.Today())
	return nil
}

func runTopicRename(cmd *cobra.Command, args []string) error {
	topic, err := findTopic(cmd, args[:1])
	if err != nil {
		return err
	}
	oldName := topic.Name

	topic, err = ctx.Engine.RenameTopic(cmd.Context(), topic.ID, args[1])
	if err != nil {
		return err
	}

	if ctx.IsJSON() {
		return ctx.JSONFormatter().PrintTopic("renamed", topic, ctx.Engine.Progress(topic), ctx.Today())
	}
	cli := ctx.CLIFormatter()
	cli.Success(fmt.Sprintf("Renamed %s to %s", oldName, cli.TopicName(topic.Name)))
	return nil
}

func runTopicStrategy(cmd *cobra.Command, args []string) error {
	c := cmd.Context()
	topic, err := findTopic(cmd, args[:1])
	if err != nil {
		return err
	}
	strategy, err := ctx.Engine.GetStrategy(c, args[1])
	if err != nil {
		return err
	}

	topic, err = ctx.Engine.ChangeStrategy(c, topic.ID, strategy.ID)
	if err != nil {
		return err
	}

	p := ctx.Engine.Progress(topic)
	if ctx.IsJSON() {
		return ctx.JSONFormatter().PrintTopic("updated", topic, p, ctx.Today())
	}
	cli := ctx.CLIFormatter()
	cli.Success(fmt.Sprintf("%s now follows %s (%s)", cli.TopicName(topic.Name), strategy.Name, strategy.IntervalsText()))
	if p.Learned {
		cli.Printf("  Status: %s\n", cli.Status(p.Status))
	} else {
		cli.Printf("  Next: %s\n", output.NextLabel(p, ctx.Today()))
	}
	return nil
}

func runTopicHistory(cmd *cobra.Command, args []string) error {
	topic, err := findTopic(cmd, args)
	if err != nil {
		return err
	}
	instances, err := ctx.Engine.Instances(cmd.Context(), topic.ID)
	if err != nil {
		return err
	}

	if ctx.IsJSON() {
		return ctx.Formatter.JSON(map[string]any{
			"topic":     output.NewTopicOutput(topic, ctx.Engine.Progress(topic), ctx.Today()),
			"instances": output.NewInstanceOutputs(instances),
		})
	}

	cli := ctx.CLIFormatter()
	cli.Title(fmt.Sprintf("History of %s", topic.Name))
	cli.PrintCalendar(instances)
	return nil
}

func runTopicDelete(cmd *cobra.Command, args []string) error {
	topic, err := findTopic(cmd, args)
	if err != nil {
		return err
	}

	if !topicDeleteFlagForce && !ctx.IsJSON() {
		ok, err := confirm(fmt.Sprintf("Delete topic %q and its revisions?", topic.Name))
		if err != nil {
			return err
		}
		if !ok {
			ctx.Formatter.Println("Cancelled.")
			return nil
		}
	}

	if err := ctx.Engine.DeleteTopic(cmd.Context(), topic.ID); err != nil {
		return err
	}

	if ctx.IsJSON() {
		return ctx.Formatter.JSON(map[string]any{
			"status": "deleted",
			"topic":  topic.ID,
		})
	}
	ctx.CLIFormatter().Success(fmt.Sprintf("Deleted %s", topic.Name))
	return nil
}
