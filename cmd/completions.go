package cmd

import (
	"context"
	"strings"

	"github.com/spf13/cobra"

	"github.com/manav03panchal/revise/internal/config"
	"github.com/manav03panchal/revise/internal/runtime"
)

// withCompletionContext runs fn with a runtime context. Completion runs
// without the root pre-run hook, so the database is opened here.
func withCompletionContext(fn func(c *runtime.Context) []string) ([]string, cobra.ShellCompDirective) {
	if ctx != nil {
		return fn(ctx), cobra.ShellCompDirectiveNoFileComp
	}

	cfg, err := config.Load(config.LoadOptions{File: flagConfig})
	if err != nil {
		return nil, cobra.ShellCompDirectiveError
	}
	c, err := runtime.New(context.Background(), runtimeOptions(cfg))
	if err != nil {
		return nil, cobra.ShellCompDirectiveError
	}
	defer c.Close()
	return fn(c), cobra.ShellCompDirectiveNoFileComp
}

// completeTopicArgs completes the first argument with topic names.
func completeTopicArgs(cmd *cobra.Command, args []string, toComplete string) ([]string, cobra.ShellCompDirective) {
	if len(args) != 0 {
		return nil, cobra.ShellCompDirectiveNoFileComp
	}
	return withCompletionContext(func(c *runtime.Context) []string {
		topics, err := c.Engine.QueryAll(cmd.Context())
		if err != nil {
			return nil
		}
		var names []string
		for _, t := range topics {
			if strings.HasPrefix(strings.ToLower(t.Name), strings.ToLower(toComplete)) {
				names = append(names, t.Name+"\t"+t.ShortID())
			}
		}
		return names
	})
}

// completeStrategies completes strategy names, for flags and arguments.
func completeStrategies(cmd *cobra.Command, args []string, toComplete string) ([]string, cobra.ShellCompDirective) {
	return withCompletionContext(func(c *runtime.Context) []string {
		strategies, err := c.Engine.ListStrategies(cmd.Context())
		if err != nil {
			return nil
		}
		var names []string
		for _, s := range strategies {
			if strings.HasPrefix(strings.ToLower(s.Name), strings.ToLower(toComplete)) {
				names = append(names, s.Name+"\t"+s.IntervalsText())
			}
		}
		return names
	})
}

// completeStrategyArgs completes the first argument with strategy names.
func completeStrategyArgs(cmd *cobra.Command, args []string, toComplete string) ([]string, cobra.ShellCompDirective) {
	if len(args) != 0 {
		return nil, cobra.ShellCompDirectiveNoFileComp
	}
	return completeStrategies(cmd, args, toComplete)
}

// completeDayArgs suggests common day expressions.
func completeDayArgs(cmd *cobra.Command, args []string, toComplete string) ([]string, cobra.ShellCompDirective) {
	days := []string{
		"today\ttoday's revisions",
		"tomorrow\ttomorrow's revisions",
		"yesterday\tyesterday's revisions",
		"+7\ta week from today",
	}

	var filtered []string
	for _, d := range days {
		if strings.HasPrefix(strings.Split(d, "\t")[0], toComplete) {
			filtered = append(filtered, d)
		}
	}
	return filtered, cobra.ShellCompDirectiveNoFileComp
}
