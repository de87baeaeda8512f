package cmd

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	apperrors "github.com/manav03panchal/revise/internal/errors"
	"github.com/manav03panchal/revise/internal/model"
	"github.com/manav03panchal/revise/internal/notify"
	"github.com/manav03panchal/revise/internal/output"
	"github.com/manav03panchal/revise/internal/runtime"
	"github.com/manav03panchal/revise/internal/validate"
)

// Webhook command flags.
var (
	webhookAddFlagType     string
	webhookAddFlagTemplate string
	webhookAddFlagChatID   int64
	webhookRemoveFlagForce bool
	webhookTestFlagAll     bool
)

// webhookCmd represents the webhook command.
var webhookCmd = &cobra.Command{
	Use:     "webhook [command]",
	Aliases: []string{"w", "wh", "hook"},
	Short:   "Configure reminder webhooks",
	Long: `Configure where revision reminders are delivered: Discord, Slack, Teams,
a Telegram bot, or any endpoint accepting JSON.

Reminders are sent by the daemon on each revision day at notify.hour,
and as a morning digest when notify.digest_enabled is set.

Examples:
  revise webhook add discord https://discord.com/api/webhooks/...
  revise webhook add slack https://hooks.slack.com/services/...
  revise webhook add phone 123456:ABC-DEF... --type telegram --chat-id 42
  revise webhook list
  revise webhook test discord
  revise webhook disable slack
  revise webhook remove discord`,
	RunE: runWebhookList,
}

// webhookAddCmd adds a new webhook.
var webhookAddCmd = &cobra.Command{
	Use:   "add NAME URL",
	Short: "Add a new webhook",
	Long: `Add a webhook for receiving reminders.

The webhook type is auto-detected from the URL:
  - Discord: discord.com/api/webhooks/...
  - Slack:   hooks.slack.com/services/...
  - Teams:   outlook.office.com/webhook/...
  - Generic: Any other URL

For Telegram pass the bot token as URL, --type telegram and --chat-id.

Examples:
  revise webhook add discord https://discord.com/api/webhooks/123/abc
  revise webhook add my-webhook https://example.com/hook --type generic
  revise webhook add phone 123456:ABC-DEF... --type telegram --chat-id 42`,
	Args: cobra.ExactArgs(2),
	RunE: runWebhookAdd,
}

// webhookListCmd lists all webhooks.
var webhookListCmd = &cobra.Command{
	Use:     "list",
	Aliases: []string{"ls"},
	Short:   "List all webhooks",
	RunE:    runWebhookList,
}

// webhookTestCmd tests a webhook.
var webhookTestCmd = &cobra.Command{
	Use:   "test [NAME]",
	Short: "Test a webhook by sending a test notification",
	Long: `Send a test notification to verify webhook configuration.

Examples:
  revise webhook test discord
  revise webhook test --all`,
	RunE: runWebhookTest,
}

// webhookRemoveCmd removes a webhook.
var webhookRemoveCmd = &cobra.Command{
	Use:     "remove NAME",
	Aliases: []string{"rm", "delete"},
	Short:   "Remove a webhook",
	Args:    cobra.ExactArgs(1),
	RunE:    runWebhookRemove,
}

// webhookEnableCmd enables a webhook.
var webhookEnableCmd = &cobra.Command{
	Use:   "enable NAME",
	Short: "Enable a webhook",
	Args:  cobra.ExactArgs(1),
	RunE:  setWebhookEnabled(true),
}

// webhookDisableCmd disables a webhook.
var webhookDisableCmd = &cobra.Command{
	Use:   "disable NAME",
	Short: "Disable a webhook",
	Args:  cobra.ExactArgs(1),
	RunE:  setWebhookEnabled(false),
}

func init() {
	webhookAddCmd.Flags().StringVarP(&webhookAddFlagType, "type", "t", "",
		"Webhook type: "+strings.Join(model.ValidWebhookTypes(), ", ")+" (auto-detected from URL if not specified)")
	webhookAddCmd.Flags().StringVar(&webhookAddFlagTemplate, "template", "",
		"Custom payload template (generic type only)")
	webhookAddCmd.Flags().Int64Var(&webhookAddFlagChatID, "chat-id", 0,
		"Telegram chat ID (telegram type only)")
	_ = webhookAddCmd.RegisterFlagCompletionFunc("type", func(cmd *cobra.Command, args []string, toComplete string) ([]string, cobra.ShellCompDirective) {
		return model.ValidWebhookTypes(), cobra.ShellCompDirectiveNoFileComp
	})

	webhookRemoveCmd.Flags().BoolVar(&webhookRemoveFlagForce, "force", false,
		"Skip confirmation")

	webhookTestCmd.Flags().BoolVarP(&webhookTestFlagAll, "all", "a", false,
		"Test all enabled webhooks")

	// Dynamic completion for webhook names
	webhookTestCmd.ValidArgsFunction = completeWebhookArgs
	webhookRemoveCmd.ValidArgsFunction = completeWebhookArgs
	webhookEnableCmd.ValidArgsFunction = completeWebhookArgs
	webhookDisableCmd.ValidArgsFunction = completeWebhookArgs

	webhookCmd.AddCommand(webhookAddCmd)
	webhookCmd.AddCommand(webhookListCmd)
	webhookCmd.AddCommand(webhookTestCmd)
	webhookCmd.AddCommand(webhookRemoveCmd)
	webhookCmd.AddCommand(webhookEnableCmd)
	webhookCmd.AddCommand(webhookDisableCmd)

	rootCmd.AddCommand(webhookCmd)
}

// completeWebhookArgs provides completion for webhook names.
func completeWebhookArgs(cmd *cobra.Command, args []string, toComplete string) ([]string, cobra.ShellCompDirective) {
	if len(args) != 0 {
		return nil, cobra.ShellCompDirectiveNoFileComp
	}
	return withCompletionContext(func(c *runtime.Context) []string {
		webhooks, err := c.WebhookRepo.List()
		if err != nil {
			return nil
		}
		var names []string
		for _, wh := range webhooks {
			if strings.HasPrefix(wh.Name, toComplete) {
				names = append(names, wh.Name)
			}
		}
		return names
	})
}

func runWebhookAdd(cmd *cobra.Command, args []string) error {
	name, target := args[0], strings.TrimSpace(args[1])

	kind := strings.ToLower(webhookAddFlagType)
	if kind == "" {
		kind = model.DetectWebhookType(target)
	}
	if !model.IsValidWebhookType(kind) {
		return apperrors.NewValidationError("type", kind, "invalid webhook type",
			"Use one of: "+strings.Join(model.ValidWebhookTypes(), ", ")+".")
	}

	wh := model.NewWebhook(name, kind, target)
	wh.ChatID = webhookAddFlagChatID
	wh.Template = webhookAddFlagTemplate
	if err := validate.Webhook(wh); err != nil {
		return err
	}
	if err := ctx.WebhookRepo.Create(wh); err != nil {
		return err
	}

	if ctx.IsJSON() {
		return ctx.Formatter.JSON(map[string]any{
			"status":  "created",
			"webhook": output.NewWebhookOutput(wh),
		})
	}
	cli := ctx.CLIFormatter()
	cli.Success(fmt.Sprintf("Added %s webhook %s", wh.Type, wh.Name))
	cli.Printf("  Target: %s\n", wh.MaskedURL())
	if wh.IsTelegram() {
		cli.Printf("  Chat:   %d\n", wh.ChatID)
	}
	cli.Muted("Send a test message with 'revise webhook test " + wh.Name + "'.")
	return nil
}

func runWebhookList(cmd *cobra.Command, args []string) error {
	webhooks, err := ctx.WebhookRepo.List()
	if err != nil {
		return err
	}
	if ctx.IsJSON() {
		return ctx.JSONFormatter().PrintWebhooks(webhooks)
	}
	ctx.CLIFormatter().PrintWebhooks(webhooks)
	return nil
}

// webhookTestTargets returns the webhooks named by args, or every enabled
// one with --all.
func webhookTestTargets(args []string) ([]string, error) {
	if !webhookTestFlagAll {
		if len(args) == 0 {
			return nil, apperrors.NewValidationError("name", "", "webhook name required",
				"Name a webhook or pass --all.")
		}
		if _, err := ctx.WebhookRepo.Get(args[0]); err != nil {
			return nil, err
		}
		return args[:1], nil
	}

	enabled, err := ctx.WebhookRepo.ListEnabled()
	if err != nil {
		return nil, err
	}
	if len(enabled) == 0 {
		return nil, apperrors.NewUserError("no enabled webhooks to test",
			"Add one with 'revise webhook add <name> <url>'.")
	}
	names := make([]string, len(enabled))
	for i, wh := range enabled {
		names[i] = wh.Name
	}
	return names, nil
}

func runWebhookTest(cmd *cobra.Command, args []string) error {
	names, err := webhookTestTargets(args)
	if err != nil {
		return err
	}

	c, cancel := context.WithTimeout(cmd.Context(), 30*time.Second)
	defer cancel()

	results := make([]notify.DispatchResult, len(names))
	for i, name := range names {
		results[i] = ctx.Dispatcher.TestWebhook(c, name)
	}

	if ctx.IsJSON() {
		out := make([]map[string]any, len(results))
		for i, r := range results {
			out[i] = map[string]any{
				"webhook":    r.WebhookName,
				"success":    r.Success,
				"statusCode": r.StatusCode,
				"durationMs": r.Duration.Milliseconds(),
				"error":      errorString(r.Error),
			}
		}
		return ctx.Formatter.JSON(map[string]any{"results": out})
	}

	cli := ctx.CLIFormatter()
	for _, r := range results {
		if r.Success {
			cli.Success(fmt.Sprintf("%s: delivered in %dms", r.WebhookName, r.Duration.Milliseconds()))
		} else {
			cli.Error(fmt.Sprintf("%s: %s", r.WebhookName, errorString(r.Error)))
		}
	}
	return nil
}

func runWebhookRemove(cmd *cobra.Command, args []string) error {
	name := args[0]
	if _, err := ctx.WebhookRepo.Get(name); err != nil {
		return err
	}

	if !webhookRemoveFlagForce && !ctx.IsJSON() {
		ok, err := confirm(fmt.Sprintf("Remove webhook %q?", name))
		if err != nil || !ok {
			return err
		}
	}

	if err := ctx.WebhookRepo.Delete(name); err != nil {
		return err
	}
	return printWebhookStatus("removed", name)
}

// setWebhookEnabled returns the RunE of enable or disable.
func setWebhookEnabled(enabled bool) func(*cobra.Command, []string) error {
	return func(cmd *cobra.Command, args []string) error {
		name := args[0]
		set, status := ctx.WebhookRepo.Disable, "disabled"
		if enabled {
			set, status = ctx.WebhookRepo.Enable, "enabled"
		}
		if err := set(name); err != nil {
			return err
		}
		return printWebhookStatus(status, name)
	}
}

func printWebhookStatus(status, name string) error {
	if ctx.IsJSON() {
		return ctx.Formatter.JSON(map[string]any{
			"status":  status,
			"webhook": name,
		})
	}
	ctx.CLIFormatter().Success(fmt.Sprintf("Webhook %s %s", name, status))
	return nil
}

func errorString(err error) string {
	if err == nil {
		return ""
	}
	return err.Error()
}
