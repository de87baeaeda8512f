// Package notify delivers revision reminders: it stores alarms for the
// scheduling engine and sends notifications to webhooks and Telegram.
package notify

import (
	"sort"

	"github.com/manav03panchal/revise/internal/model"
)

// footer labels every outgoing message.
const footer = "revise"

// Formatter formats notifications for a specific webhook type.
type Formatter interface {
	// Format converts a notification into the webhook-specific payload.
	Format(n *model.Notification) ([]byte, error)

	// ContentType returns the HTTP Content-Type for the payload.
	ContentType() string
}

// GetFormatter returns the appropriate formatter for a webhook type.
func GetFormatter(webhookType string) Formatter {
	switch webhookType {
	case model.WebhookTypeDiscord:
		return &DiscordFormatter{}
	case model.WebhookTypeSlack:
		return &SlackFormatter{}
	case model.WebhookTypeTeams:
		return &TeamsFormatter{}
	default:
		return &GenericFormatter{}
	}
}

// sortedKeys returns the notification's field names in a stable order.
func sortedKeys(fields map[string]string) []string {
	keys := make([]string, 0, len(fields))
	for k := range fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

