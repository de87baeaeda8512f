package model

import (
	"slices"
	"strings"
	"time"

	"github.com/manav03panchal/revise/internal/logging"
)

// PrefixWebhook is the database key prefix for webhooks.
const PrefixWebhook = "webhook"

// Webhook type constants.
const (
	WebhookTypeDiscord  = "discord"
	WebhookTypeSlack    = "slack"
	WebhookTypeTeams    = "teams"
	WebhookTypeGeneric  = "generic"
	WebhookTypeTelegram = "telegram"
)

// Webhook is a reminder delivery target. For telegram targets URL holds
// the bot token and ChatID the destination chat.
type Webhook struct {
	Key       string    `json:"key"`
	Name      string    `json:"name" validate:"required,max=50,webhookname"`
	Type      string    `json:"type" validate:"required,oneof=discord slack teams generic telegram"`
	URL       string    `json:"url" validate:"required"`
	ChatID    int64     `json:"chat_id,omitempty"`
	Enabled   bool      `json:"enabled"`
	Template  string    `json:"template,omitempty"` // generic only
	CreatedAt time.Time `json:"created_at"`
	LastUsed  time.Time `json:"last_used,omitempty"`
	LastError string    `json:"last_error,omitempty"`
}

func (w *Webhook) SetKey(key string) { w.Key = key }
func (w *Webhook) GetKey() string    { return w.Key }

// IsEnabled reports whether the dispatcher delivers to this webhook.
func (w *Webhook) IsEnabled() bool { return w.Enabled }

// IsTelegram reports whether delivery goes through the Telegram bot API.
func (w *Webhook) IsTelegram() bool {
	return w.Type == WebhookTypeTelegram
}

// MaskedURL returns the target with its secret hidden, as written to logs.
func (w *Webhook) MaskedURL() string {
	return logging.MaskURL(w.URL)
}

// GenerateWebhookKey returns the database key of the webhook called name.
func GenerateWebhookKey(name string) string {
	return PrefixWebhook + ":" + name
}

// NewWebhook creates a new enabled webhook.
func NewWebhook(name, webhookType, url string) *Webhook {
	return &Webhook{
		Key:       GenerateWebhookKey(name),
		Name:      name,
		Type:      webhookType,
		URL:       url,
		Enabled:   true,
		CreatedAt: time.Now(),
	}
}

var webhookTypes = []string{
	WebhookTypeDiscord,
	WebhookTypeSlack,
	WebhookTypeTeams,
	WebhookTypeGeneric,
	WebhookTypeTelegram,
}

// ValidWebhookTypes lists the accepted webhook types.
func ValidWebhookTypes() []string {
	return slices.Clone(webhookTypes)
}

// IsValidWebhookType reports whether t is one of ValidWebhookTypes.
func IsValidWebhookType(t string) bool {
	return slices.Contains(webhookTypes, t)
}

// webhookHosts maps URL fragments to the type they imply.
var webhookHosts = []struct {
	fragment string
	typ      string
}{
	{"discord.com/api/webhooks", WebhookTypeDiscord},
	{"hooks.slack.com", WebhookTypeSlack},
	{"outlook.office.com/webhook", WebhookTypeTeams},
	{"webhook.office.com", WebhookTypeTeams},
}

// DetectWebhookType guesses the type from a webhook URL, falling back to
// generic.
func DetectWebhookType(url string) string {
	lower := strings.ToLower(url)
	for _, h := range webhookHosts {
		if strings.Contains(lower, h.fragment) {
			return h.typ
		}
	}
	return WebhookTypeGeneric
}
