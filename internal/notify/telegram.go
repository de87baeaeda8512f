package notify

import (
	"fmt"
	"html"
	"net/http"
	"strings"
	"sync"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/manav03panchal/revise/internal/model"
)

// TelegramSender delivers notifications through the Telegram bot API. For
// telegram webhooks the URL field holds the bot token.
type TelegramSender struct {
	endpoint string
	client   *http.Client

	mu   sync.Mutex
	bots map[string]*tgbotapi.BotAPI
}

// NewTelegramSender creates a sender using client for API calls.
func NewTelegramSender(client *http.Client) *TelegramSender {
	return &TelegramSender{
		endpoint: tgbotapi.APIEndpoint,
		client:   client,
		bots:     make(map[string]*tgbotapi.BotAPI),
	}
}

// WithEndpoint points the sender at another API host. The format takes the
// token and the method name, as tgbotapi.APIEndpoint does.
func (s *TelegramSender) WithEndpoint(endpoint string) *TelegramSender {
	s.endpoint = endpoint
	return s
}

// bot returns a cached client for token. Creating one calls getMe, which
// also validates the token.
func (s *TelegramSender) bot(token string) (*tgbotapi.BotAPI, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if b, ok := s.bots[token]; ok {
		return b, nil
	}
	b, err := tgbotapi.NewBotAPIWithClient(token, s.endpoint, s.client)
	if err != nil {
		return nil, fmt.Errorf("telegram bot login failed: %w", err)
	}
	s.bots[token] = b
	return b, nil
}

// Send posts n to the webhook's chat.
func (s *TelegramSender) Send(wh *model.Webhook, n *model.Notification) error {
	if wh.ChatID == 0 {
		return fmt.Errorf("telegram webhook %s has no chat id", wh.Name)
	}
	b, err := s.bot(wh.URL)
	if err != nil {
		return err
	}

	msg := tgbotapi.NewMessage(wh.ChatID, FormatTelegram(n))
	msg.ParseMode = tgbotapi.ModeHTML
	msg.DisableWebPagePreview = true
	if _, err := b.Send(msg); err != nil {
		return fmt.Errorf("telegram send failed: %w", err)
	}
	return nil
}

// FormatTelegram renders n as Telegram HTML.
func FormatTelegram(n *model.Notification) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "<b>%s</b>\n", html.EscapeString(n.Title))
	if n.Message != "" {
		sb.WriteString(html.EscapeString(n.Message))
		sb.WriteString("\n")
	}
	for _, key := range sortedKeys(n.Fields) {
		fmt.Fprintf(&sb, "\n<i>%s:</i> %s", html.EscapeString(key), html.EscapeString(n.Fields[key]))
	}
	return strings.TrimRight(sb.String(), "\n")
}
