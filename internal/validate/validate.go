// Package validate checks user input before it reaches the engine or the
// webhook store. Failures are returned as ValidationErrors carrying a
// suggestion for the CLI.
package validate

import (
	"fmt"
	"net"
	"net/url"
	"reflect"
	"regexp"
	"strings"
	"sync"

	"github.com/go-playground/validator/v10"

	"github.com/manav03panchal/revise/internal/errors"
	"github.com/manav03panchal/revise/internal/model"
)

const (
	// MaxTopicNameLength bounds topic names, in characters.
	MaxTopicNameLength = 200
	// MaxStrategyNameLength bounds strategy names, in characters.
	MaxStrategyNameLength = 100
	// MaxWebhookNameLength bounds webhook names.
	MaxWebhookNameLength = 50
	// MaxURLLength is the maximum length for a URL.
	MaxURLLength = 2048
)

var (
	webhookNameRegex   = regexp.MustCompile(`^[a-zA-Z0-9][a-zA-Z0-9_-]*$`)
	telegramTokenRegex = regexp.MustCompile(`^[0-9]+:[A-Za-z0-9_-]{20,}$`)
)

var instance = sync.OnceValue(func() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name, _, _ := strings.Cut(f.Tag.Get("json"), ",")
		if name == "" || name == "-" {
			return f.Name
		}
		return name
	})
	_ = v.RegisterValidation("webhookname", func(fl validator.FieldLevel) bool {
		return webhookNameRegex.MatchString(fl.Field().String())
	})
	return v
})

// Struct validates a model against its `validate` tags.
func Struct(s any) error {
	err := instance().Struct(s)
	if err == nil {
		return nil
	}
	verrs, ok := err.(validator.ValidationErrors)
	if !ok || len(verrs) == 0 {
		return errors.NewValidationError("", "", err.Error(), "")
	}
	return fieldError(verrs[0])
}

func fieldError(fe validator.FieldError) error {
	field := fe.Field()
	value := fmt.Sprint(fe.Value())
	switch fe.Tag() {
	case "required":
		return errors.NewValidationError(field, value,
			field+" is required", "Provide a value for "+field+".")
	case "max":
		return errors.NewValidationError(field, truncate(value, 20),
			field+" is too long", fmt.Sprintf("Keep %s under %s characters.", field, fe.Param()))
	case "oneof":
		return errors.NewValidationError(field, value,
			fmt.Sprintf("invalid %s %q", field, value),
			"Use one of: "+strings.ReplaceAll(fe.Param(), " ", ", ")+".")
	case "webhookname":
		return errors.NewValidationError(field, value,
			"invalid webhook name",
			"Names must start with a letter or number and contain only letters, numbers, dashes, or underscores.")
	default:
		return errors.NewValidationError(field, value,
			fmt.Sprintf("%s failed %q validation", field, fe.Tag()), "")
	}
}

// TopicName trims name and checks it is present and not too long.
func TopicName(name string) (string, error) {
	name = StripControlChars(strings.TrimSpace(name))
	if name == "" {
		return "", errors.NewValidationError("name", name,
			"topic name is required", "Give the topic a name, for example 'revise add \"Graph theory\"'.")
	}
	if err := instance().Var(name, fmt.Sprintf("max=%d", MaxTopicNameLength)); err != nil {
		return "", errors.NewValidationError("name", truncate(name, 20),
			"topic name is too long", fmt.Sprintf("Keep topic names under %d characters.", MaxTopicNameLength))
	}
	return name, nil
}

// StrategyName trims name and checks it is present and not too long.
func StrategyName(name string) (string, error) {
	name = StripControlChars(strings.TrimSpace(name))
	if name == "" {
		return "", errors.NewValidationError("name", name,
			"strategy name is required", "Name the strategy, for example 'revise strategy add Weekly 7,14,21'.")
	}
	if err := instance().Var(name, fmt.Sprintf("max=%d", MaxStrategyNameLength)); err != nil {
		return "", errors.NewValidationError("name", truncate(name, 20),
			"strategy name is too long", fmt.Sprintf("Keep strategy names under %d characters.", MaxStrategyNameLength))
	}
	return name, nil
}

// Webhook validates a webhook before it is stored: tags first, then the
// target. Telegram targets need a bot token and a chat id; the others
// need a public URL.
func Webhook(w *model.Webhook) error {
	if err := Struct(w); err != nil {
		return err
	}
	if w.IsTelegram() {
		if !telegramTokenRegex.MatchString(w.URL) {
			return errors.NewValidationError("token", "***",
				"invalid telegram bot token", "Copy the token from @BotFather, it looks like 123456:ABC-DEF...")
		}
		if w.ChatID == 0 {
			return errors.NewValidationError("chat_id", "0",
				"telegram chat id is required", "Pass --chat-id with the id of the chat to notify.")
		}
		return nil
	}
	return URL(w.URL)
}

// URL validates a URL for use as a webhook endpoint.
func URL(rawURL string) error {
	if rawURL == "" {
		return errors.NewValidationError("url", rawURL, "URL cannot be empty", "Provide a valid URL.")
	}
	if len(rawURL) > MaxURLLength {
		return errors.NewValidationError("url", truncate(rawURL, 40),
			"URL too long", fmt.Sprintf("URLs must be %d characters or fewer.", MaxURLLength))
	}

	parsed, err := url.Parse(rawURL)
	if err != nil {
		return errors.NewValidationError("url", rawURL,
			"invalid URL format", "Provide a valid URL starting with https://")
	}
	if parsed.Scheme != "https" && parsed.Scheme != "http" {
		return errors.NewValidationError("url", rawURL,
			"invalid URL scheme", "URLs must use https:// (or http:// for localhost).")
	}

	hostname := parsed.Hostname()
	if hostname == "" {
		return errors.NewValidationError("url", rawURL,
			"invalid URL: missing hostname", "Provide a valid URL like https://example.com/webhook")
	}

	isLocalhost := hostname == "localhost" || hostname == "127.0.0.1" || hostname == "::1"
	if parsed.Scheme == "http" && !isLocalhost {
		return errors.NewValidationError("url", rawURL,
			"HTTP not allowed for external URLs", "Use https://. HTTP is only allowed for localhost.")
	}
	if !isLocalhost {
		return checkInternalIP(hostname)
	}
	return nil
}

// checkInternalIP rejects hosts that are, or resolve to, private addresses.
// Resolution failures pass; delivery will report them.
func checkInternalIP(hostname string) error {
	if ip := net.ParseIP(hostname); ip != nil {
		if isInternalIP(ip) {
			return errors.NewValidationError("url", hostname,
				"internal IP addresses not allowed", "Webhook URLs must point to external services.")
		}
		return nil
	}

	ips, err := net.LookupIP(hostname)
	if err != nil {
		return nil
	}
	for _, ip := range ips {
		if isInternalIP(ip) {
			return errors.NewValidationError("url", hostname,
				"hostname resolves to internal IP", "Webhook URLs must point to external services.")
		}
	}
	return nil
}

var privateNets = func() []*net.IPNet {
	cidrs := []string{
		"10.0.0.0/8",
		"172.16.0.0/12",
		"192.168.0.0/16",
		"127.0.0.0/8",
		"169.254.0.0/16",
		"fc00::/7",
		"fe80::/10",
		"::1/128",
	}
	nets := make([]*net.IPNet, 0, len(cidrs))
	for _, cidr := range cidrs {
		_, n, _ := net.ParseCIDR(cidr)
		nets = append(nets, n)
	}
	return nets
}()

func isInternalIP(ip net.IP) bool {
	for _, n := range privateNets {
		if n.Contains(ip) {
			return true
		}
	}
	return false
}

// Hour validates an hour of day.
func Hour(field string, hour int) error {
	if err := instance().Var(hour, "gte=0,lte=23"); err != nil {
		return errors.NewValidationError(field, fmt.Sprint(hour),
			field+" must be an hour between 0 and 23", "Use 24-hour time, for example 9 or 18.")
	}
	return nil
}
