package validate

import (
	"errors"
	"net"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "github.com/manav03panchal/revise/internal/errors"
	"github.com/manav03panchal/revise/internal/model"
)

const validToken = "123456:ABCdefGHIjklMNOpqrSTUvwxYZ012"

// =============================================================================
// Name Tests
// =============================================================================

func TestTopicName(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		want    string
		wantErr bool
	}{
		{"simple", "Graph theory", "Graph theory", false},
		{"trimmed", "  Graphs \n", "Graphs", false},
		{"control_chars", "Gra\x07phs", "Graphs", false},
		{"max_length", strings.Repeat("a", MaxTopicNameLength), strings.Repeat("a", MaxTopicNameLength), false},
		{"max_length_runes", strings.Repeat("é", MaxTopicNameLength), strings.Repeat("é", MaxTopicNameLength), false},
		{"empty", "", "", true},
		{"blank", "   ", "", true},
		{"too_long", strings.Repeat("a", MaxTopicNameLength+1), "", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := TopicName(tt.input)
			if tt.wantErr {
				assert.ErrorIs(t, err, apperrors.ErrValidation)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestTopicNameSuggestion(t *testing.T) {
	_, err := TopicName("")
	assert.Contains(t, apperrors.GetSuggestion(err), "revise add")
}

func TestStrategyName(t *testing.T) {
	got, err := StrategyName(" Weekly ")
	require.NoError(t, err)
	assert.Equal(t, "Weekly", got)

	_, err = StrategyName("")
	assert.ErrorIs(t, err, apperrors.ErrValidation)

	_, err = StrategyName(strings.Repeat("s", MaxStrategyNameLength+1))
	assert.ErrorIs(t, err, apperrors.ErrValidation)
}

// =============================================================================
// Struct Tests
// =============================================================================

func TestStructUsesJSONFieldNames(t *testing.T) {
	err := Struct(&model.Strategy{Name: ""})
	require.Error(t, err)

	var verr *apperrors.ValidationError
	require.True(t, errors.As(err, &verr))
	assert.Equal(t, "name", verr.Field)
	assert.Equal(t, "name is required", verr.Message)
}

func TestStructMax(t *testing.T) {
	err := Struct(&model.Topic{Name: strings.Repeat("x", 201)})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "name is too long")
}

func TestStructValid(t *testing.T) {
	assert.NoError(t, Struct(model.NewStrategy("Weekly", []int{7})))
}

// =============================================================================
// Webhook Tests
// =============================================================================

func TestWebhook(t *testing.T) {
	telegram := func(token string, chat int64) *model.Webhook {
		w := model.NewWebhook("phone", model.WebhookTypeTelegram, token)
		w.ChatID = chat
		return w
	}

	tests := []struct {
		name    string
		webhook *model.Webhook
		wantErr string
	}{
		{"discord", model.NewWebhook("study", model.WebhookTypeDiscord, "https://1.1.1.1/api/webhooks/x"), ""},
		{"localhost_generic", model.NewWebhook("local-1", model.WebhookTypeGeneric, "http://localhost:8080/hook"), ""},
		{"telegram", telegram(validToken, 42), ""},
		{"bad_name", model.NewWebhook("-study", model.WebhookTypeDiscord, "https://1.1.1.1/x"), "invalid webhook name"},
		{"name_with_space", model.NewWebhook("my hook", model.WebhookTypeDiscord, "https://1.1.1.1/x"), "invalid webhook name"},
		{"bad_type", model.NewWebhook("study", "pager", "https://1.1.1.1/x"), "invalid type"},
		{"missing_url", model.NewWebhook("study", model.WebhookTypeSlack, ""), "url is required"},
		{"internal_url", model.NewWebhook("study", model.WebhookTypeSlack, "https://10.0.0.1/x"), "internal IP"},
		{"telegram_bad_token", telegram("not-a-token", 42), "invalid telegram bot token"},
		{"telegram_no_chat", telegram(validToken, 0), "chat id is required"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := Webhook(tt.webhook)
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.ErrorIs(t, err, apperrors.ErrValidation)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

// =============================================================================
// URL Tests
// =============================================================================

func TestURL(t *testing.T) {
	tests := []struct {
		name    string
		url     string
		wantErr bool
	}{
		{"https_ip", "https://93.184.216.34/webhook", false},
		{"https_with_port", "https://93.184.216.34:8443/webhook", false},
		{"localhost_http", "http://localhost/webhook", false},
		{"localhost_127", "http://127.0.0.1/webhook", false},
		{"localhost_ipv6", "http://[::1]/webhook", false},

		{"empty", "", true},
		{"http_non_localhost", "http://example.com/webhook", true},
		{"ftp_scheme", "ftp://example.com/file", true},
		{"no_scheme", "example.com/webhook", true},
		{"missing_host", "https:///path", true},
		{"too_long", "https://example.com/" + strings.Repeat("a", MaxURLLength), true},

		{"internal_10", "https://10.0.0.1/webhook", true},
		{"internal_172", "https://172.16.0.1/webhook", true},
		{"internal_192", "https://192.168.1.1/webhook", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := URL(tt.url)
			if tt.wantErr {
				assert.Error(t, err, "URL: %s", tt.url)
			} else {
				assert.NoError(t, err, "URL: %s", tt.url)
			}
		})
	}
}

func TestIsInternalIP(t *testing.T) {
	tests := []struct {
		ip       string
		internal bool
	}{
		{"10.0.0.1", true},
		{"172.16.0.1", true},
		{"192.168.1.1", true},
		{"127.0.0.1", true},
		{"169.254.0.1", true},
		{"fe80::1", true},
		{"8.8.8.8", false},
		{"1.1.1.1", false},
		{"2606:4700::1111", false},
	}

	for _, tt := range tests {
		t.Run(tt.ip, func(t *testing.T) {
			ip := net.ParseIP(tt.ip)
			require.NotNil(t, ip)
			assert.Equal(t, tt.internal, isInternalIP(ip))
		})
	}
}

func TestHour(t *testing.T) {
	for _, h := range []int{0, 9, 23} {
		assert.NoError(t, Hour("hour", h))
	}
	for _, h := range []int{-1, 24} {
		err := Hour("hour", h)
		assert.ErrorIs(t, err, apperrors.ErrValidation)
		assert.Contains(t, err.Error(), "between 0 and 23")
	}
}

// =============================================================================
// Sanitize Tests
// =============================================================================

func TestStripControlChars(t *testing.T) {
	assert.Equal(t, "a\tb\nc", StripControlChars("a\tb\nc\x00\x1b"))
}

func TestSafeFilename(t *testing.T) {
	tests := map[string]string{
		"Graph theory":     "Graph theory",
		"a/b\\c:d":         "a_b_c_d",
		" .hidden. ":       "hidden",
		"what?<now>|\"x\"": "what__now___x_",
	}
	for in, want := range tests {
		assert.Equal(t, want, SafeFilename(in), in)
	}
	assert.Len(t, SafeFilename(strings.Repeat("a", 300)), 200)
}

func TestTruncate(t *testing.T) {
	assert.Equal(t, "abc", truncate("abc", 5))
	assert.Equal(t, "ab...", truncate("abcdef", 2))
	assert.Equal(t, "éé...", truncate("éééé", 2))
}
