package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/manav03panchal/revise/internal/config"
	"github.com/manav03panchal/revise/internal/model"
	"github.com/manav03panchal/revise/internal/storage"
)

func setupTestDB(t *testing.T) *storage.DB {
	db, err := storage.Open(storage.Options{InMemory: true})
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return db
}

// fastClient retries immediately.
func fastClient() *HTTPClient {
	return NewHTTPClientWith(config.HTTPConfig{
		Timeout:     2 * time.Second,
		MaxRetries:  2,
		RetryDelays: []time.Duration{0},
	})
}

func sampleNotification() *model.Notification {
	return model.NewNotification(model.NotifyRevisionDue, "Time to revise: Graphs", "Second revision of 6").
		WithField("Topic", "Graphs").
		WithField("Day", "2024-06-15")
}

// =============================================================================
// Formatter Tests
// =============================================================================

func TestGetFormatter(t *testing.T) {
	tests := []struct {
		webhookType string
		expected    string
	}{
		{model.WebhookTypeDiscord, "*notify.DiscordFormatter"},
		{model.WebhookTypeSlack, "*notify.SlackFormatter"},
		{model.WebhookTypeTeams, "*notify.TeamsFormatter"},
		{model.WebhookTypeGeneric, "*notify.GenericFormatter"},
		{"unknown", "*notify.GenericFormatter"},
		{"", "*notify.GenericFormatter"},
	}

	for _, tt := range tests {
		t.Run(tt.webhookType, func(t *testing.T) {
			formatter := GetFormatter(tt.webhookType)
			assert.Equal(t, tt.expected, fmt.Sprintf("%T", formatter))
			assert.Equal(t, "application/json", formatter.ContentType())
		})
	}
}

func TestDiscordFormatter(t *testing.T) {
	payload, err := (&DiscordFormatter{}).Format(sampleNotification())
	require.NoError(t, err)

	var got discordPayload
	require.NoError(t, json.Unmarshal(payload, &got))
	require.Len(t, got.Embeds, 1)
	embed := got.Embeds[0]
	assert.Equal(t, "Time to revise: Graphs", embed.Title)
	assert.Equal(t, model.ColorWarning, embed.Color)
	assert.Equal(t, "revise", embed.Footer.Text)
	require.Len(t, embed.Fields, 2)
	assert.Equal(t, "Day", embed.Fields[0].Name, "fields are sorted")
	assert.Equal(t, "Topic", embed.Fields[1].Name)
}

func TestDiscordFormatterKeepsExplicitColor(t *testing.T) {
	n := sampleNotification().WithColor(0x123456)
	payload, err := (&DiscordFormatter{}).Format(n)
	require.NoError(t, err)
	assert.Contains(t, string(payload), fmt.Sprintf(`"color":%d`, 0x123456))
}

func TestSlackFormatter(t *testing.T) {
	n := model.NewNotification(model.NotifyOverdue, "Overdue", "a < b & c").WithField("Count", "3")
	payload, err := (&SlackFormatter{}).Format(n)
	require.NoError(t, err)

	var got slackPayload
	require.NoError(t, json.Unmarshal(payload, &got))
	require.Len(t, got.Blocks, 4)
	assert.Equal(t, "a &lt; b &amp; c", got.Blocks[1].Text.Text)
	require.Len(t, got.Blocks[2].Fields, 1)
	assert.Equal(t, "*Count*\n3", got.Blocks[2].Fields[0].Text)
	assert.Equal(t, "revise", strings.Fields(got.Blocks[3].Text.Text)[0])
	require.Len(t, got.Attachments, 1)
	assert.Equal(t, "#ED4245", got.Attachments[0].Color)
}

func TestTeamsFormatter(t *testing.T) {
	payload, err := (&TeamsFormatter{}).Format(sampleNotification())
	require.NoError(t, err)

	var got teamsPayload
	require.NoError(t, json.Unmarshal(payload, &got))
	assert.Equal(t, "MessageCard", got.Type)
	assert.Equal(t, "FEE75C", got.ThemeColor)
	require.Len(t, got.Sections, 1)
	assert.Len(t, got.Sections[0].Facts, 2)
}

func TestGenericFormatter(t *testing.T) {
	t.Run("default_payload", func(t *testing.T) {
		payload, err := (&GenericFormatter{}).Format(sampleNotification())
		require.NoError(t, err)

		var got genericPayload
		require.NoError(t, json.Unmarshal(payload, &got))
		assert.Equal(t, "revision_due", got.Type)
		assert.Equal(t, "Graphs", got.Fields["Topic"])
	})

	t.Run("template", func(t *testing.T) {
		f := NewGenericFormatter(`{"text":"{{.Title}} / {{index .Fields "Topic"}}"}`)
		payload, err := f.Format(sampleNotification())
		require.NoError(t, err)
		assert.Equal(t, `{"text":"Time to revise: Graphs / Graphs"}`, string(payload))
	})

	t.Run("invalid_template", func(t *testing.T) {
		_, err := NewGenericFormatter(`{{.Title`).Format(sampleNotification())
		assert.Error(t, err)
	})
}

func TestFormatTelegram(t *testing.T) {
	n := model.NewNotification(model.NotifyDigest, "Today <3>", "Due & overdue").WithField("Due", "2")
	assert.Equal(t, "<b>Today &lt;3&gt;</b>\nDue &amp; overdue\n\n<i>Due:</i> 2", FormatTelegram(n))
}

func TestSlackEscape(t *testing.T) {
	assert.Equal(t, "&lt;b&gt; &amp;", slackEscape("<b> &"))
}

func TestColorToHex(t *testing.T) {
	assert.Equal(t, "#00FF00", colorToHex(0x00FF00))
}

// =============================================================================
// HTTP Client Tests
// =============================================================================

func TestHTTPClientSend(t *testing.T) {
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		assert.Equal(t, userAgent, r.Header.Get("User-Agent"))
		if calls.Add(1) < 3 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}))
	defer server.Close()

	result := fastClient().Send(context.Background(), server.URL, "application/json", []byte(`{}`))
	assert.NoError(t, result.Error)
	assert.Equal(t, 3, result.Attempts)
	assert.Equal(t, http.StatusNoContent, result.StatusCode)
}

func TestHTTPClientClientErrorNotRetried(t *testing.T) {
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		http.Error(w, "bad payload", http.StatusBadRequest)
	}))
	defer server.Close()

	result := fastClient().Send(context.Background(), server.URL, "application/json", []byte(`{}`))
	require.Error(t, result.Error)
	assert.Contains(t, result.Error.Error(), "client error (HTTP 400)")
	assert.Equal(t, int32(1), calls.Load())
}

func TestHTTPClientGivesUp(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	defer server.Close()

	result := fastClient().Send(context.Background(), server.URL, "application/json", nil)
	require.Error(t, result.Error)
	assert.Equal(t, 3, result.Attempts)
	assert.Equal(t, http.StatusTooManyRequests, result.StatusCode)
}

func TestHTTPClientDelay(t *testing.T) {
	c := NewHTTPClientWith(config.HTTPConfig{RetryDelays: []time.Duration{0, time.Second, 2 * time.Second}})
	assert.Equal(t, time.Duration(0), c.delay(0))
	assert.Equal(t, 2*time.Second, c.delay(2))
	assert.Equal(t, 2*time.Second, c.delay(7))
	assert.Equal(t, time.Duration(0), NewHTTPClientWith(config.HTTPConfig{}).delay(3))
}

// =============================================================================
// Telegram Tests
// =============================================================================

// fakeTelegram answers getMe and sendMessage like the bot API.
func fakeTelegram(t *testing.T, sent *[]url.Values) *httptest.Server {
	var mu sync.Mutex
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		switch {
		case strings.HasSuffix(r.URL.Path, "/getMe"):
			if !strings.Contains(r.URL.Path, "/botgood-token/") {
				w.Write([]byte(`{"ok":false,"error_code":401,"description":"Unauthorized"}`))
				return
			}
			w.Write([]byte(`{"ok":true,"result":{"id":1,"is_bot":true,"first_name":"revise","username":"revise_bot"}}`))
		case strings.HasSuffix(r.URL.Path, "/sendMessage"):
			assert.NoError(t, r.ParseForm())
			mu.Lock()
			*sent = append(*sent, r.PostForm)
			mu.Unlock()
			w.Write([]byte(`{"ok":true,"result":{"message_id":7,"date":0,"chat":{"id":42,"type":"private"}}}`))
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}))
}

func TestTelegramSender(t *testing.T) {
	var sent []url.Values
	server := fakeTelegram(t, &sent)
	defer server.Close()

	sender := NewTelegramSender(server.Client()).WithEndpoint(server.URL + "/bot%s/%s")
	wh := model.NewWebhook("phone", model.WebhookTypeTelegram, "good-token")
	wh.ChatID = 42

	require.NoError(t, sender.Send(wh, sampleNotification()))
	require.Len(t, sent, 1)
	assert.Equal(t, "42", sent[0].Get("chat_id"))
	assert.Equal(t, "HTML", sent[0].Get("parse_mode"))
	assert.Contains(t, sent[0].Get("text"), "<b>Time to revise: Graphs</b>")

	t.Run("missing_chat", func(t *testing.T) {
		bad := model.NewWebhook("nochat", model.WebhookTypeTelegram, "good-token")
		assert.Error(t, sender.Send(bad, sampleNotification()))
	})

	t.Run("bad_token", func(t *testing.T) {
		bad := model.NewWebhook("bad", model.WebhookTypeTelegram, "bad-token")
		bad.ChatID = 42
		err := sender.Send(bad, sampleNotification())
		require.Error(t, err)
		assert.Contains(t, err.Error(), "login failed")
	})
}

// =============================================================================
// Dispatcher Tests
// =============================================================================

func TestDispatcherSendNotification(t *testing.T) {
	var bodies []string
	var mu sync.Mutex
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		b, _ := io.ReadAll(r.Body)
		mu.Lock()
		bodies = append(bodies, string(b))
		mu.Unlock()
		if r.URL.Path == "/fail" {
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	repo := storage.NewWebhookRepo(setupTestDB(t))
	require.NoError(t, repo.Create(model.NewWebhook("chat", model.WebhookTypeSlack, server.URL+"/ok")))
	require.NoError(t, repo.Create(model.NewWebhook("broken", model.WebhookTypeGeneric, server.URL+"/fail")))
	off := model.NewWebhook("off", model.WebhookTypeDiscord, server.URL+"/ok")
	require.NoError(t, repo.Create(off))
	require.NoError(t, repo.Disable("off"))

	d := NewDispatcher(repo).WithHTTPClient(fastClient())
	assert.Equal(t, 2, d.CountEnabledWebhooks())

	results := d.SendNotification(context.Background(), sampleNotification())
	require.Len(t, results, 2)
	byName := map[string]DispatchResult{}
	for _, r := range results {
		byName[r.WebhookName] = r
	}
	assert.True(t, byName["chat"].Success)
	assert.False(t, byName["broken"].Success)
	assert.Len(t, bodies, 2)

	broken, err := repo.Get("broken")
	require.NoError(t, err)
	assert.Contains(t, broken.LastError, "HTTP 400")
	chat, err := repo.Get("chat")
	require.NoError(t, err)
	assert.Empty(t, chat.LastError)
	assert.False(t, chat.LastUsed.IsZero())
}

func TestDispatcherNoWebhooks(t *testing.T) {
	d := NewDispatcher(storage.NewWebhookRepo(setupTestDB(t)))
	assert.Nil(t, d.SendNotification(context.Background(), sampleNotification()))
	assert.Zero(t, d.CountEnabledWebhooks())
}

func TestDispatcherSendToSingleNotFound(t *testing.T) {
	d := NewDispatcher(storage.NewWebhookRepo(setupTestDB(t)))
	result := d.TestWebhook(context.Background(), "ghost")
	assert.False(t, result.Success)
	assert.Contains(t, result.Error.Error(), "webhook not found")
}

func TestDispatcherTelegramRoute(t *testing.T) {
	var sent []url.Values
	server := fakeTelegram(t, &sent)
	defer server.Close()

	repo := storage.NewWebhookRepo(setupTestDB(t))
	wh := model.NewWebhook("phone", model.WebhookTypeTelegram, "good-token")
	wh.ChatID = 42
	require.NoError(t, repo.Create(wh))

	d := NewDispatcher(repo).
		WithTelegram(NewTelegramSender(server.Client()).WithEndpoint(server.URL + "/bot%s/%s"))
	result := d.TestWebhook(context.Background(), "phone")
	require.NoError(t, result.Error)
	assert.True(t, result.Success)
	assert.Len(t, sent, 1)
}

func TestDispatcherQueuesRetryableFailures(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer server.Close()

	repo := storage.NewWebhookRepo(setupTestDB(t))
	require.NoError(t, repo.Create(model.NewWebhook("flaky", model.WebhookTypeDiscord, server.URL)))

	client := fastClient()
	queue := NewRetryQueue(client)
	d := NewDispatcher(repo).WithHTTPClient(client).WithRetryQueue(queue)

	d.SendNotification(context.Background(), sampleNotification())
	assert.Equal(t, 1, queue.Pending())
}

// =============================================================================
// Retry Queue Tests
// =============================================================================

func TestRetryQueueRedelivers(t *testing.T) {
	var ok atomic.Bool
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if ok.Load() {
			w.WriteHeader(http.StatusOK)
			return
		}
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer server.Close()

	q := NewRetryQueue(fastClient())
	q.Enqueue("hook", server.URL, "application/json", []byte(`{}`), fmt.Errorf("HTTP 500"))
	assert.Equal(t, 1, q.Pending())

	// Not ready yet.
	q.ProcessReady(context.Background(), time.Now())
	assert.Equal(t, 1, q.Pending())

	// Ready, but still failing: requeued.
	q.ProcessReady(context.Background(), time.Now().Add(time.Hour))
	assert.Equal(t, 1, q.Pending())

	ok.Store(true)
	q.ProcessReady(context.Background(), time.Now().Add(2*time.Hour))
	assert.Zero(t, q.Pending())

	stats := q.Stats()
	assert.Equal(t, 1, stats.TotalQueued)
	assert.Equal(t, 1, stats.TotalSent)
	assert.Zero(t, stats.TotalFailed)
}

func TestRetryQueueDropsAfterMaxAttempts(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer server.Close()

	q := NewRetryQueue(fastClient())
	q.maxAttempts = 2
	q.Enqueue("hook", server.URL, "application/json", nil, nil)

	q.ProcessReady(context.Background(), time.Now().Add(time.Hour))
	q.ProcessReady(context.Background(), time.Now().Add(2*time.Hour))
	assert.Zero(t, q.Pending())
	assert.Equal(t, 1, q.Stats().TotalFailed)
}

func TestRetryQueueBackoff(t *testing.T) {
	q := NewRetryQueue(fastClient())
	schedule := config.Global.RetryQueue.BackoffSchedule
	assert.Equal(t, schedule[0], q.backoffFor(0))
	assert.Equal(t, schedule[len(schedule)-1], q.backoffFor(100))
}

func TestRetryQueueStartStop(t *testing.T) {
	q := NewRetryQueue(fastClient())
	q.Start(context.Background())
	q.Start(context.Background())
	q.Stop()
	q.Stop()
}

// =============================================================================
// Coordinator Tests
// =============================================================================

func TestCoordinatorSchedule(t *testing.T) {
	repo := storage.NewAlarmRepo(setupTestDB(t))
	now := time.Date(2024, 6, 15, 10, 0, 0, 0, time.Local)
	c := NewCoordinator(repo, WithNow(func() time.Time { return now }))

	handle, err := c.Schedule(context.Background(), "Graphs", now.AddDate(0, 0, 1), "topic-1")
	require.NoError(t, err)
	require.NotEmpty(t, handle)

	alarm, err := repo.Get(handle)
	require.NoError(t, err)
	assert.Equal(t, "topic-1", alarm.TopicID)
	assert.Equal(t, "Graphs", alarm.TopicName)
	assert.Equal(t, "2024-06-16", alarm.Day)
	assert.True(t, alarm.FireAt.Equal(time.Date(2024, 6, 16, 9, 0, 0, 0, time.Local)))

	require.NoError(t, c.Cancel(context.Background(), handle))
	require.NoError(t, c.Cancel(context.Background(), handle), "cancel is idempotent")
	require.NoError(t, c.Cancel(context.Background(), ""))
	pending, err := c.Pending()
	require.NoError(t, err)
	assert.Empty(t, pending)
}

func TestCoordinatorSkipsPastFireTimes(t *testing.T) {
	repo := storage.NewAlarmRepo(setupTestDB(t))
	now := time.Date(2024, 6, 15, 10, 0, 0, 0, time.Local)
	c := NewCoordinator(repo, WithNow(func() time.Time { return now }))

	handle, err := c.Schedule(context.Background(), "Today", now, "t")
	require.NoError(t, err)
	assert.Empty(t, handle, "9:00 today is already past")

	early := NewCoordinator(repo, WithNow(func() time.Time { return now }), WithFireHour(18))
	handle, err = early.Schedule(context.Background(), "Today", now, "t")
	require.NoError(t, err)
	assert.NotEmpty(t, handle)
}

func TestCoordinatorDisabled(t *testing.T) {
	repo := storage.NewAlarmRepo(setupTestDB(t))
	c := NewCoordinator(repo, WithEnabled(false))

	handle, err := c.Schedule(context.Background(), "Graphs", time.Now().AddDate(0, 0, 3), "t")
	require.NoError(t, err)
	assert.Empty(t, handle)

	all, err := repo.List()
	require.NoError(t, err)
	assert.Empty(t, all)
}
