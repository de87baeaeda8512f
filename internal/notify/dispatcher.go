package notify

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/manav03panchal/revise/internal/logging"
	"github.com/manav03panchal/revise/internal/model"
	"github.com/manav03panchal/revise/internal/storage"
)

// Dispatcher sends notifications to every enabled webhook.
type Dispatcher struct {
	webhookRepo *storage.WebhookRepo
	httpClient  *HTTPClient
	telegram    *TelegramSender
	queue       *RetryQueue
}

// NewDispatcher creates a dispatcher using the global HTTP settings.
func NewDispatcher(webhookRepo *storage.WebhookRepo) *Dispatcher {
	client := NewHTTPClient()
	return &Dispatcher{
		webhookRepo: webhookRepo,
		httpClient:  client,
		telegram:    NewTelegramSender(client.Client()),
	}
}

// WithHTTPClient replaces the webhook client.
func (d *Dispatcher) WithHTTPClient(c *HTTPClient) *Dispatcher {
	d.httpClient = c
	return d
}

// WithTelegram replaces the Telegram sender.
func (d *Dispatcher) WithTelegram(t *TelegramSender) *Dispatcher {
	d.telegram = t
	return d
}

// WithRetryQueue hands failed webhook deliveries to q.
func (d *Dispatcher) WithRetryQueue(q *RetryQueue) *Dispatcher {
	d.queue = q
	return d
}

// DispatchResult contains the result of dispatching to a single webhook.
type DispatchResult struct {
	WebhookName string
	Success     bool
	StatusCode  int
	Duration    time.Duration
	Error       error
}

// SendNotification sends n to all enabled webhooks concurrently.
func (d *Dispatcher) SendNotification(ctx context.Context, n *model.Notification) []DispatchResult {
	webhooks, err := d.webhookRepo.ListEnabled()
	if err != nil {
		return []DispatchResult{{
			WebhookName: "all",
			Error:       fmt.Errorf("failed to list webhooks: %w", err),
		}}
	}
	if len(webhooks) == 0 {
		return nil
	}

	var wg sync.WaitGroup
	results := make([]DispatchResult, len(webhooks))
	for i, webhook := range webhooks {
		wg.Add(1)
		go func(idx int, wh *model.Webhook) {
			defer wg.Done()
			results[idx] = d.sendToWebhook(ctx, n, wh)
		}(i, webhook)
	}
	wg.Wait()
	return results
}

func (d *Dispatcher) sendToWebhook(ctx context.Context, n *model.Notification, wh *model.Webhook) DispatchResult {
	result := DispatchResult{WebhookName: wh.Name}
	log := logging.FromContext(ctx).With(logging.KeyWebhook, wh.Name)

	if wh.IsTelegram() {
		start := time.Now()
		result.Error = d.telegram.Send(wh, n)
		result.Duration = time.Since(start)
		result.Success = result.Error == nil
		d.updateWebhookStatus(wh.Name, result.Error)
		if result.Error != nil {
			log.Warn("telegram delivery failed", logging.KeyError, result.Error)
		}
		return result
	}

	var formatter Formatter
	if wh.Type == model.WebhookTypeGeneric && wh.Template != "" {
		formatter = NewGenericFormatter(wh.Template)
	} else {
		formatter = GetFormatter(wh.Type)
	}

	payload, err := formatter.Format(n)
	if err != nil {
		result.Error = fmt.Errorf("failed to format notification: %w", err)
		d.updateWebhookStatus(wh.Name, result.Error)
		return result
	}

	sent := d.httpClient.Send(ctx, wh.URL, formatter.ContentType(), payload)
	result.StatusCode = sent.StatusCode
	result.Duration = sent.Duration
	result.Error = sent.Error
	result.Success = sent.Error == nil
	d.updateWebhookStatus(wh.Name, sent.Error)

	if sent.Error != nil {
		log.Warn("webhook delivery failed",
			logging.KeyURL, wh.URL,
			"attempts", sent.Attempts,
			logging.KeyError, sent.Error)
		if d.queue != nil && retryable(sent.StatusCode) {
			d.queue.Enqueue(wh.Name, wh.URL, formatter.ContentType(), payload, sent.Error)
		}
	}
	return result
}

// retryable reports whether a later attempt could succeed.
func retryable(status int) bool {
	return status == 0 || status == 429 || status >= 500
}

// updateWebhookStatus records the outcome on the webhook. Failures here
// are not worth surfacing.
func (d *Dispatcher) updateWebhookStatus(name string, err error) {
	_ = d.webhookRepo.UpdateLastUsed(name, err)
}

// SendToSingle sends a notification to one webhook by name.
func (d *Dispatcher) SendToSingle(ctx context.Context, n *model.Notification, webhookName string) DispatchResult {
	webhook, err := d.webhookRepo.Get(webhookName)
	if err != nil {
		return DispatchResult{
			WebhookName: webhookName,
			Error:       fmt.Errorf("webhook not found: %w", err),
		}
	}
	return d.sendToWebhook(ctx, n, webhook)
}

// TestWebhook sends a test notification to a specific webhook.
func (d *Dispatcher) TestWebhook(ctx context.Context, webhookName string) DispatchResult {
	n := model.NewNotification(
		model.NotifyTest,
		"revise test",
		"If you can read this, revision reminders will reach you here.",
	).WithField("Webhook", webhookName).WithField("Time", time.Now().Format("3:04 PM"))

	return d.SendToSingle(ctx, n, webhookName)
}

// CountEnabledWebhooks returns the number of enabled webhooks.
func (d *Dispatcher) CountEnabledWebhooks() int {
	webhooks, err := d.webhookRepo.ListEnabled()
	if err != nil {
		return 0
	}
	return len(webhooks)
}
