package notify

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/manav03panchal/revise/internal/config"
	"github.com/manav03panchal/revise/internal/logging"
)

// QueuedNotification is a formatted webhook payload awaiting redelivery.
type QueuedNotification struct {
	ID          string
	WebhookName string
	URL         string
	ContentType string
	Body        []byte
	CreatedAt   time.Time
	NextRetry   time.Time
	Attempts    int
	LastError   string
}

// RetryQueue redelivers failed webhook payloads in the background, backing
// off per the configured schedule. It lives only as long as the daemon.
type RetryQueue struct {
	mu          sync.Mutex
	queue       []*QueuedNotification
	client      *HTTPClient
	interval    time.Duration
	backoff     []time.Duration
	maxAttempts int

	cancel context.CancelFunc
	wg     sync.WaitGroup

	totalQueued int
	totalSent   int
	totalFailed int
}

// NewRetryQueue creates a queue using the global retry settings.
func NewRetryQueue(client *HTTPClient) *RetryQueue {
	cfg := config.Global.RetryQueue
	return &RetryQueue{
		client:      client,
		interval:    cfg.CheckInterval,
		backoff:     cfg.BackoffSchedule,
		maxAttempts: cfg.MaxAttempts,
	}
}

// Start processes the queue until ctx ends or Stop is called.
func (q *RetryQueue) Start(ctx context.Context) {
	q.mu.Lock()
	if q.cancel != nil {
		q.mu.Unlock()
		return
	}
	ctx, q.cancel = context.WithCancel(ctx)
	q.mu.Unlock()

	q.wg.Add(1)
	go func() {
		defer q.wg.Done()
		ticker := time.NewTicker(q.interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case now := <-ticker.C:
				q.ProcessReady(ctx, now)
			}
		}
	}()
}

// Stop halts background processing and waits for it to finish.
func (q *RetryQueue) Stop() {
	q.mu.Lock()
	cancel := q.cancel
	q.cancel = nil
	q.mu.Unlock()

	if cancel != nil {
		cancel()
		q.wg.Wait()
	}
}

// Enqueue schedules a payload for redelivery.
func (q *RetryQueue) Enqueue(webhookName, url, contentType string, body []byte, cause error) {
	now := time.Now()
	n := &QueuedNotification{
		ID:          uuid.New().String(),
		WebhookName: webhookName,
		URL:         url,
		ContentType: contentType,
		Body:        body,
		CreatedAt:   now,
		NextRetry:   now.Add(q.backoffFor(0)),
	}
	if cause != nil {
		n.LastError = cause.Error()
	}

	q.mu.Lock()
	q.queue = append(q.queue, n)
	q.totalQueued++
	size := len(q.queue)
	q.mu.Unlock()

	logging.Info("notification queued for retry",
		logging.KeyWebhook, webhookName,
		"queue_size", size)
}

// ProcessReady sends every payload whose retry time has come.
func (q *RetryQueue) ProcessReady(ctx context.Context, now time.Time) {
	q.mu.Lock()
	var ready, waiting []*QueuedNotification
	for _, n := range q.queue {
		if !n.NextRetry.After(now) {
			ready = append(ready, n)
		} else {
			waiting = append(waiting, n)
		}
	}
	q.queue = waiting
	q.mu.Unlock()

	for _, n := range ready {
		q.retry(ctx, n)
	}
}

func (q *RetryQueue) retry(ctx context.Context, n *QueuedNotification) {
	n.Attempts++
	result := q.client.Send(ctx, n.URL, n.ContentType, n.Body)

	q.mu.Lock()
	defer q.mu.Unlock()

	if result.Error == nil {
		q.totalSent++
		logging.Info("queued notification sent",
			logging.KeyWebhook, n.WebhookName,
			"attempts", n.Attempts)
		return
	}

	n.LastError = result.Error.Error()
	if n.Attempts >= q.maxAttempts {
		q.totalFailed++
		logging.Warn("notification dropped after retries",
			logging.KeyWebhook, n.WebhookName,
			"attempts", n.Attempts,
			logging.KeyError, result.Error)
		return
	}

	n.NextRetry = time.Now().Add(q.backoffFor(n.Attempts))
	q.queue = append(q.queue, n)
}

func (q *RetryQueue) backoffFor(attempt int) time.Duration {
	if len(q.backoff) == 0 {
		return q.interval
	}
	if attempt >= len(q.backoff) {
		return q.backoff[len(q.backoff)-1]
	}
	return q.backoff[attempt]
}

// QueueStats summarizes queue activity.
type QueueStats struct {
	QueueSize   int `json:"queue_size"`
	TotalQueued int `json:"total_queued"`
	TotalSent   int `json:"total_sent"`
	TotalFailed int `json:"total_failed"`
}

// Stats returns current queue statistics.
func (q *RetryQueue) Stats() QueueStats {
	q.mu.Lock()
	defer q.mu.Unlock()
	return QueueStats{
		QueueSize:   len(q.queue),
		TotalQueued: q.totalQueued,
		TotalSent:   q.totalSent,
		TotalFailed: q.totalFailed,
	}
}

// Pending returns the number of queued payloads.
func (q *RetryQueue) Pending() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.queue)
}
