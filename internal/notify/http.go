package notify

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/manav03panchal/revise/internal/config"
)

// userAgent identifies webhook requests.
const userAgent = "revise/1.0"

// HTTPClient posts payloads with retry on rate limits and server errors.
type HTTPClient struct {
	client     *http.Client
	maxRetries int
	retryDelay []time.Duration
}

// NewHTTPClient creates a client from the global HTTP settings.
func NewHTTPClient() *HTTPClient {
	return NewHTTPClientWith(config.Global.HTTP)
}

// NewHTTPClientWith creates a client from explicit settings.
func NewHTTPClientWith(cfg config.HTTPConfig) *HTTPClient {
	return &HTTPClient{
		client:     &http.Client{Timeout: cfg.Timeout},
		maxRetries: cfg.MaxRetries,
		retryDelay: cfg.RetryDelays,
	}
}

// Client exposes the underlying http.Client for other channels.
func (c *HTTPClient) Client() *http.Client {
	return c.client
}

// SendResult contains the result of a send operation.
type SendResult struct {
	StatusCode int
	Duration   time.Duration
	Attempts   int
	Error      error
}

// delay returns the wait before the given attempt. Attempts past the
// configured schedule reuse its last entry.
func (c *HTTPClient) delay(attempt int) time.Duration {
	if len(c.retryDelay) == 0 {
		return 0
	}
	if attempt >= len(c.retryDelay) {
		return c.retryDelay[len(c.retryDelay)-1]
	}
	return c.retryDelay[attempt]
}

// Send posts body to url. Rate limits (429) and 5xx responses are retried;
// other 4xx responses fail at once.
func (c *HTTPClient) Send(ctx context.Context, url string, contentType string, body []byte) *SendResult {
	result := &SendResult{}
	start := time.Now()
	defer func() { result.Duration = time.Since(start) }()

	for attempt := 0; attempt <= c.maxRetries; attempt++ {
		result.Attempts = attempt + 1

		if d := c.delay(attempt); attempt > 0 && d > 0 {
			select {
			case <-ctx.Done():
				result.Error = ctx.Err()
				return result
			case <-time.After(d):
			}
		}

		req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
		if err != nil {
			result.Error = fmt.Errorf("failed to create request: %w", err)
			return result
		}
		req.Header.Set("Content-Type", contentType)
		req.Header.Set("User-Agent", userAgent)

		resp, err := c.client.Do(req)
		if err != nil {
			result.Error = fmt.Errorf("request failed: %w", err)
			if ctx.Err() != nil {
				return result
			}
			continue
		}

		respBody, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		resp.Body.Close()
		result.StatusCode = resp.StatusCode

		switch {
		case resp.StatusCode >= 200 && resp.StatusCode < 300:
			result.Error = nil
			return result
		case resp.StatusCode == http.StatusTooManyRequests:
			result.Error = fmt.Errorf("rate limited (HTTP 429)")
		case resp.StatusCode >= 500:
			result.Error = fmt.Errorf("server error (HTTP %d): %s", resp.StatusCode, respBody)
		default:
			result.Error = fmt.Errorf("client error (HTTP %d): %s", resp.StatusCode, respBody)
			return result
		}
	}

	if result.Error == nil {
		result.Error = fmt.Errorf("max retries exceeded")
	}
	return result
}
