package webhook

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"
)

// Client POSTs event payloads to one endpoint with a bounded retry
// budget and exponential backoff.
type Client struct {
	url         string
	httpClient  *http.Client
	maxAttempts int
	initialWait time.Duration
}

// NewClient creates a delivery client. Zero-valued settings fall back
// to 10s timeout, 3 attempts, 1s initial backoff.
func NewClient(url string, timeout time.Duration, maxAttempts int, initialWait time.Duration) *Client {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	if maxAttempts <= 0 {
		maxAttempts = 3
	}
	if initialWait <= 0 {
		initialWait = time.Second
	}
	return &Client{
		url:         url,
		httpClient:  &http.Client{Timeout: timeout},
		maxAttempts: maxAttempts,
		initialWait: initialWait,
	}
}

// Deliver sends one event, retrying with exponential backoff. It
// returns the last error after the retry budget is exhausted.
func (c *Client) Deliver(ctx context.Context, event Event) error {
	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to encode event %s: %w", event.EventID, err)
	}

	var lastErr error
	wait := c.initialWait
	for attempt := 1; attempt <= c.maxAttempts; attempt++ {
		err := c.post(ctx, payload)
		if err == nil {
			return nil
		}
		lastErr = err

		// Don't sleep after the last attempt.
		if attempt < c.maxAttempts {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(wait):
			}
			wait *= 2
		}
	}

	return fmt.Errorf("webhook delivery failed after %d attempts: %w", c.maxAttempts, lastErr)
}

func (c *Client) post(ctx context.Context, payload []byte) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("webhook returned status %d", resp.StatusCode)
	}
	return nil
}
