package webhook

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"bookstore/internal/domain"
)

// Client publishes cart events to a configured webhook so downstream
// consumers (analytics, abandoned-cart jobs) see mutations without
// polling the store. Delivery is best-effort with capped exponential
// backoff; an unconfigured client is a silent no-op.
type Client struct {
	url        string
	maxRetries int
	retryBase  time.Duration
	retryMax   time.Duration
	httpClient *http.Client
}

func NewClient(url string, timeout time.Duration, maxRetries int, retryBase, retryMax time.Duration) *Client {
	return &Client{
		url:        url,
		maxRetries: maxRetries,
		retryBase:  retryBase,
		retryMax:   retryMax,
		httpClient: &http.Client{Timeout: timeout},
	}
}

func (c *Client) Publish(ctx context.Context, event domain.Event) error {
	if c.url == "" {
		return nil
	}
	body, err := json.Marshal(event)
	if err != nil {
		return err
	}

	delay := c.retryBase
	var lastErr error
	for attempt := 0; attempt <= c.maxRetries; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(delay):
			}
			delay *= 2
			if delay > c.retryMax {
				delay = c.retryMax
			}
		}
		lastErr = c.post(ctx, body, event)
		if lastErr == nil {
			return nil
		}
	}
	return lastErr
}

func (c *Client) post(ctx context.Context, body []byte, event domain.Event) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Event-Type", string(event.Type))
	// Delivery can repeat; receivers dedupe on the event id.
	req.Header.Set("X-Idempotency-Key", event.ID)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 500 {
		return fmt.Errorf("webhook responded %d", resp.StatusCode)
	}
	return nil
}
