// Package discord posts webhook messages to a Discord-compatible endpoint.
package discord

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"sync"
	"time"

	logx "ghnotify/pkg/logx"
)

const defaultTimeout = 10 * time.Second

// WebhookClient posts JSON payloads to a single webhook URL. The URL can be
// swapped at runtime (config reload); in-flight requests keep the URL they
// started with.
type WebhookClient struct {
	hc  *http.Client
	log logx.Logger

	mu  sync.RWMutex
	url string
}

func NewWebhook(url string, timeout time.Duration, log logx.Logger) *WebhookClient {
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	if log.IsZero() {
		log = logx.Nop()
	}
	return &WebhookClient{
		hc:  &http.Client{Timeout: timeout},
		log: log,
		url: url,
	}
}

// Apply swaps the webhook URL.
func (c *WebhookClient) Apply(url string) {
	c.mu.Lock()
	c.url = url
	c.mu.Unlock()
}

func (c *WebhookClient) target() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.url
}

// SendEmbeds posts one message carrying up to 10 embeds.
func (c *WebhookClient) SendEmbeds(ctx context.Context, content string, embeds []Embed) error {
	return c.post(ctx, webhookPayload{Content: content, Embeds: embeds})
}

// SendText posts a plain-text message. Satisfies the logging webhook sink.
func (c *WebhookClient) SendText(ctx context.Context, text string) error {
	return c.post(ctx, webhookPayload{Content: text})
}

func (c *WebhookClient) post(ctx context.Context, p webhookPayload) error {
	url := c.target()
	if url == "" {
		return fmt.Errorf("discord: webhook url not configured")
	}

	body, err := json.Marshal(p)
	if err != nil {
		return fmt.Errorf("discord: encode payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("discord: build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.hc.Do(req)
	if err != nil {
		return fmt.Errorf("discord: post webhook: %w", err)
	}
	defer func() {
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))
		_ = resp.Body.Close()
	}()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return fmt.Errorf("discord: webhook status %d", resp.StatusCode)
	}
	return nil
}
