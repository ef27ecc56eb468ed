package provider

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

// WebhookProvider forwards notifications by POSTing JSON to a fixed URL
// (chat-ops webhooks, integration gateways). The URL is injected from config
// so tests can point to a local httptest server.
type WebhookProvider struct {
	url        string
	httpClient *http.Client
}

func NewWebhookProvider(url string, timeout time.Duration) *WebhookProvider {
	return &WebhookProvider{
		url: url,
		httpClient: &http.Client{
			Timeout: timeout,
		},
	}
}

func (p *WebhookProvider) Name() string { return "webhook" }

// Send posts the delivery and accepts any 2xx status. A JSON body with a
// messageId is used when present; otherwise the notification ID is echoed.
func (p *WebhookProvider) Send(ctx context.Context, d Delivery) (*SendResponse, error) {
	body, err := json.Marshal(d)
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.url, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Idempotency-Key", d.NotificationID)

	resp, err := p.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("send request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, fmt.Errorf("unexpected webhook status: %d", resp.StatusCode)
	}

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 64<<10))
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}
	var sendResp SendResponse
	if len(raw) > 0 {
		_ = json.Unmarshal(raw, &sendResp)
	}
	if sendResp.MessageID == "" {
		sendResp.MessageID = d.NotificationID
	}
	return &sendResp, nil
}

// compile-time check that WebhookProvider implements Provider
var _ Provider = (*WebhookProvider)(nil)
