package messaging

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"slices"
	"time"

	"github.com/cleanco/backend/pkg/webhookverify"
)

// WebhookProvider delivers export-webhook payloads to org-configured
// endpoints, signing each body with the org's webhook secret so receivers
// can verify authenticity (the same HMAC convention as inbound payment
// webhook verification).
type WebhookProvider struct {
	httpClient    *http.Client
	allowedHosts  []string
}

// NewWebhookProvider creates a WebhookProvider. allowedHosts restricts
// delivery to a configured allowlist, guarding against SSRF via a malicious
// org-supplied webhook URL.
func NewWebhookProvider(allowedHosts []string) *WebhookProvider {
	return &WebhookProvider{
		httpClient:   &http.Client{Timeout: 10 * time.Second},
		allowedHosts: allowedHosts,
	}
}

// Name identifies this provider.
func (p *WebhookProvider) Name() string { return "webhook" }

// Send POSTs msg.Payload as JSON to msg.WebhookURL, signed with the secret
// carried in msg.Payload["_secret"].
func (p *WebhookProvider) Send(ctx context.Context, msg Message) (string, error) {
	u, err := url.Parse(msg.WebhookURL)
	if err != nil {
		return "", fmt.Errorf("parsing webhook url: %w", err)
	}
	if len(p.allowedHosts) > 0 && !slices.Contains(p.allowedHosts, u.Hostname()) {
		return "", fmt.Errorf("webhook host %q not in allowlist", u.Hostname())
	}

	secret, _ := msg.Payload["_secret"].(string)
	payload := make(map[string]any, len(msg.Payload))
	for k, v := range msg.Payload {
		if k != "_secret" {
			payload[k] = v
		}
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return "", fmt.Errorf("marshalling webhook payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, msg.WebhookURL, bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("building webhook request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if secret != "" {
		req.Header.Set("X-Signature", "sha256="+webhookverify.SignQuery(secret, string(body)))
	}

	resp, err := p.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("delivering webhook: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		return "", fmt.Errorf("webhook endpoint returned HTTP %d", resp.StatusCode)
	}
	return resp.Status, nil
}
