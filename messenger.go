// messenger.go

package sessiontoken

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"
)

// Messenger delivers one-time codes out of band. Implementations are treated
// as black boxes: any non-success is a delivery failure, and the issuing path
// blocks on Send until it returns.
type Messenger interface {
	Send(ctx context.Context, text, senderName, iconRef string) error
}

// WebhookMessenger posts codes as JSON to a chat-webhook endpoint.
type WebhookMessenger struct {
	endpoint string
	client   *http.Client
}

type webhookPayload struct {
	Text         string `json:"text"`
	BotName      string `json:"botName"`
	BotIconImage string `json:"botIconImage,omitempty"`
}

// NewWebhookMessenger creates a webhook-backed messenger. A nil client gets
// a default with a 10 second timeout so a stalled gateway cannot hang the
// issuing path indefinitely.
func NewWebhookMessenger(endpoint string, client *http.Client) (*WebhookMessenger, error) {
	if endpoint == "" {
		return nil, fmt.Errorf("webhook endpoint cannot be empty")
	}
	if client == nil {
		client = &http.Client{Timeout: 10 * time.Second}
	}
	return &WebhookMessenger{endpoint: endpoint, client: client}, nil
}

// Send posts the payload and treats any non-2xx status as delivery failure.
func (m *WebhookMessenger) Send(ctx context.Context, text, senderName, iconRef string) error {
	body, err := json.Marshal(webhookPayload{
		Text:         text,
		BotName:      senderName,
		BotIconImage: iconRef,
	})
	if err != nil {
		return fmt.Errorf("encode payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, m.endpoint, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := m.client.Do(req)
	if err != nil {
		return errors.Join(ErrDeliveryFailed, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return fmt.Errorf("%w: gateway returned status %d", ErrDeliveryFailed, resp.StatusCode)
	}
	return nil
}
