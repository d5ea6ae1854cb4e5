package delivery

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"alertpipe/internal/config"
	"alertpipe/internal/types"
)

// maxResponseBodyRead limits how much of a response body is read for error
// messages.
const maxResponseBodyRead = 4096

// Compile-time assertion that WebhookSink implements Sink.
var _ Sink = (*WebhookSink)(nil)

// WebhookSink delivers messages by POSTing their content view as JSON to the
// address configured on the contact's webhook medium.
type WebhookSink struct {
	client *ResilientClient
	logger types.Logger
}

// webhookPayload is the wire form of a webhook delivery.
type webhookPayload struct {
	MessageID string         `json:"message_id"`
	ContactID string         `json:"contact_id"`
	Content   map[string]any `json:"content"`
}

// NewWebhookSink creates a WebhookSink backed by a ResilientClient built from
// the webhook configuration.
func NewWebhookSink(cfg config.WebhookConfig, logger types.Logger) *WebhookSink {
	httpClient := &http.Client{Timeout: cfg.DefaultTimeout}
	client := NewResilientClient(httpClient, "webhook",
		RetryPolicy{
			MaxRetries: cfg.MaxRetries,
			MinWait:    DefaultRetryPolicy().MinWait,
			MaxWait:    DefaultRetryPolicy().MaxWait,
		},
		cfg.UserAgent,
	)
	return &WebhookSink{client: client, logger: logger}
}

// NewWebhookSinkWithClient creates a WebhookSink with a caller-supplied
// resilient client. This constructor exists for testing.
func NewWebhookSinkWithClient(client *ResilientClient, logger types.Logger) *WebhookSink {
	return &WebhookSink{client: client, logger: logger}
}

// Type implements Sink.
func (s *WebhookSink) Type() types.MediumType {
	return types.MediumWebhook
}

// Deliver POSTs the message payload to the message address. Non-2xx endpoint
// responses and exhausted retries surface as delivery_failed.
func (s *WebhookSink) Deliver(ctx context.Context, msg types.Message) error {
	body, err := json.Marshal(webhookPayload{
		MessageID: msg.ID,
		ContactID: msg.ContactID,
		Content:   msg.Content,
	})
	if err != nil {
		return types.NewAppError(types.ErrCodeDeliveryFailed,
			"failed to encode webhook payload", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, msg.Address, bytes.NewReader(body))
	if err != nil {
		return types.NewAppError(types.ErrCodeDeliveryFailed,
			"failed to create webhook request", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.client.Do(req)
	if err != nil {
		return types.NewAppError(types.ErrCodeDeliveryFailed,
			"webhook delivery failed", err).
			WithDetails(map[string]any{"message_id": msg.ID})
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		respBody, _ := io.ReadAll(io.LimitReader(resp.Body, maxResponseBodyRead))
		s.logger.Warn("webhook endpoint rejected message",
			"message_id", msg.ID,
			"status", resp.StatusCode,
		)
		return types.NewAppError(types.ErrCodeDeliveryFailed,
			fmt.Sprintf("webhook endpoint returned %d", resp.StatusCode), nil).
			WithDetails(map[string]any{
				"message_id": msg.ID,
				"body":       string(respBody),
			})
	}

	s.logger.Info("webhook delivered",
		"message_id", msg.ID,
		"status", resp.StatusCode,
	)
	return nil
}
