package webhook

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/cenkalti/backoff/v4"

	"github.com/stackbill/stackbill/internal/config"
	"github.com/stackbill/stackbill/internal/logger"
	"github.com/stackbill/stackbill/internal/types"
)

// Publisher emits billing events to the external workflow system. Delivery
// is best-effort: implementations log failures and return nil so the
// orchestrator's core logic never depends on the side channel.
type Publisher interface {
	Publish(ctx context.Context, event *types.WebhookEvent) error
}

const maxDeliveryElapsed = 15 * time.Second

type httpPublisher struct {
	url     string
	enabled bool
	client  *http.Client
	logger  *logger.Logger
}

// NewHTTPPublisher creates the webhook publisher for the configured sink.
func NewHTTPPublisher(cfg *config.Configuration, log *logger.Logger) Publisher {
	timeout := cfg.Webhook.Timeout
	if timeout == 0 {
		timeout = 10 * time.Second
	}
	return &httpPublisher{
		url:     cfg.Webhook.URL,
		enabled: cfg.Webhook.Enabled,
		client:  &http.Client{Timeout: timeout},
		logger:  log,
	}
}

// Publish posts the event, retrying transient failures briefly. It always
// returns nil: notification loss is acceptable, a failed charge is not.
func (p *httpPublisher) Publish(ctx context.Context, event *types.WebhookEvent) error {
	if !p.enabled || p.url == "" {
		p.logger.Debugw("webhook publishing disabled, dropping event",
			"event", event.EventName,
			"tenant_id", event.TenantID)
		return nil
	}

	body, err := json.Marshal(event)
	if err != nil {
		p.logger.Errorw("failed to marshal webhook event",
			"event", event.EventName,
			"tenant_id", event.TenantID,
			"error", err)
		return nil
	}

	policy := backoff.WithContext(
		backoff.NewExponentialBackOff(backoff.WithMaxElapsedTime(maxDeliveryElapsed)),
		ctx,
	)

	deliver := func() error {
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.url, bytes.NewReader(body))
		if err != nil {
			return backoff.Permanent(err)
		}
		req.Header.Set("Content-Type", "application/json")

		resp, err := p.client.Do(req)
		if err != nil {
			return err
		}
		defer resp.Body.Close()
		io.Copy(io.Discard, resp.Body)

		if resp.StatusCode >= 500 {
			return fmt.Errorf("sink returned status %d", resp.StatusCode)
		}
		if resp.StatusCode >= 400 {
			// Client errors will not heal on retry.
			return backoff.Permanent(fmt.Errorf("sink rejected event: status %d", resp.StatusCode))
		}
		return nil
	}

	if err := backoff.Retry(deliver, policy); err != nil {
		p.logger.Warnw("webhook delivery failed, dropping event",
			"event", event.EventName,
			"tenant_id", event.TenantID,
			"error", err)
	}
	return nil
}

// NewEvent builds the envelope for a billing notification.
func NewEvent(name types.WebhookEventName, tenantID string, payload interface{}) *types.WebhookEvent {
	var raw json.RawMessage
	if payload != nil {
		if b, err := json.Marshal(payload); err == nil {
			raw = b
		}
	}
	return &types.WebhookEvent{
		ID:        types.GenerateUUIDWithPrefix(types.UUID_PREFIX_WEBHOOK_EVENT),
		EventName: name,
		TenantID:  tenantID,
		Timestamp: time.Now().UTC(),
		Payload:   raw,
	}
}
