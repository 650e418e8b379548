package testutil

import (
	"context"
	"sync"

	"github.com/stackbill/stackbill/internal/types"
)

// CapturePublisher implements webhook.Publisher and records every event.
type CapturePublisher struct {
	mu     sync.Mutex
	events []*types.WebhookEvent
}

func NewCapturePublisher() *CapturePublisher {
	return &CapturePublisher{}
}

func (p *CapturePublisher) Publish(ctx context.Context, event *types.WebhookEvent) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, event)
	return nil
}

// Events returns every published event in order.
func (p *CapturePublisher) Events() []*types.WebhookEvent {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]*types.WebhookEvent, len(p.events))
	copy(out, p.events)
	return out
}

// EventNames returns the event names for a tenant, in publish order. An
// empty tenant id matches all tenants.
func (p *CapturePublisher) EventNames(tenantID string) []types.WebhookEventName {
	p.mu.Lock()
	defer p.mu.Unlock()
	var out []types.WebhookEventName
	for _, e := range p.events {
		if tenantID == "" || e.TenantID == tenantID {
			out = append(out, e.EventName)
		}
	}
	return out
}
