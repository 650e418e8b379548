package testutil

import (
	"context"
	"sync"

	"github.com/stackbill/stackbill/internal/email"
)

// CaptureEmailSender implements email.Sender and records alert requests.
type CaptureEmailSender struct {
	mu     sync.Mutex
	alerts []email.CardExpiryAlertRequest
}

func NewCaptureEmailSender() *CaptureEmailSender {
	return &CaptureEmailSender{}
}

func (s *CaptureEmailSender) SendCardExpiryAlert(ctx context.Context, req email.CardExpiryAlertRequest) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.alerts = append(s.alerts, req)
	return nil
}

// Alerts returns every captured alert in send order.
func (s *CaptureEmailSender) Alerts() []email.CardExpiryAlertRequest {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]email.CardExpiryAlertRequest, len(s.alerts))
	copy(out, s.alerts)
	return out
}
