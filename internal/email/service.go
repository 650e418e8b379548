package email

import (
	"bytes"
	"context"
	"fmt"
	"html/template"

	"github.com/stackbill/stackbill/internal/logger"
)

// emailTemplates stores email templates as string constants
var emailTemplates = map[string]string{
	"card-expiry-alert.html": `<!DOCTYPE html>
<html>
<head>
    <meta http-equiv="Content-Type" content="text/html; charset=UTF-8" />
    <title>Your card is expiring soon</title>
</head>
<body style="font-family: -apple-system, BlinkMacSystemFont, 'Segoe UI', Roboto, Helvetica, Arial, sans-serif; font-size: 14px; line-height: 1.6; color: #333;">
    <p>Hello,</p>
    <p>The card ending in <strong>{{.last4}}</strong> on your subscription expires in <strong>{{.days_left}}</strong> days ({{.expiry}}).</p>
    <p>Please update your payment method before then so your service is not interrupted.</p>
    <p>— The billing team</p>
</body>
</html>`,
}

// Sender sends billing notification emails. Delivery is best-effort.
type Sender interface {
	SendCardExpiryAlert(ctx context.Context, req CardExpiryAlertRequest) error
}

// CardExpiryAlertRequest describes one card-expiry warning email.
type CardExpiryAlertRequest struct {
	ToAddress   string
	TenantID    string
	Last4       string
	ExpiryMonth int
	ExpiryYear  int
	DaysLeft    int
}

type sender struct {
	client *Client
	logger *logger.Logger
}

// NewSender creates the email sender.
func NewSender(client *Client, log *logger.Logger) Sender {
	return &sender{client: client, logger: log}
}

func (s *sender) SendCardExpiryAlert(ctx context.Context, req CardExpiryAlertRequest) error {
	if !s.client.IsEnabled() {
		s.logger.Debugw("email client is disabled, skipping card expiry alert",
			"tenant_id", req.TenantID)
		return nil
	}
	if req.ToAddress == "" {
		s.logger.Warnw("no billing email on file, skipping card expiry alert",
			"tenant_id", req.TenantID)
		return nil
	}

	html, err := renderTemplate("card-expiry-alert.html", map[string]interface{}{
		"last4":     req.Last4,
		"days_left": req.DaysLeft,
		"expiry":    fmt.Sprintf("%02d/%d", req.ExpiryMonth, req.ExpiryYear),
	})
	if err != nil {
		s.logger.Errorw("failed to render card expiry template", "error", err)
		return err
	}

	subject := fmt.Sprintf("Your card expires in %d days", req.DaysLeft)
	messageID, err := s.client.Send(ctx, req.ToAddress, subject, html)
	if err != nil {
		s.logger.Errorw("failed to send card expiry alert",
			"tenant_id", req.TenantID,
			"error", err)
		return err
	}

	s.logger.Infow("sent card expiry alert",
		"tenant_id", req.TenantID,
		"message_id", messageID,
		"days_left", req.DaysLeft)
	return nil
}

func renderTemplate(name string, data map[string]interface{}) (string, error) {
	raw, ok := emailTemplates[name]
	if !ok {
		return "", fmt.Errorf("unknown email template: %s", name)
	}
	tmpl, err := template.New(name).Parse(raw)
	if err != nil {
		return "", err
	}
	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, data); err != nil {
		return "", err
	}
	return buf.String(), nil
}
