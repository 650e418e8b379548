package email

import (
	"context"

	"github.com/resend/resend-go/v2"

	"github.com/stackbill/stackbill/internal/config"
	ierr "github.com/stackbill/stackbill/internal/errors"
)

// Client wraps the Resend API client.
type Client struct {
	resend      *resend.Client
	enabled     bool
	fromAddress string
}

// NewClient creates an email client; when disabled it sends nothing.
func NewClient(cfg *config.Configuration) *Client {
	var rc *resend.Client
	if cfg.Email.Enabled {
		rc = resend.NewClient(cfg.Email.APIKey)
	}
	return &Client{
		resend:      rc,
		enabled:     cfg.Email.Enabled,
		fromAddress: cfg.Email.FromAddress,
	}
}

func (c *Client) IsEnabled() bool {
	return c.enabled && c.resend != nil
}

func (c *Client) GetFromAddress() string {
	return c.fromAddress
}

// Send delivers one HTML email and returns the provider message id.
func (c *Client) Send(ctx context.Context, to, subject, html string) (string, error) {
	if !c.IsEnabled() {
		return "", ierr.NewError("email client is disabled").Mark(ierr.ErrValidation)
	}

	sent, err := c.resend.Emails.SendWithContext(ctx, &resend.SendEmailRequest{
		From:    c.fromAddress,
		To:      []string{to},
		Subject: subject,
		Html:    html,
	})
	if err != nil {
		return "", ierr.WithError(err).
			WithHint("Failed to send email").
			Mark(ierr.ErrHTTPClient)
	}
	return sent.Id, nil
}
