package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/hashicorp/go-retryablehttp"

	"github.com/stackbill/stackbill/internal/config"
	ierr "github.com/stackbill/stackbill/internal/errors"
	"github.com/stackbill/stackbill/internal/logger"
)

// Client defines the payment gateway operations the billing run consumes.
type Client interface {
	// Charge executes a payment against a stored billing credential.
	// Failures carry the gateway's human-readable reason in the error
	// message, which callers persist verbatim.
	Charge(ctx context.Context, req *ChargeRequest) (*ChargeResponse, error)

	// GetPayment looks up a previously executed charge by order id.
	GetPayment(ctx context.Context, orderID string) (*ChargeResponse, error)
}

// ChargeRequest identifies the credential, the payer, and the order.
type ChargeRequest struct {
	BillingKeyRef string `json:"billing_key"`
	PayerID       string `json:"payer_id"`
	Amount        int64  `json:"amount"`
	OrderID       string `json:"order_id"`
	OrderName     string `json:"order_name"`
}

func (r *ChargeRequest) Validate() error {
	if r.BillingKeyRef == "" {
		return ierr.NewError("billing_key is required").Mark(ierr.ErrValidation)
	}
	if r.OrderID == "" {
		return ierr.NewError("order_id is required").Mark(ierr.ErrValidation)
	}
	if r.Amount <= 0 {
		return ierr.NewError("amount must be positive").Mark(ierr.ErrValidation)
	}
	return nil
}

// ChargeStatus is the gateway-side outcome of a charge.
type ChargeStatus string

const (
	ChargeStatusDone     ChargeStatus = "DONE"
	ChargeStatusCanceled ChargeStatus = "CANCELED"
	ChargeStatusAborted  ChargeStatus = "ABORTED"
)

// ChargeResponse is the gateway's view of an executed charge.
type ChargeResponse struct {
	Status        ChargeStatus `json:"status"`
	TransactionID string       `json:"transaction_id"`
	OrderID       string       `json:"order_id"`
	Amount        int64        `json:"amount"`
	Method        string       `json:"method,omitempty"`
	Card          *CardInfo    `json:"card,omitempty"`
	ReceiptURL    string       `json:"receipt_url,omitempty"`
	ApprovedAt    time.Time    `json:"approved_at"`
}

// CardInfo describes the instrument the gateway charged.
type CardInfo struct {
	Brand       string `json:"brand,omitempty"`
	Last4       string `json:"last4,omitempty"`
	ExpiryMonth int    `json:"expiry_month,omitempty"`
	ExpiryYear  int    `json:"expiry_year,omitempty"`
}

type gatewayErrorBody struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// httpClient talks to the payment gateway's REST API with secret-key auth.
type httpClient struct {
	baseURL   string
	secretKey string
	logger    *logger.Logger

	// chargeHTTP never retries: a replayed POST could double-charge.
	// lookupHTTP retries transient failures since GETs are safe.
	chargeHTTP *http.Client
	lookupHTTP *retryablehttp.Client
}

// NewClient creates the HTTP gateway client.
func NewClient(cfg *config.Configuration, log *logger.Logger) Client {
	timeout := cfg.Gateway.Timeout
	if timeout == 0 {
		timeout = 30 * time.Second
	}

	lookup := retryablehttp.NewClient()
	lookup.RetryMax = 3
	lookup.HTTPClient.Timeout = timeout
	lookup.Logger = log.GetRetryableHTTPLogger()

	return &httpClient{
		baseURL:    cfg.Gateway.BaseURL,
		secretKey:  cfg.Gateway.SecretKey,
		logger:     log,
		chargeHTTP: &http.Client{Timeout: timeout},
		lookupHTTP: lookup,
	}
}

func (c *httpClient) Charge(ctx context.Context, req *ChargeRequest) (*ChargeResponse, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	body, err := json.Marshal(req)
	if err != nil {
		return nil, ierr.WithError(err).
			WithHint("Failed to encode charge request").
			Mark(ierr.ErrInternal)
	}

	url := fmt.Sprintf("%s/v1/billing/charges", c.baseURL)
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return nil, ierr.WithError(err).Mark(ierr.ErrHTTPClient)
	}
	httpReq.Header.Set("Authorization", "Bearer "+c.secretKey)
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Idempotency-Key", req.OrderID)

	c.logger.Infow("executing gateway charge",
		"order_id", req.OrderID,
		"payer_id", req.PayerID,
		"amount", req.Amount)

	resp, err := c.chargeHTTP.Do(httpReq)
	if err != nil {
		return nil, ierr.WithError(err).
			WithHint("Gateway unreachable").
			WithReportableDetails(map[string]interface{}{"order_id": req.OrderID}).
			Mark(ierr.ErrGateway)
	}
	defer resp.Body.Close()

	return c.decodeChargeResponse(resp, req.OrderID)
}

func (c *httpClient) GetPayment(ctx context.Context, orderID string) (*ChargeResponse, error) {
	if orderID == "" {
		return nil, ierr.NewError("order_id is required").Mark(ierr.ErrValidation)
	}

	url := fmt.Sprintf("%s/v1/billing/charges/%s", c.baseURL, orderID)
	httpReq, err := retryablehttp.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, ierr.WithError(err).Mark(ierr.ErrHTTPClient)
	}
	httpReq.Header.Set("Authorization", "Bearer "+c.secretKey)

	resp, err := c.lookupHTTP.Do(httpReq)
	if err != nil {
		return nil, ierr.WithError(err).
			WithHint("Gateway unreachable").
			Mark(ierr.ErrGateway)
	}
	defer resp.Body.Close()

	return c.decodeChargeResponse(resp, orderID)
}

func (c *httpClient) decodeChargeResponse(resp *http.Response, orderID string) (*ChargeResponse, error) {
	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, ierr.WithError(err).Mark(ierr.ErrHTTPClient)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		var gwErr gatewayErrorBody
		reason := fmt.Sprintf("gateway returned status %d", resp.StatusCode)
		if err := json.Unmarshal(raw, &gwErr); err == nil && gwErr.Message != "" {
			reason = gwErr.Message
		}
		c.logger.Warnw("gateway charge failed",
			"order_id", orderID,
			"status_code", resp.StatusCode,
			"code", gwErr.Code,
			"reason", reason)
		// The reason is the error message so it survives verbatim into
		// last_payment_error.
		return nil, ierr.NewError(reason).
			WithReportableDetails(map[string]interface{}{
				"order_id": orderID,
				"code":     gwErr.Code,
			}).
			Mark(ierr.ErrGateway)
	}

	var out ChargeResponse
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil, ierr.WithError(err).
			WithHint("Failed to decode gateway response").
			Mark(ierr.ErrGateway)
	}

	if out.Status != ChargeStatusDone {
		return nil, ierr.NewErrorf("charge not completed: %s", out.Status).
			WithReportableDetails(map[string]interface{}{"order_id": orderID}).
			Mark(ierr.ErrGateway)
	}

	return &out, nil
}
