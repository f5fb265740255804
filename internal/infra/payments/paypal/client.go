package paypal

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"shorestay/internal/app/policies"
	"shorestay/internal/domain/shared/money"
)

// Config carries processor credentials and endpoints.
type Config struct {
	BaseURL   string
	ClientID  string
	Secret    string
	WebhookID string
	Timeout   time.Duration
}

// Client adapts the processor's checkout-orders API to the PaymentGateway
// port. Token acquisition, caching and refresh are internal.
type Client struct {
	cfg    Config
	http   *http.Client
	tokens *tokenSource
	logger *slog.Logger
}

func New(cfg Config, httpClient *http.Client, logger *slog.Logger) *Client {
	if httpClient == nil {
		timeout := cfg.Timeout
		if timeout <= 0 {
			timeout = 15 * time.Second
		}
		httpClient = &http.Client{Timeout: timeout}
	}
	cfg.BaseURL = strings.TrimRight(cfg.BaseURL, "/")
	return &Client{
		cfg:    cfg,
		http:   httpClient,
		tokens: newTokenSource(cfg.BaseURL, cfg.ClientID, cfg.Secret, httpClient),
		logger: logger,
	}
}

type orderAmount struct {
	CurrencyCode string `json:"currency_code"`
	Value        string `json:"value"`
}

type purchaseUnit struct {
	ReferenceID string      `json:"reference_id,omitempty"`
	Amount      orderAmount `json:"amount"`
}

type applicationContext struct {
	ReturnURL string `json:"return_url"`
	CancelURL string `json:"cancel_url"`
}

type orderCreateRequest struct {
	Intent             string             `json:"intent"`
	PurchaseUnits      []purchaseUnit     `json:"purchase_units"`
	ApplicationContext applicationContext `json:"application_context"`
}

type orderLink struct {
	Href string `json:"href"`
	Rel  string `json:"rel"`
}

type orderResponse struct {
	ID     string      `json:"id"`
	Status string      `json:"status"`
	Links  []orderLink `json:"links"`
}

// CreateOrder registers a pending charge and returns the link the payer must
// visit to approve it.
func (c *Client) CreateOrder(ctx context.Context, amount money.Money, referenceID, returnURL, cancelURL string) (policies.OrderRef, error) {
	payload := orderCreateRequest{
		Intent: "CAPTURE",
		PurchaseUnits: []purchaseUnit{{
			ReferenceID: referenceID,
			Amount:      orderAmount{CurrencyCode: amount.Currency, Value: amount.Decimal()},
		}},
		ApplicationContext: applicationContext{ReturnURL: returnURL, CancelURL: cancelURL},
	}

	var resp orderResponse
	if err := c.doJSON(ctx, http.MethodPost, "/v2/checkout/orders", payload, &resp); err != nil {
		return policies.OrderRef{}, err
	}
	if resp.Status != "CREATED" || resp.ID == "" {
		return policies.OrderRef{}, &policies.GatewayError{Op: "order create", Reason: "unexpected order status " + resp.Status}
	}
	link := approvalLink(resp.Links)
	if link == "" {
		return policies.OrderRef{}, &policies.GatewayError{Op: "order create", Reason: "no approval link in response"}
	}
	if c.logger != nil {
		c.logger.Info("payment order created", "order_id", resp.ID, "reference_id", referenceID)
	}
	return policies.OrderRef{OrderID: resp.ID, ApprovalLink: link}, nil
}

type captureResponse struct {
	ID    string `json:"id"`
	Payer struct {
		EmailAddress string `json:"email_address"`
	} `json:"payer"`
	PurchaseUnits []struct {
		Payments struct {
			Captures []struct {
				ID     string      `json:"id"`
				Amount orderAmount `json:"amount"`
			} `json:"captures"`
		} `json:"payments"`
	} `json:"purchase_units"`
}

// CaptureOrder finalizes an approved order. The order status is checked
// first: capturing an unapproved order is a caller mistake, not a gateway
// fault.
func (c *Client) CaptureOrder(ctx context.Context, orderID string) (policies.Capture, error) {
	var status orderResponse
	if err := c.doJSON(ctx, http.MethodGet, "/v2/checkout/orders/"+orderID, nil, &status); err != nil {
		return policies.Capture{}, err
	}
	if status.Status != "APPROVED" {
		return policies.Capture{}, policies.ErrOrderNotApproved
	}

	var resp captureResponse
	if err := c.doJSON(ctx, http.MethodPost, "/v2/checkout/orders/"+orderID+"/capture", struct{}{}, &resp); err != nil {
		return policies.Capture{}, err
	}
	if resp.ID == "" {
		return policies.Capture{}, &policies.GatewayError{Op: "order capture", Reason: "missing transaction id in response"}
	}

	capture := policies.Capture{TransactionID: resp.ID, PayerEmail: resp.Payer.EmailAddress}
	if len(resp.PurchaseUnits) > 0 && len(resp.PurchaseUnits[0].Payments.Captures) > 0 {
		captured := resp.PurchaseUnits[0].Payments.Captures[0].Amount
		amount, err := money.ParseDecimal(captured.Value, captured.CurrencyCode)
		if err != nil {
			return policies.Capture{}, &policies.GatewayError{Op: "order capture", Reason: "unparseable capture amount " + captured.Value}
		}
		capture.Amount = amount
	}
	if c.logger != nil {
		c.logger.Info("payment captured", "order_id", orderID, "transaction_id", capture.TransactionID)
	}
	return capture, nil
}

// CancelOrder is best-effort: the processor has no true cancel for checkout
// orders, so a rejection here only means the approval link stays live until
// it expires on the processor side.
func (c *Client) CancelOrder(ctx context.Context, orderID string) error {
	err := c.doJSON(ctx, http.MethodPost, "/v2/checkout/orders/"+orderID+"/cancel", struct{}{}, nil)
	if err != nil && c.logger != nil {
		c.logger.Warn("order cancel rejected by processor", "order_id", orderID, "error", err)
	}
	return err
}

func (c *Client) doJSON(ctx context.Context, method, path string, body, out any) error {
	token, err := c.tokens.AccessToken(ctx)
	if err != nil {
		return err
	}

	var reader io.Reader
	if body != nil {
		encoded, err := json.Marshal(body)
		if err != nil {
			return err
		}
		reader = bytes.NewReader(encoded)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.cfg.BaseURL+path, reader)
	if err != nil {
		return err
	}
	req.Header.Set("Authorization", "Bearer "+token)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return &policies.GatewayError{Op: method + " " + path, Reason: err.Error()}
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusUnauthorized {
		// Token revoked server-side; drop the cache so the next call
		// re-exchanges instead of failing the same way.
		c.tokens.invalidate()
	}
	if resp.StatusCode >= http.StatusBadRequest {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return &policies.GatewayError{Op: method + " " + path, Status: resp.StatusCode, Reason: string(snippet)}
	}
	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil && !errors.Is(err, io.EOF) {
		return &policies.GatewayError{Op: method + " " + path, Status: resp.StatusCode, Reason: "decode: " + err.Error()}
	}
	return nil
}

func approvalLink(links []orderLink) string {
	for _, link := range links {
		if link.Rel == "approve" || link.Rel == "approval_url" {
			return link.Href
		}
	}
	return ""
}

var _ policies.PaymentGateway = (*Client)(nil)
