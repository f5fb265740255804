package paypal

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
)

var ErrInvalidSignature = errors.New("paypal: invalid webhook signature")

// WebhookEvent is the processor's event envelope, narrowed to the fields the
// reconciliation flow consumes.
type WebhookEvent struct {
	ID        string `json:"id"`
	EventType string `json:"event_type"`
	Resource  struct {
		ID            string `json:"id"`
		TransactionID string `json:"transaction_id"`
		ParentPayment string `json:"parent_payment"`
		Amount        struct {
			Total    string `json:"total"`
			Currency string `json:"currency"`
		} `json:"amount"`
		Payer struct {
			PayerInfo struct {
				Email string `json:"email"`
			} `json:"payer_info"`
		} `json:"payer"`
	} `json:"resource"`
}

// ParseWebhookEvent decodes the raw envelope. Verify the signature first;
// parsing an unverified body is fine, trusting it is not.
func ParseWebhookEvent(body []byte) (WebhookEvent, error) {
	var event WebhookEvent
	if err := json.Unmarshal(body, &event); err != nil {
		return WebhookEvent{}, err
	}
	return event, nil
}

type signaturePayload struct {
	TransmissionID   string          `json:"transmission_id"`
	TransmissionTime string          `json:"transmission_time"`
	WebhookID        string          `json:"webhook_id"`
	WebhookEvent     json.RawMessage `json:"webhook_event"`
}

// VerifyWebhookSignature recomputes the HMAC-SHA256 the processor sends in
// the transmission-signature header: shared client secret over transmission
// id, timestamp, webhook id and the raw event payload.
func (c *Client) VerifyWebhookSignature(body []byte, transmissionID, transmissionTime, signature string) bool {
	if signature == "" || transmissionTime == "" {
		return false
	}
	payload, err := json.Marshal(signaturePayload{
		TransmissionID:   transmissionID,
		TransmissionTime: transmissionTime,
		WebhookID:        c.cfg.WebhookID,
		WebhookEvent:     json.RawMessage(body),
	})
	if err != nil {
		return false
	}
	mac := hmac.New(sha256.New, []byte(c.cfg.Secret))
	mac.Write(payload)
	expected := hex.EncodeToString(mac.Sum(nil))
	return hmac.Equal([]byte(expected), []byte(signature))
}
