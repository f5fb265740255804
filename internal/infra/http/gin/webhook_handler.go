package ginserver

import (
	"io"
	"log/slog"
	"net/http"

	gin "github.com/gin-gonic/gin"

	"shorestay/internal/app/commands"
	bookingapp "shorestay/internal/app/handlers/booking"
	"shorestay/internal/infra/payments/paypal"
)

const (
	headerTransmissionSig  = "Paypal-Transmission-Sig"
	headerTransmissionTime = "Paypal-Transmission-Time"
)

// WebhookVerifier checks the processor's transmission signature.
type WebhookVerifier interface {
	VerifyWebhookSignature(body []byte, transmissionID, transmissionTime, signature string) bool
}

type WebhookHandler struct {
	Commands commands.Bus
	Verifier WebhookVerifier
	Logger   *slog.Logger
}

// Receive handles payment processor callbacks. Anything with a bad signature
// is rejected before it can touch state; recognized events are applied and
// everything else is acknowledged so the processor stops retrying.
func (h WebhookHandler) Receive(c *gin.Context) {
	body, err := io.ReadAll(c.Request.Body)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "unreadable body"})
		return
	}
	event, err := paypal.ParseWebhookEvent(body)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "malformed event"})
		return
	}
	sig := c.GetHeader(headerTransmissionSig)
	ts := c.GetHeader(headerTransmissionTime)
	if !h.Verifier.VerifyWebhookSignature(body, event.ID, ts, sig) {
		if h.Logger != nil {
			h.Logger.Warn("webhook signature rejected", "event_type", event.EventType)
		}
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid signature"})
		return
	}
	cmd := bookingapp.ProcessWebhookCommand{
		EventType:     event.EventType,
		TransactionID: event.Resource.TransactionID,
		OrderID:       orderIDFrom(event),
		AmountValue:   event.Resource.Amount.Total,
		Currency:      event.Resource.Amount.Currency,
		PayerEmail:    event.Resource.Payer.PayerInfo.Email,
	}
	result, err := commands.Dispatch[bookingapp.ProcessWebhookCommand, *bookingapp.ProcessWebhookResult](c.Request.Context(), h.Commands, cmd)
	if err != nil {
		writeError(c, h.Logger, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

// Sale events carry the owning order under parent_payment; order-scoped
// events carry it as the resource id.
func orderIDFrom(event paypal.WebhookEvent) string {
	if event.Resource.ParentPayment != "" {
		return event.Resource.ParentPayment
	}
	return event.Resource.ID
}

var _ WebhookHTTP = WebhookHandler{}
