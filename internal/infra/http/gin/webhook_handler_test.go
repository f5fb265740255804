package ginserver

import (
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	gin "github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"shorestay/internal/app/commands"
	bookingapp "shorestay/internal/app/handlers/booking"
)

type stubVerifier struct {
	valid bool
}

func (v stubVerifier) VerifyWebhookSignature(body []byte, transmissionID, transmissionTime, signature string) bool {
	return v.valid
}

type recordingBus struct {
	dispatched []commands.Command
	result     any
}

func (b *recordingBus) Dispatch(ctx context.Context, cmd commands.Command) (any, error) {
	b.dispatched = append(b.dispatched, cmd)
	return b.result, nil
}

func webhookRouter(handler WebhookHandler) *gin.Engine {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	router.POST("/api/v1/payments/webhook", handler.Receive)
	return router
}

const webhookBody = `{
	"id": "evt-1",
	"event_type": "PAYMENT.SALE.COMPLETED",
	"resource": {
		"transaction_id": "txn-1",
		"parent_payment": "ord-1",
		"amount": {"total": "370.00", "currency": "USD"},
		"payer": {"payer_info": {"email": "dana@example.com"}}
	}
}`

func TestWebhookRejectsInvalidSignature(t *testing.T) {
	bus := &recordingBus{}
	router := webhookRouter(WebhookHandler{Commands: bus, Verifier: stubVerifier{valid: false}})

	req := httptest.NewRequest(http.MethodPost, "/api/v1/payments/webhook", bytes.NewBufferString(webhookBody))
	req.Header.Set("Paypal-Transmission-Sig", "bad")
	req.Header.Set("Paypal-Transmission-Time", "2026-08-31T12:00:00Z")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Empty(t, bus.dispatched)
}

func TestWebhookDispatchesVerifiedEvent(t *testing.T) {
	bus := &recordingBus{result: &bookingapp.ProcessWebhookResult{Applied: true}}
	router := webhookRouter(WebhookHandler{Commands: bus, Verifier: stubVerifier{valid: true}})

	req := httptest.NewRequest(http.MethodPost, "/api/v1/payments/webhook", bytes.NewBufferString(webhookBody))
	req.Header.Set("Paypal-Transmission-Sig", "good")
	req.Header.Set("Paypal-Transmission-Time", "2026-08-31T12:00:00Z")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	require.Len(t, bus.dispatched, 1)
	cmd, ok := bus.dispatched[0].(bookingapp.ProcessWebhookCommand)
	require.True(t, ok)
	assert.Equal(t, "PAYMENT.SALE.COMPLETED", cmd.EventType)
	assert.Equal(t, "txn-1", cmd.TransactionID)
	assert.Equal(t, "ord-1", cmd.OrderID)
	assert.Equal(t, "370.00", cmd.AmountValue)
	assert.Equal(t, "dana@example.com", cmd.PayerEmail)
}

func TestWebhookRejectsMalformedBody(t *testing.T) {
	bus := &recordingBus{}
	router := webhookRouter(WebhookHandler{Commands: bus, Verifier: stubVerifier{valid: true}})

	req := httptest.NewRequest(http.MethodPost, "/api/v1/payments/webhook", bytes.NewBufferString("{not json"))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Empty(t, bus.dispatched)
}
