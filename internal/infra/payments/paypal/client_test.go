package paypal

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"shorestay/internal/app/policies"
	"shorestay/internal/domain/shared/money"
)

type fakeProcessor struct {
	mux         *http.ServeMux
	tokenCalls  atomic.Int64
	orderStatus string
}

func newFakeProcessor(t *testing.T) (*fakeProcessor, *httptest.Server) {
	t.Helper()
	p := &fakeProcessor{mux: http.NewServeMux(), orderStatus: "APPROVED"}
	p.mux.HandleFunc("POST /v1/oauth2/token", func(w http.ResponseWriter, r *http.Request) {
		p.tokenCalls.Add(1)
		user, _, ok := r.BasicAuth()
		if !ok || user != "client-id" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		json.NewEncoder(w).Encode(map[string]any{"access_token": "tok-1", "expires_in": 3600})
	})
	p.mux.HandleFunc("POST /v2/checkout/orders", func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]any{
			"id":     "ord-1",
			"status": "CREATED",
			"links": []map[string]string{
				{"rel": "self", "href": "https://processor/orders/ord-1"},
				{"rel": "approve", "href": "https://processor/approve/ord-1"},
			},
		})
	})
	p.mux.HandleFunc("GET /v2/checkout/orders/{id}", func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]any{"id": r.PathValue("id"), "status": p.orderStatus})
	})
	p.mux.HandleFunc("POST /v2/checkout/orders/{id}/capture", func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]any{
			"id":    "txn-1",
			"payer": map[string]any{"email_address": "dana@example.com"},
			"purchase_units": []map[string]any{{
				"payments": map[string]any{
					"captures": []map[string]any{{
						"id":     "txn-1",
						"amount": map[string]string{"currency_code": "USD", "value": "370.00"},
					}},
				},
			}},
		})
	})
	server := httptest.NewServer(p.mux)
	t.Cleanup(server.Close)
	return p, server
}

func newTestClient(server *httptest.Server) *Client {
	return New(Config{
		BaseURL:   server.URL,
		ClientID:  "client-id",
		Secret:    "client-secret",
		WebhookID: "wh-1",
	}, server.Client(), nil)
}

func TestCreateOrderReturnsApprovalLink(t *testing.T) {
	_, server := newFakeProcessor(t)
	client := newTestClient(server)

	ref, err := client.CreateOrder(context.Background(), money.Must(37000, "USD"), "rsv-1", "https://site/return", "https://site/cancel")
	require.NoError(t, err)
	assert.Equal(t, "ord-1", ref.OrderID)
	assert.Equal(t, "https://processor/approve/ord-1", ref.ApprovalLink)
}

func TestCreateOrderWithoutApprovalLinkFails(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /v1/oauth2/token", func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]any{"access_token": "tok-1", "expires_in": 3600})
	})
	mux.HandleFunc("POST /v2/checkout/orders", func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]any{"id": "ord-1", "status": "CREATED"})
	})
	bare := httptest.NewServer(mux)
	t.Cleanup(bare.Close)

	client := newTestClient(bare)
	_, err := client.CreateOrder(context.Background(), money.Must(37000, "USD"), "rsv-1", "", "")
	var gatewayErr *policies.GatewayError
	require.ErrorAs(t, err, &gatewayErr)
	assert.Contains(t, gatewayErr.Reason, "approval link")
}

func TestTokenIsCachedAcrossCalls(t *testing.T) {
	p, server := newFakeProcessor(t)
	client := newTestClient(server)

	ctx := context.Background()
	_, err := client.CreateOrder(ctx, money.Must(37000, "USD"), "rsv-1", "", "")
	require.NoError(t, err)
	_, err = client.CaptureOrder(ctx, "ord-1")
	require.NoError(t, err)

	assert.Equal(t, int64(1), p.tokenCalls.Load())
}

func TestCaptureOrderRequiresApproval(t *testing.T) {
	p, server := newFakeProcessor(t)
	p.orderStatus = "CREATED"
	client := newTestClient(server)

	_, err := client.CaptureOrder(context.Background(), "ord-1")
	assert.ErrorIs(t, err, policies.ErrOrderNotApproved)
}

func TestCaptureOrderReturnsSettlement(t *testing.T) {
	_, server := newFakeProcessor(t)
	client := newTestClient(server)

	capture, err := client.CaptureOrder(context.Background(), "ord-1")
	require.NoError(t, err)
	assert.Equal(t, "txn-1", capture.TransactionID)
	assert.Equal(t, "dana@example.com", capture.PayerEmail)
	assert.Equal(t, money.Must(37000, "USD"), capture.Amount)
}

func TestGatewayErrorCarriesStatus(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /v1/oauth2/token", func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]any{"access_token": "tok-1", "expires_in": 3600})
	})
	mux.HandleFunc("POST /v2/checkout/orders", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnprocessableEntity)
		w.Write([]byte(`{"name":"UNPROCESSABLE_ENTITY"}`))
	})
	server := httptest.NewServer(mux)
	t.Cleanup(server.Close)

	client := newTestClient(server)
	_, err := client.CreateOrder(context.Background(), money.Must(37000, "USD"), "rsv-1", "", "")
	var gatewayErr *policies.GatewayError
	require.True(t, errors.As(err, &gatewayErr))
	assert.Equal(t, http.StatusUnprocessableEntity, gatewayErr.Status)
}

func TestVerifyWebhookSignature(t *testing.T) {
	client := New(Config{
		BaseURL:   "https://processor",
		ClientID:  "client-id",
		Secret:    "client-secret",
		WebhookID: "wh-1",
	}, nil, nil)

	body := []byte(`{"id":"evt-1","event_type":"PAYMENT.SALE.COMPLETED","resource":{"id":"txn-1"}}`)
	ts := "2026-08-31T12:00:00Z"

	payload, err := json.Marshal(struct {
		TransmissionID   string          `json:"transmission_id"`
		TransmissionTime string          `json:"transmission_time"`
		WebhookID        string          `json:"webhook_id"`
		WebhookEvent     json.RawMessage `json:"webhook_event"`
	}{"evt-1", ts, "wh-1", body})
	require.NoError(t, err)

	mac := hmac.New(sha256.New, []byte("client-secret"))
	mac.Write(payload)
	signature := hex.EncodeToString(mac.Sum(nil))

	assert.True(t, client.VerifyWebhookSignature(body, "evt-1", ts, signature))

	tampered := []byte(`{"id":"evt-1","event_type":"PAYMENT.SALE.COMPLETED","resource":{"id":"txn-2"}}`)
	assert.False(t, client.VerifyWebhookSignature(tampered, "evt-1", ts, signature))
	assert.False(t, client.VerifyWebhookSignature(body, "evt-1", ts, ""))
	assert.False(t, client.VerifyWebhookSignature(body, "evt-1", "", signature))
}

func TestParseWebhookEvent(t *testing.T) {
	body := []byte(`{
		"id": "evt-1",
		"event_type": "PAYMENT.SALE.COMPLETED",
		"resource": {
			"id": "sale-1",
			"transaction_id": "txn-1",
			"parent_payment": "ord-1",
			"amount": {"total": "370.00", "currency": "USD"},
			"payer": {"payer_info": {"email": "dana@example.com"}}
		}
	}`)
	event, err := ParseWebhookEvent(body)
	require.NoError(t, err)
	assert.Equal(t, "PAYMENT.SALE.COMPLETED", event.EventType)
	assert.Equal(t, "txn-1", event.Resource.TransactionID)
	assert.Equal(t, "ord-1", event.Resource.ParentPayment)
	assert.Equal(t, "370.00", event.Resource.Amount.Total)
	assert.Equal(t, "dana@example.com", event.Resource.Payer.PayerInfo.Email)
}

func TestTokenRefreshSingleFlight(t *testing.T) {
	p, server := newFakeProcessor(t)
	source := newTokenSource(server.URL, "client-id", "client-secret", server.Client())

	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			token, err := source.AccessToken(context.Background())
			assert.NoError(t, err)
			assert.Equal(t, "tok-1", token)
		}()
	}
	wg.Wait()

	assert.Equal(t, int64(1), p.tokenCalls.Load())
}
