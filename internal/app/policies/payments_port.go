package policies

import (
	"context"
	"errors"
	"fmt"

	"shorestay/internal/domain/shared/money"
)

// ErrOrderNotApproved means the payer has not completed the external approval
// flow yet, so capture must not be attempted.
var ErrOrderNotApproved = errors.New("payments: order is not approved")

// GatewayError wraps any non-success processor response. Callers treat it as
// retryable: the reservation stays pending and the flow can be re-attempted.
type GatewayError struct {
	Op     string
	Status int
	Reason string
}

func (e *GatewayError) Error() string {
	return fmt.Sprintf("payments: %s failed (status %d): %s", e.Op, e.Status, e.Reason)
}

// OrderRef is the processor-side representation of a pending charge.
type OrderRef struct {
	OrderID      string
	ApprovalLink string
}

// Capture is the result of finalizing an approved order.
type Capture struct {
	TransactionID string
	Amount        money.Money
	PayerEmail    string
}

// PaymentGateway is the adapter surface for the external payment processor.
// Token acquisition and caching are internal to the implementation.
type PaymentGateway interface {
	CreateOrder(ctx context.Context, amount money.Money, referenceID, returnURL, cancelURL string) (OrderRef, error)
	CaptureOrder(ctx context.Context, orderID string) (Capture, error)
	CancelOrder(ctx context.Context, orderID string) error
}
