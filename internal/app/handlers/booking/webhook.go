package booking

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"shorestay/internal/app/commands"
	"shorestay/internal/app/policies"
	domainlistings "shorestay/internal/domain/listings"
	domainreservation "shorestay/internal/domain/reservation"
	"shorestay/internal/domain/shared/money"
)

const processWebhookKey = "booking.process_webhook"

// Webhook event kinds the processor pushes. Anything else is acknowledged
// and ignored so the processor does not keep redelivering.
const (
	EventPaymentCompleted = "PAYMENT.SALE.COMPLETED"
	EventPaymentPending   = "PAYMENT.SALE.PENDING"
	EventPaymentRefunded  = "PAYMENT.SALE.REFUNDED"
	EventPaymentDenied    = "PAYMENT.SALE.DENIED"
)

// ProcessWebhookCommand carries an already-authenticated processor event.
// Signature verification happens at the transport boundary; an event that
// reaches this handler is trusted.
type ProcessWebhookCommand struct {
	EventType     string
	TransactionID string
	OrderID       string
	AmountValue   string
	Currency      string
	PayerEmail    string
}

func (c ProcessWebhookCommand) Key() string { return processWebhookKey }

type ProcessWebhookResult struct {
	Applied bool `json:"applied"`
}

// ProcessWebhookHandler applies asynchronous payment-state pushes onto the
// reservation through the same idempotent transitions the synchronous capture
// path uses. Duplicate deliveries are no-ops reported as success.
type ProcessWebhookHandler struct {
	Listings     domainlistings.Repository
	Reservations domainreservation.Repository
	Notifier     policies.Notifier
	Events       policies.EventSink
	Logger       *slog.Logger
}

func (h *ProcessWebhookHandler) Handle(ctx context.Context, cmd ProcessWebhookCommand) (*ProcessWebhookResult, error) {
	res, err := h.lookup(ctx, cmd)
	if err != nil {
		if errors.Is(err, domainreservation.ErrNotFound) {
			// The processor retries on its own schedule; an unknown
			// reference is logged and acknowledged.
			if h.Logger != nil {
				h.Logger.Warn("webhook for unknown reservation", "event", cmd.EventType, "transaction_id", cmd.TransactionID, "order_id", cmd.OrderID)
			}
			return &ProcessWebhookResult{Applied: false}, nil
		}
		return nil, err
	}

	switch cmd.EventType {
	case EventPaymentCompleted:
		return h.applyCompleted(ctx, cmd, res)
	case EventPaymentPending:
		return h.apply(ctx, res, func(r *domainreservation.Reservation, now time.Time) error {
			return r.NotePaymentPending(now)
		})
	case EventPaymentRefunded:
		return h.apply(ctx, res, func(r *domainreservation.Reservation, now time.Time) error {
			return r.MarkRefunded(now)
		})
	case EventPaymentDenied:
		return h.apply(ctx, res, func(r *domainreservation.Reservation, now time.Time) error {
			return r.MarkDenied(now)
		})
	default:
		if h.Logger != nil {
			h.Logger.Info("unhandled webhook event", "event", cmd.EventType)
		}
		return &ProcessWebhookResult{Applied: false}, nil
	}
}

func (h *ProcessWebhookHandler) lookup(ctx context.Context, cmd ProcessWebhookCommand) (*domainreservation.Reservation, error) {
	if cmd.TransactionID != "" {
		res, err := h.Reservations.ByTransactionID(ctx, cmd.TransactionID)
		if err == nil {
			return res, nil
		}
		if !errors.Is(err, domainreservation.ErrNotFound) {
			return nil, err
		}
	}
	if cmd.OrderID != "" {
		return h.Reservations.ByOrderID(ctx, cmd.OrderID)
	}
	return nil, domainreservation.ErrNotFound
}

func (h *ProcessWebhookHandler) applyCompleted(ctx context.Context, cmd ProcessWebhookCommand, res *domainreservation.Reservation) (*ProcessWebhookResult, error) {
	currency := cmd.Currency
	if currency == "" {
		currency = res.Total.Currency
	}
	amount, err := money.ParseDecimal(cmd.AmountValue, currency)
	if err != nil {
		amount = res.Total
	}

	// Same re-validation the synchronous capture performs: a competing
	// reservation may have reached Confirmed since this hold was created.
	if res.PaymentStatus != domainreservation.PaymentCompleted {
		conflicts, err := h.Reservations.ConfirmedOverlapping(ctx, res.ListingID, res.Range)
		if err != nil {
			return nil, err
		}
		if hasOther(conflicts, res.ID) {
			now := time.Now().UTC()
			if cancelErr := res.Cancel("dates taken before payment completion", now); cancelErr == nil {
				if saveErr := h.Reservations.Save(ctx, res); saveErr != nil && h.Logger != nil {
					h.Logger.Error("conflict cancellation save failed", "reservation_id", res.ID, "error", saveErr)
				}
				publishEvents(ctx, h.Events, h.Logger, res)
			}
			if h.Logger != nil {
				h.Logger.Warn("completed payment for conflicting dates", "reservation_id", res.ID, "transaction_id", cmd.TransactionID)
			}
			return &ProcessWebhookResult{Applied: false}, nil
		}
	}

	confirmed, err := h.applyWithRetry(ctx, res, func(r *domainreservation.Reservation, now time.Time) error {
		return r.ConfirmPayment(cmd.TransactionID, amount, cmd.PayerEmail, now)
	})
	if err != nil {
		return nil, err
	}
	if confirmed != nil && h.Notifier != nil {
		snapshot := *confirmed
		detached := context.WithoutCancel(ctx)
		go func() {
			sendConfirmation(detached, h.Listings, h.Notifier, h.Logger, &snapshot)
		}()
	}
	return &ProcessWebhookResult{Applied: confirmed != nil}, nil
}

type transition func(r *domainreservation.Reservation, now time.Time) error

func (h *ProcessWebhookHandler) apply(ctx context.Context, res *domainreservation.Reservation, t transition) (*ProcessWebhookResult, error) {
	applied, err := h.applyWithRetry(ctx, res, t)
	if err != nil {
		return nil, err
	}
	return &ProcessWebhookResult{Applied: applied != nil}, nil
}

// applyWithRetry runs the transition under the store's compare-and-set,
// reloading on version conflict. Returns nil reservation (no error) when the
// transition was an idempotent no-op or an out-of-order delivery.
func (h *ProcessWebhookHandler) applyWithRetry(ctx context.Context, res *domainreservation.Reservation, t transition) (*domainreservation.Reservation, error) {
	for attempt := 0; ; attempt++ {
		err := t(res, time.Now().UTC())
		if errors.Is(err, domainreservation.ErrAlreadyProcessed) {
			return nil, nil
		}
		if errors.Is(err, domainreservation.ErrInvalidState) {
			if h.Logger != nil {
				h.Logger.Warn("webhook transition skipped", "reservation_id", res.ID, "status", res.Status, "payment_status", res.PaymentStatus)
			}
			return nil, nil
		}
		if err != nil {
			return nil, err
		}
		saveErr := h.Reservations.Save(ctx, res)
		if saveErr == nil {
			publishEvents(ctx, h.Events, h.Logger, res)
			return res, nil
		}
		if !errors.Is(saveErr, domainreservation.ErrConcurrentUpdate) || attempt+1 >= casAttempts {
			return nil, saveErr
		}
		reloaded, err := h.Reservations.ByID(ctx, res.ID)
		if err != nil {
			return nil, err
		}
		res = reloaded
	}
}

var _ commands.Handler[ProcessWebhookCommand, *ProcessWebhookResult] = (*ProcessWebhookHandler)(nil)
