package booking

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"shorestay/internal/app/commands"
	"shorestay/internal/app/dto"
	"shorestay/internal/app/policies"
	domainlistings "shorestay/internal/domain/listings"
	domainreservation "shorestay/internal/domain/reservation"
)

const capturePaymentKey = "booking.capture_payment"

// casAttempts bounds the reload-and-retry loop when a concurrent handler
// saved the reservation between our read and write.
const casAttempts = 3

type CapturePaymentCommand struct {
	OrderID string
	PayerID string
}

func (c CapturePaymentCommand) Key() string { return capturePaymentKey }

type CapturePaymentResult struct {
	Reservation dto.ReservationView `json:"reservation"`
}

// CapturePaymentHandler reconciles the payer's return from the external flow:
// capture the approved order, confirm the reservation exactly once, notify.
type CapturePaymentHandler struct {
	Listings     domainlistings.Repository
	Reservations domainreservation.Repository
	Gateway      policies.PaymentGateway
	Notifier     policies.Notifier
	Events       policies.EventSink
	Logger       *slog.Logger
}

func (h *CapturePaymentHandler) Handle(ctx context.Context, cmd CapturePaymentCommand) (*CapturePaymentResult, error) {
	res, err := h.Reservations.ByOrderID(ctx, cmd.OrderID)
	if err != nil {
		return nil, err
	}

	// Duplicate delivery: the payment already went through, return the
	// confirmed record instead of re-capturing.
	if res.PaymentStatus == domainreservation.PaymentCompleted {
		return &CapturePaymentResult{Reservation: dto.MapReservation(res)}, nil
	}

	// Re-validate the overlap before confirming: a competing reservation may
	// have reached Confirmed since this one was created.
	conflicts, err := h.Reservations.ConfirmedOverlapping(ctx, res.ListingID, res.Range)
	if err != nil {
		return nil, err
	}
	if hasOther(conflicts, res.ID) {
		now := time.Now().UTC()
		if cancelErr := res.Cancel("dates taken before payment capture", now); cancelErr == nil {
			if saveErr := h.Reservations.Save(ctx, res); saveErr != nil && h.Logger != nil {
				h.Logger.Error("conflict cancellation save failed", "reservation_id", res.ID, "error", saveErr)
			}
			publishEvents(ctx, h.Events, h.Logger, res)
		}
		if cancelErr := h.Gateway.CancelOrder(ctx, cmd.OrderID); cancelErr != nil && h.Logger != nil {
			h.Logger.Warn("order cancel after conflict failed", "order_id", cmd.OrderID, "error", cancelErr)
		}
		return nil, domainreservation.ErrDatesConflict
	}

	capture, err := h.Gateway.CaptureOrder(ctx, cmd.OrderID)
	if err != nil {
		return nil, err
	}

	for attempt := 0; ; attempt++ {
		now := time.Now().UTC()
		err := res.ConfirmPayment(capture.TransactionID, capture.Amount, capture.PayerEmail, now)
		if errors.Is(err, domainreservation.ErrAlreadyProcessed) {
			return &CapturePaymentResult{Reservation: dto.MapReservation(res)}, nil
		}
		if err != nil {
			return nil, err
		}
		saveErr := h.Reservations.Save(ctx, res)
		if saveErr == nil {
			break
		}
		if !errors.Is(saveErr, domainreservation.ErrConcurrentUpdate) || attempt+1 >= casAttempts {
			return nil, saveErr
		}
		res, err = h.Reservations.ByOrderID(ctx, cmd.OrderID)
		if err != nil {
			return nil, err
		}
	}

	publishEvents(ctx, h.Events, h.Logger, res)
	h.notifyAsync(ctx, res)

	return &CapturePaymentResult{Reservation: dto.MapReservation(res)}, nil
}

func (h *CapturePaymentHandler) notifyAsync(ctx context.Context, res *domainreservation.Reservation) {
	if h.Notifier == nil {
		return
	}
	snapshot := *res
	detached := context.WithoutCancel(ctx)
	go func() {
		sendConfirmation(detached, h.Listings, h.Notifier, h.Logger, &snapshot)
	}()
}

func hasOther(items []*domainreservation.Reservation, self domainreservation.ReservationID) bool {
	for _, item := range items {
		if item.ID != self {
			return true
		}
	}
	return false
}

var _ commands.Handler[CapturePaymentCommand, *CapturePaymentResult] = (*CapturePaymentHandler)(nil)
