package booking

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"shorestay/internal/app/commands"
	"shorestay/internal/app/dto"
	"shorestay/internal/app/policies"
	domainreservation "shorestay/internal/domain/reservation"
)

const cancelBookingKey = "booking.cancel"

type CancelBookingCommand struct {
	OrderID string
	Reason  string
}

func (c CancelBookingCommand) Key() string { return cancelBookingKey }

type CancelBookingResult struct {
	Reservation dto.ReservationView `json:"reservation"`
}

// CancelBookingHandler abandons a pending reservation when the guest backs
// out of the payment flow. The processor-side cancel is best-effort; the
// local record is the source of truth.
type CancelBookingHandler struct {
	Reservations domainreservation.Repository
	Gateway      policies.PaymentGateway
	Events       policies.EventSink
	Logger       *slog.Logger
}

func (h *CancelBookingHandler) Handle(ctx context.Context, cmd CancelBookingCommand) (*CancelBookingResult, error) {
	res, err := h.Reservations.ByOrderID(ctx, cmd.OrderID)
	if err != nil {
		return nil, err
	}

	if err := h.Gateway.CancelOrder(ctx, cmd.OrderID); err != nil && h.Logger != nil {
		h.Logger.Warn("processor order cancel failed", "order_id", cmd.OrderID, "error", err)
	}

	reason := cmd.Reason
	if reason == "" {
		reason = "cancelled by guest"
	}
	err = res.Cancel(reason, time.Now().UTC())
	if errors.Is(err, domainreservation.ErrAlreadyProcessed) {
		return &CancelBookingResult{Reservation: dto.MapReservation(res)}, nil
	}
	if err != nil {
		return nil, err
	}
	if err := h.Reservations.Save(ctx, res); err != nil {
		return nil, err
	}
	publishEvents(ctx, h.Events, h.Logger, res)

	return &CancelBookingResult{Reservation: dto.MapReservation(res)}, nil
}

var _ commands.Handler[CancelBookingCommand, *CancelBookingResult] = (*CancelBookingHandler)(nil)
