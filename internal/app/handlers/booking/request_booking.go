package booking

import (
	"context"
	"log/slog"
	"time"

	"shorestay/internal/app/commands"
	"shorestay/internal/app/dto"
	"shorestay/internal/app/middleware"
	"shorestay/internal/app/policies"
	domainlistings "shorestay/internal/domain/listings"
	domainpricing "shorestay/internal/domain/pricing"
	domainreservation "shorestay/internal/domain/reservation"
	domainrange "shorestay/internal/domain/shared/daterange"
)

const requestBookingKey = "booking.request"

type RequestBookingCommand struct {
	CommandID       string
	ListingID       string
	GuestID         string
	GuestName       string
	GuestPhone      string
	Adults          int
	Children        int
	Infants         int
	Pets            int
	CheckIn         time.Time
	CheckOut        time.Time
	IdempotencyKeyV string
}

func (c RequestBookingCommand) Key() string { return requestBookingKey }

func (c RequestBookingCommand) IdempotencyKey() string { return c.IdempotencyKeyV }

func (c RequestBookingCommand) ResultPrototype() any { return &RequestBookingResult{} }

type RequestBookingResult struct {
	Reservation  dto.ReservationView `json:"reservation"`
	ApprovalLink string              `json:"approval_link,omitempty"`
}

// RequestBookingHandler is the booking orchestrator: it validates the stay,
// prices it, creates the pending reservation and initiates the external
// payment order. A gateway failure after creation leaves an inspectable
// pending record with no order attached, so the caller can retry.
type RequestBookingHandler struct {
	Listings     domainlistings.Repository
	Reservations domainreservation.Repository
	Gateway      policies.PaymentGateway
	Events       policies.EventSink
	Logger       *slog.Logger
	ReturnURL    string
	CancelURL    string
}

func (h *RequestBookingHandler) Handle(ctx context.Context, cmd RequestBookingCommand) (*RequestBookingResult, error) {
	dr, err := domainrange.New(cmd.CheckIn, cmd.CheckOut)
	if err != nil {
		return nil, err
	}

	listing, err := h.Listings.ByID(ctx, domainlistings.ListingID(cmd.ListingID))
	if err != nil {
		return nil, err
	}
	loc, err := listing.LoadLocation()
	if err != nil {
		return nil, err
	}

	quote, err := domainpricing.ComputeStay(listing.NightlyRate, dr.CheckIn, dr.CheckOut, loc, listing.HouseRules)
	if err != nil {
		return nil, err
	}

	conflicts, err := h.Reservations.ConfirmedOverlapping(ctx, listing.ID, dr)
	if err != nil {
		return nil, err
	}
	if len(conflicts) > 0 {
		return nil, domainreservation.ErrDatesConflict
	}

	now := time.Now().UTC()
	res, err := domainreservation.NewReservation(domainreservation.CreateParams{
		ID:         domainreservation.ReservationID(cmd.CommandID),
		ListingID:  listing.ID,
		GuestID:    cmd.GuestID,
		GuestName:  cmd.GuestName,
		GuestPhone: cmd.GuestPhone,
		Occupancy: domainreservation.Occupancy{
			Adults:   cmd.Adults,
			Children: cmd.Children,
			Infants:  cmd.Infants,
			Pets:     cmd.Pets,
		},
		Range:     dr,
		Nights:    quote.Nights,
		Total:     quote.Total,
		CreatedAt: now,
	})
	if err != nil {
		return nil, err
	}

	if err := h.Reservations.Save(ctx, res); err != nil {
		return nil, err
	}

	order, err := h.Gateway.CreateOrder(ctx, res.Total, string(res.ID), h.ReturnURL, h.CancelURL)
	if err != nil {
		// Reservation stays pending with no order attached; the caller
		// retries or cancels explicitly.
		if h.Logger != nil {
			h.Logger.Warn("payment order creation failed", "reservation_id", res.ID, "error", err)
		}
		return nil, err
	}

	if err := res.AttachOrder(order.OrderID, time.Now().UTC()); err != nil {
		return nil, err
	}
	if err := h.Reservations.Save(ctx, res); err != nil {
		return nil, err
	}

	publishEvents(ctx, h.Events, h.Logger, res)

	return &RequestBookingResult{
		Reservation:  dto.MapReservation(res),
		ApprovalLink: order.ApprovalLink,
	}, nil
}

var _ commands.Handler[RequestBookingCommand, *RequestBookingResult] = (*RequestBookingHandler)(nil)
var _ middleware.IdempotentCommand = (*RequestBookingCommand)(nil)
