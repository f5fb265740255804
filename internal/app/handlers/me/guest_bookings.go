package me

import (
	"context"
	"errors"
	"log/slog"
	"strings"

	"shorestay/internal/app/dto"
	"shorestay/internal/app/queries"
	domainreservation "shorestay/internal/domain/reservation"
)

const listGuestBookingsKey = "me.bookings.list"

type ListGuestBookingsQuery struct {
	GuestID string
}

func (q ListGuestBookingsQuery) Key() string { return listGuestBookingsKey }

type ListGuestBookingsHandler struct {
	Reservations domainreservation.Repository
	Logger       *slog.Logger
}

func (h *ListGuestBookingsHandler) Handle(ctx context.Context, q ListGuestBookingsQuery) (dto.ReservationCollection, error) {
	guestID := strings.TrimSpace(q.GuestID)
	if guestID == "" {
		return dto.ReservationCollection{}, errors.New("guest id is required")
	}
	items, err := h.Reservations.ListByGuest(ctx, guestID)
	if err != nil {
		return dto.ReservationCollection{}, err
	}
	if h.Logger != nil {
		h.Logger.Debug("guest bookings listed", "guest_id", guestID, "count", len(items))
	}
	return dto.MapReservations(items), nil
}

var _ queries.Handler[ListGuestBookingsQuery, dto.ReservationCollection] = (*ListGuestBookingsHandler)(nil)
