package booking

import (
	"context"
	"errors"
	"strings"

	"shorestay/internal/app/dto"
	"shorestay/internal/app/queries"
	domainlistings "shorestay/internal/domain/listings"
	domainreservation "shorestay/internal/domain/reservation"
)

const listListingBookingsKey = "booking.listing.list"
const getReservationKey = "booking.get"

type ListListingBookingsQuery struct {
	ListingID string
}

func (q ListListingBookingsQuery) Key() string { return listListingBookingsKey }

// ListListingBookingsHandler serves the host view of all reservations on a
// listing, whatever their state.
type ListListingBookingsHandler struct {
	Reservations domainreservation.Repository
}

func (h *ListListingBookingsHandler) Handle(ctx context.Context, q ListListingBookingsQuery) (dto.ReservationCollection, error) {
	listingID := strings.TrimSpace(q.ListingID)
	if listingID == "" {
		return dto.ReservationCollection{}, errors.New("listing id is required")
	}
	items, err := h.Reservations.ListByListing(ctx, domainlistings.ListingID(listingID))
	if err != nil {
		return dto.ReservationCollection{}, err
	}
	return dto.MapReservations(items), nil
}

type GetReservationQuery struct {
	ReservationID string
}

func (q GetReservationQuery) Key() string { return getReservationKey }

type GetReservationHandler struct {
	Reservations domainreservation.Repository
}

func (h *GetReservationHandler) Handle(ctx context.Context, q GetReservationQuery) (dto.ReservationView, error) {
	res, err := h.Reservations.ByID(ctx, domainreservation.ReservationID(q.ReservationID))
	if err != nil {
		return dto.ReservationView{}, err
	}
	return dto.MapReservation(res), nil
}

var _ queries.Handler[ListListingBookingsQuery, dto.ReservationCollection] = (*ListListingBookingsHandler)(nil)
var _ queries.Handler[GetReservationQuery, dto.ReservationView] = (*GetReservationHandler)(nil)
