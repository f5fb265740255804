package booking_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"shorestay/internal/app/handlers/booking"
	"shorestay/internal/app/policies"
	"shorestay/internal/domain/pricing"
	"shorestay/internal/domain/reservation"
	"shorestay/internal/infra/storage/memory"
)

func newRequestHandler(t *testing.T) (*booking.RequestBookingHandler, *memory.ReservationRepository, *fakeGateway, *recordSink) {
	t.Helper()
	listingRepo := memory.NewListingRepository()
	seedListing(t, listingRepo)
	reservationRepo := memory.NewReservationRepository()
	gateway := &fakeGateway{}
	sink := &recordSink{}
	handler := &booking.RequestBookingHandler{
		Listings:     listingRepo,
		Reservations: reservationRepo,
		Gateway:      gateway,
		Events:       sink,
		ReturnURL:    "https://site/return",
		CancelURL:    "https://site/cancel",
	}
	return handler, reservationRepo, gateway, sink
}

func requestCommand() booking.RequestBookingCommand {
	return booking.RequestBookingCommand{
		CommandID:  "rsv-1",
		ListingID:  "lst-1",
		GuestID:    "gst-1",
		GuestName:  "Dana Whitfield",
		GuestPhone: "+1-555-0142",
		Adults:     2,
		Children:   1,
		CheckIn:    stayCheckIn,
		CheckOut:   stayCheckOut,
	}
}

func TestRequestBookingHappyPath(t *testing.T) {
	handler, repo, _, sink := newRequestHandler(t)

	result, err := handler.Handle(context.Background(), requestCommand())
	require.NoError(t, err)

	assert.Equal(t, "https://processor/approve/ord-1", result.ApprovalLink)
	assert.Equal(t, string(reservation.StatusPending), result.Reservation.Status)
	assert.Equal(t, 2, result.Reservation.Nights)
	assert.Equal(t, int64(37000), result.Reservation.Total.Amount)
	assert.Equal(t, "ord-1", result.Reservation.OrderID)

	stored, err := repo.ByOrderID(context.Background(), "ord-1")
	require.NoError(t, err)
	assert.Equal(t, reservation.StatusPending, stored.Status)

	assert.Equal(t, []string{"reservation.requested", "reservation.order_attached"}, sink.published())
}

func TestRequestBookingRejectsConfirmedOverlap(t *testing.T) {
	handler, repo, _, _ := newRequestHandler(t)

	other := seedPendingWithOrder(t, repo, "rsv-other", "ord-other", stayCheckIn, stayCheckOut)
	require.NoError(t, other.ConfirmPayment("txn-other", other.Total, "kim@example.com", time.Now().UTC()))
	require.NoError(t, repo.Save(context.Background(), other))

	_, err := handler.Handle(context.Background(), requestCommand())
	assert.ErrorIs(t, err, reservation.ErrDatesConflict)
}

func TestRequestBookingAllowsPendingOverlap(t *testing.T) {
	handler, repo, _, _ := newRequestHandler(t)
	seedPendingWithOrder(t, repo, "rsv-other", "ord-other", stayCheckIn, stayCheckOut)

	_, err := handler.Handle(context.Background(), requestCommand())
	require.NoError(t, err)
}

func TestRequestBookingGatewayFailureLeavesPendingRecord(t *testing.T) {
	handler, repo, gateway, sink := newRequestHandler(t)
	gateway.createErr = &policies.GatewayError{Op: "order create", Status: 503, Reason: "unavailable"}

	_, err := handler.Handle(context.Background(), requestCommand())
	var gatewayErr *policies.GatewayError
	require.ErrorAs(t, err, &gatewayErr)

	stored, err := repo.ByID(context.Background(), "rsv-1")
	require.NoError(t, err)
	assert.Equal(t, reservation.StatusPending, stored.Status)
	assert.Empty(t, stored.OrderID)
	assert.Empty(t, sink.published())
}

func TestRequestBookingRejectsHouseRuleViolation(t *testing.T) {
	handler, _, _, _ := newRequestHandler(t)

	cmd := requestCommand()
	cmd.CheckIn = cmd.CheckIn.Add(-time.Hour) // 14:00 in Phoenix
	_, err := handler.Handle(context.Background(), cmd)
	assert.ErrorIs(t, err, pricing.ErrHouseRuleViolated)
}

func TestRequestBookingRequiresAdult(t *testing.T) {
	handler, _, _, _ := newRequestHandler(t)

	cmd := requestCommand()
	cmd.Adults = 0
	_, err := handler.Handle(context.Background(), cmd)
	assert.ErrorIs(t, err, reservation.ErrInvalidGuests)
}
