package reservation_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"shorestay/internal/domain/listings"
	"shorestay/internal/domain/reservation"
	"shorestay/internal/domain/shared/daterange"
	"shorestay/internal/domain/shared/money"
)

var testNow = time.Date(2026, time.November, 1, 10, 0, 0, 0, time.UTC)

func newReservation(t *testing.T) *reservation.Reservation {
	t.Helper()
	dr, err := daterange.New(
		time.Date(2026, time.November, 20, 22, 0, 0, 0, time.UTC),
		time.Date(2026, time.November, 22, 18, 0, 0, 0, time.UTC),
	)
	require.NoError(t, err)
	res, err := reservation.NewReservation(reservation.CreateParams{
		ID:         "rsv-1",
		ListingID:  listings.ListingID("lst-1"),
		GuestID:    "gst-1",
		GuestName:  "Dana Whitfield",
		GuestPhone: "+1-555-0142",
		Occupancy:  reservation.Occupancy{Adults: 2, Children: 1},
		Range:      dr,
		Nights:     2,
		Total:      money.Must(37000, "USD"),
		CreatedAt:  testNow,
	})
	require.NoError(t, err)
	return res
}

func TestNewReservationStartsPending(t *testing.T) {
	res := newReservation(t)
	assert.Equal(t, reservation.StatusPending, res.Status)
	assert.Equal(t, reservation.PaymentPending, res.PaymentStatus)
	assert.Len(t, res.PendingEvents(), 1)
}

func TestNewReservationValidation(t *testing.T) {
	base := func() reservation.CreateParams {
		res := newReservation(t)
		return reservation.CreateParams{
			ID:         res.ID,
			ListingID:  res.ListingID,
			GuestID:    res.GuestID,
			GuestName:  res.GuestName,
			GuestPhone: res.GuestPhone,
			Occupancy:  res.Occupancy,
			Range:      res.Range,
			Nights:     res.Nights,
			Total:      res.Total,
			CreatedAt:  testNow,
		}
	}

	params := base()
	params.Occupancy.Adults = 0
	_, err := reservation.NewReservation(params)
	assert.ErrorIs(t, err, reservation.ErrInvalidGuests)

	params = base()
	params.Occupancy.Pets = -1
	_, err = reservation.NewReservation(params)
	assert.ErrorIs(t, err, reservation.ErrInvalidOccupancy)

	params = base()
	params.GuestPhone = ""
	_, err = reservation.NewReservation(params)
	assert.ErrorIs(t, err, reservation.ErrContactRequired)
}

func TestAttachOrder(t *testing.T) {
	res := newReservation(t)
	require.NoError(t, res.AttachOrder("ord-1", testNow))
	assert.Equal(t, "ord-1", res.OrderID)

	// re-attaching the same order is a no-op
	require.NoError(t, res.AttachOrder("ord-1", testNow))

	err := res.AttachOrder("ord-2", testNow)
	assert.ErrorIs(t, err, reservation.ErrOrderAlreadyAttached)
	assert.Equal(t, "ord-1", res.OrderID)
}

func TestConfirmPaymentIsIdempotent(t *testing.T) {
	res := newReservation(t)
	require.NoError(t, res.AttachOrder("ord-1", testNow))
	require.NoError(t, res.ConfirmPayment("txn-1", money.Must(37000, "USD"), "dana@example.com", testNow))

	assert.Equal(t, reservation.StatusConfirmed, res.Status)
	assert.Equal(t, reservation.PaymentCompleted, res.PaymentStatus)
	assert.Equal(t, "txn-1", res.TransactionID)

	err := res.ConfirmPayment("txn-1", money.Must(37000, "USD"), "dana@example.com", testNow)
	assert.ErrorIs(t, err, reservation.ErrAlreadyProcessed)
	assert.Equal(t, "txn-1", res.TransactionID)
}

func TestCancel(t *testing.T) {
	res := newReservation(t)
	require.NoError(t, res.Cancel("guest backed out", testNow))
	assert.Equal(t, reservation.StatusCancelled, res.Status)
	assert.Equal(t, reservation.PaymentPending, res.PaymentStatus)

	assert.ErrorIs(t, res.Cancel("again", testNow), reservation.ErrAlreadyProcessed)
}

func TestCancelConfirmedIsInvalid(t *testing.T) {
	res := newReservation(t)
	require.NoError(t, res.ConfirmPayment("txn-1", money.Must(37000, "USD"), "dana@example.com", testNow))
	assert.ErrorIs(t, res.Cancel("too late", testNow), reservation.ErrInvalidState)
}

func TestMarkDenied(t *testing.T) {
	res := newReservation(t)
	require.NoError(t, res.MarkDenied(testNow))
	assert.Equal(t, reservation.StatusCancelled, res.Status)
	assert.Equal(t, reservation.PaymentFailed, res.PaymentStatus)

	assert.ErrorIs(t, res.MarkDenied(testNow), reservation.ErrAlreadyProcessed)
}

func TestNotePaymentPendingOnlyRecoversFailures(t *testing.T) {
	res := newReservation(t)
	assert.ErrorIs(t, res.NotePaymentPending(testNow), reservation.ErrAlreadyProcessed)

	confirmed := newReservation(t)
	require.NoError(t, confirmed.ConfirmPayment("txn-1", money.Must(37000, "USD"), "dana@example.com", testNow))
	assert.ErrorIs(t, confirmed.NotePaymentPending(testNow), reservation.ErrInvalidState)
	assert.Equal(t, reservation.PaymentCompleted, confirmed.PaymentStatus)
}

func TestMarkRefunded(t *testing.T) {
	res := newReservation(t)
	assert.ErrorIs(t, res.MarkRefunded(testNow), reservation.ErrInvalidState)

	require.NoError(t, res.ConfirmPayment("txn-1", money.Must(37000, "USD"), "dana@example.com", testNow))
	require.NoError(t, res.MarkRefunded(testNow))
	assert.Equal(t, reservation.PaymentRefunded, res.PaymentStatus)
	assert.Equal(t, reservation.StatusConfirmed, res.Status)

	assert.ErrorIs(t, res.MarkRefunded(testNow), reservation.ErrAlreadyProcessed)
}

func TestOverrideStatus(t *testing.T) {
	res := newReservation(t)
	require.NoError(t, res.OverrideStatus(reservation.StatusConfirmed, testNow))
	assert.Equal(t, reservation.StatusConfirmed, res.Status)
	// payment state is not touched by the side-channel
	assert.Equal(t, reservation.PaymentPending, res.PaymentStatus)

	assert.ErrorIs(t, res.OverrideStatus(reservation.StatusConfirmed, testNow), reservation.ErrAlreadyProcessed)
	assert.ErrorIs(t, res.OverrideStatus(reservation.Status("DENIED"), testNow), reservation.ErrInvalidState)
}
