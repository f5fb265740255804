package booking_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"shorestay/internal/app/policies"
	"shorestay/internal/domain/listings"
	"shorestay/internal/domain/reservation"
	"shorestay/internal/domain/shared/daterange"
	"shorestay/internal/domain/shared/events"
	"shorestay/internal/domain/shared/money"
	"shorestay/internal/infra/storage/memory"
)

type fakeGateway struct {
	mu           sync.Mutex
	createErr    error
	captureErr   error
	capture      policies.Capture
	orders       int
	cancelled    []string
	lastOrderRef policies.OrderRef
}

func (g *fakeGateway) CreateOrder(ctx context.Context, amount money.Money, referenceID, returnURL, cancelURL string) (policies.OrderRef, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.createErr != nil {
		return policies.OrderRef{}, g.createErr
	}
	g.orders++
	g.lastOrderRef = policies.OrderRef{OrderID: "ord-1", ApprovalLink: "https://processor/approve/ord-1"}
	return g.lastOrderRef, nil
}

func (g *fakeGateway) CaptureOrder(ctx context.Context, orderID string) (policies.Capture, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.captureErr != nil {
		return policies.Capture{}, g.captureErr
	}
	if g.capture.TransactionID == "" {
		g.capture = policies.Capture{
			TransactionID: "txn-1",
			Amount:        money.Must(37000, "USD"),
			PayerEmail:    "dana@example.com",
		}
	}
	return g.capture, nil
}

func (g *fakeGateway) CancelOrder(ctx context.Context, orderID string) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.cancelled = append(g.cancelled, orderID)
	return nil
}

func (g *fakeGateway) cancelledOrders() []string {
	g.mu.Lock()
	defer g.mu.Unlock()
	return append([]string(nil), g.cancelled...)
}

type recordSink struct {
	mu    sync.Mutex
	names []string
}

func (s *recordSink) Publish(ctx context.Context, batch []events.DomainEvent) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, event := range batch {
		s.names = append(s.names, event.EventName())
	}
	return nil
}

func (s *recordSink) published() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.names...)
}

type chanNotifier struct {
	ch chan policies.BookingConfirmation
}

func newChanNotifier() *chanNotifier {
	return &chanNotifier{ch: make(chan policies.BookingConfirmation, 4)}
}

func (n *chanNotifier) Send(ctx context.Context, note policies.BookingConfirmation) error {
	n.ch <- note
	return nil
}

func (n *chanNotifier) wait(t *testing.T) policies.BookingConfirmation {
	t.Helper()
	select {
	case note := <-n.ch:
		return note
	case <-time.After(2 * time.Second):
		t.Fatal("no confirmation notification arrived")
		return policies.BookingConfirmation{}
	}
}

func seedListing(t *testing.T, repo *memory.ListingRepository) *listings.Listing {
	t.Helper()
	checkInAfter, err := listings.ParseTimeOfDay("15:00")
	require.NoError(t, err)
	checkOutBefore, err := listings.ParseTimeOfDay("11:00")
	require.NoError(t, err)
	listing := &listings.Listing{
		ID:          "lst-1",
		Host:        "hst-1",
		Title:       "Desert Casita with Pool",
		Location:    "Scottsdale, AZ",
		NightlyRate: money.Must(18500, "USD"),
		Timezone:    "America/Phoenix",
		HouseRules: listings.HouseRules{
			CheckInAfter:   checkInAfter,
			CheckOutBefore: checkOutBefore,
		},
		CreatedAt: time.Now().UTC(),
		UpdatedAt: time.Now().UTC(),
	}
	require.NoError(t, repo.Save(context.Background(), listing))
	return listing
}

// 15:00 and 11:00 in Phoenix respectively.
var (
	stayCheckIn  = time.Date(2026, time.November, 20, 22, 0, 0, 0, time.UTC)
	stayCheckOut = time.Date(2026, time.November, 22, 18, 0, 0, 0, time.UTC)
)

func seedPendingWithOrder(t *testing.T, repo *memory.ReservationRepository, id, orderID string, checkIn, checkOut time.Time) *reservation.Reservation {
	t.Helper()
	dr, err := daterange.New(checkIn, checkOut)
	require.NoError(t, err)
	res, err := reservation.NewReservation(reservation.CreateParams{
		ID:         reservation.ReservationID(id),
		ListingID:  "lst-1",
		GuestID:    "gst-1",
		GuestName:  "Dana Whitfield",
		GuestPhone: "+1-555-0142",
		Occupancy:  reservation.Occupancy{Adults: 2},
		Range:      dr,
		Nights:     dr.Nights(),
		Total:      money.Must(37000, "USD"),
		CreatedAt:  time.Now().UTC(),
	})
	require.NoError(t, err)
	if orderID != "" {
		require.NoError(t, res.AttachOrder(orderID, time.Now().UTC()))
	}
	require.NoError(t, repo.Save(context.Background(), res))
	res.ClearEvents()
	return res
}
