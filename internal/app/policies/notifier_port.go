package policies

import (
	"context"
	"time"

	"shorestay/internal/domain/shared/money"
)

// BookingConfirmation carries everything the confirmation message needs.
type BookingConfirmation struct {
	Recipient     string
	CC            string
	GuestName     string
	ListingTitle  string
	Location      string
	CheckIn       time.Time
	CheckOut      time.Time
	Total         money.Money
	TransactionID string
}

// Notifier delivers confirmation messages. Best-effort: implementations retry
// a bounded number of times and failures never reach the booking flow.
type Notifier interface {
	Send(ctx context.Context, note BookingConfirmation) error
}
