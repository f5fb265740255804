package reservation

import (
	"time"

	"shorestay/internal/domain/listings"
	"shorestay/internal/domain/shared/daterange"
	"shorestay/internal/domain/shared/money"
)

type ReservationRequested struct {
	ReservationID ReservationID
	ListingID     listings.ListingID
	GuestID       string
	Range         daterange.DateRange
	Total         money.Money
	At            time.Time
}

func (e ReservationRequested) EventName() string     { return "reservation.requested" }
func (e ReservationRequested) AggregateID() string   { return string(e.ReservationID) }
func (e ReservationRequested) OccurredAt() time.Time { return e.At }

type PaymentOrderAttached struct {
	ReservationID ReservationID
	OrderID       string
	At            time.Time
}

func (e PaymentOrderAttached) EventName() string     { return "reservation.order_attached" }
func (e PaymentOrderAttached) AggregateID() string   { return string(e.ReservationID) }
func (e PaymentOrderAttached) OccurredAt() time.Time { return e.At }

type ReservationConfirmed struct {
	ReservationID ReservationID
	ListingID     listings.ListingID
	Range         daterange.DateRange
	TransactionID string
	Captured      money.Money
	At            time.Time
}

func (e ReservationConfirmed) EventName() string     { return "reservation.confirmed" }
func (e ReservationConfirmed) AggregateID() string   { return string(e.ReservationID) }
func (e ReservationConfirmed) OccurredAt() time.Time { return e.At }

type ReservationCancelled struct {
	ReservationID ReservationID
	Reason        string
	At            time.Time
}

func (e ReservationCancelled) EventName() string     { return "reservation.cancelled" }
func (e ReservationCancelled) AggregateID() string   { return string(e.ReservationID) }
func (e ReservationCancelled) OccurredAt() time.Time { return e.At }

type PaymentRefundedEvent struct {
	ReservationID ReservationID
	TransactionID string
	At            time.Time
}

func (e PaymentRefundedEvent) EventName() string     { return "reservation.payment_refunded" }
func (e PaymentRefundedEvent) AggregateID() string   { return string(e.ReservationID) }
func (e PaymentRefundedEvent) OccurredAt() time.Time { return e.At }

type StatusOverridden struct {
	ReservationID ReservationID
	From          Status
	To            Status
	At            time.Time
}

func (e StatusOverridden) EventName() string     { return "reservation.status_overridden" }
func (e StatusOverridden) AggregateID() string   { return string(e.ReservationID) }
func (e StatusOverridden) OccurredAt() time.Time { return e.At }
