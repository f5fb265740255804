package reservation

import (
	"context"
	"errors"
	"time"

	"shorestay/internal/domain/listings"
	"shorestay/internal/domain/shared/daterange"
	"shorestay/internal/domain/shared/events"
	"shorestay/internal/domain/shared/money"
)

var (
	ErrInvalidGuests        = errors.New("reservation: at least one adult required")
	ErrInvalidOccupancy     = errors.New("reservation: occupancy counts must be non-negative")
	ErrContactRequired      = errors.New("reservation: guest name and phone required")
	ErrInvalidState         = errors.New("reservation: invalid state transition")
	ErrOrderAlreadyAttached = errors.New("reservation: a different payment order is already attached")
	ErrAlreadyProcessed     = errors.New("reservation: already in the requested state")
	ErrNotFound             = errors.New("reservation: not found")
	ErrConcurrentUpdate     = errors.New("reservation: concurrent update detected")
	ErrDuplicateTransaction = errors.New("reservation: transaction id already recorded")
	ErrDatesConflict        = errors.New("reservation: dates conflict with a confirmed stay")
)

type ReservationID string

type Status string

const (
	StatusPending   Status = "PENDING"
	StatusConfirmed Status = "CONFIRMED"
	StatusCancelled Status = "CANCELLED"
)

type PaymentStatus string

const (
	PaymentPending   PaymentStatus = "PENDING"
	PaymentCompleted PaymentStatus = "COMPLETED"
	PaymentFailed    PaymentStatus = "FAILED"
	PaymentRefunded  PaymentStatus = "REFUNDED"
)

// Occupancy counts who is staying. Adults must be at least one.
type Occupancy struct {
	Adults   int
	Children int
	Infants  int
	Pets     int
}

func (o Occupancy) Validate() error {
	if o.Adults < 1 {
		return ErrInvalidGuests
	}
	if o.Children < 0 || o.Infants < 0 || o.Pets < 0 {
		return ErrInvalidOccupancy
	}
	return nil
}

// Reservation is the booking record and its lifecycle state. All mutations go
// through the transition methods so the invariants stay enforceable in one
// place; repositories persist it with a version compare-and-set.
type Reservation struct {
	ID             ReservationID
	ListingID      listings.ListingID
	GuestID        string
	GuestName      string
	GuestPhone     string
	Occupancy      Occupancy
	Range          daterange.DateRange
	Nights         int
	Total          money.Money
	Status         Status
	PaymentStatus  PaymentStatus
	OrderID        string
	TransactionID  string
	PayerEmail     string
	CapturedAmount money.Money
	CreatedAt      time.Time
	UpdatedAt      time.Time
	Version        int64
	events.EventRecorder
}

type Repository interface {
	ByID(ctx context.Context, id ReservationID) (*Reservation, error)
	ByOrderID(ctx context.Context, orderID string) (*Reservation, error)
	ByTransactionID(ctx context.Context, transactionID string) (*Reservation, error)
	Save(ctx context.Context, r *Reservation) error
	ListByGuest(ctx context.Context, guestID string) ([]*Reservation, error)
	ListByListing(ctx context.Context, listingID listings.ListingID) ([]*Reservation, error)
	ConfirmedOverlapping(ctx context.Context, listingID listings.ListingID, dr daterange.DateRange) ([]*Reservation, error)
	StalePending(ctx context.Context, olderThan time.Time) ([]*Reservation, error)
}

type CreateParams struct {
	ID         ReservationID
	ListingID  listings.ListingID
	GuestID    string
	GuestName  string
	GuestPhone string
	Occupancy  Occupancy
	Range      daterange.DateRange
	Nights     int
	Total      money.Money
	CreatedAt  time.Time
}

func NewReservation(params CreateParams) (*Reservation, error) {
	if params.GuestID == "" {
		return nil, errors.New("reservation: guest id required")
	}
	if params.GuestName == "" || params.GuestPhone == "" {
		return nil, ErrContactRequired
	}
	if err := params.Occupancy.Validate(); err != nil {
		return nil, err
	}
	if err := params.Range.Validate(); err != nil {
		return nil, err
	}
	if params.Nights < 1 {
		return nil, errors.New("reservation: nights must be at least 1")
	}
	if !params.Total.IsPositive() {
		return nil, errors.New("reservation: total must be positive")
	}
	now := params.CreatedAt.UTC()
	r := &Reservation{
		ID:            params.ID,
		ListingID:     params.ListingID,
		GuestID:       params.GuestID,
		GuestName:     params.GuestName,
		GuestPhone:    params.GuestPhone,
		Occupancy:     params.Occupancy,
		Range:         params.Range,
		Nights:        params.Nights,
		Total:         params.Total,
		Status:        StatusPending,
		PaymentStatus: PaymentPending,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	r.Record(ReservationRequested{ReservationID: r.ID, ListingID: r.ListingID, GuestID: r.GuestID, Range: r.Range, Total: r.Total, At: now})
	return r, nil
}

// AttachOrder records the external payment order reference. Re-attaching the
// same order is a no-op; a conflicting id is rejected.
func (r *Reservation) AttachOrder(orderID string, now time.Time) error {
	if orderID == "" {
		return errors.New("reservation: order id required")
	}
	if r.OrderID == orderID {
		return nil
	}
	if r.Status != StatusPending {
		return ErrInvalidState
	}
	if r.OrderID != "" {
		return ErrOrderAlreadyAttached
	}
	r.OrderID = orderID
	r.UpdatedAt = now.UTC()
	r.Record(PaymentOrderAttached{ReservationID: r.ID, OrderID: orderID, At: r.UpdatedAt})
	return nil
}

// ConfirmPayment applies a captured payment. A second call with an already
// completed payment returns ErrAlreadyProcessed so callers can short-circuit
// duplicate webhook or redirect deliveries as success.
func (r *Reservation) ConfirmPayment(transactionID string, amount money.Money, payerEmail string, now time.Time) error {
	if transactionID == "" {
		return errors.New("reservation: transaction id required")
	}
	if r.PaymentStatus == PaymentCompleted {
		return ErrAlreadyProcessed
	}
	if r.Status != StatusPending || r.PaymentStatus != PaymentPending {
		return ErrInvalidState
	}
	r.Status = StatusConfirmed
	r.PaymentStatus = PaymentCompleted
	r.TransactionID = transactionID
	r.CapturedAmount = amount
	r.PayerEmail = payerEmail
	r.UpdatedAt = now.UTC()
	r.Record(ReservationConfirmed{ReservationID: r.ID, ListingID: r.ListingID, Range: r.Range, TransactionID: transactionID, Captured: amount, At: r.UpdatedAt})
	return nil
}

// Cancel abandons a pending reservation. Payment status is left untouched;
// a processor denial goes through MarkDenied instead.
func (r *Reservation) Cancel(reason string, now time.Time) error {
	if r.Status == StatusCancelled {
		return ErrAlreadyProcessed
	}
	if r.Status != StatusPending {
		return ErrInvalidState
	}
	r.Status = StatusCancelled
	r.UpdatedAt = now.UTC()
	r.Record(ReservationCancelled{ReservationID: r.ID, Reason: reason, At: r.UpdatedAt})
	return nil
}

// MarkDenied records a processor-denied payment: cancelled with payment failed.
func (r *Reservation) MarkDenied(now time.Time) error {
	if r.Status == StatusCancelled && r.PaymentStatus == PaymentFailed {
		return ErrAlreadyProcessed
	}
	if r.Status != StatusPending {
		return ErrInvalidState
	}
	r.Status = StatusCancelled
	r.PaymentStatus = PaymentFailed
	r.UpdatedAt = now.UTC()
	r.Record(ReservationCancelled{ReservationID: r.ID, Reason: "payment denied", At: r.UpdatedAt})
	return nil
}

// NotePaymentPending acknowledges a processor "payment pending" signal. Only a
// previously failed payment moves back to pending; a captured or refunded one
// never regresses.
func (r *Reservation) NotePaymentPending(now time.Time) error {
	if r.PaymentStatus == PaymentPending {
		return ErrAlreadyProcessed
	}
	if r.Status != StatusPending || r.PaymentStatus != PaymentFailed {
		return ErrInvalidState
	}
	r.PaymentStatus = PaymentPending
	r.UpdatedAt = now.UTC()
	return nil
}

// MarkRefunded flags a completed payment as refunded. Administrative only;
// the refund itself happens outside this core.
func (r *Reservation) MarkRefunded(now time.Time) error {
	if r.PaymentStatus == PaymentRefunded {
		return ErrAlreadyProcessed
	}
	if r.PaymentStatus != PaymentCompleted {
		return ErrInvalidState
	}
	r.PaymentStatus = PaymentRefunded
	r.UpdatedAt = now.UTC()
	r.Record(PaymentRefundedEvent{ReservationID: r.ID, TransactionID: r.TransactionID, At: r.UpdatedAt})
	return nil
}

// OverrideStatus is the host/admin side-channel. It bypasses payment coupling;
// the caller is responsible for the overlap invariant when moving to Confirmed.
func (r *Reservation) OverrideStatus(status Status, now time.Time) error {
	switch status {
	case StatusPending, StatusConfirmed, StatusCancelled:
	default:
		return ErrInvalidState
	}
	if r.Status == status {
		return ErrAlreadyProcessed
	}
	prev := r.Status
	r.Status = status
	r.UpdatedAt = now.UTC()
	r.Record(StatusOverridden{ReservationID: r.ID, From: prev, To: status, At: r.UpdatedAt})
	return nil
}
