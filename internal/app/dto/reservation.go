package dto

import (
	"time"

	domainreservation "shorestay/internal/domain/reservation"
	"shorestay/internal/domain/shared/money"
)

type MoneyDTO struct {
	Amount   int64  `json:"amount"`
	Currency string `json:"currency"`
}

type OccupancyDTO struct {
	Adults   int `json:"adults"`
	Children int `json:"children"`
	Infants  int `json:"infants"`
	Pets     int `json:"pets"`
}

type ReservationView struct {
	ID             string       `json:"id"`
	ListingID      string       `json:"listing_id"`
	GuestID        string       `json:"guest_id"`
	GuestName      string       `json:"guest_name"`
	GuestPhone     string       `json:"guest_phone"`
	Occupancy      OccupancyDTO `json:"occupancy"`
	CheckIn        time.Time    `json:"check_in"`
	CheckOut       time.Time    `json:"check_out"`
	Nights         int          `json:"nights"`
	Total          MoneyDTO     `json:"total"`
	Status         string       `json:"status"`
	PaymentStatus  string       `json:"payment_status"`
	OrderID        string       `json:"order_id,omitempty"`
	TransactionID  string       `json:"transaction_id,omitempty"`
	PayerEmail     string       `json:"payer_email,omitempty"`
	CapturedAmount *MoneyDTO    `json:"captured_amount,omitempty"`
	CreatedAt      time.Time    `json:"created_at"`
	UpdatedAt      time.Time    `json:"updated_at"`
}

type ReservationCollection struct {
	Items []ReservationView `json:"items"`
}

func MapMoney(value money.Money) MoneyDTO {
	return MoneyDTO{
		Amount:   value.Amount,
		Currency: value.Currency,
	}
}

func MapReservation(r *domainreservation.Reservation) ReservationView {
	view := ReservationView{
		ID:         string(r.ID),
		ListingID:  string(r.ListingID),
		GuestID:    r.GuestID,
		GuestName:  r.GuestName,
		GuestPhone: r.GuestPhone,
		Occupancy: OccupancyDTO{
			Adults:   r.Occupancy.Adults,
			Children: r.Occupancy.Children,
			Infants:  r.Occupancy.Infants,
			Pets:     r.Occupancy.Pets,
		},
		CheckIn:       r.Range.CheckIn,
		CheckOut:      r.Range.CheckOut,
		Nights:        r.Nights,
		Total:         MapMoney(r.Total),
		Status:        string(r.Status),
		PaymentStatus: string(r.PaymentStatus),
		OrderID:       r.OrderID,
		TransactionID: r.TransactionID,
		PayerEmail:    r.PayerEmail,
		CreatedAt:     r.CreatedAt,
		UpdatedAt:     r.UpdatedAt,
	}
	if !r.CapturedAmount.IsZero() {
		captured := MapMoney(r.CapturedAmount)
		view.CapturedAmount = &captured
	}
	return view
}

func MapReservations(items []*domainreservation.Reservation) ReservationCollection {
	out := ReservationCollection{Items: make([]ReservationView, 0, len(items))}
	for _, r := range items {
		out.Items = append(out.Items, MapReservation(r))
	}
	return out
}
