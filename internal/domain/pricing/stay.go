package pricing

import (
	"errors"
	"time"

	"shorestay/internal/domain/listings"
	"shorestay/internal/domain/shared/daterange"
	"shorestay/internal/domain/shared/money"
)

var (
	ErrInvalidDateRange  = errors.New("pricing: checkout must be after checkin")
	ErrHouseRuleViolated = errors.New("pricing: stay violates house rule cutoffs")
	ErrInvalidRate       = errors.New("pricing: nightly rate must be positive")
)

// StayQuote is the priced outcome of a proposed stay.
type StayQuote struct {
	Nights int
	Total  money.Money
}

// ComputeStay prices a stay and enforces house-rule cutoffs in the listing's
// local timezone. Pure: no clock reads, no I/O.
//
// Nights round partial days up; the total is nightly rate times nights with
// no further rounding.
func ComputeStay(nightlyRate money.Money, checkIn, checkOut time.Time, loc *time.Location, rules listings.HouseRules) (StayQuote, error) {
	if !nightlyRate.IsPositive() {
		return StayQuote{}, ErrInvalidRate
	}
	dr, err := daterange.New(checkIn, checkOut)
	if err != nil {
		return StayQuote{}, ErrInvalidDateRange
	}
	if loc == nil {
		loc = time.UTC
	}
	if minutesOfDay(checkIn.In(loc)) < int(rules.CheckInAfter) {
		return StayQuote{}, ErrHouseRuleViolated
	}
	if minutesOfDay(checkOut.In(loc)) > int(rules.CheckOutBefore) {
		return StayQuote{}, ErrHouseRuleViolated
	}
	nights := dr.Nights()
	return StayQuote{
		Nights: nights,
		Total:  nightlyRate.Multiply(int64(nights)),
	}, nil
}

func minutesOfDay(t time.Time) int {
	return t.Hour()*60 + t.Minute()
}
