package listings

import (
	"context"
	"errors"
	"time"

	"shorestay/internal/domain/shared/money"
)

var (
	ErrListingNotFound = errors.New("listings: not found")
	ErrBadTimezone     = errors.New("listings: unknown timezone")
)

type ListingID string
type HostID string

// Listing is the read-only view the booking core needs: what a night costs
// and the local context house rules are evaluated in. Catalog management
// lives in a separate service.
type Listing struct {
	ID          ListingID
	Host        HostID
	Title       string
	Location    string
	NightlyRate money.Money
	Timezone    string
	HouseRules  HouseRules
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// HouseRules holds the local-time cutoffs for arrival and departure.
type HouseRules struct {
	CheckInAfter   TimeOfDay
	CheckOutBefore TimeOfDay
}

// TimeOfDay is minutes since local midnight.
type TimeOfDay int

var ErrBadTimeOfDay = errors.New("listings: time of day must be HH:MM")

// ParseTimeOfDay parses "15:00" style cutoffs.
func ParseTimeOfDay(s string) (TimeOfDay, error) {
	t, err := time.Parse("15:04", s)
	if err != nil {
		return 0, ErrBadTimeOfDay
	}
	return TimeOfDay(t.Hour()*60 + t.Minute()), nil
}

func (t TimeOfDay) String() string {
	return time.Date(0, 1, 1, int(t)/60, int(t)%60, 0, 0, time.UTC).Format("15:04")
}

// LoadLocation resolves the listing's fixed timezone.
func (l *Listing) LoadLocation() (*time.Location, error) {
	loc, err := time.LoadLocation(l.Timezone)
	if err != nil {
		return nil, ErrBadTimezone
	}
	return loc, nil
}

type Repository interface {
	ByID(ctx context.Context, id ListingID) (*Listing, error)
	Save(ctx context.Context, listing *Listing) error
}
