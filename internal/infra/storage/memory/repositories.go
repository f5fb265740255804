package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	domainlistings "shorestay/internal/domain/listings"
	domainreservation "shorestay/internal/domain/reservation"
	"shorestay/internal/domain/shared/daterange"
	"shorestay/internal/domain/shared/events"
)

// ListingRepository is an in-memory implementation for tests and local runs.
type ListingRepository struct {
	mu    sync.RWMutex
	items map[domainlistings.ListingID]*domainlistings.Listing
}

// NewListingRepository builds an empty repository.
func NewListingRepository() *ListingRepository {
	return &ListingRepository{
		items: make(map[domainlistings.ListingID]*domainlistings.Listing),
	}
}

// ByID returns a listing or listings.ErrListingNotFound.
func (r *ListingRepository) ByID(ctx context.Context, id domainlistings.ListingID) (*domainlistings.Listing, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	listing, ok := r.items[id]
	if !ok {
		return nil, domainlistings.ErrListingNotFound
	}
	copied := *listing
	return &copied, nil
}

// Save stores/updates a listing entry.
func (r *ListingRepository) Save(ctx context.Context, listing *domainlistings.Listing) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	copied := *listing
	r.items[listing.ID] = &copied
	return nil
}

// ReservationRepository keeps reservations in memory with the same version
// compare-and-set discipline the mongo repository enforces, so concurrency
// tests exercise the real contract.
type ReservationRepository struct {
	mu    sync.Mutex
	items map[domainreservation.ReservationID]*domainreservation.Reservation
}

func NewReservationRepository() *ReservationRepository {
	return &ReservationRepository{
		items: make(map[domainreservation.ReservationID]*domainreservation.Reservation),
	}
}

func (r *ReservationRepository) ByID(ctx context.Context, id domainreservation.ReservationID) (*domainreservation.Reservation, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	stored, ok := r.items[id]
	if !ok {
		return nil, domainreservation.ErrNotFound
	}
	return snapshot(stored), nil
}

func (r *ReservationRepository) ByOrderID(ctx context.Context, orderID string) (*domainreservation.Reservation, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if orderID == "" {
		return nil, domainreservation.ErrNotFound
	}
	for _, stored := range r.items {
		if stored.OrderID == orderID {
			return snapshot(stored), nil
		}
	}
	return nil, domainreservation.ErrNotFound
}

func (r *ReservationRepository) ByTransactionID(ctx context.Context, transactionID string) (*domainreservation.Reservation, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if transactionID == "" {
		return nil, domainreservation.ErrNotFound
	}
	for _, stored := range r.items {
		if stored.TransactionID == transactionID {
			return snapshot(stored), nil
		}
	}
	return nil, domainreservation.ErrNotFound
}

// Save persists the reservation if its version still matches the stored one;
// otherwise reservation.ErrConcurrentUpdate. Transaction ids are unique
// across all stored reservations.
func (r *ReservationRepository) Save(ctx context.Context, res *domainreservation.Reservation) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	stored, exists := r.items[res.ID]
	if exists && stored.Version != res.Version {
		return domainreservation.ErrConcurrentUpdate
	}
	if res.TransactionID != "" {
		for id, other := range r.items {
			if id != res.ID && other.TransactionID == res.TransactionID {
				return domainreservation.ErrDuplicateTransaction
			}
		}
	}
	copied := *res
	copied.Version = res.Version + 1
	copied.EventRecorder = events.EventRecorder{}
	r.items[res.ID] = &copied
	res.Version = copied.Version
	return nil
}

func (r *ReservationRepository) ListByGuest(ctx context.Context, guestID string) ([]*domainreservation.Reservation, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]*domainreservation.Reservation, 0)
	for _, stored := range r.items {
		if stored.GuestID == guestID {
			out = append(out, snapshot(stored))
		}
	}
	sortByCreation(out)
	return out, nil
}

func (r *ReservationRepository) ListByListing(ctx context.Context, listingID domainlistings.ListingID) ([]*domainreservation.Reservation, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]*domainreservation.Reservation, 0)
	for _, stored := range r.items {
		if stored.ListingID == listingID {
			out = append(out, snapshot(stored))
		}
	}
	sortByCreation(out)
	return out, nil
}

func (r *ReservationRepository) ConfirmedOverlapping(ctx context.Context, listingID domainlistings.ListingID, dr daterange.DateRange) ([]*domainreservation.Reservation, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]*domainreservation.Reservation, 0)
	for _, stored := range r.items {
		if stored.ListingID != listingID || stored.Status != domainreservation.StatusConfirmed {
			continue
		}
		if stored.Range.Overlaps(dr) {
			out = append(out, snapshot(stored))
		}
	}
	sortByCreation(out)
	return out, nil
}

func (r *ReservationRepository) StalePending(ctx context.Context, olderThan time.Time) ([]*domainreservation.Reservation, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]*domainreservation.Reservation, 0)
	for _, stored := range r.items {
		if stored.Status != domainreservation.StatusPending {
			continue
		}
		if stored.CreatedAt.Before(olderThan) {
			out = append(out, snapshot(stored))
		}
	}
	sortByCreation(out)
	return out, nil
}

func snapshot(stored *domainreservation.Reservation) *domainreservation.Reservation {
	copied := *stored
	copied.EventRecorder = events.EventRecorder{}
	return &copied
}

func sortByCreation(items []*domainreservation.Reservation) {
	sort.Slice(items, func(i, j int) bool {
		if items[i].CreatedAt.Equal(items[j].CreatedAt) {
			return items[i].ID < items[j].ID
		}
		return items[i].CreatedAt.Before(items[j].CreatedAt)
	})
}

var _ domainreservation.Repository = (*ReservationRepository)(nil)
var _ domainlistings.Repository = (*ListingRepository)(nil)
