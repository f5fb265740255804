package booking

import (
	"context"
	"log/slog"

	"shorestay/internal/app/policies"
	domainlistings "shorestay/internal/domain/listings"
	domainreservation "shorestay/internal/domain/reservation"
)

// publishEvents drains the aggregate's pending events into the sink.
// Publishing is best-effort: the reservation mutation is already durable.
func publishEvents(ctx context.Context, sink policies.EventSink, logger *slog.Logger, res *domainreservation.Reservation) {
	evs := res.PendingEvents()
	res.ClearEvents()
	if sink == nil || len(evs) == 0 {
		return
	}
	if err := sink.Publish(ctx, evs); err != nil && logger != nil {
		logger.Warn("event publish failed", "reservation_id", res.ID, "count", len(evs), "error", err)
	}
}

// sendConfirmation builds and delivers the confirmation message. Failures are
// logged and never surfaced: notification must not roll back a capture.
func sendConfirmation(ctx context.Context, listingRepo domainlistings.Repository, notifier policies.Notifier, logger *slog.Logger, res *domainreservation.Reservation) {
	note := policies.BookingConfirmation{
		Recipient:     res.PayerEmail,
		GuestName:     res.GuestName,
		CheckIn:       res.Range.CheckIn,
		CheckOut:      res.Range.CheckOut,
		Total:         res.Total,
		TransactionID: res.TransactionID,
	}
	if listingRepo != nil {
		if listing, err := listingRepo.ByID(ctx, res.ListingID); err == nil {
			note.ListingTitle = listing.Title
			note.Location = listing.Location
		} else if logger != nil {
			logger.Warn("listing lookup for confirmation failed", "listing_id", res.ListingID, "error", err)
		}
	}
	if err := notifier.Send(ctx, note); err != nil && logger != nil {
		logger.Warn("confirmation notification failed", "reservation_id", res.ID, "error", err)
	}
}
