package booking

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"shorestay/internal/app/commands"
	"shorestay/internal/app/dto"
	"shorestay/internal/app/policies"
	domainreservation "shorestay/internal/domain/reservation"
)

const overrideStatusKey = "booking.override_status"

var ErrUnknownStatus = errors.New("booking: unknown target status")

type OverrideStatusCommand struct {
	ReservationID string
	Status        string
}

func (c OverrideStatusCommand) Key() string { return overrideStatusKey }

type OverrideStatusResult struct {
	Reservation dto.ReservationView `json:"reservation"`
}

// OverrideStatusHandler is the host/admin side-channel. Authorization happens
// outside this core; the handler still refuses an override to Confirmed that
// would double-book the listing.
type OverrideStatusHandler struct {
	Reservations domainreservation.Repository
	Events       policies.EventSink
	Logger       *slog.Logger
}

func (h *OverrideStatusHandler) Handle(ctx context.Context, cmd OverrideStatusCommand) (*OverrideStatusResult, error) {
	target := domainreservation.Status(cmd.Status)
	switch target {
	case domainreservation.StatusPending, domainreservation.StatusConfirmed, domainreservation.StatusCancelled:
	default:
		return nil, ErrUnknownStatus
	}

	res, err := h.Reservations.ByID(ctx, domainreservation.ReservationID(cmd.ReservationID))
	if err != nil {
		return nil, err
	}

	if target == domainreservation.StatusConfirmed {
		conflicts, err := h.Reservations.ConfirmedOverlapping(ctx, res.ListingID, res.Range)
		if err != nil {
			return nil, err
		}
		if hasOther(conflicts, res.ID) {
			return nil, domainreservation.ErrDatesConflict
		}
	}

	err = res.OverrideStatus(target, time.Now().UTC())
	if errors.Is(err, domainreservation.ErrAlreadyProcessed) {
		return &OverrideStatusResult{Reservation: dto.MapReservation(res)}, nil
	}
	if err != nil {
		return nil, err
	}
	if err := h.Reservations.Save(ctx, res); err != nil {
		return nil, err
	}
	publishEvents(ctx, h.Events, h.Logger, res)

	return &OverrideStatusResult{Reservation: dto.MapReservation(res)}, nil
}

var _ commands.Handler[OverrideStatusCommand, *OverrideStatusResult] = (*OverrideStatusHandler)(nil)
