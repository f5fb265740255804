package sweeper

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"shorestay/internal/app/policies"
	domainreservation "shorestay/internal/domain/reservation"
)

var ErrNotConfigured = errors.New("sweeper: missing dependencies")

// Sweeper cancels reservations stuck in the pending state, reclaiming dates
// held by payers who abandoned the approval flow.
type Sweeper struct {
	Reservations domainreservation.Repository
	Gateway      policies.PaymentGateway
	Events       policies.EventSink
	Logger       *slog.Logger
	Interval     time.Duration
	TTL          time.Duration
}

func (s *Sweeper) Run(ctx context.Context) error {
	if s.Reservations == nil {
		return ErrNotConfigured
	}
	ticker := time.NewTicker(s.interval())
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			if err := s.sweepOnce(ctx); err != nil {
				return err
			}
		}
	}
}

func (s *Sweeper) sweepOnce(ctx context.Context) error {
	stale, err := s.Reservations.StalePending(ctx, time.Now().Add(-s.ttl()))
	if err != nil {
		if s.Logger != nil {
			s.Logger.Warn("stale pending lookup failed", "error", err)
		}
		return nil
	}
	for _, res := range stale {
		s.expire(ctx, res)
	}
	return nil
}

func (s *Sweeper) expire(ctx context.Context, res *domainreservation.Reservation) {
	if err := res.Cancel("payment approval expired", time.Now()); err != nil {
		return
	}
	if err := s.Reservations.Save(ctx, res); err != nil {
		// someone else transitioned it first; it is no longer stale
		if !errors.Is(err, domainreservation.ErrConcurrentUpdate) && s.Logger != nil {
			s.Logger.Warn("expire save failed", "reservation_id", res.ID, "error", err)
		}
		return
	}
	if s.Logger != nil {
		s.Logger.Info("pending reservation expired", "reservation_id", res.ID, "order_id", res.OrderID)
	}
	if s.Events != nil {
		evs := res.PendingEvents()
		res.ClearEvents()
		if len(evs) > 0 {
			if err := s.Events.Publish(ctx, evs); err != nil && s.Logger != nil {
				s.Logger.Warn("event publish failed", "reservation_id", res.ID, "error", err)
			}
		}
	}
	if s.Gateway != nil && res.OrderID != "" {
		if err := s.Gateway.CancelOrder(ctx, res.OrderID); err != nil && s.Logger != nil {
			s.Logger.Warn("order void failed", "order_id", res.OrderID, "error", err)
		}
	}
}

func (s *Sweeper) interval() time.Duration {
	if s.Interval <= 0 {
		return time.Minute
	}
	return s.Interval
}

func (s *Sweeper) ttl() time.Duration {
	if s.TTL <= 0 {
		return 30 * time.Minute
	}
	return s.TTL
}
