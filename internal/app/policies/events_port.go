package policies

import (
	"context"

	"shorestay/internal/domain/shared/events"
)

// EventSink publishes domain events to the message broker. Publishing is
// best-effort from the booking flow's perspective; a broker outage never
// fails a reservation mutation.
type EventSink interface {
	Publish(ctx context.Context, evs []events.DomainEvent) error
}
