package ports

import (
	"context"

	"github.com/sirpyerre/hotel-reservations/internal/core/domain"
)

// AuditRecorder persists booking events to an audit trail.
type AuditRecorder interface {
	Record(ctx context.Context, event domain.BookingEvent) error
}

// BookingEventPublisher hands committed booking events to the audit pipeline.
// Publish must not block the booking path for long.
type BookingEventPublisher interface {
	Publish(event domain.BookingEvent)
}

// IdempotencyStore remembers which reservation an Idempotency-Key produced.
type IdempotencyStore interface {
	Lookup(ctx context.Context, clientID domain.ClientID, key string) (domain.ReservationID, bool, error)
	Remember(ctx context.Context, clientID domain.ClientID, key string, id domain.ReservationID) error
}
