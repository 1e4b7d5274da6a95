package ports

import (
	"context"

	"github.com/sirpyerre/hotel-reservations/internal/core/domain"
)

// ReservationJournal durably records individual reservation mutations.
type ReservationJournal interface {
	SaveReservation(ctx context.Context, r domain.Reservation) error
	// DeleteReservation removes a reservation row. lastIssued is the current
	// id high-water mark, persisted so ids are not reused after a restart.
	DeleteReservation(ctx context.Context, id domain.ReservationID, lastIssued domain.ReservationID) error
}

// ClientJournal durably records newly registered clients.
type ClientJournal interface {
	SaveClient(ctx context.Context, c domain.Client) error
}

// Storage is the persistence collaborator of the booking core.
type Storage interface {
	ReservationJournal
	ClientJournal

	// Load returns the persisted dataset. Rows that cannot be parsed are a
	// fatal error wrapping domain.ErrCorruptData.
	Load(ctx context.Context) (*domain.Dataset, error)
	// Snapshot replaces the persisted state with d.
	Snapshot(ctx context.Context, d *domain.Dataset) error
}
