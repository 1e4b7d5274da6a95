package ports

import (
	"context"

	"cloud.google.com/go/civil"

	"github.com/sirpyerre/hotel-reservations/internal/core/domain"
)

// AvailabilityQuery asks for rooms free over [Start, End] for Guests people.
type AvailabilityQuery struct {
	Start  civil.Date
	End    civil.Date
	Guests uint8
}

// ReserveInput carries everything needed to book a room.
type ReserveInput struct {
	ClientID domain.ClientID
	RoomID   domain.RoomID
	Start    civil.Date
	End      civil.Date
	Guests   uint8
	// IdempotencyKey, when set, makes retries of the same request return the
	// reservation created by the first attempt.
	IdempotencyKey string
}

// ModifyInput replaces the dates and guest count of a reservation.
type ModifyInput struct {
	ReservationID domain.ReservationID
	Start         civil.Date
	End           civil.Date
	Guests        uint8
	// ClientID scopes the lookup to the owner's reservations. Zero = no filter (admin).
	ClientID domain.ClientID
}

// CancelInput identifies the reservation to cancel.
type CancelInput struct {
	ReservationID domain.ReservationID
	// ClientID scopes the lookup to the owner's reservations. Zero = no filter (admin).
	ClientID domain.ClientID
}

// ReserveResult is returned after a reservation was created.
type ReserveResult struct {
	ReservationID domain.ReservationID
	// AlreadyExisted is true when the idempotency key matched an earlier reservation.
	AlreadyExisted bool
}

// BookingService is the operation set of the booking core.
//
// Mutating operations may return an error wrapping domain.ErrPersistence
// together with a valid id: the change is live but was not durably recorded.
type BookingService interface {
	ListRooms(ctx context.Context) []domain.Room
	AvailableRooms(ctx context.Context, q AvailabilityQuery) ([]domain.Room, error)
	IsRoomAvailable(ctx context.Context, roomID domain.RoomID, start, end civil.Date) bool

	Reserve(ctx context.Context, in ReserveInput) (*ReserveResult, error)
	Modify(ctx context.Context, in ModifyInput) (domain.ReservationID, error)
	Cancel(ctx context.Context, in CancelInput) (domain.ReservationID, error)

	GetReservations(ctx context.Context, clientID domain.ClientID) []domain.Reservation
	GetReservation(ctx context.Context, id domain.ReservationID, clientID domain.ClientID) (domain.Reservation, error)

	// Snapshot writes the full current state to storage.
	Snapshot(ctx context.Context) error
}
