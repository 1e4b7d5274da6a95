package domain

import (
	"time"

	"cloud.google.com/go/civil"
)

// BookingAction names the mutation a BookingEvent describes.
type BookingAction string

const (
	ActionReserved  BookingAction = "reserved"
	ActionModified  BookingAction = "modified"
	ActionCancelled BookingAction = "cancelled"
)

// BookingEvent is the audit record of a committed booking transaction.
type BookingEvent struct {
	Action        BookingAction
	ReservationID ReservationID
	// PreviousID is set for modifications: the id the new reservation replaced.
	PreviousID ReservationID
	ClientID   ClientID
	RoomID     RoomID
	Start      civil.Date
	End        civil.Date
	Guests     uint8
	OccurredAt time.Time
}
