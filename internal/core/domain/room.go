package domain

import "errors"

var ErrUnknownRoom = errors.New("unknown room")

// RoomID identifies a room in the catalog.
type RoomID uint32

// Room is a bookable unit. Rooms are loaded once and never change while the
// process runs.
type Room struct {
	ID        RoomID `json:"room_id"`
	MaxGuests uint8  `json:"max_guests"`
}

// Fits reports whether the room can host the given number of guests.
func (r Room) Fits(guests uint8) bool {
	return guests <= r.MaxGuests
}
