package domain

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrPersistence wraps a failed durability write. The in-memory change it
	// describes has already been applied.
	ErrPersistence = errors.New("persistence failure")
	// ErrCorruptData is returned when persisted data cannot be loaded as-is.
	ErrCorruptData = errors.New("corrupt persisted data")
)

// Dataset is everything the service persists.
type Dataset struct {
	Rooms        []Room
	Clients      []Client
	Reservations []Reservation
	// LastReservationID is the highest reservation id ever issued, including
	// ids of cancelled reservations.
	LastReservationID ReservationID
	LastClientID      ClientID
}

// Validate checks a freshly loaded dataset against the booking rules.
// Any violation is reported as ErrCorruptData; the caller must not start
// serving with such a dataset. The id high-water marks are raised to the
// largest ids present.
func (d *Dataset) Validate() error {
	rooms := make(map[RoomID]Room, len(d.Rooms))
	for _, r := range d.Rooms {
		if _, dup := rooms[r.ID]; dup {
			return fmt.Errorf("%w: duplicate room %d", ErrCorruptData, r.ID)
		}
		if r.MaxGuests == 0 {
			return fmt.Errorf("%w: room %d has no capacity", ErrCorruptData, r.ID)
		}
		rooms[r.ID] = r
	}

	emails := make(map[string]struct{}, len(d.Clients))
	clients := make(map[ClientID]struct{}, len(d.Clients))
	for _, c := range d.Clients {
		if _, dup := clients[c.ID]; dup {
			return fmt.Errorf("%w: duplicate client %d", ErrCorruptData, c.ID)
		}
		key := strings.ToLower(c.Email)
		if _, dup := emails[key]; dup {
			return fmt.Errorf("%w: duplicate client email %q", ErrCorruptData, c.Email)
		}
		if c.ID > d.LastClientID {
			d.LastClientID = c.ID
		}
		clients[c.ID] = struct{}{}
		emails[key] = struct{}{}
	}

	seen := make(map[ReservationID]struct{}, len(d.Reservations))
	byRoom := make(map[RoomID][]Reservation)
	for _, res := range d.Reservations {
		if _, dup := seen[res.ID]; dup {
			return fmt.Errorf("%w: duplicate reservation %d", ErrCorruptData, res.ID)
		}
		seen[res.ID] = struct{}{}

		room, ok := rooms[res.RoomID]
		if !ok {
			return fmt.Errorf("%w: reservation %d references unknown room %d", ErrCorruptData, res.ID, res.RoomID)
		}
		if err := ValidateRange(res.Start, res.End); err != nil {
			return fmt.Errorf("%w: reservation %d: %v", ErrCorruptData, res.ID, err)
		}
		if !room.Fits(res.Guests) {
			return fmt.Errorf("%w: reservation %d has %d guests, room %d holds %d",
				ErrCorruptData, res.ID, res.Guests, room.ID, room.MaxGuests)
		}
		for _, other := range byRoom[res.RoomID] {
			if other.Overlaps(res.Start, res.End) {
				return fmt.Errorf("%w: reservations %d and %d overlap in room %d",
					ErrCorruptData, other.ID, res.ID, res.RoomID)
			}
		}
		byRoom[res.RoomID] = append(byRoom[res.RoomID], res)

		if res.ID > d.LastReservationID {
			d.LastReservationID = res.ID
		}
	}
	return nil
}
