package domain

import (
	"errors"
	"fmt"
	"strings"

	"cloud.google.com/go/civil"
)

// DateLayout is the only date format accepted at the service boundary.
const DateLayout = "2006-01-02"

var (
	ErrInvalidDateRange     = errors.New("invalid date range")
	ErrInvalidDate          = errors.New("invalid date")
	ErrOverCapacity         = errors.New("guest count exceeds room capacity")
	ErrRoomUnavailable      = errors.New("room is not available for the requested dates")
	ErrReservationNotFound  = errors.New("reservation not found")
	ErrIdempotencyKeyReused = errors.New("idempotency key reused with a different request")
)

// ReservationID is assigned by the reservation store and never reused.
type ReservationID uint32

// Reservation is a confirmed booking of one room for an inclusive date range.
type Reservation struct {
	ID       ReservationID `json:"reservation_id"`
	ClientID ClientID      `json:"client_id"`
	RoomID   RoomID        `json:"room_id"`
	Start    civil.Date    `json:"date_start"`
	End      civil.Date    `json:"date_end"`
	Guests   uint8         `json:"guest_count"`
}

// Overlaps reports whether the reservation shares at least one night with
// [start, end].
func (r Reservation) Overlaps(start, end civil.Date) bool {
	return Overlaps(r.Start, r.End, start, end)
}

// Nights returns the length of the stay. A same-day reservation counts as one.
func (r Reservation) Nights() int {
	return r.End.DaysSince(r.Start) + 1
}

// Overlaps reports whether the inclusive ranges [aStart, aEnd] and
// [bStart, bEnd] share at least one calendar day. Touching boundaries overlap.
func Overlaps(aStart, aEnd, bStart, bEnd civil.Date) bool {
	return !aStart.After(bEnd) && !aEnd.Before(bStart)
}

// ValidateRange rejects ranges whose start falls after their end.
func ValidateRange(start, end civil.Date) error {
	if !start.IsValid() || !end.IsValid() {
		return ErrInvalidDate
	}
	if start.After(end) {
		return fmt.Errorf("%w: %s is after %s", ErrInvalidDateRange, start, end)
	}
	return nil
}

// ParseDate parses a YYYY-MM-DD string into a calendar date. Variable-width
// values such as "2025-3-1" are rejected.
func ParseDate(s string) (civil.Date, error) {
	s = strings.TrimSpace(s)
	if len(s) != len(DateLayout) {
		return civil.Date{}, fmt.Errorf("%w: %q", ErrInvalidDate, s)
	}
	d, err := civil.ParseDate(s)
	if err != nil || !d.IsValid() {
		return civil.Date{}, fmt.Errorf("%w: %q", ErrInvalidDate, s)
	}
	return d, nil
}

// ParseRange parses both ends of a range and validates their order.
func ParseRange(start, end string) (civil.Date, civil.Date, error) {
	s, err := ParseDate(start)
	if err != nil {
		return civil.Date{}, civil.Date{}, err
	}
	e, err := ParseDate(end)
	if err != nil {
		return civil.Date{}, civil.Date{}, err
	}
	if err := ValidateRange(s, e); err != nil {
		return civil.Date{}, civil.Date{}, err
	}
	return s, e, nil
}
