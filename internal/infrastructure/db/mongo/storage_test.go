package mongo

import (
	"errors"
	"testing"
	"time"

	"cloud.google.com/go/civil"

	"github.com/sirpyerre/hotel-reservations/internal/core/domain"
)

func TestReservationDoc_RoundTrip(t *testing.T) {
	r := domain.Reservation{
		ID:       42,
		ClientID: 7,
		RoomID:   3,
		Start:    civil.Date{Year: 2025, Month: time.March, Day: 1},
		End:      civil.Date{Year: 2025, Month: time.March, Day: 4},
		Guests:   2,
	}

	doc := newReservationDoc(r)
	if doc.DateStart != "2025-03-01" || doc.DateEnd != "2025-03-04" {
		t.Fatalf("expected ISO dates, got %q..%q", doc.DateStart, doc.DateEnd)
	}

	got, err := doc.toDomain()
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if got != r {
		t.Fatalf("expected %+v, got %+v", r, got)
	}
}

func TestReservationDoc_RejectsBadDocuments(t *testing.T) {
	valid := reservationDoc{ID: 1, ClientID: 1, RoomID: 1, DateStart: "2025-03-01", DateEnd: "2025-03-02", GuestCount: 1}

	tests := []struct {
		name   string
		mutate func(*reservationDoc)
	}{
		{"negative id", func(d *reservationDoc) { d.ID = -1 }},
		{"id overflow", func(d *reservationDoc) { d.RoomID = maxID + 1 }},
		{"guest overflow", func(d *reservationDoc) { d.GuestCount = 256 }},
		{"short date", func(d *reservationDoc) { d.DateStart = "2025-3-1" }},
		{"impossible date", func(d *reservationDoc) { d.DateEnd = "2025-02-30" }},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			d := valid
			tc.mutate(&d)
			if _, err := d.toDomain(); err == nil {
				t.Fatal("expected error, got nil")
			}
		})
	}
}

func TestRoomDoc_OutOfRangeCapacity(t *testing.T) {
	_, err := roomDoc{ID: 1, MaxGuests: 300}.toDomain()
	if !errors.Is(err, errOutOfRange) {
		t.Fatalf("expected errOutOfRange, got %v", err)
	}
}

func TestClientDoc_RoundTrip(t *testing.T) {
	c := domain.Client{
		ID:           5,
		Email:        "ana@example.com",
		PasswordHash: "hash",
		Role:         domain.RoleAdmin,
		CreatedAt:    time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC),
	}
	got, err := newClientDoc(c).toDomain()
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if got != c {
		t.Fatalf("expected %+v, got %+v", c, got)
	}
}

func TestEventDocument_PreviousIDOnlyForModifications(t *testing.T) {
	now := time.Now().UTC()
	doc := eventDocument(domain.BookingEvent{Action: domain.ActionReserved, ReservationID: 1}, now)
	if _, ok := doc["previous_id"]; ok {
		t.Fatal("expected no previous_id on a reservation event")
	}

	doc = eventDocument(domain.BookingEvent{Action: domain.ActionModified, ReservationID: 2, PreviousID: 1}, now)
	if doc["previous_id"] != int64(1) {
		t.Fatalf("expected previous_id 1, got %v", doc["previous_id"])
	}
}
