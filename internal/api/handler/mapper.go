package handler

import (
	"fmt"
	"time"

	"github.com/sirpyerre/hotel-reservations/internal/core/domain"
)

const persistenceWarning = "change is active but could not be saved to storage; it may be lost on restart"

func toRoomResponse(r domain.Room) roomResponse {
	return roomResponse{RoomID: uint32(r.ID), MaxGuests: r.MaxGuests}
}

func toRoomList(rooms []domain.Room) roomListResponse {
	out := make([]roomResponse, 0, len(rooms))
	for _, r := range rooms {
		out = append(out, toRoomResponse(r))
	}
	return roomListResponse{Rooms: out, Count: len(out)}
}

func toReservationResponse(r domain.Reservation) reservationResponse {
	return reservationResponse{
		ReservationID: uint32(r.ID),
		ClientID:      uint32(r.ClientID),
		RoomID:        uint32(r.RoomID),
		DateStart:     r.Start.String(),
		DateEnd:       r.End.String(),
		GuestCount:    r.Guests,
		Nights:        r.Nights(),
		Links: reservationLinks{
			Self: reservationPath(r.ID),
			Room: fmt.Sprintf("/v1/rooms/%d/availability", r.RoomID),
		},
	}
}

func toReservationList(rows []domain.Reservation) reservationListResponse {
	out := make([]reservationResponse, 0, len(rows))
	for _, r := range rows {
		out = append(out, toReservationResponse(r))
	}
	return reservationListResponse{Reservations: out, Count: len(out)}
}

func toClientResponse(c *domain.Client) *clientResponse {
	if c == nil {
		return nil
	}
	resp := &clientResponse{
		ClientID: uint32(c.ID),
		Email:    c.Email,
		Role:     c.Role,
	}
	if !c.CreatedAt.IsZero() {
		resp.CreatedAt = c.CreatedAt.UTC().Format(time.RFC3339)
	}
	return resp
}

func newBookingResponse(id domain.ReservationID, status string) bookingResponse {
	resp := bookingResponse{ReservationID: uint32(id), Status: status}
	if status != "cancelled" {
		resp.Links = &selfLink{Self: reservationPath(id)}
	}
	return resp
}

func reservationPath(id domain.ReservationID) string {
	return fmt.Sprintf("/v1/reservations/%d", id)
}
