package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/sirpyerre/hotel-reservations/internal/core/domain"
	"github.com/sirpyerre/hotel-reservations/internal/core/ports"
)

// RoomHandler serves the room catalog and availability queries.
type RoomHandler struct {
	service ports.BookingService
}

func NewRoomHandler(service ports.BookingService) *RoomHandler {
	return &RoomHandler{service: service}
}

// List handles GET /v1/rooms.
//
// @Summary      List all rooms
// @Tags         rooms
// @Produce      json
// @Security     BearerAuth
// @Success      200  {object}  roomListResponse
// @Failure      401  {object}  errorResponse
// @Router       /v1/rooms [get]
func (h *RoomHandler) List(c echo.Context) error {
	return c.JSON(http.StatusOK, toRoomList(h.service.ListRooms(c.Request().Context())))
}

// Available handles GET /v1/rooms/available.
//
// @Summary      Rooms free for a date range
// @Description  Returns, ordered by room id, every room with no reservation overlapping [start, end] that can host the requested number of guests. Both dates are inclusive.
// @Tags         rooms
// @Produce      json
// @Security     BearerAuth
// @Param        start   query     string  true   "First night (YYYY-MM-DD)"
// @Param        end     query     string  true   "Last night (YYYY-MM-DD)"
// @Param        guests  query     int     false  "Number of guests (default 1)"
// @Success      200     {object}  roomListResponse
// @Failure      400     {object}  errorResponse
// @Failure      422     {object}  errorResponse
// @Router       /v1/rooms/available [get]
func (h *RoomHandler) Available(c echo.Context) error {
	var q availableRoomsQuery
	if err := c.Bind(&q); err != nil {
		return c.JSON(http.StatusBadRequest, errorResponse{Error: "invalid query"})
	}
	if err := c.Validate(&q); err != nil {
		return echo.NewHTTPError(http.StatusUnprocessableEntity, err.Error())
	}

	start, end, err := domain.ParseRange(q.Start, q.End)
	if err != nil {
		return err
	}
	guests := q.Guests
	if guests == 0 {
		guests = 1
	}

	rooms, err := h.service.AvailableRooms(c.Request().Context(), ports.AvailabilityQuery{
		Start:  start,
		End:    end,
		Guests: guests,
	})
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, toRoomList(rooms))
}

// Availability handles GET /v1/rooms/:room_id/availability.
//
// @Summary      Is one room free for a date range
// @Description  Unknown rooms report available=false.
// @Tags         rooms
// @Produce      json
// @Security     BearerAuth
// @Param        room_id  path      int     true  "Room id"
// @Param        start    query     string  true  "First night (YYYY-MM-DD)"
// @Param        end      query     string  true  "Last night (YYYY-MM-DD)"
// @Success      200      {object}  roomAvailabilityResponse
// @Failure      400      {object}  errorResponse
// @Failure      422      {object}  errorResponse
// @Router       /v1/rooms/{room_id}/availability [get]
func (h *RoomHandler) Availability(c echo.Context) error {
	roomID, err := parseRoomID(c)
	if err != nil {
		return err
	}

	var q roomAvailabilityQuery
	if err := c.Bind(&q); err != nil {
		return c.JSON(http.StatusBadRequest, errorResponse{Error: "invalid query"})
	}
	if err := c.Validate(&q); err != nil {
		return echo.NewHTTPError(http.StatusUnprocessableEntity, err.Error())
	}

	start, end, err := domain.ParseRange(q.Start, q.End)
	if err != nil {
		return err
	}

	return c.JSON(http.StatusOK, roomAvailabilityResponse{
		RoomID:    uint32(roomID),
		DateStart: start.String(),
		DateEnd:   end.String(),
		Available: h.service.IsRoomAvailable(c.Request().Context(), roomID, start, end),
	})
}
