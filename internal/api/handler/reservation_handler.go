package handler

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/sirpyerre/hotel-reservations/internal/core/domain"
	"github.com/sirpyerre/hotel-reservations/internal/core/ports"
)

const maxIdempotencyKeyLen = 128

// ReservationHandler handles HTTP requests for booking transactions.
type ReservationHandler struct {
	service ports.BookingService
}

func NewReservationHandler(service ports.BookingService) *ReservationHandler {
	return &ReservationHandler{service: service}
}

// Create handles POST /v1/reservations.
//
// @Summary      Reserve a room
// @Description  Availability is re-checked atomically with the insert; of two concurrent requests for overlapping dates at most one succeeds.
// @Tags         reservations
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        Idempotency-Key  header    string          false  "Retries with the same key return the first reservation"
// @Param        body             body      reserveRequest  true   "Reservation details"
// @Success      201              {object}  bookingResponse
// @Success      200              {object}  bookingResponse  "Idempotent replay"
// @Failure      400              {object}  errorResponse
// @Failure      404              {object}  errorResponse  "Unknown room"
// @Failure      409              {object}  errorResponse  "Room unavailable"
// @Failure      422              {object}  errorResponse  "Invalid dates, over capacity or reused Idempotency-Key"
// @Router       /v1/reservations [post]
func (h *ReservationHandler) Create(c echo.Context) error {
	_, clientID, err := ctxClaims(c)
	if err != nil {
		return err
	}

	var req reserveRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, errorResponse{Error: "invalid payload"})
	}
	if err := c.Validate(&req); err != nil {
		return echo.NewHTTPError(http.StatusUnprocessableEntity, err.Error())
	}

	idempotencyKey := c.Request().Header.Get("Idempotency-Key")
	if len(idempotencyKey) > maxIdempotencyKeyLen {
		return echo.NewHTTPError(http.StatusBadRequest, "Idempotency-Key is too long")
	}

	start, end, err := domain.ParseRange(req.DateStart, req.DateEnd)
	if err != nil {
		return err
	}

	result, err := h.service.Reserve(c.Request().Context(), ports.ReserveInput{
		ClientID:       clientID,
		RoomID:         domain.RoomID(req.RoomID),
		Start:          start,
		End:            end,
		Guests:         req.GuestCount,
		IdempotencyKey: idempotencyKey,
	})
	if result == nil {
		return err
	}

	if result.AlreadyExisted {
		resp := newBookingResponse(result.ReservationID, "confirmed")
		resp.Replayed = true
		return c.JSON(http.StatusOK, resp)
	}

	resp := newBookingResponse(result.ReservationID, "confirmed")
	if errors.Is(err, domain.ErrPersistence) {
		resp.Warning = persistenceWarning
	}
	c.Response().Header().Set(echo.HeaderLocation, reservationPath(result.ReservationID))
	return c.JSON(http.StatusCreated, resp)
}

// List handles GET /v1/reservations.
//
// @Summary      List reservations
// @Description  Clients get their own reservations. Admins get their own, or those of ?client_id=.
// @Tags         reservations
// @Produce      json
// @Security     BearerAuth
// @Param        client_id  query     int  false  "Client id (admin only)"
// @Success      200        {object}  reservationListResponse
// @Failure      401        {object}  errorResponse
// @Router       /v1/reservations [get]
func (h *ReservationHandler) List(c echo.Context) error {
	_, own, err := ctxClaims(c)
	if err != nil {
		return err
	}
	scope, err := ownerScope(c)
	if err != nil {
		return err
	}
	if scope == 0 {
		scope = own
	}

	return c.JSON(http.StatusOK, toReservationList(h.service.GetReservations(c.Request().Context(), scope)))
}

// Get handles GET /v1/reservations/:id.
//
// @Summary      Get a reservation
// @Tags         reservations
// @Produce      json
// @Security     BearerAuth
// @Param        id   path      int  true  "Reservation id"
// @Success      200  {object}  reservationResponse
// @Failure      404  {object}  errorResponse
// @Router       /v1/reservations/{id} [get]
func (h *ReservationHandler) Get(c echo.Context) error {
	id, err := parseReservationID(c)
	if err != nil {
		return err
	}
	scope, err := ownerScope(c)
	if err != nil {
		return err
	}

	r, err := h.service.GetReservation(c.Request().Context(), id, scope)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, toReservationResponse(r))
}

// Modify handles PATCH /v1/reservations/:id.
//
// @Summary      Change a reservation's dates or guest count
// @Description  The room and client stay the same. On success the reservation gets a new id; on failure the original is left unchanged.
// @Tags         reservations
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        id    path      int            true  "Reservation id"
// @Param        body  body      modifyRequest  true  "New dates and guest count"
// @Success      200   {object}  bookingResponse
// @Failure      404   {object}  errorResponse
// @Failure      409   {object}  errorResponse
// @Failure      422   {object}  errorResponse
// @Router       /v1/reservations/{id} [patch]
func (h *ReservationHandler) Modify(c echo.Context) error {
	id, err := parseReservationID(c)
	if err != nil {
		return err
	}
	scope, err := ownerScope(c)
	if err != nil {
		return err
	}

	var req modifyRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, errorResponse{Error: "invalid payload"})
	}
	if err := c.Validate(&req); err != nil {
		return echo.NewHTTPError(http.StatusUnprocessableEntity, err.Error())
	}

	start, end, err := domain.ParseRange(req.DateStart, req.DateEnd)
	if err != nil {
		return err
	}

	newID, err := h.service.Modify(c.Request().Context(), ports.ModifyInput{
		ReservationID: id,
		Start:         start,
		End:           end,
		Guests:        req.GuestCount,
		ClientID:      scope,
	})
	if newID == 0 {
		return err
	}

	resp := newBookingResponse(newID, "confirmed")
	resp.PreviousID = uint32(id)
	if errors.Is(err, domain.ErrPersistence) {
		resp.Warning = persistenceWarning
	}
	return c.JSON(http.StatusOK, resp)
}

// Cancel handles DELETE /v1/reservations/:id.
//
// @Summary      Cancel a reservation
// @Tags         reservations
// @Produce      json
// @Security     BearerAuth
// @Param        id   path      int  true  "Reservation id"
// @Success      200  {object}  bookingResponse
// @Failure      404  {object}  errorResponse
// @Router       /v1/reservations/{id} [delete]
func (h *ReservationHandler) Cancel(c echo.Context) error {
	id, err := parseReservationID(c)
	if err != nil {
		return err
	}
	scope, err := ownerScope(c)
	if err != nil {
		return err
	}

	cancelled, err := h.service.Cancel(c.Request().Context(), ports.CancelInput{
		ReservationID: id,
		ClientID:      scope,
	})
	if cancelled == 0 {
		return err
	}

	resp := newBookingResponse(cancelled, "cancelled")
	if errors.Is(err, domain.ErrPersistence) {
		resp.Warning = persistenceWarning
	}
	return c.JSON(http.StatusOK, resp)
}

// Snapshot handles POST /v1/admin/snapshot.
//
// @Summary      Write the full state to storage
// @Tags         admin
// @Produce      json
// @Security     BearerAuth
// @Success      200  {object}  snapshotResponse
// @Failure      403  {object}  errorResponse
// @Failure      500  {object}  errorResponse
// @Router       /v1/admin/snapshot [post]
func (h *ReservationHandler) Snapshot(c echo.Context) error {
	if err := h.service.Snapshot(c.Request().Context()); err != nil {
		return err
	}
	return c.JSON(http.StatusOK, snapshotResponse{Message: "snapshot written"})
}
