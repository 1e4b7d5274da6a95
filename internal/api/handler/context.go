package handler

import (
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"

	"github.com/sirpyerre/hotel-reservations/internal/core/domain"
)

// ctxClaims extracts the auth claims injected by the Auth middleware. Every
// token carries a client id, admins included.
func ctxClaims(c echo.Context) (role string, clientID domain.ClientID, err error) {
	role, _ = c.Get("role").(string)
	if role == "" {
		return "", 0, echo.NewHTTPError(http.StatusUnauthorized, "missing authentication claims")
	}

	clientID, _ = c.Get("client_id").(domain.ClientID)
	if clientID == 0 {
		return "", 0, echo.NewHTTPError(http.StatusUnauthorized, "token missing client identity")
	}

	return role, clientID, nil
}

// ownerScope returns the client id reservation lookups are restricted to.
// Clients only see their own reservations. Admins see everything (zero), or
// the reservations of the client named by ?client_id=.
func ownerScope(c echo.Context) (domain.ClientID, error) {
	role, clientID, err := ctxClaims(c)
	if err != nil {
		return 0, err
	}
	if role != domain.RoleAdmin {
		return clientID, nil
	}

	q := c.QueryParam("client_id")
	if q == "" {
		return 0, nil
	}
	id, err := strconv.ParseUint(q, 10, 32)
	if err != nil || id == 0 {
		return 0, echo.NewHTTPError(http.StatusBadRequest, "client_id must be a positive integer")
	}
	return domain.ClientID(id), nil
}

func parseReservationID(c echo.Context) (domain.ReservationID, error) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil || id == 0 {
		return 0, echo.NewHTTPError(http.StatusBadRequest, "reservation id must be a positive integer")
	}
	return domain.ReservationID(id), nil
}

func parseRoomID(c echo.Context) (domain.RoomID, error) {
	id, err := strconv.ParseUint(c.Param("room_id"), 10, 32)
	if err != nil {
		return 0, echo.NewHTTPError(http.StatusBadRequest, "room id must be a non-negative integer")
	}
	return domain.RoomID(id), nil
}
