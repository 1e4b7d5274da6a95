package api

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"

	"github.com/sirpyerre/hotel-reservations/internal/core/domain"
)

// errorResponse is the canonical error envelope for all API errors.
type errorResponse struct {
	Error string `json:"error"`
}

// NewHTTPErrorHandler returns an echo.HTTPErrorHandler that:
//   - Maps booking and auth errors to their HTTP status codes.
//   - Logs unexpected errors internally without leaking details to the client.
//   - Renders a consistent JSON envelope: {"error": "<message>"}.
func NewHTTPErrorHandler(log zerolog.Logger) echo.HTTPErrorHandler {
	return func(err error, c echo.Context) {
		if c.Response().Committed {
			return
		}

		code, msg := resolveError(err, log, c)
		if c.Request().Method == http.MethodHead {
			_ = c.NoContent(code)
			return
		}
		_ = c.JSON(code, errorResponse{Error: msg})
	}
}

func resolveError(err error, log zerolog.Logger, c echo.Context) (int, string) {
	// Echo's own errors (bind failures, 404 from router, etc.)
	var he *echo.HTTPError
	if errors.As(err, &he) {
		return he.Code, fmt.Sprintf("%v", he.Message)
	}

	// Booking rejections carry their detail (dates, capacity) in the message.
	switch {
	case errors.Is(err, domain.ErrInvalidDate),
		errors.Is(err, domain.ErrInvalidDateRange),
		errors.Is(err, domain.ErrOverCapacity),
		errors.Is(err, domain.ErrIdempotencyKeyReused):
		return http.StatusUnprocessableEntity, cause(err)
	case errors.Is(err, domain.ErrUnknownRoom):
		return http.StatusNotFound, cause(err)
	case errors.Is(err, domain.ErrRoomUnavailable):
		return http.StatusConflict, cause(err)
	case errors.Is(err, domain.ErrReservationNotFound):
		return http.StatusNotFound, "reservation not found"
	case errors.Is(err, domain.ErrForbidden):
		return http.StatusForbidden, "access forbidden"
	case errors.Is(err, domain.ErrInvalidCredentials):
		return http.StatusUnauthorized, "invalid credentials"
	case errors.Is(err, domain.ErrClientNotFound):
		return http.StatusNotFound, "client not found"
	case errors.Is(err, domain.ErrClientExists):
		return http.StatusConflict, "client already exists"
	}

	// Unexpected error: log the real cause, return a generic message.
	log.Error().
		Err(err).
		Str("method", c.Request().Method).
		Str("path", c.Path()).
		Msg("unhandled error")

	if errors.Is(err, domain.ErrPersistence) {
		return http.StatusInternalServerError, "storage write failed"
	}
	return http.StatusInternalServerError, "internal server error"
}

// cause strips the operation prefixes services add while wrapping, keeping the
// innermost message, e.g. "reserve: room is not available ..." becomes
// "room is not available ...".
func cause(err error) string {
	for {
		u, ok := err.(interface{ Unwrap() error })
		if !ok {
			return err.Error()
		}
		inner := u.Unwrap()
		if inner == nil || !isPrefixWrap(err, inner) {
			return err.Error()
		}
		err = inner
	}
}

func isPrefixWrap(outer, inner error) bool {
	o, i := outer.Error(), inner.Error()
	return len(o) > len(i) && o[len(o)-len(i):] == i
}
