package api

import (
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"

	"github.com/sirpyerre/hotel-reservations/internal/core/domain"
)

func TestHTTPErrorHandler_StatusMapping(t *testing.T) {
	cases := []struct {
		name string
		err  error
		code int
		msg  string
	}{
		{"range", fmt.Errorf("reserve: %w", fmt.Errorf("%w: 2025-03-02 is after 2025-03-01", domain.ErrInvalidDateRange)), http.StatusUnprocessableEntity, "invalid date range: 2025-03-02 is after 2025-03-01"},
		{"capacity", fmt.Errorf("reserve: %w", domain.ErrOverCapacity), http.StatusUnprocessableEntity, "guest count exceeds room capacity"},
		{"unknown room", fmt.Errorf("reserve: %w", fmt.Errorf("%w: 9", domain.ErrUnknownRoom)), http.StatusNotFound, "unknown room: 9"},
		{"conflict", fmt.Errorf("reserve: %w", domain.ErrRoomUnavailable), http.StatusConflict, "room is not available for the requested dates"},
		{"key reused", fmt.Errorf("reserve: %w", fmt.Errorf("%w: key \"k\" belongs to reservation 1", domain.ErrIdempotencyKeyReused)), http.StatusUnprocessableEntity, `idempotency key reused with a different request: key \"k\" belongs to reservation 1`},
		{"not found", fmt.Errorf("cancel: %w: 3", domain.ErrReservationNotFound), http.StatusNotFound, "reservation not found"},
		{"forbidden", domain.ErrForbidden, http.StatusForbidden, "access forbidden"},
		{"credentials", domain.ErrInvalidCredentials, http.StatusUnauthorized, "invalid credentials"},
		{"exists", domain.ErrClientExists, http.StatusConflict, "client already exists"},
		{"persistence", fmt.Errorf("snapshot: %w", domain.ErrPersistence), http.StatusInternalServerError, "storage write failed"},
		{"unexpected", errors.New("boom"), http.StatusInternalServerError, "internal server error"},
		{"echo", echo.NewHTTPError(http.StatusBadRequest, "bad id"), http.StatusBadRequest, "bad id"},
	}

	h := NewHTTPErrorHandler(zerolog.Nop())
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			e := echo.New()
			rec := httptest.NewRecorder()
			c := e.NewContext(httptest.NewRequest(http.MethodGet, "/", nil), rec)

			h(tc.err, c)

			assert.Equal(t, tc.code, rec.Code)
			assert.JSONEq(t, `{"error":"`+tc.msg+`"}`, rec.Body.String())
		})
	}
}

func TestHTTPErrorHandler_HeadHasNoBody(t *testing.T) {
	e := echo.New()
	rec := httptest.NewRecorder()
	c := e.NewContext(httptest.NewRequest(http.MethodHead, "/", nil), rec)

	NewHTTPErrorHandler(zerolog.Nop())(domain.ErrForbidden, c)

	assert.Equal(t, http.StatusForbidden, rec.Code)
	assert.Zero(t, rec.Body.Len())
}

func TestCause_StripsOperationPrefix(t *testing.T) {
	err := fmt.Errorf("modify: %w", fmt.Errorf("%w: room 1, 2025-03-01 to 2025-03-02", domain.ErrRoomUnavailable))
	assert.Equal(t, "room is not available for the requested dates: room 1, 2025-03-01 to 2025-03-02", cause(err))
}
