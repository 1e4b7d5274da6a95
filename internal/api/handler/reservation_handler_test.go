package handler

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"cloud.google.com/go/civil"
	"github.com/labstack/echo/v4"

	"github.com/sirpyerre/hotel-reservations/internal/core/domain"
	"github.com/sirpyerre/hotel-reservations/internal/core/ports"
)

// stubBookingService implements ports.BookingService. Unset functions fail
// the test when called.
type stubBookingService struct {
	t         *testing.T
	reserveFn func(ctx context.Context, in ports.ReserveInput) (*ports.ReserveResult, error)
	modifyFn  func(ctx context.Context, in ports.ModifyInput) (domain.ReservationID, error)
	cancelFn  func(ctx context.Context, in ports.CancelInput) (domain.ReservationID, error)
	listFn    func(ctx context.Context, clientID domain.ClientID) []domain.Reservation
	getFn     func(ctx context.Context, id domain.ReservationID, clientID domain.ClientID) (domain.Reservation, error)
	roomsFn   func(ctx context.Context, q ports.AvailabilityQuery) ([]domain.Room, error)
	freeFn    func(ctx context.Context, roomID domain.RoomID, start, end civil.Date) bool
}

func (s *stubBookingService) ListRooms(context.Context) []domain.Room {
	return []domain.Room{{ID: 1, MaxGuests: 2}, {ID: 2, MaxGuests: 4}}
}

func (s *stubBookingService) AvailableRooms(ctx context.Context, q ports.AvailabilityQuery) ([]domain.Room, error) {
	if s.roomsFn == nil {
		s.t.Fatalf("AvailableRooms should not be called")
	}
	return s.roomsFn(ctx, q)
}

func (s *stubBookingService) IsRoomAvailable(ctx context.Context, roomID domain.RoomID, start, end civil.Date) bool {
	if s.freeFn == nil {
		s.t.Fatalf("IsRoomAvailable should not be called")
	}
	return s.freeFn(ctx, roomID, start, end)
}

func (s *stubBookingService) Reserve(ctx context.Context, in ports.ReserveInput) (*ports.ReserveResult, error) {
	if s.reserveFn == nil {
		s.t.Fatalf("Reserve should not be called")
	}
	return s.reserveFn(ctx, in)
}

func (s *stubBookingService) Modify(ctx context.Context, in ports.ModifyInput) (domain.ReservationID, error) {
	if s.modifyFn == nil {
		s.t.Fatalf("Modify should not be called")
	}
	return s.modifyFn(ctx, in)
}

func (s *stubBookingService) Cancel(ctx context.Context, in ports.CancelInput) (domain.ReservationID, error) {
	if s.cancelFn == nil {
		s.t.Fatalf("Cancel should not be called")
	}
	return s.cancelFn(ctx, in)
}

func (s *stubBookingService) GetReservations(ctx context.Context, clientID domain.ClientID) []domain.Reservation {
	if s.listFn == nil {
		s.t.Fatalf("GetReservations should not be called")
	}
	return s.listFn(ctx, clientID)
}

func (s *stubBookingService) GetReservation(ctx context.Context, id domain.ReservationID, clientID domain.ClientID) (domain.Reservation, error) {
	if s.getFn == nil {
		s.t.Fatalf("GetReservation should not be called")
	}
	return s.getFn(ctx, id, clientID)
}

func (s *stubBookingService) Snapshot(context.Context) error { return nil }

// authed returns a context carrying the claims the Auth middleware would set.
func authed(method, target, body, role string, clientID domain.ClientID) (echo.Context, *httptest.ResponseRecorder) {
	c, rec := newJSONContext(method, target, body)
	c.Set("role", role)
	c.Set("client_id", clientID)
	return c, rec
}

func TestReservationHandler_Create_Success(t *testing.T) {
	stub := &stubBookingService{t: t,
		reserveFn: func(ctx context.Context, in ports.ReserveInput) (*ports.ReserveResult, error) {
			if in.ClientID != 5 || in.RoomID != 2 || in.Guests != 3 || in.IdempotencyKey != "k1" {
				t.Fatalf("unexpected input: %+v", in)
			}
			if in.Start.String() != "2025-03-01" || in.End.String() != "2025-03-04" {
				t.Fatalf("unexpected dates: %s %s", in.Start, in.End)
			}
			return &ports.ReserveResult{ReservationID: 11}, nil
		},
	}
	h := NewReservationHandler(stub)

	c, rec := authed(http.MethodPost, "/v1/reservations",
		`{"room_id":2,"date_start":"2025-03-01","date_end":"2025-03-04","guest_count":3}`, domain.RoleClient, 5)
	c.Request().Header.Set("Idempotency-Key", "k1")

	if err := h.Create(c); err != nil {
		t.Fatalf("handler error: %v", err)
	}
	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d", rec.Code)
	}
	if loc := rec.Header().Get(echo.HeaderLocation); loc != "/v1/reservations/11" {
		t.Fatalf("unexpected Location: %q", loc)
	}

	var resp bookingResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("invalid json: %v", err)
	}
	if resp.ReservationID != 11 || resp.Status != "confirmed" || resp.Replayed {
		t.Fatalf("unexpected response: %+v", resp)
	}
}

func TestReservationHandler_Create_Replay(t *testing.T) {
	stub := &stubBookingService{t: t,
		reserveFn: func(ctx context.Context, in ports.ReserveInput) (*ports.ReserveResult, error) {
			return &ports.ReserveResult{ReservationID: 11, AlreadyExisted: true}, nil
		},
	}
	h := NewReservationHandler(stub)

	c, rec := authed(http.MethodPost, "/v1/reservations",
		`{"room_id":2,"date_start":"2025-03-01","date_end":"2025-03-04","guest_count":1}`, domain.RoleClient, 5)
	if err := h.Create(c); err != nil {
		t.Fatalf("handler error: %v", err)
	}
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200 on replay, got %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), `"replayed":true`) {
		t.Fatalf("expected replayed flag, got %s", rec.Body.String())
	}
}

func TestReservationHandler_Create_PersistenceWarning(t *testing.T) {
	stub := &stubBookingService{t: t,
		reserveFn: func(ctx context.Context, in ports.ReserveInput) (*ports.ReserveResult, error) {
			return &ports.ReserveResult{ReservationID: 3}, fmt.Errorf("reserve: %w: disk full", domain.ErrPersistence)
		},
	}
	h := NewReservationHandler(stub)

	c, rec := authed(http.MethodPost, "/v1/reservations",
		`{"room_id":1,"date_start":"2025-03-01","date_end":"2025-03-01","guest_count":1}`, domain.RoleClient, 5)
	if err := h.Create(c); err != nil {
		t.Fatalf("handler error: %v", err)
	}
	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), persistenceWarning) {
		t.Fatalf("expected warning, got %s", rec.Body.String())
	}
}

func TestReservationHandler_Create_Rejections(t *testing.T) {
	stub := &stubBookingService{t: t,
		reserveFn: func(ctx context.Context, in ports.ReserveInput) (*ports.ReserveResult, error) {
			return nil, fmt.Errorf("reserve: %w", domain.ErrRoomUnavailable)
		},
	}
	h := NewReservationHandler(stub)

	c, _ := authed(http.MethodPost, "/v1/reservations",
		`{"room_id":1,"date_start":"2025-03-01","date_end":"2025-03-02","guest_count":1}`, domain.RoleClient, 5)
	if err := h.Create(c); !errors.Is(err, domain.ErrRoomUnavailable) {
		t.Fatalf("expected ErrRoomUnavailable, got %v", err)
	}

	c, _ = authed(http.MethodPost, "/v1/reservations",
		`{"room_id":1,"date_start":"2025-03-05","date_end":"2025-03-02","guest_count":1}`, domain.RoleClient, 5)
	if err := h.Create(c); !errors.Is(err, domain.ErrInvalidDateRange) {
		t.Fatalf("expected ErrInvalidDateRange, got %v", err)
	}

	c, _ = authed(http.MethodPost, "/v1/reservations",
		`{"room_id":1,"date_start":"2025-3-1","date_end":"2025-03-02","guest_count":1}`, domain.RoleClient, 5)
	if code := httpCode(t, h.Create(c)); code != http.StatusUnprocessableEntity {
		t.Fatalf("expected 422 for malformed date, got %d", code)
	}

	c, _ = authed(http.MethodPost, "/v1/reservations",
		`{"room_id":1,"date_start":"2025-03-01","date_end":"2025-03-02","guest_count":1}`, domain.RoleClient, 5)
	c.Request().Header.Set("Idempotency-Key", strings.Repeat("x", maxIdempotencyKeyLen+1))
	if code := httpCode(t, h.Create(c)); code != http.StatusBadRequest {
		t.Fatalf("expected 400 for long key, got %d", code)
	}
}

func TestReservationHandler_Create_MissingClaims(t *testing.T) {
	h := NewReservationHandler(&stubBookingService{t: t})

	c, _ := newJSONContext(http.MethodPost, "/v1/reservations", `{}`)
	if code := httpCode(t, h.Create(c)); code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", code)
	}
}

func TestReservationHandler_List_Scope(t *testing.T) {
	var gotScope domain.ClientID
	stub := &stubBookingService{t: t,
		listFn: func(ctx context.Context, clientID domain.ClientID) []domain.Reservation {
			gotScope = clientID
			return []domain.Reservation{}
		},
	}
	h := NewReservationHandler(stub)

	cases := []struct {
		name   string
		target string
		role   string
		want   domain.ClientID
	}{
		{"client sees own", "/v1/reservations?client_id=9", domain.RoleClient, 5},
		{"admin defaults to own", "/v1/reservations", domain.RoleAdmin, 5},
		{"admin picks client", "/v1/reservations?client_id=9", domain.RoleAdmin, 9},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			c, rec := authed(http.MethodGet, tc.target, "", tc.role, 5)
			if err := h.List(c); err != nil {
				t.Fatalf("handler error: %v", err)
			}
			if rec.Code != http.StatusOK {
				t.Fatalf("expected 200, got %d", rec.Code)
			}
			if gotScope != tc.want {
				t.Fatalf("expected scope %d, got %d", tc.want, gotScope)
			}
		})
	}

	c, _ := authed(http.MethodGet, "/v1/reservations?client_id=abc", "", domain.RoleAdmin, 5)
	if code := httpCode(t, h.List(c)); code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", code)
	}
}

func TestReservationHandler_Get(t *testing.T) {
	start, _ := civil.ParseDate("2025-03-01")
	end, _ := civil.ParseDate("2025-03-03")
	stub := &stubBookingService{t: t,
		getFn: func(ctx context.Context, id domain.ReservationID, clientID domain.ClientID) (domain.Reservation, error) {
			if id != 4 || clientID != 5 {
				return domain.Reservation{}, domain.ErrReservationNotFound
			}
			return domain.Reservation{ID: 4, ClientID: 5, RoomID: 1, Start: start, End: end, Guests: 2}, nil
		},
	}
	h := NewReservationHandler(stub)

	c, rec := authed(http.MethodGet, "/v1/reservations/4", "", domain.RoleClient, 5)
	c.SetParamNames("id")
	c.SetParamValues("4")
	if err := h.Get(c); err != nil {
		t.Fatalf("handler error: %v", err)
	}

	var resp reservationResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("invalid json: %v", err)
	}
	if resp.Nights != 3 || resp.DateStart != "2025-03-01" || resp.Links.Self != "/v1/reservations/4" {
		t.Fatalf("unexpected response: %+v", resp)
	}

	c, _ = authed(http.MethodGet, "/v1/reservations/0", "", domain.RoleClient, 5)
	c.SetParamNames("id")
	c.SetParamValues("0")
	if code := httpCode(t, h.Get(c)); code != http.StatusBadRequest {
		t.Fatalf("expected 400 for id 0, got %d", code)
	}
}

func TestReservationHandler_Modify(t *testing.T) {
	stub := &stubBookingService{t: t,
		modifyFn: func(ctx context.Context, in ports.ModifyInput) (domain.ReservationID, error) {
			if in.ReservationID != 4 || in.ClientID != 5 || in.Guests != 2 {
				t.Fatalf("unexpected input: %+v", in)
			}
			return 12, nil
		},
	}
	h := NewReservationHandler(stub)

	c, rec := authed(http.MethodPatch, "/v1/reservations/4",
		`{"date_start":"2025-04-01","date_end":"2025-04-02","guest_count":2}`, domain.RoleClient, 5)
	c.SetParamNames("id")
	c.SetParamValues("4")
	if err := h.Modify(c); err != nil {
		t.Fatalf("handler error: %v", err)
	}

	var resp bookingResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("invalid json: %v", err)
	}
	if resp.ReservationID != 12 || resp.PreviousID != 4 {
		t.Fatalf("unexpected response: %+v", resp)
	}
}

func TestReservationHandler_Cancel(t *testing.T) {
	stub := &stubBookingService{t: t,
		cancelFn: func(ctx context.Context, in ports.CancelInput) (domain.ReservationID, error) {
			if in.ReservationID == 4 {
				return 4, nil
			}
			return 0, fmt.Errorf("cancel: %w", domain.ErrReservationNotFound)
		},
	}
	h := NewReservationHandler(stub)

	c, rec := authed(http.MethodDelete, "/v1/reservations/4", "", domain.RoleAdmin, 1)
	c.SetParamNames("id")
	c.SetParamValues("4")
	if err := h.Cancel(c); err != nil {
		t.Fatalf("handler error: %v", err)
	}
	if !strings.Contains(rec.Body.String(), `"status":"cancelled"`) {
		t.Fatalf("unexpected body: %s", rec.Body.String())
	}
	if strings.Contains(rec.Body.String(), "_links") {
		t.Fatalf("cancelled booking must not link to itself: %s", rec.Body.String())
	}

	c, _ = authed(http.MethodDelete, "/v1/reservations/8", "", domain.RoleAdmin, 1)
	c.SetParamNames("id")
	c.SetParamValues("8")
	if err := h.Cancel(c); !errors.Is(err, domain.ErrReservationNotFound) {
		t.Fatalf("expected ErrReservationNotFound, got %v", err)
	}
}
