package api

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sirpyerre/hotel-reservations/internal/api/handler"
	"github.com/sirpyerre/hotel-reservations/internal/core/catalog"
	"github.com/sirpyerre/hotel-reservations/internal/core/domain"
	"github.com/sirpyerre/hotel-reservations/internal/core/service"
	"github.com/sirpyerre/hotel-reservations/internal/core/store"
)

const testSecret = "router-test-secret"

type apiClient struct {
	t     *testing.T
	e     *echo.Echo
	token string
}

func newTestRouter(t *testing.T) *echo.Echo {
	t.Helper()

	rooms, err := catalog.New([]domain.Room{{ID: 1, MaxGuests: 2}, {ID: 2, MaxGuests: 4}})
	require.NoError(t, err)

	clients := store.NewClients(nil, zerolog.Nop())
	bookings := service.NewBookingService(service.BookingDeps{
		Rooms:        rooms,
		Reservations: store.New(nil, zerolog.Nop()),
		Clients:      clients,
		Log:          zerolog.Nop(),
	})

	return NewRouter(RouterDeps{
		Bookings:          bookings,
		Clients:           service.NewClientService(clients, testSecret, time.Hour, "admin@hotel.test", zerolog.Nop()),
		JWTSecret:         testSecret,
		Log:               zerolog.Nop(),
		Readiness:         map[string]handler.Pinger{"storage": func(context.Context) error { return nil }},
		MetricsRegisterer: prometheus.NewRegistry(),
	})
}

func (a *apiClient) do(method, path, body string) (int, map[string]any) {
	a.t.Helper()

	req := httptest.NewRequest(method, path, strings.NewReader(body))
	if body != "" {
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	}
	if a.token != "" {
		req.Header.Set(echo.HeaderAuthorization, "Bearer "+a.token)
	}
	rec := httptest.NewRecorder()
	a.e.ServeHTTP(rec, req)

	out := map[string]any{}
	if rec.Body.Len() > 0 {
		require.NoError(a.t, json.Unmarshal(rec.Body.Bytes(), &out), rec.Body.String())
	}
	return rec.Code, out
}

// signUp registers and logs in, returning an authenticated client.
func signUp(t *testing.T, e *echo.Echo, email string) *apiClient {
	t.Helper()
	anon := &apiClient{t: t, e: e}

	code, _ := anon.do(http.MethodPost, "/auth/register", `{"email":"`+email+`","password":"secret1"}`)
	require.Equal(t, http.StatusCreated, code)

	code, body := anon.do(http.MethodPost, "/auth/login", `{"email":"`+email+`","password":"secret1"}`)
	require.Equal(t, http.StatusOK, code)
	token, _ := body["token"].(string)
	require.NotEmpty(t, token)

	return &apiClient{t: t, e: e, token: token}
}

func TestRouter_BookingLifecycle(t *testing.T) {
	e := newTestRouter(t)
	alice := signUp(t, e, "alice@example.com")
	bob := signUp(t, e, "bob@example.com")

	code, body := alice.do(http.MethodPost, "/v1/reservations",
		`{"room_id":1,"date_start":"2025-03-01","date_end":"2025-03-05","guest_count":2}`)
	require.Equal(t, http.StatusCreated, code, body)
	assert.Equal(t, float64(1), body["reservation_id"])

	// Touching the last night conflicts.
	code, body = bob.do(http.MethodPost, "/v1/reservations",
		`{"room_id":1,"date_start":"2025-03-05","date_end":"2025-03-06","guest_count":1}`)
	assert.Equal(t, http.StatusConflict, code)
	assert.Contains(t, body["error"], "not available")

	code, _ = bob.do(http.MethodPost, "/v1/reservations",
		`{"room_id":1,"date_start":"2025-03-10","date_end":"2025-03-11","guest_count":3}`)
	assert.Equal(t, http.StatusUnprocessableEntity, code)

	code, _ = bob.do(http.MethodPost, "/v1/reservations",
		`{"room_id":9,"date_start":"2025-03-10","date_end":"2025-03-11","guest_count":1}`)
	assert.Equal(t, http.StatusNotFound, code)

	code, _ = bob.do(http.MethodPost, "/v1/reservations",
		`{"room_id":2,"date_start":"2025-03-11","date_end":"2025-03-10","guest_count":1}`)
	assert.Equal(t, http.StatusUnprocessableEntity, code)

	code, body = bob.do(http.MethodGet, "/v1/rooms/available?start=2025-03-05&end=2025-03-06", "")
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, float64(1), body["count"])

	// Other clients cannot see or touch alice's reservation.
	code, _ = bob.do(http.MethodGet, "/v1/reservations/1", "")
	assert.Equal(t, http.StatusNotFound, code)
	code, _ = bob.do(http.MethodDelete, "/v1/reservations/1", "")
	assert.Equal(t, http.StatusNotFound, code)

	code, body = alice.do(http.MethodPatch, "/v1/reservations/1",
		`{"date_start":"2025-03-02","date_end":"2025-03-06","guest_count":1}`)
	require.Equal(t, http.StatusOK, code, body)
	assert.Equal(t, float64(2), body["reservation_id"])
	assert.Equal(t, float64(1), body["previous_id"])

	code, _ = alice.do(http.MethodGet, "/v1/reservations/1", "")
	assert.Equal(t, http.StatusNotFound, code)

	code, body = alice.do(http.MethodGet, "/v1/reservations", "")
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, float64(1), body["count"])

	code, body = alice.do(http.MethodDelete, "/v1/reservations/2", "")
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, "cancelled", body["status"])

	code, _ = alice.do(http.MethodDelete, "/v1/reservations/2", "")
	assert.Equal(t, http.StatusNotFound, code)
}

func TestRouter_AuthAndRoles(t *testing.T) {
	e := newTestRouter(t)
	anon := &apiClient{t: t, e: e}

	code, _ := anon.do(http.MethodGet, "/v1/rooms", "")
	assert.Equal(t, http.StatusUnauthorized, code)

	code, _ = anon.do(http.MethodPost, "/auth/login", `{"email":"ghost@example.com","password":"secret1"}`)
	assert.Equal(t, http.StatusUnauthorized, code)

	client := signUp(t, e, "carol@example.com")
	code, _ = client.do(http.MethodPost, "/v1/admin/snapshot", "")
	assert.Equal(t, http.StatusForbidden, code)

	code, _ = anon.do(http.MethodPost, "/auth/register", `{"email":"carol@example.com","password":"secret1"}`)
	assert.Equal(t, http.StatusConflict, code)

	admin := signUp(t, e, "admin@hotel.test")
	code, body := admin.do(http.MethodPost, "/v1/admin/snapshot", "")
	assert.Equal(t, http.StatusOK, code, body)

	code, body = admin.do(http.MethodGet, "/v1/rooms", "")
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, float64(2), body["count"])
}

func TestRouter_Probes(t *testing.T) {
	e := newTestRouter(t)
	anon := &apiClient{t: t, e: e}

	code, _ := anon.do(http.MethodGet, "/health", "")
	assert.Equal(t, http.StatusOK, code)

	code, body := anon.do(http.MethodGet, "/health/ready", "")
	assert.Equal(t, http.StatusOK, code)
	assert.Equal(t, "ok", body["status"])
}
