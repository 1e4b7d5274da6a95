package api

import (
	"github.com/labstack/echo-contrib/echoprometheus"
	"github.com/labstack/echo/v4"
	echomiddleware "github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"
	echoSwagger "github.com/swaggo/echo-swagger"

	_ "github.com/sirpyerre/hotel-reservations/docs"
	"github.com/sirpyerre/hotel-reservations/internal/api/handler"
	"github.com/sirpyerre/hotel-reservations/internal/api/middleware"
	"github.com/sirpyerre/hotel-reservations/internal/core/domain"
	"github.com/sirpyerre/hotel-reservations/internal/core/ports"
)

var apiRoles = []string{domain.RoleAdmin, domain.RoleClient}

// RouterDeps carries everything the HTTP layer needs.
type RouterDeps struct {
	Bookings  ports.BookingService
	Clients   ports.ClientService
	JWTSecret string
	Log       zerolog.Logger
	// Readiness lists the dependency pings behind /health/ready.
	Readiness map[string]handler.Pinger
	// MetricsRegisterer receives the HTTP metrics. Defaults to the global
	// Prometheus registry.
	MetricsRegisterer prometheus.Registerer
}

// NewRouter builds and returns the Echo instance with all routes registered.
func NewRouter(deps RouterDeps) *echo.Echo {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.Validator = handler.NewValidator()
	e.HTTPErrorHandler = NewHTTPErrorHandler(deps.Log)

	// --- Global middleware ---
	e.Use(echomiddleware.Recover())
	e.Use(echomiddleware.RequestID())
	e.Use(requestLogger(deps.Log))
	e.Use(echoprometheus.NewMiddlewareWithConfig(echoprometheus.MiddlewareConfig{
		Namespace:  "reservations",
		Subsystem:  "http",
		Registerer: deps.MetricsRegisterer,
		Skipper: func(c echo.Context) bool {
			return c.Path() == "/metrics"
		},
	}))

	// --- Dependencies ---
	clientHandler := handler.NewClientHandler(deps.Clients)
	roomHandler := handler.NewRoomHandler(deps.Bookings)
	reservationHandler := handler.NewReservationHandler(deps.Bookings)
	healthHandler := handler.NewHealthHandler(deps.Readiness)

	// --- Probes, metrics, docs (no auth required) ---
	e.GET("/health", healthHandler.Liveness)        // liveness  – is the process alive?
	e.GET("/health/ready", healthHandler.Readiness) // readiness – are dependencies up?
	e.GET("/metrics", echoprometheus.NewHandler())  // prometheus scrape endpoint
	e.GET("/swagger/*", echoSwagger.WrapHandler)    // OpenAPI UI

	// --- Auth routes ---
	e.POST("/auth/register", clientHandler.Register)
	e.POST("/auth/login", clientHandler.Login)

	// --- Authenticated API ---
	v1 := e.Group("/v1", middleware.Auth(deps.JWTSecret), middleware.RBAC(apiRoles...))

	v1.GET("/rooms", roomHandler.List)
	v1.GET("/rooms/available", roomHandler.Available)
	v1.GET("/rooms/:room_id/availability", roomHandler.Availability)

	v1.POST("/reservations", reservationHandler.Create)
	v1.GET("/reservations", reservationHandler.List)
	v1.GET("/reservations/:id", reservationHandler.Get)
	v1.PATCH("/reservations/:id", reservationHandler.Modify)
	v1.DELETE("/reservations/:id", reservationHandler.Cancel)

	admin := v1.Group("/admin", middleware.AdminOnly())
	admin.POST("/snapshot", reservationHandler.Snapshot)

	return e
}
