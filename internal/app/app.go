// Package app wires configuration, storage, the booking core and the HTTP
// server together and runs them until shutdown.
package app

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus"
	goredis "github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	mongodriver "go.mongodb.org/mongo-driver/mongo"
	"golang.org/x/sync/errgroup"

	"github.com/sirpyerre/hotel-reservations/internal/api"
	"github.com/sirpyerre/hotel-reservations/internal/api/handler"
	"github.com/sirpyerre/hotel-reservations/internal/core/catalog"
	"github.com/sirpyerre/hotel-reservations/internal/core/domain"
	"github.com/sirpyerre/hotel-reservations/internal/core/ports"
	"github.com/sirpyerre/hotel-reservations/internal/core/service"
	"github.com/sirpyerre/hotel-reservations/internal/core/store"
	"github.com/sirpyerre/hotel-reservations/internal/infrastructure/config"
	"github.com/sirpyerre/hotel-reservations/internal/infrastructure/db/csvstore"
	"github.com/sirpyerre/hotel-reservations/internal/infrastructure/db/mongo"
	"github.com/sirpyerre/hotel-reservations/internal/infrastructure/db/redis"
	"github.com/sirpyerre/hotel-reservations/internal/infrastructure/queue"
)

// Backend is an opened storage together with the handles needed to probe and
// close it.
type Backend struct {
	Storage ports.Storage
	// DB is set for the mongo driver only.
	DB    *mongodriver.Database
	Ping  handler.Pinger
	Close func(ctx context.Context) error
}

// OpenStorage opens the backend selected by cfg.Storage.Driver.
func OpenStorage(ctx context.Context, cfg *config.Config) (*Backend, error) {
	switch cfg.Storage.Driver {
	case "mongo":
		client, db, err := mongo.Connect(ctx, mongo.Config{URI: cfg.Mongo.URI, Database: cfg.Mongo.Database})
		if err != nil {
			return nil, err
		}
		return &Backend{
			Storage: mongo.NewStorage(db),
			DB:      db,
			Ping:    func(ctx context.Context) error { return client.Ping(ctx, nil) },
			Close:   client.Disconnect,
		}, nil
	case "csv":
		s, err := csvstore.Open(cfg.Storage.DataDir)
		if err != nil {
			return nil, err
		}
		return &Backend{
			Storage: s,
			Ping:    func(context.Context) error { return nil },
			Close:   func(context.Context) error { return nil },
		}, nil
	default:
		return nil, fmt.Errorf("unknown storage driver %q", cfg.Storage.Driver)
	}
}

// LoadDataset reads and validates the persisted state. When storage holds no
// rooms the catalog is seeded from SEED_ROOMS and seeded is true.
func LoadDataset(ctx context.Context, storage ports.Storage, seedRooms string) (ds *domain.Dataset, seeded bool, err error) {
	ds, err = storage.Load(ctx)
	if err != nil {
		return nil, false, fmt.Errorf("load dataset: %w", err)
	}
	if len(ds.Rooms) == 0 {
		ds.Rooms, err = catalog.ParseSeed(seedRooms)
		if err != nil {
			return nil, false, fmt.Errorf("seed rooms: %w", err)
		}
		seeded = true
	}
	if err := ds.Validate(); err != nil {
		return nil, false, err
	}
	return ds, seeded, nil
}

// Option customises New.
type Option func(*options)

type options struct {
	metrics prometheus.Registerer
}

// WithMetricsRegisterer registers the HTTP metrics somewhere other than the
// global Prometheus registry.
func WithMetricsRegisterer(r prometheus.Registerer) Option {
	return func(o *options) { o.metrics = r }
}

// App is the assembled service.
type App struct {
	cfg        *config.Config
	log        zerolog.Logger
	backend    *Backend
	redis      *goredis.Client
	dispatcher *queue.Dispatcher
	bookings   *service.BookingService
	echo       *echo.Echo
}

// New opens every dependency and builds the HTTP server. Corrupt persisted
// data aborts startup.
func New(ctx context.Context, cfg *config.Config, log zerolog.Logger, opts ...Option) (*App, error) {
	var o options
	for _, opt := range opts {
		opt(&o)
	}

	backend, err := OpenStorage(ctx, cfg)
	if err != nil {
		return nil, err
	}
	a := &App{cfg: cfg, log: log, backend: backend}

	ds, seeded, err := LoadDataset(ctx, backend.Storage, cfg.Storage.SeedRooms)
	if err != nil {
		a.closeConnections(ctx)
		return nil, err
	}

	rooms, err := catalog.New(ds.Rooms)
	if err != nil {
		a.closeConnections(ctx)
		return nil, err
	}

	reservations := store.New(backend.Storage, log.With().Str("component", "store").Logger())
	reservations.Load(ds.Reservations, ds.LastReservationID)

	clients := store.NewClients(backend.Storage, log.With().Str("component", "clients").Logger())
	clients.Load(ds.Clients, ds.LastClientID)

	var recorder ports.AuditRecorder = queue.NewLogRecorder(log.With().Str("component", "audit").Logger())
	if backend.DB != nil {
		recorder = mongo.NewAuditRepository(backend.DB)
	}
	a.dispatcher = queue.NewDispatcher(cfg.Audit.Workers, recorder, log.With().Str("component", "audit").Logger())

	readiness := map[string]handler.Pinger{"storage": backend.Ping}

	var idempotency ports.IdempotencyStore
	a.redis, err = redis.Connect(ctx, redis.Config{Addr: cfg.Redis.Addr, DB: cfg.Redis.DB})
	switch {
	case errors.Is(err, redis.ErrDisabled):
		log.Info().Msg("REDIS_ADDR not set, idempotency keys disabled")
	case err != nil:
		a.closeConnections(ctx)
		return nil, err
	default:
		idempotency = redis.NewIdempotencyStore(a.redis)
		rdb := a.redis
		readiness["redis"] = func(ctx context.Context) error { return rdb.Ping(ctx).Err() }
	}

	a.bookings = service.NewBookingService(service.BookingDeps{
		Rooms:        rooms,
		Reservations: reservations,
		Clients:      clients,
		Storage:      backend.Storage,
		Events:       a.dispatcher,
		Idempotency:  idempotency,
		Log:          log.With().Str("component", "booking").Logger(),
	})

	if seeded {
		if err := a.bookings.Snapshot(ctx); err != nil {
			log.Warn().Err(err).Msg("failed to persist seeded room catalog")
		}
	}

	clientService := service.NewClientService(clients, cfg.JWTSecret, cfg.TokenTTL, cfg.AdminEmail,
		log.With().Str("component", "clients").Logger())

	a.echo = api.NewRouter(api.RouterDeps{
		Bookings:  a.bookings,
		Clients:   clientService,
		JWTSecret: cfg.JWTSecret,
		Log:       log.With().Str("component", "http").Logger(),
		Readiness: readiness,

		MetricsRegisterer: o.metrics,
	})

	log.Info().
		Str("driver", cfg.Storage.Driver).
		Int("rooms", rooms.Len()).
		Int("clients", len(ds.Clients)).
		Int("reservations", len(ds.Reservations)).
		Bool("seeded", seeded).
		Msg("state loaded")

	return a, nil
}

// Run serves HTTP until ctx is cancelled or the server fails, then shuts
// down: stop accepting requests, drain the audit queue, write a snapshot and
// close connections.
func (a *App) Run(ctx context.Context) error {
	a.dispatcher.Start(context.WithoutCancel(ctx))

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		a.log.Info().Str("port", a.cfg.Port).Msg("http server listening")
		if err := a.echo.Start(":" + a.cfg.Port); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		<-gctx.Done()
		return a.shutdown()
	})

	return g.Wait()
}

func (a *App) shutdown() error {
	ctx, cancel := context.WithTimeout(context.Background(), a.cfg.ShutdownTimeout)
	defer cancel()

	a.log.Info().Msg("shutting down")

	var errs []error
	if err := a.echo.Shutdown(ctx); err != nil {
		errs = append(errs, fmt.Errorf("http shutdown: %w", err))
	}

	a.dispatcher.Close()

	if err := a.bookings.Snapshot(ctx); err != nil {
		errs = append(errs, err)
	}

	a.closeConnections(ctx)
	return errors.Join(errs...)
}

func (a *App) closeConnections(ctx context.Context) {
	if a.redis != nil {
		if err := a.redis.Close(); err != nil {
			a.log.Warn().Err(err).Msg("redis close")
		}
	}
	if a.backend != nil {
		if err := a.backend.Close(ctx); err != nil {
			a.log.Warn().Err(err).Msg("storage close")
		}
	}
}

// Handler exposes the HTTP handler, e.g. for in-process tests.
func (a *App) Handler() http.Handler {
	return a.echo
}
