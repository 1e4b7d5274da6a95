package service

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"cloud.google.com/go/civil"
	"github.com/rs/zerolog"
	"golang.org/x/sync/singleflight"

	"github.com/sirpyerre/hotel-reservations/internal/api/metrics"
	"github.com/sirpyerre/hotel-reservations/internal/core/catalog"
	"github.com/sirpyerre/hotel-reservations/internal/core/domain"
	"github.com/sirpyerre/hotel-reservations/internal/core/ports"
	"github.com/sirpyerre/hotel-reservations/internal/core/store"
)

// BookingDeps wires a BookingService. Rooms and Reservations are required;
// the rest fall back to no-ops when nil.
type BookingDeps struct {
	Rooms        *catalog.Catalog
	Reservations *store.Store
	Clients      *store.Clients
	Storage      ports.Storage
	Events       ports.BookingEventPublisher
	Idempotency  ports.IdempotencyStore
	Log          zerolog.Logger
}

// BookingService implements ports.BookingService on top of the in-memory
// reservation store.
type BookingService struct {
	rooms        *catalog.Catalog
	reservations *store.Store
	clients      *store.Clients
	storage      ports.Storage
	events       ports.BookingEventPublisher
	idem         ports.IdempotencyStore
	inflight     singleflight.Group
	log          zerolog.Logger
	now          func() time.Time
}

func NewBookingService(deps BookingDeps) *BookingService {
	s := &BookingService{
		rooms:        deps.Rooms,
		reservations: deps.Reservations,
		clients:      deps.Clients,
		storage:      deps.Storage,
		events:       deps.Events,
		idem:         deps.Idempotency,
		log:          deps.Log,
		now:          func() time.Time { return time.Now().UTC() },
	}
	if s.events == nil {
		s.events = nopPublisher{}
	}
	if s.idem == nil {
		s.idem = nopIdempotency{}
	}
	metrics.ActiveReservations.Set(float64(s.reservations.Len()))
	return s
}

// ListRooms returns the whole catalog ordered by room id.
func (s *BookingService) ListRooms(_ context.Context) []domain.Room {
	return s.rooms.List()
}

// AvailableRooms returns, in catalog order, the rooms that have no
// reservation overlapping [q.Start, q.End] and can host q.Guests. The
// reservation set is read under a single read lock.
func (s *BookingService) AvailableRooms(_ context.Context, q ports.AvailabilityQuery) ([]domain.Room, error) {
	if err := domain.ValidateRange(q.Start, q.End); err != nil {
		return nil, fmt.Errorf("available rooms: %w", err)
	}

	start := time.Now()
	defer func() { metrics.AvailabilityQueryDuration.Observe(time.Since(start).Seconds()) }()

	var blocked map[domain.RoomID]struct{}
	s.reservations.View(func(tx *store.Tx) {
		blocked = tx.BlockedRooms(q.Start, q.End)
	})

	out := []domain.Room{}
	for _, room := range s.rooms.List() {
		if _, taken := blocked[room.ID]; taken {
			continue
		}
		if !room.Fits(q.Guests) {
			continue
		}
		out = append(out, room)
	}
	return out, nil
}

// IsRoomAvailable reports whether the room is free over [start, end]. Unknown
// rooms and invalid ranges report false.
func (s *BookingService) IsRoomAvailable(_ context.Context, roomID domain.RoomID, start, end civil.Date) bool {
	if _, ok := s.rooms.Get(roomID); !ok {
		return false
	}
	if domain.ValidateRange(start, end) != nil {
		return false
	}

	free := false
	s.reservations.View(func(tx *store.Tx) {
		free = tx.RoomFree(roomID, start, end)
	})
	return free
}

// admit validates a booking request and inserts it. It must run inside a
// store write transaction so the availability check and the insert are atomic.
func (s *BookingService) admit(tx *store.Tx, clientID domain.ClientID, roomID domain.RoomID, start, end civil.Date, guests uint8) (domain.ReservationID, error) {
	if err := domain.ValidateRange(start, end); err != nil {
		return 0, err
	}
	capacity, ok := s.rooms.CapacityOf(roomID)
	if !ok {
		return 0, fmt.Errorf("%w: %d", domain.ErrUnknownRoom, roomID)
	}
	if guests > capacity {
		return 0, fmt.Errorf("%w: %d guests, room %d holds %d", domain.ErrOverCapacity, guests, roomID, capacity)
	}
	if !tx.RoomFree(roomID, start, end) {
		return 0, fmt.Errorf("%w: room %d, %s to %s", domain.ErrRoomUnavailable, roomID, start, end)
	}
	return tx.Insert(clientID, roomID, start, end, guests), nil
}

// Reserve books a room. Availability is re-checked under the store lock, so
// two concurrent requests for overlapping dates cannot both succeed.
//
// Requests carrying the same client and Idempotency-Key run one at a time. A
// retry gets the reservation the key produced back, as long as it still exists
// and matches the request; a key whose reservation was cancelled or modified
// books again, and a key reused for different parameters is rejected with
// domain.ErrIdempotencyKeyReused.
func (s *BookingService) Reserve(ctx context.Context, in ports.ReserveInput) (*ports.ReserveResult, error) {
	if in.IdempotencyKey == "" {
		return s.reserve(ctx, in)
	}

	flight := strconv.FormatUint(uint64(in.ClientID), 10) + ":" + in.IdempotencyKey
	for {
		if err := ctx.Err(); err != nil {
			return nil, fmt.Errorf("reserve: %w", err)
		}
		// Callers that only joined another request's flight go round again,
		// by then the key is remembered and they replay it.
		ran := false
		v, err, _ := s.inflight.Do(flight, func() (any, error) {
			ran = true
			return s.reserveWithKey(ctx, in)
		})
		if ran {
			result, _ := v.(*ports.ReserveResult)
			return result, err
		}
	}
}

func (s *BookingService) reserveWithKey(ctx context.Context, in ports.ReserveInput) (*ports.ReserveResult, error) {
	id, found, err := s.idem.Lookup(ctx, in.ClientID, in.IdempotencyKey)
	switch {
	case err != nil:
		s.log.Warn().Err(err).Str("idempotency_key", in.IdempotencyKey).Msg("idempotency lookup failed, reserving anyway")
	case found:
		r, ok := s.reservations.FindByID(id)
		if !ok {
			s.log.Info().
				Str("idempotency_key", in.IdempotencyKey).
				Uint32("reservation_id", uint32(id)).
				Msg("idempotency key points at a removed reservation, booking again")
			break
		}
		if !sameBooking(r, in) {
			s.observe("reserve", domain.ErrIdempotencyKeyReused)
			return nil, fmt.Errorf("reserve: %w: key %q belongs to reservation %d", domain.ErrIdempotencyKeyReused, in.IdempotencyKey, id)
		}
		metrics.IdempotentReplaysTotal.Inc()
		s.log.Info().
			Str("idempotency_key", in.IdempotencyKey).
			Uint32("reservation_id", uint32(id)).
			Msg("idempotent replay")
		return &ports.ReserveResult{ReservationID: id, AlreadyExisted: true}, nil
	}

	result, err := s.reserve(ctx, in)
	if result != nil {
		if rerr := s.idem.Remember(ctx, in.ClientID, in.IdempotencyKey, result.ReservationID); rerr != nil {
			s.log.Warn().Err(rerr).Str("idempotency_key", in.IdempotencyKey).Msg("failed to store idempotency key")
		}
	}
	return result, err
}

func (s *BookingService) reserve(ctx context.Context, in ports.ReserveInput) (*ports.ReserveResult, error) {
	var id domain.ReservationID
	err := s.reservations.Update(ctx, func(tx *store.Tx) error {
		var err error
		id, err = s.admit(tx, in.ClientID, in.RoomID, in.Start, in.End, in.Guests)
		if err != nil {
			return err
		}
		tx.OnCommit(func() {
			s.publish(domain.BookingEvent{
				Action:        domain.ActionReserved,
				ReservationID: id,
				ClientID:      in.ClientID,
				RoomID:        in.RoomID,
				Start:         in.Start,
				End:           in.End,
				Guests:        in.Guests,
			})
		})
		return nil
	})
	s.observe("reserve", err)
	if id == 0 {
		return nil, fmt.Errorf("reserve: %w", err)
	}

	s.log.Info().
		Uint32("reservation_id", uint32(id)).
		Uint32("client_id", uint32(in.ClientID)).
		Uint32("room_id", uint32(in.RoomID)).
		Str("start", in.Start.String()).
		Str("end", in.End.String()).
		Msg("reservation created")

	result := &ports.ReserveResult{ReservationID: id}
	if err != nil {
		return result, fmt.Errorf("reserve: %w", err)
	}
	return result, nil
}

// Modify replaces a reservation's dates and guest count. Under one lock it
// removes the old reservation, tries to book the new parameters for the same
// client and room, and puts the original back unchanged when that fails. On
// success the replacement gets a new id.
func (s *BookingService) Modify(ctx context.Context, in ports.ModifyInput) (domain.ReservationID, error) {
	var (
		id  domain.ReservationID
		old domain.Reservation
	)
	err := s.reservations.Update(ctx, func(tx *store.Tx) error {
		var found bool
		old, found = tx.FindByID(in.ReservationID)
		if !found || !ownedBy(old, in.ClientID) {
			return fmt.Errorf("%w: %d", domain.ErrReservationNotFound, in.ReservationID)
		}

		tx.Remove(old.ID)
		newID, err := s.admit(tx, old.ClientID, old.RoomID, in.Start, in.End, in.Guests)
		if err != nil {
			tx.Reinsert(old)
			return err
		}
		id = newID
		tx.OnCommit(func() {
			s.publish(domain.BookingEvent{
				Action:        domain.ActionModified,
				ReservationID: id,
				PreviousID:    old.ID,
				ClientID:      old.ClientID,
				RoomID:        old.RoomID,
				Start:         in.Start,
				End:           in.End,
				Guests:        in.Guests,
			})
		})
		return nil
	})
	s.observe("modify", err)
	if id == 0 {
		return 0, fmt.Errorf("modify: %w", err)
	}

	s.log.Info().
		Uint32("reservation_id", uint32(id)).
		Uint32("previous_id", uint32(old.ID)).
		Uint32("room_id", uint32(old.RoomID)).
		Msg("reservation modified")

	if err != nil {
		return id, fmt.Errorf("modify: %w", err)
	}
	return id, nil
}

// Cancel removes a reservation. A missing id yields ErrReservationNotFound and
// leaves the store untouched.
func (s *BookingService) Cancel(ctx context.Context, in ports.CancelInput) (domain.ReservationID, error) {
	var (
		prev    domain.Reservation
		removed bool
	)
	err := s.reservations.Update(ctx, func(tx *store.Tx) error {
		r, found := tx.FindByID(in.ReservationID)
		if !found || !ownedBy(r, in.ClientID) {
			return fmt.Errorf("%w: %d", domain.ErrReservationNotFound, in.ReservationID)
		}
		prev, removed = tx.Remove(r.ID)
		tx.OnCommit(func() {
			s.publish(domain.BookingEvent{
				Action:        domain.ActionCancelled,
				ReservationID: prev.ID,
				ClientID:      prev.ClientID,
				RoomID:        prev.RoomID,
				Start:         prev.Start,
				End:           prev.End,
				Guests:        prev.Guests,
			})
		})
		return nil
	})
	s.observe("cancel", err)
	if !removed {
		return 0, fmt.Errorf("cancel: %w", err)
	}

	s.log.Info().Uint32("reservation_id", uint32(prev.ID)).Msg("reservation cancelled")

	if err != nil {
		return prev.ID, fmt.Errorf("cancel: %w", err)
	}
	return prev.ID, nil
}

// GetReservations returns the client's reservations in insertion order.
func (s *BookingService) GetReservations(_ context.Context, clientID domain.ClientID) []domain.Reservation {
	return s.reservations.FindByClient(clientID)
}

// GetReservation returns a single reservation. When clientID is non-zero,
// reservations of other clients are reported as not found.
func (s *BookingService) GetReservation(_ context.Context, id domain.ReservationID, clientID domain.ClientID) (domain.Reservation, error) {
	r, ok := s.reservations.FindByID(id)
	if !ok || !ownedBy(r, clientID) {
		return domain.Reservation{}, fmt.Errorf("get reservation: %w: %d", domain.ErrReservationNotFound, id)
	}
	return r, nil
}

// Snapshot writes rooms, clients and reservations to storage. Journal writes
// are held back while the snapshot is written so none of them is lost.
func (s *BookingService) Snapshot(ctx context.Context) error {
	if s.storage == nil {
		return nil
	}

	ds := &domain.Dataset{Rooms: s.rooms.List()}
	err := s.reservations.Checkpoint(func(rows []domain.Reservation, lastIssued domain.ReservationID) error {
		ds.Reservations, ds.LastReservationID = rows, lastIssued
		if s.clients == nil {
			return s.storage.Snapshot(ctx, ds)
		}
		return s.clients.Checkpoint(func(clients []domain.Client, lastClient domain.ClientID) error {
			ds.Clients, ds.LastClientID = clients, lastClient
			return s.storage.Snapshot(ctx, ds)
		})
	})
	if err != nil {
		metrics.PersistenceErrorsTotal.WithLabelValues("snapshot").Inc()
		return fmt.Errorf("snapshot: %w", err)
	}

	s.log.Info().
		Int("rooms", len(ds.Rooms)).
		Int("clients", len(ds.Clients)).
		Int("reservations", len(ds.Reservations)).
		Msg("snapshot written")
	return nil
}

// publish runs from a store commit hook, so events reach the audit pipeline in
// commit order.
func (s *BookingService) publish(e domain.BookingEvent) {
	e.OccurredAt = s.now()
	s.events.Publish(e)
}

func (s *BookingService) observe(operation string, err error) {
	metrics.BookingOperationsTotal.WithLabelValues(operation, resultLabel(err)).Inc()
	if errors.Is(err, domain.ErrPersistence) {
		metrics.PersistenceErrorsTotal.WithLabelValues(operation).Inc()
	}
	metrics.ActiveReservations.Set(float64(s.reservations.Len()))
}

// sameBooking reports whether r is what in asks for.
func sameBooking(r domain.Reservation, in ports.ReserveInput) bool {
	return r.ClientID == in.ClientID &&
		r.RoomID == in.RoomID &&
		r.Start == in.Start &&
		r.End == in.End &&
		r.Guests == in.Guests
}

func ownedBy(r domain.Reservation, clientID domain.ClientID) bool {
	return clientID == 0 || r.ClientID == clientID
}

// resultLabel maps a booking error to a low-cardinality metric label.
func resultLabel(err error) string {
	switch {
	case err == nil, errors.Is(err, domain.ErrPersistence):
		return "ok"
	case errors.Is(err, domain.ErrInvalidDateRange), errors.Is(err, domain.ErrInvalidDate):
		return "invalid_date_range"
	case errors.Is(err, domain.ErrUnknownRoom):
		return "unknown_room"
	case errors.Is(err, domain.ErrOverCapacity):
		return "over_capacity"
	case errors.Is(err, domain.ErrRoomUnavailable):
		return "room_unavailable"
	case errors.Is(err, domain.ErrReservationNotFound):
		return "not_found"
	case errors.Is(err, domain.ErrIdempotencyKeyReused):
		return "idempotency_key_reused"
	default:
		return "error"
	}
}

type nopPublisher struct{}

func (nopPublisher) Publish(domain.BookingEvent) {}

type nopIdempotency struct{}

func (nopIdempotency) Lookup(context.Context, domain.ClientID, string) (domain.ReservationID, bool, error) {
	return 0, false, nil
}

func (nopIdempotency) Remember(context.Context, domain.ClientID, string, domain.ReservationID) error {
	return nil
}
