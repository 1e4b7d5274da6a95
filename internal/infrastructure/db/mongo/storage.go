package mongo

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/sirpyerre/hotel-reservations/internal/core/domain"
)

const (
	collectionRooms        = "rooms"
	collectionClients      = "clients"
	collectionReservations = "reservations"
	collectionCounters     = "counters"

	counterReservation = "reservation"
	counterClient      = "client"
)

type roomDoc struct {
	ID        int64 `bson:"_id"`
	MaxGuests int32 `bson:"max_guests"`
}

type clientDoc struct {
	ID           int64     `bson:"_id"`
	Email        string    `bson:"email"`
	PasswordHash string    `bson:"password_hash"`
	Role         string    `bson:"role"`
	CreatedAt    time.Time `bson:"created_at"`
}

// reservationDoc stores dates as YYYY-MM-DD strings so they sort and compare
// lexically in queries.
type reservationDoc struct {
	ID         int64  `bson:"_id"`
	ClientID   int64  `bson:"client_id"`
	RoomID     int64  `bson:"room_id"`
	DateStart  string `bson:"date_start"`
	DateEnd    string `bson:"date_end"`
	GuestCount int32  `bson:"guest_count"`
}

type counterDoc struct {
	ID    string `bson:"_id"`
	Value int64  `bson:"value"`
}

// Storage implements ports.Storage using MongoDB.
type Storage struct {
	db *mongo.Database
}

func NewStorage(db *mongo.Database) *Storage {
	return &Storage{db: db}
}

// Load reads every collection. Documents that do not map onto the domain are
// reported as domain.ErrCorruptData.
func (s *Storage) Load(ctx context.Context) (*domain.Dataset, error) {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	ds := &domain.Dataset{}

	var rooms []roomDoc
	if err := s.findAll(ctx, collectionRooms, &rooms); err != nil {
		return nil, err
	}
	for _, d := range rooms {
		room, err := d.toDomain()
		if err != nil {
			return nil, fmt.Errorf("%w: rooms/%d: %v", domain.ErrCorruptData, d.ID, err)
		}
		ds.Rooms = append(ds.Rooms, room)
	}

	var clients []clientDoc
	if err := s.findAll(ctx, collectionClients, &clients); err != nil {
		return nil, err
	}
	for _, d := range clients {
		c, err := d.toDomain()
		if err != nil {
			return nil, fmt.Errorf("%w: clients/%d: %v", domain.ErrCorruptData, d.ID, err)
		}
		ds.Clients = append(ds.Clients, c)
	}

	var reservations []reservationDoc
	if err := s.findAll(ctx, collectionReservations, &reservations); err != nil {
		return nil, err
	}
	for _, d := range reservations {
		r, err := d.toDomain()
		if err != nil {
			return nil, fmt.Errorf("%w: reservations/%d: %v", domain.ErrCorruptData, d.ID, err)
		}
		ds.Reservations = append(ds.Reservations, r)
	}

	var counters []counterDoc
	if err := s.findAll(ctx, collectionCounters, &counters); err != nil {
		return nil, err
	}
	for _, c := range counters {
		if c.Value < 0 || c.Value > maxID {
			return nil, fmt.Errorf("%w: counter %q out of range", domain.ErrCorruptData, c.ID)
		}
		switch c.ID {
		case counterReservation:
			ds.LastReservationID = domain.ReservationID(c.Value)
		case counterClient:
			ds.LastClientID = domain.ClientID(c.Value)
		}
	}

	return ds, nil
}

// SaveReservation upserts one reservation and raises the id counter.
func (s *Storage) SaveReservation(ctx context.Context, r domain.Reservation) error {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	doc := newReservationDoc(r)
	_, err := s.db.Collection(collectionReservations).
		ReplaceOne(ctx, bson.M{"_id": doc.ID}, doc, options.Replace().SetUpsert(true))
	if err != nil {
		return fmt.Errorf("save reservation: %w", err)
	}
	return s.raiseCounter(ctx, counterReservation, int64(r.ID))
}

// DeleteReservation removes one reservation and records the id high-water mark.
func (s *Storage) DeleteReservation(ctx context.Context, id domain.ReservationID, lastIssued domain.ReservationID) error {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	if _, err := s.db.Collection(collectionReservations).DeleteOne(ctx, bson.M{"_id": int64(id)}); err != nil {
		return fmt.Errorf("delete reservation: %w", err)
	}
	return s.raiseCounter(ctx, counterReservation, int64(lastIssued))
}

// SaveClient upserts one client and raises the client counter.
func (s *Storage) SaveClient(ctx context.Context, c domain.Client) error {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	doc := newClientDoc(c)
	_, err := s.db.Collection(collectionClients).
		ReplaceOne(ctx, bson.M{"_id": doc.ID}, doc, options.Replace().SetUpsert(true))
	if err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return domain.ErrClientExists
		}
		return fmt.Errorf("save client: %w", err)
	}
	return s.raiseCounter(ctx, counterClient, int64(c.ID))
}

// Snapshot makes the collections match d: every document in d is upserted and
// everything else is removed.
func (s *Storage) Snapshot(ctx context.Context, d *domain.Dataset) error {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	rooms := make([]any, 0, len(d.Rooms))
	for _, r := range d.Rooms {
		rooms = append(rooms, newRoomDoc(r))
	}
	if err := s.replaceAll(ctx, collectionRooms, rooms, func(doc any) int64 { return doc.(roomDoc).ID }); err != nil {
		return err
	}

	clients := make([]any, 0, len(d.Clients))
	for _, c := range d.Clients {
		clients = append(clients, newClientDoc(c))
	}
	if err := s.replaceAll(ctx, collectionClients, clients, func(doc any) int64 { return doc.(clientDoc).ID }); err != nil {
		return err
	}

	reservations := make([]any, 0, len(d.Reservations))
	for _, r := range d.Reservations {
		reservations = append(reservations, newReservationDoc(r))
	}
	if err := s.replaceAll(ctx, collectionReservations, reservations, func(doc any) int64 { return doc.(reservationDoc).ID }); err != nil {
		return err
	}

	if err := s.setCounter(ctx, counterReservation, int64(d.LastReservationID)); err != nil {
		return err
	}
	return s.setCounter(ctx, counterClient, int64(d.LastClientID))
}

func (s *Storage) findAll(ctx context.Context, collection string, out any) error {
	cur, err := s.db.Collection(collection).Find(ctx, bson.M{}, options.Find().SetSort(bson.D{{Key: "_id", Value: 1}}))
	if err != nil {
		return fmt.Errorf("find %s: %w", collection, err)
	}
	if err := cur.All(ctx, out); err != nil {
		return fmt.Errorf("%w: decode %s: %v", domain.ErrCorruptData, collection, err)
	}
	return nil
}

// replaceAll upserts docs and deletes every document whose id is not among them.
func (s *Storage) replaceAll(ctx context.Context, collection string, docs []any, idOf func(any) int64) error {
	col := s.db.Collection(collection)
	ids := make([]int64, 0, len(docs))

	if len(docs) > 0 {
		models := make([]mongo.WriteModel, 0, len(docs))
		for _, doc := range docs {
			id := idOf(doc)
			ids = append(ids, id)
			models = append(models, mongo.NewReplaceOneModel().
				SetFilter(bson.M{"_id": id}).
				SetReplacement(doc).
				SetUpsert(true))
		}
		if _, err := col.BulkWrite(ctx, models, options.BulkWrite().SetOrdered(false)); err != nil {
			return fmt.Errorf("snapshot %s: %w", collection, err)
		}
	}

	if _, err := col.DeleteMany(ctx, bson.M{"_id": bson.M{"$nin": ids}}); err != nil {
		return fmt.Errorf("snapshot %s prune: %w", collection, err)
	}
	return nil
}

func (s *Storage) raiseCounter(ctx context.Context, name string, value int64) error {
	_, err := s.db.Collection(collectionCounters).UpdateOne(ctx,
		bson.M{"_id": name},
		bson.M{"$max": bson.M{"value": value}},
		options.Update().SetUpsert(true),
	)
	if err != nil {
		return fmt.Errorf("counter %s: %w", name, err)
	}
	return nil
}

func (s *Storage) setCounter(ctx context.Context, name string, value int64) error {
	_, err := s.db.Collection(collectionCounters).UpdateOne(ctx,
		bson.M{"_id": name},
		bson.M{"$set": bson.M{"value": value}},
		options.Update().SetUpsert(true),
	)
	if err != nil {
		return fmt.Errorf("counter %s: %w", name, err)
	}
	return nil
}

// --- Document mapping ---

const maxID = int64(^uint32(0))

var errOutOfRange = errors.New("value out of range")

func checkID(v int64) error {
	if v < 0 || v > maxID {
		return fmt.Errorf("id %d: %w", v, errOutOfRange)
	}
	return nil
}

func checkGuests(v int32) error {
	if v < 0 || v > 255 {
		return fmt.Errorf("guests %d: %w", v, errOutOfRange)
	}
	return nil
}

func newRoomDoc(r domain.Room) roomDoc {
	return roomDoc{ID: int64(r.ID), MaxGuests: int32(r.MaxGuests)}
}

func (d roomDoc) toDomain() (domain.Room, error) {
	if err := checkID(d.ID); err != nil {
		return domain.Room{}, err
	}
	if err := checkGuests(d.MaxGuests); err != nil {
		return domain.Room{}, err
	}
	return domain.Room{ID: domain.RoomID(d.ID), MaxGuests: uint8(d.MaxGuests)}, nil
}

func newClientDoc(c domain.Client) clientDoc {
	return clientDoc{
		ID:           int64(c.ID),
		Email:        c.Email,
		PasswordHash: c.PasswordHash,
		Role:         c.Role,
		CreatedAt:    c.CreatedAt.UTC(),
	}
}

func (d clientDoc) toDomain() (domain.Client, error) {
	if err := checkID(d.ID); err != nil {
		return domain.Client{}, err
	}
	if d.Email == "" {
		return domain.Client{}, errors.New("empty email")
	}
	return domain.Client{
		ID:           domain.ClientID(d.ID),
		Email:        d.Email,
		PasswordHash: d.PasswordHash,
		Role:         d.Role,
		CreatedAt:    d.CreatedAt.UTC(),
	}, nil
}

func newReservationDoc(r domain.Reservation) reservationDoc {
	return reservationDoc{
		ID:         int64(r.ID),
		ClientID:   int64(r.ClientID),
		RoomID:     int64(r.RoomID),
		DateStart:  r.Start.String(),
		DateEnd:    r.End.String(),
		GuestCount: int32(r.Guests),
	}
}

func (d reservationDoc) toDomain() (domain.Reservation, error) {
	for _, id := range []int64{d.ID, d.ClientID, d.RoomID} {
		if err := checkID(id); err != nil {
			return domain.Reservation{}, err
		}
	}
	if err := checkGuests(d.GuestCount); err != nil {
		return domain.Reservation{}, err
	}
	start, err := domain.ParseDate(d.DateStart)
	if err != nil {
		return domain.Reservation{}, err
	}
	end, err := domain.ParseDate(d.DateEnd)
	if err != nil {
		return domain.Reservation{}, err
	}
	return domain.Reservation{
		ID:       domain.ReservationID(d.ID),
		ClientID: domain.ClientID(d.ClientID),
		RoomID:   domain.RoomID(d.RoomID),
		Start:    start,
		End:      end,
		Guests:   uint8(d.GuestCount),
	}, nil
}
