package mongo

import (
	"context"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"

	"github.com/sirpyerre/hotel-reservations/internal/core/domain"
	"github.com/sirpyerre/hotel-reservations/internal/core/ports"
)

const collectionBookingEvents = "booking_events"

// AuditRepository implements ports.AuditRecorder using MongoDB.
type AuditRepository struct {
	col *mongo.Collection
}

// NewAuditRepository creates a new AuditRepository.
func NewAuditRepository(db *mongo.Database) ports.AuditRecorder {
	return &AuditRepository{col: db.Collection(collectionBookingEvents)}
}

// Record persists a booking event to the booking_events audit collection.
func (r *AuditRepository) Record(ctx context.Context, event domain.BookingEvent) error {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	_, err := r.col.InsertOne(ctx, eventDocument(event, time.Now().UTC()))
	return err
}

func eventDocument(event domain.BookingEvent, processedAt time.Time) bson.M {
	doc := bson.M{
		"action":         string(event.Action),
		"reservation_id": int64(event.ReservationID),
		"client_id":      int64(event.ClientID),
		"room_id":        int64(event.RoomID),
		"date_start":     event.Start.String(),
		"date_end":       event.End.String(),
		"guest_count":    int32(event.Guests),
		"occurred_at":    event.OccurredAt.UTC(),
		"processed_at":   processedAt,
	}
	if event.PreviousID != 0 {
		doc["previous_id"] = int64(event.PreviousID)
	}
	return doc
}
