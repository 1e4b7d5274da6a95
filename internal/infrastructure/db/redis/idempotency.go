package redis

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/sirpyerre/hotel-reservations/internal/core/domain"
)

const idempotencyTTL = 24 * time.Hour

// IdempotencyStore maps a client's Idempotency-Key to the reservation it
// created. Key format: idem:<client_id>:<key>
type IdempotencyStore struct {
	client redis.Cmdable
	ttl    time.Duration
}

// NewIdempotencyStore wraps a Redis client. Keys expire after 24 hours.
func NewIdempotencyStore(client redis.Cmdable) *IdempotencyStore {
	return &IdempotencyStore{client: client, ttl: idempotencyTTL}
}

// Lookup returns the reservation id stored for the key, if any.
func (s *IdempotencyStore) Lookup(ctx context.Context, clientID domain.ClientID, key string) (domain.ReservationID, bool, error) {
	val, err := s.client.Get(ctx, s.key(clientID, key)).Result()
	if errors.Is(err, redis.Nil) {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, fmt.Errorf("idempotency lookup: %w", err)
	}

	id, err := strconv.ParseUint(val, 10, 32)
	if err != nil {
		return 0, false, fmt.Errorf("idempotency lookup: bad value %q: %w", val, err)
	}
	return domain.ReservationID(id), true, nil
}

// Remember stores the reservation id for the key, replacing any earlier entry
// whose reservation no longer exists.
func (s *IdempotencyStore) Remember(ctx context.Context, clientID domain.ClientID, key string, id domain.ReservationID) error {
	err := s.client.Set(ctx, s.key(clientID, key), strconv.FormatUint(uint64(id), 10), s.ttl).Err()
	if err != nil {
		return fmt.Errorf("idempotency remember: %w", err)
	}
	return nil
}

func (s *IdempotencyStore) key(clientID domain.ClientID, key string) string {
	return fmt.Sprintf("idem:%d:%s", clientID, key)
}
