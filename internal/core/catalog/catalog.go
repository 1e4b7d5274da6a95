// Package catalog holds the set of bookable rooms. A Catalog is built once at
// startup and is read-only afterwards, so it is safe for concurrent use
// without locking.
package catalog

import (
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/sirpyerre/hotel-reservations/internal/core/domain"
)

// Catalog is an immutable, id-ordered room list.
type Catalog struct {
	rooms []domain.Room
	index map[domain.RoomID]int
}

// New builds a catalog from rooms. Duplicate ids and zero-capacity rooms are
// rejected.
func New(rooms []domain.Room) (*Catalog, error) {
	sorted := make([]domain.Room, len(rooms))
	copy(sorted, rooms)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].ID < sorted[j].ID })

	index := make(map[domain.RoomID]int, len(sorted))
	for i, r := range sorted {
		if _, dup := index[r.ID]; dup {
			return nil, fmt.Errorf("catalog: duplicate room %d", r.ID)
		}
		if r.MaxGuests == 0 {
			return nil, fmt.Errorf("catalog: room %d has zero capacity", r.ID)
		}
		index[r.ID] = i
	}
	return &Catalog{rooms: sorted, index: index}, nil
}

// List returns every room ordered by id. The slice is a copy.
func (c *Catalog) List() []domain.Room {
	out := make([]domain.Room, len(c.rooms))
	copy(out, c.rooms)
	return out
}

// Get returns the room with the given id.
func (c *Catalog) Get(id domain.RoomID) (domain.Room, bool) {
	i, ok := c.index[id]
	if !ok {
		return domain.Room{}, false
	}
	return c.rooms[i], true
}

// CapacityOf returns the room's max guests, or false when the room is not in
// the catalog. Callers must not confuse an unknown room with a full one.
func (c *Catalog) CapacityOf(id domain.RoomID) (uint8, bool) {
	r, ok := c.Get(id)
	return r.MaxGuests, ok
}

// Len returns the number of rooms.
func (c *Catalog) Len() int { return len(c.rooms) }

// ParseSeed parses a room list of the form "1:2,2:4" (room id : max guests).
// An empty string yields no rooms.
func ParseSeed(spec string) ([]domain.Room, error) {
	spec = strings.TrimSpace(spec)
	if spec == "" {
		return nil, nil
	}

	var rooms []domain.Room
	for _, part := range strings.Split(spec, ",") {
		idStr, capStr, ok := strings.Cut(strings.TrimSpace(part), ":")
		if !ok {
			return nil, fmt.Errorf("catalog: seed entry %q must be id:capacity", part)
		}
		id, err := strconv.ParseUint(strings.TrimSpace(idStr), 10, 32)
		if err != nil {
			return nil, fmt.Errorf("catalog: seed entry %q: bad room id: %w", part, err)
		}
		capacity, err := strconv.ParseUint(strings.TrimSpace(capStr), 10, 8)
		if err != nil {
			return nil, fmt.Errorf("catalog: seed entry %q: bad capacity: %w", part, err)
		}
		rooms = append(rooms, domain.Room{ID: domain.RoomID(id), MaxGuests: uint8(capacity)})
	}
	return rooms, nil
}
