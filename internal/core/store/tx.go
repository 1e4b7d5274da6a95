package store

import (
	"sort"

	"cloud.google.com/go/civil"

	"github.com/sirpyerre/hotel-reservations/internal/core/domain"
)

// Tx is a handle on the store valid only inside the View or Update callback
// that received it. Mutating methods panic on a read-only Tx.
type Tx struct {
	s         *Store
	writable  bool
	changes   []change
	committed []func()
}

func (tx *Tx) mustWrite() {
	if !tx.writable {
		panic("store: mutation in read-only transaction")
	}
}

// OnCommit registers fn to run once the transaction's changes are journaled.
// fn must not use the store.
func (tx *Tx) OnCommit(fn func()) {
	tx.mustWrite()
	tx.committed = append(tx.committed, fn)
}

func (tx *Tx) runCommitted() {
	for _, fn := range tx.committed {
		fn()
	}
}

// search returns the position of id in the id-ordered rows.
func (tx *Tx) search(id domain.ReservationID) (int, bool) {
	rows := tx.s.rows
	i := sort.Search(len(rows), func(i int) bool { return rows[i].ID >= id })
	return i, i < len(rows) && rows[i].ID == id
}

// Insert assigns the next id and appends the reservation.
func (tx *Tx) Insert(clientID domain.ClientID, roomID domain.RoomID, start, end civil.Date, guests uint8) domain.ReservationID {
	tx.mustWrite()

	tx.s.lastID++
	r := domain.Reservation{
		ID:       tx.s.lastID,
		ClientID: clientID,
		RoomID:   roomID,
		Start:    start,
		End:      end,
		Guests:   guests,
	}
	tx.s.rows = append(tx.s.rows, r)
	tx.changes = append(tx.changes, change{kind: changeInsert, res: r})
	return r.ID
}

// Remove deletes the reservation and returns its previous value.
func (tx *Tx) Remove(id domain.ReservationID) (domain.Reservation, bool) {
	tx.mustWrite()

	i, ok := tx.search(id)
	if !ok {
		return domain.Reservation{}, false
	}
	prev := tx.s.rows[i]
	tx.s.rows = append(tx.s.rows[:i], tx.s.rows[i+1:]...)
	tx.changes = append(tx.changes, change{kind: changeRemove, res: prev})
	return prev, true
}

// Reinsert puts a reservation removed in this transaction back in place,
// keeping its original id. The pending remove is dropped so nothing reaches
// the journal for it.
func (tx *Tx) Reinsert(r domain.Reservation) {
	tx.mustWrite()

	i, exists := tx.search(r.ID)
	if exists {
		return
	}
	tx.s.rows = append(tx.s.rows, domain.Reservation{})
	copy(tx.s.rows[i+1:], tx.s.rows[i:])
	tx.s.rows[i] = r

	for j := len(tx.changes) - 1; j >= 0; j-- {
		c := tx.changes[j]
		if c.res.ID == r.ID && c.kind == changeRemove {
			tx.changes = append(tx.changes[:j], tx.changes[j+1:]...)
			return
		}
	}
	tx.changes = append(tx.changes, change{kind: changeInsert, res: r})
}

// FindByID returns the reservation with the given id.
func (tx *Tx) FindByID(id domain.ReservationID) (domain.Reservation, bool) {
	i, ok := tx.search(id)
	if !ok {
		return domain.Reservation{}, false
	}
	return tx.s.rows[i], true
}

// FindByClient returns the client's reservations in insertion order.
func (tx *Tx) FindByClient(clientID domain.ClientID) []domain.Reservation {
	out := []domain.Reservation{}
	for _, r := range tx.s.rows {
		if r.ClientID == clientID {
			out = append(out, r)
		}
	}
	return out
}

// AllForRoom returns the room's reservations in insertion order.
func (tx *Tx) AllForRoom(roomID domain.RoomID) []domain.Reservation {
	out := []domain.Reservation{}
	for _, r := range tx.s.rows {
		if r.RoomID == roomID {
			out = append(out, r)
		}
	}
	return out
}

// All returns a copy of every reservation.
func (tx *Tx) All() []domain.Reservation {
	out := make([]domain.Reservation, len(tx.s.rows))
	copy(out, tx.s.rows)
	return out
}

// BlockedRooms returns the rooms holding at least one reservation that
// overlaps [start, end].
func (tx *Tx) BlockedRooms(start, end civil.Date) map[domain.RoomID]struct{} {
	blocked := make(map[domain.RoomID]struct{})
	for _, r := range tx.s.rows {
		if r.Overlaps(start, end) {
			blocked[r.RoomID] = struct{}{}
		}
	}
	return blocked
}

// RoomFree reports whether no reservation of the room overlaps [start, end].
func (tx *Tx) RoomFree(roomID domain.RoomID, start, end civil.Date) bool {
	for _, r := range tx.s.rows {
		if r.RoomID == roomID && r.Overlaps(start, end) {
			return false
		}
	}
	return true
}

// LastIssued returns the highest reservation id handed out so far.
func (tx *Tx) LastIssued() domain.ReservationID {
	return tx.s.lastID
}
